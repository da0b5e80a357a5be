package branchdeskcli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/phillip-england/branchdesk/internal/apiapp"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

const testPassword = "correct-horse-battery"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()
	err := Execute(args)
	return out.String(), err
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "branchdesk" {
		t.Errorf("expected Use 'branchdesk', got '%s'", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"setup", "run", "console", "user", "backup", "restore", "import", "assets", "config"} {
		if !names[want] {
			t.Errorf("missing %q command", want)
		}
	}
}

func TestExecuteUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"deploy"}},
		{name: "run without target", args: []string{"run"}},
		{name: "unknown run target", args: []string{"run", "worker"}},
		{name: "restore without archive", args: []string{"restore"}},
		{name: "import without kind", args: []string{"import"}},
		{name: "config without action", args: []string{"config"}},
		{name: "unknown flag", args: []string{"setup", "--admin-pass", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("expected ErrUsage, got %v", err)
			}
		})
	}
}

func TestPrintUsageListsCommands(t *testing.T) {
	var out bytes.Buffer
	PrintUsage(&out)
	for _, want := range []string{"branchdesk", "setup", "backup", "--config"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("usage missing %q:\n%s", want, out.String())
		}
	}
}

func TestSetupWritesEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	out, err := execute(t, "setup", "--admin-password", testPassword, "--env-file", path, "--db-driver", "sqlite", "--force=false")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if !strings.Contains(out, "wrote "+path) {
		t.Fatalf("unexpected output %q", out)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read env: %v", err)
	}
	for _, want := range []string{"ADMIN_USERNAME=admin\n", "ADMIN_PASSWORD=" + testPassword + "\n", "DB_DRIVER=sqlite\n", "UPLOAD_DIR=uploads\n", "API_BASE_URL=http://localhost:8080\n"} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("env file missing %q:\n%s", want, raw)
		}
	}

	if _, err := execute(t, "setup", "--admin-password", testPassword, "--env-file", path, "--db-driver", "sqlite", "--force=false"); err == nil {
		t.Fatal("expected existing env file to be refused")
	}
	if _, err := execute(t, "setup", "--admin-password", testPassword, "--env-file", path, "--db-driver", "sqlite", "--force"); err != nil {
		t.Fatalf("setup --force: %v", err)
	}
}

func TestSetupRejectsShortPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	_, err := execute(t, "setup", "--admin-password", "short", "--env-file", path, "--db-driver", "sqlite", "--force=false")
	if err == nil || errors.Is(err, ErrUsage) {
		t.Fatalf("expected password error, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Fatal("env file written despite invalid password")
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", testPassword)
	unsetEnv(t, "MYSQL_DSN")

	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var doc map[string]map[string]string
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not yaml: %v\n%s", err, out)
	}
	if doc["api"]["addr"] != ":9090" {
		t.Fatalf("api.addr = %q", doc["api"]["addr"])
	}
	if doc["admin"]["username"] != "root" || doc["admin"]["password"] != redacted {
		t.Fatalf("admin section = %v", doc["admin"])
	}
	if doc["mysql"]["dsn"] != "" {
		t.Fatalf("empty dsn should stay empty, got %q", doc["mysql"]["dsn"])
	}
	if strings.Contains(out, testPassword) {
		t.Fatal("password leaked into output")
	}
}

func TestConfigFileFillsUnsetValues(t *testing.T) {
	t.Cleanup(func() { configPath = "" })
	unsetEnv(t, "API_ADDR", "CLIENT_ADDR")
	t.Setenv("UPLOAD_DIR", "from-env")

	path := filepath.Join(t.TempDir(), "branchdesk.yaml")
	body := "api:\n  addr: \":7070\"\nclient:\n  addr: \":7071\"\nupload:\n  dir: from-file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var doc map[string]map[string]string
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not yaml: %v\n%s", err, out)
	}
	if doc["api"]["addr"] != ":7070" || doc["client"]["addr"] != ":7071" {
		t.Fatalf("config file values not applied:\n%s", out)
	}
	if doc["upload"]["dir"] != "from-env" {
		t.Fatalf("environment should win over the config file, got %q", doc["upload"]["dir"])
	}

	if _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "config", "show"); err == nil {
		t.Fatal("expected missing config file to fail")
	}
}

func TestUserAddWithMemoryStore(t *testing.T) {
	t.Cleanup(func() { newUser = apiapp.NewUser{} })
	t.Setenv("DB_DRIVER", "memory")

	out, err := execute(t, "user", "add", "--username", "ops", "--password", testPassword, "--role", "admin", "--branch-id", "0")
	if err != nil {
		t.Fatalf("user add: %v", err)
	}
	if !strings.Contains(out, `created Admin "ops"`) {
		t.Fatalf("unexpected output %q", out)
	}

	if _, err := execute(t, "user", "add", "--username", "teller", "--password", testPassword, "--role", "branch", "--branch-id", "0"); err == nil {
		t.Fatal("expected branch account without branch to fail")
	}
}

func TestImportItemsCommand(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")

	file := excelize.NewFile()
	rows := [][]any{
		{"Name", "Category", "Price"},
		{"Veg Puff", "snacks", 25},
		{"Mystery", "drinks", 5},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := file.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "items.xlsx")
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	out, err := execute(t, "import", "items", path)
	if err != nil {
		t.Fatalf("import items: %v", err)
	}
	if !strings.Contains(out, "1 items imported, 1 rows skipped") || !strings.Contains(out, "row 3:") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestBackupAndRestore(t *testing.T) {
	t.Cleanup(func() {
		backupOut = ""
		restoreForce = false
	})
	dir := t.TempDir()
	db := filepath.Join(dir, "branchdesk.db")
	if err := os.WriteFile(db, []byte("branches and items"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("AUTH_DB_PATH", db)

	archive := filepath.Join(dir, "backups", "nightly.db.xz")
	if _, err := execute(t, "backup", "--out", archive); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := os.WriteFile(db, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "restore", archive, "--force=false"); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected restore to refuse existing database, got %v", err)
	}
	if _, err := execute(t, "restore", archive, "--force"); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, _ := os.ReadFile(db); string(got) != "branches and items" {
		t.Fatalf("restored db = %q", got)
	}
}

func TestBackupNeedsSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := execute(t, "backup", "--out", filepath.Join(t.TempDir(), "x.db.xz"))
	if err == nil || !strings.Contains(err.Error(), "sqlite") {
		t.Fatalf("expected sqlite-only error, got %v", err)
	}
}

func TestTailwindReleaseAssetName(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{goos: "linux", goarch: "amd64", want: "tailwindcss-linux-x64"},
		{goos: "darwin", goarch: "arm64", want: "tailwindcss-macos-arm64"},
		{goos: "windows", goarch: "amd64", want: "tailwindcss-windows-x64.exe"},
		{goos: "plan9", goarch: "386", wantErr: true},
	}
	for _, tt := range tests {
		got, err := tailwindReleaseAssetName(tt.goos, tt.goarch)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s/%s: err = %v", tt.goos, tt.goarch, err)
		}
		if got != tt.want {
			t.Fatalf("%s/%s = %q, want %q", tt.goos, tt.goarch, got, tt.want)
		}
	}
	if url := tailwindDownloadURL("tailwindcss-linux-x64"); !strings.HasSuffix(url, "/v3.4.17/tailwindcss-linux-x64") {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestEnsureTailwindDownload(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "bin", "tailwindcss")
	if err := ensureTailwindDownload(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("download: %v", err)
	}
	raw, err := os.ReadFile(dest)
	if err != nil || string(raw) != "#!/bin/sh\n" {
		t.Fatalf("binary = %q, %v", raw, err)
	}
	if runtime.GOOS == "windows" {
		return
	}
	if err := ensureTailwindDownload(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected a single download, got %d", hits)
	}
}

func TestEnsureTailwindDownloadBadStatus(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "tailwindcss")
	if err := ensureTailwindDownload(context.Background(), server.URL, dest); err == nil {
		t.Fatal("expected 404 to fail")
	}
	if _, err := os.Stat(dest); err == nil {
		t.Fatal("binary installed after failed download")
	}
}
