package branchdeskcli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phillip-england/branchdesk/internal/apiapp"
	"github.com/phillip-england/branchdesk/internal/clientapp"
	"github.com/phillip-england/branchdesk/internal/console"
	"github.com/phillip-england/branchdesk/internal/envutil"
	"github.com/spf13/cobra"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("%w: branchdesk config show", ErrUsage)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as yaml",
	Long: `Print the settings every component would start with, after the
environment, .env and --config have been applied. Secrets are masked;
fill them in before passing a saved copy back with --config.`,
	Args: usageArgs(0),
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out, err := envutil.MarshalYAML(effectiveSettings())
	if err != nil {
		return fmt.Errorf("render settings: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func effectiveSettings() map[string]string {
	api := apiapp.DefaultConfigFromEnv()
	client := clientapp.DefaultConfigFromEnv()
	term := console.DefaultConfigFromEnv()

	return map[string]string{
		"API_ADDR":               api.Addr,
		"API_CORS_ORIGINS":       strings.Join(api.CORSOrigins, ","),
		"API_BASE_URL":           client.APIBaseURL,
		"DB_DRIVER":              api.Driver,
		"AUTH_DB_PATH":           api.DBPath,
		"MYSQL_DSN":              mask(api.MySQLDSN),
		"ADMIN_USERNAME":         api.AdminUsername,
		"ADMIN_PASSWORD":         mask(api.AdminPassword),
		"TOKEN_TTL_HOURS":        strconv.Itoa(int(api.TokenTTL.Hours())),
		"UPLOAD_DIR":             api.UploadDir,
		"CLIENT_ADDR":            client.Addr,
		"CLIENT_SECURE_COOKIES":  strconv.FormatBool(client.SecureCookies),
		"BRANCHDESK_HOME":        filepath.Dir(term.SessionPath),
		"BRANCHDESK_CONSOLE_LOG": term.LogPath,
	}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return redacted
}
