package branchdeskcli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
)

const tailwindVersion = "v3.4.17"

var tailwindBinary string

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage web client assets",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("%w: branchdesk assets build", ErrUsage)
	},
}

var assetsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild internal/clientapp/assets/app.css with the tailwind CLI",
	Long: `Rebuild the web client stylesheet from tailwind.input.css.

The standalone tailwind CLI is downloaded into bin/ on first use unless
--tailwind names an installed binary. Run from the repository root.`,
	Args: usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return buildClientAssets(cmd.Context(), tailwindBinary, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	assetsBuildCmd.Flags().StringVar(&tailwindBinary, "tailwind", "", "tailwindcss binary to use instead of downloading one")
	assetsCmd.AddCommand(assetsBuildCmd)
	rootCmd.AddCommand(assetsCmd)
}

func buildClientAssets(ctx context.Context, binary string, stdout, stderr io.Writer) error {
	if err := os.MkdirAll(filepath.Dir(tailwindOutputPath()), 0o755); err != nil {
		return fmt.Errorf("create assets directory: %w", err)
	}

	if binary == "" {
		binary = localTailwindBinaryPath()
		assetName, err := tailwindReleaseAssetName(runtime.GOOS, runtime.GOARCH)
		if err != nil {
			return err
		}
		if err := ensureTailwindDownload(ctx, tailwindDownloadURL(assetName), binary); err != nil {
			return err
		}
	}

	cmd := exec.CommandContext(
		ctx,
		binary,
		"-i", tailwindInputPath(),
		"-o", tailwindOutputPath(),
		"--config", tailwindConfigPath(),
		"--minify",
	)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build tailwind css: %w", err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", tailwindOutputPath())
	return nil
}

// ensureTailwindDownload fetches url into destination unless an executable
// is already there.
func ensureTailwindDownload(ctx context.Context, url, destination string) error {
	if info, err := os.Stat(destination); err == nil && info.Mode()&0o111 != 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("create bin directory: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("prepare tailwind download request: %w", err)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return fmt.Errorf("download tailwindcss binary: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("download tailwindcss binary: unexpected status %s", response.Status)
	}

	tmpPath := destination + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return fmt.Errorf("create temporary tailwind binary: %w", err)
	}
	if _, err := io.Copy(file, response.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write tailwind binary: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temporary tailwind binary: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0o755); err != nil {
			return fmt.Errorf("mark tailwind binary executable: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destination); err != nil {
		return fmt.Errorf("install tailwind binary: %w", err)
	}
	return nil
}

func tailwindDownloadURL(assetName string) string {
	return fmt.Sprintf("https://github.com/tailwindlabs/tailwindcss/releases/download/%s/%s", tailwindVersion, assetName)
}

func localTailwindBinaryPath() string {
	name := "tailwindcss"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join("bin", name)
}

func tailwindReleaseAssetName(goos, goarch string) (string, error) {
	switch goos + "/" + goarch {
	case "darwin/arm64":
		return "tailwindcss-macos-arm64", nil
	case "darwin/amd64":
		return "tailwindcss-macos-x64", nil
	case "linux/amd64":
		return "tailwindcss-linux-x64", nil
	case "linux/arm64":
		return "tailwindcss-linux-arm64", nil
	case "windows/amd64":
		return "tailwindcss-windows-x64.exe", nil
	case "windows/arm64":
		return "tailwindcss-windows-arm64.exe", nil
	default:
		return "", fmt.Errorf("unsupported platform for automatic tailwind install: %s/%s (pass --tailwind)", goos, goarch)
	}
}

func tailwindInputPath() string {
	return filepath.Join("internal", "clientapp", "assets", "tailwind.input.css")
}

func tailwindOutputPath() string {
	return filepath.Join("internal", "clientapp", "assets", "app.css")
}

func tailwindConfigPath() string {
	return filepath.Join("internal", "clientapp", "tailwind.config.js")
}
