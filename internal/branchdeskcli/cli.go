// Package branchdeskcli is the branchdesk command tree: first-time setup,
// running the servers and console, and the operator chores (accounts,
// backups, imports, assets).
package branchdeskcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/phillip-england/branchdesk/internal/envutil"
	"github.com/spf13/cobra"
)

var ErrUsage = errors.New("usage")

var configPath string

var rootCmd = &cobra.Command{
	Use:   "branchdesk",
	Short: "Branch, employee and item administration",
	Long: `branchdesk runs the REST API, the web client and the terminal console
for managing branches, employees, designations and items.

Settings come from the environment, then .env, then an optional yaml file
given with --config. Values already in the environment always win.`,
	Args:              usageArgs(0),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		return usageError()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "yaml config file (e.g. branchdesk.yaml)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the command named by args. Interrupts cancel the context
// handed to long-running commands.
func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func PrintUsage(w io.Writer) {
	rootCmd.SetOut(w)
	defer rootCmd.SetOut(nil)
	_ = rootCmd.Usage()
}

func usageError() error {
	return fmt.Errorf("%w: branchdesk <setup|run|console|user|backup|restore|import|assets|config> [...]", ErrUsage)
}

func usageArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s", ErrUsage, cmd.UseLine())
		}
		return nil
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	if configPath == "" {
		return nil
	}
	if _, err := os.Stat(configPath); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if err := envutil.LoadYAML(configPath); err != nil {
		return fmt.Errorf("load %s: %w", configPath, err)
	}
	return nil
}

func isSQLite(driver string) bool {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return true
	}
	return false
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
