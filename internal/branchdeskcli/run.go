package branchdeskcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/phillip-england/branchdesk/internal/apiapp"
	"github.com/phillip-england/branchdesk/internal/clientapp"
	"github.com/phillip-england/branchdesk/internal/console"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the API, the web client or both",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("%w: branchdesk run api|client|all", ErrUsage)
	},
}

var runAPICmd = &cobra.Command{
	Use:   "api",
	Short: "Run the REST API",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAPI(cmd.Context())
	},
}

var runClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Run the web client",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClient(cmd.Context())
	},
}

var runAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the API and the web client together",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAll(cmd.Context())
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the terminal console against API_BASE_URL",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := console.Run(cmd.Context(), console.DefaultConfigFromEnv()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	runCmd.AddCommand(runAPICmd, runClientCmd, runAllCmd)
	rootCmd.AddCommand(runCmd, consoleCmd)
}

func runAPI(ctx context.Context) error {
	cfg := apiapp.DefaultConfigFromEnv()
	if isSQLite(cfg.Driver) {
		if err := ensureParentDirs(cfg.DBPath); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return err
	}
	if err := apiapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runClient(ctx context.Context) error {
	cfg := clientapp.DefaultConfigFromEnv()
	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runAll starts the client half a second after the API and returns the
// first failure of either.
func runAll(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() { errCh <- runAPI(ctx) }()
	go func() {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-ctx.Done():
		}
		errCh <- runClient(ctx)
	}()

	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}
