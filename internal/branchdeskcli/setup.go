package branchdeskcli

import (
	"errors"
	"fmt"

	"github.com/phillip-england/branchdesk/internal/envutil"
	"github.com/phillip-england/branchdesk/internal/security"
	"github.com/spf13/cobra"
)

var (
	setupAdminUser string
	setupAdminPass string
	setupEnvPath   string
	setupDriver    string
	setupDBPath    string
	setupForce     bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write a .env with the super admin account and default addresses",
	Args:  usageArgs(0),
	RunE:  runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&setupAdminUser, "admin-username", "admin", "initial super admin username")
	setupCmd.Flags().StringVar(&setupAdminPass, "admin-password", "", "initial super admin password (min 12 chars)")
	setupCmd.Flags().StringVar(&setupEnvPath, "env-file", ".env", "path to .env file")
	setupCmd.Flags().StringVar(&setupDriver, "db-driver", "sqlite", "database driver: sqlite, mysql or memory")
	setupCmd.Flags().StringVar(&setupDBPath, "db-path", "data/branchdesk.db", "sqlite database file")
	setupCmd.Flags().BoolVarP(&setupForce, "force", "f", false, "overwrite existing env file")

	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	if setupAdminPass == "" {
		return errors.New("--admin-password is required")
	}
	if _, err := security.HashPassword(setupAdminPass); err != nil {
		return fmt.Errorf("invalid admin password: %w", err)
	}
	switch setupDriver {
	case "sqlite", "mysql", "memory":
	default:
		return fmt.Errorf("unknown --db-driver %q (want sqlite, mysql or memory)", setupDriver)
	}

	values := map[string]string{
		"ADMIN_USERNAME": setupAdminUser,
		"ADMIN_PASSWORD": setupAdminPass,
		"DB_DRIVER":      setupDriver,
		"AUTH_DB_PATH":   setupDBPath,
		"UPLOAD_DIR":     "uploads",
		"API_ADDR":       ":8080",
		"CLIENT_ADDR":    ":3000",
		"API_BASE_URL":   "http://localhost:8080",
	}
	if setupDriver == "mysql" {
		values["MYSQL_DSN"] = "branchdesk:branchdesk@tcp(127.0.0.1:3306)/branchdesk?charset=utf8mb4&parseTime=True"
	}

	if err := envutil.WriteDotEnv(setupEnvPath, values, setupForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", setupEnvPath)
	return nil
}
