package branchdeskcli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/phillip-england/branchdesk/internal/apiapp"
	"github.com/phillip-england/branchdesk/internal/backup"
	"github.com/phillip-england/branchdesk/internal/session"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("%w: branchdesk user add --username <name> --password <password> --role <role>", ErrUsage)
	},
}

var newUser apiapp.NewUser

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an admin or branch account",
	Long: `Create an account directly in the configured database.

Branch accounts must name an existing branch with --branch-id. The super
admin is managed by ADMIN_USERNAME and ADMIN_PASSWORD instead.`,
	Args: usageArgs(0),
	RunE: runUserAdd,
}

var backupOut string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write an xz-compressed copy of the sqlite database",
	Args:  usageArgs(0),
	RunE:  runBackup,
}

var restoreForce bool

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Replace the sqlite database with a backup archive",
	Args:  usageArgs(1),
	RunE:  runRestore,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import records",
	Args:  usageArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("%w: branchdesk import items <file.xlsx|file.xls>", ErrUsage)
	},
}

var importItemsCmd = &cobra.Command{
	Use:   "items <file>",
	Short: "Import items from an .xlsx or .xls sheet with name, category and price columns",
	Args:  usageArgs(1),
	RunE:  runImportItems,
}

func init() {
	userAddCmd.Flags().StringVar(&newUser.Username, "username", "", "login name")
	userAddCmd.Flags().StringVar(&newUser.Password, "password", "", "password (min 12 chars)")
	userAddCmd.Flags().StringVar(&newUser.Role, "role", session.RoleAdmin, "admin or branch")
	userAddCmd.Flags().Int64Var(&newUser.BranchID, "branch-id", 0, "branch for branch accounts")
	userAddCmd.Flags().StringVar(&newUser.Name, "name", "", "display name (defaults to the username)")
	userAddCmd.Flags().StringVar(&newUser.Email, "email", "", "email address")
	userAddCmd.Flags().StringVar(&newUser.Mobile, "mobile", "", "mobile number")
	userCmd.AddCommand(userAddCmd)

	backupCmd.Flags().StringVarP(&backupOut, "out", "o", "", "archive path (default backups/<db>-<timestamp>.db.xz)")
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "replace an existing database")

	importCmd.AddCommand(importItemsCmd)

	rootCmd.AddCommand(userCmd, backupCmd, restoreCmd, importCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	if newUser.Password == "" {
		return errors.New("--password is required")
	}
	cfg := apiapp.DefaultConfigFromEnv()
	store, err := apiapp.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := apiapp.AddUser(cmd.Context(), store, newUser)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (id %d)\n", session.RoleLabel(newUser.Role), strings.TrimSpace(newUser.Username), id)
	return nil
}

func sqlitePath() (string, error) {
	cfg := apiapp.DefaultConfigFromEnv()
	if !isSQLite(cfg.Driver) {
		return "", fmt.Errorf("backups cover the sqlite driver only (DB_DRIVER=%s)", cfg.Driver)
	}
	return cfg.DBPath, nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	dbPath, err := sqlitePath()
	if err != nil {
		return err
	}
	out := backupOut
	if out == "" {
		out = filepath.Join("backups", backup.DefaultName(dbPath, time.Now()))
	}
	n, err := backup.Create(cmd.Context(), dbPath, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes of database)\n", out, n)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	dbPath, err := sqlitePath()
	if err != nil {
		return err
	}
	n, err := backup.Restore(args[0], dbPath, restoreForce)
	if err != nil {
		if errors.Is(err, backup.ErrExists) {
			return fmt.Errorf("%w (use --force to replace it)", err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %s (%d bytes)\n", dbPath, n)
	return nil
}

func runImportItems(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	cfg := apiapp.DefaultConfigFromEnv()
	store, err := apiapp.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := apiapp.ImportItems(cmd.Context(), store, filepath.Base(args[0]), raw)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Message())
	for _, rowErr := range result.Errors {
		fields := make([]string, 0, len(rowErr.Errors))
		for field := range rowErr.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(out, "  row %d: %s\n", rowErr.Row, strings.Join(rowErr.Errors[field], " "))
		}
	}
	return nil
}
