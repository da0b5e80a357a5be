package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/phillip-england/branchdesk/internal/branchdeskcli"
)

func main() {
	if err := branchdeskcli.Execute(os.Args[1:]); err != nil {
		if errors.Is(err, branchdeskcli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "usage: branchdesk setup --admin-password <password> [--admin-username admin] [--force]")
			fmt.Fprintln(os.Stderr, "       branchdesk run api|client|all")
			fmt.Fprintln(os.Stderr, "       branchdesk console")
			fmt.Fprintln(os.Stderr, "       branchdesk user add --username <name> --password <password> --role admin|branch [--branch-id N]")
			fmt.Fprintln(os.Stderr, "       branchdesk backup [--out file.db.xz] | restore <file.db.xz> [--force]")
			fmt.Fprintln(os.Stderr, "       branchdesk import items <file.xlsx>")
			fmt.Fprintln(os.Stderr, "       branchdesk assets build | config show")
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
