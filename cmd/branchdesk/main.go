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
			fmt.Fprintln(os.Stderr)
			branchdeskcli.PrintUsage(os.Stderr)
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
