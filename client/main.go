// Command client serves only the branchdesk web client, for hosts where the
// API runs elsewhere. Point API_BASE_URL at it.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/phillip-england/branchdesk/internal/clientapp"
	"github.com/phillip-england/branchdesk/internal/envutil"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load")
	configFile := flag.String("config", "", "yaml config file")
	flag.Parse()

	if err := envutil.LoadDotEnv(*envFile); err != nil {
		log.Fatalf("load %s: %v", *envFile, err)
	}
	if *configFile != "" {
		if err := envutil.LoadYAML(*configFile); err != nil {
			log.Fatalf("load %s: %v", *configFile, err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := clientapp.DefaultConfigFromEnv()
	log.Printf("client using api at %s", cfg.APIBaseURL)
	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
