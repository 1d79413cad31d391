// Command seed writes the default gateway settings into the settings store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/sorenhq/llmgate/internal/cli"
	"github.com/sorenhq/llmgate/internal/config"
	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/store"
	"github.com/sorenhq/llmgate/internal/store/sqlite"
)

func main() {
	enable := flag.Bool("enable", false, "mark the gateway enabled")
	port := flag.Int("port", 0, "override the listen port")
	force := flag.Bool("force", false, "overwrite existing settings")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	repo, err := sqlite.NewSettingsStorage(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to open settings store: %v", err)
	}
	defer func() {
		_ = repo.Close()
	}()

	ctx := context.Background()

	if !*force {
		if _, exists, err := repo.Get(ctx, domain.SettingsKey); err != nil {
			log.Fatalf("failed to read settings: %v", err)
		} else if exists {
			fmt.Printf("%s settings already present, use -force to overwrite\n", cli.CrossMark())
			return
		}
	}

	settings := domain.DefaultSettings()
	settings.Enabled = *enable
	if *port > 0 {
		settings.Port = *port
	}

	if err := store.SaveGatewaySettings(ctx, repo, settings); err != nil {
		log.Fatalf("failed to save settings: %v", err)
	}

	fmt.Printf("%s seeded default settings (%d providers, port %d, enabled=%v)\n",
		cli.CheckMark(), len(settings.Providers), settings.Port, settings.Enabled)
	cli.PrettyPrint(settings)
}
