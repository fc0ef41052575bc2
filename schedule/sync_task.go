package main

import (
	"context"
	"errors"
	"os"

	"github.com/robfig/cron/v3"

	"tradeboard/internal/bootstrap"
	"tradeboard/internal/indexer"
	"tradeboard/internal/models"
	"tradeboard/pkg/config"

	log "github.com/sirupsen/logrus"
)

// Scheduled incremental syncs. Full syncs are never scheduled: truncation
// stays behind the manual password.
func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	config.InitDB()

	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer config.RabbitMQ.Close()
	}

	orc, _, _ := bootstrap.BuildOrchestrator()

	spec := os.Getenv("SYNC_CRON")
	if spec == "" {
		spec = "@every 6h"
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		log.Info("> Starting scheduled incremental sync")

		result, err := orc.Run(context.Background(), indexer.Params{
			Initiator: "scheduled",
			SyncType:  models.SyncTypeIncremental,
		})
		if err != nil {
			if errors.Is(err, indexer.ErrAlreadyRunning) {
				log.Warn("> Previous sync still running, skipping this tick")
				return
			}
			log.Errorf("> Scheduled sync failed: %v", err)
			return
		}

		log.Infof("> Scheduled sync done: %d swaps, %d wallets, %d pages",
			result.SwapsProcessed, result.WalletsFound, result.Pages)
	})
	if err != nil {
		log.Fatalf("Invalid SYNC_CRON %q: %v", spec, err)
	}

	log.Infof("Sync scheduler started with spec %q", spec)
	c.Run()
}
