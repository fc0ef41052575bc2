package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"tradeboard/internal/bootstrap"
	"tradeboard/internal/indexer"
	"tradeboard/internal/models"
	"tradeboard/pkg/config"

	logrus "github.com/sirupsen/logrus"
)

// SyncRequestMessage is the payload consumed from the sync_requests queue.
type SyncRequestMessage struct {
	SyncType     string `json:"sync_type"`
	TokenAddress string `json:"token_address"`
	Initiator    string `json:"initiator"`
}

const syncRequestsQueue = "sync_requests"

func main() {
	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	orc, _, _ := bootstrap.BuildOrchestrator()

	// Create consumer for sync request queue
	msgConsumer, err := config.NewConsumer(syncRequestsQueue)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	logrus.Info("Sync worker started, waiting for messages...")

	// Start consuming messages
	err = msgConsumer.Consume(func(msg []byte) error {
		var req SyncRequestMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			logrus.Errorf("Failed to unmarshal sync request: %v", err)
			return err
		}

		if req.SyncType == "" {
			req.SyncType = models.SyncTypeIncremental
		}
		if req.Initiator == "" {
			req.Initiator = "queue"
		}

		logrus.WithFields(logrus.Fields{
			"sync_type":     req.SyncType,
			"token_address": req.TokenAddress,
			"initiator":     req.Initiator,
		}).Info("Received sync request")

		result, err := orc.Run(context.Background(), indexer.Params{
			Initiator:    req.Initiator,
			SyncType:     req.SyncType,
			TokenAddress: req.TokenAddress,
		})
		if err != nil {
			// A rejected duplicate trigger must not be requeued forever.
			if errors.Is(err, indexer.ErrAlreadyRunning) {
				logrus.Warn("Sync already in progress, dropping request")
				return nil
			}
			logrus.Errorf("Sync run failed: %v", err)
			return err
		}

		logrus.WithFields(logrus.Fields{
			"run_id":          result.RunID,
			"swaps_processed": result.SwapsProcessed,
			"wallets_found":   result.WalletsFound,
			"pages":           result.Pages,
			"calls":           result.Calls,
			"duration_ms":     result.Duration.Milliseconds(),
		}).Info("Sync run completed")
		return nil
	})

	if err != nil {
		log.Fatal("Failed to start consumer: ", err)
	}
}
