package bootstrap

import (
	"os"
	"strconv"

	"tradeboard/internal/holders"
	"tradeboard/internal/indexer"
	"tradeboard/internal/ledger"
	"tradeboard/internal/status"
	"tradeboard/internal/store"
	"tradeboard/pkg/config"
	"tradeboard/pkg/dexfeed"
	"tradeboard/pkg/evm"

	log "github.com/sirupsen/logrus"
)

// BuildOrchestrator wires the sync pipeline from environment configuration.
// Shared by the API server, the worker and the cron scheduler so all three
// run the identical pipeline.
func BuildOrchestrator() (*indexer.Orchestrator, *status.Sink, *store.Store) {
	feed := dexfeed.NewClient(os.Getenv("FEED_API_KEY"))
	if u := os.Getenv("FEED_BASE_URL"); u != "" {
		feed.SetBaseURL(u)
	}

	str := store.New(config.DB)
	led := ledger.New(config.DB)

	var transfers holders.TransferSource
	if rpcURL := os.Getenv("EVM_RPC_URL"); rpcURL != "" {
		scanner, err := evm.NewScanner(rpcURL)
		if err != nil {
			log.Warnf("EVM RPC unavailable, holder discovery degrades to API only: %v", err)
		} else {
			if blocks, err := strconv.ParseUint(os.Getenv("HOLDER_SCAN_BLOCKS"), 10, 64); err == nil {
				scanner.SetScanWindow(blocks)
			}
			transfers = scanner
		}
	}
	discoverer := holders.New(transfers, feed)

	sink := status.NewSink(status.DefaultLogCapacity)

	var publisher indexer.EventPublisher
	if config.RabbitMQ != nil {
		p, err := config.NewPublisher()
		if err != nil {
			log.Warnf("Failed to create sync event publisher: %v", err)
		} else {
			publisher = p
		}
	}

	workers, _ := strconv.Atoi(os.Getenv("SYNC_TOKEN_WORKERS"))

	orc := indexer.New(indexer.Options{
		Feed:         feed,
		Store:        str,
		Ledger:       led,
		Discoverer:   discoverer,
		Sink:         sink,
		Publisher:    publisher,
		Weights:      indexer.WeightsFromEnv(),
		TokenWorkers: workers,
	})
	return orc, sink, str
}
