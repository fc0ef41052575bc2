package handlers

import (
	"tradeboard/internal/indexer"
	"tradeboard/internal/status"
	"tradeboard/internal/store"
)

var (
	orchestrator *indexer.Orchestrator
	sink         *status.Sink
	tradeStore   *store.Store
)

// Setup wires the handler package to its collaborators. Called once from main
// before the router starts serving.
func Setup(orc *indexer.Orchestrator, s *status.Sink, str *store.Store) {
	orchestrator = orc
	sink = s
	tradeStore = str
}
