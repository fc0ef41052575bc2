package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradeboard/internal/holders"
	"tradeboard/internal/models"
	"tradeboard/internal/store"
	"tradeboard/pkg/dexfeed"

	log "github.com/sirupsen/logrus"
)

// SwapSource is the external swap feed surface the orchestrator needs.
// *dexfeed.Client satisfies it.
type SwapSource interface {
	FetchSwaps(ctx context.Context, token string, opts *dexfeed.SwapQueryOptions, onPage dexfeed.PageFunc) ([]dexfeed.RawSwap, error)
	Ping(ctx context.Context) bool
}

// TradeSink is the persistence surface. *store.Store satisfies it.
// InsertTrades returns only the rows it actually wrote; CreateRun returns an
// error wrapping store.ErrRunActive when another process already holds a
// running row.
type TradeSink interface {
	InsertTrades(trades []models.Trade) ([]models.Trade, error)
	UpsertWallet(address string, syncedAt time.Time) error
	TruncateAll() error
	EnabledTokens() ([]models.TokenConfig, error)
	TokenByAddress(address string) (*models.TokenConfig, error)
	CreateRun(initiator, syncType string) (*models.IndexerRun, error)
	CompleteRun(run *models.IndexerRun) error
	LastSuccessfulRun() (*models.IndexerRun, error)
	InsertHolderSnapshots(snapshots []models.HolderSnapshot) error
}

// TradeFolder folds persisted trades into positions. *ledger.Ledger satisfies it.
type TradeFolder interface {
	FoldTrades(trades []models.Trade, decimals int32) error
}

// HolderDiscoverer runs holder discovery. *holders.Discoverer satisfies it.
type HolderDiscoverer interface {
	Discover(ctx context.Context, token string) holders.Result
}

// StatusSink receives ephemeral progress and log lines. *status.Sink satisfies it.
type StatusSink interface {
	Reset(runID uint)
	SetProgress(p float64)
	Finish(succeeded bool)
	UpdateWorker(name string, progress float64, task string)
	AddCounter(name, counter string, delta int)
	Log(level, message string)
}

// EventPublisher pushes run lifecycle events to the message bus.
// *config.Publisher satisfies it.
type EventPublisher interface {
	Publish(queueName string, message interface{}) error
}

// SyncEventsQueue receives run lifecycle messages for external consumers.
const SyncEventsQueue = "sync_events"

// Params select what one run does.
type Params struct {
	Initiator    string
	SyncType     string // incremental | full
	TokenAddress string // empty means all enabled tokens
}

// RunResult is the success payload of a completed run.
type RunResult struct {
	RunID          uint          `json:"run_id"`
	SwapsProcessed int           `json:"swaps_processed"`
	WalletsFound   int           `json:"wallets_found"`
	Pages          int           `json:"pages"`
	Calls          int           `json:"calls"`
	Duration       time.Duration `json:"duration"`
}

// lifecycleEvent is the message published on run start and completion.
type lifecycleEvent struct {
	RunID     uint   `json:"run_id"`
	Status    string `json:"status"`
	SyncType  string `json:"sync_type"`
	Initiator string `json:"initiator"`
	Error     string `json:"error,omitempty"`
}

// Orchestrator sequences swap ingestion, ledger folding and holder discovery
// for one run at a time.
type Orchestrator struct {
	feed       SwapSource
	store      TradeSink
	ledger     TradeFolder
	discoverer HolderDiscoverer
	sink       StatusSink
	publisher  EventPublisher // optional
	registry   *Registry
	weights    Weights

	// tokenWorkers bounds parallel per-token syncs. 1 keeps the historical
	// sequential behavior; raising it must respect feed rate limits.
	tokenWorkers int
}

// Options for creating an Orchestrator.
type Options struct {
	Feed         SwapSource
	Store        TradeSink
	Ledger       TradeFolder
	Discoverer   HolderDiscoverer
	Sink         StatusSink
	Publisher    EventPublisher
	Weights      Weights
	TokenWorkers int
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	weights := opts.Weights
	if !weights.valid() {
		weights = DefaultWeights()
	}
	workers := opts.TokenWorkers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		feed:         opts.Feed,
		store:        opts.Store,
		ledger:       opts.Ledger,
		discoverer:   opts.Discoverer,
		sink:         opts.Sink,
		publisher:    opts.Publisher,
		registry:     &Registry{},
		weights:      weights,
		tokenWorkers: workers,
	}
}

// Running reports whether a run currently holds the registry.
func (o *Orchestrator) Running() bool {
	return o.registry.Active()
}

// tokenOutcome carries one token's ingestion counters back to the run.
type tokenOutcome struct {
	pages    int
	calls    int
	inserted int
	wallets  map[string]struct{}
}

// Run executes one sync: swap ingestion (fetch, persist, fold) for every
// selected token, then best-effort holder discovery. Any ingestion error
// aborts the run before discovery: PnL needs the complete trade history for
// the window. The IndexerRun row always reaches a terminal state.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*RunResult, error) {
	token, err := o.registry.Acquire()
	if err != nil {
		return nil, err
	}
	defer o.registry.Release(token)

	started := time.Now()

	run, err := o.store.CreateRun(params.Initiator, params.SyncType)
	if err != nil {
		// Another process (api, worker, scheduler) may hold the running row.
		if errors.Is(err, store.ErrRunActive) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("failed to open run record: %w", err)
	}

	o.sink.Reset(run.ID)
	o.sink.Log("info", fmt.Sprintf("Sync run %d started (%s, initiator=%s)", run.ID, params.SyncType, params.Initiator))
	o.publishEvent(lifecycleEvent{RunID: run.ID, Status: models.RunStatusRunning, SyncType: params.SyncType, Initiator: params.Initiator})

	// Progress events are consumed off a channel so reporting cadence is
	// decoupled from fetch control flow.
	events := make(chan ProgressEvent, 64)
	var consumerWG sync.WaitGroup
	consumerWG.Add(1)
	go func() {
		defer consumerWG.Done()
		for ev := range events {
			o.sink.SetProgress(ev.Overall)
			if ev.Worker != "" {
				o.sink.UpdateWorker(ev.Worker, ev.Overall, ev.Task)
			}
		}
	}()

	result, runErr := o.execute(ctx, run, params, events)
	close(events)
	consumerWG.Wait()

	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = runErr.Error()
		o.sink.Log("error", runErr.Error())
	} else {
		run.Status = models.RunStatusSucceeded
	}

	if err := o.store.CompleteRun(run); err != nil {
		// The run already happened; losing the audit update must not mask
		// the run outcome.
		log.Errorf("Failed to finalize run %d: %v", run.ID, err)
		o.sink.Log("error", fmt.Sprintf("Failed to finalize run %d: %v", run.ID, err))
	}

	o.sink.Finish(runErr == nil)
	o.publishEvent(lifecycleEvent{
		RunID: run.ID, Status: run.Status, SyncType: params.SyncType,
		Initiator: params.Initiator, Error: run.ErrorMessage,
	})

	if runErr != nil {
		return nil, runErr
	}

	result.RunID = run.ID
	result.Duration = time.Since(started)
	o.sink.Log("success", fmt.Sprintf("Sync run %d succeeded: %d swaps, %d wallets, %d pages",
		run.ID, result.SwapsProcessed, result.WalletsFound, result.Pages))
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *models.IndexerRun, params Params, events chan<- ProgressEvent) (*RunResult, error) {
	if !o.feed.Ping(ctx) {
		return nil, fmt.Errorf("swap feed is unreachable")
	}

	if params.SyncType == models.SyncTypeFull {
		o.sink.Log("warn", "Full sync requested: truncating trades, positions and wallets")
		if err := o.store.TruncateAll(); err != nil {
			return nil, err
		}
	}

	tokens, err := o.selectTokens(params)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no enabled tokens to sync")
	}
	run.TokensScanned = len(tokens)

	opts := &dexfeed.SwapQueryOptions{}
	if params.SyncType == models.SyncTypeIncremental {
		last, err := o.store.LastSuccessfulRun()
		switch {
		case err != nil:
			o.sink.Log("warn", fmt.Sprintf("No previous successful run to anchor on, fetching the full window: %v", err))
		case last != nil:
			from := last.StartedAt.Unix()
			opts.FromTime = &from
		}
	}

	outcomes, err := o.ingestTokens(ctx, tokens, opts, events)
	if err != nil {
		return nil, err
	}

	result := &RunResult{}
	wallets := make(map[string]struct{})
	for _, out := range outcomes {
		result.Pages += out.pages
		result.Calls += out.calls
		result.SwapsProcessed += out.inserted
		for w := range out.wallets {
			wallets[w] = struct{}{}
		}
	}

	// Holder discovery: best-effort, never fails the run.
	for i, tc := range tokens {
		discovered := o.discoverToken(ctx, tc)
		result.Calls += 2
		for w := range discovered {
			wallets[w] = struct{}{}
		}
		events <- ProgressEvent{
			Worker:  "holder-discovery",
			Task:    fmt.Sprintf("token %s", tc.Address),
			Overall: o.weights.Discovery(i+1, len(tokens)),
		}
	}

	now := time.Now().UTC()
	for w := range wallets {
		if err := o.store.UpsertWallet(w, now); err != nil {
			return nil, err
		}
	}

	result.WalletsFound = len(wallets)
	run.PagesFetched = result.Pages
	run.ApiCalls = result.Calls
	run.SwapsProcessed = result.SwapsProcessed
	run.WalletsFound = result.WalletsFound
	return result, nil
}

func (o *Orchestrator) selectTokens(params Params) ([]models.TokenConfig, error) {
	if params.TokenAddress != "" {
		tc, err := o.store.TokenByAddress(params.TokenAddress)
		if err != nil {
			return nil, err
		}
		return []models.TokenConfig{*tc}, nil
	}
	return o.store.EnabledTokens()
}

// ingestTokens runs fetch+persist+fold per token through a bounded worker
// pool. The first error cancels the remaining tokens and aborts ingestion.
func (o *Orchestrator) ingestTokens(ctx context.Context, tokens []models.TokenConfig, opts *dexfeed.SwapQueryOptions, events chan<- ProgressEvent) ([]*tokenOutcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, o.tokenWorkers)
	outcomes := make([]*tokenOutcome, len(tokens))
	errs := make(chan error, len(tokens))

	var wg sync.WaitGroup
	for i, tc := range tokens {
		wg.Add(1)
		go func(idx int, tc models.TokenConfig) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}

			out, err := o.ingestToken(ctx, idx, len(tokens), tc, opts, events)
			if err != nil {
				errs <- fmt.Errorf("token %s: %w", tc.Address, err)
				cancel()
				return
			}
			outcomes[idx] = out
		}(i, tc)
	}
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}

	return outcomes, nil
}

// ingestToken is the per-token pipeline: fetch pages, normalize, persist
// idempotently, fold into positions.
func (o *Orchestrator) ingestToken(ctx context.Context, idx, total int, tc models.TokenConfig, opts *dexfeed.SwapQueryOptions, events chan<- ProgressEvent) (*tokenOutcome, error) {
	worker := fmt.Sprintf("sync-%s", tc.Symbol)
	out := &tokenOutcome{wallets: make(map[string]struct{})}

	raws, err := o.feed.FetchSwaps(ctx, tc.Address, opts, func(pageIndex, cumulative int) {
		out.pages = pageIndex + 1
		events <- ProgressEvent{
			Worker:  worker,
			Task:    fmt.Sprintf("fetching page %d (%d swaps)", pageIndex, cumulative),
			Overall: o.weights.Ingestion(idx, total, pageFraction(pageIndex), 0),
		}
	})
	if err != nil {
		return nil, err
	}
	out.calls = out.pages
	if out.pages == 0 {
		out.calls = 1 // the empty first page still cost a request
	}
	events <- ProgressEvent{
		Worker:  worker,
		Task:    fmt.Sprintf("fetched %d swaps", len(raws)),
		Overall: o.weights.Ingestion(idx, total, 1, 0),
	}

	trades := make([]models.Trade, 0, len(raws))
	for _, raw := range raws {
		trade, err := dexfeed.Normalize(raw, tc.Address, int32(tc.Decimals))
		if err != nil {
			// Malformed records are dropped, not fatal.
			o.sink.Log("warn", fmt.Sprintf("Dropping swap %s: %v", raw.TxHash, err))
			continue
		}
		trades = append(trades, trade)
		out.wallets[trade.Wallet] = struct{}{}
	}

	inserted, err := o.store.InsertTrades(trades)
	if err != nil {
		return nil, err
	}
	out.inserted = len(inserted)
	events <- ProgressEvent{
		Worker:  worker,
		Task:    fmt.Sprintf("persisted %d new trades", len(inserted)),
		Overall: o.weights.Ingestion(idx, total, 1, 0.5),
	}

	// Fold only the trades this run actually wrote. Incremental windows
	// overlap the previous run on purpose; re-folding already-applied trades
	// would double-count the position.
	if err := o.ledger.FoldTrades(inserted, int32(tc.Decimals)); err != nil {
		return nil, err
	}
	events <- ProgressEvent{
		Worker:  worker,
		Task:    "positions folded",
		Overall: o.weights.Ingestion(idx, total, 1, 1),
	}

	return out, nil
}

// discoverToken runs holder discovery for one token and persists the audit
// snapshot. Failures degrade to empty sets inside the discoverer.
func (o *Orchestrator) discoverToken(ctx context.Context, tc models.TokenConfig) map[string]struct{} {
	wallets := make(map[string]struct{})
	if o.discoverer == nil {
		return wallets
	}

	res := o.discoverer.Discover(ctx, tc.Address)
	o.sink.Log("info", fmt.Sprintf("Discovered %d holders for %s (%d via transfers, %d via API)",
		len(res.All), tc.Symbol, len(res.TransferBased), len(res.APIBased)))

	now := time.Now().UTC()
	snapshots := make([]models.HolderSnapshot, 0, len(res.TransferBased)+len(res.APIBased))
	for _, w := range res.TransferBased {
		snapshots = append(snapshots, models.HolderSnapshot{Token: tc.Address, Wallet: w, Source: models.HolderSourceTransfers, CapturedAt: now})
	}
	for _, w := range res.APIBased {
		snapshots = append(snapshots, models.HolderSnapshot{Token: tc.Address, Wallet: w, Source: models.HolderSourceAPI, CapturedAt: now})
	}
	if err := o.store.InsertHolderSnapshots(snapshots); err != nil {
		o.sink.Log("warn", fmt.Sprintf("Failed to persist holder snapshots for %s: %v", tc.Symbol, err))
	}

	for _, w := range res.All {
		wallets[w] = struct{}{}
	}
	return wallets
}

func (o *Orchestrator) publishEvent(ev lifecycleEvent) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(SyncEventsQueue, ev); err != nil {
		log.Warnf("Failed to publish sync event for run %d: %v", ev.RunID, err)
	}
}

// pageFraction estimates fetch completion while the page count is unknown.
// It approaches 1 but only reaches it when fetching finishes.
func pageFraction(pageIndex int) float64 {
	return float64(pageIndex+1) / float64(pageIndex+2)
}
