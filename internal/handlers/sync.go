package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tradeboard/internal/indexer"
	"tradeboard/internal/models"

	log "github.com/sirupsen/logrus"
)

// SyncRequest is the POST /sync payload. Full syncs truncate all stores, so
// they require the admin password; the scheduled secret only covers
// incremental runs.
type SyncRequest struct {
	SyncType     string `json:"sync_type" binding:"required"`
	TokenAddress string `json:"token_address"`
	Secret       string `json:"secret"`
	Password     string `json:"password"`
}

// defaultWaitBudget is how long the request waits for the run before handing
// back a 202: the run keeps going server-side and callers poll /status.
const defaultWaitBudget = 25 * time.Second

func waitBudget() time.Duration {
	if v, err := strconv.Atoi(os.Getenv("SYNC_WAIT_SECONDS")); err == nil && v > 0 {
		return time.Duration(v) * time.Second
	}
	return defaultWaitBudget
}

// TriggerSync starts a sync run. Responds 200 with counters when the run
// finishes within the wait budget, 202 when it is still going, 401 on a bad
// credential and 409 when a run is already in progress.
func TriggerSync(c *gin.Context) {
	if os.Getenv("SYNC_ENABLED") == "false" {
		c.JSON(http.StatusForbidden, gin.H{
			"error":         "sync is disabled on this deployment",
			"sync_disabled": true,
		})
		return
	}

	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.SyncType != models.SyncTypeIncremental && req.SyncType != models.SyncTypeFull {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sync_type must be incremental or full"})
		return
	}

	initiator, ok := authorize(req)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid sync credential",
			"requires_password": req.SyncType == models.SyncTypeFull,
		})
		return
	}

	params := indexer.Params{
		Initiator:    initiator,
		SyncType:     req.SyncType,
		TokenAddress: req.TokenAddress,
	}

	type outcome struct {
		result *indexer.RunResult
		err    error
	}
	done := make(chan outcome, 1)

	// The run is detached from the request context: an abandoned request
	// must not cancel a half-finished ingestion.
	go func() {
		result, err := orchestrator.Run(context.Background(), params)
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, indexer.ErrAlreadyRunning) {
				c.JSON(http.StatusConflict, gin.H{"error": out.err.Error()})
				return
			}
			log.Errorf("Sync run failed: %v", out.err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": out.err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id":          out.result.RunID,
			"swaps_processed": out.result.SwapsProcessed,
			"wallets_found":   out.result.WalletsFound,
			"pages":           out.result.Pages,
			"calls":           out.result.Calls,
			"duration_ms":     out.result.Duration.Milliseconds(),
		})
	case <-time.After(waitBudget()):
		// Likely still running; the caller polls /status for the rest.
		snap := sink.Snapshot()
		c.JSON(http.StatusAccepted, gin.H{
			"status":   "running",
			"run_id":   snap.RunID,
			"progress": snap.Progress,
		})
	}
}

// authorize validates the trigger credential and names the initiator.
// Manual (password) triggers may do anything; the scheduled secret is limited
// to incremental syncs because full mode truncates stores.
func authorize(req SyncRequest) (string, bool) {
	password := os.Getenv("SYNC_PASSWORD")
	secret := os.Getenv("SYNC_SECRET")

	if password != "" && req.Password == password {
		return "manual", true
	}
	if req.SyncType == models.SyncTypeIncremental && secret != "" && req.Secret == secret {
		return "scheduled", true
	}
	return "", false
}
