package holders

import (
	"context"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// TransferSource derives holders from on-chain transfer logs.
type TransferSource interface {
	HolderAddresses(ctx context.Context, token string, fromBlock, toBlock uint64) ([]string, error)
}

// APISource returns the external feed's holder list.
type APISource interface {
	FetchHolders(ctx context.Context, token string) ([]string, error)
}

// Result keeps the per-strategy sets alongside the union so divergence
// between the two can be audited.
type Result struct {
	TransferBased []string
	APIBased      []string
	All           []string
}

// Discoverer runs both holder strategies for a token.
type Discoverer struct {
	transfers TransferSource
	api       APISource
}

// New creates a Discoverer. Either source may be nil; a nil source simply
// contributes an empty set.
func New(transfers TransferSource, api APISource) *Discoverer {
	return &Discoverer{transfers: transfers, api: api}
}

// Discover runs the transfer scan and the holder API concurrently and unions
// the results. Discovery is best-effort: a failed strategy degrades to an
// empty set with a warning instead of failing the caller.
func (d *Discoverer) Discover(ctx context.Context, token string) Result {
	var result Result
	var wg sync.WaitGroup

	if d.transfers != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addrs, err := d.transfers.HolderAddresses(ctx, token, 0, 0)
			if err != nil {
				log.Warnf("Transfer-based holder scan failed for token %s: %v", token, err)
				return
			}
			result.TransferBased = normalize(addrs)
		}()
	}

	if d.api != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addrs, err := d.api.FetchHolders(ctx, token)
			if err != nil {
				log.Warnf("API-based holder lookup failed for token %s: %v", token, err)
				return
			}
			result.APIBased = normalize(addrs)
		}()
	}

	wg.Wait()

	result.All = union(result.TransferBased, result.APIBased)
	return result
}

func normalize(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	seen := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		lower := strings.ToLower(strings.TrimSpace(a))
		if lower == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	sort.Strings(out)
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, addr := range a {
		seen[addr] = struct{}{}
	}
	for _, addr := range b {
		seen[addr] = struct{}{}
	}
	all := make([]string, 0, len(seen))
	for addr := range seen {
		all = append(all, addr)
	}
	sort.Strings(all)
	return all
}
