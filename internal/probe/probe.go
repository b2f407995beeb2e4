// Package probe verifies that poster URLs are reachable. Probing is an
// upstream verification step: it runs through a bounded worker pool with a
// per-probe timeout and feeds the composer's verified-image input, never
// inline with scoring.
package probe

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/reelindex/catalog-trust/internal/config"
	"github.com/reelindex/catalog-trust/internal/model"
)

// Prober checks URL reachability with bounded concurrency and rate limiting.
type Prober struct {
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	timeout     time.Duration
}

// New creates a Prober. A nil client gets a default http.Client.
func New(cfg config.ProbeConfig, client *http.Client) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 4
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(rps), concurrency),
		concurrency: concurrency,
		timeout:     timeout,
	}
}

// VerifyPosters probes each subject's poster URL and returns subject id →
// reachable. Subjects without a poster URL are skipped. Probe failures mark
// the poster unverified; they never fail the batch.
func (p *Prober) VerifyPosters(ctx context.Context, subjects []model.Subject) map[string]bool {
	results := make(map[string]bool, len(subjects))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, subj := range subjects {
		if subj.PosterURL == "" {
			continue
		}
		subj := subj
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				return nil //nolint:nilerr // cancellation ends the pool quietly
			}
			ok := p.reachable(gctx, subj.PosterURL)
			mu.Lock()
			results[subj.ID] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// reachable issues a HEAD request with the per-probe timeout.
func (p *Prober) reachable(ctx context.Context, url string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		zap.L().Debug("probe: poster unreachable",
			zap.String("url", url),
			zap.Error(err),
		)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
