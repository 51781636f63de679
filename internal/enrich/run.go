package enrich

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weijianneo/find-house/internal/model"
	"github.com/weijianneo/find-house/internal/resilience"
)

// Summary counts outcomes for one Run.
type Summary struct {
	RunID       string `json:"run_id"`
	Total       int    `json:"total"`
	Recorded    int    `json:"recorded"`
	Existing    int    `json:"existing"`
	NoGeocode   int    `json:"no_geocode"`
	NoWalkRoute int    `json:"no_walk_route"`
	NoWorkRoute int    `json:"no_work_route"`
	Duplicate   int    `json:"duplicate"`
	Failed      int    `json:"failed"`

	GeocodeCalls     int     `json:"geocode_calls"`
	RouteCalls       int     `json:"route_calls"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Processed is the number of addresses that reached an outcome.
func (s *Summary) Processed() int {
	return s.Recorded + s.Existing + s.NoGeocode + s.NoWalkRoute + s.NoWorkRoute + s.Duplicate + s.Failed
}

func (s *Summary) add(o Outcome) {
	switch o {
	case OutcomeRecorded:
		s.Recorded++
	case OutcomeExisting:
		s.Existing++
	case OutcomeNoGeocode:
		s.NoGeocode++
	case OutcomeNoWalkRoute:
		s.NoWalkRoute++
	case OutcomeNoWorkRoute:
		s.NoWorkRoute++
	case OutcomeDuplicate:
		s.Duplicate++
	default:
		s.Failed++
	}
}

// Run processes every distinct address on the worker pool. A failing or
// panicking address is logged and counted; it does not stop the others.
// Run returns an error only when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, addresses []string) (*Summary, error) {
	addrs := model.DedupAddresses(addresses)
	summary := &Summary{RunID: uuid.NewString(), Total: len(addrs)}

	log := zap.L().With(zap.String("run_id", summary.RunID))
	log.Info("enrich: starting run",
		zap.Int("addresses", len(addrs)),
		zap.Int("workers", p.cfg.Workers),
	)

	progress := NewProgress(len(addrs), p.cfg.ProgressInterval)
	geocodesBefore, routesBefore := p.geocodes.Load(), p.routes.Load()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	var mu sync.Mutex
	record := func(o Outcome) {
		mu.Lock()
		summary.add(o)
		mu.Unlock()
		progress.Inc()
	}

	for _, addr := range addrs {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("enrich: worker panic",
						zap.String("address", addr),
						zap.String("panic", fmt.Sprint(r)),
					)
					record(OutcomeFailed)
				}
			}()

			outcome, err := p.Process(gCtx, addr)
			if err != nil {
				log.Warn("enrich: address failed",
					zap.String("address", addr),
					zap.String("error_class", resilience.Classify(err)),
					zap.Error(err),
				)
			}
			record(outcome)
			return nil // don't abort the batch on individual failure
		})
	}

	_ = g.Wait()
	progress.Stop()

	summary.GeocodeCalls = int(p.geocodes.Load() - geocodesBefore)
	summary.RouteCalls = int(p.routes.Load() - routesBefore)
	summary.EstimatedCostUSD = p.costCalc.Run(summary.GeocodeCalls, summary.RouteCalls)

	log.Info("enrich: run complete",
		zap.Int("total", summary.Total),
		zap.Int("recorded", summary.Recorded),
		zap.Int("existing", summary.Existing),
		zap.Int("no_geocode", summary.NoGeocode),
		zap.Int("no_walk_route", summary.NoWalkRoute),
		zap.Int("no_work_route", summary.NoWorkRoute),
		zap.Int("duplicate", summary.Duplicate),
		zap.Int("failed", summary.Failed),
		zap.Int("route_calls", summary.RouteCalls),
		zap.Float64("estimated_cost_usd", summary.EstimatedCostUSD),
	)

	if err := ctx.Err(); err != nil {
		return summary, eris.Wrap(err, "enrich: run cancelled")
	}
	return summary, nil
}
