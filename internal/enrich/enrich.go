// Package enrich resolves commute facts for property addresses and stores
// one record per address.
package enrich

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/weijianneo/find-house/internal/cost"
	"github.com/weijianneo/find-house/internal/model"
	"github.com/weijianneo/find-house/internal/store"
	"github.com/weijianneo/find-house/pkg/distancematrix"
)

// DefaultWorkLocation is the destination of the transit leg.
const DefaultWorkLocation = "GOOGLE SINGAPORE"

// Geocoder resolves an address to a point. model.NotFound means no match.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.GeoPoint, error)
}

// StationFinder returns the station nearest to a point.
type StationFinder interface {
	Nearest(p model.GeoPoint) (model.Station, float64)
}

// Router returns travel minutes; ok is false when no route exists.
type Router interface {
	Duration(ctx context.Context, req distancematrix.Request) (minutes int, ok bool, err error)
}

// Outcome is the result of processing one address.
type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeExisting
	OutcomeNoGeocode
	OutcomeNoWalkRoute
	OutcomeNoWorkRoute
	OutcomeDuplicate
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeExisting:
		return "existing"
	case OutcomeNoGeocode:
		return "no_geocode"
	case OutcomeNoWalkRoute:
		return "no_walk_route"
	case OutcomeNoWorkRoute:
		return "no_work_route"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Geocoder Geocoder
	Stations StationFinder
	Router   Router
	Store    store.Store
}

// Config tunes a Pipeline. Zero values fall back to defaults.
type Config struct {
	Workers          int
	WorkLocation     string
	ProgressInterval time.Duration
	Now              func() time.Time
	// Rates prices the run summary; nil uses cost.DefaultRates.
	Rates *cost.Rates
}

// Pipeline enriches addresses.
type Pipeline struct {
	deps     Deps
	cfg      Config
	schedule Schedule
	costCalc *cost.Calculator

	geocodes atomic.Int64
	routes   atomic.Int64
}

// New creates a Pipeline. Reference times are fixed here for the life of
// the job.
func New(deps Deps, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 2 * runtime.NumCPU()
	}
	if cfg.WorkLocation == "" {
		cfg.WorkLocation = DefaultWorkLocation
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	rates := cost.DefaultRates()
	if cfg.Rates != nil {
		rates = *cfg.Rates
	}
	return &Pipeline{
		deps:     deps,
		cfg:      cfg,
		schedule: NewSchedule(cfg.Now()),
		costCalc: cost.NewCalculator(rates),
	}
}

// Schedule returns the job's reference times.
func (p *Pipeline) Schedule() Schedule {
	return p.schedule
}

// Workers returns the worker pool size.
func (p *Pipeline) Workers() int {
	return p.cfg.Workers
}

// Process runs the lookup sequence for one address and inserts the record
// when every step produced data. Nothing is written on any other outcome.
func (p *Pipeline) Process(ctx context.Context, address string) (Outcome, error) {
	address = model.NormalizeAddress(address)
	log := zap.L().With(zap.String("address", address))

	exists, err := p.deps.Store.Exists(ctx, address)
	if err != nil {
		return OutcomeFailed, eris.Wrap(err, "enrich: check existing")
	}
	if exists {
		log.Debug("enrich: already stored")
		return OutcomeExisting, nil
	}

	p.geocodes.Add(1)
	point, err := p.deps.Geocoder.Geocode(ctx, address)
	if err != nil {
		return OutcomeFailed, eris.Wrap(err, "enrich: geocode")
	}
	if point.IsNotFound() {
		log.Info("enrich: address not geocoded")
		return OutcomeNoGeocode, nil
	}

	station, _ := p.deps.Stations.Nearest(point)

	p.routes.Add(1)
	walk, ok, err := p.deps.Router.Duration(ctx, distancematrix.Request{
		Origin:        distancematrix.Place(address),
		Destination:   distancematrix.Point(station.Location),
		Mode:          distancematrix.ModeWalking,
		DepartureTime: p.schedule.WalkDeparture,
	})
	if err != nil {
		return OutcomeFailed, eris.Wrap(err, "enrich: walking route")
	}
	if !ok {
		log.Info("enrich: no walking route", zap.String("station", station.Name))
		return OutcomeNoWalkRoute, nil
	}

	p.routes.Add(1)
	work, ok, err := p.deps.Router.Duration(ctx, distancematrix.Request{
		Origin:      distancematrix.Place(address),
		Destination: distancematrix.Place(p.cfg.WorkLocation),
		Mode:        distancematrix.ModeTransit,
		ArrivalTime: p.schedule.WorkArrival,
	})
	if err != nil {
		return OutcomeFailed, eris.Wrap(err, "enrich: transit route")
	}
	if !ok {
		log.Info("enrich: no transit route", zap.String("destination", p.cfg.WorkLocation))
		return OutcomeNoWorkRoute, nil
	}

	rec := model.Record{
		Address:     address,
		Station:     station.Name,
		WalkMinutes: walk,
		WorkMinutes: work,
		CreatedAt:   p.cfg.Now().UTC(),
	}
	inserted, err := p.deps.Store.Insert(ctx, rec)
	if err != nil {
		return OutcomeFailed, eris.Wrap(err, "enrich: insert record")
	}
	if !inserted {
		log.Debug("enrich: record inserted concurrently")
		return OutcomeDuplicate, nil
	}

	log.Debug("enrich: recorded",
		zap.String("station", station.Name),
		zap.Int("walk_minutes", walk),
		zap.Int("work_minutes", work),
	)
	return OutcomeRecorded, nil
}
