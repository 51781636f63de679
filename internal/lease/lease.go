// Package lease resolves the remaining HDB lease for property addresses.
package lease

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weijianneo/find-house/internal/model"
	"github.com/weijianneo/find-house/pkg/onemap"
)

// PostalLookup finds the postal code of an address; onemap.NoPostal means
// none.
type PostalLookup interface {
	Postal(ctx context.Context, address string) (string, error)
}

// LeaseLookup returns the remaining lease for a postal code.
type LeaseLookup interface {
	LeaseRemaining(ctx context.Context, postal string) (years int, found bool, err error)
}

// Result is the lease answer for one address. Years is 0 when no postal
// code or no lease figure was found.
type Result struct {
	Address string `json:"address" yaml:"address"`
	Postal  string `json:"postal" yaml:"postal"`
	Years   int    `json:"lease_remaining_years" yaml:"lease_remaining_years"`
	Found   bool   `json:"found" yaml:"found"`
	Err     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Resolver chains a postal lookup into a lease lookup.
type Resolver struct {
	postal PostalLookup
	lease  LeaseLookup
}

// NewResolver creates a Resolver.
func NewResolver(postal PostalLookup, lease LeaseLookup) *Resolver {
	return &Resolver{postal: postal, lease: lease}
}

// Resolve returns the remaining lease for address.
func (r *Resolver) Resolve(ctx context.Context, address string) (Result, error) {
	address = model.NormalizeAddress(address)
	res := Result{Address: address, Postal: onemap.NoPostal}

	postal, err := r.postal.Postal(ctx, address)
	if err != nil {
		return res, eris.Wrap(err, "lease: postal lookup")
	}
	res.Postal = postal
	if postal == onemap.NoPostal {
		return res, nil
	}

	years, found, err := r.lease.LeaseRemaining(ctx, postal)
	if err != nil {
		return res, eris.Wrapf(err, "lease: lookup %s", postal)
	}
	res.Years = years
	res.Found = found
	return res, nil
}

// Run resolves every distinct address with at most workers concurrent
// lookups. Results follow the deduplicated input order; a failed address
// carries its error in Result.Err. Run returns an error only when ctx is
// cancelled.
func Run(ctx context.Context, r *Resolver, addresses []string, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = 2 * runtime.NumCPU()
	}
	addrs := model.DedupAddresses(addresses)
	results := make([]Result, len(addrs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, addr := range addrs {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					zap.L().Error("lease: worker panic", zap.String("address", addr), zap.String("panic", fmt.Sprint(p)))
					results[i] = Result{Address: addr, Postal: onemap.NoPostal, Err: fmt.Sprint(p)}
				}
			}()

			res, err := r.Resolve(gCtx, addr)
			if err != nil {
				zap.L().Warn("lease: address failed", zap.String("address", addr), zap.Error(err))
				res.Err = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, eris.Wrap(err, "lease: run cancelled")
	}
	return results, nil
}
