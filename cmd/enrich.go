package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weijianneo/find-house/internal/enrich"
	"github.com/weijianneo/find-house/internal/listing"
	"github.com/weijianneo/find-house/internal/station"
)

var (
	enrichInput        string
	enrichColumn       string
	enrichStations     string
	enrichWorkers      int
	enrichLimit        int
	enrichWorkLocation string
	enrichDryRun       bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Record nearest MRT and commute minutes for every listing address",
	Long: `Reads the listing addresses, skips those already stored, and for each new
address geocodes it, finds the nearest MRT station, and records the walking
minutes to that station (Saturday 11:00) and the transit minutes to the work
location (arriving Monday 09:00).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyEnrichFlags(cmd)
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		addresses, err := listing.Load(ctx, cfg.Input.Listings, cfg.Input.Column)
		if err != nil {
			return err
		}
		if enrichLimit > 0 && enrichLimit < len(addresses) {
			addresses = addresses[:enrichLimit]
		}

		// Dry run: print the addresses that would be processed and exit.
		if enrichDryRun {
			return printAddresses(cmd.OutOrStdout(), addresses)
		}

		idx, err := station.LoadIndex(ctx, cfg.Input.Stations)
		if err != nil {
			return err
		}

		router, err := newRouter()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "enrich: init store")
		}
		defer st.Close() //nolint:errcheck

		p := enrich.New(enrich.Deps{
			Geocoder: newGeocoder(),
			Stations: idx,
			Router:   router,
			Store:    st,
		}, enrich.Config{
			Workers:          cfg.Pipeline.Workers,
			WorkLocation:     cfg.Pipeline.WorkLocation,
			ProgressInterval: time.Duration(cfg.Pipeline.ProgressIntervalSecs) * time.Second,
			Rates:            &cfg.Pricing,
		})

		sched := p.Schedule()
		zap.L().Info("enrich: starting",
			zap.String("input", cfg.Input.Listings),
			zap.Int("addresses", len(addresses)),
			zap.Int("stations", idx.Len()),
			zap.String("store", cfg.Store.Driver),
			zap.Int("workers", p.Workers()),
			zap.Time("walk_departure", sched.WalkDeparture),
			zap.Time("work_arrival", sched.WorkArrival),
		)

		summary, runErr := p.Run(ctx, addresses)
		if summary != nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return eris.Wrap(err, "enrich: write summary")
			}
		}
		return runErr
	},
}

// applyEnrichFlags copies explicitly set flags over the loaded config.
func applyEnrichFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input.Listings = enrichInput
	}
	if flags.Changed("column") {
		cfg.Input.Column = enrichColumn
	}
	if flags.Changed("stations") {
		cfg.Input.Stations = enrichStations
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = enrichWorkers
	}
	if flags.Changed("work-location") {
		cfg.Pipeline.WorkLocation = enrichWorkLocation
	}
}

func printAddresses(w io.Writer, addresses []string) error {
	for _, a := range addresses {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return err
		}
	}
	zap.L().Info("enrich: dry run", zap.Int("addresses", len(addresses)))
	return nil
}

func init() {
	enrichCmd.Flags().StringVar(&enrichInput, "input", "", "listings file (.csv or .xlsx); overrides input.listings")
	enrichCmd.Flags().StringVar(&enrichColumn, "column", listing.DefaultColumn, "address column name")
	enrichCmd.Flags().StringVar(&enrichStations, "stations", "", "MRT stations CSV; overrides input.stations")
	enrichCmd.Flags().IntVar(&enrichWorkers, "workers", 0, "worker count (0 = 2 x CPUs)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "max addresses to process (0 = all)")
	enrichCmd.Flags().StringVar(&enrichWorkLocation, "work-location", enrich.DefaultWorkLocation, "transit destination")
	enrichCmd.Flags().BoolVar(&enrichDryRun, "dry-run", false, "print the addresses to process without calling any service")
	rootCmd.AddCommand(enrichCmd)
}
