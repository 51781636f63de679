package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/weijianneo/find-house/internal/lease"
	"github.com/weijianneo/find-house/internal/listing"
)

var (
	leaseInput   string
	leaseColumn  string
	leaseOutput  string
	leaseFormat  string
	leaseWorkers int
)

var leaseCmd = &cobra.Command{
	Use:   "lease [address...]",
	Short: "Look up the remaining HDB lease for addresses",
	Long:  "Resolves each address to a postal code with OneMap and reads the remaining lease years from HDB. Addresses come from the arguments or from --input.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("lease"); err != nil {
			return err
		}

		addresses := args
		if len(addresses) == 0 {
			input := leaseInput
			if input == "" {
				input = cfg.Input.Listings
			}
			loaded, err := listing.Load(ctx, input, leaseColumn)
			if err != nil {
				return err
			}
			addresses = loaded
		}

		workers := leaseWorkers
		if workers == 0 {
			workers = cfg.Pipeline.Workers
		}

		resolver := lease.NewResolver(newGeocoder(), newLeaseClient())
		results, runErr := lease.Run(ctx, resolver, addresses, workers)

		out := cmd.OutOrStdout()
		if leaseOutput != "" {
			f, err := os.Create(leaseOutput)
			if err != nil {
				return eris.Wrap(err, "lease: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := writeLeaseResults(out, leaseFormat, results); err != nil {
			return err
		}

		zap.L().Info("lease: complete", zap.Int("addresses", len(results)))
		return runErr
	},
}

func writeLeaseResults(w io.Writer, format string, results []lease.Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(results), "lease: write json")
	case "csv", "":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"address", "postal", "lease_remaining_years", "found", "error"}); err != nil {
			return eris.Wrap(err, "lease: write csv header")
		}
		for _, r := range results {
			row := []string{r.Address, r.Postal, strconv.Itoa(r.Years), strconv.FormatBool(r.Found), r.Err}
			if err := cw.Write(row); err != nil {
				return eris.Wrap(err, "lease: write csv row")
			}
		}
		cw.Flush()
		return eris.Wrap(cw.Error(), "lease: flush csv")
	default:
		return eris.Errorf("lease: unsupported format %q", format)
	}
}

func init() {
	leaseCmd.Flags().StringVar(&leaseInput, "input", "", "listings file (.csv or .xlsx); defaults to input.listings")
	leaseCmd.Flags().StringVar(&leaseColumn, "column", listing.DefaultColumn, "address column name")
	leaseCmd.Flags().StringVarP(&leaseOutput, "output", "o", "", "output file (default stdout)")
	leaseCmd.Flags().StringVar(&leaseFormat, "format", "csv", "output format: csv or json")
	leaseCmd.Flags().IntVar(&leaseWorkers, "workers", 0, "worker count (0 = pipeline.workers)")
	rootCmd.AddCommand(leaseCmd)
}
