package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weijianneo/find-house/internal/model"
	"github.com/weijianneo/find-house/internal/store"
)

const exportPageSize = 500

var (
	exportFormat  string
	exportOutput  string
	exportStation string
	exportLimit   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump stored records as csv, json or yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "export: init store")
		}
		defer st.Close() //nolint:errcheck

		recs, err := collectRecords(ctx, st, exportStation, exportLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return eris.Wrap(err, "export: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return writeRecords(out, exportFormat, recs)
	},
}

// collectRecords pages through the store. limit <= 0 means all records.
func collectRecords(ctx context.Context, st store.Store, station string, limit int) ([]model.Record, error) {
	var all []model.Record
	for offset := 0; ; offset += exportPageSize {
		page := exportPageSize
		if limit > 0 {
			page = min(page, limit-len(all))
			if page <= 0 {
				break
			}
		}
		recs, err := st.List(ctx, store.ListFilter{Station: station, Limit: page, Offset: offset})
		if err != nil {
			return nil, eris.Wrap(err, "export: list records")
		}
		all = append(all, recs...)
		if len(recs) < page {
			break
		}
	}
	return all, nil
}

func writeRecords(w io.Writer, format string, recs []model.Record) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(recs), "export: write json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(recs); err != nil {
			return eris.Wrap(err, "export: write yaml")
		}
		return eris.Wrap(enc.Close(), "export: close yaml")
	case "csv", "":
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"location", "mrt", "min_walk_to_mrt", "min_to_work"}); err != nil {
			return eris.Wrap(err, "export: write csv header")
		}
		for _, r := range recs {
			row := []string{r.Address, r.Station, strconv.Itoa(r.WalkMinutes), strconv.Itoa(r.WorkMinutes)}
			if err := cw.Write(row); err != nil {
				return eris.Wrap(err, "export: write csv row")
			}
		}
		cw.Flush()
		return eris.Wrap(cw.Error(), "export: flush csv")
	default:
		return eris.Errorf("export: unsupported format %q", format)
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv, json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportStation, "mrt", "", "only records for this station")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max records (0 = all)")
	rootCmd.AddCommand(exportCmd)
}
