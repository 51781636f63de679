package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/weijianneo/find-house/internal/model"
	"github.com/weijianneo/find-house/internal/station"
)

var (
	nearestStations string
	nearestLat      float64
	nearestLon      float64
	nearestList     bool
)

var nearestCmd = &cobra.Command{
	Use:   "nearest [address]",
	Short: "Print the MRT station nearest to an address or coordinate",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("nearest"); err != nil {
			return err
		}

		path := nearestStations
		if path == "" {
			path = cfg.Input.Stations
		}
		idx, err := station.LoadIndex(ctx, path)
		if err != nil {
			return err
		}
		if nearestList {
			return printStations(cmd.OutOrStdout(), idx.Stations())
		}

		point := model.GeoPoint{Lat: nearestLat, Lon: nearestLon}
		if len(args) == 1 {
			point, err = newGeocoder().Geocode(ctx, args[0])
			if err != nil {
				return err
			}
		}
		if point.IsNotFound() {
			return eris.New("nearest: no location to search from")
		}

		s, dist := idx.Nearest(point)
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.6f\n", s.Name, s.Location, dist)
		return err
	},
}

// printStations writes one "name<TAB>lat,lon" line per station in load order.
func printStations(w io.Writer, stations []model.Station) error {
	for _, s := range stations {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Location); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	nearestCmd.Flags().StringVar(&nearestStations, "stations", "", "MRT stations CSV; defaults to input.stations")
	nearestCmd.Flags().Float64Var(&nearestLat, "lat", 0, "latitude (when no address is given)")
	nearestCmd.Flags().Float64Var(&nearestLon, "lon", 0, "longitude (when no address is given)")
	nearestCmd.Flags().BoolVar(&nearestList, "list", false, "print every loaded station and exit")
	rootCmd.AddCommand(nearestCmd)
}
