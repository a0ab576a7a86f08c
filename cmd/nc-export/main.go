// Package main provides nc-export, a tool that materializes one lazy array
// from a tiled CoverageJSON document and writes it to a NetCDF file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/guygriffiths/covtiles/internal/adapter/fetch"
	"github.com/guygriffiths/covtiles/internal/adapter/store/tiles"
	"github.com/guygriffiths/covtiles/internal/usecase"
)

func main() {
	url := flag.String("url", "", "URL of the tiled CoverageJSON document (required)")
	key := flag.String("key", "", "Key of the array to export (required)")
	out := flag.String("out", "coverage.nc", "Output NetCDF file path")
	parallelism := flag.Int("parallelism", 0, "Max concurrent tile fetches (default: 8)")
	flag.Parse()

	if *url == "" || *key == "" {
		log.Fatal("the -url and -key flags are required")
	}

	fetcher := fetch.NewHTTPFetcher(nil)
	builder := usecase.NewBuilder(fetcher, tiles.NewLoader(fetcher))
	if *parallelism > 0 {
		builder.SetParallelism(*parallelism)
	}

	ctx := context.Background()
	arrays, err := builder.Build(ctx, *url)
	if err != nil {
		log.Fatalf("Failed to build arrays: %v", err)
	}

	arr, ok := arrays[*key]
	if !ok {
		keys := make([]string, 0, len(arrays))
		for k := range arrays {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		log.Fatalf("No array with key %s (available: %v)", *key, keys)
	}

	log.Printf("Materializing %s (shape %v, %d tiles)...", *key, arr.Shape(), arr.TaskCount())
	data, err := arr.Compute(ctx)
	if err != nil {
		log.Fatalf("Failed to materialize %s: %v", *key, err)
	}

	if err := writeNetCDF(*out, arr.Param(), arr.AxisNames(), data.Shape(), data.Values()); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}
	log.Printf("Wrote %s (%d values)", *out, data.Size())
}

// writeNetCDF writes the array to a NetCDF file with one dimension per axis
// and a single data variable named after the parameter.
func writeNetCDF(path, param string, axisNames []string, shape []int, values []float64) error {
	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer ds.Close()

	dims := make([]netcdf.Dim, len(axisNames))
	for i, axis := range axisNames {
		dim, err := ds.AddDim(axis, uint64(shape[i]))
		if err != nil {
			return fmt.Errorf("failed to add dimension %s: %w", axis, err)
		}
		dims[i] = dim
	}

	dataVar, err := ds.AddVar(param, netcdf.DOUBLE, dims)
	if err != nil {
		return fmt.Errorf("failed to add variable %s: %w", param, err)
	}
	if err := dataVar.WriteFloat64s(values); err != nil {
		return fmt.Errorf("failed to write variable %s: %w", param, err)
	}

	return nil
}
