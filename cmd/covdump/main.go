// Package main provides covdump, a tool that fetches a tiled CoverageJSON
// document, builds the lazy arrays it describes and prints them fully
// materialized.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/guygriffiths/covtiles/internal/adapter/fetch"
	"github.com/guygriffiths/covtiles/internal/adapter/store/tiles"
	"github.com/guygriffiths/covtiles/internal/domain"
	"github.com/guygriffiths/covtiles/internal/usecase"
)

func main() {
	url := flag.String("url", "", "URL of the tiled CoverageJSON document (required)")
	key := flag.String("key", "", "Only dump the array with this key (default: all)")
	maxValues := flag.Int("max-values", 200, "Maximum number of values to print per array (0 = all)")
	parallelism := flag.Int("parallelism", 0, "Max concurrent tile fetches (default: 8)")
	flag.Parse()

	if *url == "" {
		log.Fatal("the -url flag is required")
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

	keys := make([]string, 0, len(arrays))
	for k := range arrays {
		if *key != "" && k != *key {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		log.Fatalf("No arrays matched (document has %d)", len(arrays))
	}
	sort.Strings(keys)

	for _, k := range keys {
		arr := arrays[k]
		data, err := arr.Compute(ctx)
		if err != nil {
			log.Fatalf("Failed to materialize %s: %v", k, err)
		}

		fmt.Printf("%s:\n", k)
		fmt.Printf("  axes:   %s\n", strings.Join(arr.AxisNames(), ", "))
		fmt.Printf("  shape:  %v\n", data.Shape())
		fmt.Printf("  chunks: %v\n", arr.Chunks())
		fmt.Printf("  values: %s\n", humanize.Comma(int64(data.Size())))
		printValues(data, *maxValues)
		fmt.Println()
	}
}

// printValues prints the flat row-major values, one innermost-axis row per
// line, truncated to at most maxValues entries.
func printValues(data *domain.NDArray, maxValues int) {
	values := data.Values()
	limit := len(values)
	if maxValues > 0 && maxValues < limit {
		limit = maxValues
	}
	shape := data.Shape()
	rowLen := shape[len(shape)-1]

	for row := 0; row < limit; row += rowLen {
		end := row + rowLen
		if end > limit {
			end = limit
		}
		parts := make([]string, 0, end-row)
		for _, v := range values[row:end] {
			parts = append(parts, fmt.Sprintf("%g", v))
		}
		fmt.Printf("    %s\n", strings.Join(parts, " "))
	}
	if limit < len(values) {
		fmt.Printf("    ... (%s more)\n", humanize.Comma(int64(len(values)-limit)))
	}
}
