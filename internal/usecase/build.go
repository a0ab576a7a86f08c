// Package usecase builds lazy chunked arrays from tiled CoverageJSON
// documents.
package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/guygriffiths/covtiles/internal/adapter/fetch"
	"github.com/guygriffiths/covtiles/internal/covjson"
	"github.com/guygriffiths/covtiles/internal/domain"
	"github.com/guygriffiths/covtiles/internal/lazyarray"
)

// Builder turns a coverage document into one lazy array per
// (parameter, tileset) pair.
type Builder struct {
	fetcher     fetch.Fetcher
	loader      lazyarray.TileLoader
	parallelism int

	// Built array sets cached per document URL.
	mu    sync.RWMutex
	cache map[string]map[string]*lazyarray.Array
}

// NewBuilder creates a builder. The fetcher retrieves the top-level
// document; the loader is embedded in each array's task graph to retrieve
// tiles on demand.
func NewBuilder(fetcher fetch.Fetcher, loader lazyarray.TileLoader) *Builder {
	return &Builder{
		fetcher: fetcher,
		loader:  loader,
		cache:   make(map[string]map[string]*lazyarray.Array),
	}
}

// SetParallelism bounds concurrent chunk fetches per array.
func (b *Builder) SetParallelism(n int) {
	if n > 0 {
		b.parallelism = n
	}
}

// Build fetches and parses the coverage document at location and returns a
// mapping from result key to lazy array. Keys follow the
// "<param>-untiled" / "<param>-<axes>_tiling" convention. The build fails
// fast on the first malformed parameter or tileset.
func (b *Builder) Build(ctx context.Context, location string) (map[string]*lazyarray.Array, error) {
	body, err := b.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coverage document %s: %w", location, err)
	}
	cov, err := covjson.ParseCoverage(body)
	if err != nil {
		return nil, err
	}

	// Sorted for deterministic error reporting.
	params := make([]string, 0, len(cov.Parameters))
	for name := range cov.Parameters {
		params = append(params, name)
	}
	sort.Strings(params)

	arrays := make(map[string]*lazyarray.Array)
	for _, param := range params {
		rng, ok := cov.Ranges[param]
		if !ok {
			return nil, fmt.Errorf("parameter %s has no range", param)
		}
		if err := rng.Validate(param); err != nil {
			return nil, err
		}

		for _, ts := range rng.TileSets {
			key, arr, err := b.buildArray(param, &rng, &ts)
			if err != nil {
				return nil, err
			}
			arrays[key] = arr
		}
	}
	return arrays, nil
}

// buildArray assembles one tileset's chunk grid, task graph and lazy array.
func (b *Builder) buildArray(param string, rng *covjson.Range, ts *covjson.TileSet) (string, *lazyarray.Array, error) {
	chunks := make([][]int, len(rng.AxisNames))
	counts := make([]int, len(rng.AxisNames))
	splitAxes := make([]string, 0, len(rng.AxisNames))

	for i, extent := range rng.Shape {
		// A nil tile size means the whole axis is present in every tile.
		tileSize := extent
		if ts.TileShape[i] != nil {
			tileSize = *ts.TileShape[i]
			splitAxes = append(splitAxes, rng.AxisNames[i])
		}
		axisChunks, err := domain.AxisChunks(extent, tileSize)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %s axis %s: %w", param, rng.AxisNames[i], err)
		}
		chunks[i] = axisChunks
		counts[i] = len(axisChunks)
	}

	key := domain.ResultKey(param, splitAxes)

	graph := make(lazyarray.Graph)
	for _, coord := range domain.EnumerateChunkCoords(counts) {
		graph[lazyarray.Key(param, coord)] = lazyarray.Task{
			Kind:        lazyarray.KindLoadTile,
			URLTemplate: ts.URLTemplate,
			AxisNames:   rng.AxisNames,
			TileIndices: coord,
		}
	}

	arr, err := lazyarray.New(param, rng.AxisNames, chunks, graph, b.loader)
	if err != nil {
		return "", nil, err
	}
	if b.parallelism > 0 {
		arr.SetParallelism(b.parallelism)
	}
	return key, arr, nil
}

// Arrays returns the array set for a document URL, building it on first
// use. Only the metadata and task graphs are cached; chunk data is still
// fetched lazily on access.
func (b *Builder) Arrays(ctx context.Context, location string) (map[string]*lazyarray.Array, error) {
	b.mu.RLock()
	if arrays, ok := b.cache[location]; ok {
		b.mu.RUnlock()
		return arrays, nil
	}
	b.mu.RUnlock()

	arrays, err := b.Build(ctx, location)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.cache[location] = arrays
	b.mu.Unlock()
	return arrays, nil
}
