// Package lazyarray provides a lazily-evaluated chunked array backed by a
// task graph. Chunks are materialized only when the region they cover is
// actually read, and independent chunk tasks run concurrently.
package lazyarray

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/guygriffiths/covtiles/internal/domain"
)

// KindLoadTile marks a task interpreted by a TileLoader.
const KindLoadTile = "load_tile"

// DefaultParallelism bounds concurrent chunk tasks unless overridden.
const DefaultParallelism = 8

// Task is a tagged descriptor for producing one chunk. Keeping the graph as
// plain data rather than bound closures lets any executor interpret it.
type Task struct {
	Kind        string
	URLTemplate string
	AxisNames   []string
	TileIndices []int
}

// Graph maps chunk keys to the tasks that produce them.
type Graph map[string]Task

// Key builds the graph key for a chunk: the parameter name plus the chunk
// coordinates joined with dots, e.g. "FOO/2.0".
func Key(param string, coords []int) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = strconv.Itoa(c)
	}
	return param + "/" + strings.Join(parts, ".")
}

// TileLoader interprets load_tile tasks. Implementations must be safe for
// concurrent use and free of side effects beyond the fetch itself.
type TileLoader interface {
	LoadTile(ctx context.Context, urlTemplate string, axisNames []string, tileIndices []int) (*domain.NDArray, error)
}

// Array is a lazily-evaluated chunked array. The task graph is treated as
// immutable after construction; tasks are re-invoked on each access, so any
// memoization belongs to the fetch layer underneath.
type Array struct {
	param       string
	axisNames   []string
	chunks      [][]int
	offsets     [][]int
	shape       []int
	graph       Graph
	loader      TileLoader
	parallelism int
}

// New creates an array over the given task graph. chunks holds the ordered
// chunk sizes along each axis; every chunk coordinate within those bounds
// must have an entry in the graph.
func New(param string, axisNames []string, chunks [][]int, graph Graph, loader TileLoader) (*Array, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("array %s has no axes", param)
	}
	if len(axisNames) != len(chunks) {
		return nil, fmt.Errorf("array %s has %d axis names but %d chunked axes", param, len(axisNames), len(chunks))
	}
	if loader == nil {
		return nil, fmt.Errorf("array %s requires a tile loader", param)
	}

	shape := make([]int, len(chunks))
	offsets := make([][]int, len(chunks))
	counts := make([]int, len(chunks))
	for i, axisChunks := range chunks {
		if len(axisChunks) == 0 {
			return nil, fmt.Errorf("array %s has no chunks on axis %d", param, i)
		}
		for _, size := range axisChunks {
			if size <= 0 {
				return nil, fmt.Errorf("array %s has non-positive chunk size on axis %d", param, i)
			}
			shape[i] += size
		}
		offsets[i] = domain.ChunkOffsets(axisChunks)
		counts[i] = len(axisChunks)
	}

	for _, coord := range domain.EnumerateChunkCoords(counts) {
		if _, ok := graph[Key(param, coord)]; !ok {
			return nil, fmt.Errorf("array %s task graph is missing chunk %v", param, coord)
		}
	}

	return &Array{
		param:       param,
		axisNames:   append([]string(nil), axisNames...),
		chunks:      chunks,
		offsets:     offsets,
		shape:       shape,
		graph:       graph,
		loader:      loader,
		parallelism: DefaultParallelism,
	}, nil
}

// SetParallelism bounds the number of chunk tasks run concurrently.
func (a *Array) SetParallelism(n int) {
	if n > 0 {
		a.parallelism = n
	}
}

// Param returns the parameter name the array was built for.
func (a *Array) Param() string {
	return a.param
}

// AxisNames returns the ordered axis names.
func (a *Array) AxisNames() []string {
	return append([]string(nil), a.axisNames...)
}

// Shape returns the overall extent of each axis.
func (a *Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

// Chunks returns the ordered chunk sizes along each axis.
func (a *Array) Chunks() [][]int {
	out := make([][]int, len(a.chunks))
	for i, axisChunks := range a.chunks {
		out[i] = append([]int(nil), axisChunks...)
	}
	return out
}

// TaskCount returns the number of chunks in the task graph.
func (a *Array) TaskCount() int {
	return len(a.graph)
}

// Compute materializes the whole array.
func (a *Array) Compute(ctx context.Context) (*domain.NDArray, error) {
	start := make([]int, len(a.shape))
	return a.Slice(ctx, start, a.Shape())
}

// Slice materializes the region described by a per-axis start and count,
// fetching only the chunks that overlap it.
func (a *Array) Slice(ctx context.Context, start, count []int) (*domain.NDArray, error) {
	if len(start) != len(a.shape) || len(count) != len(a.shape) {
		return nil, fmt.Errorf("array %s has %d axes, got %d start / %d count entries",
			a.param, len(a.shape), len(start), len(count))
	}
	for i := range start {
		if count[i] <= 0 {
			return nil, fmt.Errorf("count on axis %s must be positive, got %d", a.axisNames[i], count[i])
		}
		if start[i] < 0 || start[i]+count[i] > a.shape[i] {
			return nil, fmt.Errorf("slice [%d, %d) out of range on axis %s (extent %d)",
				start[i], start[i]+count[i], a.axisNames[i], a.shape[i])
		}
	}

	// Per-axis range of chunk indices overlapping the slice.
	lo := make([]int, len(a.shape))
	counts := make([]int, len(a.shape))
	for i := range a.shape {
		first, last := overlappingChunks(a.offsets[i], a.chunks[i], start[i], count[i])
		lo[i] = first
		counts[i] = last - first + 1
	}

	out, err := domain.NewNDArray(count)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for _, rel := range domain.EnumerateChunkCoords(counts) {
		coord := make([]int, len(rel))
		for i := range rel {
			coord[i] = lo[i] + rel[i]
		}
		g.Go(func() error {
			// Chunks cover disjoint regions of out, so no locking is
			// needed around the writes.
			return a.materializeChunk(gctx, coord, start, count, out)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// materializeChunk runs one chunk's task and copies the part of the result
// overlapping the [start, start+count) slice into out.
func (a *Array) materializeChunk(ctx context.Context, coord, start, count []int, out *domain.NDArray) error {
	task, ok := a.graph[Key(a.param, coord)]
	if !ok {
		return fmt.Errorf("array %s task graph is missing chunk %v", a.param, coord)
	}
	if task.Kind != KindLoadTile {
		return fmt.Errorf("array %s chunk %v has unknown task kind %q", a.param, coord, task.Kind)
	}

	block, err := a.loader.LoadTile(ctx, task.URLTemplate, task.AxisNames, task.TileIndices)
	if err != nil {
		return err
	}

	expected := make([]int, len(coord))
	for i, c := range coord {
		expected[i] = a.chunks[i][c]
	}
	if !shapeEqual(block.Shape(), expected) {
		return fmt.Errorf("array %s chunk %v has shape %v, expected %v",
			a.param, coord, block.Shape(), expected)
	}

	// Intersection of the chunk with the slice, in chunk-local and
	// slice-local coordinates.
	blockStart := make([]int, len(coord))
	blockCount := make([]int, len(coord))
	outOffset := make([]int, len(coord))
	for i, c := range coord {
		chunkStart := a.offsets[i][c]
		from := max(start[i], chunkStart)
		to := min(start[i]+count[i], chunkStart+expected[i])
		blockStart[i] = from - chunkStart
		blockCount[i] = to - from
		outOffset[i] = from - start[i]
	}

	part := block
	if !shapeEqual(blockCount, expected) {
		part, err = block.Region(blockStart, blockCount)
		if err != nil {
			return fmt.Errorf("array %s chunk %v: %w", a.param, coord, err)
		}
	}
	return out.SetRegion(outOffset, part)
}

// overlappingChunks returns the first and last chunk indices whose extents
// intersect [start, start+count).
func overlappingChunks(offsets, chunks []int, start, count int) (int, int) {
	first := 0
	last := len(chunks) - 1
	for i := range chunks {
		if offsets[i]+chunks[i] > start {
			first = i
			break
		}
	}
	for i := len(chunks) - 1; i >= 0; i-- {
		if offsets[i] < start+count {
			last = i
			break
		}
	}
	return first, last
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
