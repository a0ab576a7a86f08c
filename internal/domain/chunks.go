package domain

import (
	"fmt"
	"strings"
)

// AxisChunks returns the chunk sizes along one axis: floor(extent/tileSize)
// full tiles followed by one remainder tile when extent is not an exact
// multiple. A tile size of at least the extent yields a single chunk
// spanning the whole axis.
func AxisChunks(extent, tileSize int) ([]int, error) {
	if extent <= 0 {
		return nil, fmt.Errorf("axis extent must be positive, got %d", extent)
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %d", tileSize)
	}
	nFull := extent / tileSize
	remainder := extent % tileSize
	chunks := make([]int, 0, nFull+1)
	for i := 0; i < nFull; i++ {
		chunks = append(chunks, tileSize)
	}
	if remainder > 0 {
		chunks = append(chunks, remainder)
	}
	return chunks, nil
}

// ChunkOffsets returns the starting coordinate of each chunk along an axis,
// i.e. the exclusive prefix sums of the chunk sizes.
func ChunkOffsets(chunks []int) []int {
	offsets := make([]int, len(chunks))
	total := 0
	for i, size := range chunks {
		offsets[i] = total
		total += size
	}
	return offsets
}

// EnumerateChunkCoords returns every chunk-coordinate tuple for the given
// per-axis chunk counts, as the cartesian product of range(counts[i]) with
// the last axis varying fastest.
func EnumerateChunkCoords(counts []int) [][]int {
	total := 1
	for _, n := range counts {
		if n <= 0 {
			return nil
		}
		total *= n
	}
	coords := make([][]int, 0, total)
	cur := make([]int, len(counts))
	for {
		coords = append(coords, append([]int(nil), cur...))
		axis := len(counts) - 1
		for axis >= 0 {
			cur[axis]++
			if cur[axis] < counts[axis] {
				break
			}
			cur[axis] = 0
			axis--
		}
		if axis < 0 {
			return coords
		}
	}
}

// ResultKey derives the identifier for one (parameter, tileset) array:
// "<param>-untiled" when no axis is split, otherwise the split axis names
// concatenated in axis order, e.g. "FOO-yx_tiling".
func ResultKey(param string, splitAxes []string) string {
	if len(splitAxes) == 0 {
		return param + "-untiled"
	}
	return param + "-" + strings.Join(splitAxes, "") + "_tiling"
}
