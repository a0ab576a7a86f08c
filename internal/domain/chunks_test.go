package domain

import (
	"testing"
)

// TestAxisChunks_Properties checks the chunk-size invariants: sizes sum to
// the extent, no chunk exceeds the tile size, only the last chunk may be
// smaller, and the count is ceil(extent/tileSize).
func TestAxisChunks_Properties(t *testing.T) {
	tests := []struct {
		extent   int
		tileSize int
		expected []int
	}{
		{10, 3, []int{3, 3, 3, 1}},
		{11, 3, []int{3, 3, 3, 2}},
		{9, 3, []int{3, 3, 3}},
		{10, 10, []int{10}},
		{10, 15, []int{10}},
		{1, 1, []int{1}},
		{7, 1, []int{1, 1, 1, 1, 1, 1, 1}},
	}

	for _, tt := range tests {
		chunks, err := AxisChunks(tt.extent, tt.tileSize)
		if err != nil {
			t.Fatalf("AxisChunks(%d, %d): unexpected error: %v", tt.extent, tt.tileSize, err)
		}

		if len(chunks) != len(tt.expected) {
			t.Errorf("AxisChunks(%d, %d): expected %v, got %v", tt.extent, tt.tileSize, tt.expected, chunks)
			continue
		}
		sum := 0
		for i, size := range chunks {
			if size != tt.expected[i] {
				t.Errorf("AxisChunks(%d, %d): expected %v, got %v", tt.extent, tt.tileSize, tt.expected, chunks)
			}
			if size > tt.tileSize {
				t.Errorf("AxisChunks(%d, %d): chunk %d has size %d > tile size", tt.extent, tt.tileSize, i, size)
			}
			if size < tt.tileSize && i != len(chunks)-1 {
				t.Errorf("AxisChunks(%d, %d): non-final chunk %d has size %d", tt.extent, tt.tileSize, i, size)
			}
			sum += size
		}
		if sum != tt.extent {
			t.Errorf("AxisChunks(%d, %d): sizes sum to %d, expected %d", tt.extent, tt.tileSize, sum, tt.extent)
		}

		expectedCount := (tt.extent + tt.tileSize - 1) / tt.tileSize
		if len(chunks) != expectedCount {
			t.Errorf("AxisChunks(%d, %d): expected %d chunks, got %d", tt.extent, tt.tileSize, expectedCount, len(chunks))
		}
	}
}

func TestAxisChunks_InvalidInput(t *testing.T) {
	if _, err := AxisChunks(0, 3); err == nil {
		t.Error("expected error for zero extent")
	}
	if _, err := AxisChunks(-5, 3); err == nil {
		t.Error("expected error for negative extent")
	}
	if _, err := AxisChunks(10, 0); err == nil {
		t.Error("expected error for zero tile size")
	}
}

func TestChunkOffsets(t *testing.T) {
	offsets := ChunkOffsets([]int{3, 3, 3, 1})
	expected := []int{0, 3, 6, 9}
	if len(offsets) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, offsets)
	}
	for i := range expected {
		if offsets[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, offsets)
		}
	}
}

func TestEnumerateChunkCoords(t *testing.T) {
	coords := EnumerateChunkCoords([]int{2, 3})

	if len(coords) != 6 {
		t.Fatalf("expected 6 coordinate tuples, got %d", len(coords))
	}

	// Every tuple is in bounds and distinct.
	seen := make(map[[2]int]bool)
	for _, c := range coords {
		if len(c) != 2 {
			t.Fatalf("expected 2 entries per tuple, got %v", c)
		}
		if c[0] < 0 || c[0] >= 2 || c[1] < 0 || c[1] >= 3 {
			t.Errorf("coordinate %v out of bounds", c)
		}
		key := [2]int{c[0], c[1]}
		if seen[key] {
			t.Errorf("duplicate coordinate %v", c)
		}
		seen[key] = true
	}

	// Last axis varies fastest.
	first := coords[0]
	second := coords[1]
	if first[0] != 0 || first[1] != 0 || second[0] != 0 || second[1] != 1 {
		t.Errorf("expected [0 0] then [0 1], got %v then %v", first, second)
	}
}

func TestEnumerateChunkCoords_SingleChunk(t *testing.T) {
	coords := EnumerateChunkCoords([]int{1, 1, 1})
	if len(coords) != 1 {
		t.Fatalf("expected exactly one tuple, got %d", len(coords))
	}
	for _, c := range coords[0] {
		if c != 0 {
			t.Fatalf("expected all-zero tuple, got %v", coords[0])
		}
	}
}

func TestResultKey(t *testing.T) {
	tests := []struct {
		param     string
		splitAxes []string
		expected  string
	}{
		{"FOO", nil, "FOO-untiled"},
		{"FOO", []string{}, "FOO-untiled"},
		{"FOO", []string{"y", "x"}, "FOO-yx_tiling"},
		{"FOO", []string{"t"}, "FOO-t_tiling"},
		{"temperature", []string{"t", "y", "x"}, "temperature-tyx_tiling"},
	}

	for _, tt := range tests {
		if got := ResultKey(tt.param, tt.splitAxes); got != tt.expected {
			t.Errorf("ResultKey(%q, %v): expected %q, got %q", tt.param, tt.splitAxes, tt.expected, got)
		}
	}
}
