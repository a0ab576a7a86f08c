package lazyarray

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/guygriffiths/covtiles/internal/domain"
)

// fakeLoader returns constant blocks whose value encodes the chunk
// coordinates, so assembly order is visible in the output.
type fakeLoader struct {
	chunks   [][]int
	calls    int32
	failOn   string // tile indices rendered as "i0.i1", empty to never fail
	badShape bool
}

func (f *fakeLoader) LoadTile(_ context.Context, _ string, _ []string, tileIndices []int) (*domain.NDArray, error) {
	atomic.AddInt32(&f.calls, 1)

	parts := make([]string, len(tileIndices))
	shape := make([]int, len(tileIndices))
	value := 0.0
	for i, c := range tileIndices {
		parts[i] = fmt.Sprintf("%d", c)
		shape[i] = f.chunks[i][c]
		value = value*10 + float64(c+1)
	}
	if f.failOn == strings.Join(parts, ".") {
		return nil, fmt.Errorf("tile %s unavailable", f.failOn)
	}
	if f.badShape {
		shape[0]++
	}

	block, err := domain.NewNDArray(shape)
	if err != nil {
		return nil, err
	}
	for i := range block.Values() {
		block.Values()[i] = value
	}
	return block, nil
}

// buildGraph enumerates every chunk coordinate and inserts a load_tile task.
func buildGraph(param string, chunks [][]int) Graph {
	counts := make([]int, len(chunks))
	axes := make([]string, len(chunks))
	for i, axisChunks := range chunks {
		counts[i] = len(axisChunks)
		axes[i] = fmt.Sprintf("a%d", i)
	}
	graph := make(Graph)
	for _, coord := range domain.EnumerateChunkCoords(counts) {
		graph[Key(param, coord)] = Task{
			Kind:        KindLoadTile,
			URLTemplate: "http://h/{a0}/{a1}",
			AxisNames:   axes,
			TileIndices: coord,
		}
	}
	return graph
}

func newTestArray(t *testing.T, chunks [][]int, loader TileLoader) *Array {
	t.Helper()
	axes := make([]string, len(chunks))
	for i := range chunks {
		axes[i] = fmt.Sprintf("a%d", i)
	}
	arr, err := New("FOO", axes, chunks, buildGraph("FOO", chunks), loader)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return arr
}

func TestKey(t *testing.T) {
	if got := Key("FOO", []int{2, 0}); got != "FOO/2.0" {
		t.Errorf("expected FOO/2.0, got %s", got)
	}
	if got := Key("FOO", []int{0}); got != "FOO/0" {
		t.Errorf("expected FOO/0, got %s", got)
	}
}

func TestNew_Metadata(t *testing.T) {
	chunks := [][]int{{3, 3, 3, 1}, {3, 3, 3, 2}}
	arr := newTestArray(t, chunks, &fakeLoader{chunks: chunks})

	shape := arr.Shape()
	if shape[0] != 10 || shape[1] != 11 {
		t.Errorf("expected shape [10 11], got %v", shape)
	}
	if arr.TaskCount() != 16 {
		t.Errorf("expected 16 tasks, got %d", arr.TaskCount())
	}
}

func TestNew_MissingGraphEntry(t *testing.T) {
	chunks := [][]int{{2, 2}}
	graph := buildGraph("FOO", chunks)
	delete(graph, Key("FOO", []int{1}))

	if _, err := New("FOO", []string{"x"}, chunks, graph, &fakeLoader{chunks: chunks}); err == nil {
		t.Fatal("expected error for incomplete task graph")
	}
}

func TestCompute_AssemblesChunksInOrder(t *testing.T) {
	// 3x2 array from chunks [[2,1],[2]]: rows 0-1 come from chunk row 0,
	// row 2 from chunk row 1.
	chunks := [][]int{{2, 1}, {2}}
	loader := &fakeLoader{chunks: chunks}
	arr := newTestArray(t, chunks, loader)

	data, err := arr.Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// fakeLoader value for chunk (i, j) is (i+1)*10 + (j+1).
	expected := []float64{
		11, 11,
		11, 11,
		21, 21,
	}
	for i, v := range data.Values() {
		if v != expected[i] {
			t.Fatalf("value %d: expected %g, got %g (all: %v)", i, expected[i], v, data.Values())
		}
	}
	if got := atomic.LoadInt32(&loader.calls); got != 2 {
		t.Errorf("expected 2 tile loads, got %d", got)
	}
}

func TestSlice_FetchesOnlyOverlappingChunks(t *testing.T) {
	chunks := [][]int{{3, 3, 3, 1}, {3, 3, 3, 2}}
	loader := &fakeLoader{chunks: chunks}
	arr := newTestArray(t, chunks, loader)

	// Entirely inside chunk (0, 0).
	data, err := arr.Slice(context.Background(), []int{0, 0}, []int{2, 2})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Errorf("expected 1 tile load, got %d", got)
	}
	for _, v := range data.Values() {
		if v != 11 {
			t.Fatalf("expected all values 11, got %v", data.Values())
		}
	}

	// Spanning a chunk boundary on both axes: chunks (0..1, 0..1).
	atomic.StoreInt32(&loader.calls, 0)
	data, err = arr.Slice(context.Background(), []int{2, 2}, []int{2, 2})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 4 {
		t.Errorf("expected 4 tile loads, got %d", got)
	}
	expected := []float64{
		11, 12,
		21, 22,
	}
	for i, v := range data.Values() {
		if v != expected[i] {
			t.Fatalf("value %d: expected %g, got %g (all: %v)", i, expected[i], v, data.Values())
		}
	}
}

func TestSlice_TrailingRemainderChunk(t *testing.T) {
	chunks := [][]int{{3, 3, 3, 1}, {3, 3, 3, 2}}
	loader := &fakeLoader{chunks: chunks}
	arr := newTestArray(t, chunks, loader)

	// The last row lives in the remainder chunks (3, *).
	data, err := arr.Slice(context.Background(), []int{9, 9}, []int{1, 2})
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if got := atomic.LoadInt32(&loader.calls); got != 1 {
		t.Errorf("expected 1 tile load, got %d", got)
	}
	// Chunk (3, 3) value: 4*10 + 4.
	for _, v := range data.Values() {
		if v != 44 {
			t.Fatalf("expected 44, got %v", data.Values())
		}
	}
}

func TestSlice_OutOfRange(t *testing.T) {
	chunks := [][]int{{2, 2}}
	arr := newTestArray(t, chunks, &fakeLoader{chunks: chunks})

	if _, err := arr.Slice(context.Background(), []int{3}, []int{2}); err == nil {
		t.Error("expected error for out-of-range slice")
	}
	if _, err := arr.Slice(context.Background(), []int{0}, []int{0}); err == nil {
		t.Error("expected error for zero count")
	}
	if _, err := arr.Slice(context.Background(), []int{0, 0}, []int{1, 1}); err == nil {
		t.Error("expected error for wrong arity")
	}
}

func TestCompute_PropagatesTileError(t *testing.T) {
	chunks := [][]int{{2, 2}, {2, 2}}
	loader := &fakeLoader{chunks: chunks, failOn: "1.0"}
	arr := newTestArray(t, chunks, loader)

	_, err := arr.Compute(context.Background())
	if err == nil {
		t.Fatal("expected error from failing tile")
	}
	if !strings.Contains(err.Error(), "unavailable") {
		t.Errorf("expected tile error, got: %v", err)
	}

	// A slice avoiding the failing chunk still succeeds.
	if _, err := arr.Slice(context.Background(), []int{0, 0}, []int{2, 4}); err != nil {
		t.Errorf("expected sibling chunks to stay readable, got: %v", err)
	}
}

func TestCompute_RejectsWrongChunkShape(t *testing.T) {
	chunks := [][]int{{2, 2}}
	loader := &fakeLoader{chunks: chunks, badShape: true}
	arr := newTestArray(t, chunks, loader)

	_, err := arr.Compute(context.Background())
	if err == nil {
		t.Fatal("expected error for mis-shaped tile")
	}
	if !strings.Contains(err.Error(), "expected") {
		t.Errorf("expected shape error, got: %v", err)
	}
}

func TestCompute_ReinvokesTasksOnEachAccess(t *testing.T) {
	chunks := [][]int{{2, 2}}
	loader := &fakeLoader{chunks: chunks}
	arr := newTestArray(t, chunks, loader)

	for i := 0; i < 2; i++ {
		if _, err := arr.Compute(context.Background()); err != nil {
			t.Fatalf("Compute %d: %v", i, err)
		}
	}
	// No memoization in the engine: 2 chunks x 2 accesses.
	if got := atomic.LoadInt32(&loader.calls); got != 4 {
		t.Errorf("expected 4 tile loads, got %d", got)
	}
}
