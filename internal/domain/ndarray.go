// Package domain provides the array and chunk-grid math for tiled coverages.
package domain

import (
	"fmt"
)

// NDArray is a dense n-dimensional array of float64 values stored row-major
// (first axis varies slowest).
type NDArray struct {
	shape   []int
	strides []int
	data    []float64
}

// NewNDArray creates a zero-filled array with the given shape.
func NewNDArray(shape []int) (*NDArray, error) {
	size, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	return &NDArray{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    make([]float64, size),
	}, nil
}

// Reshape wraps a flat value slice as an array of the given shape.
// Fails if the element count does not match the product of the shape.
func Reshape(values []float64, shape []int) (*NDArray, error) {
	size, err := checkShape(shape)
	if err != nil {
		return nil, err
	}
	if len(values) != size {
		return nil, fmt.Errorf("cannot reshape %d values into shape %v (%d elements)", len(values), shape, size)
	}
	return &NDArray{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    values,
	}, nil
}

func checkShape(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("shape must have at least one axis")
	}
	size := 1
	for i, extent := range shape {
		if extent <= 0 {
			return 0, fmt.Errorf("shape entry %d must be positive, got %d", i, extent)
		}
		size *= extent
	}
	return size, nil
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// Shape returns the extent of each axis.
func (a *NDArray) Shape() []int {
	return append([]int(nil), a.shape...)
}

// NDim returns the number of axes.
func (a *NDArray) NDim() int {
	return len(a.shape)
}

// Size returns the total number of elements.
func (a *NDArray) Size() int {
	return len(a.data)
}

// Values returns the flat row-major backing slice.
func (a *NDArray) Values() []float64 {
	return a.data
}

// At returns the value at the given coordinates.
func (a *NDArray) At(coords ...int) (float64, error) {
	offset, err := a.offsetOf(coords)
	if err != nil {
		return 0, err
	}
	return a.data[offset], nil
}

func (a *NDArray) offsetOf(coords []int) (int, error) {
	if len(coords) != len(a.shape) {
		return 0, fmt.Errorf("expected %d coordinates, got %d", len(a.shape), len(coords))
	}
	offset := 0
	for i, c := range coords {
		if c < 0 || c >= a.shape[i] {
			return 0, fmt.Errorf("coordinate %d out of range on axis %d (extent %d)", c, i, a.shape[i])
		}
		offset += c * a.strides[i]
	}
	return offset, nil
}

// SetRegion copies block into the receiver with its origin at offset.
// The block must fit entirely within the receiver.
func (a *NDArray) SetRegion(offset []int, block *NDArray) error {
	if len(offset) != len(a.shape) {
		return fmt.Errorf("expected %d offsets, got %d", len(a.shape), len(offset))
	}
	if block.NDim() != a.NDim() {
		return fmt.Errorf("block has %d axes, array has %d", block.NDim(), a.NDim())
	}
	for i := range offset {
		if offset[i] < 0 || offset[i]+block.shape[i] > a.shape[i] {
			return fmt.Errorf("block extent %d at offset %d exceeds axis %d extent %d",
				block.shape[i], offset[i], i, a.shape[i])
		}
	}
	coords := make([]int, a.NDim())
	a.copyRegion(offset, block, coords, 0, false)
	return nil
}

// Region extracts a copy of the rectangular sub-block described by a
// per-axis start and count.
func (a *NDArray) Region(start, count []int) (*NDArray, error) {
	if len(start) != len(a.shape) || len(count) != len(a.shape) {
		return nil, fmt.Errorf("expected %d start/count entries, got %d/%d", len(a.shape), len(start), len(count))
	}
	for i := range start {
		if count[i] <= 0 {
			return nil, fmt.Errorf("count on axis %d must be positive, got %d", i, count[i])
		}
		if start[i] < 0 || start[i]+count[i] > a.shape[i] {
			return nil, fmt.Errorf("region [%d, %d) out of range on axis %d (extent %d)",
				start[i], start[i]+count[i], i, a.shape[i])
		}
	}
	out, err := NewNDArray(count)
	if err != nil {
		return nil, err
	}
	coords := make([]int, a.NDim())
	a.copyRegion(start, out, coords, 0, true)
	return out, nil
}

// copyRegion walks the block's outer coordinates recursively and copies
// whole innermost-axis runs, which are contiguous in both arrays. When
// extract is true, values flow from the receiver into block; otherwise
// from block into the receiver.
func (a *NDArray) copyRegion(offset []int, block *NDArray, coords []int, axis int, extract bool) {
	last := len(coords) - 1
	if axis == last {
		aOff := 0
		bOff := 0
		for i := 0; i < last; i++ {
			aOff += (offset[i] + coords[i]) * a.strides[i]
			bOff += coords[i] * block.strides[i]
		}
		aOff += offset[last] * a.strides[last]
		run := block.shape[last]
		if extract {
			copy(block.data[bOff:bOff+run], a.data[aOff:aOff+run])
		} else {
			copy(a.data[aOff:aOff+run], block.data[bOff:bOff+run])
		}
		return
	}
	for c := 0; c < block.shape[axis]; c++ {
		coords[axis] = c
		a.copyRegion(offset, block, coords, axis+1, extract)
	}
}
