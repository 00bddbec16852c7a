// Package tensor implements the small dense-array engine behind the
// attention tower: float32 storage with shape/stride bookkeeping,
// batched matrix multiply, softmax, broadcasting addition, and the
// random initializers applied at construction time.
package tensor

import (
	"fmt"
	"math"
)

// Tensor is an n-dimensional array of float32 values stored flat in
// row-major order. All constructors produce contiguous tensors.
type Tensor struct {
	Data    []float32
	Shape   []int
	Strides []int
}

// New creates a zero-filled tensor with the given shape.
func New(shape []int) *Tensor {
	size := 1
	for _, dim := range shape {
		size *= dim
	}
	return &Tensor{
		Data:    make([]float32, size),
		Shape:   copyShape(shape),
		Strides: computeStrides(shape),
	}
}

// FromSlice creates a tensor that owns a copy of data, laid out in the
// given shape. Returns an error if the element count does not match.
func FromSlice(data []float32, shape []int) (*Tensor, error) {
	size := 1
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("invalid dimension %d in shape %v", dim, shape)
		}
		size *= dim
	}
	if len(data) != size {
		return nil, fmt.Errorf("data has %d elements, shape %v needs %d", len(data), shape, size)
	}

	owned := make([]float32, len(data))
	copy(owned, data)
	return &Tensor{
		Data:    owned,
		Shape:   copyShape(shape),
		Strides: computeStrides(shape),
	}, nil
}

// Full creates a tensor with every element set to value.
func Full(shape []int, value float32) *Tensor {
	t := New(shape)
	for i := range t.Data {
		t.Data[i] = value
	}
	return t
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	out := New(t.Shape)
	copy(out.Data, t.Data)
	return out
}

// Size returns the total number of elements.
func (t *Tensor) Size() int {
	size := 1
	for _, dim := range t.Shape {
		size *= dim
	}
	return size
}

// NumDims returns the rank of the tensor.
func (t *Tensor) NumDims() int {
	return len(t.Shape)
}

// FlatIndex converts a multi-dimensional index to a flat offset.
// Panics on rank or bounds violations; indexing bugs are programmer
// errors, not runtime conditions.
func (t *Tensor) FlatIndex(indices []int) int {
	if len(indices) != len(t.Shape) {
		panic(fmt.Sprintf("index rank %d does not match tensor rank %d", len(indices), len(t.Shape)))
	}
	idx := 0
	for i, j := range indices {
		if j < 0 || j >= t.Shape[i] {
			panic(fmt.Sprintf("index %d out of range for dimension %d with size %d", j, i, t.Shape[i]))
		}
		idx += j * t.Strides[i]
	}
	return idx
}

// Get retrieves the value at the given indices.
func (t *Tensor) Get(indices []int) float32 {
	return t.Data[t.FlatIndex(indices)]
}

// Set stores a value at the given indices.
func (t *Tensor) Set(indices []int, value float32) {
	t.Data[t.FlatIndex(indices)] = value
}

// View returns a tensor with a different shape sharing the same
// underlying data. Returns an error if the total size differs.
func (t *Tensor) View(shape []int) (*Tensor, error) {
	size := 1
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("invalid dimension %d in shape %v", dim, shape)
		}
		size *= dim
	}
	if size != len(t.Data) {
		return nil, fmt.Errorf("cannot view %d elements as shape %v", len(t.Data), shape)
	}
	return &Tensor{
		Data:    t.Data,
		Shape:   copyShape(shape),
		Strides: computeStrides(shape),
	}, nil
}

// Reshape is View for shapes known to be compatible; it panics on a
// size mismatch.
func (t *Tensor) Reshape(shape []int) *Tensor {
	out, err := t.View(shape)
	if err != nil {
		panic(err)
	}
	return out
}

// Transpose exchanges two dimensions, returning a contiguous copy.
func (t *Tensor) Transpose(dim1, dim2 int) (*Tensor, error) {
	if dim1 < 0 || dim1 >= len(t.Shape) || dim2 < 0 || dim2 >= len(t.Shape) {
		return nil, fmt.Errorf("cannot transpose dimensions %d and %d of a rank-%d tensor", dim1, dim2, len(t.Shape))
	}
	if dim1 == dim2 {
		return t.Clone(), nil
	}

	newShape := copyShape(t.Shape)
	newShape[dim1], newShape[dim2] = newShape[dim2], newShape[dim1]
	out := New(newShape)

	src := make([]int, len(t.Shape))
	dst := make([]int, len(t.Shape))
	for flat := 0; flat < len(t.Data); flat++ {
		copy(dst, src)
		dst[dim1], dst[dim2] = src[dim2], src[dim1]
		out.Data[out.FlatIndex(dst)] = t.Data[flat]
		increment(src, t.Shape)
	}
	return out, nil
}

// SliceLastDim copies the [start, end) range of the last axis,
// preserving all outer dimensions.
func (t *Tensor) SliceLastDim(start, end int) (*Tensor, error) {
	if len(t.Shape) == 0 {
		return nil, fmt.Errorf("cannot slice a scalar tensor")
	}
	last := t.Shape[len(t.Shape)-1]
	if start < 0 || end > last || start >= end {
		return nil, fmt.Errorf("invalid slice [%d, %d) of last dimension with size %d", start, end, last)
	}

	width := end - start
	outer := t.Size() / last
	newShape := copyShape(t.Shape)
	newShape[len(newShape)-1] = width

	out := New(newShape)
	for o := 0; o < outer; o++ {
		copy(out.Data[o*width:(o+1)*width], t.Data[o*last+start:o*last+end])
	}
	return out, nil
}

// Matmul multiplies over the last two dimensions. Supported forms:
//
//	(..., m, n) @ (..., n, p) -> (..., m, p)  with identical batch dims
//	(..., m, n) @ (n, p)      -> (..., m, p)  2D right operand broadcast
func Matmul(a, b *Tensor) (*Tensor, error) {
	if len(a.Shape) < 2 || len(b.Shape) < 2 {
		return nil, fmt.Errorf("matmul needs at least 2D operands, got %dD and %dD", len(a.Shape), len(b.Shape))
	}

	n := a.Shape[len(a.Shape)-1]
	if b.Shape[len(b.Shape)-2] != n {
		return nil, fmt.Errorf("incompatible shapes for matmul: %v @ %v", a.Shape, b.Shape)
	}

	if len(b.Shape) == 2 && len(a.Shape) > 2 {
		return matmulRight2D(a, b), nil
	}

	if len(a.Shape) != len(b.Shape) {
		return nil, fmt.Errorf("incompatible ranks for batched matmul: %v @ %v", a.Shape, b.Shape)
	}
	for i := 0; i < len(a.Shape)-2; i++ {
		if a.Shape[i] != b.Shape[i] {
			return nil, fmt.Errorf("batch dimensions differ for matmul: %v @ %v", a.Shape, b.Shape)
		}
	}
	return matmulBatched(a, b), nil
}

// matmulRight2D handles (..., m, n) @ (n, p).
func matmulRight2D(a, b *Tensor) *Tensor {
	m := a.Shape[len(a.Shape)-2]
	n := a.Shape[len(a.Shape)-1]
	p := b.Shape[1]

	batch := 1
	for _, dim := range a.Shape[:len(a.Shape)-2] {
		batch *= dim
	}

	outShape := append(copyShape(a.Shape[:len(a.Shape)-2]), m, p)
	out := New(outShape)

	for bi := 0; bi < batch; bi++ {
		aOff := bi * m * n
		oOff := bi * m * p
		for i := 0; i < m; i++ {
			for k := 0; k < p; k++ {
				sum := float32(0)
				for j := 0; j < n; j++ {
					sum += a.Data[aOff+i*n+j] * b.Data[j*p+k]
				}
				out.Data[oOff+i*p+k] = sum
			}
		}
	}
	return out
}

// matmulBatched handles operands with identical batch dimensions.
func matmulBatched(a, b *Tensor) *Tensor {
	m := a.Shape[len(a.Shape)-2]
	n := a.Shape[len(a.Shape)-1]
	p := b.Shape[len(b.Shape)-1]

	batch := 1
	for _, dim := range a.Shape[:len(a.Shape)-2] {
		batch *= dim
	}

	outShape := append(copyShape(a.Shape[:len(a.Shape)-2]), m, p)
	out := New(outShape)

	for bi := 0; bi < batch; bi++ {
		aOff := bi * m * n
		bOff := bi * n * p
		oOff := bi * m * p
		for i := 0; i < m; i++ {
			for k := 0; k < p; k++ {
				sum := float32(0)
				for j := 0; j < n; j++ {
					sum += a.Data[aOff+i*n+j] * b.Data[bOff+j*p+k]
				}
				out.Data[oOff+i*p+k] = sum
			}
		}
	}
	return out
}

// Scale multiplies every element by s, returning a new tensor.
func (t *Tensor) Scale(s float32) *Tensor {
	out := New(t.Shape)
	for i, v := range t.Data {
		out.Data[i] = v * s
	}
	return out
}

// Softmax normalizes along the given dimension with the usual
// max-subtraction for numerical stability. Every slice of the result
// along dim is non-negative and sums to 1.
func Softmax(t *Tensor, dim int) (*Tensor, error) {
	if dim < 0 || dim >= len(t.Shape) {
		return nil, fmt.Errorf("invalid softmax dimension %d for rank-%d tensor", dim, len(t.Shape))
	}

	n := t.Shape[dim]
	inner := 1
	for i := dim + 1; i < len(t.Shape); i++ {
		inner *= t.Shape[i]
	}
	outer := len(t.Data) / (n * inner)

	out := New(t.Shape)
	for o := 0; o < outer; o++ {
		base := o * n * inner
		for j := 0; j < inner; j++ {
			maxVal := float32(math.Inf(-1))
			for i := 0; i < n; i++ {
				if v := t.Data[base+i*inner+j]; v > maxVal {
					maxVal = v
				}
			}

			sum := float32(0)
			for i := 0; i < n; i++ {
				e := float32(math.Exp(float64(t.Data[base+i*inner+j] - maxVal)))
				out.Data[base+i*inner+j] = e
				sum += e
			}
			for i := 0; i < n; i++ {
				out.Data[base+i*inner+j] /= sum
			}
		}
	}
	return out, nil
}

// Add performs element-wise addition with NumPy-style broadcasting.
func Add(a, b *Tensor) (*Tensor, error) {
	shape, err := broadcastShapes(a.Shape, b.Shape)
	if err != nil {
		return nil, fmt.Errorf("cannot broadcast %v and %v: %w", a.Shape, b.Shape, err)
	}

	out := New(shape)
	idx := make([]int, len(shape))
	for flat := 0; flat < len(out.Data); flat++ {
		out.Data[flat] = a.Data[broadcastOffset(a, idx)] + b.Data[broadcastOffset(b, idx)]
		increment(idx, shape)
	}
	return out, nil
}

// broadcastShapes computes the common shape of two operands, aligning
// from the trailing dimension.
func broadcastShapes(a, b []int) ([]int, error) {
	rank := len(a)
	if len(b) > rank {
		rank = len(b)
	}

	out := make([]int, rank)
	for i := 0; i < rank; i++ {
		dimA, dimB := 1, 1
		if i < len(a) {
			dimA = a[len(a)-1-i]
		}
		if i < len(b) {
			dimB = b[len(b)-1-i]
		}
		if dimA != dimB && dimA != 1 && dimB != 1 {
			return nil, fmt.Errorf("dimensions %d and %d do not broadcast", dimA, dimB)
		}
		if dimA > dimB {
			out[rank-1-i] = dimA
		} else {
			out[rank-1-i] = dimB
		}
	}
	return out, nil
}

// broadcastOffset maps an output index to a flat offset in t, reading
// index 0 along any dimension t broadcasts over.
func broadcastOffset(t *Tensor, outIdx []int) int {
	off := 0
	lead := len(outIdx) - len(t.Shape)
	for i, size := range t.Shape {
		j := outIdx[lead+i]
		if size == 1 {
			j = 0
		}
		off += j * t.Strides[i]
	}
	return off
}

// increment advances a row-major index odometer by one position.
func increment(idx, shape []int) {
	for d := len(idx) - 1; d >= 0; d-- {
		idx[d]++
		if idx[d] < shape[d] {
			return
		}
		idx[d] = 0
	}
}

// Equals reports whether two tensors share a shape and agree
// element-wise within tolerance.
func (t *Tensor) Equals(other *Tensor, tolerance float32) bool {
	if !t.ShapeEquals(other) {
		return false
	}
	for i := range t.Data {
		if math.Abs(float64(t.Data[i]-other.Data[i])) > float64(tolerance) {
			return false
		}
	}
	return true
}

// ShapeEquals reports whether two tensors have identical shapes.
func (t *Tensor) ShapeEquals(other *Tensor) bool {
	if len(t.Shape) != len(other.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// AllFinite reports whether the tensor contains no NaN or Inf values.
func (t *Tensor) AllFinite() bool {
	for _, v := range t.Data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func computeStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

func copyShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}
