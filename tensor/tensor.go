// Package tensor provides a minimal dense tensor for image-shaped numeric
// data. Layout is row-major; an image is (C,H,W), a batch of images is
// (B,C,H,W). The type carries no device handle: data always lives in host
// memory and execution backends (CPU kernels, GPU pipelines) copy it as
// needed.
package tensor

import (
	"fmt"
	"strings"
)

// Float is the set of element types supported by the kernels.
type Float interface {
	~float32 | ~float64
}

// Tensor is a dense row-major tensor.
type Tensor[T Float] struct {
	Data    []T
	Shape   []int
	Strides []int
}

// New creates a zero-filled tensor with the given shape. A call with no
// dimensions yields a scalar (rank 0, one element).
func New[T Float](shape ...int) *Tensor[T] {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor[T]{
		Data:    make([]T, n),
		Shape:   append([]int(nil), shape...),
		Strides: stridesFor(shape),
	}
}

// FromSlice creates a tensor wrapping a copy of data. The product of the
// shape must equal len(data).
func FromSlice[T Float](data []T, shape ...int) (*Tensor[T], error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("tensor: shape %v needs %d elements, got %d", shape, n, len(data))
	}
	t := New[T](shape...)
	copy(t.Data, data)
	return t, nil
}

// Scalar creates a rank-0 tensor holding a single value.
func Scalar[T Float](v T) *Tensor[T] {
	t := New[T]()
	t.Data[0] = v
	return t
}

func stridesFor(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
}

// Size returns the total number of elements.
func (t *Tensor[T]) Size() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Rank returns the number of dimensions.
func (t *Tensor[T]) Rank() int { return len(t.Shape) }

// Clone returns a deep copy.
func (t *Tensor[T]) Clone() *Tensor[T] {
	c := New[T](t.Shape...)
	copy(c.Data, t.Data)
	return c
}

// Reshape returns a copy of t with a new shape of the same total size.
func (t *Tensor[T]) Reshape(shape ...int) (*Tensor[T], error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != t.Size() {
		return nil, fmt.Errorf("tensor: cannot reshape %v to %v", t.Shape, shape)
	}
	c := t.Clone()
	c.Shape = append([]int(nil), shape...)
	c.Strides = stridesFor(shape)
	return c, nil
}

// offset computes the flat index for idx, panicking when idx is out of
// bounds or has the wrong arity.
func (t *Tensor[T]) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank-%d tensor", len(idx), len(t.Shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.Shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range [0,%d) in dim %d", x, t.Shape[i], i))
		}
		off += x * t.Strides[i]
	}
	return off
}

// At returns the element at idx. Panics on out-of-bounds access.
func (t *Tensor[T]) At(idx ...int) T { return t.Data[t.offset(idx)] }

// Set stores v at idx. Panics on out-of-bounds access.
func (t *Tensor[T]) Set(v T, idx ...int) { t.Data[t.offset(idx)] = v }

// SameShape reports whether t and o have identical shapes.
func (t *Tensor[T]) SameShape(o *Tensor[T]) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// Equal reports whether t and o have the same shape and exactly equal
// elements.
func (t *Tensor[T]) Equal(o *Tensor[T]) bool {
	if !t.SameShape(o) {
		return false
	}
	for i := range t.Data {
		if t.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

func (t *Tensor[T]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tensor%v", t.Shape)
	if t.Size() <= 12 {
		fmt.Fprintf(&b, "%v", t.Data)
	}
	return b.String()
}
