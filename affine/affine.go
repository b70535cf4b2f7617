// Package affine rotates, translates and scales image tensors through 2D
// affine warps. Images are (C,H,W) or batched (B,C,H,W) tensors; every
// operation builds a batch of 3x3 homogeneous matrices, hands the top 2x3
// rows to a warp backend and returns an image of the same rank and spatial
// size as the input.
//
// The default backend is the CPU kernel in package imgwarp. A WebGPU
// backend can be plugged in through an Engine:
//
//	w, _ := gpu.NewWarper()
//	out, err := affine.NewEngine[float32](w).Rotate(img, angle, nil)
package affine

import (
	"github.com/openfluke/warp/imgwarp"
	"github.com/openfluke/warp/tensor"
)

// Warper resamples a (B,C,H,W) tensor through a (B,2,3) affine matrix
// batch. The imgwarp CPU kernel and the gpu pipeline both satisfy it.
type Warper[T tensor.Float] interface {
	WarpAffine(src, m *tensor.Tensor[T], outH, outW int) (*tensor.Tensor[T], error)
}

// Engine binds the affine operations to a warp backend. The zero value
// (nil Warp) uses the CPU kernel.
type Engine[T tensor.Float] struct {
	Warp Warper[T]
}

// NewEngine creates an Engine running on the given backend.
func NewEngine[T tensor.Float](w Warper[T]) *Engine[T] {
	return &Engine[T]{Warp: w}
}

func (e *Engine[T]) warp(src, m *tensor.Tensor[T], outH, outW int) (*tensor.Tensor[T], error) {
	if e.Warp != nil {
		return e.Warp.WarpAffine(src, m, outH, outW)
	}
	return imgwarp.WarpAffine(src, m, outH, outW)
}

// tensorCenter computes the center of the image plane from the trailing
// two dimensions: ((W-1)/2, (H-1)/2).
func tensorCenter[T tensor.Float](t *tensor.Tensor[T]) *tensor.Tensor[T] {
	h := t.Shape[t.Rank()-2]
	w := t.Shape[t.Rank()-1]
	c := tensor.New[T](2)
	c.Data[0] = T(float64(w-1) / 2)
	c.Data[1] = T(float64(h-1) / 2)
	return c
}

// batchOf returns the batch size of a rank-3 (1) or rank-4 image tensor.
func batchOf[T tensor.Float](t *tensor.Tensor[T]) int {
	if t.Rank() == 4 {
		return t.Shape[0]
	}
	return 1
}

// expandScalar broadcasts a per-image scalar (rank 0, or rank 1 of size 1
// or batch) to shape (batch,).
func expandScalar[T tensor.Float](t *tensor.Tensor[T], batch int, op, arg string) (*tensor.Tensor[T], error) {
	if t.Rank() > 1 {
		return nil, &BroadcastError{Op: op, Arg: arg, Got: t.Size(), Want: batch}
	}
	n := t.Size()
	if n != 1 && n != batch {
		return nil, &BroadcastError{Op: op, Arg: arg, Got: n, Want: batch}
	}
	out := tensor.New[T](batch)
	for i := 0; i < batch; i++ {
		out.Data[i] = t.Data[i%n]
	}
	return out, nil
}

// expandVec2 broadcasts a 2-vector batch ((2,), (1,2) or (batch,2)) to
// shape (batch,2).
func expandVec2[T tensor.Float](t *tensor.Tensor[T], batch int, op, arg string) (*tensor.Tensor[T], error) {
	var rows int
	switch {
	case t.Rank() == 1 && t.Shape[0] == 2:
		rows = 1
	case t.Rank() == 2 && t.Shape[1] == 2:
		rows = t.Shape[0]
	default:
		return nil, &BroadcastError{Op: op, Arg: arg, Got: t.Size(), Want: batch}
	}
	if rows != 1 && rows != batch {
		return nil, &BroadcastError{Op: op, Arg: arg, Got: rows, Want: batch}
	}
	out := tensor.New[T](batch, 2)
	for i := 0; i < batch; i++ {
		out.Data[i*2+0] = t.Data[(i%rows)*2+0]
		out.Data[i*2+1] = t.Data[(i%rows)*2+1]
	}
	return out, nil
}

// rotationMatrix builds (B,3,3) rotation matrices about center with unit
// scale. angle is (B,) in degrees anti-clockwise, center is (B,2).
func rotationMatrix[T tensor.Float](angle, center *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	ones := tensor.New[T](angle.Shape[0])
	for i := range ones.Data {
		ones.Data[i] = 1
	}
	m, err := imgwarp.GetRotationMatrix2D(center, angle, ones)
	if err != nil {
		return nil, err
	}
	return homogeneous(m), nil
}

// translationMatrix builds (B,3,3) matrices shifting by translation, one
// identity per batch entry with dx in (0,2) and dy in (1,2).
func translationMatrix[T tensor.Float](translation *tensor.Tensor[T]) *tensor.Tensor[T] {
	batch := translation.Shape[0]
	out := tensor.New[T](batch, 3, 3)
	for i := 0; i < batch; i++ {
		m := out.Data[i*9:]
		m[0], m[4], m[8] = 1, 1, 1
		m[2] += translation.Data[i*2+0]
		m[5] += translation.Data[i*2+1]
	}
	return out
}

// scalingMatrix builds (B,3,3) scaling matrices about center with zero
// angle. factor is (B,), center is (B,2).
func scalingMatrix[T tensor.Float](factor, center *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	zeros := tensor.New[T](factor.Shape[0])
	m, err := imgwarp.GetRotationMatrix2D(center, zeros, factor)
	if err != nil {
		return nil, err
	}
	return homogeneous(m), nil
}

// homogeneous appends the [0,0,1] row to a (B,2,3) batch, yielding (B,3,3).
func homogeneous[T tensor.Float](m *tensor.Tensor[T]) *tensor.Tensor[T] {
	batch := m.Shape[0]
	out := tensor.New[T](batch, 3, 3)
	for i := 0; i < batch; i++ {
		copy(out.Data[i*9:i*9+6], m.Data[i*6:i*6+6])
		out.Data[i*9+8] = 1
	}
	return out
}

// topRows slices the leading 2 rows and 3 columns of a (B,3,3) batch.
func topRows[T tensor.Float](m *tensor.Tensor[T]) *tensor.Tensor[T] {
	batch := m.Shape[0]
	out := tensor.New[T](batch, 2, 3)
	for i := 0; i < batch; i++ {
		copy(out.Data[i*6:i*6+6], m.Data[i*9:i*9+6])
	}
	return out
}

// Affine applies a 2x3 affine transformation to the image using the
// engine's warp backend. t is (C,H,W) or (B,C,H,W); m is (2,3), (1,2,3) or
// (B,2,3). The output has the rank and spatial size of the input.
func (e *Engine[T]) Affine(t, m *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if t == nil {
		return nil, &NilArgumentError{Op: "affine", Arg: "tensor"}
	}
	if m == nil {
		return nil, &NilArgumentError{Op: "affine", Arg: "matrix"}
	}
	if r := t.Rank(); r != 3 && r != 4 {
		return nil, &RankError{Op: "affine", Shape: t.Shape}
	}
	return e.affine(t, m)
}

// affine is the rank-normalizing applier: wrap rank 3 to a batch of one,
// broadcast the matrix batch, warp at the input's own spatial size, then
// restore the original rank.
func (e *Engine[T]) affine(t, m *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	unbatched := t.Rank() == 3
	if unbatched {
		var err error
		t, err = t.Reshape(append([]int{1}, t.Shape...)...)
		if err != nil {
			return nil, err
		}
	}
	batch := t.Shape[0]

	m, err := expandMatrix(m, batch)
	if err != nil {
		return nil, err
	}

	h, w := t.Shape[2], t.Shape[3]
	warped, err := e.warp(t, m, h, w)
	if err != nil {
		return nil, err
	}

	if unbatched {
		return warped.Reshape(warped.Shape[1:]...)
	}
	return warped, nil
}

// expandMatrix broadcasts a matrix batch ((2,3), (1,2,3) or (batch,2,3))
// to shape (batch,2,3).
func expandMatrix[T tensor.Float](m *tensor.Tensor[T], batch int) (*tensor.Tensor[T], error) {
	var rows int
	switch {
	case m.Rank() == 2 && m.Shape[0] == 2 && m.Shape[1] == 3:
		rows = 1
	case m.Rank() == 3 && m.Shape[1] == 2 && m.Shape[2] == 3:
		rows = m.Shape[0]
	default:
		return nil, &BroadcastError{Op: "affine", Arg: "matrix", Got: m.Size(), Want: batch}
	}
	if rows != 1 && rows != batch {
		return nil, &BroadcastError{Op: "affine", Arg: "matrix", Got: rows, Want: batch}
	}
	out := tensor.New[T](batch, 2, 3)
	for i := 0; i < batch; i++ {
		copy(out.Data[i*6:i*6+6], m.Data[(i%rows)*6:(i%rows)*6+6])
	}
	return out, nil
}

// Rotate rotates the image anti-clockwise about center by angle degrees.
// angle holds one value per image (scalar, batch-1 or batch-B); center is
// a (2,) or (B,2) pivot in pixel coordinates, nil for the image center.
func (e *Engine[T]) Rotate(t, angle, center *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if t == nil {
		return nil, &NilArgumentError{Op: "rotate", Arg: "tensor"}
	}
	if angle == nil {
		return nil, &NilArgumentError{Op: "rotate", Arg: "angle"}
	}
	if r := t.Rank(); r != 3 && r != 4 {
		return nil, &RankError{Op: "rotate", Shape: t.Shape}
	}
	if center == nil {
		center = tensorCenter(t)
	}

	batch := batchOf(t)
	angleB, err := expandScalar(angle, batch, "rotate", "angle")
	if err != nil {
		return nil, err
	}
	centerB, err := expandVec2(center, batch, "rotate", "center")
	if err != nil {
		return nil, err
	}

	m, err := rotationMatrix(angleB, centerB)
	if err != nil {
		return nil, err
	}
	return e.affine(t, topRows(m))
}

// Translate shifts the image by translation pixels, one (dx,dy) per image
// ((2,) or (B,2)). Translation is mandatory.
func (e *Engine[T]) Translate(t, translation *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if t == nil {
		return nil, &NilArgumentError{Op: "translate", Arg: "tensor"}
	}
	if translation == nil {
		return nil, &NilArgumentError{Op: "translate", Arg: "translation"}
	}
	if r := t.Rank(); r != 3 && r != 4 {
		return nil, &RankError{Op: "translate", Shape: t.Shape}
	}

	batch := batchOf(t)
	translationB, err := expandVec2(translation, batch, "translate", "translation")
	if err != nil {
		return nil, err
	}

	m := translationMatrix(translationB)
	return e.affine(t, topRows(m))
}

// Scale resizes image content about center by factor (1.0 is identity).
// factor holds one value per image; center defaults to the image center.
func (e *Engine[T]) Scale(t, factor, center *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if t == nil {
		return nil, &NilArgumentError{Op: "scale", Arg: "tensor"}
	}
	if factor == nil {
		return nil, &NilArgumentError{Op: "scale", Arg: "scale_factor"}
	}
	if r := t.Rank(); r != 3 && r != 4 {
		return nil, &RankError{Op: "scale", Shape: t.Shape}
	}
	if center == nil {
		center = tensorCenter(t)
	}

	batch := batchOf(t)
	factorB, err := expandScalar(factor, batch, "scale", "scale_factor")
	if err != nil {
		return nil, err
	}
	centerB, err := expandVec2(center, batch, "scale", "center")
	if err != nil {
		return nil, err
	}

	m, err := scalingMatrix(factorB, centerB)
	if err != nil {
		return nil, err
	}
	return e.affine(t, topRows(m))
}

// Affine applies a 2x3 matrix with the CPU backend.
func Affine[T tensor.Float](t, m *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return (&Engine[T]{}).Affine(t, m)
}

// Rotate rotates with the CPU backend. See Engine.Rotate.
func Rotate[T tensor.Float](t, angle, center *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return (&Engine[T]{}).Rotate(t, angle, center)
}

// Translate shifts with the CPU backend. See Engine.Translate.
func Translate[T tensor.Float](t, translation *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return (&Engine[T]{}).Translate(t, translation)
}

// Scale resizes with the CPU backend. See Engine.Scale.
func Scale[T tensor.Float](t, factor, center *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return (&Engine[T]{}).Scale(t, factor, center)
}
