// Package imgwarp provides the resampling primitives behind the affine
// package: 2D rotation-matrix construction and inverse-mapping bilinear
// warping of (B,C,H,W) tensors. Kernels are straightforward CPU reference
// implementations; the gpu package offers a WebGPU pipeline with the same
// contract.
package imgwarp

import (
	"fmt"
	"math"

	"github.com/openfluke/warp/tensor"
)

// GetRotationMatrix2D builds a batch of 2x3 affine matrices encoding a
// rotation about center by angle degrees (anti-clockwise) with uniform
// scale. center has shape (B,2) with cx,cy in pixel coordinates, angle and
// scale have shape (B). The result has shape (B,2,3).
//
// The composition matches the usual rotation-about-point form:
//
//	[ a  b  (1-a)*cx - b*cy ]
//	[-b  a  b*cx + (1-a)*cy ]
//
// with a = scale*cos(angle), b = scale*sin(angle).
func GetRotationMatrix2D[T tensor.Float](center, angle, scale *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	if center == nil || angle == nil || scale == nil {
		return nil, fmt.Errorf("imgwarp: nil argument to GetRotationMatrix2D")
	}
	if center.Rank() != 2 || center.Shape[1] != 2 {
		return nil, fmt.Errorf("imgwarp: center must have shape (B,2), got %v", center.Shape)
	}
	batch := center.Shape[0]
	if angle.Size() != batch || scale.Size() != batch {
		return nil, fmt.Errorf("imgwarp: batch mismatch, center %d angle %d scale %d",
			batch, angle.Size(), scale.Size())
	}

	out := tensor.New[T](batch, 2, 3)
	for i := 0; i < batch; i++ {
		rad := float64(angle.Data[i]) * math.Pi / 180
		s := float64(scale.Data[i])
		a := s * math.Cos(rad)
		b := s * math.Sin(rad)
		cx := float64(center.Data[i*2+0])
		cy := float64(center.Data[i*2+1])

		m := out.Data[i*6:]
		m[0] = T(a)
		m[1] = T(b)
		m[2] = T((1-a)*cx - b*cy)
		m[3] = T(-b)
		m[4] = T(a)
		m[5] = T(b*cx + (1-a)*cy)
	}
	return out, nil
}

// InvertAffine inverts a single 2x3 affine matrix given as 6 row-major
// values [a b c d e f]. It returns an error when the linear part is
// singular.
func InvertAffine[T tensor.Float](m []T) ([]T, error) {
	if len(m) != 6 {
		return nil, fmt.Errorf("imgwarp: affine matrix needs 6 values, got %d", len(m))
	}
	a, b, c := float64(m[0]), float64(m[1]), float64(m[2])
	d, e, f := float64(m[3]), float64(m[4]), float64(m[5])

	det := a*e - b*d
	if det == 0 {
		return nil, fmt.Errorf("imgwarp: singular affine matrix %v", m)
	}
	ia, ib := e/det, -b/det
	id, ie := -d/det, a/det
	return []T{
		T(ia), T(ib), T(-(ia*c + ib*f)),
		T(id), T(ie), T(-(id*c + ie*f)),
	}, nil
}
