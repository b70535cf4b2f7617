package imgwarp

import (
	"fmt"
	"math"

	"github.com/openfluke/warp/tensor"
)

// WarpAffine resamples src according to a batch of 2x3 affine matrices.
// src has shape (B,C,H,W), m has shape (B,2,3) mapping source to
// destination coordinates, and the output has shape (B,C,outH,outW).
// Sampling is inverse-mapping bilinear with zero padding outside the
// source plane.
func WarpAffine[T tensor.Float](src, m *tensor.Tensor[T], outH, outW int) (*tensor.Tensor[T], error) {
	if src == nil || m == nil {
		return nil, fmt.Errorf("imgwarp: nil argument to WarpAffine")
	}
	if src.Rank() != 4 {
		return nil, fmt.Errorf("imgwarp: src must have shape (B,C,H,W), got %v", src.Shape)
	}
	if m.Rank() != 3 || m.Shape[1] != 2 || m.Shape[2] != 3 {
		return nil, fmt.Errorf("imgwarp: matrix must have shape (B,2,3), got %v", m.Shape)
	}
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("imgwarp: invalid output size %dx%d", outH, outW)
	}
	batch, channels, inH, inW := src.Shape[0], src.Shape[1], src.Shape[2], src.Shape[3]
	if m.Shape[0] != batch {
		return nil, fmt.Errorf("imgwarp: matrix batch %d does not match image batch %d",
			m.Shape[0], batch)
	}

	out := tensor.New[T](batch, channels, outH, outW)
	for b := 0; b < batch; b++ {
		// The matrix maps src -> dst, so each output pixel samples the
		// source through the inverse.
		inv, err := InvertAffine(m.Data[b*6 : b*6+6])
		if err != nil {
			return nil, err
		}
		for c := 0; c < channels; c++ {
			srcPlane := src.Data[(b*channels+c)*inH*inW:]
			dstPlane := out.Data[(b*channels+c)*outH*outW:]
			warpPlane(srcPlane, dstPlane, inv, inH, inW, outH, outW)
		}
	}
	return out, nil
}

// warpPlane fills one (outH,outW) destination plane by bilinear sampling
// of an (inH,inW) source plane through an inverse 2x3 matrix.
func warpPlane[T tensor.Float](src, dst []T, inv []T, inH, inW, outH, outW int) {
	m00, m01, m02 := float64(inv[0]), float64(inv[1]), float64(inv[2])
	m10, m11, m12 := float64(inv[3]), float64(inv[4]), float64(inv[5])

	for oy := 0; oy < outH; oy++ {
		for ox := 0; ox < outW; ox++ {
			xs := m00*float64(ox) + m01*float64(oy) + m02
			ys := m10*float64(ox) + m11*float64(oy) + m12

			x0 := int(math.Floor(xs))
			y0 := int(math.Floor(ys))
			fx := xs - float64(x0)
			fy := ys - float64(y0)

			var acc float64
			acc += sample(src, inH, inW, y0, x0) * (1 - fx) * (1 - fy)
			acc += sample(src, inH, inW, y0, x0+1) * fx * (1 - fy)
			acc += sample(src, inH, inW, y0+1, x0) * (1 - fx) * fy
			acc += sample(src, inH, inW, y0+1, x0+1) * fx * fy

			dst[oy*outW+ox] = T(acc)
		}
	}
}

// sample reads src[y][x], returning 0 outside the plane.
func sample[T tensor.Float](src []T, h, w, y, x int) float64 {
	if y < 0 || y >= h || x < 0 || x >= w {
		return 0
	}
	return float64(src[y*w+x])
}
