// Package imgio converts between standard library images and the (C,H,W)
// float tensors consumed by the affine operations. Pixel values are scaled
// to [0,1]; channel order is RGB.
package imgio

import (
	"fmt"
	"image"
	"image/color"
	"io"

	// Register the common decoders.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/openfluke/warp/tensor"
)

// Decode reads an image (png, jpeg or webp) and converts it to RGBA.
func Decode(r io.Reader) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imgio: decode failed: %w", err)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts any image to *image.RGBA.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// Resize scales an image to width x height with bilinear filtering.
func Resize(img image.Image, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("imgio: invalid size %dx%d", width, height)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// ToTensor converts an image to a (3,H,W) float32 tensor with values in
// [0,1].
func ToTensor(img image.Image) *tensor.Tensor[float32] {
	bounds := img.Bounds()
	h, w := bounds.Dy(), bounds.Dx()
	size := h * w

	t := tensor.New[float32](3, h, w)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			t.Data[idx] = float32(r>>8) / 255.0
			t.Data[size+idx] = float32(g>>8) / 255.0
			t.Data[2*size+idx] = float32(b>>8) / 255.0
			idx++
		}
	}
	return t
}

// FromTensor converts a (3,H,W) or (1,H,W) tensor back to an RGBA image,
// clamping values to [0,1].
func FromTensor(t *tensor.Tensor[float32]) (*image.RGBA, error) {
	if t == nil || t.Rank() != 3 {
		return nil, fmt.Errorf("imgio: tensor must have shape (C,H,W)")
	}
	channels, h, w := t.Shape[0], t.Shape[1], t.Shape[2]
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("imgio: unsupported channel count %d", channels)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	size := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			r := clampByte(t.Data[idx])
			g, b := r, r
			if channels == 3 {
				g = clampByte(t.Data[size+idx])
				b = clampByte(t.Data[2*size+idx])
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img, nil
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Normalize applies (v-mean)/std per channel in place. The tensor must be
// (3,H,W) or (B,3,H,W).
func Normalize(t *tensor.Tensor[float32], mean, std [3]float32) error {
	if t == nil || (t.Rank() != 3 && t.Rank() != 4) {
		return fmt.Errorf("imgio: tensor must have shape (3,H,W) or (B,3,H,W)")
	}
	chDim := 0
	if t.Rank() == 4 {
		chDim = 1
	}
	if t.Shape[chDim] != 3 {
		return fmt.Errorf("imgio: expected 3 channels, got %d", t.Shape[chDim])
	}
	size := t.Shape[chDim+1] * t.Shape[chDim+2]
	batch := 1
	if t.Rank() == 4 {
		batch = t.Shape[0]
	}

	for b := 0; b < batch; b++ {
		for c := 0; c < 3; c++ {
			plane := t.Data[(b*3+c)*size : (b*3+c+1)*size]
			for i := range plane {
				plane[i] = (plane[i] - mean[c]) / std[c]
			}
		}
	}
	return nil
}
