package affine

import (
	"strings"
	"testing"

	"github.com/openfluke/warp/tensor"
)

// TestTransformEquivalence verifies the bound transforms behave exactly
// like the free operations
func TestTransformEquivalence(t *testing.T) {
	img := randomImage(t, 2, 3, 5, 5)

	angle := tensor.Scalar[float32](35)
	offset, _ := tensor.FromSlice([]float32{2, -1}, 2)
	factor := tensor.Scalar[float32](1.5)

	var transforms []Transform[float32] = []Transform[float32]{
		NewRotation(angle, nil),
		NewTranslation(offset),
		NewScaling(factor, nil),
	}
	frees := []func() (*tensor.Tensor[float32], error){
		func() (*tensor.Tensor[float32], error) { return Rotate(img, angle, nil) },
		func() (*tensor.Tensor[float32], error) { return Translate(img, offset) },
		func() (*tensor.Tensor[float32], error) { return Scale(img, factor, nil) },
	}

	for i, tr := range transforms {
		got, err := tr.Apply(img)
		if err != nil {
			t.Fatalf("%v: Apply failed: %v", tr, err)
		}
		want, err := frees[i]()
		if err != nil {
			t.Fatalf("free operation %d failed: %v", i, err)
		}
		if !got.Equal(want) {
			t.Errorf("%v: Apply differs from free operation", tr)
		}
	}
}

// TestTransformDeferredValidation verifies construction never validates;
// errors surface on Apply
func TestTransformDeferredValidation(t *testing.T) {
	r := NewRotation[float32](nil, nil)
	if r == nil {
		t.Fatal("construction must succeed with nil parameters")
	}
	img := randomImage(t, 1, 4, 4)
	if _, err := r.Apply(img); err == nil {
		t.Error("expected error applying a rotation with nil angle")
	}

	tr := NewTranslation[float32](nil)
	if _, err := tr.Apply(img); err == nil {
		t.Error("expected error applying a translation with nil offset")
	}

	s := NewScaling[float32](nil, nil)
	if _, err := s.Apply(img); err == nil {
		t.Error("expected error applying a scaling with nil factor")
	}
}

// TestTransformString verifies the readable representations name their
// bound parameters
func TestTransformString(t *testing.T) {
	angle := tensor.Scalar[float32](45)
	s := NewRotation(angle, nil).String()
	if !strings.HasPrefix(s, "Rotation(angle=") {
		t.Errorf("unexpected representation %q", s)
	}

	offset, _ := tensor.FromSlice([]float32{3, -2}, 2)
	s = NewTranslation(offset).String()
	if !strings.Contains(s, "translation=") {
		t.Errorf("unexpected representation %q", s)
	}

	s = NewScaling(tensor.Scalar[float32](2), nil).String()
	if !strings.Contains(s, "scale_factor=") {
		t.Errorf("unexpected representation %q", s)
	}
}
