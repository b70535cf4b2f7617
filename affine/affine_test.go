package affine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfluke/warp/tensor"
)

func randomImage(t *testing.T, shape ...int) *tensor.Tensor[float32] {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := tensor.New[float32](shape...)
	for i := range img.Data {
		img.Data[i] = rng.Float32()
	}
	return img
}

// TestRotateZeroAngleIsIdentity verifies rotate(t, 0) reproduces the input
func TestRotateZeroAngleIsIdentity(t *testing.T) {
	for _, shape := range [][]int{{1, 4, 4}, {2, 3, 5, 5}} {
		img := randomImage(t, shape...)
		out, err := Rotate(img, tensor.Scalar[float32](0), nil)
		if err != nil {
			t.Fatalf("Rotate failed for %v: %v", shape, err)
		}
		if d := tensor.MaxAbsDiff(img, out); d > 1e-5 {
			t.Errorf("rotate by 0 changed the image, max diff %v", d)
		}
		if diff := cmp.Diff(img.Shape, out.Shape); diff != "" {
			t.Errorf("shape not preserved (-want +got):\n%s", diff)
		}
	}
}

// TestScaleUnitFactorIsIdentity verifies scale(t, 1.0) reproduces the input
func TestScaleUnitFactorIsIdentity(t *testing.T) {
	for _, shape := range [][]int{{1, 4, 4}, {2, 3, 5, 5}} {
		img := randomImage(t, shape...)
		out, err := Scale(img, tensor.Scalar[float32](1), nil)
		if err != nil {
			t.Fatalf("Scale failed for %v: %v", shape, err)
		}
		if d := tensor.MaxAbsDiff(img, out); d > 1e-5 {
			t.Errorf("scale by 1 changed the image, max diff %v", d)
		}
		if diff := cmp.Diff(img.Shape, out.Shape); diff != "" {
			t.Errorf("shape not preserved (-want +got):\n%s", diff)
		}
	}
}

// TestTranslateZeroIsIdentity verifies translate(t, [0,0]) reproduces the
// input exactly
func TestTranslateZeroIsIdentity(t *testing.T) {
	for _, shape := range [][]int{{1, 4, 4}, {2, 3, 5, 5}} {
		img := randomImage(t, shape...)
		zero, _ := tensor.FromSlice([]float32{0, 0}, 2)
		out, err := Translate(img, zero)
		if err != nil {
			t.Fatalf("Translate failed for %v: %v", shape, err)
		}
		if !out.Equal(img) {
			t.Errorf("translate by (0,0) changed the image")
		}
	}
}

// TestRankPreservation verifies rank-3 input yields rank-3 output and
// rank-4 yields rank-4 for all operations
func TestRankPreservation(t *testing.T) {
	angle := tensor.Scalar[float32](30)
	offset, _ := tensor.FromSlice([]float32{1, 2}, 2)
	factor := tensor.Scalar[float32](0.5)

	ops := map[string]func(*tensor.Tensor[float32]) (*tensor.Tensor[float32], error){
		"rotate":    func(img *tensor.Tensor[float32]) (*tensor.Tensor[float32], error) { return Rotate(img, angle, nil) },
		"translate": func(img *tensor.Tensor[float32]) (*tensor.Tensor[float32], error) { return Translate(img, offset) },
		"scale":     func(img *tensor.Tensor[float32]) (*tensor.Tensor[float32], error) { return Scale(img, factor, nil) },
	}

	for name, op := range ops {
		for _, shape := range [][]int{{3, 6, 7}, {2, 3, 6, 7}} {
			img := randomImage(t, shape...)
			out, err := op(img)
			if err != nil {
				t.Fatalf("%s failed for %v: %v", name, shape, err)
			}
			if diff := cmp.Diff(shape, out.Shape); diff != "" {
				t.Errorf("%s shape mismatch (-want +got):\n%s", name, diff)
			}
		}
	}
}

// TestDefaultCenter verifies the implicit pivot of a 5x5 image is (2,2)
func TestDefaultCenter(t *testing.T) {
	img := randomImage(t, 1, 5, 5)

	c := tensorCenter(img)
	if c.Data[0] != 2.0 || c.Data[1] != 2.0 {
		t.Fatalf("expected center (2,2), got (%v,%v)", c.Data[0], c.Data[1])
	}

	// Rotating with an explicit (2,2) center must match the default.
	angle := tensor.Scalar[float32](90)
	explicit, _ := tensor.FromSlice([]float32{2, 2}, 2)

	got, err := Rotate(img, angle, nil)
	if err != nil {
		t.Fatalf("Rotate with default center failed: %v", err)
	}
	want, err := Rotate(img, angle, explicit)
	if err != nil {
		t.Fatalf("Rotate with explicit center failed: %v", err)
	}
	if d := tensor.MaxAbsDiff(want, got); d != 0 {
		t.Errorf("default and explicit center disagree, max diff %v", d)
	}
}

// TestTranslationMatrix verifies the third column of the homogeneous
// matrix carries (dx,dy) and the rest is the identity
func TestTranslationMatrix(t *testing.T) {
	offset, _ := tensor.FromSlice([]float32{3, -2}, 1, 2)
	m := translationMatrix(offset)

	want := []float32{
		1, 0, 3,
		0, 1, -2,
		0, 0, 1,
	}
	if diff := cmp.Diff(want, m.Data); diff != "" {
		t.Errorf("translation matrix mismatch (-want +got):\n%s", diff)
	}
}

// TestNilArguments verifies each operation rejects nil inputs before any
// computation
func TestNilArguments(t *testing.T) {
	img := randomImage(t, 1, 4, 4)
	angle := tensor.Scalar[float32](10)

	cases := []struct {
		name string
		arg  string
		call func() error
	}{
		{"rotate nil tensor", "tensor", func() error { _, err := Rotate[float32](nil, angle, nil); return err }},
		{"rotate nil angle", "angle", func() error { _, err := Rotate[float32](img, nil, nil); return err }},
		{"translate nil tensor", "tensor", func() error { _, err := Translate[float32](nil, angle); return err }},
		{"translate nil translation", "translation", func() error { _, err := Translate[float32](img, nil); return err }},
		{"scale nil tensor", "tensor", func() error { _, err := Scale[float32](nil, angle, nil); return err }},
		{"scale nil factor", "scale_factor", func() error { _, err := Scale[float32](img, nil, nil); return err }},
		{"affine nil matrix", "matrix", func() error { _, err := Affine[float32](img, nil); return err }},
	}
	for _, tc := range cases {
		err := tc.call()
		var nilErr *NilArgumentError
		if !errors.As(err, &nilErr) {
			t.Errorf("%s: expected NilArgumentError, got %v", tc.name, err)
			continue
		}
		if nilErr.Arg != tc.arg {
			t.Errorf("%s: expected Arg %q, got %q", tc.name, tc.arg, nilErr.Arg)
		}
	}
}

// TestInvalidRank verifies 2-D and 5-D inputs are rejected by all three
// operations, scale included
func TestInvalidRank(t *testing.T) {
	angle := tensor.Scalar[float32](10)
	offset, _ := tensor.FromSlice([]float32{1, 1}, 2)

	for _, shape := range [][]int{{4, 4}, {1, 1, 3, 4, 4}} {
		bad := tensor.New[float32](shape...)

		calls := map[string]func() error{
			"rotate":    func() error { _, err := Rotate(bad, angle, nil); return err },
			"translate": func() error { _, err := Translate(bad, offset); return err },
			"scale":     func() error { _, err := Scale(bad, angle, nil); return err },
		}
		for name, call := range calls {
			err := call()
			var rankErr *RankError
			if !errors.As(err, &rankErr) {
				t.Errorf("%s with shape %v: expected RankError, got %v", name, shape, err)
				continue
			}
			if diff := cmp.Diff(shape, rankErr.Shape); diff != "" {
				t.Errorf("%s RankError shape (-want +got):\n%s", name, diff)
			}
		}
	}
}

// TestBroadcastMismatch verifies per-image parameters whose batch size is
// neither 1 nor B are rejected
func TestBroadcastMismatch(t *testing.T) {
	img := randomImage(t, 2, 1, 4, 4)

	threeAngles, _ := tensor.FromSlice([]float32{0, 10, 20}, 3)
	if _, err := Rotate(img, threeAngles, nil); err == nil {
		t.Error("expected broadcast error for 3 angles over batch 2")
	} else {
		var bErr *BroadcastError
		if !errors.As(err, &bErr) {
			t.Errorf("expected BroadcastError, got %v", err)
		}
	}

	threeOffsets, _ := tensor.FromSlice([]float32{0, 0, 1, 1, 2, 2}, 3, 2)
	if _, err := Translate(img, threeOffsets); err == nil {
		t.Error("expected broadcast error for 3 offsets over batch 2")
	}

	threeMatrices := tensor.New[float32](3, 2, 3)
	if _, err := Affine(img, threeMatrices); err == nil {
		t.Error("expected broadcast error for 3 matrices over batch 2")
	}
}

// TestPerImageParameters verifies batched inputs accept one parameter per
// image
func TestPerImageParameters(t *testing.T) {
	img := randomImage(t, 2, 1, 5, 5)

	angles, _ := tensor.FromSlice([]float32{0, 90}, 2)
	out, err := Rotate(img, angles, nil)
	if err != nil {
		t.Fatalf("Rotate with per-image angles failed: %v", err)
	}

	// First image rotated by 0 stays put.
	first, _ := tensor.FromSlice(img.Data[:25], 1, 5, 5)
	got, _ := tensor.FromSlice(out.Data[:25], 1, 5, 5)
	if d := tensor.MaxAbsDiff(first, got); d > 1e-5 {
		t.Errorf("image with angle 0 changed, max diff %v", d)
	}

	// Second image must match a standalone 90 degree rotation.
	second, _ := tensor.FromSlice(img.Data[25:], 1, 5, 5)
	want, err := Rotate(second, tensor.Scalar[float32](90), nil)
	if err != nil {
		t.Fatalf("standalone Rotate failed: %v", err)
	}
	gotSecond, _ := tensor.FromSlice(out.Data[25:], 1, 5, 5)
	if d := tensor.MaxAbsDiff(want, gotSecond); d != 0 {
		t.Errorf("batched and standalone rotation disagree, max diff %v", d)
	}
}

// recordingWarper captures the arguments the applier hands to its backend.
type recordingWarper struct {
	batch      int
	outH, outW int
}

func (r *recordingWarper) WarpAffine(src, m *tensor.Tensor[float32], outH, outW int) (*tensor.Tensor[float32], error) {
	r.batch = m.Shape[0]
	r.outH, r.outW = outH, outW
	return src.Clone(), nil
}

// TestEngineBackendContract verifies the applier broadcasts the matrix to
// the image batch and requests the input's own spatial size
func TestEngineBackendContract(t *testing.T) {
	rec := &recordingWarper{}
	e := NewEngine[float32](rec)

	img := randomImage(t, 4, 3, 6, 8)
	if _, err := e.Rotate(img, tensor.Scalar[float32](15), nil); err != nil {
		t.Fatalf("Engine.Rotate failed: %v", err)
	}
	if rec.batch != 4 {
		t.Errorf("matrix batch = %d, want 4", rec.batch)
	}
	if rec.outH != 6 || rec.outW != 8 {
		t.Errorf("output size = (%d,%d), want (6,8)", rec.outH, rec.outW)
	}
}

// TestAffineFreeFunction verifies a single (2,3) identity matrix applies
// across ranks
func TestAffineFreeFunction(t *testing.T) {
	ident, _ := tensor.FromSlice([]float32{1, 0, 0, 0, 1, 0}, 2, 3)
	for _, shape := range [][]int{{1, 3, 3}, {2, 1, 3, 3}} {
		img := randomImage(t, shape...)
		out, err := Affine(img, ident)
		if err != nil {
			t.Fatalf("Affine failed for %v: %v", shape, err)
		}
		if !out.Equal(img) {
			t.Errorf("identity affine changed the image for %v", shape)
		}
	}
}
