package affine

import (
	"fmt"

	"github.com/openfluke/warp/tensor"
)

// Transform is a reusable transformation with bound parameters. Apply is
// equivalent to calling the corresponding free operation; parameters are
// not validated until then.
type Transform[T tensor.Float] interface {
	Apply(t *tensor.Tensor[T]) (*tensor.Tensor[T], error)
	fmt.Stringer
}

// Rotation binds an angle and an optional center for repeated use.
type Rotation[T tensor.Float] struct {
	Angle  *tensor.Tensor[T]
	Center *tensor.Tensor[T]
}

// NewRotation creates a Rotation. center may be nil to use each image's
// own center.
func NewRotation[T tensor.Float](angle, center *tensor.Tensor[T]) *Rotation[T] {
	return &Rotation[T]{Angle: angle, Center: center}
}

// Apply rotates t by the bound parameters.
func (r *Rotation[T]) Apply(t *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return Rotate(t, r.Angle, r.Center)
}

func (r *Rotation[T]) String() string {
	return fmt.Sprintf("Rotation(angle=%v, center=%v)", r.Angle, r.Center)
}

// Translation binds a pixel offset for repeated use.
type Translation[T tensor.Float] struct {
	Offset *tensor.Tensor[T]
}

// NewTranslation creates a Translation.
func NewTranslation[T tensor.Float](offset *tensor.Tensor[T]) *Translation[T] {
	return &Translation[T]{Offset: offset}
}

// Apply shifts t by the bound offset.
func (tr *Translation[T]) Apply(t *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return Translate(t, tr.Offset)
}

func (tr *Translation[T]) String() string {
	return fmt.Sprintf("Translation(translation=%v)", tr.Offset)
}

// Scaling binds a scale factor and an optional center for repeated use.
type Scaling[T tensor.Float] struct {
	Factor *tensor.Tensor[T]
	Center *tensor.Tensor[T]
}

// NewScaling creates a Scaling. center may be nil to use each image's own
// center.
func NewScaling[T tensor.Float](factor, center *tensor.Tensor[T]) *Scaling[T] {
	return &Scaling[T]{Factor: factor, Center: center}
}

// Apply scales t by the bound parameters.
func (s *Scaling[T]) Apply(t *tensor.Tensor[T]) (*tensor.Tensor[T], error) {
	return Scale(t, s.Factor, s.Center)
}

func (s *Scaling[T]) String() string {
	return fmt.Sprintf("Scaling(scale_factor=%v, center=%v)", s.Factor, s.Center)
}
