package affine

import "fmt"

// NilArgumentError reports a nil tensor passed where an operation requires
// a value. Op names the operation, Arg the offending argument.
type NilArgumentError struct {
	Op  string
	Arg string
}

func (e *NilArgumentError) Error() string {
	return fmt.Sprintf("%s: input %s is nil, expected a tensor", e.Op, e.Arg)
}

// RankError reports an image tensor whose rank is outside the accepted set
// {3,4}. It carries the offending shape.
type RankError struct {
	Op    string
	Shape []int
}

func (e *RankError) Error() string {
	return fmt.Sprintf("%s: invalid tensor shape, expect CxHxW or BxCxHxW, got %v", e.Op, e.Shape)
}

// BroadcastError reports a batch dimension that is neither 1 nor the image
// batch size and therefore cannot be expanded.
type BroadcastError struct {
	Op   string
	Arg  string
	Got  int
	Want int
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("%s: cannot broadcast %s batch of size %d to %d", e.Op, e.Arg, e.Got, e.Want)
}
