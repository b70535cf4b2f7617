package tensor

import "math"

// MaxAbsDiff calculates the maximum absolute difference between the
// elements of two tensors. Shapes are not compared; the shorter data slice
// bounds the scan.
func MaxAbsDiff[T Float](a, b *Tensor[T]) float64 {
	n := len(a.Data)
	if len(b.Data) < n {
		n = len(b.Data)
	}
	m := 0.0
	for i := 0; i < n; i++ {
		d := math.Abs(float64(a.Data[i] - b.Data[i]))
		if d > m {
			m = d
		}
	}
	return m
}

// Mean returns the mean value of the tensor's elements.
func Mean[T Float](t *Tensor[T]) float64 {
	if len(t.Data) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range t.Data {
		sum += float64(x)
	}
	return sum / float64(len(t.Data))
}
