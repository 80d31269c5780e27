package geometry

import "math"

// Kernel is a row-major 3x3 convolution matrix.
type Kernel [9]float64

// SharpenKernel returns the sharpen matrix for a level in [0,100] and the
// divisor that normalises it (the sum of its coefficients).
//
//	m1 m2 m1
//	m2 c  m2
//	m1 m2 m1
//
// where m1 = round(-0.03*level, 2), m2 = m1+0.2 and c = round(0.34*level).
func SharpenKernel(level int) (Kernel, float64) {
	level = NormalizeLevel(level)
	m1 := math.Round(-0.03*float64(level)*100) / 100
	m2 := m1 + 0.2
	c := math.Round(0.34 * float64(level))

	k := Kernel{
		m1, m2, m1,
		m2, c, m2,
		m1, m2, m1,
	}
	var divisor float64
	for _, v := range k {
		divisor += v
	}
	return k, divisor
}

// Normalized divides every coefficient by the kernel's sum. A kernel that
// sums to zero is returned unchanged.
func (k Kernel) Normalized() Kernel {
	var sum float64
	for _, v := range k {
		sum += v
	}
	if sum == 0 {
		return k
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}
