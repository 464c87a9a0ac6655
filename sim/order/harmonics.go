package order

import "math"

// legendre returns the associated Legendre functions P_l^m(x) for
// m = 0..l, including the Condon-Shortley phase.
func legendre(l int, x float64) []float64 {
	out := make([]float64, l+1)
	somx2 := math.Sqrt(math.Max(0, (1-x)*(1+x)))
	pmm := 1.0
	fact := 1.0
	for m := 0; m <= l; m++ {
		if m > 0 {
			pmm *= -fact * somx2
			fact += 2
		}
		if m == l {
			out[m] = pmm
			continue
		}
		pmmp1 := x * float64(2*m+1) * pmm
		if m+1 == l {
			out[m] = pmmp1
			continue
		}
		prev2, prev1 := pmm, pmmp1
		var pll float64
		for ll := m + 2; ll <= l; ll++ {
			pll = (x*float64(2*ll-1)*prev1 - float64(ll+m-1)*prev2) / float64(ll-m)
			prev2, prev1 = prev1, pll
		}
		out[m] = pll
	}
	return out
}

// harmonicNorms returns sqrt((2l+1)/(4π) (l-m)!/(l+m)!) for m = 0..l.
func harmonicNorms(l int) []float64 {
	out := make([]float64, l+1)
	for m := 0; m <= l; m++ {
		ratio := 1.0
		for k := l - m + 1; k <= l+m; k++ {
			ratio /= float64(k)
		}
		out[m] = math.Sqrt(float64(2*l+1) / (4 * math.Pi) * ratio)
	}
	return out
}

// realHarmonics fills dst (length 2l+1) with the real spherical harmonics
// Y_lm of the direction (dx, dy, dz), ordered m = -l..l.
func realHarmonics(l int, norms []float64, dx, dy, dz float64, dst []float64) {
	r := math.Sqrt(dx*dx + dy*dy + dz*dz)
	cosTheta := dz / r
	phi := math.Atan2(dy, dx)
	p := legendre(l, cosTheta)
	dst[l] = norms[0] * p[0]
	for m := 1; m <= l; m++ {
		a := math.Sqrt2 * norms[m] * p[m]
		mp := float64(m) * phi
		dst[l+m] = a * math.Cos(mp)
		dst[l-m] = a * math.Sin(mp)
	}
}
