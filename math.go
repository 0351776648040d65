package rocket

import (
	"math"

	"github.com/gonum/floats"
)

const (
	deg2rad = math.Pi / 180
)

// clamp returns v bounded to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// sign returns the sign of a given number, zero counting as positive.
func sign(v float64) float64 {
	if floats.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// finite returns v, or zero if it is NaN or infinite.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// circleArea returns the area of a circle of diameter d.
func circleArea(d float64) float64 {
	return math.Pi * d * d / 4
}

// diameterFromArea is the inverse of circleArea.
func diameterFromArea(a float64) float64 {
	if a <= 0 {
		return 0
	}
	return math.Sqrt(4 * a / math.Pi)
}
