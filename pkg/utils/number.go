package utils

import "math"

// RoundTo rounds v half away from zero to the given number of decimals
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
