package audio

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// EdgeFade returns the opacity of a fade overlay at distance d from an
// edge of width w: 1 at the edge, 0 from w inwards.
func EdgeFade(d, w float64) float64 {
	if w <= 0 {
		return 0
	}
	return 1 - Smoothstep(d/w)
}
