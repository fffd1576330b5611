package tracking

// Easing maps linear progress p in [0,1] to eased progress in [0,1].
// Implementations must be monotonic and must not overshoot.
type Easing func(p float64) float64

// Linear moves at constant speed.
func Linear(p float64) float64 {
	return p
}

// EaseOutCubic decelerates into the target.
func EaseOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}
