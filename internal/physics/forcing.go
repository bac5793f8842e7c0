package physics

import (
	"fmt"
	"math"
	"strings"
)

// ForceFunc is an external force in newtons at time t.
type ForceFunc func(t float64) float64

// Harmonic returns F0 sin(Ωt).
func Harmonic(f0, omega float64) ForceFunc {
	return func(t float64) float64 {
		return f0 * math.Sin(omega*t)
	}
}

// Forcing assigns an external force to each degree of freedom.
// A nil entry leaves that DOF unforced.
type Forcing []ForceFunc

func Unforced(n int) Forcing {
	return make(Forcing, n)
}

func ForceAll(n int, f ForceFunc) Forcing {
	out := make(Forcing, n)
	for i := range out {
		out[i] = f
	}
	return out
}

// ForceSubset applies f to the listed DOF indices only.
// Indices outside [0, n) are ignored.
func ForceSubset(n int, f ForceFunc, idx ...int) Forcing {
	out := make(Forcing, n)
	for _, i := range idx {
		if i >= 0 && i < n {
			out[i] = f
		}
	}
	return out
}

// At returns the force on DOF i at time t.
func (f Forcing) At(i int, t float64) float64 {
	if i >= len(f) || f[i] == nil {
		return 0
	}
	return f[i](t)
}

// Forced reports which DOFs carry a force.
func (f Forcing) Forced() []int {
	var idx []int
	for i, fn := range f {
		if fn != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// ForcingMode selects how a harmonic load is distributed over the deck.
type ForcingMode string

const (
	ForcingSymmetric  ForcingMode = "symmetric"
	ForcingLeftColumn ForcingMode = "left-column"
	ForcingNone       ForcingMode = "none"
)

func ForcingModes() []ForcingMode {
	return []ForcingMode{ForcingSymmetric, ForcingLeftColumn, ForcingNone}
}

func ParseForcingMode(s string) (ForcingMode, error) {
	switch ForcingMode(strings.ToLower(strings.TrimSpace(s))) {
	case ForcingSymmetric, "all":
		return ForcingSymmetric, nil
	case ForcingLeftColumn, "left", "leftonly":
		return ForcingLeftColumn, nil
	case ForcingNone, "free":
		return ForcingNone, nil
	}
	return "", fmt.Errorf("%w: unknown forcing mode %q", ErrInvalidParams, s)
}

// DeckForcing builds the per-corner forcing for a mode.
func DeckForcing(mode ForcingMode, f0, omega float64) (Forcing, error) {
	switch mode {
	case ForcingSymmetric:
		return Symmetric(f0, omega), nil
	case ForcingLeftColumn:
		return LeftColumn(f0, omega), nil
	case ForcingNone:
		return Unforced(Corners), nil
	}
	return nil, fmt.Errorf("%w: unknown forcing mode %q", ErrInvalidParams, mode)
}

// Symmetric loads all four corners with F0 sin(Ωt).
func Symmetric(f0, omega float64) Forcing {
	return ForceAll(Corners, Harmonic(f0, omega))
}

// LeftColumn loads the FrontLeft and BackLeft corners only.
func LeftColumn(f0, omega float64) Forcing {
	return ForceSubset(Corners, Harmonic(f0, omega), FrontLeft, BackLeft)
}
