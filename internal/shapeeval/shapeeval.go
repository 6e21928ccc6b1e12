// Package shapeeval compiles the textual shape functions used to describe a
// model's target population over time: an arithmetic expression in the
// variable t, extended with five built-in waveform primitives.
package shapeeval

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"

	"github.com/hailstorm-dev/hailstorm/internal/simerr"
)

// Shape is a compiled shape function: seconds-since-start in, target
// population out.
type Shape func(t float64) float64

// env is a map rather than a struct so that the built-in names stay exactly
// lowercase (rect, tri, step, trapz, costrapz, t) as operators write them.
type env map[string]any

func builtinsEnv() env {
	return env{
		"t":        0.0,
		"rect":     rect,
		"tri":      tri,
		"step":     step,
		"trapz":    trapz,
		"costrapz": costrapz,
	}
}

func rect(x float64) float64 {
	switch {
	case math.Abs(x) > 0.5:
		return 0.0
	case math.Abs(x) == 0.5:
		return 0.5
	default:
		return 1.0
	}
}

func tri(x float64) float64 {
	if math.Abs(x) < 1.0 {
		return 1.0 - math.Abs(x)
	}
	return 0.0
}

func step(x float64) float64 {
	switch {
	case x < 0.0:
		return 0.0
	case x == 0.0:
		return 0.5
	default:
		return 1.0
	}
}

func trapz(x, bLow, bSup float64) float64 {
	ax := math.Abs(x)
	switch {
	case ax > bLow/2.0:
		return 0.0
	case ax < bSup/2.0:
		return 1.0
	default:
		return (ax*2.0 - bLow) / (bSup - bLow)
	}
}

func costrapz(x, bLow, bSup float64) float64 {
	ax := math.Abs(x)
	switch {
	case ax > bLow/2.0:
		return 0.0
	case ax < bSup/2.0:
		return 1.0
	default:
		return math.Pow(math.Cos((ax-bSup/2.0)*(math.Pi/(bLow-bSup))), 2)
	}
}

func newEnv(t float64) env {
	e := builtinsEnv()
	e["t"] = t
	return e
}

// Compile parses src as an arithmetic expression in t, with rect, tri, step,
// trapz and costrapz available as call expressions (lowercase, matching the
// source text), and returns a reusable evaluator.
func Compile(src string) (Shape, error) {
	program, err := expr.Compile(src, expr.Env(builtinsEnv()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", simerr.ErrBadShape, src, err)
	}
	return func(t float64) float64 {
		out, runErr := expr.Run(program, newEnv(t))
		if runErr != nil {
			return 0
		}
		return toFloat(out)
	}, nil
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	default:
		return 0
	}
}
