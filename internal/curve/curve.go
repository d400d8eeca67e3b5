// Package curve implements the response curves used to shape utility
// considerations. A curve maps a normalized input in [0,1] to a score
// modifier in [0,1].
package curve

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind selects the curve formula.
type Kind int

const (
	Linear Kind = iota
	Exponential
	Sine
	Cosine
	Logistic
	Logit
)

// logitEpsilon keeps the logit away from its poles at 0 and 1.
const logitEpsilon = 1e-6

var kindNames = map[Kind]string{
	Linear:      "linear",
	Exponential: "exponential",
	Sine:        "sine",
	Cosine:      "cosine",
	Logistic:    "logistic",
	Logit:       "logit",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown curve kind: %q", s)
}

// Curve is a parameterised response curve.
//
//	Linear       M*(x-C) + B
//	Exponential  M*(x-C)^K + B
//	Sine         M*sin(K*pi*(x-C)) + B
//	Cosine       M*cos(K*pi*(x-C)) + B
//	Logistic     K / (1 + (1000*e*M)^(C-x)) + B
//	Logit        M*(ln(u/(1-u))/5 + 0.5) + B, u = x-C
//
// M is the slope, K the exponent, B the vertical and C the horizontal shift.
type Curve struct {
	Kind Kind
	M    float64
	K    float64
	B    float64
	C    float64
}

// Identity is the linear curve y = x.
var Identity = Curve{Kind: Linear, M: 1}

// Eval applies the curve to x. Input and output are clamped to [0,1]; NaN
// results become 0.
func (c Curve) Eval(x float64) float64 {
	x = Clamp01(x)
	var y float64
	switch c.Kind {
	case Linear:
		y = c.M*(x-c.C) + c.B
	case Exponential:
		y = c.M*math.Pow(x-c.C, c.K) + c.B
	case Sine:
		y = c.M*math.Sin(c.K*math.Pi*(x-c.C)) + c.B
	case Cosine:
		y = c.M*math.Cos(c.K*math.Pi*(x-c.C)) + c.B
	case Logistic:
		y = c.K/(1+math.Pow(1000*math.E*c.M, c.C-x)) + c.B
	case Logit:
		u := math.Min(math.Max(x-c.C, logitEpsilon), 1-logitEpsilon)
		y = c.M*(math.Log(u/(1-u))/5+0.5) + c.B
	default:
		panic(fmt.Sprintf("curve: unhandled kind %v", c.Kind))
	}
	return Clamp01(y)
}

func (c Curve) String() string {
	return fmt.Sprintf("%s m=%g k=%g b=%g c=%g", c.Kind, c.M, c.K, c.B, c.C)
}

// Parse reads the String form: a kind followed by optional name=value
// parameters. Omitted parameters default to m=1 k=1 b=0 c=0.
func Parse(s string) (Curve, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Curve{}, fmt.Errorf("empty curve definition")
	}
	kind, err := ParseKind(fields[0])
	if err != nil {
		return Curve{}, err
	}
	c := Curve{Kind: kind, M: 1, K: 1}
	for _, f := range fields[1:] {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return Curve{}, fmt.Errorf("invalid curve parameter %q: expected name=value", f)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Curve{}, fmt.Errorf("invalid curve parameter %q: %w", f, err)
		}
		switch strings.ToLower(name) {
		case "m":
			c.M = v
		case "k":
			c.K = v
		case "b":
			c.B = v
		case "c":
			c.C = v
		default:
			return Curve{}, fmt.Errorf("unknown curve parameter %q", name)
		}
	}
	return c, nil
}

// Table is a set of curves resolved by name, as handed in by definition
// loaders.
type Table map[string]Curve

// ParseTable parses each definition in defs.
func ParseTable(defs map[string]string) (Table, error) {
	t := make(Table, len(defs))
	for name, def := range defs {
		c, err := Parse(def)
		if err != nil {
			return nil, fmt.Errorf("curve %q: %w", name, err)
		}
		t[name] = c
	}
	return t, nil
}

// Clamp01 clamps v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
