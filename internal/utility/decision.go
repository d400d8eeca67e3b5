// Package utility implements infinite-axis utility scoring: decisions built
// from considerations, and the per-agent state that caches their scores.
package utility

import (
	"errors"
	"fmt"

	"github.com/joeycumines/colony-brain/internal/curve"
)

// Decision is a named option whose considerations combine into one score.
type Decision struct {
	Name           string
	Considerations []Consideration
	// Base is the starting score, in [0,1].
	Base float64
}

// Score combines the considerations. Each consideration score is clamped to
// [0,1] and non-positive scores are left out of the product. The remaining
// scores are folded starting from Base with the compensation factor
//
//	acc = acc * c
//	acc = acc + (1 - acc) * modifier * acc
//
// where modifier = 1 - 1/n and n counts every consideration, including the
// ones left out. A decision whose considerations all score zero scores zero;
// one without considerations scores Base.
func (d *Decision) Score(ctx Context) float64 {
	n := len(d.Considerations)
	if n == 0 {
		return d.Base
	}
	modifier := 1 - 1/float64(n)
	acc := d.Base
	contributed := 0
	for _, c := range d.Considerations {
		s := curve.Clamp01(c.Score(ctx))
		if s <= 0 {
			continue
		}
		contributed++
		acc *= s
		acc += (1 - acc) * modifier * acc
	}
	if contributed == 0 {
		return 0
	}
	return acc
}

// ConsiderationDef is the table form of a curved consideration. Input is an
// expr-lang expression over the agent's facts; Curve names an entry of the
// curve table, or is an inline curve definition.
type ConsiderationDef struct {
	Name  string
	Input string
	Curve string
}

// DecisionDef is the table form of a Decision, as handed in by loaders.
type DecisionDef struct {
	Name           string
	Base           float64
	Considerations []ConsiderationDef
}

// Build resolves def against curves.
func Build(def DecisionDef, curves curve.Table) (*Decision, error) {
	if def.Name == "" {
		return nil, errors.New("decision name cannot be empty")
	}
	if def.Base < 0 || def.Base > 1 {
		return nil, fmt.Errorf("decision %q: base %g outside [0,1]", def.Name, def.Base)
	}
	d := &Decision{Name: def.Name, Base: def.Base}
	for _, cd := range def.Considerations {
		c, ok := curves[cd.Curve]
		if !ok {
			var err error
			if c, err = curve.Parse(cd.Curve); err != nil {
				return nil, fmt.Errorf("decision %q: consideration %q: %w", def.Name, cd.Name, err)
			}
		}
		input, err := ExprExtractor(cd.Input)
		if err != nil {
			return nil, fmt.Errorf("decision %q: %w", def.Name, err)
		}
		d.Considerations = append(d.Considerations, Curved{Label: cd.Name, Curve: c, Input: input})
	}
	return d, nil
}
