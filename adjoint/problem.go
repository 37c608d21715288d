// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adjoint

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Problem is a weighted sum of forms sharing the same design variables
//
//   J(x) = Σₖ wₖ Jₖ(x)
//
//  Each evaluation at new x updates all mappings, then solves every simulation once.
//  Forms of a Problem see x directly; their chains should be empty unless they wrap
//  their own variables, since mappings are updated with x
type Problem struct {
	Forms    []*Form                 // objectives
	Weights  []float64               // [len(Forms)] weights
	Mappings []*VariableToSimulation // design variables => simulation parameters
	Nsolves  int                     // number of forward solves performed

	sims []Simulation // distinct simulations
	x    la.Vector    // variables of the current state; nil if not solved
}

// NewProblem returns a new problem
func NewProblem(forms []*Form, weights []float64, mappings []*VariableToSimulation) (o *Problem, err error) {
	if len(forms) == 0 {
		return nil, chk.Err("problem requires at least one form")
	}
	if weights == nil {
		weights = make([]float64, len(forms))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(forms) {
		return nil, chk.Err("number of weights (%d) must equal the number of forms (%d)", len(weights), len(forms))
	}
	o = &Problem{Forms: forms, Weights: weights, Mappings: mappings}
	add := func(s Simulation) {
		if s == nil {
			return
		}
		for _, t := range o.sims {
			if t == s {
				return
			}
		}
		o.sims = append(o.sims, s)
	}
	for _, m := range mappings {
		add(m.Sim)
	}
	for _, f := range forms {
		add(f.Sim)
	}
	return
}

// Solve updates the simulations for x and solves them; nothing is done if x did not change
func (o *Problem) Solve(x la.Vector) (err error) {
	if o.x != nil && len(o.x) == len(x) && la.VecMaxDiff(o.x, x) == 0 {
		return
	}
	o.x = nil
	for i, m := range o.Mappings {
		if err = m.Update(x); err != nil {
			return chk.Err("cannot update mapping %d:\n%v", i, err)
		}
	}
	for i, s := range o.sims {
		if err = s.Solve(); err != nil {
			return chk.Err("forward solve of simulation %d failed:\n%v", i, err)
		}
		o.Nsolves++
	}
	o.x = x.GetCopy()
	return
}

// Value computes J(x)
func (o *Problem) Value(x la.Vector) (J float64, err error) {
	if err = o.Solve(x); err != nil {
		return
	}
	for k, f := range o.Forms {
		if o.Weights[k] == 0 {
			continue
		}
		v, err := f.Value(x)
		if err != nil {
			return 0, chk.Err("form %d:\n%v", k, err)
		}
		J += o.Weights[k] * v
	}
	return
}

// Gradient computes dJ/dx
func (o *Problem) Gradient(x la.Vector) (g la.Vector, err error) {
	if err = o.Solve(x); err != nil {
		return
	}
	g = la.NewVector(len(x))
	for k, f := range o.Forms {
		if o.Weights[k] == 0 {
			continue
		}
		gk, err := f.Gradient(x)
		if err != nil {
			return nil, chk.Err("form %d:\n%v", k, err)
		}
		if len(gk) != len(x) {
			return nil, chk.Err("form %d returned %d derivatives; there are %d variables", k, len(gk), len(x))
		}
		la.VecAdd(g, o.Weights[k], gk, 1, g)
	}
	if io.Verbose {
		io.Pforan("|dJ/dx| = %g after %d solves\n", g.Norm(), o.Nsolves)
	}
	return
}
