// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package adjoint implements objective functions of simulation results and their total
// derivatives with respect to design variables, computed with the adjoint method
package adjoint

import (
	"github.com/WangweiYDYK/polyfem/param"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// Simulation is the state seen by objectives; e.g. *fem.Domain
//  Steps go from 0 (undeformed) to Nsteps (end of loading)
type Simulation interface {
	Ndof() int
	Nsteps() int
	Solve() error
	Solution(step int) (u la.Vector, err error)
	SolveAdjoint(rhs la.Vector, step int) error
	AdjointTerm(kind string, step int) (term la.Vector, err error) // -pᵀ ∂R/∂y at step
	ParameterSize(kind string) (int, error)
	SetParameter(kind string, y la.Vector) error
}

// VariableToSimulation declares which parameter of a simulation is driven by the design variables
type VariableToSimulation struct {
	Sim   Simulation  // simulation
	Kind  string      // parameter kind; e.g. "load" or "lame"
	Chain param.Chain // design variables => parameter values
}

// Update sets the parameter for the design variables x
func (o *VariableToSimulation) Update(x la.Vector) (err error) {
	y, err := o.Chain.Eval(x)
	if err != nil {
		return chk.Err("cannot map design variables to %q:\n%v", o.Kind, err)
	}
	return o.Sim.SetParameter(o.Kind, y)
}

// InitialGuess computes design variables reproducing the parameter values y
func (o *VariableToSimulation) InitialGuess(y la.Vector) (x la.Vector, err error) {
	n, err := o.Sim.ParameterSize(o.Kind)
	if err != nil {
		return
	}
	if len(y) != n {
		return nil, chk.Err("parameter %q must have %d values. %d is invalid", o.Kind, n, len(y))
	}
	return o.Chain.InverseEval(y)
}

// pullBack sums the adjoint terms of the given steps and pulls them back to the design variables
func (o *VariableToSimulation) pullBack(x la.Vector, steps []int) (g la.Vector, err error) {
	var term la.Vector
	for _, step := range steps {
		t, err := o.Sim.AdjointTerm(o.Kind, step)
		if err != nil {
			return nil, err
		}
		if term == nil {
			term = t.GetCopy()
			continue
		}
		la.VecAdd(term, 1, t, 1, term)
	}
	if term == nil {
		n, err := o.Sim.ParameterSize(o.Kind)
		if err != nil {
			return nil, err
		}
		term = la.NewVector(n)
	}
	return o.Chain.ApplyJacobian(term, x)
}
