// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adjoint

import (
	"github.com/WangweiYDYK/polyfem/param"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// TargetObjective returns the callbacks of
//
//   J = ½ Σᵢ (u[dofs[i]] - targets[i])²
//
func TargetObjective(sim Simulation, step int, dofs []int, targets []float64) (obj *StaticForm, err error) {
	if len(dofs) != len(targets) {
		return nil, chk.Err("number of targets (%d) must equal the number of dofs (%d)", len(targets), len(dofs))
	}
	ndof := sim.Ndof()
	for _, I := range dofs {
		if I < 0 || I >= ndof {
			return nil, chk.Err("target dof %d is out of range [0, %d)", I, ndof)
		}
	}
	obj = &StaticForm{Step: step}
	obj.Value = func(x la.Vector, step int) (J float64, err error) {
		u, err := sim.Solution(step)
		if err != nil {
			return
		}
		for i, I := range dofs {
			d := u[I] - targets[i]
			J += d * d / 2
		}
		return
	}
	obj.AdjointRHSStep = func(x la.Vector, step int) (rhs la.Vector, err error) {
		u, err := sim.Solution(step)
		if err != nil {
			return
		}
		rhs = la.NewVector(len(u))
		for i, I := range dofs {
			rhs[I] += u[I] - targets[i]
		}
		return
	}
	return
}

// NewTargetForm returns a static form matching displacements to targets at a step
func NewTargetForm(sim Simulation, mappings []*VariableToSimulation, chain param.Chain, step int, dofs []int, targets []float64) (o *Form, err error) {
	obj, err := TargetObjective(sim, step, dofs, targets)
	if err != nil {
		return
	}
	return NewStaticForm(sim, mappings, chain, obj)
}

// NewParamNormForm returns the form J = ½ α ‖y‖² of the form variables y = chain(x)
//  Note: J does not depend on any simulation; its gradient is the partial gradient only
func NewParamNormForm(chain param.Chain, alpha float64) (o *Form, err error) {
	obj := &StaticForm{
		Value: func(y la.Vector, step int) (float64, error) {
			return alpha * la.VecDot(y, y) / 2, nil
		},
		AdjointRHSStep: func(y la.Vector, step int) (la.Vector, error) {
			return nil, nil
		},
		PartialGradient: func(y la.Vector, step int) (g la.Vector, err error) {
			g = la.NewVector(len(y))
			la.VecAdd(g, alpha, y, 0, y)
			return
		},
	}
	return NewStaticForm(nil, nil, chain, obj)
}
