// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package adjoint

import (
	"strconv"
	"strings"

	"github.com/WangweiYDYK/polyfem/param"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// Kind selects the variant of a Form
type Kind int

const (
	KindStatic    Kind = iota // objective at one step
	KindTransient             // objective integrated over all steps
)

// StaticForm holds the callbacks of an objective evaluated at one step
//  x is the form's parameter vector (after its chain); u is read from the simulation
type StaticForm struct {
	Step            int                                           // step of the objective
	Value           func(x la.Vector, step int) (float64, error)   // J(x, u(step))
	AdjointRHSStep  func(x la.Vector, step int) (la.Vector, error) // ∂J/∂u [ndof]
	PartialGradient func(x la.Vector, step int) (la.Vector, error) // ∂J/∂x explicit part; nil => zero
}

// TransientForm integrates a StaticForm over all steps
//
//   J = Σᵢ wᵢ Jᵢ
//
type TransientForm struct {
	Obj     *StaticForm // integrand
	Nsteps  int         // number of steps; weights have Nsteps+1 entries
	Dt      float64     // step size
	Scheme  string      // "uniform", "trapezoidal", "simpson", "final" or "step_k"
	Weights []float64   // [nsteps+1] quadrature weights
}

// NewTransientForm returns a new transient form with precomputed weights
func NewTransientForm(obj *StaticForm, nsteps int, dt float64, scheme string) (o *TransientForm, err error) {
	if obj == nil {
		return nil, chk.Err("transient form requires an integrand")
	}
	o = &TransientForm{Obj: obj, Nsteps: nsteps, Dt: dt, Scheme: scheme}
	o.Weights, err = TransientWeights(scheme, nsteps, dt)
	return
}

// TransientWeights computes the weights of the time integral over steps 0…nsteps
//  Note: "simpson" with an odd number of intervals uses Simpson's 3/8 rule on the last three
func TransientWeights(scheme string, nsteps int, dt float64) (w []float64, err error) {
	if nsteps < 1 {
		return nil, chk.Err("number of steps must be positive. %d is invalid", nsteps)
	}
	w = make([]float64, nsteps+1)
	switch {
	case scheme == "uniform":
		for i := 1; i <= nsteps; i++ {
			w[i] = dt
		}
	case scheme == "trapezoidal":
		for i := 0; i <= nsteps; i++ {
			w[i] = dt
		}
		w[0], w[nsteps] = dt/2, dt/2
	case scheme == "simpson":
		simpson(w, dt)
	case scheme == "final":
		w[nsteps] = 1
	case strings.HasPrefix(scheme, "step_"):
		k, e := strconv.Atoi(strings.TrimPrefix(scheme, "step_"))
		if e != nil || k < 0 || k > nsteps {
			return nil, chk.Err("transient integral %q is invalid; step must be in [0, %d]", scheme, nsteps)
		}
		w[k] = 1
	default:
		return nil, chk.Err("transient integral type %q is invalid", scheme)
	}
	return
}

// simpson sets composite Simpson weights
func simpson(w []float64, dt float64) {
	n := len(w) - 1
	if n == 1 {
		w[0], w[1] = dt/2, dt/2
		return
	}
	m := n // intervals covered by the 1/3 rule
	if n%2 == 1 {
		m = n - 3
	}
	for i := 0; i < m; i += 2 {
		w[i] += dt / 3
		w[i+1] += 4 * dt / 3
		w[i+2] += dt / 3
	}
	if m < n {
		w[m] += 3 * dt / 8
		w[m+1] += 9 * dt / 8
		w[m+2] += 9 * dt / 8
		w[m+3] += 3 * dt / 8
	}
}

// Form is an objective of simulation results: a static or a transient variant
type Form struct {
	Kind      Kind
	Static    *StaticForm             // KindStatic
	Transient *TransientForm          // KindTransient
	Sim       Simulation              // simulation providing u and the adjoint solves; nil if J depends on x only
	Mappings  []*VariableToSimulation // parameters of simulations driven by the form's variables
	Chain     param.Chain             // design variables => form variables
}

// NewStaticForm returns a form evaluated at obj.Step
func NewStaticForm(sim Simulation, mappings []*VariableToSimulation, chain param.Chain, obj *StaticForm) (o *Form, err error) {
	if obj == nil {
		return nil, chk.Err("static form requires callbacks")
	}
	if obj.Value == nil || obj.AdjointRHSStep == nil {
		return nil, chk.Err("static form requires Value and AdjointRHSStep")
	}
	if obj.Step < 0 || (sim != nil && obj.Step > sim.Nsteps()) {
		return nil, chk.Err("step of static form is out of range. %d is invalid", obj.Step)
	}
	return &Form{Kind: KindStatic, Static: obj, Sim: sim, Mappings: mappings, Chain: chain}, nil
}

// NewTransientFormOf returns a form integrated over all steps of sim
func NewTransientFormOf(sim Simulation, mappings []*VariableToSimulation, chain param.Chain, obj *StaticForm, scheme string) (o *Form, err error) {
	if sim == nil {
		return nil, chk.Err("transient form requires a simulation")
	}
	nsteps := sim.Nsteps()
	tf, err := NewTransientForm(obj, nsteps, 1/float64(nsteps), scheme)
	if err != nil {
		return
	}
	return &Form{Kind: KindTransient, Transient: tf, Sim: sim, Mappings: mappings, Chain: chain}, nil
}

// integrand returns the static callbacks and the weight of each step
func (o *Form) integrand() (obj *StaticForm, w []float64) {
	if o.Kind == KindTransient {
		return o.Transient.Obj, o.Transient.Weights
	}
	w = make([]float64, o.Static.Step+1)
	w[o.Static.Step] = 1
	return o.Static, w
}

// Value computes J(x)
func (o *Form) Value(x la.Vector) (J float64, err error) {
	y, err := o.Chain.Eval(x)
	if err != nil {
		return
	}
	obj, w := o.integrand()
	for step, ws := range w {
		if ws == 0 {
			continue
		}
		v, err := obj.Value(y, step)
		if err != nil {
			return 0, chk.Err("cannot evaluate objective at step %d:\n%v", step, err)
		}
		J += ws * v
	}
	return
}

// AdjointRHS computes the right-hand sides wᵢ ∂Jᵢ/∂u of the adjoint problems; one per step
func (o *Form) AdjointRHS(x la.Vector) (rhs []la.Vector, err error) {
	y, err := o.Chain.Eval(x)
	if err != nil {
		return
	}
	obj, w := o.integrand()
	rhs = make([]la.Vector, len(w))
	if o.Sim == nil {
		return
	}
	for step, ws := range w {
		rhs[step] = la.NewVector(o.Sim.Ndof())
		if ws == 0 {
			continue
		}
		r, err := obj.AdjointRHSStep(y, step)
		if err != nil {
			return nil, chk.Err("cannot compute adjoint rhs at step %d:\n%v", step, err)
		}
		la.VecAdd(rhs[step], ws, r, 0, r)
	}
	return
}

// PartialGradient computes the explicit part of dJ/dy with respect to the form variables y
func (o *Form) PartialGradient(x la.Vector) (g la.Vector, err error) {
	y, err := o.Chain.Eval(x)
	if err != nil {
		return
	}
	return o.partialGradient(y)
}

func (o *Form) partialGradient(y la.Vector) (g la.Vector, err error) {
	g = la.NewVector(len(y))
	obj, w := o.integrand()
	if obj.PartialGradient == nil {
		return
	}
	for step, ws := range w {
		if ws == 0 {
			continue
		}
		gs, err := obj.PartialGradient(y, step)
		if err != nil {
			return nil, chk.Err("cannot compute partial gradient at step %d:\n%v", step, err)
		}
		la.VecAdd(g, ws, gs, 1, g)
	}
	return
}

// Gradient computes the total derivative dJ/dx
//  Note: the simulation must have been solved with the current variables and keep its
//        differentiability cache
func (o *Form) Gradient(x la.Vector) (g la.Vector, err error) {
	y, err := o.Chain.Eval(x)
	if err != nil {
		return
	}

	// adjoint solves
	rhs, err := o.AdjointRHS(x)
	if err != nil {
		return
	}
	_, w := o.integrand()
	var steps []int
	for step, ws := range w {
		if ws == 0 || o.Sim == nil {
			continue
		}
		if err = o.Sim.SolveAdjoint(rhs[step], step); err != nil {
			return nil, chk.Err("gradient requires the adjoint state at step %d:\n%v", step, err)
		}
		steps = append(steps, step)
	}

	// explicit part and adjoint terms
	g, err = o.partialGradient(y)
	if err != nil {
		return
	}
	for i, m := range o.Mappings {
		if o.Sim == nil || m.Sim != o.Sim {
			continue
		}
		gm, err := m.pullBack(y, steps)
		if err != nil {
			return nil, chk.Err("mapping %d (%q):\n%v", i, m.Kind, err)
		}
		if len(gm) != len(g) {
			return nil, chk.Err("mapping %d (%q) returned %d values; form has %d variables", i, m.Kind, len(gm), len(g))
		}
		la.VecAdd(g, 1, gm, 1, g)
	}
	return o.Chain.ApplyJacobian(g, x)
}
