// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// DiffCache holds the state of one load step required by adjoint solves
//  Lifecycle: filled by a nonlinear solve of a differentiable domain; P is set by
//  SolveAdjoint; all entries are dropped by ClearDiffCache or by the next solve
type DiffCache struct {
	Lambda float64   // load factor
	U      la.Vector // [ndof] displacements
	P      la.Vector // [ndof] adjoint solution; nil until SolveAdjoint is called
}

// SolveAdjoint solves Kᵀ p = rhs at a load step, with p = P Kr⁻¹ Pᵀ rhs (zero at prescribed dofs)
//  rhs -- [ndof] derivative of an objective with respect to the displacements
//  Note: the result is stored in DiffCache[step].P
func (o *Domain) SolveAdjoint(rhs la.Vector, step int) (err error) {
	ps, err := o.SolveAdjoints([]la.Vector{rhs}, step)
	if err != nil {
		return
	}
	o.DiffCache[step].P = ps[0]
	return
}

// SolveAdjoints solves Kᵀ pₖ = rhsₖ at a load step for several right-hand sides; Kr is
// assembled and factorised once
//  Note: DiffCache[step].P is not modified
func (o *Domain) SolveAdjoints(rhs []la.Vector, step int) (ps []la.Vector, err error) {
	if len(o.DiffCache) == 0 {
		return nil, chk.Err("adjoint solve requires a differentiability cache: the domain must be differentiable and solved first")
	}
	if step < 0 || step >= len(o.DiffCache) {
		return nil, chk.Err("step %d is not available in the differentiability cache; max step is %d", step, len(o.DiffCache)-1)
	}
	ndof := o.Ndof()
	for _, b := range rhs {
		if len(b) != ndof {
			return nil, chk.Err("adjoint right-hand side must have %d components. %d is invalid", ndof, len(b))
		}
	}
	ps = make([]la.Vector, len(rhs))
	for k := range ps {
		ps[k] = la.NewVector(ndof)
	}
	if o.Neq == 0 || len(rhs) == 0 {
		return
	}
	Kr := la.NewTriplet(o.Neq, o.Neq, o.nnzKr)
	if err = o.assembleKr(Kr, o.DiffCache[step].U); err != nil {
		return nil, err
	}
	brs := make([]la.Vector, len(rhs))
	qs := make([]la.Vector, len(rhs))
	for k, b := range rhs {
		brs[k] = la.NewVector(o.Neq)
		qs[k] = la.NewVector(o.Neq)
		o.Restrict(brs[k], b)
	}
	if err = linsolveMulti(o.Sim.LinSol.Name, Kr, qs, brs, o.Sim.LinSol.Verbose); err != nil {
		return nil, chk.Err("adjoint solve failed:\n%v", err)
	}
	o.Summary.Nfact++
	for k, q := range qs {
		o.Prolong(ps[k], q)
	}
	return
}

// Adjoint returns the adjoint solution at a load step
func (o *Domain) Adjoint(step int) (p la.Vector, err error) {
	if step < 0 || step >= len(o.DiffCache) {
		return nil, chk.Err("differentiability cache is empty or step %d is not available", step)
	}
	if o.DiffCache[step].P == nil {
		return nil, chk.Err("adjoint at step %d has not been computed", step)
	}
	return o.DiffCache[step].P, nil
}

// ClearDiffCache drops all states kept for adjoint solves
func (o *Domain) ClearDiffCache() {
	o.DiffCache = nil
}

// parameters //////////////////////////////////////////////////////////////////////////////////////

// ParameterSize returns the number of values of a parameter kind
//  kind -- "load": external forces [ndof]
//          "lame": material parameters of all elements, in element order
func (o *Domain) ParameterSize(kind string) (n int, err error) {
	switch kind {
	case "load":
		return o.Ndof(), nil
	case "lame":
		for _, e := range o.Elems {
			if e.Mdl != nil {
				n += len(e.Mdl.PrmNames())
			}
		}
		return
	}
	return 0, chk.Err("parameter kind %q is invalid; use \"load\" or \"lame\"", kind)
}

// Parameter returns the current values of a parameter kind
func (o *Domain) Parameter(kind string) (y la.Vector, err error) {
	n, err := o.ParameterSize(kind)
	if err != nil {
		return
	}
	if kind == "load" {
		return o.Fext.GetCopy(), nil
	}
	y = la.NewVector(n)
	k := 0
	for _, e := range o.Elems {
		if e.Mdl == nil {
			continue
		}
		for _, name := range e.Mdl.PrmNames() {
			if y[k], err = e.Mdl.GetPrm(name); err != nil {
				return
			}
			k++
		}
	}
	return
}

// SetParameter sets the values of a parameter kind
func (o *Domain) SetParameter(kind string, y la.Vector) (err error) {
	n, err := o.ParameterSize(kind)
	if err != nil {
		return
	}
	if len(y) != n {
		return chk.Err("parameter %q must have %d values. %d is invalid", kind, n, len(y))
	}
	if kind == "load" {
		copy(o.Fext, y)
		return
	}
	k := 0
	for _, e := range o.Elems {
		if e.Mdl == nil {
			continue
		}
		for _, name := range e.Mdl.PrmNames() {
			if err = e.Mdl.SetPrm(name, y[k]); err != nil {
				return
			}
			k++
		}
	}
	return
}

// AdjointTerm computes -pᵀ ∂R/∂y at a load step, where R = fint - fext(λ) is the residual and p is
// the adjoint solution of that step; i.e. the implicit part of the total derivative of an objective
func (o *Domain) AdjointTerm(kind string, step int) (term la.Vector, err error) {
	p, err := o.Adjoint(step)
	if err != nil {
		return
	}
	n, err := o.ParameterSize(kind)
	if err != nil {
		return
	}
	term = la.NewVector(n)
	cache := o.DiffCache[step]

	// ∂R/∂Fext = -diag(b(λ))
	if kind == "load" {
		a := o.Amplitudes(cache.Lambda)
		for I := range term {
			term[I] = a[o.fextAmp[I]] * p[I]
		}
		return
	}

	// ∂R/∂θ = ∂fint/∂θ
	offsets := make([]int, len(o.Elems)+1)
	for i, e := range o.Elems {
		offsets[i+1] = offsets[i]
		if e.Mdl != nil {
			offsets[i+1] += len(e.Mdl.PrmNames())
		}
	}
	err = ParallelFor(o.nthreads(), len(o.Elems), func(tid, start, end int) error {
		for i := start; i < end; i++ {
			e := o.Elems[i]
			if e.Mdl == nil {
				continue
			}
			ue := la.NewVector(e.Nu)
			pe := la.NewVector(e.Nu)
			fe := la.NewVector(e.Nu)
			e.Gather(ue, cache.U)
			e.Gather(pe, p)
			for k, name := range e.Mdl.PrmNames() {
				fe.Fill(0)
				if err := e.PrmGradient(fe, ue, name); err != nil {
					return chk.Err("cell %d: parameter derivative failed:\n%v", e.Cell.ID, err)
				}
				term[offsets[i]+k] = -la.VecDot(pe, fe)
			}
		}
		return nil
	})
	return
}
