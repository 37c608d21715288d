// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Solve solves the equilibrium problem without imposed offset
func (o *Domain) Solve() (err error) {
	return o.run(nil)
}

// SolveProblem solves the nonlinear equilibrium problem with an imposed displacement offset
//  offset   -- [ndof] offset added to the fluctuation field; may be nil
//  u        -- [ndof] total displacements at the end of loading
//  pressure -- [nelems] mean hydrostatic pressure of each element
func (o *Domain) SolveProblem(offset la.Vector) (u la.Vector, pressure []float64, err error) {
	if err = o.run(offset); err != nil {
		return
	}
	u = o.last.GetCopy()
	pressure = make([]float64, len(o.Elems))
	ue := make([]la.Vector, len(o.Elems))
	err = ParallelFor(o.Sim.Data.Nthreads, len(o.Elems), func(tid, start, end int) (err error) {
		for i := start; i < end; i++ {
			e := o.Elems[i]
			ue[i] = la.NewVector(e.Nu)
			e.Gather(ue[i], u)
			if pressure[i], err = e.Pressure(ue[i]); err != nil {
				return
			}
		}
		return
	})
	return
}

// Nsteps returns the number of load steps
func (o *Domain) Nsteps() int { return o.Sim.Solver.Nsteps }

// Solution returns the displacements at a load step; step 0 is the undeformed state
//  Note: intermediate steps are only available if the domain is differentiable
func (o *Domain) Solution(step int) (u la.Vector, err error) {
	if !o.Solved {
		return nil, chk.Err("domain has not been solved yet")
	}
	if step == o.Nsteps() {
		return o.last, nil
	}
	if step < 0 || step >= len(o.DiffCache) {
		return nil, chk.Err("solution at step %d is not available (differentiable = %v)", step, o.Differentiable)
	}
	return o.DiffCache[step].U, nil
}

// run performs the load stepping
func (o *Domain) run(offset la.Vector) (err error) {

	// check
	ndof := o.Ndof()
	if offset != nil && len(offset) != ndof {
		return chk.Err("offset must have %d components. %d is invalid", ndof, len(offset))
	}

	// reset states
	o.offset = offset
	o.Solved = false
	o.DiffCache = nil
	o.Summary = new(Summary)
	w := la.NewVector(o.Neq)
	u := la.NewVector(ndof)
	if o.Differentiable {
		o.DiffCache = append(o.DiffCache, &DiffCache{U: u.GetCopy()})
	}

	// load steps
	nsteps := o.Nsteps()
	for step := 1; step <= nsteps; step++ {
		λ := float64(step) / float64(nsteps)
		if err = o.runIterations(w, λ); err != nil {
			return chk.Err("load step %d (λ = %g) failed:\n%v", step, λ, err)
		}
		o.Displacements(u, w, offset, λ)
		if o.Differentiable {
			o.DiffCache = append(o.DiffCache, &DiffCache{Lambda: λ, U: u.GetCopy()})
		}
	}
	o.last = u
	o.Solved = true
	return
}

// runIterations solves the nonlinear problem at load factor λ using Newton's method; w is updated
func (o *Domain) runIterations(w la.Vector, λ float64) (err error) {

	// skip fully prescribed problems
	prms := &o.Sim.Solver
	if o.Neq == 0 {
		o.Summary.Nits = append(o.Summary.Nits, 0)
		return
	}

	// auxiliary
	ndof := o.Ndof()
	u := la.NewVector(ndof)
	f := la.NewVector(ndof)
	fext := la.NewVector(ndof)
	R := la.NewVector(o.Neq)
	δw := la.NewVector(o.Neq)
	mR := la.NewVector(o.Neq)
	Kr := la.NewTriplet(o.Neq, o.Neq, o.nnzKr)
	var it int
	var largFb, largFb0, α float64

	// message
	if prms.ShowR {
		io.Pf("\n%13s%4s%23s%13s\n", "λ", "it", "largFb", "α")
		defer func() {
			io.Pf("%13.6e%4d%23.15e\n", λ, it, largFb)
		}()
	}

	// iterations
	o.ExternalForces(fext, λ)
	for it = 0; it < prms.NmaxIt; it++ {

		// residual: R = Pᵀ (fint - fext(λ))
		o.Displacements(u, w, o.offset, λ)
		if err = o.AssembleGradient(f, u); err != nil {
			return
		}
		la.VecAdd(f, -1, fext, 1, f)
		o.Restrict(R, f)

		// find largest absolute component of R
		largFb = R.Largest(1)
		o.Summary.Resids.Append(it == 0, largFb)
		if math.IsNaN(largFb) {
			return chk.Err("residual is NaN")
		}

		// check convergence
		if it == 0 {
			largFb0 = largFb
		} else if largFb < prms.FbTol*largFb0 {
			break
		}
		if largFb < prms.FbMin {
			break
		}

		// solve Kr δw = -R
		if err = o.assembleKr(Kr, u); err != nil {
			return
		}
		la.VecAdd(mR, -1, R, 0, R)
		if err = linsolve(o.Sim.LinSol.Name, Kr, δw, mR, o.Sim.LinSol.Verbose); err != nil {
			return
		}
		o.Summary.Nfact++

		// update w
		α, err = o.lineSearch(w, δw, λ)
		if err != nil {
			return
		}
		la.VecAdd(w, α, δw, 1, w)

		// message
		if prms.ShowR {
			io.Pf("%13.6e%4d%23.15e%13.6f\n", λ, it, largFb, α)
		}
	}
	o.Summary.Nits = append(o.Summary.Nits, it)

	// check if iterations diverged
	if it == prms.NmaxIt {
		return chk.Err("max number of iterations reached: it = %d, largFb = %g", it, largFb)
	}
	return
}

// lineSearch finds α by halving the step until the total energy decreases
//  Note: failed energy evaluations are taken as infinite energy
func (o *Domain) lineSearch(w, δw la.Vector, λ float64) (α float64, err error) {
	α = 1.0
	prms := &o.Sim.Solver
	if !prms.LineSearch {
		return
	}
	u := la.NewVector(o.Ndof())
	fext := la.NewVector(o.Ndof())
	wt := la.NewVector(o.Neq)
	o.ExternalForces(fext, λ)
	energy := func(w la.Vector) float64 {
		o.Displacements(u, w, o.offset, λ)
		Ψ, err := o.AssembleEnergy(u)
		if err != nil {
			return math.Inf(1)
		}
		return Ψ - la.VecDot(fext, u)
	}
	E0 := energy(w)
	if math.IsInf(E0, 0) || math.IsNaN(E0) {
		return 0, chk.Err("energy at current state is not finite: %g", E0)
	}
	tol := 1e-10 * math.Max(1, math.Abs(E0))
	for k := 0; k < prms.LsMaxIt; k++ {
		la.VecAdd(wt, α, δw, 1, w)
		E := energy(wt)
		if !math.IsNaN(E) && E <= E0+tol {
			return
		}
		if o.Sim.Data.Debug {
			io.Pfyel("line search: α = %g  E = %g  E0 = %g\n", α, E, E0)
		}
		α *= 0.5
	}
	return
}

// linsolve solves K x = b with a new sparse solver
func linsolve(name string, K *la.Triplet, x, b la.Vector, verbose bool) (err error) {
	return linsolveMulti(name, K, []la.Vector{x}, []la.Vector{b}, verbose)
}

// linsolveMulti factorises K once and solves K xₖ = bₖ for all right-hand sides
//  Note: panics in the factorisation or solution are converted to errors
func linsolveMulti(name string, K *la.Triplet, xs, bs []la.Vector, verbose bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = chk.Err("linear solver %q failed:\n%v", name, r)
		}
	}()
	var args *la.SparseConfig
	if verbose {
		args = la.NewSparseConfig()
		args.Verbose = true
	}
	solver := la.NewSparseSolver(name)
	defer solver.Free()
	solver.Init(K, args)
	solver.Fact()
	for k, b := range bs {
		solver.Solve(xs[k], b)
	}
	return
}

// assembly ////////////////////////////////////////////////////////////////////////////////////////

// AssembleEnergy computes Ψ(u) = Σ_e Ψe(ue)
func (o *Domain) AssembleEnergy(u la.Vector) (Ψ float64, err error) {
	nt := o.nthreads()
	partial := make([]float64, nt)
	err = ParallelFor(nt, len(o.Elems), func(tid, start, end int) error {
		for i := start; i < end; i++ {
			e := o.Elems[i]
			ue := la.NewVector(e.Nu)
			e.Gather(ue, u)
			Ψe, err := e.Asm.Energy(e, ue)
			if err != nil {
				return chk.Err("cell %d: energy failed:\n%v", e.Cell.ID, err)
			}
			partial[tid] += Ψe
		}
		return nil
	})
	for _, v := range partial {
		Ψ += v
	}
	return
}

// AssembleGradient computes f = ∂Ψ/∂u; i.e. the internal forces
func (o *Domain) AssembleGradient(f, u la.Vector) (err error) {
	if err = o.elemVectors(u); err != nil {
		return
	}
	f.Fill(0)
	for i, e := range o.Elems {
		for r, I := range e.Umap {
			f[I] += o.feBuf[i][r]
		}
	}
	return
}

// AssembleHessian computes K = ∂²Ψ/∂u² over all dofs (constraints are not considered)
func (o *Domain) AssembleHessian(u la.Vector) (K *la.Triplet, err error) {
	if err = o.elemMatrices(u); err != nil {
		return
	}
	nnz := 0
	for _, e := range o.Elems {
		nnz += e.Nu * e.Nu
	}
	ndof := o.Ndof()
	K = la.NewTriplet(ndof, ndof, nnz)
	for i, e := range o.Elems {
		for r, I := range e.Umap {
			for s, J := range e.Umap {
				K.Put(I, J, o.keBuf[i].Get(r, s))
			}
		}
	}
	return
}

// assembleKr assembles Kr = Pᵀ K P into a started triplet
func (o *Domain) assembleKr(Kr *la.Triplet, u la.Vector) (err error) {
	if err = o.elemMatrices(u); err != nil {
		return
	}
	Kr.Start()
	for i, e := range o.Elems {
		for r, I := range e.Umap {
			if o.Eq[I] < 0 {
				continue
			}
			for s, J := range e.Umap {
				if o.Eq[J] < 0 {
					continue
				}
				Kr.Put(o.Eq[I], o.Eq[J], o.keBuf[i].Get(r, s))
			}
		}
	}
	return
}

// elemVectors computes all element gradients in parallel
func (o *Domain) elemVectors(u la.Vector) error {
	return ParallelFor(o.nthreads(), len(o.Elems), func(tid, start, end int) error {
		for i := start; i < end; i++ {
			e := o.Elems[i]
			ue := la.NewVector(e.Nu)
			e.Gather(ue, u)
			o.feBuf[i].Fill(0)
			if err := e.Asm.Gradient(o.feBuf[i], e, ue); err != nil {
				return chk.Err("cell %d: gradient failed:\n%v", e.Cell.ID, err)
			}
		}
		return nil
	})
}

// elemMatrices computes all element hessians in parallel
func (o *Domain) elemMatrices(u la.Vector) error {
	return ParallelFor(o.nthreads(), len(o.Elems), func(tid, start, end int) error {
		for i := start; i < end; i++ {
			e := o.Elems[i]
			ue := la.NewVector(e.Nu)
			e.Gather(ue, u)
			o.keBuf[i].Fill(0)
			if err := e.Asm.Hessian(o.keBuf[i], e, ue); err != nil {
				return chk.Err("cell %d: hessian failed:\n%v", e.Cell.ID, err)
			}
		}
		return nil
	})
}

// nthreads returns the number of goroutines used in element loops
func (o *Domain) nthreads() int {
	if o.Sim.Data.Nthreads < 1 {
		return 1
	}
	return o.Sim.Data.Nthreads
}
