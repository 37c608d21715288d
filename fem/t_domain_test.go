// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"sync/atomic"
	"testing"

	"github.com/WangweiYDYK/polyfem/ana"
	"github.com/WangweiYDYK/polyfem/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

func Test_parallel01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("parallel01. ParallelFor")

	for _, nt := range []int{0, 1, 3, 7, 20} {
		var sum int64
		visits := make([]int32, 10)
		err := ParallelFor(nt, 10, func(tid, start, end int) error {
			for i := start; i < end; i++ {
				atomic.AddInt32(&visits[i], 1)
				atomic.AddInt64(&sum, int64(i))
			}
			return nil
		})
		if err != nil {
			tst.Errorf("ParallelFor failed:\n%v", err)
			return
		}
		chk.Int(tst, io.Sf("nt=%d: sum", nt), int(sum), 45)
		for i, v := range visits {
			chk.Int(tst, io.Sf("nt=%d: visits[%d]", nt, i), int(v), 1)
		}
	}

	err := ParallelFor(4, 8, func(tid, start, end int) error {
		if tid == 2 {
			return chk.Err("failure in goroutine %d", tid)
		}
		return nil
	})
	if err == nil {
		tst.Errorf("ParallelFor should have returned an error\n")
	}
	if err = ParallelFor(4, 0, nil); err != nil {
		tst.Errorf("ParallelFor with n = 0 should do nothing\n")
	}
}

func Test_periodic01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("periodic01. periodic equations")

	dom := newTestDomain(tst, `{
	  "data" : { "periodic" : true },
	  "mesh" : { "generate" : { "type" : "qua4", "ndiv" : [2,2], "xmin" : [0,0], "xmax" : [1,1] } },
	  "materials" : [ { "tag" : -1, "type" : "NeoHookean", "prms" : [ {"n":"lambda", "v":1}, {"n":"mu", "v":1} ] } ]
	}`)

	//   6 --- 7 --- 8
	//   |     |     |
	//   3 --- 4 --- 5
	//   |     |     |
	//   0 --- 1 --- 2
	chk.Int(tst, "ndof", dom.Ndof(), 18)
	chk.Int(tst, "neq", dom.Neq, 6)
	for _, v := range []int{0, 2, 6, 8} {
		chk.Ints(tst, io.Sf("eq @ corner %d", v), dom.Eq[v*2:v*2+2], []int{-1, -1})
	}
	chk.Ints(tst, "eq @ 3", dom.Eq[3*2:3*2+2], dom.Eq[5*2:5*2+2])
	chk.Ints(tst, "eq @ 1", dom.Eq[1*2:1*2+2], dom.Eq[7*2:7*2+2])
	eqs := map[int]bool{}
	for _, v := range []int{1, 3, 4} {
		for k := 0; k < 2; k++ {
			eqs[dom.Eq[v*2+k]] = true
		}
	}
	chk.Int(tst, "number of distinct equations", len(eqs), 6)
	chk.Float64(tst, "volume", 1e-15, dom.Volume(), 1)

	// prolongation and restriction are transposed
	r := la.NewVector(dom.Neq)
	f := la.NewVector(dom.Ndof())
	for i := range r {
		r[i] = float64(i + 1)
	}
	dom.Prolong(f, r)
	chk.Float64(tst, "f @ 5x", 1e-15, f[5*2], r[dom.Eq[3*2]])
	g := la.NewVector(dom.Ndof())
	for i := range g {
		g[i] = float64(i)
	}
	gr := la.NewVector(dom.Neq)
	dom.Restrict(gr, g)
	chk.Float64(tst, "<Pr,g> = <r,Pᵀg>", 1e-12, la.VecDot(f, g), la.VecDot(r, gr))

	// non-periodic mesh
	m := inp.GenTriRegion(2, 2, []float64{0, 0}, []float64{1, 1})
	m.Verts[1].X[0] = 0.3
	if _, err := PeriodicPairs(m); err == nil {
		tst.Errorf("PeriodicPairs should have failed with distorted mesh\n")
	}
}

const uniaxialSim = `{
  "data" : { "nthreads" : 2 },
  "mesh" : { "generate" : { "type" : "%s", "ndiv" : [3,2], "xmin" : [0,0], "xmax" : [3,2] } },
  "materials" : [ { "tag" : -1, "type" : "LinearElasticity", "prms" : [ {"n":"lambda", "v":600}, {"n":"mu", "v":400} ] } ],
  "essenbcs" : [
    { "side" : "xmin", "keys" : ["ux"], "vals" : [0] },
    { "side" : "xmax", "keys" : ["ux"], "vals" : [0.003] },
    { "side" : "ymin", "keys" : ["uy"], "vals" : [0] }
  ]
}`

func Test_patch01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("patch01. uniaxial strain with linear elasticity")

	var sol ana.UniaxialPstrain
	sol.Init(utl.Params{
		&utl.P{N: "lambda", V: 600},
		&utl.P{N: "mu", V: 400},
		&utl.P{N: "eps", V: 0.001},
	})
	sx, sy, sz, _ := sol.Stress()
	io.Pforan("σ = %v %v %v\n", sx, sy, sz)
	chk.Float64(tst, "σy", 1e-12, sy, 0)

	for _, ctype := range []string{"qua4", "tri3", "qua8"} {
		dom := newTestDomain(tst, io.Sf(uniaxialSim, ctype))
		u, pressure, err := dom.SolveProblem(nil)
		if err != nil {
			tst.Errorf("%s: SolveProblem failed:\n%v", ctype, err)
			return
		}
		for _, v := range dom.Msh.Verts {
			sol.CheckDispl(tst, u[v.ID*2:v.ID*2+2], v.X, 1e-12)
		}
		_, εyy := sol.Strains()
		p := -sx / (1 + εyy) / 2 // σ = P Fᵀ / J with diagonal F
		for i := range pressure {
			chk.Float64(tst, io.Sf("%s: pressure %d", ctype, i), 1e-10, pressure[i], p)
		}
		chk.Ints(tst, io.Sf("%s: nits", ctype), dom.Summary.Nits, []int{1})
	}
}

const stretchSim = `{
  "data" : { "nthreads" : 3, "differentiable" : true },
  "mesh" : { "generate" : { "type" : "qua4", "ndiv" : [2,2], "xmin" : [0,0], "xmax" : [2,1] } },
  "materials" : [ { "tag" : -1, "type" : "NeoHookean", "prms" : [ {"n":"E", "v":100}, {"n":"nu", "v":0.3} ] } ],
  "essenbcs" : [
    { "side" : "xmin", "keys" : ["ux","uy"], "vals" : [0,0] }
  ],
  "ptloads" : [ { "side" : "xmax", "keys" : ["fx","fy"], "vals" : [4,1] } ],
  "solver" : { "nsteps" : 2 }
}`

func Test_newton01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("newton01. NeoHookean cantilever. equilibrium")

	dom := newTestDomain(tst, stretchSim)
	err := dom.Solve()
	if err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	chk.Int(tst, "number of kept states", len(dom.DiffCache), 3)
	chk.Int(tst, "number of load steps", len(dom.Summary.Nits), 2)

	// residual at free dofs vanishes at every load step
	f := la.NewVector(dom.Ndof())
	fext := la.NewVector(dom.Ndof())
	r := la.NewVector(dom.Neq)
	for step := 0; step <= dom.Nsteps(); step++ {
		u, err := dom.Solution(step)
		if err != nil {
			tst.Errorf("Solution failed:\n%v", err)
			return
		}
		dom.AssembleGradient(f, u)
		dom.ExternalForces(fext, dom.DiffCache[step].Lambda)
		la.VecAdd(f, -1, fext, 1, f)
		dom.Restrict(r, f)
		io.Pforan("step %d: max |R| = %v\n", step, r.Largest(1))
		chk.Float64(tst, io.Sf("R @ step %d", step), 1e-9, r.Largest(1), 0)
	}

	// prescribed displacements
	u, _ := dom.Solution(2)
	ids, _ := inp.SelectVerts(dom.Msh, 0, "xmin")
	for _, v := range ids {
		chk.Array(tst, io.Sf("u @ %d", v), 1e-15, u[v*2:v*2+2], []float64{0, 0})
	}
	if u[8*2] <= 0 {
		tst.Errorf("tip must move to the right: ux = %g\n", u[8*2])
	}

	// energy gradient and hessian against finite differences
	ndof := dom.Ndof()
	K, err := dom.AssembleHessian(u)
	if err != nil {
		tst.Errorf("AssembleHessian failed:\n%v", err)
		return
	}
	dom.AssembleGradient(f, u)
	chk.DerivScaVec(tst, "f", 1e-6, f, u, 1e-3, chk.Verbose, func(x []float64) float64 {
		Ψ, err := dom.AssembleEnergy(x)
		if err != nil {
			tst.Fatalf("AssembleEnergy failed:\n%v", err)
		}
		return Ψ
	})
	tmp := la.NewVector(ndof)
	chk.DerivVecVec(tst, "K", 1e-6, K.ToDense().GetDeep2(), u, 1e-3, chk.Verbose, func(res, x []float64) {
		if err := dom.AssembleGradient(tmp, x); err != nil {
			tst.Fatalf("AssembleGradient failed:\n%v", err)
		}
		copy(res, tmp)
	})
}

func Test_adjoint01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("adjoint01. adjoint terms of loads and material parameters")

	// objective: J = ½ uᵀu at a load step; thus ∂J/∂u = u
	dom := newTestDomain(tst, stretchSim)
	objective := func(step int) float64 {
		if err := dom.Solve(); err != nil {
			tst.Fatalf("Solve failed:\n%v", err)
		}
		u, _ := dom.Solution(step)
		return la.VecDot(u, u) / 2
	}

	for _, kind := range []string{"load", "lame"} {
		for _, step := range []int{1, 2} {

			// analytical
			objective(step)
			u, _ := dom.Solution(step)
			if err := dom.SolveAdjoint(u, step); err != nil {
				tst.Errorf("SolveAdjoint failed:\n%v", err)
				return
			}
			term, err := dom.AdjointTerm(kind, step)
			if err != nil {
				tst.Errorf("AdjointTerm failed:\n%v", err)
				return
			}

			// numerical
			y0, _ := dom.Parameter(kind)
			chk.DerivScaVec(tst, io.Sf("%s @ step %d: dJ/dy", kind, step), 1e-6, term, y0, 1e-3, chk.Verbose, func(y []float64) float64 {
				if err := dom.SetParameter(kind, y); err != nil {
					tst.Fatalf("SetParameter failed:\n%v", err)
				}
				return objective(step)
			})
			dom.SetParameter(kind, y0)
		}
	}
}

func Test_adjoint02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("adjoint02. errors")

	dom := newTestDomain(tst, io.Sf(uniaxialSim, "qua4"))
	rhs := la.NewVector(dom.Ndof())
	if err := dom.SolveAdjoint(rhs, 0); err == nil {
		tst.Errorf("SolveAdjoint should have failed before solving\n")
	}
	if err := dom.Solve(); err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	if err := dom.SolveAdjoint(rhs, 1); err == nil {
		tst.Errorf("SolveAdjoint should have failed without differentiability\n")
	}
	if _, err := dom.Adjoint(0); err == nil {
		tst.Errorf("Adjoint should have failed without differentiability\n")
	}
	if _, err := dom.AdjointTerm("area", 0); err == nil {
		tst.Errorf("AdjointTerm should have failed with invalid kind\n")
	}
	if err := dom.SetParameter("lame", la.NewVector(3)); err == nil {
		tst.Errorf("SetParameter should have failed with wrong size\n")
	}

	// cache is consumed
	dom.Differentiable = true
	dom.Solve()
	if err := dom.SolveAdjoint(rhs, 1); err != nil {
		tst.Errorf("SolveAdjoint failed:\n%v", err)
		return
	}
	if _, err := dom.SolveAdjoints([]la.Vector{rhs, la.NewVector(3)}, 1); err == nil {
		tst.Errorf("SolveAdjoints should have failed with wrong size\n")
	}

	// several right-hand sides share one factorisation
	r1, r2 := la.NewVector(dom.Ndof()), la.NewVector(dom.Ndof())
	for I := range r1 {
		r1[I] = float64(I%5) - 2
		r2[I] = float64(I % 3)
	}
	nfact := dom.Summary.Nfact
	ps, err := dom.SolveAdjoints([]la.Vector{r1, r2}, 1)
	if err != nil {
		tst.Errorf("SolveAdjoints failed:\n%v", err)
		return
	}
	chk.Int(tst, "one factorisation", dom.Summary.Nfact, nfact+1)
	for k, r := range []la.Vector{r1, r2} {
		if err := dom.SolveAdjoint(r, 1); err != nil {
			tst.Errorf("SolveAdjoint failed:\n%v", err)
			return
		}
		p, _ := dom.Adjoint(1)
		chk.Array(tst, io.Sf("p%d", k), 1e-14, ps[k], p)
	}
	chk.Int(tst, "one factorisation per single solve", dom.Summary.Nfact, nfact+3)
	dom.ClearDiffCache()
	if _, err := dom.Adjoint(1); err == nil {
		tst.Errorf("Adjoint should have failed after ClearDiffCache\n")
	}
}

func Test_amplitude01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("amplitude01. non-linear load paths")

	// prescribed displacements following a(λ) = λ²
	dom := newTestDomain(tst, `{
	  "data" : { "differentiable" : true },
	  "mesh" : { "generate" : { "type" : "qua4", "ndiv" : [3,2], "xmin" : [0,0], "xmax" : [3,2] } },
	  "functions" : [ { "name" : "square", "type" : "poly", "p" : 2, "xs" : [0,0.5,1], "ys" : [0,0.25,1] } ],
	  "materials" : [ { "tag" : -1, "type" : "LinearElasticity", "prms" : [ {"n":"lambda", "v":600}, {"n":"mu", "v":400} ] } ],
	  "essenbcs" : [
	    { "side" : "xmin", "keys" : ["ux"], "vals" : [0] },
	    { "side" : "xmax", "keys" : ["ux"], "vals" : [0.003], "func" : "square" },
	    { "side" : "ymin", "keys" : ["uy"], "vals" : [0] }
	  ],
	  "solver" : { "nsteps" : 2 }
	}`)
	if err := dom.Solve(); err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	for step, eps := range []float64{0, 0.00025, 0.001} {
		var sol ana.UniaxialPstrain
		sol.Init(utl.Params{
			&utl.P{N: "lambda", V: 600},
			&utl.P{N: "mu", V: 400},
			&utl.P{N: "eps", V: eps},
		})
		u, _ := dom.Solution(step)
		for _, v := range dom.Msh.Verts {
			sol.CheckDispl(tst, u[v.ID*2:v.ID*2+2], v.X, 1e-12)
		}
	}

	// point loads following a piecewise linear curve
	ref := newTestDomain(tst, stretchSim)
	if err := ref.Solve(); err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	dom = newTestDomain(tst, `{
	  "data" : { "nthreads" : 2, "differentiable" : true },
	  "mesh" : { "generate" : { "type" : "qua4", "ndiv" : [2,2], "xmin" : [0,0], "xmax" : [2,1] } },
	  "functions" : [ { "name" : "fast", "type" : "pts", "xs" : [0,0.5,1], "ys" : [0,0.8,1] } ],
	  "materials" : [ { "tag" : -1, "type" : "NeoHookean", "prms" : [ {"n":"E", "v":100}, {"n":"nu", "v":0.3} ] } ],
	  "essenbcs" : [ { "side" : "xmin", "keys" : ["ux","uy"], "vals" : [0,0] } ],
	  "ptloads" : [ { "side" : "xmax", "keys" : ["fx","fy"], "vals" : [4,1], "func" : "fast" } ],
	  "solver" : { "nsteps" : 2 }
	}`)
	if err := dom.Solve(); err != nil {
		tst.Errorf("Solve failed:\n%v", err)
		return
	}
	fext := la.NewVector(dom.Ndof())
	dom.ExternalForces(fext, 0.5)
	for I := range fext {
		chk.Float64(tst, io.Sf("fext @ λ=0.5 [%d]", I), 1e-15, fext[I], 0.8*dom.Fext[I])
	}

	// same final state; different intermediate state
	u1, _ := dom.Solution(1)
	u2, _ := dom.Solution(2)
	r1, _ := ref.Solution(1)
	r2, _ := ref.Solution(2)
	chk.Array(tst, "u @ step 2", 1e-8, u2, r2)
	if u1[8*2] <= r1[8*2] {
		tst.Errorf("tip must move further at step 1: %g <= %g\n", u1[8*2], r1[8*2])
	}

	// residual vanishes at every step
	f := la.NewVector(dom.Ndof())
	r := la.NewVector(dom.Neq)
	for step := 1; step <= dom.Nsteps(); step++ {
		u, _ := dom.Solution(step)
		dom.AssembleGradient(f, u)
		dom.ExternalForces(fext, dom.DiffCache[step].Lambda)
		la.VecAdd(f, -1, fext, 1, f)
		dom.Restrict(r, f)
		chk.Float64(tst, io.Sf("R @ step %d", step), 1e-9, r.Largest(1), 0)
	}

	// adjoint term of loads includes the amplitude
	objective := func() float64 {
		if err := dom.Solve(); err != nil {
			tst.Fatalf("Solve failed:\n%v", err)
		}
		u, _ := dom.Solution(1)
		return la.VecDot(u, u) / 2
	}
	objective()
	if err := dom.SolveAdjoint(u1, 1); err != nil {
		tst.Errorf("SolveAdjoint failed:\n%v", err)
		return
	}
	term, err := dom.AdjointTerm("load", 1)
	if err != nil {
		tst.Errorf("AdjointTerm failed:\n%v", err)
		return
	}
	y0, _ := dom.Parameter("load")
	chk.DerivScaVec(tst, "load @ step 1: dJ/dy", 1e-6, term, y0, 1e-3, chk.Verbose, func(y []float64) float64 {
		if err := dom.SetParameter("load", y); err != nil {
			tst.Fatalf("SetParameter failed:\n%v", err)
		}
		return objective()
	})
	dom.SetParameter("load", y0)

	// loads on the same dof must share their amplitude
	sim, err := inp.NewSimulation([]byte(`{
	  "mesh" : { "generate" : { "type" : "qua4", "ndiv" : [1,1], "xmin" : [0,0], "xmax" : [1,1] } },
	  "functions" : [ { "name" : "fast", "type" : "pts", "xs" : [0,0.5,1], "ys" : [0,0.8,1] } ],
	  "materials" : [ { "tag" : -1, "type" : "NeoHookean", "prms" : [ {"n":"E", "v":100}, {"n":"nu", "v":0.3} ] } ],
	  "ptloads" : [
	    { "side" : "xmax", "keys" : ["fx"], "vals" : [1] },
	    { "side" : "xmax", "keys" : ["fx"], "vals" : [1], "func" : "fast" }
	  ]
	}`), ".")
	if err != nil {
		tst.Errorf("NewSimulation failed:\n%v", err)
		return
	}
	if _, err = NewDomain(sim); err == nil {
		tst.Errorf("NewDomain should have failed with mixed amplitudes\n")
	}
}
