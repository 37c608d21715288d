// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package homog implements the homogenization of periodic microstructures: effective energy,
// stress and stiffness of a unit cell under an imposed macroscopic deformation gradient
//
//  All 2nd and 4th order tensors are flattened row-major: (a,b) => a*d+b.
//  ReindexStiffness is the only place where this convention changes.
//
package homog

import (
	"sync"

	"github.com/WangweiYDYK/polyfem/fem"
	"github.com/WangweiYDYK/polyfem/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Want selects the homogenized quantities; each level includes the previous ones
type Want int

const (
	WantEnergy    Want = iota // energy only
	WantStress                // energy and stress
	WantStiffness             // energy, stress and stiffness; requires d² adjoint solves
)

// Result holds homogenized quantities
type Result struct {
	Energy    float64    // effective energy density
	Stress    *la.Matrix // [d][d] effective first Piola-Kirchhoff stress; nil if not wanted
	Stiffness *la.Matrix // [d²][d²] effective tangent C[a*d+b][k*d+l]; nil if not wanted
}

// Homogenizer computes the effective response of a periodic unit cell
//  Note: the microcell domain is owned by the Homogenizer; calls are serialised
type Homogenizer struct {
	Dom         *fem.Domain // microcell
	Ndim        int         // space dimension
	CheckDerivs bool        // verify stress and stiffness by finite differences in the assembler bridge
	volume      float64     // volume of bounding box of microcell; fixed at construction
	mutex       sync.Mutex  // guards Dom
}

// New allocates a new homogenizer
//  micro -- unit cell data; the mesh must be periodic
func New(micro *inp.Simulation) (o *Homogenizer, err error) {
	if micro == nil {
		return nil, chk.Err("microstructure data is missing")
	}
	o = new(Homogenizer)
	o.Dom, err = fem.NewDomain(micro)
	if err != nil {
		return nil, chk.Err("cannot allocate microcell:\n%v", err)
	}
	o.Ndim = o.Dom.Ndim
	o.volume = o.Dom.Volume()
	o.CheckDerivs = micro.Data.CheckDerivs
	if o.volume <= 0 {
		return nil, chk.Err("volume of microcell must be positive. %g is invalid", o.volume)
	}
	return
}

// Volume returns the volume of the microcell used to normalise all averages
func (o *Homogenizer) Volume() float64 { return o.volume }

// SolveMicrocell imposes u = (F - I)⋅X as offset and solves the periodic equilibrium problem
func (o *Homogenizer) SolveMicrocell(F *la.Matrix) (u la.Vector, err error) {
	if o.Dom == nil || o.Dom.Msh == nil || len(o.Dom.Msh.Verts) == 0 {
		return nil, chk.Err("no microstructure mesh found")
	}
	d := o.Ndim
	if F.M != d || F.N != d {
		return nil, chk.Err("deformation gradient must be %d×%d. %d×%d is invalid", d, d, F.M, F.N)
	}
	offset := la.NewVector(o.Dom.Ndof())
	for _, v := range o.Dom.Msh.Verts {
		for k := 0; k < d; k++ {
			for l := 0; l < d; l++ {
				H := F.Get(k, l)
				if k == l {
					H -= 1
				}
				offset[v.ID*d+k] += H * v.X[l]
			}
		}
	}
	u, _, err = o.Dom.SolveProblem(offset)
	if err != nil {
		return nil, chk.Err("microcell equilibrium failed:\n%v", err)
	}
	return
}

// Energy computes the volume average of the strain energy density
func (o *Homogenizer) Energy(u la.Vector) (W float64, err error) {
	W, err = o.Dom.AssembleEnergy(u)
	return W / o.volume, err
}

// Stress computes the volume average of the first Piola-Kirchhoff stress
func (o *Homogenizer) Stress(u la.Vector) (P *la.Matrix, err error) {
	d := o.Ndim
	nt := max(1, o.Dom.Sim.Data.Nthreads)
	partial := make([]*la.Matrix, nt)
	err = fem.ParallelFor(nt, len(o.Dom.Elems), func(tid, start, end int) error {
		partial[tid] = la.NewMatrix(d, d)
		Pip := la.NewMatrix(d, d)
		for i := start; i < end; i++ {
			e := o.Dom.Elems[i]
			ue := la.NewVector(e.Nu)
			e.Gather(ue, u)
			for idx, ip := range e.Vals.Ips {
				if err := e.TensorValue(Pip, ue, idx); err != nil {
					return err
				}
				la.MatAdd(partial[tid], ip.Da, Pip, 1, partial[tid])
			}
		}
		return nil
	})
	if err != nil {
		return nil, chk.Err("cannot homogenize stress:\n%v", err)
	}
	P = la.NewMatrix(d, d)
	for _, p := range partial {
		if p != nil {
			la.MatAdd(P, 1/o.volume, p, 1, P)
		}
	}
	return
}

// Stiffness computes the effective tangent
//
//   C = (avg - CB ⋅ term2) / V
//
//  where avg = Σ_e Σ_ip C_ip da, CB[X][v*d+k] = Σ_ip Σ_l C_ip[X][k*d+l] G[v][l] da and the
//  columns of term2 are adjoint solutions with the rows of CB as right-hand sides.
//  Note: requires a prior nonlinear solve of a differentiable microcell; the differentiability
//        cache is consumed by this call
func (o *Homogenizer) Stiffness(u la.Vector) (C *la.Matrix, err error) {

	// check
	if !o.Dom.Solved {
		return nil, chk.Err("need nl problem to homogenize stiffness")
	}
	if len(o.Dom.DiffCache) == 0 {
		return nil, chk.Err("need differentiability of micro state to homogenize stiffness")
	}
	defer o.Dom.ClearDiffCache()

	// averaged tangent and element contributions to CB
	d := o.Ndim
	dd := d * d
	nelems := len(o.Dom.Elems)
	nt := max(1, o.Dom.Sim.Data.Nthreads)
	partial := make([]*la.Matrix, nt)
	cbe := make([]*la.Matrix, nelems)
	err = fem.ParallelFor(nt, nelems, func(tid, start, end int) error {
		partial[tid] = la.NewMatrix(dd, dd)
		Cip := la.NewMatrix(dd, dd)
		for i := start; i < end; i++ {
			e := o.Dom.Elems[i]
			ue := la.NewVector(e.Nu)
			e.Gather(ue, u)
			cbe[i] = la.NewMatrix(dd, e.Nu)
			for idx, ip := range e.Vals.Ips {
				if err := e.StiffnessValue(Cip, ue, idx); err != nil {
					return err
				}
				la.MatAdd(partial[tid], ip.Da, Cip, 1, partial[tid])
				for v := 0; v < e.Vals.Nverts; v++ {
					for X := 0; X < dd; X++ {
						for k := 0; k < d; k++ {
							s := 0.0
							for l := 0; l < d; l++ {
								s += Cip.Get(X, k*d+l) * ip.G.Get(v, l)
							}
							cbe[i].Add(X, k+v*d, s*ip.Da)
						}
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, chk.Err("cannot homogenize stiffness:\n%v", err)
	}
	avg := la.NewMatrix(dd, dd)
	for _, p := range partial {
		if p != nil {
			la.MatAdd(avg, 1, p, 1, avg)
		}
	}

	// CB matrix
	ndof := o.Dom.Ndof()
	CB := la.NewMatrix(dd, ndof)
	for i, e := range o.Dom.Elems {
		for X := 0; X < dd; X++ {
			for r, I := range e.Umap {
				CB.Add(X, I, cbe[i].Get(X, r))
			}
		}
	}

	// term2: adjoint solutions with the rows of CB as right-hand sides
	step := len(o.Dom.DiffCache) - 1
	rows := make([]la.Vector, dd)
	for i := range rows {
		rows[i] = CB.GetRow(i)
	}
	ps, err := o.Dom.SolveAdjoints(rows, step)
	if err != nil {
		return nil, chk.Err("cannot compute stiffness correction:\n%v", err)
	}
	term2 := la.NewMatrix(ndof, dd)
	for i, p := range ps {
		for I := 0; I < ndof; I++ {
			term2.Set(I, i, p[I])
		}
	}

	// C = (avg - CB⋅term2) / V
	C = la.NewMatrix(dd, dd)
	la.MatMatMul(C, -1/o.volume, CB, term2)
	la.MatAdd(C, 1/o.volume, avg, 1, C)
	return
}

// DefGrad computes the volume average of the deformation gradient of the microcell
//  Note: equal to the imposed F for periodic fluctuations
func (o *Homogenizer) DefGrad(u la.Vector) (F *la.Matrix) {
	d := o.Ndim
	F = la.NewMatrix(d, d)
	Fip := la.NewMatrix(d, d)
	for _, e := range o.Dom.Elems {
		ue := la.NewVector(e.Nu)
		e.Gather(ue, u)
		for idx, ip := range e.Vals.Ips {
			e.DefGrad(Fip, ue, idx)
			la.MatAdd(F, ip.Da/o.volume, Fip, 1, F)
		}
	}
	return
}

// Homogenize solves the microcell under F and computes the wanted quantities
func (o *Homogenizer) Homogenize(F *la.Matrix, want Want) (res Result, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	u, err := o.SolveMicrocell(F)
	if err != nil {
		return
	}
	if res.Energy, err = o.Energy(u); err != nil {
		return
	}
	if want >= WantStress {
		if res.Stress, err = o.Stress(u); err != nil {
			return
		}
	}
	if want >= WantStiffness {
		if res.Stiffness, err = o.Stiffness(u); err != nil {
			return
		}
	}
	if o.Dom.Sim.Data.Debug {
		io.Pforan("homogenize: F = %v  W = %v\n", F.GetDeep2(), res.Energy)
	}
	return
}

// HomogenizeEnergy returns the effective energy density at F
func (o *Homogenizer) HomogenizeEnergy(F *la.Matrix) (W float64, err error) {
	res, err := o.Homogenize(F, WantEnergy)
	return res.Energy, err
}

// HomogenizeStress returns the effective energy density and stress at F
func (o *Homogenizer) HomogenizeStress(F *la.Matrix) (W float64, P *la.Matrix, err error) {
	res, err := o.Homogenize(F, WantStress)
	return res.Energy, res.Stress, err
}

// HomogenizeStiffness returns the effective energy density, stress and stiffness at F
func (o *Homogenizer) HomogenizeStiffness(F *la.Matrix) (res Result, err error) {
	return o.Homogenize(F, WantStiffness)
}

// ReindexStiffness converts a 4th order tensor from the row-major layout (i*d+j, k*d+l) into the
// column-major layout (i+j*d, k+l*d) used to multiply column-major flattened matrices
func ReindexStiffness(C *la.Matrix, d int) (R *la.Matrix) {
	R = la.NewMatrix(d*d, d*d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			for k := 0; k < d; k++ {
				for l := 0; l < d; l++ {
					R.Set(i+j*d, k+l*d, C.Get(i*d+j, k*d+l))
				}
			}
		}
	}
	return
}
