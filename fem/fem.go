// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package fem implements the simulation state of hyperelastic solids with the finite element
// method: elements, assemblers, periodic and essential constraints, load-stepped Newton solves
// and adjoint solves
package fem

import (
	"time"

	"github.com/WangweiYDYK/polyfem/inp"
	"github.com/WangweiYDYK/polyfem/msolid"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// FEM holds all data for a simulation using the finite element method
type FEM struct {
	Sim     *inp.Simulation // simulation data
	Domain  *Domain         // domain
	Verbose bool            // show messages
}

// NewFEM returns a new FEM structure
//  Input:
//   simfilepath -- simulation (.sim) filename including full path
//   verbose     -- show messages
func NewFEM(simfilepath string, verbose bool) (o *FEM, err error) {
	o = new(FEM)
	o.Verbose = verbose
	o.Sim, err = inp.ReadSim(simfilepath)
	if err != nil {
		return nil, err
	}
	o.Domain, err = NewDomain(o.Sim)
	if err != nil {
		return nil, chk.Err("cannot allocate domain:\n%v", err)
	}
	return
}

// Run runs FE simulation
//  saveResults -- save solution and summary to Sim.Data.DirOut
func (o *FEM) Run(saveResults bool) (err error) {

	// message
	d := o.Domain
	if o.Verbose {
		io.Pf("\nndim   = %d\n", d.Ndim)
		io.Pf("nelems = %d\n", len(d.Elems))
		io.Pf("ndof   = %d\n", d.Ndof())
		io.Pf("neq    = %d\n", d.Neq)
	}

	// solve
	cputime := time.Now()
	if err = d.Solve(); err != nil {
		return
	}

	// message
	if o.Verbose {
		io.Pf("\n")
		d.Summary.Print()
		io.Pflmag("cpu time   = %v\n", time.Since(cputime))
	}

	// save results
	if saveResults {
		if err = d.SaveSol(o.Verbose); err != nil {
			return
		}
		err = d.Summary.Save(o.Sim.Data.DirOut, o.Sim.Key, o.Sim.Data.Encoder, o.Verbose)
	}
	return
}

// VonMises computes the volume average of the von Mises stress over each element
//  Note: zero for elements without pointwise models
func (o *FEM) VonMises() (res []float64, err error) {
	u, err := o.Domain.Solution(o.Domain.Nsteps())
	if err != nil {
		return
	}
	d := o.Domain
	res = make([]float64, len(d.Elems))
	err = ParallelFor(o.Sim.Data.Nthreads, len(d.Elems), func(tid, start, end int) error {
		F := la.NewMatrix(d.Ndim, d.Ndim)
		P := la.NewMatrix(d.Ndim, d.Ndim)
		for i := start; i < end; i++ {
			e := d.Elems[i]
			if e.Mdl == nil {
				continue
			}
			ue := la.NewVector(e.Nu)
			e.Gather(ue, u)
			for idx, ip := range e.Vals.Ips {
				e.DefGrad(F, ue, idx)
				if err := e.Mdl.Stress(P, F); err != nil {
					return chk.Err("cell %d:\n%v", e.Cell.ID, err)
				}
				vm, err := msolid.VonMises(P, F)
				if err != nil {
					return chk.Err("cell %d:\n%v", e.Cell.ID, err)
				}
				res[i] += vm * ip.Da / e.Vals.Volume
			}
		}
		return nil
	})
	return
}
