// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/WangweiYDYK/polyfem/msolid"
	"github.com/WangweiYDYK/polyfem/shp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/gm/msh"
	"github.com/cpmech/gosl/la"
)

// Element holds the data of one solid element
//  Local displacements are node-major: ue[i + m*ndim] is the i-th component at the m-th vertex
type Element struct {
	Cell *msh.Cell    // the cell
	Ndim int          // space dimension
	Nu   int          // number of local dofs = nverts * ndim
	X    *la.Matrix   // coordinates [nverts][ndim]
	Umap []int        // local dof => global dof
	Vals *shp.Values  // shape values at integration points (read-only)
	Mdl  msolid.Model // constitutive model; nil if Asm does not use one
	Asm  Assembler    // assembler of energy, gradient and hessian
	Mat  string       // material type
}

// NewElement allocates a new element
func NewElement(cell *msh.Cell, ndim int) (o *Element, err error) {
	o = &Element{Cell: cell, Ndim: ndim}
	o.X = cell.X
	if o.X == nil || o.X.N != ndim {
		return nil, chk.Err("cell %d: coordinates matrix is not available or has wrong dimension", cell.ID)
	}
	o.Vals, err = shp.NewValues(cell.TypeKey, o.X, nil)
	if err != nil {
		return nil, chk.Err("cell %d:\n%v", cell.ID, err)
	}
	nverts := len(cell.V)
	o.Nu = nverts * ndim
	o.Umap = make([]int, o.Nu)
	for m, v := range cell.V {
		for i := 0; i < ndim; i++ {
			o.Umap[i+m*ndim] = v*ndim + i
		}
	}
	return
}

// Gather extracts local displacements from global ones
func (o *Element) Gather(ue, u la.Vector) {
	for r, I := range o.Umap {
		ue[r] = u[I]
	}
}

// DefGrad computes F = I + ueᵀ⋅G at integration point idx
func (o *Element) DefGrad(F *la.Matrix, ue la.Vector, idx int) {
	G := o.Vals.Ips[idx].G
	for i := 0; i < o.Ndim; i++ {
		for j := 0; j < o.Ndim; j++ {
			v := 0.0
			if i == j {
				v = 1.0
			}
			for m := 0; m < o.Vals.Nverts; m++ {
				v += ue[i+m*o.Ndim] * G.Get(m, j)
			}
			F.Set(i, j, v)
		}
	}
}

// EnergyValue computes ψ at integration point idx
func (o *Element) EnergyValue(ue la.Vector, idx int) (ψ float64, err error) {
	if o.Mdl == nil {
		return 0, chk.Err("cell %d: material %q does not provide pointwise values", o.Cell.ID, o.Mat)
	}
	F := la.NewMatrix(o.Ndim, o.Ndim)
	o.DefGrad(F, ue, idx)
	return o.Mdl.Energy(F), nil
}

// TensorValue computes the first Piola-Kirchhoff stress P at integration point idx
func (o *Element) TensorValue(P *la.Matrix, ue la.Vector, idx int) (err error) {
	if o.Mdl == nil {
		return chk.Err("cell %d: material %q does not provide pointwise values", o.Cell.ID, o.Mat)
	}
	F := la.NewMatrix(o.Ndim, o.Ndim)
	o.DefGrad(F, ue, idx)
	return o.Mdl.Stress(P, F)
}

// StiffnessValue computes C = ∂P/∂F at integration point idx. Layout: C[i*d+j][k*d+l]
func (o *Element) StiffnessValue(C *la.Matrix, ue la.Vector, idx int) (err error) {
	if o.Mdl == nil {
		return chk.Err("cell %d: material %q does not provide pointwise values", o.Cell.ID, o.Mat)
	}
	F := la.NewMatrix(o.Ndim, o.Ndim)
	o.DefGrad(F, ue, idx)
	return o.Mdl.Tangent(C, F)
}

// PrmGradient adds ∂fe/∂θ to fe where fe is the internal force and θ is a model parameter
func (o *Element) PrmGradient(fe la.Vector, ue la.Vector, name string) (err error) {
	if o.Mdl == nil {
		return chk.Err("cell %d: material %q has no parameters", o.Cell.ID, o.Mat)
	}
	F := la.NewMatrix(o.Ndim, o.Ndim)
	dP := la.NewMatrix(o.Ndim, o.Ndim)
	for idx, ip := range o.Vals.Ips {
		o.DefGrad(F, ue, idx)
		if err = o.Mdl.PrmDeriv(dP, F, name); err != nil {
			return
		}
		o.addDivergence(fe, dP, ip)
	}
	return
}

// Pressure computes the mean hydrostatic pressure p = -tr(σ)/d over the element
//  Note: returns zero if the element has no pointwise model
func (o *Element) Pressure(ue la.Vector) (p float64, err error) {
	if o.Mdl == nil {
		return
	}
	F := la.NewMatrix(o.Ndim, o.Ndim)
	P := la.NewMatrix(o.Ndim, o.Ndim)
	for idx, ip := range o.Vals.Ips {
		o.DefGrad(F, ue, idx)
		if err = o.Mdl.Stress(P, F); err != nil {
			return
		}
		J := msolid.Det(F)
		tr := 0.0 // tr(σ) = tr(P⋅Fᵀ)/J
		for i := 0; i < o.Ndim; i++ {
			for j := 0; j < o.Ndim; j++ {
				tr += P.Get(i, j) * F.Get(i, j)
			}
		}
		p -= tr / (J * float64(o.Ndim)) * ip.Da
	}
	return p / o.Vals.Volume, nil
}

// addDivergence adds fe[i + m*d] += Σ_j T_ij G_mj da
func (o *Element) addDivergence(fe la.Vector, T *la.Matrix, ip *shp.IpValues) {
	for m := 0; m < o.Vals.Nverts; m++ {
		for i := 0; i < o.Ndim; i++ {
			for j := 0; j < o.Ndim; j++ {
				fe[i+m*o.Ndim] += T.Get(i, j) * ip.G.Get(m, j) * ip.Da
			}
		}
	}
}
