// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"github.com/WangweiYDYK/polyfem/inp"
	"github.com/WangweiYDYK/polyfem/msolid"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// Assembler computes the element contributions of a hyperelastic formulation
//  ue -- local displacements (node-major)
//  Note: Gradient and Hessian ADD to fe and Ke
type Assembler interface {
	Energy(e *Element, ue la.Vector) (float64, error)       // Σ_ip ψ(F) da
	Gradient(fe la.Vector, e *Element, ue la.Vector) error   // fe += ∂Ψe/∂ue
	Hessian(Ke *la.Matrix, e *Element, ue la.Vector) error   // Ke += ∂²Ψe/∂ue²
}

// AssemblerMaker allocates an assembler for all cells of a material
type AssemblerMaker func(mat *inp.Material, ndim int) (Assembler, error)

// asmallocators holds assemblers for materials not handled by msolid; material type => allocator
var asmallocators = make(map[string]AssemblerMaker)

// RegisterAssembler adds an assembler allocator to the factory
func RegisterAssembler(matType string, maker AssemblerMaker) {
	if _, ok := asmallocators[matType]; ok {
		chk.Panic("assembler for material type %q is already registered", matType)
	}
	asmallocators[matType] = maker
}

// GetAndInitSolidModel allocates and initialises a new msolid model for one element
func GetAndInitSolidModel(mat *inp.Material, ndim int) (mdl msolid.Model, err error) {
	mdl, err = msolid.New(mat.Type)
	if err != nil {
		return nil, chk.Err("material %d:\n%v", mat.Tag, err)
	}
	err = mdl.Init(ndim, mat.Prms)
	if err != nil {
		return nil, chk.Err("material %d: solid model initialisation failed:\n%v", mat.Tag, err)
	}
	return
}

// ElasticAssembler assembles elements with pointwise constitutive models (Element.Mdl)
type ElasticAssembler struct{}

// Energy computes Σ_ip ψ(F) da
func (o ElasticAssembler) Energy(e *Element, ue la.Vector) (Ψ float64, err error) {
	F := la.NewMatrix(e.Ndim, e.Ndim)
	for idx, ip := range e.Vals.Ips {
		e.DefGrad(F, ue, idx)
		Ψ += e.Mdl.Energy(F) * ip.Da
	}
	return
}

// Gradient adds fe[i + m*d] += Σ_ip Σ_j P_ij G_mj da
func (o ElasticAssembler) Gradient(fe la.Vector, e *Element, ue la.Vector) (err error) {
	F := la.NewMatrix(e.Ndim, e.Ndim)
	P := la.NewMatrix(e.Ndim, e.Ndim)
	for idx, ip := range e.Vals.Ips {
		e.DefGrad(F, ue, idx)
		if err = e.Mdl.Stress(P, F); err != nil {
			return chk.Err("cell %d: ip %d:\n%v", e.Cell.ID, idx, err)
		}
		e.addDivergence(fe, P, ip)
	}
	return
}

// Hessian adds Ke[i + m*d][k + n*d] += Σ_ip Σ_jl C[i*d+j][k*d+l] G_mj G_nl da
func (o ElasticAssembler) Hessian(Ke *la.Matrix, e *Element, ue la.Vector) (err error) {
	d := e.Ndim
	nv := e.Vals.Nverts
	F := la.NewMatrix(d, d)
	C := la.NewMatrix(d*d, d*d)
	for idx, ip := range e.Vals.Ips {
		e.DefGrad(F, ue, idx)
		if err = e.Mdl.Tangent(C, F); err != nil {
			return chk.Err("cell %d: ip %d:\n%v", e.Cell.ID, idx, err)
		}
		G := ip.G
		for m := 0; m < nv; m++ {
			for i := 0; i < d; i++ {
				for n := 0; n < nv; n++ {
					for k := 0; k < d; k++ {
						v := 0.0
						for j := 0; j < d; j++ {
							for l := 0; l < d; l++ {
								v += C.Get(i*d+j, k*d+l) * G.Get(m, j) * G.Get(n, l)
							}
						}
						Ke.Add(i+m*d, k+n*d, v*ip.Da)
					}
				}
			}
		}
	}
	return
}
