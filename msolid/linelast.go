// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msolid

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// LinearElasticity implements the small strain isotropic linear elastic model
//  ε = sym(F - I)
//  ψ = λ/2 tr(ε)² + μ ε:ε
type LinearElasticity struct {
	Ndim int
	λ    float64
	μ    float64
}

// add model to factory
func init() {
	allocators["LinearElasticity"] = func() Model { return new(LinearElasticity) }
}

// Init initialises model
func (o *LinearElasticity) Init(ndim int, prms utl.Params) (err error) {
	if ndim != 2 && ndim != 3 {
		return chk.Err("LinearElasticity: ndim must be 2 or 3. %d is invalid", ndim)
	}
	o.Ndim = ndim
	o.λ, o.μ, err = GetLame(prms)
	if err != nil {
		return chk.Err("LinearElasticity: %v", err)
	}
	return
}

// GetPrms gets (an example) of parameters
func (o LinearElasticity) GetPrms() utl.Params {
	return []*utl.P{
		&utl.P{N: "E", V: 1000},
		&utl.P{N: "nu", V: 0.25},
	}
}

// PrmNames returns the names of parameters
func (o LinearElasticity) PrmNames() []string { return []string{"lambda", "mu"} }

// GetPrm gets parameter
func (o LinearElasticity) GetPrm(name string) (float64, error) {
	switch name {
	case "lambda":
		return o.λ, nil
	case "mu":
		return o.μ, nil
	}
	return 0, chk.Err("LinearElasticity: cannot get parameter %q", name)
}

// SetPrm sets parameter
func (o *LinearElasticity) SetPrm(name string, value float64) (err error) {
	switch name {
	case "lambda":
		o.λ = value
	case "mu":
		o.μ = value
	default:
		return chk.Err("LinearElasticity: cannot set parameter %q", name)
	}
	return
}

// Energy computes ψ(F)
func (o LinearElasticity) Energy(F *la.Matrix) float64 {
	ε, tr := o.strain(F)
	ee := 0.0
	for _, v := range ε.Data {
		ee += v * v
	}
	return o.λ/2.0*tr*tr + o.μ*ee
}

// Stress computes P = σ = λ tr(ε) I + 2 μ ε
func (o LinearElasticity) Stress(P, F *la.Matrix) (err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	ε, tr := o.strain(F)
	for i := 0; i < o.Ndim; i++ {
		for j := 0; j < o.Ndim; j++ {
			P.Set(i, j, 2.0*o.μ*ε.Get(i, j))
		}
		P.Add(i, i, o.λ*tr)
	}
	return
}

// Tangent computes C_ijkl = λ δij δkl + μ (δik δjl + δil δjk)
func (o LinearElasticity) Tangent(C, F *la.Matrix) (err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	d := o.Ndim
	C.Fill(0)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			C.Add(i*d+i, j*d+j, o.λ)
			C.Add(i*d+j, i*d+j, o.μ)
			C.Add(i*d+j, j*d+i, o.μ)
		}
	}
	return
}

// PrmDeriv computes ∂P/∂λ = tr(ε) I or ∂P/∂μ = 2 ε
func (o LinearElasticity) PrmDeriv(dPdθ, F *la.Matrix, name string) (err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	ε, tr := o.strain(F)
	dPdθ.Fill(0)
	switch name {
	case "lambda":
		for i := 0; i < o.Ndim; i++ {
			dPdθ.Set(i, i, tr)
		}
	case "mu":
		la.MatAdd(dPdθ, 2, ε, 0, ε)
	default:
		return chk.Err("LinearElasticity: cannot differentiate w.r.t %q", name)
	}
	return
}

// strain computes ε = sym(F - I) and tr(ε)
func (o LinearElasticity) strain(F *la.Matrix) (ε *la.Matrix, tr float64) {
	ε = la.NewMatrix(o.Ndim, o.Ndim)
	for i := 0; i < o.Ndim; i++ {
		for j := 0; j < o.Ndim; j++ {
			ε.Set(i, j, (F.Get(i, j)+F.Get(j, i))/2.0)
		}
		ε.Add(i, i, -1)
		tr += ε.Get(i, i)
	}
	return
}
