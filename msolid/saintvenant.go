// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msolid

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// SaintVenant implements the Saint Venant-Kirchhoff model
//  E = ½ (FᵀF - I)
//  ψ = λ/2 tr(E)² + μ E:E
//  S = λ tr(E) I + 2 μ E  and  P = F⋅S
type SaintVenant struct {
	Ndim int
	λ    float64
	μ    float64
}

// add model to factory
func init() {
	allocators["SaintVenant"] = func() Model { return new(SaintVenant) }
}

// Init initialises model
func (o *SaintVenant) Init(ndim int, prms utl.Params) (err error) {
	if ndim != 2 && ndim != 3 {
		return chk.Err("SaintVenant: ndim must be 2 or 3. %d is invalid", ndim)
	}
	o.Ndim = ndim
	o.λ, o.μ, err = GetLame(prms)
	if err != nil {
		return chk.Err("SaintVenant: %v", err)
	}
	return
}

// GetPrms gets (an example) of parameters
func (o SaintVenant) GetPrms() utl.Params {
	return []*utl.P{
		&utl.P{N: "E", V: 1000},
		&utl.P{N: "nu", V: 0.3},
	}
}

// PrmNames returns the names of parameters
func (o SaintVenant) PrmNames() []string { return []string{"lambda", "mu"} }

// GetPrm gets parameter
func (o SaintVenant) GetPrm(name string) (float64, error) {
	switch name {
	case "lambda":
		return o.λ, nil
	case "mu":
		return o.μ, nil
	}
	return 0, chk.Err("SaintVenant: cannot get parameter %q", name)
}

// SetPrm sets parameter
func (o *SaintVenant) SetPrm(name string, value float64) (err error) {
	switch name {
	case "lambda":
		o.λ = value
	case "mu":
		o.μ = value
	default:
		return chk.Err("SaintVenant: cannot set parameter %q", name)
	}
	return
}

// Energy computes ψ(F)
func (o SaintVenant) Energy(F *la.Matrix) float64 {
	E, tr := o.green(F)
	ee := 0.0
	for _, v := range E.Data {
		ee += v * v
	}
	return o.λ/2.0*tr*tr + o.μ*ee
}

// Stress computes P = F⋅S
func (o SaintVenant) Stress(P, F *la.Matrix) (err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	la.MatMatMul(P, 1, F, o.second(F))
	return
}

// Tangent computes C_ijkl = δik S_lj + λ F_ij F_kl + μ F_il F_kj + μ (F⋅Fᵀ)_ik δjl
func (o SaintVenant) Tangent(C, F *la.Matrix) (err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	d := o.Ndim
	S := o.second(F)
	FFt := la.NewMatrix(d, d)
	la.MatMatTrMul(FFt, 1, F, F)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			for k := 0; k < d; k++ {
				for l := 0; l < d; l++ {
					v := o.λ*F.Get(i, j)*F.Get(k, l) + o.μ*F.Get(i, l)*F.Get(k, j)
					if i == k {
						v += S.Get(l, j)
					}
					if j == l {
						v += o.μ * FFt.Get(i, k)
					}
					C.Set(i*d+j, k*d+l, v)
				}
			}
		}
	}
	return
}

// PrmDeriv computes ∂P/∂λ = tr(E) F or ∂P/∂μ = 2 F⋅E
func (o SaintVenant) PrmDeriv(dPdθ, F *la.Matrix, name string) (err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	E, tr := o.green(F)
	switch name {
	case "lambda":
		la.MatAdd(dPdθ, tr, F, 0, F)
	case "mu":
		la.MatMatMul(dPdθ, 2, F, E)
	default:
		return chk.Err("SaintVenant: cannot differentiate w.r.t %q", name)
	}
	return
}

// green computes the Green-Lagrange strain and its trace
func (o SaintVenant) green(F *la.Matrix) (E *la.Matrix, tr float64) {
	E = la.NewMatrix(o.Ndim, o.Ndim)
	la.MatTrMatMul(E, 0.5, F, F)
	for i := 0; i < o.Ndim; i++ {
		E.Add(i, i, -0.5)
		tr += E.Get(i, i)
	}
	return
}

// second computes the second Piola-Kirchhoff stress
func (o SaintVenant) second(F *la.Matrix) (S *la.Matrix) {
	E, tr := o.green(F)
	S = la.NewMatrix(o.Ndim, o.Ndim)
	la.MatAdd(S, 2.0*o.μ, E, 0, E)
	for i := 0; i < o.Ndim; i++ {
		S.Add(i, i, o.λ*tr)
	}
	return
}
