// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msolid

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// NeoHookean implements the compressible neo-Hookean model
//  ψ = μ/2 (tr(FᵀF) - d) - μ ln(J) + λ/2 ln(J)²
type NeoHookean struct {
	Ndim int     // space dimension
	λ    float64 // Lamé's first parameter
	μ    float64 // shear modulus
}

// add model to factory
func init() {
	allocators["NeoHookean"] = func() Model { return new(NeoHookean) }
}

// Init initialises model
func (o *NeoHookean) Init(ndim int, prms utl.Params) (err error) {
	if ndim != 2 && ndim != 3 {
		return chk.Err("NeoHookean: ndim must be 2 or 3. %d is invalid", ndim)
	}
	o.Ndim = ndim
	o.λ, o.μ, err = GetLame(prms)
	if err != nil {
		return chk.Err("NeoHookean: %v", err)
	}
	return
}

// GetPrms gets (an example) of parameters
func (o NeoHookean) GetPrms() utl.Params {
	return []*utl.P{
		&utl.P{N: "lambda", V: 1.0},
		&utl.P{N: "mu", V: 1.0},
	}
}

// PrmNames returns the names of parameters
func (o NeoHookean) PrmNames() []string { return []string{"lambda", "mu"} }

// GetPrm gets parameter
func (o NeoHookean) GetPrm(name string) (float64, error) {
	switch name {
	case "lambda":
		return o.λ, nil
	case "mu":
		return o.μ, nil
	}
	return 0, chk.Err("NeoHookean: cannot get parameter %q", name)
}

// SetPrm sets parameter
func (o *NeoHookean) SetPrm(name string, value float64) (err error) {
	switch name {
	case "lambda":
		o.λ = value
	case "mu":
		o.μ = value
	default:
		return chk.Err("NeoHookean: cannot set parameter %q", name)
	}
	return
}

// Energy computes ψ(F). Returns +Inf if det(F) <= 0
func (o NeoHookean) Energy(F *la.Matrix) float64 {
	J := Det(F)
	if J <= 0 {
		return math.Inf(1)
	}
	tr := 0.0
	for _, v := range F.Data {
		tr += v * v
	}
	lnJ := math.Log(J)
	return o.μ/2.0*(tr-float64(o.Ndim)) - o.μ*lnJ + o.λ/2.0*lnJ*lnJ
}

// Stress computes P = μ (F - F⁻ᵀ) + λ ln(J) F⁻ᵀ
func (o NeoHookean) Stress(P, F *la.Matrix) (err error) {
	Fi, lnJ, err := o.invlog(F)
	if err != nil {
		return
	}
	for i := 0; i < o.Ndim; i++ {
		for j := 0; j < o.Ndim; j++ {
			P.Set(i, j, o.μ*(F.Get(i, j)-Fi.Get(j, i))+o.λ*lnJ*Fi.Get(j, i))
		}
	}
	return
}

// Tangent computes C_ijkl = μ δik δjl + (μ - λ ln(J)) Fi_jk Fi_li + λ Fi_ji Fi_lk
func (o NeoHookean) Tangent(C, F *la.Matrix) (err error) {
	Fi, lnJ, err := o.invlog(F)
	if err != nil {
		return
	}
	d := o.Ndim
	c := o.μ - o.λ*lnJ
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			for k := 0; k < d; k++ {
				for l := 0; l < d; l++ {
					v := c*Fi.Get(j, k)*Fi.Get(l, i) + o.λ*Fi.Get(j, i)*Fi.Get(l, k)
					if i == k && j == l {
						v += o.μ
					}
					C.Set(i*d+j, k*d+l, v)
				}
			}
		}
	}
	return
}

// PrmDeriv computes ∂P/∂λ = ln(J) F⁻ᵀ or ∂P/∂μ = F - F⁻ᵀ
func (o NeoHookean) PrmDeriv(dPdθ, F *la.Matrix, name string) (err error) {
	Fi, lnJ, err := o.invlog(F)
	if err != nil {
		return
	}
	for i := 0; i < o.Ndim; i++ {
		for j := 0; j < o.Ndim; j++ {
			switch name {
			case "lambda":
				dPdθ.Set(i, j, lnJ*Fi.Get(j, i))
			case "mu":
				dPdθ.Set(i, j, F.Get(i, j)-Fi.Get(j, i))
			default:
				return chk.Err("NeoHookean: cannot differentiate w.r.t %q", name)
			}
		}
	}
	return
}

// invlog computes inv(F) and ln(det(F))
func (o NeoHookean) invlog(F *la.Matrix) (Fi *la.Matrix, lnJ float64, err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	Fi = la.NewMatrix(o.Ndim, o.Ndim)
	J, err := Inverse(Fi, F)
	if err != nil {
		return
	}
	if J <= 0 {
		return nil, 0, chk.Err("NeoHookean: det(F) must be positive. J = %g is invalid", J)
	}
	return Fi, math.Log(J), nil
}
