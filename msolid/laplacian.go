// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msolid

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// Laplacian implements the vector Laplacian (decoupled components)
//  ψ = k/2 |F - I|²
type Laplacian struct {
	Ndim int
	k    float64 // diffusivity
}

// add model to factory
func init() {
	allocators["Laplacian"] = func() Model { return new(Laplacian) }
}

// Init initialises model
func (o *Laplacian) Init(ndim int, prms utl.Params) (err error) {
	if ndim != 2 && ndim != 3 {
		return chk.Err("Laplacian: ndim must be 2 or 3. %d is invalid", ndim)
	}
	o.Ndim = ndim
	o.k = prms.GetValueOrDefault("k", 1.0)
	if o.k <= 0 {
		return chk.Err("Laplacian: k must be positive. k = %g is invalid", o.k)
	}
	return
}

// GetPrms gets (an example) of parameters
func (o Laplacian) GetPrms() utl.Params {
	return []*utl.P{&utl.P{N: "k", V: 1.0}}
}

// PrmNames returns the names of parameters
func (o Laplacian) PrmNames() []string { return []string{"k"} }

// GetPrm gets parameter
func (o Laplacian) GetPrm(name string) (float64, error) {
	if name != "k" {
		return 0, chk.Err("Laplacian: cannot get parameter %q", name)
	}
	return o.k, nil
}

// SetPrm sets parameter
func (o *Laplacian) SetPrm(name string, value float64) (err error) {
	if name != "k" {
		return chk.Err("Laplacian: cannot set parameter %q", name)
	}
	o.k = value
	return
}

// Energy computes ψ(F)
func (o Laplacian) Energy(F *la.Matrix) (ψ float64) {
	for i := 0; i < o.Ndim; i++ {
		for j := 0; j < o.Ndim; j++ {
			g := F.Get(i, j)
			if i == j {
				g -= 1
			}
			ψ += g * g
		}
	}
	return o.k * ψ / 2.0
}

// Stress computes P = k (F - I)
func (o Laplacian) Stress(P, F *la.Matrix) (err error) {
	return o.gradient(P, F, o.k)
}

// Tangent computes C_ijkl = k δik δjl
func (o Laplacian) Tangent(C, F *la.Matrix) (err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	C.Fill(0)
	for i := 0; i < o.Ndim*o.Ndim; i++ {
		C.Set(i, i, o.k)
	}
	return
}

// PrmDeriv computes ∂P/∂k = F - I
func (o Laplacian) PrmDeriv(dPdθ, F *la.Matrix, name string) (err error) {
	if name != "k" {
		return chk.Err("Laplacian: cannot differentiate w.r.t %q", name)
	}
	return o.gradient(dPdθ, F, 1)
}

// gradient computes α (F - I)
func (o Laplacian) gradient(res, F *la.Matrix, α float64) (err error) {
	if err = checkF(F, o.Ndim); err != nil {
		return
	}
	for i := 0; i < o.Ndim; i++ {
		for j := 0; j < o.Ndim; j++ {
			g := F.Get(i, j)
			if i == j {
				g -= 1
			}
			res.Set(i, j, α*g)
		}
	}
	return
}
