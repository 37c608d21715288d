// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package ana implements analytical solutions
package ana

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// Laminate implements the exact effective stiffness of a two-phase laminate
// under plane-strain small strains
//
//      y ^
//        |  1 | 2 | 1 | 2
//        |    |   |   |
//        |    |   |   |
//        +------------------> x
//
//  The layers are normal to x. With M = λ + 2μ and ⟨⋅⟩ the volume average:
//
//   C_xxxx = 1 / ⟨1/M⟩
//   C_xxyy = ⟨λ/M⟩ / ⟨1/M⟩
//   C_yyyy = ⟨M⟩ - ⟨λ²/M⟩ + ⟨λ/M⟩² / ⟨1/M⟩
//   C_xyxy = 1 / ⟨1/μ⟩
//
type Laminate struct {
	λ1, μ1 float64 // phase 1
	λ2, μ2 float64 // phase 2
	frac   float64 // volume fraction of phase 1
}

// Init initialises this structure
func (o *Laminate) Init(prms utl.Params) (err error) {

	// default values
	o.λ1, o.μ1 = 1, 1
	o.λ2, o.μ2 = 1, 1
	o.frac = 0.5

	// parameters
	for _, p := range prms {
		switch p.N {
		case "lam1":
			o.λ1 = p.V
		case "mu1":
			o.μ1 = p.V
		case "lam2":
			o.λ2 = p.V
		case "mu2":
			o.μ2 = p.V
		case "frac":
			o.frac = p.V
		}
	}
	if o.frac < 0 || o.frac > 1 {
		return chk.Err("volume fraction must be in [0,1]. frac = %g is invalid", o.frac)
	}
	if o.μ1 <= 0 || o.μ2 <= 0 {
		return chk.Err("shear moduli must be positive. μ1 = %g, μ2 = %g are invalid", o.μ1, o.μ2)
	}
	return
}

// Stiffness computes the effective tangent C[i*2+j][k*2+l] = ∂σ_ij/∂F_kl
func (o *Laminate) Stiffness(C *la.Matrix) {
	avg := func(f func(λ, μ float64) float64) float64 {
		return o.frac*f(o.λ1, o.μ1) + (1-o.frac)*f(o.λ2, o.μ2)
	}
	iM := avg(func(λ, μ float64) float64 { return 1 / (λ + 2*μ) })
	λM := avg(func(λ, μ float64) float64 { return λ / (λ + 2*μ) })
	M := avg(func(λ, μ float64) float64 { return λ + 2*μ })
	λλM := avg(func(λ, μ float64) float64 { return λ * λ / (λ + 2*μ) })
	iμ := avg(func(λ, μ float64) float64 { return 1 / μ })
	xx, xy, yx, yy := 0, 1, 2, 3
	C.Fill(0)
	C.Set(xx, xx, 1/iM)
	C.Set(xx, yy, λM/iM)
	C.Set(yy, xx, λM/iM)
	C.Set(yy, yy, M-λλM+λM*λM/iM)
	G := 1 / iμ
	for _, a := range []int{xy, yx} {
		for _, b := range []int{xy, yx} {
			C.Set(a, b, G)
		}
	}
}
