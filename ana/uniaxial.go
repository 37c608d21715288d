// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ana

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"
)

// UniaxialPstrain implements the homogeneous solution of a linear elastic rectangle under
// plane-strain conditions with a prescribed horizontal strain and free lateral faces
//
//      y ^
//        |
//       ▷-------------▷ → εxx ⋅ L
//       ▷|           |▷
//       ▷|    λ, μ   |▷
//       ▷-------------▷ ---> x
//        △  △  △  △  △
//
type UniaxialPstrain struct {
	λ   float64 // Lamé's first parameter
	μ   float64 // shear modulus
	εxx float64 // prescribed strain
}

// Init initialises this structure
func (o *UniaxialPstrain) Init(prms utl.Params) {
	o.λ, o.μ, o.εxx = 1, 1, 0.001
	for _, p := range prms {
		switch p.N {
		case "lambda":
			o.λ = p.V
		case "mu":
			o.μ = p.V
		case "eps":
			o.εxx = p.V
		}
	}
}

// Strains returns the non-zero strains
func (o UniaxialPstrain) Strains() (εxx, εyy float64) {
	return o.εxx, -o.λ * o.εxx / (o.λ + 2*o.μ)
}

// Displ computes the displacements at x; the origin is fixed
func (o UniaxialPstrain) Displ(x []float64) (ux, uy float64) {
	εxx, εyy := o.Strains()
	return εxx * x[0], εyy * x[1]
}

// Stress computes the stresses
func (o UniaxialPstrain) Stress() (sx, sy, sz, sxy float64) {
	εxx, εyy := o.Strains()
	tr := εxx + εyy
	return o.λ*tr + 2*o.μ*εxx, o.λ*tr + 2*o.μ*εyy, o.λ * tr, 0
}

// CheckDispl checks displacements
func (o UniaxialPstrain) CheckDispl(tst *testing.T, u, x []float64, tol float64) {
	ux, uy := o.Displ(x)
	chk.Float64(tst, "ux", tol, u[0], ux)
	chk.Float64(tst, "uy", tol, u[1], uy)
}
