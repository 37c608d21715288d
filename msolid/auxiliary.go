// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msolid

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// MINDET is the smallest |det(F)| accepted when inverting F
const MINDET = 1e-14

// Det computes the determinant of a 2×2 or 3×3 matrix
func Det(a *la.Matrix) float64 {
	switch a.M {
	case 1:
		return a.Get(0, 0)
	case 2:
		return a.Get(0, 0)*a.Get(1, 1) - a.Get(0, 1)*a.Get(1, 0)
	case 3:
		return a.Get(0, 0)*(a.Get(1, 1)*a.Get(2, 2)-a.Get(1, 2)*a.Get(2, 1)) -
			a.Get(0, 1)*(a.Get(1, 0)*a.Get(2, 2)-a.Get(1, 2)*a.Get(2, 0)) +
			a.Get(0, 2)*(a.Get(1, 0)*a.Get(2, 1)-a.Get(1, 1)*a.Get(2, 0))
	}
	return a.Det()
}

// Inverse computes Fi = inv(F) and returns J = det(F)
func Inverse(Fi, F *la.Matrix) (J float64, err error) {
	J = Det(F)
	if math.Abs(J) < MINDET {
		return J, chk.Err("deformation gradient is singular: |det(F)| = %g < %g", math.Abs(J), MINDET)
	}
	la.MatInvSmall(Fi, F, MINDET)
	return
}

// Identity returns a d×d identity matrix
func Identity(ndim int) (I *la.Matrix) {
	I = la.NewMatrix(ndim, ndim)
	for i := 0; i < ndim; i++ {
		I.Set(i, i, 1)
	}
	return
}

// VonMises computes the von Mises equivalent of the Cauchy stress σ = P⋅Fᵀ / J
//  Note: in 2D, the plane stress expression is used
func VonMises(P, F *la.Matrix) (vm float64, err error) {
	ndim := F.M
	J := Det(F)
	if J <= 0 {
		return 0, chk.Err("cannot compute von Mises stress with det(F) = %g", J)
	}
	σ := la.NewMatrix(ndim, ndim)
	la.MatMatTrMul(σ, 1.0/J, P, F)
	if ndim == 2 {
		sx, sy, sxy := σ.Get(0, 0), σ.Get(1, 1), (σ.Get(0, 1)+σ.Get(1, 0))/2.0
		return math.Sqrt(sx*sx - sx*sy + sy*sy + 3.0*sxy*sxy), nil
	}
	tr := (σ.Get(0, 0) + σ.Get(1, 1) + σ.Get(2, 2)) / 3.0
	ss := 0.0
	for i := 0; i < ndim; i++ {
		for j := 0; j < ndim; j++ {
			s := (σ.Get(i, j) + σ.Get(j, i)) / 2.0
			if i == j {
				s -= tr
			}
			ss += s * s
		}
	}
	return math.Sqrt(1.5 * ss), nil
}
