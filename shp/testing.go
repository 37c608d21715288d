// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shp

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// CheckShape checks that S_m(r_n) = δ_mn at the vertices and that Σ_m S_m(r) = 1 at r
func CheckShape(tst *testing.T, shape *Shape, r []float64, tol float64) {
	I := utl.Alloc(shape.Nverts, shape.Nverts)
	S := utl.Alloc(shape.Nverts, shape.Nverts)
	rn := make([]float64, 3)
	for n := 0; n < shape.Nverts; n++ {
		for i := 0; i < shape.Gndim; i++ {
			rn[i] = shape.NatCoords[i][n]
		}
		shape.Func(shape.S, nil, rn, false)
		for m := 0; m < shape.Nverts; m++ {
			S[n][m] = shape.S[m]
		}
		I[n][n] = 1
	}
	chk.Deep2(tst, shape.Type+": S @ vertices", tol, S, I)
	shape.Func(shape.S, nil, r, false)
	chk.Float64(tst, shape.Type+": ΣS", tol, shape.S.Accum(), 1)
}

// CheckDSdR checks dSdR against central differences of S at natural coordinates r
func CheckDSdR(tst *testing.T, shape *Shape, r []float64, tol float64, verbose bool) {
	shape.Func(shape.S, shape.DSdR, r, true)
	rTmp := make([]float64, 3)
	sTmp := la.NewVector(shape.Nverts)
	chk.DerivVecVec(tst, shape.Type+": dSdR", tol, shape.DSdR.GetDeep2(), r[:shape.Gndim], 1e-3, verbose, func(f, x []float64) {
		copy(rTmp, x)
		shape.Func(sTmp, nil, rTmp, false)
		copy(f, sTmp)
	})
}
