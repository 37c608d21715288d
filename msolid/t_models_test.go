// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msolid

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

func init() {
	io.Verbose = false
}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// toF converts row-major components into F
func toF(ndim int, x []float64) (F *la.Matrix) {
	F = la.NewMatrix(ndim, ndim)
	for i := 0; i < ndim; i++ {
		for j := 0; j < ndim; j++ {
			F.Set(i, j, x[i*ndim+j])
		}
	}
	return
}

// toRowMajor flattens a matrix in row-major order
func toRowMajor(a *la.Matrix) (v []float64) {
	v = make([]float64, a.M*a.N)
	for i := 0; i < a.M; i++ {
		for j := 0; j < a.N; j++ {
			v[i*a.N+j] = a.Get(i, j)
		}
	}
	return
}

// checkModel checks stress against energy and tangent against stress by finite differences
func checkModel(tst *testing.T, name string, ndim int, prms utl.Params, Fval []float64, tolP, tolC float64) {

	mdl, err := New(name)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	err = mdl.Init(ndim, prms)
	if err != nil {
		tst.Errorf("Init failed:\n%v", err)
		return
	}

	d2 := ndim * ndim
	F := toF(ndim, Fval)
	P := la.NewMatrix(ndim, ndim)
	C := la.NewMatrix(d2, d2)
	if err = mdl.Stress(P, F); err != nil {
		tst.Errorf("Stress failed:\n%v", err)
		return
	}
	if err = mdl.Tangent(C, F); err != nil {
		tst.Errorf("Tangent failed:\n%v", err)
		return
	}
	io.Pforan("P = %v\n", P.GetDeep2())

	// dψ/dF
	chk.DerivScaVec(tst, name+": P", tolP, toRowMajor(P), Fval, 1e-3, chk.Verbose, func(x []float64) float64 {
		return mdl.Energy(toF(ndim, x))
	})

	// dP/dF
	Ptmp := la.NewMatrix(ndim, ndim)
	chk.DerivVecVec(tst, name+": C", tolC, C.GetDeep2(), Fval, 1e-3, chk.Verbose, func(f, x []float64) {
		mdl.Stress(Ptmp, toF(ndim, x))
		copy(f, toRowMajor(Ptmp))
	})

	// dP/dθ
	dPdθ := la.NewMatrix(ndim, ndim)
	for _, pname := range mdl.PrmNames() {
		if err = mdl.PrmDeriv(dPdθ, F, pname); err != nil {
			tst.Errorf("PrmDeriv failed:\n%v", err)
			return
		}
		θ0 := 0.0
		switch pname {
		case "lambda", "mu":
			λ, μ, _ := GetLame(prms)
			θ0 = λ
			if pname == "mu" {
				θ0 = μ
			}
		default:
			θ0 = prms.GetValueOrDefault(pname, 1)
		}
		for i := 0; i < ndim; i++ {
			for j := 0; j < ndim; j++ {
				chk.DerivScaSca(tst, io.Sf("%s: dP%d%dd%s", name, i, j, pname), tolC, dPdθ.Get(i, j), θ0, 1e-3, chk.Verbose, func(θ float64) float64 {
					mdl.SetPrm(pname, θ)
					mdl.Stress(Ptmp, F)
					mdl.SetPrm(pname, θ0)
					return Ptmp.Get(i, j)
				})
			}
		}
	}
}

func Test_models01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("models01. stress and tangent versus finite differences")

	lame := []*utl.P{&utl.P{N: "lambda", V: 1.5}, &utl.P{N: "mu", V: 0.8}}
	young := []*utl.P{&utl.P{N: "E", V: 10}, &utl.P{N: "nu", V: 0.3}}
	F2 := []float64{1.1, 0.2, -0.05, 0.95}
	F3 := []float64{1.05, 0.1, 0.02, -0.03, 0.97, 0.06, 0.01, -0.04, 1.1}

	for _, name := range []string{"NeoHookean", "LinearElasticity", "SaintVenant"} {
		io.Pfyel("%s\n", name)
		checkModel(tst, name, 2, lame, F2, 1e-8, 1e-7)
		checkModel(tst, name, 3, young, F3, 1e-7, 1e-6)
	}
	checkModel(tst, "Laplacian", 2, []*utl.P{&utl.P{N: "k", V: 2.5}}, F2, 1e-8, 1e-8)
	checkModel(tst, "Laplacian", 3, nil, F3, 1e-8, 1e-8)
}

func Test_models02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("models02. rest state and errors")

	prms := []*utl.P{&utl.P{N: "E", V: 1000}, &utl.P{N: "nu", V: 0.25}}
	λ, μ, err := GetLame(prms)
	if err != nil {
		tst.Errorf("GetLame failed:\n%v", err)
		return
	}
	chk.Float64(tst, "λ", 1e-12, λ, 400)
	chk.Float64(tst, "μ", 1e-12, μ, 400)

	// zero energy and stress at F = I
	I := Identity(2)
	P := la.NewMatrix(2, 2)
	for _, name := range []string{"NeoHookean", "LinearElasticity", "SaintVenant", "Laplacian"} {
		mdl, _ := New(name)
		if err = mdl.Init(2, prms); err != nil {
			tst.Errorf("Init failed:\n%v", err)
			return
		}
		chk.Float64(tst, name+": ψ(I)", 1e-15, mdl.Energy(I), 0)
		mdl.Stress(P, I)
		chk.Deep2(tst, name+": P(I)", 1e-14, P.GetDeep2(), [][]float64{{0, 0}, {0, 0}})
	}

	// NeoHookean and LinearElasticity agree in the small strain limit
	neo, _ := New("NeoHookean")
	lin, _ := New("LinearElasticity")
	neo.Init(2, prms)
	lin.Init(2, prms)
	Cneo := la.NewMatrix(4, 4)
	Clin := la.NewMatrix(4, 4)
	neo.Tangent(Cneo, I)
	lin.Tangent(Clin, I)
	chk.Deep2(tst, "C(I)", 1e-12, Cneo.GetDeep2(), Clin.GetDeep2())

	// inverted element
	Finv := toF(2, []float64{-1, 0, 0, 1})
	if !math.IsInf(neo.Energy(Finv), 1) {
		tst.Errorf("energy of inverted element should be +Inf\n")
	}
	if err = neo.Stress(P, Finv); err == nil {
		tst.Errorf("Stress should have failed with det(F) < 0\n")
	}

	// unknown and rejected formulations
	if _, err = New("Helmholtz"); err == nil {
		tst.Errorf("Helmholtz should be rejected\n")
	}
	if _, err = New("Hooke"); err == nil {
		tst.Errorf("unknown model should be rejected\n")
	}
	if err = neo.Init(2, []*utl.P{&utl.P{N: "E", V: 1}}); err == nil {
		tst.Errorf("Init should have failed with incomplete parameters\n")
	}
}

func Test_vonmises01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("vonmises01")

	// uniaxial stress in 3D with F = I
	P := la.NewMatrixDeep2([][]float64{{3, 0, 0}, {0, 0, 0}, {0, 0, 0}})
	vm, err := VonMises(P, Identity(3))
	if err != nil {
		tst.Errorf("VonMises failed:\n%v", err)
		return
	}
	chk.Float64(tst, "vm uniaxial", 1e-15, vm, 3)

	// pure shear in 2D
	P = la.NewMatrixDeep2([][]float64{{0, 2}, {2, 0}})
	vm, _ = VonMises(P, Identity(2))
	chk.Float64(tst, "vm shear", 1e-15, vm, 2*math.Sqrt(3))
}
