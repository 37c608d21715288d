// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package msolid implements hyperelastic formulations for solids written in
// terms of the full deformation gradient F
//
//  Layout of 4th order tangents: C[i*d+j][k*d+l] = ∂P_ij/∂F_kl
//
package msolid

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
)

// Model defines the interface for hyperelastic solid models
//  Note: implementations must not keep scratch data that is written by
//        Energy, Stress, Tangent or PrmDeriv; these are called concurrently
type Model interface {
	Init(ndim int, prms utl.Params) error            // initialises model
	GetPrms() utl.Params                             // gets (an example) of parameters
	PrmNames() []string                              // names of parameters that can be differentiated
	GetPrm(name string) (float64, error)             // gets parameter
	SetPrm(name string, value float64) error         // sets parameter
	Energy(F *la.Matrix) float64                     // strain energy density ψ(F)
	Stress(P, F *la.Matrix) error                    // first Piola-Kirchhoff stress P = ∂ψ/∂F
	Tangent(C, F *la.Matrix) error                   // C = ∂P/∂F [d²][d²]
	PrmDeriv(dPdθ, F *la.Matrix, name string) error // dPdθ = ∂P/∂θ for parameter θ
}

// New returns new solid model
func New(name string) (model Model, err error) {
	if name == "Helmholtz" {
		return nil, chk.Err("formulation %q cannot be used with solids: energy does not depend on F only", name)
	}
	allocator, ok := allocators[name]
	if !ok {
		return nil, chk.Err("model %q is not available in 'msolid' database", name)
	}
	return allocator(), nil
}

// Names returns the names of all available models
func Names() (names []string) {
	for name := range allocators {
		names = append(names, name)
	}
	return
}

// allocators holds all available solid models; modelname => allocator
var allocators = map[string]func() Model{}

// GetLame reads Lamé's parameters, either directly or from Young's modulus and Poisson's coefficient
func GetLame(prms utl.Params) (λ, μ float64, err error) {
	pλ, pμ := prms.Find("lambda"), prms.Find("mu")
	if pλ != nil && pμ != nil {
		return pλ.V, pμ.V, nil
	}
	pE, pν := prms.Find("E"), prms.Find("nu")
	if pE != nil && pν != nil {
		E, ν := pE.V, pν.V
		if ν <= -1 || ν >= 0.5 {
			return 0, 0, chk.Err("Poisson's coefficient must be in (-1, 0.5). nu = %g is invalid", ν)
		}
		λ = E * ν / ((1.0 + ν) * (1.0 - 2.0*ν))
		μ = E / (2.0 * (1.0 + ν))
		return
	}
	return 0, 0, chk.Err("parameters must contain {lambda, mu} or {E, nu}. %v is invalid", prms)
}

// checkF checks the dimensions of F
func checkF(F *la.Matrix, ndim int) (err error) {
	if F.M != ndim || F.N != ndim {
		return chk.Err("deformation gradient must be %d×%d. %d×%d is invalid", ndim, ndim, F.M, F.N)
	}
	return
}
