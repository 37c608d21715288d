// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package homog

import (
	"math"

	"github.com/WangweiYDYK/polyfem/fem"
	"github.com/WangweiYDYK/polyfem/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/num"
)

// constants
const (
	CheckDerivsTol  = 1e-4 // relative tolerance of finite difference verification
	CheckDerivsStep = 1e-5 // step size of finite difference verification
)

func init() {
	fem.RegisterAssembler("Multiscale", func(mat *inp.Material, ndim int) (fem.Assembler, error) {
		h, err := New(mat.Microstructure)
		if err != nil {
			return nil, err
		}
		if h.Ndim != ndim {
			return nil, chk.Err("microstructure must have the same dimension as the macro mesh. %d != %d", h.Ndim, ndim)
		}
		return &Bridge{H: h}, nil
	})
}

// Bridge assembles macro elements whose material is a periodic microstructure
//  Note: all cells of a material share one Bridge; micro solves are serialised by the homogenizer
type Bridge struct {
	H *Homogenizer
}

// Energy computes Σ_ip W(F_ip) da
func (o *Bridge) Energy(e *fem.Element, ue la.Vector) (Ψ float64, err error) {
	F := la.NewMatrix(o.H.Ndim, o.H.Ndim)
	for idx, ip := range e.Vals.Ips {
		e.DefGrad(F, ue, idx)
		W, err := o.H.HomogenizeEnergy(F)
		if err != nil {
			return 0, chk.Err("cell %d: ip %d:\n%v", e.Cell.ID, idx, err)
		}
		Ψ += W * ip.Da
	}
	return
}

// Gradient adds fe[a + n*d] += Σ_ip Σ_b G_nb P_ab da
func (o *Bridge) Gradient(fe la.Vector, e *fem.Element, ue la.Vector) (err error) {
	d := o.H.Ndim
	F := la.NewMatrix(d, d)
	for idx, ip := range e.Vals.Ips {
		e.DefGrad(F, ue, idx)
		_, P, err := o.H.HomogenizeStress(F)
		if err != nil {
			return chk.Err("cell %d: ip %d:\n%v", e.Cell.ID, idx, err)
		}
		if o.H.CheckDerivs {
			o.H.checkStress(F, P)
		}
		for n := 0; n < e.Vals.Nverts; n++ {
			for a := 0; a < d; a++ {
				for b := 0; b < d; b++ {
					fe[a+n*d] += ip.G.Get(n, b) * P.Get(a, b) * ip.Da
				}
			}
		}
	}
	return
}

// Hessian adds Ke += Tᵀ⋅H⋅T da where H is the reindexed effective stiffness and T maps local
// displacements to the column-major flattened displacement gradient: T[j+b*d][n*d+j] = G_nb
func (o *Bridge) Hessian(Ke *la.Matrix, e *fem.Element, ue la.Vector) (err error) {
	d := o.H.Ndim
	dd := d * d
	F := la.NewMatrix(d, d)
	T := la.NewMatrix(dd, e.Nu)
	HT := la.NewMatrix(dd, e.Nu)
	for idx, ip := range e.Vals.Ips {
		e.DefGrad(F, ue, idx)
		res, err := o.H.HomogenizeStiffness(F)
		if err != nil {
			return chk.Err("cell %d: ip %d:\n%v", e.Cell.ID, idx, err)
		}
		if o.H.CheckDerivs {
			o.H.checkStiffness(F, res.Stiffness)
		}
		H := ReindexStiffness(res.Stiffness, d)
		T.Fill(0)
		for n := 0; n < e.Vals.Nverts; n++ {
			for j := 0; j < d; j++ {
				for b := 0; b < d; b++ {
					T.Set(j+b*d, n*d+j, ip.G.Get(n, b))
				}
			}
		}
		la.MatMatMul(HT, 1, H, T)
		la.MatTrMatMulAdd(Ke, ip.Da, T, HT)
	}
	return
}

// checkStress compares P with the central difference of the effective energy
func (o *Homogenizer) checkStress(F, P *la.Matrix) {
	d := o.Ndim
	Pnum := la.NewMatrix(d, d)
	var ferr error
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			v := num.DerivCen5(F.Get(i, j), CheckDerivsStep, func(x float64) float64 {
				Ftmp := F.GetCopy()
				Ftmp.Set(i, j, x)
				W, err := o.HomogenizeEnergy(Ftmp)
				if err != nil {
					ferr = err
				}
				return W
			})
			Pnum.Set(i, j, v)
		}
	}
	if ferr != nil {
		io.PfRed("checkderivs: cannot verify stress:\n%v\n", ferr)
		return
	}
	if !nearlyEqual(P.Data, Pnum.Data, CheckDerivsTol) {
		io.PfRed("checkderivs: stress does not match energy derivative\nP    = %v\nPnum = %v\n", P.GetDeep2(), Pnum.GetDeep2())
	}
}

// checkStiffness compares C with the central difference of the effective stress
func (o *Homogenizer) checkStiffness(F, C *la.Matrix) {
	d := o.Ndim
	Cnum := la.NewMatrix(d*d, d*d)
	var ferr error
	for k := 0; k < d; k++ {
		for l := 0; l < d; l++ {
			for i := 0; i < d; i++ {
				for j := 0; j < d; j++ {
					v := num.DerivCen5(F.Get(k, l), CheckDerivsStep, func(x float64) float64 {
						Ftmp := F.GetCopy()
						Ftmp.Set(k, l, x)
						_, P, err := o.HomogenizeStress(Ftmp)
						if err != nil {
							ferr = err
							return 0
						}
						return P.Get(i, j)
					})
					Cnum.Set(i*d+j, k*d+l, v)
				}
			}
		}
	}
	if ferr != nil {
		io.PfRed("checkderivs: cannot verify stiffness:\n%v\n", ferr)
		return
	}
	if !nearlyEqual(C.Data, Cnum.Data, CheckDerivsTol) {
		io.PfRed("checkderivs: stiffness does not match stress derivative\nC    = %v\nCnum = %v\n", C.GetDeep2(), Cnum.GetDeep2())
	}
}

// nearlyEqual tells whether ‖x - y‖ <= tol ⋅ max(‖x‖, ‖y‖)
func nearlyEqual(x, y []float64, tol float64) bool {
	var dif, nx, ny float64
	for i := range x {
		dif += (x[i] - y[i]) * (x[i] - y[i])
		nx += x[i] * x[i]
		ny += y[i] * y[i]
	}
	return math.Sqrt(dif) <= tol*math.Max(math.Sqrt(nx), math.Sqrt(ny))
}
