// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package shp implements shape structures/routines
package shp

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/gm/msh"
	"github.com/cpmech/gosl/la"
)

// constants
const MINDET = 1.0e-14 // minimum determinant allowed for dxdR

// Shape holds geometry data
type Shape struct {

	// geometry
	Type      string            // name; e.g. "qua4"
	Tindex    int               // type index in gosl/msh; e.g. msh.TypeQua4
	Func      msh.ShapeFunction // shape/derivs function callback function
	Gndim     int               // geometry of shape; e.g. "qua4" => gnd == 2
	Nverts    int               // number of vertices in cell; e.g. "qua8" => 8
	NatCoords [][]float64       // natural coordinates [gndim][nverts]
	IntPts    [][]float64       // default integration points [nip][4] => r, s, t, w

	// scratchpad: volume
	S    la.Vector  // [nverts] shape functions
	G    *la.Matrix // [nverts][gndim] G == dSdx. derivative of shape function
	J    float64    // Jacobian: determinant of dxdr
	DSdR *la.Matrix // [nverts][gndim] derivatives of S w.r.t natural coordinates
	DxdR *la.Matrix // [gndim][gndim] derivatives of real coordinates w.r.t natural coordinates
	DRdx *la.Matrix // [gndim][gndim] dRdx == inverse(dxdR)
}

// GetCopy returns a new copy of this shape structure
func (o Shape) GetCopy() *Shape {
	p := o
	p.S = o.S.GetCopy()
	p.G = o.G.GetCopy()
	p.DSdR = o.DSdR.GetCopy()
	p.DxdR = o.DxdR.GetCopy()
	p.DRdx = o.DRdx.GetCopy()
	return &p
}

// factory holds all Shapes available
var factory = make(map[string]*Shape)

// Get returns an existent Shape structure
//  Note: 1) returns nil on errors
//        2) use goroutineId > 0 to get a copy
func Get(geoType string, goroutineId int) *Shape {
	s, ok := factory[geoType]
	if !ok {
		return nil
	}
	if goroutineId > 0 {
		return s.GetCopy()
	}
	return s
}

// GetNverts returns the number of vertices of a given shape or -1 if not available
func GetNverts(geoType string) int {
	s, ok := factory[geoType]
	if !ok {
		return -1
	}
	return s.Nverts
}

// IpRealCoords returns the real coordinates (y) of an integration point
//  x -- coordinates matrix of element [nverts][ndim]
func (o *Shape) IpRealCoords(x *la.Matrix, ip []float64) (y la.Vector) {
	y = la.NewVector(x.N)
	o.Func(o.S, o.DSdR, ip, false)
	for i := 0; i < x.N; i++ {
		for m := 0; m < o.Nverts; m++ {
			y[i] += o.S[m] * x.Get(m, i)
		}
	}
	return
}

// CalcAtIp calculates volume data such as S and G at natural coordinate r
//  Input:
//   x[nverts][ndim] -- coordinates matrix of solid element
//   ip              -- integration point
//  Output:
//   S, DSdR, DxdR, DRdx, G, and J
func (o *Shape) CalcAtIp(x *la.Matrix, ip []float64, derivs bool) (err error) {

	// S and dSdR
	o.Func(o.S, o.DSdR, ip, derivs)
	if !derivs {
		return
	}

	// dxdR := sum_n x * dSdR   =>  dx_i/dR_j := sum_n x^n_i * dS^n/dR_j
	la.MatTrMatMul(o.DxdR, 1, x, o.DSdR)

	// dRdx := inv(dxdR)
	o.J = o.DxdR.Det()
	if math.Abs(o.J) < MINDET {
		return chk.Err("%s: determinant of dxdR is too small: |J| = %g < %g", o.Type, math.Abs(o.J), MINDET)
	}
	la.MatInvSmall(o.DRdx, o.DxdR, MINDET)

	// G == dSdx := dSdR * dRdx  =>  dS^m/dR_i := sum_i dS^m/dR_i * dR_i/dx_j
	la.MatMatMul(o.G, 1, o.DSdR, o.DRdx)
	return
}

// init_scratchpad initialise volume data (scratchpad)
func (o *Shape) init_scratchpad() {
	o.S = la.NewVector(o.Nverts)
	o.DSdR = la.NewMatrix(o.Nverts, o.Gndim)
	o.DxdR = la.NewMatrix(o.Gndim, o.Gndim)
	o.DRdx = la.NewMatrix(o.Gndim, o.Gndim)
	o.G = la.NewMatrix(o.Nverts, o.Gndim)
}

// register shapes available in gosl/msh
func init() {
	for _, key := range []string{"tri3", "tri6", "qua4", "qua8", "qua9", "tet4", "tet10", "hex8", "hex20"} {
		tindex := msh.TypeKeyToIndex[key]
		o := &Shape{
			Type:      key,
			Tindex:    tindex,
			Func:      msh.Functions[tindex],
			Gndim:     msh.GeomNdim[tindex],
			Nverts:    msh.NumVerts[tindex],
			NatCoords: msh.NatCoords[tindex],
			IntPts:    msh.DefaultIntPoints[tindex],
		}
		o.init_scratchpad()
		factory[key] = o
	}
}
