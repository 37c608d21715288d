// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/gm"
	"github.com/cpmech/gosl/la"
	"github.com/cpmech/gosl/utl"
	"gonum.org/v1/gonum/mat"
)

// splineFit holds the linear map Y = N⋅C between control points C [nc][dim] and the vertices
// Y [nv][dim] sampled at fixed parameters. Design vectors hold the free control points point-major
type splineFit struct {
	N     *mat.Dense // [nv][nc] basis values at vertices
	C     *mat.Dense // [nc][dim] fitted control points
	dim   int        // space dimension
	fixed []bool     // [nc] control points that are not design variables
	nfree int        // number of free control points
}

// newSplineFit computes control points by least squares. Fixed control points must be set in C0
//  Note: C0 may be nil if there are no fixed control points
func newSplineFit(N, Y, C0 *mat.Dense, fixed []bool) (o *splineFit, err error) {
	nv, nc := N.Dims()
	_, dim := Y.Dims()
	o = &splineFit{N: N, dim: dim, fixed: fixed}
	free := make([]int, 0, nc)
	for j := 0; j < nc; j++ {
		if !fixed[j] {
			free = append(free, j)
		}
	}
	o.nfree = len(free)
	if nv < o.nfree {
		return nil, chk.Err("number of vertices must be at least the number of free control points. %d < %d", nv, o.nfree)
	}

	// rhs = Y - N_fixed ⋅ C_fixed
	rhs := mat.DenseCopyOf(Y)
	Nf := mat.NewDense(nv, o.nfree, nil)
	for i := 0; i < nv; i++ {
		for k, j := range free {
			Nf.Set(i, k, N.At(i, j))
		}
		for j := 0; j < nc; j++ {
			if fixed[j] {
				for c := 0; c < dim; c++ {
					rhs.Set(i, c, rhs.At(i, c)-N.At(i, j)*C0.At(j, c))
				}
			}
		}
	}

	// least squares
	var Cf mat.Dense
	if err = Cf.Solve(Nf, rhs); err != nil {
		return nil, chk.Err("cannot fit control points:\n%v", err)
	}
	o.C = mat.NewDense(nc, dim, nil)
	for j := 0; j < nc; j++ {
		if fixed[j] {
			o.C.SetRow(j, mat.Row(nil, j, C0))
		}
	}
	for k, j := range free {
		o.C.SetRow(j, mat.Row(nil, k, &Cf))
	}
	return
}

// design returns the free control points as a design vector
func (o *splineFit) design() (x la.Vector) {
	x = la.NewVector(o.nfree * o.dim)
	k := 0
	for j, fix := range o.fixed {
		if fix {
			continue
		}
		for c := 0; c < o.dim; c++ {
			x[k*o.dim+c] = o.C.At(j, c)
		}
		k++
	}
	return
}

// eval computes the vertices for the free control points in x
func (o *splineFit) eval(x la.Vector) (y la.Vector, err error) {
	if len(x) != o.nfree*o.dim {
		return nil, chk.Err("design vector must have %d components. %d is invalid", o.nfree*o.dim, len(x))
	}
	C := mat.DenseCopyOf(o.C)
	k := 0
	for j, fix := range o.fixed {
		if fix {
			continue
		}
		C.SetRow(j, x[k*o.dim:(k+1)*o.dim])
		k++
	}
	nv, _ := o.N.Dims()
	Y := mat.NewDense(nv, o.dim, nil)
	Y.Mul(o.N, C)
	return la.NewVectorSlice(Y.RawMatrix().Data).GetCopy(), nil
}

// applyJacobian computes Nᵀ⋅G restricted to the free control points
func (o *splineFit) applyJacobian(g la.Vector) (gx la.Vector, err error) {
	nv, nc := o.N.Dims()
	if len(g) != nv*o.dim {
		return nil, chk.Err("gradient must have %d components. %d is invalid", nv*o.dim, len(g))
	}
	G := mat.NewDense(nv, o.dim, g.GetCopy())
	Gc := mat.NewDense(nc, o.dim, nil)
	Gc.Mul(o.N.T(), G)
	gx = la.NewVector(o.nfree * o.dim)
	k := 0
	for j, fix := range o.fixed {
		if fix {
			continue
		}
		for c := 0; c < o.dim; c++ {
			gx[k*o.dim+c] = Gc.At(j, c)
		}
		k++
	}
	return
}

// clampedKnots returns the knots of a clamped uniform B-spline over [0,1]
func clampedKnots(ncontrol, degree int) (T []float64) {
	nspans := ncontrol - degree
	T = make([]float64, 0, ncontrol+degree+1)
	for i := 0; i < degree; i++ {
		T = append(T, 0)
	}
	T = append(T, utl.LinSpace(0, 1, nspans+1)...)
	for i := 0; i < degree; i++ {
		T = append(T, 1)
	}
	return
}

// BsplineCurve maps control points of a clamped B-spline onto the vertices of a 2D polyline
//
//  InverseEval fits the control points to the polyline using chord-length parameters; the
//  parameters are kept, so Eval moves each vertex with its point on the curve.
//  With ExcludeEnds, the first and last control points are pinned to the end vertices and only
//  the interior control points are design variables.
type BsplineCurve struct {
	Ncontrol    int  // number of control points
	Degree      int  // polynomial degree
	ExcludeEnds bool // end control points are not design variables

	spline *gm.Bspline
	fit    *splineFit
}

// NewBsplineCurve returns a new spline curve parametrization
func NewBsplineCurve(ncontrol, degree int, excludeEnds bool) (o *BsplineCurve, err error) {
	if degree < 1 {
		return nil, chk.Err("degree must be at least 1. %d is invalid", degree)
	}
	if ncontrol < degree+1 {
		return nil, chk.Err("a B-spline of degree %d needs at least %d control points. %d is invalid", degree, degree+1, ncontrol)
	}
	o = &BsplineCurve{Ncontrol: ncontrol, Degree: degree, ExcludeEnds: excludeEnds}
	o.spline = gm.NewBspline(clampedKnots(ncontrol, degree), degree)
	return
}

// InverseEval fits the spline to the vertices y = [x0 y0 x1 y1 …] and returns its control points
func (o *BsplineCurve) InverseEval(y la.Vector) (x la.Vector, err error) {
	if len(y)%2 != 0 || len(y) < 4 {
		return nil, chk.Err("curve requires an even number (≥ 4) of coordinates. %d is invalid", len(y))
	}
	nv := len(y) / 2
	Y := mat.NewDense(nv, 2, y.GetCopy())

	// chord-length parameters
	t := make([]float64, nv)
	for i := 1; i < nv; i++ {
		t[i] = t[i-1] + math.Hypot(y[2*i]-y[2*i-2], y[2*i+1]-y[2*i-1])
	}
	L := t[nv-1]
	if L <= 0 {
		return nil, chk.Err("curve has zero length")
	}
	for i := range t {
		t[i] = math.Min(t[i]/L, 1)
	}

	// basis
	N := mat.NewDense(nv, o.Ncontrol, nil)
	for i := 0; i < nv; i++ {
		o.spline.CalcBasis(t[i])
		for j := 0; j < o.Ncontrol; j++ {
			N.Set(i, j, o.spline.GetBasis(j))
		}
	}

	// fit
	fixed := make([]bool, o.Ncontrol)
	var C0 *mat.Dense
	if o.ExcludeEnds {
		fixed[0], fixed[o.Ncontrol-1] = true, true
		C0 = mat.NewDense(o.Ncontrol, 2, nil)
		C0.SetRow(0, mat.Row(nil, 0, Y))
		C0.SetRow(o.Ncontrol-1, mat.Row(nil, nv-1, Y))
	}
	if o.fit, err = newSplineFit(N, Y, C0, fixed); err != nil {
		return nil, err
	}
	return o.fit.design(), nil
}

// Eval computes the vertices for the control points in x
func (o *BsplineCurve) Eval(x la.Vector) (y la.Vector, err error) {
	if o.fit == nil {
		return nil, chk.Err("BsplineCurve: InverseEval must be called first")
	}
	return o.fit.eval(x)
}

// ApplyJacobian pulls a vertex gradient back onto the control points
func (o *BsplineCurve) ApplyJacobian(g, x la.Vector) (gx la.Vector, err error) {
	if o.fit == nil {
		return nil, chk.Err("BsplineCurve: InverseEval must be called first")
	}
	return o.fit.applyJacobian(g)
}

// BsplineSurface maps a grid of control points of a tensor-product B-spline onto the vertices of a
// 3D surface. The surface parameters of each vertex are its x-y coordinates normalised to the
// bounding box, thus the surface must be a graph over the x-y plane
type BsplineSurface struct {
	Nu, Nv int // number of control points along u and v
	Degree int // polynomial degree along u and v

	su, sv *gm.Bspline
	fit    *splineFit
}

// NewBsplineSurface returns a new spline surface parametrization
func NewBsplineSurface(nu, nv, degree int) (o *BsplineSurface, err error) {
	if degree < 1 {
		return nil, chk.Err("degree must be at least 1. %d is invalid", degree)
	}
	if nu < degree+1 || nv < degree+1 {
		return nil, chk.Err("a B-spline of degree %d needs at least %d control points along each direction. %d×%d is invalid", degree, degree+1, nu, nv)
	}
	o = &BsplineSurface{Nu: nu, Nv: nv, Degree: degree}
	o.su = gm.NewBspline(clampedKnots(nu, degree), degree)
	o.sv = gm.NewBspline(clampedKnots(nv, degree), degree)
	return
}

// InverseEval fits the control grid to the vertices y = [x0 y0 z0 x1 …]; control point (a,b) is
// stored at a + b⋅Nu
func (o *BsplineSurface) InverseEval(y la.Vector) (x la.Vector, err error) {
	if len(y)%3 != 0 || len(y) == 0 {
		return nil, chk.Err("surface requires a multiple of 3 coordinates. %d is invalid", len(y))
	}
	nverts := len(y) / 3
	Y := mat.NewDense(nverts, 3, y.GetCopy())

	// parameters
	xmin, xmax := []float64{math.Inf(1), math.Inf(1)}, []float64{math.Inf(-1), math.Inf(-1)}
	for i := 0; i < nverts; i++ {
		for k := 0; k < 2; k++ {
			xmin[k] = math.Min(xmin[k], y[3*i+k])
			xmax[k] = math.Max(xmax[k], y[3*i+k])
		}
	}
	if xmax[0] <= xmin[0] || xmax[1] <= xmin[1] {
		return nil, chk.Err("surface has a degenerate x-y bounding box")
	}

	// basis
	nc := o.Nu * o.Nv
	N := mat.NewDense(nverts, nc, nil)
	Nu := make([]float64, o.Nu)
	for i := 0; i < nverts; i++ {
		u := math.Min((y[3*i]-xmin[0])/(xmax[0]-xmin[0]), 1)
		v := math.Min((y[3*i+1]-xmin[1])/(xmax[1]-xmin[1]), 1)
		o.su.CalcBasis(u)
		for a := 0; a < o.Nu; a++ {
			Nu[a] = o.su.GetBasis(a)
		}
		o.sv.CalcBasis(v)
		for b := 0; b < o.Nv; b++ {
			Nb := o.sv.GetBasis(b)
			for a := 0; a < o.Nu; a++ {
				N.Set(i, a+b*o.Nu, Nu[a]*Nb)
			}
		}
	}

	// fit
	if o.fit, err = newSplineFit(N, Y, nil, make([]bool, nc)); err != nil {
		return nil, err
	}
	return o.fit.design(), nil
}

// Eval computes the vertices for the control grid in x
func (o *BsplineSurface) Eval(x la.Vector) (y la.Vector, err error) {
	if o.fit == nil {
		return nil, chk.Err("BsplineSurface: InverseEval must be called first")
	}
	return o.fit.eval(x)
}

// ApplyJacobian pulls a vertex gradient back onto the control grid
func (o *BsplineSurface) ApplyJacobian(g, x la.Vector) (gx la.Vector, err error) {
	if o.fit == nil {
		return nil, chk.Err("BsplineSurface: InverseEval must be called first")
	}
	return o.fit.applyJacobian(g)
}
