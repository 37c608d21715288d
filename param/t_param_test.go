// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

func init() {
	io.Verbose = false
}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// wiggle returns a deterministic vector with components in [-1,1]
func wiggle(n int, seed float64) (v la.Vector) {
	v = la.NewVector(n)
	for i := range v {
		v[i] = math.Sin(seed + 1.7*float64(i))
	}
	return
}

// checkJacobian compares ApplyJacobian with the derivative of ⟨g, Eval(x)⟩
func checkJacobian(tst *testing.T, msg string, p Parametrization, x la.Vector, ny int) {
	g := wiggle(ny, 0.3)
	gx, err := p.ApplyJacobian(g, x)
	if err != nil {
		tst.Errorf("%s: ApplyJacobian failed:\n%v", msg, err)
		return
	}
	chk.DerivScaVec(tst, msg, 1e-8, gx, x, 1e-3, chk.Verbose, func(xx []float64) float64 {
		y, err := p.Eval(xx)
		if err != nil {
			tst.Fatalf("%s: Eval failed:\n%v", msg, err)
		}
		return la.VecDot(g, y)
	})
}

// gridSurface returns the vertices and triangles of a n×n grid over [0,1]² with height z(x,y)
func gridSurface(n int, z func(x, y float64) float64) (y la.Vector, faces [][3]int) {
	return gridSurfaceNM(n, n, z)
}

// gridSurfaceNM returns the vertices and triangles of a nx×ny grid over [0,1]² with height z(x,y)
func gridSurfaceNM(nx, ny int, z func(x, y float64) float64) (y la.Vector, faces [][3]int) {
	y = la.NewVector(nx * ny * 3)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			k := i + j*nx
			y[3*k] = float64(i) / float64(nx-1)
			y[3*k+1] = float64(j) / float64(ny-1)
			y[3*k+2] = z(y[3*k], y[3*k+1])
		}
	}
	for j := 0; j < ny-1; j++ {
		for i := 0; i < nx-1; i++ {
			a, b, c, d := i+j*nx, i+1+j*nx, i+1+(j+1)*nx, i+(j+1)*nx
			faces = append(faces, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	return
}

// checkWeights checks bounds of the weights, unit rows at control vertices, zero rows on the
// boundary and the reproduction of control displacements
func checkWeights(tst *testing.T, msg string, o *BoundedBiharmonic, y la.Vector, boundary func(i int) bool) {
	nv := len(y) / 3
	for i := 0; i < nv; i++ {
		sum := 0.0
		for j := 0; j < o.Ncv; j++ {
			w := o.W.At(i, j)
			if w < 0 || w > 1 {
				tst.Errorf("%s: weight (%d,%d) is out of bounds: %g\n", msg, i, j, w)
			}
			sum += w
		}
		if sum > 1+1e-12 {
			tst.Errorf("%s: weights of vertex %d add up to more than one: %g\n", msg, i, sum)
		}
		if boundary(i) {
			chk.Float64(tst, io.Sf("%s: Σw @ boundary %d", msg, i), 1e-15, sum, 0)
		}
	}
	for j, c := range o.Control {
		if boundary(c) {
			tst.Errorf("%s: control vertex %d is on the boundary\n", msg, c)
		}
		for k := 0; k < o.Ncv; k++ {
			if k != j && o.Control[k] == c {
				tst.Errorf("%s: control vertex %d is repeated\n", msg, c)
			}
			δ := 0.0
			if k == j {
				δ = 1
			}
			chk.Float64(tst, io.Sf("%s: w(%d,%d)", msg, c, k), 1e-14, o.W.At(c, k), δ)
		}
	}

	// eval(inverse(y)) = y and control vertices follow their displacements
	x, err := o.InverseEval(y)
	if err != nil {
		tst.Errorf("%s: InverseEval failed:\n%v", msg, err)
		return
	}
	yy, err := o.Eval(x)
	if err != nil {
		tst.Errorf("%s: Eval failed:\n%v", msg, err)
		return
	}
	chk.Array(tst, msg+": y", 1e-15, yy, y)
	dx := wiggle(o.Ncv*3, 0.7)
	yy, _ = o.Eval(dx)
	for j, c := range o.Control {
		for k := 0; k < 3; k++ {
			chk.Float64(tst, io.Sf("%s: y @ control %d", msg, c), 1e-14, yy[3*c+k], y[3*c+k]+dx[3*j+k])
		}
	}
	checkJacobian(tst, msg, o, dx, len(y))
}

func Test_param01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("param01. scale, slice and chain")

	// scale
	s := Scale{Alpha: 2}
	x, err := s.InverseEval(la.NewVectorSlice([]float64{2, 4, -6}))
	if err != nil {
		tst.Errorf("InverseEval failed:\n%v", err)
		return
	}
	chk.Array(tst, "x", 1e-15, x, []float64{1, 2, -3})
	checkJacobian(tst, "scale", s, x, 3)
	if _, err = (Scale{}).InverseEval(x); err == nil {
		tst.Errorf("InverseEval with α = 0 should have failed\n")
	}

	// slice
	sl := Slice{From: 1, To: 3, Size: 4}
	y, err := sl.Eval(la.NewVectorSlice([]float64{1, 2, 3, 4}))
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Array(tst, "slice", 1e-15, y, []float64{2, 3})
	x, err = sl.InverseEval(y)
	if err != nil {
		tst.Errorf("InverseEval failed:\n%v", err)
		return
	}
	chk.Array(tst, "inverse slice", 1e-15, x, []float64{0, 2, 3, 0})
	checkJacobian(tst, "slice", sl, wiggle(4, 1), 2)
	if _, err = sl.Eval(la.NewVector(3)); err == nil {
		tst.Errorf("Eval with wrong size should have failed\n")
	}

	// chain: y = 2 x[1:3]; inverse runs backwards
	chain := Chain{sl, s}
	y, err = chain.Eval(la.NewVectorSlice([]float64{1, 2, 3, 4}))
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Array(tst, "chain", 1e-15, y, []float64{4, 6})
	x, err = chain.InverseEval(y)
	if err != nil {
		tst.Errorf("InverseEval failed:\n%v", err)
		return
	}
	chk.Array(tst, "inverse chain", 1e-15, x, []float64{0, 2, 3, 0})
	checkJacobian(tst, "chain", chain, wiggle(4, 2), 2)

	// identity
	y, err = Chain{}.Eval(x)
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Array(tst, "identity", 1e-15, y, x)
}

func Test_param02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("param02. B-spline curve")

	// vertices along a straight line
	nv := 11
	y := la.NewVector(2 * nv)
	for i := 0; i < nv; i++ {
		t := float64(i) / float64(nv-1)
		y[2*i], y[2*i+1] = 2*t, 1+t
	}

	for _, exclude := range []bool{false, true} {
		o, err := NewBsplineCurve(5, 3, exclude)
		if err != nil {
			tst.Errorf("NewBsplineCurve failed:\n%v", err)
			return
		}
		if _, err = o.Eval(la.NewVector(10)); err == nil {
			tst.Errorf("Eval before InverseEval should have failed\n")
			return
		}

		// round trip
		x, err := o.InverseEval(y)
		if err != nil {
			tst.Errorf("InverseEval failed:\n%v", err)
			return
		}
		nx := 10
		if exclude {
			nx = 6
		}
		chk.Int(tst, "len(x)", len(x), nx)
		yy, err := o.Eval(x)
		if err != nil {
			tst.Errorf("Eval failed:\n%v", err)
			return
		}
		chk.Array(tst, "y", 1e-13, yy, y)

		// moving interior control points keeps the ends
		if exclude {
			la.VecAdd(x, 0.1, wiggle(nx, 0), 1, x)
			yy, err = o.Eval(x)
			if err != nil {
				tst.Errorf("Eval failed:\n%v", err)
				return
			}
			chk.Array(tst, "first", 1e-14, yy[:2], y[:2])
			chk.Array(tst, "last", 1e-14, yy[2*nv-2:], y[2*nv-2:])
		}
		checkJacobian(tst, io.Sf("curve(exclude=%v)", exclude), o, x, 2*nv)
	}

	// errors
	if _, err := NewBsplineCurve(3, 3, false); err == nil {
		tst.Errorf("NewBsplineCurve should have failed with too few control points\n")
	}
}

func Test_param03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("param03. B-spline surface")

	y, _ := gridSurface(6, func(x, y float64) float64 { return 0.1 + 0.2*x + 0.3*y + 0.4*x*y })
	o, err := NewBsplineSurface(4, 3, 2)
	if err != nil {
		tst.Errorf("NewBsplineSurface failed:\n%v", err)
		return
	}
	x, err := o.InverseEval(y)
	if err != nil {
		tst.Errorf("InverseEval failed:\n%v", err)
		return
	}
	chk.Int(tst, "len(x)", len(x), 4*3*3)
	yy, err := o.Eval(x)
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Array(tst, "y", 1e-13, yy, y)
	checkJacobian(tst, "surface", o, x, len(y))
}

func Test_param04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("param04. bounded biharmonic weights")

	n := 5
	y, faces := gridSurface(n, func(x, y float64) float64 { return 0.05 * x * y })
	o, err := NewBoundedBiharmonic(1, faces)
	if err != nil {
		tst.Errorf("NewBoundedBiharmonic failed:\n%v", err)
		return
	}
	chk.Bool(tst, "silent by default", o.Verbose, false)
	if _, err = o.Eval(la.NewVector(3)); err == nil {
		tst.Errorf("Eval before InverseEval should have failed\n")
		return
	}
	x, err := o.InverseEval(y)
	if err != nil {
		tst.Errorf("InverseEval failed:\n%v", err)
		return
	}
	chk.Array(tst, "x", 1e-15, x, []float64{0, 0, 0})
	chk.Ints(tst, "control", o.Control, []int{12})

	// weights
	nv := n * n
	for i := 0; i < nv; i++ {
		w := o.W.At(i, 0)
		if w < 0 || w > 1 {
			tst.Errorf("weight of vertex %d is out of bounds: %g\n", i, w)
		}
		ix, iy := i%n, i/n
		if ix == 0 || iy == 0 || ix == n-1 || iy == n-1 {
			chk.Float64(tst, io.Sf("w%d", i), 1e-15, w, 0)
		}
	}
	chk.Float64(tst, "w12", 1e-14, o.W.At(12, 0), 1)

	// deformation
	yy, err := o.Eval(x)
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Array(tst, "y", 1e-15, yy, y)
	dx := la.NewVectorSlice([]float64{0.1, -0.2, 0.3})
	yy, err = o.Eval(dx)
	if err != nil {
		tst.Errorf("Eval failed:\n%v", err)
		return
	}
	chk.Array(tst, "control vertex", 1e-14, yy[36:39], []float64{y[36] + 0.1, y[37] - 0.2, y[38] + 0.3})
	checkJacobian(tst, "bbw", o, dx, len(y))

	// chain
	chain := Chain{Scale{Alpha: 2}, o}
	x, err = chain.InverseEval(y)
	if err != nil {
		tst.Errorf("InverseEval failed:\n%v", err)
		return
	}
	chk.Array(tst, "chain: x", 1e-15, x, []float64{0, 0, 0})
	checkJacobian(tst, "chain", chain, dx, len(y))

	// no interior vertex
	_, faces = gridSurface(2, func(x, y float64) float64 { return 0 })
	p, err := NewBoundedBiharmonic(1, faces)
	if err != nil {
		tst.Errorf("NewBoundedBiharmonic failed:\n%v", err)
		return
	}
	y2, _ := gridSurface(2, func(x, y float64) float64 { return 0 })
	if _, err = p.InverseEval(y2); err == nil {
		tst.Errorf("InverseEval should have failed without interior vertices\n")
	}
}

func Test_param05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("param05. bounded biharmonic weights with several control vertices")

	// strip with one row of interior vertices:
	//   greedy selection gives {13, 11}; re-selection moves the first one to 14
	nx, ny := 9, 3
	y, faces := gridSurfaceNM(nx, ny, func(x, y float64) float64 { return 0 })
	onStrip := func(i int) bool { return i/nx != 1 || i%nx == 0 || i%nx == nx-1 }
	for _, passes := range []int{0, 5} {
		o, err := NewBoundedBiharmonic(2, faces)
		if err != nil {
			tst.Errorf("NewBoundedBiharmonic failed:\n%v", err)
			return
		}
		o.Passes = passes
		if _, err = o.InverseEval(y); err != nil {
			tst.Errorf("InverseEval failed:\n%v", err)
			return
		}
		io.Pforan("passes = %d: control = %v\n", passes, o.Control)
		if passes == 0 {
			chk.Ints(tst, "greedy control", o.Control, []int{13, 11})
		} else {
			chk.Ints(tst, "control", o.Control, []int{14, 11})
		}
		checkWeights(tst, io.Sf("strip (passes=%d)", passes), o, y, onStrip)
	}

	// curved surface
	n := 7
	y, faces = gridSurface(n, func(x, y float64) float64 { return 0.3 * math.Sin(math.Pi*x) * math.Sin(math.Pi*y) })
	onGrid := func(i int) bool { return i%n == 0 || i/n == 0 || i%n == n-1 || i/n == n-1 }
	o, err := NewBoundedBiharmonic(3, faces)
	if err != nil {
		tst.Errorf("NewBoundedBiharmonic failed:\n%v", err)
		return
	}
	if _, err = o.InverseEval(y); err != nil {
		tst.Errorf("InverseEval failed:\n%v", err)
		return
	}
	chk.Int(tst, "number of control vertices", len(o.Control), 3)
	checkWeights(tst, "curved", o, y, onGrid)

	// chain
	chain := Chain{Scale{Alpha: 0.5}, o}
	x, err := chain.InverseEval(y)
	if err != nil {
		tst.Errorf("InverseEval failed:\n%v", err)
		return
	}
	chk.Array(tst, "chain: x", 1e-15, x, make([]float64, 9))
	checkJacobian(tst, "chain", chain, wiggle(9, 0.1), len(y))

	// active set does not converge
	o.MaxIter = 0
	if _, err = o.InverseEval(y); err == nil {
		tst.Errorf("InverseEval should have failed with MaxIter = 0\n")
	}
	io.Pforan("%v\n", err)
}

func Test_param06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("param06. bounded quadratic program")

	// Q = Lᵀ L with L the second difference operator on 8 points
	n := 8
	Q := mat.NewSymDense(n, nil)
	for r := 0; r < n-2; r++ {
		l := []float64{1, -2, 1}
		for a := 0; a < 3; a++ {
			for b := a; b < 3; b++ {
				Q.SetSym(r+a, r+b, Q.At(r+a, r+b)+l[a]*l[b])
			}
		}
	}

	// w = 0 at 0 and 7, w = 1 at 1: the unconstrained minimiser overshoots up to 22/13
	fixed := []int{0, 1, 7}
	val := []float64{0, 1, 0}
	w, err := boundedQP(Q, fixed, val, 20)
	if err != nil {
		tst.Errorf("boundedQP failed:\n%v", err)
		return
	}
	io.Pforan("w = %v\n", w)
	chk.Array(tst, "w", 1e-14, w, []float64{0, 1, 1, 10.0 / 11.0, 41.0 / 55.0, 29.0 / 55.0, 3.0 / 11.0, 0})

	// optimality: zero gradient at free entries, non-positive at the upper bound
	g := mat.NewVecDense(n, nil)
	g.MulVec(Q, mat.NewVecDense(n, w))
	for _, i := range []int{3, 4, 5, 6} {
		chk.Float64(tst, io.Sf("g%d", i), 1e-13, g.AtVec(i), 0)
	}
	chk.Float64(tst, "g2", 1e-13, g.AtVec(2), -49.0/55.0)

	// one bound is added then released: four iterations are not enough
	if _, err = boundedQP(Q, fixed, val, 4); err == nil {
		tst.Errorf("boundedQP should have failed with 4 iterations\n")
	}
	if _, err = boundedQP(Q, fixed, val, 5); err != nil {
		tst.Errorf("boundedQP should have converged with 5 iterations:\n%v", err)
	}
}
