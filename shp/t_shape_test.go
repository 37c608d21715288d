// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shp

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

func init() {
	io.Verbose = false
}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

func Test_shape01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("shape01. interpolation and reference gradients")

	r := []float64{0.1, 0.2, 0.15}

	for name, shape := range factory {

		io.Pfyel("--------------------------------- %-6s---------------------------------\n", name)

		CheckShape(tst, shape, r, 1e-14)
		CheckDSdR(tst, shape, r, 1e-9, chk.Verbose)
	}
}

func Test_shape02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("shape02")

	x := la.NewMatrixDeep2([][]float64{
		{10, 8},
		{13, 8},
		{13, 9},
		{10, 9},
	})
	dx, dy := 3.0, 1.0
	dr, ds := 2.0, 2.0
	shape := Get("qua4", 0)
	err := shape.CalcAtIp(x, []float64{0, 0, 0, 4}, true)
	if err != nil {
		tst.Errorf("CalcAtIp failed:\n%v", err)
		return
	}
	io.Pforan("J = %v\n", shape.J)
	chk.Float64(tst, "J", 1e-15, shape.J, (dx/dr)*(dy/ds))

	// G of the bilinear element at the centre
	chk.Deep2(tst, "G", 1e-15, shape.G.GetDeep2(), [][]float64{
		{-1.0 / 6.0, -0.5},
		{+1.0 / 6.0, -0.5},
		{+1.0 / 6.0, +0.5},
		{-1.0 / 6.0, +0.5},
	})
}

func Test_values01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("values01")

	// distorted quadrilateral
	x := la.NewMatrixDeep2([][]float64{
		{0.0, 0.0},
		{2.0, 0.2},
		{2.2, 1.5},
		{-0.1, 1.0},
	})
	vals, err := NewValues("qua4", x, nil)
	if err != nil {
		tst.Errorf("NewValues failed:\n%v", err)
		return
	}
	chk.Int(tst, "nip", len(vals.Ips), 4)

	// area by the shoelace formula
	area := 0.0
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		area += x.Get(i, 0)*x.Get(j, 1) - x.Get(j, 0)*x.Get(i, 1)
	}
	area /= 2.0
	chk.Float64(tst, "volume", 1e-14, vals.Volume, area)

	// G reproduces the gradient of a linear field exactly
	a, b := 3.0, -2.0
	for idx, ip := range vals.Ips {
		gx, gy := 0.0, 0.0
		for m := 0; m < 4; m++ {
			f := a*x.Get(m, 0) + b*x.Get(m, 1)
			gx += f * ip.G.Get(m, 0)
			gy += f * ip.G.Get(m, 1)
		}
		chk.Float64(tst, io.Sf("dfdx @ ip %d", idx), 1e-13, gx, a)
		chk.Float64(tst, io.Sf("dfdy @ ip %d", idx), 1e-13, gy, b)
	}

	// wrong coordinates
	_, err = NewValues("qua4", la.NewMatrix(3, 2), nil)
	if err == nil {
		tst.Errorf("NewValues should have failed with wrong coordinates matrix\n")
	}
}
