// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
)

// FuncData holds data of an amplitude function a(λ) of the load factor λ ∈ [0,1]
//  Note: amplitudes must vanish at λ = 0; i.e. step 0 is the undeformed state
type FuncData struct {
	Name string    `json:"name"` // name of function; e.g. "ramp"
	Type string    `json:"type"` // "lin", "pts" or "poly"
	P    int       `json:"p"`    // "poly": order of interpolating polynomial
	Xs   []float64 `json:"xs"`   // "pts", "poly": load factors in increasing order
	Ys   []float64 `json:"ys"`   // "pts", "poly": amplitudes
}

// FuncsData holds all amplitude functions
type FuncsData []*FuncData

// Get allocates the function with given name. An empty name gives a(λ) = λ
//  Note: each call allocates a new function; interpolators are not safe for concurrent use
func (o FuncsData) Get(name string) (f fun.Ss, err error) {
	if name == "" {
		return fun.Ramp, nil
	}
	for _, fd := range o {
		if fd.Name == name {
			return fd.New()
		}
	}
	return nil, chk.Err("cannot find function named %q", name)
}

// New allocates the function
func (o *FuncData) New() (f fun.Ss, err error) {
	kind, p := "lin", 1
	switch o.Type {
	case "lin":
		return fun.Ramp, nil
	case "pts":
	case "poly":
		kind, p = "poly", o.P
		if p < 1 {
			return nil, chk.Err("function %q: order of polynomial must be at least 1. %d is invalid", o.Name, p)
		}
	default:
		return nil, chk.Err("function %q: type %q is invalid; use \"lin\", \"pts\" or \"poly\"", o.Name, o.Type)
	}
	if len(o.Xs) != len(o.Ys) {
		return nil, chk.Err("function %q: xs and ys must have the same length. %d != %d", o.Name, len(o.Xs), len(o.Ys))
	}
	if len(o.Xs) < 2 || len(o.Xs) < p+1 {
		return nil, chk.Err("function %q: %d points are not enough", o.Name, len(o.Xs))
	}
	for i := 1; i < len(o.Xs); i++ {
		if o.Xs[i] <= o.Xs[i-1] {
			return nil, chk.Err("function %q: xs must be increasing", o.Name)
		}
	}
	interp := fun.NewDataInterp(kind, p, o.Xs, o.Ys)
	return interp.P, nil
}

// check checks names and data of all functions
func (o FuncsData) check() (err error) {
	names := make(map[string]bool)
	for _, fd := range o {
		if fd.Name == "" {
			return chk.Err("functions must have a name")
		}
		if names[fd.Name] {
			return chk.Err("function name %q is repeated", fd.Name)
		}
		names[fd.Name] = true
		if _, err = fd.New(); err != nil {
			return
		}
	}
	return
}

// checkRef checks that a referenced function exists and vanishes at λ = 0
func (o FuncsData) checkRef(name string) (err error) {
	f, err := o.Get(name)
	if err != nil {
		return
	}
	if math.Abs(f(0)) > 1e-12 {
		return chk.Err("function %q must vanish at λ = 0. a(0) = %g is invalid", name, f(0))
	}
	return
}
