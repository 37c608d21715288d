// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package param implements differentiable maps from design variables to simulation fields
package param

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// Parametrization maps a design vector x onto a field y
//  Note: some parametrizations hold state that is fixed by InverseEval; Eval and ApplyJacobian
//        fail before InverseEval is called
type Parametrization interface {
	InverseEval(y la.Vector) (x la.Vector, err error)       // initial x for a given y; fixes internal state
	Eval(x la.Vector) (y la.Vector, err error)              // y(x)
	ApplyJacobian(g, x la.Vector) (gx la.Vector, err error) // gx = (∂y/∂x)ᵀ g
}

// Chain composes parametrizations: y = pₙ(…p₂(p₁(x)))
//  Note: an empty chain is the identity
type Chain []Parametrization

// Eval evaluates all parametrizations in order
func (o Chain) Eval(x la.Vector) (y la.Vector, err error) {
	y = x.GetCopy()
	for i, p := range o {
		if y, err = p.Eval(y); err != nil {
			return nil, chk.Err("parametrization %d:\n%v", i, err)
		}
	}
	return
}

// InverseEval inverts all parametrizations in reverse order
func (o Chain) InverseEval(y la.Vector) (x la.Vector, err error) {
	x = y.GetCopy()
	for i := len(o) - 1; i >= 0; i-- {
		if x, err = o[i].InverseEval(x); err != nil {
			return nil, chk.Err("parametrization %d:\n%v", i, err)
		}
	}
	return
}

// ApplyJacobian pulls g back through all parametrizations in reverse order
func (o Chain) ApplyJacobian(g, x la.Vector) (gx la.Vector, err error) {
	inputs := make([]la.Vector, len(o))
	v := x
	for i, p := range o {
		inputs[i] = v
		if v, err = p.Eval(v); err != nil {
			return nil, chk.Err("parametrization %d:\n%v", i, err)
		}
	}
	gx = g.GetCopy()
	for i := len(o) - 1; i >= 0; i-- {
		if gx, err = o[i].ApplyJacobian(gx, inputs[i]); err != nil {
			return nil, chk.Err("parametrization %d:\n%v", i, err)
		}
	}
	return
}

// Scale implements y = α x
type Scale struct {
	Alpha float64
}

// InverseEval returns y / α
func (o Scale) InverseEval(y la.Vector) (x la.Vector, err error) {
	if o.Alpha == 0 {
		return nil, chk.Err("cannot invert scaling with α = 0")
	}
	x = la.NewVector(len(y))
	la.VecAdd(x, 1/o.Alpha, y, 0, y)
	return
}

// Eval returns α x
func (o Scale) Eval(x la.Vector) (y la.Vector, err error) {
	y = la.NewVector(len(x))
	la.VecAdd(y, o.Alpha, x, 0, x)
	return
}

// ApplyJacobian returns α g
func (o Scale) ApplyJacobian(g, x la.Vector) (gx la.Vector, err error) {
	return o.Eval(g)
}

// Slice extracts x[From:To] from a design vector with Size components
type Slice struct {
	From, To, Size int
}

func (o Slice) check(n int) error {
	if o.From < 0 || o.To > o.Size || o.From > o.To {
		return chk.Err("slice [%d:%d] of vector with %d components is invalid", o.From, o.To, o.Size)
	}
	if n != o.Size {
		return chk.Err("slice requires vector with %d components. %d is invalid", o.Size, n)
	}
	return nil
}

// InverseEval places y into a vector with zeros outside [From:To]
func (o Slice) InverseEval(y la.Vector) (x la.Vector, err error) {
	if len(y) != o.To-o.From {
		return nil, chk.Err("slice [%d:%d] requires %d values. %d is invalid", o.From, o.To, o.To-o.From, len(y))
	}
	x = la.NewVector(o.Size)
	if err = o.check(len(x)); err != nil {
		return nil, err
	}
	copy(x[o.From:o.To], y)
	return
}

// Eval returns x[From:To]
func (o Slice) Eval(x la.Vector) (y la.Vector, err error) {
	if err = o.check(len(x)); err != nil {
		return
	}
	return la.NewVectorSlice(x[o.From:o.To]).GetCopy(), nil
}

// ApplyJacobian scatters g into a vector with Size components
func (o Slice) ApplyJacobian(g, x la.Vector) (gx la.Vector, err error) {
	if err = o.check(len(x)); err != nil {
		return
	}
	if len(g) != o.To-o.From {
		return nil, chk.Err("slice [%d:%d] requires gradient with %d values. %d is invalid", o.From, o.To, o.To-o.From, len(g))
	}
	gx = la.NewVector(o.Size)
	copy(gx[o.From:o.To], g)
	return
}
