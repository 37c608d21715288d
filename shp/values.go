// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shp

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// IpValues holds shape data computed at one integration point
type IpValues struct {
	S    la.Vector  // [nverts] shape functions
	G    *la.Matrix // [nverts][ndim] dSdx
	DSdR *la.Matrix // [nverts][ndim] reference gradients
	DRdx *la.Matrix // [ndim][ndim] inverse of the map Jacobian
	X    la.Vector  // [ndim] real coordinates
	Det  float64    // determinant of dxdR
	W    float64    // quadrature weight
	Da   float64    // |det| * w
}

// Values holds the shape data of one element at all integration points.
// Values are computed once and are read-only afterwards; thus they can be
// shared among goroutines.
type Values struct {
	Type   string      // shape type; e.g. "qua4"
	Nverts int         // number of vertices
	Ndim   int         // space dimension
	Ips    []*IpValues // [nip] values at integration points
	Volume float64     // sum of Da
}

// NewValues computes the cached values of an element
//  x   -- coordinates of vertices [nverts][ndim]
//  ips -- integration points [nip][4]; nil => default ones
func NewValues(geoType string, x *la.Matrix, ips [][]float64) (o *Values, err error) {
	shape := Get(geoType, 1)
	if shape == nil {
		return nil, chk.Err("cannot find shape type %q", geoType)
	}
	if x.M != shape.Nverts || x.N != shape.Gndim {
		return nil, chk.Err("%s: coordinates matrix must be %d×%d. %d×%d is invalid", geoType, shape.Nverts, shape.Gndim, x.M, x.N)
	}
	if ips == nil {
		ips = shape.IntPts
	}
	o = &Values{Type: geoType, Nverts: shape.Nverts, Ndim: shape.Gndim}
	o.Ips = make([]*IpValues, len(ips))
	for idx, ip := range ips {
		err = shape.CalcAtIp(x, ip, true)
		if err != nil {
			return nil, chk.Err("cannot compute shape values at integration point %d:\n%v", idx, err)
		}
		if shape.J < 0 {
			return nil, chk.Err("%s: Jacobian is negative = %g", geoType, shape.J)
		}
		v := &IpValues{
			S:    shape.S.GetCopy(),
			G:    shape.G.GetCopy(),
			DSdR: shape.DSdR.GetCopy(),
			DRdx: shape.DRdx.GetCopy(),
			Det:  shape.J,
			W:    ip[3],
			Da:   shape.J * ip[3],
		}
		v.X = la.NewVector(shape.Gndim)
		la.MatTrVecMul(v.X, 1, x, v.S) // x := xᵀ⋅S
		o.Ips[idx] = v
		o.Volume += v.Da
	}
	return
}
