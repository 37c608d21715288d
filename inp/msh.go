// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"math"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/gm/msh"
)

// constants
const Ztol = 1e-7

// GenData holds data to generate structured meshes
type GenData struct {
	Type string    `json:"type"` // "qua4", "qua8", "qua9", "tri3" or "hex8"
	Ndiv []int     `json:"ndiv"` // number of divisions along each direction
	Xmin []float64 `json:"xmin"` // min coordinates of box
	Xmax []float64 `json:"xmax"` // max coordinates of box
}

// RegionData holds data to set the tag of cells whose centroid lies inside a box or a circle (sphere)
type RegionData struct {
	Tag    int       `json:"tag"`    // new tag
	Xmin   []float64 `json:"xmin"`   // box: min coordinates
	Xmax   []float64 `json:"xmax"`   // box: max coordinates
	Centre []float64 `json:"centre"` // circle: centre
	Radius float64   `json:"radius"` // circle: radius
}

// MeshData holds the definition of a mesh
type MeshData struct {
	File     string        `json:"file"`     // mesh file (gosl/msh JSON format)
	Generate *GenData      `json:"generate"` // generator data
	Regions  []*RegionData `json:"regions"`  // re-tagging of cells; coordinates before scaling
	Scale    float64       `json:"scale"`    // scale factor applied to all coordinates; 0 => 1
}

// Check checks mesh data
func (o *MeshData) Check() (err error) {
	if o.File == "" && o.Generate == nil {
		return chk.Err("mesh: either \"file\" or \"generate\" must be given")
	}
	if g := o.Generate; g != nil {
		ndim := 2
		if g.Type == "hex8" {
			ndim = 3
		}
		if len(g.Ndiv) != ndim || len(g.Xmin) != ndim || len(g.Xmax) != ndim {
			return chk.Err("mesh: %q generator requires %d values in \"ndiv\", \"xmin\" and \"xmax\"", g.Type, ndim)
		}
		for i := 0; i < ndim; i++ {
			if g.Ndiv[i] < 1 || g.Xmax[i] <= g.Xmin[i] {
				return chk.Err("mesh: invalid generator data along direction %d: ndiv=%d xmin=%g xmax=%g", i, g.Ndiv[i], g.Xmin[i], g.Xmax[i])
			}
		}
	}
	return
}

// Build reads or generates the mesh
//  dir -- directory to resolve relative file paths
func (o *MeshData) Build(dir string) (m *msh.Mesh, err error) {

	// gosl/msh panics on errors
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, chk.Err("cannot build mesh:\n%v", r)
		}
	}()

	// read or generate
	if o.File != "" {
		fn := o.File
		if !filepath.IsAbs(fn) {
			fn = filepath.Join(dir, fn)
		}
		m = msh.Read(fn)
	} else {
		g := o.Generate
		switch g.Type {
		case "qua4", "qua8", "qua9":
			m = msh.GenQuadRegionHL(msh.TypeKeyToIndex[g.Type], g.Ndiv[0], g.Ndiv[1], g.Xmin[0], g.Xmax[0], g.Xmin[1], g.Xmax[1])
		case "tri3":
			m = GenTriRegion(g.Ndiv[0], g.Ndiv[1], g.Xmin, g.Xmax)
		case "hex8":
			m = GenBoxHex8(g.Ndiv, g.Xmin, g.Xmax)
		default:
			return nil, chk.Err("cannot generate mesh with cells of type %q", g.Type)
		}
	}

	// regions
	if len(o.Regions) > 0 {
		for _, cell := range m.Cells {
			c := Centroid(m, cell)
			for _, reg := range o.Regions {
				if reg.Contains(c) {
					cell.Tag = reg.Tag
				}
			}
		}
		m.CheckAndCalcDerivedVars()
	}

	// scale coordinates
	if o.Scale > 0 && o.Scale != 1 {
		for _, v := range m.Verts {
			for i := range v.X {
				v.X[i] *= o.Scale
			}
		}
		m.CheckAndCalcDerivedVars()
	}
	return
}

// Contains tells whether point x is inside region
func (o *RegionData) Contains(x []float64) bool {
	if o.Radius > 0 {
		d := 0.0
		for i := 0; i < len(x) && i < len(o.Centre); i++ {
			d += (x[i] - o.Centre[i]) * (x[i] - o.Centre[i])
		}
		return math.Sqrt(d) < o.Radius+Ztol
	}
	for i := 0; i < len(x) && i < len(o.Xmin); i++ {
		if x[i] < o.Xmin[i]-Ztol || x[i] > o.Xmax[i]+Ztol {
			return false
		}
	}
	return true
}

// Centroid returns the mean of vertex coordinates of cell
func Centroid(m *msh.Mesh, cell *msh.Cell) (c []float64) {
	c = make([]float64, m.Ndim)
	for _, v := range cell.V {
		for i := 0; i < m.Ndim; i++ {
			c[i] += m.Verts[v].X[i]
		}
	}
	for i := 0; i < m.Ndim; i++ {
		c[i] /= float64(len(cell.V))
	}
	return
}

// BoundingBox returns the min and max coordinates of all vertices
func BoundingBox(m *msh.Mesh) (xmin, xmax []float64) {
	xmin = make([]float64, m.Ndim)
	xmax = make([]float64, m.Ndim)
	for i := 0; i < m.Ndim; i++ {
		xmin[i], xmax[i] = math.Inf(1), math.Inf(-1)
	}
	for _, v := range m.Verts {
		for i := 0; i < m.Ndim; i++ {
			xmin[i] = math.Min(xmin[i], v.X[i])
			xmax[i] = math.Max(xmax[i], v.X[i])
		}
	}
	return
}

// SelectVerts returns the ids of vertices with a given tag or, if tag == 0, on a side of the bounding box
//  side -- "xmin", "xmax", "ymin", "ymax", "zmin" or "zmax"
func SelectVerts(m *msh.Mesh, tag int, side string) (ids []int, err error) {
	if tag != 0 {
		vset, ok := m.Tmaps.VertexTag2verts[tag]
		if !ok {
			return nil, chk.Err("cannot find vertices with tag %d", tag)
		}
		return vset.IDs(), nil
	}
	if len(side) != 4 {
		return nil, chk.Err("side %q is invalid", side)
	}
	dir := int(side[0] - 'x')
	if dir < 0 || dir >= m.Ndim {
		return nil, chk.Err("side %q is invalid in %dD", side, m.Ndim)
	}
	xmin, xmax := BoundingBox(m)
	var ref float64
	switch side[1:] {
	case "min":
		ref = xmin[dir]
	case "max":
		ref = xmax[dir]
	default:
		return nil, chk.Err("side %q is invalid", side)
	}
	for _, v := range m.Verts {
		if math.Abs(v.X[dir]-ref) < Ztol {
			ids = append(ids, v.ID)
		}
	}
	return
}

// generators //////////////////////////////////////////////////////////////////////////////////////

// GenTriRegion generates a rectangle with each grid square split into two triangles (tri3)
//  Note: vertex tags follow GenQuadRegionHL: corners 41, 12, 23, 34; sides 1, 2, 3, 4
func GenTriRegion(nx, ny int, xmin, xmax []float64) (m *msh.Mesh) {
	m = new(msh.Mesh)
	grid(m, []int{nx, ny, 0}, xmin, xmax)
	id := func(i, j int) int { return i + j*(nx+1) }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := id(i, j), id(i+1, j), id(i+1, j+1), id(i, j+1)
			m.Cells = append(m.Cells,
				&msh.Cell{ID: len(m.Cells), Tag: -1, TypeKey: "tri3", V: []int{a, b, c}},
				&msh.Cell{ID: len(m.Cells) + 1, Tag: -1, TypeKey: "tri3", V: []int{a, c, d}},
			)
		}
	}
	m.CheckAndCalcDerivedVars()
	return
}

// GenBoxHex8 generates a box made of hex8 cells
func GenBoxHex8(ndiv []int, xmin, xmax []float64) (m *msh.Mesh) {
	nx, ny, nz := ndiv[0], ndiv[1], ndiv[2]
	m = new(msh.Mesh)
	grid(m, ndiv, xmin, xmax)
	id := func(i, j, k int) int { return i + j*(nx+1) + k*(nx+1)*(ny+1) }
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				m.Cells = append(m.Cells, &msh.Cell{ID: len(m.Cells), Tag: -1, TypeKey: "hex8", V: []int{
					id(i, j, k), id(i+1, j, k), id(i+1, j+1, k), id(i, j+1, k),
					id(i, j, k+1), id(i+1, j, k+1), id(i+1, j+1, k+1), id(i, j+1, k+1),
				}})
			}
		}
	}
	m.CheckAndCalcDerivedVars()
	return
}

// grid generates the vertices of a structured grid; ndiv[2] == 0 => 2D
func grid(m *msh.Mesh, ndiv []int, xmin, xmax []float64) {
	nx, ny, nz := ndiv[0], ndiv[1], 0
	if len(ndiv) > 2 {
		nz = ndiv[2]
	}
	ndim := 2
	if nz > 0 {
		ndim = 3
	}
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				x := []float64{
					xmin[0] + float64(i)*(xmax[0]-xmin[0])/float64(nx),
					xmin[1] + float64(j)*(xmax[1]-xmin[1])/float64(ny),
				}
				if ndim == 3 {
					x = append(x, xmin[2]+float64(k)*(xmax[2]-xmin[2])/float64(nz))
				}
				tag := 0
				if ndim == 2 {
					tag = sideTag(i, j, nx, ny)
				}
				m.Verts = append(m.Verts, &msh.Vertex{ID: len(m.Verts), Tag: tag, X: x})
			}
		}
	}
}

// sideTag returns the vertex tag of a 2D grid node
func sideTag(i, j, nx, ny int) int {
	switch {
	case i == 0 && j == 0:
		return 41
	case i == nx && j == 0:
		return 12
	case i == nx && j == ny:
		return 23
	case i == 0 && j == ny:
		return 34
	case j == 0:
		return 1
	case i == nx:
		return 2
	case j == ny:
		return 3
	case i == 0:
		return 4
	}
	return 0
}
