// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"math"

	"github.com/WangweiYDYK/polyfem/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/gm/msh"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Domain holds the mesh, elements, constraints and solution states of one (macro or micro) problem
//
//  Displacements are node-major: u[v*ndim + k] is the k-th component at vertex v.
//  Total displacements are written as
//
//    u_I = a₀(λ) offset_I + a_I(λ) ū_I + (P w)_I
//
//  where λ ∈ [0,1] is the load factor, a(λ) are amplitude functions, ū holds prescribed values
//  (zero at free dofs), w holds the reduced unknowns and P is the prolongation operator defined
//  by Eq (periodic dofs share one equation; fixed dofs have Eq = -1). External forces at λ are
//  fext_I = b_I(λ) Fext_I.
type Domain struct {

	// input
	Sim *inp.Simulation // simulation data
	Msh *msh.Mesh       // mesh

	// elements
	Ndim  int        // space dimension
	Elems []*Element // all elements; Elems[i].Cell.ID == i

	// constraints
	Eq   []int     // [ndof] dof => reduced equation number; -1 => prescribed
	Ubar la.Vector // [ndof] prescribed values at the end of loading
	Neq  int       // number of reduced equations
	Fext la.Vector // [ndof] external forces at the end of loading

	// amplitudes
	amps      []fun.Ss       // amplitude functions; amps[0] is a(λ) = λ
	ampIdx    map[string]int // function name => index in amps
	ubarAmp   []int          // [ndof] amplitude of prescribed values
	fextAmp   []int          // [ndof] amplitude of external forces
	offsetAmp int            // amplitude of imposed offset

	// states
	Differentiable bool         // keep states of all load steps in DiffCache
	Solved         bool         // a nonlinear solve has been performed
	DiffCache      []*DiffCache // [nsteps+1] states for adjoint solves; empty if not differentiable
	Summary        *Summary     // iterations and residuals of the last solve

	// auxiliary
	offset la.Vector    // imposed offset of the last solve
	last   la.Vector    // solution of the last solve
	feBuf  []la.Vector  // [nelems] element vectors
	keBuf  []*la.Matrix // [nelems] element matrices
	nnzKr  int          // number of entries put into the reduced Jacobian
}

// NewDomain allocates a new domain: builds mesh, elements and constraints
func NewDomain(sim *inp.Simulation) (o *Domain, err error) {

	// mesh
	o = new(Domain)
	o.Sim = sim
	o.Msh, err = sim.Mesh.Build(sim.Dir)
	if err != nil {
		return nil, err
	}
	if len(o.Msh.Cells) < 1 {
		return nil, chk.Err("mesh has no cells")
	}
	o.Ndim = o.Msh.Ndim
	sim.Data.Ndim = o.Ndim
	o.Differentiable = sim.Data.Differentiable

	// assemblers shared by all cells of a material
	shared := make(map[int]Assembler)
	for _, mat := range sim.Materials {
		if maker, ok := asmallocators[mat.Type]; ok {
			shared[mat.Tag], err = maker(mat, o.Ndim)
			if err != nil {
				return nil, chk.Err("cannot allocate assembler for material %d:\n%v", mat.Tag, err)
			}
		}
	}

	// elements
	o.Elems = make([]*Element, len(o.Msh.Cells))
	o.feBuf = make([]la.Vector, len(o.Msh.Cells))
	o.keBuf = make([]*la.Matrix, len(o.Msh.Cells))
	for i, cell := range o.Msh.Cells {
		mat := sim.GetMaterial(cell.Tag)
		if mat == nil {
			return nil, chk.Err("cannot find material for cell %d with tag %d", cell.ID, cell.Tag)
		}
		e, err := NewElement(cell, o.Ndim)
		if err != nil {
			return nil, err
		}
		e.Mat = mat.Type
		if asm, ok := shared[mat.Tag]; ok {
			e.Asm = asm
		} else {
			e.Mdl, err = GetAndInitSolidModel(mat, o.Ndim)
			if err != nil {
				return nil, err
			}
			e.Asm = ElasticAssembler{}
		}
		o.Elems[i] = e
		o.feBuf[i] = la.NewVector(e.Nu)
		o.keBuf[i] = la.NewMatrix(e.Nu, e.Nu)
	}

	// constraints and loads
	o.amps = []fun.Ss{fun.Ramp}
	o.ampIdx = map[string]int{"": 0}
	if o.offsetAmp, err = o.amplitude(sim.Solver.OffsetFcn); err != nil {
		return nil, chk.Err("offset:\n%v", err)
	}
	if err = o.setConstraints(); err != nil {
		return nil, err
	}
	if err = o.setLoads(); err != nil {
		return nil, err
	}

	// number of entries in reduced Jacobian
	for _, e := range o.Elems {
		n := 0
		for _, I := range e.Umap {
			if o.Eq[I] >= 0 {
				n++
			}
		}
		o.nnzKr += n * n
	}
	if sim.Data.Debug {
		io.Pforan("domain: ndof = %d  neq = %d  nnz = %d\n", o.Ndof(), o.Neq, o.nnzKr)
	}
	return
}

// Ndof returns the total number of dofs (before constraints)
func (o *Domain) Ndof() int { return len(o.Msh.Verts) * o.Ndim }

// BoundingBox returns the min and max coordinates of the mesh
func (o *Domain) BoundingBox() (xmin, xmax []float64) {
	return inp.BoundingBox(o.Msh)
}

// Volume returns the volume of the bounding box
func (o *Domain) Volume() (vol float64) {
	xmin, xmax := o.BoundingBox()
	vol = 1.0
	for i := 0; i < o.Ndim; i++ {
		vol *= xmax[i] - xmin[i]
	}
	return
}

// Amplitudes evaluates all amplitude functions at λ
func (o *Domain) Amplitudes(λ float64) (a []float64) {
	a = make([]float64, len(o.amps))
	for i, f := range o.amps {
		a[i] = f(λ)
	}
	return
}

// Displacements computes u = a₀(λ) offset + a(λ) ū + P w
//  offset -- may be nil
func (o *Domain) Displacements(u, w, offset la.Vector, λ float64) {
	a := o.Amplitudes(λ)
	for I, eq := range o.Eq {
		u[I] = 0
		if offset != nil {
			u[I] = a[o.offsetAmp] * offset[I]
		}
		if eq < 0 {
			u[I] += a[o.ubarAmp[I]] * o.Ubar[I]
		} else {
			u[I] += w[eq]
		}
	}
}

// ExternalForces computes fext = b(λ) Fext
func (o *Domain) ExternalForces(fext la.Vector, λ float64) {
	a := o.Amplitudes(λ)
	for I, F := range o.Fext {
		fext[I] = a[o.fextAmp[I]] * F
	}
}

// Restrict computes r = Pᵀ f
func (o *Domain) Restrict(r, f la.Vector) {
	r.Fill(0)
	for I, eq := range o.Eq {
		if eq >= 0 {
			r[eq] += f[I]
		}
	}
}

// Prolong computes f = P r; i.e. zero at prescribed dofs
func (o *Domain) Prolong(f, r la.Vector) {
	for I, eq := range o.Eq {
		f[I] = 0
		if eq >= 0 {
			f[I] = r[eq]
		}
	}
}

// constraints /////////////////////////////////////////////////////////////////////////////////////

// setConstraints sets equation numbers from periodic conditions and essential boundary conditions
func (o *Domain) setConstraints() (err error) {

	// auxiliary
	ndof := o.Ndof()
	classes := newDofClasses(ndof)
	fixed := make([]bool, ndof)
	o.Ubar = la.NewVector(ndof)
	o.ubarAmp = make([]int, ndof)

	// periodic conditions: pair vertices on opposite faces and pin the min corner
	if o.Sim.Data.Periodic {
		pairs, err := PeriodicPairs(o.Msh)
		if err != nil {
			return err
		}
		for _, pair := range pairs {
			for k := 0; k < o.Ndim; k++ {
				classes.union(pair[0]*o.Ndim+k, pair[1]*o.Ndim+k)
			}
		}
		corner := o.cornerVertex()
		for k := 0; k < o.Ndim; k++ {
			fixed[corner*o.Ndim+k] = true
		}
	}

	// essential boundary conditions
	for _, bc := range o.Sim.EssenBcs {
		verts, err := inp.SelectVerts(o.Msh, bc.Tag, bc.Side)
		if err != nil {
			return chk.Err("essential boundary condition:\n%v", err)
		}
		if len(verts) < 1 {
			return chk.Err("essential boundary condition: cannot find vertices with tag %d or on side %q", bc.Tag, bc.Side)
		}
		amp, err := o.amplitude(bc.Func)
		if err != nil {
			return chk.Err("essential boundary condition:\n%v", err)
		}
		for i, key := range bc.Keys {
			k, err := keyIndex(key, "u", o.Ndim)
			if err != nil {
				return chk.Err("essential boundary condition:\n%v", err)
			}
			for _, v := range verts {
				fixed[v*o.Ndim+k] = true
				o.Ubar[v*o.Ndim+k] = bc.Vals[i]
				o.ubarAmp[v*o.Ndim+k] = amp
			}
		}
	}

	// a class is prescribed if any of its dofs is prescribed
	for I := 0; I < ndof; I++ {
		if fixed[I] {
			fixed[classes.find(I)] = true
		}
	}

	// equation numbers
	o.Eq = make([]int, ndof)
	root2eq := make(map[int]int)
	for I := 0; I < ndof; I++ {
		r := classes.find(I)
		if fixed[r] {
			o.Eq[I] = -1
			continue
		}
		eq, ok := root2eq[r]
		if !ok {
			eq = o.Neq
			root2eq[r] = eq
			o.Neq++
		}
		o.Eq[I] = eq
	}
	return
}

// setLoads sets the external forces at the end of loading
//  Note: loads added to the same dof must share their amplitude
func (o *Domain) setLoads() (err error) {
	o.Fext = la.NewVector(o.Ndof())
	o.fextAmp = make([]int, o.Ndof())
	loaded := make([]bool, o.Ndof())
	for _, pl := range o.Sim.PtLoads {
		verts, err := inp.SelectVerts(o.Msh, pl.Tag, pl.Side)
		if err != nil {
			return chk.Err("point load:\n%v", err)
		}
		amp, err := o.amplitude(pl.Func)
		if err != nil {
			return chk.Err("point load:\n%v", err)
		}
		for i, key := range pl.Keys {
			k, err := keyIndex(key, "f", o.Ndim)
			if err != nil {
				return chk.Err("point load:\n%v", err)
			}
			for _, v := range verts {
				I := v*o.Ndim + k
				if loaded[I] && o.fextAmp[I] != amp {
					return chk.Err("point load: vertex %d receives %q loads with different amplitudes", v, key)
				}
				o.Fext[I] += pl.Vals[i]
				o.fextAmp[I] = amp
				loaded[I] = true
			}
		}
	}
	return
}

// amplitude returns the index of the amplitude function with given name, allocating it if needed
func (o *Domain) amplitude(name string) (idx int, err error) {
	if idx, ok := o.ampIdx[name]; ok {
		return idx, nil
	}
	f, err := o.Sim.Functions.Get(name)
	if err != nil {
		return
	}
	idx = len(o.amps)
	o.amps = append(o.amps, f)
	o.ampIdx[name] = idx
	return
}

// cornerVertex returns the vertex closest to the min corner of the bounding box
func (o *Domain) cornerVertex() (id int) {
	xmin, _ := o.BoundingBox()
	dmin := math.Inf(1)
	for _, v := range o.Msh.Verts {
		d := 0.0
		for i := 0; i < o.Ndim; i++ {
			d += (v.X[i] - xmin[i]) * (v.X[i] - xmin[i])
		}
		if d < dmin {
			id, dmin = v.ID, d
		}
	}
	return
}

// PeriodicPairs finds pairs of vertices {vmin, vmax} lying on opposite faces of the bounding box
//  Note: returns an error if the mesh is not periodic
func PeriodicPairs(m *msh.Mesh) (pairs [][2]int, err error) {
	xmin, xmax := inp.BoundingBox(m)
	diag := 0.0
	for i := 0; i < m.Ndim; i++ {
		diag += (xmax[i] - xmin[i]) * (xmax[i] - xmin[i])
	}
	tol := 1e-8 * math.Sqrt(diag)
	for dir := 0; dir < m.Ndim; dir++ {
		var lower, upper []*msh.Vertex
		for _, v := range m.Verts {
			if math.Abs(v.X[dir]-xmin[dir]) < tol {
				lower = append(lower, v)
			}
			if math.Abs(v.X[dir]-xmax[dir]) < tol {
				upper = append(upper, v)
			}
		}
		if len(lower) != len(upper) {
			return nil, chk.Err("mesh is not periodic along direction %d: %d vertices on min face and %d on max face", dir, len(lower), len(upper))
		}
		for _, a := range lower {
			found := false
			for _, b := range upper {
				match := true
				for i := 0; i < m.Ndim; i++ {
					if i != dir && math.Abs(a.X[i]-b.X[i]) > tol {
						match = false
						break
					}
				}
				if match {
					pairs = append(pairs, [2]int{a.ID, b.ID})
					found = true
					break
				}
			}
			if !found {
				return nil, chk.Err("mesh is not periodic along direction %d: cannot find the image of vertex %d at %v", dir, a.ID, a.X)
			}
		}
	}
	return
}

// keyIndex converts keys such as "ux" or "fy" into component indices
func keyIndex(key, prefix string, ndim int) (k int, err error) {
	if len(key) != 2 || key[:1] != prefix {
		return 0, chk.Err("key %q is invalid; e.g. %sx, %sy or %sz are valid", key, prefix, prefix, prefix)
	}
	k = int(key[1] - 'x')
	if k < 0 || k >= ndim {
		return 0, chk.Err("key %q is invalid in %dD", key, ndim)
	}
	return
}

// dofClasses implements union-find over dofs
type dofClasses []int

func newDofClasses(n int) dofClasses {
	o := make(dofClasses, n)
	for i := range o {
		o[i] = i
	}
	return o
}

func (o dofClasses) find(i int) int {
	for o[i] != i {
		o[i] = o[o[i]]
		i = o[i]
	}
	return i
}

// union joins the classes of i and j; the smallest root represents the class
func (o dofClasses) union(i, j int) {
	ri, rj := o.find(i), o.find(j)
	if ri < rj {
		o[rj] = ri
	} else if rj < ri {
		o[ri] = rj
	}
}
