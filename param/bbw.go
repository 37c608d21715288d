// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package param

import (
	"math"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// BoundedBiharmonic deforms a triangulated surface with a few interior control vertices
//
//   yᵢ = y⁰ᵢ + Σⱼ wᵢⱼ xⱼ
//
//  where xⱼ is the displacement of control vertex j and wᵢⱼ are bounded biharmonic weights:
//  minimisers of ½ wᵀ K M⁻¹ K w subject to 0 ≤ w ≤ 1, w = 1 at its own handle and w = 0 at the
//  other handles. Handles are the control vertices and the vertices of the longest boundary loop;
//  weights of boundary handles are discarded after normalising the rows.
type BoundedBiharmonic struct {
	Ncv     int      // number of control vertices
	Faces   [][3]int // triangles
	MaxIter int      // max number of active-set iterations per handle
	Passes  int      // number of passes re-selecting control vertices
	Verbose bool     // print selected control vertices

	Control []int      // [ncv] control vertices; set by InverseEval
	W       *mat.Dense // [nv][ncv] weights; set by InverseEval
	y0      la.Vector  // initial vertices

	// auxiliary
	graph *simple.WeightedUndirectedGraph
	used  []bool // vertex is referenced by a face
}

// NewBoundedBiharmonic returns a new parametrization
func NewBoundedBiharmonic(ncv int, faces [][3]int) (o *BoundedBiharmonic, err error) {
	if ncv < 1 {
		return nil, chk.Err("number of control vertices must be positive. %d is invalid", ncv)
	}
	if len(faces) < 1 {
		return nil, chk.Err("at least one face is required")
	}
	return &BoundedBiharmonic{Ncv: ncv, Faces: faces, MaxIter: 20, Passes: 5}, nil
}

// InverseEval selects the control vertices of the surface y = [x0 y0 z0 x1 …], computes the
// weights and returns zero displacements
func (o *BoundedBiharmonic) InverseEval(y la.Vector) (x la.Vector, err error) {

	// vertices
	if len(y)%3 != 0 || len(y) == 0 {
		return nil, chk.Err("surface requires a multiple of 3 coordinates. %d is invalid", len(y))
	}
	nv := len(y) / 3
	o.used = make([]bool, nv)
	for _, f := range o.Faces {
		for _, v := range f {
			if v < 0 || v >= nv {
				return nil, chk.Err("face references vertex %d; number of vertices is %d", v, nv)
			}
			o.used[v] = true
		}
	}
	for i, u := range o.used {
		if !u {
			return nil, chk.Err("vertex %d is not referenced by any face", i)
		}
	}

	// boundary
	loop := longestBoundaryLoop(o.Faces)
	if len(loop) == 0 {
		return nil, chk.Err("surface has no boundary")
	}
	onLoop := make(map[int]bool)
	for _, v := range loop {
		onLoop[v] = true
	}

	// control vertices
	o.buildGraph(y)
	o.Control = o.Control[:0]
	for i := 0; i < o.Ncv; i++ {
		idx, err := o.farthestVertex(onLoop, o.Control)
		if err != nil {
			return nil, err
		}
		o.Control = append(o.Control, idx)
	}
	for r := 0; r < o.Passes; r++ {
		for i := 0; i < o.Ncv; i++ {
			others := make([]int, 0, o.Ncv-1)
			others = append(others, o.Control[:i]...)
			others = append(others, o.Control[i+1:]...)
			if o.Control[i], err = o.farthestVertex(onLoop, others); err != nil {
				return nil, err
			}
		}
	}

	// weights of all handles
	handles := append(append([]int{}, o.Control...), loop...)
	Q, err := biharmonic(y, o.Faces)
	if err != nil {
		return nil, err
	}
	Wall := mat.NewDense(nv, len(handles), nil)
	val := make([]float64, len(handles))
	for h := range handles {
		for k := range val {
			val[k] = 0
		}
		val[h] = 1
		w, err := boundedQP(Q, handles, val, o.MaxIter)
		if err != nil {
			return nil, chk.Err("bounded biharmonic weights computation failed for handle %d:\n%v", h, err)
		}
		Wall.SetCol(h, w)
	}

	// normalise rows and keep control vertices
	o.W = mat.NewDense(nv, o.Ncv, nil)
	for i := 0; i < nv; i++ {
		s := mat.Sum(Wall.RowView(i))
		if s <= 0 {
			continue
		}
		for j := 0; j < o.Ncv; j++ {
			o.W.Set(i, j, Wall.At(i, j)/s)
		}
	}
	o.y0 = y.GetCopy()
	if o.Verbose {
		io.Pforan("bbw: control vertices = %v\n", o.Control)
	}
	return la.NewVector(o.Ncv * 3), nil
}

// Eval computes yᵢ = y⁰ᵢ + Σⱼ wᵢⱼ xⱼ
func (o *BoundedBiharmonic) Eval(x la.Vector) (y la.Vector, err error) {
	if o.W == nil {
		return nil, chk.Err("BoundedBiharmonic: InverseEval must be called first")
	}
	if len(x) != o.Ncv*3 {
		return nil, chk.Err("design vector must have %d components. %d is invalid", o.Ncv*3, len(x))
	}
	y = o.y0.GetCopy()
	nv, _ := o.W.Dims()
	for i := 0; i < nv; i++ {
		for j := 0; j < o.Ncv; j++ {
			w := o.W.At(i, j)
			for c := 0; c < 3; c++ {
				y[3*i+c] += w * x[3*j+c]
			}
		}
	}
	return
}

// ApplyJacobian computes gⱼ = Σᵢ wᵢⱼ gᵢ
func (o *BoundedBiharmonic) ApplyJacobian(g, x la.Vector) (gx la.Vector, err error) {
	if o.W == nil {
		return nil, chk.Err("BoundedBiharmonic: InverseEval must be called first")
	}
	nv, _ := o.W.Dims()
	if len(g) != nv*3 {
		return nil, chk.Err("gradient must have %d components. %d is invalid", nv*3, len(g))
	}
	gx = la.NewVector(o.Ncv * 3)
	for i := 0; i < nv; i++ {
		for j := 0; j < o.Ncv; j++ {
			w := o.W.At(i, j)
			for c := 0; c < 3; c++ {
				gx[3*j+c] += w * g[3*i+c]
			}
		}
	}
	return
}

// buildGraph builds the edge graph weighted by edge lengths
func (o *BoundedBiharmonic) buildGraph(y la.Vector) {
	o.graph = simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := range o.used {
		o.graph.AddNode(simple.Node(i))
	}
	for _, f := range o.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if o.graph.HasEdgeBetween(int64(a), int64(b)) {
				continue
			}
			l := math.Sqrt(dist2(y, a, b))
			o.graph.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(a), T: simple.Node(b), W: l})
		}
	}
}

// farthestVertex returns the vertex not on the boundary loop nor among existing control vertices
// with the largest geodesic distance to them; the first one wins ties
func (o *BoundedBiharmonic) farthestVertex(onLoop map[int]bool, existing []int) (idx int, err error) {
	fixed := make(map[int]bool)
	for v := range onLoop {
		fixed[v] = true
	}
	for _, v := range existing {
		fixed[v] = true
	}

	// virtual source connected to all fixed vertices
	nv := len(o.used)
	src := simple.Node(nv)
	for v := range fixed {
		o.graph.SetWeightedEdge(simple.WeightedEdge{F: src, T: simple.Node(v), W: 0})
	}
	shortest := path.DijkstraFrom(src, o.graph)
	o.graph.RemoveNode(int64(nv))

	// farthest free vertex
	idx = -1
	dmax := -1.0
	for i := 0; i < nv; i++ {
		if fixed[i] {
			continue
		}
		if d := shortest.WeightTo(int64(i)); d > dmax {
			idx, dmax = i, d
		}
	}
	if idx < 0 {
		return -1, chk.Err("there are no interior vertices left to be control vertices")
	}
	return
}

// longestBoundaryLoop returns the vertices of the longest loop of boundary edges, in face order
func longestBoundaryLoop(faces [][3]int) (loop []int) {
	count := make(map[[2]int]int)
	for _, f := range faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			count[[2]int{min(a, b), max(a, b)}]++
		}
	}
	next := make(map[int]int)
	for _, f := range faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if count[[2]int{min(a, b), max(a, b)}] == 1 {
				next[a] = b
			}
		}
	}
	starts := make([]int, 0, len(next))
	for v := range next {
		starts = append(starts, v)
	}
	sort.Ints(starts)
	visited := make(map[int]bool)
	for _, start := range starts {
		if visited[start] {
			continue
		}
		var cur []int
		for v := start; !visited[v]; v = next[v] {
			visited[v] = true
			cur = append(cur, v)
			if _, ok := next[v]; !ok {
				break
			}
		}
		if len(cur) > len(loop) {
			loop = cur
		}
	}
	return
}

// biharmonic computes Q = K M⁻¹ K where K is the cotangent stiffness and M the lumped mass
func biharmonic(y la.Vector, faces [][3]int) (Q *mat.SymDense, err error) {
	nv := len(y) / 3
	K := mat.NewDense(nv, nv, nil)
	M := make([]float64, nv)
	e := func(a, b int) (v []float64) {
		return []float64{y[3*b] - y[3*a], y[3*b+1] - y[3*a+1], y[3*b+2] - y[3*a+2]}
	}
	for _, f := range faces {
		area := 0.0
		for k := 0; k < 3; k++ {
			i, j, c := f[k], f[(k+1)%3], f[(k+2)%3]
			u, v := e(c, i), e(c, j)
			cr := cross(u, v)
			twiceA := math.Sqrt(dot(cr, cr))
			if twiceA < 1e-300 {
				return nil, chk.Err("face (%d,%d,%d) is degenerate", f[0], f[1], f[2])
			}
			h := dot(u, v) / twiceA / 2 // ½ cot of the angle at c
			K.Set(i, j, K.At(i, j)-h)
			K.Set(j, i, K.At(j, i)-h)
			K.Set(i, i, K.At(i, i)+h)
			K.Set(j, j, K.At(j, j)+h)
			area = twiceA / 2
		}
		for _, v := range f {
			M[v] += area / 3
		}
	}
	KMi := mat.NewDense(nv, nv, nil)
	for i := 0; i < nv; i++ {
		for j := 0; j < nv; j++ {
			KMi.Set(i, j, K.At(i, j)/M[j])
		}
	}
	var B mat.Dense
	B.Mul(KMi, K)
	Q = mat.NewSymDense(nv, nil)
	for i := 0; i < nv; i++ {
		for j := i; j < nv; j++ {
			Q.SetSym(i, j, (B.At(i, j)+B.At(j, i))/2)
		}
	}
	return
}

// boundedQP minimises ½ wᵀ Q w subject to 0 ≤ w ≤ 1 and w[fixed[k]] = val[k] by an active-set method
func boundedQP(Q *mat.SymDense, fixed []int, val []float64, maxIter int) (w []float64, err error) {
	const (
		isFree = iota
		atLower
		atUpper
		isFixed
	)
	n := Q.SymmetricDim()
	w = make([]float64, n)
	state := make([]int, n)
	for k, i := range fixed {
		state[i], w[i] = isFixed, val[k]
	}
	qmax := 0.0
	for i := 0; i < n; i++ {
		qmax = math.Max(qmax, math.Abs(Q.At(i, i)))
	}
	gtol := 1e-10 * qmax

	for it := 0; it < maxIter; it++ {

		// equality-constrained minimiser over free variables
		var free []int
		for i, s := range state {
			if s == isFree {
				free = append(free, i)
			}
		}
		if len(free) > 0 {
			nf := len(free)
			A := mat.NewSymDense(nf, nil)
			b := mat.NewVecDense(nf, nil)
			for a, i := range free {
				for c := a; c < nf; c++ {
					A.SetSym(a, c, Q.At(i, free[c]))
				}
				s := 0.0
				for j := 0; j < n; j++ {
					if state[j] != isFree {
						s -= Q.At(i, j) * w[j]
					}
				}
				b.SetVec(a, s)
			}
			var chol mat.Cholesky
			if ok := chol.Factorize(A); !ok {
				return nil, chk.Err("biharmonic operator is not positive definite on the free vertices")
			}
			var z mat.VecDense
			if err = chol.SolveVecTo(&z, b); err != nil {
				return nil, err
			}
			for a, i := range free {
				w[i] = z.AtVec(a)
			}
		}

		// activate violated bounds
		added := false
		for _, i := range free {
			if w[i] < -1e-12 {
				state[i], w[i], added = atLower, 0, true
			} else if w[i] > 1+1e-12 {
				state[i], w[i], added = atUpper, 1, true
			}
		}
		if added {
			continue
		}

		// release the active bound with the most negative multiplier
		worst, imax := gtol, -1
		for i, s := range state {
			if s != atLower && s != atUpper {
				continue
			}
			g := 0.0
			for j := 0; j < n; j++ {
				g += Q.At(i, j) * w[j]
			}
			if s == atUpper {
				g = -g
			}
			if -g > worst {
				worst, imax = -g, i
			}
		}
		if imax < 0 {
			for i := range w {
				w[i] = math.Min(math.Max(w[i], 0), 1)
			}
			return
		}
		state[imax] = isFree
	}
	return nil, chk.Err("active set did not converge after %d iterations", maxIter)
}

func dist2(y la.Vector, a, b int) (d float64) {
	for c := 0; c < 3; c++ {
		d += (y[3*a+c] - y[3*b+c]) * (y[3*a+c] - y[3*b+c])
	}
	return
}

func dot(u, v []float64) float64 { return u[0]*v[0] + u[1]*v[1] + u[2]*v[2] }

func cross(u, v []float64) []float64 {
	return []float64{u[1]*v[2] - u[2]*v[1], u[2]*v[0] - u[0]*v[2], u[0]*v[1] - u[1]*v[0]}
}
