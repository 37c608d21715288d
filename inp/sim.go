// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data read from a (.sim) JSON file
package inp

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

// Data holds global data for simulations
type Data struct {
	Desc           string `json:"desc"`           // description of simulation
	Periodic       bool   `json:"periodic"`       // periodic unit cell: opposite faces share fluctuations
	Differentiable bool   `json:"differentiable"` // keep states of all load steps for adjoint solves
	Nthreads       int    `json:"nthreads"`       // number of goroutines for element loops; 0 => 1
	CheckDerivs    bool   `json:"checkderivs"`    // verify multiscale gradient and hessian by finite differences
	Debug          bool   `json:"debug"`          // activate debugging
	DirOut         string `json:"dirout"`         // directory for output; e.g. /tmp/polyfem
	Encoder        string `json:"encoder"`        // encoder name; e.g. "gob" or "json"

	// derived
	Ndim int // space dimension
}

// LinSolData holds data for linear solvers
type LinSolData struct {
	Name    string `json:"name"`    // "umfpack"
	Verbose bool   `json:"verbose"` // verbose?
}

// SolverData holds FEM solver data
type SolverData struct {
	NmaxIt     int     `json:"nmaxit"`     // number of max iterations
	FbTol      float64 `json:"fbtol"`      // tolerance for convergence on fb, relative to the first residual
	FbMin      float64 `json:"fbmin"`      // minimum value of fb
	Nsteps     int     `json:"nsteps"`     // number of load steps
	LineSearch bool    `json:"linesearch"` // backtracking line search on the energy
	LsMaxIt    int     `json:"lsmaxit"`    // max number of bisections in line search
	ShowR      bool    `json:"showr"`      // show residual
	OffsetFcn  string  `json:"offsetfcn"`  // amplitude of imposed offset (function name); "" => a(λ) = λ
}

// Material holds material data for a group of cells
type Material struct {
	Tag            int         `json:"tag"`            // tag of cells
	Name           string      `json:"name"`           // name of material
	Type           string      `json:"type"`           // formulation; e.g. "NeoHookean" or "Multiscale"
	Prms           utl.Params  `json:"prms"`           // parameters
	Microstructure *Simulation `json:"microstructure"` // unit cell used by "Multiscale"
}

// EssenBc holds essential (Dirichlet) boundary conditions
type EssenBc struct {
	Tag  int       `json:"tag"`  // vertex tag; 0 => use Side
	Side string    `json:"side"` // side of bounding box; e.g. "xmin", "ymax"
	Keys []string  `json:"keys"` // "ux", "uy" or "uz"
	Vals []float64 `json:"vals"` // values at the end of loading
	Func string    `json:"func"` // amplitude (function name); "" => a(λ) = λ
}

// PtLoad holds concentrated loads
type PtLoad struct {
	Tag  int       `json:"tag"`  // vertex tag; 0 => use Side
	Side string    `json:"side"` // side of bounding box; e.g. "xmax"
	Keys []string  `json:"keys"` // "fx", "fy" or "fz"
	Vals []float64 `json:"vals"` // values (per vertex) at the end of loading
	Func string    `json:"func"` // amplitude (function name); "" => a(λ) = λ
}

// Simulation holds all simulation data
type Simulation struct {

	// input
	Data      Data        `json:"data"`      // stores global simulation data
	Mesh      MeshData    `json:"mesh"`      // mesh file or generator
	Functions FuncsData   `json:"functions"` // amplitude functions of the load factor
	Materials []*Material `json:"materials"` // materials
	EssenBcs  []*EssenBc  `json:"essenbcs"`  // essential boundary conditions
	PtLoads   []*PtLoad   `json:"ptloads"`   // point loads
	LinSol    LinSolData  `json:"linsol"`    // linear solver data
	Solver    SolverData  `json:"solver"`    // FEM solver data

	// derived
	Dir string // directory of .sim file; used to resolve relative paths
	Key string // simulation key; e.g. mysim01.sim => mysim01
}

// ReadSim reads all simulation data from a .sim JSON file
func ReadSim(simfilepath string) (o *Simulation, err error) {
	b, err := os.ReadFile(os.ExpandEnv(simfilepath))
	if err != nil {
		return nil, chk.Err("ReadSim: cannot read simulation file %q:\n%v", simfilepath, err)
	}
	o, err = NewSimulation(b, filepath.Dir(simfilepath))
	if err != nil {
		return nil, chk.Err("ReadSim: %q:\n%v", simfilepath, err)
	}
	o.Key = io.FnKey(filepath.Base(simfilepath))
	return
}

// NewSimulation decodes simulation data
//  dir -- directory to resolve relative mesh files
func NewSimulation(b []byte, dir string) (o *Simulation, err error) {
	o = new(Simulation)
	err = json.Unmarshal(b, o)
	if err != nil {
		return nil, chk.Err("cannot unmarshal simulation data:\n%v", err)
	}
	err = o.PostProcess(dir)
	return
}

// SetDefault sets default values
func (o *Simulation) SetDefault() {
	o.Data.Nthreads = 1
	o.Data.Encoder = "gob"
	o.LinSol.SetDefault()
	o.Solver.SetDefault()
}

// PostProcess checks data and sets derived values. Nested microstructures are processed as well
func (o *Simulation) PostProcess(dir string) (err error) {
	o.Dir = dir
	o.Solver.PostProcess()
	if o.Data.Nthreads < 1 {
		o.Data.Nthreads = 1
	}
	if o.Data.Encoder != "gob" && o.Data.Encoder != "json" {
		o.Data.Encoder = "gob"
	}
	if o.Data.DirOut == "" {
		o.Data.DirOut = "/tmp/polyfem"
	}
	if err = o.Functions.check(); err != nil {
		return
	}
	if err = o.Functions.checkRef(o.Solver.OffsetFcn); err != nil {
		return chk.Err("offset:\n%v", err)
	}
	if len(o.Materials) < 1 {
		return chk.Err("at least one material must be given")
	}
	tags := make(map[int]bool)
	for _, mat := range o.Materials {
		if tags[mat.Tag] {
			return chk.Err("material tag %d is repeated", mat.Tag)
		}
		tags[mat.Tag] = true
		if mat.Type == "Multiscale" {
			if mat.Microstructure == nil {
				return chk.Err("material %d: type \"Multiscale\" requires \"microstructure\" data", mat.Tag)
			}
			err = mat.Microstructure.PostProcess(dir)
			if err != nil {
				return chk.Err("material %d: microstructure:\n%v", mat.Tag, err)
			}
			micro := mat.Microstructure
			amp, _ := micro.Functions.Get(micro.Solver.OffsetFcn)
			if math.Abs(amp(1)-1) > 1e-12 {
				return chk.Err("material %d: microstructure: offset amplitude must be 1 at λ = 1. a(1) = %g is invalid", mat.Tag, amp(1))
			}
			mat.Microstructure.Data.Periodic = true
			mat.Microstructure.Data.Differentiable = true
		}
	}
	for _, bc := range o.EssenBcs {
		if len(bc.Keys) != len(bc.Vals) {
			return chk.Err("essential boundary condition: number of keys and values must be equal. %d != %d", len(bc.Keys), len(bc.Vals))
		}
		if err = o.Functions.checkRef(bc.Func); err != nil {
			return chk.Err("essential boundary condition:\n%v", err)
		}
	}
	for _, pl := range o.PtLoads {
		if len(pl.Keys) != len(pl.Vals) {
			return chk.Err("point load: number of keys and values must be equal. %d != %d", len(pl.Keys), len(pl.Vals))
		}
		if err = o.Functions.checkRef(pl.Func); err != nil {
			return chk.Err("point load:\n%v", err)
		}
	}
	return o.Mesh.Check()
}

// UnmarshalJSON decodes simulation data after setting defaults; thus nested
// microstructures get the same defaults as the top level simulation
func (o *Simulation) UnmarshalJSON(b []byte) error {
	type plain Simulation
	o.SetDefault()
	return json.Unmarshal(b, (*plain)(o))
}

// GetMaterial returns the material of cells with given tag
//  Note: returns nil if not found
func (o *Simulation) GetMaterial(tag int) *Material {
	for _, mat := range o.Materials {
		if mat.Tag == tag {
			return mat
		}
	}
	return nil
}

// extra settings //////////////////////////////////////////////////////////////////////////////////

// SetDefault sets defaults values
func (o *LinSolData) SetDefault() {
	o.Name = "umfpack"
}

// SetDefault set defaults values
func (o *SolverData) SetDefault() {
	o.NmaxIt = 20
	o.FbTol = 1e-10
	o.FbMin = 1e-11
	o.Nsteps = 1
	o.LineSearch = true
	o.LsMaxIt = 20
}

// PostProcess performs a post-processing of the just read json file
func (o *SolverData) PostProcess() {
	if o.Nsteps < 1 {
		o.Nsteps = 1
	}
	if o.LsMaxIt < 1 {
		o.LsMaxIt = 1
	}
}
