// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"
)

// Summary records the convergence history of a nonlinear solve
type Summary struct {
	Nits   []int          // [nsteps] number of Newton iterations at each load step
	Resids utl.SerialList // residuals; one row per load step
	Nfact  int            // number of factorisations of the reduced Jacobian, adjoint solves included
}

// Print prints the residuals of each load step
func (o *Summary) Print() {
	for i := 0; i < len(o.Resids.Ptrs)-1; i++ {
		io.Pf("step %3d :", i+1)
		for j := o.Resids.Ptrs[i]; j < o.Resids.Ptrs[i+1]; j++ {
			io.Pf(" %10.3e", o.Resids.Vals[j])
		}
		io.Pf("\n")
	}
}

// Save saves summary to disc
func (o *Summary) Save(dirout, fnkey, enctype string, verbose bool) (err error) {
	var buf bytes.Buffer
	enc := GetEncoder(&buf, enctype)
	if err = enc.Encode(o); err != nil {
		return chk.Err("cannot encode summary:\n%v", err)
	}
	return saveFile(outSumPath(dirout, fnkey, enctype), &buf, verbose)
}

// ReadSum reads summary back
func ReadSum(dir, fnkey, enctype string) (o *Summary, err error) {
	fil, err := os.Open(outSumPath(dir, fnkey, enctype))
	if err != nil {
		return nil, chk.Err("cannot open summary file:\n%v", err)
	}
	defer fil.Close()
	o = new(Summary)
	if err = GetDecoder(fil, enctype).Decode(o); err != nil {
		return nil, chk.Err("cannot decode summary:\n%v", err)
	}
	return
}

func outSumPath(dir, fnkey, enctype string) string {
	return filepath.Join(dir, io.Sf("%s_sum.%s", fnkey, enctype))
}
