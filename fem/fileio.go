// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	goio "io"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"
)

// Encoder defines encoders; e.g. gob or json
type Encoder interface {
	Encode(e interface{}) error
}

// Decoder defines decoders; e.g. gob or json
type Decoder interface {
	Decode(e interface{}) error
}

// GetEncoder returns a new encoder
func GetEncoder(w goio.Writer, enctype string) Encoder {
	if enctype == "json" {
		return json.NewEncoder(w)
	}
	return gob.NewEncoder(w)
}

// GetDecoder returns a new decoder
func GetDecoder(r goio.Reader, enctype string) Decoder {
	if enctype == "json" {
		return json.NewDecoder(r)
	}
	return gob.NewDecoder(r)
}

// SaveSol saves the displacements of the last solve and the load factors of all kept steps
func (o *Domain) SaveSol(verbose bool) (err error) {
	if !o.Solved {
		return chk.Err("cannot save solution: domain has not been solved yet")
	}

	// buffer and encoder
	var buf bytes.Buffer
	enc := GetEncoder(&buf, o.Sim.Data.Encoder)

	// encode solution
	if err = enc.Encode(o.Nsteps()); err != nil {
		return chk.Err("cannot encode number of steps:\n%v", err)
	}
	if err = enc.Encode([]float64(o.last)); err != nil {
		return chk.Err("cannot encode displacements:\n%v", err)
	}

	// save file
	fn := outSolPath(o.Sim.Data.DirOut, o.Sim.Key, o.Sim.Data.Encoder)
	return saveFile(fn, &buf, verbose)
}

// ReadSol reads the displacements saved by SaveSol and marks the domain as solved
func (o *Domain) ReadSol(dir, fnkey string) (err error) {

	// open file
	fn := outSolPath(dir, fnkey, o.Sim.Data.Encoder)
	fil, err := os.Open(fn)
	if err != nil {
		return chk.Err("cannot open solution file:\n%v", err)
	}
	defer func() {
		if e := fil.Close(); err == nil {
			err = e
		}
	}()

	// decode solution
	dec := GetDecoder(fil, o.Sim.Data.Encoder)
	var nsteps int
	var u []float64
	if err = dec.Decode(&nsteps); err != nil {
		return chk.Err("cannot decode number of steps:\n%v", err)
	}
	if err = dec.Decode(&u); err != nil {
		return chk.Err("cannot decode displacements:\n%v", err)
	}
	if len(u) != o.Ndof() {
		return chk.Err("solution in file has %d dofs but domain has %d", len(u), o.Ndof())
	}
	o.last = la.NewVectorSlice(u)
	o.Solved = true
	return
}

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

func outSolPath(dir, fnkey, enctype string) string {
	return filepath.Join(dir, io.Sf("%s_sol.%s", fnkey, enctype))
}

func saveFile(filename string, buf *bytes.Buffer, verbose bool) (err error) {
	if err = os.MkdirAll(filepath.Dir(filename), 0777); err != nil {
		return chk.Err("cannot create output directory:\n%v", err)
	}
	fil, err := os.Create(filename)
	if err != nil {
		return
	}
	defer func() {
		if e := fil.Close(); err == nil {
			err = e
		}
	}()
	_, err = fil.Write(buf.Bytes())
	if verbose {
		io.Pfblue2("file <%s> written\n", filename)
	}
	return
}
