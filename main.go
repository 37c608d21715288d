// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/WangweiYDYK/polyfem/fem"
	_ "github.com/WangweiYDYK/polyfem/homog" // "Multiscale" materials

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			chk.Verbose = true
			for i := 8; i > 3; i-- {
				chk.CallerInfo(i)
			}
			io.PfRed("ERROR: %v\n", err)
		}
	}()

	// read input parameters
	fnamepath, _ := io.ArgToFilename(0, "", ".sim", true)
	verbose := io.ArgToBool(1, true)
	saveResults := io.ArgToBool(2, true)
	vonMises := io.ArgToBool(3, false)

	// message
	if verbose {
		io.PfWhite("\npolyfem -- multiscale hyperelasticity and adjoint sensitivities\n\n")
		io.Pf("Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.\n")
		io.Pf("Use of this source code is governed by a BSD-style\n")
		io.Pf("license that can be found in the LICENSE file.\n\n")

		io.Pf("\n%v\n", io.ArgsTable("INPUT ARGUMENTS",
			"filename path", "fnamepath", fnamepath,
			"show messages", "verbose", verbose,
			"save results", "saveResults", saveResults,
			"report von Mises stresses", "vonMises", vonMises,
		))
	}

	// analysis data
	analysis, err := fem.NewFEM(fnamepath, verbose)
	if err != nil {
		chk.Panic("NewFEM failed:\n%v", err)
	}

	// run simulation
	if err = analysis.Run(saveResults); err != nil {
		chk.Panic("Run failed:\n%v", err)
	}

	// report
	if vonMises {
		vm, err := analysis.VonMises()
		if err != nil {
			chk.Panic("VonMises failed:\n%v", err)
		}
		io.Pf("\n%6s %23s\n", "cell", "von Mises")
		for i, e := range analysis.Domain.Elems {
			io.Pf("%6d %23g\n", e.Cell.ID, vm[i])
		}
	}
}
