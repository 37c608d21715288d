// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"testing"

	"github.com/WangweiYDYK/polyfem/inp"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func init() {
	io.Verbose = false
}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// newTestDomain decodes simulation data and allocates a domain
func newTestDomain(tst *testing.T, simjson string) *Domain {
	sim, err := inp.NewSimulation([]byte(simjson), ".")
	if err != nil {
		tst.Fatalf("NewSimulation failed:\n%v", err)
	}
	dom, err := NewDomain(sim)
	if err != nil {
		tst.Fatalf("NewDomain failed:\n%v", err)
	}
	return dom
}
