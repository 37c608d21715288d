// Copyright 2015 Dorival Pedroso and Raul Durand. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fem

import (
	"golang.org/x/sync/errgroup"
)

// ParallelFor splits [0, n) into nthreads contiguous chunks and runs fcn on each chunk in its own goroutine
//  tid -- goroutine index in [0, nthreads); use it to select a private buffer
//  Note: the first error is returned after all goroutines finish
func ParallelFor(nthreads, n int, fcn func(tid, start, end int) error) error {
	if nthreads < 1 {
		nthreads = 1
	}
	if nthreads > n {
		nthreads = n
	}
	if nthreads <= 1 {
		if n < 1 {
			return nil
		}
		return fcn(0, 0, n)
	}
	var g errgroup.Group
	size := (n + nthreads - 1) / nthreads
	for tid := 0; tid < nthreads; tid++ {
		start, end := tid*size, (tid+1)*size
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		tid := tid
		g.Go(func() error {
			return fcn(tid, start, end)
		})
	}
	return g.Wait()
}
