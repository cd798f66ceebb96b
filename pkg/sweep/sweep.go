// Package sweep drives parameter sweeps over device circuits and turns
// shot memory into expectation values.
//
// A sweep is an ordered sequence of scalar parameter values (angles or
// evolution times). For each value a [Sequence] builds one fixed-shape
// circuit; the runner submits it, waits for the shots, and [Extract]
// reduces the returned memory to per-wire spin expectation values. The
// resulting series are index-aligned with the sweep points and are written
// once, in order, never mutated afterwards.
package sweep

import "fmt"

// Linspace returns n evenly spaced values from start to stop inclusive.
// n == 1 returns just start. n <= 0 returns nil.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	points := make([]float64, n)
	if n == 1 {
		points[0] = start
		return points
	}
	step := (stop - start) / float64(n-1)
	for i := range points {
		points[i] = start + float64(i)*step
	}
	// Pin the endpoint so accumulated float error never leaks into the axis.
	points[n-1] = stop
	return points
}

// SeriesKey names the observable series for a measured wire, e.g. "lz_0".
func SeriesKey(wire int) string {
	return fmt.Sprintf("lz_%d", wire)
}
