package sweep

import (
	"fmt"
	"math"
)

// PointResult holds the expectation values extracted at one sweep point.
// Keys are series names from SeriesKey.
type PointResult struct {
	Values map[string]float64
	StdErr map[string]float64
}

// Extract reduces shot memory to spin-z expectation values for the wires a
// sequence measures. Each memory row is one shot, each column the measured
// occupation of one wire in series order. For a wire loaded with N atoms
// the observable is Lz = n - N/2, the projection of a collective spin of
// length N/2.
func Extract(seq Sequence, memory [][]float64) (PointResult, error) {
	wires := seq.MeasuredWires()
	if len(memory) == 0 {
		return PointResult{}, fmt.Errorf("no shots in memory")
	}

	res := PointResult{
		Values: make(map[string]float64, len(wires)),
		StdErr: make(map[string]float64, len(wires)),
	}

	for col, wire := range wires {
		mean, stderr, err := columnStats(memory, col)
		if err != nil {
			return PointResult{}, fmt.Errorf("wire %d: %w", wire, err)
		}
		offset := float64(seq.Atoms(wire)) / 2
		res.Values[SeriesKey(wire)] = mean - offset
		res.StdErr[SeriesKey(wire)] = stderr
	}
	return res, nil
}

// columnStats returns the mean and standard error of one memory column.
func columnStats(memory [][]float64, col int) (mean, stderr float64, err error) {
	n := float64(len(memory))
	var sum float64
	for i, row := range memory {
		if col >= len(row) {
			return 0, 0, fmt.Errorf("shot %d has %d entries, need column %d", i, len(row), col)
		}
		sum += row[col]
	}
	mean = sum / n

	if len(memory) < 2 {
		return mean, 0, nil
	}

	var sq float64
	for _, row := range memory {
		d := row[col] - mean
		sq += d * d
	}
	variance := sq / (n - 1)
	stderr = math.Sqrt(variance / n)
	return mean, stderr, nil
}
