package circuit

// Gate constructors for the cold-atom qudit vocabulary. Each wire holds a
// collective spin of length N/2 realized by N atoms in two internal states;
// the rotation gates act on that spin and the two-wire gates couple the
// spins of two species.

// Load prepares a wire with n atoms, fixing its spin length to n/2.
func Load(wire int, n int) Instruction {
	return Instruction{Name: "load", Wires: []int{wire}, Params: []float64{float64(n)}}
}

// RLX rotates the collective spin around the x axis by theta.
func RLX(wire int, theta float64) Instruction {
	return Instruction{Name: "rlx", Wires: []int{wire}, Params: []float64{theta}}
}

// RLZ rotates the collective spin around the z axis by phi.
func RLZ(wire int, phi float64) Instruction {
	return Instruction{Name: "rlz", Wires: []int{wire}, Params: []float64{phi}}
}

// RLZ2 applies the one-axis-twisting evolution exp(-i chi Lz^2) on a wire.
func RLZ2(wire int, chi float64) Instruction {
	return Instruction{Name: "rlz2", Wires: []int{wire}, Params: []float64{chi}}
}

// LZLZ couples two wires with an Lz⊗Lz interaction of strength gamma.
func LZLZ(a, b int, gamma float64) Instruction {
	return Instruction{Name: "lzlz", Wires: []int{a, b}, Params: []float64{gamma}}
}

// LXLY couples two wires with the spin-changing-collision term
// (Lx⊗Lx + Ly⊗Ly) of strength gamma.
func LXLY(a, b int, gamma float64) Instruction {
	return Instruction{Name: "lxly", Wires: []int{a, b}, Params: []float64{gamma}}
}

// Barrier separates instruction groups on the given wires. It carries no
// parameters and has no effect on the state.
func Barrier(wires ...int) Instruction {
	return Instruction{Name: "barrier", Wires: wires}
}

// Measure reads out the atom number on a wire.
func Measure(wire int) Instruction {
	return Instruction{Name: "measure", Wires: []int{wire}}
}
