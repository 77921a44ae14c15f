/*
Package fupsim provides the evaluation engine of a function block diagram (FBD,
or FUP in german PLC parlance) simulator.

A simulation is made of one or more networks of logic gates connected by wires.
Gate ports can also be bound to named boolean variables held in a Store shared
by all networks: this is the only way networks interact with each other and
with the outside world (dashboards, input switches).

Supported gates are AND, OR, XOR, = (assign), SR and RS latches, TON and TOF
timers, and FP/FN edge detectors. Every port of every gate can be negated.

The simulation loop (Sim.Run) evaluates every gate of every network once per
tick, in insertion order. This is a single pass: it does not sort gates in
dependency order and does not iterate to a fixed point. A gate reading a wire
fed by a gate evaluated later in the same tick sees that gate's output from the
previous tick.

A simple network with a self-holding latch could be built like this:

	sim := fupsim.NewSim(200*time.Millisecond)
	net := sim.CreateNetwork("")
	if _, err := sim.Place(net, fupsim.SR, fupsim.Point{}, "s=I1, r=I2, q=Q1"); err != nil {
		log.Fatal(err)
	}
	sim.SetInputVariableValue("I1", true)
	sim.Tick()
	fmt.Println(sim.VariableValue("Q1")) // true
*/
package fupsim
