package sensor

// Reading is a single sample from the battery power sensor. Voltage is in
// volts, current in milliamps with the Red Reactor sign convention: positive
// current discharges the battery, negative current charges it.
type Reading struct {
	Voltage float64
	Current float64
}

// PowerReader is the boundary to the battery sensor driver. Reads are
// synchronous and may fail transiently.
type PowerReader interface {
	ReadPower() (Reading, error)
}

// CPUReader exposes the host CPU health values included in the state
// payload.
type CPUReader interface {
	ReadTemperature() (float64, error)
	ReadThrottleState() (int64, error)
}
