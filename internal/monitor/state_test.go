package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatteryLevel(t *testing.T) {
	// Default pack: usable range 2.7V to 4.15V.
	assert.Equal(t, 100, BatteryLevel(4.2, 2.7, 4.2), "Expected full at maximum voltage")
	assert.Equal(t, 100, BatteryLevel(4.15, 2.7, 4.2), "Expected full at top of usable range")
	assert.Equal(t, 0, BatteryLevel(2.7, 2.7, 4.2), "Expected empty at minimum voltage")
	assert.Equal(t, 0, BatteryLevel(2.5, 2.7, 4.2), "Expected clamp below minimum")

	// The fraction truncates toward zero, matching the integer percent
	// display. The exact midpoint lands just under 50 in float64.
	assert.Equal(t, 49, BatteryLevel(3.425, 2.7, 4.2))
	assert.Equal(t, 37, BatteryLevel(3.25, 2.7, 4.2))
}

func TestBatteryLevelDegenerateRange(t *testing.T) {
	// A range narrower than the guard band has no usable capacity.
	assert.Equal(t, 0, BatteryLevel(4.0, 4.0, 4.0))
	assert.Equal(t, 0, BatteryLevel(4.0, 4.18, 4.2))
}

func TestExternalPower(t *testing.T) {
	assert.False(t, ExternalPower(500), "Expected discharging on battery")
	assert.False(t, ExternalPower(10.1), "Expected discharging just above the float band")
	assert.True(t, ExternalPower(10), "Expected powered at the float band edge")
	assert.True(t, ExternalPower(3), "Expected powered while floating")
	assert.True(t, ExternalPower(0), "Expected powered at zero current")
	assert.True(t, ExternalPower(-800), "Expected powered while charging")
}

func TestOnOff(t *testing.T) {
	assert.Equal(t, "ON", onOff(true))
	assert.Equal(t, "OFF", onOff(false))
}

func TestRounding(t *testing.T) {
	assert.InDelta(t, 3.142, round3(3.14159), 1e-9)
	assert.InDelta(t, 3.1416, round4(3.14159), 1e-9)
	assert.InDelta(t, -12.3457, round4(-12.34567), 1e-9)
}
