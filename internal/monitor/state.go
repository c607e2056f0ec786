package monitor

import "math"

const (
	// Discharge current (mA) above which the battery is supplying the load,
	// meaning external power is gone. Between 0 and this the cell is full
	// and floating; negative current means it is charging.
	dischargeCurrentMA = 10.0

	// Guard band below the configured maximum voltage. The cell never quite
	// reaches the charger's set point, so the usable range tops out slightly
	// below it; a reading above max+guard proves a charger is attached.
	chargeGuardVolts = 0.05

	payloadOn  = "ON"
	payloadOff = "OFF"
)

// State is the per-tick payload published on the state topic. CPU fields
// are pointers so a failed sysfs read publishes null rather than a stale
// number.
type State struct {
	Voltage                 float64  `json:"voltage"`
	Current                 float64  `json:"current"`
	BatteryLevel            int      `json:"battery_level"`
	ExternalPower           string   `json:"external_power"`
	CPUTemperature          *float64 `json:"cpu_temperature"`
	CPUStat                 *int64   `json:"cpu_stat"`
	BatteryWarningThreshold int      `json:"battery_warning_threshold"`
	BatteryVoltageMinimum   float64  `json:"battery_voltage_minimum"`
	BatteryVoltageMaximum   float64  `json:"battery_voltage_maximum"`
	ReportInterval          int      `json:"report_interval"`
}

// BatteryLevel maps a cell voltage onto 0-100% across the usable range
// between the shutdown floor and the full-charge voltage less the guard
// band.
func BatteryLevel(voltage, minimum, maximum float64) int {
	usable := maximum - chargeGuardVolts - minimum
	if usable <= 0 {
		return 0
	}

	level := (voltage - minimum) / usable * 100

	return clamp(int(level), 0, 100)
}

// ExternalPower derives the supply state from the current sign convention:
// anything beyond a small discharge current means the battery alone is
// powering the board.
func ExternalPower(current float64) bool {
	return current <= dischargeCurrentMA
}

func onOff(on bool) string {
	if on {
		return payloadOn
	}

	return payloadOff
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clamp(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}

	if value > maxValue {
		return maxValue
	}

	return value
}
