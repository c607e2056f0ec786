package sensor

import (
	"math"
	"os"
	"strconv"
	"strings"

	"codeberg.org/tekogu/battwatch/internal/errors"
)

// Default sysfs locations on Raspberry Pi OS. Later kernels moved the
// firmware throttle export, so each read walks the list in order.
var (
	defaultTempPaths = []string{
		"/sys/class/thermal/thermal_zone0/temp",
		"/sys/devices/virtual/thermal/thermal_zone0/temp",
	}
	defaultThrottlePaths = []string{
		"/sys/devices/platform/soc/soc:firmware/get_throttled",
		"/sys/devices/platform/scb/soc:firmware/get_throttled",
	}
)

// CPU reads temperature and throttle state from sysfs.
type CPU struct {
	TempPaths     []string
	ThrottlePaths []string
}

// NewCPU returns a CPU reader using the standard Raspberry Pi sysfs paths.
func NewCPU() *CPU {
	return &CPU{
		TempPaths:     defaultTempPaths,
		ThrottlePaths: defaultThrottlePaths,
	}
}

// ReadTemperature returns the CPU temperature in degrees Celsius, rounded
// to two decimals. The sysfs file holds millidegrees.
func (c *CPU) ReadTemperature() (float64, error) {
	errFactory := errors.New()

	for _, path := range c.TempPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		milli, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil {
			continue
		}

		return math.Round(float64(milli)/10) / 100, nil
	}

	return 0, errFactory.New(errors.ErrCPUTemp)
}

// ReadThrottleState returns the firmware throttle bitmask. The firmware
// exports the value as bare hex digits.
func (c *CPU) ReadThrottleState() (int64, error) {
	errFactory := errors.New()

	for _, path := range c.ThrottlePaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x"))
		mask, err := strconv.ParseInt(text, 16, 64)
		if err != nil {
			continue
		}

		return mask, nil
	}

	return 0, errFactory.New(errors.ErrCPUThrottle)
}
