package sensor

import (
	"os/exec"
	"strconv"
	"strings"

	"codeberg.org/tekogu/battwatch/internal/errors"
)

// INA219 defaults for the Red Reactor board: bus 1, address 0x40, 50 mOhm
// shunt.
const (
	DefaultI2CBus     = "1"
	DefaultI2CAddress = "0x40"

	regShuntVoltage = "0x01"
	regBusVoltage   = "0x02"

	shuntOhms       = 0.05
	busVoltsPerBit  = 0.004 // bus register LSB after the 3-bit shift
	shuntMilliVolts = 0.01  // shunt register LSB in mV
)

// INA219 reads battery voltage and current through i2c-tools. Current is
// derived from the shunt voltage directly, so no calibration register write
// is needed. Positive current means the battery is discharging.
type INA219 struct {
	Bus     string
	Address string
}

// NewINA219 probes the sensor once so a missing or miswired board fails at
// startup instead of on the first tick.
func NewINA219(bus, address string) (*INA219, error) {
	d := &INA219{Bus: bus, Address: address}
	if _, err := d.ReadPower(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *INA219) ReadPower() (Reading, error) {
	busRaw, err := d.readWord(regBusVoltage)
	if err != nil {
		return Reading{}, err
	}
	shuntRaw, err := d.readWord(regShuntVoltage)
	if err != nil {
		return Reading{}, err
	}

	return Reading{
		Voltage: float64(busRaw>>3) * busVoltsPerBit,
		Current: float64(int16(shuntRaw)) * shuntMilliVolts / shuntOhms,
	}, nil
}

// readWord reads a 16-bit register via i2cget. SMBus word reads are
// little-endian while the INA219 registers are big-endian, so the bytes
// are swapped.
func (d *INA219) readWord(reg string) (uint16, error) {
	errFactory := errors.New()

	out, err := exec.Command("i2cget", "-y", d.Bus, d.Address, reg, "w").Output()
	if err != nil {
		return 0, errFactory.WithData(errors.ErrSensorRead, err.Error())
	}

	text := strings.TrimPrefix(strings.TrimSpace(string(out)), "0x")
	word, err := strconv.ParseUint(text, 16, 16)
	if err != nil {
		return 0, errFactory.WithData(errors.ErrSensorRead, string(out))
	}

	return uint16(word<<8 | word>>8), nil
}
