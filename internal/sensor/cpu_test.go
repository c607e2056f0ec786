package sensor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSysfs(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestReadTemperature(t *testing.T) {
	cpu := &CPU{TempPaths: []string{writeSysfs(t, "temp", "48765\n")}}

	temp, err := cpu.ReadTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 48.77, temp, 1e-9, "Expected millidegrees rounded to 2dp")
}

func TestReadTemperatureFallbackPath(t *testing.T) {
	cpu := &CPU{TempPaths: []string{
		filepath.Join(t.TempDir(), "missing"),
		writeSysfs(t, "temp", "51000"),
	}}

	temp, err := cpu.ReadTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 51.0, temp, 1e-9)
}

func TestReadTemperatureAllPathsFail(t *testing.T) {
	cpu := &CPU{TempPaths: []string{filepath.Join(t.TempDir(), "missing")}}

	_, err := cpu.ReadTemperature()
	assert.Error(t, err)
}

func TestReadThrottleState(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
	}{
		{"plain zero", "0\n", 0},
		{"hex prefixed", "0x50005\n", 0x50005},
		{"bare hex digits", "50000", 0x50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := &CPU{ThrottlePaths: []string{writeSysfs(t, "get_throttled", tt.content)}}

			mask, err := cpu.ReadThrottleState()
			require.NoError(t, err)
			assert.Equal(t, tt.want, mask)
		})
	}
}

func TestReadThrottleStateAllPathsFail(t *testing.T) {
	cpu := &CPU{ThrottlePaths: []string{filepath.Join(t.TempDir(), "missing")}}

	_, err := cpu.ReadThrottleState()
	assert.Error(t, err)
}

func TestFakePowerSequence(t *testing.T) {
	fake := &FakePower{Sequence: []Reading{
		{Voltage: 4.0, Current: 100},
		{Voltage: 3.5, Current: 200},
	}}

	first, err := fake.ReadPower()
	require.NoError(t, err)
	assert.InDelta(t, 4.0, first.Voltage, 1e-9)

	second, err := fake.ReadPower()
	require.NoError(t, err)
	assert.InDelta(t, 3.5, second.Voltage, 1e-9)

	// The final reading repeats once the sequence is exhausted.
	third, err := fake.ReadPower()
	require.NoError(t, err)
	assert.InDelta(t, 3.5, third.Voltage, 1e-9)
	assert.Equal(t, 3, fake.Calls)
}
