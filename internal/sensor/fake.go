package sensor

import "sync"

// FakePower is a scripted PowerReader for tests and bench setups without the
// physical sensor. Once the sequence is exhausted the final reading repeats.
type FakePower struct {
	mu       sync.Mutex
	Sequence []Reading
	ErrAt    map[int]error
	Calls    int
}

func (f *FakePower) ReadPower() (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.Calls
	f.Calls++

	if err, ok := f.ErrAt[call]; ok {
		return Reading{}, err
	}

	if len(f.Sequence) == 0 {
		return Reading{}, nil
	}
	if call >= len(f.Sequence) {
		return f.Sequence[len(f.Sequence)-1], nil
	}

	return f.Sequence[call], nil
}

// FakeCPU returns fixed CPU values, or the configured errors.
type FakeCPU struct {
	Temperature float64
	Throttle    int64
	TempErr     error
	ThrottleErr error
}

func (f *FakeCPU) ReadTemperature() (float64, error) {
	if f.TempErr != nil {
		return 0, f.TempErr
	}

	return f.Temperature, nil
}

func (f *FakeCPU) ReadThrottleState() (int64, error) {
	if f.ThrottleErr != nil {
		return 0, f.ThrottleErr
	}

	return f.Throttle, nil
}
