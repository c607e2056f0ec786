package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/tekogu/battwatch/internal/errors"
	"codeberg.org/tekogu/battwatch/internal/logger"
)

const (
	DefaultBatteryWarningThreshold = 10
	DefaultBatteryVoltageMinimum   = 2.7
	DefaultBatteryVoltageMaximum   = 4.2
	DefaultReportInterval          = 30
)

// Settings is the runtime-mutable part of the configuration. The monitor
// loop reads it every tick and the command handler mutates it; both go
// through SettingsStore so a tick always observes a complete snapshot.
type Settings struct {
	BatteryWarningThreshold int     `json:"battery_warning_threshold"`
	BatteryVoltageMinimum   float64 `json:"battery_voltage_minimum"`
	BatteryVoltageMaximum   float64 `json:"battery_voltage_maximum"`
	ReportInterval          int     `json:"report_interval"`
}

// DefaultSettings returns the factory settings for the Red Reactor cell pack.
func DefaultSettings() Settings {
	return Settings{
		BatteryWarningThreshold: DefaultBatteryWarningThreshold,
		BatteryVoltageMinimum:   DefaultBatteryVoltageMinimum,
		BatteryVoltageMaximum:   DefaultBatteryVoltageMaximum,
		ReportInterval:          DefaultReportInterval,
	}
}

// SettingsStore guards the Settings snapshot with a single mutex and
// persists accepted mutations to a JSON sidecar file. The lock is held only
// for the field copy, never across file I/O.
type SettingsStore struct {
	mu       sync.Mutex
	settings Settings
	path     string
}

// LoadSettings reads the settings sidecar file, merging it over defaults.
// A missing file is created with defaults so the first mutation has a file
// to update.
func LoadSettings(path string) (*SettingsStore, error) {
	errFactory := errors.New()

	store := &SettingsStore{
		settings: DefaultSettings(),
		path:     path,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errFactory.Wrap(errors.ErrSettingsIO, err)
		}
		if err := store.persist(store.settings); err != nil {
			return nil, err
		}

		return store, nil
	}

	if err := json.Unmarshal(raw, &store.settings); err != nil {
		return nil, errFactory.Wrap(errors.ErrSettingsIO, err)
	}
	if err := store.settings.validate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s Settings) validate() error {
	errFactory := errors.New()

	if s.BatteryWarningThreshold < 0 || s.BatteryWarningThreshold > 100 {
		return errFactory.WithData(errors.ErrInvalidThreshold, s.BatteryWarningThreshold)
	}
	if s.BatteryVoltageMinimum >= s.BatteryVoltageMaximum {
		return errFactory.WithData(errors.ErrInvalidVoltage, s)
	}
	if s.ReportInterval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, s.ReportInterval)
	}

	return nil
}

// Snapshot returns a copy of the current settings.
func (st *SettingsStore) Snapshot() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.settings
}

// SetWarningThreshold updates the battery warning threshold percentage.
func (st *SettingsStore) SetWarningThreshold(value int) error {
	errFactory := errors.New()

	if value < 0 || value > 100 {
		return errFactory.WithData(errors.ErrInvalidThreshold, value)
	}

	st.mu.Lock()
	st.settings.BatteryWarningThreshold = value
	snapshot := st.settings
	st.mu.Unlock()

	st.persistLogged(snapshot)

	return nil
}

// SetVoltageMinimum updates the shutdown voltage floor. The new value must
// stay below the configured maximum.
func (st *SettingsStore) SetVoltageMinimum(value float64) error {
	errFactory := errors.New()

	st.mu.Lock()
	if value >= st.settings.BatteryVoltageMaximum {
		st.mu.Unlock()
		return errFactory.WithData(errors.ErrInvalidVoltage, value)
	}
	st.settings.BatteryVoltageMinimum = value
	snapshot := st.settings
	st.mu.Unlock()

	st.persistLogged(snapshot)

	return nil
}

// SetVoltageMaximum updates the full-charge voltage. The new value must stay
// above the configured minimum.
func (st *SettingsStore) SetVoltageMaximum(value float64) error {
	errFactory := errors.New()

	st.mu.Lock()
	if value <= st.settings.BatteryVoltageMinimum {
		st.mu.Unlock()
		return errFactory.WithData(errors.ErrInvalidVoltage, value)
	}
	st.settings.BatteryVoltageMaximum = value
	snapshot := st.settings
	st.mu.Unlock()

	st.persistLogged(snapshot)

	return nil
}

// SetReportInterval updates the publish interval in seconds. The monitor
// loop re-arms its timer with the new period on its next tick.
func (st *SettingsStore) SetReportInterval(value int) error {
	errFactory := errors.New()

	if value <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, value)
	}

	st.mu.Lock()
	st.settings.ReportInterval = value
	snapshot := st.settings
	st.mu.Unlock()

	st.persistLogged(snapshot)

	return nil
}

// persistLogged writes the sidecar file; failures are logged but never roll
// back the in-memory value. Keeping the daemon monitoring matters more than
// the sidecar.
func (st *SettingsStore) persistLogged(snapshot Settings) {
	if err := st.persist(snapshot); err != nil {
		logger.Warn().Err(err).Str("path", st.path).Msg("Failed to persist runtime settings")
	}
}

func (st *SettingsStore) persist(snapshot Settings) error {
	errFactory := errors.New()

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return errFactory.Wrap(errors.ErrSettingsIO, err)
	}

	if dir := filepath.Dir(st.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errFactory.Wrap(errors.ErrSettingsIO, err)
		}
	}
	if err := os.WriteFile(st.path, raw, 0o644); err != nil {
		return errFactory.Wrap(errors.ErrSettingsIO, err)
	}

	return nil
}
