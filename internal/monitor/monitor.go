// Package monitor drives the periodic sample-derive-publish cycle and owns
// the autonomous safe-shutdown policy.
package monitor

import (
	"context"
	"encoding/json"
	"time"

	"codeberg.org/tekogu/battwatch/internal/broker"
	"codeberg.org/tekogu/battwatch/internal/config"
	"codeberg.org/tekogu/battwatch/internal/logger"
	"codeberg.org/tekogu/battwatch/internal/sensor"
	"codeberg.org/tekogu/battwatch/internal/sysaction"
)

const stateQoS byte = 1

type Monitor struct {
	settings *config.SettingsStore
	power    sensor.PowerReader
	cpu      sensor.CPUReader
	pub      broker.Publisher
	actions  sysaction.Actions
	latch    *sysaction.ShutdownLatch

	stateTopic     string
	statusTopic    string
	offlinePayload string

	// Assume external power at startup; the first reading corrects it
	// before any shutdown decision can fire.
	externalPower bool
}

func New(
	cfg *config.Config,
	settings *config.SettingsStore,
	power sensor.PowerReader,
	cpu sensor.CPUReader,
	pub broker.Publisher,
	actions sysaction.Actions,
	latch *sysaction.ShutdownLatch,
) *Monitor {
	return &Monitor{
		settings:       settings,
		power:          power,
		cpu:            cpu,
		pub:            pub,
		actions:        actions,
		latch:          latch,
		stateTopic:     cfg.StateTopic(),
		statusTopic:    cfg.StatusTopic(),
		offlinePayload: cfg.Status.Offline,
		externalPower:  true,
	}
}

// Run ticks every report_interval seconds until the context is cancelled or
// a shutdown has been issued. Interval changes from the command handler are
// re-armed at the top of the following tick.
func (m *Monitor) Run(ctx context.Context) error {
	interval := m.settings.Snapshot().ReportInterval
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	logger.Info().Int("report_interval", interval).Msg("Battery monitor started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snapshot := m.settings.Snapshot()
			if snapshot.ReportInterval != interval {
				interval = snapshot.ReportInterval
				ticker.Reset(time.Duration(interval) * time.Second)
				logger.Debug().Int("report_interval", interval).Msg("Report timer re-armed")
			}

			if m.Tick(snapshot) {
				logger.Info().Msg("Shutdown in progress, monitoring halted")
				return nil
			}
		}
	}
}

// Tick performs one sample-derive-publish cycle against a single settings
// snapshot. It returns true once a shutdown has been issued, which stops
// the loop.
func (m *Monitor) Tick(s config.Settings) bool {
	reading, err := m.power.ReadPower()
	if err != nil {
		// Assume the worst: a sensor that stops answering usually means the
		// supply is collapsing, so treat the board as running on battery.
		m.externalPower = false
		logger.Warn().Err(err).Msg("Battery sensor read failed, skipping tick")
		return false
	}

	m.externalPower = ExternalPower(reading.Current)
	if reading.Voltage > s.BatteryVoltageMaximum+chargeGuardVolts {
		// Only an attached charger can push the cell above its maximum.
		m.externalPower = true
	}

	level := BatteryLevel(reading.Voltage, s.BatteryVoltageMinimum, s.BatteryVoltageMaximum)

	state := State{
		Voltage:                 round3(reading.Voltage),
		Current:                 round4(reading.Current),
		BatteryLevel:            level,
		ExternalPower:           onOff(m.externalPower),
		BatteryWarningThreshold: s.BatteryWarningThreshold,
		BatteryVoltageMinimum:   s.BatteryVoltageMinimum,
		BatteryVoltageMaximum:   s.BatteryVoltageMaximum,
		ReportInterval:          s.ReportInterval,
	}

	if temp, err := m.cpu.ReadTemperature(); err != nil {
		logger.Warn().Err(err).Msg("CPU temperature read failed")
	} else {
		state.CPUTemperature = &temp
	}
	if stat, err := m.cpu.ReadThrottleState(); err != nil {
		logger.Warn().Err(err).Msg("CPU throttle state read failed")
	} else {
		state.CPUStat = &stat
	}

	m.publishState(state)

	critical := !m.externalPower &&
		(level <= s.BatteryWarningThreshold || reading.Voltage <= s.BatteryVoltageMinimum)
	if !critical {
		return false
	}

	if m.latch.TryAcquire() {
		logger.Warn().
			Float64("voltage", state.Voltage).
			Int("battery_level", level).
			Msg("Battery critical, forcing system shutdown")

		if err := m.pub.Publish(m.statusTopic, []byte(m.offlinePayload), stateQoS, true); err != nil {
			logger.Debug().Err(err).Msg("Offline status publish skipped")
		}
		if err := m.actions.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("System shutdown command failed")
		}
	}

	return true
}

func (m *Monitor) publishState(state State) {
	payload, err := json.Marshal(state)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to encode state payload")
		return
	}

	// Not retained: state must never replay stale to new subscribers.
	if err := m.pub.Publish(m.stateTopic, payload, stateQoS, false); err != nil {
		logger.Debug().Err(err).Msg("State publish skipped, broker not connected")
	}
}
