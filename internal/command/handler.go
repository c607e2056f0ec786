// Package command interprets inbound MQTT command messages: live settings
// mutations and remote restart/shutdown.
package command

import (
	"context"
	"strconv"
	"strings"
	"time"

	"codeberg.org/tekogu/battwatch/internal/broker"
	"codeberg.org/tekogu/battwatch/internal/config"
	"codeberg.org/tekogu/battwatch/internal/logger"
	"codeberg.org/tekogu/battwatch/internal/sysaction"
)

// Command topic suffixes under <base>/<host>/set/.
const (
	SuffixWarningThreshold = "battery_warning_threshold"
	SuffixVoltageMinimum   = "battery_voltage_minimum"
	SuffixVoltageMaximum   = "battery_voltage_maximum"
	SuffixReportInterval   = "report_interval"
	SuffixRestart          = "restart"
	SuffixShutdown         = "shutdown"
)

const (
	defaultQueueSize = 16
	statusQoS        byte = 1

	// Grace period for the offline status to reach the broker before the
	// process is torn down by the OS command.
	defaultFlushDelay = 2 * time.Second
)

// Message is one decoded command from the broker.
type Message struct {
	Suffix  string
	Payload []byte
}

// Handler drains the command queue and applies each message. The broker
// callback only enqueues, so slow handling never blocks the transport.
type Handler struct {
	settings *config.SettingsStore
	actions  sysaction.Actions
	latch    *sysaction.ShutdownLatch
	pub      broker.Publisher

	statusTopic    string
	offlinePayload string
	queue          chan Message

	// FlushDelay is the pause between publishing offline and invoking a
	// restart/shutdown action. Tests set it to zero.
	FlushDelay time.Duration
}

func NewHandler(
	cfg *config.Config,
	settings *config.SettingsStore,
	actions sysaction.Actions,
	latch *sysaction.ShutdownLatch,
	pub broker.Publisher,
) *Handler {
	return &Handler{
		settings:       settings,
		actions:        actions,
		latch:          latch,
		pub:            pub,
		statusTopic:    cfg.StatusTopic(),
		offlinePayload: cfg.Status.Offline,
		queue:          make(chan Message, defaultQueueSize),
		FlushDelay:     defaultFlushDelay,
	}
}

// Enqueue hands a decoded command to the handler without blocking. A full
// queue drops the message; commands are not retried.
func (h *Handler) Enqueue(suffix string, payload []byte) {
	select {
	case h.queue <- Message{Suffix: suffix, Payload: payload}:
	default:
		logger.Warn().Str("command", suffix).Msg("Command queue full, message dropped")
	}
}

// Run drains the queue until the context is cancelled.
func (h *Handler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.queue:
			h.Handle(msg)
		}
	}
}

// Handle applies a single command message. Malformed payloads are logged
// and dropped; they never mutate settings or crash the loop.
func (h *Handler) Handle(msg Message) {
	payload := strings.TrimSpace(string(msg.Payload))

	switch msg.Suffix {
	case SuffixWarningThreshold:
		value, err := strconv.Atoi(payload)
		if err != nil {
			logger.Warn().Str("payload", payload).Msg("Invalid battery warning threshold payload")
			return
		}
		if err := h.settings.SetWarningThreshold(value); err != nil {
			logger.Warn().Err(err).Msg("Rejected battery warning threshold")
			return
		}
		logger.Info().Int("battery_warning_threshold", value).Msg("Battery warning threshold updated")

	case SuffixVoltageMinimum:
		value, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			logger.Warn().Str("payload", payload).Msg("Invalid battery voltage minimum payload")
			return
		}
		if err := h.settings.SetVoltageMinimum(value); err != nil {
			logger.Warn().Err(err).Msg("Rejected battery voltage minimum")
			return
		}
		logger.Info().Float64("battery_voltage_minimum", value).Msg("Battery voltage minimum updated")

	case SuffixVoltageMaximum:
		value, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			logger.Warn().Str("payload", payload).Msg("Invalid battery voltage maximum payload")
			return
		}
		if err := h.settings.SetVoltageMaximum(value); err != nil {
			logger.Warn().Err(err).Msg("Rejected battery voltage maximum")
			return
		}
		logger.Info().Float64("battery_voltage_maximum", value).Msg("Battery voltage maximum updated")

	case SuffixReportInterval:
		value, err := strconv.Atoi(payload)
		if err != nil {
			logger.Warn().Str("payload", payload).Msg("Invalid report interval payload")
			return
		}
		if err := h.settings.SetReportInterval(value); err != nil {
			logger.Warn().Err(err).Msg("Rejected report interval")
			return
		}
		logger.Info().Int("report_interval", value).Msg("Report interval updated")

	case SuffixRestart:
		logger.Info().Msg("Device restart requested")
		h.goOffline()
		if err := h.actions.Restart(); err != nil {
			logger.Error().Err(err).Msg("System restart command failed")
		}

	case SuffixShutdown:
		if !h.latch.TryAcquire() {
			logger.Debug().Msg("Shutdown already in progress")
			return
		}
		logger.Info().Msg("Device shutdown requested")
		h.goOffline()
		if err := h.actions.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("System shutdown command failed")
		}

	default:
		logger.Debug().Str("command", msg.Suffix).Msg("Ignoring unknown command")
	}
}

func (h *Handler) goOffline() {
	if err := h.pub.Publish(h.statusTopic, []byte(h.offlinePayload), statusQoS, true); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish offline status")
	}
	if h.FlushDelay > 0 {
		time.Sleep(h.FlushDelay)
	}
}
