// Package discovery emits Home Assistant MQTT discovery configs for every
// entity this daemon publishes or accepts commands on.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codeberg.org/tekogu/battwatch/internal/broker"
	"codeberg.org/tekogu/battwatch/internal/config"
	"codeberg.org/tekogu/battwatch/internal/logger"
)

const discoveryQoS byte = 1

// Availability is the entity availability block pointing at the status
// topic.
type Availability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available,omitempty"`
	PayloadNotAvailable string `json:"payload_not_available,omitempty"`
}

// Device groups all entities under one device registry entry.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// Entity is the discovery config payload. Range fields are pointers so a
// legitimate zero (threshold min 0) still serializes.
type Entity struct {
	Name                      string         `json:"name"`
	UniqueID                  string         `json:"unique_id"`
	DeviceClass               string         `json:"device_class,omitempty"`
	StateClass                string         `json:"state_class,omitempty"`
	EntityCategory            string         `json:"entity_category,omitempty"`
	UnitOfMeasurement         string         `json:"unit_of_measurement,omitempty"`
	SuggestedDisplayPrecision int            `json:"suggested_display_precision,omitempty"`
	ExpireAfter               int            `json:"expire_after,omitempty"`
	StateTopic                string         `json:"state_topic,omitempty"`
	ValueTemplate             string         `json:"value_template,omitempty"`
	CommandTopic              string         `json:"command_topic,omitempty"`
	CommandTemplate           string         `json:"command_template,omitempty"`
	PayloadOn                 string         `json:"payload_on,omitempty"`
	PayloadOff                string         `json:"payload_off,omitempty"`
	PayloadPress              string         `json:"payload_press,omitempty"`
	Min                       *float64       `json:"min,omitempty"`
	Max                       *float64       `json:"max,omitempty"`
	Step                      *float64       `json:"step,omitempty"`
	Mode                      string         `json:"mode,omitempty"`
	Availability              []Availability `json:"availability,omitempty"`
	Device                    Device         `json:"device"`
}

type fieldDef struct {
	name           string
	pretty         string
	component      string
	unit           string
	deviceClass    string
	entityCategory string
	precision      int
	mode           string
	min, max, step float64
	hasRange       bool
}

// The entity set mirrors the state payload and command table.
var fields = []fieldDef{
	{name: "voltage", pretty: "Voltage", component: "sensor", unit: "V", deviceClass: "voltage", precision: 2},
	{name: "current", pretty: "Current", component: "sensor", unit: "mA", deviceClass: "current", precision: 2},
	{name: "battery_level", pretty: "Battery Level", component: "sensor", unit: "%", deviceClass: "battery"},
	{name: "external_power", pretty: "External Power", component: "binary_sensor", deviceClass: "plug", entityCategory: "diagnostic"},
	{name: "cpu_temperature", pretty: "CPU Temperature", component: "sensor", unit: "°C", deviceClass: "temperature", entityCategory: "diagnostic", precision: 2},
	{name: "cpu_stat", pretty: "CPU Stat", component: "sensor", entityCategory: "diagnostic"},
	{name: "battery_warning_threshold", pretty: "Battery Warning", component: "number", unit: "%", deviceClass: "battery", entityCategory: "diagnostic", mode: "box", min: 0, max: 100, step: 1, hasRange: true},
	{name: "battery_voltage_minimum", pretty: "Battery Voltage Minimum", component: "number", unit: "V", deviceClass: "voltage", entityCategory: "diagnostic", mode: "box", min: 2.5, max: 4.5, step: 0.1, hasRange: true},
	{name: "battery_voltage_maximum", pretty: "Battery Voltage Maximum", component: "number", unit: "V", deviceClass: "voltage", entityCategory: "diagnostic", mode: "box", min: 2.5, max: 4.5, step: 0.1, hasRange: true},
	{name: "report_interval", pretty: "Report Interval", component: "number", unit: "s", entityCategory: "diagnostic", mode: "box", min: 5, max: 300, step: 5, hasRange: true},
	{name: "restart", pretty: "Restart", component: "button", entityCategory: "diagnostic"},
	{name: "shutdown", pretty: "Shutdown", component: "button", entityCategory: "diagnostic"},
}

type announcement struct {
	topic   string
	payload []byte
}

// Publisher periodically re-announces the discovery configuration. Configs
// are retained, but consumers that joined while this device was offline
// only see them on the next announce, so re-publishing is deliberate.
type Publisher struct {
	pub           broker.Publisher
	interval      time.Duration
	announcements []announcement
}

func New(cfg *config.Config, pub broker.Publisher) (*Publisher, error) {
	announcements, err := build(cfg)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		pub:           pub,
		interval:      time.Duration(cfg.HomeAssistant.DiscoveryInterval) * time.Second,
		announcements: announcements,
	}, nil
}

func build(cfg *config.Config) ([]announcement, error) {
	deviceID := "battwatch_" + cfg.Hostname.Name

	device := Device{
		Identifiers:  []string{deviceID},
		Name:         cfg.Hostname.Pretty,
		Manufacturer: "The Red Reactor",
		Model:        "Red Reactor",
	}
	availability := []Availability{{
		Topic:               cfg.StatusTopic(),
		PayloadAvailable:    cfg.Status.Online,
		PayloadNotAvailable: cfg.Status.Offline,
	}}

	announcements := make([]announcement, 0, len(fields))
	for _, f := range fields {
		entity := Entity{
			Name:           f.pretty,
			UniqueID:       deviceID + "_" + f.name,
			DeviceClass:    f.deviceClass,
			EntityCategory: f.entityCategory,
			Availability:   availability,
			Device:         device,
		}

		switch f.component {
		case "sensor":
			entity.StateTopic = cfg.StateTopic()
			entity.ValueTemplate = valueTemplate(f.name)
			entity.StateClass = "measurement"
			entity.UnitOfMeasurement = f.unit
			entity.SuggestedDisplayPrecision = f.precision
			entity.ExpireAfter = cfg.HomeAssistant.ExpireAfter
		case "binary_sensor":
			entity.StateTopic = cfg.StateTopic()
			entity.ValueTemplate = valueTemplate(f.name)
			entity.PayloadOn = "ON"
			entity.PayloadOff = "OFF"
			entity.ExpireAfter = cfg.HomeAssistant.ExpireAfter
		case "number":
			entity.StateTopic = cfg.StateTopic()
			entity.ValueTemplate = valueTemplate(f.name)
			entity.CommandTopic = cfg.CommandTopic(f.name)
			entity.CommandTemplate = "{{ value }}"
			entity.UnitOfMeasurement = f.unit
			entity.Mode = f.mode
			if f.hasRange {
				entity.Min = ref(f.min)
				entity.Max = ref(f.max)
				entity.Step = ref(f.step)
			}
		case "button":
			entity.CommandTopic = cfg.CommandTopic(f.name)
			entity.PayloadPress = "true"
		}

		payload, err := json.Marshal(entity)
		if err != nil {
			return nil, err
		}

		announcements = append(announcements, announcement{
			topic:   fmt.Sprintf("%s/%s/%s_%s/config", cfg.HomeAssistant.Topic, f.component, deviceID, f.name),
			payload: payload,
		})
	}

	return announcements, nil
}

// Announce publishes every entity config, retained. Also invoked from the
// broker's on-connect hook so consumers are reconfigured after every
// reconnect.
func (p *Publisher) Announce() {
	logger.Debug().Int("entities", len(p.announcements)).Msg("Publishing discovery configuration")

	for _, a := range p.announcements {
		if err := p.pub.Publish(a.topic, a.payload, discoveryQoS, true); err != nil {
			logger.Warn().Err(err).Str("topic", a.topic).Msg("Discovery publish skipped")
		}
	}
}

// Run re-announces on the discovery interval until cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Announce()
		}
	}
}

func valueTemplate(field string) string {
	return "{{ value_json." + field + " }}"
}

func ref(v float64) *float64 {
	return &v
}
