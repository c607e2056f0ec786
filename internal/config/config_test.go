package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/tekogu/battwatch/internal/config"
)

func pinArgs(t *testing.T, args ...string) {
	t.Helper()

	saved := os.Args
	os.Args = append([]string{"battwatch"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestLoad(t *testing.T) {
	pinArgs(t)

	configContent := []byte(`
mqtt:
  broker: broker.lan
  port: 8883
  username: batt
  password: secret
  client_id: battwatch-test
  base_topic: power
  keepalive: 30
  exit_on_fail: false
hostname:
  name: pi4
  pretty: Living Room Pi
homeassistant:
  discovery: true
  topic: ha
  discovery_interval: 60
  expire_after: 90
status:
  online: up
  offline: down
system:
  shutdown: /sbin/poweroff
  restart: /sbin/reboot
settings_file: /tmp/battwatch-settings.json
`)
	configPath := filepath.Join(t.TempDir(), "battwatch.yaml")
	require.NoError(t, os.WriteFile(configPath, configContent, 0o600))
	t.Setenv("BATTWATCH_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "broker.lan", cfg.MQTT.Broker)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.Equal(t, "batt", cfg.MQTT.Username)
	assert.Equal(t, "secret", cfg.MQTT.Password)
	assert.Equal(t, "battwatch-test", cfg.MQTT.ClientID)
	assert.Equal(t, "power", cfg.MQTT.BaseTopic)
	assert.Equal(t, 30, cfg.MQTT.Keepalive)
	assert.False(t, cfg.MQTT.ExitOnFail)
	assert.Equal(t, "pi4", cfg.Hostname.Name)
	assert.Equal(t, "Living Room Pi", cfg.Hostname.Pretty)
	assert.True(t, cfg.HomeAssistant.Discovery)
	assert.Equal(t, "ha", cfg.HomeAssistant.Topic)
	assert.Equal(t, 60, cfg.HomeAssistant.DiscoveryInterval)
	assert.Equal(t, 90, cfg.HomeAssistant.ExpireAfter)
	assert.Equal(t, "up", cfg.Status.Online)
	assert.Equal(t, "down", cfg.Status.Offline)
	assert.Equal(t, "/sbin/poweroff", cfg.System.Shutdown)
	assert.Equal(t, "/sbin/reboot", cfg.System.Restart)
	assert.Equal(t, "/tmp/battwatch-settings.json", cfg.SettingsFile)
}

func TestLoadDefaults(t *testing.T) {
	pinArgs(t)
	t.Setenv("BATTWATCH_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	host, _ := os.Hostname()

	assert.Equal(t, "127.0.0.1", cfg.MQTT.Broker)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "battwatch", cfg.MQTT.ClientID)
	assert.Equal(t, "battwatch", cfg.MQTT.BaseTopic)
	assert.Equal(t, 60, cfg.MQTT.Keepalive)
	assert.True(t, cfg.MQTT.ExitOnFail)
	assert.Equal(t, host, cfg.Hostname.Name)
	assert.True(t, cfg.HomeAssistant.Discovery)
	assert.Equal(t, "homeassistant", cfg.HomeAssistant.Topic)
	assert.Equal(t, 120, cfg.HomeAssistant.DiscoveryInterval)
	assert.Equal(t, "online", cfg.Status.Online)
	assert.Equal(t, "offline", cfg.Status.Offline)
	assert.Equal(t, "sudo shutdown -h now", cfg.System.Shutdown)
	assert.Equal(t, "sudo shutdown -r now", cfg.System.Restart)
	assert.Equal(t, "/var/lib/battwatch/settings.json", cfg.SettingsFile)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.Verbose)
}

func TestLoadFlags(t *testing.T) {
	pinArgs(t, "--debug", "--verbose")
	t.Setenv("BATTWATCH_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.True(t, cfg.Verbose)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	pinArgs(t)
	t.Setenv("BATTWATCH_CONFIG", "")
	t.Setenv("BATTWATCH_MQTT_PORT", "2883")
	t.Setenv("BATTWATCH_MQTT_BASE_TOPIC", "cellar")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2883, cfg.MQTT.Port)
	assert.Equal(t, "cellar", cfg.MQTT.BaseTopic)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	pinArgs(t)

	configPath := filepath.Join(t.TempDir(), "battwatch.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{not yaml"), 0o600))
	t.Setenv("BATTWATCH_CONFIG", configPath)

	_, err := config.Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			MQTT: config.MQTTConfig{
				Broker:    "127.0.0.1",
				Port:      1883,
				BaseTopic: "battwatch",
				Keepalive: 60,
			},
			Hostname:     config.HostnameConfig{Name: "pi"},
			SettingsFile: "/tmp/settings.json",
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty broker", func(c *config.Config) { c.MQTT.Broker = "" }},
		{"port too low", func(c *config.Config) { c.MQTT.Port = 0 }},
		{"port too high", func(c *config.Config) { c.MQTT.Port = 70000 }},
		{"empty base topic", func(c *config.Config) { c.MQTT.BaseTopic = "" }},
		{"wildcard in base topic", func(c *config.Config) { c.MQTT.BaseTopic = "batt/#" }},
		{"zero keepalive", func(c *config.Config) { c.MQTT.Keepalive = 0 }},
		{"empty hostname", func(c *config.Config) { c.Hostname.Name = "" }},
		{"discovery without interval", func(c *config.Config) {
			c.HomeAssistant.Discovery = true
			c.HomeAssistant.DiscoveryInterval = 0
		}},
		{"empty settings file", func(c *config.Config) { c.SettingsFile = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTopicHelpers(t *testing.T) {
	cfg := &config.Config{
		MQTT: config.MQTTConfig{
			BaseTopic: "battwatch",
			Topic:     config.TopicConfig{State: "state", Status: "status", Set: "set"},
		},
		Hostname: config.HostnameConfig{Name: "pi4"},
	}

	assert.Equal(t, "battwatch/pi4/state", cfg.StateTopic())
	assert.Equal(t, "battwatch/pi4/status", cfg.StatusTopic())
	assert.Equal(t, "battwatch/pi4/set/restart", cfg.CommandTopic("restart"))
	assert.Equal(t, "battwatch/pi4/set/#", cfg.CommandWildcard())
}
