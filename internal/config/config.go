package config

import (
	"os"
	"strings"

	"codeberg.org/tekogu/battwatch/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TopicConfig holds the per-device topic segment names.
type TopicConfig struct {
	State  string
	Status string
	Set    string
}

// MQTTConfig holds the broker connection parameters.
type MQTTConfig struct {
	Broker     string
	Port       int
	Username   string
	Password   string
	ClientID   string `mapstructure:"client_id"`
	BaseTopic  string `mapstructure:"base_topic"`
	Keepalive  int
	ExitOnFail bool `mapstructure:"exit_on_fail"`
	Topic      TopicConfig
}

// HostnameConfig identifies the device on the topic tree and in discovery.
type HostnameConfig struct {
	Name   string
	Pretty string
}

// HomeAssistantConfig controls MQTT discovery announcements.
type HomeAssistantConfig struct {
	Discovery         bool
	Topic             string
	DiscoveryInterval int `mapstructure:"discovery_interval"`
	ExpireAfter       int `mapstructure:"expire_after"`
}

// StatusConfig holds the availability payloads.
type StatusConfig struct {
	Online  string
	Offline string
}

// SystemConfig holds the commands invoked for device shutdown and restart.
type SystemConfig struct {
	Shutdown string
	Restart  string
}

type Config struct {
	MQTT          MQTTConfig
	Hostname      HostnameConfig
	HomeAssistant HomeAssistantConfig `mapstructure:"homeassistant"`
	Status        StatusConfig
	System        SystemConfig
	SettingsFile  string `mapstructure:"settings_file"`
	Debug         bool
	Verbose       bool
}

// Load reads the static configuration from defaults, the YAML config file,
// BATTWATCH_* environment variables and command line flags, in ascending
// order of precedence.
func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("battwatch", pflag.ContinueOnError)
	// Tolerate foreign flags such as the test binary's -test.* set.
	flags.ParseErrorsWhitelist.UnknownFlags = true
	configPath := flags.String("config", "", "Path to the configuration file")
	debugFlag := flags.Bool("debug", false, "Enable debug logging")
	verboseFlag := flags.Bool("verbose", false, "Enable verbose logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BATTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case *configPath != "":
		v.SetConfigFile(*configPath)
	case os.Getenv("BATTWATCH_CONFIG") != "":
		v.SetConfigFile(os.Getenv("BATTWATCH_CONFIG"))
	default:
		v.SetConfigName("battwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if *debugFlag {
		v.Set("debug", true)
	}
	if *verboseFlag {
		v.Set("verbose", true)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "battwatch"
	}

	v.SetDefault("mqtt.broker", "127.0.0.1")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "battwatch")
	v.SetDefault("mqtt.base_topic", "battwatch")
	v.SetDefault("mqtt.keepalive", 60)
	v.SetDefault("mqtt.exit_on_fail", true)
	v.SetDefault("mqtt.topic.state", "state")
	v.SetDefault("mqtt.topic.status", "status")
	v.SetDefault("mqtt.topic.set", "set")
	v.SetDefault("hostname.name", host)
	v.SetDefault("hostname.pretty", host)
	v.SetDefault("homeassistant.discovery", true)
	v.SetDefault("homeassistant.topic", "homeassistant")
	v.SetDefault("homeassistant.discovery_interval", 120)
	v.SetDefault("homeassistant.expire_after", 120)
	v.SetDefault("status.online", "online")
	v.SetDefault("status.offline", "offline")
	v.SetDefault("system.shutdown", "sudo shutdown -h now")
	v.SetDefault("system.restart", "sudo shutdown -r now")
	v.SetDefault("settings_file", "/var/lib/battwatch/settings.json")
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

// Validate checks the loaded configuration for values the daemon cannot
// start with.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.MQTT.Broker == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "mqtt.broker must not be empty")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "mqtt.port must be between 1 and 65535")
	}
	if c.MQTT.BaseTopic == "" || strings.ContainsAny(c.MQTT.BaseTopic, "#+") {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "mqtt.base_topic must be a plain topic segment")
	}
	if c.MQTT.Keepalive <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "mqtt.keepalive must be greater than zero")
	}
	if c.Hostname.Name == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "hostname.name must not be empty")
	}
	if c.HomeAssistant.Discovery && c.HomeAssistant.DiscoveryInterval <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "homeassistant.discovery_interval must be greater than zero")
	}
	if c.SettingsFile == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "settings_file must not be empty")
	}

	return nil
}

func (c *Config) deviceTopic(segment string) string {
	return c.MQTT.BaseTopic + "/" + c.Hostname.Name + "/" + segment
}

// StateTopic returns the topic the state payload is published on.
func (c *Config) StateTopic() string {
	return c.deviceTopic(c.MQTT.Topic.State)
}

// StatusTopic returns the availability topic.
func (c *Config) StatusTopic() string {
	return c.deviceTopic(c.MQTT.Topic.Status)
}

// CommandTopic returns the command topic for a single command suffix.
func (c *Config) CommandTopic(suffix string) string {
	return c.deviceTopic(c.MQTT.Topic.Set) + "/" + suffix
}

// CommandWildcard returns the subscription filter covering all command topics.
func (c *Config) CommandWildcard() string {
	return c.deviceTopic(c.MQTT.Topic.Set) + "/#"
}
