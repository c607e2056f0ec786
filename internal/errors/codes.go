package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrUnavailable     ErrorCode = "service_unavailable"

	// Configuration errors
	ErrInvalidConfig    ErrorCode = "invalid_configuration"
	ErrReadConfig       ErrorCode = "read_config_failed"
	ErrBindFlags        ErrorCode = "bind_flags_failed"
	ErrInvalidThreshold ErrorCode = "invalid_threshold"
	ErrInvalidVoltage   ErrorCode = "invalid_voltage"
	ErrInvalidInterval  ErrorCode = "invalid_interval"
	ErrSettingsIO       ErrorCode = "settings_io_failed"

	// Sensor errors
	ErrSensorRead   ErrorCode = "sensor_read_failed"
	ErrCPUTemp      ErrorCode = "cpu_temperature_read_failed"
	ErrCPUThrottle  ErrorCode = "cpu_throttle_read_failed"
	ErrSensorRange  ErrorCode = "sensor_range_error"
	ErrSensorAbsent ErrorCode = "sensor_not_found"

	// Broker errors
	ErrBrokerConnect    ErrorCode = "broker_connect_failed"
	ErrBrokerPublish    ErrorCode = "broker_publish_failed"
	ErrBrokerSubscribe  ErrorCode = "broker_subscribe_failed"
	ErrBrokerNotReady   ErrorCode = "broker_not_connected"
	ErrBrokerDisconnect ErrorCode = "broker_disconnect_failed"

	// Command errors
	ErrInvalidCommand ErrorCode = "invalid_command"
	ErrCommandDropped ErrorCode = "command_dropped"

	// System action errors
	ErrShutdownAction ErrorCode = "shutdown_action_failed"
	ErrRestartAction  ErrorCode = "restart_action_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:         "Internal error occurred",
	ErrInvalidArgument:  "Invalid argument provided",
	ErrUnavailable:      "Service unavailable",
	ErrInvalidConfig:    "Invalid configuration",
	ErrReadConfig:       "Failed to read configuration",
	ErrBindFlags:        "Failed to bind flags",
	ErrInvalidThreshold: "Battery warning threshold must be between 0 and 100",
	ErrInvalidVoltage:   "Battery voltage limits must satisfy minimum < maximum",
	ErrInvalidInterval:  "Interval must be greater than zero",
	ErrSettingsIO:       "Failed to persist runtime settings",
	ErrSensorRead:       "Failed to read battery sensor",
	ErrCPUTemp:          "Failed to read CPU temperature",
	ErrCPUThrottle:      "Failed to read CPU throttle state",
	ErrSensorRange:      "Battery sensor reading out of range",
	ErrSensorAbsent:     "Battery sensor not found",
	ErrBrokerConnect:    "Failed to connect to MQTT broker",
	ErrBrokerPublish:    "Failed to publish MQTT message",
	ErrBrokerSubscribe:  "Failed to subscribe to MQTT topic",
	ErrBrokerNotReady:   "MQTT broker not connected",
	ErrBrokerDisconnect: "Failed to disconnect from MQTT broker",
	ErrInvalidCommand:   "Invalid command payload",
	ErrCommandDropped:   "Command queue full, message dropped",
	ErrShutdownAction:   "System shutdown command failed",
	ErrRestartAction:    "System restart command failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
