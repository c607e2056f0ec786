package broker

// Publisher is the minimal surface the monitor loop, command handler and
// discovery publisher use to send messages. Client and Fake both implement
// it.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retain bool) error
	IsConnected() bool
}

// ConnState tracks the broker session lifecycle.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
