package broker

import (
	"sync"

	"codeberg.org/tekogu/battwatch/internal/errors"
)

// FakeMessage is a recorded publish.
type FakeMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// Fake records published messages for tests. The zero value is connected;
// set Offline to make publishes fail the way the real client does while
// disconnected.
type Fake struct {
	mu       sync.Mutex
	Offline  bool
	Messages []FakeMessage
}

func (f *Fake) Publish(topic string, payload []byte, qos byte, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Offline {
		return errors.New().WithData(errors.ErrBrokerNotReady, topic)
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	f.Messages = append(f.Messages, FakeMessage{
		Topic:   topic,
		Payload: buf,
		QoS:     qos,
		Retain:  retain,
	})

	return nil
}

func (f *Fake) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return !f.Offline
}

// Find returns the most recent message published on topic.
func (f *Fake) Find(topic string) (FakeMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.Messages) - 1; i >= 0; i-- {
		if f.Messages[i].Topic == topic {
			return f.Messages[i], true
		}
	}

	return FakeMessage{}, false
}

// Count returns how many messages were published on topic.
func (f *Fake) Count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, msg := range f.Messages {
		if msg.Topic == topic {
			n++
		}
	}

	return n
}

// SetOffline toggles the simulated connection state.
func (f *Fake) SetOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Offline = offline
}
