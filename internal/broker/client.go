package broker

import (
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"codeberg.org/tekogu/battwatch/internal/config"
	"codeberg.org/tekogu/battwatch/internal/errors"
	"codeberg.org/tekogu/battwatch/internal/logger"
)

const (
	connectTimeout   = 30 * time.Second
	subscribeTimeout = 10 * time.Second
	publishTimeout   = 5 * time.Second
	retryInterval    = 5 * time.Second
	maxReconnectWait = time.Minute

	// Milliseconds paho waits for in-flight messages on disconnect.
	disconnectQuiesce = 500

	statusQoS  byte = 1
	commandQoS byte = 1
)

// CommandSink receives decoded command messages from the paho callback. The
// sink must not block; the command handler enqueues onto its own channel so
// transport threading never runs application logic.
type CommandSink func(suffix string, payload []byte)

// Client wraps the paho MQTT client with this daemon's usage policy: last
// will on the status topic, re-subscription and re-announcement on every
// (re)connect, and publish refusal while disconnected.
type Client struct {
	cfg  *config.Config
	paho mqtt.Client

	mu        sync.Mutex
	state     ConnState
	sink      CommandSink
	onConnect []func()
}

func New(cfg *config.Config) *Client {
	c := &Client{
		cfg:   cfg,
		state: StateDisconnected,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Broker, cfg.MQTT.Port))
	opts.SetClientID(cfg.MQTT.ClientID)
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.SetKeepAlive(time.Duration(cfg.MQTT.Keepalive) * time.Second)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectWait)
	opts.SetConnectRetry(!cfg.MQTT.ExitOnFail)
	opts.SetConnectRetryInterval(retryInterval)
	opts.SetOrderMatters(false)
	opts.SetWill(cfg.StatusTopic(), cfg.Status.Offline, statusQoS, true)
	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(c.handleConnectionLost)
	opts.SetReconnectingHandler(c.handleReconnecting)

	c.paho = mqtt.NewClient(opts)

	return c
}

// SetCommandSink registers the receiver for inbound command messages. Must
// be called before Connect.
func (c *Client) SetCommandSink(sink CommandSink) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sink = sink
}

// OnConnect registers a hook invoked after every successful (re)connection,
// once the command subscription and online status are in place.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onConnect = append(c.onConnect, fn)
}

// Connect starts the broker session. With exit_on_fail set the initial
// connection failure is returned to the caller as a fatal error; otherwise
// paho retries in the background with backoff and Connect returns nil.
func (c *Client) Connect() error {
	errFactory := errors.New()

	c.setState(StateConnecting)
	logger.Info().
		Str("broker", c.cfg.MQTT.Broker).
		Int("port", c.cfg.MQTT.Port).
		Str("client_id", c.cfg.MQTT.ClientID).
		Msg("Connecting to MQTT broker")

	token := c.paho.Connect()

	if c.cfg.MQTT.ExitOnFail {
		if !token.WaitTimeout(connectTimeout) {
			c.setState(StateDisconnected)
			return errFactory.WithMessage(errors.ErrBrokerConnect, "connection attempt timed out")
		}
		if err := token.Error(); err != nil {
			c.setState(StateDisconnected)
			return errFactory.Wrap(errors.ErrBrokerConnect, err)
		}

		return nil
	}

	go func() {
		if token.Wait() && token.Error() != nil {
			logger.Warn().Err(token.Error()).Msg("Initial broker connection failed, retrying with backoff")
		}
	}()

	return nil
}

func (c *Client) handleConnect(client mqtt.Client) {
	c.setState(StateConnected)
	logger.Info().Msg("Connected to MQTT broker")

	if err := c.subscribeCommands(client); err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe to command topics")
	} else {
		logger.Debug().Str("filter", c.cfg.CommandWildcard()).Msg("Subscribed to command topics")
	}

	if err := c.Publish(c.cfg.StatusTopic(), []byte(c.cfg.Status.Online), statusQoS, true); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish online status")
	}

	c.mu.Lock()
	hooks := make([]func(), len(c.onConnect))
	copy(hooks, c.onConnect)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// subscribeCommands subscribes to the command wildcard. A token that never
// completes within the timeout is an error, not a success.
func (c *Client) subscribeCommands(client mqtt.Client) error {
	errFactory := errors.New()

	filter := c.cfg.CommandWildcard()
	token := client.Subscribe(filter, commandQoS, c.handleCommand)
	if !token.WaitTimeout(subscribeTimeout) {
		return errFactory.WithData(errors.ErrBrokerSubscribe, filter)
	}
	if err := token.Error(); err != nil {
		return errFactory.Wrap(errors.ErrBrokerSubscribe, err)
	}

	return nil
}

func (c *Client) handleCommand(_ mqtt.Client, msg mqtt.Message) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink == nil {
		return
	}

	suffix := commandSuffix(msg.Topic(), c.cfg.CommandTopic(""))
	if suffix == "" {
		logger.Debug().Str("topic", msg.Topic()).Msg("Ignoring message outside the command tree")
		return
	}

	// Copy before leaving the paho callback; paho reuses the buffer.
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	sink(suffix, payload)
}

func (c *Client) handleConnectionLost(_ mqtt.Client, err error) {
	c.setState(StateReconnecting)
	logger.Warn().Err(err).Msg("Broker connection lost, reconnecting")
}

func (c *Client) handleReconnecting(_ mqtt.Client, _ *mqtt.ClientOptions) {
	c.setState(StateReconnecting)
	logger.Debug().Msg("Reconnecting to MQTT broker")
}

// Publish sends a message. Delivery acknowledgment is not awaited; failures
// surface through the async token check in the log only. While disconnected
// the publish is refused so callers can drop the sample (latest-value-only
// policy).
func (c *Client) Publish(topic string, payload []byte, qos byte, retain bool) error {
	errFactory := errors.New()

	if !c.paho.IsConnected() {
		return errFactory.WithData(errors.ErrBrokerNotReady, topic)
	}

	token := c.paho.Publish(topic, qos, retain, payload)
	go func() {
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			logger.Warn().Err(token.Error()).Str("topic", topic).Msg("Publish not acknowledged")
		}
	}()

	return nil
}

// IsConnected reports whether the broker session is currently usable.
func (c *Client) IsConnected() bool {
	return c.paho.IsConnected()
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Client) setState(state ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = state
}

// Disconnect publishes the offline status and closes the session. Unlike
// regular state publishes the offline payload is waited for, since nothing
// happens after it.
func (c *Client) Disconnect() {
	if c.paho.IsConnected() {
		token := c.paho.Publish(c.cfg.StatusTopic(), statusQoS, true, []byte(c.cfg.Status.Offline))
		token.WaitTimeout(publishTimeout)
		c.paho.Disconnect(disconnectQuiesce)
	}
	c.setState(StateDisconnected)
	logger.Info().Msg("Disconnected from MQTT broker")
}

// commandSuffix strips the command topic prefix, returning "" for topics
// outside the command tree.
func commandSuffix(topic, prefix string) string {
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}

	return strings.TrimPrefix(topic, prefix)
}
