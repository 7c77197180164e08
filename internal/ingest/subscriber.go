package ingest

import (
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/telemetry-platform/telemetry/internal/pkg/logger"
	"github.com/telemetry-platform/telemetry/internal/pkg/metrics"
)

// State is the subscriber's connection lifecycle state (§4.B).
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// SubscriberConfig configures the MQTT connection.
type SubscriberConfig struct {
	BrokerURL     string
	ClientID      string
	Username      string
	Password      string
	Topics        []string
	CleanSession  bool
	AutoReconnect bool
	KeepAlive     time.Duration
}

// Subscriber is a concurrent MQTT 3.1.1 client that decodes each message's
// topic-carried machine id, hands the raw payload to onMessage, and tracks
// connection state for observability. paho's client library is
// callback-driven; State exists precisely because those callbacks fire on
// arbitrary internal goroutines and the rest of the engine needs a single
// place to read "are we connected".
type Subscriber struct {
	cfg       SubscriberConfig
	client    mqtt.Client
	state     atomicState
	onMessage func(topicMachineID string, payload []byte)
	backoff   *Backoff
}

// NewSubscriber returns a Subscriber that invokes onMessage for every
// message received on cfg.Topics. Connect must be called to start it.
func NewSubscriber(cfg SubscriberConfig, onMessage func(topicMachineID string, payload []byte)) *Subscriber {
	return &Subscriber{
		cfg:       cfg,
		onMessage: onMessage,
		backoff:   NewBackoff(time.Second, 60*time.Second, 0.2),
	}
}

// State returns the subscriber's current connection state.
func (s *Subscriber) State() State { return s.state.Load() }

// Connect opens the MQTT connection and subscribes to all configured
// topics; it resubscribes automatically on every reconnect via
// SetOnConnectHandler, per the subscribe-on-connect contract.
func (s *Subscriber) Connect() error {
	s.state.Store(StateConnecting)

	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetCleanSession(s.cfg.CleanSession).
		SetAutoReconnect(s.cfg.AutoReconnect).
		SetKeepAlive(s.cfg.KeepAlive).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Second)

	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.state.Store(StateConnected)
		metrics.MQTTConnectionState.Set(1)
		s.backoff.Reset()
		for _, topic := range s.cfg.Topics {
			topic := topic
			if token := c.Subscribe(topic, 1, s.handle); token.Wait() && token.Error() != nil {
				logger.EventLog(os.Stderr, "error", "", "subscribe failed: "+topic, token.Error().Error())
				metrics.MQTTReconnectsTotal.WithLabelValues("failure").Inc()
			}
		}
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		s.state.Store(StateDisconnected)
		metrics.MQTTConnectionState.Set(0)
		logger.EventLog(os.Stderr, "warn", "", "mqtt connection lost", err.Error())
	})
	opts.SetReconnectingHandler(func(c mqtt.Client, o *mqtt.ClientOptions) {
		s.state.Store(StateConnecting)
		metrics.MQTTReconnectsTotal.WithLabelValues("attempt").Inc()
	})

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	token.Wait()
	return token.Error()
}

// handle extracts the machine id embedded in the topic (machine/<id>/data)
// and forwards the raw payload for parsing. Delivery for a given topic is
// serialized by the paho client's single dispatch goroutine, preserving
// per-machine arrival order.
func (s *Subscriber) handle(_ mqtt.Client, msg mqtt.Message) {
	topicMachineID := extractMachineID(msg.Topic())
	s.onMessage(topicMachineID, msg.Payload())
}

// extractMachineID parses "machine/<id>/data" into "<id>"; returns "" if the
// topic does not match that shape (e.g. a broader wildcard subscription),
// in which case identity-mismatch checking is skipped.
func extractMachineID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "machine" && parts[2] == "data" {
		return parts[1]
	}
	return ""
}

// Disconnect enters the Draining state and closes the MQTT connection,
// waiting up to quiesce for in-flight QoS acks.
func (s *Subscriber) Disconnect(quiesce time.Duration) {
	s.state.Store(StateDraining)
	if s.client != nil {
		s.client.Disconnect(uint(quiesce.Milliseconds()))
	}
	s.state.Store(StateDisconnected)
}
