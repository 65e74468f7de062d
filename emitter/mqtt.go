// Package emitter publishes motion results to an MQTT broker.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/swdee/go-posemotion/session"
)

// ErrNotConnected is returned by Publish before Connect succeeds or after the
// connection to the broker is lost
var ErrNotConnected = errors.New("mqtt not connected")

// Config for the MQTT emitter
type Config struct {
	// Broker address in host:port form
	Broker   string
	ClientID string
	// TopicPrefix is prepended to <session>/motion
	TopicPrefix string
	QoS         byte
	// Retain keeps the latest state on the broker for new subscribers
	Retain bool
	// PublishAll publishes every update instead of only changes to the set
	// of moving regions
	PublishAll     bool
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Publisher is the part of mqtt.Client used by the emitter
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Message is the JSON payload published for an update
type Message struct {
	Session   string    `json:"session"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Moving    []string  `json:"moving"`
	Label     string    `json:"label"`
	Detected  bool      `json:"detected"`
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Skipped   uint64 `json:"skipped"`
	Errors    uint64 `json:"errors"`
}

// MQTT publishes session updates to a broker
type MQTT struct {
	cfg    Config
	client Publisher
	log    *slog.Logger

	mu        sync.RWMutex
	connected bool
	// last moving set published per session
	last      map[string][]string
	published uint64
	skipped   uint64
	errors    uint64
}

// NewMQTT returns an emitter that is not yet connected
func NewMQTT(cfg Config, logger *slog.Logger) *MQTT {

	if logger == nil {
		logger = slog.Default()
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}

	return &MQTT{
		cfg:  cfg,
		log:  logger.With("component", "mqtt"),
		last: make(map[string][]string),
	}
}

// NewMQTTWithClient returns an emitter using an already connected client
func NewMQTTWithClient(cfg Config, client Publisher, logger *slog.Logger) *MQTT {
	e := NewMQTT(cfg, logger)
	e.client = client
	e.connected = true
	return e
}

// Connect establishes the connection to the broker.  The client reconnects
// automatically if the connection is later lost.
func (e *MQTT) Connect(ctx context.Context) error {

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		e.log.Info("mqtt connection established",
			"broker", e.cfg.Broker,
			"client_id", e.cfg.ClientID)
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		e.log.Warn("mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", e.cfg.Broker)
	}

	client := mqtt.NewClient(opts)

	e.log.Info("connecting to mqtt broker", "broker", e.cfg.Broker)

	token := client.Connect()

	select {
	case <-token.Done():
	case <-time.After(e.cfg.ConnectTimeout):
		return fmt.Errorf("mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.mu.Lock()
	e.client = client
	e.connected = true
	e.mu.Unlock()

	return nil
}

// Topic returns the topic updates of the session are published to
func (e *MQTT) Topic(sessionID string) string {
	if e.cfg.TopicPrefix == "" {
		return fmt.Sprintf("%s/motion", sessionID)
	}

	return fmt.Sprintf("%s/%s/motion", e.cfg.TopicPrefix, sessionID)
}

// changed records the moving set for the session and reports whether it
// differs from the last one published
func (e *MQTT) changed(u session.Update) bool {

	e.mu.Lock()
	defer e.mu.Unlock()

	prev, seen := e.last[u.SessionID]

	if seen && slices.Equal(prev, u.Result.Moving) {
		return false
	}

	e.last[u.SessionID] = slices.Clone(u.Result.Moving)

	return true
}

// forget clears the recorded moving set so the next update is published
func (e *MQTT) forget(sessionID string) {
	e.mu.Lock()
	delete(e.last, sessionID)
	e.mu.Unlock()
}

// Publish the update.  Unless PublishAll is set, updates whose moving set is
// unchanged from the last published one are skipped.
func (e *MQTT) Publish(u session.Update) error {

	if !e.isConnected() {
		e.incErrors()
		return ErrNotConnected
	}

	if !e.cfg.PublishAll && !e.changed(u) {
		e.mu.Lock()
		e.skipped++
		e.mu.Unlock()
		return nil
	}

	moving := u.Result.Moving

	if moving == nil {
		moving = []string{}
	}

	payload, err := json.Marshal(Message{
		Session:   u.SessionID,
		Seq:       u.Result.Seq,
		Timestamp: u.Result.Timestamp,
		Moving:    moving,
		Label:     u.Result.Label,
		Detected:  u.Result.Detected,
	})

	if err != nil {
		e.incErrors()
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	topic := e.Topic(u.SessionID)

	e.mu.RLock()
	client := e.client
	e.mu.RUnlock()

	token := client.Publish(topic, e.cfg.QoS, e.cfg.Retain, payload)

	if !token.WaitTimeout(e.cfg.PublishTimeout) {
		e.incErrors()
		e.forget(u.SessionID)
		return fmt.Errorf("publish timeout")
	}

	if err := token.Error(); err != nil {
		e.incErrors()
		e.forget(u.SessionID)
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()

	e.log.Debug("motion published",
		"topic", topic,
		"qos", e.cfg.QoS,
		"label", u.Result.Label,
		"size", len(payload))

	return nil
}

// Run publishes updates from the channel until it is closed or the context
// is done.  Publish failures are logged and do not stop the loop.
func (e *MQTT) Run(ctx context.Context, updates <-chan session.Update) {
	for {
		select {
		case <-ctx.Done():
			return

		case u, ok := <-updates:
			if !ok {
				return
			}

			if err := e.Publish(u); err != nil {
				e.log.Warn("failed to publish motion", "session", u.SessionID,
					"error", err)
			}
		}
	}
}

// Close disconnects from the broker
func (e *MQTT) Close() error {

	e.mu.Lock()
	client := e.client
	e.connected = false
	e.mu.Unlock()

	if client != nil {
		// 250ms grace period
		client.Disconnect(250)
		e.log.Info("mqtt disconnected")
	}

	return nil
}

// Stats returns emitter statistics
func (e *MQTT) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return Stats{
		Connected: e.connected,
		Published: e.published,
		Skipped:   e.skipped,
		Errors:    e.errors,
	}
}

func (e *MQTT) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTT) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected && e.client != nil
}

func (e *MQTT) incErrors() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
