// Package mqttpub mirrors pipeline output to an MQTT broker as msgpack.
package mqttpub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/soocke/lipread-go/domain/pipeline"
)

const (
	queueSize      = 64
	publishTimeout = 2 * time.Second
	connectTimeout = 5 * time.Second
)

// Payload is the msgpack body for both topics.
type Payload struct {
	Type       string  `msgpack:"type"`
	Original   string  `msgpack:"original,omitempty"`
	Translated string  `msgpack:"translated,omitempty"`
	Confidence float64 `msgpack:"confidence,omitempty"`
	RegionID   string  `msgpack:"region_id,omitempty"`
	Source     string  `msgpack:"source,omitempty"`
	Target     string  `msgpack:"target,omitempty"`
	Status     string  `msgpack:"status,omitempty"`
	State      string  `msgpack:"state,omitempty"`
	Stage      string  `msgpack:"stage,omitempty"`
	Error      string  `msgpack:"error,omitempty"`
	SessionID  string  `msgpack:"session_id,omitempty"`
	AtUnixMs   int64   `msgpack:"at_ms"`
}

// Config selects the broker and topic prefix.
type Config struct {
	Broker   string // host:port or a full URL
	ClientID string
	Prefix   string
}

type message struct {
	topic   string
	payload []byte
}

// Publisher queues messages and publishes them from one goroutine so a slow
// broker never blocks the pipeline. Messages are dropped when the queue is
// full.
type Publisher struct {
	prefix  string
	publish func(topic string, payload []byte) error
	close   func()
	logger  *slog.Logger

	queue   chan message
	done    chan struct{}
	once    sync.Once
	sent    atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// Connect dials the broker with auto-reconnect.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.Broker) == "" {
		return nil, errors.New("mqtt broker not configured")
	}
	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		if logger != nil {
			logger.Info("mqtt connected", "broker", broker, "client_id", cfg.ClientID)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		if logger != nil {
			logger.Warn("mqtt connection lost", "broker", broker, "error", err)
		}
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	wait := connectTimeout
	if dl, ok := ctx.Deadline(); ok {
		wait = time.Until(dl)
	}
	if !token.WaitTimeout(wait) {
		client.Disconnect(0)
		return nil, errors.New("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	pub := func(topic string, payload []byte) error {
		t := client.Publish(topic, 0, false, payload)
		if !t.WaitTimeout(publishTimeout) {
			return errors.New("publish timeout")
		}
		return t.Error()
	}
	return newPublisher(cfg.Prefix, pub, func() { client.Disconnect(250) }, logger), nil
}

func newPublisher(prefix string, publish func(string, []byte) error, closeFn func(), logger *slog.Logger) *Publisher {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "lipread"
	}
	p := &Publisher{
		prefix:  prefix,
		publish: publish,
		close:   closeFn,
		logger:  logger,
		queue:   make(chan message, queueSize),
		done:    make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Publisher) ResultTopic() string { return p.prefix + "/result" }
func (p *Publisher) StatusTopic() string { return p.prefix + "/status" }

// PublishEvent queues a result or empty event.
func (p *Publisher) PublishEvent(ev pipeline.Event) {
	p.enqueue(p.ResultTopic(), EventPayload(ev))
}

// PublishStatus queues a status update.
func (p *Publisher) PublishStatus(st pipeline.Status) {
	p.enqueue(p.StatusTopic(), StatusPayload(st))
}

// Stats reports sent, dropped and failed message counts.
func (p *Publisher) Stats() (sent, dropped, failed uint64) {
	return p.sent.Load(), p.dropped.Load(), p.failed.Load()
}

// Close drains the queue and disconnects. Idempotent.
func (p *Publisher) Close() {
	p.once.Do(func() {
		close(p.queue)
		<-p.done
		if p.close != nil {
			p.close()
		}
	})
}

func (p *Publisher) enqueue(topic string, payload Payload) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		p.failed.Add(1)
		if p.logger != nil {
			p.logger.Error("mqtt encode", "error", err)
		}
		return
	}
	defer func() {
		// Send on a closed queue after Close.
		if recover() != nil {
			p.dropped.Add(1)
		}
	}()
	select {
	case p.queue <- message{topic: topic, payload: b}:
	default:
		p.dropped.Add(1)
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	for m := range p.queue {
		if err := p.publish(m.topic, m.payload); err != nil {
			p.failed.Add(1)
			if p.logger != nil {
				p.logger.Warn("mqtt publish failed", "topic", m.topic, "error", err)
			}
			continue
		}
		p.sent.Add(1)
	}
}

func EventPayload(ev pipeline.Event) Payload {
	return Payload{
		Type:       ev.Kind.String(),
		Original:   ev.Original,
		Translated: ev.Translated,
		Confidence: ev.Confidence,
		RegionID:   ev.RegionID,
		Source:     ev.Source,
		Target:     ev.Target,
		SessionID:  ev.SessionID,
		AtUnixMs:   ev.At.UnixMilli(),
	}
}

func StatusPayload(st pipeline.Status) Payload {
	p := Payload{
		Type:      "status",
		Status:    string(st.Kind),
		State:     st.State.String(),
		SessionID: st.SessionID,
		AtUnixMs:  st.At.UnixMilli(),
	}
	if st.Err != nil {
		p.Stage = st.Stage.String()
		p.Error = st.Err.Error()
	}
	return p
}
