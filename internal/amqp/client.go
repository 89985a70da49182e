package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"finform/internal/log"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const (
	publishTimeout = 5 * time.Second
	dialTimeout    = 5 * time.Second
	heartbeat      = 10 * time.Second
	maxBackoff     = 30 * time.Second
)

// channel is the part of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Dialer opens a channel and returns it with the connection to close.
type Dialer func(url string) (channel, io.Closer, error)

// timeoutDialer bounds both the TCP connect and the AMQP handshake.
func timeoutDialer(timeout time.Duration) Dialer {
	return func(url string) (channel, io.Closer, error) {
		return dialAMQP(url, timeout)
	}
}

func dialAMQP(url string, timeout time.Duration) (channel, io.Closer, error) {
	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, conn, nil
}

// Publisher sends entry events to a direct exchange. It connects lazily
// and reconnects after connection errors.
type Publisher struct {
	url        string
	exchange   string
	routingKey string
	dial       Dialer
	timeout    time.Duration
	cb         *gobreaker.CircuitBreaker
	logger     *log.Logger

	mu   sync.Mutex
	ch   channel
	conn io.Closer
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithDialer replaces the AMQP dialer. Used by tests.
func WithDialer(d Dialer) PublisherOption {
	return func(p *Publisher) { p.dial = d }
}

// WithDialTimeout bounds connecting to the broker. Ignored with WithDialer.
func WithDialTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = l.WithComponent(log.ComponentAMQP) }
}

// NewPublisher creates a publisher. No connection is made until Connect or
// the first publish.
func NewPublisher(url, exchange, routingKey string, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		url:        url,
		exchange:   exchange,
		routingKey: routingKey,
		timeout:    dialTimeout,
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentAMQP),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dial == nil {
		p.dial = timeoutDialer(p.timeout)
	}
	p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "amqp-publisher",
		Timeout: maxBackoff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

// Connect dials the broker, retrying with exponential backoff up to
// attempts times.
func (p *Publisher) Connect(ctx context.Context, attempts int) error {
	var err error
	for i := 0; i < attempts; i++ {
		p.mu.Lock()
		err = p.ensureLocked()
		p.mu.Unlock()
		if err == nil {
			p.logger.InfoContext(ctx, "Connected to AMQP broker", "exchange", p.exchange, "routing_key", p.routingKey)
			return nil
		}
		wait := exponentialBackoff(i)
		p.logger.WarnContext(ctx, "AMQP connection failed, retrying", log.FieldError, err, "attempt", i+1, "wait", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}

func (p *Publisher) ensureLocked() error {
	if p.ch != nil {
		return nil
	}
	ch, conn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.ch, p.conn = ch, conn
	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// PublishEntryAdded publishes msg as a persistent JSON message.
func (p *Publisher) PublishEntryAdded(ctx context.Context, msg *EntryAddedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = p.cb.Execute(func() (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if err := p.ensureLocked(); err != nil {
			return nil, err
		}
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		err := p.ch.PublishWithContext(pctx, p.exchange, p.routingKey, false, false, amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		})
		if err != nil && isConnectionError(err) {
			p.resetLocked()
		}
		return nil, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			return fmt.Errorf("publish message: circuit breaker is open: %w", err)
		}
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.DebugContext(ctx, "Published entry added message",
		"exchange", p.exchange,
		"routing_key", p.routingKey,
		log.FieldEntryDate, msg.Entry.Date)
	return nil
}

// Close releases the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
