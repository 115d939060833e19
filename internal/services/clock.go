package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock supplies the current time. Tests inject a fixed one.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// OrderNumberGenerator produces human readable order numbers.
type OrderNumberGenerator interface {
	Next(at time.Time) (string, error)
}

// OrderNumberFunc adapts a function to OrderNumberGenerator.
type OrderNumberFunc func(at time.Time) (string, error)

func (f OrderNumberFunc) Next(at time.Time) (string, error) { return f(at) }

// TimestampNumberGenerator builds numbers like ORD20260314093000482913:
// prefix, local timestamp to the second, six random digits.
type TimestampNumberGenerator struct {
	prefix string
	loc    *time.Location

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewTimestampNumberGenerator(prefix string, loc *time.Location) *TimestampNumberGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &TimestampNumberGenerator{
		prefix: prefix,
		loc:    loc,
		rnd:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
}

func (g *TimestampNumberGenerator) Next(at time.Time) (string, error) {
	g.mu.Lock()
	suffix := 100000 + g.rnd.IntN(900000)
	g.mu.Unlock()
	return fmt.Sprintf("%s%s%06d", g.prefix, at.In(g.loc).Format("20060102150405"), suffix), nil
}

type requestIDKey struct{}

// WithRequestID tags ctx with the id of the request being served. It ends up
// as the correlation id of published events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Option configures the order services.
type Option func(*options)

type options struct {
	clock    Clock
	numbers  OrderNumberGenerator
	events   EventPublisher
	producer string
	logger   *zap.Logger
}

func defaultOptions() options {
	return options{
		clock:    SystemClock{},
		numbers:  NewTimestampNumberGenerator("ORD", time.UTC),
		producer: "toko-orders",
		logger:   zap.NewNop(),
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithNumberGenerator(g OrderNumberGenerator) Option {
	return func(o *options) { o.numbers = g }
}

// WithEvents publishes domain events after each committed change. producer
// names this service in the event envelope.
func WithEvents(pub EventPublisher, producer string) Option {
	return func(o *options) {
		o.events = pub
		if producer != "" {
			o.producer = producer
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}
