// Package delivery pushes the latest frame of a shared cell to one subscriber.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leandrodaf/pianosync/internal/logger"
	"github.com/leandrodaf/pianosync/sdk/contracts"
)

const (
	DefaultInterval  = time.Millisecond
	DefaultThreshold = 10
)

// ErrEvicted is returned by Run when the subscriber failed too many sends in a row.
var ErrEvicted = errors.New("subscriber evicted after consecutive send failures")

// Source is the shared frame a loop observes.
type Source interface {
	Read() (string, bool)
}

// Sender is one subscriber connection.
type Sender interface {
	Send(frame string) error
	Close() error
}

// Session is the per-connection state owned by a single Loop.
type Session struct {
	ID       uuid.UUID
	Peer     string
	lastSent string
	hasSent  bool
	failures int
	sent     int
}

// Sent reports how many frames reached the subscriber.
func (s *Session) Sent() int { return s.sent }

// Failures reports the current run of consecutive failed sends.
func (s *Session) Failures() int { return s.failures }

// Config tunes a Loop. Zero values select the defaults.
type Config struct {
	Interval  time.Duration
	Threshold int
	Logger    contracts.Logger
}

// Loop polls a Source and sends every changed frame. Intermediate frames
// published between two polls are skipped.
type Loop struct {
	source    Source
	sender    Sender
	logger    contracts.Logger
	interval  time.Duration
	threshold int
	session   Session
}

// New creates a loop for one subscriber at peer.
func New(source Source, sender Sender, peer string, cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewZapLogger()
	}
	return &Loop{
		source:    source,
		sender:    sender,
		logger:    cfg.Logger,
		interval:  cfg.Interval,
		threshold: cfg.Threshold,
		session:   Session{ID: uuid.New(), Peer: peer},
	}
}

// Session returns the loop's session. Only read it after Run returned.
func (l *Loop) Session() *Session { return &l.session }

// Run delivers frames until ctx is cancelled or the subscriber is evicted.
// The connection is closed in both cases.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		if err := l.sender.Close(); err != nil {
			l.logger.Debug("Closing subscriber connection",
				l.logger.Field().String("session", l.session.ID.String()),
				l.logger.Field().Error("error", err))
		}
	}()

	t := time.NewTicker(l.interval)
	defer t.Stop()
	for {
		if l.poll() {
			l.logger.Info("Subscriber evicted",
				l.logger.Field().String("session", l.session.ID.String()),
				l.logger.Field().String("peer", l.session.Peer),
				l.logger.Field().Int("failures", l.session.failures))
			return ErrEvicted
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// poll runs one iteration and reports whether the threshold was reached.
func (l *Loop) poll() bool {
	frame, ok := l.source.Read()
	if !ok || (l.session.hasSent && frame == l.session.lastSent) {
		return false
	}
	if err := l.sender.Send(frame); err != nil {
		l.session.failures++
		l.logger.Debug("Send failed",
			l.logger.Field().String("session", l.session.ID.String()),
			l.logger.Field().Int("failures", l.session.failures),
			l.logger.Field().Error("error", err))
		return l.session.failures >= l.threshold
	}
	l.session.failures = 0
	l.session.lastSent = frame
	l.session.hasSent = true
	l.session.sent++
	return false
}
