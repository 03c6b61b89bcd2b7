// Package events delivers lifecycle events to Redis off the request path.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amodvardhan/project-pipeline/internal/models"
)

// ErrBufferFull is returned when the dispatcher cannot accept another event.
var ErrBufferFull = errors.New("event buffer full")

// ErrNotRunning is returned when events are handed to a stopped dispatcher.
var ErrNotRunning = errors.New("event dispatcher not running")

// Publisher delivers a single event to the broker.
type Publisher interface {
	Publish(ctx context.Context, event models.LifecycleEvent) error
}

// Recorder receives delivery outcomes.
type Recorder interface {
	RecordEvent(eventType models.LifecycleEventType, delivered bool)
}

// Config tunes the worker pool.
type Config struct {
	Workers      int
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	DrainTimeout time.Duration
	Logger       *zap.Logger
	Recorder     Recorder
}

type envelope struct {
	event   models.LifecycleEvent
	attempt int
}

// Dispatcher queues events in memory and publishes them from a pool of
// goroutines, retrying failed deliveries with a fixed delay.
type Dispatcher struct {
	publisher Publisher
	cfg       Config
	logger    *zap.Logger

	queue   chan envelope
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// NewDispatcher builds a dispatcher around publisher.
func NewDispatcher(publisher Publisher, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Dispatcher{
		publisher: publisher,
		cfg:       cfg,
		logger:    cfg.Logger,
		queue:     make(chan envelope, cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.running = true
	d.logger.Info("event dispatcher started", zap.Int("workers", d.cfg.Workers), zap.Int("buffer", d.cfg.BufferSize))
}

// Stop halts the workers and makes one final delivery attempt for events
// still buffered, bounded by the drain timeout.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()
	d.retries.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DrainTimeout)
	defer cancel()
	var drained int
	for {
		select {
		case env := <-d.queue:
			d.deliver(ctx, env.event)
			drained++
		default:
			d.logger.Info("event dispatcher stopped", zap.Int("drained", drained))
			return
		}
	}
}

// Publish enqueues the event without blocking the caller.
func (d *Dispatcher) Publish(_ context.Context, event models.LifecycleEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return ErrNotRunning
	}
	select {
	case d.queue <- envelope{event: event}:
		return nil
	default:
		d.record(event.Type, false)
		return fmt.Errorf("%w: dropping %s for profile %d", ErrBufferFull, event.Type, event.ProfileID)
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case env := <-d.queue:
			if err := d.publisher.Publish(d.ctx, env.event); err != nil {
				d.retry(env, err)
				continue
			}
			d.record(env.event.Type, true)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event models.LifecycleEvent) {
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.record(event.Type, false)
		d.logger.Warn("event dropped during drain", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	d.record(event.Type, true)
}

func (d *Dispatcher) retry(env envelope, err error) {
	env.attempt++
	if env.attempt > d.cfg.MaxRetries {
		d.record(env.event.Type, false)
		d.logger.Error("event exceeded retries",
			zap.String("event_id", env.event.ID),
			zap.String("type", string(env.event.Type)),
			zap.Error(err),
		)
		return
	}
	d.logger.Warn("event publish failed, retrying",
		zap.String("event_id", env.event.ID),
		zap.Int("attempt", env.attempt),
		zap.Error(err),
	)

	d.retries.Add(1)
	go func() {
		defer d.retries.Done()
		timer := time.NewTimer(d.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-d.ctx.Done():
			d.requeueForDrain(env)
		case <-timer.C:
			select {
			case d.queue <- env:
			default:
				d.record(env.event.Type, false)
				d.logger.Error("event requeue failed", zap.String("event_id", env.event.ID), zap.Error(ErrBufferFull))
			}
		}
	}()
}

func (d *Dispatcher) requeueForDrain(env envelope) {
	select {
	case d.queue <- env:
	default:
		d.record(env.event.Type, false)
	}
}

func (d *Dispatcher) record(eventType models.LifecycleEventType, delivered bool) {
	if d.cfg.Recorder != nil {
		d.cfg.Recorder.RecordEvent(eventType, delivered)
	}
}
