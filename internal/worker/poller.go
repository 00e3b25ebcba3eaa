package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juancollazo-ch/order-print-relay/internal/models/serviceresponse"
	"go.uber.org/zap"
)

// ErrAlreadyRunning se devuelve al llamar Start con el loop ya activo.
var ErrAlreadyRunning = errors.New("poller already running")

// Cycler ejecuta un ciclo de reconciliación.
type Cycler interface {
	RunCycle(ctx context.Context) (*serviceresponse.CycleResult, error)
}

// Poller es el handle del loop de polling: Start y Stop son las únicas
// transiciones, no hay flag global.
type Poller struct {
	cycler   Cycler
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	last atomic.Pointer[serviceresponse.CycleResult]
}

func NewPoller(cycler Cycler, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{cycler: cycler, interval: interval, logger: logger}
}

// Start lanza el loop: un ciclo inmediato y luego una pausa de interval entre ciclos.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	go p.loop(loopCtx, done)

	p.logger.Info("poller started", zap.Duration("interval", p.interval))
	return nil
}

// Stop deja de programar ciclos y espera al que esté en curso, o a que ctx expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		p.logger.Info("poller stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("poller stop timed out, cycle still running")
		return ctx.Err()
	}
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// LastResult devuelve el resultado del último ciclo terminado (nil si no hubo).
func (p *Poller) LastResult() *serviceresponse.CycleResult {
	return p.last.Load()
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		if p.done == done {
			p.cancel = nil
			p.done = nil
		}
		p.mu.Unlock()
		close(done)
	}()

	for {
		p.runOnce(ctx)

		// el intervalo cuenta desde el fin del ciclo
		wait := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			wait.Stop()
			return
		case <-wait.C:
		}
	}
}

// runOnce corre un ciclo sin dejar que un panic tumbe el loop.
func (p *Poller) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("poll cycle panicked, waiting for next tick",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()

	// Stop no corta el ciclo en curso
	res, err := p.cycler.RunCycle(context.WithoutCancel(ctx))
	if err != nil {
		p.logger.Error("poll cycle failed", zap.Error(err))
	}
	if res != nil {
		p.last.Store(res)
	}
}
