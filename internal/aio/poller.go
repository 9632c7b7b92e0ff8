package aio

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReadFunc performs one input exchange.
type ReadFunc func(ctx context.Context) (map[string]float64, error)

// Poller samples the inputs on a fixed interval.
type Poller struct {
	name     string
	read     ReadFunc
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

func NewPoller(name string, read ReadFunc, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		name:     name,
		read:     read,
		interval: interval,
		logger:   logger,
	}
}

// Start starts cyclic polling. Calling it on a running poller is a no-op.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.stopChan = make(chan struct{})
	p.wg.Add(1)

	go p.pollLoop(p.stopChan)

	p.logger.Info("Poller started",
		zap.String("device", p.name),
		zap.Duration("interval", p.interval))

	return nil
}

// Stop stops polling and waits for an in-flight read to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop := p.stopChan
	p.mu.Unlock()

	close(stop)
	p.wg.Wait()

	p.logger.Info("Poller stopped", zap.String("device", p.name))
}

func (p *Poller) pollLoop(stop <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	if _, err := p.read(ctx); err != nil {
		p.logger.Error("Poll failed",
			zap.String("device", p.name),
			zap.Error(err))
	}
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
