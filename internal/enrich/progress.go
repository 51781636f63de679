package enrich

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Progress periodically logs how many addresses have completed.
type Progress struct {
	total    int
	done     atomic.Int64
	interval time.Duration
	start    time.Time
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewProgress starts a reporter for total items. A non-positive interval
// disables the periodic log line.
func NewProgress(total int, interval time.Duration) *Progress {
	p := &Progress{
		total:    total,
		interval: interval,
		start:    time.Now(),
		stop:     make(chan struct{}),
	}
	if interval > 0 {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

// Inc records one completed item.
func (p *Progress) Inc() {
	p.done.Add(1)
}

// Done returns the number of completed items.
func (p *Progress) Done() int {
	return int(p.done.Load())
}

// Stop ends periodic reporting and logs the final count.
func (p *Progress) Stop() {
	close(p.stop)
	p.wg.Wait()
	p.log()
}

func (p *Progress) loop() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.log()
		}
	}
}

func (p *Progress) log() {
	done := p.Done()
	pct := 100.0
	if p.total > 0 {
		pct = float64(done) / float64(p.total) * 100
	}
	zap.L().Info("enrich: progress",
		zap.Int("done", done),
		zap.Int("total", p.total),
		zap.Float64("percent", pct),
		zap.Duration("elapsed", time.Since(p.start).Round(time.Second)),
	)
}
