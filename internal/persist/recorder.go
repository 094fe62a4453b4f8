package persist

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Recorder batches runs and stats off the game loop. Record calls never
// block; when the queue is full the record is dropped and counted.
type Recorder struct {
	sink      Sink
	queue     chan any
	batchSize int
	interval  time.Duration
	dropped   atomic.Int64
	log       *zap.Logger

	runs  []PlayerRun
	stats []WorldStat
	done  chan struct{}
}

func NewRecorder(sink Sink, batchSize int, interval time.Duration, log *zap.Logger) *Recorder {
	if batchSize < 1 {
		batchSize = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Recorder{
		sink:      sink,
		queue:     make(chan any, batchSize*4),
		batchSize: batchSize,
		interval:  interval,
		log:       log,
		done:      make(chan struct{}),
	}
}

func (r *Recorder) RecordRun(run PlayerRun)  { r.enqueue(run) }
func (r *Recorder) RecordStats(st WorldStat) { r.enqueue(st) }

// Dropped returns how many records were lost to a full queue.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

func (r *Recorder) enqueue(v any) {
	select {
	case r.queue <- v:
	default:
		r.dropped.Add(1)
	}
}

// Run writes batches until ctx is cancelled, then flushes what is queued.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case v := <-r.queue:
			r.add(v)
			if len(r.runs)+len(r.stats) >= r.batchSize {
				r.flush()
			}
		case <-ticker.C:
			r.flush()
		case <-ctx.Done():
			for {
				select {
				case v := <-r.queue:
					r.add(v)
				default:
					r.flush()
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned.
func (r *Recorder) Wait() { <-r.done }

func (r *Recorder) add(v any) {
	switch rec := v.(type) {
	case PlayerRun:
		r.runs = append(r.runs, rec)
	case WorldStat:
		r.stats = append(r.stats, rec)
	}
}

func (r *Recorder) flush() {
	if len(r.runs) == 0 && len(r.stats) == 0 {
		return
	}
	// The final flush runs after cancellation, so it gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.sink.WriteBatch(ctx, r.runs, r.stats); err != nil {
		r.log.Warn("record batch failed",
			zap.Int("runs", len(r.runs)),
			zap.Int("stats", len(r.stats)),
			zap.Error(err),
		)
	}
	r.runs = r.runs[:0]
	r.stats = r.stats[:0]
}
