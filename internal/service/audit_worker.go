package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/procledger/procledger/internal/metrics"
	"github.com/procledger/procledger/internal/models"
)

// Recorder records one audit entry synchronously.
type Recorder interface {
	Record(ctx context.Context, e *models.AuditEntry) error
}

// AuditWorker buffers audit entries and writes them via a single worker
// goroutine. One goroutine keeps per-document entry order stable.
type AuditWorker struct {
	recorder Recorder
	log      *logrus.Logger
	jobs     chan *models.AuditEntry
}

// NewAuditWorker creates an AuditWorker with the given queue capacity.
func NewAuditWorker(recorder Recorder, log *logrus.Logger, queueSize int) *AuditWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &AuditWorker{
		recorder: recorder,
		log:      log,
		jobs:     make(chan *models.AuditEntry, queueSize),
	}
}

// Enqueue adds an audit entry. Non-blocking; drops the entry if the queue
// is full.
func (w *AuditWorker) Enqueue(e *models.AuditEntry) {
	select {
	case w.jobs <- e:
		metrics.AuditQueueDepth.Set(float64(len(w.jobs)))
	default:
		metrics.AuditDropped.Inc()
		w.log.WithField("action", string(e.Action)).Warn("audit queue full, dropping entry")
	}
}

// Run processes audit entries until the context is cancelled, then drains
// remaining entries so a normal shutdown loses nothing.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case e := <-w.jobs:
			w.process(e)
		}
	}
}

func (w *AuditWorker) drain() {
	for {
		select {
		case e := <-w.jobs:
			w.process(e)
		default:
			return
		}
	}
}

func (w *AuditWorker) process(e *models.AuditEntry) {
	metrics.AuditQueueDepth.Set(float64(len(w.jobs)))

	if err := w.recorder.Record(context.Background(), e); err != nil {
		w.log.WithError(err).Warn("audit record failed")
	}
}
