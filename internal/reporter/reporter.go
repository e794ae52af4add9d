// Package reporter periodically drains the sighting journal into the
// directory's batch reporting endpoint.
package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"gridlink.unit/gridlink/internal/grid"
	"gridlink.unit/gridlink/internal/metrics"
	"gridlink.unit/gridlink/internal/types"
)

// Directory is the part of the grid client the reporter needs.
type Directory interface {
	Authenticated() bool
	ReportAPs(ctx context.Context, aps []types.AccessPoint) (json.RawMessage, error)
}

// Store is the part of the journal the reporter needs.
type Store interface {
	Pending(limit int) ([]types.Sighting, error)
	MarkReported(sent []types.Sighting) error
}

// notifier is implemented by stores that signal newly pending sightings.
type notifier interface {
	Updates() <-chan struct{}
	PendingCount() (int, error)
}

// Reporter flushes pending sightings in batches. A failed batch stays
// pending and is picked up on the next tick.
type Reporter struct {
	interval time.Duration
	batch    int
	dir      Directory
	store    Store
	log      *logrus.Entry
	metrics  *metrics.Metrics

	flushMu sync.Mutex
}

// New constructs a Reporter. m may be nil.
func New(interval time.Duration, batch int, dir Directory, store Store, log *logrus.Entry, m *metrics.Metrics) *Reporter {
	if batch <= 0 {
		batch = 50
	}
	return &Reporter{
		interval: interval,
		batch:    batch,
		dir:      dir,
		store:    store,
		log:      log.WithField("component", "reporter"),
		metrics:  m,
	}
}

// Run flushes immediately and then on every tick until ctx is done. When the
// store signals updates, a full batch is flushed without waiting for the tick.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var updates <-chan struct{}
	n, watch := r.store.(notifier)
	if watch {
		updates = n.Updates()
	}

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		case <-updates:
			if count, err := n.PendingCount(); err == nil && count >= r.batch {
				r.tick(ctx)
			}
		}
	}
}

func (r *Reporter) tick(ctx context.Context) {
	n, err := r.Flush(ctx)
	switch {
	case errors.Is(err, grid.ErrSessionRequired):
		r.log.Debug("not enrolled, skipping report")
	case err != nil:
		r.log.WithError(err).WithField("reported", n).Warn("report flush failed")
	case n > 0:
		r.log.WithField("reported", n).Info("reported sightings")
	}
}

// Flush sends pending sightings batch by batch until none remain or a batch
// fails. It returns how many sightings the directory accepted.
func (r *Reporter) Flush(ctx context.Context) (int, error) {
	if !r.dir.Authenticated() {
		return 0, grid.ErrSessionRequired
	}

	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		pending, err := r.store.Pending(r.batch)
		if err != nil {
			return total, err
		}
		if len(pending) == 0 {
			return total, nil
		}

		aps := make([]types.AccessPoint, len(pending))
		for i, s := range pending {
			aps[i] = s.AccessPoint()
		}

		if _, err := r.dir.ReportAPs(ctx, aps); err != nil {
			r.metrics.FlushFailed()
			return total, err
		}
		if err := r.store.MarkReported(pending); err != nil {
			return total, err
		}
		total += len(pending)
		r.metrics.SightingsReported(len(pending))

		if len(pending) < r.batch {
			return total, nil
		}
	}
}
