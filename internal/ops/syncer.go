package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/coursesync/internal/db"
	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/logger"
	"github.com/hpungsan/coursesync/internal/pdfcache"
	"github.com/hpungsan/coursesync/internal/store"
)

// SyncerOptions carries the collaborators of a Syncer. Remote and Store are required.
type SyncerOptions struct {
	Remote drive.Remote
	Store  store.Store
	// Cache receives extracted PDF text. Nil disables extraction.
	Cache *pdfcache.Cache
	// Journal records runs and per-entry outcomes. Nil disables recording.
	Journal *sql.DB
	Logger  *logger.Logger
	// ExtractDelay is the pause after each PDF text extraction attempt.
	ExtractDelay time.Duration
}

// Syncer runs the synchronization pipeline. Courses, categories, entries and
// documents are processed one at a time, in record order.
type Syncer struct {
	remote       drive.Remote
	store        store.Store
	cache        *pdfcache.Cache
	extractor    *pdfcache.Extractor
	journal      *sql.DB
	log          *logger.Logger
	extractDelay time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewSyncer creates a Syncer.
func NewSyncer(opts SyncerOptions) *Syncer {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	s := &Syncer{
		remote:       opts.Remote,
		store:        opts.Store,
		cache:        opts.Cache,
		journal:      opts.Journal,
		log:          log,
		extractDelay: opts.ExtractDelay,
		now:          time.Now,
		sleep:        drive.Sleep,
	}
	if opts.Cache != nil {
		s.extractor = pdfcache.NewExtractor(opts.Remote, log)
	}
	return s
}

// run tracks one batch invocation in the journal. Journal failures are logged, never returned.
type run struct {
	id      string
	journal *sql.DB
	log     *logger.Logger
}

func (s *Syncer) startRun(kind string) *run {
	r := &run{id: ulid.Make().String(), journal: s.journal, log: s.log}
	if r.journal != nil {
		if err := db.InsertRun(r.journal, r.id, kind, s.now().Unix()); err != nil {
			r.log.Warn("journal write failed", "run_id", r.id, "error", err)
			r.journal = nil
		}
	}
	return r
}

func (r *run) event(e db.Event) {
	if r == nil || r.journal == nil {
		return
	}
	e.RunID = r.id
	if err := db.InsertEvent(r.journal, &e); err != nil {
		r.log.Warn("journal write failed", "run_id", r.id, "error", err)
	}
}

func (r *run) finish(courses, failed int) {
	if r == nil || r.journal == nil {
		return
	}
	status := db.StatusOK
	switch {
	case courses > 0 && failed == courses:
		status = db.StatusFailed
	case failed > 0:
		status = db.StatusPartial
	}
	if err := db.FinishRun(r.journal, r.id, status, courses, failed); err != nil {
		r.log.Warn("journal write failed", "run_id", r.id, "error", err)
	}
}
