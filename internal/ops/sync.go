package ops

import (
	"context"

	"github.com/hpungsan/coursesync/internal/db"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/tags"
)

// SyncInput selects the course files to synchronize. Empty means every
// course file in the store.
type SyncInput struct {
	Files []string `json:"files,omitempty"`
}

// CourseResult is the outcome of synchronizing one course file.
type CourseResult struct {
	File     string        `json:"file"`
	Slug     string        `json:"slug,omitempty"`
	BackedUp bool          `json:"backed_up"`
	Material []EntryResult `json:"material"`
	Docs     []DocResult   `json:"docs"`
	Error    string        `json:"error,omitempty"`
}

// SyncOutput summarizes a batch run.
type SyncOutput struct {
	RunID   string         `json:"run_id"`
	Courses []CourseResult `json:"courses"`
	Synced  int            `json:"synced"`
	Failed  int            `json:"failed"`
}

// Sync synchronizes every selected course file, one at a time. A failing
// file is reported in the output and the batch moves on to the next one.
// Finding no course files at all is NOT_FOUND. Selected files must be
// course_*.json records other than the template.
func (s *Syncer) Sync(ctx context.Context, input SyncInput) (*SyncOutput, error) {
	files := input.Files
	for _, name := range files {
		if err := s.store.Selectable(name); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		listed, err := s.store.List()
		if err != nil {
			return nil, err
		}
		files = listed
	}
	if len(files) == 0 {
		return nil, errNoCourses()
	}

	r := s.startRun(KindSync)
	out := &SyncOutput{RunID: r.id, Courses: make([]CourseResult, 0, len(files))}
	s.log.Info("sync started", "run_id", r.id, "courses", len(files))

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			r.finish(len(out.Courses), out.Failed)
			return out, err
		}
		res, err := s.syncCourse(ctx, r, name)
		if err != nil {
			s.log.Error("course sync failed", "file", name, "error", err)
			res.Error = err.Error()
			out.Failed++
			r.event(db.Event{Course: name, Scope: db.ScopeCourse, Outcome: outcomeFor(err), Detail: err.Error()})
		} else {
			out.Synced++
			r.event(db.Event{Course: name, Scope: db.ScopeCourse, Outcome: db.OutcomeSynced})
		}
		out.Courses = append(out.Courses, res)
	}

	r.finish(len(out.Courses), out.Failed)
	s.log.Info("sync finished", "run_id", r.id, "synced", out.Synced, "failed", out.Failed)
	return out, nil
}

// SyncCourse synchronizes a single course file outside of any batch run.
func (s *Syncer) SyncCourse(ctx context.Context, name string) (CourseResult, error) {
	return s.syncCourse(ctx, nil, name)
}

// syncCourse backs up, loads, synchronizes and saves one record. The record
// is written once, after it is fully built in memory. No write happens
// unless a backup exists.
func (s *Syncer) syncCourse(ctx context.Context, r *run, name string) (CourseResult, error) {
	res := CourseResult{File: name, Material: []EntryResult{}, Docs: []DocResult{}}
	log := s.log.With("file", name)

	written, err := s.store.Backup(name)
	if err != nil {
		return res, err
	}
	res.BackedUp = written
	if written {
		log.Info("backed up course record")
	} else {
		log.Debug("backup exists, skipping backup step")
	}

	c, err := s.store.Load(name)
	if err != nil {
		return res, err
	}
	res.Slug = c.Slug
	courseTags := tags.ForCourse(c)

	c.Material, res.Material = s.syncMaterial(ctx, r, name, c.Slug, c.Material, courseTags)
	c.Docs, res.Docs = s.syncDocs(ctx, r, name, c.Docs)

	if err := s.store.Save(name, c); err != nil {
		return res, err
	}
	log.Info("updated course record", "slug", c.Slug)
	return res, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, errors.ErrParseFailed):
		return db.OutcomeParseFailed
	case errors.Is(err, errors.ErrListingFailed):
		return db.OutcomeListingFailed
	default:
		return db.OutcomeFetchFailed
	}
}
