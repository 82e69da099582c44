package ops

import (
	"context"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/db"
	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/tags"
)

// EntryResult is the outcome of synchronizing one material entry.
type EntryResult struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Outcome  string `json:"outcome"`
	Items    int    `json:"items"`
	Detail   string `json:"detail,omitempty"`
}

// SyncMaterial returns a synchronized copy of material. The input is not
// modified and no output entry shares slices with it. Drive-backed entries
// whose fetch fails keep their previous items. When slug is non-empty, PDF
// text is extracted for every PDF-bearing item that was freshly synchronized.
func (s *Syncer) SyncMaterial(ctx context.Context, slug string, material course.Object[[]course.MaterialEntry], courseTags []string) (course.Object[[]course.MaterialEntry], []EntryResult) {
	return s.syncMaterial(ctx, nil, "", slug, material, courseTags)
}

func (s *Syncer) syncMaterial(ctx context.Context, r *run, file, slug string, material course.Object[[]course.MaterialEntry], courseTags []string) (course.Object[[]course.MaterialEntry], []EntryResult) {
	var out course.Object[[]course.MaterialEntry]
	results := []EntryResult{}

	for _, category := range material.Keys() {
		entries, _ := material.Get(category)
		if entries == nil {
			out.Set(category, nil)
			continue
		}
		synced := make([]course.MaterialEntry, 0, len(entries))
		for i, entry := range entries {
			v := &entrySync{
				s:          s,
				ctx:        ctx,
				category:   category,
				entry:      entry,
				courseTags: courseTags,
			}
			res := course.Visit[entryOutcome](entry.Source, v)
			synced = append(synced, res.entry)

			result := EntryResult{
				Category: category,
				Index:    i,
				Type:     sourceType(entry.Source),
				ID:       sourceID(entry.Source),
				Outcome:  res.outcome,
				Items:    len(res.entry.Items),
				Detail:   res.detail,
			}
			results = append(results, result)
			r.event(db.Event{
				Course:   file,
				Scope:    db.ScopeMaterial,
				Key:      category,
				RemoteID: result.ID,
				Outcome:  result.Outcome,
				Items:    result.Items,
				Detail:   result.Detail,
			})

			if res.outcome == db.OutcomeSynced && slug != "" {
				s.extractPDFs(ctx, r, file, slug, category, res.entry.Items)
			}
		}
		out.Set(category, synced)
	}
	return out, results
}

// extractPDFs caches the text of PDF-bearing items, pausing after each attempt.
func (s *Syncer) extractPDFs(ctx context.Context, r *run, file, slug, category string, items []course.Item) {
	if s.extractor == nil || s.cache == nil {
		return
	}
	for _, it := range items {
		if it.ID == "" || !(it.MimeType == course.MimePDF || IsPDFCategory(category)) {
			continue
		}
		s.log.Info("extracting pdf text", "course", slug, "category", category, "file_id", it.ID, "name", it.Name)

		outcome := db.OutcomeSkipped
		if text, ok := s.extractor.ExtractText(ctx, it.ID, it.Name); ok {
			if err := s.cache.Put(slug, category, it.ID, it.Name, text); err != nil {
				s.log.Warn("pdf cache write failed", "course", slug, "category", category, "file_id", it.ID, "error", err)
				outcome = db.OutcomeFetchFailed
			} else {
				outcome = db.OutcomeCached
			}
		}
		r.event(db.Event{Course: file, Scope: db.ScopePDF, Key: category, RemoteID: it.ID, Outcome: outcome})

		if err := s.sleep(ctx, s.extractDelay); err != nil {
			return
		}
	}
}

// entryOutcome is what synchronizing one entry produced.
type entryOutcome struct {
	entry   course.MaterialEntry
	outcome string
	detail  string
}

// entrySync synchronizes one material entry according to its source variant.
type entrySync struct {
	s          *Syncer
	ctx        context.Context
	category   string
	entry      course.MaterialEntry
	courseTags []string
}

var _ course.SourceVisitor[entryOutcome] = (*entrySync)(nil)

// keep returns the entry unchanged (as a deep copy).
func (v *entrySync) keep(outcome, detail string) entryOutcome {
	return entryOutcome{entry: v.entry.Clone(), outcome: outcome, detail: detail}
}

func (v *entrySync) DriveFolder(src course.DriveFolder) entryOutcome {
	log := v.s.log.With("category", v.category, "folder_id", src.ID)
	if src.ID == "" {
		log.Warn("drive-folder entry has no id, skipping")
		return v.keep(db.OutcomeSkipped, "missing id")
	}

	log.Info("syncing material folder")
	objects, err := v.s.remote.ListFolder(v.ctx, src.ID)
	if err != nil {
		status := 0
		if sErr, ok := errors.As(err); ok {
			status = sErr.Status
		}
		log.Warn("folder listing failed, keeping previous items", "status", status, "error", err)
		return v.keep(db.OutcomeListingFailed, err.Error())
	}

	prior := priorTags(v.entry.Items)
	items := []course.Item{}
	skipped := 0
	for _, o := range objects {
		if o.ID == "" || !Accepts(v.category, o.MimeType) {
			skipped++
			continue
		}
		itemTags := tags.Union(prior[o.ID], tags.Extract(displayName(o)), v.courseTags)
		items = append(items, course.NewItem(o.ID, displayName(o), o.MimeType, itemTags))
	}
	log.Info("synced material folder", "items", len(items), "excluded", skipped)

	out := v.entry.Clone()
	out.Items = items
	out.LastSynced = course.Timestamp(v.s.now())
	return entryOutcome{entry: out, outcome: db.OutcomeSynced}
}

func (v *entrySync) DriveFile(src course.DriveFile) entryOutcome {
	log := v.s.log.With("category", v.category, "file_id", src.ID)
	if src.ID == "" {
		log.Warn("drive-file entry has no id, skipping")
		return v.keep(db.OutcomeSkipped, "missing id")
	}

	log.Info("syncing material file")
	meta, err := v.s.remote.GetMetadata(v.ctx, src.ID)
	if err != nil {
		log.Warn("file metadata fetch failed, keeping previous items", "error", err)
		return v.keep(db.OutcomeFetchFailed, err.Error())
	}

	prior := priorTags(v.entry.Items)
	itemTags := tags.Union(tags.Extract(displayName(meta)), prior[meta.ID], v.entry.Tags, v.courseTags)

	out := v.entry.Clone()
	out.Items = []course.Item{course.NewItem(meta.ID, displayName(meta), meta.MimeType, itemTags)}
	out.LastSynced = course.Timestamp(v.s.now())
	return entryOutcome{entry: out, outcome: db.OutcomeSynced}
}

// YouTube entries are not verified remotely.
func (v *entrySync) YouTube(course.YouTube) entryOutcome {
	return v.keep(db.OutcomeUnchanged, "")
}

// Manual entries belong to the curator.
func (v *entrySync) Manual(course.Manual) entryOutcome {
	return v.keep(db.OutcomeUnchanged, "")
}

// priorTags indexes the tags of previously persisted items by id.
func priorTags(items []course.Item) map[string][]string {
	out := make(map[string][]string, len(items))
	for _, it := range items {
		if it.ID != "" && len(it.Tags) > 0 {
			out[it.ID] = it.Tags
		}
	}
	return out
}

func displayName(o drive.Object) string {
	if o.Name == "" {
		return o.ID
	}
	return o.Name
}

func sourceType(src course.Source) string {
	if src == nil {
		return course.TypeManual
	}
	return src.Type()
}

func sourceID(src course.Source) string {
	if src == nil {
		return ""
	}
	return src.RemoteID()
}
