package ops

import (
	"sort"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/pdfcache"
)

// CacheShowInput selects cached PDF text. Category and FileID narrow the result.
type CacheShowInput struct {
	Slug     string `json:"slug"`
	Category string `json:"category,omitempty"`
	FileID   string `json:"file_id,omitempty"`
}

// CacheShow returns the cached PDF text of one course. Asking for a category
// or file that has no cached text is NOT_FOUND.
func CacheShow(cache *pdfcache.Cache, input CacheShowInput) (pdfcache.Record, error) {
	var empty pdfcache.Record
	if input.Slug == "" {
		return empty, errors.NewInvalidRequest("slug is required")
	}
	if input.FileID != "" && input.Category == "" {
		return empty, errors.NewInvalidRequest("file_id requires category")
	}
	rec, err := cache.Load(input.Slug)
	if err != nil {
		return empty, err
	}
	if input.Category == "" {
		return rec, nil
	}

	files, ok := rec.Get(input.Category)
	if !ok {
		return empty, errors.NewNotFound(input.Slug + "/" + input.Category)
	}
	if input.FileID != "" {
		entry, ok := files.Get(input.FileID)
		if !ok {
			return empty, errors.NewNotFound(input.Slug + "/" + input.Category + "/" + input.FileID)
		}
		files = course.Object[pdfcache.Entry]{}
		files.Set(input.FileID, entry)
	}
	var out pdfcache.Record
	out.Set(input.Category, files)
	return out, nil
}

// CacheSummary counts the cached files of one course.
type CacheSummary struct {
	Slug       string         `json:"slug"`
	Files      int            `json:"files"`
	Categories map[string]int `json:"categories"`
}

// CacheList summarizes every course cache, ordered by slug. It honors
// SKIP_PDF_CACHE like the site build does.
func CacheList(cache *pdfcache.Cache) ([]CacheSummary, error) {
	all, err := cache.LoadAll()
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(all))
	for slug := range all {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	out := make([]CacheSummary, 0, len(slugs))
	for _, slug := range slugs {
		rec := all[slug]
		sum := CacheSummary{Slug: slug, Categories: map[string]int{}}
		for _, category := range rec.Keys() {
			files, _ := rec.Get(category)
			sum.Categories[category] = files.Len()
			sum.Files += files.Len()
		}
		out = append(out, sum)
	}
	return out, nil
}
