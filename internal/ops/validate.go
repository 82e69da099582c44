package ops

import (
	"fmt"
	"strings"

	"github.com/hpungsan/coursesync/internal/course"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/store"
)

// Locales every record must carry.
var requiredLocales = []string{"zh-TW", "en-US"}

// requiredLocaleFields must be non-empty strings in every required locale.
var requiredLocaleFields = []string{"title", "grade", "semester", "unit", "domain", "teacher", "overview"}

// recommendedMetadata is reported as a warning when missing.
var recommendedMetadata = []string{"grade_level", "domain_category", "teacher_name"}

const learningObjectives = "learningObjectives"

// Issue is one validation finding.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// CourseReport is the validation result for one course file.
type CourseReport struct {
	File     string  `json:"file"`
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// ValidateOutput summarizes a validation batch.
type ValidateOutput struct {
	Reports  []CourseReport `json:"reports"`
	Valid    int            `json:"valid"`
	Invalid  int            `json:"invalid"`
	Warnings int            `json:"warnings"`
}

// ValidateCourse checks a record against the material/docs schema. Errors make
// the record invalid; warnings do not.
func ValidateCourse(c *course.Course) (errs, warnings []Issue) {
	v := &validator{errs: []Issue{}, warnings: []Issue{}}

	for _, k := range c.UnknownKeys() {
		v.err(k, "unknown root key")
	}
	if c.Slug == "" {
		v.err(course.KeySlug, "missing slug")
	}

	v.i18n(c)

	for _, f := range recommendedMetadata {
		if !c.Metadata.IsString(f) {
			v.warn("metadata."+f, "missing metadata field")
		}
	}

	for _, category := range c.Material.Keys() {
		if !IsKnownCategory(category) {
			v.warn("material."+category, "unknown material category")
		}
		entries, _ := c.Material.Get(category)
		for i, e := range entries {
			course.Visit[struct{}](e.Source, &entryValidator{v: v, field: fmt.Sprintf("material.%s[%d]", category, i)})
		}
	}

	for _, category := range c.PassThroughKeys(course.KeyMaterial) {
		if !strings.HasPrefix(category, course.CommentPrefix) {
			v.warn("material."+category, "not an entry list, left untouched by sync")
		}
	}

	for _, key := range c.Docs.Keys() {
		d, _ := c.Docs.Get(key)
		field := "docs." + key
		switch {
		case d == nil:
			v.err(field, "document entry is null")
		case d.Type == course.DocTypeManual:
		case d.Type != course.DocTypeGoogleDoc:
			v.warn(field+".type", fmt.Sprintf("unknown document type %q", d.Type))
			fallthrough
		default:
			if !course.IsDriveID(d.ID) {
				v.err(field+".id", fmt.Sprintf("invalid drive id %q", d.ID))
			}
		}
	}
	for _, key := range c.PassThroughKeys(course.KeyDocs) {
		if !strings.HasPrefix(key, course.CommentPrefix) {
			v.err("docs."+key, "document entry is not an object")
		}
	}
	return v.errs, v.warnings
}

type validator struct {
	errs     []Issue
	warnings []Issue
}

func (v *validator) err(field, msg string)  { v.errs = append(v.errs, Issue{field, msg}) }
func (v *validator) warn(field, msg string) { v.warnings = append(v.warnings, Issue{field, msg}) }

func (v *validator) i18n(c *course.Course) {
	lengths := map[string]int{}
	for _, lang := range requiredLocales {
		fields, ok := c.I18n.Get(lang)
		if !ok || fields.Len() == 0 {
			v.err("i18n."+lang, "missing locale")
			continue
		}
		for _, f := range requiredLocaleFields {
			if !fields.IsString(f) {
				v.err(fmt.Sprintf("i18n.%s.%s", lang, f), "missing or invalid required field")
			}
		}
		if !fields.Has(learningObjectives) {
			continue
		}
		n, ok := fields.IsArray(learningObjectives)
		if !ok {
			v.err(fmt.Sprintf("i18n.%s.%s", lang, learningObjectives), "must be an array")
			continue
		}
		lengths[lang] = n
	}

	zh, hasZh := lengths["zh-TW"]
	en, hasEn := lengths["en-US"]
	switch {
	case hasZh && hasEn && zh != en:
		v.warn("i18n."+learningObjectives, "array lengths differ across locales")
	case hasZh != hasEn:
		v.warn("i18n."+learningObjectives, "present in one locale only")
	}
}

// entryValidator checks the id format of one material entry.
type entryValidator struct {
	v     *validator
	field string
}

func (e *entryValidator) DriveFolder(s course.DriveFolder) struct{} {
	e.driveID(s.ID)
	return struct{}{}
}

func (e *entryValidator) DriveFile(s course.DriveFile) struct{} {
	e.driveID(s.ID)
	return struct{}{}
}

func (e *entryValidator) YouTube(s course.YouTube) struct{} {
	if !course.IsVideoID(s.ID) {
		e.v.err(e.field+".id", fmt.Sprintf("invalid video id %q", s.ID))
	}
	return struct{}{}
}

func (e *entryValidator) Manual(s course.Manual) struct{} {
	if s.RawType != "" {
		e.v.warn(e.field+".type", fmt.Sprintf("unknown material type %q, treated as manual", s.RawType))
	}
	return struct{}{}
}

func (e *entryValidator) driveID(id string) {
	if !course.IsDriveID(id) {
		e.v.err(e.field+".id", fmt.Sprintf("invalid drive id %q", id))
	}
}

// Validate checks one course file. A file that cannot be parsed is reported
// as invalid rather than returned as an error.
func Validate(s store.Store, name string) (CourseReport, error) {
	report := CourseReport{File: name, Errors: []Issue{}, Warnings: []Issue{}}
	c, err := s.Load(name)
	switch {
	case errors.Is(err, errors.ErrParseFailed):
		report.Errors = append(report.Errors, Issue{Message: err.Error()})
		return report, nil
	case err != nil:
		return report, err
	}
	report.Errors, report.Warnings = ValidateCourse(c)
	report.Valid = len(report.Errors) == 0
	return report, nil
}

// ValidateAll checks every course file in the store.
func ValidateAll(s store.Store) (*ValidateOutput, error) {
	names, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errNoCourses()
	}
	out := &ValidateOutput{Reports: make([]CourseReport, 0, len(names))}
	for _, name := range names {
		report, err := Validate(s, name)
		if err != nil {
			return nil, err
		}
		if report.Valid {
			out.Valid++
		} else {
			out.Invalid++
		}
		out.Warnings += len(report.Warnings)
		out.Reports = append(out.Reports, report)
	}
	return out, nil
}
