// Package tags derives classification tags from object names and course attributes.
package tags

import (
	"regexp"
	"strings"

	"github.com/hpungsan/coursesync/internal/course"
)

var (
	bracketPattern = regexp.MustCompile(`[\[【]([^\]】]+)[\]】]`)
	hashPattern    = regexp.MustCompile(`#(\S+)`)
)

// Extract returns the bracketed ([...] or 【...】) and #hash tokens of name,
// with the extension stripped first. Order is first-seen, bracket tokens before hash tokens.
func Extract(name string) []string {
	base := course.StripExt(name)
	var found []string
	for _, m := range bracketPattern.FindAllStringSubmatch(base, -1) {
		found = append(found, m[1])
	}
	for _, m := range hashPattern.FindAllStringSubmatch(base, -1) {
		found = append(found, m[1])
	}
	return Union(found)
}

// ForCourse returns the course-level tags: metadata grade_level, domain_category
// and teacher_name, then the zh-TW grade, semester, unit and domain, skipping empties.
func ForCourse(c *course.Course) []string {
	var vals []string
	for _, k := range []string{"grade_level", "domain_category", "teacher_name"} {
		vals = append(vals, c.Metadata.String(k))
	}
	if zh, ok := c.I18n.Get("zh-TW"); ok {
		for _, k := range []string{"grade", "semester", "unit", "domain"} {
			vals = append(vals, zh.String(k))
		}
	}
	return Union(vals)
}

// Union concatenates the lists, trims each tag, drops empties and keeps the
// first occurrence of each tag. The result is never nil.
func Union(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
