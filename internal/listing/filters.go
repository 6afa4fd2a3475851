package listing

import (
	"net/url"
	"strings"

	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

// Filters is the level/skill/search triple shown in the shareable URL
type Filters struct {
	Level  models.Level
	Skill  models.Skill
	Search string
}

// FilterKind names one of the three filters
type FilterKind string

const (
	FilterLevel  FilterKind = "level"
	FilterSkill  FilterKind = "skill"
	FilterSearch FilterKind = "search"
)

// FiltersFromValues reads filters from URL query values. Unknown levels and
// skills are ignored, as if the parameter were absent.
func FiltersFromValues(v url.Values) Filters {
	var f Filters
	if level, err := models.ParseLevel(v.Get("level")); err == nil {
		f.Level = level
	}
	if skill, err := models.ParseSkill(v.Get("skill")); err == nil {
		f.Skill = skill
	}
	f.Search = strings.TrimSpace(v.Get("search"))
	return f
}

// Values encodes the non-empty filters as URL query values
func (f Filters) Values() url.Values {
	v := url.Values{}
	if f.Level != "" {
		v.Set("level", string(f.Level))
	}
	if f.Skill != "" {
		v.Set("skill", string(f.Skill))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return v
}

// IsZero reports whether no filter is set
func (f Filters) IsZero() bool {
	return f.Level == "" && f.Skill == "" && f.Search == ""
}

// Without returns f with the given filter cleared
func (f Filters) Without(kind FilterKind) Filters {
	switch kind {
	case FilterLevel:
		f.Level = ""
	case FilterSkill:
		f.Skill = ""
	case FilterSearch:
		f.Search = ""
	}
	return f
}

func (f Filters) query(page, pageSize int) models.ListingQuery {
	return models.ListingQuery{
		Level:  f.Level,
		Skill:  f.Skill,
		Search: f.Search,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
}
