// Package planner turns a list of interests into scheduled activity
// suggestions.
package planner

import (
	"sort"
	"time"
)

const (
	defaultConfidence = 0.85
	defaultLead       = time.Hour
)

// Preferences describe what the user wants to do.
type Preferences struct {
	Interests       []string `json:"interests" validate:"required,min=1,dive,required"`
	DurationMinutes int      `json:"duration_minutes" validate:"gt=0"`
	Location        string   `json:"location" validate:"required"`
}

// Suggestion is one proposed activity.
type Suggestion struct {
	Type            string    `json:"type"`
	DurationMinutes int       `json:"duration_minutes"`
	Location        string    `json:"location"`
	RecommendedTime time.Time `json:"recommended_time"`
	Confidence      float64   `json:"confidence"`
}

// Planner builds suggestions relative to its clock.
type Planner struct {
	now func() time.Time
}

// New returns a Planner on the wall clock.
func New() *Planner {
	return &Planner{now: time.Now}
}

// Suggest proposes one activity per interest, an hour from now, ordered by
// recommended time.
func (p *Planner) Suggest(prefs Preferences) []Suggestion {
	start := p.now().Add(defaultLead)
	out := make([]Suggestion, 0, len(prefs.Interests))
	for _, interest := range prefs.Interests {
		out = append(out, Suggestion{
			Type:            interest,
			DurationMinutes: prefs.DurationMinutes,
			Location:        prefs.Location,
			RecommendedTime: start,
			Confidence:      defaultConfidence,
		})
	}
	return Optimize(out)
}

// Optimize orders suggestions by recommended time. Unscheduled ones go last.
// The sort is stable so ties keep their input order.
func Optimize(s []Suggestion) []Suggestion {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := s[i].RecommendedTime, s[j].RecommendedTime
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.Before(b)
	})
	return s
}
