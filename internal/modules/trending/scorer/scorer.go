// Package scorer ranks catalog titles by a weighted trending signal built from
// recent view events, with a lifetime-views fallback and a recency bonus for
// new uploads. It is pure: callers supply the clock and the data.
package scorer

import (
	"math"
	"sort"
	"time"
)

const (
	DefaultLimit = 50

	velocityWeight = 50.0
	weeklyWeight   = 2.0
	todayWeight    = 10.0
	fallbackWeight = 0.5

	bonusWindowDays   = 7
	bonusPerDay       = 5.0
	missingUploadDays = 30

	day  = 24 * time.Hour
	week = 7 * day
)

// Movie is the subset of a catalog record the scorer reads.
// A zero UploadDate means the upload date is unknown.
type Movie struct {
	ID         string
	Views      int64
	UploadDate time.Time
}

// History is a title's view signal: the raw event timestamps covering at
// least the last seven days, and the count of every event ever recorded
// (raw plus rolled up).
type History struct {
	Events []time.Time
	Total  int64
}

// Stats is the derived trending data for one title.
type Stats struct {
	MovieID        string  `json:"movieId"`
	TotalViews     int64   `json:"totalViews"`
	WeeklyViews    int     `json:"weeklyViews"`
	TodayViews     int     `json:"todayViews"`
	Last24h        int     `json:"last24h"`
	RecentVelocity float64 `json:"recentVelocity"`
	TrendingScore  float64 `json:"trendingScore"`
	RecencyBonus   float64 `json:"recencyBonus"`
	FinalScore     float64 `json:"finalScore"`
	LifetimeViews  int64   `json:"lifetimeViews"`
}

// Ranked pairs a title's stats with its position in the input slice.
type Ranked struct {
	Index int
	Stats Stats
}

type Scorer struct {
	loc   *time.Location
	limit int
}

// New builds a scorer. "Today" starts at local midnight in loc; limit <= 0 means DefaultLimit.
func New(loc *time.Location, limit int) *Scorer {
	if loc == nil {
		loc = time.UTC
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Scorer{loc: loc, limit: limit}
}

// Stats scores a single title at now.
func (s *Scorer) Stats(m Movie, h History, now time.Time) Stats {
	views := m.Views
	if views < 0 {
		views = 0
	}

	st := Stats{
		MovieID:       m.ID,
		LifetimeViews: views,
		TotalViews:    h.Total,
	}
	if int64(len(h.Events)) > st.TotalViews {
		st.TotalViews = int64(len(h.Events))
	}

	dayAgo := now.Add(-day)
	weekAgo := now.Add(-week)
	local := now.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)

	for _, t := range h.Events {
		if t.After(now) {
			t = now
		}
		if t.After(dayAgo) {
			st.Last24h++
		}
		if t.After(weekAgo) {
			st.WeeklyViews++
		}
		if !t.Before(midnight) {
			st.TodayViews++
		}
	}

	if st.TotalViews == 0 {
		st.TrendingScore = float64(views) * fallbackWeight
	} else {
		st.RecentVelocity = float64(st.Last24h) / 24
		st.TrendingScore = st.RecentVelocity*velocityWeight +
			float64(st.WeeklyViews)*weeklyWeight +
			float64(st.TodayViews)*todayWeight
	}

	st.RecencyBonus = RecencyBonus(m.UploadDate, now)
	st.FinalScore = st.TrendingScore + st.RecencyBonus

	return st
}

// Rank scores every title, drops those with no signal at all, and returns
// the top entries by final score. Ties go to the title with more lifetime
// views, then to input order.
func (s *Scorer) Rank(movies []Movie, histories map[string]History, now time.Time) []Ranked {
	ranked := make([]Ranked, 0, len(movies))
	for i, m := range movies {
		st := s.Stats(m, histories[m.ID], now)
		if st.FinalScore <= 0 && st.LifetimeViews <= 0 {
			continue
		}
		ranked = append(ranked, Ranked{Index: i, Stats: st})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Stats, ranked[j].Stats
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		return a.LifetimeViews > b.LifetimeViews
	})

	if len(ranked) > s.limit {
		ranked = ranked[:s.limit]
	}
	return ranked
}

// DaysSinceUpload returns whole days elapsed since upload, never negative.
// An unknown upload date counts as 30 days old.
func DaysSinceUpload(upload, now time.Time) int {
	if upload.IsZero() {
		return missingUploadDays
	}
	elapsed := now.Sub(upload)
	if elapsed <= 0 {
		return 0
	}
	return int(math.Floor(elapsed.Hours() / 24))
}

// RecencyBonus is 5 points per day remaining in the first week after upload.
func RecencyBonus(upload, now time.Time) float64 {
	days := DaysSinceUpload(upload, now)
	if days >= bonusWindowDays {
		return 0
	}
	return float64(bonusWindowDays-days) * bonusPerDay
}
