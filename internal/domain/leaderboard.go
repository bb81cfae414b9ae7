package domain

import "time"

// Period selects the leaderboard window.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all-time"
)

// ParsePeriod maps a query value to a Period; empty means all-time.
func ParsePeriod(raw string) (Period, error) {
	switch Period(raw) {
	case "", PeriodAllTime:
		return PeriodAllTime, nil
	case PeriodWeekly, PeriodMonthly:
		return Period(raw), nil
	}
	return "", Invalid("period", "must be one of weekly, monthly, all-time")
}

// Since returns the window start relative to now, or false for all-time.
func (p Period) Since(now time.Time) (time.Time, bool) {
	switch p {
	case PeriodWeekly:
		return now.Add(-7 * 24 * time.Hour), true
	case PeriodMonthly:
		return now.Add(-30 * 24 * time.Hour), true
	}
	return time.Time{}, false
}

// LeaderboardFilter narrows which submissions are aggregated. Limit > 0 lets
// the store return only the top rows in RanksAbove order.
type LeaderboardFilter struct {
	Since  *time.Time
	QuizID string
	Limit  int
}

// UserAggregate holds per-user statistics over the filtered submissions.
type UserAggregate struct {
	UserID         string
	Name           string
	Email          string
	Avatar         string
	BestScore      int
	BestPercentage int
	TotalScore     int
	AverageScore   float64
	TotalQuizzes   int
	BestTime       int
	AverageTime    float64
	LastSubmission time.Time
}

// RanksAbove orders aggregates by best score desc, then best time asc, then
// user ID.
func (a UserAggregate) RanksAbove(b UserAggregate) bool {
	if a.BestScore != b.BestScore {
		return a.BestScore > b.BestScore
	}
	if a.BestTime != b.BestTime {
		return a.BestTime < b.BestTime
	}
	return a.UserID < b.UserID
}

// UserTotal is the summed score of every submission a user made.
type UserTotal struct {
	UserID      string
	TotalScore  int
	Submissions int
}

// LeaderboardEntry is a ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank           int       `json:"rank"`
	UserID         string    `json:"userId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Avatar         string    `json:"avatar"`
	BestScore      int       `json:"bestScore"`
	BestPercentage int       `json:"bestPercentage"`
	TotalScore     int       `json:"totalScore"`
	AverageScore   float64   `json:"averageScore"`
	TotalQuizzes   int       `json:"totalQuizzes"`
	BestTime       int       `json:"bestTime"`
	AverageTime    int       `json:"averageTime"`
	LastSubmission time.Time `json:"lastSubmission"`
}

// Leaderboard is the ranked response for a period and optional quiz.
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"leaderboard"`
	Period  Period             `json:"period"`
	QuizID  string             `json:"quizId,omitempty"`
}
