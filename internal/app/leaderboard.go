package app

import (
	"math"
	"sort"

	"quizwale-service/internal/domain"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// LeaderboardQuery is the caller-facing leaderboard request.
type LeaderboardQuery struct {
	Period domain.Period
	QuizID string
	Limit  int
}

// rankLeaderboard orders aggregates by best score (desc) then best time (asc),
// truncates to limit and assigns 1-based ranks.
func rankLeaderboard(aggregates []domain.UserAggregate, limit int) []domain.LeaderboardEntry {
	sorted := append([]domain.UserAggregate(nil), aggregates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RanksAbove(sorted[j])
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	entries := make([]domain.LeaderboardEntry, len(sorted))
	for i, agg := range sorted {
		entries[i] = domain.LeaderboardEntry{
			Rank:           i + 1,
			UserID:         agg.UserID,
			Name:           agg.Name,
			Email:          agg.Email,
			Avatar:         agg.Avatar,
			BestScore:      agg.BestScore,
			BestPercentage: agg.BestPercentage,
			TotalScore:     agg.TotalScore,
			AverageScore:   math.Round(agg.AverageScore*10) / 10,
			TotalQuizzes:   agg.TotalQuizzes,
			BestTime:       agg.BestTime,
			AverageTime:    int(math.Round(agg.AverageTime)),
			LastSubmission: agg.LastSubmission,
		}
	}
	return entries
}

func normalizeLimit(limit int) (int, error) {
	if limit == 0 {
		return defaultLeaderboardLimit, nil
	}
	if limit < 0 || limit > maxLeaderboardLimit {
		return 0, domain.Invalid("limit", "must be between 1 and %d", maxLeaderboardLimit)
	}
	return limit, nil
}
