package app

import "quizwale-service/internal/domain"

const recentSubmissionCount = 10

// buildQuizStatistics summarizes submissions (newest first) of a quiz.
func buildQuizStatistics(quiz domain.Quiz, submissions []domain.Submission) domain.QuizStatistics {
	stats := domain.QuizStatistics{
		QuizID:         quiz.ID,
		Title:          quiz.Title,
		TotalQuestions: len(quiz.Questions),
		QuestionStats:  make([]domain.QuestionStats, len(quiz.Questions)),
	}

	for i, question := range quiz.Questions {
		qs := domain.QuestionStats{
			QuestionIndex: i,
			QuestionText:  question.QuestionText,
			CorrectAnswer: question.CorrectAnswer,
		}
		counts := make(map[string]int, len(question.Options))
		timeSum := 0
		for _, sub := range submissions {
			if i >= len(sub.Answers) {
				continue
			}
			answer := sub.Answers[i]
			qs.TotalAnswers++
			if answer.IsCorrect {
				qs.CorrectAnswers++
			}
			counts[answer.SelectedAnswer]++
			timeSum += answer.TimeSpent
		}
		qs.CorrectPercentage = percentage(qs.CorrectAnswers, qs.TotalAnswers)
		if qs.TotalAnswers > 0 {
			qs.AverageTimeSpent = float64(timeSum) / float64(qs.TotalAnswers)
		}
		qs.OptionCounts = make([]domain.OptionCount, len(question.Options))
		for j, option := range question.Options {
			qs.OptionCounts[j] = domain.OptionCount{
				Option:     option,
				Count:      counts[option],
				Percentage: percentage(counts[option], qs.TotalAnswers),
			}
		}
		stats.QuestionStats[i] = qs
	}

	overview := domain.QuizOverview{TotalParticipants: len(submissions)}
	if len(submissions) > 0 {
		var scoreSum, pctSum, timeSum int
		overview.HighestScore = submissions[0].Score
		overview.LowestScore = submissions[0].Score
		for _, sub := range submissions {
			scoreSum += sub.Score
			pctSum += sub.Percentage
			timeSum += sub.TimeSpent
			if sub.Score > overview.HighestScore {
				overview.HighestScore = sub.Score
			}
			if sub.Score < overview.LowestScore {
				overview.LowestScore = sub.Score
			}
		}
		n := float64(len(submissions))
		overview.AverageScore = float64(scoreSum) / n
		overview.AveragePercentage = float64(pctSum) / n
		overview.AverageTimeSpent = float64(timeSum) / n
	}
	stats.Overview = overview

	recent := submissions
	if len(recent) > recentSubmissionCount {
		recent = recent[:recentSubmissionCount]
	}
	stats.RecentSubmissions = make([]domain.RecentSubmission, len(recent))
	for i, sub := range recent {
		stats.RecentSubmissions[i] = domain.RecentSubmission{
			ID:          sub.ID,
			UserID:      sub.UserID,
			QuizID:      sub.QuizID,
			Score:       sub.Score,
			Percentage:  sub.Percentage,
			TimeSpent:   sub.TimeSpent,
			CompletedAt: sub.CompletedAt,
		}
	}
	return stats
}
