package domain

import "time"

type OptionCount struct {
	Option     string `json:"option"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type QuestionStats struct {
	QuestionIndex     int           `json:"questionIndex"`
	QuestionText      string        `json:"questionText"`
	CorrectAnswer     string        `json:"correctAnswer"`
	TotalAnswers      int           `json:"totalAnswers"`
	CorrectAnswers    int           `json:"correctAnswers"`
	CorrectPercentage int           `json:"correctPercentage"`
	OptionCounts      []OptionCount `json:"optionCounts"`
	AverageTimeSpent  float64       `json:"averageTimeSpent"`
}

type QuizOverview struct {
	TotalParticipants int     `json:"totalParticipants"`
	AverageScore      float64 `json:"averageScore"`
	AveragePercentage float64 `json:"averagePercentage"`
	AverageTimeSpent  float64 `json:"averageTimeSpent"`
	HighestScore      int     `json:"highestScore"`
	LowestScore       int     `json:"lowestScore"`
}

type RecentSubmission struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	Score       int       `json:"score"`
	Percentage  int       `json:"percentage"`
	TimeSpent   int       `json:"timeSpent"`
	CompletedAt time.Time `json:"completedAt"`
}

// QuizStatistics is the admin view of how a quiz has been answered.
type QuizStatistics struct {
	QuizID            string             `json:"quizId"`
	Title             string             `json:"title"`
	TotalQuestions    int                `json:"totalQuestions"`
	Overview          QuizOverview       `json:"overview"`
	QuestionStats     []QuestionStats    `json:"questionStats"`
	RecentSubmissions []RecentSubmission `json:"recentSubmissions"`
}

// PlatformOverview counts the main collections.
type PlatformOverview struct {
	TotalUsers            int `json:"totalUsers"`
	TotalQuizzes          int `json:"totalQuizzes"`
	TotalSubmissions      int `json:"totalSubmissions"`
	AverageQuizzesPerUser int `json:"averageQuizzesPerUser"`
}

// UserStats is the dashboard view for one caller. Rank is the caller's
// position among all users by summed score; 0 when anonymous or unranked.
type UserStats struct {
	Participants      int                `json:"participants"`
	TotalQuizzes      int                `json:"totalQuizzes"`
	TotalSubmissions  int                `json:"totalSubmissions"`
	TotalScore        int                `json:"totalScore"`
	AverageScore      float64            `json:"averageScore"`
	Rank              int                `json:"rank"`
	RecentSubmissions []RecentSubmission `json:"recentSubmissions"`
}
