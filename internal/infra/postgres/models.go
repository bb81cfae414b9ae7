package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quizwale-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID        string      `bun:"id,pk"`
	Data      domain.Quiz `bun:"data,type:jsonb"`
	IsActive  bool        `bun:"is_active"`
	CreatedAt time.Time   `bun:"created_at"`
}

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               string    `bun:"id,pk"`
	Email            string    `bun:"email"`
	PasswordHash     string    `bun:"password_hash"`
	Name             string    `bun:"name"`
	Role             string    `bun:"role"`
	Avatar           string    `bun:"avatar"`
	TotalScore       int       `bun:"total_score"`
	QuizzesCompleted int       `bun:"quizzes_completed"`
	CreatedAt        time.Time `bun:"created_at"`
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions,alias:s"`

	ID             string                `bun:"id,pk"`
	UserID         string                `bun:"user_id"`
	QuizID         string                `bun:"quiz_id"`
	Attempt        int                   `bun:"attempt"`
	Answers        []domain.AnswerRecord `bun:"answers,type:jsonb"`
	Score          int                   `bun:"score"`
	Percentage     int                   `bun:"percentage"`
	TotalQuestions int                   `bun:"total_questions"`
	TimeSpent      int                   `bun:"time_spent"`
	CompletedAt    time.Time             `bun:"completed_at"`
	Released       bool                  `bun:"is_released"`
	IPAddress      string                `bun:"ip_address"`
	UserAgent      string                `bun:"user_agent"`
}

type aggregateRow struct {
	UserID         string    `bun:"user_id"`
	Name           string    `bun:"name"`
	Email          string    `bun:"email"`
	Avatar         string    `bun:"avatar"`
	BestScore      int       `bun:"best_score"`
	BestPercentage int       `bun:"best_percentage"`
	TotalScore     int       `bun:"total_score"`
	AverageScore   float64   `bun:"average_score"`
	TotalQuizzes   int       `bun:"total_quizzes"`
	BestTime       int       `bun:"best_time"`
	AverageTime    float64   `bun:"average_time"`
	LastSubmission time.Time `bun:"last_submission"`
}

func toUserRow(u domain.User) userRow {
	return userRow{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		Name:             u.Name,
		Role:             string(u.Role),
		Avatar:           u.Avatar,
		TotalScore:       u.TotalScore,
		QuizzesCompleted: u.QuizzesCompleted,
		CreatedAt:        u.CreatedAt,
	}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:               r.ID,
		Email:            r.Email,
		PasswordHash:     r.PasswordHash,
		Name:             r.Name,
		Role:             domain.Role(r.Role),
		Avatar:           r.Avatar,
		TotalScore:       r.TotalScore,
		QuizzesCompleted: r.QuizzesCompleted,
		CreatedAt:        r.CreatedAt,
	}
}

func toSubmissionRow(s domain.Submission) submissionRow {
	answers := s.Answers
	if answers == nil {
		answers = []domain.AnswerRecord{}
	}
	return submissionRow{
		ID:             s.ID,
		UserID:         s.UserID,
		QuizID:         s.QuizID,
		Attempt:        s.Attempt,
		Answers:        answers,
		Score:          s.Score,
		Percentage:     s.Percentage,
		TotalQuestions: s.TotalQuestions,
		TimeSpent:      s.TimeSpent,
		CompletedAt:    s.CompletedAt,
		Released:       s.Released,
		IPAddress:      s.IPAddress,
		UserAgent:      s.UserAgent,
	}
}

func (r submissionRow) toDomain() domain.Submission {
	return domain.Submission{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		Attempt:        r.Attempt,
		Answers:        r.Answers,
		Score:          r.Score,
		Percentage:     r.Percentage,
		TotalQuestions: r.TotalQuestions,
		TimeSpent:      r.TimeSpent,
		CompletedAt:    r.CompletedAt,
		Released:       r.Released,
		IPAddress:      r.IPAddress,
		UserAgent:      r.UserAgent,
	}
}
