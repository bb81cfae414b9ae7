package domain

import (
	"strings"
	"time"
)

// Role separates administrators from regular quiz takers.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Difficulty is the author-assigned quiz difficulty.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Identity is the authenticated caller resolved from a session token.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Question models a multiple choice question embedded in a quiz.
// CorrectAnswer always matches one of Options.
type Question struct {
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Quiz is a timed, ordered collection of questions.
type Quiz struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Duration        int        `json:"duration"` // seconds
	Questions       []Question `json:"questions"`
	Difficulty      Difficulty `json:"difficulty"`
	Tags            []string   `json:"tags"`
	IsActive        bool       `json:"isActive"`
	MaxAttempts     int        `json:"maxAttempts"` // <= 0 means unlimited
	CreatedBy       string     `json:"createdBy"`
	Rating          float64    `json:"rating"`
	ResultsReleased bool       `json:"resultsReleased"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Public returns a copy of the quiz with correct answers and explanations removed.
func (q Quiz) Public() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		question.Explanation = ""
		question.Options = append([]string(nil), question.Options...)
		out.Questions[i] = question
	}
	return out
}

// QuizPatch is an administrator edit. Nil fields keep their current value;
// identity, author and creation time are never patched.
type QuizPatch struct {
	Title           *string     `json:"title"`
	Description     *string     `json:"description"`
	Category        *string     `json:"category"`
	Duration        *int        `json:"duration"`
	Questions       []Question  `json:"questions"`
	Difficulty      *Difficulty `json:"difficulty"`
	Tags            []string    `json:"tags"`
	IsActive        *bool       `json:"isActive"`
	MaxAttempts     *int        `json:"maxAttempts"`
	Rating          *float64    `json:"rating"`
	ResultsReleased *bool       `json:"resultsReleased"`
}

// Apply returns q with the patch merged in.
func (p QuizPatch) Apply(q Quiz) Quiz {
	if p.Title != nil {
		q.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		q.Description = *p.Description
	}
	if p.Category != nil {
		q.Category = *p.Category
	}
	if p.Duration != nil {
		q.Duration = *p.Duration
	}
	if p.Questions != nil {
		q.Questions = append([]Question(nil), p.Questions...)
	}
	if p.Difficulty != nil {
		q.Difficulty = *p.Difficulty
	}
	if p.Tags != nil {
		q.Tags = append([]string{}, p.Tags...)
	}
	if p.IsActive != nil {
		q.IsActive = *p.IsActive
	}
	if p.MaxAttempts != nil {
		q.MaxAttempts = *p.MaxAttempts
	}
	if p.Rating != nil {
		q.Rating = *p.Rating
	}
	if p.ResultsReleased != nil {
		q.ResultsReleased = *p.ResultsReleased
	}
	return q
}

// Validate checks the authoring invariants of a quiz.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return Invalid("title", "is required")
	}
	if q.Duration <= 0 {
		return Invalid("duration", "must be a positive number of seconds")
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return Invalid("difficulty", "must be one of easy, medium, hard")
	}
	if q.Rating < 0 || q.Rating > 5 {
		return Invalid("rating", "must be between 0 and 5")
	}
	if len(q.Questions) == 0 {
		return Invalid("questions", "at least one question is required")
	}
	for i, question := range q.Questions {
		if strings.TrimSpace(question.QuestionText) == "" {
			return Invalid("questions", "question %d has no text", i)
		}
		if len(question.Options) < 2 {
			return Invalid("questions", "question %d must have at least 2 options", i)
		}
		if !question.HasOption(question.CorrectAnswer) {
			return Invalid("questions", "question %d correct answer is not one of its options", i)
		}
	}
	return nil
}

func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// AnswerInput is one entry of a submission request.
type AnswerInput struct {
	SelectedAnswer string `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent"` // seconds
}

// SubmitRequest is the payload a client sends when finishing an attempt.
type SubmitRequest struct {
	Answers   []AnswerInput `json:"answers"`
	TimeSpent int           `json:"timeSpent"` // seconds
}

func (r SubmitRequest) Validate() error {
	if r.Answers == nil {
		return Invalid("answers", "is required")
	}
	if r.TimeSpent < 0 {
		return Invalid("timeSpent", "must not be negative")
	}
	for i, a := range r.Answers {
		if a.TimeSpent < 0 {
			return Invalid("answers", "answer %d has negative timeSpent", i)
		}
	}
	return nil
}

// AnswerRecord is the scored form of an answer stored on a submission.
type AnswerRecord struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	TimeSpent      int    `json:"timeSpent"`
}

// Submission is the immutable record of one completed attempt.
type Submission struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	QuizID         string         `json:"quizId"`
	Attempt        int            `json:"attempt"`
	Answers        []AnswerRecord `json:"answers"`
	Score          int            `json:"score"`
	Percentage     int            `json:"percentage"`
	TotalQuestions int            `json:"totalQuestions"`
	TimeSpent      int            `json:"timeSpent"`
	CompletedAt    time.Time      `json:"completedAt"`
	Released       bool           `json:"isReleased"`
	IPAddress      string         `json:"-"`
	UserAgent      string         `json:"-"`
}

// User is a registered account with cumulative quiz counters.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Name             string    `json:"name"`
	Role             Role      `json:"role"`
	Avatar           string    `json:"avatar"`
	TotalScore       int       `json:"totalScore"`
	QuizzesCompleted int       `json:"quizzesCompleted"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ReviewQuestion pairs a question with the answer a user gave.
type ReviewQuestion struct {
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	UserAnswer    string   `json:"userAnswer"`
	IsCorrect     bool     `json:"isCorrect"`
	Explanation   string   `json:"explanation"`
}

// Review is the post-scoring view of a quiz, including correct answers.
type Review struct {
	QuizID    string           `json:"id"`
	Title     string           `json:"title"`
	Questions []ReviewQuestion `json:"questions"`
}

// SubmitResult is returned once an attempt has been scored and persisted.
type SubmitResult struct {
	SubmissionID   string    `json:"submissionId"`
	Score          int       `json:"score"`
	Percentage     int       `json:"percentage"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeSpent      int       `json:"timeSpent"`
	CompletedAt    time.Time `json:"completedAt"`
	Review         Review    `json:"review"`
}

// SubmissionSummary is the header of a submission review.
type SubmissionSummary struct {
	ID             string    `json:"id"`
	Score          int       `json:"score"`
	Percentage     int       `json:"percentage"`
	TotalQuestions int       `json:"totalQuestions"`
	TimeSpent      int       `json:"timeSpent"`
	CompletedAt    time.Time `json:"completedAt"`
}

// SubmissionReview is the full review payload of a stored submission.
type SubmissionReview struct {
	Submission SubmissionSummary `json:"submission"`
	Quiz       Review            `json:"quiz"`
}

// AttemptStart describes a server-recorded attempt start.
type AttemptStart struct {
	QuizID       string    `json:"quizId"`
	StartedAt    time.Time `json:"startedAt"`
	Duration     int       `json:"duration"`
	AttemptsUsed int       `json:"attemptsUsed"`
	MaxAttempts  int       `json:"maxAttempts"`
}
