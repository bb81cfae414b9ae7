package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"quizwale-service/internal/domain"
)

// Store keeps quizzes, users and submissions in process. It implements the
// app repositories and doubles as the QuizLoader behind the quiz cache.
type Store struct {
	mu          sync.RWMutex
	quizzes     map[string]domain.Quiz
	users       map[string]domain.User
	emails      map[string]string
	submissions []domain.Submission
}

func NewStore() *Store {
	return &Store{
		quizzes: make(map[string]domain.Quiz),
		users:   make(map[string]domain.User),
		emails:  make(map[string]string),
	}
}

func (s *Store) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) SaveQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	return nil
}

func (s *Store) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *Store) ListQuizzes(_ context.Context, activeOnly bool) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if activeOnly && !q.IsActive {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CountQuizzes(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quizzes), nil
}

// InsertWithinLimit counts and inserts under one lock so concurrent
// submissions for the same (user, quiz) cannot both pass the gate.
func (s *Store) InsertWithinLimit(_ context.Context, sub *domain.Submission, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	used := s.countLocked(sub.UserID, sub.QuizID)
	if maxAttempts > 0 && used >= maxAttempts {
		return &domain.AttemptsExhaustedError{Limit: maxAttempts}
	}
	sub.Attempt = used + 1
	stored := *sub
	stored.Answers = append([]domain.AnswerRecord(nil), sub.Answers...)
	s.submissions = append(s.submissions, stored)
	return nil
}

func (s *Store) CountAttempts(_ context.Context, userID, quizID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(userID, quizID), nil
}

func (s *Store) countLocked(userID, quizID string) int {
	n := 0
	for _, sub := range s.submissions {
		if sub.UserID == userID && sub.QuizID == quizID {
			n++
		}
	}
	return n
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.ID == submissionID {
			return copySubmission(sub), nil
		}
	}
	return domain.Submission{}, domain.ErrSubmissionNotFound
}

// ListByQuiz returns the submissions of a quiz, newest first.
func (s *Store) ListByQuiz(_ context.Context, quizID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Submission
	for i := len(s.submissions) - 1; i >= 0; i-- {
		if s.submissions[i].QuizID == quizID {
			out = append(out, copySubmission(s.submissions[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *Store) DeleteByQuiz(_ context.Context, quizID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.submissions[:0]
	removed := 0
	for _, sub := range s.submissions {
		if sub.QuizID == quizID {
			removed++
			continue
		}
		kept = append(kept, sub)
	}
	s.submissions = kept
	return removed, nil
}

func (s *Store) CountSubmissions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.submissions), nil
}

// AggregateByUser groups qualifying submissions by user. Submissions whose
// quiz or user no longer exists are skipped.
func (s *Store) AggregateByUser(_ context.Context, filter domain.LeaderboardFilter) ([]domain.UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type group struct {
		agg      domain.UserAggregate
		timeSum  int
		scoreSum int
	}
	groups := make(map[string]*group)
	var order []string
	for _, sub := range s.submissions {
		if filter.Since != nil && sub.CompletedAt.Before(*filter.Since) {
			continue
		}
		if filter.QuizID != "" && sub.QuizID != filter.QuizID {
			continue
		}
		if _, ok := s.quizzes[sub.QuizID]; !ok {
			continue
		}
		user, ok := s.users[sub.UserID]
		if !ok {
			continue
		}
		g, ok := groups[sub.UserID]
		if !ok {
			g = &group{agg: domain.UserAggregate{
				UserID:         user.ID,
				Name:           user.Name,
				Email:          user.Email,
				Avatar:         user.Avatar,
				BestScore:      sub.Score,
				BestPercentage: sub.Percentage,
				BestTime:       sub.TimeSpent,
				LastSubmission: sub.CompletedAt,
			}}
			groups[sub.UserID] = g
			order = append(order, sub.UserID)
		}
		a := &g.agg
		a.BestScore = max(a.BestScore, sub.Score)
		a.BestPercentage = max(a.BestPercentage, sub.Percentage)
		a.BestTime = min(a.BestTime, sub.TimeSpent)
		if sub.CompletedAt.After(a.LastSubmission) {
			a.LastSubmission = sub.CompletedAt
		}
		a.TotalQuizzes++
		g.scoreSum += sub.Score
		g.timeSum += sub.TimeSpent
	}

	out := make([]domain.UserAggregate, 0, len(groups))
	for _, userID := range order {
		g := groups[userID]
		n := float64(g.agg.TotalQuizzes)
		g.agg.TotalScore = g.scoreSum
		g.agg.AverageScore = float64(g.scoreSum) / n
		g.agg.AverageTime = float64(g.timeSum) / n
		out = append(out, g.agg)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		sort.Slice(out, func(i, j int) bool { return out[i].RanksAbove(out[j]) })
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) TotalScoresByUser(_ context.Context) ([]domain.UserTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser := make(map[string]*domain.UserTotal)
	for _, sub := range s.submissions {
		t, ok := byUser[sub.UserID]
		if !ok {
			t = &domain.UserTotal{UserID: sub.UserID}
			byUser[sub.UserID] = t
		}
		t.TotalScore += sub.Score
		t.Submissions++
	}
	out := make([]domain.UserTotal, 0, len(byUser))
	for _, t := range byUser {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *Store) ListByUser(_ context.Context, userID string, limit int) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Submission
	for i := len(s.submissions) - 1; i >= 0; i-- {
		if s.submissions[i].UserID == userID {
			out = append(out, copySubmission(s.submissions[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, ok := s.emails[email]; ok {
		return domain.ErrEmailTaken
	}
	user.Email = email
	s.users[user.ID] = *user
	s.emails[email] = user.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) IncrementStats(_ context.Context, userID string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.TotalScore += score
	user.QuizzesCompleted++
	s.users[userID] = user
	return nil
}

func (s *Store) CountUsers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func copySubmission(sub domain.Submission) domain.Submission {
	sub.Answers = append([]domain.AnswerRecord(nil), sub.Answers...)
	return sub
}
