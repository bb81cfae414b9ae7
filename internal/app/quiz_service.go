package app

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"quizwale-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// QuizStore persists quiz definitions.
type QuizStore interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	ListQuizzes(ctx context.Context, activeOnly bool) ([]domain.Quiz, error)
	CountQuizzes(ctx context.Context) (int, error)
}

// SubmissionRepository persists immutable submissions.
type SubmissionRepository interface {
	// InsertWithinLimit counts the (user, quiz) submissions and inserts sub in
	// one atomic step, failing with *domain.AttemptsExhaustedError when the
	// count already reached maxAttempts. maxAttempts <= 0 disables the check.
	InsertWithinLimit(ctx context.Context, sub *domain.Submission, maxAttempts int) error
	CountAttempts(ctx context.Context, userID, quizID string) (int, error)
	GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
	DeleteByQuiz(ctx context.Context, quizID string) (int, error)
	AggregateByUser(ctx context.Context, filter domain.LeaderboardFilter) ([]domain.UserAggregate, error)
	// TotalScoresByUser sums scores per user, ordered by total desc then user ID.
	TotalScoresByUser(ctx context.Context) ([]domain.UserTotal, error)
	// ListByUser returns up to limit submissions of a user, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Submission, error)
	CountSubmissions(ctx context.Context) (int, error)
}

// UserRepository persists accounts and their cumulative counters.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	IncrementStats(ctx context.Context, userID string, score int) error
	CountUsers(ctx context.Context) (int, error)
}

// AttemptTracker remembers when a user started a quiz (in-memory, Redis, etc).
type AttemptTracker interface {
	Begin(ctx context.Context, quizID, userID string, at time.Time, ttl time.Duration) error
	StartedAt(ctx context.Context, quizID, userID string) (time.Time, bool, error)
	Clear(ctx context.Context, quizID, userID string) error
}

// Options tunes attempt timing.
type Options struct {
	// ServerTiming replaces the client-reported total time with the elapsed
	// time since a recorded attempt start.
	ServerTiming bool
	// AttemptGrace is added to the quiz duration for the start record TTL.
	AttemptGrace time.Duration
}

// SubmitMeta carries request metadata stored alongside a submission.
type SubmitMeta struct {
	IPAddress string
	UserAgent string
}

// QuizService contains the core quiz use cases.
type QuizService struct {
	quizzes     QuizRepository
	store       QuizStore
	submissions SubmissionRepository
	users       UserRepository
	tracker     AttemptTracker
	opts        Options
	now         func() time.Time
	newID       func() string
}

func NewQuizService(quizzes QuizRepository, store QuizStore, submissions SubmissionRepository, users UserRepository, tracker AttemptTracker, opts Options) *QuizService {
	return &QuizService{
		quizzes:     quizzes,
		store:       store,
		submissions: submissions,
		users:       users,
		tracker:     tracker,
		opts:        opts,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// GetQuiz returns a quiz; correct answers are stripped unless the caller is an admin.
func (s *QuizService) GetQuiz(ctx context.Context, caller *domain.Identity, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if isAdmin(caller) {
		return quiz, nil
	}
	if !quiz.IsActive {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz.Public(), nil
}

// ListQuizzes lists quizzes; non-admins only see active quizzes without answers.
func (s *QuizService) ListQuizzes(ctx context.Context, caller *domain.Identity) ([]domain.Quiz, error) {
	admin := isAdmin(caller)
	quizzes, err := s.store.ListQuizzes(ctx, !admin)
	if err != nil {
		return nil, err
	}
	if admin {
		return quizzes, nil
	}
	out := make([]domain.Quiz, len(quizzes))
	for i, q := range quizzes {
		out[i] = q.Public()
	}
	return out, nil
}

// StartAttempt checks the attempt gate early and records a server-side start time.
func (s *QuizService) StartAttempt(ctx context.Context, caller *domain.Identity, quizID string) (domain.AttemptStart, error) {
	if caller == nil {
		return domain.AttemptStart{}, domain.ErrUnauthenticated
	}
	quiz, err := s.activeQuiz(ctx, caller, quizID)
	if err != nil {
		return domain.AttemptStart{}, err
	}
	used, err := s.submissions.CountAttempts(ctx, caller.UserID, quizID)
	if err != nil {
		return domain.AttemptStart{}, err
	}
	if quiz.MaxAttempts > 0 && used >= quiz.MaxAttempts {
		return domain.AttemptStart{}, &domain.AttemptsExhaustedError{Limit: quiz.MaxAttempts}
	}

	started := s.now()
	ttl := time.Duration(quiz.Duration)*time.Second + s.opts.AttemptGrace
	if err := s.tracker.Begin(ctx, quizID, caller.UserID, started, ttl); err != nil {
		return domain.AttemptStart{}, err
	}
	return domain.AttemptStart{
		QuizID:       quizID,
		StartedAt:    started,
		Duration:     quiz.Duration,
		AttemptsUsed: used,
		MaxAttempts:  quiz.MaxAttempts,
	}, nil
}

// Submit scores an attempt server-side, persists it through the attempt gate
// and bumps the user's cumulative counters.
func (s *QuizService) Submit(ctx context.Context, caller *domain.Identity, quizID string, req domain.SubmitRequest, meta SubmitMeta) (domain.SubmitResult, error) {
	if caller == nil {
		return domain.SubmitResult{}, domain.ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return domain.SubmitResult{}, err
	}
	quiz, err := s.activeQuiz(ctx, caller, quizID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	timeSpent := s.resolveTimeSpent(ctx, quiz, caller.UserID, req.TimeSpent)
	scored := scoreAnswers(quiz, req.Answers)
	sub := domain.Submission{
		ID:             s.newID(),
		UserID:         caller.UserID,
		QuizID:         quiz.ID,
		Answers:        scored.Answers,
		Score:          scored.Score,
		Percentage:     scored.Percentage,
		TotalQuestions: scored.TotalQuestions,
		TimeSpent:      timeSpent,
		CompletedAt:    s.now(),
		IPAddress:      meta.IPAddress,
		UserAgent:      meta.UserAgent,
	}
	if err := s.submissions.InsertWithinLimit(ctx, &sub, quiz.MaxAttempts); err != nil {
		return domain.SubmitResult{}, err
	}

	// Stats may lag submissions; the submission itself is authoritative.
	if err := s.users.IncrementStats(ctx, caller.UserID, sub.Score); err != nil {
		log.Printf("increment stats for user %s: %v", caller.UserID, err)
	}
	if err := s.tracker.Clear(ctx, quiz.ID, caller.UserID); err != nil {
		log.Printf("clear attempt start %s/%s: %v", quiz.ID, caller.UserID, err)
	}

	return domain.SubmitResult{
		SubmissionID:   sub.ID,
		Score:          sub.Score,
		Percentage:     sub.Percentage,
		TotalQuestions: sub.TotalQuestions,
		TimeSpent:      sub.TimeSpent,
		CompletedAt:    sub.CompletedAt,
		Review:         buildReview(quiz, sub.Answers),
	}, nil
}

func (s *QuizService) resolveTimeSpent(ctx context.Context, quiz domain.Quiz, userID string, reported int) int {
	if !s.opts.ServerTiming {
		return reported
	}
	started, ok, err := s.tracker.StartedAt(ctx, quiz.ID, userID)
	if err != nil {
		log.Printf("lookup attempt start %s/%s: %v", quiz.ID, userID, err)
		return reported
	}
	if !ok {
		return reported
	}
	elapsed := int(s.now().Sub(started) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > quiz.Duration {
		elapsed = quiz.Duration
	}
	return elapsed
}

// Review returns the full review of a submission to its owner, an admin, or
// anyone once results are released.
func (s *QuizService) Review(ctx context.Context, caller *domain.Identity, submissionID string) (domain.SubmissionReview, error) {
	if caller == nil {
		return domain.SubmissionReview{}, domain.ErrUnauthenticated
	}
	sub, err := s.submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return domain.SubmissionReview{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return domain.SubmissionReview{}, err
	}
	allowed := sub.UserID == caller.UserID || caller.IsAdmin() || quiz.ResultsReleased || sub.Released
	if !allowed {
		return domain.SubmissionReview{}, domain.ErrForbidden
	}
	return domain.SubmissionReview{
		Submission: domain.SubmissionSummary{
			ID:             sub.ID,
			Score:          sub.Score,
			Percentage:     sub.Percentage,
			TotalQuestions: sub.TotalQuestions,
			TimeSpent:      sub.TimeSpent,
			CompletedAt:    sub.CompletedAt,
		},
		Quiz: buildReview(quiz, sub.Answers),
	}, nil
}

// Leaderboard ranks users by best score and then best time. It is read-only.
func (s *QuizService) Leaderboard(ctx context.Context, query LeaderboardQuery) (domain.Leaderboard, error) {
	limit, err := normalizeLimit(query.Limit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	period := query.Period
	if period == "" {
		period = domain.PeriodAllTime
	}

	filter := domain.LeaderboardFilter{QuizID: query.QuizID, Limit: limit}
	if since, ok := period.Since(s.now()); ok {
		filter.Since = &since
	}
	aggregates, err := s.submissions.AggregateByUser(ctx, filter)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		Entries: rankLeaderboard(aggregates, limit),
		Period:  period,
		QuizID:  query.QuizID,
	}, nil
}

// CreateQuiz validates and stores a new quiz authored by an admin.
func (s *QuizService) CreateQuiz(ctx context.Context, caller *domain.Identity, quiz domain.Quiz) (domain.Quiz, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Difficulty == "" {
		quiz.Difficulty = domain.DifficultyMedium
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	quiz.ID = s.newID()
	quiz.Title = strings.TrimSpace(quiz.Title)
	quiz.CreatedBy = caller.UserID
	quiz.CreatedAt = s.now()
	if quiz.Tags == nil {
		quiz.Tags = []string{}
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// UpdateQuiz merges an administrator edit into a stored quiz. The result must
// still satisfy the authoring invariants.
func (s *QuizService) UpdateQuiz(ctx context.Context, caller *domain.Identity, quizID string, patch domain.QuizPatch) (domain.Quiz, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Quiz{}, err
	}
	current, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz := patch.Apply(current)
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return quiz, nil
}

// DeleteQuiz removes a quiz and all of its submissions. Submissions go first
// so a failed delete can be retried while the quiz still exists.
func (s *QuizService) DeleteQuiz(ctx context.Context, caller *domain.Identity, quizID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	removed, err := s.submissions.DeleteByQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, quizID)
	log.Printf("deleted quiz %s and %d submissions", quizID, removed)
	return nil
}

// ReleaseResults toggles whether every participant may review submissions of a quiz.
func (s *QuizService) ReleaseResults(ctx context.Context, caller *domain.Identity, quizID string, released bool) (domain.Quiz, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.Quiz{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	quiz.ResultsReleased = released
	if err := s.store.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return quiz, nil
}

// QuizStatistics reports per-question answer distributions for admins.
func (s *QuizService) QuizStatistics(ctx context.Context, caller *domain.Identity, quizID string) (domain.QuizStatistics, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.QuizStatistics{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizStatistics{}, err
	}
	subs, err := s.submissions.ListByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizStatistics{}, err
	}
	return buildQuizStatistics(quiz, subs), nil
}

// PlatformOverview counts users, quizzes and submissions concurrently.
func (s *QuizService) PlatformOverview(ctx context.Context, caller *domain.Identity) (domain.PlatformOverview, error) {
	if err := requireAdmin(caller); err != nil {
		return domain.PlatformOverview{}, err
	}
	var overview domain.PlatformOverview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overview.TotalUsers, err = s.users.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		overview.TotalQuizzes, err = s.store.CountQuizzes(gctx)
		return err
	})
	g.Go(func() (err error) {
		overview.TotalSubmissions, err = s.submissions.CountSubmissions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.PlatformOverview{}, err
	}
	if overview.TotalUsers > 0 {
		overview.AverageQuizzesPerUser = roundDiv(overview.TotalSubmissions, overview.TotalUsers)
	}
	return overview, nil
}

const recentUserSubmissions = 5

// UserStats returns platform counts for anyone and, for a signed-in caller,
// their summed score, average, rank by summed score and latest submissions.
func (s *QuizService) UserStats(ctx context.Context, caller *domain.Identity) (domain.UserStats, error) {
	stats := domain.UserStats{RecentSubmissions: []domain.RecentSubmission{}}
	var (
		totals []domain.UserTotal
		recent []domain.Submission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.Participants, err = s.users.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalQuizzes, err = s.store.CountQuizzes(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalSubmissions, err = s.submissions.CountSubmissions(gctx)
		return err
	})
	if caller != nil {
		g.Go(func() (err error) {
			totals, err = s.submissions.TotalScoresByUser(gctx)
			return err
		})
		g.Go(func() (err error) {
			recent, err = s.submissions.ListByUser(gctx, caller.UserID, recentUserSubmissions)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.UserStats{}, err
	}
	if caller == nil {
		return stats, nil
	}

	for i, t := range totals {
		if t.UserID != caller.UserID {
			continue
		}
		stats.Rank = i + 1
		stats.TotalScore = t.TotalScore
		if t.Submissions > 0 {
			stats.AverageScore = math.Round(float64(t.TotalScore)/float64(t.Submissions)*10) / 10
		}
		break
	}
	for _, sub := range recent {
		stats.RecentSubmissions = append(stats.RecentSubmissions, domain.RecentSubmission{
			ID:          sub.ID,
			UserID:      sub.UserID,
			QuizID:      sub.QuizID,
			Score:       sub.Score,
			Percentage:  sub.Percentage,
			TimeSpent:   sub.TimeSpent,
			CompletedAt: sub.CompletedAt,
		})
	}
	return stats, nil
}

func (s *QuizService) activeQuiz(ctx context.Context, caller *domain.Identity, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.IsActive && !isAdmin(caller) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func isAdmin(caller *domain.Identity) bool {
	return caller != nil && caller.IsAdmin()
}

func requireAdmin(caller *domain.Identity) error {
	if caller == nil {
		return domain.ErrUnauthenticated
	}
	if !caller.IsAdmin() {
		return domain.ErrAdminRequired
	}
	return nil
}

// roundDiv is a/b rounded half up for non-negative operands.
func roundDiv(a, b int) int {
	return (2*a + b) / (2 * b)
}
