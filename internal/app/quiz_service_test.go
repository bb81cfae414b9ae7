package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizwale-service/internal/app"
	"quizwale-service/internal/domain"
	"quizwale-service/internal/infra/memory"
)

var (
	admin = &domain.Identity{UserID: "admin", Role: domain.RoleAdmin}
	alice = &domain.Identity{UserID: "alice", Role: domain.RoleUser}
	bob   = &domain.Identity{UserID: "bob", Role: domain.RoleUser}
)

type fixture struct {
	store   *memory.Store
	service *app.QuizService
	now     time.Time
}

func newFixture(t *testing.T, opts app.Options) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		now:   time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC),
	}
	f.service = app.NewQuizService(
		memory.NewQuizRepository(f.store, time.Minute),
		f.store, f.store, f.store,
		memory.NewAttemptTracker(),
		opts,
	).WithClock(func() time.Time { return f.now })

	ctx := context.Background()
	for _, id := range []string{"admin", "alice", "bob", "carol"} {
		user := &domain.User{ID: id, Email: id + "@example.com", Name: id, Role: domain.RoleUser}
		if err := f.store.CreateUser(ctx, user); err != nil {
			t.Fatalf("create user %s: %v", id, err)
		}
	}
	if err := f.store.SaveQuiz(ctx, letterQuiz("quiz-1", 1)); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	return f
}

func letterQuiz(id string, maxAttempts int) domain.Quiz {
	return domain.Quiz{
		ID:          id,
		Title:       "Letters",
		Duration:    120,
		Difficulty:  domain.DifficultyEasy,
		IsActive:    true,
		MaxAttempts: maxAttempts,
		Questions: []domain.Question{
			{QuestionText: "first", Options: []string{"A", "X"}, CorrectAnswer: "A", Explanation: "first letter"},
			{QuestionText: "second", Options: []string{"B", "X"}, CorrectAnswer: "B"},
			{QuestionText: "third", Options: []string{"C", "X"}, CorrectAnswer: "C"},
		},
	}
}

func submitReq(timeSpent int, picks ...string) domain.SubmitRequest {
	req := domain.SubmitRequest{TimeSpent: timeSpent, Answers: []domain.AnswerInput{}}
	for _, p := range picks {
		req.Answers = append(req.Answers, domain.AnswerInput{SelectedAnswer: p, TimeSpent: 1})
	}
	return req
}

func TestGetQuizStripsAnswersForNonAdmins(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()

	for _, caller := range []*domain.Identity{nil, alice} {
		quiz, err := f.service.GetQuiz(ctx, caller, "quiz-1")
		if err != nil {
			t.Fatalf("get quiz: %v", err)
		}
		for i, q := range quiz.Questions {
			if q.CorrectAnswer != "" || q.Explanation != "" {
				t.Fatalf("question %d leaked answer data: %+v", i, q)
			}
		}
	}

	quiz, err := f.service.GetQuiz(ctx, admin, "quiz-1")
	if err != nil {
		t.Fatalf("admin get quiz: %v", err)
	}
	if quiz.Questions[0].CorrectAnswer != "A" {
		t.Fatalf("admin should see correct answers")
	}

	if _, err := f.service.GetQuiz(ctx, alice, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitScoresServerSide(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()

	res, err := f.service.Submit(ctx, alice, "quiz-1", submitReq(40, "A", "X", "C"), app.SubmitMeta{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Score != 2 || res.Percentage != 67 || res.TotalQuestions != 3 || res.TimeSpent != 40 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.SubmissionID == "" || !res.CompletedAt.Equal(f.now) {
		t.Fatalf("missing submission metadata: %+v", res)
	}
	if res.Review.Questions[1].CorrectAnswer != "B" || res.Review.Questions[1].UserAnswer != "X" {
		t.Fatalf("unexpected review: %+v", res.Review.Questions[1])
	}

	user, err := f.store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.TotalScore != 2 || user.QuizzesCompleted != 1 {
		t.Fatalf("stats not incremented: %+v", user)
	}
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()

	if _, err := f.service.Submit(ctx, nil, "quiz-1", submitReq(1, "A"), app.SubmitMeta{}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	if _, err := f.service.Submit(ctx, alice, "missing", submitReq(1, "A"), app.SubmitMeta{}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.service.Submit(ctx, alice, "quiz-1", submitReq(-1, "A"), app.SubmitMeta{}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.service.Submit(ctx, alice, "quiz-1", domain.SubmitRequest{}, app.SubmitMeta{}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for missing answers, got %v", err)
	}
	if n, _ := f.store.CountSubmissions(ctx); n != 0 {
		t.Fatalf("failed submissions must not persist, got %d", n)
	}
}

func TestAttemptGateSingleAttempt(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()

	if _, err := f.service.Submit(ctx, alice, "quiz-1", submitReq(10, "A", "B", "C"), app.SubmitMeta{}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := f.service.Submit(ctx, alice, "quiz-1", submitReq(10, "A", "B", "C"), app.SubmitMeta{})
	var exhausted *domain.AttemptsExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Limit != 1 {
		t.Fatalf("expected attempts exhausted with limit 1, got %v", err)
	}
	if n, _ := f.store.CountAttempts(ctx, "alice", "quiz-1"); n != 1 {
		t.Fatalf("expected one persisted submission, got %d", n)
	}
	if _, err := f.service.Submit(ctx, bob, "quiz-1", submitReq(10, "A"), app.SubmitMeta{}); err != nil {
		t.Fatalf("other users keep their own attempts: %v", err)
	}
}

func TestAttemptGateRejectsEveryAttemptBeyondLimit(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()
	if err := f.store.SaveQuiz(ctx, letterQuiz("quiz-3", 3)); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	for i := 0; i < 6; i++ {
		_, err := f.service.Submit(ctx, alice, "quiz-3", submitReq(5, "X"), app.SubmitMeta{})
		if i < 3 && err != nil {
			t.Fatalf("attempt %d should pass: %v", i+1, err)
		}
		if i >= 3 && !domain.IsAttemptsExhausted(err) {
			t.Fatalf("attempt %d should be rejected, got %v", i+1, err)
		}
	}
}

func TestAttemptGateUnlimited(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()
	if err := f.store.SaveQuiz(ctx, letterQuiz("open", 0)); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.service.Submit(ctx, alice, "open", submitReq(5, "A"), app.SubmitMeta{}); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
}

func TestAttemptGateConcurrentSubmissions(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Submit(ctx, alice, "quiz-1", submitReq(5, "A", "B", "C"), app.SubmitMeta{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case domain.IsAttemptsExhausted(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != workers-1 {
		t.Fatalf("expected 1 success and %d rejections, got %d/%d", workers-1, succeeded, rejected)
	}
	if n, _ := f.store.CountAttempts(ctx, "alice", "quiz-1"); n != 1 {
		t.Fatalf("expected exactly one stored submission, got %d", n)
	}
}

func TestStartAttemptChecksGateEarly(t *testing.T) {
	f := newFixture(t, app.Options{AttemptGrace: time.Minute})
	ctx := context.Background()

	start, err := f.service.StartAttempt(ctx, alice, "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.Duration != 120 || start.AttemptsUsed != 0 || start.MaxAttempts != 1 || !start.StartedAt.Equal(f.now) {
		t.Fatalf("unexpected start: %+v", start)
	}
	if _, err := f.service.Submit(ctx, alice, "quiz-1", submitReq(5, "A"), app.SubmitMeta{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.service.StartAttempt(ctx, alice, "quiz-1"); !domain.IsAttemptsExhausted(err) {
		t.Fatalf("expected exhausted on second start, got %v", err)
	}
	if _, err := f.service.StartAttempt(ctx, nil, "quiz-1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestServerTimingOverridesReportedTime(t *testing.T) {
	f := newFixture(t, app.Options{ServerTiming: true, AttemptGrace: time.Minute})
	ctx := context.Background()
	if err := f.store.SaveQuiz(ctx, letterQuiz("open", 0)); err != nil {
		t.Fatalf("save quiz: %v", err)
	}

	if _, err := f.service.StartAttempt(ctx, alice, "open"); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.now = f.now.Add(42 * time.Second)
	res, err := f.service.Submit(ctx, alice, "open", submitReq(5, "A"), app.SubmitMeta{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.TimeSpent != 42 {
		t.Fatalf("expected server elapsed 42s, got %d", res.TimeSpent)
	}

	// the start record is cleared, so the next submit falls back to the client value
	res, err = f.service.Submit(ctx, alice, "open", submitReq(7, "A"), app.SubmitMeta{})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if res.TimeSpent != 7 {
		t.Fatalf("expected reported 7s, got %d", res.TimeSpent)
	}

	if _, err := f.service.StartAttempt(ctx, alice, "open"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	f.now = f.now.Add(10 * time.Minute)
	res, err = f.service.Submit(ctx, alice, "open", submitReq(5, "A"), app.SubmitMeta{})
	if err != nil {
		t.Fatalf("late submit: %v", err)
	}
	if res.TimeSpent != 120 {
		t.Fatalf("expected elapsed capped at duration, got %d", res.TimeSpent)
	}
}

func TestReviewAccess(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()

	res, err := f.service.Submit(ctx, alice, "quiz-1", submitReq(10, "A", "X", "C"), app.SubmitMeta{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.service.Review(ctx, bob, res.SubmissionID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden before release, got %v", err)
	}
	if _, err := f.service.Review(ctx, nil, res.SubmissionID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	for _, caller := range []*domain.Identity{alice, admin} {
		review, err := f.service.Review(ctx, caller, res.SubmissionID)
		if err != nil {
			t.Fatalf("review as %s: %v", caller.UserID, err)
		}
		if review.Submission.Score != 2 || review.Quiz.Questions[0].Explanation != "first letter" {
			t.Fatalf("unexpected review: %+v", review)
		}
	}

	if _, err := f.service.ReleaseResults(ctx, alice, "quiz-1", true); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("non-admin release should fail, got %v", err)
	}
	if _, err := f.service.ReleaseResults(ctx, admin, "quiz-1", true); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := f.service.Review(ctx, bob, res.SubmissionID); err != nil {
		t.Fatalf("expected access after release, got %v", err)
	}
	if _, err := f.service.Review(ctx, bob, "missing"); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected submission not found, got %v", err)
	}
}

func TestLeaderboardRanksAndFilters(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()
	if err := f.store.SaveQuiz(ctx, letterQuiz("open", 0)); err != nil {
		t.Fatalf("save quiz: %v", err)
	}

	carol := &domain.Identity{UserID: "carol", Role: domain.RoleUser}
	recent := f.now

	// carol's perfect run is eight days old
	f.now = recent.Add(-8 * 24 * time.Hour)
	mustSubmit(t, f, carol, "open", submitReq(50, "A", "B", "C"))

	f.now = recent.Add(-time.Hour)
	mustSubmit(t, f, alice, "open", submitReq(90, "A", "B", "X"))
	mustSubmit(t, f, alice, "open", submitReq(30, "A", "X", "X"))
	mustSubmit(t, f, bob, "open", submitReq(60, "A", "B", "X"))
	mustSubmit(t, f, bob, "quiz-1", submitReq(20, "A", "B", "C"))
	f.now = recent

	weekly, err := f.service.Leaderboard(ctx, app.LeaderboardQuery{Period: domain.PeriodWeekly, QuizID: "open"})
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if len(weekly.Entries) != 2 {
		t.Fatalf("expected 2 weekly entries, got %+v", weekly.Entries)
	}
	if weekly.Entries[0].UserID != "alice" || weekly.Entries[1].UserID != "bob" {
		t.Fatalf("equal best scores should rank the faster best time first, got %+v", weekly.Entries)
	}
	for _, e := range weekly.Entries {
		if e.UserID == "carol" {
			t.Fatalf("eight-day-old submission must be excluded")
		}
	}
	a := weekly.Entries[0]
	if a.BestScore != 2 || a.TotalScore != 3 || a.TotalQuizzes != 2 || a.AverageScore != 1.5 || a.BestTime != 30 || a.AverageTime != 60 {
		t.Fatalf("unexpected alice aggregate: %+v", a)
	}

	all, err := f.service.Leaderboard(ctx, app.LeaderboardQuery{})
	if err != nil {
		t.Fatalf("all-time: %v", err)
	}
	if all.Period != domain.PeriodAllTime || len(all.Entries) != 3 {
		t.Fatalf("unexpected all-time board: %+v", all)
	}
	if all.Entries[0].UserID != "bob" || all.Entries[0].BestTime != 20 {
		t.Fatalf("bob's perfect 20s run should lead, got %+v", all.Entries[0])
	}
	if all.Entries[1].UserID != "carol" {
		t.Fatalf("carol ties on score with a slower time, got %+v", all.Entries[1])
	}

	limited, err := f.service.Leaderboard(ctx, app.LeaderboardQuery{Limit: 2})
	if err != nil {
		t.Fatalf("limited: %v", err)
	}
	if len(limited.Entries) != 2 || limited.Entries[1].Rank != 2 {
		t.Fatalf("unexpected limited board: %+v", limited.Entries)
	}

	if _, err := f.service.Leaderboard(ctx, app.LeaderboardQuery{Limit: 500}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for large limit, got %v", err)
	}
}

func TestLeaderboardEmpty(t *testing.T) {
	f := newFixture(t, app.Options{})
	board, err := f.service.Leaderboard(context.Background(), app.LeaderboardQuery{Period: domain.PeriodMonthly})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 0 {
		t.Fatalf("expected empty board, got %+v", board.Entries)
	}
}

func TestDeleteQuizCascades(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()

	res := mustSubmit(t, f, alice, "quiz-1", submitReq(10, "A"))
	if _, err := f.service.GetQuiz(ctx, alice, "quiz-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	if err := f.service.DeleteQuiz(ctx, alice, "quiz-1"); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected admin required, got %v", err)
	}
	if err := f.service.DeleteQuiz(ctx, admin, "quiz-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.service.GetQuiz(ctx, alice, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected cache eviction, got %v", err)
	}
	if _, err := f.store.GetSubmission(ctx, res.SubmissionID); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected submissions removed, got %v", err)
	}
	if err := f.service.DeleteQuiz(ctx, admin, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

type flakySubmissions struct {
	*memory.Store
	failDeletes bool
}

func (f *flakySubmissions) DeleteByQuiz(ctx context.Context, quizID string) (int, error) {
	if f.failDeletes {
		return 0, errors.New("connection reset")
	}
	return f.Store.DeleteByQuiz(ctx, quizID)
}

func TestDeleteQuizCanBeRetriedAfterSubmissionCleanupFails(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()
	subs := &flakySubmissions{Store: f.store, failDeletes: true}
	service := app.NewQuizService(
		memory.NewQuizRepository(f.store, time.Minute),
		f.store, subs, f.store,
		memory.NewAttemptTracker(),
		app.Options{},
	)

	res, err := service.Submit(ctx, alice, "quiz-1", submitReq(10, "A"), app.SubmitMeta{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.DeleteQuiz(ctx, admin, "quiz-1"); err == nil {
		t.Fatalf("expected delete to fail while submissions cannot be removed")
	}
	if _, err := service.GetQuiz(ctx, alice, "quiz-1"); err != nil {
		t.Fatalf("quiz should survive a failed delete: %v", err)
	}
	if _, err := f.store.GetSubmission(ctx, res.SubmissionID); err != nil {
		t.Fatalf("submission should survive a failed delete: %v", err)
	}

	subs.failDeletes = false
	if err := service.DeleteQuiz(ctx, admin, "quiz-1"); err != nil {
		t.Fatalf("retry delete: %v", err)
	}
	if _, err := f.store.GetSubmission(ctx, res.SubmissionID); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected submissions removed on retry, got %v", err)
	}
	if _, err := service.GetQuiz(ctx, admin, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz removed on retry, got %v", err)
	}
}

func TestUpdateQuizEditsAndDeactivates(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()
	original, err := f.service.GetQuiz(ctx, admin, "quiz-1")
	if err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	title := "  Letters, revised "
	inactive := false
	patch := domain.QuizPatch{Title: &title, IsActive: &inactive}
	if _, err := f.service.UpdateQuiz(ctx, alice, "quiz-1", patch); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected admin required, got %v", err)
	}
	if _, err := f.service.UpdateQuiz(ctx, admin, "missing", patch); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	updated, err := f.service.UpdateQuiz(ctx, admin, "quiz-1", patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Letters, revised" || updated.IsActive {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.ID != original.ID || updated.Duration != original.Duration || len(updated.Questions) != 3 {
		t.Fatalf("unpatched fields changed: %+v", updated)
	}

	if _, err := f.service.GetQuiz(ctx, alice, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected deactivated quiz hidden from users, got %v", err)
	}
	if _, err := f.service.Submit(ctx, alice, "quiz-1", submitReq(5, "A"), app.SubmitMeta{}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected submit to deactivated quiz to fail, got %v", err)
	}
	if quiz, err := f.service.GetQuiz(ctx, admin, "quiz-1"); err != nil || quiz.IsActive {
		t.Fatalf("admin should still see the inactive quiz: %+v %v", quiz, err)
	}

	broken := domain.QuizPatch{Questions: []domain.Question{
		{QuestionText: "first", Options: []string{"A", "X"}, CorrectAnswer: "Z"},
	}}
	if _, err := f.service.UpdateQuiz(ctx, admin, "quiz-1", broken); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, err := f.store.LoadQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(stored.Questions) != 3 || stored.Questions[0].CorrectAnswer != "A" {
		t.Fatalf("rejected edit must not be stored: %+v", stored.Questions)
	}
}

func TestUserStatsRanksBySummedScore(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()
	if err := f.store.SaveQuiz(ctx, letterQuiz("quiz-2", 0)); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	carol := &domain.Identity{UserID: "carol", Role: domain.RoleUser}

	mustSubmit(t, f, alice, "quiz-1", submitReq(10, "A", "B", "C"))
	f.now = f.now.Add(time.Minute)
	mustSubmit(t, f, bob, "quiz-1", submitReq(10, "A"))
	f.now = f.now.Add(time.Minute)
	latest := mustSubmit(t, f, bob, "quiz-2", submitReq(10, "A", "B"))
	f.now = f.now.Add(time.Minute)
	mustSubmit(t, f, carol, "quiz-1", submitReq(10, "A", "B"))

	anon, err := f.service.UserStats(ctx, nil)
	if err != nil {
		t.Fatalf("anonymous stats: %v", err)
	}
	if anon.Participants != 4 || anon.TotalQuizzes != 2 || anon.TotalSubmissions != 4 {
		t.Fatalf("unexpected platform counts: %+v", anon)
	}
	if anon.Rank != 0 || anon.TotalScore != 0 || anon.RecentSubmissions == nil || len(anon.RecentSubmissions) != 0 {
		t.Fatalf("anonymous caller should get zeroed personal stats: %+v", anon)
	}

	// alice and bob both total 3; the tie goes to the lower user ID.
	cases := []struct {
		caller  *domain.Identity
		rank    int
		total   int
		average float64
		recent  int
	}{
		{alice, 1, 3, 3, 1},
		{bob, 2, 3, 1.5, 2},
		{carol, 3, 2, 2, 1},
		{admin, 0, 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.caller.UserID, func(t *testing.T) {
			stats, err := f.service.UserStats(ctx, tc.caller)
			if err != nil {
				t.Fatalf("stats: %v", err)
			}
			if stats.Rank != tc.rank || stats.TotalScore != tc.total || stats.AverageScore != tc.average {
				t.Fatalf("expected rank %d total %d avg %v, got %+v", tc.rank, tc.total, tc.average, stats)
			}
			if len(stats.RecentSubmissions) != tc.recent {
				t.Fatalf("expected %d recent submissions, got %d", tc.recent, len(stats.RecentSubmissions))
			}
		})
	}

	bobStats, _ := f.service.UserStats(ctx, bob)
	if first := bobStats.RecentSubmissions[0]; first.ID != latest.SubmissionID || first.QuizID != "quiz-2" {
		t.Fatalf("expected newest submission first, got %+v", first)
	}
}

func TestCreateQuizValidates(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()

	quiz := letterQuiz("", 1)
	quiz.Difficulty = ""
	created, err := f.service.CreateQuiz(ctx, admin, quiz)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.CreatedBy != "admin" || created.Difficulty != domain.DifficultyMedium {
		t.Fatalf("unexpected created quiz: %+v", created)
	}

	bad := letterQuiz("", 1)
	bad.Questions[0].CorrectAnswer = "Z"
	if _, err := f.service.CreateQuiz(ctx, admin, bad); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	single := letterQuiz("", 1)
	single.Questions[0].Options = []string{"A"}
	if _, err := f.service.CreateQuiz(ctx, admin, single); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for single option, got %v", err)
	}
	if _, err := f.service.CreateQuiz(ctx, bob, letterQuiz("", 1)); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected admin required, got %v", err)
	}
}

func TestInactiveQuizHiddenFromUsers(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()
	hidden := letterQuiz("hidden", 1)
	hidden.IsActive = false
	if err := f.store.SaveQuiz(ctx, hidden); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := f.service.GetQuiz(ctx, alice, "hidden"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected hidden quiz to be not found, got %v", err)
	}
	if _, err := f.service.Submit(ctx, alice, "hidden", submitReq(1, "A"), app.SubmitMeta{}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected submit to inactive quiz to fail, got %v", err)
	}
	list, err := f.service.ListQuizzes(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "quiz-1" || list[0].Questions[0].CorrectAnswer != "" {
		t.Fatalf("unexpected list: %+v", list)
	}
	all, _ := f.service.ListQuizzes(ctx, admin)
	if len(all) != 2 {
		t.Fatalf("admin should list every quiz, got %d", len(all))
	}
}

func TestStatisticsAndOverview(t *testing.T) {
	f := newFixture(t, app.Options{})
	ctx := context.Background()
	mustSubmit(t, f, alice, "quiz-1", submitReq(10, "A", "B", "C"))
	mustSubmit(t, f, bob, "quiz-1", submitReq(20, "X", "B", "X"))

	if _, err := f.service.QuizStatistics(ctx, alice, "quiz-1"); !errors.Is(err, domain.ErrAdminRequired) {
		t.Fatalf("expected admin required, got %v", err)
	}
	stats, err := f.service.QuizStatistics(ctx, admin, "quiz-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Overview.TotalParticipants != 2 || stats.Overview.HighestScore != 3 || stats.Overview.LowestScore != 1 {
		t.Fatalf("unexpected overview: %+v", stats.Overview)
	}

	overview, err := f.service.PlatformOverview(ctx, admin)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.TotalUsers != 4 || overview.TotalQuizzes != 1 || overview.TotalSubmissions != 2 || overview.AverageQuizzesPerUser != 1 {
		t.Fatalf("unexpected overview: %+v", overview)
	}
	if _, err := f.service.PlatformOverview(ctx, nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func mustSubmit(t *testing.T, f *fixture, caller *domain.Identity, quizID string, req domain.SubmitRequest) domain.SubmitResult {
	t.Helper()
	res, err := f.service.Submit(context.Background(), caller, quizID, req, app.SubmitMeta{})
	if err != nil {
		t.Fatalf("submit %s/%s: %v", caller.UserID, quizID, err)
	}
	return res
}
