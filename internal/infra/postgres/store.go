package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizwale-service/internal/domain"
)

const uniqueViolation = "23505"

// Open connects bun to Postgres through pgdriver.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store persists quizzes, users and submissions with bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	row := quizRow{ID: quiz.ID, Data: quiz, IsActive: quiz.IsActive, CreatedAt: quiz.CreatedAt}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("is_active = EXCLUDED.is_active").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

// DeleteQuiz removes the quiz together with any submissions still pointing at
// it in one transaction.
func (s *Store) DeleteQuiz(ctx context.Context, quizID string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*submissionRow)(nil)).Where("quiz_id = ?", quizID).Exec(ctx); err != nil {
			return fmt.Errorf("delete quiz submissions: %w", err)
		}
		res, err := tx.NewDelete().Model((*quizRow)(nil)).Where("id = ?", quizID).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrQuizNotFound
		}
		return nil
	})
}

func (s *Store) ListQuizzes(ctx context.Context, activeOnly bool) ([]domain.Quiz, error) {
	var rows []quizRow
	q := s.db.NewSelect().Model(&rows).Order("created_at DESC", "id ASC")
	if activeOnly {
		q = q.Where("is_active = TRUE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	out := make([]domain.Quiz, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Data)
	}
	return out, nil
}

func (s *Store) CountQuizzes(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*quizRow)(nil)).Count(ctx)
}

// InsertWithinLimit serialises attempts per (user, quiz) with a transaction
// scoped advisory lock; the unique (user_id, quiz_id, attempt) key backs it up.
func (s *Store) InsertWithinLimit(ctx context.Context, sub *domain.Submission, maxAttempts int) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		lockKey := sub.UserID + "/" + sub.QuizID
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext(?))", lockKey); err != nil {
			return fmt.Errorf("lock attempts: %w", err)
		}
		used, err := tx.NewSelect().
			Model((*submissionRow)(nil)).
			Where("user_id = ?", sub.UserID).
			Where("quiz_id = ?", sub.QuizID).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}
		if maxAttempts > 0 && used >= maxAttempts {
			return &domain.AttemptsExhaustedError{Limit: maxAttempts}
		}
		sub.Attempt = used + 1
		row := toSubmissionRow(*sub)
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	if isUniqueViolation(err) {
		return &domain.AttemptsExhaustedError{Limit: maxAttempts}
	}
	if err != nil && !domain.IsAttemptsExhausted(err) {
		return fmt.Errorf("insert submission: %w", err)
	}
	return err
}

func (s *Store) CountAttempts(ctx context.Context, userID, quizID string) (int, error) {
	return s.db.NewSelect().
		Model((*submissionRow)(nil)).
		Where("user_id = ?", userID).
		Where("quiz_id = ?", quizID).
		Count(ctx)
}

func (s *Store) GetSubmission(ctx context.Context, submissionID string) (domain.Submission, error) {
	var row submissionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", submissionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	var rows []submissionRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Order("completed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) DeleteByQuiz(ctx context.Context, quizID string) (int, error) {
	res, err := s.db.NewDelete().Model((*submissionRow)(nil)).Where("quiz_id = ?", quizID).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete submissions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) CountSubmissions(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*submissionRow)(nil)).Count(ctx)
}

// AggregateByUser groups submissions per user in SQL. The inner joins drop
// submissions whose quiz or user has been removed.
func (s *Store) AggregateByUser(ctx context.Context, filter domain.LeaderboardFilter) ([]domain.UserAggregate, error) {
	q := s.db.NewSelect().
		TableExpr("submissions AS s").
		Join("JOIN users AS u ON u.id = s.user_id").
		Join("JOIN quizzes AS q ON q.id = s.quiz_id").
		ColumnExpr("s.user_id, u.name, u.email, u.avatar").
		ColumnExpr("MAX(s.score) AS best_score").
		ColumnExpr("MAX(s.percentage) AS best_percentage").
		ColumnExpr("SUM(s.score) AS total_score").
		ColumnExpr("AVG(s.score)::float8 AS average_score").
		ColumnExpr("COUNT(*) AS total_quizzes").
		ColumnExpr("MIN(s.time_spent) AS best_time").
		ColumnExpr("AVG(s.time_spent)::float8 AS average_time").
		ColumnExpr("MAX(s.completed_at) AS last_submission").
		GroupExpr("s.user_id, u.name, u.email, u.avatar")
	if filter.Since != nil {
		q = q.Where("s.completed_at >= ?", *filter.Since)
	}
	if filter.QuizID != "" {
		q = q.Where("s.quiz_id = ?", filter.QuizID)
	}
	if filter.Limit > 0 {
		q = q.OrderExpr("best_score DESC, best_time ASC, s.user_id ASC").Limit(filter.Limit)
	}

	var rows []aggregateRow
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("aggregate submissions: %w", err)
	}
	out := make([]domain.UserAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.UserAggregate{
			UserID:         r.UserID,
			Name:           r.Name,
			Email:          r.Email,
			Avatar:         r.Avatar,
			BestScore:      r.BestScore,
			BestPercentage: r.BestPercentage,
			TotalScore:     r.TotalScore,
			AverageScore:   r.AverageScore,
			TotalQuizzes:   r.TotalQuizzes,
			BestTime:       r.BestTime,
			AverageTime:    r.AverageTime,
			LastSubmission: r.LastSubmission,
		})
	}
	return out, nil
}

func (s *Store) TotalScoresByUser(ctx context.Context) ([]domain.UserTotal, error) {
	var rows []struct {
		UserID      string `bun:"user_id"`
		TotalScore  int    `bun:"total_score"`
		Submissions int    `bun:"submissions"`
	}
	err := s.db.NewSelect().
		Model((*submissionRow)(nil)).
		ColumnExpr("user_id").
		ColumnExpr("SUM(score) AS total_score").
		ColumnExpr("COUNT(*) AS submissions").
		GroupExpr("user_id").
		OrderExpr("total_score DESC, user_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("total scores: %w", err)
	}
	out := make([]domain.UserTotal, len(rows))
	for i, r := range rows {
		out[i] = domain.UserTotal{UserID: r.UserID, TotalScore: r.TotalScore, Submissions: r.Submissions}
	}
	return out, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Submission, error) {
	var rows []submissionRow
	q := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list user submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	row := toUserRow(*user)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.getUserWhere(ctx, "id = ?", userID)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUserWhere(ctx, "email = ?", strings.ToLower(email))
}

func (s *Store) getUserWhere(ctx context.Context, where string, arg string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where(where, arg).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) IncrementStats(ctx context.Context, userID string, score int) error {
	res, err := s.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("total_score = total_score + ?", score).
		Set("quizzes_completed = quizzes_completed + 1").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment stats: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*userRow)(nil)).Count(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}
