package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizwale-service/internal/app"
	"quizwale-service/internal/config"
	"quizwale-service/internal/domain"
	"quizwale-service/internal/infra/memory"
	"quizwale-service/internal/infra/postgres"
)

type quizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// backend bundles the persistent stores chosen by config.
type backend struct {
	loader      quizLoader
	quizzes     app.QuizStore
	submissions app.SubmissionRepository
	users       app.UserRepository
	persistent  bool
	close       func()
}

// openBackend uses Postgres when a URL is configured and the in-process store otherwise.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	if cfg.Postgres.URL == "" {
		store := memory.NewStore()
		log.Printf("postgres not configured, using in-memory store")
		return &backend{
			loader:      store,
			quizzes:     store,
			submissions: store,
			users:       store,
			close:       func() {},
		}, nil
	}

	db := postgres.Open(cfg.Postgres.URL)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect pgx pool: %w", err)
	}
	store := postgres.NewStore(db)
	return &backend{
		loader:      postgres.NewQuizLoader(pool),
		quizzes:     store,
		submissions: store,
		users:       store,
		persistent:  true,
		close: func() {
			pool.Close()
			if err := db.Close(); err != nil {
				log.Printf("close postgres: %v", err)
			}
		},
	}, nil
}
