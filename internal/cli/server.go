package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizwale-service/internal/app"
	"quizwale-service/internal/auth"
	"quizwale-service/internal/config"
	"quizwale-service/internal/infra/memory"
	redisinfra "quizwale-service/internal/infra/redis"
	transport "quizwale-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) must be set")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()
	if !be.persistent {
		if err := seedQuizzes(ctx, be.quizzes, "system"); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var tracker app.AttemptTracker
	if redisClient != nil {
		redisTTL := config.TTLDuration(cfg.Redis.TTL, quizTTL)
		quizRepo = redisinfra.NewQuizRepository(redisClient, be.loader, redisTTL)
		tracker = redisinfra.NewAttemptTracker(redisClient)
	} else {
		quizRepo = memory.NewQuizRepository(be.loader, quizTTL)
		tracker = memory.NewAttemptTracker()
	}

	quizService := app.NewQuizService(quizRepo, be.quizzes, be.submissions, be.users, tracker, app.Options{
		ServerTiming: cfg.Quiz.ServerTiming,
		AttemptGrace: config.TTLDuration(cfg.Quiz.AttemptGrace, time.Minute),
	})

	tokens := auth.NewManager(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 0))
	sessions := auth.NewSessions(tokens, cfg.Auth.CookieName, cfg.Auth.SecureCookie)
	accounts := app.NewAccountService(be.users, auth.NewHasher(cfg.Auth.BcryptCost), tokens, cfg.Auth.AdminKey)

	router := transport.NewRouter(
		transport.NewHandler(quizService, accounts, sessions),
		transport.NewWSHandler(quizService),
		sessions,
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
