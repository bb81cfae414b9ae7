package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quizwale-service/internal/app"
	"quizwale-service/internal/auth"
	"quizwale-service/internal/config"
	"quizwale-service/internal/domain"
)

// NewSeedCmd inserts the sample quiz and an administrator.
func NewSeedCmd(configPath *string) *cobra.Command {
	var adminEmail, adminPassword, adminName string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample quizzes and an admin account into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			be, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer be.close()

			admin, err := seedAdmin(cmd.Context(), be.users, auth.NewHasher(cfg.Auth.BcryptCost), adminEmail, adminPassword, adminName)
			if err != nil {
				return err
			}
			return seedQuizzes(cmd.Context(), be.quizzes, admin.ID)
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@quizwale.dev", "administrator email")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "admin123", "administrator password")
	cmd.Flags().StringVar(&adminName, "admin-name", "Administrator", "administrator display name")
	return cmd
}

func seedAdmin(ctx context.Context, users app.UserRepository, hasher app.PasswordHasher, email, password, name string) (domain.User, error) {
	if existing, err := users.GetUserByEmail(ctx, email); err == nil {
		log.Printf("admin %s already exists", existing.Email)
		return existing, nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}
	admin := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now(),
	}
	if err := users.CreateUser(ctx, &admin); err != nil {
		return domain.User{}, err
	}
	log.Printf("created admin %s", admin.Email)
	return admin, nil
}

func seedQuizzes(ctx context.Context, store app.QuizStore, createdBy string) error {
	for _, quiz := range sampleQuizzes(createdBy) {
		if err := store.SaveQuiz(ctx, quiz); err != nil {
			return err
		}
		log.Printf("seeded quiz %q (%s)", quiz.Title, quiz.ID)
	}
	return nil
}

// sampleQuizzes uses fixed IDs so reseeding overwrites instead of duplicating.
func sampleQuizzes(createdBy string) []domain.Quiz {
	return []domain.Quiz{
		{
			ID:          "javascript-fundamentals",
			Title:       "JavaScript Fundamentals",
			Description: "Test your knowledge of JavaScript basics including variables, functions, and control structures.",
			Category:    "Programming",
			Duration:    1800,
			Difficulty:  domain.DifficultyEasy,
			Tags:        []string{"javascript", "basics"},
			IsActive:    true,
			MaxAttempts: 1,
			CreatedBy:   createdBy,
			CreatedAt:   time.Now(),
			Questions: []domain.Question{
				{
					QuestionText:  "Which of the following is the correct syntax to print in JavaScript?",
					Options:       []string{"print()", "console.log()", "echo()", "System.out.println()"},
					CorrectAnswer: "console.log()",
					Explanation:   "console.log() writes output to the browser console.",
				},
				{
					QuestionText:  "Which company developed JavaScript?",
					Options:       []string{"Microsoft", "Google", "Netscape", "Oracle"},
					CorrectAnswer: "Netscape",
					Explanation:   "JavaScript was created by Brendan Eich at Netscape.",
				},
				{
					QuestionText:  "What does `typeof NaN` return?",
					Options:       []string{"NaN", "number", "undefined", "object"},
					CorrectAnswer: "number",
					Explanation:   "NaN is a numeric value, so typeof reports number.",
				},
				{
					QuestionText:  "What is the output of: '2' + 2?",
					Options:       []string{"22", "4", "NaN", "undefined"},
					CorrectAnswer: "22",
					Explanation:   "The number is converted to a string and concatenated.",
				},
				{
					QuestionText:  "Which keyword declares a constant in JavaScript?",
					Options:       []string{"let", "var", "const", "define"},
					CorrectAnswer: "const",
				},
				{
					QuestionText:  "What is used to convert a JSON string into an object?",
					Options:       []string{"JSON.parse()", "JSON.stringify()", "JSON.object()", "parse.JSON()"},
					CorrectAnswer: "JSON.parse()",
				},
			},
		},
	}
}
