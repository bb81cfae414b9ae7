package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"quizwale-service/internal/app"
	"quizwale-service/internal/auth"
	"quizwale-service/internal/domain"
	"quizwale-service/internal/infra/memory"
)

type testEnv struct {
	server *httptest.Server
	store  *memory.Store
	tokens *auth.Manager
}

func newTestEnv(t *testing.T, tick time.Duration) *testEnv {
	t.Helper()
	store := memory.NewStore()
	service := app.NewQuizService(
		memory.NewQuizRepository(store, time.Minute),
		store, store, store,
		memory.NewAttemptTracker(),
		app.Options{AttemptGrace: time.Minute},
	)
	tokens := auth.NewManager("test-secret", time.Hour)
	sessions := auth.NewSessions(tokens, "", false)
	accounts := app.NewAccountService(store, auth.NewHasher(bcrypt.MinCost), tokens, "admin-key")

	ws := NewWSHandler(service)
	if tick > 0 {
		ws.tickEvery = tick
	}
	server := httptest.NewServer(NewRouter(NewHandler(service, accounts, sessions), ws, sessions))
	t.Cleanup(server.Close)

	ctx := context.Background()
	for _, u := range []domain.User{
		{ID: "alice", Email: "alice@example.com", Name: "Alice", Role: domain.RoleUser},
		{ID: "bob", Email: "bob@example.com", Name: "Bob", Role: domain.RoleUser},
		{ID: "root", Email: "root@example.com", Name: "Root", Role: domain.RoleAdmin},
	} {
		user := u
		if err := store.CreateUser(ctx, &user); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	if err := store.SaveQuiz(ctx, testQuiz("quiz-1", 120)); err != nil {
		t.Fatalf("save quiz: %v", err)
	}
	return &testEnv{server: server, store: store, tokens: tokens}
}

func testQuiz(id string, duration int) domain.Quiz {
	return domain.Quiz{
		ID:          id,
		Title:       "Letters",
		Duration:    duration,
		Difficulty:  domain.DifficultyEasy,
		IsActive:    true,
		MaxAttempts: 1,
		Questions: []domain.Question{
			{QuestionText: "first", Options: []string{"A", "X"}, CorrectAnswer: "A", Explanation: "first letter"},
			{QuestionText: "second", Options: []string{"B", "X"}, CorrectAnswer: "B"},
			{QuestionText: "third", Options: []string{"C", "X"}, CorrectAnswer: "C"},
		},
	}
}

func (e *testEnv) token(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token, err := e.tokens.Issue(domain.Identity{UserID: userID, Email: userID + "@example.com", Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// do sends a JSON request and decodes the JSON response into a generic map.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp, out
}
