package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"quizwale-service/internal/domain"
)

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

// TokenIssuer signs session tokens for identities.
type TokenIssuer interface {
	Issue(id domain.Identity) (string, error)
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AccountService registers and authenticates users.
type AccountService struct {
	users    UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	adminKey string
	now      func() time.Time
}

func NewAccountService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, adminKey string) *AccountService {
	return &AccountService{users: users, hasher: hasher, tokens: tokens, adminKey: adminKey, now: time.Now}
}

// Register creates a user and returns it with a session token. A matching
// adminKey grants the admin role.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest, adminKey string) (domain.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	switch {
	case email == "" || req.Password == "" || name == "":
		return domain.User{}, "", domain.Invalid("", "missing required fields")
	case !emailPattern.MatchString(email):
		return domain.User{}, "", domain.Invalid("email", "invalid email format")
	case len(req.Password) < minPasswordLength:
		return domain.User{}, "", domain.Invalid("password", "must be at least %d characters", minPasswordLength)
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return domain.User{}, "", domain.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, "", err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return domain.User{}, "", err
	}
	role := domain.RoleUser
	if s.adminKey != "" && subtle.ConstantTimeCompare([]byte(adminKey), []byte(s.adminKey)) == 1 {
		role = domain.RoleAdmin
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return domain.User{}, "", err
	}
	token, err := s.tokens.Issue(identityOf(user))
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Login checks credentials and returns a fresh session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, "", err
	}
	ok, err := s.hasher.Compare(user.PasswordHash, password)
	if err != nil {
		return domain.User{}, "", err
	}
	if !ok {
		return domain.User{}, "", domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(identityOf(user))
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// Profile returns the caller's account with its cumulative counters.
func (s *AccountService) Profile(ctx context.Context, caller *domain.Identity) (domain.User, error) {
	if caller == nil {
		return domain.User{}, domain.ErrUnauthenticated
	}
	return s.users.GetUser(ctx, caller.UserID)
}

func identityOf(u domain.User) domain.Identity {
	return domain.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}
