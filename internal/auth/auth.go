// Package auth registers and logs in users and issues the bearer tokens the API accepts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/neexbeast/globetrotter/internal/storage"
	"github.com/neexbeast/globetrotter/internal/travel"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTooManyAttempts    = errors.New("too many login attempts")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidInput       = errors.New("invalid signup details")
)

const (
	issuer            = "globetrotter"
	minPasswordLength = 6
	defaultTokenTTL   = 24 * time.Hour
)

// Users is the storage the service needs.
type Users interface {
	CreateUser(ctx context.Context, u *travel.User) error
	GetUserByEmail(ctx context.Context, email string) (*travel.User, error)
	SetInterests(ctx context.Context, userID uuid.UUID, interests []string) error
}

// Signup carries the registration form.
type Signup struct {
	Email          string   `json:"email"`
	Password       string   `json:"password"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Phone          string   `json:"phone"`
	City           string   `json:"city"`
	Country        string   `json:"country"`
	AdditionalInfo string   `json:"additional_info"`
	Interests      []string `json:"interests"`
}

// Service implements signup, login and token handling.
type Service struct {
	users   Users
	secret  []byte
	ttl     time.Duration
	cost    int
	now     func() time.Time
	limiter *loginLimiter
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for token timestamps and throttling.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithLoginRate sets how many login attempts per email are allowed.
func WithLoginRate(every time.Duration, burst int) Option {
	return func(s *Service) { s.limiter = newLoginLimiter(rate.Every(every), burst) }
}

// NewService constructs a Service signing tokens with secret.
func NewService(users Users, secret string, ttl time.Duration, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	s := &Service{
		users:   users,
		secret:  []byte(secret),
		ttl:     ttl,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		limiter: newLoginLimiter(rate.Every(12*time.Second), 5),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, in Signup) (*travel.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password: %w", err)
	}

	u := &travel.User{
		Email:          email,
		PasswordHash:   string(hash),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Phone:          in.Phone,
		City:           in.City,
		Country:        in.Country,
		AdditionalInfo: in.AdditionalInfo,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("creating user: %w", err)
	}

	if len(in.Interests) > 0 {
		if err := s.users.SetInterests(ctx, u.ID, in.Interests); err != nil {
			return nil, "", fmt.Errorf("storing interests: %w", err)
		}
	}
	u.Interests = in.Interests
	if u.Interests == nil {
		u.Interests = []string{}
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*travel.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !s.limiter.allow(email, s.now()) {
		return nil, "", ErrTooManyAttempts
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("looking up user: %w", err)
	}
	if u == nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// IssueToken signs an HS256 token whose subject is the user ID.
func (s *Service) IssueToken(userID uuid.UUID) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// ParseToken validates a token and returns the user ID it was issued for.
func (s *Service) ParseToken(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}
