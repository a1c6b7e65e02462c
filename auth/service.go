// Package auth registers users with an e-mailed one-time code and issues the
// JWTs the API middleware accepts.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"studx/database"
	"studx/mailer"
	"studx/middleware"
	"studx/models"
)

var (
	ErrEmailTaken         = errors.New("Email already in use")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrNotVerified        = errors.New("Email not verified")
	ErrAlreadyVerified    = errors.New("Email already verified")
	ErrInvalidOTP         = errors.New("Invalid or expired code")
	ErrUserNotFound       = errors.New("User not found")
)

const otpDigits = 6

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	SetVerified(ctx context.Context, id primitive.ObjectID) error
}

type OTPStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	// Consume reports whether code matches and, if so, invalidates it.
	Consume(ctx context.Context, email, code string) (bool, error)
}

type Options struct {
	Secret   []byte
	TokenTTL time.Duration
	OTPTTL   time.Duration
	Logger   zerolog.Logger
	Now      func() time.Time
}

type Service struct {
	users  UserRepository
	otps   OTPStore
	mail   mailer.Mailer
	secret []byte
	ttl    time.Duration
	otpTTL time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(users UserRepository, otps OTPStore, mail mailer.Mailer, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	return &Service{
		users:  users,
		otps:   otps,
		mail:   mail,
		secret: opts.Secret,
		ttl:    opts.TokenTTL,
		otpTTL: opts.OTPTTL,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Branch   string
}

// Session is returned after a successful login or verification.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register stores an unverified user and e-mails a verification code.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*models.User, error) {
	email := normalizeEmail(p.Email)

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         strings.TrimSpace(p.Name),
		Email:        email,
		PasswordHash: string(hashed),
		Branch:       strings.TrimSpace(p.Branch),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if err := s.sendOTP(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.Hex()).Msg("user registered")
	return user, nil
}

// ResendOTP issues a fresh code for a user that has not verified yet.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user by email: %w", err)
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}
	return s.sendOTP(ctx, user)
}

// VerifyOTP consumes the code, marks the user verified and signs a token.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	ok, err := s.otps.Consume(ctx, email, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("consume otp: %w", err)
	}
	if !ok {
		return nil, ErrInvalidOTP
	}

	if !user.IsVerified {
		if err := s.users.SetVerified(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("mark user verified: %w", err)
		}
		user.IsVerified = true
	}

	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	return s.session(user)
}

// IssueToken signs an HS256 token for userID.
func (s *Service) IssueToken(userID string) (string, error) {
	now := s.now()
	claims := &middleware.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.IssueToken(user.ID.Hex())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func (s *Service) sendOTP(ctx context.Context, user *models.User) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	if err := s.otps.Save(ctx, user.Email, code, s.otpTTL); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.mail.SendOTP(user.Email, user.Name, code); err != nil {
		return fmt.Errorf("deliver otp: %w", err)
	}
	return nil
}

func generateOTP() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
