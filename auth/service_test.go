package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"studx/database"
	"studx/middleware"
	"studx/models"
)

type memUsers struct {
	mu    sync.Mutex
	byKey map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byKey: map[string]*models.User{}}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byKey[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Insert(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[user.Email]; ok {
		return database.ErrDuplicateKey
	}
	cp := *user
	m.byKey[user.Email] = &cp
	return nil
}

func (m *memUsers) SetVerified(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byKey {
		if u.ID == id {
			u.IsVerified = true
			return nil
		}
	}
	return database.ErrNotFound
}

type memOTPs struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *memOTPs) Save(_ context.Context, email, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *memOTPs) Consume(_ context.Context, email, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.codes[email]; ok && stored == code {
		delete(m.codes, email)
		return true, nil
	}
	return false, nil
}

type recordingMailer struct {
	sent map[string]string
	err  error
}

func (r *recordingMailer) SendOTP(to, _, code string) error {
	if r.err != nil {
		return r.err
	}
	r.sent[to] = code
	return nil
}

type authFixture struct {
	svc   *Service
	users *memUsers
	mail  *recordingMailer
}

func newAuthFixture() *authFixture {
	users := newMemUsers()
	mail := &recordingMailer{sent: map[string]string{}}
	svc := NewService(users, &memOTPs{codes: map[string]string{}}, mail, Options{
		Secret: []byte("test-secret"),
		Logger: zerolog.Nop(),
	})
	return &authFixture{svc: svc, users: users, mail: mail}
}

func (f *authFixture) register(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterParams{
		Name:     "Priya Sharma",
		Email:    email,
		Password: "hunter22",
		Branch:   "CSE",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "  Priya@Campus.EDU ")

	assert.Equal(t, "priya@campus.edu", user.Email)
	assert.False(t, user.IsVerified)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.Len(t, f.mail.sent["priya@campus.edu"], 6)

	_, err := f.svc.Register(context.Background(), RegisterParams{Email: "priya@campus.edu", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_MailFailure(t *testing.T) {
	f := newAuthFixture()
	f.mail.err = errors.New("smtp down")

	_, err := f.svc.Register(context.Background(), RegisterParams{Email: "a@campus.edu", Password: "hunter22"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestVerifyOTP(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	user := f.register(t, "priya@campus.edu")
	code := f.mail.sent["priya@campus.edu"]

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err := f.svc.VerifyOTP(ctx, "priya@campus.edu", wrong)
	assert.ErrorIs(t, err, ErrInvalidOTP)

	session, err := f.svc.VerifyOTP(ctx, "PRIYA@campus.edu", code)
	require.NoError(t, err)
	assert.True(t, session.User.IsVerified)

	claims, err := middleware.ParseToken(session.Token, []byte("test-secret"))
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)

	// single use
	_, err = f.svc.VerifyOTP(ctx, "priya@campus.edu", code)
	assert.ErrorIs(t, err, ErrInvalidOTP)

	_, err = f.svc.VerifyOTP(ctx, "nobody@campus.edu", code)
	assert.ErrorIs(t, err, ErrInvalidOTP)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.register(t, "priya@campus.edu")

	_, err := f.svc.Login(ctx, "priya@campus.edu", "hunter22")
	assert.ErrorIs(t, err, ErrNotVerified)

	_, err = f.svc.VerifyOTP(ctx, "priya@campus.edu", f.mail.sent["priya@campus.edu"])
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "priya@campus.edu", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "ghost@campus.edu", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := f.svc.Login(ctx, "Priya@Campus.edu", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "priya@campus.edu", session.User.Email)
}

func TestResendOTP(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.register(t, "priya@campus.edu")
	first := f.mail.sent["priya@campus.edu"]

	require.NoError(t, f.svc.ResendOTP(ctx, "priya@campus.edu"))
	second := f.mail.sent["priya@campus.edu"]
	require.Len(t, second, 6)

	if first != second {
		_, err := f.svc.VerifyOTP(ctx, "priya@campus.edu", first)
		assert.ErrorIs(t, err, ErrInvalidOTP)
	}
	_, err := f.svc.VerifyOTP(ctx, "priya@campus.edu", second)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "priya@campus.edu"), ErrAlreadyVerified)
	assert.ErrorIs(t, f.svc.ResendOTP(ctx, "ghost@campus.edu"), ErrUserNotFound)
}

func TestIssueToken_Expiry(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	svc := NewService(newMemUsers(), &memOTPs{codes: map[string]string{}}, &recordingMailer{sent: map[string]string{}}, Options{
		Secret:   []byte("test-secret"),
		TokenTTL: time.Hour,
		Now:      func() time.Time { return issued },
	})

	token, err := svc.IssueToken(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	_, err = middleware.ParseToken(token, []byte("test-secret"))
	assert.Error(t, err)
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}
