package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vehicle-market-api/internal/config"
	"github.com/vehicle-market-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	args := m.Called(ctx, phone)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByActivationToken(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByResetToken(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, limit, cursor)
	users, _ := args.Get(0).([]domain.User)
	return users, args.String(1), args.Error(2)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, role string) (string, error) {
	args := m.Called(userID, role)
	return args.String(0), args.Error(1)
}

// --- builder ---

func newService(mode config.AuthMode, us *mockUserStore, ml *mockMailer, sms *mockSMSSender, signer *mockSigner) Service {
	deps := ServiceDeps{
		UserRepo:     us,
		Mailer:       ml,
		Mode:         mode,
		FrontendURL:  "http://localhost:3000",
		LinkTokenTTL: time.Hour,
	}
	if sms != nil {
		deps.SMSSender = sms
	}
	if signer != nil {
		deps.Signer = signer
	}
	return NewService(deps)
}

func hashOf(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

// --- Register ---

func TestRegister_PasswordMode_CreatesInactiveUserWithActivationToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	var created *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.User)
	}).Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "a@b.com", "Account Activation", mock.Anything).Return(nil)

	svc := newService(config.AuthModePassword, us, ml, nil, nil)
	result, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Alice", Email: "a@b.com", Password: "secret123",
	})

	require.NoError(t, err)
	assert.False(t, result.AlreadyExists)
	require.NotNil(t, created)
	assert.False(t, created.Active)
	assert.NotEmpty(t, created.UserID)
	assert.Len(t, created.ActivationToken, 64)
	assert.Greater(t, created.ActivationExpires, time.Now().Unix())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123")))
	ml.AssertExpectations(t)
}

func TestRegister_DuplicateEmail_ReportsExistingWithoutCreating(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, nil)
	result, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Alice", Email: "a@b.com", Password: "secret123",
	})

	require.NoError(t, err)
	assert.True(t, result.AlreadyExists)
	us.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestRegister_PasswordMode_ShortPassword(t *testing.T) {
	svc := newService(config.AuthModePassword, &mockUserStore{}, &mockMailer{}, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Alice", Email: "a@b.com", Password: "abc",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_OTPMode_BadPhone(t *testing.T) {
	svc := newService(config.AuthModeOTP, &mockUserStore{}, &mockMailer{}, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Alice", Email: "a@b.com", Phone: "12345",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_OTPMode_PhoneOTPBecomesCredential(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	us.On("GetByPhone", mock.Anything, "5551234567").Return(nil, domain.ErrNotFound)
	var created *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.User)
	}).Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "a@b.com", "Email Verification OTP", mock.Anything).Return(nil)
	sms := &mockSMSSender{}
	sms.On("SendSMS", mock.Anything, "5551234567", mock.Anything).Return(nil)

	svc := newService(config.AuthModeOTP, us, ml, sms, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Alice", Email: "a@b.com", Phone: "5551234567",
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Len(t, created.EmailOTP, 6)
	assert.Len(t, created.PhoneOTP, 6)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(created.PhoneOTP)))
	sms.AssertExpectations(t)
}

func TestRegister_PhoneMode_RequiresAgree(t *testing.T) {
	svc := newService(config.AuthModePhone, &mockUserStore{}, &mockMailer{}, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Alice", Email: "a@b.com", Phone: "5551234567",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestRegister_PhoneMode_ActiveImmediately(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(nil, domain.ErrNotFound)
	us.On("GetByPhone", mock.Anything, "5551234567").Return(nil, domain.ErrNotFound)
	var created *domain.User
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.User)
	}).Return(nil)

	svc := newService(config.AuthModePhone, us, &mockMailer{}, nil, nil)
	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Alice", Email: "a@b.com", Phone: "5551234567", Agree: true,
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.True(t, created.Active)
	assert.True(t, created.TermsAccepted)
	assert.Empty(t, created.ActivationToken)
}

// --- VerifyOTP ---

func TestVerifyOTP_EmailOnly_StaysInactive(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", EmailOTP: "111111", PhoneOTP: "222222",
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		return updates[fieldEmailVerified] == true && updates[fieldEmailOTP] == nil
	})).Return(nil)

	svc := newService(config.AuthModeOTP, us, &mockMailer{}, nil, nil)
	status, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{
		Email: "a@b.com", EmailOTP: "111111",
	})

	require.NoError(t, err)
	assert.True(t, status.EmailVerified)
	assert.False(t, status.PhoneVerified)
	assert.False(t, status.Active)
}

func TestVerifyOTP_SecondChannel_Activates(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", EmailVerified: true, PhoneOTP: "222222",
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		return updates[fieldPhoneVerified] == true && updates[fieldActive] == true
	})).Return(nil)

	svc := newService(config.AuthModeOTP, us, &mockMailer{}, nil, nil)
	status, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{
		Email: "a@b.com", PhoneOTP: "222222",
	})

	require.NoError(t, err)
	assert.True(t, status.PhoneVerified)
	assert.True(t, status.Active)
}

func TestVerifyOTP_WrongCode_NoChange(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", EmailOTP: "111111",
	}, nil)

	svc := newService(config.AuthModeOTP, us, &mockMailer{}, nil, nil)
	status, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{
		Email: "a@b.com", EmailOTP: "999999",
	})

	require.NoError(t, err)
	assert.False(t, status.EmailVerified)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOTP_NoCodesSupplied(t *testing.T) {
	svc := newService(config.AuthModeOTP, &mockUserStore{}, &mockMailer{}, nil, nil)
	_, err := svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "a@b.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

// --- Activate ---

func TestActivate_UnknownToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByActivationToken", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, nil)
	err := svc.Activate(context.Background(), "nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestActivate_ExpiredToken_SameErrorAsUnknown(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByActivationToken", mock.Anything, "tok").Return(&domain.User{
		UserID: "u1", ActivationToken: "tok",
		ActivationExpires: time.Now().Add(-time.Minute).Unix(),
	}, nil)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, nil)
	err := svc.Activate(context.Background(), "tok")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestActivate_ValidToken_ActivatesAndClearsToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByActivationToken", mock.Anything, "tok").Return(&domain.User{
		UserID: "u1", ActivationToken: "tok",
		ActivationExpires: time.Now().Add(time.Hour).Unix(),
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		active, hasActive := updates[fieldActive]
		tok, hasTok := updates[fieldActivationToken]
		return hasActive && active == true && hasTok && tok == nil
	})).Return(nil)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, nil)
	require.NoError(t, svc.Activate(context.Background(), "tok"))
	us.AssertExpectations(t)
}

// --- ResendActivation ---

func TestResendActivation_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, nil)
	err := svc.ResendActivation(context.Background(), "x@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResendActivation_RotatesTokenBeforeDelivery(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{UserID: "u1", Email: "a@b.com"}, nil)
	var rotated string
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		tok, ok := updates[fieldActivationToken].(string)
		rotated = tok
		return ok && len(tok) == 64
	})).Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "a@b.com", "Account Activation", mock.MatchedBy(func(body string) bool {
		return rotated != "" // token was persisted before the send
	})).Return(nil)

	svc := newService(config.AuthModePassword, us, ml, nil, nil)
	require.NoError(t, svc.ResendActivation(context.Background(), "a@b.com"))
	ml.AssertExpectations(t)
}

// --- Login ---

func TestLogin_PasswordMode_Success(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", Role: domain.RoleUser, Active: true,
		PasswordHash: hashOf(t, "secret123"),
	}, nil)
	signer := &mockSigner{}
	signer.On("Sign", "u1", domain.RoleUser).Return("signed-token", nil)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, signer)
	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email: "a@b.com", Password: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, "signed-token", result.Bearer)
	assert.Equal(t, "u1", result.User.UserID)
}

func TestLogin_PasswordMode_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Active: true, PasswordHash: hashOf(t, "secret123"),
	}, nil)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, &mockSigner{})
	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email: "a@b.com", Password: "secret124",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_PasswordMode_InactiveAccount(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", PasswordHash: hashOf(t, "secret123"),
	}, nil)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, &mockSigner{})
	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email: "a@b.com", Password: "secret123",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, &mockSigner{})
	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email: "x@x.com", Password: "secret123",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestLogin_OTPMode_CodeVerifiedAgainstCredentialHash(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByPhone", mock.Anything, "5551234567").Return(&domain.User{
		UserID: "u1", Role: domain.RoleUser, PasswordHash: hashOf(t, "123456"),
	}, nil)
	signer := &mockSigner{}
	signer.On("Sign", "u1", domain.RoleUser).Return("signed-token", nil)

	svc := newService(config.AuthModeOTP, us, &mockMailer{}, nil, signer)
	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Phone: "5551234567", OTP: "123456",
	})

	require.NoError(t, err)
	assert.Equal(t, "signed-token", result.Bearer)
}

func TestLogin_PhoneMode_PhoneOnly(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByPhone", mock.Anything, "5551234567").Return(&domain.User{
		UserID: "u1", Role: domain.RoleUser, Active: true,
	}, nil)
	signer := &mockSigner{}
	signer.On("Sign", "u1", domain.RoleUser).Return("signed-token", nil)

	svc := newService(config.AuthModePhone, us, &mockMailer{}, nil, signer)
	result, err := svc.Login(context.Background(), domain.LoginRequest{Phone: "5551234567"})

	require.NoError(t, err)
	assert.Equal(t, "signed-token", result.Bearer)
}

func TestLogin_NoSigner_ConfigurationError(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "a@b.com").Return(&domain.User{
		UserID: "u1", Active: true, PasswordHash: hashOf(t, "secret123"),
	}, nil)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, nil)
	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email: "a@b.com", Password: "secret123",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

// --- Password reset ---

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "x@x.com").Return(nil, domain.ErrNotFound)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, nil)
	err := svc.RequestPasswordReset(context.Background(), "x@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResetPassword_ExpiredToken_SameErrorAsUnknown(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByResetToken", mock.Anything, "tok").Return(&domain.User{
		UserID: "u1", ResetToken: "tok",
		ResetExpires: time.Now().Add(-time.Minute).Unix(),
	}, nil)

	svc := newService(config.AuthModePassword, us, &mockMailer{}, nil, nil)
	err := svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Token: "tok", NewPassword: "newsecret",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPassword_ValidToken_UpdatesHashAndClearsToken(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByResetToken", mock.Anything, "tok").Return(&domain.User{
		UserID: "u1", Email: "a@b.com", ResetToken: "tok",
		ResetExpires: time.Now().Add(time.Hour).Unix(),
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		hash, ok := updates[fieldPasswordHash].(string)
		if !ok {
			return false
		}
		tok, hasTok := updates[fieldResetToken]
		return hasTok && tok == nil &&
			bcrypt.CompareHashAndPassword([]byte(hash), []byte("newsecret")) == nil
	})).Return(nil)

	ml := &mockMailer{}
	ml.On("SendEmail", "a@b.com", "Password Reset Successful", mock.Anything).Return(nil)

	svc := newService(config.AuthModePassword, us, ml, nil, nil)
	err := svc.ResetPassword(context.Background(), domain.ResetPasswordRequest{
		Token: "tok", NewPassword: "newsecret",
	})

	require.NoError(t, err)
	us.AssertExpectations(t)
}
