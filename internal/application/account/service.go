package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vehicle-market-api/internal/config"
	"github.com/vehicle-market-api/internal/domain"
	"github.com/vehicle-market-api/internal/pkg/id"
	pkgtoken "github.com/vehicle-market-api/internal/pkg/token"
	"github.com/vehicle-market-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps. A nil value in an
// update map removes the attribute (single-use tokens are cleared that way).
const (
	fieldActive            = "active"
	fieldEmailVerified     = "email_verified"
	fieldPhoneVerified     = "phone_verified"
	fieldEmailOTP          = "email_otp"
	fieldPhoneOTP          = "phone_otp"
	fieldActivationToken   = "activation_token"
	fieldActivationExpires = "activation_expires"
	fieldResetToken        = "reset_token"
	fieldResetExpires      = "reset_expires"
	fieldPasswordHash      = "password_hash"
)

const mailAttempts = 3

// RegisterResult is returned for both fresh and duplicate registrations.
// A duplicate registration is not an error from the caller's perspective.
type RegisterResult struct {
	Email         string `json:"email"`
	AlreadyExists bool   `json:"-"`
}

// VerificationStatus reports the per-channel flags after an OTP submission.
type VerificationStatus struct {
	EmailVerified bool `json:"emailVerified"`
	PhoneVerified bool `json:"phoneVerified"`
	Active        bool `json:"active"`
}

// LoginResult carries the signed bearer token and the authenticated user.
type LoginResult struct {
	Bearer string
	User   *domain.User
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*RegisterResult, error)
	VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*VerificationStatus, error)
	Activate(ctx context.Context, token string) error
	ResendActivation(ctx context.Context, email string) error
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	GetByActivationToken(ctx context.Context, token string) (*domain.User, error)
	GetByResetToken(ctx context.Context, token string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type bearerSigner interface {
	Sign(userID, role string) (string, error)
}

type service struct {
	repo         userStore
	mailer       mailer
	smsSender    smsSender // nil when SNS is unconfigured; phone OTPs go to the log
	signer       bearerSigner
	mode         config.AuthMode
	frontendURL  string
	linkTokenTTL time.Duration
}

type ServiceDeps struct {
	UserRepo     userStore
	Mailer       mailer
	SMSSender    smsSender
	Signer       bearerSigner
	Mode         config.AuthMode
	FrontendURL  string
	LinkTokenTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:         deps.UserRepo,
		mailer:       deps.Mailer,
		smsSender:    deps.SMSSender,
		signer:       deps.Signer,
		mode:         deps.Mode,
		frontendURL:  deps.FrontendURL,
		linkTokenTTL: deps.LinkTokenTTL,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*RegisterResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	switch s.mode {
	case config.AuthModeOTP, config.AuthModePhone:
		if !validate.Phone(req.Phone) {
			return nil, fmt.Errorf("field 'phone' must be exactly 10 digits: %w", domain.ErrBadRequest)
		}
	}
	if s.mode == config.AuthModePassword && len(req.Password) < 6 {
		return nil, fmt.Errorf("field 'password' must be at least 6 characters: %w", domain.ErrBadRequest)
	}
	if s.mode == config.AuthModePhone && !req.Agree {
		return nil, fmt.Errorf("field 'agree' must be accepted: %w", domain.ErrBadRequest)
	}

	if existing, err := s.findDuplicate(ctx, req); err != nil {
		return nil, err
	} else if existing {
		return &RegisterResult{Email: req.Email, AlreadyExists: true}, nil
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:    id.New(),
		Name:      req.Name,
		Email:     req.Email,
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Phone != "" {
		u.Phone = &req.Phone
	}

	var emailOTP, phoneOTP, activationToken string
	switch s.mode {
	case config.AuthModeOTP:
		var err error
		if emailOTP, err = pkgtoken.NewOTP(); err != nil {
			return nil, err
		}
		if phoneOTP, err = pkgtoken.NewOTP(); err != nil {
			return nil, err
		}
		// The phone OTP doubles as the OTP-as-password login credential,
		// so only its hash is persisted in the credential field.
		hash, err := bcrypt.GenerateFromPassword([]byte(phoneOTP), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u.EmailOTP = emailOTP
		u.PhoneOTP = phoneOTP
		u.PasswordHash = string(hash)
	case config.AuthModePassword:
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
		if activationToken, err = pkgtoken.NewLinkToken(); err != nil {
			return nil, err
		}
		u.ActivationToken = activationToken
		u.ActivationExpires = now.Add(s.linkTokenTTL).Unix()
	case config.AuthModePhone:
		u.Active = true
		u.TermsAccepted = true
	}

	if err := s.repo.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %v: %w", err, domain.ErrDependency)
	}

	switch s.mode {
	case config.AuthModeOTP:
		if err := s.sendEmail(u.Email, "Email Verification OTP",
			"Your OTP for email verification is: "+emailOTP); err != nil {
			return nil, err
		}
		s.deliverSMS(ctx, req.Phone, "Your OTP for phone verification is: "+phoneOTP)
	case config.AuthModePassword:
		link := fmt.Sprintf("%s/activate/%s", s.frontendURL, activationToken)
		if err := s.sendEmail(u.Email, "Account Activation",
			"Please click the following link to activate your account: "+link); err != nil {
			return nil, err
		}
	}

	return &RegisterResult{Email: u.Email}, nil
}

// findDuplicate checks email (and phone, in the modes that key on phone)
// uniqueness before creating a record.
func (s *service) findDuplicate(ctx context.Context, req domain.RegisterRequest) (bool, error) {
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return true, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("lookup by email: %v: %w", err, domain.ErrDependency)
	}
	if s.mode == config.AuthModeOTP || s.mode == config.AuthModePhone {
		if _, err := s.repo.GetByPhone(ctx, req.Phone); err == nil {
			return true, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return false, fmt.Errorf("lookup by phone: %v: %w", err, domain.ErrDependency)
		}
	}
	return false, nil
}

func (s *service) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*VerificationStatus, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if req.EmailOTP == "" && req.PhoneOTP == "" {
		return nil, fmt.Errorf("at least one OTP is required: %w", domain.ErrBadRequest)
	}
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup by email: %v: %w", err, domain.ErrDependency)
	}

	updates := map[string]interface{}{}
	if req.EmailOTP != "" && u.EmailOTP != "" && req.EmailOTP == u.EmailOTP {
		u.EmailVerified = true
		updates[fieldEmailVerified] = true
		updates[fieldEmailOTP] = nil // single-use
	}
	if req.PhoneOTP != "" && u.PhoneOTP != "" && req.PhoneOTP == u.PhoneOTP {
		u.PhoneVerified = true
		updates[fieldPhoneVerified] = true
		updates[fieldPhoneOTP] = nil
	}
	if u.EmailVerified && u.PhoneVerified && !u.Active {
		u.Active = true
		updates[fieldActive] = true
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, u.UserID, updates); err != nil {
			return nil, fmt.Errorf("update verification flags: %v: %w", err, domain.ErrDependency)
		}
	}
	return &VerificationStatus{
		EmailVerified: u.EmailVerified,
		PhoneVerified: u.PhoneVerified,
		Active:        u.Active,
	}, nil
}

func (s *service) Activate(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("token is required: %w", domain.ErrBadRequest)
	}
	u, err := s.repo.GetByActivationToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Wrong and expired tokens are deliberately indistinguishable.
			return fmt.Errorf("invalid or expired activation token: %w", domain.ErrBadRequest)
		}
		return fmt.Errorf("lookup by activation token: %v: %w", err, domain.ErrDependency)
	}
	if !u.HasValidActivationToken(time.Now().UTC()) {
		return fmt.Errorf("invalid or expired activation token: %w", domain.ErrBadRequest)
	}
	updates := map[string]interface{}{
		fieldActive:            true,
		fieldActivationToken:   nil,
		fieldActivationExpires: nil,
	}
	if err := s.repo.Update(ctx, u.UserID, updates); err != nil {
		return fmt.Errorf("activate user: %v: %w", err, domain.ErrDependency)
	}
	return nil
}

func (s *service) ResendActivation(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("lookup by email: %v: %w", err, domain.ErrDependency)
	}
	newToken, err := pkgtoken.NewLinkToken()
	if err != nil {
		return err
	}
	// Rotation overwrites any previous token. It is persisted before
	// delivery and is not rolled back when delivery fails.
	updates := map[string]interface{}{
		fieldActivationToken:   newToken,
		fieldActivationExpires: time.Now().UTC().Add(s.linkTokenTTL).Unix(),
	}
	if err := s.repo.Update(ctx, u.UserID, updates); err != nil {
		return fmt.Errorf("rotate activation token: %v: %w", err, domain.ErrDependency)
	}
	link := fmt.Sprintf("%s/activate/%s", s.frontendURL, newToken)
	return s.sendEmail(u.Email, "Account Activation",
		"Please click the following link to activate your account: "+link)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	var u *domain.User
	var err error

	switch s.mode {
	case config.AuthModePhone:
		if req.Phone == "" {
			return nil, fmt.Errorf("field 'phone' is required: %w", domain.ErrBadRequest)
		}
		u, err = s.findByPhone(ctx, req.Phone)
		if err != nil {
			return nil, err
		}
	case config.AuthModePassword:
		if req.Email == "" || req.Password == "" {
			return nil, fmt.Errorf("fields 'email' and 'password' are required: %w", domain.ErrBadRequest)
		}
		u, err = s.findByEmail(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if !u.Active {
			return nil, fmt.Errorf("account not activated: %w", domain.ErrBadRequest)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			return nil, fmt.Errorf("invalid password: %w", domain.ErrUnauthorized)
		}
	case config.AuthModeOTP:
		if req.Phone == "" || req.OTP == "" {
			return nil, fmt.Errorf("fields 'phone' and 'otp' are required: %w", domain.ErrBadRequest)
		}
		u, err = s.findByPhone(ctx, req.Phone)
		if err != nil {
			return nil, err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OTP)); err != nil {
			return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
		}
	}

	if s.signer == nil {
		return nil, fmt.Errorf("bearer token signing unavailable: %w", domain.ErrConfiguration)
	}
	bearer, err := s.signer.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign bearer token: %v: %w", err, domain.ErrConfiguration)
	}
	return &LoginResult{Bearer: bearer, User: u}, nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	newToken, err := pkgtoken.NewLinkToken()
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		fieldResetToken:   newToken,
		fieldResetExpires: time.Now().UTC().Add(s.linkTokenTTL).Unix(),
	}
	if err := s.repo.Update(ctx, u.UserID, updates); err != nil {
		return fmt.Errorf("issue reset token: %v: %w", err, domain.ErrDependency)
	}
	link := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, newToken)
	return s.sendEmail(u.Email, "Password Reset",
		"Please click the following link to reset your password: "+link)
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	if err := validate.Struct(&req); err != nil {
		return fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	u, err := s.repo.GetByResetToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("invalid or expired token: %w", domain.ErrBadRequest)
		}
		return fmt.Errorf("lookup by reset token: %v: %w", err, domain.ErrDependency)
	}
	if !u.HasValidResetToken(time.Now().UTC()) {
		return fmt.Errorf("invalid or expired token: %w", domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		fieldPasswordHash: string(hash),
		fieldResetToken:   nil, // single-use
		fieldResetExpires: nil,
	}
	if err := s.repo.Update(ctx, u.UserID, updates); err != nil {
		return fmt.Errorf("reset password: %v: %w", err, domain.ErrDependency)
	}
	// Confirmation is best-effort: the password change stands either way.
	if err := s.sendEmail(u.Email, "Password Reset Successful",
		"Your password has been successfully reset."); err != nil {
		slog.Warn("failed to send reset confirmation", "email", u.Email, "err", err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup by email: %v: %w", err, domain.ErrDependency)
	}
	return u, nil
}

func (s *service) findByPhone(ctx context.Context, phone string) (*domain.User, error) {
	u, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup by phone: %v: %w", err, domain.ErrDependency)
	}
	return u, nil
}

// sendEmail delivers with bounded retry. Delivery failure surfaces as a
// dependency error so handlers report it distinctly from store failures.
func (s *service) sendEmail(to, subject, body string) error {
	var err error
	for attempt := 0; attempt < mailAttempts; attempt++ {
		if err = s.mailer.SendEmail(to, subject, body); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
	}
	return fmt.Errorf("send email to %s: %v: %w", to, err, domain.ErrDependency)
}

// deliverSMS sends the phone OTP when SNS is configured; otherwise it
// surfaces the code through the operational log. Delivery failure is logged,
// never fatal to registration.
func (s *service) deliverSMS(ctx context.Context, phone, message string) {
	if s.smsSender == nil {
		slog.Info("sms delivery not configured, surfacing OTP", "phone", phone, "message", message)
		return
	}
	if err := s.smsSender.SendSMS(ctx, phone, message); err != nil {
		slog.Error("failed to send sms", "phone", phone, "err", err)
	}
}
