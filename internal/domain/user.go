package domain

import "time"

const (
	RoleUser       = "user"
	RoleSuperAdmin = "superadmin"
)

// User is the account record. Activation and reset tokens live directly on
// the record; issuing a new one overwrites the previous (at most one
// outstanding token of each kind). Token attributes carry omitempty so the
// sparse token GSIs only index records with an outstanding token.
type User struct {
	UserID string  `json:"id" dynamodbav:"user_id"`
	Name   string  `json:"name" dynamodbav:"name"`
	Email  string  `json:"email" dynamodbav:"email"`
	Phone  *string `json:"phone,omitempty" dynamodbav:"phone,omitempty"`

	PasswordHash string `json:"-" dynamodbav:"password_hash,omitempty"`
	Role         string `json:"role" dynamodbav:"role"`

	Active        bool `json:"active" dynamodbav:"active"`
	EmailVerified bool `json:"email_verified" dynamodbav:"email_verified"`
	PhoneVerified bool `json:"phone_verified" dynamodbav:"phone_verified"`

	EmailOTP string `json:"-" dynamodbav:"email_otp,omitempty"`
	PhoneOTP string `json:"-" dynamodbav:"phone_otp,omitempty"`

	ActivationToken   string `json:"-" dynamodbav:"activation_token,omitempty"`
	ActivationExpires int64  `json:"-" dynamodbav:"activation_expires,omitempty"` // Unix seconds

	ResetToken   string `json:"-" dynamodbav:"reset_token,omitempty"`
	ResetExpires int64  `json:"-" dynamodbav:"reset_expires,omitempty"` // Unix seconds

	TermsAccepted bool `json:"terms_accepted" dynamodbav:"terms_accepted"`

	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// HasValidActivationToken reports whether the record carries an outstanding,
// unexpired activation token. Presence and expiry are always checked together.
func (u *User) HasValidActivationToken(now time.Time) bool {
	return u.ActivationToken != "" && now.Unix() < u.ActivationExpires
}

// HasValidResetToken reports whether the record carries an outstanding,
// unexpired reset token.
func (u *User) HasValidResetToken(now time.Time) bool {
	return u.ResetToken != "" && now.Unix() < u.ResetExpires
}

// RegisterRequest is the registration input. Password is required in
// password mode, Agree in phone (lightweight) mode; both are ignored in the
// other modes.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Agree    bool   `json:"agree"`
}

// VerifyOTPRequest submits one or both registration OTPs.
type VerifyOTPRequest struct {
	Email    string `json:"email" validate:"required,email"`
	EmailOTP string `json:"emailOTP"`
	PhoneOTP string `json:"phoneOTP"`
}

// LoginRequest carries the credential for whichever auth mode is active.
// Phone mode reads Phone only; password mode reads Email+Password; OTP mode
// reads Phone+OTP.
type LoginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// ResetPasswordRequest consumes an outstanding reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}
