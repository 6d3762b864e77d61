package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthMode selects the single credential flow the deployment runs.
// Exactly one mode is active; handlers never branch on more than one.
type AuthMode string

const (
	// AuthModePhone trusts phone possession alone: lightweight registration,
	// phone-only login.
	AuthModePhone AuthMode = "phone"
	// AuthModePassword is email+password login with activation-link registration.
	AuthModePassword AuthMode = "password"
	// AuthModeOTP is OTP-first registration with phone+OTP login.
	AuthModeOTP AuthMode = "otp"
)

// ParseAuthMode validates the AUTH_MODE value at startup.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case AuthModePhone, AuthModePassword, AuthModeOTP:
		return AuthMode(s), nil
	default:
		return "", fmt.Errorf("unknown auth mode %q (want phone|password|otp)", s)
	}
}

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AuthMode    AuthMode
	FrontendURL string // base URL embedded in activation/reset links

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTSecret      string
	BearerTokenTTL time.Duration // fixed bearer token lifetime
	LinkTokenTTL   time.Duration // activation and reset token lifetime

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	AllowedOrigins []string // CORS allowed origins
	RequestTimeout time.Duration
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users      string
	Categories string
	Brands     string
	Models     string
	Products   string
}

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	mode, err := ParseAuthMode(getEnv("AUTH_MODE", string(AuthModePassword)))
	if err != nil {
		return nil, err
	}
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AuthMode:    mode,
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:      getEnv("DYNAMO_TABLE_USERS", "users"),
			Categories: getEnv("DYNAMO_TABLE_CATEGORIES", "categories"),
			Brands:     getEnv("DYNAMO_TABLE_BRANDS", "brands"),
			Models:     getEnv("DYNAMO_TABLE_MODELS", "vehicle_models"),
			Products:   getEnv("DYNAMO_TABLE_PRODUCTS", "products"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "vehicle-market-images"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		BearerTokenTTL: time.Duration(getEnvInt("BEARER_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		LinkTokenTTL:   time.Duration(getEnvInt("LINK_TOKEN_TTL_MINUTES", 60)) * time.Minute,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
