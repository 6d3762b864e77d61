package http

import (
	"github.com/vehicle-market-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/vehicle-market-api/internal/infrastructure/jwt"
	s3infra "github.com/vehicle-market-api/internal/infrastructure/s3"
	"github.com/vehicle-market-api/internal/infrastructure/smtp"
	"github.com/vehicle-market-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo     *dynamo.UserRepo
	CategoryRepo *dynamo.CategoryRepo
	BrandRepo    *dynamo.BrandRepo
	ModelRepo    *dynamo.ModelRepo
	ProductRepo  *dynamo.ProductRepo
	S3Store      *s3infra.Store
	Mailer       smtp.Mailer
	SMSSender    sns.SMSSender // nil when SNS is unconfigured
	JWTProvider  *jwtinfra.Provider
}
