package product

import (
	"context"
	"fmt"
	"time"

	"github.com/vehicle-market-api/internal/domain"
	"github.com/vehicle-market-api/internal/pkg/id"
	"github.com/vehicle-market-api/internal/pkg/validate"
)

type Service interface {
	List(ctx context.Context, limit int, cursor string) ([]domain.Product, string, error)
	Get(ctx context.Context, productID string) (*domain.Product, error)
	Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, productID string, input domain.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, productID string) error
}

type productStore interface {
	Put(ctx context.Context, p *domain.Product) error
	Get(ctx context.Context, productID string) (*domain.Product, error)
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Product, string, error)
	Update(ctx context.Context, productID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, productID string) error
}

type service struct {
	repo productStore
}

func NewService(repo productStore) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.Product, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

func (s *service) Get(ctx context.Context, productID string) (*domain.Product, error) {
	return s.repo.Get(ctx, productID)
}

func (s *service) Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	p := &domain.Product{
		ProductID:        id.New(),
		Name:             input.Name,
		Type:             input.Type,
		Location:         input.Location,
		Price:            input.Price,
		Images:           input.Images,
		Description:      input.Description,
		Variants:         input.Variants,
		Status:           input.Status,
		RegistrationYear: input.RegistrationYear,
		Month:            input.Month,
		Model:            input.Model,
		Brand:            input.Brand,
		KilometersDriven: input.KilometersDriven,
		FuelType:         input.FuelType,
		Transmission:     input.Transmission,
		Owners:           input.Owners,
		Color:            input.Color,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, productID string, input domain.ProductInput) (*domain.Product, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"name":              input.Name,
		"type":              input.Type,
		"location":          input.Location,
		"price":             input.Price,
		"img":               input.Images,
		"description":       input.Description,
		"variant":           input.Variants,
		"status":            input.Status,
		"registration_year": input.RegistrationYear,
		"month":             input.Month,
		"model":             input.Model,
		"brand":             input.Brand,
		"kilometer_driven":  input.KilometersDriven,
		"fuel_type":         input.FuelType,
		"transmission":      input.Transmission,
		"no_of_owners":      input.Owners,
		"color":             input.Color,
	}
	if err := s.repo.Update(ctx, productID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, productID)
}

func (s *service) Delete(ctx context.Context, productID string) error {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return err
	}
	return s.repo.HardDelete(ctx, productID)
}
