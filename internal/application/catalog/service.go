package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/vehicle-market-api/internal/domain"
	"github.com/vehicle-market-api/internal/pkg/id"
	"github.com/vehicle-market-api/internal/pkg/validate"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName       = "name"
	fieldSlug       = "slug"
	fieldCategoryID = "category_id"
	fieldBrandID    = "brand_id"
	fieldYear       = "year"
	fieldImageKey   = "image_key"
)

// imageURLTTL bounds how long a presigned image link stays valid.
const imageURLTTL = 15 * time.Minute

type Service interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, categoryID string) (*domain.Category, error)
	CreateCategory(ctx context.Context, input domain.CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, categoryID string, input domain.CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, categoryID string) error

	ListBrands(ctx context.Context, categoryID string) ([]domain.Brand, error)
	GetBrand(ctx context.Context, brandID string) (*domain.Brand, error)
	CreateBrand(ctx context.Context, input domain.BrandInput) (*domain.Brand, error)
	UpdateBrand(ctx context.Context, brandID string, input domain.BrandInput) (*domain.Brand, error)
	DeleteBrand(ctx context.Context, brandID string) error

	ListModels(ctx context.Context, brandID string) ([]domain.VehicleModel, error)
	GetModel(ctx context.Context, modelID string) (*domain.VehicleModel, error)
	CreateModel(ctx context.Context, input domain.ModelInput) (*domain.VehicleModel, error)
	UpdateModel(ctx context.Context, modelID string, input domain.ModelInput) (*domain.VehicleModel, error)
	DeleteModel(ctx context.Context, modelID string) error
}

type categoryStore interface {
	Put(ctx context.Context, c *domain.Category) error
	Get(ctx context.Context, categoryID string) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
	Scan(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, categoryID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, categoryID string) error
}

type brandStore interface {
	Put(ctx context.Context, b *domain.Brand) error
	Get(ctx context.Context, brandID string) (*domain.Brand, error)
	GetByName(ctx context.Context, name string) (*domain.Brand, error)
	QueryByCategory(ctx context.Context, categoryID string) ([]domain.Brand, error)
	Scan(ctx context.Context) ([]domain.Brand, error)
	Update(ctx context.Context, brandID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, brandID string) error
}

type modelStore interface {
	Put(ctx context.Context, m *domain.VehicleModel) error
	Get(ctx context.Context, modelID string) (*domain.VehicleModel, error)
	QueryByBrand(ctx context.Context, brandID string) ([]domain.VehicleModel, error)
	Scan(ctx context.Context) ([]domain.VehicleModel, error)
	Update(ctx context.Context, modelID string, updates map[string]interface{}) error
	HardDelete(ctx context.Context, modelID string) error
}

type imageStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	categories categoryStore
	brands     brandStore
	models     modelStore
	images     imageStore
}

type ServiceDeps struct {
	CategoryRepo categoryStore
	BrandRepo    brandStore
	ModelRepo    modelStore
	ImageStore   imageStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		categories: deps.CategoryRepo,
		brands:     deps.BrandRepo,
		models:     deps.ModelRepo,
		images:     deps.ImageStore,
	}
}

// ── Categories ──────────────────────────────────────────────────────────────

func (s *service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.categories.Scan(ctx)
	if err != nil {
		return nil, err
	}
	for i := range cats {
		cats[i].ImageURL = s.presign(ctx, cats[i].ImageKey)
	}
	return cats, nil
}

func (s *service) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	c, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	c.ImageURL = s.presign(ctx, c.ImageKey)
	return c, nil
}

func (s *service) CreateCategory(ctx context.Context, input domain.CategoryInput) (*domain.Category, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.categories.GetBySlug(ctx, input.Slug); err == nil {
		return nil, fmt.Errorf("category already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Category{
		CategoryID: id.New(),
		Name:       input.Name,
		Slug:       input.Slug,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if input.ImageBase64 != "" {
		key, err := s.uploadImage(ctx, "catalog/categories", c.CategoryID, input.ImageFilename, input.ImageBase64)
		if err != nil {
			return nil, err
		}
		c.ImageKey = key
	}
	if err := s.categories.Put(ctx, c); err != nil {
		return nil, err
	}
	c.ImageURL = s.presign(ctx, c.ImageKey)
	return c, nil
}

func (s *service) UpdateCategory(ctx context.Context, categoryID string, input domain.CategoryInput) (*domain.Category, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	existing, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		fieldName: input.Name,
		fieldSlug: input.Slug,
	}
	if input.ImageBase64 != "" {
		key, err := s.uploadImage(ctx, "catalog/categories", categoryID, input.ImageFilename, input.ImageBase64)
		if err != nil {
			return nil, err
		}
		if existing.ImageKey != "" && existing.ImageKey != key {
			s.deleteImage(ctx, existing.ImageKey)
		}
		updates[fieldImageKey] = key
	}
	if err := s.categories.Update(ctx, categoryID, updates); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, categoryID)
}

func (s *service) DeleteCategory(ctx context.Context, categoryID string) error {
	c, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		return err
	}
	brands, err := s.brands.QueryByCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if len(brands) > 0 {
		return fmt.Errorf("category still has %d brand(s): %w", len(brands), domain.ErrConflict)
	}
	if c.ImageKey != "" {
		s.deleteImage(ctx, c.ImageKey)
	}
	return s.categories.HardDelete(ctx, categoryID)
}

// ── Brands ──────────────────────────────────────────────────────────────────

// ListBrands returns all brands, or the brands of one category when
// categoryID is set. Category names are joined at query time; the brand
// record is the only place the relationship is stored.
func (s *service) ListBrands(ctx context.Context, categoryID string) ([]domain.Brand, error) {
	var brands []domain.Brand
	var err error
	if categoryID != "" {
		brands, err = s.brands.QueryByCategory(ctx, categoryID)
	} else {
		brands, err = s.brands.Scan(ctx)
	}
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	for i := range brands {
		if _, ok := names[brands[i].CategoryID]; !ok {
			if c, err := s.categories.Get(ctx, brands[i].CategoryID); err == nil {
				names[brands[i].CategoryID] = c.Name
			}
		}
		brands[i].CategoryName = names[brands[i].CategoryID]
		brands[i].ImageURL = s.presign(ctx, brands[i].ImageKey)
	}
	return brands, nil
}

func (s *service) GetBrand(ctx context.Context, brandID string) (*domain.Brand, error) {
	b, err := s.brands.Get(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if c, err := s.categories.Get(ctx, b.CategoryID); err == nil {
		b.CategoryName = c.Name
	}
	b.ImageURL = s.presign(ctx, b.ImageKey)
	return b, nil
}

func (s *service) CreateBrand(ctx context.Context, input domain.BrandInput) (*domain.Brand, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if _, err := s.brands.GetByName(ctx, input.Name); err == nil {
		return nil, fmt.Errorf("brand already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	cat, err := s.categories.Get(ctx, input.CategoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid category selected: %w", domain.ErrBadRequest)
		}
		return nil, err
	}
	now := time.Now().UTC()
	b := &domain.Brand{
		BrandID:    id.New(),
		Name:       input.Name,
		CategoryID: cat.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if input.ImageBase64 != "" {
		key, err := s.uploadImage(ctx, "catalog/brands", b.BrandID, input.ImageFilename, input.ImageBase64)
		if err != nil {
			return nil, err
		}
		b.ImageKey = key
	}
	if err := s.brands.Put(ctx, b); err != nil {
		return nil, err
	}
	b.CategoryName = cat.Name
	b.ImageURL = s.presign(ctx, b.ImageKey)
	return b, nil
}

func (s *service) UpdateBrand(ctx context.Context, brandID string, input domain.BrandInput) (*domain.Brand, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	existing, err := s.brands.Get(ctx, brandID)
	if err != nil {
		return nil, err
	}
	if _, err := s.categories.Get(ctx, input.CategoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid category selected: %w", domain.ErrBadRequest)
		}
		return nil, err
	}
	updates := map[string]interface{}{
		fieldName:       input.Name,
		fieldCategoryID: input.CategoryID,
	}
	if input.ImageBase64 != "" {
		key, err := s.uploadImage(ctx, "catalog/brands", brandID, input.ImageFilename, input.ImageBase64)
		if err != nil {
			return nil, err
		}
		if existing.ImageKey != "" && existing.ImageKey != key {
			s.deleteImage(ctx, existing.ImageKey)
		}
		updates[fieldImageKey] = key
	}
	if err := s.brands.Update(ctx, brandID, updates); err != nil {
		return nil, err
	}
	return s.GetBrand(ctx, brandID)
}

func (s *service) DeleteBrand(ctx context.Context, brandID string) error {
	b, err := s.brands.Get(ctx, brandID)
	if err != nil {
		return err
	}
	models, err := s.models.QueryByBrand(ctx, brandID)
	if err != nil {
		return err
	}
	if len(models) > 0 {
		return fmt.Errorf("brand still has %d model(s): %w", len(models), domain.ErrConflict)
	}
	if b.ImageKey != "" {
		s.deleteImage(ctx, b.ImageKey)
	}
	return s.brands.HardDelete(ctx, brandID)
}

// ── Models ──────────────────────────────────────────────────────────────────

func (s *service) ListModels(ctx context.Context, brandID string) ([]domain.VehicleModel, error) {
	var models []domain.VehicleModel
	var err error
	if brandID != "" {
		models, err = s.models.QueryByBrand(ctx, brandID)
	} else {
		models, err = s.models.Scan(ctx)
	}
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	for i := range models {
		if _, ok := names[models[i].BrandID]; !ok {
			if b, err := s.brands.Get(ctx, models[i].BrandID); err == nil {
				names[models[i].BrandID] = b.Name
			}
		}
		models[i].BrandName = names[models[i].BrandID]
		models[i].ImageURL = s.presign(ctx, models[i].ImageKey)
	}
	return models, nil
}

func (s *service) GetModel(ctx context.Context, modelID string) (*domain.VehicleModel, error) {
	m, err := s.models.Get(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if b, err := s.brands.Get(ctx, m.BrandID); err == nil {
		m.BrandName = b.Name
	}
	m.ImageURL = s.presign(ctx, m.ImageKey)
	return m, nil
}

func (s *service) CreateModel(ctx context.Context, input domain.ModelInput) (*domain.VehicleModel, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	b, err := s.brands.Get(ctx, input.BrandID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid brand selected: %w", domain.ErrBadRequest)
		}
		return nil, err
	}
	now := time.Now().UTC()
	m := &domain.VehicleModel{
		ModelID:   id.New(),
		Name:      input.Name,
		BrandID:   b.BrandID,
		Year:      input.Year,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if input.ImageBase64 != "" {
		key, err := s.uploadImage(ctx, "catalog/models", m.ModelID, input.ImageFilename, input.ImageBase64)
		if err != nil {
			return nil, err
		}
		m.ImageKey = key
	}
	if err := s.models.Put(ctx, m); err != nil {
		return nil, err
	}
	m.BrandName = b.Name
	m.ImageURL = s.presign(ctx, m.ImageKey)
	return m, nil
}

func (s *service) UpdateModel(ctx context.Context, modelID string, input domain.ModelInput) (*domain.VehicleModel, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	existing, err := s.models.Get(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.brands.Get(ctx, input.BrandID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid brand selected: %w", domain.ErrBadRequest)
		}
		return nil, err
	}
	updates := map[string]interface{}{
		fieldName:    input.Name,
		fieldBrandID: input.BrandID,
		fieldYear:    input.Year,
	}
	if input.ImageBase64 != "" {
		key, err := s.uploadImage(ctx, "catalog/models", modelID, input.ImageFilename, input.ImageBase64)
		if err != nil {
			return nil, err
		}
		if existing.ImageKey != "" && existing.ImageKey != key {
			s.deleteImage(ctx, existing.ImageKey)
		}
		updates[fieldImageKey] = key
	}
	if err := s.models.Update(ctx, modelID, updates); err != nil {
		return nil, err
	}
	return s.GetModel(ctx, modelID)
}

func (s *service) DeleteModel(ctx context.Context, modelID string) error {
	m, err := s.models.Get(ctx, modelID)
	if err != nil {
		return err
	}
	if m.ImageKey != "" {
		s.deleteImage(ctx, m.ImageKey)
	}
	return s.models.HardDelete(ctx, modelID)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func (s *service) uploadImage(ctx context.Context, prefix, entityID, filename, b64 string) (string, error) {
	key := fmt.Sprintf("%s/%s/%s", prefix, entityID, sanitizeFilename(filename))
	if _, err := s.images.UploadBase64(ctx, key, b64); err != nil {
		return "", fmt.Errorf("upload image: %v: %w", err, domain.ErrDependency)
	}
	return key, nil
}

func (s *service) presign(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := s.images.PresignedURL(ctx, key, imageURLTTL)
	if err != nil {
		slog.Warn("failed to presign image url", "key", key, "err", err)
		return ""
	}
	return url
}

func (s *service) deleteImage(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete image", "key", key, "err", err)
	}
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal in S3 keys.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "image"
}
