package domain

import "time"

// Category is a vehicle category (e.g. "bike", "car").
// It does not store its brands; "brands of a category" is a query against
// the brand table's category_id index, so the relationship has a single
// source of truth.
type Category struct {
	CategoryID string    `json:"id" dynamodbav:"category_id"`
	Name       string    `json:"category" dynamodbav:"name"`
	Slug       string    `json:"slug" dynamodbav:"slug"`
	ImageKey   string    `json:"-" dynamodbav:"image_key,omitempty"`
	ImageURL   string    `json:"img,omitempty" dynamodbav:"-"`
	CreatedAt  time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Brand owns the reference to its category.
type Brand struct {
	BrandID    string    `json:"id" dynamodbav:"brand_id"`
	Name       string    `json:"brand" dynamodbav:"name"`
	CategoryID string    `json:"category_id" dynamodbav:"category_id"`
	// CategoryName is joined at query time from the category record.
	CategoryName string    `json:"category,omitempty" dynamodbav:"-"`
	ImageKey     string    `json:"-" dynamodbav:"image_key,omitempty"`
	ImageURL     string    `json:"img,omitempty" dynamodbav:"-"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

// VehicleModel is a model belonging to a brand. The category is derived
// through the brand, never stored twice.
type VehicleModel struct {
	ModelID   string    `json:"id" dynamodbav:"model_id"`
	Name      string    `json:"model" dynamodbav:"name"`
	BrandID   string    `json:"brand_id" dynamodbav:"brand_id"`
	BrandName string    `json:"brand,omitempty" dynamodbav:"-"`
	Year      int       `json:"year" dynamodbav:"year"`
	ImageKey  string    `json:"-" dynamodbav:"image_key,omitempty"`
	ImageURL  string    `json:"img,omitempty" dynamodbav:"-"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// CategoryInput creates or updates a category. Image is an optional
// base64-encoded payload stored in the blob store.
type CategoryInput struct {
	Name          string `json:"category" validate:"required"`
	Slug          string `json:"slug" validate:"required"`
	ImageBase64   string `json:"image_base64"`
	ImageFilename string `json:"image_filename"`
}

// BrandInput creates or updates a brand.
type BrandInput struct {
	Name          string `json:"brand" validate:"required"`
	CategoryID    string `json:"category_id" validate:"required"`
	ImageBase64   string `json:"image_base64"`
	ImageFilename string `json:"image_filename"`
}

// ModelInput creates or updates a vehicle model.
type ModelInput struct {
	Name          string `json:"model" validate:"required"`
	BrandID       string `json:"brand_id" validate:"required"`
	Year          int    `json:"year" validate:"required,gte=1900"`
	ImageBase64   string `json:"image_base64"`
	ImageFilename string `json:"image_filename"`
}
