package domain

import "time"

// ProductImage holds the stored keys for a listing photo and its thumbnail.
type ProductImage struct {
	Original  string `json:"original" dynamodbav:"original"`
	Thumbnail string `json:"thumbnail" dynamodbav:"thumbnail"`
}

// Product is a vehicle listing.
type Product struct {
	ProductID        string         `json:"id" dynamodbav:"product_id"`
	Name             string         `json:"name" dynamodbav:"name"`
	Type             string         `json:"type" dynamodbav:"type"`
	Location         string         `json:"location" dynamodbav:"location"`
	Price            float64        `json:"price" dynamodbav:"price"`
	Images           []ProductImage `json:"img" dynamodbav:"img"`
	Description      []string       `json:"description,omitempty" dynamodbav:"description,omitempty"`
	Variants         []string       `json:"variant,omitempty" dynamodbav:"variant,omitempty"`
	Status           string         `json:"status,omitempty" dynamodbav:"status,omitempty"`
	RegistrationYear int            `json:"registration_year" dynamodbav:"registration_year"`
	Month            string         `json:"month" dynamodbav:"month"`
	Model            string         `json:"model" dynamodbav:"model"`
	Brand            string         `json:"brand" dynamodbav:"brand"`
	KilometersDriven int            `json:"kilometer_driven" dynamodbav:"kilometer_driven"`
	FuelType         string         `json:"fuel_type" dynamodbav:"fuel_type"`
	Transmission     string         `json:"transmission" dynamodbav:"transmission"`
	Owners           int            `json:"no_of_owners,omitempty" dynamodbav:"no_of_owners,omitempty"`
	Color            string         `json:"color,omitempty" dynamodbav:"color,omitempty"`
	CreatedAt        time.Time      `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time      `json:"updated" dynamodbav:"updated_at"`
}

// ProductInput creates or updates a listing.
type ProductInput struct {
	Name             string         `json:"name" validate:"required"`
	Type             string         `json:"type" validate:"required"`
	Location         string         `json:"location" validate:"required"`
	Price            float64        `json:"price" validate:"required,gt=0"`
	Images           []ProductImage `json:"img"`
	Description      []string       `json:"description"`
	Variants         []string       `json:"variant"`
	Status           string         `json:"status"`
	RegistrationYear int            `json:"registration_year" validate:"required,gte=1900"`
	Month            string         `json:"month" validate:"required"`
	Model            string         `json:"model" validate:"required"`
	Brand            string         `json:"brand" validate:"required"`
	KilometersDriven int            `json:"kilometer_driven"`
	FuelType         string         `json:"fuel_type" validate:"required"`
	Transmission     string         `json:"transmission" validate:"required"`
	Owners           int            `json:"no_of_owners"`
	Color            string         `json:"color"`
}
