package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Client is a delivery recipient (customers table).
type Client struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	CustomerID       string     `bun:"customer_id,pk,type:varchar(50)" json:"customer_id"`
	CustomerUniqueID *string    `bun:"customer_unique_id,type:varchar(50)" json:"customer_unique_id,omitempty"`
	City             *string    `bun:"customer_city,type:varchar(100)" json:"customer_city,omitempty"`
	State            *string    `bun:"customer_state,type:varchar(10)" json:"customer_state,omitempty"`
	ZipCode          *string    `bun:"customer_zip_code,type:varchar(20)" json:"customer_zip_code,omitempty"`
	FirstName        *string    `bun:"first_name,type:varchar(100)" json:"first_name,omitempty"`
	LastName         *string    `bun:"last_name,type:varchar(100)" json:"last_name,omitempty"`
	Email            *string    `bun:"email,type:varchar(200)" json:"email,omitempty"`
	Phone            *string    `bun:"phone,type:varchar(50)" json:"phone,omitempty"`
	Street           *string    `bun:"street,type:varchar(200)" json:"street,omitempty"`
	Lat              *string    `bun:"lat,type:varchar(50)" json:"lat,omitempty"`
	Lng              *string    `bun:"lng,type:varchar(50)" json:"lng,omitempty"`
	Source           *string    `bun:"source,type:varchar(50)" json:"source,omitempty"`
	ExtractedAt      *time.Time `bun:"extracted_at" json:"extracted_at,omitempty"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Hub is a dispatching location (sellers table).
type Hub struct {
	bun.BaseModel `bun:"table:sellers,alias:sl"`

	SellerID    string     `bun:"seller_id,pk,type:varchar(50)" json:"seller_id"`
	City        *string    `bun:"seller_city,type:varchar(100)" json:"seller_city,omitempty"`
	State       *string    `bun:"seller_state,type:varchar(10)" json:"seller_state,omitempty"`
	ZipCode     *string    `bun:"seller_zip_code,type:varchar(20)" json:"seller_zip_code,omitempty"`
	Source      *string    `bun:"source,type:varchar(50)" json:"source,omitempty"`
	ExtractedAt *time.Time `bun:"extracted_at" json:"extracted_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// CargoType is a catalog item (products table).
type CargoType struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ProductID   string              `bun:"product_id,pk,type:varchar(50)" json:"product_id"`
	Title       *string             `bun:"title,type:varchar(500)" json:"title,omitempty"`
	Description *string             `bun:"description,type:text" json:"description,omitempty"`
	Category    *string             `bun:"category,type:varchar(100)" json:"category,omitempty"`
	Price       decimal.NullDecimal `bun:"price,type:decimal(10,2)" json:"price"`
	Image       *string             `bun:"image,type:varchar(500)" json:"image,omitempty"`
	RatingRate  decimal.NullDecimal `bun:"rating_rate,type:decimal(3,2)" json:"rating_rate"`
	RatingCount *int                `bun:"rating_count" json:"rating_count,omitempty"`
	Source      *string             `bun:"source,type:varchar(50)" json:"source,omitempty"`
	ExtractedAt *time.Time          `bun:"extracted_at" json:"extracted_at,omitempty"`
	CreatedAt   time.Time           `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time           `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// ErrInvalidKey marks an empty or oversized identifier.
var ErrInvalidKey = errors.New("invalid key")

// ValidateKey checks an identifier is present and fits its column.
func ValidateKey(name, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidKey, name)
	}
	if len(v) > MaxKeyLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidKey, name, MaxKeyLength)
	}
	return nil
}

// MaxKeyLength bounds opaque string identifiers.
const MaxKeyLength = 50
