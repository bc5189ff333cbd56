package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Project is a restoration site whose area is sold by the square meter.
// Checkout and certificate rendering read it; inventory decrement is owned
// by the land-management backoffice, not this service.
type Project struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	Code             string       `json:"code" gorm:"type:text;not null;uniqueIndex"`
	Name             string       `json:"name" gorm:"type:text;not null"`
	Country          string       `json:"country" gorm:"type:text"`
	AvailableAreaSqm int64        `json:"available_area_sqm"`
	UnitPriceAmount  int64        `json:"unit_price_amount"`
	Currency         string       `json:"currency" gorm:"type:text"`
	Active           bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (Project) TableName() string { return "projects" }

type Repository interface {
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Project, error)

	// ListActive returns the sellable catalog ordered by name.
	ListActive(ctx context.Context, db *gorm.DB) ([]Project, error)

	// Availability returns the sellable area for a project. ok is false when
	// the figure cannot be read with confidence (missing row, unreadable or
	// negative value); callers must not block checkout on an unreadable figure.
	Availability(ctx context.Context, db *gorm.DB, code string) (available int64, ok bool, err error)

	// DisplayName returns the project name or "" when unavailable.
	DisplayName(ctx context.Context, db *gorm.DB, code string) string
}
