package model

import (
	"time"
)

const (
	ProductStatusActive   = "active"
	ProductStatusInactive = "inactive"
)

type Product struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	Image       string    `db:"image"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// ProductRequirement is a quote request for a catalog product.
type ProductRequirement struct {
	ID                 string    `db:"id"`
	ProductID          string    `db:"product_id"`
	CustomerName       string    `db:"customer_name"`
	Email              string    `db:"email"`
	Quantity           int       `db:"quantity"`
	CustomizationNotes string    `db:"customization_notes"`
	CreatedAt          time.Time `db:"created_at"`
}
