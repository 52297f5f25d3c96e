package customer

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Type grades a customer for reporting and promotion targeting.
type Type string

const (
	TypeRegular Type = "REGULAR"
	TypeVIP     Type = "VIP"
	TypePremium Type = "PREMIUM"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeRegular, TypeVIP, TypePremium:
		return true
	}
	return false
}

type Customer struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Name           string          `json:"name" db:"name"`
	Email          string          `json:"email" db:"email"`
	Phone          string          `json:"phone" db:"phone"`
	Address        string          `json:"address" db:"address"`
	Type           Type            `json:"type" db:"type"`
	TotalPurchases int             `json:"totalPurchases" db:"total_purchases"`
	TotalSpent     decimal.Decimal `json:"totalSpent" db:"total_spent"`
	LoyaltyPoints  int             `json:"loyaltyPoints" db:"loyalty_points"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}

type ListFilter struct {
	Type   Type
	Search string
	Limit  int
	Offset int
}
