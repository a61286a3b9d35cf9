package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ProductVariant struct {
	SKU            string          `gorm:"primaryKey;size:64;not null"`
	ProductName    string          `gorm:"size:128;not null"`
	Size           string          `gorm:"size:32;not null"`
	Price          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency       string          `gorm:"size:8;not null"`
	StockQuantity  int32           `gorm:"not null"`
	BestValueBadge *string         `gorm:"size:64"`
	ImageURL       string          `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PendingSession holds the checkout payload of an online payment until the
// provider confirms it. No order row exists before that.
type PendingSession struct {
	ExternalPaymentSessionID string          `gorm:"primaryKey;size:64;not null"`
	ProviderSessionToken     string          `gorm:"size:512"`
	CustomerName             string          `gorm:"size:128;not null"`
	CustomerEmail            string          `gorm:"size:255;not null"`
	CustomerPhone            string          `gorm:"size:32;not null"`
	Items                    datatypes.JSON  `gorm:"not null"`
	Total                    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency                 string          `gorm:"size:8;not null"`
	CreatedAt                time.Time
	ExpiresAt                time.Time `gorm:"index;not null"`
}

func (p *PendingSession) SetItems(items []LineItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal pending items: %w", err)
	}
	p.Items = datatypes.JSON(raw)
	return nil
}

func (p *PendingSession) LineItems() ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(p.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal pending items: %w", err)
	}
	return items, nil
}

func (p *PendingSession) Customer() Customer {
	return Customer{
		Name:  p.CustomerName,
		Email: p.CustomerEmail,
		Phone: p.CustomerPhone,
	}
}

func (p *PendingSession) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

type WebhookEvent struct {
	EventID     string         `gorm:"primaryKey;size:128;not null"`
	EventType   string         `gorm:"size:64;index"`
	SessionID   string         `gorm:"size:64;index"`
	Payload     datatypes.JSON `gorm:"not null"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
