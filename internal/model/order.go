package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            uint   `gorm:"primaryKey"`
	CustomerName  string `gorm:"size:128;not null"`
	CustomerEmail string `gorm:"size:255;index;not null"`
	CustomerPhone string `gorm:"size:32;not null"`

	Items    []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	Total    decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Currency string          `gorm:"size:8;not null"`

	Status        OrderStatus   `gorm:"size:32;index;not null"`
	PaymentStatus PaymentStatus `gorm:"size:32;index;not null"`
	PaymentMethod PaymentMethod `gorm:"size:16;not null"`

	// id sent to the payment provider when the session was created; the unique
	// index is what keeps the redirect and webhook paths from creating two orders
	ExternalPaymentSessionID *string `gorm:"size:64;uniqueIndex"`
	ProviderPaymentID        *string `gorm:"size:64"`

	CreatedAt time.Time `gorm:"<-:create"`
	UpdatedAt time.Time
}

type OrderItem struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     uint            `gorm:"index;not null"`
	ProductID   string          `gorm:"size:64;not null"` // variant sku
	ProductName string          `gorm:"size:128;not null"`
	Quantity    int32           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

type Customer struct {
	Name  string `json:"customerName"`
	Email string `json:"customerEmail"`
	Phone string `json:"customerPhone"`
}

// LineItem is a cart line before it is persisted as an OrderItem.
type LineItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt32(i.Quantity))
}

// SumItems returns the cart total rounded to 2 decimal places.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

// SameAmount compares two money amounts at 2 decimal places.
func SameAmount(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}

func NewOrderItems(items []LineItem) []OrderItem {
	orderItems := make([]OrderItem, len(items))
	for i, item := range items {
		orderItems[i] = OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.Round(2),
		}
	}
	return orderItems
}
