package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"ghee-storefront/internal/model"
)

type Item struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int32           `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type CustomerInfo struct {
	CustomerName  string `json:"customerName" validate:"required,max=128"`
	CustomerEmail string `json:"customerEmail" validate:"required,email,max=255"`
	CustomerPhone string `json:"customerPhone" validate:"required,min=10,max=15"`
}

type CreatePaymentSessionRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"omitempty,len=3"`
	Customer CustomerInfo    `json:"customerInfo"`
	Items    []Item          `json:"items" validate:"required,min=1,dive"`
}

type PaymentSessionResponse struct {
	ExternalSessionID    string `json:"externalSessionId"`
	ProviderSessionToken string `json:"providerSessionToken"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
}

// VerifyPaymentRequest may repeat the cart; the server-side copy is what gets persisted.
type VerifyPaymentRequest struct {
	Total        decimal.NullDecimal `json:"total"`
	CustomerInfo *CustomerInfo       `json:"customerInfo"`
	Items        []Item              `json:"items"`
}

type CashOnDeliveryRequest struct {
	Customer CustomerInfo    `json:"customerInfo"`
	Items    []Item          `json:"items" validate:"required,min=1,dive"`
	Total    decimal.Decimal `json:"total"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type UpdateStockRequest struct {
	StockQuantity *int32 `json:"stockQuantity" validate:"required,gte=0"`
}

type OrderItem struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
}

type Order struct {
	ID                       uint        `json:"id"`
	CustomerName             string      `json:"customerName"`
	CustomerEmail            string      `json:"customerEmail"`
	CustomerPhone            string      `json:"customerPhone"`
	Items                    []OrderItem `json:"items"`
	Total                    string      `json:"total"`
	Currency                 string      `json:"currency"`
	Status                   string      `json:"status"`
	PaymentStatus            string      `json:"paymentStatus"`
	PaymentMethod            string      `json:"paymentMethod"`
	ExternalPaymentSessionID *string     `json:"externalPaymentSessionId"`
	ProviderPaymentID        *string     `json:"providerPaymentId"`
	CreatedAt                time.Time   `json:"createdAt"`
	UpdatedAt                time.Time   `json:"updatedAt"`
}

type OrderResponse struct {
	Order *Order `json:"order"`
}

type OrderListResponse struct {
	Orders []*Order `json:"orders"`
	Total  int64    `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

type ProductVariant struct {
	SKU            string  `json:"sku"`
	ProductName    string  `json:"productName"`
	Size           string  `json:"size"`
	Price          string  `json:"price"`
	Currency       string  `json:"currency"`
	StockQuantity  int32   `json:"stockQuantity"`
	BestValueBadge *string `json:"bestValueBadge,omitempty"`
	ImageURL       string  `json:"imageUrl,omitempty"`
	InStock        bool    `json:"inStock"`
}

type WebhookAck struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	Reference string            `json:"reference,omitempty"`
}

func (i Item) LineItem() model.LineItem {
	return model.LineItem{
		ProductID:   i.ProductID,
		ProductName: i.ProductName,
		Quantity:    i.Quantity,
		UnitPrice:   i.UnitPrice,
	}
}

func LineItems(items []Item) []model.LineItem {
	out := make([]model.LineItem, len(items))
	for i, item := range items {
		out[i] = item.LineItem()
	}
	return out
}

func (c CustomerInfo) Customer() model.Customer {
	return model.Customer{
		Name:  c.CustomerName,
		Email: c.CustomerEmail,
		Phone: c.CustomerPhone,
	}
}

func NewOrder(o *model.Order) *Order {
	items := make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
		}
	}

	return &Order{
		ID:                       o.ID,
		CustomerName:             o.CustomerName,
		CustomerEmail:            o.CustomerEmail,
		CustomerPhone:            o.CustomerPhone,
		Items:                    items,
		Total:                    o.Total.StringFixed(2),
		Currency:                 o.Currency,
		Status:                   string(o.Status),
		PaymentStatus:            string(o.PaymentStatus),
		PaymentMethod:            string(o.PaymentMethod),
		ExternalPaymentSessionID: o.ExternalPaymentSessionID,
		ProviderPaymentID:        o.ProviderPaymentID,
		CreatedAt:                o.CreatedAt,
		UpdatedAt:                o.UpdatedAt,
	}
}

func NewOrders(orders []*model.Order) []*Order {
	out := make([]*Order, len(orders))
	for i, o := range orders {
		out[i] = NewOrder(o)
	}
	return out
}

func NewProductVariant(v *model.ProductVariant) *ProductVariant {
	return &ProductVariant{
		SKU:            v.SKU,
		ProductName:    v.ProductName,
		Size:           v.Size,
		Price:          v.Price.StringFixed(2),
		Currency:       v.Currency,
		StockQuantity:  v.StockQuantity,
		BestValueBadge: v.BestValueBadge,
		ImageURL:       v.ImageURL,
		InStock:        v.StockQuantity > 0,
	}
}

func NewProductVariants(variants []*model.ProductVariant) []*ProductVariant {
	out := make([]*ProductVariant, len(variants))
	for i, v := range variants {
		out[i] = NewProductVariant(v)
	}
	return out
}
