package domain

import "time"

// PaymentMethodCOD is the only payment method offered at checkout
const PaymentMethodCOD = "COD"

// DeliveryAddress is where an order is shipped
type DeliveryAddress struct {
	FullName    string `json:"full_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	Notes       string `json:"notes"`
}

// OrderCreate is the payload submitted to the order collaborator
type OrderCreate struct {
	MarketID      int             `json:"market_id" validate:"gt=0"`
	Quantity      int             `json:"quantity" validate:"gte=1"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=COD"`
	BuyerNote     string          `json:"buyer_note"`
	Address       DeliveryAddress `json:"address" validate:"required"`
}

// OrderReceipt is returned once an order has been accepted
type OrderReceipt struct {
	OrderID   ID        `json:"order_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewCreate rates a listing after purchase
type ReviewCreate struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// Report targets
const (
	ReportTargetMarket = "MARKET"
	ReportTargetUser   = "USER"
)

// ReportCreate flags a listing or a user for moderation
type ReportCreate struct {
	TargetType string `json:"target_type" validate:"required,oneof=MARKET USER"`
	TargetID   ID     `json:"target_id" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=100"`
	Details    string `json:"details" validate:"max=2000"`
}
