package models

// Order fulfillment statuses. Delivered and cancelled are terminal.
const (
	OrderStatusPending    = "pending"
	OrderStatusApproved   = "approved"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

const (
	PaymentMethodCOD    = "cod"
	PaymentMethodCard   = "card"
	PaymentMethodUPI    = "upi"
	PaymentMethodWallet = "wallet"
)

const (
	PrescriptionPending  = "pending"
	PrescriptionApproved = "approved"
	PrescriptionRejected = "rejected"
)

type Product struct {
	ID                   uint    `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name                 string  `gorm:"not null"                   json:"name"`
	Description          string  `gorm:"not null"                   json:"description"`
	Price                float64 `gorm:"not null"                   json:"price"`
	Stock                uint    `json:"stock"`
	RequiresPrescription bool    `gorm:"default:false"              json:"requires_prescription"`
	ImageURL             string  `json:"image_url"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"          json:"id"`
	Token     string `gorm:"unique;not null"     json:"token"`
	UserID    uint   `gorm:"index;not null"      json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `gorm:"not null"            json:"expires_at"`
	Revoked   bool   `gorm:"default:false"       json:"revoked"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                  json:"id"`
	UserID    uint `gorm:"index;not null"              json:"user_id"`
	ProductID uint `gorm:"not null"                    json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"  json:"quantity"`
}

// Order is immutable after creation except Status, PaymentStatus and the
// gateway correlation fields. TotalAmount is a price snapshot taken at
// checkout, never recomputed.
type Order struct {
	ID              uint    `gorm:"primaryKey"     json:"id"`
	UserID          uint    `gorm:"index;not null" json:"user_id"`
	CreatedAt       int64   `gorm:"not null"       json:"created_at"`
	Status          string  `gorm:"not null"       json:"status"`
	PaymentStatus   string  `gorm:"not null"       json:"payment_status"`
	PaymentMethod   string  `gorm:"not null"       json:"payment_method"`
	TotalAmount     float64 `gorm:"not null"       json:"total_amount"`
	DeliveryAddress string  `gorm:"not null"       json:"delivery_address"`
	PrescriptionID  *uint   `json:"prescription_id,omitempty"`
	PaymentID       string  `json:"payment_id,omitempty"`
	GatewayOrderID  string  `json:"gateway_order_id,omitempty"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey"                  json:"id"`
	OrderID   uint    `gorm:"index;not null"              json:"order_id"`
	ProductID uint    `gorm:"not null"                    json:"product_id"`
	Quantity  uint    `gorm:"default:1;check:quantity>0"  json:"quantity"`
	Price     float64 `gorm:"not null"                    json:"price"`
}

// Prescription moves pending -> approved|rejected exactly once, only through
// the review workflow.
type Prescription struct {
	ID               uint   `gorm:"primaryKey"     json:"id"`
	UserID           uint   `gorm:"index;not null" json:"user_id"`
	FileReference    string `gorm:"not null"       json:"file_reference"`
	Status           string `gorm:"not null"       json:"status"`
	ReviewerID       *uint  `json:"reviewer_id,omitempty"`
	ReviewedAt       *int64 `json:"reviewed_at,omitempty"`
	ApprovalComments string `json:"approval_comments,omitempty"`
	RejectionReason  string `json:"rejection_reason,omitempty"`
	CreatedAt        int64  `gorm:"not null"       json:"created_at"`
}

func (o *Order) Terminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func GatewayMethod(method string) bool {
	switch method {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodWallet:
		return true
	}
	return false
}

func ValidPaymentMethod(method string) bool {
	return method == PaymentMethodCOD || GatewayMethod(method)
}
