package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the header row written once per checkout.
type Order struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerName    string          `gorm:"type:varchar(100);not null" json:"customer_name"`
	CustomerPhone   string          `gorm:"type:varchar(20);not null" json:"customer_phone"`
	CustomerAddress string          `gorm:"type:text;not null" json:"customer_address"`
	Notes           *string         `gorm:"type:text" json:"notes"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status          string          `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem snapshots the product price at submission time.
type OrderItem struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID      string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID    string          `gorm:"type:varchar(36);not null" json:"product_id"`
	ProductName  string          `gorm:"type:varchar(200);not null" json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"product_price"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	TotalPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
