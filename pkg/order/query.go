package order

import (
	"context"
	"fmt"
	"time"

	"github.com/example/cleanshop/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerAddress string          `json:"customer_address"`
	Notes           string          `json:"notes,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []Item          `json:"items"`
}

// Item is a stored order line. Prices are the ones captured at checkout.
type Item struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"product_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"total_price"`
}

// Auditor records order lifecycle events. MongoRepository satisfies it.
type Auditor interface {
	RecordOrderEvent(ctx context.Context, orderID, action string, data bson.M) error
}

// Orders reads stored orders and moves them through their statuses.
type Orders struct {
	store   repository.RecordStore
	auditor Auditor
	logger  *zap.Logger
	now     func() time.Time
}

// NewOrders builds the order query service. auditor may be nil.
func NewOrders(store repository.RecordStore, auditor Auditor, logger *zap.Logger) *Orders {
	return &Orders{store: store, auditor: auditor, logger: logger, now: time.Now}
}

func (o *Orders) Get(ctx context.Context, id string) (*Order, error) {
	rows, err := o.store.Select(ctx, repository.TableOrders, repository.Filter{"id": id}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrOrderNotFound
	}
	order, err := orderFromRecord(rows[0])
	if err != nil {
		return nil, err
	}

	itemRows, err := o.store.Select(ctx, repository.TableOrderItems,
		repository.Filter{"order_id": id},
		&repository.Sort{Column: "created_at"})
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	order.Items = make([]Item, 0, len(itemRows))
	for _, r := range itemRows {
		it, err := itemFromRecord(r)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, it)
	}
	return order, nil
}

func (o *Orders) UpdateStatus(ctx context.Context, id, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	rows, err := o.store.Select(ctx, repository.TableOrders, repository.Filter{"id": id}, nil)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if len(rows) == 0 {
		return ErrOrderNotFound
	}
	previous := cast.ToString(rows[0]["status"])

	patch := repository.Record{"status": status, "updated_at": o.now()}
	if err := o.store.Update(ctx, repository.TableOrders, patch, repository.Filter{"id": id}); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	o.logger.Info("Order status changed",
		zap.String("order_id", id),
		zap.String("from", previous),
		zap.String("to", status))

	if o.auditor != nil {
		data := bson.M{"from": previous, "to": status}
		if err := o.auditor.RecordOrderEvent(ctx, id, repository.AuditOrderStatusChanged, data); err != nil {
			o.logger.Warn("Failed to audit status change", zap.String("order_id", id), zap.Error(err))
		}
	}
	return nil
}

func orderFromRecord(r repository.Record) (*Order, error) {
	total, err := decimalField(r, "total_amount")
	if err != nil {
		return nil, err
	}
	o := &Order{
		ID:              r.ID(),
		CustomerName:    cast.ToString(r["customer_name"]),
		CustomerPhone:   cast.ToString(r["customer_phone"]),
		CustomerAddress: cast.ToString(r["customer_address"]),
		Notes:           cast.ToString(r["notes"]),
		TotalAmount:     total,
		Status:          cast.ToString(r["status"]),
	}
	if t, ok := r["created_at"].(time.Time); ok {
		o.CreatedAt = t
	}
	return o, nil
}

func itemFromRecord(r repository.Record) (Item, error) {
	price, err := decimalField(r, "product_price")
	if err != nil {
		return Item{}, err
	}
	lineTotal, err := decimalField(r, "total_price")
	if err != nil {
		return Item{}, err
	}
	qty, err := cast.ToIntE(cast.ToString(r["quantity"]))
	if err != nil {
		return Item{}, fmt.Errorf("bad quantity in order item %s: %w", r.ID(), err)
	}
	return Item{
		ID:          r.ID(),
		ProductID:   cast.ToString(r["product_id"]),
		ProductName: cast.ToString(r["product_name"]),
		UnitPrice:   price,
		Quantity:    qty,
		LineTotal:   lineTotal,
	}, nil
}

func decimalField(r repository.Record, column string) (decimal.Decimal, error) {
	if d, ok := r[column].(decimal.Decimal); ok {
		return d, nil
	}
	d, err := decimal.NewFromString(cast.ToString(r[column]))
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad %s in %s: %w", column, r.ID(), err)
	}
	return d, nil
}
