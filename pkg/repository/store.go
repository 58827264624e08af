package repository

import (
	"context"
	"errors"
)

// Table names consumed by the storefront.
const (
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableProducts   = "products"
)

var ErrMissingFilter = errors.New("filter must not be empty")

// Record is one row keyed by column name.
type Record map[string]interface{}

// Filter matches rows whose columns equal every given value.
type Filter map[string]interface{}

// Sort orders a select by one column.
type Sort struct {
	Column string
	Desc   bool
}

// RecordStore is the generic persistence capability the storefront runs
// on. Insert assigns an "id" to records that lack one and returns the
// stored rows.
type RecordStore interface {
	Insert(ctx context.Context, table string, records ...Record) ([]Record, error)
	Select(ctx context.Context, table string, filter Filter, sort *Sort) ([]Record, error)
	Update(ctx context.Context, table string, patch Record, filter Filter) error
	Delete(ctx context.Context, table string, filter Filter) error
}

// ID returns the record's id column as a string.
func (r Record) ID() string {
	if id, ok := r["id"].(string); ok {
		return id
	}
	if b, ok := r["id"].([]byte); ok {
		return string(b)
	}
	return ""
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
