package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrSubmissionInProgress = errors.New("an order submission is already in progress")
	ErrInvalidStatus        = errors.New("invalid order status")
)

// UserFacing is implemented by every error the workflow hands back to a
// customer.
type UserFacing interface {
	error
	UserMessage() string
}

type EmptyCartError struct{}

func (*EmptyCartError) Error() string       { return "cart is empty" }
func (*EmptyCartError) UserMessage() string { return "السلة فارغة" }

// MissingFieldError lists the required form fields that were blank after
// trimming, using the form's json names.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

func (e *MissingFieldError) UserMessage() string {
	return "يرجى ملء جميع البيانات المطلوبة"
}

type InvalidPhoneError struct {
	Phone     string
	MinLength int
}

func (e *InvalidPhoneError) Error() string {
	return fmt.Sprintf("phone %q is shorter than %d characters", e.Phone, e.MinLength)
}

func (e *InvalidPhoneError) UserMessage() string {
	return "رقم الهاتف غير صحيح"
}

// ValidationError carries every problem found before any write.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid order: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() []error { return e.Problems }

func (e *ValidationError) UserMessage() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		var uf UserFacing
		if errors.As(p, &uf) {
			msgs = append(msgs, uf.UserMessage())
		}
	}
	return strings.Join(msgs, "\n")
}

// OrderCreationError means the order header was not stored. The cart is
// left untouched so the customer can retry.
type OrderCreationError struct {
	Err error
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("failed to create order: %v", e.Err)
}

func (e *OrderCreationError) Unwrap() error { return e.Err }

func (e *OrderCreationError) UserMessage() string {
	return "تعذر إرسال الطلب، يرجى المحاولة مرة أخرى"
}

// OrderItemsCreationError means the header was stored but its items were
// not. The header has been deleted again unless CompensationErr is set.
type OrderItemsCreationError struct {
	OrderID         string
	Err             error
	CompensationErr error
}

func (e *OrderItemsCreationError) Error() string {
	if e.CompensationErr != nil {
		return fmt.Sprintf("failed to create items for order %s: %v (cleanup failed: %v)",
			e.OrderID, e.Err, e.CompensationErr)
	}
	return fmt.Sprintf("failed to create items for order %s: %v", e.OrderID, e.Err)
}

func (e *OrderItemsCreationError) Unwrap() error { return e.Err }

func (e *OrderItemsCreationError) UserMessage() string {
	return "تعذر حفظ تفاصيل الطلب، يرجى المحاولة مرة أخرى"
}

// Orphaned reports whether the order header is still stored without items.
func (e *OrderItemsCreationError) Orphaned() bool {
	return e.CompensationErr != nil
}
