package order

import (
	"context"
	"errors"
	"time"

	"github.com/example/cleanshop/pkg/cart"
	"github.com/example/cleanshop/pkg/config"
	"github.com/example/cleanshop/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const compensationTimeout = 10 * time.Second

// Placement describes an order that has been stored and is ready for the
// external handoff.
type Placement struct {
	OrderID  string
	Form     Form
	Items    []cart.LineItem
	Total    decimal.Decimal
	Message  string
	DeepLink string
	PlacedAt time.Time
}

// Notifier receives placed orders. OrderPlaced must not block and its
// outcome is never observed by the workflow.
type Notifier interface {
	OrderPlaced(p Placement)
}

// Receipt is returned to the caller after a successful submission.
type Receipt struct {
	OrderID  string          `json:"order_id"`
	DeepLink string          `json:"deep_link"`
	Message  string          `json:"message"`
	Total    decimal.Decimal `json:"total"`
	Next     string          `json:"next"`
}

type Workflow struct {
	store    repository.RecordStore
	notifier Notifier
	handoff  *config.HandoffConfig
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

func NewWorkflow(store repository.RecordStore, notifier Notifier, handoff *config.HandoffConfig, logger *zap.Logger) *Workflow {
	return &Workflow{
		store:    store,
		notifier: notifier,
		handoff:  handoff,
		location: handoff.Location(),
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitOrder validates the form against the cart, stores the order header
// and its items, hands the summary to the notifier and takes the submitted
// lines out of the cart. The cart is only touched once both writes
// succeeded; lines added while the writes were running stay in it.
func (w *Workflow) SubmitOrder(ctx context.Context, c *cart.Store, in Form) (*Receipt, error) {
	form := in.Normalize()
	items := priceSnapshot(c.Items())
	if err := form.Check(len(items)); err != nil {
		return nil, err
	}

	total := cart.Total(items)
	header := repository.Record{
		"customer_name":    form.CustomerName,
		"customer_phone":   form.CustomerPhone,
		"customer_address": form.CustomerAddress,
		"notes":            nullable(form.Notes),
		"total_amount":     total,
		"status":           StatusPending,
	}

	created, err := w.store.Insert(ctx, repository.TableOrders, header)
	if err != nil {
		w.logger.Error("Failed to create order", zap.Error(err))
		return nil, &OrderCreationError{Err: err}
	}
	if len(created) == 0 || created[0].ID() == "" {
		return nil, &OrderCreationError{Err: errors.New("record store returned no order id")}
	}
	orderID := created[0].ID()

	if err := w.insertItems(ctx, orderID, items); err != nil {
		w.logger.Error("Failed to create order items",
			zap.String("order_id", orderID),
			zap.Error(err))
		cerr := w.compensate(ctx, orderID)
		if cerr != nil {
			w.logger.Error("Order left without items",
				zap.String("order_id", orderID),
				zap.Error(cerr))
		}
		return nil, &OrderItemsCreationError{OrderID: orderID, Err: err, CompensationErr: cerr}
	}

	placedAt := w.now().In(w.location)
	message := FormatMessage(Summary{
		StoreName: w.handoff.StoreName,
		OrderID:   orderID,
		Form:      form,
		Items:     items,
		Total:     total,
		PlacedAt:  placedAt,
	})
	link := DeepLink(w.handoff.Domain, w.handoff.Recipient, message)

	if w.notifier != nil {
		w.notifier.OrderPlaced(Placement{
			OrderID:  orderID,
			Form:     form,
			Items:    items,
			Total:    total,
			Message:  message,
			DeepLink: link,
			PlacedAt: placedAt,
		})
	}
	c.Subtract(items)

	w.logger.Info("Order submitted",
		zap.String("order_id", orderID),
		zap.Int("lines", len(items)),
		zap.String("total", total.String()))

	return &Receipt{
		OrderID:  orderID,
		DeepLink: link,
		Message:  message,
		Total:    total,
		Next:     w.handoff.RedirectURL,
	}, nil
}

// insertItems stores one order_items record per cart line in a single call.
func (w *Workflow) insertItems(ctx context.Context, orderID string, items []cart.LineItem) error {
	records := make([]repository.Record, len(items))
	for i, it := range items {
		records[i] = repository.Record{
			"order_id":      orderID,
			"product_id":    it.ID,
			"product_name":  it.Name,
			"product_price": it.UnitPrice,
			"quantity":      it.Quantity,
			"total_price":   it.Subtotal(),
		}
	}
	_, err := w.store.Insert(ctx, repository.TableOrderItems, records...)
	return err
}

// compensate removes whatever part of the order made it to the store.
func (w *Workflow) compensate(ctx context.Context, orderID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	itemsErr := w.store.Delete(ctx, repository.TableOrderItems, repository.Filter{"order_id": orderID})
	headerErr := w.store.Delete(ctx, repository.TableOrders, repository.Filter{"id": orderID})
	return errors.Join(itemsErr, headerErr)
}

// priceSnapshot rounds unit prices to the stored scale so every line total,
// and therefore the order total, is exact in the decimal(12,2) columns.
func priceSnapshot(items []cart.LineItem) []cart.LineItem {
	for i := range items {
		items[i].UnitPrice = cart.RoundPrice(items[i].UnitPrice)
	}
	return items
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
