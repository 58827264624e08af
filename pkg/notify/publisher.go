package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/cleanshop/pkg/order"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

const publishTimeout = 3 * time.Second

// OrderPlacedEvent is the body published for every stored order.
type OrderPlacedEvent struct {
	EventType     string          `json:"event_type"`
	OrderID       string          `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Items         []EventItem     `json:"items"`
	DeepLink      string          `json:"deep_link"`
	Timestamp     time.Time       `json:"timestamp"`
}

type EventItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func newOrderPlacedEvent(p order.Placement) OrderPlacedEvent {
	ev := OrderPlacedEvent{
		EventType:     "OrderPlaced",
		OrderID:       p.OrderID,
		CustomerName:  p.Form.CustomerName,
		CustomerPhone: p.Form.CustomerPhone,
		TotalAmount:   p.Total,
		DeepLink:      p.DeepLink,
		Timestamp:     p.PlacedAt.UTC(),
	}
	for _, it := range p.Items {
		ev.Items = append(ev.Items, EventItem{
			ProductID: it.ID,
			Quantity:  it.Quantity,
			Price:     it.UnitPrice,
		})
	}
	return ev
}

// Publisher announces placed orders to other systems.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, p order.Placement) error
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes order events to a durable RabbitMQ queue through
// the default exchange.
type AMQPPublisher struct {
	conn  *amqp.Connection
	ch    amqpChannel
	queue string
}

// DialAMQP connects to RabbitMQ and declares the queue so publishing never
// fails on missing infrastructure.
func DialAMQP(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare %s: %w", queue, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *AMQPPublisher) PublishOrderPlaced(ctx context.Context, pl order.Placement) error {
	body, err := json.Marshal(newOrderPlacedEvent(pl))
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(pubCtx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    pl.OrderID,
		Timestamp:    pl.PlacedAt,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
