package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/cleanshop/pkg/order"
	"github.com/example/cleanshop/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const handoffTimeout = 10 * time.Second

// LinkOpener performs the deep-link handoff for a placed order.
type LinkOpener interface {
	Open(ctx context.Context, link string) error
}

// LogOpener records the link. The browser that submitted the order is the
// one that actually follows it.
type LogOpener struct {
	Logger *zap.Logger
}

func (o LogOpener) Open(_ context.Context, link string) error {
	o.Logger.Info("Handoff link ready", zap.String("link", link))
	return nil
}

// Auditor stores order lifecycle events. MongoRepository satisfies it.
type Auditor interface {
	RecordOrderEvent(ctx context.Context, orderID, action string, data bson.M) error
}

// Dispatcher implements order.Notifier on top of a single handoff actor, so
// placed orders are processed one at a time off the request path.
type Dispatcher struct {
	system *actor.ActorSystem
	pid    *actor.PID
	logger *zap.Logger
}

// NewDispatcher spawns the handoff actor. publisher and auditor may be nil.
func NewDispatcher(opener LinkOpener, publisher Publisher, auditor Auditor, logger *zap.Logger) (*Dispatcher, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &handoffActor{
			opener:    opener,
			publisher: publisher,
			auditor:   auditor,
			logger:    logger.Named("handoff-actor"),
		}
	})
	pid, err := system.Root.SpawnNamed(props, "handoff-actor")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn handoff actor: %w", err)
	}

	return &Dispatcher{system: system, pid: pid, logger: logger}, nil
}

// OrderPlaced queues the placement for the handoff actor and returns
// immediately.
func (d *Dispatcher) OrderPlaced(p order.Placement) {
	d.system.Root.Send(d.pid, &placeOrder{Placement: p})
}

// Stop drains queued placements and stops the actor system.
func (d *Dispatcher) Stop() error {
	err := d.system.Root.PoisonFuture(d.pid).Wait()
	d.system.Shutdown()
	return err
}

type placeOrder struct {
	Placement order.Placement
}

type handoffActor struct {
	opener    LinkOpener
	publisher Publisher
	auditor   Auditor
	logger    *zap.Logger
}

func (a *handoffActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *placeOrder:
		a.handle(msg.Placement)

	case *actor.Started:
		a.logger.Info("Handoff actor started")

	case *actor.Stopped:
		a.logger.Info("Handoff actor stopped")
	}
}

func (a *handoffActor) handle(p order.Placement) {
	ctx, cancel := context.WithTimeout(context.Background(), handoffTimeout)
	defer cancel()

	log := a.logger.With(zap.String("order_id", p.OrderID))

	if err := a.opener.Open(ctx, p.DeepLink); err != nil {
		log.Warn("Failed to open handoff link", zap.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.PublishOrderPlaced(ctx, p); err != nil {
			log.Warn("Failed to publish order event", zap.Error(err))
		}
	}

	if a.auditor != nil {
		data := bson.M{
			"customer_name": p.Form.CustomerName,
			"total_amount":  p.Total.String(),
			"lines":         len(p.Items),
		}
		if err := a.auditor.RecordOrderEvent(ctx, p.OrderID, repository.AuditOrderSubmitted, data); err != nil {
			log.Warn("Failed to audit order", zap.Error(err))
		}
	}
}
