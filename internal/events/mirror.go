package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/obs"
	"github.com/restrobazaar/storefront/internal/session"
)

// TaskCartMirror is the asynq task type that replays a cart change on the backend cart.
const TaskCartMirror = "cart:mirror"

// MirrorOp is the backend cart operation a change maps to.
type MirrorOp string

// Mirror operations.
const (
	MirrorNone   MirrorOp = ""
	MirrorAdd    MirrorOp = "add"
	MirrorUpdate MirrorOp = "update"
	MirrorRemove MirrorOp = "remove"
)

// CartChange is the payload of cart events. Quantity is the delta for adds and
// the product total for updates.
type CartChange struct {
	Op              MirrorOp        `json:"op"`
	VendorProductID string          `json:"vendorProductId,omitempty"`
	Quantity        int             `json:"quantity,omitempty"`
	ProductQuantity int             `json:"productQuantity,omitempty"`
	PriceType       string          `json:"priceType,omitempty"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
}

// MirrorTask is the asynq payload of TaskCartMirror. It carries no credentials:
// the worker reads the session's current token when the task runs. Seq orders
// the changes of one session.
type MirrorTask struct {
	EventID   string     `json:"eventId"`
	SessionID string     `json:"sessionId"`
	Seq       int64      `json:"seq"`
	Change    CartChange `json:"change"`
}

// Enqueuer is the subset of asynq.Client used by MirrorNotifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MirrorNotifier enqueues cart changes of signed-in shoppers for the worker.
// Guest changes stay local.
type MirrorNotifier struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
	Timeout  time.Duration
}

// Notify implements Notifier.
func (n MirrorNotifier) Notify(ctx context.Context, ev Event) error {
	if n.Client == nil || !slices.Contains(DefaultTopics(), ev.Topic) {
		return nil
	}
	if token, _ := common.Token(ctx); token == "" {
		return nil
	}
	var change CartChange
	if err := json.Unmarshal(ev.Payload, &change); err != nil {
		return fmt.Errorf("decode cart change: %w", err)
	}
	if change.Op == MirrorNone {
		return nil
	}
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	payload, err := json.Marshal(MirrorTask{EventID: ev.ID.String(), SessionID: ev.SessionID, Seq: occurred.UnixNano(), Change: change})
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.MaxRetry(n.maxRetry()), asynq.Timeout(n.timeout())}
	if n.Queue != "" {
		opts = append(opts, asynq.Queue(n.Queue))
	}
	info, err := n.Client.EnqueueContext(ctx, asynq.NewTask(TaskCartMirror, payload), opts...)
	if err != nil {
		return fmt.Errorf("enqueue cart mirror: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("task_id", info.ID).Str("topic", ev.Topic).Msg("cart_mirror_enqueued")
	return nil
}

func (n MirrorNotifier) maxRetry() int {
	if n.MaxRetry <= 0 {
		return 5
	}
	return n.MaxRetry
}

func (n MirrorNotifier) timeout() time.Duration {
	if n.Timeout <= 0 {
		return 30 * time.Second
	}
	return n.Timeout
}

// CartBackend is the backend cart surface the mirror replays onto.
type CartBackend interface {
	AddCartItem(ctx context.Context, item backend.CartItemRequest) error
	UpdateCartItem(ctx context.Context, productID string, quantity int) error
	RemoveCartItem(ctx context.Context, productID string) error
}

// TokenSource reads the bearer token stored for a session.
type TokenSource interface {
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
}

// Locker serializes mirror tasks of one session.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Cursor remembers the Seq of the last change mirrored for a session.
type Cursor interface {
	Last(ctx context.Context, sessionID string) (int64, error)
	Advance(ctx context.Context, sessionID string, seq int64) error
}

// RedisCursor keeps mirror cursors as plain Redis keys.
type RedisCursor struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

// Last returns 0 when nothing was mirrored yet.
func (c RedisCursor) Last(ctx context.Context, sessionID string) (int64, error) {
	seq, err := c.Client.Get(ctx, c.Prefix+sessionID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read mirror cursor: %w", err)
	}
	return seq, nil
}

// Advance records seq as mirrored.
func (c RedisCursor) Advance(ctx context.Context, sessionID string, seq int64) error {
	if err := c.Client.Set(ctx, c.Prefix+sessionID, seq, c.TTL).Err(); err != nil {
		return fmt.Errorf("write mirror cursor: %w", err)
	}
	return nil
}

// MirrorHandler processes TaskCartMirror tasks. With a Locker and Cursor set,
// tasks of one session run one at a time and a change older than the last
// mirrored one is dropped; adds are then replayed as the product total so a
// dropped add is not lost.
type MirrorHandler struct {
	Backend  CartBackend
	Sessions TokenSource
	Locker   Locker
	Cursor   Cursor
}

// ProcessTask implements asynq.Handler.
func (h MirrorHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var msg MirrorTask
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		h.count(msg.Change.Op, "invalid")
		return fmt.Errorf("decode mirror task: %v: %w", err, asynq.SkipRetry)
	}
	ctx, span := otel.Tracer("events").Start(ctx, "cart.mirror")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.op", string(msg.Change.Op)),
		attribute.String("cart.vendor_product_id", msg.Change.VendorProductID),
	)

	token, ok, err := h.Sessions.Get(ctx, msg.SessionID, session.KeyToken)
	if err != nil {
		span.RecordError(err)
		h.count(msg.Change.Op, "error")
		return fmt.Errorf("mirror %s: read token: %w", msg.Change.Op, err)
	}
	if !ok || token == "" {
		h.count(msg.Change.Op, "signed_out")
		return nil
	}
	ctx = common.WithToken(ctx, token)

	if h.Locker == nil {
		return h.finish(ctx, msg, h.replay(ctx, msg))
	}
	return h.Locker.WithLock(ctx, "mirror:"+msg.SessionID, func(ctx context.Context) error {
		return h.finish(ctx, msg, h.replay(ctx, msg))
	})
}

func (h MirrorHandler) replay(ctx context.Context, msg MirrorTask) error {
	if h.Cursor == nil {
		return h.apply(ctx, msg.Change)
	}
	last, err := h.Cursor.Last(ctx, msg.SessionID)
	if err != nil {
		return err
	}
	if msg.Seq <= last {
		return errStale
	}
	if err := h.apply(ctx, msg.Change); err != nil {
		return err
	}
	return h.Cursor.Advance(ctx, msg.SessionID, msg.Seq)
}

var errStale = errors.New("mirror: change older than last mirrored")

func (h MirrorHandler) finish(ctx context.Context, msg MirrorTask, err error) error {
	op := msg.Change.Op
	switch {
	case err == nil:
		h.count(op, "ok")
		return nil
	case errors.Is(err, errStale):
		h.count(op, "stale")
		return nil
	case errors.Is(err, backend.ErrUnauthorized):
		h.count(op, "unauthorized")
		zerolog.Ctx(ctx).Warn().Str("session_id", msg.SessionID).Msg("cart_mirror_token_rejected")
		return fmt.Errorf("mirror %s: %v: %w", op, err, asynq.SkipRetry)
	case errors.Is(err, backend.ErrNotFound) && op == MirrorRemove:
		h.count(op, "ok")
		return nil
	default:
		trace.SpanFromContext(ctx).RecordError(err)
		h.count(op, "error")
		return fmt.Errorf("mirror %s: %w", op, err)
	}
}

func (h MirrorHandler) apply(ctx context.Context, c CartChange) error {
	switch c.Op {
	case MirrorAdd:
		item := backend.CartItemRequest{
			ProductID: c.VendorProductID,
			Quantity:  c.Quantity,
			PriceType: c.PriceType,
			Price:     backend.Decimal(c.UnitPrice),
		}
		if h.Cursor == nil || c.ProductQuantity <= c.Quantity {
			return h.Backend.AddCartItem(ctx, item)
		}
		err := h.Backend.UpdateCartItem(ctx, c.VendorProductID, c.ProductQuantity)
		if errors.Is(err, backend.ErrNotFound) {
			item.Quantity = c.ProductQuantity
			return h.Backend.AddCartItem(ctx, item)
		}
		return err
	case MirrorUpdate:
		return h.Backend.UpdateCartItem(ctx, c.VendorProductID, c.ProductQuantity)
	case MirrorRemove:
		return h.Backend.RemoveCartItem(ctx, c.VendorProductID)
	default:
		return nil
	}
}

func (h MirrorHandler) count(op MirrorOp, result string) {
	if obs.CartMirrorTasksTotal != nil {
		obs.CartMirrorTasksTotal.WithLabelValues(string(op), result).Inc()
	}
}
