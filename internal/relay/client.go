package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftline/tidecall/internal/pubsub"
)

// DefaultCallTimeout bounds how long a caller waits for a correlated
// response before giving up with ErrTransportStall. The bus has no delivery
// guarantee, so waiting forever would wedge the calling flow on a single
// lost message.
const DefaultCallTimeout = 10 * time.Second

// Client issues privileged operations over the shared channel and waits for
// the correlated response.
type Client struct {
	bus           pubsub.Bus
	participantID string
	timeout       time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCallTimeout overrides the per-call response deadline.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a relay client for one session participant.
func NewClient(bus pubsub.Bus, participantID string, opts ...ClientOption) *Client {
	c := &Client{
		bus:           bus,
		participantID: participantID,
		timeout:       DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Despawn removes every live summon for the owner key via the coordinator.
func (c *Client) Despawn(ctx context.Context, ownerKey string) (DespawnResult, error) {
	return call[DespawnResult](ctx, c, OpDespawn, DespawnRequest{OwnerKey: ownerKey})
}

// Spawn places a summoned entity via the coordinator.
func (c *Client) Spawn(ctx context.Context, req SpawnRequest) (SpawnResult, error) {
	return call[SpawnResult](ctx, c, OpSpawn, req)
}

// Attack resolves an action use via the coordinator.
func (c *Client) Attack(ctx context.Context, req AttackRequest) (AttackResult, error) {
	return call[AttackResult](ctx, c, OpAttack, req)
}

// call publishes one request and blocks until the response with the same
// correlation id arrives, the call deadline expires, or ctx is canceled.
// The one-shot response subscription is torn down on every exit path.
func call[R any](ctx context.Context, c *Client, op Op, payload any) (R, error) {
	var zero R

	data, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("marshal %s request: %w", op, err)
	}

	correlationID := uuid.New().String()
	wantOp := op.Result()

	// The subscription lives in its own context so it is released as soon
	// as the call completes; repeated calls must not leak handlers.
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	responses := make(chan Envelope, 1)
	err = c.bus.Subscribe(subCtx, Channel, func(_ context.Context, msg pubsub.Message) error {
		var env Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return nil
		}
		if env.Op != wantOp || env.CorrelationID != correlationID {
			return nil
		}
		select {
		case responses <- env:
		default:
		}
		return nil
	})
	if err != nil {
		return zero, fmt.Errorf("subscribe for %s response: %w", op, err)
	}

	env := Envelope{Op: string(op), CorrelationID: correlationID, Data: data}
	reqData, err := json.Marshal(env)
	if err != nil {
		return zero, fmt.Errorf("marshal %s envelope: %w", op, err)
	}
	if err := c.bus.Publish(ctx, pubsub.Message{
		Topic:    Channel,
		SenderID: c.participantID,
		Payload:  reqData,
	}); err != nil {
		return zero, fmt.Errorf("publish %s request: %w", op, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp := <-responses:
		var result R
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return zero, fmt.Errorf("decode %s response: %w", op, err)
		}
		return result, nil
	case <-timer.C:
		return zero, fmt.Errorf("%s after %s: %w", op, c.timeout, ErrTransportStall)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
