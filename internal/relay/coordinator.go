package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/driftline/tidecall/internal/board"
	"github.com/driftline/tidecall/internal/combat"
	"github.com/driftline/tidecall/internal/pubsub"
	"github.com/driftline/tidecall/internal/registry"
	"github.com/driftline/tidecall/internal/summon"
)

// PrivilegeCheck reports whether this process currently holds the
// privileged role. It is consulted on every message, not cached, because
// the role can move between participants at runtime.
type PrivilegeCheck func() bool

// Coordinator is the privileged side of the relay: it executes
// board-mutating operations on behalf of non-privileged callers and
// publishes exactly one correlated response per handled request.
type Coordinator struct {
	bus        pubsub.Bus
	store      board.Store
	reg        *registry.Registry
	privileged PrivilegeCheck
	manual     *combat.ManualResolver
	logger     *slog.Logger
}

// NewCoordinator wires the privileged worker. The manual resolver is the
// last-resort attack strategy when no capability is available.
func NewCoordinator(bus pubsub.Bus, store board.Store, reg *registry.Registry, privileged PrivilegeCheck, manual *combat.ManualResolver, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		bus:        bus,
		store:      store,
		reg:        reg,
		privileged: privileged,
		manual:     manual,
		logger:     logger,
	}
}

// Start subscribes the coordinator to the relay channel. It returns once
// the subscription is active; message handling runs until ctx is canceled.
func (c *Coordinator) Start(ctx context.Context) error {
	return c.bus.Subscribe(ctx, Channel, c.handle)
}

func (c *Coordinator) handle(ctx context.Context, msg pubsub.Message) error {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		c.logger.Warn("Discarding malformed relay message", "error", err)
		return nil
	}
	if IsResult(env.Op) {
		// Responses share the channel; only callers consume them.
		return nil
	}
	if !c.privileged() {
		return nil
	}

	// A failure inside an operation is an operator problem, not the
	// caller's: log it here and send nothing, rather than leak internal
	// state over the shared channel.
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Relay operation panicked", "op", env.Op, "correlation_id", env.CorrelationID, "panic", r)
		}
	}()

	switch Op(env.Op) {
	case OpDespawn:
		c.handleDespawn(ctx, env)
	case OpSpawn:
		c.handleSpawn(ctx, env)
	case OpAttack:
		c.handleAttack(ctx, env)
	default:
		c.logger.Warn("Unknown relay op", "op", env.Op, "sender", msg.SenderID)
	}
	return nil
}

func (c *Coordinator) handleDespawn(ctx context.Context, env Envelope) {
	var req DespawnRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		c.logger.Error("Bad despawn payload", "error", err)
		return
	}

	removed, err := summon.DespawnByOwner(ctx, c.store, req.OwnerKey)
	if err != nil {
		c.logger.Error("Despawn failed", "owner_key", req.OwnerKey, "error", err)
		return
	}
	c.respond(ctx, OpDespawn, env.CorrelationID, DespawnResult{Removed: removed})
}

func (c *Coordinator) handleSpawn(ctx context.Context, env Envelope) {
	var req SpawnRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		c.logger.Error("Bad spawn payload", "error", err)
		return
	}

	// Place despawns the owner's prior summon first, even when the caller
	// already asked for a despawn; duplicate cleanup is free and protects
	// the single-summon invariant against lost or replayed messages.
	id, err := summon.Place(ctx, c.store, summon.PlaceRequest{
		TemplateName: req.TemplateName,
		Position:     req.Position,
		Disposition:  req.Disposition,
		Linked:       req.Linked,
		OwnerKey:     req.OwnerKey,
	})
	switch {
	case errors.Is(err, board.ErrNotFound):
		c.respond(ctx, OpSpawn, env.CorrelationID, SpawnResult{Fault: notFoundFault(err.Error())})
	case err != nil:
		c.logger.Error("Spawn failed", "owner_key", req.OwnerKey, "error", err)
	default:
		c.respond(ctx, OpSpawn, env.CorrelationID, SpawnResult{EntityID: string(id)})
	}
}

func (c *Coordinator) handleAttack(ctx context.Context, env Envelope) {
	var req AttackRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		c.logger.Error("Bad attack payload", "error", err)
		return
	}

	attacker, err := c.store.Entity(board.EntityID(req.EntityID))
	if errors.Is(err, board.ErrNotFound) {
		c.respond(ctx, OpAttack, env.CorrelationID, AttackResult{Fault: notFoundFault(err.Error())})
		return
	}
	target, err := c.store.Entity(board.EntityID(req.TargetID))
	if errors.Is(err, board.ErrNotFound) {
		c.respond(ctx, OpAttack, env.CorrelationID, AttackResult{Fault: notFoundFault(err.Error())})
		return
	}

	action, err := c.store.ActionByName(attacker.ID, req.ActionName)
	transient := false
	if errors.Is(err, board.ErrNotFound) {
		synth := combat.SynthesizeStrike(req.ActionName)
		id, cerr := c.store.CreateAction(ctx, attacker.ID, synth)
		if cerr != nil {
			c.logger.Error("Synthesizing action failed", "action", req.ActionName, "error", cerr)
			return
		}
		synth.ID = id
		action = &synth
		transient = true
	}

	// The transient action must never outlive the attack, whatever the
	// resolution step does; the deferred guard covers panic paths and the
	// explicit call keeps cleanup ahead of the response, matching the
	// lifetime callers observe.
	cleanup := func() {
		if !transient {
			return
		}
		transient = false
		if _, derr := c.store.DeleteActions(ctx, attacker.ID, []string{action.ID}); derr != nil {
			c.logger.Error("Transient action cleanup failed", "action_id", action.ID, "error", derr)
		}
	}
	defer cleanup()

	c.resolveAttack(ctx, attacker, action, target)

	cleanup()
	c.respond(ctx, OpAttack, env.CorrelationID, AttackResult{OK: true})
}

// resolveAttack runs the selected strategy. Resolution failures are logged
// and swallowed: once resolution has been attempted the attack is reported
// ok, and a misbehaving capability must not take the cleanup or the
// response down with it.
func (c *Coordinator) resolveAttack(ctx context.Context, attacker *board.Entity, action *board.Action, target *board.Entity) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Attack resolution panicked", "attacker", attacker.ID, "panic", r)
		}
	}()

	resolver := combat.Select(c.reg, c.store, c.manual)
	outcome, err := resolver.Resolve(ctx, attacker, action, target)
	if err != nil {
		c.logger.Error("Attack resolution failed", "attacker", attacker.ID, "target", target.ID, "error", err)
		return
	}

	if err := pubsub.Publish(ctx, c.bus, TopicNarrative, Narrative{
		EntityID: string(attacker.ID),
		TargetID: string(target.ID),
		Kind:     outcome.Kind.String(),
		Text:     outcome.Narrative,
	}); err != nil {
		c.logger.Error("Publishing narrative failed", "error", err)
	}
}

func (c *Coordinator) respond(ctx context.Context, op Op, correlationID string, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("Marshal relay response", "op", op, "error", err)
		return
	}
	env := Envelope{Op: op.Result(), CorrelationID: correlationID, Data: data}
	payload, err := json.Marshal(env)
	if err != nil {
		c.logger.Error("Marshal relay envelope", "op", op, "error", err)
		return
	}
	if err := c.bus.Publish(ctx, pubsub.Message{Topic: Channel, Payload: payload}); err != nil {
		c.logger.Error("Publish relay response", "op", op, "error", err)
	}
}
