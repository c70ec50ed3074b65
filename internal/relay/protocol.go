// Package relay implements the privileged-action protocol between
// non-privileged session participants and the single privileged
// coordinator: correlated request/response envelopes on one shared bus
// channel.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/driftline/tidecall/internal/geometry"
)

// Channel is the single bus topic shared by every session participant.
// Requests and responses both travel on it; the op field tells them apart.
const Channel = "tidecall.relay"

// Op names a privileged operation.
type Op string

const (
	// OpDespawn removes every live summon tagged with an owner key.
	OpDespawn Op = "despawnByOwner"
	// OpSpawn creates a summoned entity from a template.
	OpSpawn Op = "spawn"
	// OpAttack resolves an action use against a target.
	OpAttack Op = "attack"
)

const resultSuffix = ":result"

// Result returns the op tag carried by the matching response.
func (op Op) Result() string {
	return string(op) + resultSuffix
}

// IsResult reports whether an envelope op tag marks a response.
func IsResult(op string) bool {
	return strings.HasSuffix(op, resultSuffix)
}

// Envelope is the wire format on the relay channel.
type Envelope struct {
	Op            string          `json:"op"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// ErrTransportStall is returned when no correlated response arrives before
// the call deadline: the request or response was lost, or no coordinator is
// listening.
var ErrTransportStall = errors.New("relay: no response from coordinator")

// ErrNotFound is returned when the coordinator could not resolve a
// template, entity or action named in a request.
var ErrNotFound = errors.New("relay: not found")

const faultCodeNotFound = "not_found"

// Fault carries a handled coordinator-side failure back to the caller.
// A zero Fault means success.
type Fault struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Err converts the fault to an error, or nil for a zero fault.
func (f Fault) Err() error {
	if f.Code == "" && f.Message == "" {
		return nil
	}
	if f.Code == faultCodeNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, f.Message)
	}
	return errors.New("relay: " + f.Message)
}

func notFoundFault(msg string) Fault {
	return Fault{Code: faultCodeNotFound, Message: msg}
}

// DespawnRequest asks the coordinator to remove an owner's live summons.
type DespawnRequest struct {
	OwnerKey string `json:"owner_key"`
}

// DespawnResult reports how many entities were removed. Zero is success.
type DespawnResult struct {
	Fault
	Removed int `json:"removed"`
}

// SpawnRequest asks the coordinator to place a summoned entity.
type SpawnRequest struct {
	TemplateName string         `json:"template_name"`
	Position     geometry.Point `json:"position"` // top-left corner of the target cell
	Disposition  int            `json:"disposition"`
	Linked       bool           `json:"linked"`
	OwnerKey     string         `json:"owner_key"`
}

// SpawnResult carries the new entity's id.
type SpawnResult struct {
	Fault
	EntityID string `json:"entity_id"`
}

// AttackRequest asks the coordinator to resolve an action use.
type AttackRequest struct {
	EntityID   string `json:"entity_id"`
	ActionName string `json:"action_name"`
	TargetID   string `json:"target_id"`
}

// AttackResult acknowledges that resolution was attempted. Hit or miss is
// reported through the narrative channel, not here; OK is true whenever the
// lookups succeeded, regardless of the resolution outcome.
type AttackResult struct {
	Fault
	OK bool `json:"ok"`
}
