package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/tidecall/internal/board"
	"github.com/driftline/tidecall/internal/combat"
	"github.com/driftline/tidecall/internal/dice"
	"github.com/driftline/tidecall/internal/geometry"
	"github.com/driftline/tidecall/internal/pubsub"
	"github.com/driftline/tidecall/internal/registry"
	"github.com/driftline/tidecall/internal/summon"
)

type fixture struct {
	bus    *pubsub.WatermillBridge
	store  *board.MemoryBoard
	reg    *registry.Registry
	client *Client
	cancel context.CancelFunc
}

func newFixture(t *testing.T, privileged PrivilegeCheck) *fixture {
	t.Helper()

	bus := pubsub.NewWatermillBridge()
	store := board.NewMemoryBoard(geometry.Grid{CellPx: 100, UnitsPerCell: 5})
	store.AddTemplate(&board.Template{Name: "Deep Tentacle", Defense: 12, HP: 20, AttackBonus: 5})
	reg := registry.New()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		bus.Close()
	})

	manual := combat.NewManualResolver(store, dice.NewRoller(11), nil)
	coord := NewCoordinator(bus, store, reg, privileged, manual, nil)
	require.NoError(t, coord.Start(ctx))

	return &fixture{
		bus:    bus,
		store:  store,
		reg:    reg,
		client: NewClient(bus, "caller-1", WithCallTimeout(2*time.Second)),
		cancel: cancel,
	}
}

func alwaysPrivileged() bool { return true }

func TestDespawn_ZeroRemovedIsSuccess(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)

	res, err := f.client.Despawn(context.Background(), "owner-1")
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.Equal(t, 0, res.Removed)
}

func TestSpawn_CreatesTaggedEntity(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)

	res, err := f.client.Spawn(context.Background(), SpawnRequest{
		TemplateName: "Deep Tentacle",
		Position:     geometry.Point{X: 300, Y: 300},
		Disposition:  1,
		OwnerKey:     "owner-1",
	})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.NotEmpty(t, res.EntityID)

	v, ok := f.store.Attr(board.EntityID(res.EntityID), summon.OwnerKeyAttr)
	assert.True(t, ok)
	assert.Equal(t, "owner-1", v)
}

func TestSpawn_TemplateNotFound(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)

	res, err := f.client.Spawn(context.Background(), SpawnRequest{
		TemplateName: "Missing",
		OwnerKey:     "owner-1",
	})
	require.NoError(t, err, "transport succeeds; the fault is in the payload")
	assert.ErrorIs(t, res.Err(), ErrNotFound)
	assert.Empty(t, summon.LiveFor(f.store, "owner-1"), "no partial creation")
}

func TestSpawn_SameOwnerTwiceKeepsOneLive(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)
	ctx := context.Background()

	first, err := f.client.Spawn(ctx, SpawnRequest{TemplateName: "Deep Tentacle", OwnerKey: "owner-1"})
	require.NoError(t, err)
	require.NoError(t, first.Err())

	second, err := f.client.Spawn(ctx, SpawnRequest{TemplateName: "Deep Tentacle", OwnerKey: "owner-1"})
	require.NoError(t, err)
	require.NoError(t, second.Err())

	live := summon.LiveFor(f.store, "owner-1")
	require.Len(t, live, 1)
	assert.Equal(t, second.EntityID, string(live[0].ID))
}

func TestSpawn_ConcurrentOwnersGetTheirOwnResponses(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]SpawnResult, callers)
	errs := make([]error, callers)
	clients := make([]*Client, callers)
	for i := range clients {
		clients[i] = NewClient(f.bus, "caller", WithCallTimeout(5*time.Second))
	}

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = clients[i].Spawn(ctx, SpawnRequest{
				TemplateName: "Deep Tentacle",
				OwnerKey:     "owner-" + string(rune('a'+i)),
			})
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, res := range results {
		require.NoError(t, errs[i])
		require.NoError(t, res.Err())
		assert.False(t, seen[res.EntityID], "caller %d got a duplicate entity id", i)
		seen[res.EntityID] = true
	}
}

func TestAttack_SynthesizesAndCleansUpTransientAction(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)
	ctx := context.Background()

	spawned, err := f.client.Spawn(ctx, SpawnRequest{TemplateName: "Deep Tentacle", OwnerKey: "owner-1"})
	require.NoError(t, err)
	require.NoError(t, spawned.Err())

	targetID := f.store.PlaceEntity(&board.Entity{Name: "Guard", Defense: 10, HP: 30, HasActor: true})

	narratives := make(chan Narrative, 1)
	subCtx, subCancel := context.WithCancel(ctx)
	defer subCancel()
	require.NoError(t, pubsub.Subscribe(subCtx, f.bus, TopicNarrative, func(_ context.Context, n Narrative) error {
		narratives <- n
		return nil
	}))

	res, err := f.client.Attack(ctx, AttackRequest{
		EntityID:   spawned.EntityID,
		ActionName: "Tentacle Strike",
		TargetID:   string(targetID),
	})
	require.NoError(t, err)
	require.NoError(t, res.Err())
	assert.True(t, res.OK)

	assert.Empty(t, f.store.Actions(board.EntityID(spawned.EntityID)), "transient action removed after use")

	select {
	case n := <-narratives:
		assert.Equal(t, spawned.EntityID, n.EntityID)
		assert.NotEmpty(t, n.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("no narrative published")
	}
}

func TestAttack_KeepsPersistentAction(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)
	ctx := context.Background()

	spawned, err := f.client.Spawn(ctx, SpawnRequest{TemplateName: "Deep Tentacle", OwnerKey: "owner-1"})
	require.NoError(t, err)
	attackerID := board.EntityID(spawned.EntityID)

	_, err = f.store.CreateAction(ctx, attackerID, board.Action{Name: "Tentacle Strike", DamageDice: 1, DamageSides: 8, DamageType: "cold"})
	require.NoError(t, err)
	targetID := f.store.PlaceEntity(&board.Entity{Name: "Guard", Defense: 10, HP: 30, HasActor: true})

	res, err := f.client.Attack(ctx, AttackRequest{
		EntityID:   spawned.EntityID,
		ActionName: "Tentacle Strike",
		TargetID:   string(targetID),
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Len(t, f.store.Actions(attackerID), 1, "pre-existing action survives the attack")
}

func TestAttack_EntityNotFound(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)

	res, err := f.client.Attack(context.Background(), AttackRequest{
		EntityID:   "missing",
		ActionName: "Tentacle Strike",
		TargetID:   "also-missing",
	})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err(), ErrNotFound)
	assert.False(t, res.OK)
}

type panickingCapability struct{}

func (panickingCapability) Active() bool { return true }

func (panickingCapability) ResolveUse(context.Context, board.EntityID, *board.Action, board.EntityID) error {
	panic("resolver exploded")
}

func TestAttack_PanickingResolverStillCleansUpAndResponds(t *testing.T) {
	f := newFixture(t, alwaysPrivileged)
	ctx := context.Background()
	registry.Set(f.reg, combat.ExternalResolverKey, combat.ExternalCapability(panickingCapability{}))

	spawned, err := f.client.Spawn(ctx, SpawnRequest{TemplateName: "Deep Tentacle", OwnerKey: "owner-1"})
	require.NoError(t, err)
	targetID := f.store.PlaceEntity(&board.Entity{Name: "Guard", Defense: 10, HP: 30, HasActor: true})

	res, err := f.client.Attack(ctx, AttackRequest{
		EntityID:   spawned.EntityID,
		ActionName: "Tentacle Strike",
		TargetID:   string(targetID),
	})
	require.NoError(t, err, "the caller still gets a response")
	assert.True(t, res.OK)
	assert.Empty(t, f.store.Actions(board.EntityID(spawned.EntityID)), "cleanup survives the panic")
}

func TestCall_StallsWithoutCoordinator(t *testing.T) {
	bus := pubsub.NewWatermillBridge()
	defer bus.Close()

	client := NewClient(bus, "caller-1", WithCallTimeout(100*time.Millisecond))
	_, err := client.Despawn(context.Background(), "owner-1")
	assert.ErrorIs(t, err, ErrTransportStall)
}

func TestCoordinator_IgnoresRequestsWhenNotPrivileged(t *testing.T) {
	f := newFixture(t, func() bool { return false })

	client := NewClient(f.bus, "caller-1", WithCallTimeout(100*time.Millisecond))
	_, err := client.Despawn(context.Background(), "owner-1")
	assert.ErrorIs(t, err, ErrTransportStall)
}

func TestCoordinator_PrivilegeRecheckedPerMessage(t *testing.T) {
	var mu sync.Mutex
	priv := false
	f := newFixture(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return priv
	})

	client := NewClient(f.bus, "caller-1", WithCallTimeout(100*time.Millisecond))
	_, err := client.Despawn(context.Background(), "owner-1")
	require.ErrorIs(t, err, ErrTransportStall)

	mu.Lock()
	priv = true
	mu.Unlock()

	res, err := f.client.Despawn(context.Background(), "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Removed)
}
