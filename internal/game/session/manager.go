// Package session manages live battles behind an id: it owns each battle's
// state and random stream, serializes access to it, computes rewards exactly
// once, and records finished battles.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
	"github.com/cory-johannsen/idlequest/internal/game/dice"
	"github.com/cory-johannsen/idlequest/internal/observability"
)

// ErrUnknownBattle is returned for a battle id that was never started, or
// whose battle was already finished or abandoned.
var ErrUnknownBattle = errors.New("unknown battle")

// View is a read-only snapshot of one battle. State must not be modified.
type View struct {
	ID      string
	Seed    int64
	Request battle.EncounterRequest
	State   *battle.State
}

// Battle is one live battle.
type Battle struct {
	mu        sync.Mutex
	id        string
	profile   battle.PlayerProfile
	request   battle.EncounterRequest
	state     *battle.State
	src       *dice.SeededSource
	startedAt time.Time
	feeds     []*Feed
	closed    bool
	logger    *zap.Logger
}

func (b *Battle) view() View {
	return View{ID: b.id, Seed: b.src.Seed(), Request: b.request, State: b.state}
}

// Options configures optional Manager collaborators.
type Options struct {
	// Recorder receives every finished battle; nil disables recording.
	Recorder Recorder
	// Seeds draws the seed of each new battle; nil uses an entropy source.
	Seeds dice.Source
	// Now overrides the clock.
	Now func() time.Time
	// FeedBuffer is the per-watcher event buffer; 0 means 64.
	FeedBuffer int
}

// Manager tracks all live battles.
// All methods are safe for concurrent use; calls on the same battle are serialized.
type Manager struct {
	engine   *battle.Engine
	gen      battle.EncounterGenerator
	table    battle.RewardTable
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
	feedBuf  int

	seedMu sync.Mutex
	seeds  dice.Source

	mu      sync.RWMutex
	battles map[string]*Battle
}

// NewManager creates an empty Manager.
//
// Precondition: engine, gen, and logger must be non-nil; table may be nil for no drops.
func NewManager(engine *battle.Engine, gen battle.EncounterGenerator, table battle.RewardTable, logger *zap.Logger, opts Options) *Manager {
	if engine == nil || gen == nil || logger == nil {
		panic("session.NewManager: engine, gen, and logger must not be nil")
	}
	m := &Manager{
		engine:   engine,
		gen:      gen,
		table:    table,
		recorder: opts.Recorder,
		logger:   logger,
		now:      opts.Now,
		feedBuf:  opts.FeedBuffer,
		seeds:    opts.Seeds,
		battles:  make(map[string]*Battle),
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.seeds == nil {
		m.seeds = dice.NewEntropySource()
	}
	return m
}

// Engine returns the engine battles are resolved with.
func (m *Manager) Engine() *battle.Engine { return m.engine }

func (m *Manager) nextSeed() int64 {
	m.seedMu.Lock()
	defer m.seedMu.Unlock()
	return dice.NewSeed(m.seeds)
}

// Start generates an encounter and begins a battle. When the enemy moves
// first its opening turn is already resolved in the returned view.
//
// Postcondition: the view's state is terminal or waiting for a player action.
// Returns an error matching battle.ErrGenerationFailure when no usable enemy
// can be generated.
func (m *Manager) Start(ctx context.Context, profile battle.PlayerProfile, req battle.EncounterRequest) (View, error) {
	if err := ctx.Err(); err != nil {
		return View{}, err
	}
	req = req.Normalized()
	seed := m.nextSeed()
	src := dice.NewSeededSource(seed)

	s, err := m.engine.Initialize(profile, req, m.gen, src)
	if err != nil {
		m.logger.Info("battle rejected",
			zap.String("player", profile.Name),
			zap.String("encounter_kind", string(req.Kind)),
			zap.Error(err),
		)
		return View{}, err
	}

	id := uuid.NewString()
	b := &Battle{
		id:        id,
		profile:   profile,
		request:   req,
		src:       src,
		startedAt: m.now(),
		logger:    observability.BattleLogger(m.logger, id, string(req.Kind), req.RiskTier),
	}
	evs := s.History
	if !s.WaitingForPlayerAction {
		var opening []battle.Event
		s, opening = m.engine.AdvanceIfTurnExhausted(s, src)
		evs = append(append([]battle.Event{}, evs...), opening...)
	}
	b.state = s

	m.mu.Lock()
	m.battles[id] = b
	m.mu.Unlock()

	b.logger.Info("battle started",
		zap.String("player", profile.Name),
		zap.String("enemy", s.Enemy.Name),
		zap.Int64("seed", seed),
		zap.String("first_actor", string(s.FirstActor)),
	)
	b.observe(evs)
	return b.view(), nil
}

// lookup returns the live battle for id, locked. The caller must unlock it.
func (m *Manager) lookup(id string) (*Battle, error) {
	m.mu.RLock()
	b, ok := m.battles[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("battle %q: %w", id, ErrUnknownBattle)
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("battle %q: %w", id, ErrUnknownBattle)
	}
	return b, nil
}

// Get returns the current view of a battle.
func (m *Manager) Get(ctx context.Context, id string) (View, error) {
	if err := ctx.Err(); err != nil {
		return View{}, err
	}
	b, err := m.lookup(id)
	if err != nil {
		return View{}, err
	}
	defer b.mu.Unlock()
	return b.view(), nil
}

// Act resolves one player action and advances the battle to the player's
// next decision or to its end.
//
// Postcondition: on error the stored battle is unchanged and no randomness
// was consumed.
func (m *Manager) Act(ctx context.Context, id string, a battle.Action) (View, []battle.Event, error) {
	if err := ctx.Err(); err != nil {
		return View{}, nil, err
	}
	if a == nil {
		return View{}, nil, &battle.Error{Kind: battle.ErrInvalidActionForState, Detail: "no action given"}
	}
	b, err := m.lookup(id)
	if err != nil {
		return View{}, nil, err
	}
	defer b.mu.Unlock()

	next, evs, err := m.engine.Step(b.state, a, b.src)
	if err != nil {
		b.logger.Debug("action rejected",
			zap.String("action", string(a.Kind())),
			zap.String("id", battle.ActionID(a)),
			zap.Error(err),
		)
		return b.view(), nil, err
	}
	b.state = next
	b.observe(evs)
	return b.view(), evs, nil
}

// Skip plays the battle to its end with basic attacks.
//
// Postcondition: on an error matching battle.ErrRunawayBattle the stored
// battle holds the partial state reached and stays playable.
func (m *Manager) Skip(ctx context.Context, id string) (View, []battle.Event, error) {
	if err := ctx.Err(); err != nil {
		return View{}, nil, err
	}
	b, err := m.lookup(id)
	if err != nil {
		return View{}, nil, err
	}
	defer b.mu.Unlock()

	start := len(b.state.History)
	next, err := m.engine.SkipToResolution(b.state, b.src)
	if err != nil && !errors.Is(err, battle.ErrRunawayBattle) {
		return b.view(), nil, err
	}
	b.state = next
	evs := append([]battle.Event{}, next.History[start:]...)
	b.observe(evs)
	if err != nil {
		b.logger.Warn("fast-forward hit its resolution bound",
			zap.Int("round", next.Round),
			zap.Int("events", len(evs)),
		)
		return b.view(), evs, err
	}
	return b.view(), evs, nil
}

// Finish computes the rewards of a terminal battle, records it, and removes
// it. Rewards are computed exactly once: a second Finish fails with
// ErrUnknownBattle. A recording failure is logged and does not withhold the
// report.
//
// Postcondition: returns an error matching battle.ErrInvalidActionForState,
// leaving the battle live, if it has not ended.
func (m *Manager) Finish(ctx context.Context, id string) (battle.Report, error) {
	if err := ctx.Err(); err != nil {
		return battle.Report{}, err
	}
	b, err := m.lookup(id)
	if err != nil {
		return battle.Report{}, err
	}
	defer b.mu.Unlock()

	report, err := m.engine.ComputeRewards(b.state, b.profile, b.request, m.table, b.src)
	if err != nil {
		return battle.Report{}, err
	}
	m.close(b)

	b.logger.Info("battle finished",
		zap.String("outcome", string(report.Outcome)),
		zap.Int("rounds", report.Rounds),
		zap.Int("exp", report.ExpChange),
		zap.Int("currency", report.CurrencyChange),
		zap.Int("drops", len(report.Drops)),
	)

	if m.recorder != nil {
		rec := Record{
			ID:         b.id,
			PlayerName: b.profile.Name,
			EnemyName:  b.state.Enemy.Name,
			Request:    b.request,
			Seed:       b.src.Seed(),
			Draws:      b.src.Position(),
			Report:     report,
			History:    b.state.History,
			StartedAt:  b.startedAt,
			FinishedAt: m.now(),
		}
		if err := m.recorder.RecordBattle(ctx, rec); err != nil {
			b.logger.Error("recording battle failed", zap.Error(err))
		}
	}
	return report, nil
}

// Abandon drops a battle without computing rewards.
func (m *Manager) Abandon(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := m.lookup(id)
	if err != nil {
		return err
	}
	defer b.mu.Unlock()
	m.close(b)
	b.logger.Info("battle abandoned", zap.Int("round", b.state.Round))
	return nil
}

// Watch subscribes to the events of a live battle. The channel is closed when
// the battle ends its session or cancel is called. A watcher that falls behind
// by more than its buffer is dropped.
func (m *Manager) Watch(ctx context.Context, id string) (<-chan []battle.Event, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	b, err := m.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	defer b.mu.Unlock()

	f := NewFeed(id, m.feedBuf)
	b.feeds = append(b.feeds, f)
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.removeFeed(f)
		_ = f.Close()
	}
	return f.Events(), cancel, nil
}

// Active returns the number of live battles.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.battles)
}

// close removes b from the manager and closes its feeds.
// Precondition: b.mu is held.
func (m *Manager) close(b *Battle) {
	b.closed = true
	m.mu.Lock()
	delete(m.battles, b.id)
	m.mu.Unlock()
	for _, f := range b.feeds {
		_ = f.Close()
	}
	b.feeds = nil
}

// observe logs notable events and pushes evs to every watcher.
// Precondition: b.mu is held.
func (b *Battle) observe(evs []battle.Event) {
	for _, ev := range evs {
		switch ev.Kind {
		case battle.EventDeadlockRecovered:
			b.logger.Warn("turn deadlock recovered",
				zap.Int("round", ev.Round),
				zap.Int("player_max_actions", b.state.PlayerMaxActions),
			)
		case battle.EventBattleEnded, battle.EventFled:
			b.logger.Debug("battle resolved", zap.String("event", string(ev.Kind)), zap.Int("round", ev.Round))
		}
	}
	if len(evs) == 0 {
		return
	}
	for _, f := range append([]*Feed{}, b.feeds...) {
		if err := f.Push(evs); err != nil {
			b.logger.Warn("dropping slow watcher", zap.Error(err))
			b.removeFeed(f)
			_ = f.Close()
		}
	}
}

func (b *Battle) removeFeed(f *Feed) {
	for i, x := range b.feeds {
		if x == f {
			b.feeds = append(b.feeds[:i], b.feeds[i+1:]...)
			return
		}
	}
}
