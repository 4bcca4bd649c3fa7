package server

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/holdemtable/internal/events"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/gameid"
	"github.com/lox/holdemtable/internal/store"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
)

// TableSummary holds lightweight metadata for clients.
type TableSummary struct {
	ID         string          `json:"id"`
	MaxSeats   int             `json:"max_seats"`
	Players    int             `json:"players"`
	HandNumber int             `json:"hand_number"`
	InHand     bool            `json:"in_hand"`
	BlindLevel game.BlindLevel `json:"blind_level"`
}

// managedTable pairs a table with its persistence bookkeeping. mu is held
// across a mutation and its persistence so snapshots are saved in order.
type managedTable struct {
	mu    sync.Mutex
	table *game.Table

	hand          int // hand number the recorded count refers to
	recorded      int // actions of that hand already appended to history
	announcedHand int // last hand a completion event was published for

	watchers map[int]chan struct{}
	nextID   int
}

// Manager hosts many independent tables. After every mutation it saves
// the table snapshot, appends new action records to history and publishes
// events.
type Manager struct {
	logger    zerolog.Logger
	snapshots store.Snapshots
	history   store.History
	publisher events.Publisher
	clock     quartz.Clock
	tableOpts []game.TableOption

	mu     sync.RWMutex
	tables map[string]*managedTable
}

// NewManager constructs an empty manager. Nil stores fall back to memory
// and a nil publisher discards events. opts are applied to every table.
func NewManager(logger zerolog.Logger, snapshots store.Snapshots, history store.History, publisher events.Publisher, clock quartz.Clock, opts ...game.TableOption) *Manager {
	if snapshots == nil {
		snapshots = store.NewMemorySnapshots()
	}
	if history == nil {
		history = store.NewMemoryHistory()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	m := &Manager{
		logger:    logger.With().Str("component", "manager").Logger(),
		snapshots: snapshots,
		history:   history,
		publisher: publisher,
		clock:     clock,
		tables:    make(map[string]*managedTable),
	}
	m.tableOpts = append([]game.TableOption{
		game.WithClock(clock),
		game.WithLogger(logger),
		game.WithReservationExpired(m.reservationExpired),
	}, opts...)
	return m
}

// reservationExpired saves and announces a seat freed by a lapsed
// reservation.
func (m *Manager) reservationExpired(tableID string, seat int, holder string) {
	ctx := context.Background()
	_, err := m.mutate(ctx, tableID, func(t *game.Table) (game.Snapshot, error) {
		snap := t.Snapshot()
		m.publish(ctx, m.logger, events.Event{Type: events.SeatChanged, TableID: tableID, Version: snap.Version, PlayerID: holder, Seat: seat})
		return snap, nil
	})
	if err != nil {
		m.logger.Debug().Err(err).Str("table_id", tableID).Int("seat", seat).Msg("Dropped reservation expiry")
	}
}

// Restore loads every saved table. Tables already hosted are skipped.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	ids, err := m.snapshots.List(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, id := range ids {
		if _, ok := m.lookup(id); ok {
			continue
		}
		snap, err := m.snapshots.Load(ctx, id)
		if err != nil {
			return restored, fmt.Errorf("load table %s: %w", id, err)
		}
		tbl, err := game.RestoreTable(snap, m.tableOpts...)
		if err != nil {
			return restored, fmt.Errorf("restore table %s: %w", id, err)
		}
		mt := &managedTable{table: tbl}
		if snap.Hand != nil {
			mt.hand = snap.Hand.Number
			mt.recorded = len(snap.Hand.Actions)
			if snap.Hand.Phase == game.Finished {
				mt.announcedHand = snap.Hand.Number
			}
		}
		m.mu.Lock()
		m.tables[id] = mt
		m.mu.Unlock()
		restored++
		m.logger.Info().Str("table_id", id).Int("hand", snap.HandNumber).Msg("Table restored")
	}
	return restored, nil
}

// CreateTable registers a new table. An empty id is generated.
func (m *Manager) CreateTable(ctx context.Context, id string, cfg game.TableConfig) (game.Snapshot, error) {
	if id == "" {
		id = gameid.NewTableID()
	}
	tbl, err := game.NewTable(id, cfg, m.tableOpts...)
	if err != nil {
		return game.Snapshot{}, err
	}

	m.mu.Lock()
	if _, ok := m.tables[id]; ok {
		m.mu.Unlock()
		return game.Snapshot{}, fmt.Errorf("%w: %s", ErrTableExists, id)
	}
	mt := &managedTable{table: tbl}
	m.tables[id] = mt
	m.mu.Unlock()

	m.logger.Info().Str("table_id", id).Int("max_seats", cfg.MaxSeats).Msg("Table created")

	mt.mu.Lock()
	defer mt.mu.Unlock()
	snap := tbl.Snapshot()
	m.persist(ctx, mt, snap)
	return snap, nil
}

// DeleteTable removes a table and its snapshot.
func (m *Manager) DeleteTable(ctx context.Context, id string) error {
	m.mu.Lock()
	mt, ok := m.tables[id]
	delete(m.tables, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}

	mt.mu.Lock()
	for wid, ch := range mt.watchers {
		close(ch)
		delete(mt.watchers, wid)
	}
	mt.mu.Unlock()

	if err := m.snapshots.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info().Str("table_id", id).Msg("Table deleted")
	return nil
}

func (m *Manager) lookup(id string) (*managedTable, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mt, ok := m.tables[id]
	return mt, ok
}

func (m *Manager) get(id string) (*managedTable, error) {
	mt, ok := m.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	return mt, nil
}

// Table returns the hosted table with id.
func (m *Manager) Table(id string) (*game.Table, bool) {
	mt, ok := m.lookup(id)
	if !ok {
		return nil, false
	}
	return mt.table, true
}

// ListTables returns a summary of every table, sorted by id.
func (m *Manager) ListTables() []TableSummary {
	m.mu.RLock()
	tables := make([]*game.Table, 0, len(m.tables))
	for _, mt := range m.tables {
		tables = append(tables, mt.table)
	}
	m.mu.RUnlock()

	summaries := make([]TableSummary, 0, len(tables))
	for _, t := range tables {
		s := t.Snapshot()
		summaries = append(summaries, TableSummary{
			ID:         s.TableID,
			MaxSeats:   s.Config.MaxSeats,
			Players:    len(s.Players),
			HandNumber: s.HandNumber,
			InHand:     s.Hand != nil && s.Hand.Phase.InProgress(),
			BlindLevel: s.BlindLevel,
		})
	}
	slices.SortFunc(summaries, func(a, b TableSummary) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return summaries
}

// mutate runs fn on the table and persists the snapshot it returns. A
// zero snapshot means nothing changed.
func (m *Manager) mutate(ctx context.Context, tableID string, fn func(*game.Table) (game.Snapshot, error)) (game.Snapshot, error) {
	mt, err := m.get(tableID)
	if err != nil {
		return game.Snapshot{}, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()

	snap, err := fn(mt.table)
	if snap.TableID != "" {
		m.persist(ctx, mt, snap)
	}
	return snap, err
}

// persist saves the snapshot, appends unrecorded actions and publishes
// events. Storage failures are logged; the table state stays authoritative.
func (m *Manager) persist(ctx context.Context, mt *managedTable, snap game.Snapshot) {
	log := m.logger.With().Str("table_id", snap.TableID).Int64("version", snap.Version).Logger()

	if err := m.snapshots.Save(ctx, snap); err != nil {
		log.Error().Err(err).Msg("Failed to save snapshot")
	}

	if h := snap.Hand; h != nil {
		if h.Number != mt.hand {
			mt.hand, mt.recorded = h.Number, 0
			m.publish(ctx, log, events.Event{
				Type:       events.HandStarted,
				TableID:    snap.TableID,
				HandNumber: h.Number,
				Version:    snap.Version,
				Phase:      h.Phase,
				Pot:        h.Pot,
			})
		}
		if mt.recorded < len(h.Actions) {
			fresh := h.Actions[mt.recorded:]
			if err := m.history.Append(ctx, fresh...); err != nil {
				log.Error().Err(err).Msg("Failed to append hand history")
			}
			mt.recorded = len(h.Actions)
			for i := range fresh {
				m.publish(ctx, log, events.Event{
					Type:       events.ActionTaken,
					TableID:    snap.TableID,
					HandNumber: h.Number,
					Version:    snap.Version,
					Action:     &fresh[i],
					Phase:      h.Phase,
					Pot:        h.Pot,
				})
			}
		}
		if h.Phase == game.Finished && mt.announcedHand != h.Number {
			mt.announcedHand = h.Number
			m.publish(ctx, log, events.Event{
				Type:       events.HandCompleted,
				TableID:    snap.TableID,
				HandNumber: h.Number,
				Version:    snap.Version,
				Phase:      h.Phase,
				Pot:        h.Pot,
				Winners:    h.Winners,
				Results:    h.Results,
			})
		}
	}

	for _, ch := range mt.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *Manager) publish(ctx context.Context, log zerolog.Logger, e events.Event) {
	e.Timestamp = m.clock.Now()
	if err := m.publisher.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", string(e.Type)).Msg("Failed to publish event")
	}
}

// Watch returns a channel that receives a signal after every persisted
// change to the table. The channel is closed when the table is deleted.
func (m *Manager) Watch(tableID string) (<-chan struct{}, func(), error) {
	mt, err := m.get(tableID)
	if err != nil {
		return nil, nil, err
	}
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.watchers == nil {
		mt.watchers = make(map[int]chan struct{})
	}
	id := mt.nextID
	mt.nextID++
	ch := make(chan struct{}, 1)
	mt.watchers[id] = ch

	cancel := func() {
		mt.mu.Lock()
		defer mt.mu.Unlock()
		if c, ok := mt.watchers[id]; ok {
			close(c)
			delete(mt.watchers, id)
		}
	}
	return ch, cancel, nil
}

func (m *Manager) SitDown(ctx context.Context, tableID, playerID string, seat, buyIn int) (game.Snapshot, error) {
	return m.mutate(ctx, tableID, func(t *game.Table) (game.Snapshot, error) {
		snap, err := t.SitDown(playerID, seat, buyIn)
		if err == nil {
			m.publish(ctx, m.logger, events.Event{Type: events.SeatChanged, TableID: tableID, Version: snap.Version, PlayerID: playerID, Seat: snap.Player(playerID).Seat})
		}
		return snap, err
	})
}

func (m *Manager) Leave(ctx context.Context, tableID, playerID string) (game.Snapshot, error) {
	return m.mutate(ctx, tableID, func(t *game.Table) (game.Snapshot, error) {
		snap, err := t.Leave(playerID)
		if err == nil {
			m.publish(ctx, m.logger, events.Event{Type: events.SeatChanged, TableID: tableID, Version: snap.Version, PlayerID: playerID})
		}
		return snap, err
	})
}

// ReserveSeat holds a seat for holderID. A ttl of 0 uses the table default.
func (m *Manager) ReserveSeat(ctx context.Context, tableID string, seat int, holderID string, ttl time.Duration) (game.Snapshot, error) {
	return m.mutate(ctx, tableID, func(t *game.Table) (game.Snapshot, error) {
		if err := t.ReserveSeat(seat, holderID, ttl); err != nil {
			return game.Snapshot{}, err
		}
		return t.Snapshot(), nil
	})
}

// StartHand applies any due blind level increase, then deals.
func (m *Manager) StartHand(ctx context.Context, tableID string) (game.Snapshot, error) {
	return m.mutate(ctx, tableID, func(t *game.Table) (game.Snapshot, error) {
		raised := t.CheckForLevelIncrease()
		if raised {
			level := t.BlindLevel()
			m.publish(ctx, m.logger, events.Event{Type: events.LevelChanged, TableID: tableID, Level: &level})
		}
		snap, err := t.StartHand()
		if err != nil && raised && snap.TableID == "" {
			// the level change still needs saving
			snap = t.Snapshot()
		}
		return snap, err
	})
}

func (m *Manager) Act(ctx context.Context, tableID, playerID string, action game.Action, amount int) (game.ActionRecord, game.Snapshot, error) {
	var rec game.ActionRecord
	snap, err := m.mutate(ctx, tableID, func(t *game.Table) (game.Snapshot, error) {
		var (
			snap game.Snapshot
			err  error
		)
		rec, snap, err = t.Act(playerID, action, amount)
		return snap, err
	})
	return rec, snap, err
}

func (m *Manager) ForceFold(ctx context.Context, tableID, playerID string) (game.ActionRecord, game.Snapshot, error) {
	var rec game.ActionRecord
	snap, err := m.mutate(ctx, tableID, func(t *game.Table) (game.Snapshot, error) {
		var (
			snap game.Snapshot
			err  error
		)
		rec, snap, err = t.ForceFold(playerID)
		return snap, err
	})
	return rec, snap, err
}

func (m *Manager) Advance(ctx context.Context, tableID string) (game.Snapshot, error) {
	return m.mutate(ctx, tableID, func(t *game.Table) (game.Snapshot, error) {
		return t.Advance()
	})
}

func (m *Manager) ValidActions(tableID, playerID string) ([]game.ValidAction, error) {
	mt, err := m.get(tableID)
	if err != nil {
		return nil, err
	}
	return mt.table.ValidActions(playerID)
}

// PublicSnapshot returns the table state as viewer may see it.
func (m *Manager) PublicSnapshot(tableID, viewer string) (game.Snapshot, error) {
	mt, err := m.get(tableID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return mt.table.PublicSnapshot(viewer), nil
}

// HandHistory returns the recorded actions of one hand.
func (m *Manager) HandHistory(ctx context.Context, tableID string, handNumber int) ([]game.ActionRecord, error) {
	if _, err := m.get(tableID); err != nil {
		return nil, err
	}
	return m.history.Hand(ctx, tableID, handNumber)
}

// Close releases the stores and the publisher.
func (m *Manager) Close() error {
	return errors.Join(m.publisher.Close(), m.history.Close(), m.snapshots.Close())
}
