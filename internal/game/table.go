package game

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/holdemtable/internal/randutil"
	"github.com/lox/holdemtable/poker"
)

// TableConfig holds the fixed settings of a table.
type TableConfig struct {
	MaxSeats       int           `json:"max_seats"`
	MinBuyIn       int           `json:"min_buy_in"`
	MaxBuyIn       int           `json:"max_buy_in,omitempty"` // 0 means no cap
	ReservationTTL time.Duration `json:"reservation_ttl"`
	Blinds         []BlindLevel  `json:"blinds"`
	StartLevel     int           `json:"start_level"`
}

// DefaultTableConfig returns a 9-seat 5/10 table.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		MaxSeats:       9,
		MinBuyIn:       200,
		MaxBuyIn:       2000,
		ReservationTTL: 2 * time.Minute,
		Blinds:         FixedBlinds(5, 10),
	}
}

// Validate checks the config for internal consistency.
func (c TableConfig) Validate() error {
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("max seats must be between 2 and 10, got %d", c.MaxSeats)
	}
	if c.MinBuyIn <= 0 {
		return fmt.Errorf("min buy-in must be positive")
	}
	if c.MaxBuyIn != 0 && c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("max buy-in %d is below min buy-in %d", c.MaxBuyIn, c.MinBuyIn)
	}
	if c.ReservationTTL < 0 {
		return fmt.Errorf("reservation ttl cannot be negative")
	}
	if len(c.Blinds) == 0 {
		return fmt.Errorf("at least one blind level is required")
	}
	return nil
}

// Table owns the seats, players and current hand of one table. Every
// method holds the table mutex for its whole duration, so actions on one
// table are applied one at a time and callers never observe a partly
// applied action. Separate tables share nothing.
type Table struct {
	mu sync.Mutex

	id       string
	cfg      TableConfig
	clock    quartz.Clock
	rng      *rand.Rand
	logger   zerolog.Logger
	seats    *SeatRegistry
	schedule *BlindSchedule

	players          map[string]*Player // seated players
	hand             *HandState
	handNumber       int
	lastDealerSeat   int
	lastBigBlindSeat int
	manualAdvance    bool
	version          int64

	newDeck func() *poker.Deck
}

// NewTable creates an empty table.
func NewTable(id string, cfg TableConfig, opts ...TableOption) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("table %s: %w", id, err)
	}

	o := &tableOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = quartz.NewReal()
	}
	if o.rng == nil {
		o.rng = randutil.NewSecure()
	}

	schedule := o.schedule
	if schedule == nil {
		var err error
		schedule, err = NewBlindSchedule(cfg.Blinds, cfg.StartLevel, o.clock)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", id, err)
		}
	}

	logger := o.logger.With().Str("component", "table").Str("table_id", id).Logger()
	t := &Table{
		id:            id,
		cfg:           cfg,
		clock:         o.clock,
		rng:           o.rng,
		logger:        logger,
		seats:         NewSeatRegistry(cfg.MaxSeats, o.clock, logger),
		schedule:      schedule,
		players:       make(map[string]*Player),
		manualAdvance: o.manualAdvance,
	}
	t.newDeck = func() *poker.Deck { return poker.NewDeck(t.rng) }
	t.seats.OnExpire(func(seat int, holder string) {
		t.mu.Lock()
		t.version++
		t.mu.Unlock()
		if o.onReservationExpired != nil {
			o.onReservationExpired(t.id, seat, holder)
		}
	})
	return t, nil
}

// ID returns the table identifier.
func (t *Table) ID() string {
	return t.id
}

// Config returns the table settings.
func (t *Table) Config() TableConfig {
	return t.cfg
}

// SitDown seats a player with a buy-in. A seat of 0 takes the lowest free
// seat. Players who sit down after the first hand are marked new to the
// table and may sit out a hand rather than skip the big blind.
func (t *Table) SitDown(playerID string, seat, buyIn int) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if playerID == "" {
		return Snapshot{}, newError(CodeInvalidAction, "player id is required")
	}
	if buyIn < t.cfg.MinBuyIn {
		return Snapshot{}, newError(CodeInsufficientChips, "buy-in %d is below the minimum of %d", buyIn, t.cfg.MinBuyIn)
	}
	if t.cfg.MaxBuyIn > 0 && buyIn > t.cfg.MaxBuyIn {
		return Snapshot{}, newError(CodeInvalidAction, "buy-in %d is above the maximum of %d", buyIn, t.cfg.MaxBuyIn)
	}

	assigned, err := t.seats.AssignSeat(playerID, seat)
	if err != nil {
		return Snapshot{}, err
	}
	t.players[playerID] = &Player{
		ID:         playerID,
		Seat:       assigned,
		Chips:      buyIn,
		NewToTable: t.handNumber > 0,
	}
	t.version++

	t.logger.Info().
		Str("player", playerID).
		Int("seat", assigned).
		Int("buy_in", buyIn).
		Msg("Player seated")
	return t.snapshotLocked(), nil
}

// Leave vacates the player's seat. A player still live in the current hand
// is folded first; their chips already in the pot stay there.
func (t *Table) Leave(playerID string) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.players[playerID]
	if !ok {
		return Snapshot{}, newError(CodePlayerNotSeated, "player %s is not seated", playerID)
	}
	if t.hand != nil && t.hand.Phase.InProgress() && p.Active {
		if _, err := t.hand.forceFold(playerID); err != nil {
			return Snapshot{}, err
		}
	}
	if _, err := t.seats.LeaveSeat(playerID); err != nil {
		return Snapshot{}, err
	}
	delete(t.players, playerID)
	t.version++

	t.logger.Info().
		Str("player", playerID).
		Int("seat", p.Seat).
		Int("chips", p.Chips).
		Msg("Player left")
	return t.snapshotLocked(), nil
}

// ReserveSeat holds an empty seat for holderID.
func (t *Table) ReserveSeat(seat int, holderID string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = t.cfg.ReservationTTL
	}
	if err := t.seats.ReserveSeat(seat, holderID, ttl); err != nil {
		return err
	}
	t.mu.Lock()
	t.version++
	t.mu.Unlock()
	return nil
}

// StartHand deals a new hand to every seated player with chips.
func (t *Table) StartHand() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hand != nil && t.hand.Phase.InProgress() {
		return Snapshot{}, newError(CodeInvalidAction, "hand %d is still in progress", t.hand.Number)
	}

	var seated []*Player
	for _, p := range t.players {
		seated = append(seated, p)
	}
	seated = t.seats.CalculateTurnOrder(seated)

	var eligible, participants []*Player
	for _, p := range seated {
		if p.Chips <= 0 {
			continue
		}
		eligible = append(eligible, p)
		if p.NewToTable && IsMovingPastBlinds(p.Seat, t.lastDealerSeat, t.lastBigBlindSeat) {
			t.logger.Debug().Str("player", p.ID).Int("seat", p.Seat).Msg("New player waits for the big blind")
			continue
		}
		participants = append(participants, p)
	}
	if len(eligible) < 2 {
		return Snapshot{}, newError(CodeNotEnoughPlayers, "need 2 players with chips, have %d", len(eligible))
	}
	if len(participants) < 2 {
		participants = eligible
	}

	for _, p := range seated {
		p.resetForHand()
	}
	for _, p := range participants {
		p.Active = true
		p.NewToTable = false
	}

	t.seats.MoveDealerPast(participants, t.lastDealerSeat)
	dealer := t.seats.Dealer(participants)
	sb, bb, err := t.seats.GetBlindPositions(participants)
	if err != nil {
		return Snapshot{}, err
	}

	t.handNumber++
	h := &HandState{
		TableID:       t.id,
		Number:        t.handNumber,
		Players:       participants,
		deck:          t.newDeck(),
		seats:         t.seats,
		clock:         t.clock,
		logger:        t.logger,
		manualAdvance: t.manualAdvance,
	}
	t.hand = h
	t.lastDealerSeat, t.lastBigBlindSeat = dealer.Seat, bb.Seat
	t.version++

	if err := h.start(dealer, sb, bb, t.schedule.CurrentLevel()); err != nil {
		h.abort()
		return t.snapshotLocked(), err
	}
	if err := h.checkConservation(); err != nil {
		return t.snapshotLocked(), err
	}
	return t.snapshotLocked(), nil
}

// Act applies a player action. On error nothing has changed, except for a
// chip conservation failure which aborts the hand.
func (t *Table) Act(playerID string, action Action, amount int) (ActionRecord, Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hand == nil {
		return ActionRecord{}, Snapshot{}, newError(CodeGameNotStarted, "no hand has been dealt")
	}
	rec, err := t.hand.apply(playerID, action, amount)
	if err != nil {
		return rec, t.failedLocked(err), err
	}
	t.version++
	return rec, t.snapshotLocked(), nil
}

// failedLocked is the snapshot to hand back with an action error. Only a
// chip conservation failure changes state, by aborting the hand; that state
// has to be saved like any other.
func (t *Table) failedLocked(err error) Snapshot {
	if CodeOf(err) != CodeChipConservation {
		return Snapshot{}
	}
	t.version++
	return t.snapshotLocked()
}

// Bet opens the betting, to a round total of amount.
func (t *Table) Bet(playerID string, amount int) (ActionRecord, Snapshot, error) {
	return t.Act(playerID, Bet, amount)
}

// Raise raises to a round total of amount.
func (t *Table) Raise(playerID string, amount int) (ActionRecord, Snapshot, error) {
	return t.Act(playerID, Raise, amount)
}

func (t *Table) Call(playerID string) (ActionRecord, Snapshot, error) {
	return t.Act(playerID, Call, 0)
}

func (t *Table) Check(playerID string) (ActionRecord, Snapshot, error) {
	return t.Act(playerID, Check, 0)
}

func (t *Table) Fold(playerID string) (ActionRecord, Snapshot, error) {
	return t.Act(playerID, Fold, 0)
}

func (t *Table) AllIn(playerID string) (ActionRecord, Snapshot, error) {
	return t.Act(playerID, AllIn, 0)
}

// ForceFold folds a stalled or disconnected player out of turn.
func (t *Table) ForceFold(playerID string) (ActionRecord, Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hand == nil {
		return ActionRecord{}, Snapshot{}, newError(CodeGameNotStarted, "no hand has been dealt")
	}
	rec, err := t.hand.forceFold(playerID)
	if err != nil {
		return rec, t.failedLocked(err), err
	}
	t.version++
	t.logger.Info().Str("player", playerID).Int("hand", t.hand.Number).Msg("Player force-folded")
	return rec, t.snapshotLocked(), nil
}

// Advance deals the next street once the betting round is complete. Only
// needed for tables created WithManualAdvance.
func (t *Table) Advance() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hand == nil {
		return Snapshot{}, newError(CodeGameNotStarted, "no hand has been dealt")
	}
	if err := t.hand.advance(); err != nil {
		return t.failedLocked(err), err
	}
	t.version++
	return t.snapshotLocked(), nil
}

// ValidActions lists the legal actions for the player to act.
func (t *Table) ValidActions(playerID string) ([]ValidAction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hand == nil {
		return nil, newError(CodeGameNotStarted, "no hand has been dealt")
	}
	return t.hand.validActions(playerID)
}

// CheckForLevelIncrease advances the blind level if its time is up. It
// only takes effect between hands, so the blinds of a hand never change
// mid-hand.
func (t *Table) CheckForLevelIncrease() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hand != nil && t.hand.Phase.InProgress() {
		return false
	}
	if !t.schedule.CheckForLevelIncrease() {
		return false
	}
	t.version++
	level := t.schedule.CurrentLevel()
	t.logger.Info().
		Int("level", level.Level).
		Int("small_blind", level.SmallBlind).
		Int("big_blind", level.BigBlind).
		Int("ante", level.Ante).
		Msg("Blind level increased")
	return true
}

// BlindLevel returns the active blind level.
func (t *Table) BlindLevel() BlindLevel {
	return t.schedule.CurrentLevel()
}

// BlindTimeRemaining is how long the active blind level has left.
func (t *Table) BlindTimeRemaining() time.Duration {
	return t.schedule.TimeRemaining()
}

// InHand reports whether a hand is being played.
func (t *Table) InHand() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hand != nil && t.hand.Phase.InProgress()
}

// chipsLocked is the total of every stack at the table plus the pot.
func (t *Table) chipsLocked() int {
	total := 0
	for _, p := range t.players {
		total += p.Chips
	}
	if t.hand != nil {
		total += t.hand.Pot
		for _, p := range t.hand.Players {
			if t.players[p.ID] != p {
				total += p.Chips
			}
		}
	}
	return total
}

// TotalChips returns every chip on the table, in stacks or in the pot.
func (t *Table) TotalChips() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.chipsLocked()
}
