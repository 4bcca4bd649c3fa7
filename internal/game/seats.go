package game

import (
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// SeatRegistry maps seat numbers 1..N to occupants and reservations, and
// derives the dealer, blind and turn order from who is seated.
//
// Reservation expiry runs on a clock timer. The timer callback and every
// seat operation share one mutex, and each reservation carries a token so
// a stale timer never clears a seat that has since been taken or
// re-reserved.
type SeatRegistry struct {
	mu     sync.Mutex
	clock  quartz.Clock
	logger zerolog.Logger

	seats       []seatState // index 0 is seat 1
	dealerIndex int
	nextToken   uint64
	onExpire    func(seat int, holder string)
}

type seatState struct {
	occupant    string
	reservation *reservation
}

type reservation struct {
	holder  string
	expires time.Time
	token   uint64
	timer   *quartz.Timer
}

// SeatInfo is a read-only view of one seat.
type SeatInfo struct {
	Number     int       `json:"number"`
	Occupant   string    `json:"occupant,omitempty"`
	ReservedBy string    `json:"reserved_by,omitempty"`
	ReservedTo time.Time `json:"reserved_until,omitzero"`
}

// NewSeatRegistry creates a registry with maxSeats empty seats. The dealer
// index starts before the first player so the first MoveDealer lands on 0.
func NewSeatRegistry(maxSeats int, clock quartz.Clock, logger zerolog.Logger) *SeatRegistry {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &SeatRegistry{
		clock:       clock,
		logger:      logger.With().Str("component", "seats").Logger(),
		seats:       make([]seatState, maxSeats),
		dealerIndex: -1,
	}
}

// MaxSeats returns the number of seats at the table.
func (r *SeatRegistry) MaxSeats() int {
	return len(r.seats)
}

// AssignSeat seats playerID. A seat of 0 means any: the lowest free,
// unreserved seat is taken. A reserved seat can only be taken by its holder.
func (r *SeatRegistry) AssignSeat(playerID string, seat int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current := r.seatOfLocked(playerID); current != 0 {
		return 0, newError(CodeSeatOccupied, "player %s already sits in seat %d", playerID, current)
	}

	if seat == 0 {
		for i := range r.seats {
			s := &r.seats[i]
			r.expireIfDueLocked(i)
			if s.occupant == "" && s.reservation == nil {
				s.occupant = playerID
				return i + 1, nil
			}
		}
		return 0, newError(CodeNoAvailableSeats, "all %d seats are taken or reserved", len(r.seats))
	}

	if seat < 1 || seat > len(r.seats) {
		return 0, newError(CodeInvalidSeat, "seat %d is outside 1..%d", seat, len(r.seats))
	}
	i := seat - 1
	s := &r.seats[i]
	if s.occupant != "" {
		return 0, newError(CodeSeatOccupied, "seat %d is occupied", seat)
	}
	r.expireIfDueLocked(i)
	if s.reservation != nil {
		if s.reservation.holder != playerID {
			return 0, newError(CodeSeatOccupied, "seat %d is reserved for %s", seat, s.reservation.holder)
		}
		r.clearReservationLocked(i)
	}
	s.occupant = playerID
	return seat, nil
}

// LeaveSeat vacates the player's seat and returns its number.
func (r *SeatRegistry) LeaveSeat(playerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seat := r.seatOfLocked(playerID)
	if seat == 0 {
		return 0, newError(CodePlayerNotSeated, "player %s is not seated", playerID)
	}
	r.seats[seat-1].occupant = ""
	return seat, nil
}

// ReserveSeat holds an empty seat for holderID until ttl elapses. Reserving
// again replaces the previous reservation and its timer.
func (r *SeatRegistry) ReserveSeat(seat int, holderID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if seat < 1 || seat > len(r.seats) {
		return newError(CodeInvalidSeat, "seat %d is outside 1..%d", seat, len(r.seats))
	}
	if ttl <= 0 {
		return newError(CodeInvalidAction, "reservation ttl must be positive")
	}
	i := seat - 1
	if r.seats[i].occupant != "" {
		return newError(CodeSeatOccupied, "seat %d is occupied", seat)
	}
	r.clearReservationLocked(i)

	r.nextToken++
	res := &reservation{
		holder:  holderID,
		expires: r.clock.Now().Add(ttl),
		token:   r.nextToken,
	}
	token := res.token
	res.timer = r.clock.AfterFunc(ttl, func() {
		r.expire(i, token)
	}, "SeatRegistry", "reservation")
	r.seats[i].reservation = res

	r.logger.Debug().
		Int("seat", seat).
		Str("holder", holderID).
		Dur("ttl", ttl).
		Msg("Seat reserved")
	return nil
}

// CancelReservation drops any reservation on seat.
func (r *SeatRegistry) CancelReservation(seat int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seat >= 1 && seat <= len(r.seats) {
		r.clearReservationLocked(seat - 1)
	}
}

// OnExpire sets a callback for reservations that lapse on their timer. It
// is called after the registry lock is released.
func (r *SeatRegistry) OnExpire(fn func(seat int, holder string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = fn
}

func (r *SeatRegistry) expire(i int, token uint64) {
	r.mu.Lock()
	res := r.seats[i].reservation
	if res == nil || res.token != token {
		r.mu.Unlock()
		return
	}
	r.seats[i].reservation = nil
	onExpire := r.onExpire
	r.mu.Unlock()

	r.logger.Debug().
		Int("seat", i+1).
		Str("holder", res.holder).
		Msg("Seat reservation expired")
	if onExpire != nil {
		onExpire(i+1, res.holder)
	}
}

// expireIfDueLocked drops a reservation whose deadline has passed even if
// its timer has not fired yet.
func (r *SeatRegistry) expireIfDueLocked(i int) {
	res := r.seats[i].reservation
	if res != nil && !res.expires.After(r.clock.Now()) {
		r.clearReservationLocked(i)
	}
}

func (r *SeatRegistry) clearReservationLocked(i int) {
	res := r.seats[i].reservation
	if res == nil {
		return
	}
	if res.timer != nil {
		res.timer.Stop()
	}
	r.seats[i].reservation = nil
}

func (r *SeatRegistry) seatOfLocked(playerID string) int {
	for i, s := range r.seats {
		if s.occupant == playerID {
			return i + 1
		}
	}
	return 0
}

// SeatOf returns the player's seat, or 0 when they are not seated.
func (r *SeatRegistry) SeatOf(playerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seatOfLocked(playerID)
}

// Reservation returns the holder of a live reservation on seat.
func (r *SeatRegistry) Reservation(seat int) (holder string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seat < 1 || seat > len(r.seats) {
		return "", false
	}
	r.expireIfDueLocked(seat - 1)
	if res := r.seats[seat-1].reservation; res != nil {
		return res.holder, true
	}
	return "", false
}

// Seats returns a view of every seat.
func (r *SeatRegistry) Seats() []SeatInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SeatInfo, len(r.seats))
	for i := range r.seats {
		r.expireIfDueLocked(i)
		s := r.seats[i]
		out[i] = SeatInfo{Number: i + 1, Occupant: s.occupant}
		if s.reservation != nil {
			out[i].ReservedBy = s.reservation.holder
			out[i].ReservedTo = s.reservation.expires
		}
	}
	return out
}

// DealerIndex is the button's position in the current turn order.
func (r *SeatRegistry) DealerIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dealerIndex
}

// SetDealerIndex restores the button position, e.g. from a snapshot.
func (r *SeatRegistry) SetDealerIndex(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dealerIndex = i
}

// CalculateTurnOrder returns the seated players ordered by seat number.
// Every other turn calculation works on this order.
func (r *SeatRegistry) CalculateTurnOrder(players []*Player) []*Player {
	ordered := make([]*Player, 0, len(players))
	for _, p := range players {
		if p != nil && p.Seat > 0 {
			ordered = append(ordered, p)
		}
	}
	slices.SortFunc(ordered, func(a, b *Player) int { return a.Seat - b.Seat })
	return ordered
}

// MoveDealer advances the button one position in turn order.
func (r *SeatRegistry) MoveDealer(players []*Player) (oldIndex, newIndex int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldIndex = r.dealerIndex
	n := len(players)
	if n == 0 {
		return oldIndex, oldIndex
	}
	r.dealerIndex = (r.dealerIndex + 1) % n
	if r.dealerIndex < 0 {
		r.dealerIndex += n
	}
	return oldIndex, r.dealerIndex
}

// MoveDealerPast gives the button to the first player seated after
// lastSeat, wrapping past the highest seat. players must be in turn order.
// Without a previous dealer seat it falls back to MoveDealer.
func (r *SeatRegistry) MoveDealerPast(players []*Player, lastSeat int) (oldIndex, newIndex int) {
	if lastSeat <= 0 {
		return r.MoveDealer(players)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	oldIndex = r.dealerIndex
	if len(players) == 0 {
		return oldIndex, oldIndex
	}
	r.dealerIndex = 0
	for i, p := range players {
		if p.Seat > lastSeat {
			r.dealerIndex = i
			break
		}
	}
	return oldIndex, r.dealerIndex
}

// Dealer returns the player holding the button.
func (r *SeatRegistry) Dealer(players []*Player) *Player {
	ordered := r.CalculateTurnOrder(players)
	if len(ordered) == 0 {
		return nil
	}
	return ordered[r.dealerPos(len(ordered))]
}

func (r *SeatRegistry) dealerPos(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.dealerIndex % n
	if d < 0 {
		d += n
	}
	return d
}

// GetBlindPositions returns the small and big blind. Heads-up the dealer
// posts the small blind; otherwise the blinds follow the button clockwise.
func (r *SeatRegistry) GetBlindPositions(players []*Player) (sb, bb *Player, err error) {
	ordered := r.CalculateTurnOrder(players)
	n := len(ordered)
	if n < 2 {
		return nil, nil, newError(CodeNotEnoughPlayersForBlinds, "need 2 players for blinds, have %d", n)
	}
	d := r.dealerPos(n)
	if n == 2 {
		return ordered[d], ordered[(d+1)%n], nil
	}
	return ordered[(d+1)%n], ordered[(d+2)%n], nil
}

// GetFirstToAct returns who opens the round. Preflop that is the first
// player after the big blind; after the flop it is the first player after
// the button. Players who cannot act (folded or all-in) are skipped.
func (r *SeatRegistry) GetFirstToAct(players []*Player, preflop bool) *Player {
	ordered := r.CalculateTurnOrder(players)
	n := len(ordered)
	if n == 0 {
		return nil
	}

	var from int
	if preflop {
		_, bb, err := r.GetBlindPositions(ordered)
		if err != nil {
			return nil
		}
		from = slices.Index(ordered, bb)
	} else {
		from = r.dealerPos(n)
	}

	for step := 1; step <= n; step++ {
		p := ordered[(from+step)%n]
		if p.CanAct() {
			return p
		}
	}
	return nil
}

// GetNextPlayer returns the next player clockwise of currentID who can
// still act, or nil once one or fewer players remain in the hand.
func (r *SeatRegistry) GetNextPlayer(currentID string, players []*Player) *Player {
	ordered := r.CalculateTurnOrder(players)
	active := 0
	from := -1
	for i, p := range ordered {
		if p.Active {
			active++
		}
		if p.ID == currentID {
			from = i
		}
	}
	if active <= 1 {
		return nil
	}
	n := len(ordered)
	if from < 0 {
		from = n - 1
	}
	for step := 1; step <= n; step++ {
		p := ordered[(from+step)%n]
		if p.ID != currentID && p.CanAct() {
			return p
		}
	}
	return nil
}

// IsMovingPastBlinds reports whether a player who just sat in seat would
// be dealt in before paying a big blind, given the last hand's dealer and
// big blind seats. It only handles the case where the big blind sits at a
// higher seat number than the dealer; a button that wraps past the
// highest seat is not detected.
func IsMovingPastBlinds(seat, dealerSeat, bigBlindSeat int) bool {
	if dealerSeat <= 0 || bigBlindSeat <= 0 {
		return false
	}
	return seat > dealerSeat && seat <= bigBlindSeat
}
