package game

import (
	"fmt"
	"slices"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/holdemtable/poker"
)

// ShowdownResult is one player's reveal at showdown.
type ShowdownResult struct {
	PlayerID  string             `json:"player_id"`
	HoleCards []poker.Card       `json:"hole_cards"`
	Hand      poker.DetailedHand `json:"hand"`
	WinAmount int                `json:"win_amount"`
}

// ActionRecord is a single line of hand history.
type ActionRecord struct {
	TableID    string    `json:"table_id"`
	HandNumber int       `json:"hand_number"`
	PlayerID   string    `json:"player_id"`
	Action     Action    `json:"action"`
	Amount     int       `json:"amount"`      // chips moved by this action
	RoundTotal int       `json:"round_total"` // player's bet this round afterwards
	Phase      Phase     `json:"phase"`
	Timestamp  time.Time `json:"timestamp"`
}

// HandState is one hand's mutable state. Players holds every participant
// in seat order for the whole hand, folded or not, so chip totals always
// reconcile.
type HandState struct {
	TableID string `json:"table_id"`
	Number  int    `json:"number"`
	Phase   Phase  `json:"phase"`

	Players   []*Player    `json:"players"`
	Community []poker.Card `json:"community"`
	Burned    []poker.Card `json:"burned"`

	Pot        int `json:"pot"`
	CurrentBet int `json:"current_bet"`
	MinRaise   int `json:"min_raise"`
	BigBlind   int `json:"big_blind"`
	SmallBlind int `json:"small_blind"`
	Ante       int `json:"ante,omitempty"`

	CurrentPlayer  string          `json:"current_player,omitempty"`
	DealerSeat     int             `json:"dealer_seat"`
	SmallBlindSeat int             `json:"small_blind_seat"`
	BigBlindSeat   int             `json:"big_blind_seat"`
	Acted          map[string]bool `json:"acted"`
	Voluntary      bool            `json:"voluntary"` // any player action this round, blinds excluded
	AllInOccurred  bool            `json:"all_in_occurred"`

	SidePots []SidePot        `json:"side_pots,omitempty"`
	Winners  []string         `json:"winners,omitempty"`
	Results  []ShowdownResult `json:"results,omitempty"`
	Aborted  bool             `json:"aborted,omitempty"`

	ChipTotal int            `json:"chip_total"`
	Actions   []ActionRecord `json:"actions"`
	Deck      []poker.Card   `json:"deck,omitempty"` // undealt cards, filled in snapshots only

	deck          *poker.Deck
	seats         *SeatRegistry
	clock         quartz.Clock
	logger        zerolog.Logger
	manualAdvance bool
}

func (h *HandState) player(id string) *Player {
	for _, p := range h.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (h *HandState) activePlayers() []*Player {
	var out []*Player
	for _, p := range h.Players {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

func (h *HandState) playersWhoCanAct() []*Player {
	var out []*Player
	for _, p := range h.Players {
		if p.CanAct() {
			out = append(out, p)
		}
	}
	return out
}

// fromButton orders players clockwise starting left of the dealer.
func (h *HandState) fromButton(players []*Player) []*Player {
	ordered := slices.Clone(players)
	slices.SortFunc(ordered, func(a, b *Player) int { return a.Seat - b.Seat })
	split := slices.IndexFunc(ordered, func(p *Player) bool { return p.Seat > h.DealerSeat })
	if split <= 0 {
		return ordered
	}
	return slices.Concat(ordered[split:], ordered[:split])
}

func (h *HandState) record(p *Player, action Action, amount int) ActionRecord {
	rec := ActionRecord{
		TableID:    h.TableID,
		HandNumber: h.Number,
		PlayerID:   p.ID,
		Action:     action,
		Amount:     amount,
		RoundTotal: p.Bet,
		Phase:      h.Phase,
		Timestamp:  h.clock.Now(),
	}
	h.Actions = append(h.Actions, rec)
	return rec
}

// start deals hole cards, posts antes and blinds and hands the action to
// the first player. Participants must already be reset and active.
func (h *HandState) start(dealer, sb, bb *Player, level BlindLevel) error {
	h.Phase = Preflop
	h.Acted = map[string]bool{}
	h.DealerSeat, h.SmallBlindSeat, h.BigBlindSeat = dealer.Seat, sb.Seat, bb.Seat
	h.SmallBlind, h.BigBlind, h.Ante = level.SmallBlind, level.BigBlind, level.Ante
	dealer.Dealer, sb.SmallBlind, bb.BigBlind = true, true, true

	for _, p := range h.Players {
		h.ChipTotal += p.Chips
	}

	order := h.fromButton(h.Players)
	for round := 0; round < 2; round++ {
		for _, p := range order {
			cards, err := h.deck.Deal(1)
			if err != nil {
				return fmt.Errorf("dealing hole cards: %w", err)
			}
			p.HoleCards = append(p.HoleCards, cards...)
		}
	}

	if level.Ante > 0 {
		for _, p := range order {
			ante := min(level.Ante, p.Chips)
			if ante == 0 {
				continue
			}
			p.Chips -= ante
			p.TotalBet += ante
			h.Pot += ante
			if p.Chips == 0 {
				p.AllIn = true
			}
			h.record(p, PostAnte, ante)
		}
	}

	h.Pot += sb.commit(level.SmallBlind)
	h.record(sb, PostSmallBlind, sb.Bet)
	h.Pot += bb.commit(level.BigBlind)
	h.record(bb, PostBigBlind, bb.Bet)

	h.CurrentBet = max(level.BigBlind, sb.Bet)
	h.MinRaise = level.BigBlind
	for _, p := range h.Players {
		if p.AllIn {
			h.AllInOccurred = true
		}
	}

	h.logger.Info().
		Int("hand", h.Number).
		Int("players", len(h.Players)).
		Int("dealer_seat", h.DealerSeat).
		Int("small_blind", level.SmallBlind).
		Int("big_blind", level.BigBlind).
		Msg("Hand started")

	return h.progress("")
}

// stateError maps a hand that is not taking actions to the right error.
func (h *HandState) stateError() error {
	switch {
	case h.Phase == Waiting:
		return newError(CodeGameNotStarted, "no hand in progress")
	case h.Phase == Finished || h.Phase == Showdown:
		return newError(CodeHandAlreadyComplete, "hand %d is complete", h.Number)
	}
	return nil
}

// apply validates and then applies a player action, cascading into phase
// advances and showdown. Nothing changes when a validation error is returned.
func (h *HandState) apply(playerID string, action Action, amount int) (ActionRecord, error) {
	if err := h.stateError(); err != nil {
		return ActionRecord{}, err
	}
	p := h.player(playerID)
	if p == nil {
		return ActionRecord{}, newError(CodePlayerNotSeated, "player %s is not in hand %d", playerID, h.Number)
	}
	if !p.Active {
		return ActionRecord{}, newError(CodePlayerInactive, "player %s has folded", playerID)
	}
	if h.CurrentPlayer != playerID {
		if h.CurrentPlayer == "" {
			return ActionRecord{}, newError(CodeNotPlayersTurn, "betting round is complete, waiting for advance")
		}
		return ActionRecord{}, newError(CodeNotPlayersTurn, "waiting on %s", h.CurrentPlayer)
	}

	w, err := validateAction(p, action, amount, h.CurrentBet, h.MinRaise, !h.Acted[p.ID])
	if err != nil {
		return ActionRecord{}, err
	}

	rec := h.applyWager(p, w)
	if err := h.progress(p.ID); err != nil {
		return rec, err
	}
	return rec, h.checkConservation()
}

func (h *HandState) applyWager(p *Player, w wager) ActionRecord {
	if w.action == Fold {
		p.Active = false
	} else {
		h.Pot += p.commit(w.chips)
		if p.AllIn {
			h.AllInOccurred = true
		}
		if p.Bet > h.CurrentBet {
			raiseBy := p.Bet - h.CurrentBet
			if raiseBy >= h.MinRaise {
				// a full raise reopens the betting
				h.MinRaise = raiseBy
				clear(h.Acted)
			}
			h.CurrentBet = p.Bet
		}
	}
	p.LastAction = w.action
	h.Acted[p.ID] = true
	h.Voluntary = true
	return h.record(p, w.action, w.chips)
}

// forceFold folds a player whether or not it is their turn.
func (h *HandState) forceFold(playerID string) (ActionRecord, error) {
	if err := h.stateError(); err != nil {
		return ActionRecord{}, err
	}
	p := h.player(playerID)
	if p == nil {
		return ActionRecord{}, newError(CodePlayerNotSeated, "player %s is not in hand %d", playerID, h.Number)
	}
	if !p.Active {
		return ActionRecord{}, newError(CodePlayerInactive, "player %s has folded", playerID)
	}

	onTurn := h.CurrentPlayer == playerID
	p.Active = false
	p.LastAction = Fold
	rec := h.record(p, Fold, 0)

	from := ""
	if onTurn {
		from = playerID
	}
	if err := h.progress(from); err != nil {
		return rec, err
	}
	return rec, h.checkConservation()
}

// bettingRoundComplete reports whether the phase may advance.
func (h *HandState) bettingRoundComplete() bool {
	if len(h.activePlayers()) <= 1 {
		return true
	}
	canAct := h.playersWhoCanAct()
	switch len(canAct) {
	case 0:
		return true
	case 1:
		// the last player with chips only answers chips above their own
		// bet. CurrentBet can be the nominal big blind when the blind was
		// posted short, so it is not the amount to match here.
		last, top := canAct[0], 0
		for _, p := range h.activePlayers() {
			if p != last {
				top = max(top, p.Bet)
			}
		}
		return last.Bet >= top
	}
	for _, p := range canAct {
		if p.Bet != h.CurrentBet || !h.Acted[p.ID] {
			return false
		}
	}
	if h.Phase == Preflop && len(h.Players) == 2 && !h.Voluntary {
		return false
	}
	return true
}

// progress moves the hand forward after anything that changes who can act.
// lastActor is the player who just acted, or empty when the turn should
// stay where it is.
func (h *HandState) progress(lastActor string) error {
	for h.Phase.InProgress() {
		if len(h.activePlayers()) <= 1 {
			h.finishUncontested()
			return nil
		}

		if !h.bettingRoundComplete() {
			h.passTurn(lastActor)
			return nil
		}

		if h.manualAdvance {
			h.CurrentPlayer = ""
			return nil
		}
		if err := h.advancePhase(); err != nil {
			return err
		}
		lastActor = ""
	}
	return nil
}

func (h *HandState) passTurn(lastActor string) {
	if lastActor == "" {
		if cur := h.player(h.CurrentPlayer); cur != nil && cur.CanAct() {
			return
		}
		if next := h.seats.GetFirstToAct(h.Players, h.Phase == Preflop); next != nil {
			h.CurrentPlayer = next.ID
			return
		}
		h.CurrentPlayer = ""
		return
	}
	if next := h.seats.GetNextPlayer(lastActor, h.Players); next != nil {
		h.CurrentPlayer = next.ID
		return
	}
	h.CurrentPlayer = ""
}

// advance is the explicit phase advance used by hosts that drive streets
// themselves.
func (h *HandState) advance() error {
	if err := h.stateError(); err != nil {
		return err
	}
	if !h.bettingRoundComplete() {
		return newError(CodeBettingRoundIncomplete, "%s betting is still open, waiting on %s", h.Phase, h.CurrentPlayer)
	}
	if len(h.activePlayers()) > 1 {
		if err := h.advancePhase(); err != nil {
			return err
		}
	}
	if err := h.progress(""); err != nil {
		return err
	}
	return h.checkConservation()
}

func (h *HandState) advancePhase() error {
	var deal int
	switch h.Phase {
	case Preflop:
		deal = 3
	case Flop, Turn:
		deal = 1
	case River:
		return h.showdown()
	default:
		return h.stateError()
	}

	burn, err := h.deck.Burn()
	if err != nil {
		return fmt.Errorf("burning before %s: %w", h.Phase+1, err)
	}
	cards, err := h.deck.Deal(deal)
	if err != nil {
		return fmt.Errorf("dealing %s: %w", h.Phase+1, err)
	}
	h.Burned = append(h.Burned, burn)
	h.Community = append(h.Community, cards...)
	h.Phase++

	for _, p := range h.Players {
		p.Bet = 0
	}
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind
	clear(h.Acted)
	h.Voluntary = false
	h.CurrentPlayer = ""
	if first := h.seats.GetFirstToAct(h.Players, false); first != nil {
		h.CurrentPlayer = first.ID
	}

	h.logger.Debug().
		Int("hand", h.Number).
		Stringer("phase", h.Phase).
		Str("board", poker.FormatCards(h.Community)).
		Int("pot", h.Pot).
		Msg("Phase advanced")
	return nil
}

func (h *HandState) finishUncontested() {
	active := h.activePlayers()
	h.Phase = Finished
	h.CurrentPlayer = ""
	if len(active) != 1 {
		return
	}
	winner := active[0]
	winner.Chips += h.Pot
	h.Winners = []string{winner.ID}

	h.logger.Info().
		Int("hand", h.Number).
		Str("winner", winner.ID).
		Int("pot", h.Pot).
		Msg("Hand won uncontested")
	h.Pot = 0
}

func (h *HandState) showdown() error {
	h.Phase = Showdown
	h.CurrentPlayer = ""

	contenders := h.fromButton(h.activePlayers())
	results := make([]poker.HandResult, 0, len(contenders))
	for _, p := range contenders {
		hand, err := poker.Evaluate(p.HoleCards, h.Community)
		if err != nil {
			return fmt.Errorf("evaluating %s: %w", p.ID, err)
		}
		results = append(results, poker.HandResult{PlayerID: p.ID, Hand: hand})
	}

	var pots []SidePot
	if h.AllInOccurred {
		contribs := make([]Contribution, 0, len(h.Players))
		for _, p := range h.Players {
			contribs = append(contribs, Contribution{PlayerID: p.ID, Amount: p.TotalBet, AllIn: p.AllIn, Active: p.Active})
		}
		pots = BuildPots(contribs)
	} else {
		eligible := make([]string, 0, len(contenders))
		for _, p := range contenders {
			eligible = append(eligible, p.ID)
		}
		pots = []SidePot{{Amount: h.Pot, Eligible: eligible}}
	}

	payouts := Distribute(pots, results)
	h.Results = make([]ShowdownResult, 0, len(payouts))
	h.Winners = nil
	paid := 0
	for i, pay := range payouts {
		p := h.player(pay.PlayerID)
		p.Chips += pay.Amount
		paid += pay.Amount
		h.Results = append(h.Results, ShowdownResult{
			PlayerID:  p.ID,
			HoleCards: slices.Clone(p.HoleCards),
			Hand:      results[i].Hand,
			WinAmount: pay.Amount,
		})
		if pay.Amount > 0 {
			h.Winners = append(h.Winners, p.ID)
		}
	}
	if h.AllInOccurred {
		h.SidePots = pots
	}
	h.Pot -= paid
	h.Phase = Finished

	h.logger.Info().
		Int("hand", h.Number).
		Strs("winners", h.Winners).
		Int("paid", paid).
		Str("board", poker.FormatCards(h.Community)).
		Msg("Showdown complete")
	return nil
}

// checkConservation verifies no chips were created or destroyed. On a
// mismatch the hand is aborted and every contribution refunded.
func (h *HandState) checkConservation() error {
	total := h.Pot
	for _, p := range h.Players {
		total += p.Chips
	}
	if total == h.ChipTotal {
		return nil
	}

	h.logger.Error().
		Int("hand", h.Number).
		Int("expected", h.ChipTotal).
		Int("actual", total).
		Int("pot", h.Pot).
		Msg("Chip conservation violated, aborting hand")
	h.abort()
	return newError(CodeChipConservation, "hand %d: expected %d chips, found %d", h.Number, h.ChipTotal, total)
}

func (h *HandState) abort() {
	if h.Phase != Finished {
		for _, p := range h.Players {
			p.Chips += p.TotalBet
		}
	}
	h.Pot = 0
	h.Phase = Finished
	h.CurrentPlayer = ""
	h.Aborted = true
}

// validActions is what the player to act may do.
func (h *HandState) validActions(playerID string) ([]ValidAction, error) {
	if err := h.stateError(); err != nil {
		return nil, err
	}
	p := h.player(playerID)
	if p == nil {
		return nil, newError(CodePlayerNotSeated, "player %s is not in hand %d", playerID, h.Number)
	}
	if !p.Active {
		return nil, newError(CodePlayerInactive, "player %s has folded", playerID)
	}
	if h.CurrentPlayer != playerID {
		return nil, newError(CodeNotPlayersTurn, "waiting on %s", h.CurrentPlayer)
	}
	return validActions(p, h.CurrentBet, h.MinRaise, !h.Acted[p.ID]), nil
}

// clone deep-copies the hand for a snapshot, including the undealt deck.
func (h *HandState) clone() *HandState {
	cp := &HandState{
		TableID:        h.TableID,
		Number:         h.Number,
		Phase:          h.Phase,
		Community:      slices.Clone(h.Community),
		Burned:         slices.Clone(h.Burned),
		Pot:            h.Pot,
		CurrentBet:     h.CurrentBet,
		MinRaise:       h.MinRaise,
		BigBlind:       h.BigBlind,
		SmallBlind:     h.SmallBlind,
		Ante:           h.Ante,
		CurrentPlayer:  h.CurrentPlayer,
		DealerSeat:     h.DealerSeat,
		SmallBlindSeat: h.SmallBlindSeat,
		BigBlindSeat:   h.BigBlindSeat,
		Acted:          make(map[string]bool, len(h.Acted)),
		Voluntary:      h.Voluntary,
		AllInOccurred:  h.AllInOccurred,
		Winners:        slices.Clone(h.Winners),
		Aborted:        h.Aborted,
		ChipTotal:      h.ChipTotal,
		Actions:        slices.Clone(h.Actions),
	}
	for id, v := range h.Acted {
		cp.Acted[id] = v
	}
	for _, p := range h.Players {
		cp.Players = append(cp.Players, p.clone())
	}
	for _, sp := range h.SidePots {
		cp.SidePots = append(cp.SidePots, SidePot{
			Amount:   sp.Amount,
			Eligible: slices.Clone(sp.Eligible),
			Winners:  slices.Clone(sp.Winners),
		})
	}
	for _, r := range h.Results {
		r.HoleCards = slices.Clone(r.HoleCards)
		cp.Results = append(cp.Results, r)
	}
	if h.deck != nil && h.Phase.InProgress() {
		cp.Deck = h.deck.Undealt()
	}
	return cp
}
