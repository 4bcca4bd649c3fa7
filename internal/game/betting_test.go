package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAction(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		chips, bet int
		action     Action
		amount     int
		currentBet int
		closed     bool // already acted, betting not reopened
		wantAction Action
		wantChips  int
		wantCode   ErrorCode
	}{
		{name: "check with nothing to call", chips: 100, action: Check, wantAction: Check},
		{name: "check facing a bet", chips: 100, action: Check, currentBet: 10, wantCode: CodeBelowMinimumCall},
		{name: "call", chips: 100, bet: 5, action: Call, currentBet: 10, wantAction: Call, wantChips: 5},
		{name: "call with nothing owed is a check", chips: 100, bet: 10, action: Call, currentBet: 10, wantAction: Check},
		{name: "short call becomes all-in", chips: 30, action: Call, currentBet: 50, wantAction: AllIn, wantChips: 30},
		{name: "bet opens", chips: 100, action: Bet, amount: 20, wantAction: Bet, wantChips: 20},
		{name: "raise to", chips: 100, bet: 10, action: Raise, amount: 30, currentBet: 10, wantAction: Raise, wantChips: 20},
		{name: "raise below minimum", chips: 100, bet: 10, action: Raise, amount: 15, currentBet: 10, wantCode: CodeBelowMinimumRaise},
		{name: "raise not above current bet", chips: 100, action: Raise, amount: 10, currentBet: 10, wantCode: CodeBelowMinimumCall},
		{name: "raise beyond stack", chips: 100, action: Raise, amount: 500, currentBet: 10, wantCode: CodeInsufficientChips},
		{name: "raise for whole stack below minimum is all-in", chips: 15, action: Raise, amount: 15, currentBet: 10, wantAction: AllIn, wantChips: 15},
		{name: "all-in", chips: 80, bet: 20, action: AllIn, currentBet: 20, wantAction: AllIn, wantChips: 80},
		{name: "fold", chips: 80, action: Fold, currentBet: 20, wantAction: Fold},
		{name: "unknown", chips: 80, action: "dance", wantCode: CodeInvalidAction},
		{name: "closed call", chips: 80, bet: 20, action: Call, currentBet: 25, closed: true, wantAction: Call, wantChips: 5},
		{name: "closed raise", chips: 80, bet: 20, action: Raise, amount: 50, currentBet: 25, closed: true, wantCode: CodeBelowMinimumRaise},
		{name: "closed all-in above the bet", chips: 80, bet: 20, action: AllIn, currentBet: 25, closed: true, wantCode: CodeBelowMinimumRaise},
		{name: "closed raise for whole stack", chips: 80, bet: 20, action: Raise, amount: 100, currentBet: 25, closed: true, wantCode: CodeBelowMinimumRaise},
		{name: "closed all-in that only calls", chips: 3, bet: 20, action: AllIn, currentBet: 25, closed: true, wantAction: AllIn, wantChips: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := &Player{ID: "p", Chips: tc.chips, Bet: tc.bet, Active: true}
			w, err := validateAction(p, tc.action, tc.amount, tc.currentBet, 10, !tc.closed)
			if tc.wantCode != "" {
				requireCode(t, err, tc.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAction, w.action)
			assert.Equal(t, tc.wantChips, w.chips)
			assert.Equal(t, tc.chips, p.Chips, "validation must not mutate")
		})
	}
}

func TestValidActions(t *testing.T) {
	t.Parallel()

	p := &Player{ID: "sb", Chips: 995, Bet: 5, Active: true}
	assert.Equal(t, []ValidAction{
		{Action: Fold},
		{Action: Call, MinAmount: 10, MaxAmount: 10},
		{Action: Raise, MinAmount: 20, MaxAmount: 1000},
		{Action: AllIn, MinAmount: 1000, MaxAmount: 1000},
	}, validActions(p, 10, 10, true))

	p = &Player{ID: "bb", Chips: 990, Bet: 10, Active: true}
	assert.Equal(t, []ValidAction{
		{Action: Fold},
		{Action: Check},
		{Action: Raise, MinAmount: 20, MaxAmount: 1000},
		{Action: AllIn, MinAmount: 1000, MaxAmount: 1000},
	}, validActions(p, 10, 10, true))

	p = &Player{ID: "short", Chips: 8, Active: true}
	assert.Equal(t, []ValidAction{
		{Action: Fold},
		{Action: AllIn, MinAmount: 8, MaxAmount: 8},
	}, validActions(p, 10, 10, true))

	p = &Player{ID: "open", Chips: 100, Active: true}
	actions := validActions(p, 0, 10, true)
	assert.Contains(t, actions, ValidAction{Action: Bet, MinAmount: 10, MaxAmount: 100})

	assert.Nil(t, validActions(&Player{ID: "folded", Chips: 100}, 0, 10, true))

	p = &Player{ID: "caller", Chips: 980, Bet: 20, Active: true}
	assert.Equal(t, []ValidAction{
		{Action: Fold},
		{Action: Call, MinAmount: 25, MaxAmount: 25},
	}, validActions(p, 25, 10, false), "no raise until a full raise reopens the betting")

	p = &Player{ID: "covered", Chips: 4, Bet: 20, Active: true}
	assert.Equal(t, []ValidAction{
		{Action: Fold},
		{Action: AllIn, MinAmount: 24, MaxAmount: 24},
	}, validActions(p, 25, 10, false))
}

func TestParseAction(t *testing.T) {
	t.Parallel()
	a, err := ParseAction(" Raise ")
	require.NoError(t, err)
	assert.Equal(t, Raise, a)

	a, err = ParseAction("all-in")
	require.NoError(t, err)
	assert.Equal(t, AllIn, a)

	_, err = ParseAction("small_blind")
	requireCode(t, err, CodeInvalidAction)
}

func TestPhaseText(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(struct{ P Phase }{River})
	require.NoError(t, err)
	assert.JSONEq(t, `{"P":"river"}`, string(b))

	var out struct{ P Phase }
	require.NoError(t, json.Unmarshal([]byte(`{"P":"flop"}`), &out))
	assert.Equal(t, Flop, out.P)
	assert.Error(t, json.Unmarshal([]byte(`{"P":"fifth"}`), &out))
}
