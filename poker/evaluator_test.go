package poker

import (
	"testing"

	oracle "github.com/paulhankin/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEval(t *testing.T, hole, board []string) DetailedHand {
	t.Helper()
	h, err := Evaluate(MustParseCards(hole...), MustParseCards(board...))
	require.NoError(t, err)
	return h
}

func mustFive(t *testing.T, cards ...string) DetailedHand {
	t.Helper()
	h, err := EvaluateFive(MustParseCards(cards...))
	require.NoError(t, err)
	return h
}

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		hole     []string
		board    []string
		category HandCategory
		high     Rank
	}{
		{"royal flush", []string{"As", "Ks"}, []string{"Qs", "Js", "Ts", "2d", "3c"}, RoyalFlush, Ace},
		{"straight flush", []string{"9h", "8h"}, []string{"7h", "6h", "5h", "Ac", "Ad"}, StraightFlush, Nine},
		{"wheel straight flush", []string{"As", "2s"}, []string{"3s", "4s", "5s", "Kd", "Qd"}, StraightFlush, Five},
		{"four of a kind", []string{"7c", "7d"}, []string{"7h", "7s", "Kd", "2c", "3c"}, FourOfAKind, Seven},
		{"full house", []string{"Kc", "Kd"}, []string{"Kh", "4s", "4d", "2c", "9c"}, FullHouse, King},
		{"flush", []string{"Ah", "9h"}, []string{"6h", "4h", "2h", "Kc", "Qd"}, Flush, Ace},
		{"straight", []string{"Tc", "9d"}, []string{"8h", "7s", "6d", "2c", "2d"}, Straight, Ten},
		{"wheel straight", []string{"Ac", "2d"}, []string{"3h", "4s", "5d", "9c", "Jd"}, Straight, Five},
		{"three of a kind", []string{"Qc", "Qd"}, []string{"Qh", "8s", "3d", "2c", "9h"}, ThreeOfAKind, Queen},
		{"two pair", []string{"Jc", "Jd"}, []string{"4h", "4s", "Ad", "2c", "9h"}, TwoPair, Jack},
		{"pair", []string{"Tc", "Td"}, []string{"4h", "8s", "Ad", "2c", "9h"}, Pair, Ten},
		{"high card", []string{"Ac", "Jd"}, []string{"4h", "8s", "6d", "2c", "9h"}, HighCard, Ace},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := mustEval(t, tc.hole, tc.board)
			assert.Equal(t, tc.category, h.Category)
			assert.Equal(t, tc.category.String(), h.Name)
			assert.Equal(t, tc.high, h.HighRank)
			assert.Len(t, h.Cards, 5)
		})
	}
}

func TestCategoryRanksOneToTen(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, int(HighCard))
	assert.Equal(t, 10, int(RoyalFlush))
}

func TestWheelIsFiveHigh(t *testing.T) {
	t.Parallel()
	wheel := mustFive(t, "As", "2s", "3s", "4s", "5s")
	sixHigh := mustFive(t, "2h", "3h", "4h", "5h", "6h")
	aceFlush := mustFive(t, "Ad", "Kd", "9d", "4d", "2d")

	assert.Equal(t, StraightFlush, wheel.Category)
	assert.Equal(t, Five, wheel.HighRank)
	assert.Equal(t, "Straight Flush, Five high", wheel.Description)
	assert.Equal(t, -1, CompareHands(wheel, sixHigh))
	assert.Equal(t, 1, CompareHands(wheel, aceFlush))

	// the ace sorts last in a wheel
	assert.Equal(t, Ace, wheel.Cards[4].Rank)

	plainWheel := mustFive(t, "Ac", "2d", "3h", "4s", "5d")
	broadway := mustFive(t, "Ac", "Kd", "Qh", "Js", "Td")
	assert.Equal(t, -1, CompareHands(plainWheel, broadway))
}

func TestRoyalFlushBeatsEverything(t *testing.T) {
	t.Parallel()
	royal := mustFive(t, "Th", "Jh", "Qh", "Kh", "Ah")
	others := [][]string{
		{"9s", "Ts", "Js", "Qs", "Ks"},
		{"Ac", "Ad", "Ah", "As", "Kc"},
		{"Ac", "Ad", "Ah", "Ks", "Kc"},
	}
	for _, o := range others {
		assert.Equal(t, 1, CompareHands(royal, mustFive(t, o...)))
	}
	assert.Equal(t, "Royal Flush", royal.Description)
}

func TestPairKickerOrdering(t *testing.T) {
	t.Parallel()
	better := mustFive(t, "Ac", "Ad", "Kh", "Qs", "Jd")
	worse := mustFive(t, "As", "Ah", "Kd", "Qc", "Td")

	assert.Equal(t, 1, CompareHands(better, worse))
	assert.Equal(t, -1, CompareHands(worse, better))
	assert.Equal(t, []int{int(King), int(Queen), int(Jack)}, better.Kickers)
}

func TestExactTie(t *testing.T) {
	t.Parallel()
	board := []string{"Ah", "Kh", "Qd", "Jc", "Ts"}
	a := mustEval(t, []string{"2c", "3d"}, board)
	b := mustEval(t, []string{"2h", "4s"}, board)

	assert.Equal(t, 0, CompareHands(a, b))
	assert.Equal(t, []string{"p1", "p2"}, DetermineWinners([]HandResult{
		{PlayerID: "p1", Hand: a},
		{PlayerID: "p2", Hand: b},
	}))
}

func TestCompareMissingKickersCountAsZero(t *testing.T) {
	t.Parallel()
	a := DetailedHand{Category: Pair, DetailedRank: 100, Kickers: []int{5}}
	b := DetailedHand{Category: Pair, DetailedRank: 100}
	assert.Equal(t, 1, CompareHands(a, b))
	assert.Equal(t, -1, CompareHands(b, a))
}

func TestEvaluateSelectsBestSubset(t *testing.T) {
	t.Parallel()
	// Board pair plus hole pair gives two pair; the best kicker comes from the board.
	h := mustEval(t, []string{"9c", "9d"}, []string{"5h", "5s", "Ad", "Kc", "2h"})
	assert.Equal(t, TwoPair, h.Category)
	assert.Equal(t, []int{int(Ace)}, h.Kickers)
	assert.Equal(t, "Two Pair, Nines and Fives", h.Description)

	// Six cards (turn) are accepted as well.
	h = mustEval(t, []string{"9c", "9d"}, []string{"9h", "5s", "5d", "Kc"})
	assert.Equal(t, FullHouse, h.Category)
	assert.Equal(t, "Full House, Nines full of Fives", h.Description)
}

func TestEvaluateRejectsMalformedInput(t *testing.T) {
	t.Parallel()
	_, err := Evaluate(MustParseCards("As"), MustParseCards("Kd", "Qh", "Jc"))
	assert.Error(t, err)

	_, err = Evaluate(MustParseCards("As", "Ks"), MustParseCards("Kd", "Qh"))
	assert.Error(t, err)

	_, err = Evaluate(MustParseCards("As", "Ks"), MustParseCards("As", "Qh", "Jc"))
	assert.Error(t, err, "duplicate card")

	_, err = Evaluate(MustParseCards("As", "Ks"), MustParseCards("2c", "3c", "4c", "5c", "6c", "7c"))
	assert.Error(t, err, "too many community cards")
}

func TestDetermineWinners(t *testing.T) {
	t.Parallel()
	board := []string{"2c", "7d", "9h", "Js", "4c"}
	results := []HandResult{
		{PlayerID: "a", Hand: mustEval(t, []string{"Ah", "Kd"}, board)},
		{PlayerID: "b", Hand: mustEval(t, []string{"Jh", "3d"}, board)},
		{PlayerID: "c", Hand: mustEval(t, []string{"Jc", "3h"}, board)},
	}
	// b and c both hold a pair of jacks with kickers 9,7,4
	assert.Equal(t, []string{"b", "c"}, DetermineWinners(results))
	assert.Nil(t, DetermineWinners(nil))
}

func allCards() []Card {
	cards := make([]Card, 0, DeckSize)
	for s := Clubs; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			cards = append(cards, NewCard(r, s))
		}
	}
	return cards
}

func TestCompareHandsTotalOrder(t *testing.T) {
	t.Parallel()
	rng := testRNG(99)
	deck := allCards()

	hands := make([]DetailedHand, 0, 300)
	for i := 0; i < 300; i++ {
		rng.Shuffle(len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
		h, err := EvaluateFive(deck[:5])
		require.NoError(t, err)
		hands = append(hands, h)
	}

	for i := range hands {
		for j := range hands {
			ab := CompareHands(hands[i], hands[j])
			ba := CompareHands(hands[j], hands[i])
			require.Equal(t, -ab, ba, "antisymmetry %v vs %v", hands[i].Cards, hands[j].Cards)
			if hands[i].Category != hands[j].Category {
				require.Equal(t, sign(int(hands[i].Category)-int(hands[j].Category)), ab,
					"category must dominate")
			}
		}
	}

	for i := 0; i+2 < len(hands); i++ {
		a, b, c := hands[i], hands[i+1], hands[i+2]
		if CompareHands(a, b) >= 0 && CompareHands(b, c) >= 0 {
			require.GreaterOrEqual(t, CompareHands(a, c), 0, "transitivity")
		}
	}
}

func toOracle(t *testing.T, c Card) oracle.Card {
	t.Helper()
	suits := [...]oracle.Suit{oracle.Club, oracle.Diamond, oracle.Heart, oracle.Spade}
	r := oracle.Rank(c.Rank)
	if c.Rank == Ace {
		r = oracle.Rank(1)
	}
	oc, err := oracle.MakeCard(suits[c.Suit], r)
	require.NoError(t, err)
	return oc
}

func oracleScore(t *testing.T, cards []Card) int16 {
	t.Helper()
	var seven [7]oracle.Card
	for i, c := range cards {
		seven[i] = toOracle(t, c)
	}
	return oracle.Eval7(&seven)
}

// TestAgreesWithOracle checks head-to-head ordering against an independent evaluator.
func TestAgreesWithOracle(t *testing.T) {
	t.Parallel()
	rng := testRNG(2024)
	deck := allCards()

	for i := 0; i < 2000; i++ {
		rng.Shuffle(len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
		board := deck[4:9]
		holeA, holeB := deck[0:2], deck[2:4]

		a, err := Evaluate(holeA, board)
		require.NoError(t, err)
		b, err := Evaluate(holeB, board)
		require.NoError(t, err)

		sevenA := append(append([]Card{}, holeA...), board...)
		sevenB := append(append([]Card{}, holeB...), board...)
		want := sign(int(oracleScore(t, sevenA)) - int(oracleScore(t, sevenB)))

		require.Equal(t, want, CompareHands(a, b), "hand %d: %s vs %s on %s",
			i, FormatCards(holeA), FormatCards(holeB), FormatCards(board))
	}
}
