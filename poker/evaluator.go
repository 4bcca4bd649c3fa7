package poker

import (
	"fmt"
	"slices"
)

// HandCategory enumerates hand categories from weakest (1) to strongest (10).
type HandCategory int

const (
	HighCard HandCategory = iota + 1
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns a human-readable category name.
func (c HandCategory) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// rankBase is larger than any rank so positional weights never overlap.
const rankBase = 15

// categoryWeight is rankBase^5: room for five positional rank digits per category.
const categoryWeight = rankBase * rankBase * rankBase * rankBase * rankBase

// DetailedHand is the evaluated best five-card hand.
//
// DetailedRank totally orders hands within and across categories, so two
// hands compare by plain integer comparison. Kickers lists the side cards
// that did not form the made hand, highest first, for display.
type DetailedHand struct {
	Category     HandCategory `json:"category"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	DetailedRank int          `json:"detailed_rank"`
	HighRank     Rank         `json:"high_rank"`
	Kickers      []int        `json:"kickers,omitempty"`
	Cards        []Card       `json:"cards"`
}

// HandResult pairs a player identifier with their evaluated hand.
type HandResult struct {
	PlayerID string       `json:"player_id"`
	Hand     DetailedHand `json:"hand"`
}

// Evaluate returns the best five-card hand from two hole cards and three to
// five community cards. Every five-card subset is scored and the maximum kept.
func Evaluate(hole, community []Card) (DetailedHand, error) {
	if len(hole) != 2 {
		return DetailedHand{}, fmt.Errorf("need 2 hole cards, got %d", len(hole))
	}
	if len(community) < 3 || len(community) > 5 {
		return DetailedHand{}, fmt.Errorf("need 3-5 community cards, got %d", len(community))
	}

	all := make([]Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)

	seen := make(map[Card]bool, len(all))
	for _, c := range all {
		if !c.Valid() {
			return DetailedHand{}, fmt.Errorf("invalid card: rank=%d suit=%d", c.Rank, c.Suit)
		}
		if seen[c] {
			return DetailedHand{}, fmt.Errorf("duplicate card %s", c)
		}
		seen[c] = true
	}

	return bestOf(all), nil
}

// EvaluateFive scores exactly five cards.
func EvaluateFive(cards []Card) (DetailedHand, error) {
	if len(cards) != 5 {
		return DetailedHand{}, fmt.Errorf("need 5 cards, got %d", len(cards))
	}
	var five [5]Card
	copy(five[:], cards)
	return scoreFive(five), nil
}

// bestOf enumerates all C(n,5) subsets of cards.
func bestOf(cards []Card) DetailedHand {
	n := len(cards)
	var best DetailedHand
	found := false
	var five [5]Card
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five = [5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						hand := scoreFive(five)
						if !found || CompareHands(hand, best) > 0 {
							best = hand
							found = true
						}
					}
				}
			}
		}
	}
	return best
}

type rankGroup struct {
	rank  Rank
	count int
}

func scoreFive(cards [5]Card) DetailedHand {
	ordered := cards
	slices.SortFunc(ordered[:], func(a, b Card) int { return int(b.Rank) - int(a.Rank) })

	flush := true
	for _, c := range ordered[1:] {
		if c.Suit != ordered[0].Suit {
			flush = false
			break
		}
	}

	var counts [Ace + 1]int
	for _, c := range ordered {
		counts[c.Rank]++
	}
	groups := make([]rankGroup, 0, 5)
	for r := Ace; r >= Two; r-- {
		if counts[r] > 0 {
			groups = append(groups, rankGroup{rank: r, count: counts[r]})
		}
	}
	slices.SortStableFunc(groups, func(a, b rankGroup) int { return b.count - a.count })

	straightHigh := Rank(0)
	if len(groups) == 5 {
		switch {
		case ordered[0].Rank-ordered[4].Rank == 4:
			straightHigh = ordered[0].Rank
		case ordered[0].Rank == Ace && ordered[1].Rank == Five:
			// The wheel: A-2-3-4-5 plays as a five-high straight.
			straightHigh = Five
			ordered = [5]Card{ordered[1], ordered[2], ordered[3], ordered[4], ordered[0]}
		}
	}

	var (
		category HandCategory
		decisive []Rank
		kickers  []Rank
	)

	switch {
	case straightHigh > 0 && flush:
		category = StraightFlush
		if straightHigh == Ace {
			category = RoyalFlush
		}
		decisive = []Rank{straightHigh}
	case groups[0].count == 4:
		category = FourOfAKind
		decisive = []Rank{groups[0].rank, groups[1].rank}
		kickers = []Rank{groups[1].rank}
	case groups[0].count == 3 && groups[1].count == 2:
		category = FullHouse
		decisive = []Rank{groups[0].rank, groups[1].rank}
	case flush:
		category = Flush
		decisive = ranksOf(ordered[:])
		kickers = decisive[1:]
	case straightHigh > 0:
		category = Straight
		decisive = []Rank{straightHigh}
	case groups[0].count == 3:
		category = ThreeOfAKind
		decisive = []Rank{groups[0].rank, groups[1].rank, groups[2].rank}
		kickers = decisive[1:]
	case groups[0].count == 2 && groups[1].count == 2:
		category = TwoPair
		decisive = []Rank{groups[0].rank, groups[1].rank, groups[2].rank}
		kickers = decisive[2:]
	case groups[0].count == 2:
		category = Pair
		decisive = []Rank{groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}
		kickers = decisive[1:]
	default:
		category = HighCard
		decisive = ranksOf(ordered[:])
		kickers = decisive[1:]
	}

	detailed := int(category) * categoryWeight
	weight := categoryWeight / rankBase
	for _, r := range decisive {
		detailed += int(r) * weight
		weight /= rankBase
	}

	hand := DetailedHand{
		Category:     category,
		Name:         category.String(),
		DetailedRank: detailed,
		HighRank:     decisive[0],
		Cards:        significanceOrder(ordered, groups, straightHigh > 0),
	}
	if len(kickers) > 0 {
		hand.Kickers = make([]int, len(kickers))
		for i, k := range kickers {
			hand.Kickers[i] = int(k)
		}
	}
	hand.Description = describe(category, decisive)
	return hand
}

func ranksOf(cards []Card) []Rank {
	out := make([]Rank, len(cards))
	for i, c := range cards {
		out[i] = c.Rank
	}
	return out
}

// significanceOrder puts grouped cards first (quads, trips, pairs) then
// kickers, keeping straights in sequence order.
func significanceOrder(ordered [5]Card, groups []rankGroup, straight bool) []Card {
	out := make([]Card, 0, 5)
	if straight || len(groups) == 5 {
		return append(out, ordered[:]...)
	}
	for _, g := range groups {
		for _, c := range ordered {
			if c.Rank == g.rank {
				out = append(out, c)
			}
		}
	}
	return out
}

func plural(r Rank) string {
	if r == Six {
		return "Sixes"
	}
	return r.Name() + "s"
}

func describe(category HandCategory, decisive []Rank) string {
	switch category {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s high", decisive[0].Name())
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", plural(decisive[0]))
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", plural(decisive[0]), plural(decisive[1]))
	case Flush:
		return fmt.Sprintf("Flush, %s high", decisive[0].Name())
	case Straight:
		return fmt.Sprintf("Straight, %s high", decisive[0].Name())
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", plural(decisive[0]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", plural(decisive[0]), plural(decisive[1]))
	case Pair:
		return fmt.Sprintf("Pair of %s", plural(decisive[0]))
	default:
		return fmt.Sprintf("High Card, %s", decisive[0].Name())
	}
}

// CompareHands returns 1 if a beats b, -1 if b beats a and 0 for an exact tie.
// Category dominates detailed rank, which dominates the kicker list.
func CompareHands(a, b DetailedHand) int {
	switch {
	case a.Category != b.Category:
		return sign(int(a.Category) - int(b.Category))
	case a.DetailedRank != b.DetailedRank:
		return sign(a.DetailedRank - b.DetailedRank)
	}
	n := max(len(a.Kickers), len(b.Kickers))
	for i := 0; i < n; i++ {
		var ka, kb int
		if i < len(a.Kickers) {
			ka = a.Kickers[i]
		}
		if i < len(b.Kickers) {
			kb = b.Kickers[i]
		}
		if ka != kb {
			return sign(ka - kb)
		}
	}
	return 0
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// DetermineWinners returns the ids of every result tied with the best hand,
// in input order. Ties are never broken by suit.
func DetermineWinners(results []HandResult) []string {
	if len(results) == 0 {
		return nil
	}
	best := results[0].Hand
	for _, r := range results[1:] {
		if CompareHands(r.Hand, best) > 0 {
			best = r.Hand
		}
	}
	var winners []string
	for _, r := range results {
		if CompareHands(r.Hand, best) == 0 {
			winners = append(winners, r.PlayerID)
		}
	}
	return winners
}
