package bigtwo

import (
	"sort"

	"bigtwo-lite/internal/card"
)

// Variant is the closed discriminated union of playable Big Two combinations.
// Classification is a single function with total case analysis (spec §9:
// "polymorphism over hand variants... adding a new variant is a single-location
// change") rather than scattered type switches.
type Variant int

const (
	Single Variant = iota
	Pair
	Triple
	Straight
	Flush
	FullHouse
	FourPlusOne
	StraightFlush
)

func (v Variant) String() string {
	switch v {
	case Single:
		return "SINGLE"
	case Pair:
		return "PAIR"
	case Triple:
		return "TRIPLE"
	case Straight:
		return "STRAIGHT"
	case Flush:
		return "FLUSH"
	case FullHouse:
		return "FULL_HOUSE"
	case FourPlusOne:
		return "FOUR_PLUS_ONE"
	case StraightFlush:
		return "STRAIGHT_FLUSH"
	default:
		return "UNKNOWN"
	}
}

// isFiveCard reports whether v is one of the five-card variants, which all
// compare against one another via categoryRank (spec §3 dominance table).
func (v Variant) isFiveCard() bool {
	return v == Straight || v == Flush || v == FullHouse || v == FourPlusOne || v == StraightFlush
}

// categoryRank totally orders the five-card variants: Straight < Flush <
// FullHouse < FourPlusOne < StraightFlush (spec §3).
func (v Variant) categoryRank() int {
	switch v {
	case Straight:
		return 0
	case Flush:
		return 1
	case FullHouse:
		return 2
	case FourPlusOne:
		return 3
	case StraightFlush:
		return 4
	default:
		return -1
	}
}

// Hand is a classified, immutable combination of cards.
type Hand struct {
	Variant Variant
	Cards   []card.Card // ascending order, per Card.Less
	key     card.Card   // the defining card for same-category comparisons
}

// Classify inspects an unordered card set and returns its Hand, or a
// GameError (WrongCardCount, NotAValidCombination) per spec §4.1.
func Classify(cards []card.Card) (Hand, error) {
	n := len(cards)
	if n == 0 || n > 5 || n == 4 {
		return Hand{}, newErr(KindWrongCardCount, "got %d cards", n)
	}

	sorted := make([]card.Card, n)
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	switch n {
	case 1:
		return Hand{Variant: Single, Cards: sorted, key: sorted[0]}, nil
	case 2:
		if sorted[0].Rank() != sorted[1].Rank() {
			return Hand{}, newErr(KindNotAValidCombination, "pair must share a rank")
		}
		return Hand{Variant: Pair, Cards: sorted, key: sorted[1]}, nil
	case 3:
		if sorted[0].Rank() != sorted[1].Rank() || sorted[1].Rank() != sorted[2].Rank() {
			return Hand{}, newErr(KindNotAValidCombination, "triple must share a rank")
		}
		return Hand{Variant: Triple, Cards: sorted, key: sorted[2]}, nil
	case 5:
		return classifyFive(sorted)
	default:
		return Hand{}, newErr(KindWrongCardCount, "got %d cards", n)
	}
}

func classifyFive(sorted []card.Card) (Hand, error) {
	counts := map[card.Rank]int{}
	for _, c := range sorted {
		counts[c.Rank()]++
	}
	flush := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Suit() != sorted[0].Suit() {
			flush = false
			break
		}
	}
	straight := len(counts) == 5 && int(sorted[4].Rank())-int(sorted[0].Rank()) == 4

	switch {
	case straight && flush:
		return Hand{Variant: StraightFlush, Cards: sorted, key: sorted[4]}, nil
	case straight:
		return Hand{Variant: Straight, Cards: sorted, key: sorted[4]}, nil
	case flush:
		return Hand{Variant: Flush, Cards: sorted, key: sorted[4]}, nil
	}

	// Remaining five-card shapes: group ranks by count.
	var tripleRank, quadRank card.Rank
	var haveTriple, havePair, haveQuad bool
	for r, c := range counts {
		switch c {
		case 3:
			tripleRank, haveTriple = r, true
		case 2:
			havePair = true
		case 4:
			quadRank, haveQuad = r, true
		}
	}
	if haveTriple && havePair {
		return Hand{Variant: FullHouse, Cards: sorted, key: card.New(tripleRank, card.Spades)}, nil
	}
	if haveQuad {
		return Hand{Variant: FourPlusOne, Cards: sorted, key: card.New(quadRank, card.Spades)}, nil
	}
	return Hand{}, newErr(KindNotAValidCombination, "five cards do not form a valid combination")
}

// Dominates reports whether h legally beats the hand currently leading a
// trick, per spec §4.2: same-count variants only compare to themselves,
// five-card variants compare across categories first then by key.
func (h Hand) Dominates(lead Hand) (bool, error) {
	if len(h.Cards) != len(lead.Cards) {
		return false, newErr(KindWrongCardCount, "expected %d cards, got %d", len(lead.Cards), len(h.Cards))
	}
	if !lead.Variant.isFiveCard() {
		if h.Variant != lead.Variant {
			return false, newErr(KindWrongCardCount, "must play a %s to follow a %s", lead.Variant, lead.Variant)
		}
		return lead.key.Less(h.key), nil
	}
	if !h.Variant.isFiveCard() {
		return false, newErr(KindWrongCardCount, "must play a five-card hand to follow a %s", lead.Variant)
	}
	if h.Variant.categoryRank() != lead.Variant.categoryRank() {
		return h.Variant.categoryRank() > lead.Variant.categoryRank(), nil
	}
	if h.key.Rank() != lead.key.Rank() {
		return lead.key.Rank() < h.key.Rank(), nil
	}
	return lead.key.Suit() < h.key.Suit(), nil
}

// Compare totally orders two hands of the same variant (or, for five-card
// hands, two hands whose dominance is otherwise well defined). ApplyMove and
// the bot strategy both call Dominates directly rather than Compare.
func Compare(a, b Hand) (int, error) {
	aOverB, err := a.Dominates(b)
	if err != nil {
		return 0, err
	}
	if aOverB {
		return 1, nil
	}
	bOverA, err := b.Dominates(a)
	if err != nil {
		return 0, err
	}
	if bOverA {
		return -1, nil
	}
	return 0, nil
}
