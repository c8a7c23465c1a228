// Package ranking implements the pure hand-strength collaborator consumed by
// the view engine at showdown. Card codes follow the server's wire format:
// rank character (A23456789TJQK) followed by suit character (CDHS).
package ranking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/paulhankin/poker"

	"github.com/weedbox/pokertableview"
)

var (
	ErrInvalidCardCode = errors.New("ranking: invalid card code")
	ErrNotEnoughCards  = errors.New("ranking: need at least five cards")
)

var rankByChar = map[byte]int{
	'A': 1, '2': 2, '3': 3, '4': 4, '5': 5, '6': 6, '7': 7,
	'8': 8, '9': 9, 'T': 10, 'J': 11, 'Q': 12, 'K': 13,
}

var suitByChar = map[byte]int{
	'C': 0, 'D': 1, 'H': 2, 'S': 3,
}

type evaluator struct{}

// NewEvaluator returns a Ranker backed by a 5-card exhaustive evaluation over
// hole plus community cards.
func NewEvaluator() pokertableview.Ranker {
	return &evaluator{}
}

func (e *evaluator) Rank(holeCards []string, communityCards []string) (*pokertableview.RankResult, error) {
	codes := make([]string, 0, len(holeCards)+len(communityCards))
	codes = append(codes, holeCards...)
	codes = append(codes, communityCards...)
	if len(codes) < 5 {
		return nil, ErrNotEnoughCards
	}

	cards := make([]poker.Card, len(codes))
	for i, code := range codes {
		card, err := parseCard(code)
		if err != nil {
			return nil, err
		}
		cards[i] = card
	}

	var bestScore int16
	var bestCombo []int
	combos(len(cards), 5, func(combo []int) {
		var hand [5]poker.Card
		for i, idx := range combo {
			hand[i] = cards[idx]
		}
		score := poker.Eval5(&hand)
		if bestCombo == nil || score > bestScore {
			bestScore = score
			bestCombo = append(bestCombo[:0], combo...)
		}
	})

	bestFive := make([]string, 5)
	bestRanks := make([]int, 5)
	for i, idx := range bestCombo {
		bestFive[i] = normalizeCode(codes[idx])
		bestRanks[i] = rankByChar[bestFive[i][0]]
	}

	return &pokertableview.RankResult{
		Name:     classify(bestFive, bestRanks),
		BestFive: bestFive,
	}, nil
}

func parseCard(code string) (poker.Card, error) {
	var zero poker.Card

	normalized := normalizeCode(code)
	if len(normalized) != 2 {
		return zero, fmt.Errorf("%w: %q", ErrInvalidCardCode, code)
	}

	rank, ok := rankByChar[normalized[0]]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrInvalidCardCode, code)
	}
	suit, ok := suitByChar[normalized[1]]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrInvalidCardCode, code)
	}

	return poker.MakeCard(poker.Suit(suit), poker.Rank(rank))
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return code
	}
	// Accept "10D" for "TD".
	if strings.HasPrefix(code, "10") && len(code) == 3 {
		code = "T" + code[2:]
	}
	return code
}

// combos walks all k-combinations of n indexes.
func combos(n, k int, fn func(combo []int)) {
	combo := make([]int, k)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == k {
			fn(combo)
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			combo[depth] = i
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
}

// classify names the category of a five-card hand.
func classify(codes []string, ranks []int) string {
	suited := true
	for i := 1; i < len(codes); i++ {
		if codes[i][1] != codes[0][1] {
			suited = false
			break
		}
	}

	counts := make(map[int]int)
	for _, rank := range ranks {
		counts[rank]++
	}

	groups := make([]int, 0, len(counts))
	for _, count := range counts {
		groups = append(groups, count)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(groups)))

	straight := isStraight(ranks)

	switch {
	case suited && straight:
		if hasRanks(counts, 1, 10, 11, 12, 13) {
			return "Royal Flush"
		}
		return "Straight Flush"
	case groups[0] == 4:
		return "Four of a Kind"
	case groups[0] == 3 && groups[1] == 2:
		return "Full House"
	case suited:
		return "Flush"
	case straight:
		return "Straight"
	case groups[0] == 3:
		return "Three of a Kind"
	case groups[0] == 2 && groups[1] == 2:
		return "Two Pair"
	case groups[0] == 2:
		return "Pair"
	default:
		return "High Card"
	}
}

func isStraight(ranks []int) bool {
	sorted := make([]int, len(ranks))
	copy(sorted, ranks)
	sort.Ints(sorted)

	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return false
		}
	}

	if sorted[len(sorted)-1]-sorted[0] == 4 {
		return true
	}
	// Ace plays high in T-J-Q-K-A.
	return sorted[0] == 1 && sorted[1] == 10 && sorted[2] == 11 && sorted[3] == 12 && sorted[4] == 13
}

func hasRanks(counts map[int]int, ranks ...int) bool {
	for _, rank := range ranks {
		if counts[rank] == 0 {
			return false
		}
	}
	return true
}
