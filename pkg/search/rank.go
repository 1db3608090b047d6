package search

import (
	"cmp"
	"slices"

	"github.com/japaniel/jiten/pkg/freq"
)

// CurationThreshold is the priority tier from which an entry counts as
// curated. Curated entries rank before all others.
const CurationThreshold = 2

// Signals are the ranking inputs of one candidate.
type Signals struct {
	Prio  int
	Freq  freq.Rank
	Level freq.Level
	ID    int64
}

// Compare orders a before b when a ranks higher. The keys, in order:
// curated first; ranked before unranked, then by ascending rank; higher
// level first, absent last; higher priority first; lower id first. Two
// signals with distinct ids never compare equal.
func Compare(a, b Signals) int {
	ac, bc := a.Prio >= CurationThreshold, b.Prio >= CurationThreshold
	if ac != bc {
		if ac {
			return -1
		}
		return 1
	}
	ar, aok := a.Freq.Value()
	br, bok := b.Freq.Value()
	if aok != bok {
		if aok {
			return -1
		}
		return 1
	}
	if aok && ar != br {
		return cmp.Compare(ar, br)
	}
	// NOTE: descending level puts N5 words before N1 words.
	al, _ := a.Level.Value()
	bl, _ := b.Level.Value()
	if al != bl {
		return cmp.Compare(bl, al)
	}
	if a.Prio != b.Prio {
		return cmp.Compare(b.Prio, a.Prio)
	}
	return cmp.Compare(a.ID, b.ID)
}

// Sort orders signals by Compare.
func Sort(signals []Signals) {
	slices.SortFunc(signals, Compare)
}

// truncate keeps the first n signals when n is positive.
func truncate(signals []Signals, n int) []Signals {
	if n > 0 && len(signals) > n {
		return signals[:n]
	}
	return signals
}

func ids(signals []Signals) []int64 {
	out := make([]int64, len(signals))
	for i, s := range signals {
		out[i] = s.ID
	}
	return out
}
