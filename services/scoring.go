package services

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/NiranjanBhat123/what-connects/config"
)

// ScoringEngine computes points, rankings and accuracy. Pure computation,
// no side effects.
type ScoringEngine struct {
	points config.PointTable
}

func NewScoringEngine(points config.PointTable) *ScoringEngine {
	return &ScoringEngine{points: points}
}

// PointsFor returns the point value of an answer from the configured table.
// Hint usage reduces a correct answer's value and can make a wrong answer's
// value negative.
func (e *ScoringEngine) PointsFor(isCorrect, usedHint bool) int {
	switch {
	case isCorrect && usedHint:
		return e.points.CorrectWithHint
	case isCorrect:
		return e.points.Correct
	case usedHint:
		return e.points.WrongWithHint
	default:
		return e.points.Wrong
	}
}

// RankEntry is one player's standing fed into Rank. TieBreak is the time the
// score row was created, so earlier scorers sort first among ties.
type RankEntry struct {
	PlayerID   uuid.UUID
	TotalScore int
	TieBreak   time.Time
	Rank       int
}

// Rank sorts entries by descending score (ascending tie-break time among
// equals) and assigns standard competition ranks: equal scores share a rank
// and the next distinct score takes its 1-based sorted position, so
// [100, 100, 80] ranks as [1, 1, 3].
func (e *ScoringEngine) Rank(entries []RankEntry) []RankEntry {
	ranked := make([]RankEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		return ranked[i].TieBreak.Before(ranked[j].TieBreak)
	})

	for i := range ranked {
		if i > 0 && ranked[i].TotalScore == ranked[i-1].TotalScore {
			ranked[i].Rank = ranked[i-1].Rank
		} else {
			ranked[i].Rank = i + 1
		}
	}
	return ranked
}

// Accuracy returns correct/(correct+wrong) as a percentage rounded to two
// decimals, and 0 when no answers have been given yet.
func (e *ScoringEngine) Accuracy(correct, wrong int) float64 {
	total := correct + wrong
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*10000) / 100
}
