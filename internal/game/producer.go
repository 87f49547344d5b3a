package game

import (
	"errors"
	"sort"

	"github.com/kiliankoe/cacophony/internal/store"
)

var ErrNoPlayers = errors.New("no players available")

// DeriveProducer picks the producer for a round: players sorted by join
// order, index (roundNumber-1) mod count. Plain round-robin, so a producer
// repeats when the player count doesn't divide the round count evenly.
// Deterministic on purpose: no client is authoritative for round creation,
// so every client must arrive at the same producer for the same inputs.
func DeriveProducer(players []store.Player, roundNumber int) (store.Player, error) {
	if len(players) == 0 {
		return store.Player{}, ErrNoPlayers
	}
	sorted := make([]store.Player, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].JoinOrder < sorted[j].JoinOrder })
	return sorted[(roundNumber-1)%len(sorted)], nil
}
