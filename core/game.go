package core

import (
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

var gameCodeRe = regexp.MustCompile(`^[A-Z0-9]{3,10}$`)

// IsGameCode reports whether s is a well-formed game code: 3 to 10
// uppercase letters or digits.
func IsGameCode(s string) bool {
	return gameCodeRe.MatchString(s)
}

// Game is a snapshot of one game as reported by the contract. It is
// recomputed on every load and never mutated in place.
type Game struct {
	Code        string
	Host        common.Address
	Token       common.Address // zero address means the native coin
	BuyIn       *big.Int
	MaxPlayers  uint64
	PlayerCount uint64
	Locked      bool
	PrizeSplits PrizeSplits
	Players     []common.Address
	Judges      []common.Address
}

// IsFull reports whether the game reached its player cap.
func (g *Game) IsFull() bool {
	return g.MaxPlayers > 0 && g.PlayerCount >= g.MaxPlayers
}

// UsesToken reports whether the buy-in is paid in an ERC-20 token
// rather than the native coin.
func (g *Game) UsesToken() bool {
	return g.Token != (common.Address{})
}

// WinnerStatus maps each player to the contract's winner-confirmation
// verdict. Only addresses from the game's player list are keyed.
type WinnerStatus map[common.Address]bool

// ConfirmedWinners filters players down to the confirmed winners,
// preserving player-list order.
func ConfirmedWinners(players []common.Address, status WinnerStatus) []common.Address {
	var winners []common.Address
	for _, p := range players {
		if status[p] {
			winners = append(winners, p)
		}
	}
	return winners
}

// ClaimedSet holds the addresses whose winnings claim for one specific
// game code was observed on-chain.
type ClaimedSet map[common.Address]bool
