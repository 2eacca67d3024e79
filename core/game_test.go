package core

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestIsGameCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"ABC123", true},
		{"XYZ", true},
		{"ABCDEFGH12", true},
		{"AB", false},
		{"ABCDEFGHIJ1", false},
		{"abc123", false},
		{"ABC-12", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsGameCode(c.code); got != c.want {
			t.Errorf("IsGameCode(%q) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestGameIsFull(t *testing.T) {
	g := &Game{MaxPlayers: 4, PlayerCount: 3}
	if g.IsFull() {
		t.Error("game with 3/4 players reported full")
	}
	g.PlayerCount = 4
	if !g.IsFull() {
		t.Error("game with 4/4 players reported not full")
	}
	unbounded := &Game{MaxPlayers: 0, PlayerCount: 10}
	if unbounded.IsFull() {
		t.Error("game without a player cap reported full")
	}
}

func TestGameUsesToken(t *testing.T) {
	native := &Game{BuyIn: big.NewInt(1)}
	if native.UsesToken() {
		t.Error("zero token address should mean native coin")
	}
	token := &Game{Token: common.HexToAddress("0x1111111111111111111111111111111111111111")}
	if !token.UsesToken() {
		t.Error("non-zero token address should mean ERC-20 buy-in")
	}
}

func TestConfirmedWinners(t *testing.T) {
	a := common.HexToAddress("0x0000000000000000000000000000000000000001")
	b := common.HexToAddress("0x0000000000000000000000000000000000000002")
	c := common.HexToAddress("0x0000000000000000000000000000000000000003")
	status := WinnerStatus{a: true, c: true}

	winners := ConfirmedWinners([]common.Address{a, b, c}, status)
	if len(winners) != 2 {
		t.Fatalf("got %d winners, want 2", len(winners))
	}
	if winners[0] != a || winners[1] != c {
		t.Errorf("winners = %v, want [%s %s]", winners, a.Hex(), c.Hex())
	}
}
