package api

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jetsharklambo/pu2-toolkit/app"
	"github.com/jetsharklambo/pu2-toolkit/core"
	"github.com/jetsharklambo/pu2-toolkit/txmgr"
)

// Amounts travel as decimal strings so token precision survives JSON.

type gameResponse struct {
	Code        string   `json:"code"`
	Host        string   `json:"host"`
	Token       string   `json:"token,omitempty"`
	BuyIn       string   `json:"buyIn"`
	MaxPlayers  uint64   `json:"maxPlayers"`
	PlayerCount uint64   `json:"playerCount"`
	Locked      bool     `json:"locked"`
	PrizeSplits []uint64 `json:"prizeSplits,omitempty"`
	Players     []string `json:"players"`
	Judges      []string `json:"judges,omitempty"`
}

type winnerResponse struct {
	Address string `json:"address"`
	Claimed bool   `json:"claimed"`
}

type snapshotResponse struct {
	Game    gameResponse     `json:"game"`
	Winners []winnerResponse `json:"winners"`
}

type actionResponse struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Game     string `json:"game,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	TxHash   string `json:"txHash,omitempty"`
	GameCode string `json:"gameCode,omitempty"`
}

type createRequest struct {
	BuyIn      string `json:"buyIn"`
	Token      string `json:"token"`
	MaxPlayers uint64 `json:"maxPlayers"`
}

type winnersRequest struct {
	Winners []string `json:"winners"`
}

type splitsRequest struct {
	Splits []uint64 `json:"splits"`
}

type judgeRequest struct {
	Judge string `json:"judge"`
}

type judgesRequest struct {
	Judges []string `json:"judges"`
}

func toGameResponse(g *core.Game) gameResponse {
	buyIn := "0"
	if g.BuyIn != nil {
		buyIn = g.BuyIn.String()
	}
	resp := gameResponse{
		Code:        g.Code,
		Host:        g.Host.Hex(),
		BuyIn:       buyIn,
		MaxPlayers:  g.MaxPlayers,
		PlayerCount: g.PlayerCount,
		Locked:      g.Locked,
		PrizeSplits: g.PrizeSplits,
		Players:     toHexList(g.Players),
		Judges:      toHexList(g.Judges),
	}
	if g.UsesToken() {
		resp.Token = g.Token.Hex()
	}
	return resp
}

func toSnapshotResponse(s *app.Snapshot) snapshotResponse {
	resp := snapshotResponse{
		Game:    toGameResponse(s.Game),
		Winners: []winnerResponse{},
	}
	for _, p := range s.Game.Players {
		if !s.Winners[p] {
			continue
		}
		resp.Winners = append(resp.Winners, winnerResponse{
			Address: p.Hex(),
			Claimed: s.Claimed[p],
		})
	}
	return resp
}

func toActionResponse(a *txmgr.Action) actionResponse {
	resp := actionResponse{
		ID:       a.ID.String(),
		Kind:     a.Kind,
		Game:     a.Game,
		Status:   string(a.Status),
		Message:  a.Message,
		GameCode: a.GameCode,
	}
	if a.TxHash != (common.Hash{}) {
		resp.TxHash = a.TxHash.Hex()
	}
	return resp
}

func toHexList(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAddressList(in []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(in))
	for _, s := range in {
		addr, err := parseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}
