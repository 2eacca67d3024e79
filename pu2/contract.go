package pu2

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/jetsharklambo/pu2-toolkit/core"
)

// Caller is the read half of the chain client the binding needs.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Contract is a bound PU2 deployment.
type Contract struct {
	addr   common.Address
	caller Caller
	abi    abi.ABI
}

// New binds the deployment at addr through caller.
func New(addr common.Address, caller Caller) *Contract {
	return &Contract{addr: addr, caller: caller, abi: contractABI}
}

// Addr returns the bound deployment address.
func (c *Contract) Addr() common.Address {
	return c.addr
}

func (c *Contract) call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}

// GameInfo loads the contract's view of code. The returned Game carries
// the info fields only; Players and Judges come from their own queries.
func (c *Contract) GameInfo(ctx context.Context, code string) (*core.Game, error) {
	out, err := c.call(ctx, "getGameInfo", code)
	if err != nil {
		return nil, err
	}
	var info struct {
		Host        common.Address
		Token       common.Address
		BuyIn       *big.Int
		MaxPlayers  *big.Int
		PlayerCount *big.Int
		Locked      bool
		PrizeSplits []*big.Int
	}
	if err := c.abi.UnpackIntoInterface(&info, "getGameInfo", out); err != nil {
		return nil, fmt.Errorf("unpack getGameInfo: %w", err)
	}
	return &core.Game{
		Code:        code,
		Host:        info.Host,
		Token:       info.Token,
		BuyIn:       info.BuyIn,
		MaxPlayers:  info.MaxPlayers.Uint64(),
		PlayerCount: info.PlayerCount.Uint64(),
		Locked:      info.Locked,
		PrizeSplits: splitsFromBig(info.PrizeSplits),
	}, nil
}

// Players lists the joined players for code.
func (c *Contract) Players(ctx context.Context, code string) ([]common.Address, error) {
	out, err := c.call(ctx, "getPlayers", code)
	if err != nil {
		return nil, err
	}
	var players []common.Address
	if err := c.abi.UnpackIntoInterface(&players, "getPlayers", out); err != nil {
		return nil, fmt.Errorf("unpack getPlayers: %w", err)
	}
	return players, nil
}

// Judges lists the in-game judges for code.
func (c *Contract) Judges(ctx context.Context, code string) ([]common.Address, error) {
	out, err := c.call(ctx, "getInGameJudges", code)
	if err != nil {
		return nil, err
	}
	var judges []common.Address
	if err := c.abi.UnpackIntoInterface(&judges, "getInGameJudges", out); err != nil {
		return nil, fmt.Errorf("unpack getInGameJudges: %w", err)
	}
	return judges, nil
}

// IsWinnerConfirmed asks the contract's per-address winner predicate.
func (c *Contract) IsWinnerConfirmed(ctx context.Context, code string, player common.Address) (bool, error) {
	out, err := c.call(ctx, "isWinnerConfirmed", code, player)
	if err != nil {
		return false, err
	}
	var confirmed bool
	if err := c.abi.UnpackIntoInterface(&confirmed, "isWinnerConfirmed", out); err != nil {
		return false, fmt.Errorf("unpack isWinnerConfirmed: %w", err)
	}
	return confirmed, nil
}

// WinnerStatuses runs the winner predicate for every known player. A
// lookup failure degrades to "not confirmed" for that player so one bad
// call cannot sink a whole detail load.
func (c *Contract) WinnerStatuses(ctx context.Context, code string, players []common.Address) core.WinnerStatus {
	status := make(core.WinnerStatus, len(players))
	for _, p := range players {
		confirmed, err := c.IsWinnerConfirmed(ctx, code, p)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"game":   code,
				"player": p.Hex(),
			}).Warn("winner check failed, treating as unconfirmed")
		}
		status[p] = confirmed
	}
	return status
}

// FullGame composes GameInfo, Players and Judges into one snapshot.
func (c *Contract) FullGame(ctx context.Context, code string) (*core.Game, error) {
	game, err := c.GameInfo(ctx, code)
	if err != nil {
		return nil, err
	}
	if game.Players, err = c.Players(ctx, code); err != nil {
		return nil, err
	}
	if game.Judges, err = c.Judges(ctx, code); err != nil {
		return nil, err
	}
	return game, nil
}

// CreateData builds createGame calldata.
func (c *Contract) CreateData(buyIn *big.Int, token common.Address, maxPlayers uint64) ([]byte, error) {
	return c.abi.Pack("createGame", buyIn, token, new(big.Int).SetUint64(maxPlayers))
}

// JoinData builds joinGame calldata.
func (c *Contract) JoinData(code string) ([]byte, error) {
	return c.abi.Pack("joinGame", code)
}

// LockData builds lockGame calldata.
func (c *Contract) LockData(code string) ([]byte, error) {
	return c.abi.Pack("lockGame", code)
}

// ReportWinnersData builds reportWinners calldata.
func (c *Contract) ReportWinnersData(code string, winners []common.Address) ([]byte, error) {
	return c.abi.Pack("reportWinners", code, winners)
}

// ClaimData builds claimWinnings calldata.
func (c *Contract) ClaimData(code string) ([]byte, error) {
	return c.abi.Pack("claimWinnings", code)
}

// SetPrizeSplitsData builds setPrizeSplits calldata.
func (c *Contract) SetPrizeSplitsData(code string, splits core.PrizeSplits) ([]byte, error) {
	return c.abi.Pack("setPrizeSplits", code, splitsToBig(splits))
}

// AddJudgeData builds addJudge calldata.
func (c *Contract) AddJudgeData(code string, judge common.Address) ([]byte, error) {
	return c.abi.Pack("addJudge", code, judge)
}

// SetJudgesData builds setJudges calldata.
func (c *Contract) SetJudgesData(code string, judges []common.Address) ([]byte, error) {
	return c.abi.Pack("setJudges", code, judges)
}

func splitsToBig(splits core.PrizeSplits) []*big.Int {
	out := make([]*big.Int, len(splits))
	for i, s := range splits {
		out[i] = new(big.Int).SetUint64(s)
	}
	return out
}

func splitsFromBig(raw []*big.Int) core.PrizeSplits {
	if len(raw) == 0 {
		return nil
	}
	splits := make(core.PrizeSplits, len(raw))
	for i, s := range raw {
		splits[i] = s.Uint64()
	}
	return splits
}
