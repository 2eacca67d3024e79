package txmgr

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jetsharklambo/pu2-toolkit/core"
	"github.com/jetsharklambo/pu2-toolkit/erc20"
)

// CreateParams describes a game to be created. A zero Token means the
// buy-in is native currency and travels as transaction value.
type CreateParams struct {
	BuyIn      *big.Int
	Token      common.Address
	MaxPlayers uint64
}

// CreateGame submits game creation and recovers the assigned code from
// the receipt. The recovered code lands in Action.GameCode; when every
// recovery strategy fails it is a synthetic placeholder derived from
// the transaction hash.
func (m *Manager) CreateGame(ctx context.Context, params CreateParams) (*Action, error) {
	a := m.newAction("create", "")
	if params.BuyIn == nil || params.BuyIn.Sign() <= 0 {
		return a, m.failValidation(a, "buy-in amount required")
	}
	if params.MaxPlayers < 2 {
		return a, m.failValidation(a, "a game needs room for at least two players")
	}
	data, err := m.contract.CreateData(params.BuyIn, params.Token, params.MaxPlayers)
	if err != nil {
		return a, m.fail(a, nil, err)
	}
	var value *big.Int
	if params.Token == (common.Address{}) {
		value = params.BuyIn
	}
	receipt, err := m.run(ctx, a, nil, value, data)
	if err != nil {
		return a, err
	}
	m.transition(a, StatusExtracting, "recovering game code from receipt")
	a.GameCode = m.extractGameCode(ctx, a.TxHash, receipt)
	a.Game = a.GameCode
	m.settle(a, receipt)
	return a, nil
}

// JoinGame buys the caller into g. Token games run the approval
// preflight before the join is submitted; native games attach the
// buy-in as value.
func (m *Manager) JoinGame(ctx context.Context, g *core.Game) (*Action, error) {
	a := m.newAction("join", g.Code)
	if g.BuyIn == nil {
		return a, m.failValidation(a, "buy-in amount unknown, refresh the game first")
	}
	if g.IsFull() {
		return a, m.failValidation(a, fmt.Sprintf("game is full (%d/%d players)", g.PlayerCount, g.MaxPlayers))
	}
	value := g.BuyIn
	if g.UsesToken() {
		value = nil
		if err := m.ensureAllowance(ctx, a, g); err != nil {
			return a, err
		}
	}
	data, err := m.contract.JoinData(g.Code)
	if err != nil {
		return a, m.fail(a, g, err)
	}
	receipt, err := m.run(ctx, a, g, value, data)
	if err != nil {
		return a, err
	}
	m.settle(a, receipt)
	return a, nil
}

// ensureAllowance runs the ERC-20 preflight: read the current
// allowance, approve the buy-in when short and wait out the approval
// receipt. Any failure here aborts the join before it is submitted.
func (m *Manager) ensureAllowance(ctx context.Context, a *Action, g *core.Game) error {
	current, err := erc20.Allowance(ctx, m.backend, g.Token, m.from, m.contract.Addr())
	if err != nil {
		return m.fail(a, g, fmt.Errorf("allowance check: %w", err))
	}
	if current.Cmp(g.BuyIn) >= 0 {
		return nil
	}
	data, err := erc20.ApproveData(m.contract.Addr(), g.BuyIn)
	if err != nil {
		return m.fail(a, g, err)
	}
	m.transition(a, StatusSubmitting, "approving token spend")
	tx, err := m.submit(ctx, a, g.Token, nil, data)
	if err != nil {
		return m.fail(a, g, fmt.Errorf("token approval: %w", err))
	}
	m.transition(a, StatusAwaitingReceipt, "waiting for approval confirmation")
	if _, err := m.backend.WaitReceipt(ctx, tx, m.from, m.cfg.ConfirmTimeout); err != nil {
		return m.fail(a, g, fmt.Errorf("token approval: %w", err))
	}
	return nil
}

// LockGame closes entry to the game so winners can be reported.
func (m *Manager) LockGame(ctx context.Context, code string) (*Action, error) {
	a := m.newAction("lock", code)
	if !core.IsGameCode(code) {
		return a, m.failValidation(a, fmt.Sprintf("invalid game code %q", code))
	}
	data, err := m.contract.LockData(code)
	if err != nil {
		return a, m.fail(a, nil, err)
	}
	receipt, err := m.run(ctx, a, nil, nil, data)
	if err != nil {
		return a, err
	}
	m.settle(a, receipt)
	return a, nil
}

// ReportWinners submits the winner set for a locked game. The set must
// match the game's prize structure exactly: one winner for a
// winner-takes-all game, one per configured split otherwise.
func (m *Manager) ReportWinners(ctx context.Context, g *core.Game, winners []common.Address) (*Action, error) {
	a := m.newAction("report", g.Code)
	if !g.Locked {
		return a, m.failValidation(a, "game must be locked before reporting winners")
	}
	need := g.PrizeSplits.RequiredWinners()
	if len(winners) != need {
		return a, m.failValidation(a, fmt.Sprintf("prize structure requires exactly %d winners, got %d", need, len(winners)))
	}
	for _, w := range winners {
		if w == (common.Address{}) {
			return a, m.failValidation(a, "winner address missing")
		}
	}
	data, err := m.contract.ReportWinnersData(g.Code, winners)
	if err != nil {
		return a, m.fail(a, g, err)
	}
	receipt, err := m.run(ctx, a, g, nil, data)
	if err != nil {
		return a, err
	}
	m.settle(a, receipt)
	return a, nil
}

// ClaimWinnings pulls the caller's share out of a settled game. There
// is no client-side winner check; the contract is the authority on who
// may claim.
func (m *Manager) ClaimWinnings(ctx context.Context, code string) (*Action, error) {
	a := m.newAction("claim", code)
	if !core.IsGameCode(code) {
		return a, m.failValidation(a, fmt.Sprintf("invalid game code %q", code))
	}
	data, err := m.contract.ClaimData(code)
	if err != nil {
		return a, m.fail(a, nil, err)
	}
	receipt, err := m.run(ctx, a, nil, nil, data)
	if err != nil {
		return a, err
	}
	m.settle(a, receipt)
	return a, nil
}

// SetPrizeSplits configures the payout structure before winners are
// reported.
func (m *Manager) SetPrizeSplits(ctx context.Context, code string, splits core.PrizeSplits) (*Action, error) {
	a := m.newAction("splits", code)
	if !core.IsGameCode(code) {
		return a, m.failValidation(a, fmt.Sprintf("invalid game code %q", code))
	}
	if err := splits.Validate(); err != nil {
		return a, m.failValidation(a, err.Error())
	}
	data, err := m.contract.SetPrizeSplitsData(code, splits)
	if err != nil {
		return a, m.fail(a, nil, err)
	}
	receipt, err := m.run(ctx, a, nil, nil, data)
	if err != nil {
		return a, err
	}
	m.settle(a, receipt)
	return a, nil
}

// AddJudge appoints one judge to the game.
func (m *Manager) AddJudge(ctx context.Context, code string, judge common.Address) (*Action, error) {
	a := m.newAction("judge", code)
	if !core.IsGameCode(code) {
		return a, m.failValidation(a, fmt.Sprintf("invalid game code %q", code))
	}
	if judge == (common.Address{}) {
		return a, m.failValidation(a, "judge address missing")
	}
	data, err := m.contract.AddJudgeData(code, judge)
	if err != nil {
		return a, m.fail(a, nil, err)
	}
	receipt, err := m.run(ctx, a, nil, nil, data)
	if err != nil {
		return a, err
	}
	m.settle(a, receipt)
	return a, nil
}

// SetJudges replaces the game's judge set. An empty set clears it.
func (m *Manager) SetJudges(ctx context.Context, code string, judges []common.Address) (*Action, error) {
	a := m.newAction("judges", code)
	if !core.IsGameCode(code) {
		return a, m.failValidation(a, fmt.Sprintf("invalid game code %q", code))
	}
	for _, j := range judges {
		if j == (common.Address{}) {
			return a, m.failValidation(a, "judge address missing")
		}
	}
	data, err := m.contract.SetJudgesData(code, judges)
	if err != nil {
		return a, m.fail(a, nil, err)
	}
	receipt, err := m.run(ctx, a, nil, nil, data)
	if err != nil {
		return a, err
	}
	m.settle(a, receipt)
	return a, nil
}
