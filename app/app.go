// Package app assembles the contract reader, the claim scanner and the
// transaction orchestrator behind one use-case surface shared by the
// HTTP API and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/jetsharklambo/pu2-toolkit/core"
	"github.com/jetsharklambo/pu2-toolkit/txmgr"
)

// GameReader loads game state from the contract.
type GameReader interface {
	GameInfo(ctx context.Context, code string) (*core.Game, error)
	FullGame(ctx context.Context, code string) (*core.Game, error)
	WinnerStatuses(ctx context.Context, code string, players []common.Address) core.WinnerStatus
}

// ClaimScanner reconciles confirmed winners against observed claim
// events.
type ClaimScanner interface {
	Scan(ctx context.Context, code string, winners []common.Address) core.ClaimedSet
}

// ActionRunner submits state-changing game actions.
type ActionRunner interface {
	CreateGame(ctx context.Context, params txmgr.CreateParams) (*txmgr.Action, error)
	JoinGame(ctx context.Context, g *core.Game) (*txmgr.Action, error)
	LockGame(ctx context.Context, code string) (*txmgr.Action, error)
	ReportWinners(ctx context.Context, g *core.Game, winners []common.Address) (*txmgr.Action, error)
	ClaimWinnings(ctx context.Context, code string) (*txmgr.Action, error)
	SetPrizeSplits(ctx context.Context, code string, splits core.PrizeSplits) (*txmgr.Action, error)
	AddJudge(ctx context.Context, code string, judge common.Address) (*txmgr.Action, error)
	SetJudges(ctx context.Context, code string, judges []common.Address) (*txmgr.Action, error)
}

// App is the façade over one contract deployment. A nil runner puts it
// in read-only mode.
type App struct {
	games   GameReader
	claims  ClaimScanner
	actions ActionRunner
}

// New wires an App. actions may be nil when no signing key is
// configured.
func New(games GameReader, claims ClaimScanner, actions ActionRunner) *App {
	return &App{games: games, claims: claims, actions: actions}
}

// Snapshot is one complete read of a game: contract state, per-player
// winner verdicts and the advisory claim reconciliation.
type Snapshot struct {
	Game    *core.Game
	Winners core.WinnerStatus
	Claimed core.ClaimedSet
}

// Snapshot loads the game, asks the contract who won and reconciles
// those winners against claim events. Reconciliation is advisory; a
// snapshot never fails because the scan did.
func (a *App) Snapshot(ctx context.Context, code string) (*Snapshot, error) {
	if !core.IsGameCode(code) {
		return nil, fmt.Errorf("invalid game code %q", code)
	}
	g, err := a.games.FullGame(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", code, err)
	}
	winners := a.games.WinnerStatuses(ctx, code, g.Players)
	confirmed := core.ConfirmedWinners(g.Players, winners)
	claimed := a.claims.Scan(ctx, code, confirmed)
	return &Snapshot{Game: g, Winners: winners, Claimed: claimed}, nil
}

func (a *App) writable() error {
	if a.actions == nil {
		return &txmgr.ActionError{Kind: txmgr.KindValidation, Message: "no signing key configured, running read-only"}
	}
	return nil
}

// Create starts a new game.
func (a *App) Create(ctx context.Context, params txmgr.CreateParams) (*txmgr.Action, error) {
	if err := a.writable(); err != nil {
		return nil, err
	}
	return a.actions.CreateGame(ctx, params)
}

// Join buys the configured key into the game. The current game state is
// loaded first so the buy-in and occupancy checks see fresh numbers.
func (a *App) Join(ctx context.Context, code string) (*txmgr.Action, error) {
	if err := a.writable(); err != nil {
		return nil, err
	}
	if !core.IsGameCode(code) {
		return nil, &txmgr.ActionError{Kind: txmgr.KindValidation, Message: fmt.Sprintf("invalid game code %q", code)}
	}
	g, err := a.games.GameInfo(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", code, err)
	}
	return a.actions.JoinGame(ctx, g)
}

// Lock closes entry to the game.
func (a *App) Lock(ctx context.Context, code string) (*txmgr.Action, error) {
	if err := a.writable(); err != nil {
		return nil, err
	}
	return a.actions.LockGame(ctx, code)
}

// ReportWinners submits the winner set against the game's current prize
// structure.
func (a *App) ReportWinners(ctx context.Context, code string, winners []common.Address) (*txmgr.Action, error) {
	if err := a.writable(); err != nil {
		return nil, err
	}
	if !core.IsGameCode(code) {
		return nil, &txmgr.ActionError{Kind: txmgr.KindValidation, Message: fmt.Sprintf("invalid game code %q", code)}
	}
	g, err := a.games.GameInfo(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", code, err)
	}
	return a.actions.ReportWinners(ctx, g, winners)
}

// Claim pulls the configured key's winnings.
func (a *App) Claim(ctx context.Context, code string) (*txmgr.Action, error) {
	if err := a.writable(); err != nil {
		return nil, err
	}
	return a.actions.ClaimWinnings(ctx, code)
}

// SetSplits configures the payout structure.
func (a *App) SetSplits(ctx context.Context, code string, splits core.PrizeSplits) (*txmgr.Action, error) {
	if err := a.writable(); err != nil {
		return nil, err
	}
	return a.actions.SetPrizeSplits(ctx, code, splits)
}

// AddJudge appoints one judge.
func (a *App) AddJudge(ctx context.Context, code string, judge common.Address) (*txmgr.Action, error) {
	if err := a.writable(); err != nil {
		return nil, err
	}
	return a.actions.AddJudge(ctx, code, judge)
}

// SetJudges replaces the judge set.
func (a *App) SetJudges(ctx context.Context, code string, judges []common.Address) (*txmgr.Action, error) {
	if err := a.writable(); err != nil {
		return nil, err
	}
	return a.actions.SetJudges(ctx, code, judges)
}
