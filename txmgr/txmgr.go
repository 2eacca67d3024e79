// Package txmgr drives every state-changing game action through one
// submit, confirm and interpret-failure protocol: validated
// preconditions first, a token-approval preflight where the buy-in is an
// ERC-20, gas-estimated submission with a single fixed-gas fallback, a
// bounded confirmation wait and substring-classified errors at the
// action boundary. No state survives an action; each carries its own
// transient record.
package txmgr

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jetsharklambo/pu2-toolkit/chain"
	"github.com/jetsharklambo/pu2-toolkit/core"
	"github.com/jetsharklambo/pu2-toolkit/pu2"
)

// FallbackGasLimit is the fixed gas ceiling used for the one retry after
// a rejected submission.
const FallbackGasLimit = 200000

// Backend is the slice of the chain client the orchestrator needs.
type Backend interface {
	SendSigned(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte, gasLimit uint64) (*types.Transaction, error)
	WaitReceipt(ctx context.Context, tx *types.Transaction, from common.Address, timeout time.Duration) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Status is the phase of one in-flight action.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusSubmitting      Status = "submitting"
	StatusAwaitingReceipt Status = "awaiting_receipt"
	StatusExtracting      Status = "extracting_result"
)

// Action records one state-changing request from submission to
// settlement. It never outlives the request.
type Action struct {
	ID       uuid.UUID
	Kind     string
	Game     string
	Status   Status
	Message  string
	TxHash   common.Hash
	GameCode string // set by CreateGame once the code is recovered
}

// Config tunes one Manager.
type Config struct {
	ConfirmTimeout time.Duration
	FallbackGas    uint64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ConfirmTimeout: chain.DefaultConfirmTimeout,
		FallbackGas:    FallbackGasLimit,
	}
}

// Manager orchestrates game actions for one signing key against one
// bound contract.
type Manager struct {
	backend  Backend
	contract *pu2.Contract
	key      *ecdsa.PrivateKey
	from     common.Address
	cfg      Config

	onSettle func(game string)
	onUpdate func(a Action)
}

// New builds a Manager. The signing key is required; without one no
// action can be submitted.
func New(backend Backend, contract *pu2.Contract, key *ecdsa.PrivateKey, cfg Config) (*Manager, error) {
	if key == nil {
		return nil, errors.New("signing key required")
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = chain.DefaultConfirmTimeout
	}
	if cfg.FallbackGas == 0 {
		cfg.FallbackGas = FallbackGasLimit
	}
	return &Manager{
		backend:  backend,
		contract: contract,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		cfg:      cfg,
	}, nil
}

// From returns the acting address.
func (m *Manager) From() common.Address {
	return m.from
}

// OnSettle registers a hook invoked with the game code after any
// confirmed action, so callers can refresh derived state.
func (m *Manager) OnSettle(fn func(game string)) {
	m.onSettle = fn
}

// OnUpdate registers a hook invoked on every action status change.
func (m *Manager) OnUpdate(fn func(a Action)) {
	m.onUpdate = fn
}

func (m *Manager) newAction(kind, game string) *Action {
	return &Action{ID: uuid.New(), Kind: kind, Game: game, Status: StatusIdle}
}

func (m *Manager) transition(a *Action, status Status, message string) {
	a.Status = status
	a.Message = message
	log.WithFields(log.Fields{
		"action": a.ID,
		"kind":   a.Kind,
		"game":   a.Game,
		"status": status,
	}).Info(message)
	if m.onUpdate != nil {
		m.onUpdate(*a)
	}
}

// fail classifies err, parks the action back at idle and returns the
// classified error.
func (m *Manager) fail(a *Action, g *core.Game, err error) error {
	ae := Classify(err, g)
	a.Status = StatusIdle
	a.Message = ae.Message
	log.WithFields(log.Fields{
		"action": a.ID,
		"kind":   a.Kind,
		"game":   a.Game,
		"cause":  ae.Kind,
	}).WithError(err).Error(ae.Message)
	if m.onUpdate != nil {
		m.onUpdate(*a)
	}
	return ae
}

func (m *Manager) failValidation(a *Action, msg string) error {
	return m.fail(a, nil, &ActionError{Kind: KindValidation, Message: msg})
}

func (m *Manager) settle(a *Action, receipt *types.Receipt) {
	a.Status = StatusIdle
	a.Message = "confirmed"
	log.WithFields(log.Fields{
		"action": a.ID,
		"kind":   a.Kind,
		"game":   a.Game,
		"tx":     a.TxHash.Hex(),
		"block":  receipt.BlockNumber,
	}).Info("action confirmed")
	if m.onUpdate != nil {
		m.onUpdate(*a)
	}
	if m.onSettle != nil {
		m.onSettle(a.Game)
	}
}

// gasPolicy describes one submission attempt. A zero limit defers to
// node-side estimation.
type gasPolicy struct {
	name  string
	limit uint64
}

// submit walks the attempt ladder: estimation first, then one retry at
// the fixed fallback limit. The returned transaction comes from
// whichever attempt the node accepted; the error is the last rejection.
func (m *Manager) submit(ctx context.Context, a *Action, to common.Address, value *big.Int, data []byte) (*types.Transaction, error) {
	policies := []gasPolicy{
		{name: "estimated"},
		{name: "fixed", limit: m.cfg.FallbackGas},
	}
	var lastErr error
	for _, p := range policies {
		tx, err := m.backend.SendSigned(ctx, m.key, to, value, data, p.limit)
		if err == nil {
			return tx, nil
		}
		lastErr = err
		log.WithFields(log.Fields{
			"action":  a.ID,
			"attempt": p.name,
		}).WithError(err).Warn("submission rejected")
	}
	return nil, lastErr
}

// run drives one transaction through the uniform submit and confirm
// protocol. The game snapshot g, when known, feeds the revert message
// context; it may be nil.
func (m *Manager) run(ctx context.Context, a *Action, g *core.Game, value *big.Int, data []byte) (*types.Receipt, error) {
	m.transition(a, StatusSubmitting, "submitting transaction")
	tx, err := m.submit(ctx, a, m.contract.Addr(), value, data)
	if err != nil {
		return nil, m.fail(a, g, err)
	}
	a.TxHash = tx.Hash()
	m.transition(a, StatusAwaitingReceipt, "waiting for confirmation")
	receipt, err := m.backend.WaitReceipt(ctx, tx, m.from, m.cfg.ConfirmTimeout)
	if err != nil {
		return nil, m.fail(a, g, err)
	}
	return receipt, nil
}
