package txmgr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jetsharklambo/pu2-toolkit/chain"
	"github.com/jetsharklambo/pu2-toolkit/core"
)

// Kind groups classified failures so callers can map them to HTTP
// status codes or exit codes without re-parsing messages.
type Kind string

const (
	KindValidation Kind = "validation" // rejected before any submission
	KindRejected   Kind = "rejected"   // node or wallet refused the transaction
	KindReverted   Kind = "reverted"   // mined but execution reverted
	KindTimeout    Kind = "timeout"    // confirmation wait expired
	KindUnknown    Kind = "unknown"
)

// ActionError is a failure translated for the user. Err retains the
// underlying cause for logs.
type ActionError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// rule maps a known substring of a node or wallet error to a message a
// player can act on. Ordering matters: the first match wins.
type rule struct {
	contains string
	kind     Kind
	message  string
}

var rules = []rule{
	{"user rejected", KindRejected, "Transaction rejected in wallet."},
	{"insufficient funds", KindRejected, "Insufficient funds to cover the buy-in and gas."},
	{"replacement fee too low", KindRejected, "A previous transaction is still pending. Wait for it or speed it up in your wallet."},
	{"transfer amount exceeds allowance", KindReverted, "Token approval is too low for this buy-in. Approve again and retry."},
	{"Incorrect buy-in", KindReverted, "The buy-in sent does not match what this game requires."},
	{"nonce too low", KindRejected, "Transaction nonce conflict. Retry in a moment."},
	{"already known", KindRejected, "This transaction was already submitted. Wait for it to confirm."},
}

const timeoutMessage = "Confirmation timed out. The transaction may still land; check your transaction history before retrying."

// Classify translates err into an ActionError. A game snapshot, when
// available, adds player-count context to otherwise opaque reverts; g
// may be nil.
func Classify(err error, g *core.Game) *ActionError {
	if err == nil {
		return nil
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, chain.ErrTimeoutReached) {
		return &ActionError{Kind: KindTimeout, Message: timeoutMessage, Err: err}
	}
	raw := err.Error()
	for _, r := range rules {
		if strings.Contains(raw, r.contains) {
			return &ActionError{Kind: r.kind, Message: r.message, Err: err}
		}
	}
	if strings.Contains(raw, "execution reverted") {
		return &ActionError{Kind: KindReverted, Message: revertMessage(raw, g), Err: err}
	}
	return &ActionError{Kind: KindUnknown, Message: raw, Err: err}
}

// revertMessage surfaces the contract's own reason string when the node
// relayed one, otherwise falls back to a generic line enriched with the
// game's occupancy so a full game reads as such.
func revertMessage(raw string, g *core.Game) string {
	if detail := revertDetail(raw); detail != "" {
		return detail
	}
	msg := "The contract rejected this action."
	if g != nil && g.MaxPlayers > 0 {
		msg = fmt.Sprintf("%s The game currently has %d/%d players.", msg, g.PlayerCount, g.MaxPlayers)
	}
	return msg
}

// revertDetail extracts the reason following "execution reverted:", if
// any.
func revertDetail(raw string) string {
	const marker = "execution reverted:"
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(raw[idx+len(marker):])
}
