// Package abidec decodes the two ABI payload shapes this system consumes:
// the WinningsClaimed event body (string code, uint256 amount) and bare
// dynamic string bodies. Byte-level parsing is delegated to the go-ethereum
// codec; the surrounding checks keep the historical contract that malformed
// input yields a nil or empty result and never a panic, so callers can treat
// any failure as "no match".
package abidec

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	wordBytes = 32

	// minClaimBytes is the smallest claim payload that can carry a head:
	// the offset word, the amount word and the string length word.
	minClaimBytes = 3 * wordBytes

	// maxCodeBytes is a sanity bound on decoded string length, not a
	// protocol limit. Real game codes stay at or below 10 characters.
	maxCodeBytes = 100
)

var (
	claimArgs  abi.Arguments
	stringArgs abi.Arguments
)

func init() {
	stringT, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	claimArgs = abi.Arguments{{Type: stringT}, {Type: uint256T}}
	stringArgs = abi.Arguments{{Type: stringT}}
}

// Claim is one decoded WinningsClaimed payload.
type Claim struct {
	Code   string
	Amount *big.Int
}

// DecodeClaim interprets data as the ABI encoding of (string code,
// uint256 amount) and returns nil for anything it cannot decode. The
// amount is unsigned; render it with Amount.String() at presentation
// boundaries.
func DecodeClaim(data string) *Claim {
	raw, ok := cleanHex(data)
	if !ok || len(raw) < minClaimBytes {
		return nil
	}
	vals, err := claimArgs.Unpack(raw)
	if err != nil || len(vals) != 2 {
		return nil
	}
	code, ok := vals[0].(string)
	if !ok {
		return nil
	}
	amount, ok := vals[1].(*big.Int)
	if !ok {
		return nil
	}
	code, ok = sanitizeCode(code)
	if !ok {
		return nil
	}
	return &Claim{Code: code, Amount: amount}
}

// DecodeString interprets data as a bare ABI-encoded dynamic string and
// returns "" when it cannot. Plausibility filtering of the result (code
// charset and length) is the caller's job.
func DecodeString(data string) string {
	raw, ok := cleanHex(data)
	if !ok || len(raw) < 2*wordBytes {
		return ""
	}
	vals, err := stringArgs.Unpack(raw)
	if err != nil || len(vals) != 1 {
		return ""
	}
	s, ok := vals[0].(string)
	if !ok {
		return ""
	}
	s, _ = sanitizeCode(s)
	return s
}

// sanitizeCode applies the length sanity bound and the null-terminator
// convention: the string is cut at the first zero byte and rejected when
// empty or longer than maxCodeBytes.
func sanitizeCode(s string) (string, bool) {
	if len(s) == 0 || len(s) > maxCodeBytes {
		return "", false
	}
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "", false
	}
	return s, true
}

func cleanHex(data string) ([]byte, bool) {
	s := strings.TrimPrefix(data, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return raw, true
}
