// Package erc20 carries the minimal token surface the buy-in approval
// preflight needs.
package erc20

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const tokenJSON = `[
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"remaining","type":"uint256"}]},
{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"success","type":"bool"}]}
]`

var tokenABI = mustParse(tokenJSON)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Caller is the read half of the chain client the token views need.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Allowance reads the spender allowance owner granted on token.
func Allowance(ctx context.Context, caller Caller, token, owner, spender common.Address) (*big.Int, error) {
	data, err := tokenABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call allowance: %w", err)
	}
	var remaining *big.Int
	if err := tokenABI.UnpackIntoInterface(&remaining, "allowance", out); err != nil {
		return nil, fmt.Errorf("unpack allowance: %w", err)
	}
	return remaining, nil
}

// ApproveData builds approve calldata letting spender draw up to amount.
func ApproveData(spender common.Address, amount *big.Int) ([]byte, error) {
	return tokenABI.Pack("approve", spender, amount)
}
