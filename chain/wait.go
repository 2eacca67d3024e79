package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultConfirmTimeout bounds how long a confirmation wait may block
// before the caller is told to check transaction history instead.
const DefaultConfirmTimeout = 60 * time.Second

// ErrTimeoutReached reports that a confirmation wait gave up. The
// transaction may still land later.
var ErrTimeoutReached = errors.New("timeout reached")

// WaitReceipt blocks until tx is mined or timeout elapses. A failed
// receipt is resolved to its revert reason when one can be recovered.
func (c *Client) WaitReceipt(ctx context.Context, tx *types.Transaction, from common.Address, timeout time.Duration) (*types.Receipt, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, c, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeoutReached
		}
		return nil, fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		reason, rerr := RevertReason(ctx, c, tx, from, receipt.BlockNumber)
		if rerr != nil {
			return receipt, errors.New("execution reverted")
		}
		return receipt, fmt.Errorf("execution reverted: %s", reason)
	}
	return receipt, nil
}

// RevertReason re-executes the transaction's call at blockNumber and
// unpacks the Error(string) payload the node returns for it.
func RevertReason(ctx context.Context, caller ethereum.ContractCaller, tx *types.Transaction, from common.Address, blockNumber *big.Int) (string, error) {
	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}
	ret, err := caller.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return "", fmt.Errorf("replay call: %w", err)
	}
	reason, err := abi.UnpackRevert(ret)
	if err != nil {
		return "", fmt.Errorf("unpack revert: %w", err)
	}
	return reason, nil
}
