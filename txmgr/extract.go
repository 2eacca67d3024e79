package txmgr

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"

	"github.com/jetsharklambo/pu2-toolkit/abidec"
	"github.com/jetsharklambo/pu2-toolkit/core"
	"github.com/jetsharklambo/pu2-toolkit/pu2"
)

// extractGameCode recovers the code the contract assigned to a freshly
// created game. Strategies run in order of trust: the creation event in
// the receipt, a heuristic scan of every receipt log payload, a log
// re-query by block and topic for receipts delivered without logs, and
// finally a synthetic placeholder derived from the transaction hash so
// the caller always gets something displayable.
func (m *Manager) extractGameCode(ctx context.Context, txHash common.Hash, receipt *types.Receipt) string {
	if code := codeFromReceipt(receipt); code != "" {
		return code
	}
	if code := codeFromLogData(receipt); code != "" {
		log.WithField("code", code).Debug("game code recovered by payload scan")
		return code
	}
	if code := m.codeFromChain(ctx, txHash, receipt); code != "" {
		log.WithField("code", code).Debug("game code recovered by log re-query")
		return code
	}
	code := syntheticCode(txHash)
	log.WithFields(log.Fields{
		"tx":   txHash.Hex(),
		"code": code,
	}).Warn("game code not recoverable, using synthetic placeholder")
	return code
}

// codeFromReceipt decodes the creation event carried in the receipt.
func codeFromReceipt(receipt *types.Receipt) string {
	for _, entry := range receipt.Logs {
		if len(entry.Topics) == 0 || entry.Topics[0] != pu2.GameCreatedID {
			continue
		}
		code := abidec.DecodeString(common.Bytes2Hex(entry.Data))
		if core.IsGameCode(code) {
			return code
		}
	}
	return ""
}

// codeFromLogData scans every receipt log payload for a word that reads
// as a game code, catching contracts that emit it under an unexpected
// event shape.
func codeFromLogData(receipt *types.Receipt) string {
	for _, entry := range receipt.Logs {
		code := abidec.ScanWords(common.Bytes2Hex(entry.Data))
		if core.IsGameCode(code) {
			return code
		}
	}
	return ""
}

// codeFromChain re-queries the creation event by block and topic,
// covering receipts that arrived without their logs.
func (m *Manager) codeFromChain(ctx context.Context, txHash common.Hash, receipt *types.Receipt) string {
	query := ethereum.FilterQuery{
		FromBlock: receipt.BlockNumber,
		ToBlock:   receipt.BlockNumber,
		Addresses: []common.Address{m.contract.Addr()},
		Topics:    [][]common.Hash{{pu2.GameCreatedID}},
	}
	entries, err := m.backend.FilterLogs(ctx, query)
	if err != nil {
		log.WithError(err).Debug("creation event re-query failed")
		return ""
	}
	for _, entry := range entries {
		if entry.TxHash != txHash {
			continue
		}
		code := abidec.DecodeString(common.Bytes2Hex(entry.Data))
		if core.IsGameCode(code) {
			return code
		}
	}
	return ""
}

// syntheticCode derives a display-only placeholder from the transaction
// hash. It is not a joinable code; the real one appears once a later
// lookup sees the creation event.
func syntheticCode(txHash common.Hash) string {
	hex := txHash.Hex()
	return "GAME-" + strings.ToUpper(hex[len(hex)-6:])
}
