// Package claims reconciles which confirmed winners of a game already
// executed their on-chain claim, by scanning a bounded window of
// historical WinningsClaimed events. The result is best-effort
// enrichment: the contract remains the authority, every failure path
// degrades to "not claimed" and nothing is cached between scans.
package claims

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jetsharklambo/pu2-toolkit/abidec"
	"github.com/jetsharklambo/pu2-toolkit/core"
)

const (
	// DefaultWindow is the historical block range scanned per pass. Most
	// RPC providers cap log-query ranges; 50000 blocks stays under the
	// common caps at the cost of missing older claims.
	DefaultWindow = 50000

	// DefaultWorkers bounds the per-address query fan-out. Prize tables
	// cap winners at five, so five workers never queue in practice.
	DefaultWorkers = 5

	// DefaultRate caps eth_getLogs requests per second across workers.
	DefaultRate rate.Limit = 20

	// fallbackHead stands in for the chain head when eth_blockNumber
	// fails. Scanning an arbitrary window beats aborting the load: claim
	// status is advisory.
	fallbackHead = 99999999
)

// RPC is the raw JSON-RPC surface the scanner drives.
type RPC interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Config tunes one Scanner.
type Config struct {
	Window  uint64
	Workers int
	Rate    rate.Limit
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Window:  DefaultWindow,
		Workers: DefaultWorkers,
		Rate:    DefaultRate,
	}
}

// Scanner resolves claim status for winner addresses of one contract.
type Scanner struct {
	rpc      RPC
	contract common.Address
	topic    common.Hash
	window   uint64
	workers  int
	limiter  *rate.Limiter
}

// New builds a Scanner for the deployment at contract, matching events
// whose first topic equals topic.
func New(rpcClient RPC, contract common.Address, topic common.Hash, cfg Config) *Scanner {
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	return &Scanner{
		rpc:      rpcClient,
		contract: contract,
		topic:    topic,
		window:   cfg.Window,
		workers:  cfg.Workers,
		limiter:  rate.NewLimiter(cfg.Rate, cfg.Workers),
	}
}

// Scan reports which winners already claimed winnings for code within
// the scanned block window. Failures never propagate: a per-address
// error means that address reads as unclaimed, a total failure means an
// empty set.
func (s *Scanner) Scan(ctx context.Context, code string, winners []common.Address) core.ClaimedSet {
	claimed := make(core.ClaimedSet)
	if len(winners) == 0 {
		return claimed
	}

	head := s.head(ctx)
	var from uint64
	if head > s.window {
		from = head - s.window
	}

	workers := s.workers
	if workers > len(winners) {
		workers = len(winners)
	}

	jobs := make(chan common.Address)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range jobs {
				ok, err := s.scanAddress(ctx, code, addr, from, head)
				if err != nil {
					log.WithError(err).WithFields(log.Fields{
						"game":   code,
						"winner": addr.Hex(),
					}).Warn("claim lookup failed, treating as unclaimed")
					continue
				}
				if ok {
					mu.Lock()
					claimed[addr] = true
					mu.Unlock()
				}
			}
		}()
	}
	for _, w := range winners {
		jobs <- w
	}
	close(jobs)
	wg.Wait()

	return claimed
}

// head resolves the current block height, degrading to the placeholder
// constant on any failure.
func (s *Scanner) head(ctx context.Context) uint64 {
	var raw string
	if err := s.rpc.CallContext(ctx, &raw, "eth_blockNumber"); err != nil {
		log.WithError(err).Warnf("eth_blockNumber failed, scanning below placeholder height %d", fallbackHead)
		return fallbackHead
	}
	head, err := hexutil.DecodeUint64(raw)
	if err != nil {
		log.WithError(err).Warnf("bad eth_blockNumber result %q, scanning below placeholder height %d", raw, fallbackHead)
		return fallbackHead
	}
	return head
}

// scanAddress runs one winner's eth_getLogs query and decodes the
// returned payloads until one matches code exactly.
func (s *Scanner) scanAddress(ctx context.Context, code string, winner common.Address, from, to uint64) (bool, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}
	filter := map[string]interface{}{
		"fromBlock": fmt.Sprintf("0x%x", from),
		"toBlock":   fmt.Sprintf("0x%x", to),
		"address":   s.contract,
		"topics": []interface{}{
			s.topic,
			common.BytesToHash(winner.Bytes()),
		},
	}
	var logs []types.Log
	if err := s.rpc.CallContext(ctx, &logs, "eth_getLogs", filter); err != nil {
		return false, err
	}
	for _, entry := range logs {
		claim := abidec.DecodeClaim(hexutil.Encode(entry.Data))
		if claim == nil {
			log.WithFields(log.Fields{
				"game": code,
				"tx":   entry.TxHash.Hex(),
			}).Debug("skipping undecodable claim payload")
			continue
		}
		if claim.Code == code {
			return true, nil
		}
	}
	return false, nil
}
