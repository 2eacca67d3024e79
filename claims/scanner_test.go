package claims

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeRPC struct {
	mu      sync.Mutex
	head    string
	headErr error
	logsFor map[common.Address][]types.Log
	errFor  map[common.Address]error
	filters []map[string]interface{}
}

func (f *fakeRPC) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch method {
	case "eth_blockNumber":
		if f.headErr != nil {
			return f.headErr
		}
		*(result.(*string)) = f.head
		return nil
	case "eth_getLogs":
		filter := args[0].(map[string]interface{})
		f.filters = append(f.filters, filter)
		topics := filter["topics"].([]interface{})
		winner := common.BytesToAddress(topics[1].(common.Hash).Bytes())
		if err := f.errFor[winner]; err != nil {
			return err
		}
		*(result.(*[]types.Log)) = f.logsFor[winner]
		return nil
	default:
		return fmt.Errorf("unexpected method %s", method)
	}
}

func claimData(t *testing.T, code string, amount int64) []byte {
	t.Helper()
	stringT, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	uint256T, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	data, err := abi.Arguments{{Type: stringT}, {Type: uint256T}}.Pack(code, big.NewInt(amount))
	require.NoError(t, err)
	return data
}

func testConfig() Config {
	return Config{Window: 50000, Workers: 2, Rate: rate.Inf}
}

var (
	contractAddr = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	claimTopic   = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000e1")
)

func TestScanMarksMatchingWinner(t *testing.T) {
	w := common.HexToAddress("0x0000000000000000000000000000000000000001")
	rpc := &fakeRPC{
		head: "0x186a0",
		logsFor: map[common.Address][]types.Log{
			w: {{Data: claimData(t, "ABC123", 1000)}},
		},
	}
	s := New(rpc, contractAddr, claimTopic, testConfig())

	claimed := s.Scan(context.Background(), "ABC123", []common.Address{w})
	require.True(t, claimed[w])

	claimed = s.Scan(context.Background(), "XYZ999", []common.Address{w})
	require.Empty(t, claimed)
}

func TestScanSkipsUndecodablePayloads(t *testing.T) {
	w := common.HexToAddress("0x0000000000000000000000000000000000000002")
	rpc := &fakeRPC{
		head: "0x186a0",
		logsFor: map[common.Address][]types.Log{
			w: {
				{Data: []byte{0x01, 0x02}},
				{Data: claimData(t, "ABC123", 500)},
			},
		},
	}
	s := New(rpc, contractAddr, claimTopic, testConfig())

	claimed := s.Scan(context.Background(), "ABC123", []common.Address{w})
	require.True(t, claimed[w])
}

func TestScanIsolatesAddressFailures(t *testing.T) {
	w1 := common.HexToAddress("0x0000000000000000000000000000000000000001")
	w2 := common.HexToAddress("0x0000000000000000000000000000000000000002")
	rpc := &fakeRPC{
		head: "0x186a0",
		logsFor: map[common.Address][]types.Log{
			w1: {{Data: claimData(t, "ABC123", 1000)}},
		},
		errFor: map[common.Address]error{
			w2: errors.New("query timeout"),
		},
	}
	s := New(rpc, contractAddr, claimTopic, testConfig())

	claimed := s.Scan(context.Background(), "ABC123", []common.Address{w1, w2})
	require.True(t, claimed[w1])
	require.False(t, claimed[w2])
}

func TestScanWindowBounds(t *testing.T) {
	w := common.HexToAddress("0x0000000000000000000000000000000000000003")
	rpc := &fakeRPC{head: "0x186a0"}
	cfg := testConfig()
	cfg.Workers = 1
	s := New(rpc, contractAddr, claimTopic, cfg)

	s.Scan(context.Background(), "ABC123", []common.Address{w})

	require.Len(t, rpc.filters, 1)
	filter := rpc.filters[0]
	require.Equal(t, "0xc350", filter["fromBlock"])
	require.Equal(t, "0x186a0", filter["toBlock"])
	require.Equal(t, contractAddr, filter["address"])

	topics := filter["topics"].([]interface{})
	require.Equal(t, claimTopic, topics[0])
	require.Equal(t, common.BytesToHash(w.Bytes()), topics[1])
}

func TestScanWindowFloorsAtGenesis(t *testing.T) {
	w := common.HexToAddress("0x0000000000000000000000000000000000000004")
	rpc := &fakeRPC{head: "0xff"}
	cfg := testConfig()
	cfg.Workers = 1
	s := New(rpc, contractAddr, claimTopic, cfg)

	s.Scan(context.Background(), "ABC123", []common.Address{w})

	require.Len(t, rpc.filters, 1)
	require.Equal(t, "0x0", rpc.filters[0]["fromBlock"])
	require.Equal(t, "0xff", rpc.filters[0]["toBlock"])
}

func TestScanHeadFallback(t *testing.T) {
	w := common.HexToAddress("0x0000000000000000000000000000000000000005")
	rpc := &fakeRPC{headErr: errors.New("connection refused")}
	cfg := testConfig()
	cfg.Workers = 1
	s := New(rpc, contractAddr, claimTopic, cfg)

	claimed := s.Scan(context.Background(), "ABC123", []common.Address{w})
	require.Empty(t, claimed)

	require.Len(t, rpc.filters, 1)
	wantFrom := fmt.Sprintf("0x%x", uint64(fallbackHead-50000))
	require.Equal(t, wantFrom, rpc.filters[0]["fromBlock"])
	require.Equal(t, fmt.Sprintf("0x%x", uint64(fallbackHead)), rpc.filters[0]["toBlock"])
}

func TestScanNoWinners(t *testing.T) {
	rpc := &fakeRPC{head: "0x186a0"}
	s := New(rpc, contractAddr, claimTopic, testConfig())

	claimed := s.Scan(context.Background(), "ABC123", nil)
	require.Empty(t, claimed)
	require.Empty(t, rpc.filters)
}
