// Package chain wraps the JSON-RPC connection to an Ethereum node with
// the small client surface the rest of the system needs: raw calls for
// hand-built requests, signed legacy-transaction submission and receipt
// waiting with revert-reason recovery.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client carries both the typed ethclient surface and the raw rpc.Client
// underneath it, so callers can mix generated and hand-built requests on
// one connection.
type Client struct {
	*ethclient.Client

	rpc    *rpc.Client
	signer types.Signer
}

// Dial connects url over a pooled HTTP transport and resolves the remote
// chain id for signing.
func Dial(ctx context.Context, url string) (*Client, error) {
	rpcClient, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(newHTTPClient()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	ethClient := ethclient.NewClient(rpcClient)
	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}
	return &Client{
		Client: ethClient,
		rpc:    rpcClient,
		signer: types.NewLondonSigner(chainID),
	}, nil
}

// newHTTPClient tunes the transport for many short-lived JSON-RPC calls
// against a single host.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          64,
			MaxIdleConnsPerHost:   64,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}

// CallContext forwards a raw JSON-RPC call on the underlying connection.
func (c *Client) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	return c.rpc.CallContext(ctx, result, method, args...)
}

// SendSigned builds, signs and submits a legacy transaction from key. A
// zero gasLimit asks the node for an estimate; submission failures are
// returned with the node's message intact for classification.
func (c *Client) SendSigned(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte, gasLimit uint64) (*types.Transaction, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := c.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce for %s: %w", from.Hex(), err)
	}
	gasPrice, err := c.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	if value == nil {
		value = new(big.Int)
	}
	if gasLimit == 0 {
		gasLimit, err = c.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return nil, fmt.Errorf("estimate gas: %w", err)
		}
	}
	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, c.signer, key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := c.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	return signed, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}
