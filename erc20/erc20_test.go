package erc20

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	out  []byte
	err  error
	data []byte
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.data = msg.Data
	return f.out, f.err
}

func TestAllowance(t *testing.T) {
	out, err := tokenABI.Methods["allowance"].Outputs.Pack(big.NewInt(12345))
	require.NoError(t, err)

	caller := &fakeCaller{out: out}
	token := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	owner := common.HexToAddress("0x01")
	spender := common.HexToAddress("0x02")

	remaining, err := Allowance(context.Background(), caller, token, owner, spender)
	require.NoError(t, err)
	require.Equal(t, "12345", remaining.String())
	require.Equal(t, tokenABI.Methods["allowance"].ID, caller.data[:4])
}

func TestApproveData(t *testing.T) {
	data, err := ApproveData(common.HexToAddress("0x02"), big.NewInt(777))
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256([]byte("approve(address,uint256)"))[:4], data[:4])

	args, err := tokenABI.Methods["approve"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Equal(t, "777", args[1].(*big.Int).String())
}
