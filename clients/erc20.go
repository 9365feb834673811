package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `
[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "owner", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "transfer",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "to", "type": "address" },
      { "name": "value", "type": "uint256" }
    ],
    "outputs": [{ "name": "", "type": "bool" }]
  },
  {
    "name": "decimals",
    "type": "function",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{ "name": "", "type": "uint8" }]
  }
]
`

// erc20 wraps the minimal token surface the wallet needs: balance reads
// and transfer call data.
type erc20 struct {
	token  common.Address
	client *ethclient.Client
	abi    abi.ABI
}

func newERC20(token string, client *ethclient.Client) (*erc20, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &erc20{
		token:  common.HexToAddress(token),
		client: client,
		abi:    parsed,
	}, nil
}

// BalanceOf reads the token balance via eth_call.
func (e *erc20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	callData, err := e.abi.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	out, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.token, Data: callData}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}

	results, err := e.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}

	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", results[0])
	}
	return balance, nil
}

// TransferData packs the call data for transfer(to, value).
func (e *erc20) TransferData(to common.Address, value *big.Int) ([]byte, error) {
	return e.abi.Pack("transfer", to, value)
}

// Address returns the token contract address.
func (e *erc20) Address() common.Address {
	return e.token
}
