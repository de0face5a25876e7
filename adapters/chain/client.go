package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/layer-3/garuda/internal/eth"
	"github.com/layer-3/garuda/ports"
)

// Client adapts an ethclient connection to the ChainClient port. The RPC
// methods are satisfied by the embedded client; this type adds the ERC-20
// contract reads.
type Client struct {
	*ethclient.Client
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc endpoint: %w", err)
	}
	return &Client{Client: ec}, nil
}

// NewClient wraps an existing ethclient connection.
func NewClient(ec *ethclient.Client) *Client {
	return &Client{Client: ec}
}

var _ ports.ChainClient = (*Client)(nil)

// TokenMeta reads the token contract's on-chain name and version. version()
// is part of the EIP-3009 token surface; a token without it cannot be used
// for authorizations.
func (c *Client) TokenMeta(ctx context.Context, token common.Address) (string, string, error) {
	name, err := c.callString(ctx, token, eth.NameSelector[:])
	if err != nil {
		return "", "", fmt.Errorf("failed to read token name: %w", err)
	}
	version, err := c.callString(ctx, token, eth.VersionSelector[:])
	if err != nil {
		return "", "", fmt.Errorf("failed to read token version: %w", err)
	}
	return name, version, nil
}

// TokenBalance reads the ERC-20 balance of an account.
func (c *Client) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	ret, err := c.CallContract(ctx, ethereum.CallMsg{To: &token, Data: eth.PackBalanceOf(account)}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read token balance: %w", err)
	}
	return eth.UnpackUint256Result(ret)
}

func (c *Client) callString(ctx context.Context, to common.Address, data []byte) (string, error) {
	ret, err := c.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return "", err
	}
	return eth.UnpackStringResult(ret)
}
