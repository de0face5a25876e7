package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainClient is the read-mostly view of chain state this service needs,
// plus the ability to broadcast one signed transaction. It is deliberately
// not a full EVM client.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)

	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionSender(ctx context.Context, tx *types.Transaction, block common.Hash, index uint) (common.Address, error)

	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error

	// CallContract executes a read-only call at the given block, or the
	// latest block when blockNumber is nil. Used for revert diagnosis.
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)

	// TokenMeta reads the token contract's on-chain name and version,
	// needed to build the EIP-712 domain.
	TokenMeta(ctx context.Context, token common.Address) (name, version string, err error)

	// TokenBalance reads the ERC-20 balance of an account.
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
}
