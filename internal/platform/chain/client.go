package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/yungbote/dae-backend/internal/platform/httpx"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

var (
	ErrTxNotFound          = errors.New("transaction not found")
	ErrTxFailed            = errors.New("transaction reverted")
	ErrConfirmationTimeout = errors.New("timed out waiting for confirmations")
)

// Client is the subset of the JSON-RPC surface the reconcilers need.
// *ethclient.Client satisfies it.
type Client interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Clients interface {
	Client(ctx context.Context, chainID int64) (Client, Chain, error)
}

// Pool dials one ethclient per chain on first use.
type Pool struct {
	log      *logger.Logger
	registry *Registry

	mu      sync.Mutex
	clients map[int64]*ethclient.Client
}

func NewPool(log *logger.Logger, registry *Registry) *Pool {
	return &Pool{
		log:      log.With("service", "ChainPool"),
		registry: registry,
		clients:  make(map[int64]*ethclient.Client),
	}
}

func (p *Pool) Client(ctx context.Context, chainID int64) (Client, Chain, error) {
	c, err := p.registry.Get(chainID)
	if err != nil {
		return nil, Chain{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cli, ok := p.clients[chainID]; ok {
		return cli, c, nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cli, err := ethclient.DialContext(dialCtx, c.RPCURL)
	if err != nil {
		return nil, Chain{}, fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	p.log.Info("Dialed chain RPC", "chain_id", chainID, "name", c.Name)
	p.clients[chainID] = cli
	return cli, c, nil
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, cli := range p.clients {
		cli.Close()
		delete(p.clients, id)
	}
}

// FetchReceipt loads a successful receipt together with its transaction.
func FetchReceipt(ctx context.Context, c Client, txHash common.Hash) (*types.Transaction, *types.Receipt, error) {
	tx, pending, err := c.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil, fmt.Errorf("%w: %s", ErrTxNotFound, txHash.Hex())
		}
		return nil, nil, fmt.Errorf("get transaction %s: %w", txHash.Hex(), err)
	}
	if pending {
		return nil, nil, fmt.Errorf("%w: %s is still pending", ErrTxNotFound, txHash.Hex())
	}
	receipt, err := c.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil, fmt.Errorf("%w: no receipt for %s", ErrTxNotFound, txHash.Hex())
		}
		return nil, nil, fmt.Errorf("get receipt %s: %w", txHash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, nil, fmt.Errorf("%w: %s", ErrTxFailed, txHash.Hex())
	}
	return tx, receipt, nil
}

// WaitForConfirmations blocks until the receipt's block has at least min
// confirmations (the inclusion block counts as one).
func WaitForConfirmations(ctx context.Context, c Client, receipt *types.Receipt, min uint64, timeout time.Duration) error {
	if receipt == nil || receipt.BlockNumber == nil || min <= 1 {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	included := receipt.BlockNumber.Uint64()
	for attempt := 0; ; attempt++ {
		head, err := c.BlockNumber(ctx)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("get block number: %w", err)
		}
		if err == nil && head >= included && head-included+1 >= min {
			return nil
		}
		if err := httpx.Sleep(ctx, httpx.Backoff(attempt, 500*time.Millisecond, 8*time.Second)); err != nil {
			return fmt.Errorf("%w (%d required)", ErrConfirmationTimeout, min)
		}
	}
}
