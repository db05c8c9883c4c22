// Package chaintest provides an in-process chain for tests: receipts are
// registered up front and contract calls are answered by ABI-aware handlers.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
)

var ErrReverted = errors.New("execution reverted")

type Handler func(args []interface{}) ([]interface{}, error)

type contract struct {
	abi      abi.ABI
	handlers map[string]Handler
}

type Chain struct {
	mu        sync.Mutex
	cfg       chain.Chain
	head      uint64
	nonce     uint64
	txs       map[common.Hash]*types.Transaction
	receipts  map[common.Hash]*types.Receipt
	contracts map[common.Address]*contract
	calls     map[string]int
}

func New(chainID int64) *Chain {
	return &Chain{
		cfg:       chain.Chain{ID: chainID, Name: "test", RPCURL: "memory://", MinConfirmations: 1},
		head:      100,
		txs:       make(map[common.Hash]*types.Transaction),
		receipts:  make(map[common.Hash]*types.Receipt),
		contracts: make(map[common.Address]*contract),
		calls:     make(map[string]int),
	}
}

func (c *Chain) SetMinConfirmations(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.MinConfirmations = n
}

// Client implements chain.Clients for a single chain id.
func (c *Chain) Client(_ context.Context, chainID int64) (chain.Client, chain.Chain, error) {
	if chainID != c.cfg.ID {
		return nil, chain.Chain{}, fmt.Errorf("%w: %d", chain.ErrUnknownChain, chainID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c, c.cfg, nil
}

func (c *Chain) Handle(addr common.Address, a abi.ABI, method string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ct, ok := c.contracts[addr]
	if !ok {
		ct = &contract{abi: a, handlers: make(map[string]Handler)}
		c.contracts[addr] = ct
	}
	ct.handlers[method] = h
}

// Return answers method with fixed outputs.
func (c *Chain) Return(addr common.Address, a abi.ABI, method string, outputs ...interface{}) {
	c.Handle(addr, a, method, func([]interface{}) ([]interface{}, error) { return outputs, nil })
}

// GrantRole answers hasRole(role, account) with true; other pairs stay false.
func (c *Chain) GrantRole(course common.Address, role contracts.Role, account common.Address) {
	c.mu.Lock()
	ct := c.contracts[course]
	var prev Handler
	if ct != nil {
		prev = ct.handlers["hasRole"]
	}
	c.mu.Unlock()
	c.Handle(course, contracts.CredentialABI, "hasRole", func(args []interface{}) ([]interface{}, error) {
		r, _ := args[0].([32]byte)
		a, _ := args[1].(common.Address)
		if common.Hash(r) == role && a == account {
			return []interface{}{true}, nil
		}
		if prev != nil {
			return prev(args)
		}
		return []interface{}{false}, nil
	})
}

func (c *Chain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// AddReceipt mines a transaction with the given status and logs at the current head.
func (c *Chain) AddReceipt(status uint64, logs ...*types.Log) common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonce++
	tx := types.NewTx(&types.LegacyTx{Nonce: c.nonce, Gas: 21000, GasPrice: big.NewInt(1)})
	h := tx.Hash()
	for i, l := range logs {
		l.TxHash = h
		l.Index = uint(i)
		l.BlockNumber = c.head
	}
	c.txs[h] = tx
	c.receipts[h] = &types.Receipt{
		Status:      status,
		TxHash:      h,
		Logs:        logs,
		BlockNumber: new(big.Int).SetUint64(c.head),
	}
	return h
}

func (c *Chain) Mine(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head += n
}

func (c *Chain) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, false, nil
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Chain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, errors.New("invalid call")
	}
	c.mu.Lock()
	ct, ok := c.contracts[*msg.To]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}
	method, err := ct.abi.MethodById(msg.Data[:4])
	if err != nil {
		return nil, ErrReverted
	}
	c.mu.Lock()
	c.calls[method.Name]++
	h, ok := ct.handlers[method.Name]
	c.mu.Unlock()
	if !ok {
		return nil, ErrReverted
	}
	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	out, err := h(args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func IssuedLog(course, to common.Address, tokenID int64, role contracts.Role) *types.Log {
	return &types.Log{
		Address: course,
		Topics: []common.Hash{
			contracts.IssuedEventID,
			common.BytesToHash(to.Bytes()),
			common.BigToHash(big.NewInt(tokenID)),
			role,
		},
	}
}

func TransferLog(course, from, to common.Address, tokenID int64) *types.Log {
	return &types.Log{
		Address: course,
		Topics: []common.Hash{
			contracts.TransferEventID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
			common.BigToHash(big.NewInt(tokenID)),
		},
	}
}

func CourseCreatedLog(factory, course, owner, karma common.Address) *types.Log {
	data, _ := contracts.FactoryABI.Events["CourseCreated"].Inputs.NonIndexed().Pack(karma)
	return &types.Log{
		Address: factory,
		Topics: []common.Hash{
			contracts.CourseCreatedEventID,
			common.BytesToHash(course.Bytes()),
			common.BytesToHash(owner.Bytes()),
		},
		Data: data,
	}
}
