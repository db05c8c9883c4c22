package contracts

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var ErrNoCode = errors.New("empty call result")

// Caller is the read side of an RPC client; chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type bound struct {
	address common.Address
	abi     abi.ABI
	caller  Caller
}

func (b bound) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := b.address
	out, err := b.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, b.address.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s on %s: %w", method, b.address.Hex(), ErrNoCode)
	}
	vals, err := b.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack %s: no outputs", method)
	}
	return vals, nil
}

// Credential binds the course credential contract (ERC-721 + AccessControl).
type Credential struct{ bound }

func NewCredential(address common.Address, caller Caller) *Credential {
	return &Credential{bound{address: address, abi: CredentialABI, caller: caller}}
}

func (c *Credential) Address() common.Address { return c.address }

func (c *Credential) Owner(ctx context.Context) (common.Address, error) {
	vals, err := c.call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(vals[0])
}

func (c *Credential) Symbol(ctx context.Context) (string, error) {
	vals, err := c.call(ctx, "symbol")
	if err != nil {
		return "", err
	}
	return asString(vals[0])
}

func (c *Credential) MaxSupply(ctx context.Context) (*big.Int, error) {
	vals, err := c.call(ctx, "maxSupply")
	if err != nil {
		return nil, err
	}
	return asBig(vals[0])
}

func (c *Credential) BaseURI(ctx context.Context) (string, error) {
	vals, err := c.call(ctx, "baseURI")
	if err != nil {
		return "", err
	}
	return asString(vals[0])
}

func (c *Credential) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	vals, err := c.call(ctx, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return asString(vals[0])
}

func (c *Credential) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	vals, err := c.call(ctx, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(vals[0])
}

func (c *Credential) HasRole(ctx context.Context, role Role, account common.Address) (bool, error) {
	vals, err := c.call(ctx, "hasRole", [32]byte(role), account)
	if err != nil {
		return false, err
	}
	b, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("hasRole: unexpected output %T", vals[0])
	}
	return b, nil
}

func (c *Credential) KarmaAccessControl(ctx context.Context) (common.Address, error) {
	vals, err := c.call(ctx, "karmaAccessControl")
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(vals[0])
}

type Karma struct{ bound }

func NewKarma(address common.Address, caller Caller) *Karma {
	return &Karma{bound{address: address, abi: KarmaABI, caller: caller}}
}

func (k *Karma) KarmaOf(ctx context.Context, account common.Address) (*big.Int, error) {
	vals, err := k.call(ctx, "karmaOf", account)
	if err != nil {
		return nil, err
	}
	return asBig(vals[0])
}

// IsRevert reports whether err is an EVM revert, which is how ownerOf and
// tokenURI signal a token that does not exist.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "nonexistent token")
}

func asAddress(v interface{}) (common.Address, error) {
	a, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected output %T, want address", v)
	}
	return a, nil
}

func asString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected output %T, want string", v)
	}
	return s, nil
}

func asBig(v interface{}) (*big.Int, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output %T, want uint256", v)
	}
	return b, nil
}
