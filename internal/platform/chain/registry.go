package chain

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrUnknownChain = errors.New("unknown chain")

const (
	defaultMinConfirmations    = 1
	defaultConfirmationTimeout = 2 * time.Minute
)

type Chain struct {
	ID                  int64         `yaml:"id"`
	Name                string        `yaml:"name"`
	RPCURL              string        `yaml:"rpc_url"`
	MinConfirmations    uint64        `yaml:"min_confirmations"`
	ConfirmationTimeout time.Duration `yaml:"confirmation_timeout"`
	FactoryAddress      string        `yaml:"factory_address"`
}

type registryFile struct {
	Chains []Chain `yaml:"chains"`
}

type Registry struct {
	chains map[int64]Chain
}

func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain registry %s: %w", path, err)
	}
	return ParseRegistry(raw)
}

func ParseRegistry(raw []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse chain registry: %w", err)
	}
	return NewRegistry(f.Chains...)
}

func NewRegistry(chains ...Chain) (*Registry, error) {
	r := &Registry{chains: make(map[int64]Chain, len(chains))}
	for _, c := range chains {
		if c.ID <= 0 {
			return nil, fmt.Errorf("chain %q: id must be positive", c.Name)
		}
		if strings.TrimSpace(c.RPCURL) == "" {
			return nil, fmt.Errorf("chain %d: rpc_url is required", c.ID)
		}
		if _, dup := r.chains[c.ID]; dup {
			return nil, fmt.Errorf("chain %d declared twice", c.ID)
		}
		if c.MinConfirmations == 0 {
			c.MinConfirmations = defaultMinConfirmations
		}
		if c.ConfirmationTimeout <= 0 {
			c.ConfirmationTimeout = defaultConfirmationTimeout
		}
		c.FactoryAddress = strings.ToLower(strings.TrimSpace(c.FactoryAddress))
		r.chains[c.ID] = c
	}
	return r, nil
}

func (r *Registry) Get(id int64) (Chain, error) {
	if r == nil {
		return Chain{}, fmt.Errorf("%w: %d", ErrUnknownChain, id)
	}
	c, ok := r.chains[id]
	if !ok {
		return Chain{}, fmt.Errorf("%w: %d", ErrUnknownChain, id)
	}
	return c, nil
}

func (r *Registry) IDs() []int64 {
	ids := make([]int64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
