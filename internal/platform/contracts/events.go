package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	IssuedEventID        = CredentialABI.Events["Issued"].ID
	TransferEventID      = CredentialABI.Events["Transfer"].ID
	CourseCreatedEventID = FactoryABI.Events["CourseCreated"].ID
)

type IssuedEvent struct {
	Contract common.Address
	To       common.Address
	TokenID  *big.Int
	Role     Role
	LogIndex uint
}

type BurnEvent struct {
	Contract common.Address
	From     common.Address
	TokenID  *big.Int
	LogIndex uint
}

type CourseCreatedEvent struct {
	Course common.Address
	Owner  common.Address
	Karma  common.Address
}

// DecodeIssued returns the Issued events in logs. A zero contract matches any
// emitter.
func DecodeIssued(contract common.Address, logs []*types.Log) []IssuedEvent {
	var out []IssuedEvent
	for _, l := range logs {
		if !matches(l, contract, IssuedEventID, 4) {
			continue
		}
		out = append(out, IssuedEvent{
			Contract: l.Address,
			To:       common.BytesToAddress(l.Topics[1].Bytes()),
			TokenID:  new(big.Int).SetBytes(l.Topics[2].Bytes()),
			Role:     l.Topics[3],
			LogIndex: l.Index,
		})
	}
	return out
}

// DecodeBurns returns ERC-721 Transfer events whose recipient is the zero
// address. ERC-20 style transfers (three topics) are ignored.
func DecodeBurns(contract common.Address, logs []*types.Log) []BurnEvent {
	var out []BurnEvent
	for _, l := range logs {
		if !matches(l, contract, TransferEventID, 4) {
			continue
		}
		if common.BytesToAddress(l.Topics[2].Bytes()) != (common.Address{}) {
			continue
		}
		out = append(out, BurnEvent{
			Contract: l.Address,
			From:     common.BytesToAddress(l.Topics[1].Bytes()),
			TokenID:  new(big.Int).SetBytes(l.Topics[3].Bytes()),
			LogIndex: l.Index,
		})
	}
	return out
}

// DecodeCourseCreated returns the first factory CourseCreated event, if any.
func DecodeCourseCreated(logs []*types.Log) (CourseCreatedEvent, bool) {
	for _, l := range logs {
		if !matches(l, common.Address{}, CourseCreatedEventID, 3) {
			continue
		}
		ev := CourseCreatedEvent{
			Course: common.BytesToAddress(l.Topics[1].Bytes()),
			Owner:  common.BytesToAddress(l.Topics[2].Bytes()),
		}
		if vals, err := FactoryABI.Unpack("CourseCreated", l.Data); err == nil && len(vals) == 1 {
			if a, ok := vals[0].(common.Address); ok {
				ev.Karma = a
			}
		}
		return ev, true
	}
	return CourseCreatedEvent{}, false
}

func matches(l *types.Log, contract common.Address, id common.Hash, topics int) bool {
	if l == nil || l.Removed || len(l.Topics) != topics || l.Topics[0] != id {
		return false
	}
	return contract == (common.Address{}) || l.Address == contract
}
