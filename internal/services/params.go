package services

import (
	"errors"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yungbote/dae-backend/internal/platform/apierr"
	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/contracts"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

func parseAddress(field, raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, apierr.BadRequest("invalid_"+field, field+" must be a 0x-prefixed address")
	}
	return common.HexToAddress(raw), nil
}

func parseTxHash(raw string) (common.Hash, error) {
	raw = strings.TrimSpace(raw)
	if !txHashPattern.MatchString(raw) {
		return common.Hash{}, apierr.BadRequest("invalid_tx_hash", "tx_hash must be a 32-byte 0x-prefixed hex string")
	}
	return common.HexToHash(raw), nil
}

func parseTokenID(raw string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || id.Sign() < 0 {
		return nil, apierr.BadRequest("invalid_token_id", "token_id must be a non-negative integer")
	}
	return id, nil
}

func requireChainID(chainID int64) error {
	if chainID <= 0 {
		return apierr.BadRequest("invalid_chain_id", "chain_id must be positive")
	}
	return nil
}

func lower(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func lowerHash(h common.Hash) string {
	return strings.ToLower(h.Hex())
}

// chainError translates chain access failures into API errors. Anything
// unrecognised is returned as-is and surfaces as a 500.
func chainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chain.ErrUnknownChain):
		return apierr.BadRequest("unknown_chain", err.Error())
	case errors.Is(err, chain.ErrTxNotFound):
		return apierr.NotFound("tx_not_found", err.Error())
	case errors.Is(err, chain.ErrTxFailed):
		return apierr.Unprocessable("tx_failed", err.Error())
	case errors.Is(err, chain.ErrConfirmationTimeout):
		return apierr.Unavailable("confirmations_pending", err.Error())
	case errors.Is(err, contracts.ErrNoCode):
		return apierr.Unprocessable("not_a_course_contract", "address has no course contract code")
	}
	return err
}
