package contracts

import (
	"embed"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abi/*.json
var abiFS embed.FS

var (
	CredentialABI = mustLoad("abi/credential.json")
	KarmaABI      = mustLoad("abi/karma.json")
	FactoryABI    = mustLoad("abi/factory.json")
)

func mustLoad(name string) abi.ABI {
	raw, err := abiFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("contracts: read %s: %v", name, err))
	}
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		panic(fmt.Sprintf("contracts: parse %s: %v", name, err))
	}
	return parsed
}
