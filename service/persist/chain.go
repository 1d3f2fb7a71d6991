package persist

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Chain is the blockchain network a Logs/Tokens row was observed on.
type Chain int

const (
	ChainZksyncEraTestnet Chain = iota
	ChainZksyncEra
	ChainEthereum
	ChainEthereumGoerli
	ChainPolygon
	ChainPolygonMumbai
)

func (c Chain) String() string {
	switch c {
	case ChainZksyncEraTestnet:
		return "zksync_era_testnet"
	case ChainZksyncEra:
		return "zksync_era"
	case ChainEthereum:
		return "ethereum"
	case ChainEthereumGoerli:
		return "ethereum_goerli"
	case ChainPolygon:
		return "polygon"
	case ChainPolygonMumbai:
		return "polygon_mumbai"
	default:
		return fmt.Sprintf("chain(%d)", int(c))
	}
}

// ParseChain maps an env-supplied chain name to a Chain, accepting hyphens in
// place of underscores and any case, e.g. "zksync-era-testnet".
func ParseChain(name string) (Chain, bool) {
	normalized := strings.ToLower(strings.ReplaceAll(name, "-", "_"))
	switch normalized {
	case "zksync_era_testnet":
		return ChainZksyncEraTestnet, true
	case "zksync_era":
		return ChainZksyncEra, true
	case "ethereum":
		return ChainEthereum, true
	case "ethereum_goerli":
		return ChainEthereumGoerli, true
	case "polygon":
		return ChainPolygon, true
	case "polygon_mumbai":
		return ChainPolygonMumbai, true
	default:
		return 0, false
	}
}

func (c Chain) Value() (driver.Value, error) {
	return int64(c), nil
}

func (c *Chain) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*c = Chain(v)
	case int32:
		*c = Chain(v)
	case int:
		*c = Chain(v)
	default:
		return fmt.Errorf("cannot scan %T into Chain", src)
	}
	return nil
}

// IndexedType names which of the two cursors a States row tracks.
type IndexedType string

const (
	IndexedTypeLog   IndexedType = "log"
	IndexedTypeToken IndexedType = "token"
)

// Standard is the token standard a Tokens row was classified as.
type Standard string

const (
	StandardErc721  Standard = "erc721"
	StandardErc1155 Standard = "erc1155"
)
