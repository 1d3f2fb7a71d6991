package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseChainAcceptsHyphenAndCase(t *testing.T) {
	assertions := assert.New(t)

	for _, name := range []string{"zksync_era_testnet", "ZKSYNC-ERA-TESTNET", "ZkSync-Era_Testnet"} {
		chain, ok := ParseChain(name)
		assertions.True(ok, name)
		assertions.Equal(ChainZksyncEraTestnet, chain)
	}
}

func TestParseChainRejectsUnknown(t *testing.T) {
	_, ok := ParseChain("bitcoin")
	assert.False(t, ok)
}
