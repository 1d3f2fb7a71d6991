package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/zmovane/evm-token-indexer/service/persist"
	"github.com/zmovane/evm-token-indexer/service/rpc"
)

// interfaceProbe matches rpc.SupportsInterface's signature, injectable in
// tests so classify's decision table can be exercised without a live client.
type interfaceProbe func(ctx context.Context, ethClient *ethclient.Client, address common.Address, interfaceID [4]byte) (supported, reverted bool, err error)

// classify probes address via ERC-165 and reports which transfer standard it
// implements. Both probes are always issued, regardless of the first's
// outcome, so that an error on one is still classifiable if the other
// succeeded.
func classify(ctx context.Context, ethClient *ethclient.Client, address common.Address) (persist.Standard, bool, error) {
	return classifyWith(ctx, rpc.SupportsInterface, ethClient, address)
}

func classifyWith(ctx context.Context, probe interfaceProbe, ethClient *ethclient.Client, address common.Address) (persist.Standard, bool, error) {
	is721, reverted721, err721 := probe(ctx, ethClient, address, erc721InterfaceID)
	is1155, reverted1155, err1155 := probe(ctx, ethClient, address, erc1155InterfaceID)

	if err721 == nil && is721 {
		return persist.StandardErc721, true, nil
	}
	if err1155 == nil && is1155 {
		return persist.StandardErc1155, true, nil
	}

	// a definite "false" from either probe, or a revert from either probe,
	// means the contract answered ERC-165 (or doesn't speak it at all) but
	// implements neither transfer standard we care about.
	if err721 == nil || err1155 == nil {
		return "", false, nil
	}
	if reverted721 || reverted1155 {
		return "", false, nil
	}

	// both probes failed at the transport level; nothing learned.
	if err721 != nil {
		return "", false, err721
	}
	return "", false, err1155
}
