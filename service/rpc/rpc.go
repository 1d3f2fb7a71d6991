package rpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/viper"

	"github.com/zmovane/evm-token-indexer/util"
)

const rateLimited = "429"

// ErrEthClient is returned when the underlying RPC transport fails.
type ErrEthClient struct {
	Err error
}

func (e ErrEthClient) Error() string {
	return fmt.Sprintf("eth client error: %s", e.Err)
}

func (e ErrEthClient) Unwrap() error {
	return e.Err
}

// NewEthClient dials the RPC_URL configured in the environment.
func NewEthClient() *ethclient.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rpcClient, err := rpc.DialContext(ctx, viper.GetString("RPC_URL"))
	if err != nil {
		panic(err)
	}

	return ethclient.NewClient(rpcClient)
}

// GetLogs returns log events matching query.
func GetLogs(ctx context.Context, ethClient *ethclient.Client, query ethereum.FilterQuery) ([]types.Log, error) {
	return ethClient.FilterLogs(ctx, query)
}

// RetryGetLogs calls GetLogs, retrying on rate-limit responses with backoff.
func RetryGetLogs(ctx context.Context, ethClient *ethclient.Client, query ethereum.FilterQuery) ([]types.Log, error) {
	logs := make([]types.Log, 0)
	var err error
	for i := 0; i < util.DefaultRetry.Tries; i++ {
		logs, err = GetLogs(ctx, ethClient, query)
		if !isRateLimitedError(err) {
			break
		}
		util.DefaultRetry.Sleep(i)
	}
	if err != nil {
		return nil, ErrEthClient{Err: err}
	}
	return logs, nil
}

var erc165ABI = mustParseABI(`[{"constant":true,"inputs":[{"name":"interfaceId","type":"bytes4"}],"name":"supportsInterface","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"view","type":"function"}]`)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// SupportsInterface calls the ERC-165 supportsInterface(bytes4) view on
// address for interfaceID (e.g. [4]byte{0x80,0xac,0x58,0xcd}).
//
// A transport-level failure is reported via err. A contract-level revert
// (the address doesn't speak ERC-165) is reported via reverted=true, err=nil
// so callers can tell it apart from a clean "false" answer.
func SupportsInterface(ctx context.Context, ethClient *ethclient.Client, address common.Address, interfaceID [4]byte) (supported bool, reverted bool, err error) {
	input, err := erc165ABI.Pack("supportsInterface", interfaceID)
	if err != nil {
		return false, false, err
	}

	msg := ethereum.CallMsg{To: &address, Data: input}
	output, err := ethClient.CallContract(ctx, msg, nil)
	if err != nil {
		if isRevertError(err) {
			return false, true, nil
		}
		return false, false, ErrEthClient{Err: err}
	}

	results, err := erc165ABI.Unpack("supportsInterface", output)
	if err != nil || len(results) == 0 {
		// a non-ABI-conforming reply is treated the same as a revert: the
		// contract doesn't implement ERC-165 the way we expect.
		return false, true, nil
	}

	supported, _ = results[0].(bool)
	return supported, false, nil
}

func isRevertError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "revert")
}

func isRateLimitedError(err error) bool {
	return err != nil && strings.Contains(err.Error(), rateLimited)
}
