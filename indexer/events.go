package indexer

import "github.com/ethereum/go-ethereum/common"

// eventHash is the keccak256 topic-0 signature of a watched event.
type eventHash string

const (
	transferEventHash       eventHash = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
	transferSingleEventHash eventHash = "0xc3d58168c5ae7397731d063d5bbf3d657854427343f4c083240f7aacaa2d0f62"
	transferBatchEventHash  eventHash = "0x4a39dc06d4c0dbc64b70af90fd698a233a518aa5d07e595d983b8c0526c8f7fb"
)

// watchedEvents are the three transfer-event topics the Log Indexer filters on.
var watchedEvents = []common.Hash{
	common.HexToHash(string(transferEventHash)),
	common.HexToHash(string(transferSingleEventHash)),
	common.HexToHash(string(transferBatchEventHash)),
}

// erc165 interface selectors the Classifier probes for.
var (
	erc721InterfaceID  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	erc1155InterfaceID = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)
