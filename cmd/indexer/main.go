package main

import (
	"github.com/zmovane/evm-token-indexer/indexer/cmd"
)

func main() {
	cmd.Execute()
}
