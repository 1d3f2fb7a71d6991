package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zmovane/evm-token-indexer/indexer"
	"github.com/zmovane/evm-token-indexer/service/logger"
)

var (
	configPath string
	chainFlag  string
	rpcURL     string
)

func init() {
	cobra.OnInitialize(indexer.SetDefaults)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a local yaml config file")
	rootCmd.PersistentFlags().StringVar(&chainFlag, "chain", "", "chain to index, overrides CHAIN")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "RPC endpoint, overrides RPC_URL")
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Index NFT transfer events into Logs and materialize Tokens ownership",
	Args: func(cmd *cobra.Command, args []string) error {
		indexer.LoadConfigFile(configPath)

		if chainFlag != "" {
			viper.Set("CHAIN", chainFlag)
		}
		if rpcURL != "" {
			viper.Set("RPC_URL", rpcURL)
		}

		indexer.ValidateEnv()
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		indexer.Init(context.Background())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.For(nil).WithError(err).Fatal("indexer exited with error")
	}
}
