package indexer

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/zmovane/evm-token-indexer/service/logger"
	"github.com/zmovane/evm-token-indexer/service/persist"
	"github.com/zmovane/evm-token-indexer/service/persist/postgres"
	"github.com/zmovane/evm-token-indexer/service/rpc"
)

// SetDefaults populates viper with this indexer's configuration defaults and
// reads CHAIN/RPC_URL/POSTGRES_* overrides from the environment.
func SetDefaults() {
	viper.SetDefault("RPC_URL", "")
	viper.SetDefault("CHAIN", "zksync_era_testnet")
	viper.SetDefault("ENV", "local")
	viper.SetDefault("POSTGRES_HOST", "0.0.0.0")
	viper.SetDefault("POSTGRES_PORT", 5433)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "")
	viper.SetDefault("POSTGRES_DB", "postgres")
	viper.SetDefault("MAX_BLOCKS_PER_QUERY", 1000)

	viper.AutomaticEnv()
}

// LoadConfigFile optionally layers a yaml config file on top of the
// environment when running locally; missing files are not an error.
func LoadConfigFile(path string) {
	if viper.GetString("ENV") != "local" || path == "" {
		return
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		logger.For(nil).WithError(err).Warn("no local config file found, relying on environment")
	}
}

// ValidateEnv fails fast on a missing or unparseable required setting.
func ValidateEnv() {
	if viper.GetString("RPC_URL") == "" {
		logger.For(nil).Fatal("RPC_URL must be set")
	}
	if _, ok := persist.ParseChain(viper.GetString("CHAIN")); !ok {
		logger.For(nil).Fatalf("unrecognized CHAIN: %q", viper.GetString("CHAIN"))
	}
}

func initLogger() {
	logger.SetLoggerOptions(func(l *logrus.Logger) {
		l.SetReportCaller(true)

		if viper.GetString("ENV") != "production" {
			l.SetLevel(logrus.DebugLevel)
		}

		if viper.GetString("ENV") == "local" {
			l.SetFormatter(&logrus.TextFormatter{DisableQuote: true})
		} else {
			l.SetFormatter(&logger.GCPFormatter{})
		}
	})
}

// configureRootContext configures the context the two pipelines derive their
// loggers from.
func configureRootContext() context.Context {
	ctx := logger.NewContextWithLogger(context.Background(), logrus.Fields{
		"chain": viper.GetString("CHAIN"),
	}, logrus.New())
	if viper.GetString("ENV") != "production" {
		logger.For(ctx).Logger.SetLevel(logrus.DebugLevel)
	}
	logger.For(ctx).Logger.SetReportCaller(true)
	return ctx
}

// Init wires the RPC client, Store, and chain together and starts the
// Coordinator's two pipelines. It blocks until both pipelines have returned,
// which they do once ctx is cancelled, and then closes the database.
func Init(ctx context.Context) {
	initLogger()

	chain, ok := persist.ParseChain(viper.GetString("CHAIN"))
	if !ok {
		logger.For(ctx).Fatalf("unrecognized CHAIN: %q", viper.GetString("CHAIN"))
	}

	db := postgres.MustCreateClient()
	defer closeDB(db)
	store := postgres.NewStore(db)
	ethClient := rpc.NewEthClient()

	rootCtx := configureRootContext()
	if ctx != nil {
		rootCtx = ctx
	}

	logger.For(rootCtx).WithField("chain", chain).Info("starting indexer")
	Start(rootCtx, Config{
		Chain:             chain,
		Store:             store,
		EthClient:         ethClient,
		MaxBlocksPerQuery: uint64(viper.GetInt("MAX_BLOCKS_PER_QUERY")),
	})
}

func closeDB(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.For(nil).WithError(err).Warn("error closing database connection")
	}
}
