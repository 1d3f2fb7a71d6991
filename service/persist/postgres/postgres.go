package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/viper"

	// register the pgx driver under the "pgx" name
	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/zmovane/evm-token-indexer/util"
)

// DefaultConnectRetry is applied when connecting unless overridden.
var DefaultConnectRetry = util.Retry{Tries: 3, Backoff: 2 * time.Second}

type connectionParams struct {
	user     string
	password string
	dbname   string
	host     string
	port     int
	retry    *util.Retry
}

func (c *connectionParams) toConnectionString() string {
	port := c.port
	if port == 0 {
		port = 5432
	}

	connStr := fmt.Sprintf("user=%s dbname=%s host=%s port=%d sslmode=disable", c.user, c.dbname, c.host, port)

	if c.password != "" {
		connStr += fmt.Sprintf(" password=%s", c.password)
	}

	return connStr
}

func newConnectionParamsFromEnv() connectionParams {
	return connectionParams{
		user:     viper.GetString("POSTGRES_USER"),
		password: viper.GetString("POSTGRES_PASSWORD"),
		dbname:   viper.GetString("POSTGRES_DB"),
		host:     viper.GetString("POSTGRES_HOST"),
		port:     viper.GetInt("POSTGRES_PORT"),
		retry:    &DefaultConnectRetry,
	}
}

// ConnectionOption overrides a single connection parameter; used by tests to
// point at an ephemeral dockertest database instead of the env-configured one.
type ConnectionOption func(params *connectionParams)

func WithHost(host string) ConnectionOption {
	return func(params *connectionParams) { params.host = host }
}

func WithPort(port int) ConnectionOption {
	return func(params *connectionParams) { params.port = port }
}

func WithUser(user string) ConnectionOption {
	return func(params *connectionParams) { params.user = user }
}

func WithPassword(password string) ConnectionOption {
	return func(params *connectionParams) { params.password = password }
}

func WithDBName(dbname string) ConnectionOption {
	return func(params *connectionParams) { params.dbname = dbname }
}

func WithNoRetries() ConnectionOption {
	return func(params *connectionParams) { params.retry = nil }
}

// MustCreateClient panics if it cannot connect after retrying.
func MustCreateClient(opts ...ConnectionOption) *sql.DB {
	db, err := NewClient(opts...)
	if err != nil {
		panic(err)
	}
	return db
}

// NewClient opens a database/sql connection over the pgx driver, retrying the
// initial connection by default.
func NewClient(opts ...ConnectionOption) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	params := newConnectionParamsFromEnv()
	for _, opt := range opts {
		opt(&params)
	}

	var db *sql.DB
	var err error
	tries := 1
	if params.retry != nil {
		tries = params.retry.Tries
	}
	for i := 0; i < tries; i++ {
		db, err = sql.Open("pgx", params.toConnectionString())
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				break
			}
			db.Close()
		}
		if params.retry == nil {
			return nil, err
		}
		params.retry.Sleep(i)
	}
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(50)
	return db, nil
}

func checkNoErr(err error) {
	if err != nil {
		panic(err)
	}
}
