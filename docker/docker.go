package docker

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ory/dockertest"
	"github.com/ory/dockertest/docker"

	_ "github.com/jackc/pgx/v4/stdlib"
)

// StartPostgres runs an ephemeral postgres container for integration tests
// and blocks until it accepts connections.
func StartPostgres() (*dockertest.Resource, error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}
	pool.MaxWait = time.Minute * 3

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "14-alpine",
		Env:        []string{"POSTGRES_PASSWORD=", "POSTGRES_HOST_AUTH_METHOD=trust"},
	}, func(c *docker.HostConfig) {
		c.AutoRemove = true
		c.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, err
	}

	hostAndPort := strings.Split(resource.GetHostPort("5432/tcp"), ":")
	host, port := hostAndPort[0], hostAndPort[1]

	if err := pool.Retry(waitOnDB(host, port, "postgres", "postgres")); err != nil {
		resource.Close()
		return nil, err
	}

	return resource, nil
}

func waitOnDB(host, port, user, dbname string) func() error {
	return func() error {
		db, err := sql.Open("pgx", fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable", host, port, user, dbname))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}
}
