package testhelpers

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// TestDatabaseName is the database created in every engine container.
	TestDatabaseName = "test_data"
	testUser         = "ekaya"
	testPassword     = "test_password"
)

// engineContainer describes how to start one database engine for tests.
type engineContainer struct {
	request testcontainers.ContainerRequest
	port    nat.Port
	url     func(host, port string) string
}

var engines = map[string]engineContainer{
	"postgres": {
		request: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       TestDatabaseName,
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		port: "5432/tcp",
		url: func(host, port string) string {
			return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", testUser, testPassword, host, port, TestDatabaseName)
		},
	},
	"mysql": {
		request: testcontainers.ContainerRequest{
			Image:        "mysql:8.4",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_DATABASE":      TestDatabaseName,
				"MYSQL_USER":          testUser,
				"MYSQL_PASSWORD":      testPassword,
				"MYSQL_ROOT_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForListeningPort("3306/tcp").
				WithStartupTimeout(120 * time.Second),
		},
		port: "3306/tcp",
		url: func(host, port string) string {
			return fmt.Sprintf("mysql://%s:%s@%s:%s/%s", testUser, testPassword, host, port, TestDatabaseName)
		},
	},
	"mongodb": {
		request: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor: wait.ForLog("Waiting for connections").
				WithStartupTimeout(60 * time.Second),
		},
		port: "27017/tcp",
		url: func(host, port string) string {
			return fmt.Sprintf("mongodb://%s:%s/%s", host, port, TestDatabaseName)
		},
	},
}

// sharedEngine holds a started container and its connection URL.
type sharedEngine struct {
	once      sync.Once
	container testcontainers.Container
	url       string
	err       error
}

var (
	sharedMu      sync.Mutex
	sharedEngines = make(map[string]*sharedEngine)
)

// GetPostgresURL returns the URL of a shared PostgreSQL container.
func GetPostgresURL(t *testing.T) string {
	t.Helper()
	return getEngineURL(t, "postgres")
}

// GetMySQLURL returns the URL of a shared MySQL container.
func GetMySQLURL(t *testing.T) string {
	t.Helper()
	return getEngineURL(t, "mysql")
}

// GetMongoURL returns the URL of a shared MongoDB container.
func GetMongoURL(t *testing.T) string {
	t.Helper()
	return getEngineURL(t, "mongodb")
}

// getEngineURL starts the named engine once per test run and reuses it
// across all tests.
func getEngineURL(t *testing.T, name string) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedMu.Lock()
	shared, ok := sharedEngines[name]
	if !ok {
		shared = &sharedEngine{}
		sharedEngines[name] = shared
	}
	sharedMu.Unlock()

	shared.once.Do(func() {
		shared.container, shared.url, shared.err = startEngine(engines[name])
	})

	if shared.err != nil {
		t.Fatalf("Failed to start %s container: %v", name, shared.err)
	}

	return shared.url
}

func startEngine(engine engineContainer) (testcontainers.Container, string, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: engine.request,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, engine.port)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get container port: %w", err)
	}

	return container, engine.url(host, port.Port()), nil
}

// WithPassword returns databaseURL with its password replaced.
func WithPassword(t *testing.T, databaseURL, password string) string {
	t.Helper()

	u, err := url.Parse(databaseURL)
	if err != nil {
		t.Fatalf("invalid database URL: %v", err)
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String()
}
