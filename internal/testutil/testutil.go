package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dom/anivers/internal/api"
	"github.com/dom/anivers/internal/config"
	"github.com/dom/anivers/internal/external"
	"github.com/dom/anivers/internal/repository"
	"github.com/dom/anivers/internal/repository/memory"
	repoPostgres "github.com/dom/anivers/internal/repository/postgres"
	"github.com/dom/anivers/internal/service"
	"github.com/dom/anivers/internal/storage"
	"github.com/dom/anivers/internal/token"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB starts a PostgreSQL container and migrates it. It skips the test
// under -short.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:16-alpine",
		tcPostgres.WithDatabase("test_anivers"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"friend_requests",
		"friendships",
		"tracked_items",
		"refresh_tokens",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                   "0",
		Environment:            "test",
		Store:                  "memory",
		JWTAccessSecret:        "test-access-secret-for-testing-only",
		JWTRefreshSecret:       "test-refresh-secret-for-testing-only",
		JWTAccessTTL:           30 * time.Minute,
		JWTRefreshTTL:          30 * 24 * time.Hour,
		JWTIssuer:              "anivers-test",
		KodikAPIToken:          "test-kodik-token",
		ExternalTimeout:        2 * time.Second,
		MaxUploadSize:          1 << 20,
		RateLimitAuthPerMinute: 0,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server    *httptest.Server
	Providers *httptest.Server
	Repos     *repository.Repositories
	Services  *service.Services
	Tokens    *token.Service
	Config    *config.Config
}

// NewTestServer wires the whole API over in-memory repositories, a temp
// upload directory and a stub catalog/player provider.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return NewTestServerWithRepos(t, memory.NewRepositories())
}

func NewTestServerWithRepos(t *testing.T, repos *repository.Repositories) *TestServer {
	t.Helper()

	cfg := TestConfig()
	cfg.UploadDir = t.TempDir()

	providers := httptest.NewServer(ProviderStub())
	cfg.JikanBaseURL = providers.URL
	cfg.KodikBaseURL = providers.URL

	tokens, err := token.NewService(token.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}

	images, err := storage.NewLocalStore(cfg.UploadDir, cfg.MaxUploadSize)
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}

	services := service.NewServices(repos, service.Deps{
		Tokens: tokens,
		Catalog: external.NewJikanClient(external.JikanConfig{
			BaseURL: cfg.JikanBaseURL,
			Timeout: cfg.ExternalTimeout,
		}),
		Players: external.NewKodikClient(external.KodikConfig{
			BaseURL: cfg.KodikBaseURL,
			Token:   cfg.KodikAPIToken,
			Timeout: cfg.ExternalTimeout,
		}),
		BcryptCost: bcrypt.MinCost,
	})

	server := httptest.NewServer(api.NewRouter(services, tokens, images, cfg))

	ts := &TestServer{
		Server:    server,
		Providers: providers,
		Repos:     repos,
		Services:  services,
		Tokens:    tokens,
		Config:    cfg,
	}

	t.Cleanup(func() {
		server.Close()
		providers.Close()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}

// ProviderStub imitates just enough of Jikan and Kodik for the API tests:
// anime 21 exists, everything else is a 404, and Kodik knows shikimori id 21.
func ProviderStub() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/anime", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":[{"mal_id":21,"title":"One Piece"}],"query":%q}`, r.URL.RawQuery)
	})
	mux.HandleFunc("/anime/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anime/21/full" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"mal_id":21,"title":"One Piece","external":[{"url":"https://shikimori.one/animes/21"}]}}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("token") == "" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"missing token"}`))
			return
		}
		if strings.TrimSpace(r.URL.Query().Get("shikimori_id")) != "21" {
			w.Write([]byte(`{"results":[]}`))
			return
		}
		w.Write([]byte(`{"results":[{"link":"//kodik.test/serial/21","title":"One Piece","episodes_count":1100}]}`))
	})
	return mux
}
