package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Nazarious-ucu/nightjet-alerts/internal/config"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/emailer"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/metrics"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/models"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/memory"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/redisstore"
	"github.com/Nazarious-ucu/nightjet-alerts/internal/repository/sqlite"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	var cfg config.Config
	cfg.Store.Backend = config.StoreMemory
	cfg.Mailer.Mode = config.MailerLog
	cfg.DB.Dialect = "sqlite"
	cfg.DB.Source = filepath.Join(t.TempDir(), "alerts.db")
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, zerolog.Nop(), metrics.NewMetrics("app_test"))
}

func TestCreateSqliteDb_EmptyName(t *testing.T) {
	_, err := CreateSqliteDb(context.Background(), "sqlite", "")
	require.Error(t, err)
}

func TestNewStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		a := testApp(t, nil)
		store, err := a.newStore(context.Background(), &ServiceContainer{})
		require.NoError(t, err)
		assert.IsType(t, &memory.AlertRepository{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		a := testApp(t, func(c *config.Config) { c.Store.Backend = config.StoreSQLite })
		c := &ServiceContainer{}
		store, err := a.newStore(context.Background(), c)
		require.NoError(t, err)
		t.Cleanup(func() { c.close(zerolog.Nop()) })
		assert.IsType(t, &sqlite.AlertRepository{}, store)

		_, err = store.Create(context.Background(), models.Alert{ID: "x", Date: "15082024"})
		require.NoError(t, err)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		a := testApp(t, func(c *config.Config) { c.Store.Backend = config.StoreRedis })
		c := &ServiceContainer{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
		t.Cleanup(func() { c.close(zerolog.Nop()) })

		store, err := a.newStore(context.Background(), c)
		require.NoError(t, err)
		assert.IsType(t, &redisstore.AlertRepository{}, store)
	})
}

func TestNewMailer_Offline(t *testing.T) {
	a := testApp(t, nil)
	m, err := a.newMailer(&ServiceContainer{})
	require.NoError(t, err)
	assert.IsType(t, &emailer.LogMailer{}, m)
}

func TestNewMailer_SMTP(t *testing.T) {
	a := testApp(t, func(c *config.Config) {
		c.Mailer.Mode = config.MailerSMTP
		c.Email.Host = "smtp.example.com"
		c.Email.Port = "587"
	})
	m, err := a.newMailer(&ServiceContainer{})
	require.NoError(t, err)
	assert.IsType(t, &emailer.SMTPService{}, m)
}

func TestInit_WiresRoutes(t *testing.T) {
	a := testApp(t, func(c *config.Config) {
		c.TemplatesDir = "../../templates"
		c.HTTPLogsPath = filepath.Join(t.TempDir(), "http.log")
		c.Checker.Timezone = "UTC"
		c.Checker.Schedule = "0 */10 * * * *"
		c.Checker.Concurrency = 1
	})

	c, err := a.init(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { c.close(zerolog.Nop()) })

	routes := map[string]bool{}
	for _, r := range c.Router.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /alerts",
		"GET /alerts",
		"GET /alerts/check",
		"DELETE /alerts/:id",
		"GET /metrics",
	} {
		assert.True(t, routes[want], want)
	}
}
