package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.False(t, cfg.Fiscal.NFeRemoteEnabled)
	assert.Equal(t, 1500*time.Millisecond, cfg.Fiscal.NFeSimulatedDelay)
	assert.Equal(t, 15*time.Second, cfg.Fiscal.BridgeTimeout)
	assert.False(t, cfg.Redis.Enabled(), "sin REDIS_ADDR no hay lock por pedido")
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_ValoresDesdeEntorno(t *testing.T) {
	v := viper.New()
	v.Set("NFE_REMOTE_ENABLED", "true")
	v.Set("NFE_API_URL", "https://nfe.example.com")
	v.Set("FISCAL_BRIDGE_TIMEOUT_SECONDS", "3")
	v.Set("REDIS_ADDR", "localhost:6379")
	v.Set("DB_PORT", "6543")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.True(t, cfg.Fiscal.NFeRemoteEnabled)
	assert.Equal(t, 3*time.Second, cfg.Fiscal.BridgeTimeout)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 6543, cfg.DB.Port)
}

func TestFromViper_RemotoSinURL_Error(t *testing.T) {
	v := viper.New()
	v.Set("NFE_REMOTE_ENABLED", "true")

	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "x", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/x?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://supabase"
	assert.Equal(t, "postgres://supabase", c.ConnectionString())
}

func TestFromViper_PoolInvalido(t *testing.T) {
	v := viper.New()
	v.Set("DB_MAX_CONNS", "2")
	v.Set("DB_MIN_CONNS", "5")

	_, err := fromViper(v)
	assert.Error(t, err)
}
