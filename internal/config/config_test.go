package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypedLookups(t *testing.T) {
	t.Setenv("CFG_STR", "hello")
	t.Setenv("CFG_INT", "42")
	t.Setenv("CFG_BOOL", "1")
	t.Setenv("CFG_BAD", "not-a-number")

	var s Snapshot
	assert.Equal(t, "hello", s.String("CFG_STR", "def"))
	assert.Equal(t, "def", s.String("CFG_MISSING", "def"))
	assert.Equal(t, 42, s.Int("CFG_INT", 7))
	assert.Equal(t, 7, s.Int("CFG_BAD", 7))
	assert.True(t, s.Bool("CFG_BOOL", false))
	assert.False(t, s.Bool("CFG_BAD", false))
	assert.True(t, s.Bool("CFG_MISSING", true))
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "QMORD", cfg.Business.OrderCodePrefix)
	assert.Equal(t, 2*time.Minute, cfg.Business.MatchBackWindow)
	assert.Equal(t, int64(25000), cfg.Business.FlatShippingFee)
}
