package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/rigidsim/internal/config"
)

func TestParseKicks(t *testing.T) {
	got, err := parseKicks([]string{"60:rod1:1", "0:rod0:-2.5"})
	require.NoError(t, err)
	assert.Equal(t, []config.KickConfig{
		{Step: 60, Body: "rod1", AngularVelocity: 1},
		{Step: 0, Body: "rod0", AngularVelocity: -2.5},
	}, got)

	for _, bad := range []string{"60:rod1", "x:rod1:1", "1:rod1:fast"} {
		_, err := parseKicks([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestSetFrictionOverrides(t *testing.T) {
	cfg := config.DoublePendulum()
	setFriction(cfg, 0.5)

	var n int
	for _, g := range cfg.Generators {
		if g.Type == config.KindFriction {
			n++
			assert.Equal(t, 0.5, g.Coefficient)
		}
	}
	assert.Equal(t, 1, n)
}

func TestSetFrictionAddsToHinges(t *testing.T) {
	cfg := config.SinglePendulum()
	setFriction(cfg, 0.1)

	last := cfg.Generators[len(cfg.Generators)-1]
	assert.Equal(t, config.KindFriction, last.Type)
	assert.Equal(t, "pin", last.Constraint)
	assert.NoError(t, cfg.Validate())
}

func TestGravityOf(t *testing.T) {
	assert.Equal(t, -10.0, gravityOf(config.DoublePendulum())[1])
	assert.Equal(t, config.DefaultGravity, gravityOf(&config.Config{})[1])
}
