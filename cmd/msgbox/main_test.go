package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b ,", ","))
	assert.Empty(t, splitAndTrim("", ","))
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Setenv("MSGBOX_HOST", "https://env.example")
	t.Setenv("MSGBOX_LOG_LEVEL", "debug")

	c := commonFlags{}
	cfg, err := c.loadConfig(true)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.Client.Host)
	assert.Equal(t, "https://env.example/overlay", cfg.Overlay.Endpoint)
	assert.Equal(t, "debug", cfg.Log.Level)

	c = commonFlags{host: "https://flag.example", overlay: "https://overlay.example"}
	cfg, err = c.loadConfig(true)
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example", cfg.Client.Host)
	assert.Equal(t, "https://overlay.example", cfg.Overlay.Endpoint)

	c = commonFlags{}
	cfg, err = c.loadConfig(false)
	require.NoError(t, err)
	assert.Empty(t, cfg.Overlay.Endpoint)
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run([]string{"bogus"})
	assert.True(t, errors.Is(err, errUsage))
	assert.NoError(t, run(nil))
	assert.NoError(t, runVersion(context.Background(), nil))
}

func TestSend_MissingArgs(t *testing.T) {
	err := runSend(context.Background(), []string{"-box", "inbox"})
	assert.ErrorIs(t, err, errUsage)
}
