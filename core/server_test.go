package core

import (
	"bytes"
	"testing"
	"time"

	"github.com/josephlewis42/flowsh/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPassword(t *testing.T) {
	assert.True(t, checkPassword("secret", "secret"))
	assert.False(t, checkPassword("secret", "Secret"))
	assert.False(t, checkPassword("secret", ""))
	assert.False(t, checkPassword("", ""), "an empty password never authenticates")
}

func TestThrottle(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	t.Run("unlimited", func(t *testing.T) {
		stdout, stderr := throttle(0, out, errOut)
		assert.Same(t, out, stdout)
		assert.Same(t, errOut, stderr)
	})

	t.Run("limited", func(t *testing.T) {
		stdout, stderr := throttle(1000, out, errOut)

		start := time.Now()
		_, err := stdout.Write(make([]byte, 1000))
		require.NoError(t, err)
		_, err = stderr.Write(make([]byte, 100))
		require.NoError(t, err)

		// The shared bucket starts full, the stderr write has to wait for it.
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
		assert.Equal(t, 1000, out.Len())
		assert.Equal(t, 100, errOut.Len())
	})
}

func TestNewServer(t *testing.T) {
	cfg := config.Default()
	cfg.SSH.Port = 2022

	server, err := NewServer(cfg)
	require.NoError(t, err)
	assert.Equal(t, ":2022", server.sshServer.Addr)

	require.NoError(t, server.toClose.Close())
}

func TestNewServer_BadHostKey(t *testing.T) {
	cfg := config.Default()
	cfg.LogEvents = false
	cfg.SSH.HostKeyPath = "missing_key"

	_, err := NewServer(cfg)
	assert.Error(t, err)
}
