package server

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionIDManager(t *testing.T) {
	m := NewSessionIDManager(time.Hour, nil)
	defer m.Stop()

	now := time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	id := m.Generate()
	assert.True(t, strings.HasPrefix(id, "mcp-session-"))
	assert.NotEqual(t, id, m.Generate())
	assert.Equal(t, 2, m.Count())

	terminated, err := m.Validate(id)
	assert.NoError(t, err)
	assert.False(t, terminated)

	terminated, err = m.Validate("mcp-session-unknown")
	assert.NoError(t, err)
	assert.True(t, terminated)

	// Validate refreshes the last access time.
	now = now.Add(50 * time.Minute)
	terminated, _ = m.Validate(id)
	assert.False(t, terminated)
	now = now.Add(50 * time.Minute)
	terminated, _ = m.Validate(id)
	assert.False(t, terminated)

	assert.Equal(t, 1, m.removeExpired())
	assert.Equal(t, 1, m.Count())

	notAllowed, err := m.Terminate(id)
	assert.NoError(t, err)
	assert.False(t, notAllowed)
	terminated, _ = m.Validate(id)
	assert.True(t, terminated)
	assert.Equal(t, 0, m.Count())

	m.Stop()
}

func TestSessionIDManager_Expiry(t *testing.T) {
	m := NewSessionIDManager(time.Minute, nil)
	defer m.Stop()

	now := time.Now()
	m.now = func() time.Time { return now }

	id := m.Generate()
	now = now.Add(2 * time.Minute)

	terminated, err := m.Validate(id)
	assert.NoError(t, err)
	assert.True(t, terminated)
	assert.Equal(t, 0, m.Count())
}
