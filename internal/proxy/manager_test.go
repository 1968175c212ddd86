package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetProxyRotates(t *testing.T) {
	m := NewManager([]string{"http://p1:8000", "", "://bad", "http://p2:8000"}, "")

	assert.Equal(t, "p1:8000", m.GetProxy().Host)
	assert.Equal(t, "p2:8000", m.GetProxy().Host)
	assert.Equal(t, "p1:8000", m.GetProxy().Host)
}

func TestNoProxies(t *testing.T) {
	m := NewManager(nil, "")

	assert.Nil(t, m.GetProxy())
	u, err := m.ProxyFunc(nil)
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestGetUserAgent(t *testing.T) {
	assert.Contains(t, defaultUserAgents, NewManager(nil, "").GetUserAgent())
	assert.Equal(t, "election-scraper/1.0", NewManager(nil, "election-scraper/1.0").GetUserAgent())
}
