package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPFromRequestPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", IPFromRequest(req))
}

func TestIPFromRequestFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.RemoteAddr = "192.0.2.1:4321"
	assert.Equal(t, "192.0.2.1", IPFromRequest(req))
}

func TestBuildHeadersSkipsEmptyValues(t *testing.T) {
	assert.Equal(t, map[string]string{"trace_id": "t"}, BuildHeaders("", "t"))
	assert.Empty(t, BuildHeaders("", ""))
}
