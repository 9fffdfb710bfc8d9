package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{name: "settled", status: http.StatusCreated, level: "INFO"},
		{name: "already settled", status: http.StatusConflict, level: "WARN"},
		{name: "run failed", status: http.StatusInternalServerError, level: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, logs := gateway(t)
			r.POST("/api/v1/settlements/run", func(c *gin.Context) {
				c.Status(tt.status)
			})

			serve(r, http.MethodPost, "/api/v1/settlements/run?date=2024-03-14", "corr-run")

			entry := lastLogEntry(t, logs.String())
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "HTTP request", entry["msg"])
			assert.Equal(t, "POST", entry["method"])
			assert.Equal(t, "/api/v1/settlements/run?date=2024-03-14", entry["path"])
			assert.EqualValues(t, tt.status, entry["status"])
			assert.Equal(t, "corr-run", entry["correlation_id"])
			assert.Contains(t, entry, "latency")
		})
	}
}

func TestLogger_IncludesHandlerErrors(t *testing.T) {
	r, logs := gateway(t)
	r.GET("/api/v1/settlements/:id", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusNotFound)
	})

	serve(r, http.MethodGet, "/api/v1/settlements/7", "")

	entry := lastLogEntry(t, logs.String())
	assert.Equal(t, "WARN", entry["level"])
	assert.Contains(t, entry["errors"], assert.AnError.Error())
	assert.NotEmpty(t, entry["correlation_id"])
}

func lastLogEntry(t *testing.T, out string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}
