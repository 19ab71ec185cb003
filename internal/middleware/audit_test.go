package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactAuditBodyWithdrawals(t *testing.T) {
	body := []byte(`{"tokens":["0x01"],"signature":"0xdead","nested":{"private_key":"k","owner_key":"o"}}`)
	out := redactAuditBody("/v1/withdrawals", body)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "***", data["signature"])
	nested, ok := data["nested"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "***", nested["private_key"])
	assert.Equal(t, "***", nested["owner_key"])
	assert.Equal(t, []interface{}{"0x01"}, data["tokens"])
}

func TestRedactAuditBodyNonSensitivePath(t *testing.T) {
	body := []byte(`{"signature":"kept"}`)
	assert.Equal(t, string(body), redactAuditBody("/v1/sync", body))
}

func TestRedactAuditBodyInvalidJSON(t *testing.T) {
	assert.Equal(t, "[redacted]", redactAuditBody("/v1/config", []byte("not-json")))
}

func TestAddAuditContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var captured *model.AuditLog

	r := gin.New()
	r.Use(func(c *gin.Context) {
		entry := &model.AuditLog{Context: map[string]interface{}{}}
		c.Set(ContextAuditLog, entry)
		c.Next()
		captured = entry
	})
	r.POST("/v1/sync", func(c *gin.Context) {
		AddAuditContext(c, "pool", "0x05")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sync", strings.NewReader("{}")))

	require.NotNil(t, captured)
	assert.Equal(t, "0x05", captured.Context["pool"])
}
