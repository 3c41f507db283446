package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandler())
}

func do(t *testing.T, router *gin.Engine, method, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, Path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestReceiveKnownEvents(t *testing.T) {
	router := newTestRouter()

	for _, event := range []string{EventFrameAdded, EventFrameRemoved, EventNotificationsEnabled, EventNotificationsDisabled} {
		t.Run(event, func(t *testing.T) {
			code, body := do(t, router, http.MethodPost, `{"event":"`+event+`","notificationDetails":{"token":"abc"}}`)
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, true, body["success"])
		})
	}
}

func TestReceiveUnknownEvent(t *testing.T) {
	code, body := do(t, newTestRouter(), http.MethodPost, `{"event":"something_else"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
}

func TestReceiveMalformedBody(t *testing.T) {
	code, body := do(t, newTestRouter(), http.MethodPost, `{"event":`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body["error"])
}

func TestHealth(t *testing.T) {
	code, body := do(t, newTestRouter(), http.MethodGet, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Coin Flip webhook endpoint", body["message"])
}
