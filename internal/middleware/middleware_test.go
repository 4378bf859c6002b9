package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neural-trace-go/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func echoUser(c *gin.Context) {
	c.String(http.StatusOK, c.GetString(UserIDKey))
}

func TestIdentity(t *testing.T) {
	jwt := token.NewJWTManager("secret", 1)
	valid, err := jwt.GenerateToken("user-7")
	require.NoError(t, err)

	tests := []struct {
		name       string
		manager    *token.JWTManager
		defaultID  string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid_token", manager: jwt, header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: "user-7"},
		{name: "token_wins_over_default", manager: jwt, defaultID: "dev", header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: "user-7"},
		{name: "no_header", manager: jwt, wantStatus: http.StatusOK, wantBody: ""},
		{name: "no_header_default", manager: jwt, defaultID: "dev", wantStatus: http.StatusOK, wantBody: "dev"},
		{name: "bad_scheme", manager: jwt, header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "bad_token", manager: jwt, header: "Bearer junk", wantStatus: http.StatusUnauthorized},
		{name: "disabled_ignores_header", manager: nil, header: "Bearer junk", wantStatus: http.StatusOK, wantBody: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(Identity(tt.manager, tt.defaultID))
			r.GET("/", echoUser)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.POST("/echo", func(c *gin.Context) {
		body, _ := c.GetRawData()
		c.String(http.StatusOK, c.GetString(RequestIDKey)+"|"+string(body))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("hello")))
	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id+"|hello", w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("x"))
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc|x", w.Body.String())
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip([]byte("short")))
	long := strings.Repeat("a", maxLoggedBody+10)
	got := clip([]byte(long))
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))
	assert.Len(t, got, maxLoggedBody+len("...(truncated)"))
}
