package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/campus-admin-backend/internal/config"
	"github.com/stemsi/campus-admin-backend/internal/response"
	"github.com/stemsi/campus-admin-backend/internal/service"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	s, err := service.NewAuthService(&config.Config{
		Admin: config.AdminIdentity{
			Username:      "admin",
			Password:      "admin123",
			SigningSecret: testSecret,
		},
		JWTExpiry:  time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func protectedEngine(auth *service.AuthService) *gin.Engine {
	r := gin.New()
	r.GET("/protected", RequireAuth(auth), RequireRole("admin"), func(c *gin.Context) {
		response.JSON(c, http.StatusOK, gin.H{"user": GetClaims(c).Username})
	})
	return r
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Error.Code)
	return body.Error.Code
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestAuthChain(t *testing.T) {
	auth := newAuthService(t)
	r := protectedEngine(auth)
	valid, _, err := auth.IssueToken("admin")
	require.NoError(t, err)

	now := time.Now()
	expired := signed(t, jwt.MapClaims{
		"username": "admin", "role": "admin",
		"iat": now.Add(-2 * time.Hour).Unix(), "exp": now.Add(-time.Hour).Unix(),
	})
	editor := signed(t, jwt.MapClaims{
		"username": "admin", "role": "editor",
		"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		header string
		status int
		code   response.ErrCode
	}{
		{"missing header", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"bare token", valid, http.StatusUnauthorized, response.ErrTokenInvalid},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, response.ErrTokenInvalid},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, response.ErrTokenExpired},
		{"wrong role", "Bearer " + editor, http.StatusForbidden, response.ErrAdminAccessOnly},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"lower-case scheme", "bearer " + valid, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				require.Equal(t, tt.code, errorCode(t, rec))
			}
		})
	}
}

func TestRequireRole_WithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	clock := time.Now()
	rl.now = func() time.Time { return clock }

	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	require.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	limited := do("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.NotEmpty(t, limited.Header().Get("Retry-After"))
	require.Equal(t, http.StatusOK, do("10.0.0.2").Code)

	clock = clock.Add(time.Minute)
	require.Equal(t, http.StatusOK, do("10.0.0.1").Code)
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("timetable ", 500)

	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/uploads/a.pdf", func(c *gin.Context) { c.String(http.StatusOK, big) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/big")
	require.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)
	require.Equal(t, big, string(plain))

	rec = get("/small")
	require.Empty(t, rec.Header().Get("Content-Encoding"))
	require.Equal(t, "ok", rec.Body.String())

	rec = get("/uploads/a.pdf")
	require.Empty(t, rec.Header().Get("Content-Encoding"))
	require.Equal(t, big, rec.Body.String())
}

func TestCacheControl(t *testing.T) {
	r := gin.New()
	r.GET("/f", CacheControl(60), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/f", nil))
	require.Equal(t, "public, max-age=60, immutable", rec.Header().Get("Cache-Control"))
}
