package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultActionMapper(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		expected AuditAction
	}{
		{"POST creates", "POST", "/api/v1/users", AuditActionCreate},
		{"PUT updates", "PUT", "/api/v1/users/123", AuditActionUpdate},
		{"PATCH updates", "PATCH", "/api/v1/users/456", AuditActionUpdate},
		{"DELETE deletes", "DELETE", "/api/v1/tenants/789", AuditActionDelete},
		{"GET views", "GET", "/api/v1/tenants", AuditActionView},
		{"login path", "POST", "/api/v1/auth/login", AuditActionLogin},
		{"logout path", "POST", "/api/v1/auth/logout", AuditActionLogout},
		{"archive path", "POST", "/api/v1/templates/archive", AuditActionArchive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := defaultActionMapper(tt.method, tt.path)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDefaultResourceExtractor(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		expectedType string
		expectedID   string
	}{
		{"simple resource", "/api/v1/users/123e4567-e89b-12d3-a456-426614174000", "user", "123e4567-e89b-12d3-a456-426614174000"},
		{"resource list", "/api/v1/tenants", "tenant", ""},
		{"nested resource", "/api/v1/tenants/123", "tenant", "123"},
		{"numeric ID", "/api/v1/users/12345", "user", "12345"},
		{"no api prefix", "/users/abc", "user", ""},
		{"deep path", "/api/v1/tenants/123/users", "tenant", "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resourceType, resourceID := defaultResourceExtractor(tt.path)
			assert.Equal(t, tt.expectedType, resourceType)
			assert.Equal(t, tt.expectedID, resourceID)
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{
			name:       "from X-Forwarded-For",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "127.0.0.1:8080",
			expected:   "192.168.1.1",
		},
		{
			name:       "from X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "192.168.1.2"},
			remoteAddr: "127.0.0.1:8080",
			expected:   "192.168.1.2",
		},
		{
			name:       "from RemoteAddr",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.3:12345",
			expected:   "192.168.1.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest("GET", "/", nil)
			c.Request.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			result := getClientIP(c)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsValidID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid UUID", "123e4567-e89b-12d3-a456-426614174000", true},
		{"numeric ID", "12345", true},
		{"empty string", "", false},
		{"random string", "abc-def", false},
		{"partial UUID", "123e4567", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isValidID(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAuditLogger_Log(t *testing.T) {
	config := &AuditConfig{
		DB:            nil,
		BufferSize:    10,
		FlushInterval: 100 * time.Millisecond,
		BatchSize:     100,
	}

	logger := NewAuditLogger(config)
	logger.SetTestMode(true)
	defer logger.Close()

	entry := &AuditEntry{
		ID:           "test-id",
		Action:       AuditActionCreate,
		ResourceType: "test",
		CreatedAt:    time.Now(),
	}

	// Should not block
	logger.Log(entry)

	// Wait for flush
	time.Sleep(200 * time.Millisecond)

	entries := logger.GetTestEntries()
	assert.Len(t, entries, 1)
	assert.Equal(t, "test-id", entries[0].ID)
}

func TestAuditLogger_BufferFull(t *testing.T) {
	config := &AuditConfig{
		DB:            nil,
		BufferSize:    2,
		FlushInterval: 1 * time.Hour,
		BatchSize:     100,
	}

	logger := NewAuditLogger(config)
	defer logger.Close()

	// Fill the buffer - should not panic or block
	for i := 0; i < 5; i++ {
		logger.Log(&AuditEntry{ID: "test"})
	}
}

func TestAuditMiddleware_SkipPaths(t *testing.T) {
	config := &AuditConfig{
		DB:            nil,
		BufferSize:    100,
		FlushInterval: 100 * time.Millisecond,
		BatchSize:     100,
		SkipPaths:     []string{"/health", "/metrics"},
		SkipMethods:   []string{"HEAD", "OPTIONS"},
	}

	logger := NewAuditLogger(config)
	logger.SetTestMode(true)
	defer logger.Close()

	router := gin.New()
	router.Use(AuditMiddleware(logger))
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.HEAD("/api/v1/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Test skipped path (GET /health)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Test skipped method (HEAD /api/v1/test)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("HEAD", "/api/v1/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Wait for potential flush
	time.Sleep(200 * time.Millisecond)

	entries := logger.GetTestEntries()
	assert.Len(t, entries, 0, "No entries should be logged for skipped paths/methods")
}

func TestAuditMiddleware_CapturesUserInfo(t *testing.T) {
	config := &AuditConfig{
		DB:                nil,
		BufferSize:        100,
		FlushInterval:     100 * time.Millisecond,
		BatchSize:         100,
		SkipPaths:         []string{},
		SkipMethods:       []string{},
		ActionMapper:      defaultActionMapper,
		ResourceExtractor: defaultResourceExtractor,
	}

	logger := NewAuditLogger(config)
	logger.SetTestMode(true)
	defer logger.Close()

	router := gin.New()

	// Simulate JWT middleware
	router.Use(func(c *gin.Context) {
		c.Set(ContextKeyUserID, "user-123")
		c.Set(ContextKeyEmail, "test@example.com")
		c.Set(ContextKeyRole, "admin")
		c.Set(ContextKeyTenantID, "tenant-456")
		c.Next()
	})

	router.Use(AuditMiddleware(logger))
	router.POST("/api/v1/users", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/users", nil)
	req.Header.Set("X-Request-ID", "req-123")
	req.Header.Set("User-Agent", "TestAgent/1.0")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Wait for flush
	time.Sleep(200 * time.Millisecond)

	entries := logger.GetTestEntries()
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "user-123", *entry.UserID)
	assert.Equal(t, "test@example.com", entry.UserEmail)
	assert.Equal(t, "admin", entry.UserRole)
	assert.Equal(t, "tenant-456", *entry.TenantID)
	assert.Equal(t, AuditActionCreate, entry.Action)
	assert.Equal(t, "user", entry.ResourceType)
	assert.Equal(t, "req-123", entry.RequestID)
	assert.Equal(t, "TestAgent/1.0", entry.UserAgent)
	assert.False(t, entry.Denied)
}

func TestAuditMiddleware_CapturesDenial(t *testing.T) {
	config := &AuditConfig{
		DB:                nil,
		BufferSize:        100,
		FlushInterval:     100 * time.Millisecond,
		BatchSize:         100,
		SkipPaths:         []string{},
		SkipMethods:       []string{},
		ActionMapper:      defaultActionMapper,
		ResourceExtractor: defaultResourceExtractor,
	}

	logger := NewAuditLogger(config)
	logger.SetTestMode(true)
	defer logger.Close()

	router := gin.New()
	router.Use(AuditMiddleware(logger))
	router.GET("/api/v1/tenants/:id", func(c *gin.Context) {
		// Simulate the authz guard recording a denial
		SetAuditOperation(c, "tenants.get")
		SetAuditDenial(c, "role user lacks grant for read on tenant")
		c.AbortWithStatus(http.StatusForbidden)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1/tenants/tenant-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	// Wait for flush
	time.Sleep(200 * time.Millisecond)

	entries := logger.GetTestEntries()
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.True(t, entry.Denied)
	assert.Equal(t, "tenants.get", entry.Operation)
	assert.Equal(t, "role user lacks grant for read on tenant", entry.DenialReason)
	assert.Equal(t, http.StatusForbidden, entry.StatusCode)
}

func TestAuditMiddleware_SkipAudit(t *testing.T) {
	config := &AuditConfig{
		DB:                nil,
		BufferSize:        100,
		FlushInterval:     100 * time.Millisecond,
		BatchSize:         100,
		SkipPaths:         []string{},
		SkipMethods:       []string{},
		ActionMapper:      defaultActionMapper,
		ResourceExtractor: defaultResourceExtractor,
	}

	logger := NewAuditLogger(config)
	logger.SetTestMode(true)
	defer logger.Close()

	router := gin.New()
	router.Use(AuditMiddleware(logger))
	router.POST("/api/v1/internal", func(c *gin.Context) {
		SkipAudit(c)
		c.String(http.StatusOK, "OK")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/v1/internal", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Wait for potential flush
	time.Sleep(200 * time.Millisecond)

	entries := logger.GetTestEntries()
	assert.Len(t, entries, 0, "No entries should be logged when SkipAudit is called")
}

func TestAuditLogger_Close(t *testing.T) {
	config := &AuditConfig{
		DB:            nil,
		BufferSize:    100,
		FlushInterval: 100 * time.Millisecond, // Short interval to allow flush before close
		BatchSize:     100,
	}

	logger := NewAuditLogger(config)
	logger.SetTestMode(true)

	for i := 0; i < 5; i++ {
		logger.Log(&AuditEntry{ID: "test"})
	}

	// Wait for flush to happen before close
	time.Sleep(200 * time.Millisecond)

	// Close should not panic and should be idempotent
	err := logger.Close()
	assert.NoError(t, err)

	err = logger.Close()
	assert.NoError(t, err)

	entries := logger.GetTestEntries()
	assert.Len(t, entries, 5)
}

func TestDefaultAuditConfig(t *testing.T) {
	config := DefaultAuditConfig(nil)

	assert.Nil(t, config.DB)
	assert.Equal(t, 1000, config.BufferSize)
	assert.Equal(t, 5*time.Second, config.FlushInterval)
	assert.Equal(t, 100, config.BatchSize)
	assert.Contains(t, config.SkipPaths, "/health")
	assert.NotContains(t, config.SkipMethods, "GET")
	assert.NotNil(t, config.ActionMapper)
	assert.NotNil(t, config.ResourceExtractor)
}

func TestAuditLogger_BatchFlush(t *testing.T) {
	config := &AuditConfig{
		DB:            nil,
		BufferSize:    100,
		FlushInterval: 1 * time.Hour, // Long interval
		BatchSize:     5,             // Small batch size to trigger batch flush
	}

	logger := NewAuditLogger(config)
	logger.SetTestMode(true)
	defer logger.Close()

	for i := 0; i < 5; i++ {
		logger.Log(&AuditEntry{ID: "test"})
	}

	// Wait a bit for batch processing
	time.Sleep(100 * time.Millisecond)

	entries := logger.GetTestEntries()
	assert.Len(t, entries, 5)
}
