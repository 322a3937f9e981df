package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/heartmarshall/myquran/pkg/ctxutil"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, remoteAddr string, userID uuid.UUID) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req.RemoteAddr = remoteAddr
	if userID != uuid.Nil {
		req = req.WithContext(ctxutil.WithUserID(req.Context(), userID))
	}
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 10, time.Minute)
	defer rl.Stop()
	handler := rl.Limit()(okHandler())

	for i := 0; i < 10; i++ {
		rec := doRequest(handler, "1.2.3.4:1234", uuid.Nil)
		assert.Equal(t, http.StatusOK, rec.Code, "request %d should be allowed", i)
	}
}

func TestRateLimiter_BlocksOverBurst(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0.1, 5, time.Minute)
	defer rl.Stop()
	handler := rl.Limit()(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "1.2.3.4:1234", uuid.Nil).Code)
	}

	rec := doRequest(handler, "1.2.3.4:1234", uuid.Nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "11", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestRateLimiter_DifferentIPsIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0.1, 2, time.Minute)
	defer rl.Stop()
	handler := rl.Limit()(okHandler())

	for i := 0; i < 2; i++ {
		doRequest(handler, "1.1.1.1:1234", uuid.Nil)
	}

	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "1.1.1.1:1234", uuid.Nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "2.2.2.2:5678", uuid.Nil).Code)
}

func TestRateLimiter_KeyedByUserAcrossIPs(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0.1, 2, time.Minute)
	defer rl.Stop()
	handler := rl.Limit()(okHandler())

	user := uuid.New()
	assert.Equal(t, http.StatusOK, doRequest(handler, "1.1.1.1:1", user).Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "2.2.2.2:2", user).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "3.3.3.3:3", user).Code)

	// Another user on the same address has its own bucket.
	assert.Equal(t, http.StatusOK, doRequest(handler, "3.3.3.3:3", uuid.New()).Code)
}

func TestRateLimiter_TokenRefill(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(20, 1, time.Minute)
	defer rl.Stop()
	handler := rl.Limit()(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(handler, "3.3.3.3:1234", uuid.Nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "3.3.3.3:1234", uuid.Nil).Code)

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, http.StatusOK, doRequest(handler, "3.3.3.3:1234", uuid.Nil).Code)
}

func TestRateLimiter_EvictsIdleCallers(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1, time.Hour)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }

	handler := rl.Limit()(okHandler())
	doRequest(handler, "1.1.1.1:1", uuid.Nil)
	doRequest(handler, "2.2.2.2:2", uuid.Nil)
	assert.Equal(t, 2, rl.Len())

	now = now.Add(2 * time.Hour)
	doRequest(handler, "2.2.2.2:2", uuid.Nil)
	rl.evict()

	assert.Equal(t, 1, rl.Len())
}
