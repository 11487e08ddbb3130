package ipchecker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatedHandler(t *testing.T, trustedSubnet string) http.Handler {
	t.Helper()

	checker, err := New(trustedSubnet)
	require.NoError(t, err)

	return checker.RequireTrusted(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireTrusted(t *testing.T) {
	handler := newGatedHandler(t, "10.0.0.0/8")

	testCases := []struct {
		name         string
		realIP       string
		remoteAddr   string
		expectedCode int
	}{
		{"trusted via X-Real-IP", "10.1.2.3", "192.0.2.1:1234", http.StatusOK},
		{"untrusted via X-Real-IP", "192.0.2.7", "192.0.2.1:1234", http.StatusForbidden},
		{"trusted via RemoteAddr", "", "10.9.8.7:4321", http.StatusOK},
		{"untrusted via RemoteAddr", "", "127.0.0.1:4321", http.StatusForbidden},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = testCase.remoteAddr
			if testCase.realIP != "" {
				request.Header.Set("X-Real-IP", testCase.realIP)
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.expectedCode, recorder.Code)
		})
	}
}

func TestEmptySubnetFailsClosed(t *testing.T) {
	handler := newGatedHandler(t, "")

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Real-IP", "10.1.2.3")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestInvalidCIDRIsRejected(t *testing.T) {
	_, err := New("not-a-cidr")
	assert.Error(t, err)
}
