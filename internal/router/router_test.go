package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/tinyapp/internal/db/memorystorage"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/session"
)

const (
	testShortURLBase  = "http://localhost:8080"
	testCookieName    = "tinyapp_session"
	testTrustedSubnet = "10.0.0.0/8"
)

var testSigningKey = []byte("supersecretkey")

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	require.NoError(t, logger.Init("debug"))

	db, err := memorystorage.New()
	require.NoError(t, err)

	theIPChecker, err := ipchecker.New(testTrustedSubnet)
	require.NoError(t, err)

	handler := New(
		service.New(db, testShortURLBase),
		session.New(db, testCookieName, testSigningKey),
		theIPChecker,
	)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

func registerUser(t *testing.T, srv *httptest.Server, email, password string) *resty.Client {
	t.Helper()

	client := resty.New().SetBaseURL(srv.URL)
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.RegisterRequest{Email: email, Password: password}).
		Post("/api/user/register")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	return client
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	srv := newTestServer(t)

	client := registerUser(t, srv, "alice@example.com", "pw1")

	// Duplicate registration conflicts.
	resp, err := resty.New().SetBaseURL(srv.URL).R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.RegisterRequest{Email: "alice@example.com", Password: "other"}).
		Post("/api/user/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode())

	// Logout revokes the session: creating afterwards is rejected.
	resp, err = client.R().Post("/api/user/logout")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	resp, err = client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ShortenRequest{URL: "https://example.com"}).
		Post("/api/shorten")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	// Wrong password is rejected without detail.
	resp, err = client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Email: "alice@example.com", Password: "wrong"}).
		Post("/api/user/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	// Correct login re-establishes the session.
	resp, err = client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.LoginRequest{Email: "alice@example.com", Password: "pw1"}).
		Post("/api/user/login")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ShortenRequest{URL: "https://example.com"}).
		Post("/api/shorten")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
}

func TestShortenAndRedirect(t *testing.T) {
	srv := newTestServer(t)
	client := registerUser(t, srv, "alice@example.com", "pw1")

	var created models.ShortenResponse
	resp, err := client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ShortenRequest{URL: "https://example.com/some/long/path"}).
		SetResult(&created).
		Post("/api/shorten")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	require.NotEmpty(t, created.Code)
	assert.Equal(t, fmt.Sprintf("%s/%s", testShortURLBase, created.Code), created.ShortURL)

	// The redirect path is public: a plain client with no session.
	plainClient := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	redirectResp, err := plainClient.Get(srv.URL + "/" + created.Code)
	require.NoError(t, err)
	defer redirectResp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, redirectResp.StatusCode)
	assert.Equal(t, "https://example.com/some/long/path", redirectResp.Header.Get("Location"))

	unknownResp, err := plainClient.Get(srv.URL + "/n0such")
	require.NoError(t, err)
	defer unknownResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, unknownResp.StatusCode)
}

func TestAnonymousCannotCreate(t *testing.T) {
	srv := newTestServer(t)

	resp, err := resty.New().SetBaseURL(srv.URL).R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ShortenRequest{URL: "https://example.com"}).
		Post("/api/shorten")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())
}

func TestOwnershipEnforcement(t *testing.T) {
	srv := newTestServer(t)
	alice := registerUser(t, srv, "alice@example.com", "pw1")
	bob := registerUser(t, srv, "bob@example.com", "pw2")

	var created models.ShortenResponse
	resp, err := alice.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ShortenRequest{URL: "https://a.com"}).
		SetResult(&created).
		Post("/api/shorten")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())
	code := created.Code

	// Bob cannot read, update, or delete Alice's record.
	resp, err = bob.R().Get("/api/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp, err = bob.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.UpdateLinkRequest{URL: "https://evil.com"}).
		Put("/api/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	resp, err = bob.R().Delete("/api/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	// The record is unchanged.
	var link models.Link
	resp, err = alice.R().SetResult(&link).Get("/api/urls/" + code)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "https://a.com", link.LongURL)

	// Updating an unknown code is a 404 for an authenticated caller.
	resp, err = alice.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.UpdateLinkRequest{URL: "https://b.com"}).
		Put("/api/urls/n0such")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	// The owner can update and delete.
	resp, err = alice.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.UpdateLinkRequest{URL: "https://a2.com"}).
		Put("/api/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	resp, err = alice.R().Delete("/api/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	resp, err = alice.R().Get("/api/urls/" + code)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestUserUrlsListing(t *testing.T) {
	srv := newTestServer(t)

	// Anonymous listing is rejected.
	resp, err := resty.New().SetBaseURL(srv.URL).R().Get("/api/user/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	alice := registerUser(t, srv, "alice@example.com", "pw1")
	bob := registerUser(t, srv, "bob@example.com", "pw2")

	// An owner of nothing gets 204.
	resp, err = alice.R().Get("/api/user/urls")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())

	for _, url := range []string{"https://a.com/1", "https://a.com/2"} {
		resp, err = alice.R().
			SetHeader("Content-Type", "application/json").
			SetBody(models.ShortenRequest{URL: url}).
			Post("/api/shorten")
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode())
	}

	resp, err = bob.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ShortenRequest{URL: "https://b.com"}).
		Post("/api/shorten")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	var listing models.UserLinks
	resp, err = alice.R().SetResult(&listing).Get("/api/user/urls")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, listing, 2)
	for _, item := range listing {
		assert.Contains(t, item.LongURL, "https://a.com/")
	}
}

func TestInternalStats(t *testing.T) {
	srv := newTestServer(t)
	alice := registerUser(t, srv, "alice@example.com", "pw1")

	resp, err := alice.R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.ShortenRequest{URL: "https://a.com"}).
		Post("/api/shorten")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode())

	// From outside the trusted subnet the endpoint does not exist for you.
	resp, err = resty.New().SetBaseURL(srv.URL).R().Get("/api/internal/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode())

	var stats models.InternalStatsResponse
	resp, err = resty.New().SetBaseURL(srv.URL).R().
		SetHeader("X-Real-IP", "10.1.2.3").
		SetResult(&stats).
		Get("/api/internal/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, int64(1), stats.Links)
	assert.Equal(t, int64(1), stats.Users)
}

func TestPing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := resty.New().SetBaseURL(srv.URL).R().Get("/ping")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestRequestValidation(t *testing.T) {
	srv := newTestServer(t)
	client := registerUser(t, srv, "alice@example.com", "pw1")

	var badBodies = map[string]string{
		"not JSON at all": `this is not JSON`,
		"missing url":     `{}`,
	}
	for name, body := range badBodies {
		t.Run(name, func(t *testing.T) {
			resp, err := client.R().
				SetHeader("Content-Type", "application/json").
				SetBody(body).
				Post("/api/shorten")
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		})
	}

	resp, err := resty.New().SetBaseURL(srv.URL).R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.RegisterRequest{Email: "not-an-email", Password: "pw"}).
		Post("/api/user/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())

	resp, err = resty.New().SetBaseURL(srv.URL).R().
		SetHeader("Content-Type", "application/json").
		SetBody(models.RegisterRequest{Email: "blank-password@example.com", Password: ""}).
		Post("/api/user/register")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
}
