// Package router wires the HTTP surface of the service: account
// routes, the ownership-scoped link API, the public redirect, and the
// subnet-gated internal stats endpoint.
package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/gzippedhttp"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/models"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/session"
)

// Router holds the handlers' collaborators.
type Router struct {
	svc      *service.Service
	sessions *session.Sessions
	validate *validator.Validate
}

// New assembles the chi mux with logging, gzip and identity middleware.
func New(
	svc *service.Service,
	sessions *session.Sessions,
	ipChecker *ipchecker.IPChecker,
) http.Handler {
	theRouter := &Router{
		svc:      svc,
		sessions: sessions,
		validate: validator.New(),
	}

	mux := chi.NewRouter()
	mux.Use(
		logger.WithLoggingHTTPMiddleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
		sessions.WithIdentity,
	)

	mux.Post(`/api/user/register`, theRouter.PostRegister)
	mux.Post(`/api/user/login`, theRouter.PostLogin)
	mux.Post(`/api/user/logout`, theRouter.PostLogout)
	mux.Get(`/api/user/urls`, theRouter.GetUserUrls)
	mux.Post(`/api/shorten`, theRouter.PostShorten)
	mux.Get(`/api/urls/{code}`, theRouter.GetURL)
	mux.Put(`/api/urls/{code}`, theRouter.PutURL)
	mux.Delete(`/api/urls/{code}`, theRouter.DeleteURL)
	mux.With(ipChecker.RequireTrusted).Get(`/api/internal/stats`, theRouter.GetInternalStats)
	mux.Get(`/ping`, theRouter.GetPing)
	mux.Get(`/{code}`, theRouter.GetRedirectToLongURL)

	return mux
}

// decodeAndValidate parses a JSON body into target and applies the
// validator tags. A false return means the response is already written.
func (rt *Router) decodeAndValidate(response http.ResponseWriter, request *http.Request, target interface{}) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		http.Error(response, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	if err := rt.validate.Struct(target); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}

// writeCoreError maps the typed core outcomes onto HTTP statuses:
// Unauthenticated and Forbidden both surface as 403, NotFound as 404,
// duplicate email as 409.
func writeCoreError(response http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		http.Error(response, "please log in to use this feature", http.StatusForbidden)
	case errors.Is(err, models.ErrForbidden):
		http.Error(response, "not authorized with this account", http.StatusForbidden)
	case errors.Is(err, models.ErrNotFound):
		http.Error(response, "short url not found", http.StatusNotFound)
	case errors.Is(err, models.ErrEmailTaken):
		http.Error(response, "email already registered", http.StatusConflict)
	case errors.Is(err, models.ErrInvalidCredentials):
		http.Error(response, "invalid email or password", http.StatusForbidden)
	default:
		logger.Log.Errorln("internal error: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
	}
}

func writeJSON(response http.ResponseWriter, statusCode int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error encoding the response: ", zap.Error(err))
	}
}

// PostRegister creates an account and establishes a session for it.
func (rt *Router) PostRegister(response http.ResponseWriter, request *http.Request) {
	var body models.RegisterRequest
	if !rt.decodeAndValidate(response, request, &body) {
		return
	}

	usr, err := rt.svc.RegisterUser(request.Context(), body.Email, body.Password)
	if err != nil {
		writeCoreError(response, err)
		return
	}

	if _, err := rt.sessions.Establish(request.Context(), response, usr.ID); err != nil {
		writeCoreError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, usr)
}

// PostLogin authenticates an account and establishes a session for it.
func (rt *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var body models.LoginRequest
	if !rt.decodeAndValidate(response, request, &body) {
		return
	}

	usr, err := rt.svc.LoginUser(request.Context(), body.Email, body.Password)
	if err != nil {
		writeCoreError(response, err)
		return
	}

	if _, err := rt.sessions.Establish(request.Context(), response, usr.ID); err != nil {
		writeCoreError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, usr)
}

// PostLogout revokes the current session. Always succeeds.
func (rt *Router) PostLogout(response http.ResponseWriter, request *http.Request) {
	if err := rt.sessions.Revoke(request.Context(), response, request); err != nil {
		writeCoreError(response, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// GetUserUrls lists the caller's own links. Anonymous callers get 403;
// an owner of nothing gets 204.
func (rt *Router) GetUserUrls(response http.ResponseWriter, request *http.Request) {
	userID := session.UserIDFromContext(request.Context())
	if userID == "" {
		writeCoreError(response, models.ErrUnauthenticated)
		return
	}

	links, err := rt.svc.GetUserLinks(request.Context(), userID)
	if err != nil {
		writeCoreError(response, err)
		return
	}

	if len(links) == 0 {
		response.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(response, http.StatusOK, links)
}

// PostShorten creates a new link owned by the caller.
func (rt *Router) PostShorten(response http.ResponseWriter, request *http.Request) {
	var body models.ShortenRequest
	if !rt.decodeAndValidate(response, request, &body) {
		return
	}

	link, err := rt.svc.CreateLink(
		request.Context(),
		session.UserIDFromContext(request.Context()),
		body.URL,
	)
	if err != nil {
		writeCoreError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.ShortenResponse{
		Code:     link.Code,
		ShortURL: rt.svc.GetShortURL(link.Code),
	})
}

// GetURL returns a single record to its owner.
func (rt *Router) GetURL(response http.ResponseWriter, request *http.Request) {
	link, err := rt.svc.GetOwnedLink(
		request.Context(),
		session.UserIDFromContext(request.Context()),
		chi.URLParam(request, "code"),
	)
	if err != nil {
		writeCoreError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, link)
}

// PutURL replaces the destination of an owned record.
func (rt *Router) PutURL(response http.ResponseWriter, request *http.Request) {
	var body models.UpdateLinkRequest
	if !rt.decodeAndValidate(response, request, &body) {
		return
	}

	err := rt.svc.UpdateLink(
		request.Context(),
		session.UserIDFromContext(request.Context()),
		chi.URLParam(request, "code"),
		body.URL,
	)
	if err != nil {
		writeCoreError(response, err)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// DeleteURL removes an owned record.
func (rt *Router) DeleteURL(response http.ResponseWriter, request *http.Request) {
	err := rt.svc.DeleteLink(
		request.Context(),
		session.UserIDFromContext(request.Context()),
		chi.URLParam(request, "code"),
	)
	if err != nil {
		writeCoreError(response, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// GetRedirectToLongURL is the public redirect path: any client may
// resolve a short code to its destination.
func (rt *Router) GetRedirectToLongURL(response http.ResponseWriter, request *http.Request) {
	link, err := rt.svc.ResolveLink(request.Context(), chi.URLParam(request, "code"))
	if err != nil {
		writeCoreError(response, err)
		return
	}

	http.Redirect(response, request, link.LongURL, http.StatusTemporaryRedirect)
}

// GetPing reports storage health.
func (rt *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := rt.svc.Ping(request.Context()); err != nil {
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalStats returns aggregate counters. Reachable only from the
// trusted subnet (see ipchecker.RequireTrusted).
func (rt *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	stats, err := rt.svc.GetInternalStats(request.Context())
	if err != nil {
		writeCoreError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}
