package auth

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/screensnap/service/internal/response"
)

// Cookie names.
const (
	SessionCookie = "screensnap_session"
	StateCookie   = "screensnap_oauth_state"
)

const stateTTL = 10 * time.Minute

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc    *Service
	secure bool
}

// NewHandler creates a new auth Handler. secure marks cookies HTTPS-only.
func NewHandler(svc *Service, secure bool) *Handler {
	return &Handler{svc: svc, secure: secure}
}

// Login godoc
//
//	@Summary		Start sign-in
//	@Description	Redirects to the OAuth provider with a fresh state cookie.
//	@Tags			auth
//	@Success		302
//	@Router			/auth/login [get]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.svc.LoginURL(state), http.StatusFound)
}

// Callback godoc
//
//	@Summary		Finish sign-in
//	@Description	Exchanges the authorization code, sets the session cookie and redirects to the gallery. Without a code it redirects home.
//	@Tags			auth
//	@Param			code	query	string	false	"Authorization code"
//	@Param			state	query	string	false	"State echoed by the provider"
//	@Success		302
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		401	{object}	response.ErrorBody
//	@Router			/auth/callback [get]
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	stateCookie, err := r.Cookie(StateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		response.BadRequest(w, "invalid oauth state")
		return
	}
	h.clearCookie(w, StateCookie, "/auth")

	token, id, err := h.svc.Complete(r.Context(), code)
	if err != nil {
		log.Printf("auth: callback failed: %v", err)
		if errors.Is(err, ErrExchangeFailed) {
			response.Unauthorized(w, "authentication failed")
			return
		}
		response.InternalError(w, "authentication failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.svc.Sessions().TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Printf("auth: signed in user=%s", id.ID)
	http.Redirect(w, r, "/gallery", http.StatusFound)
}

// Logout godoc
//
//	@Summary		Sign out
//	@Description	Clears the session cookie.
//	@Tags			auth
//	@Success		204
//	@Router			/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, SessionCookie, "/")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
