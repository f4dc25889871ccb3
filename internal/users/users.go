// Package users serves the account routes mounted at /v2/user: sign-up,
// login, the current account and account deletion.
package users

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"rest-gateway/internal/accounts"
	"rest-gateway/middleware/ratelimit/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 16

// Tokens signs and verifies bearer tokens.
type Tokens interface {
	domain.TokenVerifier
	Sign(accountID, email string) (string, error)
}

type Handler struct {
	Store        accounts.Store
	Tokens       Tokens
	TokenSchemes []string
	Logger       logrus.FieldLogger
}

type userRequest struct {
	User struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		BchAddr     string `json:"bchAddr"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		DisplayName string `json:"displayName"`
		Misc        string `json:"misc"`
	} `json:"user"`
}

type authJSON struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.status)
	r.Post("/", h.create)
	r.Post("/login", h.login)
	r.Get("/current", h.current)
	r.Delete("/{id}", h.delete)
	return r
}

var discardLogger = func() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (h Handler) log() logrus.FieldLogger {
	if h.Logger == nil {
		return discardLogger
	}
	return h.Logger
}

func (h Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "user"})
}

func (h Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeUser(w, r)
	if !ok {
		return
	}

	acct := accounts.Account{
		Email:       req.User.Email,
		BchAddr:     req.User.BchAddr,
		FirstName:   req.User.FirstName,
		LastName:    req.User.LastName,
		DisplayName: req.User.DisplayName,
		Misc:        req.User.Misc,
	}
	if err := acct.SetPassword(req.User.Password); err != nil {
		h.log().WithError(err).Error("set password")
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	created, err := h.Store.Create(r.Context(), acct)
	if errors.Is(err, accounts.ErrEmailTaken) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log().WithError(err).Error("create user")
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	h.log().WithField("account_id", created.ID).Info("user created")
	h.respondAuth(w, created)
}

func (h Handler) login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeUser(w, r)
	if !ok {
		return
	}

	acct, err := h.Store.GetByEmail(r.Context(), req.User.Email)
	if err != nil && !errors.Is(err, accounts.ErrNotFound) {
		h.log().WithError(err).Error("login lookup")
		writeError(w, http.StatusInternalServerError, "could not log in")
		return
	}
	if err != nil || !acct.ValidatePassword(req.User.Password) {
		writeError(w, http.StatusBadRequest, "email or password is invalid")
		return
	}
	h.respondAuth(w, acct)
}

func (h Handler) current(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	acct, err := h.Store.Get(r.Context(), claim.AccountID)
	if errors.Is(err, accounts.ErrNotFound) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log().WithError(err).Error("current user lookup")
		writeError(w, http.StatusInternalServerError, "could not load user")
		return
	}
	h.respondAuth(w, acct)
}

func (h Handler) delete(w http.ResponseWriter, r *http.Request) {
	claim, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if claim.AccountID != id {
		writeError(w, http.StatusForbidden, "cannot delete another account")
		return
	}
	err := h.Store.Delete(r.Context(), id)
	if errors.Is(err, accounts.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.log().WithError(err).Error("delete user")
		writeError(w, http.StatusInternalServerError, "could not delete user")
		return
	}
	h.log().WithField("account_id", id).Info("user deleted")
	w.WriteHeader(http.StatusNoContent)
}

// authenticate writes 401 and returns false unless the request carries a
// valid bearer token.
func (h Handler) authenticate(w http.ResponseWriter, r *http.Request) (domain.ProUserClaim, bool) {
	cred := domain.ParseAuthorization(r.Header.Get("Authorization"), h.TokenSchemes...)
	if cred.Kind != domain.CredentialBearer {
		writeError(w, http.StatusUnauthorized, "authorization token required")
		return domain.ProUserClaim{}, false
	}
	claim, err := h.Tokens.Verify(cred.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return domain.ProUserClaim{}, false
	}
	return claim, true
}

func (h Handler) respondAuth(w http.ResponseWriter, acct accounts.Account) {
	tok, err := h.Tokens.Sign(acct.ID, acct.Email)
	if err != nil {
		h.log().WithError(err).Error("sign token")
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]authJSON{
		"user": {ID: acct.ID, Email: acct.Email, Token: tok},
	})
}

// decodeUser reads {"user": {...}} and writes 400/422 itself on failure.
func decodeUser(w http.ResponseWriter, r *http.Request) (userRequest, bool) {
	var req userRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if req.User.Email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, fieldErrors("email"))
		return req, false
	}
	if req.User.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, fieldErrors("password"))
		return req, false
	}
	return req, true
}

func fieldErrors(field string) map[string]map[string]string {
	return map[string]map[string]string{"errors": {field: "is required"}}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
