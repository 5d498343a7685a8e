package handler

import (
	"errors"
	"net/http"

	"crownkeys/internal/api"
	"crownkeys/internal/auth"
	"crownkeys/internal/domain"
	"crownkeys/internal/storage/postgres"
)

// Auth handles registration, sessions and the profile resource.
type Auth struct {
	provider IdentityProvider
	users    UserStore
	issuer   TokenIssuer
}

// NewAuth wires the auth handlers.
func NewAuth(provider IdentityProvider, users UserStore, issuer TokenIssuer) *Auth {
	return &Auth{provider: provider, users: users, issuer: issuer}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

type sessionResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	ExpiresIn    int         `json:"expires_in,omitempty"`
	User         domain.User `json:"user"`
}

// Register signs the credentials up with the identity provider, inserts the
// directory row and returns a locally-signed token.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Role == "" {
		req.Role = domain.RoleBuyer.String()
	}

	fe := fieldErrors{}
	fe.require("email", req.Email)
	if req.Email != "" {
		fe.email("email", req.Email)
	}
	if len(req.Password) < 6 {
		fe["password"] = "password must be at least 6 characters"
	}
	fe.require("first_name", req.FirstName)
	fe.require("last_name", req.LastName)
	// Admin accounts are provisioned out of band, never self-assigned.
	fe.oneOf("role", req.Role,
		domain.RoleBuyer.String(), domain.RoleAgent.String(), domain.RoleOwner.String())
	if fe.write(w) {
		return
	}

	session, err := h.provider.SignUp(r.Context(), req.Email, req.Password, map[string]string{
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"phone":      req.Phone,
		"role":       req.Role,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredential) {
			writeError(w, http.StatusBadRequest, "Registration failed. The email may already be in use.")
			return
		}
		writeDomainError(w, err, "")
		return
	}

	user, err := h.users.CreateUser(r.Context(), domain.User{
		ID:        session.User.ID,
		Email:     req.Email,
		Role:      domain.RoleOrBaseline(req.Role),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	token, err := h.issuer.Issue(user)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a provider session and returns the
// directory row alongside the provider's tokens.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	fe := fieldErrors{}
	fe.require("email", req.Email)
	fe.require("password", req.Password)
	if fe.write(w) {
		return
	}

	session, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredential) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		writeDomainError(w, err, "")
		return
	}

	user, err := h.users.UserByID(r.Context(), session.User.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// Identity exists at the provider but the directory row was never
		// written, e.g. a registration that failed halfway. Heal it here.
		user, err = h.users.CreateUser(r.Context(), domain.User{
			ID:        session.User.ID,
			Email:     session.User.Email,
			Role:      domain.RoleBuyer,
			FirstName: session.User.Meta("first_name"),
			LastName:  session.User.Meta("last_name"),
			Phone:     session.User.Meta("phone"),
		})
	}
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	writeData(w, http.StatusOK, sessionResponse{
		Token:        session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		User:         user,
	})
}

// Logout revokes the provider session behind the bearer token. Succeeds
// even without one; logout is idempotent from the client's view.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
	if err == nil {
		if err := h.provider.SignOut(r.Context(), token); err != nil {
			writeDomainError(w, err, "")
			return
		}
	}
	writeMessage(w, http.StatusOK, "Logged out successfully.")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new provider session.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	session, err := h.provider.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredential) {
			writeError(w, http.StatusUnauthorized, "Invalid refresh token.")
			return
		}
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusOK, sessionResponse{
		Token:        session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	})
}

// Profile returns the caller's directory row.
func (h *Auth) Profile(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	user, err := h.users.UserByID(r.Context(), p.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// A synthesized principal has no row yet; answer from the principal.
		writeData(w, http.StatusOK, domain.User{
			ID: p.ID, Email: p.Email, Role: p.Role,
			FirstName: p.FirstName, LastName: p.LastName, Phone: p.Phone,
		})
		return
	}
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusOK, user)
}

type profileUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// UpdateProfile applies a partial update to the caller's mutable profile
// fields. Id, email, role and created_at never change through this path.
func (h *Auth) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	var req profileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.users.UpdateUser(r.Context(), p.ID, postgres.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		writeDomainError(w, err, "Profile not found.")
		return
	}
	writeData(w, http.StatusOK, user)
}
