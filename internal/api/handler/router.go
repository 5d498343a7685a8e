package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"crownkeys/internal/api"
	"crownkeys/internal/api/middleware"
	"crownkeys/internal/domain"
	"crownkeys/internal/platform/telemetry"
)

// Pinger reports datastore reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig carries everything the route table needs.
type RouterConfig struct {
	Authn      api.Authenticator
	Ownerships api.OwnershipStore
	Limiter    api.RateLimiter
	Metrics    *telemetry.Metrics
	Logger     *slog.Logger
	Pinger     Pinger

	Auth       *Auth
	Agents     *Agents
	Listings   *Listings
	Owner      *Owner
	Properties *Properties
	Buyer      *Buyer

	MaxBodyBytes int64
}

// NewRouter builds the route table with its guard chains.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	requireAuth := middleware.RequireAuth(cfg.Authn, cfg.Metrics)
	optionalAuth := middleware.OptionalAuth(cfg.Authn, cfg.Metrics)
	buyerOnly := middleware.RequireRole(domain.RoleBuyer, domain.RoleAdmin)
	ownListing := middleware.RequireOwnership(cfg.Ownerships, domain.KindListing, "id")
	ownAgent := middleware.RequireOwnership(cfg.Ownerships, domain.KindAgent, "id")
	ownProperty := middleware.RequireOwnership(cfg.Ownerships, domain.KindProperty, "id")

	handle := func(method, path string, h http.HandlerFunc, mw ...middleware.Middleware) {
		r.Handle(path, middleware.Chain(h, mw...)).Methods(method)
	}

	r.HandleFunc("/health", healthHandler(cfg.Pinger)).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.MetricsHandler()).Methods(http.MethodGet)

	// Auth and profile.
	handle(http.MethodPost, "/api/auth/register", cfg.Auth.Register)
	handle(http.MethodPost, "/api/auth/login", cfg.Auth.Login)
	handle(http.MethodPost, "/api/auth/logout", cfg.Auth.Logout)
	handle(http.MethodPost, "/api/auth/refresh", cfg.Auth.Refresh)
	handle(http.MethodGet, "/api/auth/profile", cfg.Auth.Profile, requireAuth)
	handle(http.MethodPut, "/api/auth/profile", cfg.Auth.UpdateProfile, requireAuth)

	// Public agent directory; profile management behind ownership.
	handle(http.MethodGet, "/api/agents", cfg.Agents.List)
	handle(http.MethodPost, "/api/agents", cfg.Agents.Create, requireAuth)
	handle(http.MethodGet, "/api/agents/{id}", cfg.Agents.Get)
	handle(http.MethodGet, "/api/agents/{id}/listings", cfg.Agents.Listings)
	handle(http.MethodPut, "/api/agents/{id}", cfg.Agents.Update, requireAuth, ownAgent)
	handle(http.MethodDelete, "/api/agents/{id}", cfg.Agents.Delete, requireAuth, ownAgent)

	// Public listing catalog; management behind ownership.
	handle(http.MethodGet, "/api/listings", cfg.Listings.List)
	handle(http.MethodPost, "/api/listings", cfg.Listings.Create, requireAuth)
	handle(http.MethodGet, "/api/listings/search", cfg.Listings.Search)
	handle(http.MethodGet, "/api/listings/saved", cfg.Listings.Saved, requireAuth)
	handle(http.MethodGet, "/api/listings/user/{userId}", cfg.Listings.UserListings)
	handle(http.MethodGet, "/api/listings/{id}", cfg.Listings.Get)
	handle(http.MethodPut, "/api/listings/{id}", cfg.Listings.Update, requireAuth, ownListing)
	handle(http.MethodDelete, "/api/listings/{id}", cfg.Listings.Delete, requireAuth, ownListing)
	handle(http.MethodPost, "/api/listings/{id}/favorite", cfg.Listings.ToggleFavorite, requireAuth)

	// Owner property management.
	handle(http.MethodPost, "/api/owner/properties", cfg.Owner.Create, requireAuth)
	handle(http.MethodGet, "/api/owner/properties", cfg.Owner.List, requireAuth)
	handle(http.MethodGet, "/api/owner/stats", cfg.Owner.Stats, requireAuth)
	handle(http.MethodGet, "/api/owner/properties/{id}", cfg.Owner.Get, requireAuth, ownProperty)
	handle(http.MethodPut, "/api/owner/properties/{id}", cfg.Owner.Update, requireAuth, ownProperty)
	handle(http.MethodDelete, "/api/owner/properties/{id}", cfg.Owner.Delete, requireAuth, ownProperty)
	handle(http.MethodPost, "/api/owner/properties/{id}/photos", cfg.Owner.AddPhotos, requireAuth, ownProperty)
	handle(http.MethodDelete, "/api/owner/properties/{id}/photos", cfg.Owner.RemovePhotos, requireAuth, ownProperty)
	handle(http.MethodPatch, "/api/owner/properties/{id}/disable", cfg.Owner.SetStatus(domain.StatusInactive), requireAuth, ownProperty)
	handle(http.MethodPatch, "/api/owner/properties/{id}/enable", cfg.Owner.SetStatus(domain.StatusActive), requireAuth, ownProperty)

	// Buyer-facing catalog, personalized when authenticated.
	handle(http.MethodGet, "/api/properties", cfg.Properties.List, optionalAuth)
	handle(http.MethodGet, "/api/properties/search", cfg.Properties.Search, optionalAuth)
	handle(http.MethodGet, "/api/properties/{id}", cfg.Properties.Get, optionalAuth)

	// Buyer activity.
	handle(http.MethodPost, "/api/buyers/favorites", cfg.Buyer.AddFavorite, requireAuth, buyerOnly)
	handle(http.MethodGet, "/api/buyers/favorites", cfg.Buyer.Favorites, requireAuth, buyerOnly)
	handle(http.MethodDelete, "/api/buyers/favorites/{propertyId}", cfg.Buyer.RemoveFavorite, requireAuth, buyerOnly)
	handle(http.MethodPost, "/api/buyers/interests", cfg.Buyer.CreateInterest, requireAuth, buyerOnly)
	handle(http.MethodGet, "/api/buyers/interests", cfg.Buyer.Interests, requireAuth, buyerOnly)
	handle(http.MethodPost, "/api/buyers/offers", cfg.Buyer.CreateOffer, requireAuth, buyerOnly)
	handle(http.MethodGet, "/api/buyers/offers", cfg.Buyer.Offers, requireAuth, buyerOnly)
	handle(http.MethodPost, "/api/buyers/purchase/{propertyId}", cfg.Buyer.InitiatePurchase, requireAuth, buyerOnly)
	handle(http.MethodGet, "/api/buyers/purchases", cfg.Buyer.Purchases, requireAuth, buyerOnly)
	handle(http.MethodGet, "/api/buyers/dashboard", cfg.Buyer.Dashboard, requireAuth, buyerOnly)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found.")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	// Global chain, outermost first.
	return middleware.Chain(r,
		middleware.Metrics(cfg.Metrics),
		middleware.RequestID,
		middleware.Logging(cfg.Logger),
		middleware.Recovery,
		middleware.MaxBodySize(cfg.MaxBodyBytes),
		middleware.RateLimit(cfg.Limiter, cfg.Metrics),
	)
}

func healthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, domain.Response{
			Success: code == http.StatusOK,
			Data:    map[string]string{"status": status},
		})
	}
}
