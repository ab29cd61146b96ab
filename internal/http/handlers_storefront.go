package httpx

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/mmk-storefront/internal/domain/auth"
	apperrors "github.com/target/mmk-storefront/internal/errors"
)

// StorefrontHandlers serves the gated storefront areas. Pages render the
// principal the guard admitted.
type StorefrontHandlers struct {
	LoginPath string
	Logger    *slog.Logger
	Now       func() time.Time
}

func (h *StorefrontHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *StorefrontHandlers) page(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, h.logger(), http.StatusOK, "page", pageData{
			Title:     title,
			Principal: PrincipalFromContext(r.Context()),
			LoginPath: h.LoginPath,
			CSRFToken: CSRFToken(r),
		})
	}
}

// Home is public.
func (h *StorefrontHandlers) Home() http.HandlerFunc { return h.page("Storefront") }

// Admin is the super-admin console.
func (h *StorefrontHandlers) Admin() http.HandlerFunc { return h.page("Admin console") }

// Merchant is the merchant back office.
func (h *StorefrontHandlers) Merchant() http.HandlerFunc { return h.page("Merchant back office") }

// Dashboard is shared by admins and merchants.
func (h *StorefrontHandlers) Dashboard() http.HandlerFunc { return h.page("Dashboard") }

type createProductRequest struct {
	Name       string `json:"name"        validate:"required,max=200"`
	PriceCents int64  `json:"price_cents" validate:"min=0"`
}

type productResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	OwnerID    string    `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateProduct accepts a product draft for the signed-in seller.
// POST /api/merchant/products.
func (h *StorefrontHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in createProductRequest
	if !DecodeJSON(w, r, &in) {
		return
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateRequest(in); err != nil {
		WriteAppError(w, err)
		return
	}

	owner := PrincipalFromContext(r.Context())
	if owner == nil {
		WriteAppError(w, apperrors.Unauthenticated("Authentication required."))
		return
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	WriteJSON(w, http.StatusCreated, productResponse{
		ID:         uuid.NewString(),
		Name:       in.Name,
		PriceCents: in.PriceCents,
		OwnerID:    owner.ID,
		CreatedAt:  now().UTC(),
	})
}

type ordersResponse struct {
	Scope  string `json:"scope"`
	Orders []any  `json:"orders"`
}

// ListOrders lists orders visible to the principal. Customers only see
// their own; everyone else with orders:read sees the store.
// GET /api/orders.
func (h *StorefrontHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	scope := "store"
	if p := PrincipalFromContext(r.Context()); p != nil && p.Role == domainauth.RoleCustomer {
		scope = "own"
	}
	WriteJSON(w, http.StatusOK, ordersResponse{Scope: scope, Orders: []any{}})
}
