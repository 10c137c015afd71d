package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"medstore/m/domain"
	"medstore/m/internal/pos"
	"medstore/m/internal/store"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

// Handler bundles dependencies for HTTP handlers. Each authenticated user
// owns exactly one active cart, held in the registry below; the cart
// engine itself is lock-free, so all access goes through mu.
type Handler struct {
	db        *sqlx.DB
	medicines *store.MedicineStore
	sales     *store.SaleStore
	settings  *store.SettingsStore
	checkout  *pos.Checkout
	secret    string
	log       *zap.Logger

	mu    sync.Mutex
	carts map[int64]*pos.Cart
}

// New constructs a Handler.
func New(db *sqlx.DB, medicines *store.MedicineStore, sales *store.SaleStore, settings *store.SettingsStore, checkout *pos.Checkout, secret string, log *zap.Logger) *Handler {
	return &Handler{
		db:        db,
		medicines: medicines,
		sales:     sales,
		settings:  settings,
		checkout:  checkout,
		secret:    secret,
		log:       log.Named("api"),
		carts:     make(map[int64]*pos.Cart),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/medicines", func(r chi.Router) {
			r.Post("/", h.createMedicine)
			r.Get("/", h.listMedicines)
			r.Get("/categories", h.listCategories)
			r.Get("/alerts", h.stockAlerts)
			r.Get("/{id}", h.getMedicine)
			r.Put("/{id}", h.updateMedicine)
			r.Delete("/{id}", h.deleteMedicine)
			r.Post("/{id}/stock", h.adjustStock)
		})

		pr.Route("/cart", func(r chi.Router) {
			r.Get("/", h.viewCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addCartItem)
			r.Put("/items/{medicineID}", h.updateCartItem)
			r.Delete("/items/{medicineID}", h.removeCartItem)
			r.Post("/discount", h.setDiscount)
			r.Post("/tax-rate", h.setTaxRate)
			r.Post("/payment-method", h.setPaymentMethod)
		})

		pr.Post("/checkout", h.completeSale)

		pr.Route("/sales", func(r chi.Router) {
			r.Get("/", h.listSales)
			r.Get("/{id}", h.getSale)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/sales/daily", h.dailySales)
			r.Get("/revenue", h.revenueReport)
		})

		pr.Route("/settings", func(r chi.Router) {
			r.Get("/", h.listSettings)
			r.Put("/{key}", h.updateSetting)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

// Auth handlers

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "username, password and role are required")
		return
	}
	if req.Role != domain.RoleAdmin && req.Role != domain.RoleCashier {
		respondError(w, http.StatusBadRequest, "role must be admin or cashier")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	res, err := h.db.ExecContext(r.Context(),
		`INSERT INTO users (username, password_hash, full_name, role) VALUES (?, ?, ?, ?)`,
		strings.ToLower(req.Username), string(hashed), req.FullName, req.Role,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "unique") {
			respondError(w, http.StatusConflict, "username already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to create user")
		}
		return
	}
	userID, err := res.LastInsertId()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create user")
		return
	}

	token, err := h.generateToken(userID, req.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: domain.User{
		ID: userID, Username: strings.ToLower(req.Username), FullName: req.FullName, Role: req.Role, IsActive: true,
	}})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user domain.User
	err := h.db.GetContext(r.Context(), &user,
		`SELECT * FROM users WHERE username = ?`, strings.ToLower(req.Username))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.IsActive {
		respondError(w, http.StatusForbidden, "account is deactivated")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user.ID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// Medicine handlers

type medicineRequest struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	BatchNo       string  `json:"batch_no"`
	ExpiryDate    string  `json:"expiry_date"`
	Quantity      int64   `json:"quantity"`
	PurchasePrice float64 `json:"purchase_price"`
	SellingPrice  float64 `json:"selling_price"`
	Barcode       *string `json:"barcode,omitempty"`
}

func (m medicineRequest) toDomain(id int64) *domain.Medicine {
	barcode := m.Barcode
	if barcode != nil && strings.TrimSpace(*barcode) == "" {
		barcode = nil
	}
	return &domain.Medicine{
		ID:            id,
		Name:          strings.TrimSpace(m.Name),
		Category:      strings.TrimSpace(m.Category),
		BatchNo:       strings.TrimSpace(m.BatchNo),
		ExpiryDate:    m.ExpiryDate,
		Quantity:      m.Quantity,
		PurchasePrice: m.PurchasePrice,
		SellingPrice:  m.SellingPrice,
		Barcode:       barcode,
	}
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	med, err := h.medicines.Save(r.Context(), req.toDomain(0))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, med)
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	var (
		meds []domain.Medicine
		err  error
	)
	if query == "" {
		meds, err = h.medicines.FindAll(r.Context())
	} else {
		meds, err = h.medicines.Search(r.Context(), query)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list medicines")
		return
	}
	respondJSON(w, http.StatusOK, meds)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.medicines.Categories(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list categories")
		return
	}
	respondJSON(w, http.StatusOK, cats)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	med, err := h.medicines.FindByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load medicine")
		return
	}
	respondJSON(w, http.StatusOK, med)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	med := req.toDomain(id)
	err = h.medicines.Update(r.Context(), med)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, med)
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	err = h.medicines.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete medicine")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var payload struct {
		Change int64 `json:"change"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.Change == 0 {
		respondError(w, http.StatusBadRequest, "change must be non-zero")
		return
	}
	err = h.medicines.AdjustStock(r.Context(), id, payload.Change)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "stock updated"})
}

func (h *Handler) stockAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threshold := h.settings.GetInt(ctx, "low_stock_threshold", 10)
	warnDays := h.settings.GetInt(ctx, "expiry_warning_days", 30)

	low, err := h.medicines.LowStock(ctx, threshold)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load stock alerts")
		return
	}
	expired, err := h.medicines.Expired(ctx)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load stock alerts")
		return
	}
	expiring, err := h.medicines.ExpiringSoon(ctx, int(warnDays))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load stock alerts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"low_stock":     low,
		"expired":       expired,
		"expiring_soon": expiring,
	})
}

// Cart handlers

// cartFor returns the caller's active cart, creating one seeded with the
// default tax rate from settings on first use. The settings lookup happens
// before taking the registry lock so no I/O runs while it is held.
func (h *Handler) cartFor(r *http.Request) *pos.Cart {
	userID := r.Context().Value(ctxUserID).(int64)
	defaultTax := h.settings.GetFloat(r.Context(), "default_tax_rate", 0)

	h.mu.Lock()
	defer h.mu.Unlock()
	cart, ok := h.carts[userID]
	if !ok {
		cart = pos.NewCart(defaultTax)
		h.carts[userID] = cart
	}
	return cart
}

// withCart runs fn while holding the cart registry lock, so concurrent
// requests for the same user's cart serialize.
func (h *Handler) withCart(r *http.Request, fn func(cart *pos.Cart) error) error {
	cart := h.cartFor(r)
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(cart)
}

type cartView struct {
	Items         []domain.SaleItem `json:"items"`
	Totals        domain.Totals     `json:"totals"`
	TaxRate       float64           `json:"tax_rate"`
	PaymentMethod string            `json:"payment_method"`
}

func (h *Handler) renderCart(w http.ResponseWriter, r *http.Request) {
	var view cartView
	_ = h.withCart(r, func(cart *pos.Cart) error {
		view = cartView{
			Items:         cart.Items(),
			Totals:        cart.Totals(),
			TaxRate:       cart.TaxRate(),
			PaymentMethod: cart.PaymentMethod(),
		}
		return nil
	})
	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	h.renderCart(w, r)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	_ = h.withCart(r, func(cart *pos.Cart) error {
		cart.Clear()
		return nil
	})
	h.renderCart(w, r)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		MedicineID int64 `json:"medicine_id"`
		Quantity   int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.medicines.FindByID(r.Context(), payload.MedicineID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load medicine")
		return
	}

	err = h.withCart(r, func(cart *pos.Cart) error {
		_, addErr := cart.AddItem(*med, payload.Quantity)
		return addErr
	})
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.renderCart(w, r)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	medicineID, err := strconv.ParseInt(chi.URLParam(r, "medicineID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	med, err := h.medicines.FindByID(r.Context(), medicineID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load medicine")
		return
	}

	err = h.withCart(r, func(cart *pos.Cart) error {
		return cart.UpdateQuantity(medicineID, payload.Quantity, *med)
	})
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.renderCart(w, r)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	medicineID, err := strconv.ParseInt(chi.URLParam(r, "medicineID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	err = h.withCart(r, func(cart *pos.Cart) error {
		return cart.RemoveItem(medicineID)
	})
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.renderCart(w, r)
}

func (h *Handler) setDiscount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := h.withCart(r, func(cart *pos.Cart) error {
		return cart.SetDiscount(payload.Amount)
	})
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.renderCart(w, r)
}

func (h *Handler) setTaxRate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Percent float64 `json:"percent"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := h.withCart(r, func(cart *pos.Cart) error {
		return cart.SetTaxRate(payload.Percent)
	})
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.renderCart(w, r)
}

func (h *Handler) setPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Method string `json:"method"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := h.withCart(r, func(cart *pos.Cart) error {
		return cart.SetPaymentMethod(payload.Method)
	})
	if err != nil {
		h.respondCartError(w, err)
		return
	}
	h.renderCart(w, r)
}

// Checkout

func (h *Handler) completeSale(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CustomerName string `json:"customer_name"`
	}
	// Body is optional.
	_ = decodeJSON(r, &payload)

	userID := r.Context().Value(ctxUserID).(int64)
	cart := h.cartFor(r)

	h.mu.Lock()
	sale, err := h.checkout.Complete(r.Context(), cart, &userID, strings.TrimSpace(payload.CustomerName))
	h.mu.Unlock()

	if err != nil {
		var adjErr *pos.StockAdjustmentError
		if errors.As(err, &adjErr) {
			// Unmistakably different from every other failure: the sale is
			// recorded but inventory may be inconsistent.
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":       "sale recorded but inventory may be inconsistent",
				"sale_id":     adjErr.SaleID,
				"medicine_id": adjErr.MedicineID,
				"sale":        sale,
			})
			return
		}
		h.respondCartError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

// respondCartError maps pos error kinds onto HTTP statuses.
func (h *Handler) respondCartError(w http.ResponseWriter, err error) {
	var (
		stockErr      *pos.InsufficientStockError
		validationErr *pos.ValidationError
		persistErr    *pos.PersistError
	)
	switch {
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, map[string]any{
			"error":       stockErr.Error(),
			"medicine_id": stockErr.MedicineID,
			"available":   stockErr.Available,
			"requested":   stockErr.Requested,
		})
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "sale validation failed",
			"errors": validationErr.Errors,
		})
	case errors.As(err, &persistErr):
		respondError(w, http.StatusInternalServerError, "unable to save sale, please retry")
	case errors.Is(err, pos.ErrLineNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pos.ErrEmptyCart),
		errors.Is(err, pos.ErrInvalidQuantity),
		errors.Is(err, pos.ErrNegativeDiscount),
		errors.Is(err, pos.ErrDiscountExceedsTotal),
		errors.Is(err, pos.ErrInvalidTaxRate),
		errors.Is(err, pos.ErrInvalidPayment):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Sales and reports

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := h.sales.FindByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "sale not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load sale")
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	start := strings.TrimSpace(r.URL.Query().Get("start_date"))
	end := strings.TrimSpace(r.URL.Query().Get("end_date"))

	if start == "" && end == "" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		sales, err := h.sales.Recent(r.Context(), limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to list sales")
			return
		}
		respondJSON(w, http.StatusOK, sales)
		return
	}

	for _, d := range []string{start, end} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			respondError(w, http.StatusBadRequest, "start_date and end_date must be in YYYY-MM-DD format")
			return
		}
	}
	sales, err := h.sales.ListByDateRange(r.Context(), start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list sales")
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	sales, err := h.sales.ListByDate(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load daily sales")
		return
	}
	var revenue float64
	for _, s := range sales {
		revenue += s.Total
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"date":        date,
		"sales_count": len(sales),
		"revenue":     domain.Round2(revenue),
		"sales":       sales,
	})
}

func (h *Handler) revenueReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	start := strings.TrimSpace(r.URL.Query().Get("start_date"))
	end := strings.TrimSpace(r.URL.Query().Get("end_date"))
	if start == "" || end == "" {
		respondError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	for _, d := range []string{start, end} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			respondError(w, http.StatusBadRequest, "dates must be in YYYY-MM-DD format")
			return
		}
	}

	ctx := r.Context()
	total, err := h.sales.TotalRevenue(ctx, start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build revenue report")
		return
	}
	daily, err := h.sales.DailyBreakdown(ctx, start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build revenue report")
		return
	}
	payments, err := h.sales.PaymentMethodBreakdown(ctx, start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build revenue report")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"period":          map[string]string{"start_date": start, "end_date": end},
		"total_revenue":   total,
		"daily_breakdown": daily,
		"payment_methods": payments,
	})
}

// Settings

func (h *Handler) listSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list settings")
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (h *Handler) updateSetting(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	key := chi.URLParam(r, "key")
	var payload struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.settings.Set(r.Context(), key, payload.Value); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update setting")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
