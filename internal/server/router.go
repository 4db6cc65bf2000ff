package server

import (
	"context"
	"net/http"
	"time"

	"github.com/ledgerline/go-erp/auth"
	"github.com/ledgerline/go-erp/httpx"
	"github.com/ledgerline/go-erp/internal/handlers"
	"github.com/ledgerline/go-erp/internal/models"
	"github.com/ledgerline/go-erp/internal/policy"
	"github.com/ledgerline/go-erp/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New constructs the root http.Handler with all routes and middlewares.
func New(db *gorm.DB, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Tokens for removed users stop working immediately.
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		if err := db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	g := policy.NewGate(db)
	stockSvc := services.NewStockService()
	orderSvc := services.NewOrderService(db, stockSvc)

	ph := handlers.NewProductHandler(db, g)
	mux.Handle("/products", protect(methods{http.MethodGet: ph.List}))
	mux.Handle("/products/create", protect(methods{http.MethodPost: ph.Create}))
	mux.Handle("/products/get", protect(methods{http.MethodGet: ph.Get}))
	mux.Handle("/products/update", protect(methods{http.MethodPost: ph.Update}))
	mux.Handle("/products/delete", protect(methods{http.MethodPost: ph.Delete}))

	ch := handlers.NewCustomerHandler(db, g)
	mux.Handle("/customers", protect(methods{http.MethodGet: ch.List}))
	mux.Handle("/customers/create", protect(methods{http.MethodPost: ch.Create}))
	mux.Handle("/customers/get", protect(methods{http.MethodGet: ch.Get}))
	mux.Handle("/customers/update", protect(methods{http.MethodPost: ch.Update}))
	mux.Handle("/customers/delete", protect(methods{http.MethodPost: ch.Delete}))

	oh := handlers.NewOrderHandler(db, orderSvc, g)
	mux.Handle("/orders", protect(methods{http.MethodGet: oh.List}))
	mux.Handle("/orders/create", protect(methods{http.MethodPost: oh.Create}))
	mux.Handle("/orders/get", protect(methods{http.MethodGet: oh.Get}))
	mux.Handle("/orders/update", protect(methods{http.MethodPost: oh.Update}))
	mux.Handle("/orders/delete", protect(methods{http.MethodPost: oh.Delete}))

	sh := handlers.NewStockMovementHandler(db, g)
	mux.Handle("/stock-movements", protect(methods{http.MethodGet: sh.List}))
	mux.Handle("/stock-movements/get", protect(methods{http.MethodGet: sh.Get}))

	return withRecover(log, withLogging(log, mux))
}

// methods dispatches by HTTP method and answers 405 with an Allow header
// otherwise.
type methods map[string]http.HandlerFunc

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h(w, r)
		return
	}
	allow := ""
	for k := range m {
		if allow != "" {
			allow += ","
		}
		allow += k
	}
	w.Header().Set("Allow", allow)
	httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

func protect(next http.Handler) http.Handler {
	return auth.Middleware(auth.RequireAuth(next))
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func withRecover(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
