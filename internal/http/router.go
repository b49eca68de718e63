package transporthttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/swaggo/swag"

	"github.com/MrKriegler/policy-admin/internal/http/handlers"
	"github.com/MrKriegler/policy-admin/internal/middleware"
	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

// Deps bundles feature handlers that implement handlers.Mountable plus the
// settings of the shared middleware chain.
type Deps struct {
	Log            *slog.Logger
	Health         http.Handler
	Mounts         []handlers.Mountable
	Limiter        middleware.Limiter
	JWTSecret      string
	JWTIssuer      string
	AllowedOrigins []string
	HSTS           bool
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Instrument)
	r.Use(middleware.SecurityHeaders(d.HSTS))
	r.Use(middleware.CORS(d.AllowedOrigins))

	if d.Health != nil {
		r.Mount("/", d.Health)
	}
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, _ *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, "swagger unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})

	r.Route("/api/v1/tenants/{tenantID}", func(r chi.Router) {
		if d.RequestTimeout > 0 {
			r.Use(chimw.Timeout(d.RequestTimeout))
		}
		r.Use(middleware.LimitRequestBody(middleware.MaxBodySize))
		r.Use(middleware.JWTAuth(d.JWTSecret, d.JWTIssuer))
		r.Use(middleware.TenantScope)
		if d.Limiter != nil {
			r.Use(middleware.RateLimit(d.Limiter, d.Log))
		}
		r.Use(middleware.SetJSONContentType)

		// Mount each feature's routes under the tenant.
		for _, m := range d.Mounts {
			m.Mount(r)
		}
	})

	return r
}
