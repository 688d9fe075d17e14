package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/authsession/api/devbackend" // Swagger docs
	"github.com/aussiebroadwan/authsession/internal/devbackend/service"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	Backend *service.Backend
	Faults  *Faults
}

func NewRouter(backend *service.Backend, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		Backend:      backend,
		Faults:       NewFaults(),
	}

	// Faults run inside the logger so injected answers are logged too
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.Faults.Middleware(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerClient()
	r.registerSignIns()
	r.registerSignUps()
	r.registerSessions()
	r.registerDev()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Auth Session Dev Backend API
//	@version		0.1.0
//	@description	In-memory emulation of the client API the authsdk talks to.
//	@description
//	@description	Devices identify themselves with the device token in the Authorization header. New tokens are handed out in the Authorization response header.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/authsession
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// device limits a handler by device token, falling back to the IP address.
func device(h http.HandlerFunc, config httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h, httpx.RateLimitByDevice(config))
}

func (r *Router) registerClient() {
	h := &ClientHandler{Backend: r.Backend}

	r.Mux.Handle("GET /v1/client", device(h.HandleGet, httpx.ClientLimit))
	r.Mux.Handle("POST /v1/client", device(h.HandleCreate, httpx.ClientLimit))
	r.Mux.Handle("DELETE /v1/client", device(h.HandleSignOut, httpx.ClientLimit))

	// Assertions are exchanged before a device has a token, limit by IP
	r.Mux.Handle("POST /v1/client/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.AttemptLimit),
		),
	)
}

func (r *Router) registerSignIns() {
	h := &SignInHandler{Backend: r.Backend}

	r.Mux.Handle("POST /v1/client/sign_ins", device(h.HandleCreate, httpx.AttemptLimit))
	r.Mux.Handle("GET /v1/client/sign_ins/{id}", device(h.HandleGet, httpx.ClientLimit))
	r.Mux.Handle("POST /v1/client/sign_ins/{id}/prepare_first_factor", device(h.HandlePrepareFirstFactor, httpx.ClientLimit))
	r.Mux.Handle("POST /v1/client/sign_ins/{id}/prepare_second_factor", device(h.HandlePrepareSecondFactor, httpx.ClientLimit))

	// Attempts check secrets, strict limit to slow down guessing
	r.Mux.Handle("POST /v1/client/sign_ins/{id}/attempt_first_factor", device(h.HandleAttemptFirstFactor, httpx.AttemptLimit))
	r.Mux.Handle("POST /v1/client/sign_ins/{id}/attempt_second_factor", device(h.HandleAttemptSecondFactor, httpx.AttemptLimit))
	r.Mux.Handle("POST /v1/client/sign_ins/{id}/reset_password", device(h.HandleResetPassword, httpx.AttemptLimit))
}

func (r *Router) registerSignUps() {
	h := &SignUpHandler{Backend: r.Backend}

	r.Mux.Handle("POST /v1/client/sign_ups", device(h.HandleCreate, httpx.ClientLimit))
	r.Mux.Handle("GET /v1/client/sign_ups/{id}", device(h.HandleGet, httpx.ClientLimit))
	r.Mux.Handle("PATCH /v1/client/sign_ups/{id}", device(h.HandleUpdate, httpx.ClientLimit))
	r.Mux.Handle("POST /v1/client/sign_ups/{id}/prepare_verification", device(h.HandlePrepareVerification, httpx.ClientLimit))
	r.Mux.Handle("POST /v1/client/sign_ups/{id}/attempt_verification", device(h.HandleAttemptVerification, httpx.AttemptLimit))
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Backend: r.Backend}

	r.Mux.Handle("POST /v1/client/sessions/{id}/tokens", device(h.HandleToken, httpx.ClientLimit))
	r.Mux.Handle("POST /v1/client/sessions/{id}/tokens/{template}", device(h.HandleToken, httpx.ClientLimit))
	r.Mux.Handle("POST /v1/client/sessions/{id}/remove", device(h.HandleRemove, httpx.ClientLimit))
}

func (r *Router) registerDev() {
	h := &DevHandler{Backend: r.Backend, Faults: r.Faults}

	r.Mux.HandleFunc("GET "+service.AuthorizePath, h.HandleAuthorize)
	r.Mux.HandleFunc("POST /v1/dev/users", h.HandleCreateUser)
	r.Mux.HandleFunc("POST /v1/dev/faults", h.HandleArmFault)
	r.Mux.HandleFunc("DELETE /v1/dev/faults", h.HandleResetFaults)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.Backend))
}
