package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/session"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *mux.Router
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	sessions     *session.Manager

	// CookieSecure marks the remember-me cookie Secure.
	CookieSecure bool
	Clock        service.Clock

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Only enable it behind a proxy that sets those headers.
	TrustProxyHeaders bool

	AuthService      *service.AuthService
	UserService      *service.UserService
	TaskService      *service.TaskService
	SubTaskService   *service.SubTaskService
	CategoryService  *service.CategoryService
	TrashService     *service.TrashService
	ProfileService   *service.ProfileService
	DashboardService *service.DashboardService
}

func NewRouter(
	st store.Store,
	sessions *session.Manager,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          mux.NewRouter(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		sessions:     sessions,
	}

	// There is no 405: a known path with the wrong verb is simply not found.
	r.Mux.NotFoundHandler = http.HandlerFunc(notFound)
	r.Mux.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.StripTrailingSlash,
		httpx.MethodOverride,
		r.sessions.Middleware,
		r.rememberMe,
		r.loadUser,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	if r.TrustProxyHeaders {
		r.middlewares = append([]httpx.Middleware{httpx.RealIP}, r.middlewares...)
	}

	r.registerSystem()
	r.registerAuth()
	r.registerDashboard()
	r.registerTasks()
	r.registerSubTasks()
	r.registerCategories()
	r.registerTrash()
	r.registerProfile()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) cookies() cookieJar {
	return cookieJar{Secure: r.CookieSecure, Clock: r.Clock}
}

func (r *Router) handle(method, path string, h http.HandlerFunc, mws ...httpx.Middleware) {
	r.Mux.Handle(path, httpx.Chain(h, mws...)).Methods(method)
}

// Middleware stacks shared by route groups.
func (r *Router) guestPage() []httpx.Middleware {
	return []httpx.Middleware{requireGuest, httpx.RateLimitByIP(httpx.PublicLimit)}
}

func (r *Router) guestForm() []httpx.Middleware {
	return []httpx.Middleware{requireGuest, httpx.RateLimitByIP(httpx.StrictLimit), verifyCSRF}
}

func (r *Router) userPage() []httpx.Middleware {
	return []httpx.Middleware{requireAuth, httpx.RateLimitByUser(httpx.LenientLimit)}
}

func (r *Router) userForm() []httpx.Middleware {
	return []httpx.Middleware{requireAuth, httpx.RateLimitByUser(httpx.ModerateLimit), verifyCSRF}
}

func (r *Router) registerSystem() {
	public := httpx.RateLimitByIP(httpx.PublicLimit)
	r.handle(http.MethodGet, "/livez", LivezHandler(r.startTime, r.buildVersion), public)
	r.handle(http.MethodGet, "/readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store), public)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, Cookies: r.cookies(), Clock: r.Clock}

	r.handle(http.MethodGet, "/login", h.ShowLogin, r.guestPage()...)
	// Login is also limited per IP and email to slow down credential stuffing.
	r.handle(http.MethodPost, "/login", h.Login,
		requireGuest,
		httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		verifyCSRF,
	)
	r.handle(http.MethodGet, "/register", h.ShowRegister, r.guestPage()...)
	r.handle(http.MethodPost, "/register", h.Register, r.guestForm()...)

	r.handle(http.MethodGet, "/verify-email", h.VerifyEmail, r.guestPage()...)
	r.handle(http.MethodPost, "/resend-verification", h.ResendVerification, r.guestForm()...)

	r.handle(http.MethodGet, "/forgot-password", h.ShowForgotPassword, r.guestPage()...)
	r.handle(http.MethodPost, "/forgot-password", h.ForgotPassword, r.guestForm()...)
	r.handle(http.MethodGet, "/reset-password", h.ShowResetPassword, r.guestPage()...)
	r.handle(http.MethodPost, "/reset-password", h.ResetPassword, r.guestForm()...)

	r.handle(http.MethodPost, "/logout", h.Logout, r.userForm()...)
}

func (r *Router) registerDashboard() {
	h := &DashboardHandler{DashboardService: r.DashboardService, Clock: r.Clock}

	r.handle(http.MethodGet, "/", h.Show, r.userPage()...)
	r.handle(http.MethodGet, "/dashboard", h.Show, r.userPage()...)
}

func (r *Router) registerTasks() {
	h := &TaskHandler{TaskService: r.TaskService, CategoryService: r.CategoryService, Clock: r.Clock}

	r.handle(http.MethodGet, "/tasks", h.Index, r.userPage()...)
	r.handle(http.MethodPost, "/tasks", h.Create, r.userForm()...)
	r.handle(http.MethodGet, "/tasks/{id}", h.Show, r.userPage()...)
	r.handle(http.MethodPut, "/tasks/{id}", h.Update, r.userForm()...)
	r.handle(http.MethodDelete, "/tasks/{id}", h.Delete, r.userForm()...)
	r.handle(http.MethodPatch, "/tasks/{id}/status", h.ChangeStatus, r.userForm()...)
	r.handle(http.MethodPatch, "/tasks/{id}/toggle", h.Toggle, r.userForm()...)

	r.handle(http.MethodGet, "/kanban", h.Kanban, r.userPage()...)
	r.handle(http.MethodGet, "/calendar", h.Calendar, r.userPage()...)
}

func (r *Router) registerSubTasks() {
	h := &SubTaskHandler{SubTaskService: r.SubTaskService}

	r.handle(http.MethodGet, "/tasks/{id}/subtasks", h.Index, r.userPage()...)
	r.handle(http.MethodPost, "/tasks/{id}/subtasks", h.Create, r.userForm()...)
	r.handle(http.MethodPatch, "/subtasks/{id}/toggle", h.Toggle, r.userForm()...)
	r.handle(http.MethodDelete, "/subtasks/{id}", h.Delete, r.userForm()...)
}

func (r *Router) registerCategories() {
	h := &CategoryHandler{CategoryService: r.CategoryService}

	r.handle(http.MethodGet, "/categories", h.Index, r.userPage()...)
	r.handle(http.MethodPost, "/categories", h.Create, r.userForm()...)
	r.handle(http.MethodPut, "/categories/{id}", h.Update, r.userForm()...)
	r.handle(http.MethodDelete, "/categories/{id}", h.Delete, r.userForm()...)
}

func (r *Router) registerTrash() {
	h := &TrashHandler{TrashService: r.TrashService, Clock: r.Clock}

	r.handle(http.MethodGet, "/trash", h.Index, r.userPage()...)
	r.handle(http.MethodPost, "/trash/{id}/restore", h.Restore, r.userForm()...)
	r.handle(http.MethodDelete, "/trash/{id}", h.Purge, r.userForm()...)
	r.handle(http.MethodDelete, "/trash", h.Empty, r.userForm()...)
}

func (r *Router) registerProfile() {
	h := &ProfileHandler{
		ProfileService: r.ProfileService,
		AuthService:    r.AuthService,
		Cookies:        r.cookies(),
		Clock:          r.Clock,
	}

	r.handle(http.MethodGet, "/profile", h.Show, r.userPage()...)
	r.handle(http.MethodPut, "/profile", h.Update, r.userForm()...)
	r.handle(http.MethodPut, "/profile/password", h.ChangePassword, r.userForm()...)
	r.handle(http.MethodDelete, "/profile", h.Delete, r.userForm()...)
}
