package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/session"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

const testPassword = "Secret123"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "taskflow-http")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	*httptest.Server
	store  *sqlite.Store
	mail   *mail.Recorder
	router *Router
}

func newTestServer(t *testing.T, opts ...func(*Router)) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations(context.Background()))

	codec, err := jwtx.NewHS256([]byte(strings.Repeat("s", jwtx.MinSecretSize)), "taskflow")
	require.NoError(t, err)
	sessions := session.NewManager(st.Sessions(), codec, "taskflow", 0, false)

	rec := &mail.Recorder{Sender: mail.Sender{AppName: "TaskFlow", FromAddress: "noreply@example.com"}}

	rt := NewRouter(st, sessions, "test", slogx.Discard())
	rt.AuthService = &service.AuthService{Store: st, Mailer: rec, BaseURL: "http://localhost:8080"}
	rt.UserService = &service.UserService{Store: st}
	rt.TaskService = &service.TaskService{Store: st}
	rt.SubTaskService = &service.SubTaskService{Store: st}
	rt.CategoryService = &service.CategoryService{Store: st}
	rt.TrashService = &service.TrashService{Store: st}
	rt.ProfileService = &service.ProfileService{Store: st}
	rt.DashboardService = &service.DashboardService{Store: st}
	for _, opt := range opts {
		opt(rt)
	}
	rt.ApplyRoutes()

	srv := httptest.NewServer(rt)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, store: st, mail: rec, router: rt}
}

// signUp registers and verifies an account directly through the services.
func (ts *testServer) signUp(t *testing.T, email string) domain.User {
	t.Helper()
	ctx := context.Background()

	_, err := ts.router.AuthService.Register(ctx, service.RegisterInput{
		FirstName:            "Jane",
		LastName:             "Doe",
		Email:                email,
		Password:             testPassword,
		PasswordConfirmation: testPassword,
		AgreeTerms:           true,
	})
	require.NoError(t, err)

	msg, ok := ts.mail.Last()
	require.True(t, ok)
	link, err := url.Parse(msg.Link)
	require.NoError(t, err)

	u, err := ts.router.AuthService.VerifyEmail(ctx, link.Query().Get("token"))
	require.NoError(t, err)
	return u
}

// client is a browser: it keeps cookies and does not follow redirects.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (ts *testServer) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: ts.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(method, path string, body io.Reader, header http.Header) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func (c *client) get(path string) *http.Response {
	return c.do(http.MethodGet, path, nil, nil)
}

func (c *client) getJSON(path string) *http.Response {
	return c.do(http.MethodGet, path, nil, http.Header{"Accept": {"application/json"}})
}

func (c *client) postForm(path string, form url.Values, header http.Header) *http.Response {
	c.t.Helper()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(http.MethodPost, path, strings.NewReader(form.Encode()), header)
}

// page fetches a rendered view model.
func (c *client) page(path string) viewPayload {
	c.t.Helper()
	res := c.get(path)
	require.Equal(c.t, http.StatusOK, res.StatusCode, "GET %s", path)
	return decode[viewPayload](c.t, res)
}

// csrf returns the session token, read from a page the client can see.
func (c *client) csrf(path string) string {
	c.t.Helper()
	token := c.page(path).CSRFToken
	require.NotEmpty(c.t, token)
	return token
}

func (c *client) login(email string) *http.Response {
	c.t.Helper()
	return c.postForm("/login", url.Values{
		"_token":   {c.csrf("/login")},
		"email":    {email},
		"password": {testPassword},
	}, nil)
}

func (c *client) cookie(name string) *http.Cookie {
	u, _ := url.Parse(c.base)
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

type viewPayload struct {
	Page      string              `json:"page"`
	Title     string              `json:"title"`
	CSRFToken string              `json:"csrf_token"`
	User      *userView           `json:"user"`
	Flashes   map[string]string   `json:"flashes"`
	Errors    map[string][]string `json:"errors"`
	Old       map[string]string   `json:"old"`
	Data      json.RawMessage     `json:"data"`
}

type envelopePayload struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func requireRedirect(t *testing.T, res *http.Response, location string) {
	t.Helper()
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, location, res.Header.Get("Location"))
}

func jsonHeader(token string) http.Header {
	return http.Header{
		"Accept":   {"application/json"},
		CSRFHeader: {token},
	}
}

func TestHealthProbes(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	res := c.get("/livez")
	require.Equal(t, http.StatusOK, res.StatusCode)
	live := decode[healthResponse](t, res)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	res = c.get("/readyz")
	require.Equal(t, http.StatusOK, res.StatusCode)
	ready := decode[healthResponse](t, res)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)

	require.NoError(t, ts.store.Close())
	res = c.get("/readyz")
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	require.Equal(t, "degraded", decode[healthResponse](t, res).Status)
}

func TestNotFound(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	res := c.get("/does-not-exist")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	require.Equal(t, "errors/404", decode[viewPayload](t, res).Page)

	res = c.getJSON("/does-not-exist")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	env := decode[envelopePayload](t, res)
	require.False(t, env.Success)
	require.Equal(t, msgNotFound, env.Message)

	// A known path with the wrong verb is not a 405.
	res = c.do(http.MethodPatch, "/login", nil, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestRequireAuth_RemembersIntendedURL(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)

	requireRedirect(t, c.get("/tasks?status=todo"), "/login")

	res := c.login("jane@example.com")
	requireRedirect(t, res, "/tasks?status=todo")

	// The intended URL is consumed by the first login.
	res = c.postForm("/logout", url.Values{"_token": {c.csrf("/dashboard")}}, nil)
	requireRedirect(t, res, "/login")
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")
}

func TestRequireGuest(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")

	for _, path := range []string{"/login", "/register", "/forgot-password"} {
		requireRedirect(t, c.get(path), "/dashboard")
	}

	vm := c.page("/dashboard")
	require.Equal(t, "dashboard/index", vm.Page)
	require.NotNil(t, vm.User)
	require.Equal(t, "jane@example.com", vm.User.Email)
	require.Equal(t, "Jane Doe", vm.User.FullName)
}

func TestCSRF(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	c.csrf("/login")

	form := url.Values{"email": {"jane@example.com"}, "password": {testPassword}}

	res := c.postForm("/login", form, nil)
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	form.Set("_token", "forged")
	res = c.postForm("/login", form, http.Header{"Accept": {"application/json"}})
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	require.Equal(t, "CSRF token validation failed", decode[envelopePayload](t, res).Message)

	// The header works as well as the form field.
	res = c.postForm("/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {testPassword},
	}, http.Header{CSRFHeader: {c.csrf("/login")}})
	requireRedirect(t, res, "/dashboard")
}

func TestLogin_FailureFlashesAndKeepsInput(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)

	res := c.postForm("/login", url.Values{
		"_token":   {c.csrf("/login")},
		"email":    {"jane@example.com"},
		"password": {"WrongPass1"},
	}, nil)
	requireRedirect(t, res, "/login")

	vm := c.page("/login")
	require.Equal(t, msgInvalidCredentials, vm.Flashes[session.FlashError])
	require.Equal(t, "jane@example.com", vm.Old["email"])
	require.NotContains(t, vm.Old, "password")

	// Flashes survive exactly one page view.
	vm = c.page("/login")
	require.Empty(t, vm.Flashes)
	require.Empty(t, vm.Old)
}

func TestLogin_JSONStatuses(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")

	_, err := ts.router.AuthService.Register(context.Background(), service.RegisterInput{
		FirstName:            "Unverified",
		LastName:             "User",
		Email:                "new@example.com",
		Password:             testPassword,
		PasswordConfirmation: testPassword,
		AgreeTerms:           true,
	})
	require.NoError(t, err)

	c := ts.client(t)
	token := c.csrf("/login")

	res := c.postForm("/login", url.Values{"email": {"not-an-email"}}, jsonHeader(token))
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	env := decode[envelopePayload](t, res)
	require.Contains(t, env.Errors, "email")
	require.Contains(t, env.Errors, "password")

	res = c.postForm("/login", url.Values{"email": {"jane@example.com"}, "password": {"nope"}}, jsonHeader(token))
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = c.postForm("/login", url.Values{"email": {"new@example.com"}, "password": {testPassword}}, jsonHeader(token))
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	require.Equal(t, msgEmailNotVerified, decode[envelopePayload](t, res).Message)
}

func TestLogin_HTMXRedirect(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)

	res := c.postForm("/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {testPassword},
	}, http.Header{
		CSRFHeader:   {c.csrf("/login")},
		"HX-Request": {"true"},
		"Accept":     {"application/json"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "/dashboard", res.Header.Get("HX-Redirect"))
}

func TestRememberMe(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)

	res := c.postForm("/login", url.Values{
		"_token":   {c.csrf("/login")},
		"email":    {"jane@example.com"},
		"password":    {testPassword},
		"remember_me": {"1"},
	}, nil)
	requireRedirect(t, res, "/dashboard")

	remember := c.cookie(RememberCookieName)
	require.NotNil(t, remember)

	// A fresh browser holding only the remember cookie is logged back in
	// and handed a rotated token.
	other := ts.client(t)
	u, _ := url.Parse(ts.URL)
	other.http.Jar.SetCookies(u, []*http.Cookie{{Name: RememberCookieName, Value: remember.Value, Path: "/"}})

	vm := other.page("/dashboard")
	require.Equal(t, "jane@example.com", vm.User.Email)
	rotated := other.cookie(RememberCookieName)
	require.NotNil(t, rotated)
	require.NotEqual(t, remember.Value, rotated.Value)

	// The old token is spent.
	third := ts.client(t)
	third.http.Jar.SetCookies(u, []*http.Cookie{{Name: RememberCookieName, Value: remember.Value, Path: "/"}})
	requireRedirect(t, third.get("/dashboard"), "/login")
	require.Nil(t, third.cookie(RememberCookieName))
}

func TestLogin_RememberFields(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")

	tests := []struct {
		field string
		want  bool
	}{
		{"remember_me", true},
		{"remember", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run("field "+tt.field, func(t *testing.T) {
			c := ts.client(t)
			form := url.Values{
				"_token":   {c.csrf("/login")},
				"email":    {"jane@example.com"},
				"password": {testPassword},
			}
			if tt.field != "" {
				form.Set(tt.field, "on")
			}
			requireRedirect(t, c.postForm("/login", form, nil), "/dashboard")
			require.Equal(t, tt.want, c.cookie(RememberCookieName) != nil)
		})
	}
}

func TestLogin_LockoutCountsSocketAddress(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	token := c.csrf("/login")

	// Rotating emails and forwarded addresses must not dodge the per-IP count.
	for i := range service.MaxLoginAttempts {
		header := jsonHeader(token)
		header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		res := c.postForm("/login", url.Values{
			"email":    {fmt.Sprintf("nobody%d@example.com", i)},
			"password": {"WrongPass1"},
		}, header)
		require.Equal(t, http.StatusUnauthorized, res.StatusCode, "attempt %d", i+1)
	}

	header := jsonHeader(token)
	header.Set("X-Forwarded-For", "10.0.0.99")
	res := c.postForm("/login", url.Values{
		"email":    {"jane@example.com"},
		"password": {testPassword},
	}, header)
	require.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	require.Equal(t, msgTooManyAttempts, decode[envelopePayload](t, res).Message)

	since := time.Now().Add(-time.Hour)
	n, err := ts.store.LoginAttempts().CountRecentFailures(context.Background(), "unused@example.com", "127.0.0.1", since)
	require.NoError(t, err)
	require.Equal(t, service.MaxLoginAttempts, n)

	n, err = ts.store.LoginAttempts().CountRecentFailures(context.Background(), "unused@example.com", "10.0.0.0", since)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestLogin_TrustedProxyAddress(t *testing.T) {
	ts := newTestServer(t, func(r *Router) { r.TrustProxyHeaders = true })
	c := ts.client(t)

	header := jsonHeader(c.csrf("/login"))
	header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	res := c.postForm("/login", url.Values{
		"email":    {"nobody@example.com"},
		"password": {"WrongPass1"},
	}, header)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	n, err := ts.store.LoginAttempts().CountRecentFailures(context.Background(), "unused@example.com", "203.0.113.7", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")

	res := c.postForm("/logout", url.Values{"_token": {c.csrf("/dashboard")}}, nil)
	requireRedirect(t, res, "/login")

	vm := c.page("/login")
	require.Equal(t, msgLoggedOut, vm.Flashes[session.FlashSuccess])
	requireRedirect(t, c.get("/dashboard"), "/login")
}

func TestRegisterAndVerify(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	res := c.postForm("/register", url.Values{
		"_token":                {c.csrf("/register")},
		"first_name":            {"Jane"},
		"last_name":             {"Doe"},
		"email":                 {"jane@example.com"},
		"password":              {testPassword},
		"password_confirmation": {testPassword},
		"agree_terms":           {"on"},
	}, nil)
	requireRedirect(t, res, "/login")
	require.Equal(t, msgRegistered, c.page("/login").Flashes[session.FlashSuccess])

	msg, ok := ts.mail.Last()
	require.True(t, ok)
	link, err := url.Parse(msg.Link)
	require.NoError(t, err)

	res = c.get("/verify-email?token=bogus")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "auth/verify-email", decode[viewPayload](t, res).Page)

	requireRedirect(t, c.get("/verify-email?"+link.RawQuery), "/login")
	require.Equal(t, msgEmailVerified, c.page("/login").Flashes[session.FlashSuccess])

	requireRedirect(t, c.login("jane@example.com"), "/dashboard")
}

func TestRegister_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	res := c.postForm("/register", url.Values{
		"_token":   {c.csrf("/register")},
		"email":    {"jane@example.com"},
		"password": {"short"},
	}, nil)
	requireRedirect(t, res, "/register")

	vm := c.page("/register")
	require.Contains(t, vm.Errors, "first_name")
	require.Contains(t, vm.Errors, "password")
	require.Contains(t, vm.Errors, "agree_terms")
	require.Equal(t, "jane@example.com", vm.Old["email"])
}

func TestPasswordReset(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)

	res := c.postForm("/forgot-password", url.Values{
		"_token": {c.csrf("/forgot-password")},
		"email":  {"jane@example.com"},
	}, nil)
	requireRedirect(t, res, "/login")

	msg, ok := ts.mail.Last()
	require.True(t, ok)
	link, err := url.Parse(msg.Link)
	require.NoError(t, err)
	token := link.Query().Get("token")

	requireRedirect(t, c.get("/reset-password?token=bogus"), "/forgot-password")

	vm := c.page("/reset-password?token=" + url.QueryEscape(token))
	require.Equal(t, "auth/reset-password", vm.Page)

	res = c.postForm("/reset-password", url.Values{
		"_token":                {vm.CSRFToken},
		"token":                 {token},
		"password":              {"NewSecret456"},
		"password_confirmation": {"NewSecret456"},
	}, nil)
	requireRedirect(t, res, "/login")
	require.Equal(t, msgPasswordReset, c.page("/login").Flashes[session.FlashSuccess])

	res = c.postForm("/login", url.Values{
		"_token":   {c.csrf("/login")},
		"email":    {"jane@example.com"},
		"password": {"NewSecret456"},
	}, nil)
	requireRedirect(t, res, "/dashboard")
}

func TestTasks_JSONLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")
	h := jsonHeader(c.csrf("/dashboard"))

	res := c.postForm("/tasks", url.Values{"title": {""}}, h)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	require.Contains(t, decode[envelopePayload](t, res).Errors, "title")

	res = c.postForm("/tasks", url.Values{
		"title":    {"Write report"},
		"priority": {"high"},
		"status":   {"todo"},
	}, h)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	env := decode[envelopePayload](t, res)
	require.True(t, env.Success)

	var task taskView
	require.NoError(t, json.Unmarshal(env.Data, &task))
	require.Equal(t, "Write report", task.Title)
	require.Equal(t, "high", task.Priority)

	// HTML forms tunnel PUT through _method.
	res = c.postForm("/tasks/"+task.ID, url.Values{
		"_method":  {"PUT"},
		"title":    {"Write final report"},
		"priority": {"medium"},
		"status":   {"in_progress"},
	}, h)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(decode[envelopePayload](t, res).Data, &task))
	require.Equal(t, "Write final report", task.Title)
	require.Equal(t, "in_progress", task.Status)

	res = c.do(http.MethodPatch, "/tasks/"+task.ID+"/status", strings.NewReader(`{"status":"done"}`),
		http.Header{"Accept": {"application/json"}, "Content-Type": {"application/json"}, CSRFHeader: h[CSRFHeader]})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(decode[envelopePayload](t, res).Data, &task))
	require.Equal(t, "done", task.Status)
	require.NotNil(t, task.CompletedAt)

	res = c.do(http.MethodDelete, "/tasks/"+task.ID, nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = c.getJSON("/tasks/" + task.ID)
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res = c.postForm("/trash/"+task.ID+"/restore", nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode)

	vm := c.page("/tasks/" + task.ID)
	require.Equal(t, "tasks/show", vm.Page)
}

func TestTasks_TrailingSlashAndPages(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")

	require.Equal(t, "tasks/index", c.page("/tasks/").Page)

	pages := map[string]string{
		"/":           "dashboard/index",
		"/kanban":     "tasks/kanban",
		"/calendar":   "tasks/calendar",
		"/categories": "categories/index",
		"/trash":      "trash/index",
		"/profile":    "profile/index",
	}
	for path, page := range pages {
		require.Equal(t, page, c.page(path).Page, path)
	}
}

func TestTasks_FormPostFlashes(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")

	res := c.postForm("/tasks", url.Values{
		"_token": {c.csrf("/tasks")},
		"title":  {"Buy milk"},
	}, nil)
	requireRedirect(t, res, "/tasks")

	vm := c.page("/tasks")
	require.Equal(t, "Task created successfully.", vm.Flashes[session.FlashSuccess])

	var data struct {
		Tasks []taskView `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(vm.Data, &data))
	require.Len(t, data.Tasks, 1)
	require.Equal(t, "Buy milk", data.Tasks[0].Title)
}

func TestTasks_HTMXToast(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")

	res := c.postForm("/tasks", url.Values{"title": {"From htmx"}}, http.Header{
		CSRFHeader:   {c.csrf("/tasks")},
		"HX-Request": {"true"},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.Contains(t, res.Header.Get("HX-Trigger"), "showToast")
	require.Contains(t, res.Header.Get("HX-Trigger"), "Task created successfully.")
}

func TestOwnership(t *testing.T) {
	ts := newTestServer(t)
	jane := ts.signUp(t, "jane@example.com")
	ts.signUp(t, "john@example.com")

	task, err := ts.router.TaskService.Create(context.Background(), jane.ID, service.TaskInput{Title: "Private"})
	require.NoError(t, err)

	c := ts.client(t)
	requireRedirect(t, c.login("john@example.com"), "/dashboard")
	h := jsonHeader(c.csrf("/dashboard"))

	require.Equal(t, http.StatusNotFound, c.getJSON("/tasks/"+task.ID).StatusCode)
	require.Equal(t, http.StatusNotFound, c.do(http.MethodDelete, "/tasks/"+task.ID, nil, h).StatusCode)
	require.Equal(t, http.StatusNotFound, c.do(http.MethodPatch, "/tasks/"+task.ID+"/toggle", nil, h).StatusCode)
	require.Equal(t, http.StatusNotFound, c.postForm("/tasks/"+task.ID+"/subtasks", url.Values{"title": {"x"}}, h).StatusCode)
}

func TestSubTasks(t *testing.T) {
	ts := newTestServer(t)
	jane := ts.signUp(t, "jane@example.com")
	task, err := ts.router.TaskService.Create(context.Background(), jane.ID, service.TaskInput{Title: "Parent"})
	require.NoError(t, err)

	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")
	h := jsonHeader(c.csrf("/dashboard"))

	res := c.postForm("/tasks/"+task.ID+"/subtasks", url.Values{"title": {"Step one"}}, h)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var sub subTaskView
	require.NoError(t, json.Unmarshal(decode[envelopePayload](t, res).Data, &sub))

	res = c.do(http.MethodPatch, "/subtasks/"+sub.ID+"/toggle", nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = c.getJSON("/tasks/" + task.ID + "/subtasks")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var subs []subTaskView
	require.NoError(t, json.Unmarshal(decode[envelopePayload](t, res).Data, &subs))
	require.Len(t, subs, 1)
	require.True(t, subs[0].IsCompleted)

	res = c.do(http.MethodDelete, "/subtasks/"+sub.ID, nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res = c.do(http.MethodDelete, "/subtasks/"+sub.ID, nil, h)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestCategories(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")
	h := jsonHeader(c.csrf("/dashboard"))

	res := c.postForm("/categories", url.Values{"name": {"Work"}}, h)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	require.Contains(t, decode[envelopePayload](t, res).Errors, "name")

	res = c.postForm("/categories", url.Values{"name": {"Errands"}}, h)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var cat categoryView
	require.NoError(t, json.Unmarshal(decode[envelopePayload](t, res).Data, &cat))
	require.Equal(t, domain.DefaultCategoryColor, cat.Color)

	res = c.postForm("/categories/"+cat.ID, url.Values{"_method": {"PUT"}, "name": {"Chores"}, "color": {"green"}}, h)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = c.do(http.MethodDelete, "/categories/"+cat.ID, nil, h)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var data struct {
		Categories []categoryView `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(c.page("/categories").Data, &data))
	require.Len(t, data.Categories, len(domain.DefaultCategories))
}

func TestTrash_Empty(t *testing.T) {
	ts := newTestServer(t)
	jane := ts.signUp(t, "jane@example.com")
	ctx := context.Background()
	for _, title := range []string{"One", "Two"} {
		task, err := ts.router.TaskService.Create(ctx, jane.ID, service.TaskInput{Title: title})
		require.NoError(t, err)
		require.NoError(t, ts.router.TaskService.Delete(ctx, jane.ID, task.ID))
	}

	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")

	res := c.do(http.MethodDelete, "/trash", nil, jsonHeader(c.csrf("/trash")))
	require.Equal(t, http.StatusOK, res.StatusCode)
	var data map[string]int64
	require.NoError(t, json.Unmarshal(decode[envelopePayload](t, res).Data, &data))
	require.Equal(t, int64(2), data["deleted"])
}

func TestProfile_DeleteAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "jane@example.com")
	c := ts.client(t)
	requireRedirect(t, c.login("jane@example.com"), "/dashboard")
	token := c.csrf("/profile")

	res := c.postForm("/profile", url.Values{"_token": {token}, "_method": {"DELETE"}, "password": {"wrong"}}, nil)
	requireRedirect(t, res, "/profile")
	require.Contains(t, c.page("/profile").Errors, "password")

	res = c.postForm("/profile", url.Values{"_token": {token}, "_method": {"DELETE"}, "password": {testPassword}}, nil)
	requireRedirect(t, res, "/login")

	requireRedirect(t, c.get("/dashboard"), "/login")
	res = c.postForm("/login", url.Values{
		"_token":   {c.csrf("/login")},
		"email":    {"jane@example.com"},
		"password": {testPassword},
	}, nil)
	requireRedirect(t, res, "/login")
	require.Equal(t, msgInvalidCredentials, c.page("/login").Flashes[session.FlashError])
}

func TestBackOr(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://example.com/subtasks/1", nil)
	require.Equal(t, "/tasks", backOr(r, "/tasks"))

	r.Header.Set("Referer", "http://example.com/tasks/abc?tab=subtasks")
	require.Equal(t, "/tasks/abc?tab=subtasks", backOr(r, "/tasks"))

	r.Header.Set("Referer", "https://evil.example.net/phish")
	require.Equal(t, "/tasks", backOr(r, "/tasks"))
}
