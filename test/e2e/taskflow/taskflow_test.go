package taskflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestHealth checks both probes answer once the container is up.
func TestHealth(t *testing.T) {
	c := setupTaskFlowContainer(t, nil)
	b := newBrowser(t, c.BaseURL)

	for _, path := range []string{"/livez", "/readyz"} {
		res := b.do(http.MethodGet, path, "", nil, nil)
		require.Equal(t, http.StatusOK, res.StatusCode, path)

		var body struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
		require.Equal(t, "ok", body.Status)
	}
}

// TestAccountLifecycle walks registration, verification, login, logout and
// a password reset against the real binary.
func TestAccountLifecycle(t *testing.T) {
	c := setupTaskFlowContainer(t, nil)
	b := newBrowser(t, c.BaseURL)
	const email = "jane@example.com"

	// Unverified accounts cannot log in.
	res := b.submit("/register", "/register", url.Values{
		"first_name":            {"Jane"},
		"last_name":             {"Doe"},
		"email":                 {email},
		"password":              {testPassword},
		"password_confirmation": {testPassword},
		"agree_terms":           {"1"},
	})
	requireRedirect(t, res, "/login")

	res = b.submit("/login", "/login", url.Values{"email": {email}, "password": {testPassword}})
	requireRedirect(t, res, "/login")
	require.Contains(t, b.page("/login").Flashes["error"], "verify your email")

	link, err := url.Parse(c.mailLink(t, email, "Verify"))
	require.NoError(t, err)
	requireRedirect(t, b.do(http.MethodGet, "/verify-email?"+link.RawQuery, "", nil, nil), "/login")

	res = b.submit("/login", "/login", url.Values{"email": {email}, "password": {testPassword}})
	requireRedirect(t, res, "/dashboard")

	dash := b.page("/dashboard")
	require.Equal(t, "dashboard/index", dash.Page)
	require.NotNil(t, dash.User)
	require.Equal(t, email, dash.User.Email)

	requireRedirect(t, b.submit("/dashboard", "/logout", url.Values{}), "/login")
	requireRedirect(t, b.do(http.MethodGet, "/dashboard", "", nil, nil), "/login")

	// Password reset.
	requireRedirect(t, b.submit("/forgot-password", "/forgot-password", url.Values{"email": {email}}), "/login")
	reset, err := url.Parse(c.mailLink(t, email, "Reset"))
	require.NoError(t, err)

	token := reset.Query().Get("token")
	res = b.submit("/reset-password?"+reset.RawQuery, "/reset-password", url.Values{
		"token":                 {token},
		"password":              {"NewSecret456"},
		"password_confirmation": {"NewSecret456"},
	})
	requireRedirect(t, res, "/login")

	res = b.submit("/login", "/login", url.Values{"email": {email}, "password": {"NewSecret456"}})
	requireRedirect(t, res, "/dashboard")
}

// TestTaskWorkflow drives tasks, subtasks, the board and the trash through
// the JSON interface.
func TestTaskWorkflow(t *testing.T) {
	c := setupTaskFlowContainer(t, nil)
	b := newBrowser(t, c.BaseURL)
	signUp(t, c, b, "jane@example.com")

	token := b.page("/tasks").CSRFToken

	status, env := b.api(http.MethodPost, "/tasks", map[string]any{
		"title":    "Ship release",
		"priority": "high",
		"status":   "todo",
		"due_date": time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
	}, token)
	require.Equal(t, http.StatusCreated, status)

	var task struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &task))

	status, _ = b.api(http.MethodPost, "/tasks/"+task.ID+"/subtasks", map[string]any{"title": "Tag build"}, token)
	require.Equal(t, http.StatusCreated, status)

	status, env = b.api(http.MethodPatch, "/tasks/"+task.ID+"/status", map[string]any{"status": "review", "sort_order": 0}, token)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &task))
	require.Equal(t, "review", task.Status)

	board := b.page("/kanban")
	var columns struct {
		Columns []struct {
			Status string            `json:"status"`
			Tasks  []json.RawMessage `json:"tasks"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(board.Data, &columns))
	require.Len(t, columns.Columns, 5)
	for _, col := range columns.Columns {
		if col.Status == "review" {
			require.Len(t, col.Tasks, 1)
		}
	}

	status, _ = b.api(http.MethodDelete, "/tasks/"+task.ID, nil, token)
	require.Equal(t, http.StatusOK, status)

	status, _ = b.api(http.MethodGet, "/tasks/"+task.ID, nil, token)
	require.Equal(t, http.StatusNotFound, status)

	status, env = b.api(http.MethodDelete, "/trash", nil, token)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, env.Message, "1 task")
}

// TestIsolation checks one user cannot reach another user's tasks.
func TestIsolation(t *testing.T) {
	c := setupTaskFlowContainer(t, nil)

	jane := newBrowser(t, c.BaseURL)
	signUp(t, c, jane, "jane@example.com")
	status, env := jane.api(http.MethodPost, "/tasks", map[string]any{"title": "Private"}, jane.page("/tasks").CSRFToken)
	require.Equal(t, http.StatusCreated, status)

	var task struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &task))

	john := newBrowser(t, c.BaseURL)
	signUp(t, c, john, "john@example.com")
	token := john.page("/tasks").CSRFToken

	status, _ = john.api(http.MethodGet, "/tasks/"+task.ID, nil, token)
	require.Equal(t, http.StatusNotFound, status)
	status, _ = john.api(http.MethodDelete, "/tasks/"+task.ID, nil, token)
	require.Equal(t, http.StatusNotFound, status)
}

// TestLoginRateLimit runs with the default strict limit. Repeated failed
// logins end in 429, from the lockout or from the limiter itself.
func TestLoginRateLimit(t *testing.T) {
	env := map[string]string{
		"RATELIMIT_STRICT_REQUESTS": "10",
		"RATELIMIT_STRICT_BURST":    "10",
	}
	c := setupTaskFlowContainer(t, env)
	b := newBrowser(t, c.BaseURL)
	token := b.page("/login").CSRFToken

	var limited bool
	for range 15 {
		form := url.Values{"_token": {token}, "email": {"nobody@example.com"}, "password": {"Wrong123"}}
		res := b.do(http.MethodPost, "/login", "application/x-www-form-urlencoded", stringsReader(form), nil)
		if res.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	require.True(t, limited, "login should be rate limited")
}

// TestPostgres runs the account and task flow against a PostgreSQL
// container on a shared network.
func TestPostgres(t *testing.T) {
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nw.Remove(ctx) })

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "postgres:16-alpine",
			ExposedPorts:   []string{"5432/tcp"},
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {"db"}},
			Env: map[string]string{
				"POSTGRES_USER":     "taskflow",
				"POSTGRES_PASSWORD": "taskflow",
				"POSTGRES_DB":       "taskflow",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres: %v", err)
		}
	})

	c := setupTaskFlowContainer(t, map[string]string{
		"DB_DRIVER":    "postgres",
		"DATABASE_URL": fmt.Sprintf("postgres://taskflow:taskflow@%s:5432/taskflow?sslmode=disable", "db"),
	}, nw.Name)

	b := newBrowser(t, c.BaseURL)
	signUp(t, c, b, "jane@example.com")

	cats := b.page("/categories")
	var data struct {
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(cats.Data, &data))
	require.Len(t, data.Categories, 5)

	status, _ := b.api(http.MethodPost, "/tasks", map[string]any{"title": "On postgres"}, cats.CSRFToken)
	require.Equal(t, http.StatusCreated, status)
}
