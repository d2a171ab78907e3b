package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
)

type DashboardHandler struct {
	DashboardService *service.DashboardService
	Clock            service.Clock
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	d, err := h.DashboardService.Summary(r.Context(), user.ID, user.Timezone)
	if err != nil {
		serverError(w, r, err, "")
		return
	}

	today := userToday(r, h.Clock)
	render(w, r, http.StatusOK, "dashboard/index", "Dashboard", map[string]any{
		"stats":          newStatsView(d.Stats),
		"recent_tasks":   newTaskViews(d.Recent, today),
		"upcoming_tasks": newTaskViews(d.Upcoming, today),
	})
}
