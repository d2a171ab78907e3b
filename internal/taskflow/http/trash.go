package http

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
)

type TrashHandler struct {
	TrashService *service.TrashService
	Clock        service.Clock
}

func (h *TrashHandler) Index(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.TrashService.List(r.Context(), currentUser(r).ID)
	if err != nil {
		serverError(w, r, err, "")
		return
	}
	render(w, r, http.StatusOK, "trash/index", "Trash", map[string]any{
		"tasks": newTaskViews(tasks, userToday(r, h.Clock)),
	})
}

func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	t, err := h.TrashService.Restore(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err, "/trash")
		return
	}
	succeed(w, r, http.StatusOK, "Task restored successfully.", "/trash", newTaskView(t, userToday(r, h.Clock)))
}

// Purge permanently deletes one trashed task.
func (h *TrashHandler) Purge(w http.ResponseWriter, r *http.Request) {
	if err := h.TrashService.Purge(r.Context(), currentUser(r).ID, mux.Vars(r)["id"]); err != nil {
		handleError(w, r, err, "/trash")
		return
	}
	succeed(w, r, http.StatusOK, "Task permanently deleted.", "/trash", nil)
}

func (h *TrashHandler) Empty(w http.ResponseWriter, r *http.Request) {
	n, err := h.TrashService.Empty(r.Context(), currentUser(r).ID)
	if err != nil {
		handleError(w, r, err, "/trash")
		return
	}
	msg := fmt.Sprintf("Trash emptied. %d task(s) permanently deleted.", n)
	succeed(w, r, http.StatusOK, msg, "/trash", map[string]int64{"deleted": n})
}
