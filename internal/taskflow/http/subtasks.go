package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
)

type SubTaskHandler struct {
	SubTaskService *service.SubTaskService
}

func (h *SubTaskHandler) Index(w http.ResponseWriter, r *http.Request) {
	subs, err := h.SubTaskService.List(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, envelope{Success: true, Data: newSubTaskViews(subs)})
}

func (h *SubTaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	taskID := mux.Vars(r)["id"]
	st, err := h.SubTaskService.Create(r.Context(), currentUser(r).ID, taskID, r.PostFormValue("title"))
	if err != nil {
		handleError(w, r, err, "/tasks/"+taskID)
		return
	}
	succeed(w, r, http.StatusCreated, "Subtask added.", "/tasks/"+taskID, newSubTaskView(st))
}

func (h *SubTaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	st, err := h.SubTaskService.Toggle(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err, "/tasks")
		return
	}
	succeed(w, r, http.StatusOK, "Subtask updated.", "/tasks/"+st.TaskID, newSubTaskView(st))
}

func (h *SubTaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.SubTaskService.Delete(r.Context(), currentUser(r).ID, mux.Vars(r)["id"]); err != nil {
		handleError(w, r, err, "/tasks")
		return
	}
	succeed(w, r, http.StatusOK, "Subtask deleted.", backOr(r, "/tasks"), nil)
}
