package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
)

type TaskHandler struct {
	TaskService     *service.TaskService
	CategoryService *service.CategoryService
	Clock           service.Clock
}

func taskInput(r *http.Request) service.TaskInput {
	return service.TaskInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Status:      r.PostFormValue("status"),
		Priority:    r.PostFormValue("priority"),
		DueDate:     r.PostFormValue("due_date"),
		CategoryID:  r.PostFormValue("category_id"),
	}
}

// Index lists tasks with the filters from the query string.
func (h *TaskHandler) Index(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))

	res, err := h.TaskService.List(r.Context(), user.ID, service.TaskQuery{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		CategoryID: q.Get("category_id"),
		Search:     q.Get("search"),
		Due:        q.Get("due"),
		Sort:       q.Get("sort"),
		Direction:  q.Get("direction"),
		Page:       page,
		Timezone:   user.Timezone,
	})
	if err != nil {
		serverError(w, r, err, "")
		return
	}
	cats, err := h.CategoryService.List(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, err, "")
		return
	}

	render(w, r, http.StatusOK, "tasks/index", "Tasks", map[string]any{
		"tasks": newTaskViews(res.Tasks, userToday(r, h.Clock)),
		"pagination": map[string]int{
			"total":    res.Total,
			"page":     res.Page,
			"pages":    res.Pages,
			"per_page": res.PerPage,
		},
		"filters": newFilterView(res.Filter),
		"options": taskFormOptions(cats),
	})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	t, err := h.TaskService.Create(r.Context(), currentUser(r).ID, taskInput(r))
	if err != nil {
		handleError(w, r, err, "/tasks")
		return
	}
	succeed(w, r, http.StatusCreated, "Task created successfully.", "/tasks", newTaskView(t, userToday(r, h.Clock)))
}

// Show returns a task with its subtasks and progress.
func (h *TaskHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	d, err := h.TaskService.Detail(r.Context(), user.ID, mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	cats, err := h.CategoryService.List(r.Context(), user.ID)
	if err != nil {
		serverError(w, r, err, "")
		return
	}

	render(w, r, http.StatusOK, "tasks/show", d.Task.Title, map[string]any{
		"task":     newTaskView(d.Task, userToday(r, h.Clock)),
		"subtasks": newSubTaskViews(d.SubTasks),
		"progress": newProgressView(d.Progress),
		"options":  taskFormOptions(cats),
	})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	id := mux.Vars(r)["id"]
	t, err := h.TaskService.Update(r.Context(), currentUser(r).ID, id, taskInput(r))
	if err != nil {
		handleError(w, r, err, "/tasks/"+id)
		return
	}
	succeed(w, r, http.StatusOK, "Task updated successfully.", "/tasks/"+id, newTaskView(t, userToday(r, h.Clock)))
}

// Delete moves the task to the trash.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskService.Delete(r.Context(), currentUser(r).ID, mux.Vars(r)["id"]); err != nil {
		handleError(w, r, err, "/tasks")
		return
	}
	succeed(w, r, http.StatusOK, "Task moved to trash.", "/tasks", nil)
}

// ChangeStatus moves a task to another kanban column, optionally at a
// given position.
func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}

	var order *int
	if v := r.PostFormValue("sort_order"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			invalid(w, r, service.ValidationErrors{"sort_order": {"Sort order must be a number"}}, "/kanban")
			return
		}
		order = &n
	}

	t, err := h.TaskService.ChangeStatus(r.Context(), currentUser(r).ID, mux.Vars(r)["id"], r.PostFormValue("status"), order)
	if err != nil {
		handleError(w, r, err, "/kanban")
		return
	}
	succeed(w, r, http.StatusOK, "Task status updated.", "/kanban", newTaskView(t, userToday(r, h.Clock)))
}

func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	t, err := h.TaskService.Toggle(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err, "/tasks")
		return
	}
	succeed(w, r, http.StatusOK, "Task status updated.", "/tasks", newTaskView(t, userToday(r, h.Clock)))
}

func (h *TaskHandler) Kanban(w http.ResponseWriter, r *http.Request) {
	cols, err := h.TaskService.Board(r.Context(), currentUser(r).ID)
	if err != nil {
		serverError(w, r, err, "")
		return
	}
	render(w, r, http.StatusOK, "tasks/kanban", "Kanban Board", map[string]any{
		"columns": newBoardViews(cols, userToday(r, h.Clock)),
	})
}

func (h *TaskHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	cal, err := h.TaskService.Calendar(r.Context(), user.ID, r.URL.Query().Get("month"), user.Timezone)
	if err != nil {
		serverError(w, r, err, "")
		return
	}

	today := userToday(r, h.Clock)
	days := make(map[string][]taskView, len(cal.Days))
	for day, tasks := range cal.Days {
		days[day] = newTaskViews(tasks, today)
	}

	render(w, r, http.StatusOK, "tasks/calendar", "Calendar", map[string]any{
		"month":         cal.Month,
		"label":         cal.Label,
		"prev":          cal.Prev,
		"next":          cal.Next,
		"first_weekday": int(cal.FirstWeekday),
		"days_in_month": cal.DaysInMonth,
		"days":          days,
	})
}
