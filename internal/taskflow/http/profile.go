package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/session"
)

type ProfileHandler struct {
	ProfileService *service.ProfileService
	AuthService    *service.AuthService
	Cookies        cookieJar
	Clock          service.Clock
}

func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	p, err := h.ProfileService.Show(r.Context(), currentUser(r).ID)
	if err != nil {
		handleError(w, r, err, "")
		return
	}
	render(w, r, http.StatusOK, "profile/index", "Profile", map[string]any{
		"profile": newUserView(p.User),
		"stats":   newStatsView(p.Stats),
		"themes":  []string{domain.ThemeLight, domain.ThemeDark, domain.ThemeAuto},
	})
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	u, err := h.ProfileService.Update(r.Context(), currentUser(r).ID, service.ProfileInput{
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Email:           r.PostFormValue("email"),
		ThemePreference: r.PostFormValue("theme_preference"),
		Timezone:        r.PostFormValue("timezone"),
	})
	if err != nil {
		handleError(w, r, err, "/profile")
		return
	}
	succeed(w, r, http.StatusOK, "Profile updated successfully.", "/profile", newUserView(u))
}

func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	err := h.ProfileService.ChangePassword(r.Context(), currentUser(r).ID,
		r.PostFormValue("current_password"),
		r.PostFormValue("password"),
		r.PostFormValue("password_confirmation"),
	)
	if err != nil {
		handleError(w, r, err, "/profile")
		return
	}
	h.Cookies.clearRemember(w)
	succeed(w, r, http.StatusOK, "Password changed successfully.", "/profile", nil)
}

// Delete soft deletes the account and ends the session.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !parseInput(w, r) {
		return
	}
	if err := h.ProfileService.DeleteAccount(r.Context(), currentUser(r).ID, r.PostFormValue("password")); err != nil {
		handleError(w, r, err, "/profile")
		return
	}

	h.Cookies.clearRemember(w)
	session.FromContext(r.Context()).Destroy(h.Clock.Now())
	succeed(w, r, http.StatusOK, "Your account has been deleted.", "/login", nil)
}
