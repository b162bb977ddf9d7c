// dashboard_handler.go -- Protected dashboard and root redirect.
package auth

import (
	"errors"
	"net/http"
)

// dashboardResponse is the body of GET /dashboard.
type dashboardResponse struct {
	UserID  string  `json:"user_id"`
	Name    *string `json:"name"`
	Email   string  `json:"email"`
	Message string  `json:"message"`
}

// Dashboard handles GET /dashboard. Must run behind RequireUser.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		InternalServerError(w, r, errors.New("dashboard reached without RequireUser"))
		return
	}

	msg := "welcome"
	if user.Name != nil && *user.Name != "" {
		msg = "welcome, " + *user.Name
	}
	JSON(w, r, http.StatusOK, dashboardResponse{
		UserID:  user.ID.String(),
		Name:    user.Name,
		Email:   user.Email,
		Message: msg,
	})
}

// Root handles GET / -- sends the browser to /dashboard, which handles the login redirect.
func Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
