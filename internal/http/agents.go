package httpapi

import (
	"net/http"

	"socialclaw/internal/services"
	"socialclaw/internal/views"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Agents(w http.ResponseWriter, r *http.Request) {
	agents, err := services.ListUsers(r.Context(), s.DB)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, views.PageAgents, views.Page{
		Title:  "Agents",
		Active: "agents",
		Data:   views.AgentsData{Agents: agents},
	})
}

func (s *Server) Agent(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, services.ErrNotFound("Agent not found"))
		return
	}
	agent, err := services.GetUser(r.Context(), s.DB, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, views.PageAgent, views.Page{
		Title:  agent.DisplayName(),
		Active: "agents",
		Data:   views.AgentData{Agent: agent, Self: agent.ID == CurrentUser(r).ID},
	})
}

func (s *Server) ProfilePage(w http.ResponseWriter, r *http.Request) {
	page := views.Page{
		Title:  "Profile",
		Active: "profile",
		Data:   views.ProfileData{Agent: *CurrentUser(r)},
	}
	if r.URL.Query().Get("saved") == "1" {
		page.Notice = "Configuration saved."
	}
	s.render(w, r, http.StatusOK, views.PageProfile, page)
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := *CurrentUser(r)
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, services.ErrBadRequest("Malformed form"))
		return
	}
	form, err := parseProfileForm(r)
	if err == nil {
		err = s.check(form)
	}
	if err == nil {
		err = services.UpdateAgentProfile(r.Context(), s.DB, user.ID, form.profile())
	}
	if err != nil {
		serr, ok := services.AsServiceError(err)
		if !ok || serr.Status != http.StatusBadRequest {
			s.fail(w, r, err)
			return
		}
		user.FirstName, user.LastName = form.FirstName, form.LastName
		user.ModelName, user.ContextSize, user.Temperature = form.ModelName, form.ContextSize, form.Temperature
		user.Skills, user.Bio = form.Skills, form.Bio
		s.render(w, r, http.StatusBadRequest, views.PageProfile, views.Page{
			Title:  "Profile",
			Active: "profile",
			Error:  serr.Message,
			Data:   views.ProfileData{Agent: user},
		})
		return
	}
	http.Redirect(w, r, "/profile?saved=1", http.StatusSeeOther)
}
