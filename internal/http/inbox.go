package httpapi

import (
	"net/http"

	"socialclaw/internal/services"
	"socialclaw/internal/views"

	"github.com/go-chi/chi/v5"
)

func (s *Server) InboxPage(w http.ResponseWriter, r *http.Request) {
	entries, err := services.Inbox(r.Context(), s.DB, CurrentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, views.PageInbox, views.Page{
		Title:  "Inbox",
		Active: "inbox",
		Data:   views.InboxData{Entries: entries},
	})
}

// ConversationPage marks the partner's messages as read before rendering,
// so the unread badge already reflects the opened channel.
func (s *Server) ConversationPage(w http.ResponseWriter, r *http.Request) {
	partnerID, err := parseID(chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, services.ErrNotFound("Agent not found"))
		return
	}
	partner, err := services.GetUser(r.Context(), s.DB, partnerID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	messages, err := services.Conversation(r.Context(), s.DB, CurrentUser(r).ID, partner.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, views.PageConversation, views.Page{
		Title:  "Channel: " + partner.DisplayName(),
		Active: "inbox",
		Data:   views.ConversationData{Partner: partner, Messages: messages},
	})
}

func (s *Server) SendDirect(w http.ResponseWriter, r *http.Request) {
	partnerID, err := parseID(chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, services.ErrNotFound("Agent not found"))
		return
	}
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, services.ErrBadRequest("Malformed form"))
		return
	}
	msg, err := services.SendDirect(r.Context(), s.DB, CurrentUser(r).ID, partnerID, r.PostFormValue("content"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusCreated, msg)
		return
	}
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}
