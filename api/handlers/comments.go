package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/config"
	"github.com/Rhejna/missing-person-app/service"
)

// Comment exported for testing purposes
type Comment struct {
	Svc      *service.Service
	Validate *validator.Validate
}

type createCommentRequest struct {
	Author  string `json:"author" validate:"max=100"`
	Content string `json:"content" validate:"required"`
}

// CreateCommentHandler attaches a comment to a case. Officers get the
// officer badge.
func (h Comment) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req createCommentRequest
	if err := decodeJSON(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	author := req.Author
	isOfficer := false
	if p, ok := api.PrincipalFrom(r.Context()); ok {
		isOfficer = p.HasRole(api.RoleOfficer)
		if author == "" {
			author = p.Name
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cm, err := h.Svc.AddComment(ctx, caseID, author, req.Content, isOfficer)
	if err != nil {
		config.WriteError("failed to create comment", w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, cm)
}

// CommentsHandler lists the comments of a case, newest first. Moderated
// comments are only included for admins asking for them.
func (h Comment) CommentsHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	includeModerated, _ := strconv.ParseBool(r.URL.Query().Get("includeModerated"))
	if includeModerated {
		p, ok := api.PrincipalFrom(r.Context())
		includeModerated = ok && p.HasRole(api.RoleAdmin)
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	comments, err := h.Svc.ListComments(ctx, caseID, includeModerated)
	if err != nil {
		config.WriteError("failed to get comments", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, presentComments(comments))
}

// ReportCommentHandler counts a community report against a comment
func (h Comment) ReportCommentHandler(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["comment_id"]

	var req reportRequest
	if err := decodeJSON(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cm, err := h.Svc.ReportComment(ctx, commentID, req.Reason, sessionKey(r))
	if err != nil {
		config.WriteError("failed to report comment", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, cm)
}
