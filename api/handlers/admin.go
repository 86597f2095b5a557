package handlers

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/config"
	"github.com/Rhejna/missing-person-app/moderation"
	"github.com/Rhejna/missing-person-app/service"
)

// Admin exported for testing purposes. Every route needs the admin role.
type Admin struct {
	Svc      *service.Service
	Photos   PhotoResolver
	Validate *validator.Validate
}

type moderateRequest struct {
	Decision string `json:"decision" validate:"required"`
	Note     string `json:"note" validate:"max=500"`
}

type resolveRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// decodeOptional accepts an empty body as the zero value
func decodeOptional(r *http.Request, v interface{}, validate *validator.Validate) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, v, validate)
}

// ReviewQueueHandler lists the pending, verified or flagged tab of the panel
func (h Admin) ReviewQueueHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cases, err := h.Svc.ReviewQueue(ctx, strings.ToLower(r.URL.Query().Get("view")))
	if err != nil {
		config.WriteError("failed to get review queue", w, err)
		return
	}
	resps := presentCases(cases, h.Photos, false, nil)
	countComments(ctx, h.Svc, resps)
	api.WriteJSON(w, http.StatusOK, resps)
}

// StatsHandler returns the case counters
func (h Admin) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	stats, err := h.Svc.Stats(ctx)
	if err != nil {
		config.WriteError("failed to get stats", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, stats)
}

// ModerateCaseHandler flags or clears a case regardless of its report count
func (h Admin) ModerateCaseHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req moderateRequest
	if err := decodeJSON(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	decision := moderation.Decision(strings.ToLower(strings.TrimSpace(req.Decision)))
	c, err := h.Svc.OverrideCase(ctx, caseID, decision, actor(r), req.Note)
	if err != nil {
		config.WriteError("failed to moderate case", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, presentCase(c, h.Photos, false, nil))
}

// ClearFlagHandler returns a flagged case to public listings
func (h Admin) ClearFlagHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := h.Svc.ClearFlag(ctx, caseID, actor(r))
	if err != nil {
		config.WriteError("failed to clear flag", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, presentCase(c, h.Photos, false, nil))
}

// MarkFoundHandler resolves a case as found
func (h Admin) MarkFoundHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req resolveRequest
	if err := decodeOptional(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := h.Svc.MarkFound(ctx, caseID, actor(r), req.Note)
	if err != nil {
		config.WriteError("failed to mark case found", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, presentCase(c, h.Photos, false, nil))
}

// MarkClosedHandler closes a case
func (h Admin) MarkClosedHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req resolveRequest
	if err := decodeOptional(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := h.Svc.MarkClosed(ctx, caseID, actor(r), req.Note)
	if err != nil {
		config.WriteError("failed to close case", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, presentCase(c, h.Photos, false, nil))
}

// ModerateCommentHandler hides or restores a comment
func (h Admin) ModerateCommentHandler(w http.ResponseWriter, r *http.Request) {
	commentID := mux.Vars(r)["comment_id"]

	var req moderateRequest
	if err := decodeJSON(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	decision := moderation.Decision(strings.ToLower(strings.TrimSpace(req.Decision)))
	cm, err := h.Svc.OverrideComment(ctx, commentID, decision, actor(r))
	if err != nil {
		config.WriteError("failed to moderate comment", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, cm)
}

// ReloadAuthoritiesHandler refreshes the authority directory now
func (h Admin) ReloadAuthoritiesHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.ReloadAuthorities(r.Context()); err != nil {
		config.WriteError("failed to reload authorities", w, err)
		return
	}
	zap.S().Infow("authority directory reloaded", "by", actor(r))
	api.WriteJSON(w, http.StatusOK, MessageResponse{Message: "authorities reloaded"})
}
