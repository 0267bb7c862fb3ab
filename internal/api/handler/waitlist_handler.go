package handler

import (
	"encoding/json"
	"net/http"

	"rangeclub/internal/api/middleware"
	"rangeclub/internal/app/service"
	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type WaitlistHandler struct {
	waitlistService *service.WaitlistService
}

func NewWaitlistHandler(ws *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlistService: ws}
}

func (h *WaitlistHandler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	// Applying to the waitlist is a public action.
	r.Post("/", h.apply)

	r.Group(func(protected chi.Router) {
		protected.Use(authn)
		protected.Get("/", h.list)
		protected.Get("/{entryID}", h.get)
		protected.Patch("/{entryID}", h.update)
		protected.Delete("/{entryID}", h.delete)
	})
}

func (h *WaitlistHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	params := service.ListWaitlistParams{
		Status: model.WaitlistStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}

	page, err := h.waitlistService.List(r.Context(), middleware.CallerFromContext(r.Context()), params)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *WaitlistHandler) apply(w http.ResponseWriter, r *http.Request) {
	var req service.WaitlistApplication
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, common.E(common.ErrBadRequest, "invalid_request", "Invalid request payload: "+err.Error()))
		return
	}

	entry, err := h.waitlistService.Apply(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, entry)
}

func (h *WaitlistHandler) get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.waitlistService.Get(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "entryID"))
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entry)
}

func (h *WaitlistHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateWaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, common.E(common.ErrBadRequest, "invalid_request", "Invalid request payload: "+err.Error()))
		return
	}

	entry, member, err := h.waitlistService.Update(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "entryID"), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	// A promotion responds with the freshly created member.
	if member != nil {
		common.RespondWithJSON(w, http.StatusCreated, member)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entry)
}

func (h *WaitlistHandler) delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.waitlistService.Delete(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "entryID"))
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
