package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"rangeclub/internal/api/middleware"
	"rangeclub/internal/app/service"
	"rangeclub/internal/common"
	"rangeclub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type MemberHandler struct {
	memberService *service.MemberService
}

func NewMemberHandler(ms *service.MemberService) *MemberHandler {
	return &MemberHandler{memberService: ms}
}

func (h *MemberHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{memberID}", h.get)
	r.Patch("/{memberID}", h.update)
	r.Delete("/{memberID}", h.delete)
}

func (h *MemberHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	params := service.ListMembersParams{
		Status: model.MemberStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
		Sort:   r.URL.Query().Get("sort"),
	}

	page, err := h.memberService.List(r.Context(), middleware.CallerFromContext(r.Context()), params)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *MemberHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, common.E(common.ErrBadRequest, "invalid_request", "Invalid request payload: "+err.Error()))
		return
	}

	member, err := h.memberService.Create(r.Context(), middleware.CallerFromContext(r.Context()), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) get(w http.ResponseWriter, r *http.Request) {
	member, err := h.memberService.Get(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "memberID"))
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, common.E(common.ErrBadRequest, "invalid_request", "Invalid request payload: "+err.Error()))
		return
	}

	member, err := h.memberService.Update(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "memberID"), req)
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.memberService.Delete(r.Context(), middleware.CallerFromContext(r.Context()), chi.URLParam(r, "memberID"))
	if err != nil {
		common.RespondWithError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

// parsePagination reads limit plus either offset or page (page wins only when
// offset is absent).
func parsePagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	if r.URL.Query().Get("offset") == "" {
		if page, _ := strconv.Atoi(r.URL.Query().Get("page")); page > 1 {
			offset = (page - 1) * limit
		}
	}
	return limit, offset
}
