package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/gebo/internal/apperr"
	"github.com/starford/gebo/internal/engine"
	"github.com/starford/gebo/internal/notebook"
	"github.com/starford/gebo/internal/sse"
	"github.com/starford/gebo/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	sched    *engine.Scheduler
	eng      *engine.Engine
	notebook notebook.Adapter
	states   store.StateStore
	broker   *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil when SSE is disabled.
func NewHandler(sched *engine.Scheduler, eng *engine.Engine, nb notebook.Adapter, states store.StateStore, broker *sse.Broker) *Handler {
	return &Handler{sched: sched, eng: eng, notebook: nb, states: states, broker: broker}
}

// pageTitle extracts the page title from the URL (everything after /api/pages/).
// Supports encoded slashes from clients (e.g. topics%2FInbox).
func pageTitle(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPages handles GET /api/pages.
//
//	@Summary		List shared pages
//	@Tags			pages
//	@Produce		json
//	@Success		200	{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.states.Pages()
	if err != nil {
		slog.Error("list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if pages == nil {
		pages = []string{}
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: pages, Total: len(pages)})
}

// SharePage handles POST /api/pages. It encodes the page, records its shared
// state, and begins publishing changes for it.
//
//	@Summary		Share a notebook page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SharePageRequest	true	"Page to share"
//	@Success		201		{object}	PageStateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages [post]
func (h *Handler) SharePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SharePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Page == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page is required"))
		return
	}

	ok, err := h.notebook.HasPage(r.Context(), req.Page)
	if err != nil {
		slog.Error("share page failed", slog.String("page", req.Page), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("page not found"))
		return
	}

	doc, checksum, err := h.sched.EncodeNow(r.Context(), req.Page)
	if err != nil {
		slog.Error("share encode failed", slog.String("page", req.Page), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil {
		h.broker.PublishPageEvent("shared", req.Page, checksum)
	}
	writeJSON(w, http.StatusCreated, PageStateResponse{Page: req.Page, Checksum: checksum, State: doc})
}

// GetPageState handles GET /api/pages/*.
//
//	@Summary		Get the encoded shared document for a page
//	@Tags			pages
//	@Produce		json
//	@Param			page	path		string	true	"Page title"
//	@Success		200		{object}	PageStateResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{page} [get]
func (h *Handler) GetPageState(w http.ResponseWriter, r *http.Request) {
	page := pageTitle(r)
	if page == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page is required"))
		return
	}
	doc, checksum, err := h.sched.EncodeNow(r.Context(), page)
	if err != nil {
		if errors.Is(err, apperr.ErrMissingPage) || errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("page not found"))
		} else {
			slog.Error("encode failed", slog.String("page", page), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, PageStateResponse{Page: page, Checksum: checksum, State: doc})
}

// ApplyPageState handles PUT /api/pages/*.
//
//	@Summary		Apply a remote shared document to a page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			page	path		string				true	"Page title"
//	@Param			body	body		ApplyStateRequest	true	"Document to apply"
//	@Success		200		{object}	ApplyStateResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{page} [put]
func (h *Handler) ApplyPageState(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	page := pageTitle(r)
	if page == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page is required"))
		return
	}

	var req ApplyStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.State == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("state is required"))
		return
	}
	if err := req.State.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	ops, err := h.sched.ApplyRemote(r.Context(), page, req.State)
	if err != nil {
		var merr *apperr.MutationError
		switch {
		case errors.Is(err, apperr.ErrMissingPage), errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("page not found"))
		case errors.Is(err, apperr.ErrIdentifierCollision):
			writeJSON(w, http.StatusConflict, errorBody("identifier collision"))
		case errors.As(err, &merr):
			slog.Error("apply state failed",
				slog.String("page", page),
				slog.String("kind", merr.Kind),
				slog.String("target", merr.Target),
				slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError,
				errorBody(fmt.Sprintf("mutation %s on %s failed", merr.Kind, merr.Target)))
		default:
			slog.Error("apply state failed", slog.String("page", page), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}

	applied := make([]OpEntry, len(ops))
	for i, op := range ops {
		applied[i] = OpEntry{Kind: string(op.Kind), Target: op.Target()}
	}
	writeJSON(w, http.StatusOK, ApplyStateResponse{Page: page, Applied: applied})
}

// UnsharePage handles DELETE /api/pages/*.
//
//	@Summary		Stop sharing a page and forget its identity mappings
//	@Tags			pages
//	@Param			page	path	string	true	"Page title"
//	@Success		204		"Page unshared"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{page} [delete]
func (h *Handler) UnsharePage(w http.ResponseWriter, r *http.Request) {
	page := pageTitle(r)
	if page == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page is required"))
		return
	}
	if err := h.eng.Unshare(r.Context(), page); err != nil {
		if errors.Is(err, apperr.ErrMissingPage) || errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("page not found"))
			return
		}
		slog.Error("unshare failed", slog.String("page", page), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.broker != nil {
		h.broker.PublishPageEvent("unshared", page, "")
	}
	w.WriteHeader(http.StatusNoContent)
}
