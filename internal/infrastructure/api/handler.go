package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"marketplace-session-layer/internal/application"
	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler exposes the session layer over HTTP
type Handler struct {
	storefront *application.StorefrontService
	directory  *application.DirectoryService
	editor     *application.Editor
	carts      *application.CartService
	sessions   *application.SessionService
	events     *pubsub.ChangePubSub
	logger     zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(
	storefront *application.StorefrontService,
	directory *application.DirectoryService,
	editor *application.Editor,
	carts *application.CartService,
	sessions *application.SessionService,
	events *pubsub.ChangePubSub,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		storefront: storefront,
		directory:  directory,
		editor:     editor,
		carts:      carts,
		sessions:   sessions,
		events:     events,
		logger:     logger,
	}
}

// Routes mounts the /api/v1 endpoints on r
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stores", h.listStores)

		r.Get("/directory", h.getDirectory)
		r.Put("/directory", h.saveDirectory)
		r.Delete("/directory/{index}", h.deleteDirectoryEntry)

		r.Route("/editor", func(r chi.Router) {
			r.Get("/", h.editorState)
			r.Post("/add", h.editorBeginAdd)
			r.Post("/edit/{index}", h.editorBeginEdit)
			r.Post("/cancel", h.editorCancel)
			r.Post("/submit", h.editorSubmit)
		})

		r.Route("/carts", func(r chi.Router) {
			r.Get("/", h.listCarts)
			r.Delete("/", h.clearAll)
			r.Get("/{storeId}", h.getCart)
			r.Put("/{storeId}", h.setCart)
			r.Delete("/{storeId}", h.removeCart)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.listSessions)
			r.Get("/{storeId}", h.getSession)
			r.Put("/{storeId}", h.setSession)
			r.Delete("/{storeId}", h.removeSession)
		})

		r.Get("/events", h.streamEvents)
	})
}

func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	view, err := h.storefront.View(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getDirectory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.directory.List(r.Context()))
}

func (h *Handler) saveDirectory(w http.ResponseWriter, r *http.Request) {
	var stores []domain.StoreConfig
	if !decodeBody(w, r, &stores) {
		return
	}
	if err := h.directory.Save(r.Context(), stores); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.directory.List(r.Context()))
}

func (h *Handler) deleteDirectoryEntry(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	if err := h.editor.Delete(r.Context(), index); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) editorState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.State())
}

func (h *Handler) editorBeginAdd(w http.ResponseWriter, _ *http.Request) {
	if err := h.editor.BeginAdd(); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.State())
}

func (h *Handler) editorBeginEdit(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	entry, err := h.editor.BeginEdit(r.Context(), index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": h.editor.State(),
		"entry": entry,
	})
}

func (h *Handler) editorCancel(w http.ResponseWriter, _ *http.Request) {
	h.editor.Cancel()
	writeJSON(w, http.StatusOK, h.editor.State())
}

func (h *Handler) editorSubmit(w http.ResponseWriter, r *http.Request) {
	var entry domain.StoreConfig
	if !decodeBody(w, r, &entry) {
		return
	}
	saved, err := h.editor.Submit(r.Context(), entry)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type setCartRequest struct {
	CartID    string `json:"cartId"`
	StoreName string `json:"storeName,omitempty"`
}

func (h *Handler) listCarts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.carts.ListCarts(r.Context()))
}

func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.ClearAll(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cart, ok := h.carts.GetCart(r.Context(), chi.URLParam(r, "storeId"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "cart not found"})
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) setCart(w http.ResponseWriter, r *http.Request) {
	var body setCartRequest
	if !decodeBody(w, r, &body) {
		return
	}
	cart, err := h.carts.SetCart(r.Context(), chi.URLParam(r, "storeId"), body.CartID, body.StoreName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) removeCart(w http.ResponseWriter, r *http.Request) {
	h.carts.RemoveCart(r.Context(), chi.URLParam(r, "storeId"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.ListSessions(r.Context()))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessions.GetSession(r.Context(), chi.URLParam(r, "storeId"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) setSession(w http.ResponseWriter, r *http.Request) {
	var body application.SessionInput
	if !decodeBody(w, r, &body) {
		return
	}
	session, err := h.sessions.SetSession(r.Context(), chi.URLParam(r, "storeId"), body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) removeSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.RemoveSession(r.Context(), chi.URLParam(r, "storeId"))
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string                `json:"error"`
	Rule  domain.ValidationRule `json:"rule,omitempty"`
	Field string                `json:"field,omitempty"`
}

// writeError maps service errors onto status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if verr, ok := domain.AsValidationError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: verr.Message,
			Rule:  verr.Rule,
			Field: verr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRecord):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrStoreIndexOutOfRange):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrEditorBusy), errors.Is(err, domain.ErrEditorIdle):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrRecordNotPersisted):
		h.logger.Warn().Err(err).Msg("Record storage unavailable")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		h.logger.Error().Err(err).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "index must be an integer"})
		return 0, false
	}
	return index, true
}
