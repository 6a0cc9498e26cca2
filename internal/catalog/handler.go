package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookledger/internal/transport"
)

// Handler serves books and members over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a catalog handler backed by service.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the book and member routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/books", h.handleCreateBook)
	r.Get("/books", h.handleListBooks)
	r.Get("/books/{id}", h.handleGetBook)
	r.Put("/books/{id}", h.handleUpdateBook)
	r.Delete("/books/{id}", h.handleDeleteBook)

	r.Post("/members", h.handleCreateMember)
	r.Get("/members", h.handleListMembers)
	r.Get("/members/{id}", h.handleGetMember)
	r.Put("/members/{id}", h.handleUpdateMember)
	r.Delete("/members/{id}", h.handleDeleteMember)
}

func (h *Handler) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req BookInput
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	book, err := h.service.CreateBook(r.Context(), req)
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, book)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req BookInput
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	book, err := h.service.UpdateBook(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req MemberInput
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	member, err := h.service.CreateMember(r.Context(), req)
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, member)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.service.GetMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req MemberInput
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	member, err := h.service.UpdateMember(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, member)
}

func (h *Handler) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteMember(r.Context(), chi.URLParam(r, "id")); err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
