package circulation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookledger/internal/transport"
)

// Handler serves the ledger over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a ledger handler backed by service.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// BorrowRequest is the body of POST /borrow.
type BorrowRequest struct {
	BookID   string `json:"book_id"`
	MemberID string `json:"member_id"`
}

// Register mounts the ledger routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/borrow", h.handleBorrow)
	r.Get("/borrowings", h.handleListBorrowings)
	r.Post("/borrowings/{id}/return", h.handleReturn)
	r.Get("/borrowings/{id}/history", h.handleHistory)
	r.Get("/books/available", h.handleListAvailable)
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req BorrowRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	record, err := h.service.BorrowBook(r.Context(), req.BookID, req.MemberID)
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.ReturnBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListBorrowings(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListBorrowings(r.Context())
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListAvailableBooks(r.Context())
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		transport.WriteError(w, r, h.logger, err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, entries)
}
