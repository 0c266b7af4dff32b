package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/catalog-inventory/middleware"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

// BookService defines the catalog operations exposed over HTTP
type BookService interface {
	List(ctx context.Context, page models.PageRequest) (models.Page[*models.Book], error)
	Search(ctx context.Context, criteria models.BookSearch) (models.Page[*models.Book], error)
	ListByGenre(ctx context.Context, genre string, page models.PageRequest) (models.Page[*models.Book], error)
	ListByAuthor(ctx context.Context, author string, page models.PageRequest) (models.Page[*models.Book], error)
	ListByPublisher(ctx context.Context, publisher string, page models.PageRequest) (models.Page[*models.Book], error)
	ListByPriceRange(ctx context.Context, minPrice, maxPrice float64, page models.PageRequest) (models.Page[*models.Book], error)
	ListByYearRange(ctx context.Context, startYear, endYear int, page models.PageRequest) (models.Page[*models.Book], error)
	ListInStock(ctx context.Context, page models.PageRequest) (models.Page[*models.Book], error)
	ListOutOfStock(ctx context.Context, page models.PageRequest) (models.Page[*models.Book], error)
	ListLowStock(ctx context.Context, threshold int) ([]*models.Book, error)
	Statistics(ctx context.Context) (*models.BookStatistics, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)
	ISBNExists(ctx context.Context, isbn string) (bool, error)
	Create(ctx context.Context, in models.BookInput) (*models.Book, error)
	Update(ctx context.Context, id uuid.UUID, in models.BookInput) (*models.Book, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) (*models.Book, error)
	UpdateStock(ctx context.Context, id uuid.UUID, quantity int) (*models.Book, error)
}

// ISBNExistsResponse answers GET /books/check-isbn/{isbn}
type ISBNExistsResponse struct {
	ISBN   string `json:"isbn"`
	Exists bool   `json:"exists"`
}

// BookHandler handles the /api/v1/books endpoints
type BookHandler struct {
	service BookService
	logger  *zap.Logger
}

// NewBookHandler creates a new BookHandler
func NewBookHandler(service BookService, logger *zap.Logger) *BookHandler {
	return &BookHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /books
func (h *BookHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.List(r.Context(), page)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandleGet handles GET /books/{id}
func (h *BookHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	book, err := h.service.GetByID(r.Context(), id)
	h.respond(w, r, http.StatusOK, book, err)
}

// HandleGetByISBN handles GET /books/isbn/{isbn}
func (h *BookHandler) HandleGetByISBN(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetByISBN(r.Context(), chi.URLParam(r, "isbn"))
	h.respond(w, r, http.StatusOK, book, err)
}

// HandleCheckISBN handles GET /books/check-isbn/{isbn}
func (h *BookHandler) HandleCheckISBN(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")
	exists, err := h.service.ISBNExists(r.Context(), isbn)
	h.respond(w, r, http.StatusOK, ISBNExistsResponse{ISBN: isbn, Exists: exists}, err)
}

// HandleSearch handles POST /books/search
func (h *BookHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var criteria models.BookSearch
	if !h.decode(w, r, &criteria) {
		return
	}
	result, err := h.service.Search(r.Context(), criteria)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandleByGenre handles GET /books/genre/{genreName}
func (h *BookHandler) HandleByGenre(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListByGenre(r.Context(), chi.URLParam(r, "genreName"), page)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandleByAuthor handles GET /books/author/{authorName}
func (h *BookHandler) HandleByAuthor(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListByAuthor(r.Context(), chi.URLParam(r, "authorName"), page)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandleByPublisher handles GET /books/publisher/{publisher}
func (h *BookHandler) HandleByPublisher(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListByPublisher(r.Context(), chi.URLParam(r, "publisher"), page)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandlePriceRange handles GET /books/price-range?minPrice=&maxPrice=
func (h *BookHandler) HandlePriceRange(w http.ResponseWriter, r *http.Request) {
	minPrice, err := queryFloat(r, "minPrice")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	maxPrice, err := queryFloat(r, "maxPrice")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListByPriceRange(r.Context(), minPrice, maxPrice, page)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandleYearRange handles GET /books/year-range?startYear=&endYear=
func (h *BookHandler) HandleYearRange(w http.ResponseWriter, r *http.Request) {
	startYear, err := requiredQueryInt(r, "startYear")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	endYear, err := requiredQueryInt(r, "endYear")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListByYearRange(r.Context(), startYear, endYear, page)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandleInStock handles GET /books/in-stock
func (h *BookHandler) HandleInStock(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListInStock(r.Context(), page)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandleOutOfStock handles GET /books/out-of-stock
func (h *BookHandler) HandleOutOfStock(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageRequest(w, r)
	if !ok {
		return
	}
	result, err := h.service.ListOutOfStock(r.Context(), page)
	h.respond(w, r, http.StatusOK, result, err)
}

// HandleLowStock handles GET /books/low-stock?threshold=
func (h *BookHandler) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold", -1)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	books, err := h.service.ListLowStock(r.Context(), threshold)
	h.respond(w, r, http.StatusOK, books, err)
}

// HandleStatistics handles GET /books/statistics
func (h *BookHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	h.respond(w, r, http.StatusOK, stats, err)
}

// HandleCreate handles POST /books
func (h *BookHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in models.BookInput
	if !h.decode(w, r, &in) {
		return
	}
	book, err := h.service.Create(r.Context(), in)
	h.respond(w, r, http.StatusCreated, book, err)
}

// HandleUpdate handles PUT /books/{id}
func (h *BookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	var in models.BookInput
	if !h.decode(w, r, &in) {
		return
	}
	book, err := h.service.Update(r.Context(), id, in)
	h.respond(w, r, http.StatusOK, book, err)
}

// HandleDelete handles DELETE /books/{id}. Books are deactivated, not removed.
func (h *BookHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleRestore handles POST /books/{id}/restore
func (h *BookHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	book, err := h.service.Restore(r.Context(), id)
	h.respond(w, r, http.StatusOK, book, err)
}

// HandleUpdateStock handles PUT /books/{id}/stock?quantity=
func (h *BookHandler) HandleUpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookID(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("quantity") == "" {
		_ = utils.WriteBadRequest(w, "quantity is required", nil)
		return
	}
	quantity, err := queryInt(r, "quantity", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	book, err := h.service.UpdateStock(r.Context(), id, quantity)
	h.respond(w, r, http.StatusOK, book, err)
}

func (h *BookHandler) respond(w http.ResponseWriter, r *http.Request, status int, body interface{}, err error) {
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if err := utils.WriteJSON(w, status, body); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
	}
}

func (h *BookHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Debug("failed to parse request body",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func (h *BookHandler) bookID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid book ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *BookHandler) pageRequest(w http.ResponseWriter, r *http.Request) (models.PageRequest, bool) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return models.PageRequest{}, false
	}
	size, err := queryInt(r, "size", models.DefaultPageSize)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return models.PageRequest{}, false
	}
	return models.NewPageRequest(page, size), true
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func requiredQueryInt(r *http.Request, name string) (int, error) {
	if r.URL.Query().Get(name) == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	return queryInt(r, name, 0)
}

// queryFloat parses a required numeric query parameter
func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}
