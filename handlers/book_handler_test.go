package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories/memory"
	"github.com/upb/catalog-inventory/services/books"
	"go.uber.org/zap"
)

func newBookRouter(t *testing.T) (http.Handler, *books.Service) {
	t.Helper()
	store := memory.NewStore()
	service := books.NewService(store.Repositories().Books, store.TransactionManager(), zap.NewNop())
	h := NewBookHandler(service, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/books", h.HandleList)
	r.Post("/books", h.HandleCreate)
	r.Post("/books/search", h.HandleSearch)
	r.Get("/books/in-stock", h.HandleInStock)
	r.Get("/books/genre/{genreName}", h.HandleByGenre)
	r.Get("/books/author/{authorName}", h.HandleByAuthor)
	r.Get("/books/publisher/{publisher}", h.HandleByPublisher)
	r.Get("/books/price-range", h.HandlePriceRange)
	r.Get("/books/year-range", h.HandleYearRange)
	r.Get("/books/out-of-stock", h.HandleOutOfStock)
	r.Get("/books/low-stock", h.HandleLowStock)
	r.Get("/books/statistics", h.HandleStatistics)
	r.Get("/books/isbn/{isbn}", h.HandleGetByISBN)
	r.Get("/books/check-isbn/{isbn}", h.HandleCheckISBN)
	r.Get("/books/{id}", h.HandleGet)
	r.Put("/books/{id}", h.HandleUpdate)
	r.Delete("/books/{id}", h.HandleDelete)
	r.Post("/books/{id}/restore", h.HandleRestore)
	r.Put("/books/{id}/stock", h.HandleUpdateStock)
	return r, service
}

func seedBook(t *testing.T, service *books.Service, title, isbn string, stock int) *models.Book {
	t.Helper()
	book, err := service.Create(t.Context(), models.BookInput{
		Title:         title,
		ISBN:          isbn,
		Author:        "Octavia E. Butler",
		Price:         10,
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return book
}

func doRequest(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestBookHandler_Create(t *testing.T) {
	router, _ := newBookRouter(t)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "valid book",
			body:           `{"title":"Kindred","isbn":"9780807083697","author":"Octavia E. Butler","price":9.99,"stockQuantity":3}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "duplicate isbn",
			body:           `{"title":"Kindred again","isbn":"9780807083697","author":"Octavia E. Butler","price":9.99,"stockQuantity":1}`,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "missing title",
			body:           `{"isbn":"9780446675505","author":"Octavia E. Butler"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative price",
			body:           `{"title":"Parable","isbn":"9780446675505","author":"Octavia E. Butler","price":-1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed JSON",
			body:           `{"title":`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/books", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestBookHandler_GetUpdateDeleteRestore(t *testing.T) {
	router, service := newBookRouter(t)
	book := seedBook(t, service, "Dawn", "9780446603775", 2)
	path := "/books/" + book.ID.String()

	w := doRequest(router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Book
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Dawn", got.Title)

	w = doRequest(router, http.MethodGet, "/books/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/books/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPut, path,
		`{"title":"Dawn (Xenogenesis 1)","isbn":"9780446603775","author":"Octavia E. Butler","price":11,"stockQuantity":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Xenogenesis")

	w = doRequest(router, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, path+"/restore", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/books/isbn/9780446603775", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/books/check-isbn/9780446603775", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isbn":"9780446603775","exists":true}`, w.Body.String())
}

func TestBookHandler_UpdateStock(t *testing.T) {
	router, service := newBookRouter(t)
	book := seedBook(t, service, "Wild Seed", "9780446606721", 2)
	path := "/books/" + book.ID.String() + "/stock"

	tests := []struct {
		name           string
		query          string
		expectedStatus int
	}{
		{name: "valid quantity", query: "?quantity=7", expectedStatus: http.StatusOK},
		{name: "zero quantity", query: "?quantity=0", expectedStatus: http.StatusOK},
		{name: "missing quantity", query: "", expectedStatus: http.StatusBadRequest},
		{name: "non-numeric quantity", query: "?quantity=lots", expectedStatus: http.StatusBadRequest},
		{name: "negative quantity", query: "?quantity=-1", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPut, path+tt.query, "")
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestBookHandler_Listings(t *testing.T) {
	router, service := newBookRouter(t)
	seedBook(t, service, "Fledgling", "9780446696166", 0)
	seedBook(t, service, "Imago", "9780446603638", 3)
	seedBook(t, service, "Kindred", "9780807083697", 40)

	w := doRequest(router, http.MethodGet, "/books?page=0&size=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page models.Page[*models.Book]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	assert.Len(t, page.Content, 2)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.First)
	assert.False(t, page.Last)

	w = doRequest(router, http.MethodGet, "/books?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, "/books/in-stock", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	assert.Equal(t, int64(2), page.TotalElements)

	w = doRequest(router, http.MethodGet, "/books/out-of-stock", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Fledgling", page.Content[0].Title)

	w = doRequest(router, http.MethodGet, "/books/low-stock?threshold=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	var low []*models.Book
	require.NoError(t, json.NewDecoder(w.Body).Decode(&low))
	assert.Len(t, low, 2)

	w = doRequest(router, http.MethodGet, "/books/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.BookStatistics
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, int64(3), stats.TotalBooks)
	assert.Equal(t, int64(1), stats.BooksOutOfStock)
}

func TestBookHandler_Search(t *testing.T) {
	router, service := newBookRouter(t)
	seedBook(t, service, "Parable of the Sower", "9780446675505", 5)
	seedBook(t, service, "Parable of the Talents", "9780446675789", 0)
	seedBook(t, service, "Kindred", "9780807083697", 2)

	w := doRequest(router, http.MethodPost, "/books/search", `{"title":"parable","inStock":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	var page models.Page[*models.Book]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Parable of the Sower", page.Content[0].Title)

	w = doRequest(router, http.MethodPost, "/books/search", `{"minPrice":20,"maxPrice":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/books/search", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookHandler_Browse(t *testing.T) {
	router, service := newBookRouter(t)
	year := func(y int) *int { return &y }
	for _, in := range []models.BookInput{
		{Title: "Dune", ISBN: "9780441172719", Author: "Frank Herbert", Genre: "Science Fiction", Publisher: "Ace Books", Price: 9.99, StockQuantity: 4, PublishedYear: year(1965)},
		{Title: "Neuromancer", ISBN: "9780441569595", Author: "William Gibson", Genre: "Cyberpunk Science Fiction", Publisher: "Ace Books", Price: 15.5, StockQuantity: 1, PublishedYear: year(1984)},
		{Title: "Beloved", ISBN: "9781400033416", Author: "Toni Morrison", Genre: "Literary Fiction", Publisher: "Vintage", Price: 22, StockQuantity: 2, PublishedYear: year(1987)},
	} {
		_, err := service.Create(t.Context(), in)
		require.NoError(t, err)
	}

	titles := func(t *testing.T, w *httptest.ResponseRecorder) []string {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var page models.Page[*models.Book]
		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		out := make([]string, 0, len(page.Content))
		for _, b := range page.Content {
			out = append(out, b.Title)
		}
		return out
	}

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{name: "genre ignores case", target: "/books/genre/science%20FICTION", want: []string{"Dune", "Neuromancer"}},
		{name: "author substring", target: "/books/author/gibson", want: []string{"Neuromancer"}},
		{name: "publisher", target: "/books/publisher/ace", want: []string{"Dune", "Neuromancer"}},
		{name: "price range is inclusive", target: "/books/price-range?minPrice=9.99&maxPrice=15.5", want: []string{"Dune", "Neuromancer"}},
		{name: "year range is inclusive", target: "/books/year-range?startYear=1984&endYear=1987", want: []string{"Beloved", "Neuromancer"}},
		{name: "paged", target: "/books/publisher/ace?page=1&size=1", want: []string{"Neuromancer"}},
		{name: "no match", target: "/books/genre/poetry", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titles(t, doRequest(router, http.MethodGet, tt.target, ""))
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	badRequests := []string{
		"/books/price-range?minPrice=5",
		"/books/price-range?minPrice=cheap&maxPrice=10",
		"/books/price-range?minPrice=20&maxPrice=5",
		"/books/year-range?startYear=1990",
		"/books/year-range?startYear=1990&endYear=1980",
	}
	for _, target := range badRequests {
		t.Run("rejects "+target, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}
