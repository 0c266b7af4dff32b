package models

import (
	"time"

	"github.com/google/uuid"
)

// Book represents a catalog entry with its stock level
type Book struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	ISBN          string    `json:"isbn" db:"isbn"`
	Author        string    `json:"author" db:"author"`
	Genre         string    `json:"genre,omitempty" db:"genre"`
	Publisher     string    `json:"publisher,omitempty" db:"publisher"`
	Description   string    `json:"description,omitempty" db:"description"`
	Price         float64   `json:"price" db:"price"`
	StockQuantity int       `json:"stockQuantity" db:"stock_quantity"`
	PublishedYear *int      `json:"publishedYear,omitempty" db:"published_year"`
	Language      string    `json:"language,omitempty" db:"language"`
	PageCount     *int      `json:"pageCount,omitempty" db:"page_count"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName returns the table name for the Book model
func (Book) TableName() string {
	return "books"
}

// BookInput is the create/update payload for a book
type BookInput struct {
	Title         string  `json:"title" validate:"required,max=255"`
	ISBN          string  `json:"isbn" validate:"required,min=10,max=17"`
	Author        string  `json:"author" validate:"required,max=255"`
	Genre         string  `json:"genre" validate:"max=100"`
	Publisher     string  `json:"publisher" validate:"max=255"`
	Description   string  `json:"description" validate:"max=2000"`
	Price         float64 `json:"price" validate:"gte=0"`
	StockQuantity int     `json:"stockQuantity" validate:"gte=0"`
	PublishedYear *int    `json:"publishedYear" validate:"omitempty,gte=1000,lte=9999"`
	Language      string  `json:"language" validate:"max=50"`
	PageCount     *int    `json:"pageCount" validate:"omitempty,gt=0"`
}

// NewBook creates a new active Book from an input payload
func NewBook(in BookInput) *Book {
	now := time.Now()
	b := &Book{
		ID:        uuid.New(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Apply(in)
	return b
}

// Apply copies the input fields onto the book
func (b *Book) Apply(in BookInput) {
	b.Title = in.Title
	b.ISBN = in.ISBN
	b.Author = in.Author
	b.Genre = in.Genre
	b.Publisher = in.Publisher
	b.Description = in.Description
	b.Price = in.Price
	b.StockQuantity = in.StockQuantity
	b.PublishedYear = in.PublishedYear
	b.Language = in.Language
	b.PageCount = in.PageCount
}

// InStock returns true if at least one copy is available
func (b *Book) InStock() bool {
	return b.StockQuantity > 0
}

// BookSearch holds optional search criteria. Nil/empty fields do not filter.
type BookSearch struct {
	Title     string   `json:"title" validate:"max=255"`
	Author    string   `json:"author" validate:"max=255"`
	Genre     string   `json:"genre" validate:"max=100"`
	Publisher string   `json:"publisher" validate:"max=255"`
	MinPrice  *float64 `json:"minPrice" validate:"omitempty,gte=0"`
	MaxPrice  *float64 `json:"maxPrice" validate:"omitempty,gte=0"`
	StartYear *int     `json:"startYear"`
	EndYear   *int     `json:"endYear"`
	InStock   *bool    `json:"inStock"`
	Page      int      `json:"page" validate:"gte=0"`
	Size      int      `json:"size" validate:"gte=0,lte=100"`
}

// PageRequest is a zero-based page request
type PageRequest struct {
	Page int
	Size int
}

// DefaultPageSize is used when a request does not specify a size
const DefaultPageSize = 20

// MaxPageSize caps the page size a client can request
const MaxPageSize = 100

// NewPageRequest normalizes page and size
func NewPageRequest(page, size int) PageRequest {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return PageRequest{Page: page, Size: size}
}

// Offset returns the SQL offset for the page
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is a page of results
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// NewPage builds a page from its content and the total element count
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         req.Page == 0,
		Last:          req.Page >= totalPages-1,
	}
}

// BookStatistics summarizes the active inventory
type BookStatistics struct {
	TotalBooks          int64   `json:"totalBooks"`
	BooksInStock        int64   `json:"booksInStock"`
	BooksOutOfStock     int64   `json:"booksOutOfStock"`
	AveragePrice        float64 `json:"averagePrice"`
	TotalInventoryValue float64 `json:"totalInventoryValue"`
}
