package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
)

// BookRepository implements repositories.BookRepository in memory
type BookRepository struct {
	store *Store
}

func copyBook(b *models.Book) *models.Book {
	c := *b
	return &c
}

func (r *BookRepository) isbnTaken(isbn string, except uuid.UUID) bool {
	for _, b := range r.store.books {
		if b.ISBN == isbn && b.ID != except {
			return true
		}
	}
	return false
}

// Create creates a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.isbnTaken(book.ISBN, book.ID) {
		return fmt.Errorf("isbn %s: %w", book.ISBN, repositories.ErrDuplicate)
	}
	r.store.books[book.ID] = copyBook(book)
	return nil
}

// GetByID retrieves a book regardless of its active flag
func (r *BookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	b, ok := r.store.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, repositories.ErrNotFound)
	}
	return copyBook(b), nil
}

// GetByISBN retrieves an active book by ISBN
func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, b := range r.store.books {
		if b.IsActive && b.ISBN == isbn {
			return copyBook(b), nil
		}
	}
	return nil, fmt.Errorf("book isbn %s: %w", isbn, repositories.ErrNotFound)
}

// ExistsByISBN reports whether an active book has the ISBN
func (r *BookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	_, err := r.GetByISBN(ctx, isbn)
	return err == nil, nil
}

// Search retrieves a page of active books matching the criteria
func (r *BookRepository) Search(ctx context.Context, criteria models.BookSearch, page models.PageRequest) ([]*models.Book, int64, error) {
	matches := r.filter(func(b *models.Book) bool { return matchesSearch(b, criteria) })
	total := int64(len(matches))
	return paginate(matches, page.Size, page.Offset()), total, nil
}

// ListLowStock retrieves active books with stock at or below threshold
func (r *BookRepository) ListLowStock(ctx context.Context, threshold int) ([]*models.Book, error) {
	books := r.filter(func(b *models.Book) bool { return b.StockQuantity <= threshold })
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].StockQuantity < books[j].StockQuantity
	})
	return books, nil
}

// Statistics computes inventory aggregates over active books
func (r *BookRepository) Statistics(ctx context.Context) (*models.BookStatistics, error) {
	stats := &models.BookStatistics{}
	var priceSum float64
	for _, b := range r.filter(func(*models.Book) bool { return true }) {
		stats.TotalBooks++
		if b.InStock() {
			stats.BooksInStock++
		} else {
			stats.BooksOutOfStock++
		}
		priceSum += b.Price
		stats.TotalInventoryValue += b.Price * float64(b.StockQuantity)
	}
	if stats.TotalBooks > 0 {
		stats.AveragePrice = priceSum / float64(stats.TotalBooks)
	}
	return stats, nil
}

// Update updates a book
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.books[book.ID]; !ok {
		return fmt.Errorf("book %s: %w", book.ID, repositories.ErrNotFound)
	}
	if r.isbnTaken(book.ISBN, book.ID) {
		return fmt.Errorf("isbn %s: %w", book.ISBN, repositories.ErrDuplicate)
	}
	r.store.books[book.ID] = copyBook(book)
	return nil
}

// SetActive soft-deletes or restores a book
func (r *BookRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.update(id, func(b *models.Book) { b.IsActive = active })
}

// UpdateStock sets the stock quantity of a book
func (r *BookRepository) UpdateStock(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.update(id, func(b *models.Book) { b.StockQuantity = quantity })
}

// WithTx returns the repository itself
func (r *BookRepository) WithTx(tx repositories.Transaction) repositories.BookRepository {
	return r
}

func (r *BookRepository) update(id uuid.UUID, fn func(b *models.Book)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	b, ok := r.store.books[id]
	if !ok {
		return fmt.Errorf("book %s: %w", id, repositories.ErrNotFound)
	}
	fn(b)
	b.UpdatedAt = time.Now()
	return nil
}

// filter returns copies of the active books accepted by keep, ordered by title then id
func (r *BookRepository) filter(keep func(b *models.Book) bool) []*models.Book {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	books := []*models.Book{}
	for _, b := range r.store.books {
		if b.IsActive && keep(b) {
			books = append(books, copyBook(b))
		}
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID.String() < books[j].ID.String()
	})
	return books
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchesSearch(b *models.Book, c models.BookSearch) bool {
	if c.Title != "" && !containsFold(b.Title, c.Title) {
		return false
	}
	if c.Author != "" && !containsFold(b.Author, c.Author) {
		return false
	}
	if c.Genre != "" && !containsFold(b.Genre, c.Genre) {
		return false
	}
	if c.Publisher != "" && !containsFold(b.Publisher, c.Publisher) {
		return false
	}
	if c.MinPrice != nil && b.Price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && b.Price > *c.MaxPrice {
		return false
	}
	if c.StartYear != nil && (b.PublishedYear == nil || *b.PublishedYear < *c.StartYear) {
		return false
	}
	if c.EndYear != nil && (b.PublishedYear == nil || *b.PublishedYear > *c.EndYear) {
		return false
	}
	if c.InStock != nil && b.InStock() != *c.InStock {
		return false
	}
	return true
}
