// Package books implements the catalog inventory operations.
package books

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
	"github.com/upb/catalog-inventory/services"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

// DefaultLowStockThreshold is used when no threshold is given
const DefaultLowStockThreshold = 5

// Service handles book operations
type Service struct {
	books     repositories.BookRepository
	txManager repositories.TransactionManager
	logger    *zap.Logger
}

// NewService creates a new book Service
func NewService(books repositories.BookRepository, txManager repositories.TransactionManager, logger *zap.Logger) *Service {
	return &Service{
		books:     books,
		txManager: txManager,
		logger:    logger,
	}
}

// List returns a page of active books
func (s *Service) List(ctx context.Context, page models.PageRequest) (models.Page[*models.Book], error) {
	return s.search(ctx, models.BookSearch{}, page)
}

// Search returns a page of active books matching criteria
func (s *Service) Search(ctx context.Context, criteria models.BookSearch) (models.Page[*models.Book], error) {
	if err := utils.ValidateStruct(criteria); err != nil {
		return models.Page[*models.Book]{}, services.WrapError(services.ErrorTypeValidation, "invalid search criteria", err)
	}
	if criteria.MinPrice != nil && criteria.MaxPrice != nil && *criteria.MinPrice > *criteria.MaxPrice {
		return models.Page[*models.Book]{}, services.ErrInvalidPriceRange
	}
	if criteria.StartYear != nil && criteria.EndYear != nil && *criteria.StartYear > *criteria.EndYear {
		return models.Page[*models.Book]{}, services.ErrInvalidYearRange
	}
	criteria.Title = strings.TrimSpace(criteria.Title)
	criteria.Author = strings.TrimSpace(criteria.Author)
	criteria.Genre = strings.TrimSpace(criteria.Genre)
	criteria.Publisher = strings.TrimSpace(criteria.Publisher)

	return s.search(ctx, criteria, models.NewPageRequest(criteria.Page, criteria.Size))
}

// ListByGenre returns active books whose genre contains genre, ignoring case
func (s *Service) ListByGenre(ctx context.Context, genre string, page models.PageRequest) (models.Page[*models.Book], error) {
	return s.Search(ctx, models.BookSearch{Genre: genre, Page: page.Page, Size: page.Size})
}

// ListByAuthor returns active books whose author contains author, ignoring case
func (s *Service) ListByAuthor(ctx context.Context, author string, page models.PageRequest) (models.Page[*models.Book], error) {
	return s.Search(ctx, models.BookSearch{Author: author, Page: page.Page, Size: page.Size})
}

// ListByPublisher returns active books whose publisher contains publisher, ignoring case
func (s *Service) ListByPublisher(ctx context.Context, publisher string, page models.PageRequest) (models.Page[*models.Book], error) {
	return s.Search(ctx, models.BookSearch{Publisher: publisher, Page: page.Page, Size: page.Size})
}

// ListByPriceRange returns active books priced within [minPrice, maxPrice]
func (s *Service) ListByPriceRange(ctx context.Context, minPrice, maxPrice float64, page models.PageRequest) (models.Page[*models.Book], error) {
	return s.Search(ctx, models.BookSearch{MinPrice: &minPrice, MaxPrice: &maxPrice, Page: page.Page, Size: page.Size})
}

// ListByYearRange returns active books published within [startYear, endYear].
// Books without a published year never match.
func (s *Service) ListByYearRange(ctx context.Context, startYear, endYear int, page models.PageRequest) (models.Page[*models.Book], error) {
	return s.Search(ctx, models.BookSearch{StartYear: &startYear, EndYear: &endYear, Page: page.Page, Size: page.Size})
}

// ListInStock returns a page of active books with stock above zero
func (s *Service) ListInStock(ctx context.Context, page models.PageRequest) (models.Page[*models.Book], error) {
	inStock := true
	return s.search(ctx, models.BookSearch{InStock: &inStock}, page)
}

// ListOutOfStock returns a page of active books with no stock
func (s *Service) ListOutOfStock(ctx context.Context, page models.PageRequest) (models.Page[*models.Book], error) {
	inStock := false
	return s.search(ctx, models.BookSearch{InStock: &inStock}, page)
}

func (s *Service) search(ctx context.Context, criteria models.BookSearch, page models.PageRequest) (models.Page[*models.Book], error) {
	books, total, err := s.books.Search(ctx, criteria, page)
	if err != nil {
		return models.Page[*models.Book]{}, services.WrapInternal("failed to search books", err)
	}
	return models.NewPage(books, page, total), nil
}

// ListLowStock returns active books whose stock is at or below threshold.
// A negative threshold falls back to DefaultLowStockThreshold.
func (s *Service) ListLowStock(ctx context.Context, threshold int) ([]*models.Book, error) {
	if threshold < 0 {
		threshold = DefaultLowStockThreshold
	}
	books, err := s.books.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, services.WrapInternal("failed to list low stock books", err)
	}
	if books == nil {
		books = []*models.Book{}
	}
	return books, nil
}

// Statistics returns inventory aggregates
func (s *Service) Statistics(ctx context.Context) (*models.BookStatistics, error) {
	stats, err := s.books.Statistics(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to compute statistics", err)
	}
	return stats, nil
}

// GetByID returns an active book
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, mapBookError(err, "failed to load book")
	}
	if !book.IsActive {
		return nil, services.ErrBookNotFound
	}
	return book, nil
}

// GetByISBN returns the active book with isbn
func (s *Service) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	book, err := s.books.GetByISBN(ctx, strings.TrimSpace(isbn))
	if err != nil {
		return nil, mapBookError(err, "failed to load book")
	}
	return book, nil
}

// ISBNExists reports whether an active book already uses isbn
func (s *Service) ISBNExists(ctx context.Context, isbn string) (bool, error) {
	exists, err := s.books.ExistsByISBN(ctx, strings.TrimSpace(isbn))
	if err != nil {
		return false, services.WrapInternal("failed to check isbn", err)
	}
	return exists, nil
}

// Create validates and stores a new book
func (s *Service) Create(ctx context.Context, in models.BookInput) (*models.Book, error) {
	in = normalizeInput(in)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, services.WrapError(services.ErrorTypeValidation, "invalid book", err)
	}

	book := models.NewBook(in)
	if err := s.books.Create(ctx, book); err != nil {
		return nil, mapBookError(err, "failed to create book")
	}

	s.logger.Info("book created",
		zap.String("book_id", book.ID.String()),
		zap.String("isbn", book.ISBN))
	return book, nil
}

// Update replaces the fields of an active book
func (s *Service) Update(ctx context.Context, id uuid.UUID, in models.BookInput) (*models.Book, error) {
	in = normalizeInput(in)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, services.WrapError(services.ErrorTypeValidation, "invalid book", err)
	}

	return services.WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (*models.Book, error) {
		repo := s.books.WithTx(tx)

		book, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, mapBookError(err, "failed to load book")
		}
		if !book.IsActive {
			return nil, services.ErrBookNotFound
		}

		book.Apply(in)
		book.UpdatedAt = time.Now()
		if err := repo.Update(ctx, book); err != nil {
			return nil, mapBookError(err, "failed to update book")
		}
		return book, nil
	})
}

// Delete soft-deletes a book
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.books.SetActive(ctx, id, false); err != nil {
		return mapBookError(err, "failed to delete book")
	}
	s.logger.Info("book deleted", zap.String("book_id", id.String()))
	return nil
}

// Restore reactivates a soft-deleted book
func (s *Service) Restore(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	return services.WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (*models.Book, error) {
		repo := s.books.WithTx(tx)
		if err := repo.SetActive(ctx, id, true); err != nil {
			return nil, mapBookError(err, "failed to restore book")
		}
		book, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, mapBookError(err, "failed to load book")
		}
		return book, nil
	})
}

// UpdateStock sets the stock quantity of an active book
func (s *Service) UpdateStock(ctx context.Context, id uuid.UUID, quantity int) (*models.Book, error) {
	if quantity < 0 {
		return nil, services.ErrInvalidQuantity
	}

	return services.WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (*models.Book, error) {
		repo := s.books.WithTx(tx)

		book, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, mapBookError(err, "failed to load book")
		}
		if !book.IsActive {
			return nil, services.ErrBookNotFound
		}
		if err := repo.UpdateStock(ctx, id, quantity); err != nil {
			return nil, mapBookError(err, "failed to update stock")
		}
		book.StockQuantity = quantity
		return book, nil
	})
}

func normalizeInput(in models.BookInput) models.BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Author = strings.TrimSpace(in.Author)
	return in
}

func mapBookError(err error, message string) error {
	var domainErr *services.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return services.ErrBookNotFound
	case errors.Is(err, repositories.ErrDuplicate):
		return services.ErrDuplicateISBN
	default:
		return services.WrapInternal(message, err)
	}
}
