package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
	"go.uber.org/zap"
)

// BookRepository implements the repositories.BookRepository interface
type BookRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *DB, logger *zap.Logger) repositories.BookRepository {
	return &BookRepository{
		db:     db,
		logger: logger,
	}
}

const bookColumns = `id, title, isbn, author, genre, publisher, description, price,
	stock_quantity, published_year, language, page_count, is_active, created_at, updated_at`

func scanBook(row rowScanner) (*models.Book, error) {
	book := &models.Book{}
	var publishedYear, pageCount sql.NullInt64

	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.ISBN,
		&book.Author,
		&book.Genre,
		&book.Publisher,
		&book.Description,
		&book.Price,
		&book.StockQuantity,
		&publishedYear,
		&book.Language,
		&pageCount,
		&book.IsActive,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if publishedYear.Valid {
		v := int(publishedYear.Int64)
		book.PublishedYear = &v
	}
	if pageCount.Valid {
		v := int(pageCount.Int64)
		book.PageCount = &v
	}

	return book, nil
}

// Create creates a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.ISBN,
		book.Author,
		book.Genre,
		book.Publisher,
		book.Description,
		book.Price,
		book.StockQuantity,
		book.PublishedYear,
		book.Language,
		book.PageCount,
		book.IsActive,
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("isbn %s: %w", book.ISBN, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create book: %w", err)
	}

	r.logger.Debug("book created", zap.String("id", book.ID.String()), zap.String("isbn", book.ISBN))
	return nil
}

// GetByID retrieves a book by ID regardless of its active flag
func (r *BookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	book, err := scanBook(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return book, nil
}

// GetByISBN retrieves an active book by ISBN
func (r *BookRepository) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1 AND is_active = true`

	executor := GetExecutor(ctx, r.db)
	book, err := scanBook(executor.QueryRowContext(ctx, query, isbn))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book isbn %s: %w", isbn, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return book, nil
}

// ExistsByISBN reports whether an active book has the ISBN
func (r *BookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM books WHERE isbn = $1 AND is_active = true)`

	var exists bool
	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, query, isbn).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check isbn: %w", err)
	}
	return exists, nil
}

// buildBookFilter turns search criteria into a WHERE clause and its arguments.
// Text criteria are case-insensitive substring matches.
func buildBookFilter(c models.BookSearch) (string, []interface{}) {
	conds := []string{"is_active = true"}
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if c.Title != "" {
		add("title ILIKE $%d", "%"+c.Title+"%")
	}
	if c.Author != "" {
		add("author ILIKE $%d", "%"+c.Author+"%")
	}
	if c.Genre != "" {
		add("genre ILIKE $%d", "%"+c.Genre+"%")
	}
	if c.Publisher != "" {
		add("publisher ILIKE $%d", "%"+c.Publisher+"%")
	}
	if c.MinPrice != nil {
		add("price >= $%d", *c.MinPrice)
	}
	if c.MaxPrice != nil {
		add("price <= $%d", *c.MaxPrice)
	}
	if c.StartYear != nil {
		add("published_year >= $%d", *c.StartYear)
	}
	if c.EndYear != nil {
		add("published_year <= $%d", *c.EndYear)
	}
	if c.InStock != nil {
		if *c.InStock {
			conds = append(conds, "stock_quantity > 0")
		} else {
			conds = append(conds, "stock_quantity = 0")
		}
	}

	return strings.Join(conds, " AND "), args
}

// Search retrieves a page of active books matching the criteria
func (r *BookRepository) Search(ctx context.Context, criteria models.BookSearch, page models.PageRequest) ([]*models.Book, int64, error) {
	where, args := buildBookFilter(criteria)
	executor := GetExecutor(ctx, r.db)

	var total int64
	countQuery := `SELECT COUNT(*) FROM books WHERE ` + where
	if err := executor.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM books WHERE %s ORDER BY title ASC, id ASC LIMIT $%d OFFSET $%d`,
		bookColumns, where, n+1, n+2)
	args = append(args, page.Size, page.Offset())

	books, err := r.queryBooks(ctx, executor, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

// ListLowStock retrieves active books with stock at or below threshold
func (r *BookRepository) ListLowStock(ctx context.Context, threshold int) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + `
		FROM books
		WHERE stock_quantity <= $1 AND is_active = true
		ORDER BY stock_quantity ASC, title ASC`

	return r.queryBooks(ctx, GetExecutor(ctx, r.db), query, threshold)
}

// Statistics computes inventory aggregates over active books
func (r *BookRepository) Statistics(ctx context.Context) (*models.BookStatistics, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE stock_quantity > 0),
		       COALESCE(AVG(price), 0),
		       COALESCE(SUM(price * stock_quantity), 0)
		FROM books
		WHERE is_active = true
	`

	stats := &models.BookStatistics{}
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query).Scan(
		&stats.TotalBooks,
		&stats.BooksInStock,
		&stats.AveragePrice,
		&stats.TotalInventoryValue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute book statistics: %w", err)
	}

	stats.BooksOutOfStock = stats.TotalBooks - stats.BooksInStock
	return stats, nil
}

// Update updates a book
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	query := `
		UPDATE books
		SET title = $2, isbn = $3, author = $4, genre = $5, publisher = $6,
		    description = $7, price = $8, stock_quantity = $9, published_year = $10,
		    language = $11, page_count = $12, updated_at = $13
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.ISBN,
		book.Author,
		book.Genre,
		book.Publisher,
		book.Description,
		book.Price,
		book.StockQuantity,
		book.PublishedYear,
		book.Language,
		book.PageCount,
		book.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("isbn %s: %w", book.ISBN, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to update book: %w", err)
	}

	return requireRowsAffected(result, "book", book.ID.String())
}

// SetActive soft-deletes or restores a book
func (r *BookRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE books SET is_active = $2, updated_at = NOW() WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	return requireRowsAffected(result, "book", id.String())
}

// UpdateStock sets the stock quantity of an active book
func (r *BookRepository) UpdateStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `UPDATE books SET stock_quantity = $2, updated_at = NOW() WHERE id = $1 AND is_active = true`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}

	return requireRowsAffected(result, "book", id.String())
}

func (r *BookRepository) queryBooks(ctx context.Context, executor Executor, query string, args ...interface{}) ([]*models.Book, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []*models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *BookRepository) WithTx(tx repositories.Transaction) repositories.BookRepository {
	return &BookRepository{
		db:     r.db,
		logger: r.logger,
	}
}
