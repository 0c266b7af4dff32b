package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
	"go.uber.org/zap"
)

var bookRowColumns = []string{
	"id", "title", "isbn", "author", "genre", "publisher", "description", "price",
	"stock_quantity", "published_year", "language", "page_count", "is_active", "created_at", "updated_at",
}

func bookRow(rows *sqlmock.Rows, id uuid.UUID, title string, stock int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, title, "978-0000000000", "Author", "Fiction", "Pub", "", 12.5,
		stock, 2001, "en", nil, true, now, now)
}

func TestBuildBookFilter(t *testing.T) {
	minPrice := 10.0
	inStock := true
	where, args := buildBookFilter(models.BookSearch{
		Title:    "go",
		MinPrice: &minPrice,
		InStock:  &inStock,
	})

	assert.Equal(t, "is_active = true AND title ILIKE $1 AND price >= $2 AND stock_quantity > 0", where)
	assert.Equal(t, []interface{}{"%go%", 10.0}, args)

	outOfStock := false
	where, args = buildBookFilter(models.BookSearch{InStock: &outOfStock})
	assert.Equal(t, "is_active = true AND stock_quantity = 0", where)
	assert.Empty(t, args)
}

func TestBookRepository_Search(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewBookRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books WHERE is_active = true AND author ILIKE \$1`).
		WithArgs("%hunt%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT (.+) FROM books WHERE is_active = true AND author ILIKE \$1 ORDER BY title ASC, id ASC LIMIT \$2 OFFSET \$3`).
		WithArgs("%hunt%", 2, 2).
		WillReturnRows(bookRow(sqlmock.NewRows(bookRowColumns), uuid.New(), "Pragmatic", 4))

	books, total, err := repo.Search(ctx, models.BookSearch{Author: "hunt"}, models.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, books, 1)
	assert.Equal(t, "Pragmatic", books[0].Title)
	require.NotNil(t, books[0].PublishedYear)
	assert.Equal(t, 2001, *books[0].PublishedYear)
	assert.Nil(t, books[0].PageCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewBookRepository(db, zap.NewNop())
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM books WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(bookRow(sqlmock.NewRows(bookRowColumns), id, "Dune", 0))

	book, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, book.ID)
	assert.False(t, book.InStock())

	mock.ExpectQuery(`SELECT (.+) FROM books WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestBookRepository_CreateDuplicateISBN(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewBookRepository(db, zap.NewNop())

	mock.ExpectExec(`INSERT INTO books`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "books_isbn_key"})

	err := repo.Create(ctx, models.NewBook(models.BookInput{Title: "T", ISBN: "978-0000000000", Author: "A"}))
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
}

func TestBookRepository_StockAndActive(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewBookRepository(db, zap.NewNop())
	id := uuid.New()

	mock.ExpectExec(`UPDATE books SET stock_quantity`).
		WithArgs(id, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStock(ctx, id, 7))

	mock.ExpectExec(`UPDATE books SET is_active`).
		WithArgs(id, false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetActive(ctx, id, false), repositories.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookRepository_Statistics(t *testing.T) {
	ctx := context.Background()
	db, mock := newMockDB(t)
	repo := NewBookRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "in_stock", "avg", "value"}).AddRow(10, 7, 20.5, 812.0))

	stats, err := repo.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalBooks)
	assert.Equal(t, int64(3), stats.BooksOutOfStock)
	assert.Equal(t, 812.0, stats.TotalInventoryValue)
}
