package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewWithDB(db), mock
}

var invoiceColumns = []string{
	"id", "sale_date", "total", "products_data", "customer_name",
	"payment_method", "payment_status", "discount", "is_deleted",
}

func TestGetAllInvoicesKeepsUndatedRows(t *testing.T) {
	s, mock := newMockStore(t)
	saleDate := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM invoices")).
		WillReturnRows(sqlmock.NewRows(invoiceColumns).
			AddRow(int64(1), saleDate, 100.0, `[{"productId":1}]`, "Rana", "cash", "paid", 0.0, false).
			AddRow(int64(2), nil, 50.0, "", "", "", "", 0.0, true))

	invoices, err := s.GetAllInvoices(context.Background())
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	assert.Equal(t, saleDate, invoices[0].Date)
	assert.Equal(t, `[{"productId":1}]`, invoices[0].ProductsData)
	assert.Equal(t, "Rana", invoices[0].CustomerName)
	assert.True(t, invoices[1].Date.IsZero())
	assert.True(t, invoices[1].IsDeleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllInvoicesPropagatesQueryError(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("connection refused")
	mock.ExpectQuery(regexp.QuoteMeta("FROM invoices")).WillReturnError(boom)

	_, err := s.GetAllInvoices(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestGetAllDamagedItemsAndExpenses(t *testing.T) {
	s, mock := newMockStore(t)
	day := time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM damaged_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "quantity", "description", "damaged_at", "value_loss"}).
			AddRow(int64(4), int64(1), 2, "dropped", day, 7.5))
	mock.ExpectQuery(regexp.QuoteMeta("FROM expenses")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "spent_at", "amount", "details", "expense_type"}).
			AddRow(int64(9), day, 30.0, "electricity", "utilities"))

	damages, err := s.GetAllDamagedItems(context.Background())
	require.NoError(t, err)
	require.Len(t, damages, 1)
	assert.Equal(t, 7.5, damages[0].ValueLoss)
	assert.Equal(t, day, damages[0].Date)

	expenses, err := s.GetAllExpenses(context.Background())
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "utilities", expenses[0].ExpenseType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSaleRejectsInsufficientStock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs(int64(3), 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := s.CreateSale(context.Background(), domain.Invoice{Total: 10}, map[int64]int{3: 5})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSaleCommitsInvoice(t *testing.T) {
	s, mock := newMockStore(t)
	saleDate := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - $2")).
		WithArgs(int64(1), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO invoices")).
		WithArgs(sqlmock.AnyArg(), 100.0, sqlmock.AnyArg(), "", "cash", "paid", 0.0, false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	invoice, err := s.CreateSale(context.Background(), domain.Invoice{
		Date:          saleDate,
		Total:         100,
		ProductsData:  `[{"productId":1,"quantity":2}]`,
		PaymentMethod: "cash",
		PaymentStatus: "paid",
	}, map[int64]int{1: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(42), invoice.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteInvoiceMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE invoices SET is_deleted = true")).
		WithArgs(int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SoftDeleteInvoice(context.Background(), 77)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetInvoiceNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetInvoice(context.Background(), 5)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateProductMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.CreateProduct(context.Background(), domain.Product{Name: "Tea", Barcode: "899", SellingPrice: 5})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestCreateDamagedItemUnknownProduct(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO damaged_items")).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := s.CreateDamagedItem(context.Background(), domain.DamagedItem{ProductID: 404, Quantity: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
