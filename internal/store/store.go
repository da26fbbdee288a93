package store

import (
	"context"
	"errors"
	"time"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	GetAllInvoices(ctx context.Context) ([]domain.Invoice, error)
	GetAllProducts(ctx context.Context) ([]domain.Product, error)
	GetAllDamagedItems(ctx context.Context) ([]domain.DamagedItem, error)
	GetAllExpenses(ctx context.Context) ([]domain.Expense, error)

	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// CreateSale stores the invoice and takes the sold quantities out of
	// stock in one step.
	CreateSale(ctx context.Context, invoice domain.Invoice, quantities map[int64]int) (*domain.Invoice, error)
	CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
	SoftDeleteInvoice(ctx context.Context, id int64) error
	CreateDamagedItem(ctx context.Context, item domain.DamagedItem) (*domain.DamagedItem, error)
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// Snapshot is a serialisable copy of every collection a report reads.
type Snapshot struct {
	Products     []domain.Product     `json:"products"`
	Invoices     []domain.Invoice     `json:"invoices"`
	DamagedItems []domain.DamagedItem `json:"damagedItems"`
	Expenses     []domain.Expense     `json:"expenses"`
	ExportedAt   time.Time            `json:"exportedAt"`
}
