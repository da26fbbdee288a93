package postgres

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an already opened handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetAllInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_date, total, COALESCE(products_data, ''), customer_name,
			payment_method, payment_status, discount, is_deleted
		FROM invoices
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 256)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (domain.Invoice, error) {
	var (
		inv  domain.Invoice
		date sql.NullTime
	)
	err := row.Scan(&inv.ID, &date, &inv.Total, &inv.ProductsData, &inv.CustomerName,
		&inv.PaymentMethod, &inv.PaymentStatus, &inv.Discount, &inv.IsDeleted)
	if err != nil {
		return domain.Invoice{}, err
	}
	if date.Valid {
		inv.Date = date.Time.UTC()
	}
	return inv, nil
}

func (s *Store) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(barcode, ''), selling_price, purchase_price, stock, created_at
		FROM products
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &p.SellingPrice, &p.PurchasePrice, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetAllDamagedItems(ctx context.Context) ([]domain.DamagedItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, description, damaged_at, value_loss
		FROM damaged_items
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.DamagedItem, 0, 32)
	for rows.Next() {
		var (
			d    domain.DamagedItem
			date sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.ProductID, &d.Quantity, &d.Description, &date, &d.ValueLoss); err != nil {
			return nil, err
		}
		if date.Valid {
			d.Date = date.Time.UTC()
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetAllExpenses(ctx context.Context) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, spent_at, amount, details, expense_type
		FROM expenses
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var (
			e    domain.Expense
			date sql.NullTime
		)
		if err := rows.Scan(&e.ID, &date, &e.Amount, &e.Details, &e.ExpenseType); err != nil {
			return nil, err
		}
		if date.Valid {
			e.Date = date.Time.UTC()
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(barcode, ''), selling_price, purchase_price, stock, created_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &p.SellingPrice, &p.PurchasePrice, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" || product.SellingPrice < 0 || product.PurchasePrice < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, barcode, selling_price, purchase_price, stock, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, now())
		RETURNING id, created_at
	`, product.Name, product.Barcode, product.SellingPrice, product.PurchasePrice, product.Stock).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

func (s *Store) CreateSale(ctx context.Context, invoice domain.Invoice, quantities map[int64]int) (*domain.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]int64, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
		`, id, quantities[id])
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
				return nil, err
			}
			if !exists {
				return nil, store.ErrNotFound
			}
			return nil, store.ErrInsufficientStock
		}
	}

	if err := insertInvoice(ctx, tx, &invoice); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Store) CreateInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if err := insertInvoice(ctx, s.db, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertInvoice(ctx context.Context, q queryRower, invoice *domain.Invoice) error {
	var date sql.NullTime
	if !invoice.Date.IsZero() {
		date = sql.NullTime{Time: invoice.Date, Valid: true}
	}
	var productsData sql.NullString
	if invoice.ProductsData != "" {
		productsData = sql.NullString{String: invoice.ProductsData, Valid: true}
	}

	return q.QueryRowContext(ctx, `
		INSERT INTO invoices (sale_date, total, products_data, customer_name, payment_method, payment_status, discount, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, date, invoice.Total, productsData, invoice.CustomerName, invoice.PaymentMethod,
		invoice.PaymentStatus, invoice.Discount, invoice.IsDeleted).Scan(&invoice.ID)
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `
		SELECT id, sale_date, total, COALESCE(products_data, ''), customer_name,
			payment_method, payment_status, discount, is_deleted
		FROM invoices
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Store) SoftDeleteInvoice(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE invoices SET is_deleted = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateDamagedItem(ctx context.Context, item domain.DamagedItem) (*domain.DamagedItem, error) {
	var date sql.NullTime
	if !item.Date.IsZero() {
		date = sql.NullTime{Time: item.Date, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO damaged_items (product_id, quantity, description, damaged_at, value_loss)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, item.ProductID, item.Quantity, item.Description, date, item.ValueLoss).Scan(&item.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	var date sql.NullTime
	if !expense.Date.IsZero() {
		date = sql.NullTime{Time: expense.Date, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO expenses (spent_at, amount, details, expense_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, date, expense.Amount, expense.Details, expense.ExpenseType).Scan(&expense.ID)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
