package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	products        map[int64]domain.Product
	invoices        map[int64]domain.Invoice
	damagedItems    map[int64]domain.DamagedItem
	expenses        map[int64]domain.Expense
	usersByUsername map[string]domain.UserAccount
	nextID          map[string]int64
}

func New() *Store {
	return &Store{
		products:        make(map[int64]domain.Product),
		invoices:        make(map[int64]domain.Invoice),
		damagedItems:    make(map[int64]domain.DamagedItem),
		expenses:        make(map[int64]domain.Expense),
		usersByUsername: make(map[string]domain.UserAccount),
		nextID:          make(map[string]int64),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD;
// when unset, dev defaults are used and a warning is logged.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn().Msg("memory store using default dev credentials, set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with a demo catalogue and the dev accounts.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	for _, p := range []domain.Product{
		{Name: "Mie Goreng Instan", SellingPrice: 3500, PurchasePrice: 2700, Stock: 120},
		{Name: "Telur 10 Butir", SellingPrice: 26500, PurchasePrice: 23000, Stock: 60},
		{Name: "Susu UHT 1L", SellingPrice: 18900, PurchasePrice: 13600, Stock: 48},
		{Name: "Roti Tawar", SellingPrice: 17800, PurchasePrice: 12500, Stock: 30},
		{Name: "Kopi Sachet", SellingPrice: 2600, PurchasePrice: 1700, Stock: 200},
		{Name: "Gula 1kg", SellingPrice: 17400, PurchasePrice: 15300, Stock: 80},
		{Name: "Teh Celup", SellingPrice: 9800, PurchasePrice: 7250, Stock: 90},
		{Name: "Air Mineral 600ml", SellingPrice: 3900, PurchasePrice: 3200, Stock: 240},
		{Name: "Keripik Singkong", SellingPrice: 12800, PurchasePrice: 8050, Stock: 40},
		{Name: "Sabun Mandi", SellingPrice: 7400, PurchasePrice: 5000, Stock: 70},
	} {
		p.ID = s.allocate("products")
		p.CreatedAt = now
		s.products[p.ID] = p
	}
	s.usersByUsername = seedUsers()
	return s
}

// NewFromSnapshot loads a store from a JSON snapshot, keeping record IDs.
func NewFromSnapshot(r io.Reader) (*Store, error) {
	var snap store.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	s := New()
	for _, p := range snap.Products {
		s.products[p.ID] = p
		s.bump("products", p.ID)
	}
	for _, inv := range snap.Invoices {
		s.invoices[inv.ID] = inv
		s.bump("invoices", inv.ID)
	}
	for _, d := range snap.DamagedItems {
		s.damagedItems[d.ID] = d
		s.bump("damaged_items", d.ID)
	}
	for _, e := range snap.Expenses {
		s.expenses[e.ID] = e
		s.bump("expenses", e.ID)
	}
	return s, nil
}

func (s *Store) Snapshot(_ context.Context) store.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Snapshot{
		Products:     sortedByID(s.products, func(p domain.Product) int64 { return p.ID }),
		Invoices:     sortedByID(s.invoices, func(inv domain.Invoice) int64 { return inv.ID }),
		DamagedItems: sortedByID(s.damagedItems, func(d domain.DamagedItem) int64 { return d.ID }),
		Expenses:     sortedByID(s.expenses, func(e domain.Expense) int64 { return e.ID }),
		ExportedAt:   time.Now().UTC(),
	}
}

func (s *Store) allocate(collection string) int64 {
	s.nextID[collection]++
	return s.nextID[collection]
}

func (s *Store) bump(collection string, id int64) {
	if id > s.nextID[collection] {
		s.nextID[collection] = id
	}
}

func sortedByID[T any](records map[int64]T, id func(T) int64) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b T) int {
		return cmp.Compare(id(a), id(b))
	})
	return out
}

func (s *Store) GetAllInvoices(_ context.Context) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.invoices, func(inv domain.Invoice) int64 { return inv.ID }), nil
}

func (s *Store) GetAllProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.products, func(p domain.Product) int64 { return p.ID }), nil
}

func (s *Store) GetAllDamagedItems(_ context.Context) ([]domain.DamagedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.damagedItems, func(d domain.DamagedItem) int64 { return d.ID }), nil
}

func (s *Store) GetAllExpenses(_ context.Context) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.expenses, func(e domain.Expense) int64 { return e.ID }), nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" || product.SellingPrice < 0 || product.PurchasePrice < 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.Barcode != "" {
		for _, existing := range s.products {
			if existing.Barcode == product.Barcode {
				return nil, store.ErrInvalidInput
			}
		}
	}

	product.ID = s.allocate("products")
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) CreateSale(_ context.Context, invoice domain.Invoice, quantities map[int64]int) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, qty := range quantities {
		p, ok := s.products[id]
		if !ok {
			return nil, store.ErrNotFound
		}
		if p.Stock < qty {
			return nil, store.ErrInsufficientStock
		}
	}
	for id, qty := range quantities {
		p := s.products[id]
		p.Stock -= qty
		s.products[id] = p
	}

	invoice.ID = s.allocate("invoices")
	s.invoices[invoice.ID] = invoice
	created := invoice
	return &created, nil
}

func (s *Store) CreateInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice.ID = s.allocate("invoices")
	s.invoices[invoice.ID] = invoice
	created := invoice
	return &created, nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, ok := s.invoices[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &invoice, nil
}

func (s *Store) SoftDeleteInvoice(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	invoice, ok := s.invoices[id]
	if !ok {
		return store.ErrNotFound
	}
	invoice.IsDeleted = true
	s.invoices[id] = invoice
	return nil
}

func (s *Store) CreateDamagedItem(_ context.Context, item domain.DamagedItem) (*domain.DamagedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[item.ProductID]; !ok {
		return nil, store.ErrNotFound
	}
	item.ID = s.allocate("damaged_items")
	s.damagedItems[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense.ID = s.allocate("expenses")
	s.expenses[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
