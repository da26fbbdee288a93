package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/report"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store"
)

var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// CatalogInvalidator drops cached catalogue copies after product writes.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	repo     store.Repository
	reports  *report.Generator
	catalog  CatalogInvalidator
	location *time.Location
	now      func() time.Time
}

func New(repo store.Repository, reports *report.Generator, catalog CatalogInvalidator, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:     repo,
		reports:  reports,
		catalog:  catalog,
		location: location,
		now:      time.Now,
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.GetAllProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Barcode = strings.TrimSpace(req.Barcode)
	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrInvalidInput)
	}
	if req.SellingPrice < 0 || req.PurchasePrice < 0 || req.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: prices and stock must not be negative", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:          req.Name,
		Barcode:       req.Barcode,
		SellingPrice:  req.SellingPrice,
		PurchasePrice: req.PurchasePrice,
		Stock:         req.Stock,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	return *created, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.Invalidate(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to invalidate catalog cache")
	}
}

// saleLine is the stored shape of one sold line. It carries the cost and
// profit known at sale time so reports never have to guess for new sales.
type saleLine struct {
	ProductID     int64   `json:"productId"`
	ProductName   string  `json:"productName"`
	Quantity      int     `json:"quantity"`
	SellingPrice  float64 `json:"sellingPrice"`
	PurchasePrice float64 `json:"purchasePrice"`
	Discount      float64 `json:"discount,omitempty"`
	Total         float64 `json:"total"`
	Profit        float64 `json:"profit"`
}

var paymentMethods = []string{domain.PaymentCash, domain.PaymentCard, domain.PaymentTransfer, domain.PaymentCredit}

func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.Invoice, error) {
	if len(req.Items) == 0 {
		return domain.Invoice{}, fmt.Errorf("%w: a sale needs at least one item", store.ErrInvalidInput)
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = domain.PaymentCash
	}
	if !slices.Contains(paymentMethods, method) {
		return domain.Invoice{}, fmt.Errorf("%w: unknown payment method %q", store.ErrInvalidInput, req.PaymentMethod)
	}
	date, err := s.parseRecordDate(req.Date)
	if err != nil {
		return domain.Invoice{}, err
	}

	ids := make([]int64, 0, len(req.Items))
	quantities := make(map[int64]int, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID < 1 || item.Quantity < 1 || item.Discount < 0 {
			return domain.Invoice{}, fmt.Errorf("%w: invalid sale line for product %d", store.ErrInvalidInput, item.ProductID)
		}
		if _, seen := quantities[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.Invoice{}, err
	}

	lines := make([]saleLine, 0, len(req.Items))
	var total, discount float64
	for _, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return domain.Invoice{}, fmt.Errorf("product %d: %w", item.ProductID, store.ErrNotFound)
		}
		gross := product.SellingPrice * float64(item.Quantity)
		if item.Discount > gross {
			return domain.Invoice{}, fmt.Errorf("%w: discount exceeds line total for product %d", store.ErrInvalidInput, item.ProductID)
		}
		lineTotal := gross - item.Discount
		lines = append(lines, saleLine{
			ProductID:     product.ID,
			ProductName:   product.Name,
			Quantity:      item.Quantity,
			SellingPrice:  product.SellingPrice,
			PurchasePrice: product.PurchasePrice,
			Discount:      item.Discount,
			Total:         lineTotal,
			Profit:        lineTotal - product.PurchasePrice*float64(item.Quantity),
		})
		total += lineTotal
		discount += item.Discount
	}

	payload, err := json.Marshal(lines)
	if err != nil {
		return domain.Invoice{}, err
	}

	status := domain.PaymentStatusPaid
	if method == domain.PaymentCredit {
		status = domain.PaymentStatusUnpaid
	}

	created, err := s.repo.CreateSale(ctx, domain.Invoice{
		Date:          date,
		Total:         total,
		ProductsData:  string(payload),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		PaymentMethod: method,
		PaymentStatus: status,
		Discount:      discount,
	}, quantities)
	if err != nil {
		return domain.Invoice{}, err
	}

	s.invalidateCatalog(ctx)
	zerolog.Ctx(ctx).Info().
		Int64("invoice_id", created.ID).
		Float64("total", created.Total).
		Int("lines", len(lines)).
		Msg("sale recorded")
	return *created, nil
}

// ImportInvoice stores a historical invoice as-is. Its productsData is not
// validated, so legacy payloads reach the report's fallback rules intact.
func (s *Service) ImportInvoice(ctx context.Context, req domain.InvoiceImportRequest) (domain.Invoice, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Invoice{}, err
	}
	date, err := s.parseRecordDate(req.Date)
	if err != nil {
		return domain.Invoice{}, err
	}
	if req.Total < 0 {
		return domain.Invoice{}, fmt.Errorf("%w: total must not be negative", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateInvoice(ctx, domain.Invoice{
		Date:          date,
		Total:         req.Total,
		ProductsData:  req.ProductsData,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		PaymentStatus: strings.TrimSpace(req.PaymentStatus),
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	return *created, nil
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *invoice, nil
}

// ListInvoices returns invoices newest first, leaving out deleted ones
// unless asked for.
func (s *Service) ListInvoices(ctx context.Context, includeDeleted bool, limit int) ([]domain.Invoice, error) {
	all, err := s.repo.GetAllInvoices(ctx)
	if err != nil {
		return nil, err
	}
	invoices := make([]domain.Invoice, 0, len(all))
	for _, inv := range all {
		if inv.IsDeleted && !includeDeleted {
			continue
		}
		invoices = append(invoices, inv)
	}
	slices.SortStableFunc(invoices, func(a, b domain.Invoice) int {
		return b.Date.Compare(a.Date)
	})
	if limit > 0 && len(invoices) > limit {
		invoices = invoices[:limit]
	}
	return invoices, nil
}

func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.SoftDeleteInvoice(ctx, id); err != nil {
		return err
	}
	actor, _ := ActorFromContext(ctx)
	zerolog.Ctx(ctx).Info().Int64("invoice_id", id).Str("actor", actor.Username).Msg("invoice deleted")
	return nil
}

func (s *Service) RecordDamage(ctx context.Context, req domain.DamageRequest) (domain.DamagedItem, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.DamagedItem{}, err
	}
	if req.ProductID < 1 || req.Quantity < 1 {
		return domain.DamagedItem{}, fmt.Errorf("%w: product and a positive quantity are required", store.ErrInvalidInput)
	}
	if req.ValueLoss != nil && *req.ValueLoss < 0 {
		return domain.DamagedItem{}, fmt.Errorf("%w: value loss must not be negative", store.ErrInvalidInput)
	}
	date, err := s.parseRecordDate(req.Date)
	if err != nil {
		return domain.DamagedItem{}, err
	}

	valueLoss := 0.0
	if req.ValueLoss != nil {
		valueLoss = *req.ValueLoss
	} else {
		products, err := s.repo.GetProductsByIDs(ctx, []int64{req.ProductID})
		if err != nil {
			return domain.DamagedItem{}, err
		}
		product, ok := products[req.ProductID]
		if !ok {
			return domain.DamagedItem{}, fmt.Errorf("product %d: %w", req.ProductID, store.ErrNotFound)
		}
		valueLoss = product.PurchasePrice * float64(req.Quantity)
	}

	created, err := s.repo.CreateDamagedItem(ctx, domain.DamagedItem{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Description: strings.TrimSpace(req.Description),
		Date:        date,
		ValueLoss:   valueLoss,
	})
	if err != nil {
		return domain.DamagedItem{}, err
	}
	return *created, nil
}

func (s *Service) ListDamagedItems(ctx context.Context) ([]domain.DamagedItem, error) {
	return s.repo.GetAllDamagedItems(ctx)
}

func (s *Service) RecordExpense(ctx context.Context, req domain.ExpenseRequest) (domain.Expense, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Expense{}, err
	}
	if req.Amount <= 0 {
		return domain.Expense{}, fmt.Errorf("%w: amount must be positive", store.ErrInvalidInput)
	}
	date, err := s.parseRecordDate(req.Date)
	if err != nil {
		return domain.Expense{}, err
	}
	expenseType := strings.ToLower(strings.TrimSpace(req.ExpenseType))
	if expenseType == "" {
		expenseType = "general"
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		Date:        date,
		Amount:      req.Amount,
		Details:     strings.TrimSpace(req.Details),
		ExpenseType: expenseType,
	})
	if err != nil {
		return domain.Expense{}, err
	}
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	return s.repo.GetAllExpenses(ctx)
}

var recordDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseRecordDate reads a client supplied timestamp in the report time
// zone. An empty value means now.
func (s *Service) parseRecordDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return s.now().UTC(), nil
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.ParseInLocation(layout, value, s.location); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unreadable date %q", store.ErrInvalidInput, value)
}
