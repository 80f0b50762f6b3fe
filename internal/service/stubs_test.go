package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"brewpos/internal/availability"
	"brewpos/internal/checkout"
	"brewpos/internal/dto"
	"brewpos/internal/model"
	"brewpos/internal/repository"
	"brewpos/internal/worker"
	"brewpos/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Products ──────────────────────────────────────────────────────────────────

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) put(p model.Product) *model.Product {
	cp := p
	r.products[p.ID] = &cp
	return &cp
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.put(*p)
	return nil
}
func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error { r.put(*p); return nil }
func (r *stubProductRepo) UpdateTx(_ *gorm.DB, p *model.Product) error       { r.put(*p); return nil }
func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}
func (r *stubProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}
func (r *stubProductRepo) List(_ context.Context, f dto.ProductFilter) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		if f.Active != "all" && !p.Active {
			continue
		}
		if f.Kind != "" && string(p.Kind) != f.Kind {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}
func (r *stubProductRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Active = active
	return nil
}
func (r *stubProductRepo) CombosUsing(_ context.Context, id uuid.UUID) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		for _, c := range p.Components {
			if c.ProductID == id {
				out = append(out, *p)
				break
			}
		}
	}
	return out, nil
}
func (r *stubProductRepo) DB() *gorm.DB { return nil }

// ── Ingredients ───────────────────────────────────────────────────────────────

type stubIngredientRepo struct {
	mu          sync.Mutex
	ingredients map[uuid.UUID]*model.Ingredient
	movements   []model.StockMovement
	failDebit   error
}

func newStubIngredientRepo() *stubIngredientRepo {
	return &stubIngredientRepo{ingredients: make(map[uuid.UUID]*model.Ingredient)}
}

func (r *stubIngredientRepo) add(name, unit string, stock, minStock, unitPrice int64) *model.Ingredient {
	ing := &model.Ingredient{
		ID: uuid.New(), Name: name, Unit: unit,
		Stock: decimal.NewFromInt(stock), MinStock: decimal.NewFromInt(minStock), UnitPrice: decimal.NewFromInt(unitPrice),
	}
	r.ingredients[ing.ID] = ing
	return ing
}

func (r *stubIngredientRepo) stock(id uuid.UUID) decimal.Decimal { return r.ingredients[id].Stock }

func (r *stubIngredientRepo) Create(_ context.Context, ing *model.Ingredient) error {
	cp := *ing
	r.ingredients[ing.ID] = &cp
	return nil
}
func (r *stubIngredientRepo) Update(_ context.Context, ing *model.Ingredient) error {
	cp := *ing
	r.ingredients[ing.ID] = &cp
	return nil
}
func (r *stubIngredientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Ingredient, error) {
	ing, ok := r.ingredients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *ing
	return &cp, nil
}
func (r *stubIngredientRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Ingredient, error) {
	var out []model.Ingredient
	for _, id := range ids {
		if ing, ok := r.ingredients[id]; ok {
			out = append(out, *ing)
		}
	}
	return out, nil
}
func (r *stubIngredientRepo) List(_ context.Context) ([]model.Ingredient, error) {
	var out []model.Ingredient
	for _, ing := range r.ingredients {
		out = append(out, *ing)
	}
	return out, nil
}
func (r *stubIngredientRepo) BelowMinimum(_ context.Context) ([]model.Ingredient, error) {
	var out []model.Ingredient
	for _, ing := range r.ingredients {
		if ing.BelowMinimum() {
			out = append(out, *ing)
		}
	}
	return out, nil
}
func (r *stubIngredientRepo) StockSnapshot(_ context.Context, ids []uuid.UUID) (availability.Snapshot, error) {
	snap := availability.Snapshot{}
	for _, id := range ids {
		if ing, ok := r.ingredients[id]; ok {
			snap[id] = ing.Stock
		}
	}
	return snap, nil
}
func (r *stubIngredientRepo) DebitIngredient(_ context.Context, id uuid.UUID, qty decimal.Decimal, allowNegative bool, ref model.StockRef) error {
	if r.failDebit != nil {
		return r.failDebit
	}
	return r.adjust(id, qty.Neg(), allowNegative, ref)
}
func (r *stubIngredientRepo) CreditIngredient(_ context.Context, id uuid.UUID, qty decimal.Decimal, ref model.StockRef) error {
	return r.adjust(id, qty, true, ref)
}
func (r *stubIngredientRepo) adjust(id uuid.UUID, delta decimal.Decimal, allowNegative bool, ref model.StockRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ing, ok := r.ingredients[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if ref.ReferenceID != nil {
		for _, m := range r.movements {
			if m.ReferenceID != nil && *m.ReferenceID == *ref.ReferenceID && m.IngredientID == id && m.Kind == ref.Kind {
				return nil
			}
		}
	}
	after := ing.Stock.Add(delta)
	if after.IsNegative() && !allowNegative {
		return checkout.Rejected(repository.ErrInsufficientStock)
	}
	r.movements = append(r.movements, model.StockMovement{
		ID: uuid.New(), IngredientID: id, Kind: ref.Kind, Quantity: delta,
		StockBefore: ing.Stock, StockAfter: after, Reason: ref.Reason, ReferenceID: ref.ReferenceID,
	})
	ing.Stock = after
	return nil
}
func (r *stubIngredientRepo) DB() *gorm.DB { return nil }

type stubMovementRepo struct{ ingredients *stubIngredientRepo }

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.ingredients.movements = append(r.ingredients.movements, *m)
	return nil
}
func (r *stubMovementRepo) List(_ context.Context, f repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, m := range r.ingredients.movements {
		if f.IngredientID != nil && m.IngredientID != *f.IngredientID {
			continue
		}
		if f.Kind != "" && m.Kind != f.Kind {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

// ── Invoices ──────────────────────────────────────────────────────────────────

type stubInvoiceRepo struct {
	invoices    map[uuid.UUID]*model.Invoice
	saleRecords []model.SaleRecord
	failCreate  error
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}
}

func (r *stubInvoiceRepo) CreateInvoice(_ context.Context, inv *model.Invoice) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	if _, ok := r.invoices[inv.ID]; ok {
		return nil
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}
func (r *stubInvoiceRepo) UpdateInvoice(_ context.Context, id uuid.UUID, p model.InvoicePatch) error {
	inv, ok := r.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.Status != nil {
		inv.Status = *p.Status
	}
	if p.CancelledAt != nil {
		inv.CancelledAt = p.CancelledAt
	}
	if p.CancelReason != nil {
		inv.CancelReason = p.CancelReason
	}
	return nil
}
func (r *stubInvoiceRepo) CreateSaleRecord(_ context.Context, rec *model.SaleRecord) error {
	for _, existing := range r.saleRecords {
		if existing.ID == rec.ID {
			return nil
		}
	}
	r.saleRecords = append(r.saleRecords, *rec)
	return nil
}
func (r *stubInvoiceRepo) CancelSaleRecords(_ context.Context, id uuid.UUID) error {
	for i := range r.saleRecords {
		if r.saleRecords[i].InvoiceID == id {
			r.saleRecords[i].Status = model.InvoiceCancelled
		}
	}
	return nil
}
func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inv
	return &cp, nil
}
func (r *stubInvoiceRepo) FindByNumber(_ context.Context, number string) (*model.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.Number == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (r *stubInvoiceRepo) List(_ context.Context, f dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var out []model.Invoice
	for _, inv := range r.invoices {
		if f.Status != "" && f.Status != "all" && string(inv.Status) != f.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}
func (r *stubInvoiceRepo) SaleRecords(_ context.Context, id uuid.UUID) ([]model.SaleRecord, error) {
	var out []model.SaleRecord
	for _, rec := range r.saleRecords {
		if rec.InvoiceID == id {
			out = append(out, rec)
		}
	}
	return out, nil
}
func (r *stubInvoiceRepo) DB() *gorm.DB { return nil }

// ── Profiles, settings, sessions ──────────────────────────────────────────────

type stubProfileRepo struct{ profiles map[uuid.UUID]*model.PaymentProfile }

func (r *stubProfileRepo) Create(_ context.Context, p *model.PaymentProfile) error {
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}
func (r *stubProfileRepo) Update(_ context.Context, p *model.PaymentProfile) error {
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}
func (r *stubProfileRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PaymentProfile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}
func (r *stubProfileRepo) List(_ context.Context, includeInactive bool) ([]model.PaymentProfile, error) {
	var out []model.PaymentProfile
	for _, p := range r.profiles {
		if p.Active || includeInactive {
			out = append(out, *p)
		}
	}
	return out, nil
}

type stubSettingsRepo struct{ settings model.ShopSettings }

func (r *stubSettingsRepo) Get(context.Context) (*model.ShopSettings, error) {
	cp := r.settings
	return &cp, nil
}
func (r *stubSettingsRepo) Save(_ context.Context, s *model.ShopSettings) error {
	r.settings = *s
	return nil
}

// stubSessionStore round-trips through JSON like the Redis store does.
type stubSessionStore struct {
	mu   sync.Mutex
	data map[uuid.UUID][]byte
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{data: make(map[uuid.UUID][]byte)}
}

func (s *stubSessionStore) Get(_ context.Context, id uuid.UUID) (*checkout.Session, error) {
	s.mu.Lock()
	raw, ok := s.data[id]
	s.mu.Unlock()
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	var sess checkout.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
func (s *stubSessionStore) Save(_ context.Context, sess *checkout.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = raw
	return nil
}
func (s *stubSessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.data, id)
	return nil
}

// ── Side effects ──────────────────────────────────────────────────────────────

type stubPublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (p *stubPublisher) Publish(e ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *stubPublisher) ofType(t string) []ws.Event {
	var out []ws.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type stubReceipts struct {
	jobs []worker.ReceiptJobPayload
	err  error
}

func (q *stubReceipts) EnqueueReceipt(_ context.Context, p worker.ReceiptJobPayload) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, p)
	return nil
}

var errStoreDown = errors.New("store unavailable")

// compile-time interface checks
var (
	_ repository.ProductRepository        = (*stubProductRepo)(nil)
	_ repository.IngredientRepository     = (*stubIngredientRepo)(nil)
	_ repository.StockMovementRepository  = (*stubMovementRepo)(nil)
	_ repository.InvoiceRepository        = (*stubInvoiceRepo)(nil)
	_ repository.PaymentProfileRepository = (*stubProfileRepo)(nil)
	_ repository.SettingsRepository       = (*stubSettingsRepo)(nil)
	_ repository.SessionStore             = (*stubSessionStore)(nil)
	_ EventPublisher                      = (*stubPublisher)(nil)
	_ ReceiptQueue                        = (*stubReceipts)(nil)
	_ EventPublisher                      = (*ws.Hub)(nil)
	_ ReceiptQueue                        = (*worker.Dispatcher)(nil)
)
