package repository

import (
	"context"
	"time"

	"brewpos/internal/dto"
	"brewpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceRepository is the invoice and sale record store.
type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, inv *model.Invoice) error
	UpdateInvoice(ctx context.Context, id uuid.UUID, patch model.InvoicePatch) error
	CreateSaleRecord(ctx context.Context, rec *model.SaleRecord) error
	CancelSaleRecords(ctx context.Context, invoiceID uuid.UUID) error

	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByNumber(ctx context.Context, number string) (*model.Invoice, error)
	List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error)
	SaleRecords(ctx context.Context, invoiceID uuid.UUID) ([]model.SaleRecord, error)

	DB() *gorm.DB
}

var onIDConflict = clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

// CreateInvoice inserts inv; an existing row with the same id is left as is.
func (r *invoiceRepo) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Clauses(onIDConflict).Create(inv).Error
}

func (r *invoiceRepo) UpdateInvoice(ctx context.Context, id uuid.UUID, patch model.InvoicePatch) error {
	updates := map[string]interface{}{}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.CancelledAt != nil {
		updates["cancelled_at"] = *patch.CancelledAt
	}
	if patch.CancelReason != nil {
		updates["cancel_reason"] = *patch.CancelReason
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invoiceRepo) CreateSaleRecord(ctx context.Context, rec *model.SaleRecord) error {
	return r.db.WithContext(ctx).Clauses(onIDConflict).Create(rec).Error
}

func (r *invoiceRepo) CancelSaleRecords(ctx context.Context, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.SaleRecord{}).
		Where("invoice_id = ?", invoiceID).
		Update("status", model.InvoiceCancelled).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	return &inv, err
}

func (r *invoiceRepo) FindByNumber(ctx context.Context, number string) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Where("number = ?", number).First(&inv).Error
	return &inv, err
}

func (r *invoiceRepo) List(ctx context.Context, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Invoice{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Method != "" {
		q = q.Where("payment_method = ?", filter.Method)
	}
	if filter.Date != "" {
		day, err := time.Parse("2006-01-02", filter.Date)
		if err != nil {
			return nil, 0, err
		}
		q = q.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	var invoices []model.Invoice
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&invoices).Error
	return invoices, total, err
}

func (r *invoiceRepo) SaleRecords(ctx context.Context, invoiceID uuid.UUID) ([]model.SaleRecord, error) {
	var recs []model.SaleRecord
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("created_at ASC").Find(&recs).Error
	return recs, err
}
