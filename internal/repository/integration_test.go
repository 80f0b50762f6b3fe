//go:build integration

// Integration tests against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/repository/... -v
package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"brewpos/internal/checkout"
	"brewpos/internal/dto"
	"brewpos/internal/infra"
	"brewpos/internal/model"
	"brewpos/internal/repository"
	"brewpos/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

type env struct {
	db  *gorm.DB
	rdb *redis.Client
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("brewpos_test"),
		tcPostgres.WithUsername("brewpos"),
		tcPostgres.WithPassword("brewpos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(rdURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return &env{db: db, rdb: rdb}
}

func TestIntegration_Repositories(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	movements := repository.NewStockMovementRepository(e.db)
	ingredients := repository.NewIngredientRepository(e.db, movements)
	products := repository.NewProductRepository(e.db)
	invoices := repository.NewInvoiceRepository(e.db)
	settings := repository.NewSettingsRepository(e.db)

	milk := &model.Ingredient{ID: uuid.New(), Name: "Milk", Unit: "ml", UnitPrice: decimal.NewFromInt(30),
		Stock: decimal.NewFromInt(100), MinStock: decimal.NewFromInt(20)}
	require.NoError(t, ingredients.Create(ctx, milk))

	t.Run("concurrent debits never oversell", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			ok, out int
		)
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := ingredients.DebitIngredient(ctx, milk.ID, decimal.NewFromInt(10), false,
					model.StockRef{Kind: model.MovementSale, Reason: "race"})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, repository.ErrInsufficientStock):
					out++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, ok)
		assert.Equal(t, 20, out)
		got, err := ingredients.FindByID(ctx, milk.ID)
		require.NoError(t, err)
		assert.True(t, got.Stock.IsZero(), "stock is %s", got.Stock)

		low, err := ingredients.BelowMinimum(ctx)
		require.NoError(t, err)
		require.Len(t, low, 1)

		rows, total, err := movements.List(ctx, repository.StockMovementFilter{IngredientID: &milk.ID, Page: 1, Limit: 100})
		require.NoError(t, err)
		assert.EqualValues(t, 10, total)
		require.NotNil(t, rows[0].Ingredient)
		assert.Equal(t, "Milk", rows[0].Ingredient.Name)
	})

	t.Run("allow negative and credit", func(t *testing.T) {
		require.NoError(t, ingredients.DebitIngredient(ctx, milk.ID, decimal.NewFromInt(5), true,
			model.StockRef{Kind: model.MovementStockOut}))
		require.NoError(t, ingredients.CreditIngredient(ctx, milk.ID, decimal.NewFromInt(50),
			model.StockRef{Kind: model.MovementStockIn}))
		snap, err := ingredients.StockSnapshot(ctx, []uuid.UUID{milk.ID})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(45).Equal(snap[milk.ID]))
	})

	t.Run("referenced movements apply once", func(t *testing.T) {
		invoiceID := uuid.New()
		sale := model.StockRef{Kind: model.MovementSale, Reason: "sale", ReferenceID: &invoiceID}
		rollback := model.StockRef{Kind: model.MovementCheckoutRollback, Reason: "abandoned", ReferenceID: &invoiceID}
		for i := 0; i < 2; i++ {
			require.NoError(t, ingredients.DebitIngredient(ctx, milk.ID, decimal.NewFromInt(5), false, sale))
		}
		snap, err := ingredients.StockSnapshot(ctx, []uuid.UUID{milk.ID})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(40).Equal(snap[milk.ID]), "repeated debit is a no-op")

		for i := 0; i < 2; i++ {
			require.NoError(t, ingredients.CreditIngredient(ctx, milk.ID, decimal.NewFromInt(5), rollback))
		}
		snap, err = ingredients.StockSnapshot(ctx, []uuid.UUID{milk.ID})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(45).Equal(snap[milk.ID]))

		_, total, err := movements.List(ctx, repository.StockMovementFilter{ReferenceID: &invoiceID, Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)

		other := uuid.New()
		err = ingredients.DebitIngredient(ctx, milk.ID, decimal.NewFromInt(1000), false,
			model.StockRef{Kind: model.MovementSale, ReferenceID: &other})
		assert.ErrorIs(t, err, repository.ErrInsufficientStock)
		assert.True(t, checkout.IsRejected(err))
	})

	t.Run("combos using a product", func(t *testing.T) {
		latte := &model.Product{ID: uuid.New(), Name: "Latte", Category: "coffee", Kind: model.KindSimple, Active: true,
			Sizes: []string{"M"}, PriceBySize: map[string]decimal.Decimal{"M": decimal.NewFromInt(30000)}}
		combo := &model.Product{ID: uuid.New(), Name: "Duo", Category: "combo", Kind: model.KindCombo, Active: true,
			Sizes: []string{"M"}, PriceBySize: map[string]decimal.Decimal{"M": decimal.NewFromInt(54000)},
			Components: []model.ComboComponent{{ProductID: latte.ID, ProductName: "Latte"}, {ProductID: latte.ID, ProductName: "Latte"}},
			DiscountPercent: decimal.NewFromInt(10)}
		require.NoError(t, products.Create(ctx, latte))
		require.NoError(t, products.Create(ctx, combo))

		combos, err := products.CombosUsing(ctx, latte.ID)
		require.NoError(t, err)
		require.Len(t, combos, 1)
		assert.Equal(t, combo.ID, combos[0].ID)

		require.NoError(t, products.SetActive(ctx, combo.ID, false))
		active, err := products.List(ctx, dto.ProductFilter{Kind: "combo"})
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("invoice lifecycle", func(t *testing.T) {
		id := uuid.New()
		inv := &model.Invoice{ID: id, Number: checkout.InvoiceNumber(id, time.Now()), TotalAmount: decimal.NewFromInt(30000),
			TotalQuantity: 1, PaymentMethod: model.PaymentCash, PaymentProfileName: model.ProfileNotApplicable,
			Status: model.InvoiceCompleted, CreatedAt: time.Now(),
			Lines: []model.InvoiceLine{{ProductID: uuid.New(), ProductName: "Latte", Size: "M", Quantity: 1,
				UnitPrice: decimal.NewFromInt(30000), LineTotal: decimal.NewFromInt(30000)}}}
		require.NoError(t, invoices.CreateInvoice(ctx, inv))
		again := *inv
		require.NoError(t, invoices.CreateInvoice(ctx, &again), "same id is accepted without a second row")
		rec := model.SaleRecord{ID: checkout.SaleRecordID(id, 0), InvoiceID: id, ProductID: inv.Lines[0].ProductID,
			ProductName: "Latte", Size: "M", Quantity: 1, UnitPrice: decimal.NewFromInt(30000),
			LineTotal: decimal.NewFromInt(30000), PaymentMethod: model.PaymentCash, Status: model.InvoiceCompleted, CreatedAt: time.Now()}
		for i := 0; i < 2; i++ {
			cp := rec
			require.NoError(t, invoices.CreateSaleRecord(ctx, &cp))
		}

		status := model.InvoiceCancelled
		reason := "test"
		require.NoError(t, invoices.UpdateInvoice(ctx, id, model.InvoicePatch{Status: &status, CancelReason: &reason}))
		require.NoError(t, invoices.CancelSaleRecords(ctx, id))

		got, err := invoices.FindByNumber(ctx, inv.Number)
		require.NoError(t, err)
		assert.Equal(t, model.InvoiceCancelled, got.Status)
		recs, err := invoices.SaleRecords(ctx, id)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, model.InvoiceCancelled, recs[0].Status)

		_, total, err := invoices.List(ctx, dto.InvoiceFilter{Status: "completed", Page: 1, Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, total)

		assert.ErrorIs(t, invoices.UpdateInvoice(ctx, uuid.New(), model.InvoicePatch{Status: &status}), gorm.ErrRecordNotFound)
	})

	t.Run("settings row exists", func(t *testing.T) {
		st, err := settings.Get(ctx)
		require.NoError(t, err)
		st.AllowNegativeStock = true
		require.NoError(t, settings.Save(ctx, st))
		st, err = settings.Get(ctx)
		require.NoError(t, err)
		assert.True(t, st.AllowNegativeStock)
	})
}

func TestIntegration_SessionStore(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	store := repository.NewSessionStore(e.rdb, time.Hour)

	sess := checkout.NewSession(uuid.New(), time.Now())
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateIdle, got.State)
	assert.True(t, got.Cart.Empty())

	ttl, err := e.rdb.TTL(ctx, "checkout:session:"+sess.ID.String()).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sess.ID), repository.ErrSessionNotFound)
}

func TestIntegration_WorkerPoolDeadLetters(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []string
	)
	pool := worker.NewPool(e.rdb, map[string]worker.Handler{
		worker.JobReceipt: worker.HandlerFunc(func(_ context.Context, raw json.RawMessage) error {
			var p worker.ReceiptJobPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return worker.Permanent(err)
			}
			mu.Lock()
			seen = append(seen, p.InvoiceID)
			mu.Unlock()
			if p.InvoiceID == "poison" {
				return worker.Permanent(errors.New("unknown invoice"))
			}
			return nil
		}),
	})
	pool.Start(ctx, 2)

	d := worker.NewDispatcher(e.rdb, infra.NewBreaker("job_queue", infra.BreakerConfig{}))
	require.NoError(t, d.EnqueueReceipt(ctx, worker.ReceiptJobPayload{InvoiceID: "ok"}))
	require.NoError(t, d.EnqueueReceipt(ctx, worker.ReceiptJobPayload{InvoiceID: "poison"}))

	dead := worker.NewDeadLetters(e.rdb)
	parked := func() bool {
		n, err := dead.Len(ctx, worker.QueueReceipt)
		return err == nil && n == 1
	}
	require.Eventually(t, parked, 20*time.Second, 100*time.Millisecond)

	entries, err := dead.List(ctx, "receipt", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Reason, "unknown invoice")
	assert.Equal(t, worker.JobReceipt, entries[0].Job.Type)
	assert.Equal(t, 1, entries[0].Job.Attempts)

	moved, err := dead.Requeue(ctx, worker.QueueReceipt, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	// the handler still refuses it, so it is parked again
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 20*time.Second, 100*time.Millisecond)
	require.Eventually(t, parked, 20*time.Second, 100*time.Millisecond)

	_, err = dead.List(ctx, "payroll", 10)
	assert.ErrorIs(t, err, worker.ErrUnknownQueue)

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"ok", "poison", "poison"}, seen)
}
