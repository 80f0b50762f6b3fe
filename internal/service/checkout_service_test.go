package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"brewpos/internal/cart"
	"brewpos/internal/checkout"
	"brewpos/internal/dto"
	"brewpos/internal/model"
	"brewpos/internal/repository"
	"brewpos/internal/vietqr"
	"brewpos/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutFixture struct {
	svc         CheckoutService
	sessions    *stubSessionStore
	products    *stubProductRepo
	ingredients *stubIngredientRepo
	invoices    *stubInvoiceRepo
	profiles    *stubProfileRepo
	settings    *stubSettingsRepo
	events      *stubPublisher
	receipts    *stubReceipts

	milk    *model.Ingredient
	coffee  *model.Ingredient
	latte   *model.Product
	profile *model.PaymentProfile
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		sessions:    newStubSessionStore(),
		products:    newStubProductRepo(),
		ingredients: newStubIngredientRepo(),
		invoices:    newStubInvoiceRepo(),
		profiles:    &stubProfileRepo{profiles: map[uuid.UUID]*model.PaymentProfile{}},
		settings:    &stubSettingsRepo{},
		events:      &stubPublisher{},
		receipts:    &stubReceipts{},
	}
	f.milk = f.ingredients.add("Milk", "ml", 500, 100, 30)
	f.coffee = f.ingredients.add("Coffee", "g", 1000, 100, 200)
	f.latte = f.products.put(model.Product{
		ID: uuid.New(), Name: "Latte", Category: "coffee", Kind: model.KindSimple, Active: true,
		Sizes:       []string{"S", "M"},
		PriceBySize: map[string]decimal.Decimal{"S": d(25000), "M": d(30000)},
		Recipe: []model.RecipeLine{
			{IngredientID: f.coffee.ID, IngredientName: "Coffee", Unit: "g", Quantity: d(18), UnitPrice: d(200)},
			{IngredientID: f.milk.ID, IngredientName: "Milk", Unit: "ml", Quantity: d(100), UnitPrice: d(30)},
		},
	})
	f.profile = &model.PaymentProfile{
		ID: uuid.New(), Name: "Main account", BankID: "970436", BankName: "VCB",
		AccountNumber: "0011001234567", AccountHolder: "BREW SHOP", Active: true,
	}
	f.profiles.profiles[f.profile.ID] = f.profile

	f.svc = NewCheckoutService(CheckoutDeps{
		Sessions:    f.sessions,
		Products:    f.products,
		Ingredients: f.ingredients,
		Invoices:    f.invoices,
		Profiles:    f.profiles,
		Settings:    f.settings,
		Events:      f.events,
		Receipts:    f.receipts,
		CallTimeout: time.Second,
	}, checkout.WithClock(func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }))
	return f
}

func (f *checkoutFixture) open(t *testing.T) uuid.UUID {
	t.Helper()
	s, err := f.svc.Open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(checkout.StateIdle), s.State)
	return uuid.MustParse(s.ID)
}

func (f *checkoutFixture) add(t *testing.T, id uuid.UUID, size string, times int) *dto.SessionResponse {
	t.Helper()
	var resp *dto.SessionResponse
	for i := 0; i < times; i++ {
		var err error
		resp, err = f.svc.AddItem(context.Background(), id, dto.AddItemRequest{ProductID: f.latte.ID.String(), Size: size})
		require.NoError(t, err)
	}
	return resp
}

func TestCheckoutCash_CompletesAndDebits(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)
	f.add(t, id, "S", 2)
	sess := f.add(t, id, "M", 1)

	assert.Equal(t, string(checkout.StateReviewing), sess.State)
	assert.True(t, d(80000).Equal(sess.Total))
	require.Len(t, sess.Items, 2)
	require.NotNil(t, sess.Items[0].MaxQuantity)
	assert.Equal(t, 4, *sess.Items[0].MaxQuantity, "5 producible minus 1 M")

	email := "guest@example.com"
	out, err := f.svc.SubmitCash(ctx, id, dto.SubmitCashRequest{CustomerEmail: &email})
	require.NoError(t, err)

	assert.Equal(t, string(checkout.StateCompleted), out.Session.State)
	assert.Empty(t, out.Session.Items)
	assert.Equal(t, "INV-20260301-093000-", out.Invoice.Number[:20])
	assert.Equal(t, "cash", out.Invoice.PaymentMethod)
	assert.Equal(t, model.ProfileNotApplicable, out.Invoice.PaymentProfileName)
	assert.Equal(t, 3, out.Invoice.TotalQuantity)

	assert.True(t, d(200).Equal(f.ingredients.stock(f.milk.ID)), "500 - 3×100")
	assert.True(t, d(946).Equal(f.ingredients.stock(f.coffee.ID)), "1000 - 3×18")
	assert.Len(t, f.invoices.saleRecords, 2)

	require.Len(t, f.receipts.jobs, 1)
	assert.Equal(t, out.Invoice.ID, f.receipts.jobs[0].InvoiceID)
	assert.Equal(t, email, *f.receipts.jobs[0].CustomerEmail)
	assert.Empty(t, f.receipts.jobs[0].TransferPayload)

	updates := f.events.ofType(ws.EventStockUpdate)
	require.Len(t, updates, 1)
	assert.Len(t, updates[0].Data.([]ws.StockLevel), 2)
}

func TestCheckoutAdd_InsufficientStock(t *testing.T) {
	f := newCheckoutFixture()
	id := f.open(t)
	f.add(t, id, "S", 5)

	_, err := f.svc.AddItem(context.Background(), id, dto.AddItemRequest{ProductID: f.latte.ID.String(), Size: "M"})

	var stockErr *cart.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Milk", stockErr.Ingredient)

	sess, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, sess.Items, 1)
	assert.Equal(t, 5, sess.Items[0].Quantity)
}

func TestCheckoutAdd_AllowNegative(t *testing.T) {
	f := newCheckoutFixture()
	f.settings.settings.AllowNegativeStock = true
	id := f.open(t)
	sess := f.add(t, id, "S", 7)

	assert.Nil(t, sess.Items[0].MaxQuantity)
	assert.False(t, sess.Items[0].HasStock)

	out, err := f.svc.SubmitCash(context.Background(), id, dto.SubmitCashRequest{})
	require.NoError(t, err)
	assert.True(t, out.Invoice.AllowNegativeStock)
	assert.True(t, d(-200).Equal(f.ingredients.stock(f.milk.ID)))
	assert.NotEmpty(t, f.events.ofType(ws.EventLowStock))
}

func TestCheckoutEdits(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)
	sess := f.add(t, id, "S", 1)
	key := sess.Items[0].Key

	sess, err := f.svc.SetQuantity(ctx, id, key, dto.SetQuantityRequest{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, sess.Items[0].Quantity)

	_, err = f.svc.SetQuantity(ctx, id, key, dto.SetQuantityRequest{Quantity: 6})
	var limit *cart.QuantityLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 5, limit.Max)

	_, err = f.svc.SetQuantity(ctx, id, "bogus", dto.SetQuantityRequest{Quantity: 1})
	assert.ErrorIs(t, err, cart.ErrInvalidKey)

	sess, err = f.svc.SetQuantity(ctx, id, key, dto.SetQuantityRequest{Quantity: -1})
	require.NoError(t, err)
	assert.Empty(t, sess.Items, "a negative quantity removes the line")
	sess = f.add(t, id, "S", 1)
	key = sess.Items[0].Key

	sess, err = f.svc.RemoveItem(ctx, id, key)
	require.NoError(t, err)
	assert.Equal(t, string(checkout.StateIdle), sess.State)

	_, err = f.svc.RemoveItem(ctx, id, key)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)

	f.add(t, id, "M", 2)
	sess, err = f.svc.Clear(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, sess.Items)

	_, err = f.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestCheckoutQR_Flow(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)
	f.add(t, id, "M", 2)

	sess, err := f.svc.SubmitQR(ctx, id, dto.SubmitQRRequest{PaymentProfileID: f.profile.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, string(checkout.StateAwaitingConfirmation), sess.State)
	require.NoError(t, vietqr.Verify(sess.Payload))
	fields, err := vietqr.Decode(sess.Payload)
	require.NoError(t, err)
	amount, _ := vietqr.Lookup(fields, vietqr.TagAmount)
	assert.Equal(t, "60000", amount)

	_, err = f.svc.AddItem(ctx, id, dto.AddItemRequest{ProductID: f.latte.ID.String(), Size: "S"})
	assert.ErrorIs(t, err, checkout.ErrPaymentPending)

	out, err := f.svc.ConfirmPaid(ctx, id, dto.ConfirmPaidRequest{})
	require.NoError(t, err)
	assert.Equal(t, "qr", out.Invoice.PaymentMethod)
	assert.Equal(t, "Main account", out.Invoice.PaymentProfileName)
	require.Len(t, f.receipts.jobs, 1)
	assert.Equal(t, sess.Payload, f.receipts.jobs[0].TransferPayload)
}

func TestCheckoutQR_Rejections(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)

	_, err := f.svc.SubmitQR(ctx, id, dto.SubmitQRRequest{PaymentProfileID: f.profile.ID.String()})
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)

	f.add(t, id, "S", 1)
	f.profile.Active = false
	_, err = f.svc.SubmitQR(ctx, id, dto.SubmitQRRequest{PaymentProfileID: f.profile.ID.String()})
	assert.ErrorIs(t, err, ErrProfileInactive)

	_, err = f.svc.ConfirmPaid(ctx, id, dto.ConfirmPaidRequest{})
	assert.ErrorIs(t, err, checkout.ErrInvalidState)
}

func TestCheckoutQR_CancelPayment(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)
	f.add(t, id, "S", 1)
	_, err := f.svc.SubmitQR(ctx, id, dto.SubmitQRRequest{PaymentProfileID: f.profile.ID.String()})
	require.NoError(t, err)

	sess, err := f.svc.CancelPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(checkout.StateReviewing), sess.State)
	assert.Empty(t, sess.Payload)
	assert.Len(t, sess.Items, 1)
}

func TestCheckout_FailureIsPersistedAndResumable(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)
	f.add(t, id, "S", 2)

	f.ingredients.failDebit = errStoreDown
	_, err := f.svc.SubmitCash(ctx, id, dto.SubmitCashRequest{})
	var stepErr *checkout.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, checkout.StepDebitIngredient, stepErr.Step)

	sess, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(checkout.StateFailed), sess.State)
	require.Len(t, sess.Items, 1)
	assert.Equal(t, 2, sess.Items[0].Quantity)
	assert.Positive(t, sess.PendingSteps)
	assert.Len(t, f.invoices.invoices, 1)

	_, err = f.svc.AddItem(ctx, id, dto.AddItemRequest{ProductID: f.latte.ID.String(), Size: "S"})
	assert.ErrorIs(t, err, checkout.ErrCheckoutInFlight)
	assert.ErrorIs(t, f.svc.Close(ctx, id), checkout.ErrCheckoutInFlight)

	f.ingredients.failDebit = nil
	out, err := f.svc.SubmitCash(ctx, id, dto.SubmitCashRequest{})
	require.NoError(t, err)
	assert.Len(t, f.invoices.invoices, 1, "resumed saga reuses the invoice")
	assert.Equal(t, out.Invoice.ID, *out.Session.LastInvoiceID)
	assert.True(t, d(300).Equal(f.ingredients.stock(f.milk.ID)))
	assert.NotEmpty(t, out.Invoice.ID)
}

func TestCheckout_AbandonCompensates(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)
	f.add(t, id, "S", 1)

	// first debit (coffee) succeeds, the second (milk) fails
	f.ingredients.ingredients[f.milk.ID].Stock = d(50)
	_, err := f.svc.SubmitCash(ctx, id, dto.SubmitCashRequest{})
	require.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.True(t, d(982).Equal(f.ingredients.stock(f.coffee.ID)))

	sess, err := f.svc.Abandon(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(checkout.StateReviewing), sess.State)
	assert.Len(t, sess.Items, 1)
	assert.True(t, d(1000).Equal(f.ingredients.stock(f.coffee.ID)))

	for _, inv := range f.invoices.invoices {
		assert.Equal(t, model.InvoiceCancelled, inv.Status)
		assert.Equal(t, checkout.AbandonReason, *inv.CancelReason)
	}
	assert.NotEmpty(t, f.events.ofType(ws.EventStockUpdate))
}

func TestCheckout_ReceiptQueueFailureDoesNotFailSale(t *testing.T) {
	f := newCheckoutFixture()
	f.receipts.err = errors.New("redis down")
	id := f.open(t)
	f.add(t, id, "S", 1)

	out, err := f.svc.SubmitCash(context.Background(), id, dto.SubmitCashRequest{})

	require.NoError(t, err)
	assert.Equal(t, "completed", out.Invoice.Status)
}

func TestCheckout_InactiveProductAndClose(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)
	f.products.products[f.latte.ID].Active = false

	_, err := f.svc.AddItem(ctx, id, dto.AddItemRequest{ProductID: f.latte.ID.String(), Size: "S"})
	assert.ErrorIs(t, err, ErrProductInactive)

	require.NoError(t, f.svc.Close(ctx, id))
	_, err = f.svc.Get(ctx, id)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestCheckout_SessionLocksAreReleased(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()
	id := f.open(t)
	svc := f.svc.(*checkoutService)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, id, dto.AddItemRequest{ProductID: f.latte.ID.String(), Size: "S"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, sess.Items, 1)
	assert.Equal(t, 5, sess.Items[0].Quantity, "concurrent adds are serialised")
	assert.Zero(t, svc.locks.len())

	// the session expired in the store
	delete(f.sessions.data, id)
	_, err = f.svc.AddItem(ctx, id, dto.AddItemRequest{ProductID: f.latte.ID.String(), Size: "S"})
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	_, err = f.svc.SubmitCash(ctx, uuid.New(), dto.SubmitCashRequest{})
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.Zero(t, svc.locks.len(), "no entry outlives its session")
}
