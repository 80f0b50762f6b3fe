package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"brewpos/internal/availability"
	"brewpos/internal/cart"
	"brewpos/internal/checkout"
	"brewpos/internal/dto"
	"brewpos/internal/model"
	"brewpos/internal/repository"
	"brewpos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CheckoutService runs checkout sessions. Each call loads the session from
// the session store, applies one transition and saves it back.
type CheckoutService interface {
	Open(ctx context.Context) (*dto.SessionResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	Close(ctx context.Context, id uuid.UUID) error

	AddItem(ctx context.Context, id uuid.UUID, req dto.AddItemRequest) (*dto.SessionResponse, error)
	SetQuantity(ctx context.Context, id uuid.UUID, key string, req dto.SetQuantityRequest) (*dto.SessionResponse, error)
	RemoveItem(ctx context.Context, id uuid.UUID, key string) (*dto.SessionResponse, error)
	Clear(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)

	SubmitCash(ctx context.Context, id uuid.UUID, req dto.SubmitCashRequest) (*dto.CheckoutResponse, error)
	SubmitQR(ctx context.Context, id uuid.UUID, req dto.SubmitQRRequest) (*dto.SessionResponse, error)
	ConfirmPaid(ctx context.Context, id uuid.UUID, req dto.ConfirmPaidRequest) (*dto.CheckoutResponse, error)
	CancelPayment(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
	Abandon(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error)
}

// CheckoutDeps groups the collaborators of the checkout service.
// Events and Receipts are optional.
type CheckoutDeps struct {
	Sessions    repository.SessionStore
	Products    repository.ProductRepository
	Ingredients repository.IngredientRepository
	Invoices    repository.InvoiceRepository
	Profiles    repository.PaymentProfileRepository
	Settings    repository.SettingsRepository
	Events      EventPublisher
	Receipts    ReceiptQueue
	CallTimeout time.Duration
}

type checkoutService struct {
	CheckoutDeps
	engine *checkout.Orchestrator
	now    func() time.Time

	locks sessionLocks
}

func NewCheckoutService(deps CheckoutDeps, opts ...checkout.Option) CheckoutService {
	return &checkoutService{
		CheckoutDeps: deps,
		engine:       checkout.NewOrchestrator(deps.Invoices, deps.Ingredients, deps.CallTimeout, opts...),
		now:          time.Now,
	}
}

func (s *checkoutService) lock(id uuid.UUID) func() { return s.locks.acquire(id) }

// sessionLocks runs one transition at a time per session. An entry lives only
// while some call holds or waits for it, so sessions that expire in Redis
// leave nothing behind.
type sessionLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func (l *sessionLocks) acquire(id uuid.UUID) func() {
	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[uuid.UUID]*sessionLock)
	}
	e := l.held[id]
	if e == nil {
		e = &sessionLock{}
		l.held[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		l.mu.Lock()
		if e.refs--; e.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// mutate loads the session, applies fn and saves the result whether or not
// fn failed: a failed checkout keeps its saga progress for a retry.
func (s *checkoutService) mutate(ctx context.Context, id uuid.UUID, fn func(sess *checkout.Session) error) (*checkout.Session, error) {
	defer s.lock(id)()

	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fnErr := fn(sess)
	sess.UpdatedAt = s.now()
	if err := s.Sessions.Save(ctx, sess); err != nil {
		log.Error().Err(err).Str("session", id.String()).Str("state", string(sess.State)).Msg("checkout: session save failed")
		if fnErr == nil {
			return nil, err
		}
	}
	return sess, fnErr
}

// ── Session lifecycle ─────────────────────────────────────────────────────────

func (s *checkoutService) Open(ctx context.Context) (*dto.SessionResponse, error) {
	sess := checkout.NewSession(uuid.New(), s.now())
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	resp := sessionToResponse(sess)
	return &resp, nil
}

func (s *checkoutService) Get(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := sessionToResponse(sess)
	return &resp, nil
}

// Close discards a session. Sessions with applied checkout steps must be
// completed or abandoned first.
func (s *checkoutService) Close(ctx context.Context, id uuid.UUID) error {
	defer s.lock(id)()
	sess, err := s.Sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Saga.Progressed() {
		return checkout.ErrCheckoutInFlight
	}
	return s.Sessions.Delete(ctx, id)
}

// ── Cart edits ────────────────────────────────────────────────────────────────

func (s *checkoutService) AddItem(ctx context.Context, id uuid.UUID, req dto.AddItemRequest) (*dto.SessionResponse, error) {
	pid, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, err
	}
	allowNegative, err := s.allowNegative(ctx)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, id, func(sess *checkout.Session) error {
		p, err := s.Products.FindByID(ctx, pid)
		if err != nil {
			return err
		}
		if !p.Active {
			return ErrProductInactive
		}
		snapshot, err := s.Ingredients.StockSnapshot(ctx, availability.IngredientIDs(cart.RecipeOf(p)))
		if err != nil {
			return err
		}
		_, err = sess.Cart.Add(p, req.Size, snapshot, allowNegative)
		return err
	})
}

func (s *checkoutService) SetQuantity(ctx context.Context, id uuid.UUID, key string, req dto.SetQuantityRequest) (*dto.SessionResponse, error) {
	k, err := cart.ParseKey(key)
	if err != nil {
		return nil, err
	}
	allowNegative, err := s.allowNegative(ctx)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, id, func(sess *checkout.Session) error {
		return sess.Cart.SetQuantity(k, req.Quantity, allowNegative)
	})
}

func (s *checkoutService) RemoveItem(ctx context.Context, id uuid.UUID, key string) (*dto.SessionResponse, error) {
	k, err := cart.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return s.edit(ctx, id, func(sess *checkout.Session) error {
		if !sess.Cart.Remove(k) {
			return cart.ErrLineNotFound
		}
		return nil
	})
}

func (s *checkoutService) Clear(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	return s.edit(ctx, id, func(sess *checkout.Session) error {
		sess.Cart.Clear()
		return nil
	})
}

// edit applies a cart change to an editable session and re-derives its state.
func (s *checkoutService) edit(ctx context.Context, id uuid.UUID, fn func(sess *checkout.Session) error) (*dto.SessionResponse, error) {
	sess, err := s.mutate(ctx, id, func(sess *checkout.Session) error {
		if err := sess.Editable(); err != nil {
			return err
		}
		if sess.Cart == nil {
			sess.Cart = cart.New()
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.Touch()
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := sessionToResponse(sess)
	return &resp, nil
}

// ── Payment ───────────────────────────────────────────────────────────────────

func (s *checkoutService) SubmitCash(ctx context.Context, id uuid.UUID, req dto.SubmitCashRequest) (*dto.CheckoutResponse, error) {
	opts, err := s.options(ctx, req.CustomerEmail)
	if err != nil {
		return nil, err
	}
	var inv *model.Invoice
	sess, err := s.mutate(ctx, id, func(sess *checkout.Session) error {
		var err error
		inv, err = s.engine.SubmitCash(ctx, sess, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.completed(ctx, inv, "")
	return &dto.CheckoutResponse{Session: sessionToResponse(sess), Invoice: invoiceToResponse(inv)}, nil
}

func (s *checkoutService) SubmitQR(ctx context.Context, id uuid.UUID, req dto.SubmitQRRequest) (*dto.SessionResponse, error) {
	pid, err := uuid.Parse(req.PaymentProfileID)
	if err != nil {
		return nil, checkout.ErrNoPaymentProfile
	}
	profile, err := s.Profiles.FindByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	if !profile.Active {
		return nil, ErrProfileInactive
	}
	sess, err := s.mutate(ctx, id, func(sess *checkout.Session) error {
		_, err := s.engine.SubmitQR(sess, profile)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("session", id.String()).Str("profile", profile.Name).Msg("checkout: awaiting QR payment")
	resp := sessionToResponse(sess)
	return &resp, nil
}

func (s *checkoutService) ConfirmPaid(ctx context.Context, id uuid.UUID, req dto.ConfirmPaidRequest) (*dto.CheckoutResponse, error) {
	opts, err := s.options(ctx, req.CustomerEmail)
	if err != nil {
		return nil, err
	}
	var (
		inv     *model.Invoice
		payload string
	)
	sess, err := s.mutate(ctx, id, func(sess *checkout.Session) error {
		payload = sess.Payload
		var err error
		inv, err = s.engine.ConfirmPaid(ctx, sess, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.completed(ctx, inv, payload)
	return &dto.CheckoutResponse{Session: sessionToResponse(sess), Invoice: invoiceToResponse(inv)}, nil
}

func (s *checkoutService) CancelPayment(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.mutate(ctx, id, func(sess *checkout.Session) error {
		return s.engine.CancelPayment(sess)
	})
	if err != nil {
		return nil, err
	}
	resp := sessionToResponse(sess)
	return &resp, nil
}

func (s *checkoutService) Abandon(ctx context.Context, id uuid.UUID) (*dto.SessionResponse, error) {
	var restored []uuid.UUID
	sess, err := s.mutate(ctx, id, func(sess *checkout.Session) error {
		if sess.Saga.Progressed() {
			for _, st := range sess.Saga.Steps {
				if st.Kind == checkout.StepDebitIngredient && st.Done {
					restored = append(restored, st.IngredientID)
				}
			}
		}
		return s.engine.Abandon(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	s.publishStock(ctx, restored)
	resp := sessionToResponse(sess)
	return &resp, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *checkoutService) allowNegative(ctx context.Context) (bool, error) {
	st, err := s.Settings.Get(ctx)
	if err != nil {
		return false, err
	}
	return st.AllowNegativeStock, nil
}

func (s *checkoutService) options(ctx context.Context, email *string) (checkout.Options, error) {
	allowNegative, err := s.allowNegative(ctx)
	if err != nil {
		return checkout.Options{}, err
	}
	opts := checkout.Options{AllowNegativeStock: allowNegative}
	if email != nil {
		opts.CustomerEmail = *email
	}
	return opts, nil
}

// completed runs the after-sale side effects. Failures are logged only: the
// sale itself is already durable.
func (s *checkoutService) completed(ctx context.Context, inv *model.Invoice, transferPayload string) {
	log.Info().
		Str("invoice", inv.Number).
		Str("method", string(inv.PaymentMethod)).
		Str("total", inv.TotalAmount.String()).
		Bool("allow_negative", inv.AllowNegativeStock).
		Msg("checkout: sale completed")

	ids := make([]uuid.UUID, 0, len(inv.Consumption))
	for _, u := range inv.Usage() {
		ids = append(ids, u.IngredientID)
	}
	s.publishStock(ctx, ids)

	if s.Receipts == nil {
		return
	}
	job := worker.ReceiptJobPayload{InvoiceID: inv.ID.String(), CustomerEmail: inv.CustomerEmail}
	if inv.PaymentMethod == model.PaymentQR {
		job.TransferPayload = transferPayload
	}
	if err := s.Receipts.EnqueueReceipt(ctx, job); err != nil {
		log.Error().Err(err).Str("invoice", inv.Number).Msg("checkout: failed to enqueue receipt")
	}
}

func (s *checkoutService) publishStock(ctx context.Context, ids []uuid.UUID) {
	if s.Events == nil || len(ids) == 0 {
		return
	}
	items, err := s.Ingredients.FindByIDs(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("checkout: stock levels not published")
		return
	}
	publishLevels(s.Events, items)
}

// IsCheckoutConflict reports whether err is a state conflict of a session.
func IsCheckoutConflict(err error) bool {
	return errors.Is(err, checkout.ErrPaymentPending) ||
		errors.Is(err, checkout.ErrCheckoutInFlight) ||
		errors.Is(err, checkout.ErrAbandonPending) ||
		errors.Is(err, checkout.ErrInvalidState) ||
		errors.Is(err, checkout.ErrAlreadyCancelled)
}
