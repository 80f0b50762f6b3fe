package service

import (
	"context"

	"brewpos/internal/dto"
	"brewpos/internal/infra"
	"brewpos/internal/model"
	"brewpos/internal/repository"

	"github.com/google/uuid"
)

// PaymentService manages the bank accounts QR transfers are paid into.
type PaymentService interface {
	ListProfiles(ctx context.Context, includeInactive bool) ([]dto.PaymentProfileResponse, error)
	CreateProfile(ctx context.Context, req dto.CreatePaymentProfileRequest) (*dto.PaymentProfileResponse, error)
	DeactivateProfile(ctx context.Context, id uuid.UUID) error
	// SessionQR renders the pending transfer payload of a checkout session.
	SessionQR(ctx context.Context, sessionID uuid.UUID, size int) ([]byte, error)
}

type paymentService struct {
	profiles repository.PaymentProfileRepository
	sessions repository.SessionStore
}

func NewPaymentService(profiles repository.PaymentProfileRepository, sessions repository.SessionStore) PaymentService {
	return &paymentService{profiles: profiles, sessions: sessions}
}

func (s *paymentService) ListProfiles(ctx context.Context, includeInactive bool) ([]dto.PaymentProfileResponse, error) {
	rows, err := s.profiles.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PaymentProfileResponse, 0, len(rows))
	for i := range rows {
		out = append(out, profileToResponse(&rows[i]))
	}
	return out, nil
}

func (s *paymentService) CreateProfile(ctx context.Context, req dto.CreatePaymentProfileRequest) (*dto.PaymentProfileResponse, error) {
	p := &model.PaymentProfile{
		ID:            uuid.New(),
		Name:          req.Name,
		BankID:        req.BankID,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountHolder: req.AccountHolder,
		Active:        true,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	resp := profileToResponse(p)
	return &resp, nil
}

func (s *paymentService) DeactivateProfile(ctx context.Context, id uuid.UUID) error {
	p, err := s.profiles.FindByID(ctx, id)
	if err != nil {
		return err
	}
	p.Active = false
	return s.profiles.Update(ctx, p)
}

func (s *paymentService) SessionQR(ctx context.Context, sessionID uuid.UUID, size int) ([]byte, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Payload == "" {
		return nil, ErrNoPendingPayment
	}
	return infra.QRPNG(sess.Payload, size)
}
