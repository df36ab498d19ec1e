package app

import (
	"context"
	"strings"

	"github.com/ganapathi9191/farmhouse-backend/internal/domain"
)

type ReservationRepository interface {
	GetReservation(ctx context.Context, reservationID string) (domain.Reservation, error)
	GetReservationByPaymentReference(ctx context.Context, ref string) (*domain.Reservation, error)
	ListReservationsByUser(ctx context.Context, userID string, status domain.ReservationStatus) ([]domain.Reservation, error)
}

// ReservationService is the read side of the booking history.
type ReservationService struct {
	repo ReservationRepository
}

func NewReservationService(repo ReservationRepository) *ReservationService {
	return &ReservationService{repo: repo}
}

func (s *ReservationService) GetReservation(ctx context.Context, reservationID string) (domain.Reservation, error) {
	if !validID(reservationID) {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	return s.repo.GetReservation(ctx, reservationID)
}

func (s *ReservationService) GetByPaymentReference(ctx context.Context, ref string) (domain.Reservation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Reservation{}, domain.ErrMissingField
	}
	r, err := s.repo.GetReservationByPaymentReference(ctx, ref)
	if err != nil {
		return domain.Reservation{}, err
	}
	if r == nil {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return *r, nil
}

// ListByUser returns the user's reservations, newest first. An empty status
// returns all of them.
func (s *ReservationService) ListByUser(ctx context.Context, userID string, status domain.ReservationStatus) ([]domain.Reservation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.ErrMissingField
	}
	switch status {
	case "", domain.ReservationPending, domain.ReservationConfirmed, domain.ReservationCancelled, domain.ReservationCompleted:
	default:
		return nil, domain.ErrInvalidStatusQuery
	}
	return s.repo.ListReservationsByUser(ctx, userID, status)
}
