package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	orderdomain "github.com/dmehra2102/myshop/internal/order/domain"
	"github.com/dmehra2102/myshop/internal/payment/domain"
)

const maxReferenceLength = 64

var referencePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

type Service struct {
	log  *slog.Logger
	repo PaymentRepository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo PaymentRepository) *Service {
	return &Service{log: log, repo: repo, now: time.Now}
}

// ValidateReference accepts non-blank references of at most 64 letters,
// digits and dashes.
func (s *Service) ValidateReference(ref string) bool {
	return len(ref) <= maxReferenceLength && referencePattern.MatchString(ref)
}

// Record stores a finalized payment over the order total.
func (s *Service) Record(ctx context.Context, o orderdomain.Order, t domain.Type, ref string) (domain.Payment, error) {
	p := domain.NewPayment(o.ID, o.Total(), t, ref, s.now())
	p.Status = domain.StatusFinalized

	if _, err := s.repo.Add(ctx, p); err != nil {
		return domain.Payment{}, fmt.Errorf("add payment: %w", err)
	}
	if err := s.repo.Commit(ctx); err != nil {
		return domain.Payment{}, fmt.Errorf("commit payment: %w", err)
	}
	s.log.Info("payment recorded", "order_id", o.ID, "payment_id", p.ID, "amount", p.Amount.String(), "type", p.Type)
	return p, nil
}
