package shipping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/dmehra2102/myshop/pkg/worksim"
	"github.com/sony/gobreaker/v2"
)

var postalCodePattern = regexp.MustCompile(`^[A-Za-z0-9 -]{2,10}$`)

type Options struct {
	// Latency of the local blocking check.
	Latency time.Duration
	// RemoteLatency of the slow remote check behind the breaker.
	RemoteLatency time.Duration
	Block         worksim.Func
	Suspend       worksim.Func
}

// Service checks shipping addresses. The blocking path holds the caller for
// a short local check; the context path models a slow remote service guarded
// by a circuit breaker.
type Service struct {
	log     *slog.Logger
	opts    Options
	breaker *gobreaker.CircuitBreaker[bool]
}

func NewService(log *slog.Logger, opts Options) *Service {
	if opts.Block == nil {
		opts.Block = worksim.Block
	}
	if opts.Suspend == nil {
		opts.Suspend = worksim.Suspend
	}
	st := gobreaker.Settings{
		Name:        "shipping-remote",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the remote side
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Service{
		log:     log,
		opts:    opts,
		breaker: gobreaker.NewCircuitBreaker[bool](st),
	}
}

// ValidateShippingAddress is the blocking check. A failed wait rejects the
// address, matching the suspending variant.
func (s *Service) ValidateShippingAddress(address, postalCode, country string) bool {
	if err := s.opts.Block(context.Background(), s.opts.Latency); err != nil {
		s.log.Warn("shipping validation failed", "err", err)
		return false
	}
	return plausible(address, postalCode, country)
}

func (s *Service) ValidateShippingAddressContext(ctx context.Context, address, postalCode, country string) (bool, error) {
	ok, err := s.breaker.Execute(func() (bool, error) {
		if err := s.opts.Suspend(ctx, s.opts.RemoteLatency); err != nil {
			return false, err
		}
		return plausible(address, postalCode, country), nil
	})
	if err != nil {
		return false, fmt.Errorf("validate shipping address: %w", err)
	}
	return ok, nil
}

func plausible(address, postalCode, country string) bool {
	if strings.TrimSpace(address) == "" {
		return false
	}
	if !postalCodePattern.MatchString(postalCode) {
		return false
	}
	letters := 0
	for _, r := range country {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 2
}
