// Package services implements the café's business operations on top of the
// data access layer. Operations take typed arguments and an explicit actor;
// they never read from or write to the terminal.
package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"cafe-ordering/database"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Errors
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("not authorized")
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	store      *database.Store
	log        *logrus.Logger
	validate   *validator.Validate
	bcryptCost int
	now        func() time.Time
	newOrderID func() string
}

type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(store *database.Store, log *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		log:        log,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		newOrderID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// maxPasswordBytes is bcrypt's input limit, counted in bytes not runes.
const maxPasswordBytes = 72

func (s *Service) hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
