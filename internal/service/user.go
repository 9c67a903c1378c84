package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/payment/mercadopago"
	"github.com/rifalibre/rifa-api/internal/repository"
)

var (
	ErrUserNotFound   = repository.ErrUserNotFound
	ErrGatewayFailure = mercadopago.ErrGatewayFailure
	ErrStateMismatch  = errors.New("account-link state does not match the current user")
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	ConnectGateway(ctx context.Context, userID uint, accessToken string) error
}

type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (string, error)
}

type UserService struct {
	repo    UserRepository
	gateway CodeExchanger
}

func NewUserService(repo UserRepository, gateway CodeExchanger) *UserService {
	return &UserService{
		repo:    repo,
		gateway: gateway,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

// ConnectMercadoPago completes the account-linking redirect: the state
// parameter must name the calling user, then the authorization code is
// exchanged through the gateway adapter and the opaque credential stored.
func (s *UserService) ConnectMercadoPago(ctx context.Context, userID uint, code, state string) error {
	if state != fmt.Sprint(userID) {
		return ErrStateMismatch
	}

	token, err := s.gateway.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("s.gateway.ExchangeCode -> %w", err)
	}

	if err = s.repo.ConnectGateway(ctx, userID, token); err != nil {
		return fmt.Errorf("s.repo.ConnectGateway -> %w", err)
	}

	return nil
}
