package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/repository"
)

var (
	ErrRaffleNotFound        = repository.ErrRaffleNotFound
	ErrOrganizerNotConnected = errors.New("organizer has not connected a payment gateway account")
	ErrInvalidTicketPrice    = errors.New("ticket price must be positive")
	ErrInvalidTicketCount    = errors.New("ticket count must be positive")
)

type RaffleRepository interface {
	Create(ctx context.Context, raffle domain.Raffle, numbers []string) (domain.Raffle, error)
	GetByID(ctx context.Context, id uint) (domain.Raffle, error)
	FindAll(ctx context.Context) ([]domain.Raffle, error)
	FindTickets(ctx context.Context, raffleID uint) ([]domain.Ticket, error)
	FindTicketsByNumbers(ctx context.Context, raffleID uint, numbers []string) ([]domain.Ticket, error)
}

type RaffleService struct {
	repo     RaffleRepository
	userRepo UserRepository
}

func NewRaffleService(repo RaffleRepository, userRepo UserRepository) *RaffleService {
	return &RaffleService{
		repo:     repo,
		userRepo: userRepo,
	}
}

// TicketNumbers renders 1..count, each left-padded with '0' to the
// decimal digit width of count, e.g. count=100 -> "001".."100".
func TicketNumbers(count int) []string {
	width := len(strconv.Itoa(count))

	numbers := make([]string, count)
	for i := 1; i <= count; i++ {
		numbers[i-1] = fmt.Sprintf("%0*d", width, i)
	}

	return numbers
}

// CreateRaffle validates the raffle, confirms the organizer's gateway
// connection, then persists the raffle with its complete ticket set in a
// single atomic batch. Nothing is written on any validation failure.
func (s *RaffleService) CreateRaffle(ctx context.Context, raffle domain.Raffle) (domain.Raffle, error) {
	if raffle.TicketPrice <= 0 {
		return domain.Raffle{}, ErrInvalidTicketPrice
	}
	if raffle.TicketCount <= 0 {
		return domain.Raffle{}, ErrInvalidTicketCount
	}

	organizer, err := s.userRepo.FindByID(ctx, raffle.OrganizerID)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.userRepo.FindByID -> %w", err)
	}
	if !organizer.MPConnected {
		return domain.Raffle{}, ErrOrganizerNotConnected
	}
	raffle.OrganizerName = organizer.Name

	created, err := s.repo.Create(ctx, raffle, TicketNumbers(raffle.TicketCount))
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

func (s *RaffleService) GetRaffle(ctx context.Context, id uint) (domain.Raffle, error) {
	raffle, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("s.repo.GetByID -> %w", err)
	}

	return raffle, nil
}

func (s *RaffleService) GetRaffles(ctx context.Context) ([]domain.Raffle, error) {
	raffles, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindAll -> %w", err)
	}

	return raffles, nil
}

func (s *RaffleService) GetTickets(ctx context.Context, raffleID uint) ([]domain.Ticket, error) {
	if _, err := s.repo.GetByID(ctx, raffleID); err != nil {
		return nil, fmt.Errorf("s.repo.GetByID -> %w", err)
	}

	tickets, err := s.repo.FindTickets(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("s.repo.FindTickets -> %w", err)
	}

	return tickets, nil
}
