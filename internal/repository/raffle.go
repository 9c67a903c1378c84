package repository

import (
	"context"
	"fmt"

	"github.com/rifalibre/rifa-api/internal/domain"
	"github.com/rifalibre/rifa-api/internal/repository/dao"
)

var (
	ErrRaffleNotFound = dao.ErrRaffleNotFound
)

type RaffleDAO interface {
	Insert(ctx context.Context, raffle dao.Raffle, tickets []dao.Ticket) (dao.Raffle, error)
	GetByID(ctx context.Context, id uint) (dao.Raffle, error)
	FindAll(ctx context.Context) ([]dao.Raffle, error)
	FindTicketsByRaffleID(ctx context.Context, raffleID uint) ([]dao.Ticket, error)
	FindTicketsByNumbers(ctx context.Context, raffleID uint, numbers []string) ([]dao.Ticket, error)
}

type RaffleRepository struct {
	dao RaffleDAO
}

func NewRaffleRepository(dao RaffleDAO) *RaffleRepository {
	return &RaffleRepository{
		dao: dao,
	}
}

// Create persists the raffle together with its full ticket set; the dao
// guarantees all-or-nothing.
func (r *RaffleRepository) Create(ctx context.Context, raffle domain.Raffle, numbers []string) (domain.Raffle, error) {
	tickets := make([]dao.Ticket, len(numbers))
	for i, number := range numbers {
		tickets[i] = dao.Ticket{
			Number: number,
			Status: dao.TicketStatusAvailable,
		}
	}

	created, err := r.dao.Insert(ctx, r.domainToDao(raffle), tickets)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *RaffleRepository) GetByID(ctx context.Context, id uint) (domain.Raffle, error) {
	raffle, err := r.dao.GetByID(ctx, id)
	if err != nil {
		return domain.Raffle{}, fmt.Errorf("r.dao.GetByID -> %w", err)
	}

	return r.daoToDomain(raffle), nil
}

func (r *RaffleRepository) FindAll(ctx context.Context) ([]domain.Raffle, error) {
	raffles, err := r.dao.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindAll -> %w", err)
	}

	result := make([]domain.Raffle, len(raffles))
	for i, raffle := range raffles {
		result[i] = r.daoToDomain(raffle)
	}

	return result, nil
}

func (r *RaffleRepository) FindTickets(ctx context.Context, raffleID uint) ([]domain.Ticket, error) {
	tickets, err := r.dao.FindTicketsByRaffleID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindTicketsByRaffleID -> %w", err)
	}

	return r.ticketsDaoToDomain(tickets), nil
}

func (r *RaffleRepository) FindTicketsByNumbers(ctx context.Context, raffleID uint, numbers []string) ([]domain.Ticket, error) {
	tickets, err := r.dao.FindTicketsByNumbers(ctx, raffleID, numbers)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindTicketsByNumbers -> %w", err)
	}

	return r.ticketsDaoToDomain(tickets), nil
}

func (r *RaffleRepository) domainToDao(raffle domain.Raffle) dao.Raffle {
	return dao.Raffle{
		ID:            raffle.ID,
		Title:         raffle.Title,
		Description:   raffle.Description,
		TicketPrice:   raffle.TicketPrice,
		TicketCount:   raffle.TicketCount,
		OrganizerID:   raffle.OrganizerID,
		OrganizerName: raffle.OrganizerName,
		CreatedAt:     raffle.CreatedAt,
	}
}

func (r *RaffleRepository) daoToDomain(raffle dao.Raffle) domain.Raffle {
	return domain.Raffle{
		ID:            raffle.ID,
		Title:         raffle.Title,
		Description:   raffle.Description,
		TicketPrice:   raffle.TicketPrice,
		TicketCount:   raffle.TicketCount,
		OrganizerID:   raffle.OrganizerID,
		OrganizerName: raffle.OrganizerName,
		CreatedAt:     raffle.CreatedAt,
	}
}

func (r *RaffleRepository) ticketsDaoToDomain(tickets []dao.Ticket) []domain.Ticket {
	result := make([]domain.Ticket, len(tickets))
	for i, t := range tickets {
		result[i] = domain.Ticket{
			RaffleID: t.RaffleID,
			Number:   t.Number,
			Status:   t.Status,
			BuyerID:  t.BuyerID,
		}
	}

	return result
}
