package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrRaffleNotFound = errors.New("raffle not found")
)

const (
	TicketStatusAvailable = "available"
	TicketStatusSold      = "sold"
)

type Raffle struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"not null"`
	Description   string `gorm:"not null"`
	TicketPrice   int64  `gorm:"not null"`
	TicketCount   int    `gorm:"not null"`
	OrganizerID   uint   `gorm:"not null;index"`
	OrganizerName string `gorm:"not null"`
	Tickets       []Ticket `gorm:"foreignKey:RaffleID"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Ticket struct {
	ID       uint   `gorm:"primaryKey"`
	RaffleID uint   `gorm:"not null;uniqueIndex:uni_tickets_raffle_number,priority:1"`
	Number   string `gorm:"not null;uniqueIndex:uni_tickets_raffle_number,priority:2"`
	Status   string `gorm:"not null;default:available"`
	BuyerID  *uint
}

type RaffleDAO struct {
	db *gorm.DB
}

func NewRaffleDAO(db *gorm.DB) *RaffleDAO {
	return &RaffleDAO{
		db: db,
	}
}

// Insert creates the raffle row and its entire ticket set in one
// transaction. Either everything is visible afterwards or nothing is.
func (d *RaffleDAO) Insert(ctx context.Context, raffle Raffle, tickets []Ticket) (Raffle, error) {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tickets").Create(&raffle).Error; err != nil {
			return err
		}

		for i := range tickets {
			tickets[i].RaffleID = raffle.ID
		}

		return tx.CreateInBatches(tickets, 500).Error
	})
	if err != nil {
		return Raffle{}, err
	}

	return raffle, nil
}

func (d *RaffleDAO) GetByID(ctx context.Context, id uint) (Raffle, error) {
	var raffle Raffle

	result := d.db.WithContext(ctx).First(&raffle, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Raffle{}, ErrRaffleNotFound
		}

		return Raffle{}, result.Error
	}

	return raffle, nil
}

func (d *RaffleDAO) FindAll(ctx context.Context) ([]Raffle, error) {
	var raffles []Raffle

	result := d.db.WithContext(ctx).Order("created_at DESC").Find(&raffles)
	if result.Error != nil {
		return nil, result.Error
	}

	return raffles, nil
}

func (d *RaffleDAO) FindTicketsByRaffleID(ctx context.Context, raffleID uint) ([]Ticket, error) {
	var tickets []Ticket

	result := d.db.WithContext(ctx).
		Where("raffle_id = ?", raffleID).
		Order("number ASC").
		Find(&tickets)
	if result.Error != nil {
		return nil, result.Error
	}

	return tickets, nil
}

func (d *RaffleDAO) FindTicketsByNumbers(ctx context.Context, raffleID uint, numbers []string) ([]Ticket, error) {
	var tickets []Ticket

	result := d.db.WithContext(ctx).
		Where("raffle_id = ? AND number IN ?", raffleID, numbers).
		Find(&tickets)
	if result.Error != nil {
		return nil, result.Error
	}

	return tickets, nil
}
