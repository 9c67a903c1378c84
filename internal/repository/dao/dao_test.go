package dao

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var testDB *gorm.DB

// TestMain boots a throwaway Postgres container for the whole package.
// Run with -short to skip everything that needs Docker.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("dockertest.NewPool -> %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=rifa_test",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("pool.RunWithOptions -> %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:secret@%v/rifa_test?sslmode=disable", resource.GetHostPort("5432/tcp"))

	pool.MaxWait = 60 * time.Second
	if err = pool.Retry(func() error {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err = sqlDB.Ping(); err != nil {
			return err
		}

		testDB = db

		return nil
	}); err != nil {
		log.Fatalf("pool.Retry -> %v", err)
	}

	if err = InitTables(testDB); err != nil {
		log.Fatalf("dao.InitTables -> %v", err)
	}

	code := m.Run()

	_ = pool.Purge(resource)
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("skipping, no database container")
	}
}

func seedRaffle(t *testing.T, numbers []string) Raffle {
	t.Helper()

	tickets := make([]Ticket, len(numbers))
	for i, number := range numbers {
		tickets[i] = Ticket{Number: number, Status: TicketStatusAvailable}
	}

	raffle, err := NewRaffleDAO(testDB).Insert(context.Background(), Raffle{
		Title:         "Bicicleta",
		Description:   "Rodado 29",
		TicketPrice:   500,
		TicketCount:   len(numbers),
		OrganizerID:   1,
		OrganizerName: "Ana",
	}, tickets)
	require.NoError(t, err)

	return raffle
}

func seedOrder(t *testing.T, raffleID, buyerID uint, numbers []string) Order {
	t.Helper()

	tickets := make([]OrderTicket, len(numbers))
	for i, number := range numbers {
		tickets[i] = OrderTicket{Number: number}
	}

	order, err := NewOrderDAO(testDB).Insert(context.Background(), Order{
		RaffleID: raffleID,
		BuyerID:  buyerID,
		Tickets:  tickets,
		Total:    int64(len(numbers)) * 500,
		Status:   OrderStatusPending,
	})
	require.NoError(t, err)

	return order
}

func TestUserDAO(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	userDAO := NewUserDAO(testDB)

	user, err := userDAO.Insert(ctx, User{
		Email:    "ana@example.com",
		Password: "hashed",
		Name:     "Ana",
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := userDAO.Insert(ctx, User{
			Email:    "ana@example.com",
			Password: "hashed",
			Name:     "Ana Clone",
		})

		assert.ErrorIs(t, err, ErrUserEmailExists)
	})

	t.Run("gateway link round trip", func(t *testing.T) {
		require.NoError(t, userDAO.UpdateGatewayLink(ctx, user.ID, true, "APP_USR-token"))

		found, err := userDAO.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, found.MPConnected)
		assert.Equal(t, "APP_USR-token", found.MPAccessToken)
	})

	t.Run("link for unknown user", func(t *testing.T) {
		err := userDAO.UpdateGatewayLink(ctx, 99999, true, "token")

		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("find by email not found", func(t *testing.T) {
		_, err := userDAO.FindByEmail(ctx, "nobody@example.com")

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestRaffleDAOInsert(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	raffleDAO := NewRaffleDAO(testDB)

	t.Run("raffle and tickets are created together", func(t *testing.T) {
		raffle := seedRaffle(t, []string{"01", "02", "03"})

		tickets, err := raffleDAO.FindTicketsByRaffleID(ctx, raffle.ID)
		require.NoError(t, err)
		require.Len(t, tickets, 3)
		assert.Equal(t, "01", tickets[0].Number)
		for _, ticket := range tickets {
			assert.Equal(t, TicketStatusAvailable, ticket.Status)
			assert.Nil(t, ticket.BuyerID)
		}
	})

	t.Run("duplicate numbers roll the whole batch back", func(t *testing.T) {
		before, err := raffleDAO.FindAll(ctx)
		require.NoError(t, err)

		_, err = raffleDAO.Insert(ctx, Raffle{
			Title:         "Duplicada",
			Description:   "no debe existir",
			TicketPrice:   100,
			TicketCount:   2,
			OrganizerID:   1,
			OrganizerName: "Ana",
		}, []Ticket{
			{Number: "01", Status: TicketStatusAvailable},
			{Number: "01", Status: TicketStatusAvailable},
		})
		require.Error(t, err)

		after, err := raffleDAO.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})
}

func TestOrderDAOComplete(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	orderDAO := NewOrderDAO(testDB)
	raffleDAO := NewRaffleDAO(testDB)

	t.Run("settles once, sells the tickets", func(t *testing.T) {
		raffle := seedRaffle(t, []string{"01", "02", "03"})
		order := seedOrder(t, raffle.ID, 7, []string{"01", "02"})

		completed, err := orderDAO.Complete(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, completed)

		stored, err := orderDAO.GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusCompleted, stored.Status)

		tickets, err := raffleDAO.FindTicketsByNumbers(ctx, raffle.ID, []string{"01", "02"})
		require.NoError(t, err)
		require.Len(t, tickets, 2)
		for _, ticket := range tickets {
			assert.Equal(t, TicketStatusSold, ticket.Status)
			require.NotNil(t, ticket.BuyerID)
			assert.Equal(t, uint(7), *ticket.BuyerID)
		}
	})

	t.Run("duplicate delivery is a no-op", func(t *testing.T) {
		raffle := seedRaffle(t, []string{"01", "02"})
		order := seedOrder(t, raffle.ID, 7, []string{"01"})

		completed, err := orderDAO.Complete(ctx, order.ID)
		require.NoError(t, err)
		require.True(t, completed)

		completed, err = orderDAO.Complete(ctx, order.ID)
		require.NoError(t, err)
		assert.False(t, completed)
	})

	t.Run("lost ticket race rolls back and keeps the order pending", func(t *testing.T) {
		raffle := seedRaffle(t, []string{"01", "02"})
		winner := seedOrder(t, raffle.ID, 7, []string{"01"})
		loser := seedOrder(t, raffle.ID, 8, []string{"01", "02"})

		completed, err := orderDAO.Complete(ctx, winner.ID)
		require.NoError(t, err)
		require.True(t, completed)

		_, err = orderDAO.Complete(ctx, loser.ID)
		assert.ErrorIs(t, err, ErrTicketConflict)

		stored, err := orderDAO.GetByID(ctx, loser.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusPending, stored.Status)

		// The loser's second ticket must not have been half-sold.
		tickets, err := raffleDAO.FindTicketsByNumbers(ctx, raffle.ID, []string{"02"})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, TicketStatusAvailable, tickets[0].Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := orderDAO.Complete(ctx, "2c9a0f6e-0000-0000-0000-000000000000")

		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}
