package booking

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"railctl/internal/api"
	"railctl/internal/errors"
	"railctl/internal/fakeapi"
	"railctl/internal/log"
	"railctl/internal/resources"
	"railctl/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := fakeapi.NewStore()
	require.NoError(t, fakeapi.Seed(store))
	srv := fakeapi.New(store, fakeapi.Options{
		Secret: []byte("booking-test"),
		Logger: log.NewLogger(log.WithOutput(io.Discard)),
	})
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	client, err := api.NewClient(hs.URL, nil)
	require.NoError(t, err)
	_, err = client.Login(context.Background(), fakeapi.UserEmail, fakeapi.UserPassword)
	require.NoError(t, err)
	return New(client)
}

func search() resources.ScheduleSearch {
	return resources.ScheduleSearch{From: "Northgate", To: "Harbor", Date: time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)}
}

func TestSearchRequiresBothStations(t *testing.T) {
	s := New(nil)
	_, err := s.Search(context.Background(), resources.ScheduleSearch{From: "Northgate"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "to is required", err.Error())
}

func TestBuyTicket(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	trips, err := s.Search(ctx, search())
	require.NoError(t, err)
	require.Len(t, trips, 1)
	trip := trips[0]
	assert.Equal(t, "702A Northgate Central → Harbor Terminal, 2026-12-01 07:15", Describe(trip))

	kira, err := s.AddPassenger(ctx, resources.PassengerInput{
		FirstName: "Kira", LastName: "Lebedeva", BirthDate: types.NewDate(2001, time.July, 9),
		PassportSeries: "4520", PassportNumber: "111222",
	})
	require.NoError(t, err)

	opts, err := s.Prepare(ctx, trip)
	require.NoError(t, err)
	assert.Len(t, opts.Passengers, 2)
	require.Len(t, opts.Seats, 3)

	order, err := opts.Order(kira.ID, opts.Seats[0].ID)
	require.NoError(t, err)
	in := order.Ticket()
	assert.Equal(t, resources.TicketPaid, in.TicketStatus)
	assert.True(t, decimal.RequireFromString("2600").Equal(in.Price))
	assert.Nil(t, in.LuggageID)
	assert.Contains(t, order.Summary(), "for Lebedeva Kira, seat 1A, 2600.00?")

	ticket, err := s.Buy(ctx, order)
	require.NoError(t, err)
	assert.Equal(t, resources.TicketPaid, ticket.TicketStatus)

	opts, err = s.Prepare(ctx, trip)
	require.NoError(t, err)
	assert.Len(t, opts.Seats, 2, "the bought seat is no longer offered")

	mine, err := s.Tickets(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	var pdf bytes.Buffer
	require.NoError(t, WriteReceipt(&pdf, ticket))
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF-")))
}

func TestOrderRejectsForeignChoices(t *testing.T) {
	opts := Options{
		Schedule:   resources.Schedule{ID: 2},
		Passengers: []resources.Passenger{{ID: 7}},
		Seats:      []resources.Seat{{ID: 3, SeatNumber: "1B"}},
	}

	_, err := opts.Order(8, 3)
	require.Error(t, err)
	assert.Equal(t, "passenger 8 is not one of yours", err.Error())

	_, err = opts.Order(7, 4)
	require.Error(t, err)
	assert.Equal(t, "seat 4 is not available on this trip", err.Error())
}

func TestAddPassengerValidatesLocally(t *testing.T) {
	s := New(nil)
	_, err := s.AddPassenger(context.Background(), resources.PassengerInput{FirstName: "Kira"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestFindUnknownTrip(t *testing.T) {
	s := newService(t)
	_, err := s.Find(context.Background(), search(), 1)
	require.Error(t, err)
	assert.Equal(t, "trip 1 is not among the trips from Northgate to Harbor", err.Error())
}
