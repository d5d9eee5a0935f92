package booking

import (
	"fmt"
	"io"

	"railctl/internal/errors"
	"railctl/internal/resources"

	"github.com/phpdave11/gofpdf"
)

// WriteReceipt renders an A4 e-ticket for t as PDF.
func WriteReceipt(w io.Writer, t resources.Ticket) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Ticket %d", t.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range receiptLines(t) {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Valid for one passenger and one seat. Present it together with the passport at boarding.", "", "", false)

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "render receipt")
	}
	return nil
}

func receiptLines(t resources.Ticket) []string {
	lines := []string{
		fmt.Sprintf("Ticket No  : %d", t.ID),
		fmt.Sprintf("Status     : %s", t.TicketStatus),
		fmt.Sprintf("Purchased  : %s", t.PurchaseDate.Format("2006-01-02 15:04")),
	}
	if t.Schedule != nil {
		from, to := "-", "-"
		if r := t.Schedule.Route; r != nil {
			if r.StartStation != nil {
				from = r.StartStation.Name
			}
			if r.EndStation != nil {
				to = r.EndStation.Name
			}
		}
		lines = append(lines,
			fmt.Sprintf("Train      : %s", t.Schedule.TrainNumber),
			fmt.Sprintf("From       : %s", from),
			fmt.Sprintf("To         : %s", to),
			fmt.Sprintf("Departure  : %s", t.Schedule.DepartureTime.Format("2006-01-02 15:04")),
			fmt.Sprintf("Arrival    : %s", t.Schedule.ArrivalTime.Format("2006-01-02 15:04")),
		)
	}
	if t.Passenger != nil {
		lines = append(lines,
			fmt.Sprintf("Passenger  : %s", t.Passenger.FullName()),
			fmt.Sprintf("Passport   : %s %s", t.Passenger.PassportSeries, t.Passenger.PassportNumber),
		)
	}
	if t.Seat != nil {
		seat := t.Seat.SeatNumber
		if t.Seat.Car != nil {
			seat = "car " + t.Seat.Car.CarNumber + ", seat " + seat
		}
		lines = append(lines, fmt.Sprintf("Seat       : %s", seat))
	}
	lines = append(lines, fmt.Sprintf("Price      : %s", t.Price.StringFixed(2)))
	return lines
}
