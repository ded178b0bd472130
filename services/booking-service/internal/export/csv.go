package export

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/barbershop/services/booking-service/internal/model"
)

var ErrNothingToExport = errors.New("no bookings match the current filters")

// ContentType is what spreadsheet apps expect for the BOM-prefixed output.
const ContentType = "text/csv; charset=utf-8"

const bom = "\ufeff"

var Header = []string{"Barber", "Service", "Date", "Time", "First name", "Last name", "Phone", "Email"}

// Row renders b the way the admin table shows it, with display names for the
// barber and service.
func Row(b model.Booking) []string {
	return []string{
		catalog.BarberName(b.BarberID),
		catalog.ServiceName(b.ServiceID),
		b.Date,
		b.Time,
		b.FirstName,
		b.LastName,
		b.Phone,
		b.Email,
	}
}

// WriteCSV writes a UTF-8 BOM, the header, and one line per booking. Every
// cell is quoted and lines are separated by "\n" with no trailing newline.
// bookings are written in the order given.
func WriteCSV(w io.Writer, bookings []model.Booking) error {
	if len(bookings) == 0 {
		return ErrNothingToExport
	}
	var buf bytes.Buffer
	buf.WriteString(bom)
	writeLine(&buf, Header)
	for _, b := range bookings {
		buf.WriteByte('\n')
		writeLine(&buf, Row(b))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// FileName is bookings_<today>[_barber-<id>][_date-<date>].csv.
func FileName(today string, f model.Filter) string {
	var b strings.Builder
	b.WriteString("bookings_")
	b.WriteString(today)
	if f.BarberID != "" {
		b.WriteString("_barber-")
		b.WriteString(f.BarberID)
	}
	if f.Date != "" {
		b.WriteString("_date-")
		b.WriteString(f.Date)
	}
	b.WriteString(".csv")
	return b.String()
}

func writeLine(buf *bytes.Buffer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(c, `"`, `""`))
		buf.WriteByte('"')
	}
}
