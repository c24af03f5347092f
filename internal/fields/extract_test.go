package fields

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleTicket = `CITY OF SPRINGFIELD
Parking Violations Bureau
NOTICE OF PARKING VIOLATION

Ticket #AB12345
Issue date: 01/10/2024
Payment due: 02/10/2024

Location: 742 Evergreen Avenue
Violation: EXPIRED METER
License Plate: XYZ123

Fine amount: $75.00
Pay online or by mail.`

func TestExtractSampleTicket(t *testing.T) {
	f := Extract(sampleTicket)

	assert.Equal(t, "$75.00", f.Amount)
	assert.Equal(t, "01/10/2024", f.IssueDate)
	assert.Equal(t, "02/10/2024", f.DueDate)
	assert.Equal(t, "Location: 742 Evergreen Avenue", f.Location)
	assert.Equal(t, "Parking", f.ViolationType)
	assert.Equal(t, "Ticket #AB12345", f.TicketNumber)
	assert.Equal(t, "Plate: XYZ123", f.VehicleInfo)
	assert.Equal(t, "CITY OF SPRINGFIELD", f.Authority)
}

func TestExtractIsIdempotent(t *testing.T) {
	assert.Equal(t, Extract(sampleTicket), Extract(sampleTicket))
}

func TestExtractEmptyText(t *testing.T) {
	f := Extract("")
	assert.True(t, f.IsEmpty())
}

func TestExtractNoMatches(t *testing.T) {
	f := Extract("nothing of interest here\njust plain words")
	assert.True(t, f.IsEmpty())
}

func TestExtractAmount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "dollar symbol with cents", text: "Pay $75.00 now", want: "$75.00"},
		{name: "dollar symbol no cents", text: "FINE: $40", want: "$40"},
		{name: "currency word suffix", text: "amount of 75.00 USD due", want: "75.00 USD"},
		{name: "first of several", text: "fee $10.00 plus penalty $25.00", want: "$10.00"},
		{name: "euro symbol", text: "Betrag: €35,50 hmm €35", want: "€35,50"},
		{name: "no amount", text: "no money mentioned", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).Amount)
		})
	}
}

func TestExtractDates(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantIssue string
		wantDue   string
	}{
		{
			name:      "two slash dates in order",
			text:      "issued 01/10/2024 due 02/10/2024",
			wantIssue: "01/10/2024",
			wantDue:   "02/10/2024",
		},
		{
			name:      "single slash date",
			text:      "issued 3/7/24 only",
			wantIssue: "3/7/24",
			wantDue:   "",
		},
		{
			name:      "hyphen dates",
			text:      "from 01-10-2024 to 02-10-2024",
			wantIssue: "01-10-2024",
			wantDue:   "02-10-2024",
		},
		{
			name:      "month name date",
			text:      "Issued on January 10, 2024.",
			wantIssue: "January 10, 2024",
			wantDue:   "",
		},
		{
			name:      "slash beats month name for issue date",
			text:      "due by February 10, 2024, issued 01/10/2024",
			wantIssue: "01/10/2024",
			wantDue:   "February 10, 2024",
		},
		{
			name:      "duplicate date is not a due date",
			text:      "01/10/2024 and again 01/10/2024",
			wantIssue: "01/10/2024",
			wantDue:   "",
		},
		{
			name:      "iso date does not match numeric patterns",
			text:      "stamp 2024-01-10 here",
			wantIssue: "",
			wantDue:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Extract(tt.text)
			assert.Equal(t, tt.wantIssue, f.IssueDate, "issue date")
			assert.Equal(t, tt.wantDue, f.DueDate, "due date")
		})
	}
}

func TestExtractTicketNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "ticket with hash", text: "see Ticket #AB12345 above", want: "Ticket #AB12345"},
		{name: "citation with colon", text: "CITATION: 99887766", want: "CITATION: 99887766"},
		{name: "case label", text: "Case PV2024001234", want: "Case PV2024001234"},
		{name: "ref label", text: "your ref A1B2C3D4", want: "ref A1B2C3D4"},
		{name: "token too short", text: "Ticket #AB1", want: ""},
		{name: "no label", text: "number AB12345 alone", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).TicketNumber)
		})
	}
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "first line with street keyword",
			text: "some header\n  123 Main Street  \n456 Oak Avenue",
			want: "123 Main Street",
		},
		{name: "blvd keyword", text: "at 9 Sunset Blvd today", want: "at 9 Sunset Blvd today"},
		{name: "case insensitive", text: "742 EVERGREEN AVENUE", want: "742 EVERGREEN AVENUE"},
		{name: "no street line", text: "nothing here\nor here", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).Location)
		})
	}
}

func TestExtractViolationType(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "speeding", text: "cited for SPEEDING on highway", want: "Speeding"},
		{name: "keyword order, parking before hydrant", text: "no parking near fire hydrant", want: "Parking"},
		{name: "multiword keyword", text: "violation: FIRE HYDRANT zone", want: "Fire hydrant"},
		{name: "none", text: "unremarkable text", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).ViolationType)
		})
	}
}

func TestExtractVehicleInfo(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "plate with token", text: "Plate: XYZ123", want: "Plate: XYZ123"},
		{name: "license label", text: "LICENSE ABC1234", want: "LICENSE ABC1234"},
		{name: "token too short", text: "plate AB", want: ""},
		{name: "token too long", text: "plate ABCDEFGHIJ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).VehicleInfo)
		})
	}
}

func TestExtractAuthority(t *testing.T) {
	longLine := "the city regulations described in this paragraph run well past the ceiling for letterheads"
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "city line", text: "CITY OF SPRINGFIELD\ndetails follow", want: "CITY OF SPRINGFIELD"},
		{name: "police department", text: "x\nSpringfield Police Department\ny", want: "Springfield Police Department"},
		{name: "long line skipped", text: longLine + "\nCounty of Clark", want: "County of Clark"},
		{
			name: "exactly at ceiling skipped",
			text: strings.Repeat("x", 45) + " city\nCity Hall",
			want: "City Hall",
		},
		{
			name: "one under ceiling kept",
			text: strings.Repeat("x", 44) + " city\nCity Hall",
			want: strings.Repeat("x", 44) + " city",
		},
		{name: "no authority", text: "hello\nworld", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text).Authority)
		})
	}
}
