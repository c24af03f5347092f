package fields

// Fields is the structured record of case facts pulled from recognized
// text. Every field is optional: absence means "not found", never an
// error. Values are the raw matched substrings, not parsed or validated
// further (the amount keeps its currency symbol, dates keep their
// original format).
type Fields struct {
	Amount        string `json:"amount,omitempty"`
	IssueDate     string `json:"issue_date,omitempty"`
	DueDate       string `json:"due_date,omitempty"`
	Location      string `json:"location,omitempty"`
	ViolationType string `json:"violation_type,omitempty"`
	TicketNumber  string `json:"ticket_number,omitempty"`
	VehicleInfo   string `json:"vehicle_info,omitempty"`
	Authority     string `json:"authority,omitempty"`
}

// IsEmpty reports whether no heuristic found anything.
func (f Fields) IsEmpty() bool {
	return f == Fields{}
}
