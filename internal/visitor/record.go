package visitor

import "time"

// Layouts of the calendar date and time-of-day strings kept on a Record.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Record is one visitor's sign-in/out entry. The JSON tags are the
// persisted layout of the visitors slot.
type Record struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Surname            string `json:"surname"`
	Company            string `json:"company"`
	VisitorPhoneNumber string `json:"visitorPhoneNumber"`
	Photo              string `json:"photo"`
	ReasonForVisit     string `json:"reasonForVisit"`
	Host               string `json:"host"`
	Date               string `json:"date"`
	TimeIn             string `json:"timeIn"`
	TimeOut            string `json:"timeOut,omitempty"`
	AgreementSigned    bool   `json:"agreementSigned"`
}

// CheckedIn reports whether the visitor has not signed out yet.
func (r Record) CheckedIn() bool {
	return r.TimeOut == ""
}

// FullName is "name surname".
func (r Record) FullName() string {
	return r.Name + " " + r.Surname
}

// ParseDate parses the record date in loc. ok is false for malformed dates.
func (r Record) ParseDate(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, r.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
