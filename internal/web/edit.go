package web

import (
	"fmt"
	"strings"
	"time"

	"visitorlog/internal/visitor"
)

// editForm is the admin revision of a record. Photo, id and agreement are
// carried over from the stored record.
type editForm struct {
	Name               string `form:"name"`
	Surname            string `form:"surname"`
	Company            string `form:"company"`
	VisitorPhoneNumber string `form:"visitorPhoneNumber"`
	ReasonForVisit     string `form:"reasonForVisit"`
	Host               string `form:"host"`
	Date               string `form:"date"`
	TimeIn             string `form:"timeIn"`
	TimeOut            string `form:"timeOut"`
}

func (f editForm) revise(current visitor.Record) (visitor.Record, error) {
	rev := current
	rev.Name = strings.TrimSpace(f.Name)
	rev.Surname = strings.TrimSpace(f.Surname)
	rev.Company = strings.TrimSpace(f.Company)
	rev.VisitorPhoneNumber = strings.TrimSpace(f.VisitorPhoneNumber)
	rev.ReasonForVisit = strings.TrimSpace(f.ReasonForVisit)
	rev.Host = strings.TrimSpace(f.Host)
	rev.Date = strings.TrimSpace(f.Date)
	rev.TimeIn = strings.TrimSpace(f.TimeIn)
	rev.TimeOut = strings.TrimSpace(f.TimeOut)

	if _, err := time.Parse(visitor.DateLayout, rev.Date); err != nil {
		return visitor.Record{}, fmt.Errorf("%w: date must be YYYY-MM-DD", visitor.ErrInvalidForm)
	}
	if _, err := time.Parse(visitor.TimeLayout, rev.TimeIn); err != nil {
		return visitor.Record{}, fmt.Errorf("%w: time in must be HH:MM", visitor.ErrInvalidForm)
	}
	if rev.TimeOut != "" {
		if _, err := time.Parse(visitor.TimeLayout, rev.TimeOut); err != nil {
			return visitor.Record{}, fmt.Errorf("%w: time out must be HH:MM", visitor.ErrInvalidForm)
		}
	}
	return rev, nil
}
