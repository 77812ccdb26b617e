package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segyhp/sacco-loans/pkg/utils"
)

// Calendar dates travel as 2006-01-02 in both directions; timestamps such as
// CreatedAt keep RFC 3339.

func (l Loan) MarshalJSON() ([]byte, error) {
	type alias Loan
	return json.Marshal(struct {
		alias
		IssuedDate string `json:"issued_date"`
		DueDate    string `json:"due_date"`
	}{
		alias:      alias(l),
		IssuedDate: utils.FormatDate(l.IssuedDate),
		DueDate:    utils.FormatDate(l.DueDate),
	})
}

func (l *Loan) UnmarshalJSON(data []byte) error {
	type alias Loan
	aux := struct {
		*alias
		IssuedDate string `json:"issued_date"`
		DueDate    string `json:"due_date"`
	}{alias: (*alias)(l)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if l.IssuedDate, err = parseCalendarDate("issued_date", aux.IssuedDate); err != nil {
		return err
	}
	l.DueDate, err = parseCalendarDate("due_date", aux.DueDate)
	return err
}

func (p Payment) MarshalJSON() ([]byte, error) {
	type alias Payment
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{
		alias: alias(p),
		Date:  utils.FormatDate(p.Date),
	})
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	type alias Payment
	aux := struct {
		*alias
		Date string `json:"date"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	p.Date, err = parseCalendarDate("date", aux.Date)
	return err
}

func (e ScheduleEntry) MarshalJSON() ([]byte, error) {
	type alias ScheduleEntry
	return json.Marshal(struct {
		alias
		DueDate string `json:"due_date"`
	}{
		alias:   alias(e),
		DueDate: utils.FormatDate(e.DueDate),
	})
}

func (e *ScheduleEntry) UnmarshalJSON(data []byte) error {
	type alias ScheduleEntry
	aux := struct {
		*alias
		DueDate string `json:"due_date"`
	}{alias: (*alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	e.DueDate, err = parseCalendarDate("due_date", aux.DueDate)
	return err
}

func parseCalendarDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}
