package models

import "time"

// Reservation is a table booking made through the public form.
// JSON names match the field names the web client already sends.
type Reservation struct {
	ID              string    `json:"_id"`
	FirstName       string    `json:"fName" validate:"required"`
	LastName        string    `json:"lName" validate:"required"`
	Email           string    `json:"email" validate:"required"`
	Phone           string    `json:"phone" validate:"required"`
	Guests          string    `json:"guest" validate:"required"`
	Date            string    `json:"date" validate:"required"`
	Time            string    `json:"time" validate:"required"`
	Status          Status    `json:"status"`
	ReferenceNumber string    `json:"referenceNumber"`
	CreatedAt       time.Time `json:"createdAt"`
}

// FullName joins first and last name for operator-facing output.
func (r *Reservation) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// ContactMessage is a contact form submission forwarded to the operator.
type ContactMessage struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Phone   string `json:"phone"`
	Message string `json:"message" validate:"required"`
}
