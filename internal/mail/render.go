// Package mail renders notification emails and hands them to the SMTP relay.
package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/OdenLounge/Oden-Lounge/internal/models"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindOperator     Kind = "operator"
	KindStatus       Kind = "status"
	KindContact      Kind = "contact"
)

const (
	DefaultLogoURL      = "https://res.cloudinary.com/dgdkk60jf/image/upload/v1736726090/Oden_logo_onalqy.png"
	DefaultContactEmail = "admin@odenlounge.co.uk"
)

// Data carries the substitutions for every template. Only the fields the
// chosen kind reads need to be set.
type Data struct {
	LogoURL      string
	ContactEmail string
	Reservation  *models.Reservation
	Contact      *models.ContactMessage
}

// Message is a rendered email ready for transport.
type Message struct {
	Kind    Kind
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

var subjects = map[Kind]string{
	KindConfirmation: "Reservation Confirmation",
	KindOperator:     "New Reservation Received",
	KindStatus:       "Reservation Status Update",
	KindContact:      "New Contact Message",
}

// StatusColor is the accent used for a status in emails and exports.
func StatusColor(s models.Status) string {
	switch s {
	case models.StatusConfirmed:
		return "#4CAF50"
	case models.StatusCancelled:
		return "#f44336"
	default:
		return "#FF9800"
	}
}

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"statusColor": StatusColor,
}).Parse(layout))

// Render produces the subject and HTML body for kind. It has no side effects.
func Render(kind Kind, data Data) (*Message, error) {
	subject, ok := subjects[kind]
	if !ok {
		return nil, fmt.Errorf("unknown mail kind %q", kind)
	}

	switch kind {
	case KindContact:
		if data.Contact == nil {
			return nil, fmt.Errorf("%s mail needs a contact message", kind)
		}
	default:
		if data.Reservation == nil {
			return nil, fmt.Errorf("%s mail needs a reservation", kind)
		}
	}

	if data.LogoURL == "" {
		data.LogoURL = DefaultLogoURL
	}
	if data.ContactEmail == "" {
		data.ContactEmail = DefaultContactEmail
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(kind), data); err != nil {
		return nil, fmt.Errorf("render %s mail: %w", kind, err)
	}

	return &Message{Kind: kind, Subject: subject, HTML: buf.String()}, nil
}

const layout = `
{{define "open"}}<div style="background: #ffffff; font-family: Arial, sans-serif; color: #333; line-height: 1.5; padding: 20px; border: 1px solid #ddd; border-radius: 5px; max-width: 600px; margin: auto;">
  <div style="text-align: right;">
    <img src="{{.LogoURL}}" alt="Oden Lounge" style="max-height: 50px;" />
  </div>{{end}}

{{define "footer"}}  <hr style="border: none; border-top: 1px solid #ddd;" />
  <p style="font-size: 0.9em; color: #888;">
    For any questions, you can reach us at <a href="mailto:{{.ContactEmail}}" style="color: #4CAF50;">{{.ContactEmail}}</a>.
  </p>
</div>{{end}}

{{define "confirmation"}}{{template "open" .}}{{with .Reservation}}
  <h2 style="color: #4CAF50; text-align: center;">Reservation Confirmation</h2>
  <p>Dear <strong>{{.FirstName}}</strong>,</p>
  <p>
    Your reservation for <strong>{{.Guests}}</strong> guest(s) on
    <strong>{{.Date}}</strong> at <strong>{{.Time}}</strong> has been received.
  </p>
  <p>
    <strong>Reference Number:</strong> <span style="color: #4CAF50;">{{.ReferenceNumber}}</span>
  </p>
  <p>Thank you for choosing us!</p>{{end}}
{{template "footer" .}}{{end}}

{{define "operator"}}{{template "open" .}}{{with .Reservation}}
  <h2 style="color: #2196F3; text-align: center;">New Reservation Received</h2>
  <p>A new reservation has been made. Here are the details:</p>
  <ul>
    <li><strong>Name:</strong> {{.FirstName}} {{.LastName}}</li>
    <li><strong>Email:</strong> {{.Email}}</li>
    <li><strong>Phone:</strong> {{.Phone}}</li>
    <li><strong>Guests:</strong> {{.Guests}}</li>
    <li><strong>Date:</strong> {{.Date}}</li>
    <li><strong>Time:</strong> {{.Time}}</li>
    <li><strong>Reference Number:</strong> <span style="color: #2196F3;">{{.ReferenceNumber}}</span></li>
  </ul>{{end}}
  <hr style="border: none; border-top: 1px solid #ddd;" />
  <p style="font-size: 0.9em; color: #888;">
    Please log in to the admin panel to view or manage this reservation.
  </p>
</div>{{end}}

{{define "status"}}{{template "open" .}}{{with .Reservation}}
  <h2 style="color: {{statusColor .Status}}; text-align: center;">Reservation {{.Status.Label}}</h2>
  <p>Dear <strong>{{.FirstName}}</strong>,</p>
  <p>We would like to inform you about the status of your reservation.</p>
  <p>
    <strong>Reservation Status:</strong> <span style="color: {{statusColor .Status}};">{{.Status.Label}}</span>
  </p>
  <p>
    <strong>Reference Number:</strong> <span style="color: #4CAF50;">{{.ReferenceNumber}}</span>
  </p>
  <p>
    <strong>Guests:</strong> {{.Guests}}<br>
    <strong>Date:</strong> {{.Date}}<br>
    <strong>Time:</strong> {{.Time}}
  </p>
  <p>Thank you for choosing us! If you have any further questions, feel free to contact us.</p>{{end}}
{{template "footer" .}}{{end}}

{{define "contact"}}{{template "open" .}}{{with .Contact}}
  <h2 style="color: #2196F3; text-align: center;">New Contact Message</h2>
  <ul>
    <li><strong>Name:</strong> {{.Name}}</li>
    <li><strong>Email:</strong> {{.Email}}</li>
    {{if .Phone}}<li><strong>Phone:</strong> {{.Phone}}</li>{{end}}
  </ul>
  <p style="white-space: pre-wrap;">{{.Message}}</p>{{end}}
</div>{{end}}
`
