package notification

import (
	"fmt"

	"github.com/jwalitptl/medicare-api/internal/model"
)

// Type tags stored on NotificationLog rows.
const (
	TypeRegistration         = "registration"
	TypeAppointment          = "appointment"
	TypeAppointmentCancelled = "appointment_cancelled"
	TypeAppointmentDeclined  = "appointment_declined"
	TypeReport               = "report"
	TypeBill                 = "bill"
	TypePayment              = "payment"
)

// Content is a rendered notification.
type Content struct {
	Type  string
	Title string
	Body  string
}

// Event is a notification trigger. The set is closed: only the types in
// this file implement it.
type Event interface {
	render(p *model.Patient) Content
}

// Render produces the title, body and type tag for e.
func Render(p *model.Patient, e Event) Content {
	return e.render(p)
}

type PatientRegistered struct{}

func (PatientRegistered) render(p *model.Patient) Content {
	return Content{
		Type:  TypeRegistration,
		Title: "🏥 Welcome to MediCare Pro",
		Body: fmt.Sprintf("Hello %s! Your account (ID: %s) is ready. Log in to the patient portal with your ID.",
			p.Name, p.PatientCode),
	}
}

type AppointmentScheduled struct {
	Date string
	Time string
}

func (e AppointmentScheduled) render(*model.Patient) Content {
	return Content{
		Type:  TypeAppointment,
		Title: "📅 Appointment Confirmed",
		Body:  fmt.Sprintf("Your appointment is on %s at %s. Please arrive 10 min early.", e.Date, e.Time),
	}
}

type AppointmentCancelled struct {
	Date string
	Time string
}

func (e AppointmentCancelled) render(*model.Patient) Content {
	return Content{
		Type:  TypeAppointmentCancelled,
		Title: "❌ Appointment Cancelled",
		Body: fmt.Sprintf("Your appointment on %s at %s has been cancelled. Contact us to reschedule.",
			e.Date, e.Time),
	}
}

// AppointmentDeclined is sent when staff reject a pending request.
type AppointmentDeclined struct {
	Date   string
	Time   string
	Reason string
}

func (e AppointmentDeclined) render(*model.Patient) Content {
	return Content{
		Type:  TypeAppointmentDeclined,
		Title: "❌ Appointment Request Declined",
		Body: fmt.Sprintf("Your appointment request for %s at %s has been declined. Reason: %s Please request a different time.",
			e.Date, e.Time, e.Reason),
	}
}

type ReportReady struct {
	ReportType string
	Title      string
}

func (e ReportReady) render(*model.Patient) Content {
	return Content{
		Type:  TypeReport,
		Title: "📋 Medical Report Ready",
		Body:  fmt.Sprintf("Your %s report \"%s\" is ready. Log in to download it.", e.ReportType, e.Title),
	}
}

type BillGenerated struct {
	BillNumber string
	Total      float64
}

func (e BillGenerated) render(*model.Patient) Content {
	return Content{
		Type:  TypeBill,
		Title: "💳 New Bill Generated",
		Body: fmt.Sprintf("A bill of ₹%.2f (%s) has been generated. Log in to view and pay.",
			e.Total, e.BillNumber),
	}
}

type PaymentReceived struct {
	BillNumber string
	PaidAmount float64
}

func (e PaymentReceived) render(*model.Patient) Content {
	return Content{
		Type:  TypePayment,
		Title: "✅ Payment Confirmed",
		Body:  fmt.Sprintf("Payment of ₹%.2f received for %s. Thank you!", e.PaidAmount, e.BillNumber),
	}
}
