package model

import (
	"time"

	"github.com/google/uuid"
)

type BillStatus string

const (
	BillStatusPending BillStatus = "pending"
	BillStatusPartial BillStatus = "partial"
	BillStatusPaid    BillStatus = "paid"
)

type Bill struct {
	Base
	BillNumber    string     `db:"bill_number" json:"bill_number"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Subtotal      float64    `db:"subtotal" json:"subtotal"`
	Tax           float64    `db:"tax" json:"tax"`
	Discount      float64    `db:"discount" json:"discount"`
	Total         float64    `db:"total" json:"total"`
	PaidAmount    float64    `db:"paid_amount" json:"paid_amount"`
	PaymentMethod *string    `db:"payment_method" json:"payment_method,omitempty"`
	Status        BillStatus `db:"status" json:"status"`
	DueDate       *string    `db:"due_date" json:"due_date,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	Items         []BillItem `db:"-" json:"items,omitempty"`
}

type BillItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BillID      uuid.UUID `db:"bill_id" json:"bill_id"`
	Description string    `db:"description" json:"description"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   float64   `db:"unit_price" json:"unit_price"`
	Total       float64   `db:"total" json:"total"`
}

// StatusForPayment derives the bill status after a payment is recorded.
func (b *Bill) StatusForPayment(paid float64) BillStatus {
	switch {
	case paid >= b.Total:
		return BillStatusPaid
	case paid > 0:
		return BillStatusPartial
	default:
		return BillStatusPending
	}
}

type CreateBillItem struct {
	Description string  `json:"description" validate:"required"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

type CreateBillRequest struct {
	PatientID     uuid.UUID        `json:"patient_id" binding:"required" validate:"required"`
	AppointmentID *uuid.UUID       `json:"appointment_id"`
	Tax           float64          `json:"tax" validate:"gte=0"`
	Discount      float64          `json:"discount" validate:"gte=0"`
	DueDate       *string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes         *string          `json:"notes"`
	Items         []CreateBillItem `json:"items" validate:"required,min=1,dive"`
}

type RecordPaymentRequest struct {
	PaidAmount    float64 `json:"paid_amount" validate:"gte=0"`
	PaymentMethod string  `json:"payment_method"`
}

type BillFilter struct {
	PatientID *uuid.UUID `form:"patient_id"`
	Status    string     `form:"status"`
	Pagination
}
