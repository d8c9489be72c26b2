package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/logger"
	"github.com/jwalitptl/medicare-api/pkg/validator"
)

const (
	defaultPageSize = 20

	// Bill numbers are MAX+1, so two concurrent creates can pick the same one.
	billNumberRetries    = 2
	billNumberRetryDelay = 20 * time.Millisecond
)

type BillingService interface {
	CreateBill(ctx context.Context, req *model.CreateBillRequest) (*model.Bill, error)
	GetBill(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	ListBills(ctx context.Context, filter *model.BillFilter) (*model.Page[*model.Bill], error)
	RecordPayment(ctx context.Context, id uuid.UUID, req *model.RecordPaymentRequest) (*model.Bill, error)
}

type Service struct {
	tx        repository.Transactor
	bills     repository.BillRepository
	patients  repository.PatientRepository
	outbox    repository.OutboxRepository
	notifier  notification.Notifier
	validator validator.Validator
	log       *logger.Logger
}

func NewService(
	tx repository.Transactor,
	bills repository.BillRepository,
	patients repository.PatientRepository,
	outbox repository.OutboxRepository,
	notifier notification.Notifier,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		tx:        tx,
		bills:     bills,
		patients:  patients,
		outbox:    outbox,
		notifier:  notifier,
		validator: validator.New(),
		log:       log,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateBill prices the items, stores header and items in one transaction
// and tells the patient a bill is waiting.
func (s *Service) CreateBill(ctx context.Context, req *model.CreateBillRequest) (*model.Bill, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, notFound("patient", err)
	}

	bill := &model.Bill{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Tax:           round2(req.Tax),
		Discount:      round2(req.Discount),
		DueDate:       req.DueDate,
		Notes:         req.Notes,
		Status:        model.BillStatusPending,
	}
	for _, in := range req.Items {
		qty := in.Quantity
		if qty == 0 {
			qty = 1
		}
		item := model.BillItem{
			Description: strings.TrimSpace(in.Description),
			Quantity:    qty,
			UnitPrice:   in.UnitPrice,
			Total:       round2(float64(qty) * in.UnitPrice),
		}
		bill.Subtotal += item.Total
		bill.Items = append(bill.Items, item)
	}
	bill.Subtotal = round2(bill.Subtotal)
	bill.Total = round2(bill.Subtotal + bill.Tax - bill.Discount)
	if bill.Total < 0 {
		return nil, apperrors.NewBadRequest("discount exceeds bill amount", nil)
	}

	create := func() error {
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			if err := s.bills.Create(ctx, bill); err != nil {
				return err
			}
			event, err := model.NewOutboxEvent(model.EventBillCreated, bill.ID, map[string]interface{}{
				"bill_id":     bill.ID,
				"bill_number": bill.BillNumber,
				"patient_id":  bill.PatientID,
				"total":       bill.Total,
			})
			if err != nil {
				return err
			}
			return s.outbox.Create(ctx, event)
		})
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(billNumberRetryDelay), billNumberRetries),
		ctx,
	)
	notifyRetry := func(err error, _ time.Duration) {
		s.log.Warn("bill number taken, retrying", "error", err.Error())
	}
	if err := backoff.RetryNotify(create, policy, notifyRetry); err != nil {
		return nil, fmt.Errorf("failed to create bill: %w", err)
	}

	s.log.Info("bill created", "bill_id", bill.ID.String(), "bill_number", bill.BillNumber, "total", bill.Total)
	s.notify(patient, notification.BillGenerated{BillNumber: bill.BillNumber, Total: bill.Total})
	return bill, nil
}

func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	bill, err := s.bills.Get(ctx, id)
	if err != nil {
		return nil, notFound("bill", err)
	}
	return bill, nil
}

func (s *Service) ListBills(ctx context.Context, filter *model.BillFilter) (*model.Page[*model.Bill], error) {
	if filter == nil {
		filter = &model.BillFilter{}
	}
	filter.Normalize(defaultPageSize)

	page, err := s.bills.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	return page, nil
}

// RecordPayment stores the cumulative amount paid. The patient is notified
// only when the bill becomes fully paid.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, req *model.RecordPaymentRequest) (*model.Bill, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	bill, err := s.bills.Get(ctx, id)
	if err != nil {
		return nil, notFound("bill", err)
	}
	wasPaid := bill.Status == model.BillStatusPaid

	paid := round2(req.PaidAmount)
	status := bill.StatusForPayment(paid)
	var method *string
	if m := strings.TrimSpace(req.PaymentMethod); m != "" {
		method = &m
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.bills.UpdatePayment(ctx, id, paid, method, status); err != nil {
			return err
		}
		if status != model.BillStatusPaid || wasPaid {
			return nil
		}
		event, err := model.NewOutboxEvent(model.EventBillPaid, bill.ID, map[string]interface{}{
			"bill_id":     bill.ID,
			"bill_number": bill.BillNumber,
			"patient_id":  bill.PatientID,
			"paid_amount": paid,
		})
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, event)
	})
	if err != nil {
		return nil, notFound("bill", err)
	}

	bill.PaidAmount = paid
	bill.Status = status
	if method != nil {
		bill.PaymentMethod = method
	}

	if status == model.BillStatusPaid && !wasPaid {
		patient, err := s.patients.Get(ctx, bill.PatientID)
		if err != nil {
			s.log.Error(err, "failed to load patient for payment receipt", "bill_id", id.String())
		} else {
			s.notify(patient, notification.PaymentReceived{BillNumber: bill.BillNumber, PaidAmount: paid})
		}
	}
	return bill, nil
}

func (s *Service) notify(p *model.Patient, e notification.Event) {
	if s.notifier != nil {
		s.notifier.Enqueue(p, e)
	}
}

func notFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return fmt.Errorf("%s operation failed: %w", resource, err)
}

var _ BillingService = (*Service)(nil)
