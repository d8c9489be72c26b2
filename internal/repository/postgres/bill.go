package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

const billColumns = `
	id, bill_number, patient_id, appointment_id, subtotal, tax, discount, total,
	paid_amount, payment_method, status,
	to_char(due_date, 'YYYY-MM-DD') AS due_date,
	notes, created_at, updated_at`

type billRepository struct {
	BaseRepository
}

func NewBillRepository(base BaseRepository) repository.BillRepository {
	return &billRepository{base}
}

// Create writes the bill header and its items in one transaction, assigning
// the next BILL###### number.
func (r *billRepository) Create(ctx context.Context, bill *model.Bill) error {
	return r.WithTx(ctx, func(ctx context.Context) error {
		var next int
		codeQuery := `SELECT COALESCE(MAX(CAST(SUBSTRING(bill_number FROM 5) AS INTEGER)), 0) + 1 FROM bills`
		if err := r.get(ctx, &next, codeQuery); err != nil {
			return wrapErr("generate bill number", err)
		}

		if bill.ID == uuid.Nil {
			bill.ID = uuid.New()
		}
		bill.BillNumber = fmt.Sprintf("BILL%06d", next)
		if bill.Status == "" {
			bill.Status = model.BillStatusPending
		}
		bill.CreatedAt = time.Now()
		bill.UpdatedAt = bill.CreatedAt

		query := `
			INSERT INTO bills (
				id, bill_number, patient_id, appointment_id, subtotal, tax, discount,
				total, paid_amount, payment_method, status, due_date, notes,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`
		_, err := r.ext(ctx).ExecContext(ctx, query,
			bill.ID,
			bill.BillNumber,
			bill.PatientID,
			bill.AppointmentID,
			bill.Subtotal,
			bill.Tax,
			bill.Discount,
			bill.Total,
			bill.PaidAmount,
			bill.PaymentMethod,
			bill.Status,
			bill.DueDate,
			bill.Notes,
			bill.CreatedAt,
			bill.UpdatedAt,
		)
		if err != nil {
			return wrapErr("create bill", err)
		}

		itemQuery := `
			INSERT INTO bill_items (id, bill_id, description, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for i := range bill.Items {
			item := &bill.Items[i]
			if item.ID == uuid.Nil {
				item.ID = uuid.New()
			}
			item.BillID = bill.ID
			if _, err := r.ext(ctx).ExecContext(ctx, itemQuery,
				item.ID, item.BillID, item.Description, item.Quantity, item.UnitPrice, item.Total,
			); err != nil {
				return wrapErr("create bill item", err)
			}
		}
		return nil
	})
}

func (r *billRepository) Get(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	if err := r.get(ctx, &bill, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id); err != nil {
		return nil, wrapErr("get bill", err)
	}

	items := []model.BillItem{}
	query := `
		SELECT id, bill_id, description, quantity, unit_price, total
		FROM bill_items WHERE bill_id = $1 ORDER BY description
	`
	if err := r.selectRows(ctx, &items, query, id); err != nil {
		return nil, wrapErr("get bill items", err)
	}
	bill.Items = items
	return &bill, nil
}

func (r *billRepository) List(ctx context.Context, filter *model.BillFilter) (*model.Page[*model.Bill], error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argCount := 1

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", argCount))
		args = append(args, *filter.PatientID)
		argCount++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, filter.Status)
		argCount++
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.get(ctx, &total, `SELECT COUNT(*) FROM bills`+where, args...); err != nil {
		return nil, wrapErr("count bills", err)
	}

	query := `SELECT ` + billColumns + ` FROM bills` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset())

	bills := []*model.Bill{}
	if err := r.selectRows(ctx, &bills, query, args...); err != nil {
		return nil, wrapErr("list bills", err)
	}
	return &model.Page[*model.Bill]{Rows: bills, Total: total}, nil
}

func (r *billRepository) UpdatePayment(ctx context.Context, id uuid.UUID, paid float64, method *string, status model.BillStatus) error {
	query := `
		UPDATE bills
		SET paid_amount = $1, payment_method = COALESCE($2, payment_method),
			status = $3, updated_at = NOW()
		WHERE id = $4
	`
	result, err := r.ext(ctx).ExecContext(ctx, query, paid, method, status, id)
	if err != nil {
		return wrapErr("update bill payment", err)
	}
	return checkRowsAffected("update bill payment", result)
}
