package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/model"
)

func testBill() *model.Bill {
	return &model.Bill{
		PatientID: uuid.New(),
		Subtotal:  500,
		Total:     500,
		Items: []model.BillItem{
			{Description: "Consultation", Quantity: 1, UnitPrice: 300, Total: 300},
			{Description: "Blood test", Quantity: 2, UnitPrice: 100, Total: 200},
		},
	}
}

func TestBillRepository_Create(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewBillRepository(base)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE\\(MAX").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(42))
	mock.ExpectExec("INSERT INTO bills").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bill_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bill_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	bill := testBill()
	require.NoError(t, repo.Create(context.Background(), bill))
	assert.Equal(t, "BILL000042", bill.BillNumber)
	assert.Equal(t, model.BillStatusPending, bill.Status)
	for _, item := range bill.Items {
		assert.Equal(t, bill.ID, item.BillID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillRepository_Create_ItemFailureRollsBack(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewBillRepository(base)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COALESCE\\(MAX").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
	mock.ExpectExec("INSERT INTO bills").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bill_items").WillReturnError(errors.New("check constraint"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), testBill())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
