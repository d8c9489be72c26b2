package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medicare-api/internal/repository"
)

// Repositories groups every postgres repository over one pool.
type Repositories struct {
	Tx                  repository.Transactor
	Patients            repository.PatientRepository
	Staff               repository.StaffRepository
	Appointments        repository.AppointmentRepository
	AppointmentRequests repository.AppointmentRequestRepository
	Chat                repository.ChatRepository
	NotificationLogs    repository.NotificationLogRepository
	Bills               repository.BillRepository
	Reports             repository.ReportRepository
	Outbox              repository.OutboxRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	base := NewBaseRepository(db)
	return &Repositories{
		Tx:                  &base,
		Patients:            NewPatientRepository(base),
		Staff:               NewStaffRepository(base),
		Appointments:        NewAppointmentRepository(base),
		AppointmentRequests: NewAppointmentRequestRepository(base),
		Chat:                NewChatRepository(base),
		NotificationLogs:    NewNotificationLogRepository(base),
		Bills:               NewBillRepository(base),
		Reports:             NewReportRepository(base),
		Outbox:              NewOutboxRepository(base),
	}
}
