// Package repotest provides in-memory repositories for service tests.
//
// Transactions are serialized and roll back by restoring a snapshot, so
// tests can observe all-or-nothing behaviour without a database.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

type txKey struct{}

type state struct {
	patients     map[uuid.UUID]model.Patient
	staff        map[uuid.UUID]model.Staff
	appointments map[uuid.UUID]model.Appointment
	requests     map[uuid.UUID]model.AppointmentRequest
	messages     []model.ChatMessage
	logs         []model.NotificationLog
	bills        map[uuid.UUID]model.Bill
	reports      map[uuid.UUID]model.Report
	outbox       []model.OutboxEvent
}

func newState() state {
	return state{
		patients:     map[uuid.UUID]model.Patient{},
		staff:        map[uuid.UUID]model.Staff{},
		appointments: map[uuid.UUID]model.Appointment{},
		requests:     map[uuid.UUID]model.AppointmentRequest{},
		bills:        map[uuid.UUID]model.Bill{},
		reports:      map[uuid.UUID]model.Report{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.staff {
		c.staff[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.bills {
		v.Items = append([]model.BillItem(nil), v.Items...)
		c.bills[k] = v
	}
	for k, v := range s.reports {
		c.reports[k] = v
	}
	c.messages = append([]model.ChatMessage(nil), s.messages...)
	c.logs = append([]model.NotificationLog(nil), s.logs...)
	c.outbox = append([]model.OutboxEvent(nil), s.outbox...)
	return c
}

// Store holds every table. Use its accessors to get repository views.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data state

	// FailOn makes the named operation return an error, e.g. "appointments.Create".
	FailOn map[string]error
}

func NewStore() *Store {
	return &Store{data: newState(), FailOn: map[string]error{}}
}

func (s *Store) fail(op string) error {
	if err, ok := s.FailOn[op]; ok {
		return err
	}
	return nil
}

// WithTx runs fn with exclusive access to the store, restoring the previous
// state if fn fails. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Patients() repository.PatientRepository { return patients{s} }
func (s *Store) Staff() repository.StaffRepository       { return staff{s} }
func (s *Store) Appointments() repository.AppointmentRepository {
	return appointments{s}
}
func (s *Store) Requests() repository.AppointmentRequestRepository { return requests{s} }
func (s *Store) Chat() repository.ChatRepository                    { return chat{s} }
func (s *Store) NotificationLogs() repository.NotificationLogRepository {
	return notificationLogs{s}
}
func (s *Store) Bills() repository.BillRepository     { return bills{s} }
func (s *Store) Reports() repository.ReportRepository { return reports{s} }
func (s *Store) Outbox() repository.OutboxRepository  { return outbox{s} }

// Seeding and inspection helpers.

func (s *Store) AddPatient(p model.Patient) *model.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PatientCode == "" {
		p.PatientCode = fmt.Sprintf("MED%04d", 1001+len(s.data.patients))
	}
	p.IsActive = true
	s.data.patients[p.ID] = p
	return &p
}

func (s *Store) AddStaff(st model.Staff) *model.Staff {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	st.IsActive = true
	s.data.staff[st.ID] = st
	return &st
}

func (s *Store) AppointmentsFor(patientID uuid.UUID) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.data.appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) MessagesFor(patientID uuid.UUID) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatMessage
	for _, m := range s.data.messages {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OutboxEvent(nil), s.data.outbox...)
}

func (s *Store) Logs() []model.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.NotificationLog(nil), s.data.logs...)
}

func paginate[T any](rows []T, p model.Pagination) []T {
	if p.Limit <= 0 {
		return rows
	}
	start := p.Offset()
	if start >= len(rows) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

type patients struct{ s *Store }

func (r patients) Create(ctx context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("patients.Create"); err != nil {
		return err
	}
	if r.emailTaken(p.Email, p.ID) {
		return fmt.Errorf("failed to create patient: %w", repository.ErrEmailTaken)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.PatientCode = fmt.Sprintf("MED%04d", 1001+len(r.s.data.patients))
	p.IsActive = true
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.s.data.patients[p.ID] = *p
	return nil
}

// emailTaken mirrors the case-insensitive unique index on patients.email.
func (r patients) emailTaken(email *string, self uuid.UUID) bool {
	if email == nil {
		return false
	}
	for id, existing := range r.s.data.patients {
		if id != self && existing.Email != nil && strings.EqualFold(*existing.Email, *email) {
			return true
		}
	}
	return false
}

func (r patients) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r patients) GetByCode(ctx context.Context, code string) (*model.Patient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.patients {
		if p.PatientCode == code && p.IsActive {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r patients) List(ctx context.Context, f *model.PatientFilter) (*model.Page[*model.Patient], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []*model.Patient
	for _, p := range r.s.data.patients {
		if !p.IsActive {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) &&
			!strings.Contains(p.PatientCode, f.Search) {
			continue
		}
		p := p
		rows = append(rows, &p)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PatientCode < rows[j].PatientCode })
	return &model.Page[*model.Patient]{Rows: paginate(rows, f.Pagination), Total: len(rows)}, nil
}

func (r patients) Update(ctx context.Context, p *model.Patient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.patients[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.emailTaken(p.Email, p.ID) {
		return fmt.Errorf("failed to update patient: %w", repository.ErrEmailTaken)
	}
	p.UpdatedAt = time.Now()
	r.s.data.patients[p.ID] = *p
	return nil
}

func (r patients) Deactivate(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.patients[id]
	if !ok || !p.IsActive {
		return repository.ErrNotFound
	}
	p.IsActive = false
	r.s.data.patients[id] = p
	return nil
}

func (r patients) UpdatePushToken(ctx context.Context, id uuid.UUID, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.patients[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.FCMToken = &token
	r.s.data.patients[id] = p
	return nil
}

type staff struct{ s *Store }

func (r staff) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.data.staff[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (r staff) GetActiveByEmail(ctx context.Context, email string) (*model.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.data.staff {
		if strings.EqualFold(st.Email, email) && st.IsActive {
			st := st
			return &st, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r staff) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.data.staff[id]
	if !ok || st.Role != "doctor" {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (r staff) ListDoctors(ctx context.Context) ([]*model.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Staff
	for _, st := range r.s.data.staff {
		if st.Role == "doctor" && st.IsActive {
			st := st
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type appointments struct{ s *Store }

func (r appointments) Create(ctx context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("appointments.Create"); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = model.AppointmentStatusScheduled
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.s.data.appointments[a.ID] = *a
	return nil
}

func (r appointments) detail(a model.Appointment) *model.AppointmentDetail {
	d := &model.AppointmentDetail{Appointment: a}
	if p, ok := r.s.data.patients[a.PatientID]; ok {
		d.PatientName = p.Name
		d.PatientCode = p.PatientCode
	}
	if a.DoctorID != nil {
		if st, ok := r.s.data.staff[*a.DoctorID]; ok {
			name := st.Name
			d.DoctorName = &name
		}
	}
	return d
}

func (r appointments) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.data.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.detail(a), nil
}

func (r appointments) List(ctx context.Context, f *model.AppointmentFilter) (*model.Page[*model.AppointmentDetail], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []*model.AppointmentDetail
	for _, a := range r.s.data.appointments {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && (a.DoctorID == nil || *a.DoctorID != *f.DoctorID) {
			continue
		}
		if f.Status != "" && string(a.Status) != f.Status {
			continue
		}
		if f.Date != "" && a.Date != f.Date {
			continue
		}
		rows = append(rows, r.detail(a))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date+rows[i].Time > rows[j].Date+rows[j].Time })
	return &model.Page[*model.AppointmentDetail]{Rows: paginate(rows, f.Pagination), Total: len(rows)}, nil
}

func (r appointments) Update(ctx context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.appointments[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = time.Now()
	r.s.data.appointments[a.ID] = *a
	return nil
}

type requests struct{ s *Store }

func (r requests) Create(ctx context.Context, req *model.AppointmentRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("requests.Create"); err != nil {
		return err
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Status = model.RequestStatusPending
	req.CreatedAt = time.Now()
	r.s.data.requests[req.ID] = *req
	return nil
}

func (r requests) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.data.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &req, nil
}

func (r requests) ListPending(ctx context.Context) ([]*model.PendingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.PendingRequest
	for _, req := range r.s.data.requests {
		if req.Status != model.RequestStatusPending {
			continue
		}
		pr := &model.PendingRequest{AppointmentRequest: req}
		if p, ok := r.s.data.patients[req.PatientID]; ok {
			pr.PatientName = p.Name
			pr.PatientCode = p.PatientCode
		}
		if req.DoctorID != nil {
			if st, ok := r.s.data.staff[*req.DoctorID]; ok {
				name := st.Name
				pr.DoctorName = &name
				pr.DoctorSpecialization = st.Specialization
			}
		}
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r requests) Resolve(ctx context.Context, id uuid.UUID, status model.RequestStatus, handledBy uuid.UUID) (*model.AppointmentRequest, error) {
	if status == model.RequestStatusPending {
		return nil, fmt.Errorf("cannot resolve request to %q", status)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.data.requests[id]
	if !ok || req.Status != model.RequestStatusPending {
		return nil, repository.ErrNotFound
	}
	now := time.Now()
	req.Status = status
	req.HandledBy = &handledBy
	req.HandledAt = &now
	r.s.data.requests[id] = req
	return &req, nil
}

type chat struct{ s *Store }

func (r chat) Create(ctx context.Context, m *model.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("chat.Create"); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Priority == "" {
		m.Priority = model.PriorityNormal
	}
	m.IsRead = false
	m.CreatedAt = time.Now()
	r.s.data.messages = append(r.s.data.messages, *m)
	return nil
}

func (r chat) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ChatMessageView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.ChatMessageView{}
	for _, m := range r.s.data.messages {
		if m.PatientID != patientID {
			continue
		}
		v := &model.ChatMessageView{ChatMessage: m}
		if m.SenderID != nil {
			if st, ok := r.s.data.staff[*m.SenderID]; ok {
				name := st.Name
				v.StaffName = &name
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (r chat) MarkRead(ctx context.Context, patientID uuid.UUID, role model.SenderRole) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.data.messages {
		m := &r.s.data.messages[i]
		if m.PatientID == patientID && m.SenderRole == role && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r chat) UnreadCount(ctx context.Context, patientID uuid.UUID, role model.SenderRole) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.data.messages {
		if m.PatientID == patientID && m.SenderRole == role && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r chat) TotalUnread(ctx context.Context, role model.SenderRole) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, m := range r.s.data.messages {
		if m.SenderRole == role && !m.IsRead {
			n++
		}
	}
	return n, nil
}

var priorityRank = map[model.Priority]int{
	model.PriorityUrgent: 0,
	model.PriorityHigh:   1,
	model.PriorityNormal: 2,
	model.PriorityLow:    3,
}

func (r chat) Conversations(ctx context.Context) ([]*model.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byPatient := map[uuid.UUID]*model.Conversation{}
	for _, m := range r.s.data.messages {
		c, ok := byPatient[m.PatientID]
		if !ok {
			p := r.s.data.patients[m.PatientID]
			c = &model.Conversation{PatientID: m.PatientID, PatientName: p.Name, PatientCode: p.PatientCode}
			byPatient[m.PatientID] = c
		}
		msg, at := m.Message, m.CreatedAt
		if c.LastMessageAt == nil || !at.Before(*c.LastMessageAt) {
			c.LastMessage, c.LastMessageAt = &msg, &at
		}
		if m.SenderRole == model.SenderPatient && !m.IsRead {
			c.UnreadCount++
			prio := m.Priority
			if c.TopPriority == nil || priorityRank[prio] < priorityRank[*c.TopPriority] {
				c.TopPriority = &prio
			}
		}
	}
	out := make([]*model.Conversation, 0, len(byPatient))
	for _, c := range byPatient {
		out = append(out, c)
	}
	rank := func(c *model.Conversation) int {
		if c.TopPriority == nil {
			return 4
		}
		return priorityRank[*c.TopPriority]
	}
	sort.Slice(out, func(i, j int) bool {
		if rank(out[i]) != rank(out[j]) {
			return rank(out[i]) < rank(out[j])
		}
		return out[i].LastMessageAt.After(*out[j].LastMessageAt)
	})
	return out, nil
}

type notificationLogs struct{ s *Store }

func (r notificationLogs) Create(ctx context.Context, l *model.NotificationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now()
	r.s.data.logs = append(r.s.data.logs, *l)
	return nil
}

func (r notificationLogs) List(ctx context.Context, patientID *uuid.UUID, limit int) ([]*model.NotificationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.NotificationLog{}
	for i := len(r.s.data.logs) - 1; i >= 0 && len(out) < limit; i-- {
		l := r.s.data.logs[i]
		if patientID != nil && l.PatientID != *patientID {
			continue
		}
		out = append(out, &l)
	}
	return out, nil
}

type bills struct{ s *Store }

func (r bills) Create(ctx context.Context, b *model.Bill) error {
	return r.s.WithTx(ctx, func(ctx context.Context) error {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		if err := r.s.fail("bills.Create"); err != nil {
			return err
		}
		if b.ID == uuid.Nil {
			b.ID = uuid.New()
		}
		b.BillNumber = fmt.Sprintf("BILL%06d", len(r.s.data.bills)+1)
		if b.Status == "" {
			b.Status = model.BillStatusPending
		}
		b.CreatedAt = time.Now()
		b.UpdatedAt = b.CreatedAt
		for i := range b.Items {
			if b.Items[i].ID == uuid.Nil {
				b.Items[i].ID = uuid.New()
			}
			b.Items[i].BillID = b.ID
		}
		stored := *b
		stored.Items = append([]model.BillItem(nil), b.Items...)
		r.s.data.bills[b.ID] = stored
		return nil
	})
}

func (r bills) Get(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.bills[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	b.Items = append([]model.BillItem(nil), b.Items...)
	return &b, nil
}

func (r bills) List(ctx context.Context, f *model.BillFilter) (*model.Page[*model.Bill], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []*model.Bill
	for _, b := range r.s.data.bills {
		if f.PatientID != nil && b.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && string(b.Status) != f.Status {
			continue
		}
		b := b
		b.Items = nil
		rows = append(rows, &b)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].BillNumber > rows[j].BillNumber })
	return &model.Page[*model.Bill]{Rows: paginate(rows, f.Pagination), Total: len(rows)}, nil
}

func (r bills) UpdatePayment(ctx context.Context, id uuid.UUID, paid float64, method *string, status model.BillStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.bills[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.PaidAmount = paid
	if method != nil {
		b.PaymentMethod = method
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	r.s.data.bills[id] = b
	return nil
}

type reports struct{ s *Store }

func (r reports) Create(ctx context.Context, rep *model.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.Status == "" {
		rep.Status = "completed"
	}
	rep.CreatedAt = time.Now()
	r.s.data.reports[rep.ID] = *rep
	return nil
}

func (r reports) Get(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.data.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rep, nil
}

func (r reports) List(ctx context.Context, f *model.ReportFilter) (*model.Page[*model.Report], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []*model.Report
	for _, rep := range r.s.data.reports {
		if f.PatientID != nil && rep.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && (rep.DoctorID == nil || *rep.DoctorID != *f.DoctorID) {
			continue
		}
		if f.Status != "" && rep.Status != f.Status {
			continue
		}
		rep := rep
		rows = append(rows, &rep)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return &model.Page[*model.Report]{Rows: paginate(rows, f.Pagination), Total: len(rows)}, nil
}

type outbox struct{ s *Store }

func (r outbox) Create(ctx context.Context, e *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("outbox.Create"); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Status = model.OutboxStatusPending
	e.CreatedAt = time.Now()
	r.s.data.outbox = append(r.s.data.outbox, *e)
	return nil
}

func (r outbox) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	out := []*model.OutboxEvent{}
	for _, e := range r.s.data.outbox {
		if len(out) >= limit {
			break
		}
		if e.Status != model.OutboxStatusPending && e.Status != model.OutboxStatusRetry {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	return out, nil
}

func (r outbox) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.outbox {
		e := &r.s.data.outbox[i]
		if e.ID != id {
			continue
		}
		e.Status = status
		e.ErrorMessage = errMsg
		e.RetryAt = retryAt
		if status == model.OutboxStatusRetry {
			e.RetryCount++
		}
		if status == model.OutboxStatusProcessed {
			now := time.Now()
			e.ProcessedAt = &now
		}
		return nil
	}
	return repository.ErrNotFound
}

func (r outbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.data.outbox[:0]
	var n int64
	for _, e := range r.s.data.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.s.data.outbox = kept
	return n, nil
}
