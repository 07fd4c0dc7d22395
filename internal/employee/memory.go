package employee

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
)

// Employee is a stored employee.
type Employee struct {
	ID          int64
	OwnerUserID int64
	Name        string
	Email       string
	TaxID       string
	City        string
	State       string
}

// MemoryStore keeps employees and users in memory with the same uniqueness
// rules as the Postgres schema. Backs DB_DRIVER=memory.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	nextUserID int64
	employees  []Employee
	emails     map[string]struct{}
	taxIDs     map[string]struct{}
	users      map[int64]core.User
	userEmails map[string]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		emails:     make(map[string]struct{}),
		taxIDs:     make(map[string]struct{}),
		users:      make(map[int64]core.User),
		userEmails: make(map[string]struct{}),
	}
}

// AddUser registers an import owner under its own id.
func (m *MemoryStore) AddUser(u core.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.userEmails[strings.ToLower(u.Email)] = struct{}{}
	if u.ID > m.nextUserID {
		m.nextUserID = u.ID
	}
}

// CreateUser registers an import owner and returns its id. Emails are
// unique ignoring case.
func (m *MemoryStore) CreateUser(ctx context.Context, name, email string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := m.userEmails[key]; ok {
		return 0, &core.ConstraintViolationError{Field: core.ColumnEmail}
	}

	m.nextUserID++
	m.users[m.nextUserID] = core.User{ID: m.nextUserID, Name: name, Email: email}
	m.userEmails[key] = struct{}{}
	return m.nextUserID, nil
}

// Create stores rec and returns its id.
func (m *MemoryStore) Create(ctx context.Context, ownerID int64, rec core.NormalizedRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(rec.Email)
	if _, ok := m.emails[email]; ok {
		return 0, &core.ConstraintViolationError{Field: core.ColumnEmail}
	}
	if _, ok := m.taxIDs[rec.TaxID]; ok {
		return 0, &core.ConstraintViolationError{Field: core.ColumnTaxID}
	}

	m.nextID++
	m.employees = append(m.employees, Employee{
		ID:          m.nextID,
		OwnerUserID: ownerID,
		Name:        rec.Name,
		Email:       rec.Email,
		TaxID:       rec.TaxID,
		City:        rec.City,
		State:       rec.State,
	})
	m.emails[email] = struct{}{}
	m.taxIDs[rec.TaxID] = struct{}{}
	return m.nextID, nil
}

func (m *MemoryStore) EmailExists(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.emails[strings.ToLower(email)]
	return ok, nil
}

func (m *MemoryStore) TaxIDExists(_ context.Context, taxID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.taxIDs[taxID]
	return ok, nil
}

// FindUser returns a registered user or core.ErrUserNotFound.
func (m *MemoryStore) FindUser(_ context.Context, id int64) (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("%w: id %d", core.ErrUserNotFound, id)
	}
	return u, nil
}

// Employees returns a copy of the stored employees in creation order.
func (m *MemoryStore) Employees() []Employee {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Employee, len(m.employees))
	copy(out, m.employees)
	return out
}

// UserCreator registers import owners.
type UserCreator interface {
	CreateUser(ctx context.Context, name, email string) (int64, error)
}

// SeedUsers creates one owner per email in order and returns their ids.
// Each owner is named after the local part of its email.
func SeedUsers(ctx context.Context, store UserCreator, emails []string) ([]int64, error) {
	ids := make([]int64, 0, len(emails))
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		name, _, _ := strings.Cut(email, "@")
		id, err := store.CreateUser(ctx, name, email)
		if err != nil {
			return ids, fmt.Errorf("seed user %s: %w", email, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
