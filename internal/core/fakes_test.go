package core

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// memBlobs is an in-memory BlobStore.
type memBlobs struct {
	mu        sync.Mutex
	files     map[string][]byte
	deleted   []string
	deleteErr error
	listErr   error
}

func newMemBlobs(files map[string]string) *memBlobs {
	b := &memBlobs{files: make(map[string][]byte)}
	for k, v := range files {
		b.files[k] = []byte(v)
	}
	return b
}

func (b *memBlobs) Exists(_ context.Context, path string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.files[path]
	return ok, nil
}

func (b *memBlobs) Read(_ context.Context, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[path]
	if !ok {
		return nil, errors.New("no such blob")
	}
	return data, nil
}

func (b *memBlobs) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.files, path)
	b.deleted = append(b.deleted, path)
	return nil
}

func (b *memBlobs) List(_ context.Context, dir string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	var out []string
	for p := range b.files {
		rest, ok := strings.CutPrefix(p, dir+"/")
		if ok && !strings.Contains(rest, "/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// memCreator is an EmployeeCreator with unique email and CPF.
type memCreator struct {
	mu      sync.Mutex
	nextID  int64
	created []NormalizedRecord
	emails  map[string]bool
	taxIDs  map[string]bool
	failOn  map[string]error // keyed by email
}

func newMemCreator() *memCreator {
	return &memCreator{emails: map[string]bool{}, taxIDs: map[string]bool{}}
}

func (c *memCreator) Create(_ context.Context, ownerID int64, rec NormalizedRecord) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failOn[rec.Email]; err != nil {
		return 0, err
	}
	if c.emails[strings.ToLower(rec.Email)] {
		return 0, &ConstraintViolationError{Field: ColumnEmail}
	}
	if c.taxIDs[rec.TaxID] {
		return 0, &ConstraintViolationError{Field: ColumnTaxID}
	}
	c.nextID++
	rec.OwnerUserID = ownerID
	c.created = append(c.created, rec)
	c.emails[strings.ToLower(rec.Email)] = true
	c.taxIDs[rec.TaxID] = true
	return c.nextID, nil
}

func (c *memCreator) EmailExists(_ context.Context, email string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emails[strings.ToLower(email)], nil
}

func (c *memCreator) TaxIDExists(_ context.Context, taxID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taxIDs[taxID], nil
}

type sentMail struct {
	To, Subject, Body string
}

// mailbox is a Notifier that records messages.
type mailbox struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *mailbox) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

// userDir is a UserFinder over a fixed map.
type userDir map[int64]User

func (d userDir) FindUser(_ context.Context, id int64) (User, error) {
	u, ok := d[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// countRecorder counts observations.
type countRecorder struct {
	mu   sync.Mutex
	rows map[OutcomeStatus]int
	runs map[string]int
}

func newCountRecorder() *countRecorder {
	return &countRecorder{rows: map[OutcomeStatus]int{}, runs: map[string]int{}}
}

func (r *countRecorder) ObserveRow(status OutcomeStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[status]++
}

func (r *countRecorder) ObserveRun(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[result]++
}
