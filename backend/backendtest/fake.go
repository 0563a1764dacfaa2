// Package backendtest provides an in-memory backend.Backend that records
// every call, for use in tests.
package backendtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/eringen/orgsite/backend"
)

// Call is one recorded invocation.
type Call struct {
	Method string
	Table  string // table or bucket
	ID     string // row id or object key
	Rows   []backend.Row
}

// Fake is a thread-safe in-memory backend.
type Fake struct {
	mu       sync.Mutex
	tables   map[string][]backend.Row
	objects  map[string][]byte
	users    map[string]string
	sessions map[string]string
	recovery map[string]string
	calls    []Call
	seq      int

	// Err* make the matching method fail without side effects.
	ErrSelect error
	ErrInsert error
	ErrUpdate error
	ErrDelete error
	ErrUpload error
	ErrRemove error
	// ErrGetSession makes GetSession fail with this error for every token.
	ErrGetSession error

	// Now stamps created_at on insert when set.
	Now func() time.Time
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		tables:   make(map[string][]backend.Row),
		objects:  make(map[string][]byte),
		users:    make(map[string]string),
		sessions: make(map[string]string),
		recovery: make(map[string]string),
	}
}

var _ backend.Backend = (*Fake)(nil)

// Seed stores rows as-is, bypassing call recording.
func (f *Fake) Seed(table string, rows ...backend.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.tables[table] = append(f.tables[table], clone(r))
	}
}

// Rows returns a copy of everything stored in table.
func (f *Fake) Rows(table string) []backend.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.Row, 0, len(f.tables[table]))
	for _, r := range f.tables[table] {
		out = append(out, clone(r))
	}
	return out
}

// Calls returns the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls of one method.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Writes counts calls that mutate tables or buckets.
func (f *Fake) Writes() int {
	n := 0
	for _, c := range f.Calls() {
		switch c.Method {
		case "Insert", "Update", "Delete", "Upload", "Remove":
			n++
		}
	}
	return n
}

// Object returns an uploaded object.
func (f *Fake) Object(bucket, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[bucket+"/"+key]
	return b, ok
}

// AddUser registers credentials accepted by SignIn.
func (f *Fake) AddUser(email, password string) {
	f.mu.Lock()
	f.users[email] = password
	f.mu.Unlock()
}

// IssueSession creates a session token for email without a password check.
func (f *Fake) IssueSession(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newTokenLocked(email)
}

// AddRecoveryToken registers a token hash accepted by VerifyRecovery.
func (f *Fake) AddRecoveryToken(tokenHash, email string) {
	f.mu.Lock()
	f.recovery[tokenHash] = email
	f.mu.Unlock()
}

// Password returns the current password for email.
func (f *Fake) Password(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[email]
}

func (f *Fake) record(c Call) {
	f.calls = append(f.calls, c)
}

func (f *Fake) newTokenLocked(email string) string {
	f.seq++
	token := "token-" + strconv.Itoa(f.seq)
	f.sessions[token] = email
	return token
}

func (f *Fake) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "Select", Table: table})
	if f.ErrSelect != nil {
		return nil, f.ErrSelect
	}
	var out []backend.Row
	for _, r := range f.tables[table] {
		if matches(r, q.Filters) {
			out = append(out, clone(r))
		}
	}
	if len(q.Orders) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range q.Orders {
				c := compare(out[i][o.Column], out[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if len(q.Columns) > 0 {
		for i, r := range out {
			picked := backend.Row{}
			for _, col := range q.Columns {
				if v, ok := r[col]; ok {
					picked[col] = v
				}
			}
			out[i] = picked
		}
	}
	return out, nil
}

func (f *Fake) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "Insert", Table: table, Rows: cloneAll(rows)})
	if f.ErrInsert != nil {
		return nil, f.ErrInsert
	}
	out := make([]backend.Row, 0, len(rows))
	for _, r := range rows {
		r = clone(r)
		if id, ok := r["id"]; !ok || id == nil || id == "" {
			f.seq++
			r["id"] = "row-" + strconv.Itoa(f.seq)
		}
		if _, ok := r["created_at"]; !ok && f.Now != nil {
			r["created_at"] = f.Now().UTC().Format(time.RFC3339Nano)
		}
		f.tables[table] = append(f.tables[table], r)
		out = append(out, clone(r))
	}
	return out, nil
}

func (f *Fake) Update(ctx context.Context, table, id string, patch backend.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "Update", Table: table, ID: id, Rows: []backend.Row{clone(patch)}})
	if f.ErrUpdate != nil {
		return f.ErrUpdate
	}
	for _, r := range f.tables[table] {
		if fmt.Sprint(r["id"]) == id {
			for k, v := range patch {
				r[k] = v
			}
		}
	}
	return nil
}

func (f *Fake) Delete(ctx context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "Delete", Table: table, ID: id})
	if f.ErrDelete != nil {
		return f.ErrDelete
	}
	rows := f.tables[table][:0]
	for _, r := range f.tables[table] {
		if fmt.Sprint(r["id"]) != id {
			rows = append(rows, r)
		}
	}
	f.tables[table] = rows
	return nil
}

func (f *Fake) Upload(ctx context.Context, bucket, key, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "Upload", Table: bucket, ID: key})
	if f.ErrUpload != nil {
		return f.ErrUpload
	}
	if _, exists := f.objects[bucket+"/"+key]; exists {
		return &backend.Error{Op: "upload", Status: 409, Message: "The resource already exists"}
	}
	f.objects[bucket+"/"+key] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) PublicURL(bucket, key string) string {
	return "https://files.test/" + bucket + "/" + key
}

func (f *Fake) Remove(ctx context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "Remove", Table: bucket, ID: key})
	if f.ErrRemove != nil {
		return f.ErrRemove
	}
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *Fake) SignIn(ctx context.Context, email, password string) (backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "SignIn", ID: email})
	if want, ok := f.users[email]; !ok || want != password {
		return backend.Session{}, backend.ErrInvalidCredentials
	}
	return backend.Session{AccessToken: f.newTokenLocked(email), Email: email}, nil
}

func (f *Fake) SignOut(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "SignOut"})
	delete(f.sessions, token)
	return nil
}

func (f *Fake) GetSession(ctx context.Context, token string) (backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "GetSession"})
	if f.ErrGetSession != nil {
		return backend.Session{}, f.ErrGetSession
	}
	email, ok := f.sessions[token]
	if !ok {
		return backend.Session{}, backend.ErrNoSession
	}
	return backend.Session{AccessToken: token, Email: email}, nil
}

func (f *Fake) ResetPasswordForEmail(ctx context.Context, email, redirectURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "ResetPasswordForEmail", ID: email})
	return nil
}

func (f *Fake) VerifyRecovery(ctx context.Context, tokenHash string) (backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "VerifyRecovery", ID: tokenHash})
	email, ok := f.recovery[tokenHash]
	if !ok {
		return backend.Session{}, backend.ErrNoSession
	}
	delete(f.recovery, tokenHash)
	return backend.Session{AccessToken: f.newTokenLocked(email), Email: email}, nil
}

func (f *Fake) UpdatePassword(ctx context.Context, token, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "UpdatePassword"})
	email, ok := f.sessions[token]
	if !ok {
		return backend.ErrNoSession
	}
	f.users[email] = password
	return nil
}

func matches(r backend.Row, filters []backend.Filter) bool {
	for _, flt := range filters {
		c := compare(r[flt.Column], flt.Value)
		ok := false
		switch flt.Op {
		case backend.Eq:
			ok = c == 0
		case backend.Neq:
			ok = c != 0
		case backend.Gt:
			ok = c > 0
		case backend.Gte:
			ok = c >= 0
		case backend.Lt:
			ok = c < 0
		case backend.Lte:
			ok = c <= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// compare orders two column values. Booleans and numbers compare numerically,
// everything else by string form, which suits ISO dates.
func compare(a, b any) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	if a == nil {
		sa = ""
	}
	if b == nil {
		sb = ""
	}
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func clone(r backend.Row) backend.Row {
	out := make(backend.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func cloneAll(rows []backend.Row) []backend.Row {
	out := make([]backend.Row, len(rows))
	for i, r := range rows {
		out[i] = clone(r)
	}
	return out
}
