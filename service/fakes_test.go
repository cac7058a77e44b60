package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/padraicbc/demoapi/models"
	"github.com/padraicbc/demoapi/store"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.User

	err      error // returned by every call when set
	affected int64 // overrides rows affected by Update/Delete when non-zero
}

func newMemUsers() *memUsers {
	return &memUsers{rows: map[int64]models.User{}}
}

func (m *memUsers) add(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	m.rows[u.ID] = u
	return u
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	if m.err != nil {
		return m.err
	}
	*u = m.add(*u)
	return nil
}

func (m *memUsers) Exists(_ context.Context, username, email string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.rows {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) FindByIdentifier(_ context.Context, value string) ([]models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []models.User
	for _, u := range m.sorted() {
		if u.Username == value || u.Email == value {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) ByID(_ context.Context, id int64) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (m *memUsers) List(_ context.Context, f store.UserFilter) ([]models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []models.User{}
	for _, u := range m.sorted() {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(f.UsernameContains)) {
			out = append(out, u)
		}
	}
	if f.Page > 0 && f.PageSize > 0 {
		start := (f.Page - 1) * f.PageSize
		if start >= len(out) {
			return []models.User{}, nil
		}
		end := min(start+f.PageSize, len(out))
		out = out[start:end]
	}
	return out, nil
}

func (m *memUsers) Update(_ context.Context, id int64, u *models.User, columns []string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.affected != 0 {
		return nil, &store.RowsAffectedError{Op: "update user", Affected: m.affected}
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, &store.RowsAffectedError{Op: "update user", Affected: 0}
	}
	for _, c := range columns {
		switch c {
		case "username":
			row.Username = u.Username
		case "email":
			row.Email = u.Email
		case "password":
			row.Password = u.Password
		case "admin":
			row.Admin = u.Admin
		case "superadmin":
			row.Superadmin = u.Superadmin
		case "banned":
			row.Banned = u.Banned
		}
	}
	m.rows[id] = row
	return &row, nil
}

func (m *memUsers) Delete(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.affected != 0 {
		return &store.RowsAffectedError{Op: "delete user", Affected: m.affected}
	}
	if _, ok := m.rows[id]; !ok {
		return &store.RowsAffectedError{Op: "delete user", Affected: 0}
	}
	delete(m.rows, id)
	return nil
}

func (m *memUsers) get(id int64) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

func (m *memUsers) sorted() []models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.rows))
	for _, u := range m.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memDemos is an in-memory DemoStore that counts calls.
type memDemos struct {
	mu   sync.Mutex
	rows []models.Demo

	matchCalls  int
	insertCalls int
	insertErr   error
	matchErr    error
}

func (m *memDemos) MatchingHashes(_ context.Context, hashes []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchCalls++
	if m.matchErr != nil {
		return nil, m.matchErr
	}
	want := map[string]bool{}
	for _, h := range hashes {
		want[h] = true
	}
	out := []string{}
	for _, d := range m.rows {
		if want[d.MD5Sum] {
			out = append(out, d.MD5Sum)
		}
	}
	return out, nil
}

func (m *memDemos) InsertBatch(_ context.Context, demos []models.Demo) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	paths := make([]string, len(demos))
	for i, d := range demos {
		d.ID = int64(len(m.rows) + 1)
		m.rows = append(m.rows, d)
		paths[i] = d.Path
	}
	return paths, nil
}

func (m *memDemos) ListByUser(_ context.Context, userID int64) ([]models.Demo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Demo{}
	for _, d := range m.rows {
		if d.CreateUser == userID {
			out = append(out, d)
		}
	}
	return out, nil
}
