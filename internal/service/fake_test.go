package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/energia/energia-dashboard/internal/api"
	"github.com/energia/energia-dashboard/internal/distribution"
	"github.com/energia/energia-dashboard/internal/domain"
)

var errNotFound = &api.StatusError{Code: http.StatusNotFound, Message: "not found"}

// fakeRemote keeps records the way the API would and serves them back.
type fakeRemote struct {
	mu      sync.Mutex
	gens    map[int64]domain.Generator
	deps    map[int64]domain.DependentUnit
	users   map[int64]domain.User
	files   map[int64]domain.FileInfo
	content map[int64][]byte
	nextID  int64
	failOn  string

	created []domain.DependentUnit
	updated []domain.DependentUnit
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		gens:    map[int64]domain.Generator{},
		deps:    map[int64]domain.DependentUnit{},
		users:   map[int64]domain.User{},
		files:   map[int64]domain.FileInfo{},
		content: map[int64][]byte{},
		nextID:  100,
	}
}

func (f *fakeRemote) fail(op string) error {
	if f.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (f *fakeRemote) addGenerator(g domain.Generator) {
	f.gens[g.ID] = g
}

func (f *fakeRemote) addDependent(d domain.DependentUnit) {
	f.deps[d.ID] = d
}

func (f *fakeRemote) withDependents(g domain.Generator) domain.Generator {
	g.Dependents = nil
	for _, d := range f.deps {
		if d.GeneratorRef() == g.ID {
			d.GeneratorID = 0
			d.Generator = nil
			g.Dependents = append(g.Dependents, d)
		}
	}
	return g
}

func (f *fakeRemote) ListGenerators(context.Context) ([]domain.Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListGenerators"); err != nil {
		return nil, err
	}
	out := make([]domain.Generator, 0, len(f.gens))
	for _, g := range f.gens {
		out = append(out, f.withDependents(g))
	}
	return out, nil
}

func (f *fakeRemote) GetGenerator(_ context.Context, id int64) (*domain.Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gens[id]
	if !ok {
		return nil, errNotFound
	}
	g = f.withDependents(g)
	return &g, nil
}

func (f *fakeRemote) SearchGenerators(_ context.Context, q string) ([]domain.Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Generator
	for _, g := range f.gens {
		if strings.Contains(strings.ToLower(g.Name), strings.ToLower(q)) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateGenerator(_ context.Context, g domain.Generator) (*domain.Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g.ID = f.nextID
	f.gens[g.ID] = g
	return &g, nil
}

func (f *fakeRemote) UpdateGenerator(_ context.Context, id int64, g domain.Generator) (*domain.Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.gens[id]; !ok {
		return nil, errNotFound
	}
	g.ID = id
	f.gens[id] = g
	return &g, nil
}

func (f *fakeRemote) DeleteGenerator(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.gens, id)
	return nil
}

func (f *fakeRemote) ListDependents(context.Context) ([]domain.DependentUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListDependents"); err != nil {
		return nil, err
	}
	out := make([]domain.DependentUnit, 0, len(f.deps))
	for _, d := range f.deps {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeRemote) GetDependent(_ context.Context, id int64) (*domain.DependentUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.deps[id]
	if !ok {
		return nil, errNotFound
	}
	return &d, nil
}

func (f *fakeRemote) DependentsByGenerator(_ context.Context, generatorID int64) ([]domain.DependentUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DependentUnit
	for _, d := range f.deps {
		if d.GeneratorRef() == generatorID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRemote) SearchDependents(_ context.Context, q string) ([]domain.DependentUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DependentUnit
	for _, d := range f.deps {
		if strings.Contains(strings.ToLower(d.Name), strings.ToLower(q)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateDependent(_ context.Context, d domain.DependentUnit) (*domain.DependentUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	d.ID = f.nextID
	f.deps[d.ID] = d
	f.created = append(f.created, d)
	return &d, nil
}

func (f *fakeRemote) UpdateDependent(_ context.Context, id int64, d domain.DependentUnit) (*domain.DependentUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.deps[id]; !ok {
		return nil, errNotFound
	}
	f.deps[id] = d
	f.updated = append(f.updated, d)
	return &d, nil
}

func (f *fakeRemote) DeleteDependent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.deps, id)
	return nil
}

func (f *fakeRemote) ListUsers(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListUsers"); err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRemote) GetUser(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, errNotFound
	}
	return &u, nil
}

func (f *fakeRemote) SearchUsers(_ context.Context, q string) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.users {
		if strings.Contains(u.FullName, q) || strings.Contains(u.CpfCnpj, q) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeRemote) CreateUser(_ context.Context, u domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	f.users[u.ID] = u
	return &u, nil
}

func (f *fakeRemote) UpdateUser(_ context.Context, id int64, u domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return nil, errNotFound
	}
	f.users[id] = u
	return &u, nil
}

func (f *fakeRemote) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeRemote) ListFiles(context.Context) ([]domain.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListFiles"); err != nil {
		return nil, err
	}
	out := make([]domain.FileInfo, 0, len(f.files))
	for _, fi := range f.files {
		out = append(out, fi)
	}
	return out, nil
}

func (f *fakeRemote) FilesByUser(_ context.Context, userID int64) ([]domain.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FileInfo
	for _, fi := range f.files {
		if fi.UserID == userID {
			out = append(out, fi)
		}
	}
	return out, nil
}

func (f *fakeRemote) SearchFiles(_ context.Context, q string) ([]domain.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FileInfo
	for _, fi := range f.files {
		if strings.Contains(fi.OriginalFilename, q) {
			out = append(out, fi)
		}
	}
	return out, nil
}

func (f *fakeRemote) GetFile(_ context.Context, id int64) (*domain.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fi, ok := f.files[id]
	if !ok {
		return nil, errNotFound
	}
	return &fi, nil
}

func (f *fakeRemote) DeleteFile(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, id)
	delete(f.content, id)
	return nil
}

func (f *fakeRemote) UploadFile(_ context.Context, userID int64, filename, contentType string, content io.Reader) (*domain.FileInfo, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	fi := domain.FileInfo{
		ID:               f.nextID,
		OriginalFilename: filename,
		ContentType:      contentType,
		SizeBytes:        int64(len(data)),
		UserID:           userID,
	}
	f.files[fi.ID] = fi
	f.content[fi.ID] = data
	return &fi, nil
}

func (f *fakeRemote) OpenFile(_ context.Context, id int64, _ bool) (*api.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.content[id]
	if !ok {
		return nil, errNotFound
	}
	return &api.Download{
		Body: io.NopCloser(bytes.NewReader(data)),
		Size: int64(len(data)),
	}, nil
}

type fakeAlerter struct {
	mu     sync.Mutex
	checks []distribution.Check
	err    error
}

func (a *fakeAlerter) SendAllocationAlert(_ context.Context, checks []distribution.Check) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checks = append(a.checks, checks...)
	return a.err
}

type fakeStore struct {
	keys []string
	data [][]byte
	err  error
}

func (s *fakeStore) UploadReport(_ context.Context, key string, data []byte, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	s.data = append(s.data, data)
	return "https://example.test/" + key, nil
}

type fakeRuns struct {
	runs []domain.ReportRun
	err  error
}

func (r *fakeRuns) InsertReportRun(_ context.Context, run *domain.ReportRun) error {
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, *run)
	return nil
}

func (r *fakeRuns) ListReportRuns(_ context.Context, limit int) ([]domain.ReportRun, error) {
	if len(r.runs) > limit {
		return r.runs[:limit], nil
	}
	return r.runs, nil
}

type fakePublisher struct {
	payloads [][]byte
}

func (p *fakePublisher) PublishDistribution(_ context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}
