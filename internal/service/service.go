package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/energia/energia-dashboard/internal/api"
	"github.com/energia/energia-dashboard/internal/distribution"
	"github.com/energia/energia-dashboard/internal/domain"
)

var (
	ErrGeneratorImmutable = errors.New("a filial cannot be moved to another matriz")
	ErrGeneratorRequired  = errors.New("matriz is required")
	ErrNotPDF             = errors.New("only PDF files are accepted")
	ErrFileTooLarge       = errors.New("file exceeds upload limit")
	ErrEmptyFile          = errors.New("file is empty")
)

// ValidationError lists the offending fields by their JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "invalid fields: " + strings.Join(names, ", ")
}

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate runs the struct tags of v and returns a *ValidationError when any
// fail.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

// GeneratorAPI is the remote side of matrizes.
type GeneratorAPI interface {
	ListGenerators(ctx context.Context) ([]domain.Generator, error)
	GetGenerator(ctx context.Context, id int64) (*domain.Generator, error)
	SearchGenerators(ctx context.Context, q string) ([]domain.Generator, error)
	CreateGenerator(ctx context.Context, g domain.Generator) (*domain.Generator, error)
	UpdateGenerator(ctx context.Context, id int64, g domain.Generator) (*domain.Generator, error)
	DeleteGenerator(ctx context.Context, id int64) error
}

// DependentAPI is the remote side of filiais.
type DependentAPI interface {
	ListDependents(ctx context.Context) ([]domain.DependentUnit, error)
	GetDependent(ctx context.Context, id int64) (*domain.DependentUnit, error)
	DependentsByGenerator(ctx context.Context, generatorID int64) ([]domain.DependentUnit, error)
	SearchDependents(ctx context.Context, q string) ([]domain.DependentUnit, error)
	CreateDependent(ctx context.Context, d domain.DependentUnit) (*domain.DependentUnit, error)
	UpdateDependent(ctx context.Context, id int64, d domain.DependentUnit) (*domain.DependentUnit, error)
	DeleteDependent(ctx context.Context, id int64) error
}

type UserAPI interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	SearchUsers(ctx context.Context, q string) ([]domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, u domain.User) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type FileAPI interface {
	ListFiles(ctx context.Context) ([]domain.FileInfo, error)
	FilesByUser(ctx context.Context, userID int64) ([]domain.FileInfo, error)
	SearchFiles(ctx context.Context, q string) ([]domain.FileInfo, error)
	GetFile(ctx context.Context, id int64) (*domain.FileInfo, error)
	DeleteFile(ctx context.Context, id int64) error
	UploadFile(ctx context.Context, userID int64, filename, contentType string, content io.Reader) (*domain.FileInfo, error)
	OpenFile(ctx context.Context, id int64, inline bool) (*api.Download, error)
}

// Remote is everything the dashboard asks of the energia API. *api.Client
// implements it.
type Remote interface {
	GeneratorAPI
	DependentAPI
	UserAPI
	FileAPI
}

// ObjectStore keeps exported reports and hands back a download URL.
type ObjectStore interface {
	UploadReport(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// RunRepository records archived reports.
type RunRepository interface {
	InsertReportRun(ctx context.Context, run *domain.ReportRun) error
	ListReportRuns(ctx context.Context, limit int) ([]domain.ReportRun, error)
}

// Publisher announces a new distribution snapshot.
type Publisher interface {
	PublishDistribution(ctx context.Context, payload []byte) error
}

// Alerter is told about generators whose allocation exceeds 100%.
type Alerter interface {
	SendAllocationAlert(ctx context.Context, checks []distribution.Check) error
}

// Deps wires the services. Only API is required; the sinks are optional.
type Deps struct {
	API            Remote
	Policy         distribution.Policy
	MaxUploadBytes int64
	Archive        ObjectStore
	Runs           RunRepository
	Events         Publisher
	Alerts         Alerter
	Now            func() time.Time
}

type Services struct {
	Generators *GeneratorService
	Dependents *DependentService
	Users      *UserService
	Files      *FileService
	Dashboard  *DashboardService
	Reports    *ReportService
}

func New(d Deps) *Services {
	if d.Policy == "" {
		d.Policy = distribution.PolicyWarn
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	alloc := &allocator{policy: d.Policy, alerts: d.Alerts}
	return &Services{
		Generators: &GeneratorService{api: d.API, deps: d.API, alloc: alloc},
		Dependents: &DependentService{api: d.API, gens: d.API, alloc: alloc},
		Users:      &UserService{api: d.API, files: d.API},
		Files:      &FileService{api: d.API, users: d.API, maxBytes: d.MaxUploadBytes},
		Dashboard:  &DashboardService{remote: d.API},
		Reports: &ReportService{
			gens:    d.API,
			deps:    d.API,
			archive: d.Archive,
			runs:    d.Runs,
			events:  d.Events,
			alerts:  d.Alerts,
			now:     d.Now,
		},
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
