package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator is a "matriz": it produces power and shares part of it with its
// dependent units.
type Generator struct {
	ID            int64           `json:"id,omitempty"`
	Name          string          `json:"nome" validate:"required,max=150"`
	Address       string          `json:"endereco" validate:"required,max=200"`
	Manager       string          `json:"responsavel" validate:"required,max=150"`
	Phone         string          `json:"telefone,omitempty" validate:"max=20"`
	GeneratedKw   Number          `json:"geracaoKw" validate:"gte=0"`
	OwnUsePercent Number          `json:"porcentagemMatriz" validate:"gte=0,lte=100"`
	Dependents    []DependentUnit `json:"filiais,omitempty" validate:"-"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time      `json:"updatedAt,omitempty"`
}

// DependentUnit is a "filial": it receives ReceivePercent of its generator's
// output. ConsumptionKw is informational only.
type DependentUnit struct {
	ID             int64      `json:"id,omitempty"`
	Name           string     `json:"nome" validate:"required,max=150"`
	Address        string     `json:"endereco" validate:"required,max=200"`
	Manager        string     `json:"responsavel" validate:"required,max=150"`
	Phone          string     `json:"telefone,omitempty" validate:"max=20"`
	ConsumptionKw  Number     `json:"consumoKw" validate:"gte=0"`
	ReceivePercent Number     `json:"porcentagemEnergia" validate:"gte=0,lte=100"`
	GeneratorID    int64      `json:"matrizId,omitempty"`
	Generator      *Generator `json:"matriz,omitempty" validate:"-"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// GeneratorRef returns the referenced generator id, whether it came as a flat
// matrizId or as a nested matriz object. Zero means unresolved.
func (d DependentUnit) GeneratorRef() int64 {
	if d.GeneratorID != 0 {
		return d.GeneratorID
	}
	if d.Generator != nil {
		return d.Generator.ID
	}
	return 0
}

type User struct {
	ID        int64      `json:"id,omitempty"`
	FullName  string     `json:"fullName" validate:"required,max=150"`
	CpfCnpj   string     `json:"cpfCnpj" validate:"required,max=18"`
	Email     string     `json:"email" validate:"required,email,max=150"`
	Phone     string     `json:"phone,omitempty" validate:"max=20"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// FileInfo describes a document uploaded for a user.
type FileInfo struct {
	ID               int64      `json:"id"`
	OriginalFilename string     `json:"originalFilename"`
	ContentType      string     `json:"contentType"`
	SizeBytes        int64      `json:"sizeBytes"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UserID           int64      `json:"userId,omitempty"`
	UserName         string     `json:"userName,omitempty"`
	UserCpfCnpj      string     `json:"userCpfCnpj,omitempty"`
}

func (f FileInfo) IsPDF() bool {
	return strings.Contains(strings.ToLower(f.ContentType), "pdf")
}

// HumanSize renders SizeBytes as B, KB or MB with one decimal.
func (f FileInfo) HumanSize() string {
	switch {
	case f.SizeBytes < 1024:
		return fmt.Sprintf("%d B", f.SizeBytes)
	case f.SizeBytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(f.SizeBytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(f.SizeBytes)/(1024*1024))
	}
}

// Credentials are what the login form posts.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Identity is what the remote API returns for valid credentials.
type Identity struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReportRun is one archived distribution report.
type ReportRun struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	CreatedBy          string    `db:"created_by" json:"created_by"`
	TotalGeneratedKw   float64   `db:"total_generated_kw" json:"total_generated_kw"`
	TotalConsumedKw    float64   `db:"total_consumed_kw" json:"total_consumed_kw"`
	TotalDistributedKw float64   `db:"total_distributed_kw" json:"total_distributed_kw"`
	Generators         int       `db:"generators" json:"generators"`
	Dependents         int       `db:"dependents" json:"dependents"`
	OverAllocated      int       `db:"over_allocated" json:"over_allocated"`
	ObjectKey          string    `db:"object_key" json:"object_key"`
	DownloadURL        string    `db:"download_url" json:"download_url,omitempty"`
}
