package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/energia/energia-dashboard/internal/domain"
)

// Matrizes

func (c *Client) ListGenerators(ctx context.Context) ([]domain.Generator, error) {
	var out []domain.Generator
	if err := c.getJSON(ctx, "/matrizes/with-filiais", &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetGenerator(ctx context.Context, id int64) (*domain.Generator, error) {
	var out domain.Generator
	if err := c.getJSON(ctx, idPath("/matrizes", id, "with-filiais"), &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchGenerators(ctx context.Context, q string) ([]domain.Generator, error) {
	var out []domain.Generator
	if err := c.getJSON(ctx, "/matrizes/search", &out, query(q)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateGenerator(ctx context.Context, g domain.Generator) (*domain.Generator, error) {
	var out domain.Generator
	if err := c.sendJSON(ctx, http.MethodPost, "/matrizes", g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateGenerator(ctx context.Context, id int64, g domain.Generator) (*domain.Generator, error) {
	var out domain.Generator
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/matrizes", id), g, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteGenerator(ctx context.Context, id int64) error {
	return c.delete(ctx, idPath("/matrizes", id))
}

// Filiais

func (c *Client) ListDependents(ctx context.Context) ([]domain.DependentUnit, error) {
	var out []domain.DependentUnit
	if err := c.getJSON(ctx, "/filiais/with-matriz", &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetDependent(ctx context.Context, id int64) (*domain.DependentUnit, error) {
	var out domain.DependentUnit
	if err := c.getJSON(ctx, idPath("/filiais", id, "with-matriz"), &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DependentsByGenerator(ctx context.Context, generatorID int64) ([]domain.DependentUnit, error) {
	var out []domain.DependentUnit
	if err := c.getJSON(ctx, idPath("/filiais/by-matriz", generatorID), &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchDependents(ctx context.Context, q string) ([]domain.DependentUnit, error) {
	var out []domain.DependentUnit
	if err := c.getJSON(ctx, "/filiais/search", &out, query(q)); err != nil {
		return nil, err
	}
	return out, nil
}

// dependentBody is the shape the API binds on create: the generator goes as
// a nested reference, not as matrizId.
func dependentBody(d domain.DependentUnit) domain.DependentUnit {
	if ref := d.GeneratorRef(); ref != 0 {
		d.Generator = &domain.Generator{ID: ref}
	}
	d.GeneratorID = 0
	return d
}

func (c *Client) CreateDependent(ctx context.Context, d domain.DependentUnit) (*domain.DependentUnit, error) {
	var out domain.DependentUnit
	if err := c.sendJSON(ctx, http.MethodPost, "/filiais", dependentBody(d), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDependent(ctx context.Context, id int64, d domain.DependentUnit) (*domain.DependentUnit, error) {
	var out domain.DependentUnit
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/filiais", id), dependentBody(d), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteDependent(ctx context.Context, id int64) error {
	return c.delete(ctx, idPath("/filiais", id))
}

// Users

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := c.getJSON(ctx, "/users", &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var out domain.User
	if err := c.getJSON(ctx, idPath("/users", id), &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchUsers(ctx context.Context, q string) ([]domain.User, error) {
	var out []domain.User
	if err := c.getJSON(ctx, "/users/search", &out, query(q)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	var out domain.User
	if err := c.sendJSON(ctx, http.MethodPost, "/users", u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int64, u domain.User) (*domain.User, error) {
	var out domain.User
	if err := c.sendJSON(ctx, http.MethodPut, idPath("/users", id), u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.delete(ctx, idPath("/users", id))
}

// Files

func (c *Client) ListFiles(ctx context.Context) ([]domain.FileInfo, error) {
	var out []domain.FileInfo
	if err := c.getJSON(ctx, "/files", &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FilesByUser(ctx context.Context, userID int64) ([]domain.FileInfo, error) {
	var out []domain.FileInfo
	if err := c.getJSON(ctx, idPath("/files/user", userID), &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchFiles(ctx context.Context, q string) ([]domain.FileInfo, error) {
	var out []domain.FileInfo
	if err := c.getJSON(ctx, "/files/search", &out, query(q)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFile(ctx context.Context, id int64) (*domain.FileInfo, error) {
	var out domain.FileInfo
	if err := c.getJSON(ctx, idPath("/files", id), &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteFile(ctx context.Context, id int64) error {
	return c.delete(ctx, idPath("/files", id))
}

// UploadFile sends content as the multipart "file" part of the user's
// upload endpoint.
func (c *Client) UploadFile(ctx context.Context, userID int64, filename, contentType string, content io.Reader) (*domain.FileInfo, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("buffer upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+idPath("/users", userID, "upload"), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out domain.FileInfo
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download is an open file body. Callers must close Body.
type Download struct {
	Body               io.ReadCloser
	ContentType        string
	ContentDisposition string
	Size               int64
}

// OpenFile streams the stored file; inline asks for the "view" variant.
func (c *Client) OpenFile(ctx context.Context, id int64, inline bool) (*Download, error) {
	suffix := "download"
	if inline {
		suffix = "view"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+idPath("/files", id, suffix), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(c.stream, req)
	if err != nil {
		return nil, err
	}
	return &Download{
		Body:               resp.Body,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		Size:               resp.ContentLength,
	}, nil
}

// Auth

// Authenticate exchanges credentials for an API token.
func (c *Client) Authenticate(ctx context.Context, creds domain.Credentials) (*domain.Identity, error) {
	var out domain.Identity
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/login", creds, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("api: login answered without token")
	}
	if out.Username == "" {
		out.Username = creds.Username
	}
	return &out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
