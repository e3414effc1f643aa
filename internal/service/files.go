package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"github.com/energia/energia-dashboard/internal/api"
	"github.com/energia/energia-dashboard/internal/domain"
)

const pdfMIME = "application/pdf"

type FileService struct {
	api      FileAPI
	users    UserAPI
	maxBytes int64
}

func (s *FileService) List(ctx context.Context) ([]domain.FileInfo, error) {
	out, err := s.api.ListFiles(ctx)
	return out, wrap("list files", err)
}

func (s *FileService) ByUser(ctx context.Context, userID int64) ([]domain.FileInfo, error) {
	out, err := s.api.FilesByUser(ctx, userID)
	return out, wrap("list user files", err)
}

func (s *FileService) Search(ctx context.Context, q string) ([]domain.FileInfo, error) {
	if q == "" {
		return s.List(ctx)
	}
	out, err := s.api.SearchFiles(ctx, q)
	return out, wrap("search files", err)
}

func (s *FileService) Get(ctx context.Context, id int64) (*domain.FileInfo, error) {
	f, err := s.api.GetFile(ctx, id)
	return f, wrap("get file", err)
}

func (s *FileService) Delete(ctx context.Context, id int64) error {
	return wrap("delete file", s.api.DeleteFile(ctx, id))
}

// MaxBytes is the upload limit.
func (s *FileService) MaxBytes() int64 { return s.maxBytes }

// Upload stores a PDF for userID. The content is sniffed; the client's
// declared type is ignored.
func (s *FileService) Upload(ctx context.Context, userID int64, filename string, content io.Reader) (*domain.FileInfo, error) {
	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	switch {
	case len(data) == 0:
		return nil, ErrEmptyFile
	case int64(len(data)) > s.maxBytes:
		return nil, ErrFileTooLarge
	case !mimetype.Detect(data).Is(pdfMIME):
		return nil, ErrNotPDF
	}

	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, wrap("get user", err)
	}
	out, err := s.api.UploadFile(ctx, userID, filename, pdfMIME, bytes.NewReader(data))
	if err != nil {
		return nil, wrap("upload file", err)
	}
	log.Info().
		Int64("user_id", userID).
		Int64("file_id", out.ID).
		Str("size", out.HumanSize()).
		Msg("file uploaded")
	return out, nil
}

// Open streams file id. Inline display is only honoured for PDFs; anything
// else is served as an attachment.
func (s *FileService) Open(ctx context.Context, id int64, inline bool) (*api.Download, error) {
	info, err := s.api.GetFile(ctx, id)
	if err != nil {
		return nil, wrap("get file", err)
	}
	inline = inline && info.IsPDF()

	dl, err := s.api.OpenFile(ctx, id, inline)
	if err != nil {
		return nil, wrap("open file", err)
	}
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	dl.ContentDisposition = mime.FormatMediaType(disposition, map[string]string{"filename": info.OriginalFilename})
	if dl.ContentDisposition == "" {
		dl.ContentDisposition = disposition
	}
	if dl.ContentType == "" {
		dl.ContentType = info.ContentType
	}
	return dl, nil
}
