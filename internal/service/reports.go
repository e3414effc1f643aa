package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/energia/energia-dashboard/internal/domain"
	"github.com/energia/energia-dashboard/internal/report"
)

var ErrArchiveDisabled = errors.New("report archive is not configured")

type ReportService struct {
	gens    GeneratorAPI
	deps    DependentAPI
	archive ObjectStore
	runs    RunRepository
	events  Publisher
	alerts  Alerter
	now     func() time.Time
}

// Build fetches both lists concurrently and builds the report from that
// snapshot.
func (s *ReportService) Build(ctx context.Context) (*report.Report, error) {
	var (
		gens []domain.Generator
		deps []domain.DependentUnit
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		gens, err = s.gens.ListGenerators(gctx)
		return wrap("list matrizes", err)
	})
	eg.Go(func() (err error) {
		deps, err = s.deps.ListDependents(gctx)
		return wrap("list filiais", err)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	r := report.Build(gens, deps, s.now())
	return &r, nil
}

func (s *ReportService) WriteCSV(ctx context.Context, w io.Writer) error {
	r, err := s.Build(ctx)
	if err != nil {
		return err
	}
	return report.WriteCSV(w, *r)
}

// ArchiveResult tells which sinks took the report. Sinks that failed or
// are not configured are listed in Warnings.
type ArchiveResult struct {
	Run      domain.ReportRun `json:"run"`
	Stored   bool             `json:"stored"`
	Recorded bool             `json:"recorded"`
	Notified bool             `json:"notified"`
	Alerted  bool             `json:"alerted"`
	Warnings []string         `json:"warnings,omitempty"`
}

type distributionEvent struct {
	RunID uuid.UUID `json:"run_id"`
	*report.Report
}

// Archive builds a report and hands it to every configured sink: the CSV
// goes to object storage, the run to the repository, the snapshot to the
// event broker and over-allocations to the alerter. A failing sink never
// fails the whole archive.
func (s *ReportService) Archive(ctx context.Context, createdBy string) (*ArchiveResult, error) {
	r, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, *r); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	id := uuid.New()
	res := &ArchiveResult{Run: domain.ReportRun{
		ID:                 id,
		CreatedAt:          r.GeneratedAt,
		CreatedBy:          createdBy,
		TotalGeneratedKw:   r.Totals.Generated,
		TotalConsumedKw:    r.Totals.Consumed,
		TotalDistributedKw: r.Totals.Distributed,
		Generators:         len(r.Generators),
		Dependents:         len(r.Allocations),
		OverAllocated:      len(r.OverAllocated),
		ObjectKey:          fmt.Sprintf("reports/%s/%s.csv", r.GeneratedAt.Format("2006/01/02"), id),
	}}
	warn := func(sink string, err error) {
		log.Error().Err(err).Str("sink", sink).Str("run_id", id.String()).Msg("report archive sink failed")
		res.Warnings = append(res.Warnings, sink+": "+err.Error())
	}

	if s.archive == nil {
		res.Warnings = append(res.Warnings, "storage: not configured")
	} else if url, err := s.archive.UploadReport(ctx, res.Run.ObjectKey, buf.Bytes(), report.ContentType); err != nil {
		warn("storage", err)
	} else {
		res.Run.DownloadURL = url
		res.Stored = true
	}

	if s.runs == nil {
		res.Warnings = append(res.Warnings, "history: not configured")
	} else if err := s.runs.InsertReportRun(ctx, &res.Run); err != nil {
		warn("history", err)
	} else {
		res.Recorded = true
	}

	if s.events != nil {
		payload, err := json.Marshal(distributionEvent{RunID: id, Report: r})
		if err == nil {
			err = s.events.PublishDistribution(ctx, payload)
		}
		if err != nil {
			warn("events", err)
		} else {
			res.Notified = true
		}
	}

	if s.alerts != nil && len(r.OverAllocated) > 0 {
		if err := s.alerts.SendAllocationAlert(ctx, r.OverAllocated); err != nil {
			warn("alerts", err)
		} else {
			res.Alerted = true
		}
	}

	log.Info().
		Str("run_id", id.String()).
		Str("created_by", createdBy).
		Bool("stored", res.Stored).
		Bool("recorded", res.Recorded).
		Msg("report archived")
	return res, nil
}

// History returns the most recent archived runs, newest first.
func (s *ReportService) History(ctx context.Context, limit int) ([]domain.ReportRun, error) {
	if s.runs == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	out, err := s.runs.ListReportRuns(ctx, limit)
	return out, wrap("list report runs", err)
}
