package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ImportsDir is the blob directory uploads are stored under.
const ImportsDir = "imports"

// Run results reported to the Recorder.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

var tracer = otel.Tracer("github.com/JonMunkholm/EmployeeImport/internal/core")

// Deps are the collaborators an Importer needs.
type Deps struct {
	Blobs    BlobStore
	Creator  EmployeeCreator
	Usage    UsageChecker // optional; without it only in-run duplicates are detected
	Notifier Notifier
	Users    UserFinder
}

// Importer runs employee CSV imports.
type Importer struct {
	blobs     BlobStore
	creator   EmployeeCreator
	usage     UsageChecker
	notifier  Notifier
	users     UserFinder
	validator *RowValidator
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the base logger.
func WithLogger(l *slog.Logger) Option {
	return func(imp *Importer) { imp.logger = l }
}

// WithRecorder sets the measurement sink.
func WithRecorder(r Recorder) Option {
	return func(imp *Importer) { imp.recorder = r }
}

// NewImporter creates an Importer. Blobs, Creator, Notifier and Users are
// required.
func NewImporter(deps Deps, opts ...Option) (*Importer, error) {
	var missing []string
	if deps.Blobs == nil {
		missing = append(missing, "blob store")
	}
	if deps.Creator == nil {
		missing = append(missing, "employee creator")
	}
	if deps.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if deps.Users == nil {
		missing = append(missing, "user finder")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("new importer: missing %s", strings.Join(missing, ", "))
	}

	imp := &Importer{
		blobs:     deps.Blobs,
		creator:   deps.Creator,
		usage:     deps.Usage,
		notifier:  deps.Notifier,
		users:     deps.Users,
		validator: NewRowValidator(),
		recorder:  nopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp, nil
}

// Run imports the file at filePath on behalf of ownerID.
//
// A missing owner, a missing or empty file and missing header columns abort
// the run before any row is touched and are returned as errors. Row problems
// never abort the run; they are collected in the summary. The summary is
// mailed to the owner and the file is deleted afterwards. Failures of those
// two steps are logged only.
func (imp *Importer) Run(ctx context.Context, filePath string, ownerID int64) (*ImportSummary, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "core.Importer.Run", trace.WithAttributes(
		attribute.String("import.file_path", filePath),
		attribute.Int64("import.owner_user_id", ownerID),
	))
	defer span.End()

	logger := imp.logger.With("file_path", filePath, "owner_user_id", ownerID)

	summary, err := imp.run(ctx, logger, filePath, ownerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		imp.recorder.ObserveRun(RunFailed, time.Since(start))
		return nil, err
	}

	summary.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("import.processed", summary.ProcessedCount),
		attribute.Int("import.errors", summary.ErrorCount),
	)
	imp.recorder.ObserveRun(RunCompleted, summary.Duration)
	logger.Info("employee import completed",
		"total", summary.TotalLines,
		"created", summary.ProcessedCount,
		"errors", summary.ErrorCount,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (imp *Importer) run(ctx context.Context, logger *slog.Logger, filePath string, ownerID int64) (*ImportSummary, error) {
	owner, err := imp.users.FindUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrOwnerNotFound, ownerID)
		}
		return nil, fmt.Errorf("find owner %d: %w", ownerID, err)
	}

	exists, err := imp.blobs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", filePath, err)
	}
	if !exists {
		logger.Error("import file not found")
		imp.sendDiagnostic(ctx, logger, owner, imp.missingFileDiagnostic(ctx, filePath))
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}

	data, err := imp.blobs.Read(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	lines := splitLines(data)
	if len(lines) == 0 {
		imp.sendDiagnostic(ctx, logger, owner, []string{
			"The file is empty or could not be read.",
			"File: " + filePath,
		})
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, filePath)
	}

	cells, err := parseLine(lines[0])
	if err != nil {
		imp.sendDiagnostic(ctx, logger, owner, []string{
			"The header line could not be parsed: " + err.Error(),
			"Expected columns: " + strings.Join(RequiredColumns, ", "),
		})
		return nil, fmt.Errorf("%w: parse header: %v", ErrMissingHeaders, err)
	}

	header := reconcileHeader(cells)
	if len(header.missing) > 0 {
		logger.Error("import header missing columns", "missing", header.missing, "found", header.found)
		imp.sendDiagnostic(ctx, logger, owner, header.diagnostic())
		return nil, fmt.Errorf("%w: %s", ErrMissingHeaders, strings.Join(header.missing, ", "))
	}

	summary := &ImportSummary{FilePath: filePath, OwnerUserID: ownerID}
	ids := newRunIdentifiers(imp.usage, logger)

	for i, line := range lines[1:] {
		lineNo := i + 2

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("import interrupted at line %d: %w", lineNo, err)
		}

		imp.processLine(ctx, logger, summary, ids, header, line, lineNo, ownerID)
	}

	if err := imp.notifier.Send(ctx, owner.Email, SubjectImportCompleted, summaryBody(summary)); err != nil {
		logger.Error("failed to send import summary", "to", owner.Email, "error", err)
	}

	if err := imp.blobs.Delete(ctx, filePath); err != nil {
		logger.Warn("failed to delete import file", "error", err)
	}

	return summary, nil
}

// processLine handles one data line and records its outcome in summary.
func (imp *Importer) processLine(ctx context.Context, logger *slog.Logger, summary *ImportSummary, ids *runIdentifiers, header headerInfo, line string, lineNo int, ownerID int64) {
	reject := func(messages ...string) {
		summary.reject(lineNo, messages...)
		imp.recorder.ObserveRow(OutcomeRejected)
	}

	fields, err := parseLine(line)
	if err != nil {
		reject(fmt.Sprintf("Line %d: Could not parse line - %v", lineNo, err))
		return
	}

	if len(fields) != len(header.columns) {
		reject(columnCountMessage(lineNo, len(header.columns), len(fields)))
		return
	}

	row := Normalize(NewRawRow(header.columns, fields))

	result := imp.validator.Validate(ctx, row, lineNo, ids)
	if !result.Valid {
		reject(result.Messages()...)
		return
	}

	rec := result.Record
	rec.OwnerUserID = ownerID

	id, err := imp.creator.Create(ctx, ownerID, rec)
	if err != nil {
		logger.Warn("employee creation failed", "line", lineNo, "error", err)
		reject(fmt.Sprintf("Line %d: Error creating employee - %v", lineNo, err))
		return
	}

	ids.add(rec)
	summary.accept(lineNo, id)
	imp.recorder.ObserveRow(OutcomeCreated)
}

// missingFileDiagnostic describes where the file was expected and what was
// found around it. Listing failures become diagnostic lines.
func (imp *Importer) missingFileDiagnostic(ctx context.Context, filePath string) []string {
	dir := path.Dir(filePath)
	lines := []string{
		"File not found: " + filePath,
		"Directory: " + dir,
	}

	lines = append(lines, imp.listing(ctx, dir)...)
	if dir != ImportsDir {
		lines = append(lines, imp.listing(ctx, ImportsDir)...)
	}
	return lines
}

func (imp *Importer) listing(ctx context.Context, dir string) []string {
	files, err := imp.blobs.List(ctx, dir)
	if err != nil {
		return []string{fmt.Sprintf("Could not list %s: %v", dir, err)}
	}
	if len(files) == 0 {
		return []string{fmt.Sprintf("Files in %s: (none)", dir)}
	}
	return []string{fmt.Sprintf("Files in %s: %s", dir, strings.Join(files, ", "))}
}

func (imp *Importer) sendDiagnostic(ctx context.Context, logger *slog.Logger, owner User, lines []string) {
	if err := imp.notifier.Send(ctx, owner.Email, SubjectImportError, diagnosticBody(lines)); err != nil {
		logger.Error("failed to send import diagnostic", "to", owner.Email, "error", err)
	}
}

// NotifyFailure tells the owner that an import was given up after all
// attempts. A missing owner is not an error; nothing is sent.
func (imp *Importer) NotifyFailure(ctx context.Context, filePath string, ownerID int64, cause error) error {
	owner, err := imp.users.FindUser(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			imp.logger.Info("import owner gone, skipping failure notification",
				"file_path", filePath, "owner_user_id", ownerID)
			return nil
		}
		return fmt.Errorf("find owner %d: %w", ownerID, err)
	}

	if err := imp.notifier.Send(ctx, owner.Email, SubjectImportFailed, failureBody(filePath, cause)); err != nil {
		return fmt.Errorf("send failure notification: %w", err)
	}
	return nil
}
