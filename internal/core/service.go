package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/dispatch/internal/config"
	"github.com/JonMunkholm/dispatch/internal/dispatch"
	"github.com/JonMunkholm/dispatch/internal/logging"
	"github.com/google/uuid"
)

// DefaultImportTimeout bounds one preview or commit when the config sets none.
const DefaultImportTimeout = 2 * time.Minute

// Service provides the dispatch board operations: report import, drivers and
// stops.
type Service struct {
	repo    Repository
	limiter *ImportLimiter

	// parser reads text reports; sheetParser reads flattened workbooks,
	// which are always comma separated.
	parser      *dispatch.Parser
	sheetParser *dispatch.Parser

	maxFileSize int64
	timeout     time.Duration

	// writeMu serializes commits so the existing order ids a commit parses
	// against cannot change before its stops are inserted.
	writeMu sync.Mutex

	now func() time.Time
}

// NewService creates a Service over repo configured from cfg.Import.
func NewService(repo Repository, cfg *config.Config) *Service {
	ic := cfg.Import

	s := &Service{
		repo:        repo,
		limiter:     NewImportLimiter(ic.MaxConcurrent, ic.MaxWaitTime),
		maxFileSize: ic.MaxFileSize,
		timeout:     ic.Timeout,
		now:         time.Now,
	}
	if s.maxFileSize <= 0 {
		s.maxFileSize = DefaultMaxReportSize
	}
	if s.timeout <= 0 {
		s.timeout = DefaultImportTimeout
	}

	opts := []dispatch.Option{
		dispatch.WithResolver(dispatch.ResolverByName(ic.ColumnMode)),
		dispatch.WithRequireDeliveryTime(ic.RequireDeliveryTime),
		dispatch.WithContentSniffing(ic.ContentSniffing),
		dispatch.WithClock(func() time.Time { return s.now() }),
		dispatch.WithLogger(slog.Default()),
	}
	s.parser = dispatch.New(append(opts, dispatch.WithDelimiter(ic.DelimiterRune()))...)
	s.sheetParser = dispatch.New(append(opts, dispatch.WithDelimiter(','))...)

	return s
}

// beginImport takes an import slot and applies the import timeout. The
// returned func releases both.
func (s *Service) beginImport(ctx context.Context) (context.Context, func(), error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return ctx, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, func() {
		cancel()
		s.limiter.Release()
	}, nil
}

type report struct {
	text string
	kind ReportKind
}

func (s *Service) readReport(fileName string, r io.Reader, size int64) (report, error) {
	if size > s.maxFileSize {
		return report{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, s.maxFileSize)
	}
	text, kind, err := ReadReport(fileName, r, s.maxFileSize)
	if err != nil {
		return report{}, err
	}
	return report{text: text, kind: kind}, nil
}

// parse runs the parser against the order ids already on the board.
func (s *Service) parse(ctx context.Context, rep report) (dispatch.ParseResult, error) {
	existing, err := s.repo.ExistingOrderIDs(ctx)
	if err != nil {
		return dispatch.ParseResult{}, fmt.Errorf("load existing order ids: %w", err)
	}

	p := s.parser
	if rep.kind == ReportWorkbook {
		p = s.sheetParser
	}
	return p.Parse(rep.text, existing), nil
}

// PreviewImport parses a report and returns the result without writing
// anything.
func (s *Service) PreviewImport(ctx context.Context, fileName string, r io.Reader, size int64) (dispatch.ParseResult, error) {
	ctx, release, err := s.beginImport(ctx)
	if err != nil {
		return dispatch.ParseResult{}, err
	}
	defer release()

	rep, err := s.readReport(fileName, r, size)
	if err != nil {
		return dispatch.ParseResult{}, err
	}

	result, err := s.parse(ctx, rep)
	if err != nil {
		return dispatch.ParseResult{}, err
	}

	logging.WithFields(ctx, "file", fileName).Info("import previewed",
		"report_date", result.ReportDate,
		"deliveries", len(result.Deliveries),
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"duplicates", len(result.Duplicates),
	)
	return result, nil
}

// CommitImport parses a report and inserts every accepted delivery as a stop
// in one transaction, together with an import history entry. When driverID
// is set the new stops are assigned to that driver.
func (s *Service) CommitImport(ctx context.Context, fileName string, r io.Reader, size int64, driverID string) (*ImportResult, error) {
	start := time.Now()

	if driverID != "" {
		if !validUUID(driverID) {
			return nil, ErrInvalidID
		}
		if _, err := s.repo.GetDriver(ctx, driverID); err != nil {
			return nil, err
		}
	}

	ctx, release, err := s.beginImport(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rep, err := s.readReport(fileName, r, size)
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.parse(ctx, rep)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	importID := uuid.NewString()
	src := SourceFromContext(ctx)
	importLog := logging.WithFields(ctx, "import_id", importID, "file", fileName)

	rec := ImportRecord{
		ID:             importID,
		FileName:       fileName,
		ReportDate:     result.ReportDate,
		TotalRows:      result.TotalRows,
		Imported:       len(result.Deliveries),
		ErrorCount:     len(result.Errors),
		WarningCount:   len(result.Warnings),
		DuplicateCount: len(result.Duplicates),
		DriverID:       driverID,
		SourceIP:       src.IP,
		CreatedAt:      s.now(),
	}

	stopIDs := make([]string, 0, len(result.Deliveries))
	err = s.repo.InTx(ctx, func(tx Repository) error {
		if err := tx.CreateImport(ctx, rec); err != nil {
			return err
		}
		for _, d := range result.Deliveries {
			stop := stopFromDelivery(uuid.NewString(), importID, driverID, d)
			if err := tx.InsertStop(ctx, stop); err != nil {
				return err
			}
			stopIDs = append(stopIDs, stop.ID)
		}
		return nil
	})
	if err != nil {
		importLog.Error("import failed", "error", err)
		return nil, fmt.Errorf("commit import: %w", err)
	}

	importLog.Info("import committed",
		"report_date", result.ReportDate,
		"source_ip", src.IP,
		"user_agent", src.UserAgent,
		"stops", len(stopIDs),
		"errors", len(result.Errors),
		"duplicates", len(result.Duplicates),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &ImportResult{
		ImportID: importID,
		FileName: fileName,
		Inserted: len(stopIDs),
		StopIDs:  stopIDs,
		Result:   result,
		Duration: time.Since(start),
	}, nil
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until in-flight imports finish or ctx is done.
// Called during shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// CreateDriver adds a driver. Active defaults to true.
func (s *Service) CreateDriver(ctx context.Context, in DriverInput) (Driver, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Driver{}, ErrDriverNameRequired
	}

	now := s.now()
	d := Driver{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     cleanDriverPhone(in.Phone),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Active != nil {
		d.Active = *in.Active
	}

	if err := s.repo.CreateDriver(ctx, d); err != nil {
		return Driver{}, err
	}
	logging.FromContext(ctx).Info("driver created", "driver_id", d.ID, "name", d.Name)
	return d, nil
}

func (s *Service) GetDriver(ctx context.Context, id string) (Driver, error) {
	if !validUUID(id) {
		return Driver{}, ErrInvalidID
	}
	return s.repo.GetDriver(ctx, id)
}

func (s *Service) ListDrivers(ctx context.Context) ([]Driver, error) {
	drivers, err := s.repo.ListDrivers(ctx)
	if err != nil {
		return nil, err
	}
	if drivers == nil {
		drivers = []Driver{}
	}
	return drivers, nil
}

// UpdateDriver replaces a driver's name and phone. A nil in.Active keeps the
// current value.
func (s *Service) UpdateDriver(ctx context.Context, id string, in DriverInput) (Driver, error) {
	if !validUUID(id) {
		return Driver{}, ErrInvalidID
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Driver{}, ErrDriverNameRequired
	}

	d, err := s.repo.GetDriver(ctx, id)
	if err != nil {
		return Driver{}, err
	}
	d.Name = name
	d.Phone = cleanDriverPhone(in.Phone)
	if in.Active != nil {
		d.Active = *in.Active
	}
	d.UpdatedAt = s.now()

	if err := s.repo.UpdateDriver(ctx, d); err != nil {
		return Driver{}, err
	}
	return d, nil
}

// DeleteDriver removes a driver. Stops assigned to the driver are kept and
// become unassigned.
func (s *Service) DeleteDriver(ctx context.Context, id string) error {
	if !validUUID(id) {
		return ErrInvalidID
	}
	if err := s.repo.DeleteDriver(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("driver deleted", "driver_id", id)
	return nil
}

func cleanDriverPhone(raw string) string {
	phone, _ := dispatch.CleanPhone(raw)
	return phone
}

// ListStops returns the stops for one delivery date (YYYY-MM-DD), ordered by
// slot or delivery time. An empty date means today.
func (s *Service) ListStops(ctx context.Context, date string) ([]Stop, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, ErrInvalidDate
	}

	stops, err := s.repo.ListStops(ctx, date)
	if err != nil {
		return nil, err
	}
	if stops == nil {
		stops = []Stop{}
	}
	return stops, nil
}

// AssignStop sets a stop's driver and start slot. The slot accepts any time
// format the report parser does and is stored as HH:MM. An empty driverID
// unassigns the stop; an empty slot clears it.
func (s *Service) AssignStop(ctx context.Context, stopID, driverID, slot string) (Stop, error) {
	if !validUUID(stopID) {
		return Stop{}, ErrInvalidID
	}

	if slot = strings.TrimSpace(slot); slot != "" {
		normalized, ok := dispatch.NormalizeTime(slot)
		if !ok {
			return Stop{}, fmt.Errorf("%w (got %q)", ErrInvalidSlot, slot)
		}
		slot = normalized
	}

	if driverID != "" {
		if !validUUID(driverID) {
			return Stop{}, ErrInvalidID
		}
		if _, err := s.repo.GetDriver(ctx, driverID); err != nil {
			return Stop{}, err
		}
	}

	stop, err := s.repo.AssignStop(ctx, stopID, driverID, slot)
	if err != nil {
		return Stop{}, err
	}
	logging.FromContext(ctx).Info("stop assigned",
		"stop_id", stopID, "driver_id", driverID, "slot", slot)
	return stop, nil
}

func (s *Service) DeleteStop(ctx context.Context, id string) error {
	if !validUUID(id) {
		return ErrInvalidID
	}
	return s.repo.DeleteStop(ctx, id)
}
