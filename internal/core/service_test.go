package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/dispatch/internal/config"
	"github.com/JonMunkholm/dispatch/internal/dispatch"
	"github.com/xuri/excelize/v2"
)

// fakeRepo is an in-memory Repository. InTx restores a snapshot when fn
// fails, and InsertStop enforces the order id uniqueness the schema does.
type fakeRepo struct {
	mu      sync.Mutex
	drivers map[string]Driver
	stops   map[string]Stop
	imports []ImportRecord

	// failInsertAt makes the nth InsertStop call (1-based) fail.
	failInsertAt int
	inserts      int
	lastLimit    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		drivers: make(map[string]Driver),
		stops:   make(map[string]Stop),
	}
}

func (f *fakeRepo) InTx(ctx context.Context, fn func(Repository) error) error {
	f.mu.Lock()
	drivers := make(map[string]Driver, len(f.drivers))
	for k, v := range f.drivers {
		drivers[k] = v
	}
	stops := make(map[string]Stop, len(f.stops))
	for k, v := range f.stops {
		stops[k] = v
	}
	imports := append([]ImportRecord(nil), f.imports...)
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.drivers, f.stops, f.imports = drivers, stops, imports
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeRepo) ExistingOrderIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, st := range f.stops {
		if st.OrderID != "" {
			ids = append(ids, st.OrderID)
		}
	}
	return ids, nil
}

func (f *fakeRepo) CreateImport(ctx context.Context, rec ImportRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, rec)
	return nil
}

func (f *fakeRepo) InsertStop(ctx context.Context, st Stop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.failInsertAt > 0 && f.inserts == f.failInsertAt {
		return errors.New("connection reset by peer")
	}
	key := dispatch.NormalizeOrderID(st.OrderID)
	for _, other := range f.stops {
		if key != "" && dispatch.NormalizeOrderID(other.OrderID) == key {
			return errors.New(`duplicate key value violates unique constraint "stops_order_id_key"`)
		}
	}
	f.stops[st.ID] = st
	return nil
}

func (f *fakeRepo) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	out := make([]ImportRecord, 0, len(f.imports))
	for i := len(f.imports) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.imports[i])
	}
	return out, nil
}

func (f *fakeRepo) CreateDriver(ctx context.Context, d Driver) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drivers[d.ID] = d
	return nil
}

func (f *fakeRepo) GetDriver(ctx context.Context, id string) (Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drivers[id]
	if !ok {
		return Driver{}, ErrDriverNotFound
	}
	return d, nil
}

func (f *fakeRepo) ListDrivers(ctx context.Context) ([]Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Driver
	for _, d := range f.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) UpdateDriver(ctx context.Context, d Driver) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.drivers[d.ID]; !ok {
		return ErrDriverNotFound
	}
	f.drivers[d.ID] = d
	return nil
}

func (f *fakeRepo) DeleteDriver(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.drivers[id]; !ok {
		return ErrDriverNotFound
	}
	delete(f.drivers, id)
	for k, st := range f.stops {
		if st.DriverID == id {
			st.DriverID = ""
			f.stops[k] = st
		}
	}
	return nil
}

func (f *fakeRepo) ListStops(ctx context.Context, date string) ([]Stop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Stop
	for _, st := range f.stops {
		if st.DeliveryDate == date {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceRow < out[j].SourceRow })
	return out, nil
}

func (f *fakeRepo) AssignStop(ctx context.Context, stopID, driverID, slot string) (Stop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stops[stopID]
	if !ok {
		return Stop{}, ErrStopNotFound
	}
	st.DriverID, st.Slot = driverID, slot
	f.stops[stopID] = st
	return st, nil
}

func (f *fakeRepo) DeleteStop(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stops[id]; !ok {
		return ErrStopNotFound
	}
	delete(f.stops, id)
	return nil
}

func (f *fakeRepo) Ping(ctx context.Context) error { return nil }

func (f *fakeRepo) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stops)
}

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			MaxFileSize:     1 << 20,
			MaxConcurrent:   2,
			MaxWaitTime:     50 * time.Millisecond,
			Timeout:         5 * time.Second,
			ColumnMode:      "fixed",
			ContentSniffing: true,
			Delimiter:       "auto",
		},
	}
}

func newTestService(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, testConfig())
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

// dispatchReport builds a three-line header followed by rows in the fixed
// 14-column layout.
func dispatchReport(rows ...string) string {
	lines := append([]string{
		"Dispatch Report - 04/15/2025",
		"Generated by RouteDesk",
		"Order,Time,,,,Client,Business,Order ID,,,Address,Phone,,Notes",
	}, rows...)
	return strings.Join(lines, "\n") + "\n"
}

const (
	rowOrd1      = "1001,1:30 PM,,,,Jane Doe,Acme Inc,ORD-1,,,123 Main Street,555-123-4567,,Fragile"
	rowOrd2      = "1002,09:15,,,,Sam Lee,,ORD-2,,,45 King St W,,,"
	rowNoAddress = "1003,10:00,,,,Bob,,ORD-3,,,,,,"
)

func TestService_PreviewImport(t *testing.T) {
	svc, repo := newTestService(t)
	content := dispatchReport(rowOrd1, rowOrd2, rowNoAddress)

	result, err := svc.PreviewImport(context.Background(), "board.csv", strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("PreviewImport() error = %v", err)
	}

	if result.ReportDate != "2025-04-15" {
		t.Errorf("ReportDate = %q, want %q", result.ReportDate, "2025-04-15")
	}
	if len(result.Deliveries) != 2 {
		t.Errorf("len(Deliveries) = %d, want 2", len(result.Deliveries))
	}
	if len(result.Errors) != 1 || result.Errors[0].Field != "address" {
		t.Errorf("Errors = %+v, want one address error", result.Errors)
	}
	if n := repo.stopCount(); n != 0 {
		t.Errorf("preview wrote %d stops, want 0", n)
	}
	if got := svc.LimiterStatus().Active; got != 0 {
		t.Errorf("limiter Active after preview = %d, want 0", got)
	}
}

func TestService_CommitImport(t *testing.T) {
	svc, repo := newTestService(t)
	content := dispatchReport(rowOrd1, rowOrd2, rowNoAddress)
	ctx := WithSource(context.Background(), Source{IP: "10.0.0.7", UserAgent: "curl/8.5"})

	res, err := svc.CommitImport(ctx, "board.csv", strings.NewReader(content), 0, "")
	if err != nil {
		t.Fatalf("CommitImport() error = %v", err)
	}

	if res.Inserted != 2 || len(res.StopIDs) != 2 {
		t.Errorf("Inserted = %d, StopIDs = %v; want 2 stops", res.Inserted, res.StopIDs)
	}
	if n := repo.stopCount(); n != 2 {
		t.Errorf("repo has %d stops, want 2", n)
	}
	if len(repo.imports) != 1 {
		t.Fatalf("repo has %d imports, want 1", len(repo.imports))
	}

	rec := repo.imports[0]
	if rec.ID != res.ImportID {
		t.Errorf("import record ID = %q, want %q", rec.ID, res.ImportID)
	}
	if rec.SourceIP != "10.0.0.7" {
		t.Errorf("SourceIP = %q, want %q", rec.SourceIP, "10.0.0.7")
	}
	if rec.ReportDate != "2025-04-15" || rec.Imported != 2 || rec.ErrorCount != 1 || rec.TotalRows != 3 {
		t.Errorf("import record = %+v, want date 2025-04-15, 2 imported, 1 error, 3 rows", rec)
	}

	stop := repo.stops[res.StopIDs[0]]
	if stop.ImportID != res.ImportID {
		t.Errorf("stop ImportID = %q, want %q", stop.ImportID, res.ImportID)
	}
	if stop.OrderID != "ORD-1" || stop.DeliveryTime != "13:30" || stop.ContactPhone != "(555) 123-4567" {
		t.Errorf("first stop = %+v", stop)
	}
}

func TestService_CommitImport_DuplicatesAcrossImports(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	first := dispatchReport(rowOrd1)
	if _, err := svc.CommitImport(ctx, "a.csv", strings.NewReader(first), 0, ""); err != nil {
		t.Fatalf("first CommitImport() error = %v", err)
	}

	second := dispatchReport(strings.Replace(rowOrd1, "ORD-1", " ord-1 ", 1), rowOrd2)
	res, err := svc.CommitImport(ctx, "b.csv", strings.NewReader(second), 0, "")
	if err != nil {
		t.Fatalf("second CommitImport() error = %v", err)
	}

	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
	if len(res.Result.Duplicates) != 1 {
		t.Fatalf("Duplicates = %+v, want 1", res.Result.Duplicates)
	}
	if !strings.Contains(res.Result.Duplicates[0].Message, "already imported") {
		t.Errorf("duplicate message = %q, want it to mention an earlier import", res.Result.Duplicates[0].Message)
	}
	if n := repo.stopCount(); n != 2 {
		t.Errorf("repo has %d stops, want 2", n)
	}
}

func TestService_CommitImport_RollsBack(t *testing.T) {
	svc, repo := newTestService(t)
	repo.failInsertAt = 2

	content := dispatchReport(rowOrd1, rowOrd2)
	_, err := svc.CommitImport(context.Background(), "board.csv", strings.NewReader(content), 0, "")
	if err == nil {
		t.Fatal("CommitImport() error = nil, want insert failure")
	}
	if got := MapError(err).Code; got != "DB004" {
		t.Errorf("MapError code = %q, want DB004", got)
	}
	if n := repo.stopCount(); n != 0 {
		t.Errorf("repo has %d stops after rollback, want 0", n)
	}
	if len(repo.imports) != 0 {
		t.Errorf("repo has %d imports after rollback, want 0", len(repo.imports))
	}
}

func TestService_CommitImport_AssignsDriver(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	d, err := svc.CreateDriver(ctx, DriverInput{Name: "Alex"})
	if err != nil {
		t.Fatalf("CreateDriver() error = %v", err)
	}

	content := dispatchReport(rowOrd1)
	res, err := svc.CommitImport(ctx, "board.csv", strings.NewReader(content), 0, d.ID)
	if err != nil {
		t.Fatalf("CommitImport() error = %v", err)
	}
	if got := repo.stops[res.StopIDs[0]].DriverID; got != d.ID {
		t.Errorf("stop DriverID = %q, want %q", got, d.ID)
	}
}

func TestService_CommitImport_DriverErrors(t *testing.T) {
	svc, _ := newTestService(t)
	content := dispatchReport(rowOrd1)

	tests := []struct {
		name     string
		driverID string
		wantErr  error
	}{
		{"malformed id", "driver-7", ErrInvalidID},
		{"unknown driver", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", ErrDriverNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CommitImport(context.Background(), "board.csv", strings.NewReader(content), 0, tt.driverID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CommitImport() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_ImportRejectsFiles(t *testing.T) {
	svc, _ := newTestService(t)
	content := dispatchReport(rowOrd1)

	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr error
	}{
		{"declared size over limit", "board.csv", 2 << 20, ErrFileTooLarge},
		{"unsupported extension", "board.pdf", 0, ErrUnsupportedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PreviewImport(context.Background(), tt.file, strings.NewReader(content), tt.size)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PreviewImport() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := svc.LimiterStatus().Active; got != 0 {
		t.Errorf("limiter Active after rejected files = %d, want 0", got)
	}
}

func TestService_ImportBusy(t *testing.T) {
	svc, _ := newTestService(t)

	for i := 0; i < svc.limiter.MaxConcurrent(); i++ {
		if !svc.limiter.TryAcquire() {
			t.Fatal("TryAcquire failed on idle limiter")
		}
		defer svc.limiter.Release()
	}

	content := dispatchReport(rowOrd1)
	_, err := svc.PreviewImport(context.Background(), "board.csv", strings.NewReader(content), 0)
	if !errors.Is(err, ErrTooManyImports) {
		t.Errorf("PreviewImport() error = %v, want ErrTooManyImports", err)
	}
}

func TestService_PreviewWorkbookIgnoresTextDelimiter(t *testing.T) {
	repo := newFakeRepo()
	cfg := testConfig()
	cfg.Import.Delimiter = "tab"
	svc := NewService(repo, cfg)

	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Dispatch Report - 04/15/2025"},
		{"Generated by RouteDesk"},
		{"Order", "Time"},
		{"1001", "1:30 PM", "", "", "", "Jane Doe", "Acme Inc", "ORD-1", "", "", "123 Main Street", "555-123-4567", "", "Fragile"},
	}
	for i, row := range rows {
		if err := f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	result, err := svc.PreviewImport(context.Background(), "board.xlsx", buf, 0)
	if err != nil {
		t.Fatalf("PreviewImport() error = %v", err)
	}
	if len(result.Deliveries) != 1 {
		t.Fatalf("Deliveries = %+v, Errors = %+v; want 1 delivery", result.Deliveries, result.Errors)
	}
	if got := result.Deliveries[0].Address; got != "123 Main Street" {
		t.Errorf("Address = %q, want %q", got, "123 Main Street")
	}
}

func TestService_Drivers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateDriver(ctx, DriverInput{Name: "   "}); !errors.Is(err, ErrDriverNameRequired) {
		t.Errorf("CreateDriver(blank) error = %v, want ErrDriverNameRequired", err)
	}

	d, err := svc.CreateDriver(ctx, DriverInput{Name: " Alex ", Phone: "555.123.4567"})
	if err != nil {
		t.Fatalf("CreateDriver() error = %v", err)
	}
	if d.Name != "Alex" || d.Phone != "(555) 123-4567" || !d.Active {
		t.Errorf("CreateDriver() = %+v, want trimmed name, formatted phone, active", d)
	}
	if !d.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, testNow)
	}

	inactive := false
	updated, err := svc.UpdateDriver(ctx, d.ID, DriverInput{Name: "Alex B", Active: &inactive})
	if err != nil {
		t.Fatalf("UpdateDriver() error = %v", err)
	}
	if updated.Name != "Alex B" || updated.Active || updated.Phone != "" {
		t.Errorf("UpdateDriver() = %+v", updated)
	}

	drivers, err := svc.ListDrivers(ctx)
	if err != nil || len(drivers) != 1 {
		t.Fatalf("ListDrivers() = %v, %v; want 1 driver", drivers, err)
	}

	if err := svc.DeleteDriver(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDriver() error = %v", err)
	}
	if err := svc.DeleteDriver(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteDriver() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetDriver(ctx, "nope"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("GetDriver(nope) error = %v, want ErrInvalidID", err)
	}

	drivers, err = svc.ListDrivers(ctx)
	if err != nil || drivers == nil || len(drivers) != 0 {
		t.Errorf("ListDrivers() after delete = %#v, %v; want empty non-nil slice", drivers, err)
	}
}

func TestService_AssignStop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	d, err := svc.CreateDriver(ctx, DriverInput{Name: "Alex"})
	if err != nil {
		t.Fatalf("CreateDriver() error = %v", err)
	}
	content := dispatchReport(rowOrd1)
	res, err := svc.CommitImport(ctx, "board.csv", strings.NewReader(content), 0, "")
	if err != nil {
		t.Fatalf("CommitImport() error = %v", err)
	}
	stopID := res.StopIDs[0]

	tests := []struct {
		name     string
		stopID   string
		driverID string
		slot     string
		wantSlot string
		wantErr  error
	}{
		{"12-hour slot", stopID, d.ID, "2:30 PM", "14:30", nil},
		{"military slot", stopID, d.ID, "0915", "09:15", nil},
		{"unassign", stopID, "", "", "", nil},
		{"bad slot", stopID, d.ID, "soon", "", ErrInvalidSlot},
		{"unknown stop", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", d.ID, "10:00", "", ErrStopNotFound},
		{"unknown driver", stopID, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", "10:00", "", ErrDriverNotFound},
		{"malformed stop id", "7", d.ID, "10:00", "", ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.AssignStop(ctx, tt.stopID, tt.driverID, tt.slot)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("AssignStop() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("AssignStop() error = %v", err)
			}
			if got.Slot != tt.wantSlot || got.DriverID != tt.driverID {
				t.Errorf("AssignStop() = slot %q driver %q, want slot %q driver %q",
					got.Slot, got.DriverID, tt.wantSlot, tt.driverID)
			}
		})
	}
}

func TestService_ListStops(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	content := dispatchReport(rowOrd1, rowOrd2)
	if _, err := svc.CommitImport(ctx, "board.csv", strings.NewReader(content), 0, ""); err != nil {
		t.Fatalf("CommitImport() error = %v", err)
	}

	stops, err := svc.ListStops(ctx, "2025-04-15")
	if err != nil {
		t.Fatalf("ListStops() error = %v", err)
	}
	if len(stops) != 2 {
		t.Errorf("ListStops(2025-04-15) returned %d stops, want 2", len(stops))
	}

	today, err := svc.ListStops(ctx, "")
	if err != nil || today == nil || len(today) != 0 {
		t.Errorf("ListStops(today) = %v, %v; want empty non-nil slice", today, err)
	}

	if _, err := svc.ListStops(ctx, "04/15/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("ListStops(04/15/2025) error = %v, want ErrInvalidDate", err)
	}

	if err := svc.DeleteStop(ctx, stops[0].ID); err != nil {
		t.Fatalf("DeleteStop() error = %v", err)
	}
	if err := svc.DeleteStop(ctx, stops[0].ID); !errors.Is(err, ErrStopNotFound) {
		t.Errorf("second DeleteStop() error = %v, want ErrStopNotFound", err)
	}
}

func TestService_ListImports(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultHistoryLimit},
		{-3, DefaultHistoryLimit},
		{5, 5},
		{10_000, MaxHistoryLimit},
	}
	for _, tt := range tests {
		records, err := svc.ListImports(ctx, tt.limit)
		if err != nil {
			t.Fatalf("ListImports(%d) error = %v", tt.limit, err)
		}
		if records == nil {
			t.Errorf("ListImports(%d) returned nil, want empty slice", tt.limit)
		}
		if repo.lastLimit != tt.want {
			t.Errorf("ListImports(%d) queried limit %d, want %d", tt.limit, repo.lastLimit, tt.want)
		}
	}
}

func TestService_ConcurrentCommitsDoNotDuplicate(t *testing.T) {
	svc, repo := newTestService(t)
	content := dispatchReport(rowOrd1, rowOrd2)

	var wg sync.WaitGroup
	inserted := make([]int, 2)
	for i := range inserted {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.CommitImport(context.Background(), "board.csv", strings.NewReader(content), 0, "")
			if err != nil {
				t.Errorf("CommitImport() error = %v", err)
				return
			}
			inserted[i] = res.Inserted
		}()
	}
	wg.Wait()

	if total := inserted[0] + inserted[1]; total != 2 {
		t.Errorf("concurrent commits inserted %d stops in total, want 2", total)
	}
	if n := repo.stopCount(); n != 2 {
		t.Errorf("repo has %d stops, want 2", n)
	}
}
