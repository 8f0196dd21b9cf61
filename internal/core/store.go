package core

// store.go is the Postgres implementation of Repository. Queries are written
// by hand against the tables in schema.sql.

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Store runs queries against a pool or, inside InTx, a transaction.
type Store struct {
	db    DBTX
	begin func(context.Context) (pgx.Tx, error)
	ping  func(context.Context) error
}

// NewStore returns a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, begin: pool.Begin, ping: pool.Ping}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// InTx implements Repository. Nested calls reuse the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(Repository) error) error {
	if s.begin == nil {
		return fn(s)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{db: tx, ping: s.ping}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) ExistingOrderIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT order_id FROM stops WHERE order_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query order ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan order ids: %w", err)
	}
	return ids, nil
}

func (s *Store) CreateImport(ctx context.Context, rec ImportRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO dispatch_imports
			(id, file_name, report_date, total_rows, imported, error_count,
			 warning_count, duplicate_count, driver_id, source_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ToPgUUID(rec.ID), rec.FileName, ToPgDate(rec.ReportDate),
		rec.TotalRows, rec.Imported, rec.ErrorCount, rec.WarningCount, rec.DuplicateCount,
		ToPgUUID(rec.DriverID), ToPgText(rec.SourceIP),
	)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

func (s *Store) InsertStop(ctx context.Context, st Stop) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO stops
			(id, import_id, driver_id, business_name, client_name, address, contact_phone,
			 delivery_time, delivery_date, special_instructions, order_number, order_id,
			 stop_type, source_row)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		ToPgUUID(st.ID), ToPgUUID(st.ImportID), ToPgUUID(st.DriverID),
		ToPgText(st.BusinessName), ToPgText(st.ClientName), st.Address, ToPgText(st.ContactPhone),
		ToPgTime(st.DeliveryTime), ToPgDate(st.DeliveryDate), ToPgText(st.SpecialInstructions),
		ToPgText(st.OrderNumber), ToPgText(st.OrderID), st.StopType, ToPgInt4(st.SourceRow),
	)
	if err != nil {
		return fmt.Errorf("insert stop row %d: %w", st.SourceRow, err)
	}
	return nil
}

func (s *Store) ListImports(ctx context.Context, limit int) ([]ImportRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, file_name, report_date, total_rows, imported, error_count,
		       warning_count, duplicate_count, driver_id, source_ip, created_at
		FROM dispatch_imports
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	defer rows.Close()

	var out []ImportRecord
	for rows.Next() {
		var (
			rec        ImportRecord
			id, driver pgtype.UUID
			date       pgtype.Date
			ip         pgtype.Text
		)
		if err := rows.Scan(&id, &rec.FileName, &date, &rec.TotalRows, &rec.Imported,
			&rec.ErrorCount, &rec.WarningCount, &rec.DuplicateCount, &driver, &ip, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		rec.ID = PgUUIDToString(id)
		rec.DriverID = PgUUIDToString(driver)
		rec.ReportDate = PgDateToString(date)
		rec.SourceIP = ip.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) CreateDriver(ctx context.Context, d Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (id, name, phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		ToPgUUID(d.ID), d.Name, ToPgText(d.Phone), d.Active, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

const driverColumns = `id, name, phone, active, created_at, updated_at`

func scanDriver(row pgx.Row) (Driver, error) {
	var (
		d     Driver
		id    pgtype.UUID
		phone pgtype.Text
	)
	if err := row.Scan(&id, &d.Name, &phone, &d.Active, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return Driver{}, err
	}
	d.ID = PgUUIDToString(id)
	d.Phone = phone.String
	return d, nil
}

func (s *Store) GetDriver(ctx context.Context, id string) (Driver, error) {
	d, err := scanDriver(s.db.QueryRow(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE id = $1`, ToPgUUID(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, ErrDriverNotFound
	}
	if err != nil {
		return Driver{}, fmt.Errorf("get driver: %w", err)
	}
	return d, nil
}

func (s *Store) ListDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query drivers: %w", err)
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDriver(ctx context.Context, d Driver) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers SET name = $2, phone = $3, active = $4, updated_at = $5
		WHERE id = $1`,
		ToPgUUID(d.ID), d.Name, ToPgText(d.Phone), d.Active, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDriverNotFound
	}
	return nil
}

func (s *Store) DeleteDriver(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM drivers WHERE id = $1`, ToPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete driver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDriverNotFound
	}
	return nil
}

const stopColumns = `id, import_id, driver_id, slot, business_name, client_name, address,
	contact_phone, delivery_time, delivery_date, special_instructions, order_number,
	order_id, stop_type, source_row, created_at`

func scanStop(row pgx.Row) (Stop, error) {
	var (
		st                             Stop
		id, importID, driverID         pgtype.UUID
		slot, deliveryTime             pgtype.Time
		date                           pgtype.Date
		business, client, phone, notes pgtype.Text
		orderNumber, orderID           pgtype.Text
		sourceRow                      pgtype.Int4
	)
	if err := row.Scan(&id, &importID, &driverID, &slot, &business, &client, &st.Address,
		&phone, &deliveryTime, &date, &notes, &orderNumber,
		&orderID, &st.StopType, &sourceRow, &st.CreatedAt); err != nil {
		return Stop{}, err
	}
	st.ID = PgUUIDToString(id)
	st.ImportID = PgUUIDToString(importID)
	st.DriverID = PgUUIDToString(driverID)
	st.Slot = PgTimeToString(slot)
	st.BusinessName = business.String
	st.ClientName = client.String
	st.ContactPhone = phone.String
	st.DeliveryTime = PgTimeToString(deliveryTime)
	st.DeliveryDate = PgDateToString(date)
	st.SpecialInstructions = notes.String
	st.OrderNumber = orderNumber.String
	st.OrderID = orderID.String
	st.SourceRow = int(sourceRow.Int32)
	return st, nil
}

func (s *Store) ListStops(ctx context.Context, date string) ([]Stop, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+stopColumns+`
		FROM stops
		WHERE delivery_date = $1
		ORDER BY COALESCE(slot, delivery_time), source_row, id`, ToPgDate(date))
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	var out []Stop
	for rows.Next() {
		st, err := scanStop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stop: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) AssignStop(ctx context.Context, stopID, driverID, slot string) (Stop, error) {
	st, err := scanStop(s.db.QueryRow(ctx, `
		UPDATE stops SET driver_id = $2, slot = $3
		WHERE id = $1
		RETURNING `+stopColumns,
		ToPgUUID(stopID), ToPgUUID(driverID), ToPgTime(slot)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Stop{}, ErrStopNotFound
	}
	if err != nil {
		return Stop{}, fmt.Errorf("assign stop: %w", err)
	}
	return st, nil
}

func (s *Store) DeleteStop(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM stops WHERE id = $1`, ToPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete stop: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStopNotFound
	}
	return nil
}
