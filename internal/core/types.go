package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/dispatch/internal/dispatch"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Repository is the persistence the Service needs. Store implements it on
// Postgres; tests use an in-memory fake.
type Repository interface {
	// InTx runs fn against a repository bound to one transaction. fn's error
	// rolls the transaction back.
	InTx(ctx context.Context, fn func(Repository) error) error

	ExistingOrderIDs(ctx context.Context) ([]string, error)
	CreateImport(ctx context.Context, rec ImportRecord) error
	InsertStop(ctx context.Context, stop Stop) error
	ListImports(ctx context.Context, limit int) ([]ImportRecord, error)

	CreateDriver(ctx context.Context, d Driver) error
	GetDriver(ctx context.Context, id string) (Driver, error)
	ListDrivers(ctx context.Context) ([]Driver, error)
	UpdateDriver(ctx context.Context, d Driver) error
	DeleteDriver(ctx context.Context, id string) error

	ListStops(ctx context.Context, date string) ([]Stop, error)
	AssignStop(ctx context.Context, stopID, driverID, slot string) (Stop, error)
	DeleteStop(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

// Driver is a person stops can be assigned to.
type Driver struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DriverInput carries the editable driver fields. A nil Active keeps the
// current value on update and defaults to true on create.
type DriverInput struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Active *bool  `json:"active,omitempty"`
}

// Stop is a persisted delivery.
type Stop struct {
	ID       string `json:"id"`
	ImportID string `json:"importId,omitempty"`
	DriverID string `json:"driverId,omitempty"`
	// Slot is the assigned HH:MM start time; empty until the stop is assigned.
	Slot string `json:"slot,omitempty"`

	BusinessName        string `json:"businessName"`
	ClientName          string `json:"clientName"`
	Address             string `json:"address"`
	ContactPhone        string `json:"contactPhone"`
	DeliveryTime        string `json:"deliveryTime"`
	DeliveryDate        string `json:"deliveryDate"`
	SpecialInstructions string `json:"specialInstructions"`
	OrderNumber         string `json:"orderNumber"`
	OrderID             string `json:"orderId"`
	StopType            string `json:"stopType"`
	SourceRow           int    `json:"sourceRow,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// stopFromDelivery maps a parsed delivery onto a new stop row.
func stopFromDelivery(id, importID, driverID string, d dispatch.ParsedDelivery) Stop {
	return Stop{
		ID:                  id,
		ImportID:            importID,
		DriverID:            driverID,
		BusinessName:        d.BusinessName,
		ClientName:          d.ClientName,
		Address:             d.Address,
		ContactPhone:        d.ContactPhone,
		DeliveryTime:        d.DeliveryTime,
		DeliveryDate:        d.DeliveryDate,
		SpecialInstructions: d.SpecialInstructions,
		OrderNumber:         d.OrderNumber,
		OrderID:             d.OrderID,
		StopType:            d.StopType,
		SourceRow:           d.Row,
	}
}

// ImportRecord is one entry of the import history.
type ImportRecord struct {
	ID             string    `json:"id"`
	FileName       string    `json:"fileName"`
	ReportDate     string    `json:"reportDate"`
	TotalRows      int       `json:"totalRows"`
	Imported       int       `json:"imported"`
	ErrorCount     int       `json:"errorCount"`
	WarningCount   int       `json:"warningCount"`
	DuplicateCount int       `json:"duplicateCount"`
	DriverID       string    `json:"driverId,omitempty"`
	SourceIP       string    `json:"sourceIp,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ImportResult is returned by CommitImport.
type ImportResult struct {
	ImportID string               `json:"importId"`
	FileName string               `json:"fileName"`
	Inserted int                  `json:"inserted"`
	StopIDs  []string             `json:"stopIds"`
	Result   dispatch.ParseResult `json:"result"`
	Duration time.Duration        `json:"duration"`
}
