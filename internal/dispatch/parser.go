package dispatch

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Parser turns dispatch-report text into deliveries. A Parser holds only
// configuration, so one value may be shared by concurrent callers.
type Parser struct {
	resolver     ColumnResolver
	delimiter    rune
	requireTime  bool
	sniffContent bool
	now          func() time.Time
	logger       *slog.Logger

	addressChain []fieldExtractor
	timeChain    []fieldExtractor
}

// Option configures a Parser.
type Option func(*Parser)

// WithResolver selects how columns are located. The default is
// FixedColumnResolver.
func WithResolver(r ColumnResolver) Option {
	return func(p *Parser) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithDelimiter forces the cell separator. Zero means auto-detect.
func WithDelimiter(d rune) Option {
	return func(p *Parser) { p.delimiter = d }
}

// WithRequireDeliveryTime makes a missing or unreadable time a row error
// instead of a 12:00 default with a warning.
func WithRequireDeliveryTime(require bool) Option {
	return func(p *Parser) { p.requireTime = require }
}

// WithContentSniffing toggles recovery of empty address and time cells from
// other columns.
func WithContentSniffing(enabled bool) Option {
	return func(p *Parser) { p.sniffContent = enabled }
}

// WithClock sets the source of "today" used when a report has no date.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger for per-parse debug summaries.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a Parser with the fixed column layout, delimiter detection,
// defaulted delivery times and content sniffing enabled.
func New(opts ...Option) *Parser {
	p := &Parser{
		resolver:     FixedColumnResolver{},
		sniffContent: true,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.addressChain = []fieldExtractor{positional(addressCol)}
	p.timeChain = []fieldExtractor{positional(timeCol)}
	if p.sniffContent {
		p.addressChain = append(p.addressChain, sniffed("Address", looksLikeAddress))
		p.timeChain = append(p.timeChain, sniffed("Delivery time", looksLikeClock))
	}
	return p
}

// Parse parses a report with the default Parser.
func Parse(fileContent string, existingOrderIDs []string) ParseResult {
	return New().Parse(fileContent, existingOrderIDs)
}

// parseState is the per-call accumulator. It never outlives one Parse.
type parseState struct {
	result     ParseResult
	cols       ColumnMap
	delim      rune
	reportDate string
	// seen maps a normalized order id to the row that introduced it;
	// 0 marks ids supplied by the caller.
	seen map[string]int
}

// Parse extracts deliveries from fileContent. Order ids in existingOrderIDs,
// and ids accepted earlier in the same file, cause later rows with the same
// id (compared trimmed and case-insensitively) to be reported as duplicates.
// Parse never fails: problems are reported in the result's issue lists.
func (p *Parser) Parse(fileContent string, existingOrderIDs []string) ParseResult {
	lines := SplitLines(fileContent)

	st := &parseState{
		result: newResult(),
		delim:  p.delimiter,
		seen:   make(map[string]int, len(existingOrderIDs)),
	}

	if st.delim == 0 {
		st.delim = DetectDelimiter(sampleLines(lines))
	}

	if len(lines) < headerLines+1 {
		st.result.ReportDate = p.today()
		msg := fmt.Sprintf("File is too short: expected %d header lines followed by data rows, found %d line(s)",
			headerLines, len(lines))
		st.result.Errors = append(st.result.Errors, ParseIssue{Row: 0, Message: msg})
		return st.result
	}

	if d, ok := ExtractReportDate(lines[0], st.delim); ok {
		st.reportDate = d
	} else {
		st.reportDate = p.today()
		st.result.Warnings = append(st.result.Warnings, ParseIssue{
			Row:            1,
			Message:        "No report date found in header; using today's date",
			Field:          "deliveryDate",
			CorrectedValue: st.reportDate,
		})
	}
	st.result.ReportDate = st.reportDate

	reserved := make([][]string, 0, headerLines-1)
	for _, line := range lines[1:headerLines] {
		reserved = append(reserved, TokenizeLine(line, st.delim))
	}
	st.cols = p.resolver.Resolve(reserved)
	st.result.ColumnMap = &st.cols

	for _, id := range existingOrderIDs {
		if key := NormalizeOrderID(id); key != "" {
			st.seen[key] = 0
		}
	}

	for i := headerLines; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		p.processRowSafely(st, i+1, lines[i])
	}

	st.result.TotalRows = len(lines) - headerLines
	st.result.SuccessfulRows = len(st.result.Deliveries)

	p.logger.Debug("dispatch report parsed",
		"report_date", st.result.ReportDate,
		"resolver", p.resolver.Name(),
		"total_rows", st.result.TotalRows,
		"deliveries", st.result.SuccessfulRows,
		"errors", len(st.result.Errors),
		"warnings", len(st.result.Warnings),
		"duplicates", len(st.result.Duplicates),
	)

	return st.result
}

// processRowSafely turns a panic inside row handling into a row error so
// the remaining rows are still parsed.
func (p *Parser) processRowSafely(st *parseState, row int, line string) {
	defer func() {
		if r := recover(); r != nil {
			st.result.Errors = append(st.result.Errors, ParseIssue{
				Row:     row,
				Message: fmt.Sprint(r),
			})
		}
	}()
	p.processRow(st, row, line)
}

func (p *Parser) processRow(st *parseState, row int, line string) {
	cells := TokenizeLine(line, st.delim)
	if isBlankRow(cells) {
		return
	}

	cols := st.cols
	if need := cols.MinCells(); len(cells) < need {
		st.addError(row, ParseIssue{
			Message: fmt.Sprintf("Row has %d columns, expected at least %d", len(cells), need),
			Value:   line,
		})
		return
	}

	var warnings []ParseIssue
	warn := func(issue ParseIssue) {
		issue.Row = row
		warnings = append(warnings, issue)
	}

	address, note := extractField(cells, cols, p.addressChain...)
	if note != "" {
		warn(ParseIssue{Message: note, Field: "address", CorrectedValue: address})
	}
	rawTime, note := extractField(cells, cols, p.timeChain...)
	if note != "" {
		warn(ParseIssue{Message: note, Field: "deliveryTime", OriginalValue: rawTime})
	}

	address, phone, fixes := reconcileContact(address, cell(cells, cols.ContactPhone))
	for _, f := range fixes {
		warn(f)
	}

	if address == "" {
		st.addError(row, ParseIssue{
			Message: "Missing required field: address",
			Field:   "address",
		})
		return
	}

	deliveryTime, ok := NormalizeTime(rawTime)
	switch {
	case !ok && p.requireTime:
		msg := "Missing required field: deliveryTime"
		if rawTime != "" {
			msg = fmt.Sprintf("Unrecognized delivery time %q", rawTime)
		}
		st.addError(row, ParseIssue{Message: msg, Field: "deliveryTime", Value: rawTime})
		return
	case !ok:
		deliveryTime = DefaultDeliveryTime
		msg := "Delivery time missing; defaulted to " + DefaultDeliveryTime
		if rawTime != "" {
			msg = "Unrecognized delivery time; defaulted to " + DefaultDeliveryTime
		}
		warn(ParseIssue{Message: msg, Field: "deliveryTime", OriginalValue: rawTime, CorrectedValue: deliveryTime})
	case deliveryTime != rawTime && deliveryTime != "0"+rawTime:
		warn(ParseIssue{
			Message:        "Converted delivery time to 24-hour format",
			Field:          "deliveryTime",
			OriginalValue:  rawTime,
			CorrectedValue: deliveryTime,
		})
	}

	orderID := cell(cells, cols.OrderID)
	key := NormalizeOrderID(orderID)
	if firstRow, dup := st.seen[key]; key != "" && dup {
		msg := fmt.Sprintf("Order %s was already imported", orderID)
		if firstRow > 0 {
			msg = fmt.Sprintf("Order %s duplicates row %d", orderID, firstRow)
		}
		st.result.Duplicates = append(st.result.Duplicates, ParseIssue{
			Row:     row,
			Message: msg,
			Field:   "orderId",
			Value:   orderID,
			OrderID: orderID,
		})
		return
	}

	st.result.Deliveries = append(st.result.Deliveries, ParsedDelivery{
		BusinessName:        cell(cells, cols.BusinessName),
		ClientName:          cell(cells, cols.ClientName),
		Address:             address,
		ContactPhone:        phone,
		DeliveryTime:        deliveryTime,
		DeliveryDate:        st.reportDate,
		SpecialInstructions: cell(cells, cols.Notes),
		OrderNumber:         cell(cells, cols.OrderNumber),
		OrderID:             orderID,
		StopType:            StopTypeDelivery,
		Row:                 row,
	})
	if key != "" {
		st.seen[key] = row
	}
	st.result.Warnings = append(st.result.Warnings, warnings...)
}

func (st *parseState) addError(row int, issue ParseIssue) {
	issue.Row = row
	st.result.Errors = append(st.result.Errors, issue)
}

func (p *Parser) today() string {
	return p.now().Format("2006-01-02")
}

// NormalizeOrderID is the comparison key for duplicate detection.
func NormalizeOrderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// sampleLines returns the data lines used for delimiter detection, falling
// back to the header when the file has no data yet.
func sampleLines(lines []string) []string {
	if len(lines) > headerLines {
		end := min(len(lines), headerLines+10)
		return lines[headerLines:end]
	}
	return lines
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if CleanField(c) != "" {
			return false
		}
	}
	return true
}
