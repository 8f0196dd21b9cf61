package dispatch

// StopTypeDelivery is the stop type assigned to every imported row.
const StopTypeDelivery = "delivery"

// DefaultDeliveryTime is substituted when a row has no usable time.
const DefaultDeliveryTime = "12:00"

// headerLines is the number of report/metadata lines before the first data row.
const headerLines = 3

// ParsedDelivery is one delivery recovered from a data row.
type ParsedDelivery struct {
	BusinessName        string `json:"businessName" yaml:"businessName"`
	ClientName          string `json:"clientName" yaml:"clientName"`
	Address             string `json:"address" yaml:"address"`
	ContactPhone        string `json:"contactPhone" yaml:"contactPhone"`
	DeliveryTime        string `json:"deliveryTime" yaml:"deliveryTime"`
	DeliveryDate        string `json:"deliveryDate" yaml:"deliveryDate"`
	SpecialInstructions string `json:"specialInstructions" yaml:"specialInstructions"`
	OrderNumber         string `json:"orderNumber" yaml:"orderNumber"`
	OrderID             string `json:"orderId" yaml:"orderId"`
	StopType            string `json:"stopType" yaml:"stopType"`
	Row                 int    `json:"row" yaml:"row"`
}

// ParseIssue describes an error, warning or duplicate tied to a source row.
// Row is the 1-based physical line number; 0 means the file as a whole.
type ParseIssue struct {
	Row            int    `json:"row" yaml:"row"`
	Message        string `json:"message" yaml:"message"`
	Field          string `json:"field,omitempty" yaml:"field,omitempty"`
	OriginalValue  string `json:"originalValue,omitempty" yaml:"originalValue,omitempty"`
	CorrectedValue string `json:"correctedValue,omitempty" yaml:"correctedValue,omitempty"`
	Value          string `json:"value,omitempty" yaml:"value,omitempty"`
	OrderID        string `json:"orderId,omitempty" yaml:"orderId,omitempty"`
}

// ParseResult is everything recovered from one report.
type ParseResult struct {
	ReportDate     string           `json:"reportDate" yaml:"reportDate"`
	Deliveries     []ParsedDelivery `json:"deliveries" yaml:"deliveries"`
	TotalRows      int              `json:"totalRows" yaml:"totalRows"`
	SuccessfulRows int              `json:"successfulRows" yaml:"successfulRows"`
	Errors         []ParseIssue     `json:"errors" yaml:"errors"`
	Warnings       []ParseIssue     `json:"warnings" yaml:"warnings"`
	Duplicates     []ParseIssue     `json:"duplicates" yaml:"duplicates"`
	ColumnMap      *ColumnMap       `json:"columnMap,omitempty" yaml:"columnMap,omitempty"`
}

// HasErrors reports whether any row was rejected for a reason other than
// being a duplicate.
func (r ParseResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// OrderIDs returns the non-empty order ids of the accepted deliveries.
func (r ParseResult) OrderIDs() []string {
	ids := make([]string, 0, len(r.Deliveries))
	for _, d := range r.Deliveries {
		if d.OrderID != "" {
			ids = append(ids, d.OrderID)
		}
	}
	return ids
}

func newResult() ParseResult {
	return ParseResult{
		Deliveries: []ParsedDelivery{},
		Errors:     []ParseIssue{},
		Warnings:   []ParseIssue{},
		Duplicates: []ParseIssue{},
	}
}
