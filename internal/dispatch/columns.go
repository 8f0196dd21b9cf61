package dispatch

import "strings"

// ColumnMap holds the 0-based cell index of each field. -1 means the field
// is not present in the report.
type ColumnMap struct {
	OrderNumber  int `json:"orderNumber" yaml:"orderNumber"`
	DeliveryTime int `json:"deliveryTime" yaml:"deliveryTime"`
	ClientName   int `json:"clientName" yaml:"clientName"`
	BusinessName int `json:"businessName" yaml:"businessName"`
	OrderID      int `json:"orderId" yaml:"orderId"`
	Address      int `json:"address" yaml:"address"`
	ContactPhone int `json:"contactPhone" yaml:"contactPhone"`
	Notes        int `json:"notes" yaml:"notes"`
}

// DefaultColumnMap is the fixed positional layout of a dispatch report row.
var DefaultColumnMap = ColumnMap{
	OrderNumber:  0,
	DeliveryTime: 1,
	ClientName:   5,
	BusinessName: 6,
	OrderID:      7,
	Address:      10,
	ContactPhone: 11,
	Notes:        13,
}

// MinCells is the number of cells a row needs to reach the essential
// fields (address and delivery time).
func (m ColumnMap) MinCells() int {
	return max(m.Address, m.DeliveryTime) + 1
}

// indices returns every mapped position, used to keep content sniffing away
// from cells that already belong to a field.
func (m ColumnMap) indices() []int {
	return []int{m.OrderNumber, m.DeliveryTime, m.ClientName, m.BusinessName,
		m.OrderID, m.Address, m.ContactPhone, m.Notes}
}

// ColumnResolver decides where each field lives, given the tokenized
// reserved lines that follow the report-date line.
type ColumnResolver interface {
	Resolve(reserved [][]string) ColumnMap
	Name() string
}

// FixedColumnResolver always returns DefaultColumnMap.
type FixedColumnResolver struct{}

func (FixedColumnResolver) Resolve([][]string) ColumnMap { return DefaultColumnMap }

func (FixedColumnResolver) Name() string { return "fixed" }

// headerAliases maps normalized header text to the field it names.
var headerAliases = map[string]string{
	"order":                "orderNumber",
	"order #":              "orderNumber",
	"order no":             "orderNumber",
	"order number":         "orderNumber",
	"#":                    "orderNumber",
	"time":                 "deliveryTime",
	"delivery time":        "deliveryTime",
	"del time":             "deliveryTime",
	"eta":                  "deliveryTime",
	"window":               "deliveryTime",
	"client":               "clientName",
	"client name":          "clientName",
	"contact":              "clientName",
	"contact name":         "clientName",
	"customer":             "clientName",
	"customer name":        "clientName",
	"business":             "businessName",
	"business name":        "businessName",
	"company":              "businessName",
	"company name":         "businessName",
	"order id":             "orderId",
	"orderid":              "orderId",
	"reference":            "orderId",
	"ref":                  "orderId",
	"address":              "address",
	"delivery address":     "address",
	"ship to":              "address",
	"street":               "address",
	"phone":                "contactPhone",
	"contact phone":        "contactPhone",
	"telephone":            "contactPhone",
	"tel":                  "contactPhone",
	"notes":                "notes",
	"note":                 "notes",
	"instructions":         "notes",
	"special instructions": "notes",
	"comments":             "notes",
}

// HeaderDetectingResolver looks for column headers in the reserved lines and
// falls back to DefaultColumnMap for any field it cannot find.
type HeaderDetectingResolver struct{}

func (HeaderDetectingResolver) Name() string { return "header" }

func (HeaderDetectingResolver) Resolve(reserved [][]string) ColumnMap {
	m := DefaultColumnMap
	found := make(map[string]bool)

	for _, cells := range reserved {
		for i, c := range cells {
			field, ok := headerAliases[normalizeHeader(c)]
			if !ok || found[field] {
				continue
			}
			found[field] = true
			setField(&m, field, i)
		}
	}
	return m
}

func normalizeHeader(s string) string {
	s = strings.ToLower(CleanField(s))
	s = strings.TrimRight(s, ":.")
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
}

func setField(m *ColumnMap, field string, idx int) {
	switch field {
	case "orderNumber":
		m.OrderNumber = idx
	case "deliveryTime":
		m.DeliveryTime = idx
	case "clientName":
		m.ClientName = idx
	case "businessName":
		m.BusinessName = idx
	case "orderId":
		m.OrderID = idx
	case "address":
		m.Address = idx
	case "contactPhone":
		m.ContactPhone = idx
	case "notes":
		m.Notes = idx
	}
}

// ResolverByName returns the resolver for "fixed" or "header". Unknown names
// resolve to the fixed layout.
func ResolverByName(name string) ColumnResolver {
	if strings.EqualFold(strings.TrimSpace(name), "header") {
		return HeaderDetectingResolver{}
	}
	return FixedColumnResolver{}
}
