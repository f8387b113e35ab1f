// Package snapshot normalizes raw order records into the display form the
// console renders. Mapping is pure: no I/O, no mutation of inputs, and money
// values are carried as the decimal strings upstream produced, never re-rounded.
package snapshot

import (
	"strings"

	"brewdesk-alert-services/internal/orderapi"
)

type Fulfillment string

const (
	FulfillmentTable    Fulfillment = "table"
	FulfillmentPacking  Fulfillment = "packing"
	FulfillmentDelivery Fulfillment = "delivery"
)

// ParseFulfillment normalizes upstream spellings of the order type. Unknown
// values fall back to table service, which renders the table-number field.
func ParseFulfillment(raw string) Fulfillment {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "packing", "takeaway", "pickup":
		return FulfillmentPacking
	case "delivery":
		return FulfillmentDelivery
	default:
		return FulfillmentTable
	}
}

type LineItem struct {
	Name      string `json:"name"`
	Variant   string `json:"variant,omitempty"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type Snapshot struct {
	ID            string      `json:"id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Fulfillment   Fulfillment `json:"fulfillment"`
	TableNumber   string      `json:"table_no,omitempty"`
	Address       string      `json:"address,omitempty"`
	Items         []LineItem  `json:"items"`
	ItemCount     int         `json:"item_count"`
	Total         string      `json:"total"`
}

// Location returns the field the fulfillment type makes meaningful: the table
// number for table and packing orders, the delivery address for delivery. The
// other field is ignored even when populated.
func (s Snapshot) Location() string {
	if s.Fulfillment == FulfillmentDelivery {
		return s.Address
	}
	return s.TableNumber
}

// FromRecord maps a raw order record from the order API into a display snapshot.
func FromRecord(rec orderapi.Record) Snapshot {
	items := make([]LineItem, 0, len(rec.Items))
	for _, it := range rec.Items {
		items = append(items, LineItem{
			Name:      strings.TrimSpace(it.ProductName),
			Variant:   strings.TrimSpace(it.Variant),
			Quantity:  it.Quantity.String(),
			UnitPrice: it.UnitPrice.String(),
			LineTotal: it.LineTotal.String(),
		})
	}

	fulfillment := ParseFulfillment(rec.OrderType)
	snap := Snapshot{
		ID:            rec.ID.String(),
		CustomerName:  strings.TrimSpace(rec.CustomerName),
		CustomerPhone: strings.TrimSpace(rec.CustomerPhone),
		Fulfillment:   fulfillment,
		Items:         items,
		ItemCount:     len(items),
		Total:         rec.Total.String(),
	}
	if fulfillment == FulfillmentDelivery {
		snap.Address = strings.TrimSpace(rec.Address)
	} else {
		snap.TableNumber = rec.TableNumber.String()
	}
	return snap
}
