package orderapi

import (
	"encoding/json"
	"strings"
)

// FlexString decodes JSON values that upstream sometimes emits as strings and
// sometimes as bare numbers (order ids, quantities, money amounts).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// RecordItem is one line of a raw order record as returned by the order API.
type RecordItem struct {
	ProductName string     `json:"product_name"`
	Variant     string     `json:"variant"`
	Quantity    FlexString `json:"quantity"`
	UnitPrice   FlexString `json:"price"`
	LineTotal   FlexString `json:"line_total"`
}

// Record is a raw order record as returned by the order API. Money fields stay
// strings end to end; this service never does arithmetic on them.
type Record struct {
	ID            FlexString   `json:"id"`
	CustomerName  string       `json:"customer_name"`
	CustomerPhone string       `json:"customer_phone"`
	TableNumber   FlexString   `json:"table_no"`
	OrderType     string       `json:"order_type"`
	Address       string       `json:"address"`
	Total         FlexString   `json:"total"`
	Items         []RecordItem `json:"items"`
}
