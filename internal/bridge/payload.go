package bridge

import (
	"encoding/json"
	"strings"
)

// Payload is the order blob the host shell pushes when a new order arrives.
// Items is a JSON-encoded array of {n,v,q,p,t} objects; all scalar values may
// arrive as strings or numbers depending on the host app version.
type Payload struct {
	OrderID   string `json:"order_id"`
	Name      string `json:"name"`
	TableNo   string `json:"table_no"`
	Phone     string `json:"phone"`
	Total     string `json:"total"`
	Items     string `json:"items"`
	OrderType string `json:"order_type"`
	Address   string `json:"address"`
}

// Valid reports whether the payload is well formed. Presence of an order id is
// the validity check; everything else is optional display data.
func (p Payload) Valid() bool {
	return strings.TrimSpace(p.OrderID) != ""
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw struct {
		OrderID   flexString      `json:"order_id"`
		Name      string          `json:"name"`
		TableNo   flexString      `json:"table_no"`
		Phone     flexString      `json:"phone"`
		Total     flexString      `json:"total"`
		Items     json.RawMessage `json:"items"`
		OrderType string          `json:"order_type"`
		Address   string          `json:"address"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Payload{
		OrderID:   string(raw.OrderID),
		Name:      raw.Name,
		TableNo:   string(raw.TableNo),
		Phone:     string(raw.Phone),
		Total:     string(raw.Total),
		Items:     itemsString(raw.Items),
		OrderType: raw.OrderType,
		Address:   raw.Address,
	}
	return nil
}

// itemsString keeps the item list as the JSON text the host sent, whether it
// arrived double-encoded (a JSON string) or as a bare array.
func itemsString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return trimmed
}

type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
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
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
