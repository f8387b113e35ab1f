package snapshot

import (
	"encoding/json"
	"errors"
	"strings"

	"brewdesk-alert-services/internal/bridge"
)

var ErrMissingOrderID = errors.New("bridge payload has no order id")

// bridgeItem matches the compact item encoding the host shell sends:
// {"n": name, "v": variant, "q": quantity, "p": unit price, "t": line total}.
type bridgeItem struct {
	N string `json:"n"`
	V string `json:"v"`
	Q flex   `json:"q"`
	P flex   `json:"p"`
	T flex   `json:"t"`
}

type flex string

func (f *flex) UnmarshalJSON(data []byte) error {
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
		*f = flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flex(n.String())
	return nil
}

// FromBridge maps a host-pushed payload into a display snapshot. A payload
// without an order id is malformed and rejected; a broken item list is not
// fatal, the order is still actionable without line detail.
func FromBridge(p bridge.Payload) (Snapshot, error) {
	id := strings.TrimSpace(p.OrderID)
	if id == "" {
		return Snapshot{}, ErrMissingOrderID
	}

	var rawItems []bridgeItem
	if strings.TrimSpace(p.Items) != "" {
		_ = json.Unmarshal([]byte(p.Items), &rawItems)
	}
	items := make([]LineItem, 0, len(rawItems))
	for _, it := range rawItems {
		items = append(items, LineItem{
			Name:      strings.TrimSpace(it.N),
			Variant:   strings.TrimSpace(it.V),
			Quantity:  string(it.Q),
			UnitPrice: string(it.P),
			LineTotal: string(it.T),
		})
	}

	fulfillment := ParseFulfillment(p.OrderType)
	snap := Snapshot{
		ID:            id,
		CustomerName:  strings.TrimSpace(p.Name),
		CustomerPhone: strings.TrimSpace(p.Phone),
		Fulfillment:   fulfillment,
		Items:         items,
		ItemCount:     len(items),
		Total:         strings.TrimSpace(p.Total),
	}
	if fulfillment == FulfillmentDelivery {
		snap.Address = strings.TrimSpace(p.Address)
	} else {
		snap.TableNumber = strings.TrimSpace(p.TableNo)
	}
	return snap, nil
}
