package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// NewItemID returns a sortable identifier for items stored without one.
func NewItemID() string {
	return ulid.Make().String()
}

// storedItem accepts every shape the items column has held over time: the
// canonical group, groups whose children live under nestedRows, and flat
// single-level items carrying their own amounts.
type storedItem struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	AmountUSD   json.RawMessage `json:"amountUSD"`
	AmountINR   json.RawMessage `json:"amountINR"`
	SubServices []storedItem    `json:"subServices"`
	NestedRows  []storedItem    `json:"nestedRows"`
}

// DecodeItems loads an items document into canonical groups. Every group
// comes back with Type "main", a non-nil SubServices slice and no nested
// rows. Input order is preserved.
func DecodeItems(raw []byte) ([]ServiceGroup, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []ServiceGroup{}, nil
	}

	var stored []storedItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItems, err)
	}

	groups := make([]ServiceGroup, 0, len(stored))
	for _, item := range stored {
		groups = append(groups, item.toGroup())
	}
	return groups, nil
}

// EncodeItems serialises canonical groups for the items column.
func EncodeItems(groups []ServiceGroup) (datatypes.JSON, error) {
	if groups == nil {
		groups = []ServiceGroup{}
	}
	b, err := json.Marshal(groups)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// NormalizeGroups fills missing identifiers and fixes the discriminator on
// groups built in code rather than decoded.
func NormalizeGroups(groups []ServiceGroup) []ServiceGroup {
	out := make([]ServiceGroup, len(groups))
	for i, g := range groups {
		if g.ID == "" {
			g.ID = NewItemID()
		}
		g.Type = GroupTypeMain
		subs := make([]LineItem, len(g.SubServices))
		for j, sub := range g.SubServices {
			if sub.ID == "" {
				sub.ID = NewItemID()
			}
			subs[j] = sub
		}
		g.SubServices = subs
		out[i] = g
	}
	return out
}

func (s storedItem) toGroup() ServiceGroup {
	group := ServiceGroup{
		ID:          decodeID(s.ID),
		Name:        s.Name,
		Type:        GroupTypeMain,
		SubServices: []LineItem{},
	}
	if group.ID == "" {
		group.ID = NewItemID()
	}

	rows := mergeRows(s.SubServices, s.NestedRows)
	if len(rows) == 0 && s.hasAmounts() {
		// Flat item: its own amounts become the single sub-service.
		group.SubServices = append(group.SubServices, LineItem{
			ID:          NewItemID(),
			Name:        s.Name,
			Description: s.Description,
			AmountUSD:   parseAmount(s.AmountUSD),
			AmountINR:   parseAmount(s.AmountINR),
		})
		return group
	}

	for _, row := range rows {
		item := LineItem{
			ID:          decodeID(row.ID),
			Name:        row.Name,
			Description: row.Description,
			AmountUSD:   parseAmount(row.AmountUSD),
			AmountINR:   parseAmount(row.AmountINR),
		}
		if item.ID == "" {
			item.ID = NewItemID()
		}
		group.SubServices = append(group.SubServices, item)
	}
	return group
}

func (s storedItem) hasAmounts() bool {
	return parseAmount(s.AmountUSD).Valid || parseAmount(s.AmountINR).Valid
}

// mergeRows appends nestedRows after subServices, skipping rows whose id is
// already present.
func mergeRows(subServices, nestedRows []storedItem) []storedItem {
	if len(nestedRows) == 0 {
		return subServices
	}
	seen := make(map[string]struct{}, len(subServices))
	rows := make([]storedItem, 0, len(subServices)+len(nestedRows))
	for _, row := range subServices {
		if id := decodeID(row.ID); id != "" {
			seen[id] = struct{}{}
		}
		rows = append(rows, row)
	}
	for _, row := range nestedRows {
		if id := decodeID(row.ID); id != "" {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
		}
		rows = append(rows, row)
	}
	return rows
}

// decodeID accepts string or numeric ids.
func decodeID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}

// parseAmount reads a JSON number or numeric string. Anything else is absent.
func parseAmount(raw json.RawMessage) decimal.NullDecimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.NullDecimal{}
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return decimal.NullDecimal{}
		}
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
