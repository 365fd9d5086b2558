package rules

import (
	"strings"

	"profitlift/domain/basket"
	"profitlift/domain/core"
)

// Context is a constraint tuple over the segmentation dimensions. An empty
// field means "unconstrained"; the zero value is the overall context. All
// fields are comparable value types so a Context works directly as a map key.
type Context struct {
	StoreID  core.StoreID          `json:"store_id,omitempty"`
	TimeBin  basket.TimeBin        `json:"time_bin,omitempty"`
	DayType  basket.DayType        `json:"day_type,omitempty"`
	Quarter  basket.Quarter        `json:"quarter,omitempty"`
	Festival basket.FestivalPeriod `json:"festival,omitempty"`
}

// Overall is the unconstrained context
func Overall() Context {
	return Context{}
}

// IsOverall reports whether no dimension is constrained
func (c Context) IsOverall() bool {
	return c == Context{}
}

// Depth counts the constrained dimensions
func (c Context) Depth() int {
	n := 0
	if c.StoreID != "" {
		n++
	}
	if c.TimeBin != "" {
		n++
	}
	if c.DayType != "" {
		n++
	}
	if c.Quarter != "" {
		n++
	}
	if c.Festival != "" {
		n++
	}
	return n
}

// Matches reports whether a transaction satisfies every constrained dimension
func (c Context) Matches(tx basket.Transaction) bool {
	if c.StoreID != "" && tx.StoreID != c.StoreID {
		return false
	}
	if c.TimeBin != "" && tx.TimeBin != c.TimeBin {
		return false
	}
	if c.DayType != "" && tx.DayType != c.DayType {
		return false
	}
	if c.Quarter != "" && tx.Quarter != c.Quarter {
		return false
	}
	if c.Festival != "" && tx.Festival != c.Festival {
		return false
	}
	return true
}

// Key returns a canonical encoding, stable across runs, used for ordering
// and persistence. The overall context encodes as "overall".
func (c Context) Key() string {
	if c.IsOverall() {
		return "overall"
	}
	parts := make([]string, 0, 5)
	if c.StoreID != "" {
		parts = append(parts, "store="+string(c.StoreID))
	}
	if c.TimeBin != "" {
		parts = append(parts, "time="+string(c.TimeBin))
	}
	if c.DayType != "" {
		parts = append(parts, "day="+string(c.DayType))
	}
	if c.Quarter != "" {
		parts = append(parts, "quarter="+string(c.Quarter))
	}
	if c.Festival != "" {
		parts = append(parts, "festival="+string(c.Festival))
	}
	return strings.Join(parts, "|")
}

// String implements fmt.Stringer
func (c Context) String() string {
	return c.Key()
}

// ParseContextKey rebuilds a Context from its Key encoding
func ParseContextKey(key string) Context {
	var c Context
	if key == "" || key == "overall" {
		return c
	}
	for _, part := range strings.Split(key, "|") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "store":
			c.StoreID = core.StoreID(kv[1])
		case "time":
			c.TimeBin = basket.TimeBin(kv[1])
		case "day":
			c.DayType = basket.DayType(kv[1])
		case "quarter":
			c.Quarter = basket.Quarter(kv[1])
		case "festival":
			c.Festival = basket.FestivalPeriod(kv[1])
		}
	}
	return c
}
