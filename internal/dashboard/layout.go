package dashboard

import (
	"errors"
	"fmt"
	"sort"
)

// GridColumns is the width of the dashboard grid.
const GridColumns = 12

var ErrInvalidLayout = errors.New("invalid layout")

// Item places one widget on the grid.
type Item struct {
	WidgetID string `json:"widgetId"`
	Kind     Kind   `json:"kind"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	W        int    `json:"w"`
	H        int    `json:"h"`
}

// Change is the difference between two layouts.
type Change struct {
	Upserts []Item   // New, moved, resized, or re-kinded items
	Deletes []string // Widget IDs no longer present
}

// Empty reports whether applying c would change nothing.
func (c Change) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Deletes) == 0
}

// Validate checks that every item fits the grid and IDs are unique.
func Validate(items []Item) error {
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		switch {
		case it.WidgetID == "":
			return fmt.Errorf("%w: item %d has no widget id", ErrInvalidLayout, i)
		case seen[it.WidgetID]:
			return fmt.Errorf("%w: duplicate widget id %q", ErrInvalidLayout, it.WidgetID)
		case it.X < 0 || it.Y < 0:
			return fmt.Errorf("%w: widget %q has negative position", ErrInvalidLayout, it.WidgetID)
		case it.W <= 0 || it.H <= 0:
			return fmt.Errorf("%w: widget %q has non-positive size", ErrInvalidLayout, it.WidgetID)
		case it.X+it.W > GridColumns:
			return fmt.Errorf("%w: widget %q overflows the %d column grid", ErrInvalidLayout, it.WidgetID, GridColumns)
		}
		seen[it.WidgetID] = true
	}
	return nil
}

// Diff returns what must be written to turn old into next. Upserts keep the
// order of next; deletes are sorted.
func Diff(old, next []Item) Change {
	before := make(map[string]Item, len(old))
	for _, it := range old {
		before[it.WidgetID] = it
	}

	var c Change
	kept := make(map[string]bool, len(next))
	for _, it := range next {
		kept[it.WidgetID] = true
		if prev, ok := before[it.WidgetID]; ok && prev == it {
			continue
		}
		c.Upserts = append(c.Upserts, it)
	}
	for id := range before {
		if !kept[id] {
			c.Deletes = append(c.Deletes, id)
		}
	}
	sort.Strings(c.Deletes)
	return c
}

// DefaultLayout is shown to users who have never saved a layout.
func DefaultLayout() []Item {
	radar := Resolve(KindMacroRadar)
	minerals := Resolve(KindMineralLevel)
	return []Item{
		{WidgetID: "macro-radar", Kind: radar.Kind, X: 0, Y: 0, W: radar.DefaultW, H: radar.DefaultH},
		{WidgetID: "mineral-levels", Kind: minerals.Kind, X: radar.DefaultW, Y: 0, W: minerals.DefaultW, H: minerals.DefaultH},
	}
}

// sortItems orders items top to bottom, then left to right.
func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Y != items[j].Y {
			return items[i].Y < items[j].Y
		}
		if items[i].X != items[j].X {
			return items[i].X < items[j].X
		}
		return items[i].WidgetID < items[j].WidgetID
	})
}
