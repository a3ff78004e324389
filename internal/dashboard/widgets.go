// Package dashboard manages the widget grid on a farmer's home page.
package dashboard

import "sort"

// Kind names a widget type. Layouts store the name as given; unrecognised
// names resolve to the Unknown widget.
type Kind string

const (
	KindMacroRadar   Kind = "MacroRadar"
	KindMineralLevel Kind = "MineralLevel"
	KindUnknown      Kind = "Unknown"
)

// Widget describes how a kind is presented.
type Widget struct {
	Kind     Kind   `json:"kind"`
	Title    string `json:"title"`
	DefaultW int    `json:"defaultW"`
	DefaultH int    `json:"defaultH"`
}

var registry = map[Kind]Widget{
	KindMacroRadar:   {Kind: KindMacroRadar, Title: "Macronutrient Radar", DefaultW: 6, DefaultH: 4},
	KindMineralLevel: {Kind: KindMineralLevel, Title: "Mineral Levels", DefaultW: 6, DefaultH: 3},
	KindUnknown:      {Kind: KindUnknown, Title: "Unavailable widget", DefaultW: 4, DefaultH: 2},
}

// Resolve returns the widget registered for name, or the Unknown widget.
func Resolve(name Kind) Widget {
	if w, ok := registry[name]; ok {
		return w
	}
	return registry[KindUnknown]
}

// Known reports whether name is a registered kind other than Unknown.
func Known(name Kind) bool {
	_, ok := registry[name]
	return ok && name != KindUnknown
}

// Widgets returns every registered widget sorted by kind.
func Widgets() []Widget {
	out := make([]Widget, 0, len(registry))
	for _, w := range registry {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
