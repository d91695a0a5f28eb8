package controller

// State is the map session state.
type State int

const (
	// Unloaded: the map geometry has not arrived yet.
	Unloaded State = iota
	// Idle is the national overview with no province selected.
	Idle
	// ProvinceFocused: one province is selected and framed.
	ProvinceFocused
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Idle:
		return "idle"
	case ProvinceFocused:
		return "province-focused"
	}
	return "unknown"
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Trigger names what caused a layout pass.
type Trigger string

const (
	TriggerLoad     Trigger = "load"
	TriggerZoom     Trigger = "zoom"
	TriggerSelect   Trigger = "select"
	TriggerDeselect Trigger = "deselect"
	TriggerResize   Trigger = "resize"
	TriggerFilter   Trigger = "filter"
	TriggerReset    Trigger = "reset"
	TriggerManual   Trigger = "manual"
)

// DimmedEmphasis is the emphasis of provinces outside the focused one.
const DimmedEmphasis = 0.3

// ProvinceStyle is how the rendering surface should draw a province.
type ProvinceStyle struct {
	// Emphasis is 1 for normal provinces and DimmedEmphasis for
	// de-emphasized ones.
	Emphasis float64 `json:"emphasis"`
	// Interactive is false when hover and click are disabled.
	Interactive bool `json:"interactive"`
}

var (
	normalStyle = ProvinceStyle{Emphasis: 1, Interactive: true}
	dimmedStyle = ProvinceStyle{Emphasis: DimmedEmphasis, Interactive: false}
)

// styleFor returns the style of province when selected is focused.
func styleFor(province, selected string) ProvinceStyle {
	if selected == "" || province == selected {
		return normalStyle
	}
	return dimmedStyle
}
