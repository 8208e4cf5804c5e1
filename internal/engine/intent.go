package engine

// IntentKind names an operator action.
type IntentKind uint8

const (
	IntentToggle IntentKind = iota + 1
	IntentSelect
	IntentDeselect
	IntentSelectAll
	IntentDeselectAll
	IntentResetDefault
	IntentFilter
	IntentStart
	IntentAbort
	IntentOverrideStrategy
	IntentQuit
)

var intentNames = map[IntentKind]string{
	IntentToggle:           "toggle",
	IntentSelect:           "select",
	IntentDeselect:         "deselect",
	IntentSelectAll:        "select_all",
	IntentDeselectAll:      "deselect_all",
	IntentResetDefault:     "reset_default",
	IntentFilter:           "filter",
	IntentStart:            "start",
	IntentAbort:            "abort",
	IntentOverrideStrategy: "override_strategy",
	IntentQuit:             "quit",
}

func (k IntentKind) String() string {
	if name, ok := intentNames[k]; ok {
		return name
	}
	return "unknown"
}

// Intent is one operator request. Path applies to single-candidate intents,
// Value carries the filter pattern or strategy name.
type Intent struct {
	Kind  IntentKind
	Path  string
	Value string
}

func Toggle(path string) Intent { return Intent{Kind: IntentToggle, Path: path} }
func Select(path string) Intent { return Intent{Kind: IntentSelect, Path: path} }
func Deselect(path string) Intent { return Intent{Kind: IntentDeselect, Path: path} }
func SelectAll() Intent { return Intent{Kind: IntentSelectAll} }
func DeselectAll() Intent { return Intent{Kind: IntentDeselectAll} }
func ResetDefault() Intent { return Intent{Kind: IntentResetDefault} }
func Filter(pattern string) Intent { return Intent{Kind: IntentFilter, Value: pattern} }
func Start() Intent { return Intent{Kind: IntentStart} }
func Abort() Intent { return Intent{Kind: IntentAbort} }
func OverrideStrategy(name string) Intent { return Intent{Kind: IntentOverrideStrategy, Value: name} }
func Quit() Intent { return Intent{Kind: IntentQuit} }
