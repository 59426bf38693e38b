// Package bot routes chat commands and menu buttons to handlers.
package bot

// Action is one thing a user can ask the bot to do, from a command or an inline button.
type Action int

const (
	ActionMenu Action = iota + 1
	ActionPrice
	ActionOrderBook
	ActionChart
	ActionSettings
	ActionSetThreshold
	ActionToggle
	ActionHelp
	ActionStart
	ActionStop
	ActionRestart
)

var actionIDs = map[Action]string{
	ActionMenu:         "menu",
	ActionPrice:        "price",
	ActionOrderBook:    "orderbook",
	ActionChart:        "chart",
	ActionSettings:     "settings",
	ActionSetThreshold: "threshold",
	ActionToggle:       "toggle",
	ActionHelp:         "help",
	ActionStart:        "start",
	ActionStop:         "stop",
	ActionRestart:      "restart",
}

// ID is the stable identifier used in callback data and command names.
func (a Action) ID() string { return actionIDs[a] }

func (a Action) String() string {
	if id, ok := actionIDs[a]; ok {
		return id
	}
	return "unknown"
}

// Actions lists every action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, len(actionIDs))
	for a := ActionMenu; a <= ActionRestart; a++ {
		out = append(out, a)
	}
	return out
}

// Event is one incoming request.
type Event struct {
	Action Action
	ChatID int64
	UserID int64
	Data   string
}

// Button is an inline keyboard button. URL buttons open a link instead of calling back.
type Button struct {
	Label  string
	Action Action
	Data   string
	URL    string
}

// Reply is what a handler wants sent back.
type Reply struct {
	Text     string
	Keyboard [][]Button
	// Edit replaces the message that carried the button instead of sending a new one.
	Edit bool
	// After runs once the reply was delivered.
	After func()
}
