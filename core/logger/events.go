package logger

// Event is a single loggable occurrence in a shell session.
type Event interface {
	// EventType is the snake_case name of the event, it doubles as the key of
	// the nested object holding the event's fields.
	EventType() string
	// Fields holds values convertible by structpb.NewValue.
	Fields() map[string]interface{}
}

// Event type names.
const (
	TypeSessionStart   = "session_start"
	TypeSessionEnd     = "session_end"
	TypeRunCommand     = "run_command"
	TypeUnknownCommand = "unknown_command"
	TypeSyntaxError    = "syntax_error"
	TypeDefineFunction = "define_function"
)

// SessionStart is logged when a shell session begins.
type SessionStart struct {
	User        string
	RemoteAddr  string
	Interactive bool
}

func (e *SessionStart) EventType() string { return TypeSessionStart }

func (e *SessionStart) Fields() map[string]interface{} {
	return map[string]interface{}{
		"user":        e.User,
		"remote_addr": e.RemoteAddr,
		"interactive": e.Interactive,
	}
}

// SessionEnd is logged when a shell session finishes.
type SessionEnd struct {
	Status int
}

func (e *SessionEnd) EventType() string { return TypeSessionEnd }

func (e *SessionEnd) Fields() map[string]interface{} {
	return map[string]interface{}{"status": e.Status}
}

// RunCommand is logged for every job the shell runs.
type RunCommand struct {
	Command    []string
	Status     int
	Background bool
}

func (e *RunCommand) EventType() string { return TypeRunCommand }

func (e *RunCommand) Fields() map[string]interface{} {
	return map[string]interface{}{
		"command":    stringList(e.Command),
		"status":     e.Status,
		"background": e.Background,
	}
}

// UnknownCommand is logged when a program can't be started.
type UnknownCommand struct {
	Command []string
	Error   string
}

func (e *UnknownCommand) EventType() string { return TypeUnknownCommand }

func (e *UnknownCommand) Fields() map[string]interface{} {
	return map[string]interface{}{
		"command": stringList(e.Command),
		"error":   e.Error,
	}
}

// SyntaxError is logged when input is rejected by the parser or the flow
// control engine.
type SyntaxError struct {
	Error string
}

func (e *SyntaxError) EventType() string { return TypeSyntaxError }

func (e *SyntaxError) Fields() map[string]interface{} {
	return map[string]interface{}{"error": e.Error}
}

// DefineFunction is logged when a function is registered.
type DefineFunction struct {
	Name string
	Args []string
}

func (e *DefineFunction) EventType() string { return TypeDefineFunction }

func (e *DefineFunction) Fields() map[string]interface{} {
	return map[string]interface{}{
		"name": e.Name,
		"args": stringList(e.Args),
	}
}

// stringList converts to the []interface{} form structpb accepts.
func stringList(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
