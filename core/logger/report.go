package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *structpb.Struct)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var logEntry structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &logEntry); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	EventTypes      StrCounter `json:"event_types"`
	CommandNames    StrCounter `json:"command_names"`
	CommandStatuses StrCounter `json:"command_statuses"`
	UnknownCommands StrCounter `json:"unknown_commands"`
	SyntaxErrors    StrCounter `json:"syntax_errors"`
	Functions       StrCounter `json:"functions"`

	Sessions SessionReport `json:"sessions"`
}

// Update adds a single log entry to the report.
func (r *Report) Update(le *structpb.Struct) {
	r.LogEntries++

	fields := le.GetFields()
	eventType := fields[FieldType].GetStringValue()
	event := fields[eventType].GetStructValue().GetFields()

	r.Sessions.Update(le)

	switch eventType {
	case TypeRunCommand:
		if command := listValue(event["command"]); len(command) > 0 {
			r.CommandNames.Increment(command[0])
		}
		r.CommandStatuses.Increment(fmt.Sprintf("%d", int(event["status"].GetNumberValue())))
	case TypeUnknownCommand:
		if command := listValue(event["command"]); len(command) > 0 {
			r.UnknownCommands.Increment(command[0])
		}
	case TypeSyntaxError:
		r.SyntaxErrors.Increment(event["error"].GetStringValue())
	case TypeDefineFunction:
		r.Functions.Increment(event["name"].GetStringValue())
	case TypeSessionStart, TypeSessionEnd:
		// Counted by type only.
	default:
		r.InvalidEntries.Increment(eventType)
		return
	}

	r.EventTypes.Increment(eventType)
}

// SessionReport groups the commands typed in each session.
type SessionReport struct {
	// Map of sessionID -> commands
	commands map[string][]string
}

// Update adds the entry to its session.
func (s *SessionReport) Update(le *structpb.Struct) {
	fields := le.GetFields()
	sessionID := fields[FieldSessionID].GetStringValue()
	if sessionID == "" {
		return
	}
	if s.commands == nil {
		s.commands = make(map[string][]string)
	}

	switch fields[FieldType].GetStringValue() {
	case TypeRunCommand, TypeUnknownCommand:
		event := fields[fields[FieldType].GetStringValue()].GetStructValue().GetFields()
		s.commands[sessionID] = append(s.commands[sessionID], strings.Join(listValue(event["command"]), " "))
	default:
		if _, ok := s.commands[sessionID]; !ok {
			s.commands[sessionID] = []string{}
		}
	}
}

// Commands gets the commands run by the given session.
func (s *SessionReport) Commands(sessionID string) []string {
	return s.commands[sessionID]
}

// MarshalJSON implements a custom JSON marshaler.
func (s SessionReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.commands)
}

func listValue(v *structpb.Value) []string {
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count gets the number of times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.internal)
}
