package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"sigs.k8s.io/yaml"
)

func fixedClock() time.Time {
	return time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestJsonLinesRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewJsonLinesLogRecorder(buf)
	log.now = fixedClock

	session := log.NewSession()
	require.NoError(t, session.Record(&SessionStart{User: "root", Interactive: true}))
	require.NoError(t, session.Record(&RunCommand{Command: []string{"echo", "hi"}, Status: 0}))
	require.NoError(t, session.Record(&RunCommand{Command: []string{"false"}, Status: 1}))
	require.NoError(t, session.Record(&UnknownCommand{Command: []string{"nope"}, Error: "not found"}))
	require.NoError(t, session.Record(&SyntaxError{Error: "no block to end"}))
	require.NoError(t, session.Record(&DefineFunction{Name: "greet", Args: []string{"who"}}))
	require.NoError(t, session.Record(&SessionEnd{Status: 0}))

	assert.Equal(t, 7, strings.Count(buf.String(), "\n"))

	var entries []*structpb.Struct
	require.NoError(t, ReadJSONLinesLog(buf, func(le *structpb.Struct) {
		entries = append(entries, le)
	}))
	require.Len(t, entries, 7)

	first := entries[0].GetFields()
	assert.Equal(t, TypeSessionStart, first[FieldType].GetStringValue())
	assert.Equal(t, session.SessionID(), first[FieldSessionID].GetStringValue())
	assert.Equal(t, float64(fixedClock().UnixMicro()), first[FieldTimestampMicros].GetNumberValue())

	run := entries[1].GetFields()[TypeRunCommand].GetStructValue().GetFields()
	assert.Equal(t, []string{"echo", "hi"}, listValue(run["command"]))
}

func TestReport(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewJsonLinesLogRecorder(buf)

	session := log.NewSession()
	session.Record(&RunCommand{Command: []string{"ls", "-l"}, Status: 0})
	session.Record(&RunCommand{Command: []string{"ls"}, Status: 2})
	session.Record(&UnknownCommand{Command: []string{"nope"}})
	session.Record(&SyntaxError{Error: "syntax error: no block to end"})
	session.Record(&DefineFunction{Name: "greet"})
	log.Sessionless().Record(&SessionEnd{})

	var report Report
	require.NoError(t, ReadJSONLinesLog(buf, report.Update))

	assert.Equal(t, 6, report.LogEntries)
	assert.Equal(t, 2, report.CommandNames.Count("ls"))
	assert.Equal(t, 1, report.CommandStatuses.Count("2"))
	assert.Equal(t, 1, report.UnknownCommands.Count("nope"))
	assert.Equal(t, 1, report.SyntaxErrors.Count("syntax error: no block to end"))
	assert.Equal(t, 1, report.Functions.Count("greet"))
	assert.Equal(t, 1, report.EventTypes.Count(TypeSessionEnd))
	assert.Equal(t, []string{"ls -l", "ls", "nope"}, report.Sessions.Commands(session.SessionID()))

	out, err := yaml.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(out), "command_names:")
}

func TestReportUnknownType(t *testing.T) {
	entry, err := structpb.NewStruct(map[string]interface{}{FieldType: "mystery"})
	require.NoError(t, err)

	var report Report
	report.Update(entry)

	assert.Equal(t, 1, report.InvalidEntries.Count("mystery"))
	assert.Equal(t, 0, report.EventTypes.Count("mystery"))
}
