// Package logger is a standardized event logging framework for the shell.
//
// Events are stored as newline delimited JSON; each line is the protojson
// encoding of a structpb.Struct with the common fields "timestamp_micros",
// "session_id" and "type" plus one nested object named after the type.
package logger
