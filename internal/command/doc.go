// Package command parses inbound MQTT commands and dispatches them.
//
// The command topic carries JSON objects. The only recognised field is
// "ledwall", a non-empty string that is forwarded to the display sink:
//
//	{"ledwall": "HELLO"}
//
// Anything else is logged and dropped. Every dispatch ends in one
// [Outcome], which is journaled and counted when those are configured.
package command
