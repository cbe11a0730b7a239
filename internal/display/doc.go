// Package display defines where command text ends up.
//
// A [Sink] renders a short message. The Sense HAT LED matrix in package
// sensehat is one; [LogSink] stands in on boards without an LED output.
// [Worker] sits in front of a slow sink with a bounded queue so MQTT event
// dispatch never waits on scrolling text.
package display
