// Package reading defines the sensor snapshot and the envelope published
// on the readings topic.
//
// A Snapshot is taken once per cycle and never modified. An Envelope adds
// the measurement, source and location tags and owns the wire format:
//
//	{"time":1700000000000,"pressure":1013.25,"temperature":{"01":21.5,"02":21.1},
//	 "humidity":40.123,"acceleration":{"x":0,"y":0,"z":9.807},
//	 "measurement":"environment","source":"raspberrypi","location":"studio"}
//
// The same envelope can be rendered as InfluxDB line protocol for Telegraf.
package reading
