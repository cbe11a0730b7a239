// Package mqtt provides MQTT client connectivity for the sensor broadcaster.
//
// This package manages:
//   - Resolving the configured broker URL into an Endpoint (mqtt and ws schemes)
//   - Connection to the broker with bounded initial retries and auto-reconnect
//   - Fire-and-forget publishing of readings
//   - The command topic subscription
//   - Last Will and Testament (LWT) on the retained status topic
//
// # Events
//
// Paho runs its callbacks on internal goroutines. This package never lets
// consumer code run there: connection changes and inbound messages are turned
// into Event values on a buffered channel returned by Client.Events. A single
// consumer goroutine drains the channel and, on EventConnected, subscribes to
// the command topic again.
//
// # Topics
//
//	<prefix>readings         JSON readings, QoS 0, not retained
//	<prefix>readings/influx  optional line-protocol mirror
//	<prefix>commands         inbound commands
//	<prefix>status           retained online/offline status and LWT
//
// # Usage
//
//	ep, err := mqtt.ParseEndpoint(cfg.MQTT.Broker)
//	if err != nil {
//	    return err
//	}
//	client, err := mqtt.Connect(ctx, ep, mqtt.OptionsFromConfig(cfg.MQTT, clientID))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	for ev := range client.Events() {
//	    switch ev.Kind {
//	    case mqtt.EventConnected:
//	        client.Subscribe(topics.Commands(), 0)
//	    case mqtt.EventMessage:
//	        handle(ev.Payload)
//	    }
//	}
//
// Credentials embedded in the broker URL are never logged; use Endpoint.String.
package mqtt
