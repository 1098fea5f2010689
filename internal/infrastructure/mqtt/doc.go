// Package mqtt is MacroDeck's optional broker plane on top of
// paho.mqtt.golang: auto-reconnect with subscription replay, wildcard
// subscriptions, QoS-aware publishing, and a retained Last Will so
// peers can tell a crash from a clean shutdown.
//
// External tooling (dashboards, stream overlays, companion apps) uses
// the broker to trigger macro runs, stop the active run, and observe
// lifecycle events without touching the HTTP API. The stream mirror
// republishes frame events here alongside the UDP feed.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllMacroCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("command: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish(mqtt.Topics{}.MacroEvent("gear-shift-combo", "completed"),
//	    []byte(`{"status":"completed"}`), 1, false)
//
// Anonymous plaintext connections are for local development only; set
// cfg.Broker.TLS and broker credentials anywhere that leaves the
// machine.
package mqtt
