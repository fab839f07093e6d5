// Package mqtt provides MQTT client connectivity for Luma Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Luma uses MQTT as the transport between the Core and field devices.
// Devices report on luma/status/{id} and luma/telemetry/{id}; the Core
// commands them on luma/command/{id}.
//
//	Luma Core ↔ MQTT Broker ↔ Devices
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all device status updates
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceStatus(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a command
//	topic := mqtt.Topics{}.DeviceCommand("dev-a1b2c3d4")
//	client.Publish(topic, []byte(`{"action":"on"}`), 1, false)
package mqtt
