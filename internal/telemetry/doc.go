// Package telemetry ingests device traffic from the MQTT bus.
//
// The ingestor subscribes to the status and telemetry wildcards, keeps
// the device registry's status and last-seen fields current, and streams
// sensor readings into InfluxDB when it is enabled. Status transitions
// are also handed to an optional callback so the websocket hub can push
// them to connected clients.
//
// Malformed payloads and unknown devices are logged and dropped; one bad
// publisher must not stall the bus.
package telemetry
