// Package device is the registry of IoT devices known to Luma Core.
//
// A device is display metadata plus liveness: name, type (light, sensor,
// relay, ...), connection status, and when it was last seen. Device state
// itself lives on the MQTT bus and in the telemetry store; the registry is
// what listings and the access authority consult for "what is this
// device".
//
// Access control is deliberately not here: who may see or control a
// device is the access package's concern. Registering a device does not
// grant anyone access; the calling layer creates the owner access record
// alongside registration.
package device
