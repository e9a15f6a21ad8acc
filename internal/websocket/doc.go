// Package websocket streams pipeline run progress to subscribers.
//
// The Hub owns the set of connected clients. Each Client runs a read pump
// that watches for the peer going away and a write pump that delivers queued
// events and keepalive pings. The pipeline manager publishes through the Hub,
// which never blocks the run that produced the event.
package websocket
