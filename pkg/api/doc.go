// Package api defines the request and response messages of the splitbill
// Connect services and the JSON codec they travel in.
//
// Messages are plain Go structs; timestamps use Timestamp, which serializes
// through protojson so clients see RFC 3339 strings.
package api
