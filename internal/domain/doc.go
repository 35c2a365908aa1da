// Package domain models the landslide early-warning data shown on the
// ResQlink operations dashboard.
//
// # Data Sources
//
// Field sensors write rows into a hosted Postgres database that is exposed
// through a PostgREST-compatible REST API. Three tables matter:
//
//	sensor_data  field measurements plus the sensor's own alert/danger flags
//	messages     free-text reports relayed from field nodes
//	users        citizens, some of whom have shared a location (SOS points)
//
// The sensor table schema has drifted over time, so every measurement on
// [SensorReading] is optional and the row id may be a number or a string.
//
// # Risk Levels
//
// Two related scales exist:
//
//	Sensor risk (summary card):  high | medium | low
//	  derived from the newest reading: danger -> high, alert -> medium, else low.
//
//	Prediction level (prediction card):  danger | warning | safe
//	  each level carries a fixed confidence and recommendation, see [NewPrediction].
//
// # Live Updates
//
// Row changes arrive as [ChangeEvent] values shaped like Postgres logical
// replication payloads (eventType, new, old, commit_timestamp). The dashboard
// never patches state from the payload; it refetches the affected panel and
// publishes a fresh [Update] on the panel's [Topic].
//
// # Time Formatting
//
// Chart labels use HH:MM and message timestamps use HH:MM:SS, both in UTC, so
// the API output does not depend on the server's local zone.
package domain
