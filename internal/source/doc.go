// Package source defines the change-notification capability interfaces that
// decouple the ingestion pipeline from any one transport: ChangeSource for
// consuming insert events and Publisher for emitting them. The production
// implementation rides a Redis pub/sub channel; Memory provides the same
// semantics in-process for tests. Neither offers replay — events published
// while nothing is subscribed are gone, which is the documented delivery
// model of the pipeline.
package source
