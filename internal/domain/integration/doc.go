// Package integration contains the domain model for synchronizing
// commercial state between the source commerce platform and the
// destination accounting platform: source order representation, durable
// entity mappings, per-store sync configuration, warehouse transfer
// decisions, and the ports consumed by the order pipeline.
package integration
