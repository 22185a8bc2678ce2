package events

import "slices"

// EventCollector is embedded in aggregates to collect domain events during state transitions.
// Record never writes into a backing array shared with a previous copy of the
// aggregate, so value-copied aggregates keep independent event lists.
type EventCollector struct {
	events []DomainEvent
}

// Record appends a domain event to the collector.
func (c *EventCollector) Record(event DomainEvent) {
	c.events = append(slices.Clip(c.events), event)
}

// Events returns the collected domain events without clearing them.
func (c EventCollector) Events() []DomainEvent {
	return slices.Clone(c.events)
}
