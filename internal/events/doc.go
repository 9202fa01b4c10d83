// Package events is a small in-process event bus. The study service emits
// card.learned when a new card graduates in a session; handlers such as the
// learned-card recorder subscribe by event type without the service knowing
// about them.
package events
