// Package state provides Input[T], a single-value observable container.
//
// An Input holds the latest value written to it and pushes every successful
// write to its subscribers:
//
//	Put/Modify -> queue -> subscriber callbacks (issue order)
//
// Delivery is synchronous with the write that produced it. A write issued from
// inside a subscriber callback is queued and delivered once the current round
// finishes, so every subscriber observes writes in the order they were made.
//
// Subscriptions are released explicitly through Subscription.Unsubscribe, when
// the context passed to Subscribe is cancelled, or all at once through
// Input.Close.
package state
