package messaging

import "context"

type deliveryAttemptKey struct{}

// WithDeliveryAttempt records how many times the queue has delivered the message being handled
func WithDeliveryAttempt(ctx context.Context, attempt uint64) context.Context {
	return context.WithValue(ctx, deliveryAttemptKey{}, attempt)
}

// DeliveryAttempt returns the delivery count stored by WithDeliveryAttempt, 0 when unknown
func DeliveryAttempt(ctx context.Context) uint64 {
	attempt, _ := ctx.Value(deliveryAttemptKey{}).(uint64)
	return attempt
}

// IsRedelivery reports whether the message being handled was delivered before
func IsRedelivery(ctx context.Context) bool {
	return DeliveryAttempt(ctx) > 1
}
