package usecase

import "context"

type correlationKey struct{}

// ContextWithCorrelationID attaches a request correlation id for log lines.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
