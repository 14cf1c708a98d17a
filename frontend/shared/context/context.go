package context

import (
	"context"
)

// Operator is the person acting on the desk. Authentication is handled outside
// washdesk; the operator id arrives with the request or from configuration.
type Operator struct {
	ID   int64
	Name string
}

type operatorKey struct{}

func NewContextWithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

func GetOperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(Operator)
	return op, ok
}

// OperatorID returns the operator id of ctx, or 0.
func OperatorID(ctx context.Context) int64 {
	op, _ := GetOperatorFromContext(ctx)
	return op.ID
}

type assetBaseKey struct{}

func NewContextWithAssetBaseURL(ctx context.Context, base string) context.Context {
	return context.WithValue(ctx, assetBaseKey{}, base)
}

func AssetBaseURL(ctx context.Context) string {
	base, _ := ctx.Value(assetBaseKey{}).(string)
	return base
}
