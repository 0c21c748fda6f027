package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// OperatorContext carries the identity of the operator driving the editor,
// extracted from verified JWT claims and request headers.
type OperatorContext struct {
	SubjectID     string
	Email         string
	Roles         []string
	CorrelationID string
	Claims        map[string]any
}

type operatorContextKey struct{}

// WithOperatorContext stores the operator context in ctx.
func WithOperatorContext(ctx context.Context, octx *OperatorContext) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, octx)
}

// OperatorContextFrom returns the operator context stored in ctx, or nil.
func OperatorContextFrom(ctx context.Context) *OperatorContext {
	octx, _ := ctx.Value(operatorContextKey{}).(*OperatorContext)
	return octx
}

// Session is the credential presented to every upstream endpoint, together
// with the seed derived from it.
type Session struct {
	Token string
}

// Seed returns the session-derived seed sent alongside the credential.
func (s Session) Seed() string {
	sum := sha256.Sum256([]byte(s.Token))
	return hex.EncodeToString(sum[:8])
}
