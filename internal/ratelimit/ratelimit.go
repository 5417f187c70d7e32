// Package ratelimit gates message sends per sender identity. Both delivery
// paths consult the limiter before any persistence side effect.
package ratelimit

import "context"

// Limiter reports whether a sender may proceed. A false result must leave no
// side effect on the send being gated.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
