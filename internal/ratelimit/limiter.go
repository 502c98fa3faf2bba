package ratelimit

import "context"

// SMSLimiter paces outbound text messages: a global per-second ceiling plus
// a per-number daily cap. Message content is not this system's concern, only
// whether a send to the number is admissible right now.
type SMSLimiter interface {
	Allow(ctx context.Context, phone string) (bool, error)
	Wait(ctx context.Context, phone string) error
}
