// Package retry holds the error classification shared by the task executor,
// the transaction sender and the API clients.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sahara/internal/config"
	"sahara/internal/utils"

	"github.com/ethereum/go-ethereum"
)

// Decision tells a retry loop what to do with an error.
type Decision int

const (
	// Retry means the error is transient: sleep and try again.
	Retry Decision = iota
	// GiveUp means another attempt of the same step cannot succeed; move on to the next task.
	GiveUp
	// Fatal means the whole wallet run must stop.
	Fatal
)

func (d Decision) String() string {
	switch d {
	case Retry:
		return "retry"
	case GiveUp:
		return "give_up"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

var (
	// ErrAlreadyDone marks a step the remote side reports as already completed.
	ErrAlreadyDone = errors.New("already completed")
	// ErrInsufficientBalance marks a wallet that cannot pay for the step.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrRateLimited marks a 429 or an explicit rate limit message.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnauthorized marks rejected credentials or an expired session.
	ErrUnauthorized = errors.New("unauthorized")
)

// substring rules, checked in order against the lowercased error text.
var rules = []struct {
	needle   string
	decision Decision
}{
	{"proxy authentication required", Fatal},
	{"invalid private key", Fatal},
	{"has been claimed", GiveUp},
	{"already claimed", GiveUp},
	{"insufficient funds", GiveUp},
	{"exceeded the rate limit", GiveUp},
	{"nonce too low", Retry},
	{"replacement transaction underpriced", Retry},
	{"transaction not found", Retry},
	{"too many requests", Retry},
	{"timeout", Retry},
	{"connection reset", Retry},
	{"eof", Retry},
}

// Classify maps an error onto a Decision. Unknown errors are retried.
func Classify(err error) Decision {
	if err == nil {
		return GiveUp
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Fatal
	case errors.Is(err, ErrUnauthorized):
		return Fatal
	case errors.Is(err, ErrAlreadyDone), errors.Is(err, ErrInsufficientBalance):
		return GiveUp
	case errors.Is(err, ErrRateLimited), errors.Is(err, ethereum.NotFound):
		return Retry
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		if strings.Contains(msg, r.needle) {
			return r.decision
		}
	}
	return Retry
}

// Policy is a fixed attempt count with a random sleep between attempts.
type Policy struct {
	Attempts int
	Delay    config.DelayRange
}

// PolicyFromConfig builds the policy used by task execution.
func PolicyFromConfig(cfg config.RetryDelay) Policy {
	return Policy{Attempts: cfg.Attempts, Delay: cfg.Delay}
}

// Do calls fn until it succeeds, Classify says to stop, attempts run out or ctx is done.
// The returned error is the last one fn produced, or ctx.Err() if the wait was interrupted.
func Do(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if Classify(err) != Retry || attempt == attempts {
			return err
		}
		if sleepErr := utils.SleepRange(ctx, p.Delay); sleepErr != nil {
			return fmt.Errorf("%w (last error: %v)", sleepErr, err)
		}
	}
	return err
}
