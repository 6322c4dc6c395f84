package retry

import "time"

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}

// LinearBackoff returns attempt * step. Attempts are 1-based, so the waits
// after the first, second and third failures are step, 2*step and 3*step.
func LinearBackoff(attempt int, step time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * step
}

// Linear adapts LinearBackoff to a Policy backoff func.
func Linear(step time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return LinearBackoff(attempt, step)
	}
}
