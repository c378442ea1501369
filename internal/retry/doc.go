// Package retry wraps one backend call in a bounded retry loop.
//
// The schedule comes from a Policy. The default, Fixed, makes five attempts
// ten seconds apart and retries every failure without looking at it.
// Exponential and the StopOnAuth switch are available behind the same
// interface. The loop itself is github.com/cenkalti/backoff/v4.
package retry
