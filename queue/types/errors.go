package types

import "errors"

// ErrQueueUnavailable is returned by a driver's Resolve when the named queue
// does not exist and creating it was not requested.
var ErrQueueUnavailable = errors.New("queue: queue does not exist")
