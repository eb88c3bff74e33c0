package server

import (
	"context"
	"errors"

	"murmur/common"
)

// Error texts for ErrSameSignature and ErrNoOneTimeKeys are part of the relay
// contract; clients match on the response body.
var (
	ErrBundleNotFound  = errors.New("bundle not found")
	ErrNoOneTimeKeys   = errors.New("No more oneTimeKeys")
	ErrSameSignature   = errors.New("Cannot publish bundle with same signature")
	ErrMessageNotFound = errors.New("message not found")
)

// BundleStore keeps published prekey bundles. Fetch pops exactly one one-time
// key; republication with an identical signature is rejected so rotation is
// forced to be genuine.
type BundleStore interface {
	Publish(ctx context.Context, id string, bundle common.Bundle) error
	Fetch(ctx context.Context, id string) (common.FetchedBundle, error)
}

// MessageStore queues one initial message per session id for a bounded time;
// a successful Take removes it.
type MessageStore interface {
	Put(ctx context.Context, sid string, msg common.InitialMessage) error
	Take(ctx context.Context, sid string) (common.InitialMessage, error)
}
