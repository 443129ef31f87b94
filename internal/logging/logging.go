// Package logging provides the context id used to correlate the log lines
// of a single planner run.
package logging

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ContextKey defines the context key type.
type ContextKey string

// ContextIDKey holds the key of the context ID.
const ContextIDKey ContextKey = "ctx_id"

// NewContext returns a child context holding a new context ID under
// ContextIDKey.
func NewContext(ctx context.Context) (context.Context, error) {
	ctxID, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "new uuid error")
	}
	return context.WithValue(ctx, ContextIDKey, ctxID), nil
}

// ContextID returns the context ID of the given context, uuid.Nil when not
// set.
func ContextID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ContextIDKey).(uuid.UUID)
	return id
}

// WithContext returns a log entry with the ctx_id field set.
func WithContext(ctx context.Context) *log.Entry {
	return log.WithField("ctx_id", ContextID(ctx))
}
