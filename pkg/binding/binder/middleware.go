package binder

import (
	"context"
	"errors"
	"net/http"

	binderrors "github.com/diwise/entity-binder/pkg/binding/errors"
	"go.opentelemetry.io/otel/trace"
)

type entityContextKey struct {
	name string
}

var entityKey = &entityContextKey{"entity"}

// WithEntity returns a middleware that resolves an entity of entityType from the
// request and stores it in the request context before calling the next handler.
// Binding failures are reported as problem details and next is never called.
func WithEntity(b EntityBinder, entityType string, properties ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			entity, err := b.Resolve(ctx, r, entityType, properties...)
			if err != nil {
				ReportError(w, err, traceID(ctx))
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContextWithEntity(ctx, entity)))
		})
	}
}

func NewContextWithEntity(ctx context.Context, entity any) context.Context {
	return context.WithValue(ctx, entityKey, entity)
}

func EntityFromContext[T any](ctx context.Context) (T, bool) {
	entity, ok := ctx.Value(entityKey).(T)
	return entity, ok
}

// ReportError writes err to w as an RFC 7807 problem report
func ReportError(w http.ResponseWriter, err error, traceID string) {
	switch {
	case errors.Is(err, binderrors.ErrBadRequest):
		binderrors.ReportNewBadRequestData(w, err.Error(), traceID)
	case errors.Is(err, binderrors.ErrInvalidRequest):
		binderrors.ReportNewInvalidRequest(w, err.Error(), traceID)
	case errors.Is(err, binderrors.ErrUnknownType), errors.Is(err, binderrors.ErrNotFound):
		binderrors.ReportNotFoundError(w, err.Error(), traceID)
	default:
		binderrors.ReportNewInternalError(w, err.Error(), traceID)
	}
}

func traceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
