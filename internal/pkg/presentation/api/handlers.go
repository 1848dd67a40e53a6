package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/diwise/entity-binder/internal/pkg/application/entitybinder"
	"github.com/diwise/entity-binder/internal/pkg/presentation/api/auth"
	"github.com/diwise/entity-binder/pkg/binding/binder"
	binderrors "github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("entity-binder/api")

const (
	TraceAttributeEntityType string = "entity-binder.entity.type"
	TraceAttributeEntityID   string = "entity-binder.entity.id"
)

func RegisterHandlers(ctx context.Context, r chi.Router, policies io.Reader, app entitybinder.EntityBinderApp) error {

	authenticator, err := auth.NewAuthenticator(ctx, policies)
	if err != nil {
		return fmt.Errorf("failed to create api authenticator: %w", err)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			Logger(logging.GetFromContext(ctx)),
			RequiredContentTypes([]string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}),
		)

		r.Route("/entities/{type}", func(r chi.Router) {
			r.Post("/", NewBindEntityHandler(app, authenticator))
			r.Put("/{id}", NewBindEntityHandler(app, authenticator))
			r.Patch("/{id}", NewBindEntityHandler(app, authenticator))
		})

		r.Get("/types", NewRetrieveTypesHandler(app, authenticator))
	})

	return nil
}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequiredContentTypes(validTypes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType := r.Header.Get("Content-Type")
			isValidContentType := true

			if len(contentType) > 0 {
				isValidContentType = false

				for _, t := range validTypes {
					if strings.HasPrefix(contentType, t) {
						isValidContentType = true
						break
					}
				}
			}

			if isValidContentType {
				next.ServeHTTP(w, r)
			} else {
				http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
			}
		})
	}
}

// NewBindEntityHandler binds the entity addressed by the request and responds
// with its JSON representation
func NewBindEntityHandler(app entitybinder.EntityBinderApp, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		entityType := chi.URLParam(r, "type")

		ctx, span := tracer.Start(r.Context(), "bind-entity",
			trace.WithAttributes(
				attribute.String(TraceAttributeEntityType, entityType),
				attribute.String(TraceAttributeEntityID, chi.URLParam(r, "id")),
			),
		)
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		log := logging.GetFromContext(ctx)

		err = authenticator.CheckAccess(ctx, r, []string{entityType})
		if err != nil {
			log.Warn("access not granted", "err", err.Error())
			messageToSendToNonAuthenticatedClients := "not found"
			binderrors.ReportNotFoundError(w, messageToSendToNonAuthenticatedClients, traceID(ctx))
			return
		}

		entity, err := app.BindEntity(ctx, r.WithContext(ctx), entityType)
		if err != nil {
			log.Info("failed to bind entity", "type", entityType, "err", err.Error())
			binder.ReportError(w, err, traceID(ctx))
			return
		}

		responseBody, err := json.Marshal(entity)
		if err != nil {
			log.Error("failed to marshal bound entity", "type", entityType, "err", err.Error())
			binderrors.ReportNewInternalError(w, "failed to encode entity", traceID(ctx))
			return
		}

		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(responseBody)
	})
}

func NewRetrieveTypesHandler(app entitybinder.EntityBinderApp, authenticator auth.Enticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		log := logging.GetFromContext(ctx)

		err = authenticator.CheckAccess(ctx, r, []string{})
		if err != nil {
			log.Warn("access not granted", "err", err.Error())
			binderrors.ReportNotFoundError(w, "not found", traceID(ctx))
			return
		}

		responseBody, err := json.Marshal(app.Types())
		if err != nil {
			binderrors.ReportNewInternalError(w, err.Error(), traceID(ctx))
			return
		}

		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(responseBody)
	})
}

func addLabelIfError(err error, labeler *otelhttp.Labeler) {
	if err != nil && labeler != nil {
		labeler.Add(attribute.Bool("error", true))
	}
}

func traceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}
