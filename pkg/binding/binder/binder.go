package binder

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/diwise/entity-binder/pkg/binding/accessor"
	binderrors "github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
	"github.com/diwise/entity-binder/pkg/binding/populator"
	"github.com/diwise/entity-binder/pkg/binding/repository"
	"github.com/diwise/entity-binder/pkg/binding/values"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("entity-binder/binder")

// EntityBinder turns an incoming request into a populated entity
type EntityBinder interface {
	Supports(entityType string) bool
	// Resolve locates the entity identified by properties (or by the identifiers
	// of entityType when no properties are given) and populates it from the
	// request. A new instance is created when nothing can be located.
	Resolve(ctx context.Context, r *http.Request, entityType string, properties ...string) (any, error)
}

type entityBinder struct {
	md        metadata.Provider
	repo      repository.Repository
	populator *populator.EntityPopulator
}

func New(md metadata.Provider, pa accessor.PropertyAccessor, repo repository.Repository, options ...populator.Option) EntityBinder {
	return &entityBinder{
		md:        md,
		repo:      repo,
		populator: populator.New(md, pa, repo, options...),
	}
}

func (b *entityBinder) Supports(entityType string) bool {
	return b.md.Supports(entityType)
}

func (b *entityBinder) Resolve(ctx context.Context, r *http.Request, entityType string, properties ...string) (entity any, err error) {
	ctx, span := tracer.Start(ctx, "resolve-entity", trace.WithAttributes(attribute.String("entity.type", entityType)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	if !b.Supports(entityType) {
		return nil, binderrors.NewUnknownTypeError(entityType)
	}

	bag, err := values.FromRequest(r)
	if err != nil {
		return nil, err
	}

	entity, err = b.retrieve(ctx, entityType, bag, properties)
	if err != nil {
		return nil, classify(err)
	}

	err = b.populator.Populate(ctx, entity, bag, "")
	if err != nil {
		return nil, classify(err)
	}

	return entity, nil
}

func (b *entityBinder) retrieve(ctx context.Context, entityType string, bag values.Bag, properties []string) (any, error) {
	d, err := b.md.Descriptor(entityType)
	if err != nil {
		return nil, err
	}

	if len(properties) == 0 {
		properties = d.Identifiers
	}

	search := map[string]any{}

	for _, property := range properties {
		value, err := bag.Find(property)
		if err != nil {
			if errors.Is(err, binderrors.ErrFieldNotFound) {
				continue
			}
			return nil, err
		}

		if value == nil {
			continue
		}

		if f, ok := d.Field(property); ok {
			value, err = f.Coerce(value)
			if err != nil {
				return nil, err
			}
		}

		search[property] = value
	}

	if len(search) > 0 && len(search) == len(properties) && b.repo != nil {
		entity, err := b.repo.FindOneBy(ctx, entityType, search)
		if err == nil {
			return entity, nil
		}

		if !errors.Is(err, binderrors.ErrNotFound) {
			logging.GetFromContext(ctx).Debug("repository lookup failed", "entity_type", entityType, "err", err.Error())
		}
	}

	return b.populator.CreateNewInstance(entityType, bag)
}

func classify(err error) error {
	for _, target := range []error{
		binderrors.ErrDiscriminatorMissing,
		binderrors.ErrDiscriminatorUnknown,
		binderrors.ErrInvalidEnumValue,
		binderrors.ErrInvalidFieldValue,
		binderrors.ErrMaxDepth,
	} {
		if errors.Is(err, target) {
			return binderrors.NewBadRequestDataError(err)
		}
	}

	return err
}

// Bind resolves an entity and asserts that it is of type T
func Bind[T any](ctx context.Context, b EntityBinder, r *http.Request, entityType string, properties ...string) (T, error) {
	var zero T

	entity, err := b.Resolve(ctx, r, entityType, properties...)
	if err != nil {
		return zero, err
	}

	typed, ok := entity.(T)
	if !ok {
		return zero, fmt.Errorf("bound entity of type %T is not a %T", entity, zero)
	}

	return typed, nil
}
