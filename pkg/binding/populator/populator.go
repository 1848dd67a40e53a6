package populator

import (
	"context"
	"errors"
	"fmt"

	"github.com/diwise/entity-binder/pkg/binding/accessor"
	binderrors "github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
	"github.com/diwise/entity-binder/pkg/binding/repository"
	"github.com/diwise/entity-binder/pkg/binding/values"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("entity-binder/populator")

const DefaultMaxDepth int = 32

type EntityPopulator struct {
	md       metadata.Provider
	pa       accessor.PropertyAccessor
	repo     repository.Repository
	maxDepth int
}

type Option func(*EntityPopulator)

// WithMaxDepth limits how deep nested associations in a request may go
func WithMaxDepth(depth int) Option {
	return func(p *EntityPopulator) {
		p.maxDepth = depth
	}
}

// New creates an EntityPopulator. The repository may be nil, in which case every
// association value is created from scratch.
func New(md metadata.Provider, pa accessor.PropertyAccessor, repo repository.Repository, options ...Option) *EntityPopulator {
	p := &EntityPopulator{
		md:       md,
		pa:       pa,
		repo:     repo,
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

type depthKey struct{}

func depthFrom(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}

func deeper(ctx context.Context) context.Context {
	return context.WithValue(ctx, depthKey{}, depthFrom(ctx)+1)
}

// Populate fills the fields and associations of target with the values found in
// bag. Values that are absent from the bag are left untouched and values that
// are present but null are cleared. Associations targeting originatingType are
// skipped so that population does not walk back into the entity that it came from.
func (p *EntityPopulator) Populate(ctx context.Context, target any, bag values.Bag, originatingType string) error {
	if depthFrom(ctx) > p.maxDepth {
		return binderrors.NewMaxDepthError(p.maxDepth)
	}

	entityType, err := p.md.TypeOf(target)
	if err != nil {
		return err
	}

	d, err := p.md.Descriptor(entityType)
	if err != nil {
		return err
	}

	if err = p.populateFields(target, d, bag); err != nil {
		return err
	}

	return p.populateAssociations(ctx, target, d, bag, originatingType)
}

func (p *EntityPopulator) populateFields(target any, d *metadata.Descriptor, bag values.Bag) error {
	for _, f := range d.Fields {
		raw, err := bag.Find(f.Name)
		if err != nil {
			if errors.Is(err, binderrors.ErrFieldNotFound) {
				continue
			}
			return err
		}

		if !p.pa.IsWritable(target, f.Name) {
			continue
		}

		value, err := f.Coerce(raw)
		if err != nil {
			return err
		}

		if err = p.pa.SetValue(target, f.Name, value); err != nil {
			return err
		}
	}

	return nil
}

func (p *EntityPopulator) populateAssociations(ctx context.Context, target any, d *metadata.Descriptor, bag values.Bag, originatingType string) error {
	for _, a := range d.Associations {
		if a.TargetType == originatingType {
			continue
		}

		raw, err := bag.Find(a.Name)
		if err != nil {
			if errors.Is(err, binderrors.ErrFieldNotFound) {
				continue
			}
			return err
		}

		if !p.pa.IsWritable(target, a.Name) {
			continue
		}

		var value any

		if raw == nil {
			value = nil
		} else if a.IsCollection() {
			request, ok := values.AsSequence(raw)
			if !ok {
				return binderrors.NewInvalidFieldValueError(a.Name, fmt.Errorf("expected a list of objects"))
			}

			var existing []any
			if p.pa.IsReadable(target, a.Name) {
				current, err := p.pa.GetValue(target, a.Name)
				if err != nil {
					return err
				}
				existing = accessor.Elements(current)
			}

			value, err = p.MergeCollection(ctx, target, d.Type, a.TargetType, existing, request, a.Inverse, a.MappedBy)
			if err != nil {
				return err
			}
		} else {
			nested, ok := values.AsMap(raw)
			if !ok {
				return binderrors.NewInvalidFieldValueError(a.Name, fmt.Errorf("expected an object"))
			}

			value, err = p.RetrieveAssociationValue(ctx, d.Type, a.TargetType, nested)
			if err != nil {
				return err
			}
		}

		if err = p.pa.SetValue(target, a.Name, value); err != nil {
			return err
		}
	}

	return nil
}

// RetrieveAssociationValue fetches the entity identified by the identifier values
// in nested, or creates a new one when the identifiers are incomplete or nothing
// matches, and then populates it with nested.
func (p *EntityPopulator) RetrieveAssociationValue(ctx context.Context, originatingType, targetType string, nested values.Bag) (any, error) {
	d, err := p.md.Descriptor(targetType)
	if err != nil {
		return nil, err
	}

	var entity any

	id, complete, err := identifierValues(d, nested)
	if err != nil {
		return nil, err
	}

	if complete {
		entity = p.find(ctx, targetType, id)
	}

	if entity == nil {
		entity, err = p.CreateNewInstance(targetType, nested)
		if err != nil {
			return nil, err
		}
	}

	err = p.Populate(deeper(ctx), entity, nested, originatingType)
	if err != nil {
		return nil, err
	}

	return entity, nil
}

func (p *EntityPopulator) find(ctx context.Context, entityType string, id map[string]any) any {
	if p.repo == nil {
		return nil
	}

	var err error

	ctx, span := tracer.Start(ctx, "find-entity", trace.WithAttributes(attribute.String("entity.type", entityType)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	entity, err := p.repo.Find(ctx, entityType, id)
	if err != nil {
		if !errors.Is(err, binderrors.ErrNotFound) {
			logging.GetFromContext(ctx).Debug("repository lookup failed", "entity_type", entityType, "err", err.Error())
		}
		return nil
	}

	return entity
}

// CreateNewInstance returns a new instance of targetType. For polymorphic types
// the concrete type is selected by the discriminator value found in nested.
func (p *EntityPopulator) CreateNewInstance(targetType string, nested values.Bag) (any, error) {
	return p.md.NewFor(targetType, func(column string) (any, bool) {
		v, err := nested.Find(column)
		if err != nil {
			return nil, false
		}
		return v, true
	})
}

// MergeCollection reconciles the existing members of a collection with the
// entries of a request. Members that no entry identifies are dropped, identified
// members are populated in place and the remaining entries are fetched or created.
// The result follows the order of the request.
func (p *EntityPopulator) MergeCollection(
	ctx context.Context,
	owner any,
	originatingType, targetType string,
	existing []any,
	request []values.Map,
	inverse bool,
	mappedBy string,
) ([]any, error) {

	d, err := p.md.Descriptor(targetType)
	if err != nil {
		return nil, err
	}

	existing, err = p.prune(d, existing, request)
	if err != nil {
		return nil, err
	}

	result := make([]any, 0, len(request))

	for _, entry := range request {
		var element any

		if len(existing) > 0 {
			id, complete, err := identifierValues(d, entry)
			if err != nil {
				return nil, err
			}

			if complete {
				element = p.identifiedBy(existing, d.Identifiers, id)
			}
		}

		if element != nil {
			if err = p.Populate(deeper(ctx), element, entry, originatingType); err != nil {
				return nil, err
			}
		} else {
			element, err = p.RetrieveAssociationValue(ctx, originatingType, targetType, entry)
			if err != nil {
				return nil, err
			}
		}

		if inverse && mappedBy != "" && p.pa.IsWritable(element, mappedBy) {
			if err = p.pa.SetValue(element, mappedBy, owner); err != nil {
				return nil, err
			}
		}

		result = append(result, element)
	}

	return result, nil
}

// prune drops the members of existing that are not identified by any request
// entry. If a member does not expose its identifiers, existing is returned as is.
func (p *EntityPopulator) prune(d *metadata.Descriptor, existing []any, request []values.Map) ([]any, error) {
	if len(existing) == 0 || len(d.Identifiers) == 0 {
		return existing, nil
	}

	for _, element := range existing {
		for _, name := range d.Identifiers {
			if !p.pa.IsReadable(element, name) {
				return existing, nil
			}
		}
	}

	requested := make([]map[string]any, 0, len(request))
	for _, entry := range request {
		id, complete, err := identifierValues(d, entry)
		if err != nil {
			return nil, err
		}
		if complete {
			requested = append(requested, id)
		}
	}

	kept := make([]any, 0, len(existing))
	for _, element := range existing {
		for _, id := range requested {
			if p.hasIdentity(element, d.Identifiers, id) {
				kept = append(kept, element)
				break
			}
		}
	}

	return kept, nil
}

func (p *EntityPopulator) identifiedBy(elements []any, identifiers []string, id map[string]any) any {
	for _, element := range elements {
		if p.hasIdentity(element, identifiers, id) {
			return element
		}
	}
	return nil
}

func (p *EntityPopulator) hasIdentity(element any, identifiers []string, id map[string]any) bool {
	for _, name := range identifiers {
		actual, err := p.pa.GetValue(element, name)
		if err != nil || !repository.SameValue(actual, id[name]) {
			return false
		}
	}
	return true
}

// identifierValues collects the identifier values of d found in bag, coerced to
// their declared kinds. complete is only true when every identifier has a non
// null value.
func identifierValues(d *metadata.Descriptor, bag values.Bag) (id map[string]any, complete bool, err error) {
	if len(d.Identifiers) == 0 {
		return nil, false, nil
	}

	id = make(map[string]any, len(d.Identifiers))

	for _, name := range d.Identifiers {
		raw, err := bag.Find(name)
		if err != nil {
			if errors.Is(err, binderrors.ErrFieldNotFound) {
				return id, false, nil
			}
			return nil, false, err
		}

		if raw == nil {
			return id, false, nil
		}

		if f, ok := d.Field(name); ok {
			raw, err = f.Coerce(raw)
			if err != nil {
				return nil, false, err
			}
		}

		id[name] = raw
	}

	return id, true, nil
}
