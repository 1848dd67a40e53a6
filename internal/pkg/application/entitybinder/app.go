package entitybinder

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/diwise/entity-binder/pkg/binding/accessor"
	"github.com/diwise/entity-binder/pkg/binding/binder"
	"github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
	"github.com/diwise/entity-binder/pkg/binding/populator"
	"github.com/diwise/entity-binder/pkg/binding/repository"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

//go:generate moq -rm -out app_mock.go . EntityBinderApp

type EntityBinderApp interface {
	BindEntity(ctx context.Context, r *http.Request, entityType string) (any, error)
	Types() []TypeInfo
}

type TypeInfo struct {
	Type        string   `json:"type"`
	Extends     string   `json:"extends,omitempty"`
	Abstract    bool     `json:"abstract,omitempty"`
	Identifiers []string `json:"identifiers"`
	Lookup      []string `json:"lookup,omitempty"`
}

type app struct {
	binder  binder.EntityBinder
	exposed map[string]ExposedType
	types   []TypeInfo
}

// NewRegistry registers every configured entity descriptor. Entities are
// instantiated as dynamic records.
func NewRegistry(cfg *Config) (*metadata.Registry, error) {
	registry := metadata.NewRegistry()

	err := registry.RegisterAll(cfg.Entities, func(entityType string) metadata.Factory {
		return func() any {
			d, err := registry.Descriptor(entityType)
			if err != nil {
				return accessor.NewRecord(entityType)
			}
			return accessor.NewRecord(entityType, d.Identifiers...)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register entity descriptors: %w", err)
	}

	if err = registry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid entity descriptors: %w", err)
	}

	return registry, nil
}

// NewInMemoryRepository returns a repository holding the seed rows of the configuration
func NewInMemoryRepository(cfg *Config, md metadata.Provider, pa accessor.PropertyAccessor) (*repository.InMemory, error) {
	repo := repository.NewInMemory(md, pa)

	types := make([]string, 0, len(cfg.Seed))
	for entityType := range cfg.Seed {
		types = append(types, entityType)
	}
	sort.Strings(types)

	for _, entityType := range types {
		for _, row := range cfg.Seed[entityType] {
			if _, err := repo.AddRow(entityType, row); err != nil {
				return nil, fmt.Errorf("failed to seed %s: %w", entityType, err)
			}
		}
	}

	return repo, nil
}

func New(ctx context.Context, cfg *Config, md *metadata.Registry, pa accessor.PropertyAccessor, repo repository.Repository, options ...populator.Option) (EntityBinderApp, error) {
	a := &app{
		binder:  binder.New(md, pa, repo, options...),
		exposed: make(map[string]ExposedType),
	}

	exposed := cfg.Expose
	if len(exposed) == 0 {
		for _, name := range md.Types() {
			exposed = append(exposed, ExposedType{Type: name})
		}
	}

	for _, et := range exposed {
		d, err := md.Descriptor(et.Type)
		if err != nil {
			return nil, fmt.Errorf("unable to expose %s: %w", et.Type, err)
		}

		for _, property := range et.Lookup {
			if _, ok := d.Field(property); !ok {
				return nil, fmt.Errorf("lookup property %s is not a field of %s", property, et.Type)
			}
		}

		a.exposed[et.Type] = et
		a.types = append(a.types, TypeInfo{
			Type:        d.Type,
			Extends:     d.Extends,
			Abstract:    d.IsPolymorphic(),
			Identifiers: d.Identifiers,
			Lookup:      et.Lookup,
		})
	}

	sort.Slice(a.types, func(i, j int) bool { return a.types[i].Type < a.types[j].Type })

	logging.GetFromContext(ctx).Info("entity binder configured", "types", len(a.types))

	return a, nil
}

func (a *app) BindEntity(ctx context.Context, r *http.Request, entityType string) (any, error) {
	et, ok := a.exposed[entityType]
	if !ok {
		return nil, errors.NewUnknownTypeError(entityType)
	}

	return a.binder.Resolve(ctx, r, entityType, et.Lookup...)
}

func (a *app) Types() []TypeInfo {
	return a.types
}
