package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/diwise/entity-binder/pkg/binding/accessor"
	"github.com/diwise/entity-binder/pkg/binding/errors"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
	"github.com/diwise/entity-binder/pkg/binding/repository"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("entity-binder/repositories/postgres")

type Config struct {
	host     string
	user     string
	password string
	port     string
	dbname   string
	sslmode  string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		host:     env.GetVariableOrDefault(ctx, "POSTGRES_HOST", ""),
		user:     env.GetVariableOrDefault(ctx, "POSTGRES_USER", ""),
		password: env.GetVariableOrDefault(ctx, "POSTGRES_PASSWORD", ""),
		port:     env.GetVariableOrDefault(ctx, "POSTGRES_PORT", "5432"),
		dbname:   env.GetVariableOrDefault(ctx, "POSTGRES_DBNAME", "diwise"),
		sslmode:  env.GetVariableOrDefault(ctx, "POSTGRES_SSLMODE", "disable"),
	}
}

func (c Config) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.user, c.password, c.host, c.port, c.dbname, c.sslmode)
}

func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	conn, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, err
	}

	err = conn.Ping(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// DBInterface is the part of a pgx pool that the repository needs
type DBInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads entities from the table declared in their descriptor. Fields
// are read from the columns they are mapped to.
type Repository struct {
	db DBInterface
	md metadata.Provider
	pa accessor.PropertyAccessor
}

func New(db DBInterface, md metadata.Provider, pa accessor.PropertyAccessor) *Repository {
	return &Repository{db: db, md: md, pa: pa}
}

var _ repository.Repository = &Repository{}

func (r *Repository) Find(ctx context.Context, entityType string, id map[string]any) (any, error) {
	return r.FindOneBy(ctx, entityType, id)
}

func (r *Repository) FindOneBy(ctx context.Context, entityType string, criteria map[string]any) (entity any, err error) {
	ctx, span := tracer.Start(ctx, "find-one-by", trace.WithAttributes(attribute.String("entity.type", entityType)))
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	d, err := r.md.Descriptor(entityType)
	if err != nil {
		return nil, err
	}

	if d.Table == "" {
		return nil, fmt.Errorf("entity type %s is not mapped to a table", entityType)
	}

	columns, err := repository.Columns(d, criteria)
	if err != nil {
		return nil, err
	}

	query, args, err := squirrel.Select("*").
		From(d.Table).
		Where(squirrel.Eq(columns)).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	row := map[string]any{}
	if err = pgxscan.Get(ctx, r.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("no %s in %s matching %v", entityType, d.Table, criteria))
		}
		return nil, fmt.Errorf("scanning %s: %w", entityType, err)
	}

	return repository.Hydrate(r.md, r.pa, entityType, row)
}
