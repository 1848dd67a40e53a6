package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/diwise/entity-binder/internal/pkg/application/entitybinder"
	"github.com/diwise/entity-binder/internal/pkg/infrastructure/repositories/dynamodb"
	"github.com/diwise/entity-binder/internal/pkg/infrastructure/repositories/postgres"
	"github.com/diwise/entity-binder/internal/pkg/infrastructure/router"
	"github.com/diwise/entity-binder/internal/pkg/presentation/api"
	"github.com/diwise/entity-binder/pkg/binding/accessor"
	"github.com/diwise/entity-binder/pkg/binding/metadata"
	"github.com/diwise/entity-binder/pkg/binding/populator"
	"github.com/diwise/entity-binder/pkg/binding/repository"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName string = "entity-binder"

func DefaultFlags() FlagMap {
	return FlagMap{
		listenAddress:  "",
		servicePort:    "8080",
		configPath:     "/opt/diwise/config/entity-binder.yaml",
		opaPath:        "/opt/diwise/config/authz.rego",
		repositoryKind: memoryRepository,
		maxDepth:       strconv.Itoa(populator.DefaultMaxDepth),
	}
}

func main() {
	serviceVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion, "json")
	defer cleanup()

	flags := parseExternalConfig(ctx, DefaultFlags())

	configFile, err := os.Open(flags[configPath])
	if err != nil {
		log.Error("failed to open entity configuration", "path", flags[configPath], "err", err.Error())
		os.Exit(1)
	}
	defer configFile.Close()

	policies, err := os.Open(flags[opaPath])
	if err != nil {
		log.Error("failed to open authz policies", "path", flags[opaPath], "err", err.Error())
		os.Exit(1)
	}
	defer policies.Close()

	handler, err := initialize(ctx, flags, configFile, policies)
	if err != nil {
		log.Error("failed to initialize service", "err", err.Error())
		os.Exit(1)
	}

	addr := net.JoinHostPort(flags[listenAddress], flags[servicePort])
	log.Info("starting to listen for connections", "addr", addr)

	err = http.ListenAndServe(addr, otelhttp.NewHandler(handler, serviceName))
	if err != nil {
		log.Error("failed to listen for connections", "err", err.Error())
		os.Exit(1)
	}
}

func initialize(ctx context.Context, flags FlagMap, configFile, policies io.Reader) (http.Handler, error) {
	cfg, err := entitybinder.LoadConfiguration(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity configuration: %w", err)
	}

	md, err := entitybinder.NewRegistry(cfg)
	if err != nil {
		return nil, err
	}

	pa := accessor.New()

	repo, err := newRepository(ctx, flags[repositoryKind], cfg, md, pa)
	if err != nil {
		return nil, err
	}

	depth, err := strconv.Atoi(flags[maxDepth])
	if err != nil {
		return nil, fmt.Errorf("invalid max depth %q: %w", flags[maxDepth], err)
	}

	app, err := entitybinder.New(ctx, cfg, md, pa, repo, populator.WithMaxDepth(depth))
	if err != nil {
		return nil, err
	}

	r := router.New(serviceName)

	err = api.RegisterHandlers(ctx, r, policies, app)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func newRepository(ctx context.Context, kind string, cfg *entitybinder.Config, md metadata.Provider, pa accessor.PropertyAccessor) (repository.Repository, error) {
	switch kind {
	case memoryRepository:
		repo, err := entitybinder.NewInMemoryRepository(cfg, md, pa)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case postgresRepository:
		pool, err := postgres.Connect(ctx, postgres.LoadConfiguration(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.New(pool, md, pa), nil
	case dynamoDBRepository:
		dbCfg := dynamodb.LoadConfiguration(ctx)
		client, err := dynamodb.NewClient(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		return dynamodb.New(client, dbCfg, md, pa), nil
	default:
		return nil, fmt.Errorf("unknown repository kind %q", kind)
	}
}

func parseExternalConfig(ctx context.Context, flags FlagMap) FlagMap {

	// Allow environment variables to override certain defaults
	envOrDef := env.GetVariableOrDefault
	flags[servicePort] = envOrDef(ctx, "SERVICE_PORT", flags[servicePort])
	flags[configPath] = envOrDef(ctx, "ENTITY_BINDER_CONFIG_PATH", flags[configPath])
	flags[opaPath] = envOrDef(ctx, "ENTITY_BINDER_POLICIES_PATH", flags[opaPath])
	flags[repositoryKind] = envOrDef(ctx, "REPOSITORY_KIND", flags[repositoryKind])
	flags[maxDepth] = envOrDef(ctx, "ENTITY_BINDER_MAX_DEPTH", flags[maxDepth])

	apply := func(f FlagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("port", "tcp port to listen for requests on", apply(servicePort))
	flag.Func("config", "entity configuration file", apply(configPath))
	flag.Func("policies", "an authorization policy file", apply(opaPath))
	flag.Func("repository", "repository kind (memory, postgres or dynamodb)", apply(repositoryKind))
	flag.Func("max-depth", "maximum nesting depth of bound associations", apply(maxDepth))
	flag.Parse()

	return flags
}
