package cli

import (
	"time"

	configfile "github.com/custodia-labs/harvest-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/files"
	metadatagen "github.com/custodia-labs/harvest-cli/internal/adapters/driven/metadata"
	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/registry/rpc"
	"github.com/custodia-labs/harvest-cli/internal/adapters/driven/source/jsonfile"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driving"
	"github.com/custodia-labs/harvest-cli/internal/core/services"
	"github.com/custodia-labs/harvest-cli/internal/filters"
	"github.com/custodia-labs/harvest-cli/internal/pipeline"
	"github.com/custodia-labs/harvest-cli/internal/processors"
)

// app bundles the wired services one command invocation needs.
type app struct {
	config    *configfile.Config
	harvester driving.Harvester
	sweeper   driving.Sweeper
}

// buildApp loads configuration and wires the full service graph. Every
// configuration mistake surfaces here, before any record is touched.
func buildApp(path string) (*app, error) {
	cfg, err := configfile.Load(path)
	if err != nil {
		return nil, err
	}

	var clientOpts []rpc.Option
	if cfg.Registry.ClientGUID != "" {
		clientOpts = append(clientOpts, rpc.WithClientGUID(cfg.Registry.ClientGUID))
	}
	if cfg.Registry.SessionTimeoutMinutes > 0 {
		clientOpts = append(clientOpts, rpc.WithSessionTimeout(time.Duration(cfg.Registry.SessionTimeoutMinutes)*time.Minute))
	}
	if cfg.Registry.RequestsPerSecond > 0 {
		clientOpts = append(clientOpts, rpc.WithRequestsPerSecond(cfg.Registry.RequestsPerSecond))
	}
	client, err := rpc.NewClient(cfg.Registry.Endpoint, cfg.Registry.Email, cfg.Registry.Password, clientOpts...)
	if err != nil {
		return nil, err
	}

	registry := pipeline.NewRegistry()
	filters.RegisterDefaults(registry)
	processors.RegisterDefaults(registry, processors.Deps{
		Client:    client,
		Validator: metadatagen.NewValidator(),
		Checker:   files.NewHeadChecker(),
		NewGenerator: func(templatePath string) (driven.MetadataGenerator, error) {
			return metadatagen.NewTemplateGenerator(templatePath)
		},
	})

	object, err := processors.NewObject(processors.ObjectConfig{
		Queries:                 cfg.Object.Queries,
		ObjectTypeID:            cfg.Object.ObjectTypeID,
		FolderID:                cfg.Object.FolderID,
		DuplicateThreshold:      cfg.Object.DuplicateThreshold,
		PublishAccessPointIDs:   cfg.Object.PublishAccessPoints,
		UnpublishAccessPointIDs: cfg.Object.UnpublishAccessPoints,
		UnpublishEverywhere:     cfg.Object.UnpublishEverywhere,
		DeleteOrphans:           cfg.Object.DeleteOrphansEnabled(),
	})
	if err != nil {
		return nil, err
	}

	var pipelineFilters []pipeline.Filter
	for _, fc := range cfg.Filters {
		filter, err := registry.BuildFilter(fc.Name, fc.Config)
		if err != nil {
			return nil, err
		}
		pipelineFilters = append(pipelineFilters, filter)
	}

	var pipelineProcessors []pipeline.Processor
	for _, pc := range cfg.Processors {
		processor, err := registry.BuildProcessor(pc.Name, pc.Config)
		if err != nil {
			return nil, err
		}
		pipelineProcessors = append(pipelineProcessors, processor)
	}

	runner, err := pipeline.NewRunner(object, pipelineFilters, pipelineProcessors)
	if err != nil {
		return nil, err
	}

	return &app{
		config:    cfg,
		harvester: services.NewHarvestEngine(client, jsonfile.NewSource(cfg.Source.Path), runner),
		sweeper:   services.NewSweepService(client),
	}, nil
}
