package main

import (
	"fmt"
	"os"

	"github.com/careboard-ai/careboard"
	"github.com/careboard-ai/careboard/blobstore"
	"github.com/careboard-ai/careboard/config"
	"github.com/careboard-ai/careboard/history"
	"github.com/careboard-ai/careboard/llm"
	"github.com/careboard-ai/careboard/llm/providers/openai"
	"github.com/careboard-ai/careboard/patientctx"
	"github.com/careboard-ai/careboard/registry"
	"github.com/careboard-ai/careboard/slogger"
	"github.com/careboard-ai/careboard/tools"
	"github.com/careboard-ai/careboard/turn"
)

// app wires together everything a serving process needs.
type app struct {
	settings   *config.Settings
	logger     slogger.Logger
	tools      *tools.Registry
	controller *turn.Controller
}

func newApp() (*app, error) {
	settings, err := config.SettingsFromEnv()
	if err != nil {
		return nil, err
	}
	logger := slogger.New(slogger.LevelFromString(settings.LogLevel))

	agentsConfig, err := config.ParseFile(settings.AgentsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load agents config: %w", err)
	}

	store := blobstore.New(settings.StorageURL)
	historyAccessor := history.NewAccessor(store, logger)
	registryAccessor := registry.NewAccessor(store, logger)

	newCompleter := completerFactory()
	analyzer := patientctx.NewAnalyzer(newCompleter, logger)
	service := patientctx.NewService(analyzer, registryAccessor, historyAccessor, settings.PatientIDPattern, logger)

	toolRegistry := tools.NewRegistry()

	agents, err := careboard.BuildAgents(careboard.FactoryOptions{
		Config:       agentsConfig,
		NewCompleter: newCompleter,
		Tools:        toolRegistry,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build agents: %w", err)
	}

	controller, err := turn.NewController(turn.ControllerOptions{
		History:     historyAccessor,
		Service:     service,
		Agents:      agents,
		Facilitator: agentsConfig.Facilitator().Name,
		Selector:    newCompleter(),
		Terminator:  newCompleter(),
		Settings:    settings,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		settings:   settings,
		logger:     logger,
		tools:      toolRegistry,
		controller: controller,
	}, nil
}

// reloadAgents rebuilds the roster from the config file and swaps it into
// the controller.
func (a *app) reloadAgents() error {
	agentsConfig, err := config.ParseFile(a.settings.AgentsConfigPath)
	if err != nil {
		return err
	}
	agents, err := careboard.BuildAgents(careboard.FactoryOptions{
		Config:       agentsConfig,
		NewCompleter: completerFactory(),
		Tools:        a.tools,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}
	return a.controller.SetAgents(agents, agentsConfig.Facilitator().Name)
}

// completerFactory builds chat-completion handles from the environment.
// OPENAI_ENDPOINT and OPENAI_MODEL override the provider defaults;
// OPENAI_API_KEY is read by the provider itself.
func completerFactory() func() llm.Completer {
	var opts []openai.Option
	if endpoint := os.Getenv("OPENAI_ENDPOINT"); endpoint != "" {
		opts = append(opts, openai.WithEndpoint(endpoint))
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	return func() llm.Completer {
		return openai.New(opts...)
	}
}
