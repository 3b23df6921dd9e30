package commands

import (
	"github.com/hupe1980/activityagent/activity"
	"github.com/hupe1980/activityagent/config"
	"github.com/hupe1980/activityagent/logging"
	"github.com/hupe1980/activityagent/model"
	anthropicmodel "github.com/hupe1980/activityagent/model/anthropic"
	openaimodel "github.com/hupe1980/activityagent/model/openai"
	"github.com/hupe1980/activityagent/reply"
)

// newModelFactory returns a factory building the configured provider's model
// for an explicit credential.
func newModelFactory(cfg config.ModelConfig) reply.ModelFactory {
	return func(credential string) (model.Model, error) {
		switch cfg.Provider {
		case config.ProviderAnthropic:
			return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
				o.APIKey = credential
				o.BaseURL = cfg.BaseURL
				o.Temperature = cfg.Temperature
				o.MaxTokens = cfg.MaxTokens
				if cfg.Name != "" {
					o.Model = cfg.Name
				}
			}), nil
		default:
			return openaimodel.NewModel(func(o *openaimodel.Options) {
				o.APIKey = credential
				o.BaseURL = cfg.BaseURL
				o.Temperature = cfg.Temperature
				o.MaxCompletionTokens = cfg.MaxTokens
				if cfg.Name != "" {
					o.Model = cfg.Name
				}
			}), nil
		}
	}
}

// newGenerator wires the reply generator from configuration.
func newGenerator(cfg *config.Config, logger logging.Logger) (*reply.Generator, error) {
	mode, err := activity.ParseMode(cfg.Agent.ToolMode)
	if err != nil {
		return nil, err
	}

	return reply.New(func(o *reply.Options) {
		o.Credential = cfg.APIKey()
		o.NewModel = newModelFactory(cfg.Model)
		o.EnableMemory = cfg.Agent.MemoryEnabled
		o.ToolMode = mode
		o.Verbose = cfg.Agent.Verbose
		o.MaxIterations = cfg.Agent.MaxIterations
		o.HandleToolErrors = cfg.Agent.HandleToolErrors
		o.ReturnSteps = cfg.Agent.ReturnSteps
		o.Logger = logger
	})
}
