package gateway

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mxl4r/Prism-LLM-frontend/internal/cli"
	"github.com/mxl4r/Prism-LLM-frontend/internal/config"
	"github.com/mxl4r/Prism-LLM-frontend/internal/llm"
)

// BootstrapProviders builds one adapter per provider kind from configuration
// and registers it. Adapters without a credential are still registered so
// that calls fail with llm.ErrMissingCredential instead of a routing error.
func BootstrapProviders(service Service, providers config.ProvidersConfig, log *zap.Logger) int {
	registeredCount := 0
	validate := validator.New()

	for _, kind := range llm.Kinds() {
		pCfg := providerConfig(providers, kind)

		if err := validate.Struct(&pCfg); err != nil {
			log.Warn(fmt.Sprintf("%s %s %s",
				cli.WarningSign(),
				cli.Style(fmt.Sprintf("%s\t", kind), cli.Bold),
				cli.Style("Provider is not fully configured; calls will fail until an API key is set", cli.Yellow),
			), zap.Error(err))
		}

		factoryFunc, err := llm.Get(kind)
		if err != nil {
			log.Error("Unknown provider type", zap.Stringer("type", kind))
			continue
		}

		providerInstance, err := factoryFunc(pCfg, log)
		if err != nil {
			log.Error("Failed to initialize provider",
				zap.Stringer("type", kind),
				zap.Error(err),
			)
			continue
		}

		service.Register(providerInstance)
		registeredCount++
	}

	if registeredCount == 0 {
		log.Warn("No providers were registered. Chat will not function.")
	}

	return registeredCount
}

func providerConfig(providers config.ProvidersConfig, kind llm.Kind) config.ProviderConfig {
	switch kind {
	case llm.Google:
		return providers.Google
	case llm.OpenAI:
		return providers.OpenAI
	case llm.Anthropic:
		return providers.Anthropic
	}
	return config.ProviderConfig{}
}
