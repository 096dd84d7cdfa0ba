package capability

import (
	"context"
	"fmt"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	llmx "github.com/Dispatch-AI-com/AI/agent/llm"
	promptx "github.com/Dispatch-AI-com/AI/agent/prompt"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

type registryImpl struct {
	classifier     contractx.Classifier
	name           contractx.Collector
	background     contractx.Collector
	additionalInfo contractx.Collector
}

func (r *registryImpl) Classifier() contractx.Classifier {
	return r.classifier
}

func (r *registryImpl) Name() contractx.Collector {
	return r.name
}

func (r *registryImpl) Background() contractx.Collector {
	return r.background
}

func (r *registryImpl) AdditionalInfo() contractx.Collector {
	return r.additionalInfo
}

// NewRegistry compiles the classifier and the three step collectors against
// their OpenRouter models. The classifier and collectors may run on
// different models and temperatures; both default to the shared model.
func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts := promptx.LoadPromptSet()

	classifierModelCfg := cfg.OpenRouterFor(contractx.CapabilityClassifier)
	classifierModel, err := classifierModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create classifier model: %v", contractx.ErrModelInvoke, err)
	}
	collectorModelCfg := cfg.OpenRouterFor(contractx.CapabilityCollector)
	collectorModel, err := collectorModelCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create collector model: %v", contractx.ErrModelInvoke, err)
	}

	classifier, err := newClassifier(ctx, classifierModel, prompts.Classifier)
	if err != nil {
		return nil, err
	}

	name, err := newCollector(ctx, statex.StepName, collectorModel, prompts.Name)
	if err != nil {
		return nil, err
	}
	background, err := newCollector(ctx, statex.StepBackground, collectorModel, prompts.Background)
	if err != nil {
		return nil, err
	}
	additionalInfo, err := newCollector(ctx, statex.StepAdditionalInfo, collectorModel, prompts.AdditionalInfo)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		classifier:     classifier,
		name:           name,
		background:     background,
		additionalInfo: additionalInfo,
	}, nil
}
