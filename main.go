package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	chatbotx "github.com/Dispatch-AI-com/AI/agent/agents/chatbot"
	orchestratorx "github.com/Dispatch-AI-com/AI/agent/agents/orchestrator"
	capabilityx "github.com/Dispatch-AI-com/AI/agent/capability"
	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	llmx "github.com/Dispatch-AI-com/AI/agent/llm"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
	backendx "github.com/Dispatch-AI-com/AI/pkg/backend"
	calllogx "github.com/Dispatch-AI-com/AI/pkg/calllog"
	configx "github.com/Dispatch-AI-com/AI/pkg/config"
	_ "github.com/Dispatch-AI-com/AI/pkg/logger/autoload"
	openrouterx "github.com/Dispatch-AI-com/AI/pkg/openrouter"
	redisx "github.com/Dispatch-AI-com/AI/pkg/redis"
	serverx "github.com/Dispatch-AI-com/AI/server"
)

type AppConfig struct {
	// Strategy selects the turn strategy: "orchestrator" (fixed three-step
	// collection) or "chatbot" (free-form).
	Strategy string `envconfig:"AGENT_STRATEGY" default:"orchestrator"`

	HistoryWindow     int `envconfig:"HISTORY_WINDOW" default:"8"`
	MaxRetriesPerStep int `envconfig:"MAX_RETRIES_PER_STEP" default:"3"`

	// CallLogSink selects the permanent call-log destination: "backend"
	// (dispatch backend HTTP API), "postgres" (local bun repository) or
	// "none".
	CallLogSink string `envconfig:"CALLLOG_SINK" default:"none"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	redisCfg := configx.MustNew[redisx.Config]("REDIS")
	serverCfg := configx.MustNew[serverx.Config]("SERVER")

	redisClient := redisCfg.MustNew()
	defer redisClient.Close()

	store, err := statex.NewRedisStore(redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create record store")
	}

	sink := buildCallLogSink(ctx, appCfg.CallLogSink)

	strategy := buildStrategy(ctx, appCfg, *llmCfg, store, sink)

	handler, err := serverx.NewHandler(strategy, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create http handler")
	}

	srv := serverx.NewServer(*serverCfg, handler)

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("strategy", appCfg.Strategy).
			Msg("ai call service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, serverCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func buildCallLogSink(ctx context.Context, kind string) contractx.CallLogBackend {
	switch kind {
	case "backend":
		cfg := configx.MustNew[backendx.Config]("BACKEND")
		return backendx.MustNew(*cfg)
	case "postgres":
		cfg := configx.MustNew[calllogx.Config]("CALLLOG")
		repo, err := calllogx.NewRepository(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create call-log repository")
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure call-log schema")
		}
		return repo
	case "none", "":
		return nil
	default:
		log.Fatal().Str("sink", kind).Msg("unknown call-log sink")
		return nil
	}
}

func buildStrategy(
	ctx context.Context,
	appCfg *AppConfig,
	llmCfg llmx.Config,
	store statex.Store,
	sink contractx.CallLogBackend,
) contractx.Strategy {
	switch appCfg.Strategy {
	case "chatbot":
		models, err := capabilityx.NewRegistry(ctx, llmCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build capability registry")
		}
		client := openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.CapabilityChat))
		if client == nil {
			log.Fatal().Msg("failed to initialize openrouter client")
		}
		chatter, err := capabilityx.NewChatter(client, llmCfg.ChatModelName(), float64(llmCfg.ChatTemperature))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build chatter")
		}
		chatbot, err := chatbotx.New(store, models.Classifier(), chatter, chatbotx.Config{
			HistoryWindow: appCfg.HistoryWindow,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build chatbot strategy")
		}
		return chatbot
	case "orchestrator", "":
		models, err := capabilityx.NewRegistry(ctx, llmCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build capability registry")
		}
		orchestrator, err := orchestratorx.New(store, models, sink, orchestratorx.Config{
			HistoryWindow:     appCfg.HistoryWindow,
			MaxRetriesPerStep: appCfg.MaxRetriesPerStep,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build orchestrator strategy")
		}
		return orchestrator
	default:
		log.Fatal().Str("strategy", appCfg.Strategy).Msg("unknown agent strategy")
		return nil
	}
}
