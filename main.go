package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/agent"
	"github.com/kube-rca/oncall-agent/internal/client"
	"github.com/kube-rca/oncall-agent/internal/config"
	"github.com/kube-rca/oncall-agent/internal/handler"
	"github.com/kube-rca/oncall-agent/internal/logger"
	"github.com/kube-rca/oncall-agent/internal/metrics"
	"github.com/kube-rca/oncall-agent/internal/service"
	"github.com/kube-rca/oncall-agent/internal/store"
	"github.com/kube-rca/oncall-agent/internal/tool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	// 엔지니어 디렉토리
	directory, err := config.LoadDirectory(cfg.Calls.EngineersFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load engineer directory")
	}

	// 빈도 추적 + 전화 기록 저장소
	tracker := service.NewFrequencyTracker(cfg.Frequency.Window, cfg.Frequency.Threshold, log)
	go tracker.Run(ctx, cfg.Frequency.SweepInterval)

	calls := store.NewCallStore(log)
	go calls.RunJanitor(ctx, time.Minute, cfg.Calls.Retention)

	// 진단 도구 + 오라클
	executor := tool.NewExecutor(cfg.Tools.Timeout, log,
		tool.NewPythonTool(cfg.Tools.PythonBin),
		tool.NewHTTPTool(&http.Client{}),
	)
	orchestrator := agent.NewOrchestrator(newOracle(ctx, cfg, executor, log), executor, log)

	// 통신사 + 알림
	phone, err := newTelephony(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Telephony.Provider).Msg("Failed to configure telephony provider")
	}

	var channels []service.Notifier
	if slack := client.NewSlackClient(cfg.Slack, log); slack.IsConfigured() {
		channels = append(channels, slack)
	} else {
		log.Info().Msg("Skipping Slack notifications: SLACK_BOT_TOKEN or SLACK_CHANNEL_ID not set")
	}

	webhookConfigs, err := config.LoadWebhooks(cfg.Notify.WebhooksFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load notification webhooks")
	}
	delivery := service.NewWebhookDeliveryService(webhookConfigs, cfg.Notify.Timeout, log)
	if len(webhookConfigs) > 0 {
		channels = append(channels, delivery)
		log.Info().Int("count", len(webhookConfigs)).Msg("Notification webhooks loaded")
	}
	notifier := service.NewNotifier(channels...)

	caller := service.NewCaller(calls, phone, notifier, log)
	escalation := service.NewEscalationService(calls, directory, caller, notifier, log)
	incidents := service.NewIncidentService(service.NewEnricher(tracker), orchestrator, directory, caller, notifier, log)

	handlers := handler.Handlers{
		Sentry:   handler.NewSentryHandler(incidents, log),
		Calls:    handler.NewCallsHandler(calls, tracker),
		Webhooks: handler.NewWebhookHandler(delivery),
		Metrics:  promhttp.Handler(),
	}
	switch cfg.Telephony.Provider {
	case config.ProviderTwilio:
		handlers.Twilio = handler.NewTwilioHandler(escalation, client.NewTwiML(cfg.Server.BaseURL), log)
	case config.ProviderVapi:
		handlers.Vapi = handler.NewVapiHandler(escalation, log)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.NewRouter(handlers, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("provider", phone.Name()).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// newOracle - AI 키가 없으면 규칙 기반 오라클로 동작
func newOracle(ctx context.Context, cfg config.Config, executor *tool.Executor, log zerolog.Logger) agent.Oracle {
	gen, err := client.NewGenAIClient(ctx, cfg.GenAI)
	if err != nil {
		log.Warn().Err(err).Msg("GenAI client unavailable, using rule-based decisions only")
		return agent.RuleOracle{}
	}
	return agent.NewLLMOracle(gen, executor.Specs(), cfg.Tools.HealthBaseURL, log)
}

func newTelephony(cfg config.Config) (service.Telephony, error) {
	if cfg.Telephony.Provider == config.ProviderVapi {
		return client.NewVapiCaller(cfg.Vapi, cfg.Server.BaseURL)
	}
	return client.NewTwilioCaller(cfg.Twilio, cfg.Server.BaseURL)
}
