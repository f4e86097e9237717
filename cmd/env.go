package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/attach"
	"github.com/salaheddineelazouti/Projet-innovation/internal/config"
	"github.com/salaheddineelazouti/Projet-innovation/internal/extract"
	"github.com/salaheddineelazouti/Projet-innovation/internal/history"
	"github.com/salaheddineelazouti/Projet-innovation/internal/intake"
	"github.com/salaheddineelazouti/Projet-innovation/internal/llm"
	"github.com/salaheddineelazouti/Projet-innovation/internal/match"
	"github.com/salaheddineelazouti/Projet-innovation/internal/notify"
	"github.com/salaheddineelazouti/Projet-innovation/internal/resilience"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

// appEnv holds everything the intake commands need.
type appEnv struct {
	Store    store.Store
	Pipeline *extract.Pipeline
	Attach   *attach.Extractor
	Notifier *notify.Notifier // nil when notifications are disabled
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// Processor builds an intake processor. A nil sink extracts without
// saving; notifications are sent only when notifyOn is set.
func (e *appEnv) Processor(sink store.Store, notifyOn bool) *intake.Processor {
	var n *notify.Notifier
	if notifyOn {
		n = e.Notifier
	}
	return intake.NewProcessor(sink, e.Pipeline, e.Attach, n)
}

// initApp validates cfg for mode, opens and migrates the store, and wires
// the completion service, pipeline, attachment reader and notifier.
// Callers should defer env.Close().
func initApp(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	completer, err := llm.New(ctx, llmConfig(cfg))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	ax, err := attach.New(attachConfig(cfg))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	lookup := history.NewLookup(st, match.NewMatcher(matchConfig(cfg)))
	env := &appEnv{
		Store:    st,
		Pipeline: extract.NewPipeline(completer, lookup, extractConfig(cfg)),
		Attach:   ax,
		Notifier: initNotifier(cfg),
	}

	zap.L().Info("intake ready",
		zap.String("store", cfg.Store.Driver),
		zap.String("provider", llmConfig(cfg).Provider),
		zap.Bool("notifications", env.Notifier != nil),
	)
	return env, nil
}

// openStore validates the store settings, then opens and migrates the
// store. Used by commands that never call the completion service.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initStore opens the configured store, retrying transient connection
// failures.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		rc := resilience.DefaultRetryConfig("postgres connect")
		if cfg.Store.ConnectRetries > 0 {
			rc.MaxAttempts = cfg.Store.ConnectRetries
		}
		return resilience.DoVal(ctx, rc, func(ctx context.Context) (store.Store, error) {
			return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
				MaxConns: cfg.Store.MaxConns,
				MinConns: cfg.Store.MinConns,
			})
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func llmConfig(c *config.Config) llm.Config {
	provider := c.LLM.Provider
	if provider == "" {
		provider = llm.ProviderAnthropic
	}
	return llm.Config{
		Provider: provider,
		APIKey:   c.APIKey(),
		BaseURL:  c.ProviderBaseURL(),
		Timeout:  time.Duration(c.LLM.TimeoutSecs) * time.Second,
	}
}

func extractConfig(c *config.Config) extract.Config {
	temperature := c.LLM.Temperature
	return extract.Config{
		ClassifierModel:     c.LLM.ClassifierModel,
		ExtractorModel:      c.LLM.ExtractorModel,
		ClassifierMaxTokens: c.LLM.ClassifierMaxTokens,
		ExtractorMaxTokens:  c.LLM.ExtractorMaxTokens,
		Temperature:         &temperature,
		ReorderContextChars: c.LLM.ReorderContextChars,
		ExtractContextChars: c.LLM.ExtractContextChars,
		ConfidenceFloor:     c.Matching.HistoryConfidenceFloor,
	}
}

func matchConfig(c *config.Config) match.Config {
	return match.Config{
		Threshold:       c.Matching.Threshold,
		SubstringBonus:  c.Matching.SubstringBonus,
		SubstringMinLen: c.Matching.SubstringMinLen,
	}
}

func attachConfig(c *config.Config) attach.Config {
	return attach.Config{
		Provider:      c.Attachments.Provider,
		PdfToTextPath: c.Attachments.PdfToTextPath,
		MistralKey:    c.Attachments.MistralKey,
		MistralModel:  c.Attachments.MistralModel,
		MistralURL:    c.Attachments.MistralURL,
	}
}

// initNotifier returns nil when notifications are disabled. Each channel
// is enabled only when its credentials are set.
func initNotifier(c *config.Config) *notify.Notifier {
	if !c.Notify.Enabled {
		return nil
	}

	var email, whatsapp notify.Sender
	if c.SMTP.Host != "" {
		email = notify.NewSMTP(notify.SMTPConfig{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.SMTP.From,
			FromName: c.Notify.CompanyName,
		})
	} else {
		zap.L().Debug("smtp not configured, email notifications disabled")
	}
	if c.WhatsApp.AccountSID != "" && c.WhatsApp.AuthToken != "" {
		whatsapp = notify.NewWhatsApp(notify.WhatsAppConfig{
			AccountSID: c.WhatsApp.AccountSID,
			AuthToken:  c.WhatsApp.AuthToken,
			From:       c.WhatsApp.From,
			BaseURL:    c.WhatsApp.BaseURL,
			RatePerSec: c.WhatsApp.RatePerSec,
		})
	} else {
		zap.L().Debug("twilio not configured, whatsapp notifications disabled")
	}
	return notify.NewNotifier(c.Notify.CompanyName, email, whatsapp)
}
