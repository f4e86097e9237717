package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salaheddineelazouti/Projet-innovation/internal/config"
	"github.com/salaheddineelazouti/Projet-innovation/internal/llm"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

// withConfig installs c as the global config for the duration of the test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func sqliteConfig(t *testing.T) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "orders.db")},
		Batch: config.BatchConfig{MaxConcurrentMessages: 5},
	}
}

func TestLLMConfig(t *testing.T) {
	c := &config.Config{
		Anthropic: config.AnthropicConfig{Key: "sk-ant", BaseURL: "http://anthropic.local"},
		Gemini:    config.GeminiConfig{Key: "gm-key"},
		LLM:       config.LLMConfig{TimeoutSecs: 30},
	}

	got := llmConfig(c)
	assert.Equal(t, llm.ProviderAnthropic, got.Provider)
	assert.Equal(t, "sk-ant", got.APIKey)
	assert.Equal(t, "http://anthropic.local", got.BaseURL)
	assert.Equal(t, 30*time.Second, got.Timeout)

	c.LLM.Provider = llm.ProviderGemini
	got = llmConfig(c)
	assert.Equal(t, llm.ProviderGemini, got.Provider)
	assert.Equal(t, "gm-key", got.APIKey)
	assert.Empty(t, got.BaseURL)
}

func TestExtractAndMatchConfig(t *testing.T) {
	c := &config.Config{
		LLM: config.LLMConfig{
			ClassifierModel:     "haiku",
			ExtractorModel:      "sonnet",
			ClassifierMaxTokens: 300,
			ExtractorMaxTokens:  2000,
			ReorderContextChars: 1500,
			ExtractContextChars: 6000,
		},
		Matching: config.MatchingConfig{
			Threshold:              0.6,
			SubstringBonus:         0.2,
			SubstringMinLen:        4,
			HistoryConfidenceFloor: 80,
		},
	}

	ec := extractConfig(c)
	assert.Equal(t, "haiku", ec.ClassifierModel)
	assert.Equal(t, "sonnet", ec.ExtractorModel)
	assert.Equal(t, 300, ec.ClassifierMaxTokens)
	assert.Equal(t, 2000, ec.ExtractorMaxTokens)
	assert.Equal(t, 1500, ec.ReorderContextChars)
	assert.Equal(t, 6000, ec.ExtractContextChars)
	assert.Equal(t, 80, ec.ConfidenceFloor)
	require.NotNil(t, ec.Temperature)
	assert.Zero(t, *ec.Temperature, "a configured 0 is kept")

	mc := matchConfig(c)
	assert.InDelta(t, 0.6, mc.Threshold, 1e-9)
	assert.InDelta(t, 0.2, mc.SubstringBonus, 1e-9)
	assert.Equal(t, 4, mc.SubstringMinLen)
}

func TestAttachConfig(t *testing.T) {
	c := &config.Config{Attachments: config.AttachmentsConfig{
		Provider:      "pdftotext",
		PdfToTextPath: "/usr/bin/pdftotext",
		MistralKey:    "mk",
		MistralModel:  "mistral-ocr-latest",
	}}
	ac := attachConfig(c)
	assert.Equal(t, "pdftotext", ac.Provider)
	assert.Equal(t, "/usr/bin/pdftotext", ac.PdfToTextPath)
	assert.Equal(t, "mk", ac.MistralKey)
	assert.Equal(t, "mistral-ocr-latest", ac.MistralModel)
}

func TestInitNotifier_Disabled(t *testing.T) {
	c := &config.Config{SMTP: config.SMTPConfig{Host: "smtp.local"}}
	assert.Nil(t, initNotifier(c))
}

func TestInitNotifier_Channels(t *testing.T) {
	c := &config.Config{
		Notify: config.NotifyConfig{Enabled: true, CompanyName: "Emballages Atlas"},
		SMTP:   config.SMTPConfig{Host: "smtp.local", From: "commandes@atlas.ma"},
	}

	n := initNotifier(c)
	require.NotNil(t, n)
	assert.Equal(t, "Emballages Atlas", n.Company())
	assert.True(t, n.Enabled(model.SourceEmail))
	assert.False(t, n.Enabled(model.SourceWhatsApp))

	c.SMTP.Host = ""
	c.WhatsApp = config.WhatsAppConfig{AccountSID: "AC1", AuthToken: "tok", From: "+14155238886"}
	n = initNotifier(c)
	require.NotNil(t, n)
	assert.False(t, n.Enabled(model.SourceEmail))
	assert.True(t, n.Enabled(model.SourceWhatsApp))
}

func TestInitStore_SQLite(t *testing.T) {
	withConfig(t, sqliteConfig(t))

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	assert.IsType(t, &store.SQLiteStore{}, st)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "mysql"}})

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestOpenStore_MigratesSQLite(t *testing.T) {
	withConfig(t, sqliteConfig(t))
	ctx := context.Background()

	st, err := openStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	n, err := st.ImportClients(ctx, []model.Client{{Name: "Chhiwat Fes"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	clients, err := st.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Chhiwat Fes", clients[0].Name)
}

func TestOpenStore_InvalidConfig(t *testing.T) {
	c := sqliteConfig(t)
	c.Store.SQLitePath = ""
	withConfig(t, c)

	_, err := openStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.sqlite_path is required")
}

func newExportCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "export"}
	addExportFlags(c)
	require.NoError(t, c.Flags().Parse(args))
	return c
}

func TestExportFilter(t *testing.T) {
	f, err := exportFilter(newExportCmd(t, "--status", "validated", "--source", "whatsapp", "--from", "2024-03-01", "--to", "2024-03-31", "--limit", "50"))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusValidated, f.Status)
	assert.Equal(t, model.SourceWhatsApp, f.Source)
	assert.Equal(t, 50, f.Limit)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), f.To)
}

func TestExportFilter_Defaults(t *testing.T) {
	f, err := exportFilter(newExportCmd(t))
	require.NoError(t, err)
	assert.Equal(t, store.OrderFilter{Limit: 10000}, f)
}

func TestExportFilter_Invalid(t *testing.T) {
	_, err := exportFilter(newExportCmd(t, "--status", "shipped"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")

	_, err = exportFilter(newExportCmd(t, "--from", "01/03/2024"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --from date")

	_, err = exportFilter(newExportCmd(t, "--to", "yesterday"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --to date")
}

func TestExportWriter(t *testing.T) {
	for _, format := range []string{"xlsx", "csv"} {
		w, err := exportWriter(format)
		require.NoError(t, err)
		assert.NotNil(t, w)
	}

	_, err := exportWriter("pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}
