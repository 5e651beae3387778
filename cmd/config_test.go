package cmd

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calchat/internal/calcom"
	"github.com/teemow/calchat/internal/instrumentation"
	"github.com/teemow/calchat/internal/llm"
	"github.com/teemow/calchat/internal/session"
)

func newTestFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("debug", false, "")
	addCalFlags(flags)
	addAgentFlags(flags)
	addSessionFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestFlags(t))
	require.NoError(t, err)

	assert.Equal(t, calcom.DefaultBaseURL, cfg.Cal.BaseURL)
	assert.Equal(t, 0, cfg.Cal.EventTypeID)
	assert.Equal(t, providerOpenAI, cfg.LLMProvider)
	assert.Equal(t, llm.DefaultOpenAIModel, cfg.OpenAI.Model)
	assert.Equal(t, llm.DefaultAnthropicModel, cfg.Anthropic.Model)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.Equal(t, ":5001", cfg.HTTPAddr)
	assert.Equal(t, session.StoreTypeMemory, cfg.Session.Type)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, session.DefaultKeyPrefix, cfg.Session.Valkey.KeyPrefix)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.False(t, cfg.Debug)

	assert.True(t, cfg.Instrumentation.Enabled)
	assert.Equal(t, instrumentation.DefaultServiceName, cfg.Instrumentation.ServiceName)
	assert.Equal(t, instrumentation.ExporterPrometheus, cfg.Instrumentation.MetricsExporter)
	assert.Equal(t, instrumentation.ExporterNone, cfg.Instrumentation.TracingExporter)
	assert.InDelta(t, 0.1, cfg.Instrumentation.TraceSamplingRate, 1e-9)
	assert.True(t, cfg.Instrumentation.AuditLogging.Enabled)
	assert.False(t, cfg.Instrumentation.AuditLogging.IncludePII)
}

func TestLoadConfig_InstrumentationEnvironment(t *testing.T) {
	t.Setenv("METRICS_EXPORTER", "OTLP")
	t.Setenv("TRACING_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("POD_NAMESPACE", "booking")
	t.Setenv("K8S_POD_NAME", "calchat-0")
	t.Setenv("AUDIT_LOGGING_INCLUDE_PII", "true")
	t.Setenv("AUDIT_LOGGING_LEVEL", "debug")

	cfg, err := loadConfig(newTestFlags(t))
	require.NoError(t, err)

	instr := cfg.Instrumentation
	assert.Equal(t, instrumentation.ExporterOTLP, instr.MetricsExporter)
	assert.Equal(t, instrumentation.ExporterOTLP, instr.TracingExporter)
	assert.Equal(t, "otel-collector:4318", instr.OTLPEndpoint)
	assert.True(t, instr.OTLPInsecure)
	assert.InDelta(t, 0.5, instr.TraceSamplingRate, 1e-9)
	assert.Equal(t, "booking", instr.K8sNamespace)
	assert.Equal(t, "calchat-0", instr.K8sPodName)
	assert.True(t, instr.AuditLogging.IncludePII)
	assert.Equal(t, "debug", instr.AuditLogging.LogLevel)
	assert.Equal(t, version, instr.ServiceVersion)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("CAL_API_KEY", "cal_live_123")
	t.Setenv("CAL_EVENT_TYPE_ID", "42")
	t.Setenv("USER_EMAIL", "owner@example.com")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("SESSION_STORE", "valkey")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("VALKEY_URL", "localhost:6379")
	t.Setenv("VALKEY_TLS_ENABLED", "true")
	t.Setenv("CALCHAT_DEBUG", "true")

	cfg, err := loadConfig(newTestFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "cal_live_123", cfg.Cal.APIKey)
	assert.Equal(t, 42, cfg.Cal.EventTypeID)
	assert.Equal(t, "owner@example.com", cfg.Cal.UserEmail)
	assert.Equal(t, providerAnthropic, cfg.LLMProvider)
	assert.Equal(t, "sk-ant", cfg.Anthropic.APIKey)
	assert.Equal(t, session.StoreTypeValkey, cfg.Session.Type)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "localhost:6379", cfg.Session.Valkey.URL)
	assert.True(t, cfg.Session.Valkey.TLSEnabled)
	assert.True(t, cfg.Debug)
	require.NoError(t, cfg.Validate(true))
}

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("CAL_EVENT_TYPE_ID", "42")
	t.Setenv("AGENT_MAX_ITERATIONS", "3")

	cfg, err := loadConfig(newTestFlags(t, "--event-type-id=7", "--model=gpt-4.1", "--debug"))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Cal.EventTypeID)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, "gpt-4.1", cfg.OpenAI.Model)
	assert.Equal(t, "gpt-4.1", cfg.Anthropic.Model)
	assert.True(t, cfg.Debug)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Cal:         calcom.Config{APIKey: "key"},
			LLMProvider: providerOpenAI,
			OpenAI:      llm.OpenAIConfig{APIKey: "sk"},
			Session:     session.Config{Type: session.StoreTypeMemory, TTL: time.Hour},
		}
	}

	tests := []struct {
		name       string
		mutate     func(c *Config)
		requireLLM bool
		wantErr    string
	}{
		{name: "valid", mutate: func(c *Config) {}, requireLLM: true},
		{name: "missing cal key", mutate: func(c *Config) { c.Cal.APIKey = "" }, wantErr: "CAL_API_KEY is required"},
		{name: "missing openai key", mutate: func(c *Config) { c.OpenAI.APIKey = "" }, requireLLM: true, wantErr: "OPENAI_API_KEY is required"},
		{name: "llm key not needed", mutate: func(c *Config) { c.OpenAI.APIKey = "" }},
		{name: "missing anthropic key", mutate: func(c *Config) { c.LLMProvider = providerAnthropic }, requireLLM: true, wantErr: "ANTHROPIC_API_KEY is required"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLMProvider = "other" }, requireLLM: true, wantErr: `unknown LLM_PROVIDER "other"`},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Type = "disk" }, wantErr: `unknown SESSION_STORE "disk"`},
		{name: "valkey without url", mutate: func(c *Config) { c.Session.Type = session.StoreTypeValkey }, wantErr: "VALKEY_URL is required"},
		{name: "zero ttl", mutate: func(c *Config) { c.Session.TTL = 0 }, wantErr: "SESSION_TTL must be positive"},
		{name: "otlp without endpoint", mutate: func(c *Config) {
			c.Instrumentation = instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterOTLP}
		}, wantErr: "OTLP endpoint is required"},
		{name: "instrumentation disabled skips checks", mutate: func(c *Config) {
			c.Instrumentation = instrumentation.Config{MetricsExporter: "bogus"}
		}},
		{name: "zero iterations", mutate: func(c *Config) { c.Agent.MaxIterations = 0 }, wantErr: "AGENT_MAX_ITERATIONS must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			cfg.Agent.MaxIterations = 10
			tt.mutate(cfg)

			err := cfg.Validate(tt.requireLLM)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_LogAttrsHidesSecrets(t *testing.T) {
	cfg := &Config{Cal: calcom.Config{APIKey: "cal_live_supersecretvalue"}}

	for _, attr := range cfg.LogAttrs() {
		if s, ok := attr.(string); ok {
			assert.NotContains(t, s, "supersecret")
		}
	}
}

func TestConfig_NewModel(t *testing.T) {
	cfg := &Config{
		LLMProvider: providerAnthropic,
		Anthropic:   llm.AnthropicConfig{APIKey: "sk", Model: "claude-test"},
	}
	model, err := cfg.newModel()
	require.NoError(t, err)
	assert.Equal(t, "anthropic:claude-test", model.ID())

	cfg.LLMProvider = "other"
	_, err = cfg.newModel()
	assert.Error(t, err)
}
