package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teemow/calchat/internal/agent"
	"github.com/teemow/calchat/internal/calcom"
	"github.com/teemow/calchat/internal/instrumentation"
	"github.com/teemow/calchat/internal/llm"
	"github.com/teemow/calchat/internal/logging"
	"github.com/teemow/calchat/internal/server"
	"github.com/teemow/calchat/internal/session"
)

// Configuration keys. Each key is read from the environment variable of the
// same name in upper case and from calchat.yaml.
const (
	keyCalAPIKey      = "cal_api_key"
	keyCalBaseURL     = "cal_base_url"
	keyCalEventTypeID = "cal_event_type_id"
	keyUserEmail      = "user_email"

	keyLLMProvider     = "llm_provider"
	keyOpenAIAPIKey    = "openai_api_key"
	keyOpenAIModel     = "openai_model"
	keyOpenAIBaseURL   = "openai_base_url"
	keyAnthropicAPIKey = "anthropic_api_key"
	keyAnthropicModel  = "anthropic_model"
	keyTemperature     = "llm_temperature"
	keyMaxIterations   = "agent_max_iterations"

	keyHTTPAddr = "http_addr"

	keySessionStore    = "session_store"
	keySessionTTL      = "session_ttl"
	keyValkeyURL       = "valkey_url"
	keyValkeyPassword  = "valkey_password"
	keyValkeyDB        = "valkey_db"
	keyValkeyKeyPrefix = "valkey_key_prefix"
	keyValkeyTLS       = "valkey_tls_enabled"

	keyMetricsEnabled = "metrics_enabled"
	keyMetricsAddr    = "metrics_addr"

	keyDebug = "calchat_debug"

	keyInstrumentationEnabled = "instrumentation_enabled"
	keyMetricsExporter        = "metrics_exporter"
	keyTracingExporter        = "tracing_exporter"
	keyOTLPEndpoint           = "otel_exporter_otlp_endpoint"
	keyOTLPInsecure           = "otel_exporter_otlp_insecure"
	keyTraceSamplingRate      = "otel_traces_sampler_arg"
	keyServiceName            = "otel_service_name"
	keyServiceInstanceID      = "otel_service_instance_id"
	keyK8sNamespace           = "k8s_namespace"
	keyPodNamespace           = "pod_namespace"
	keyK8sPodName             = "k8s_pod_name"
	keyHostname               = "hostname"
	keyDetailedLabels         = "metrics_detailed_labels"
	keyAuditEnabled           = "audit_logging_enabled"
	keyAuditIncludePII        = "audit_logging_include_pii"
	keyAuditLevel             = "audit_logging_level"
)

const (
	providerOpenAI    = "openai"
	providerAnthropic = "anthropic"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"debug":             keyDebug,
	"cal-api-key":       keyCalAPIKey,
	"cal-base-url":      keyCalBaseURL,
	"event-type-id":     keyCalEventTypeID,
	"llm-provider":      keyLLMProvider,
	"temperature":       keyTemperature,
	"max-iterations":    keyMaxIterations,
	"http-addr":         keyHTTPAddr,
	"session-store":     keySessionStore,
	"session-ttl":       keySessionTTL,
	"valkey-url":        keyValkeyURL,
	"valkey-password":   keyValkeyPassword,
	"valkey-db":         keyValkeyDB,
	"valkey-key-prefix": keyValkeyKeyPrefix,
	"valkey-tls":        keyValkeyTLS,
	"metrics-enabled":   keyMetricsEnabled,
	"metrics-addr":      keyMetricsAddr,
}

// Config is the resolved configuration of a calchat process.
type Config struct {
	Debug bool

	Cal calcom.Config

	LLMProvider string
	OpenAI      llm.OpenAIConfig
	Anthropic   llm.AnthropicConfig
	Agent       agent.Config

	HTTPAddr string
	Session  session.Config

	MetricsEnabled  bool
	MetricsAddr     string
	Instrumentation instrumentation.Config

	// ConfigFile is the config file that was read, if any.
	ConfigFile string
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(keyCalBaseURL, calcom.DefaultBaseURL)
	v.SetDefault(keyCalEventTypeID, 0)
	v.SetDefault(keyLLMProvider, providerOpenAI)
	v.SetDefault(keyOpenAIModel, llm.DefaultOpenAIModel)
	v.SetDefault(keyAnthropicModel, llm.DefaultAnthropicModel)
	v.SetDefault(keyTemperature, 0.0)
	v.SetDefault(keyMaxIterations, agent.DefaultMaxIterations)
	v.SetDefault(keyHTTPAddr, server.DefaultChatAddr)
	v.SetDefault(keySessionStore, string(session.StoreTypeMemory))
	v.SetDefault(keySessionTTL, session.DefaultTTL)
	v.SetDefault(keyValkeyKeyPrefix, session.DefaultKeyPrefix)
	v.SetDefault(keyValkeyDB, 0)
	v.SetDefault(keyMetricsEnabled, true)
	v.SetDefault(keyMetricsAddr, server.DefaultMetricsAddr)
	v.SetDefault(keyDebug, false)

	instr := instrumentation.DefaultConfig()
	v.SetDefault(keyInstrumentationEnabled, instr.Enabled)
	v.SetDefault(keyMetricsExporter, instr.MetricsExporter)
	v.SetDefault(keyTracingExporter, instr.TracingExporter)
	v.SetDefault(keyTraceSamplingRate, instr.TraceSamplingRate)
	v.SetDefault(keyServiceName, instr.ServiceName)
	v.SetDefault(keyAuditEnabled, instr.AuditLogging.Enabled)
	v.SetDefault(keyAuditLevel, instr.AuditLogging.LogLevel)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("calchat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/calchat")

	return v
}

// loadConfig resolves the configuration from flags, environment, the
// optional config file and defaults, in that order.
func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Debug: v.GetBool(keyDebug),
		Cal: calcom.Config{
			APIKey:      v.GetString(keyCalAPIKey),
			BaseURL:     v.GetString(keyCalBaseURL),
			EventTypeID: v.GetInt(keyCalEventTypeID),
			UserEmail:   v.GetString(keyUserEmail),
		},
		LLMProvider: strings.ToLower(strings.TrimSpace(v.GetString(keyLLMProvider))),
		OpenAI: llm.OpenAIConfig{
			APIKey:  v.GetString(keyOpenAIAPIKey),
			Model:   v.GetString(keyOpenAIModel),
			BaseURL: v.GetString(keyOpenAIBaseURL),
		},
		Anthropic: llm.AnthropicConfig{
			APIKey: v.GetString(keyAnthropicAPIKey),
			Model:  v.GetString(keyAnthropicModel),
		},
		Agent: agent.Config{
			MaxIterations: v.GetInt(keyMaxIterations),
			Temperature:   v.GetFloat64(keyTemperature),
		},
		HTTPAddr: v.GetString(keyHTTPAddr),
		Session: session.Config{
			Type: session.StoreType(strings.ToLower(v.GetString(keySessionStore))),
			TTL:  v.GetDuration(keySessionTTL),
			Valkey: session.ValkeyConfig{
				URL:        v.GetString(keyValkeyURL),
				Password:   v.GetString(keyValkeyPassword),
				DB:         v.GetInt(keyValkeyDB),
				TLSEnabled: v.GetBool(keyValkeyTLS),
				KeyPrefix:  v.GetString(keyValkeyKeyPrefix),
			},
		},
		MetricsEnabled: v.GetBool(keyMetricsEnabled),
		MetricsAddr:    v.GetString(keyMetricsAddr),
		Instrumentation: instrumentation.Config{
			ServiceName:       v.GetString(keyServiceName),
			ServiceVersion:    version,
			ServiceInstanceID: v.GetString(keyServiceInstanceID),
			K8sNamespace:      firstNonEmpty(v.GetString(keyK8sNamespace), v.GetString(keyPodNamespace)),
			K8sPodName:        firstNonEmpty(v.GetString(keyK8sPodName), v.GetString(keyHostname)),
			Enabled:           v.GetBool(keyInstrumentationEnabled),
			MetricsExporter:   strings.ToLower(v.GetString(keyMetricsExporter)),
			TracingExporter:   strings.ToLower(v.GetString(keyTracingExporter)),
			OTLPEndpoint:      v.GetString(keyOTLPEndpoint),
			OTLPInsecure:      v.GetBool(keyOTLPInsecure),
			TraceSamplingRate: v.GetFloat64(keyTraceSamplingRate),
			DetailedLabels:    v.GetBool(keyDetailedLabels),
			AuditLogging: instrumentation.AuditLoggingConfig{
				Enabled:    v.GetBool(keyAuditEnabled),
				IncludePII: v.GetBool(keyAuditIncludePII),
				LogLevel:   v.GetString(keyAuditLevel),
			},
		},
		ConfigFile: v.ConfigFileUsed(),
	}

	// --model applies to whichever provider is selected.
	if flags != nil {
		if f := flags.Lookup("model"); f != nil && f.Changed {
			cfg.OpenAI.Model = f.Value.String()
			cfg.Anthropic.Model = f.Value.String()
		}
	}

	return cfg, nil
}

// Validate checks the configuration. requireLLM is false for commands that
// never talk to a model.
func (c *Config) Validate(requireLLM bool) error {
	var problems []string

	if c.Cal.APIKey == "" {
		problems = append(problems, "CAL_API_KEY is required")
	}

	if requireLLM {
		switch c.LLMProvider {
		case providerOpenAI:
			if c.OpenAI.APIKey == "" {
				problems = append(problems, "OPENAI_API_KEY is required when LLM_PROVIDER=openai")
			}
		case providerAnthropic:
			if c.Anthropic.APIKey == "" {
				problems = append(problems, "ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown LLM_PROVIDER %q (expected openai or anthropic)", c.LLMProvider))
		}
	}

	switch c.Session.Type {
	case session.StoreTypeMemory:
	case session.StoreTypeValkey:
		if c.Session.Valkey.URL == "" {
			problems = append(problems, "VALKEY_URL is required when SESSION_STORE=valkey")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown SESSION_STORE %q (expected memory or valkey)", c.Session.Type))
	}

	if c.Session.TTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}
	if c.Agent.MaxIterations <= 0 {
		problems = append(problems, "AGENT_MAX_ITERATIONS must be positive")
	}

	if c.Instrumentation.Enabled {
		if err := c.Instrumentation.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LogAttrs summarizes the configuration without secrets.
func (c *Config) LogAttrs() []any {
	return []any{
		"cal_base_url", c.Cal.BaseURL,
		"cal_api_key", logging.SanitizeToken(c.Cal.APIKey),
		"event_type_id", c.Cal.EventTypeID,
		"llm_provider", c.LLMProvider,
		"session_store", string(c.Session.Type),
		"session_ttl", c.Session.TTL.String(),
		"max_iterations", c.Agent.MaxIterations,
		"config_file", c.ConfigFile,
	}
}

// newModel creates the configured language model.
func (c *Config) newModel() (llm.Model, error) {
	switch c.LLMProvider {
	case providerOpenAI:
		return llm.NewOpenAI(c.OpenAI), nil
	case providerAnthropic:
		return llm.NewAnthropic(c.Anthropic), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", c.LLMProvider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// addAgentFlags registers the flags shared by the commands that run the agent.
func addAgentFlags(flags *pflag.FlagSet) {
	flags.String("llm-provider", providerOpenAI, "LLM provider: openai or anthropic. Can also use LLM_PROVIDER env var.")
	flags.String("model", "", "Model name for the selected provider. Defaults to OPENAI_MODEL or ANTHROPIC_MODEL.")
	flags.Float64("temperature", 0, "Sampling temperature. Can also use LLM_TEMPERATURE env var.")
	flags.Int("max-iterations", agent.DefaultMaxIterations, "Maximum model calls per turn. Can also use AGENT_MAX_ITERATIONS env var.")
}

// addCalFlags registers the Cal.com flags.
func addCalFlags(flags *pflag.FlagSet) {
	flags.String("cal-api-key", "", "Cal.com API key. Prefer the CAL_API_KEY env var.")
	flags.String("cal-base-url", calcom.DefaultBaseURL, "Cal.com API base URL. Can also use CAL_BASE_URL env var.")
	flags.Int("event-type-id", 0, "Cal.com event type used for slots and new bookings. Can also use CAL_EVENT_TYPE_ID env var.")
}

// addSessionFlags registers the session store flags.
func addSessionFlags(flags *pflag.FlagSet) {
	flags.String("session-store", string(session.StoreTypeMemory), "Chat session store: memory or valkey. Can also use SESSION_STORE env var.")
	flags.Duration("session-ttl", session.DefaultTTL, "How long chat transcripts are kept. Can also use SESSION_TTL env var.")
	flags.String("valkey-url", "", "Valkey server address (e.g., valkey.namespace.svc:6379). Can also use VALKEY_URL env var.")
	flags.String("valkey-password", "", "Valkey authentication password. Can also use VALKEY_PASSWORD env var.")
	flags.Int("valkey-db", 0, "Valkey database number. Can also use VALKEY_DB env var.")
	flags.String("valkey-key-prefix", session.DefaultKeyPrefix, "Prefix for all Valkey keys. Can also use VALKEY_KEY_PREFIX env var.")
	flags.Bool("valkey-tls", false, "Enable TLS for Valkey connections. Can also use VALKEY_TLS_ENABLED env var.")
}
