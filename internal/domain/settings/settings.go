// Package settings defines process-wide application and AI tuning settings.
package settings

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
)

// Provider selects which text-generation backend handles AI intents.
type Provider string

const (
	ProviderCloud Provider = "openai"
	ProviderLocal Provider = "ollama"
)

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// DefaultLocalBaseURL is where a local provider is expected to listen.
const DefaultLocalBaseURL = "http://localhost:11434"

// LocalModel describes one model reported by the local provider's tag list.
type LocalModel struct {
	Name      string       `json:"name"`
	Model     string       `json:"model"`
	Size      int64        `json:"size"`
	Digest    string       `json:"digest"`
	Details   ModelDetails `json:"details"`
	ExpiresAt string       `json:"expires_at,omitempty"`
	SizeVRAM  int64        `json:"size_vram,omitempty"`
}

// ModelDetails carries family and quantization metadata for a LocalModel.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// AppSettings is the persisted application configuration edited from the
// settings page.
type AppSettings struct {
	OpenAIAPIKey    string       `json:"openaiApiKey,omitempty"`
	UseOllama       bool         `json:"useOllama"`
	OllamaBaseURL   string       `json:"ollamaBaseUrl"`
	SelectedModel   string       `json:"selectedModel"`
	AvailableModels []LocalModel `json:"availableModels"`
	AIProvider      Provider     `json:"aiProvider"`
	Theme           Theme        `json:"theme"`
	AutoSave        bool         `json:"autoSave"`
	Notifications   bool         `json:"notifications"`
}

// DefaultApp returns the settings a fresh install starts with.
func DefaultApp() AppSettings {
	return AppSettings{
		OllamaBaseURL:   DefaultLocalBaseURL,
		AvailableModels: []LocalModel{},
		AIProvider:      ProviderCloud,
		Theme:           ThemeDark,
		AutoSave:        true,
		Notifications:   true,
	}
}

// WantsLocal reports whether the local provider is both selected and enabled.
func (s *AppSettings) WantsLocal() bool {
	return s.AIProvider == ProviderLocal && s.UseOllama
}

// LocalBaseURL returns the configured local base URL without a trailing slash.
func (s *AppSettings) LocalBaseURL() string {
	base := strings.TrimRight(s.OllamaBaseURL, "/")
	if base == "" {
		return DefaultLocalBaseURL
	}
	return base
}

// Redacted returns a copy safe to hand to the UI or logs.
func (s AppSettings) Redacted() AppSettings {
	if s.OpenAIAPIKey != "" {
		s.OpenAIAPIKey = "********"
	}
	s.AvailableModels = append([]LocalModel(nil), s.AvailableModels...)
	return s
}

// AISettings are the sampling parameters sent with each generation.
type AISettings struct {
	TopP        float64 `json:"topP"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

// DefaultAI returns the stock sampling parameters.
func DefaultAI() AISettings {
	return AISettings{TopP: 0.9, Temperature: 0.5, MaxTokens: 1000}
}

// Validate checks parameter ranges.
func (a *AISettings) Validate() error {
	if a.TopP < 0 || a.TopP > 1 {
		return fmt.Errorf("%w: topP must be within [0,1]", domain.ErrValidation)
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be within [0,2]", domain.ErrValidation)
	}
	if a.MaxTokens < 1 {
		return fmt.Errorf("%w: maxTokens must be >= 1", domain.ErrValidation)
	}
	return nil
}

// Patch is a partial AppSettings update; nil fields are left untouched.
type Patch struct {
	OpenAIAPIKey  *string   `json:"openaiApiKey,omitempty"`
	UseOllama     *bool     `json:"useOllama,omitempty"`
	OllamaBaseURL *string   `json:"ollamaBaseUrl,omitempty"`
	SelectedModel *string   `json:"selectedModel,omitempty"`
	AIProvider    *Provider `json:"aiProvider,omitempty"`
	Theme         *Theme    `json:"theme,omitempty"`
	AutoSave      *bool     `json:"autoSave,omitempty"`
	Notifications *bool     `json:"notifications,omitempty"`
}

// Validate rejects unknown enum values and malformed URLs.
func (p *Patch) Validate() error {
	if p.AIProvider != nil && *p.AIProvider != ProviderCloud && *p.AIProvider != ProviderLocal {
		return fmt.Errorf("%w: unknown aiProvider %q", domain.ErrValidation, *p.AIProvider)
	}
	if p.Theme != nil {
		switch *p.Theme {
		case ThemeLight, ThemeDark, ThemeSystem:
		default:
			return fmt.Errorf("%w: unknown theme %q", domain.ErrValidation, *p.Theme)
		}
	}
	if p.OllamaBaseURL != nil {
		if err := ValidateBaseURL(*p.OllamaBaseURL); err != nil {
			return err
		}
	}
	return nil
}

// Apply merges p into s.
func (p *Patch) Apply(s *AppSettings) {
	if p.OpenAIAPIKey != nil {
		s.OpenAIAPIKey = strings.TrimSpace(*p.OpenAIAPIKey)
	}
	if p.UseOllama != nil {
		s.UseOllama = *p.UseOllama
	}
	if p.OllamaBaseURL != nil {
		s.OllamaBaseURL = strings.TrimRight(*p.OllamaBaseURL, "/")
	}
	if p.SelectedModel != nil {
		s.SelectedModel = *p.SelectedModel
	}
	if p.AIProvider != nil {
		s.AIProvider = *p.AIProvider
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.AutoSave != nil {
		s.AutoSave = *p.AutoSave
	}
	if p.Notifications != nil {
		s.Notifications = *p.Notifications
	}
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: invalid base url %q", domain.ErrValidation, raw)
	}
	return nil
}
