package speech

import (
	"strconv"
	"time"

	"github.com/wippyai/speech-runtime/engine"
)

// Config carries the properties a native object is created with.
type Config struct {
	props engine.Properties
}

// NewConfig returns an empty configuration.
func NewConfig() *Config {
	return &Config{props: engine.Properties{}}
}

// WithLanguage sets the recognition language, e.g. "en-US".
func (c *Config) WithLanguage(lang string) *Config {
	return c.WithProperty(engine.PropLanguage, lang)
}

// WithVoice sets the synthesis voice.
func (c *Config) WithVoice(voice string) *Config {
	return c.WithProperty(engine.PropVoice, voice)
}

// WithEndpointSilence sets how much trailing silence ends an utterance.
func (c *Config) WithEndpointSilence(d time.Duration) *Config {
	return c.WithProperty(engine.PropEndpointSilence, strconv.FormatInt(d.Milliseconds(), 10))
}

// WithSessionID sets the prefix used for engine session ids.
func (c *Config) WithSessionID(id string) *Config {
	return c.WithProperty(engine.PropSessionID, id)
}

// WithWordTiming requests word boundary events from synthesizers.
func (c *Config) WithWordTiming(enabled bool) *Config {
	return c.WithProperty(engine.PropEnableWordTiming, strconv.FormatBool(enabled))
}

// WithProperty sets an arbitrary engine property. An empty value removes it.
func (c *Config) WithProperty(key, value string) *Config {
	if c.props == nil {
		c.props = engine.Properties{}
	}
	if value == "" {
		delete(c.props, key)
		return c
	}
	c.props[key] = value
	return c
}

// Property returns the value of key, or "" when unset.
func (c *Config) Property(key string) string {
	if c == nil {
		return ""
	}
	return c.props.Get(key, "")
}

// Language returns the configured language.
func (c *Config) Language() string { return c.Property(engine.PropLanguage) }

// Voice returns the configured voice.
func (c *Config) Voice() string { return c.Property(engine.PropVoice) }

// Properties returns a copy of the configured properties.
func (c *Config) Properties() engine.Properties {
	if c == nil {
		return engine.Properties{}
	}
	return c.props.Clone()
}
