package ragbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flarexio/ragbox/document"
	"github.com/flarexio/ragbox/provider/openai"
	"github.com/flarexio/ragbox/vector"
)

var (
	ErrEmptyMessage = errors.New("user message is required")
	ErrNoFiles      = errors.New("no files found for this session")
)

const (
	SystemInstruction   = "You are to answer all Queries using the provided context"
	NoRelevantDocuments = "No relevant documents found."
)

type Config struct {
	Storage  document.Config `yaml:"storage"`
	Vector   vector.Config   `yaml:"vector"`
	Provider ProviderConfig  `yaml:"provider"`
}

// ProviderConfig configures the OpenAI-compatible backend serving both
// embeddings and chat completions.
type ProviderConfig struct {
	openai.Config `yaml:",inline"`

	Timeout Duration `yaml:"timeout"`
}

// OpenAI returns the client config with the timeout applied.
func (cfg ProviderConfig) OpenAI() openai.Config {
	c := cfg.Config
	c.Timeout = cfg.Timeout.Duration()
	return c
}

type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	str := d.Duration().String()
	return json.Marshal(str)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration().String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	duration, err := time.ParseDuration(str)
	if err != nil {
		return err
	}

	*d = Duration(duration)
	return nil
}

// HistoryEntry is one prior turn supplied by the caller of AskWithHistory.
type HistoryEntry struct {
	Sender  string `json:"sender" yaml:"sender"`
	Message string `json:"message" yaml:"message"`
}

// GroundedPrompt is the user turn of a retrieval-grounded question.
func GroundedPrompt(message string, context string) string {
	return "Query: " + message + "\n Context: " + context
}

// HistoryPrompt flattens the conversation into a single user turn.
func HistoryPrompt(message string, history []HistoryEntry) string {
	return "Prompt: " + message + " History: " + FlattenHistory(history)
}

func FlattenHistory(history []HistoryEntry) string {
	parts := make([]string, len(history))
	for i, entry := range history {
		parts[i] = entry.Sender + ": " + entry.Message
	}

	return strings.Join(parts, " ")
}
