package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

//go:embed schema.yaml
var defaultSchemaYAML []byte

// Keys of the messages and templates the pipeline uses.
const (
	SystemJSONExpert        = "json_expert"
	SystemGraphRAGAssistant = "graph_rag_assistant"
	SystemQueryExpansion    = "query_expansion"

	PromptExtractEntitiesRelationships = "extract_entities_relationships"
	PromptGenerateResponseFromContext  = "generate_response_from_context"
	PromptExpandQuery                  = "expand_query"
)

// Config holds the system messages and user prompt templates for all LLM
// calls. Templates use {name} placeholders filled in by Render.
type Config struct {
	SystemMessages map[string]string `yaml:"system_messages"`
	UserPrompts    map[string]string `yaml:"user_prompts"`
}

// Schema holds the knowledge graph schema hints interpolated into the
// extraction prompt.
type Schema struct {
	EntityTypes                   []string `yaml:"entity_types"`
	RelationshipTypes             []string `yaml:"relationship_types"`
	AllowDynamicEntityTypes       bool     `yaml:"allow_dynamic_entity_types"`
	AllowDynamicRelationshipTypes bool     `yaml:"allow_dynamic_relationship_types"`
}

// Load reads prompt templates from the given YAML file. An empty path loads
// the embedded defaults.
func Load(path string) (*Config, error) {
	data := defaultPromptsYAML
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading prompts file %s: %w", path, err)
		}
		data = fileData
	}

	config := &Config{}
	err := yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("error parsing prompts YAML: %w", err)
	}
	return config, nil
}

// LoadSchema reads graph schema hints from the given YAML file. An empty
// path loads the embedded defaults.
func LoadSchema(path string) (*Schema, error) {
	data := defaultSchemaYAML
	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading schema file %s: %w", path, err)
		}
		data = fileData
	}

	schema := &Schema{}
	err := yaml.Unmarshal(data, schema)
	if err != nil {
		return nil, fmt.Errorf("error parsing schema YAML: %w", err)
	}
	return schema, nil
}

// SystemMessage returns the system message for key, or fallback when the key
// is absent or empty.
func (c *Config) SystemMessage(key string, fallback string) string {
	if message, ok := c.SystemMessages[key]; ok && message != "" {
		return message
	}
	return fallback
}

// UserPrompt returns the user prompt template for key.
func (c *Config) UserPrompt(key string) (string, error) {
	template, ok := c.UserPrompts[key]
	if !ok || template == "" {
		return "", fmt.Errorf("user prompt %s not found", key)
	}
	return template, nil
}

// Render fills {name} placeholders in a template with the given values.
func Render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for name, value := range values {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Hint formats the schema as the hint text injected into the extraction
// prompt.
func (s *Schema) Hint() string {
	return fmt.Sprintf(
		"Schema Hint:\nPreferred Entity Types: %s\nPreferred Relationship Types: %s\nAllow dynamic entity types: %t\nAllow dynamic relationship types: %t",
		strings.Join(s.EntityTypes, ", "),
		strings.Join(s.RelationshipTypes, ", "),
		s.AllowDynamicEntityTypes,
		s.AllowDynamicRelationshipTypes,
	)
}
