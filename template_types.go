package engine

import "time"

// FieldType enumerates the configurable field kinds a template can
// declare. Each has a dedicated FieldValidator.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldBoolean  FieldType = "boolean"
	FieldURL      FieldType = "url"
	FieldPath     FieldType = "path"
	FieldSelect   FieldType = "select"
	FieldPassword FieldType = "password"
)

// ServerConfig represents a basic MCP server configuration
type ServerConfig struct {
	Transport string            `json:"transport,omitempty" yaml:"transport,omitempty"` // "stdio" or "sse"
	Command   string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args      []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	URL       string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers   map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ServerTemplate declaratively describes a configurable MCP server
// integration: typed config fields plus a skeleton used to produce a
// concrete instance.
type ServerTemplate struct {
	ID                string         `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Description       string         `json:"description,omitempty" yaml:"description,omitempty"`
	Category          string         `json:"category,omitempty" yaml:"category,omitempty"`
	Difficulty        string         `json:"difficulty,omitempty" yaml:"difficulty,omitempty"` // "beginner", "intermediate", "advanced"
	Tags              []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	ConfigFields      []ConfigField  `json:"configFields,omitempty" yaml:"configFields,omitempty"`
	Server            ServerSkeleton `json:"server" yaml:"server"`
	SetupInstructions []string       `json:"setupInstructions,omitempty" yaml:"setupInstructions,omitempty"`
	Prerequisites     []string       `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	Examples          []string       `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// ConfigField is one declared, typed configuration field.
type ConfigField struct {
	Name        string          `json:"name" yaml:"name"`
	Label       string          `json:"label,omitempty" yaml:"label,omitempty"`
	Type        FieldType       `json:"type" yaml:"type"`
	Required    bool            `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string          `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Validation  *ValidationRule `json:"validation,omitempty" yaml:"validation,omitempty"`
	Options     []SelectOption  `json:"options,omitempty" yaml:"options,omitempty"` // select type only
}

// ValidationRule is a per-field constraint checked during validation.
// Message, when set, replaces the generated default for rule violations.
type ValidationRule struct {
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// SelectOption is one allowed value of a select field.
type SelectOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// AuthField describes a credential the instantiated server needs. Values
// supplied under an auth field's name override everything else during
// instantiation.
type AuthField struct {
	Name     string `json:"name" yaml:"name"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// ServerSkeleton is the template's output skeleton: the server shape an
// instantiation starts from.
type ServerSkeleton struct {
	ID            string `json:"id" yaml:"id"`
	ServerConfig  `yaml:",inline"`
	DefaultConfig map[string]any `json:"defaultConfig,omitempty" yaml:"defaultConfig,omitempty"`
	RequiredAuth  []AuthField    `json:"requiredAuth,omitempty" yaml:"requiredAuth,omitempty"`
}

// ServerInstance is a concrete, independent configuration produced from
// a template plus validated user input.
type ServerInstance struct {
	ID         string `json:"id"`
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	ServerConfig
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FieldError is one validation failure. Errors block instantiation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationResult aggregates all errors and warnings of one validation
// pass. Warnings are advisory only and never affect Valid.
type ValidationResult struct {
	Valid    bool         `json:"valid"`
	Errors   []FieldError `json:"errors,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

func (r *ValidationResult) addError(field, message, code string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message, Code: code})
	r.Valid = false
}

func (r *ValidationResult) addWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// ExportFormat represents supported export formats
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatYAML ExportFormat = "yaml"
)

// ImportFormat represents supported import formats
type ImportFormat string

const (
	ImportFormatJSON ImportFormat = "json"
	ImportFormatYAML ImportFormat = "yaml"
)

// TemplateEvent is emitted when the catalog changes.
type TemplateEvent struct {
	Type       string    `json:"type"` // "imported", "updated", "reloaded"
	TemplateID string    `json:"templateId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"` // "user", "watcher"
}

// TemplateEventHandler receives catalog change events.
type TemplateEventHandler func(event TemplateEvent)

// copyTemplate returns a deep copy. Catalog accessors return copies so
// callers cannot mutate catalog entries in place.
func copyTemplate(tpl *ServerTemplate) *ServerTemplate {
	dup := *tpl

	dup.Tags = append([]string(nil), tpl.Tags...)
	dup.SetupInstructions = append([]string(nil), tpl.SetupInstructions...)
	dup.Prerequisites = append([]string(nil), tpl.Prerequisites...)
	dup.Examples = append([]string(nil), tpl.Examples...)

	dup.ConfigFields = make([]ConfigField, len(tpl.ConfigFields))
	for i, f := range tpl.ConfigFields {
		if f.Validation != nil {
			rule := *f.Validation
			if rule.Min != nil {
				v := *rule.Min
				rule.Min = &v
			}
			if rule.Max != nil {
				v := *rule.Max
				rule.Max = &v
			}
			f.Validation = &rule
		}
		f.Options = append([]SelectOption(nil), f.Options...)
		dup.ConfigFields[i] = f
	}

	dup.Server.ServerConfig = copyServerConfig(tpl.Server.ServerConfig)
	dup.Server.DefaultConfig = copyValueMap(tpl.Server.DefaultConfig)
	dup.Server.RequiredAuth = append([]AuthField(nil), tpl.Server.RequiredAuth...)

	return &dup
}

func copyServerConfig(sc ServerConfig) ServerConfig {
	sc.Args = append([]string(nil), sc.Args...)
	sc.Env = copyStringMap(sc.Env)
	sc.Headers = copyStringMap(sc.Headers)
	return sc
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	dup := make(map[string]string, len(m))
	for k, v := range m {
		dup[k] = v
	}
	return dup
}
