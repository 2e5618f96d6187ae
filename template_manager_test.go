package engine

import (
	"errors"
	"strings"
	"testing"
)

func testTemplate() *ServerTemplate {
	return &ServerTemplate{
		ID:          "test-db",
		Name:        "Test Database",
		Description: "Connects to a test database",
		Category:    "databases",
		Difficulty:  "intermediate",
		Tags:        []string{"sql", "storage"},
		ConfigFields: []ConfigField{
			{
				Name:     "connectionString",
				Label:    "Connection String",
				Type:     FieldText,
				Required: true,
				Validation: &ValidationRule{
					Pattern: `^postgresql://`,
					Message: "must be a postgresql:// connection string",
				},
			},
			{
				Name: "port",
				Type: FieldNumber,
				Validation: &ValidationRule{
					Min: ptr(1.0),
					Max: ptr(65535.0),
				},
			},
			{Name: "readOnly", Type: FieldBoolean},
			{Name: "apiToken", Type: FieldPassword},
			{
				Name: "sslMode",
				Type: FieldSelect,
				Options: []SelectOption{
					{Value: "disable"},
					{Value: "require"},
				},
			},
		},
		Server: ServerSkeleton{
			ID: "test-db-server",
			ServerConfig: ServerConfig{
				Transport: "stdio",
				Command:   "npx",
				Args:      []string{"-y", "@test/db-server"},
			},
			DefaultConfig: map[string]any{
				"port":    5432.0,
				"timeout": 30.0,
			},
			RequiredAuth: []AuthField{
				{Name: "apiToken", Label: "API Token"},
			},
		},
	}
}

func validConfig() map[string]any {
	return map[string]any{
		"connectionString": "postgresql://localhost/app",
		"port":             5433.0,
		"apiToken":         "ghp_0123456789abcdefghij",
	}
}

func TestNewTemplateManagerDeduplicates(t *testing.T) {
	first := testTemplate()
	second := testTemplate()
	second.Name = "Shadowed"

	m := NewTemplateManager(first, second, nil)

	if got := len(m.AllTemplates()); got != 1 {
		t.Fatalf("catalog size = %d, want 1", got)
	}
	tpl, _ := m.Template("test-db")
	if tpl.Name != "Test Database" {
		t.Errorf("first occurrence should win, got %q", tpl.Name)
	}
}

func TestTemplateLookup(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	if _, ok := m.Template("test-db"); !ok {
		t.Error("known id not found")
	}
	if _, ok := m.Template("nope"); ok {
		t.Error("unknown id reported found")
	}
}

func TestTemplateAccessorsReturnCopies(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	tpl, _ := m.Template("test-db")
	tpl.Name = "mutated"
	tpl.ConfigFields[0].Required = false
	*tpl.ConfigFields[1].Validation.Max = 1
	tpl.Server.DefaultConfig["port"] = 9999.0
	tpl.Tags[0] = "mutated"

	got, _ := m.Template("test-db")
	if got.Name != "Test Database" {
		t.Errorf("catalog name mutated through returned copy: %q", got.Name)
	}
	if !got.ConfigFields[0].Required {
		t.Error("catalog field mutated through returned copy")
	}
	if *got.ConfigFields[1].Validation.Max != 65535 {
		t.Errorf("catalog validation rule mutated: max = %v", *got.ConfigFields[1].Validation.Max)
	}
	if got.Server.DefaultConfig["port"] != 5432.0 {
		t.Errorf("catalog default config mutated: %v", got.Server.DefaultConfig["port"])
	}

	all := m.AllTemplates()
	all[0].ID = "mutated"
	if _, ok := m.Template("test-db"); !ok {
		t.Error("catalog id mutated through AllTemplates copy")
	}
}

func TestCatalogQueries(t *testing.T) {
	web := testTemplate()
	web.ID = "fetch"
	web.Name = "Web Fetcher"
	web.Category = "web"
	web.Difficulty = "beginner"
	web.Tags = []string{"http", "scraping"}

	m := NewTemplateManager(testTemplate(), web)

	if got := m.TemplatesByCategory("databases"); len(got) != 1 || got[0].ID != "test-db" {
		t.Errorf("TemplatesByCategory(databases) = %d results", len(got))
	}
	if got := m.Categories(); len(got) != 2 || got[0] != "databases" || got[1] != "web" {
		t.Errorf("Categories() = %v", got)
	}
	if got := m.TemplatesByDifficulty("beginner"); len(got) != 1 || got[0].ID != "fetch" {
		t.Errorf("TemplatesByDifficulty(beginner) = %d results", len(got))
	}

	// fetch is both beginner and a core id; it must appear once.
	if got := m.PopularTemplates(); len(got) != 1 || got[0].ID != "fetch" {
		t.Errorf("PopularTemplates() = %d results", len(got))
	}
}

func TestSearchTemplates(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	testCases := []struct {
		query string
		hits  int
	}{
		{"database", 1},  // name
		{"DATABASE", 1},  // case-insensitive
		{"connects", 1},  // description
		{"sql", 1},       // tag
		{"databases", 1}, // category
		{"kubernetes", 0},
	}

	for _, tc := range testCases {
		if got := len(m.SearchTemplates(tc.query)); got != tc.hits {
			t.Errorf("SearchTemplates(%q) = %d hits, want %d", tc.query, got, tc.hits)
		}
	}
}

func TestValidateConfigUnknownTemplate(t *testing.T) {
	m := NewTemplateManager()

	result := m.ValidateConfig("nope", map[string]any{})
	if result.Valid {
		t.Fatal("unknown template reported valid")
	}
	if len(result.Errors) != 1 || result.Errors[0].Code != CodeTemplateNotFound {
		t.Errorf("errors = %+v, want one TEMPLATE_NOT_FOUND", result.Errors)
	}
}

func TestValidateConfig(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	testCases := []struct {
		name      string
		config    map[string]any
		wantValid bool
		wantCodes []string
	}{
		{
			name:      "valid full config",
			config:    validConfig(),
			wantValid: true,
		},
		{
			name:      "missing required field",
			config:    map[string]any{},
			wantValid: false,
			wantCodes: []string{CodeRequiredField},
		},
		{
			name: "blank string counts as missing",
			config: map[string]any{
				"connectionString": "   ",
			},
			wantValid: false,
			wantCodes: []string{CodeRequiredField},
		},
		{
			name: "optional empty field skips all checks",
			config: map[string]any{
				"connectionString": "postgresql://localhost/app",
				"port":             "",
			},
			wantValid: true,
		},
		{
			name: "non-numeric number field",
			config: map[string]any{
				"connectionString": "postgresql://localhost/app",
				"port":             "abc",
			},
			wantValid: false,
			wantCodes: []string{CodeInvalidType},
		},
		{
			name: "numeric string passes number check",
			config: map[string]any{
				"connectionString": "postgresql://localhost/app",
				"port":             "5433",
			},
			wantValid: true,
		},
		{
			name: "truthy string fails boolean check",
			config: map[string]any{
				"connectionString": "postgresql://localhost/app",
				"readOnly":         "true",
			},
			wantValid: false,
			wantCodes: []string{CodeInvalidType},
		},
		{
			name: "pattern mismatch",
			config: map[string]any{
				"connectionString": "mysql://localhost/app",
			},
			wantValid: false,
			wantCodes: []string{CodePatternMismatch},
		},
		{
			name: "number below minimum",
			config: map[string]any{
				"connectionString": "postgresql://localhost/app",
				"port":             0.0,
			},
			wantValid: false,
			wantCodes: []string{CodeOutOfRange},
		},
		{
			name: "number above maximum",
			config: map[string]any{
				"connectionString": "postgresql://localhost/app",
				"port":             70000.0,
			},
			wantValid: false,
			wantCodes: []string{CodeOutOfRange},
		},
		{
			name: "select outside options",
			config: map[string]any{
				"connectionString": "postgresql://localhost/app",
				"sslMode":          "verify-full",
			},
			wantValid: false,
			wantCodes: []string{CodeInvalidType},
		},
		{
			name: "all errors collected in one pass",
			config: map[string]any{
				"port":     "abc",
				"readOnly": 1,
				"sslMode":  "bogus",
			},
			wantValid: false,
			wantCodes: []string{
				CodeRequiredField, // connectionString
				CodeInvalidType,   // port
				CodeInvalidType,   // readOnly
				CodeInvalidType,   // sslMode
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := m.ValidateConfig("test-db", tc.config)

			if result.Valid != tc.wantValid {
				t.Errorf("Valid = %v, want %v (errors: %+v)", result.Valid, tc.wantValid, result.Errors)
			}
			if len(result.Errors) != len(tc.wantCodes) {
				t.Fatalf("got %d errors %+v, want %d", len(result.Errors), result.Errors, len(tc.wantCodes))
			}
			for i, code := range tc.wantCodes {
				if result.Errors[i].Code != code {
					t.Errorf("error[%d].Code = %q, want %q", i, result.Errors[i].Code, code)
				}
			}
		})
	}
}

func TestValidateConfigCustomRuleMessage(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	result := m.ValidateConfig("test-db", map[string]any{
		"connectionString": "mysql://localhost/app",
	})
	if len(result.Errors) != 1 {
		t.Fatalf("got %d errors, want 1", len(result.Errors))
	}
	if got := result.Errors[0].Message; got != "must be a postgresql:// connection string" {
		t.Errorf("custom message not used, got %q", got)
	}
}

func TestValidateConfigWarnings(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	result := m.ValidateConfig("test-db", map[string]any{
		"connectionString": "postgresql://localhost/app",
		"apiToken":         "short",
	})
	if !result.Valid {
		t.Fatalf("warnings must not affect validity, errors: %+v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "too short") {
		t.Errorf("Warnings = %v, want one short-token warning", result.Warnings)
	}
}

func TestInstantiate(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	instance, warnings, err := m.Instantiate("test-db", validConfig(), "")
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	if instance.ID != "test-db-server" {
		t.Errorf("ID = %q, want skeleton id", instance.ID)
	}
	if instance.TemplateID != "test-db" || instance.Name != "Test Database" {
		t.Error("template provenance fields not set")
	}
	if !instance.Enabled {
		t.Error("instance should be enabled")
	}
	if instance.Command != "npx" || instance.Transport != "stdio" {
		t.Error("skeleton server config not carried over")
	}

	// User value wins over default; untouched default survives.
	if instance.Config["port"] != 5433.0 {
		t.Errorf("port = %v, want user value 5433", instance.Config["port"])
	}
	if instance.Config["timeout"] != 30.0 {
		t.Errorf("timeout = %v, want default 30", instance.Config["timeout"])
	}
	if instance.Config["apiToken"] != "ghp_0123456789abcdefghij" {
		t.Errorf("auth value missing: %v", instance.Config["apiToken"])
	}
}

func TestInstantiateServerIDOverride(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	instance, _, err := m.Instantiate("test-db", validConfig(), "my-custom-id")
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	if instance.ID != "my-custom-id" {
		t.Errorf("ID = %q, want override", instance.ID)
	}
}

func TestInstantiateInvalidConfig(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	instance, _, err := m.Instantiate("test-db", map[string]any{}, "")
	if instance != nil {
		t.Error("invalid config produced a partial instance")
	}
	if err == nil {
		t.Fatal("expected an error")
	}

	var instErr *InstantiationError
	if !errors.As(err, &instErr) {
		t.Fatalf("error type = %T, want *InstantiationError", err)
	}
	if len(instErr.Result.Errors) != 1 || instErr.Result.Errors[0].Code != CodeRequiredField {
		t.Errorf("carried result = %+v", instErr.Result)
	}
}

func TestInstantiateDoesNotMutateInputs(t *testing.T) {
	tpl := testTemplate()
	m := NewTemplateManager(tpl)

	config := validConfig()
	instance, _, err := m.Instantiate("test-db", config, "")
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}

	instance.Config["timeout"] = 999.0
	if tpl.Server.DefaultConfig["timeout"] != 30.0 {
		t.Error("instance config aliases the template defaults")
	}
	if len(config) != 3 {
		t.Error("caller config was mutated")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			src := NewTemplateManager(testTemplate())

			data, found, err := src.ExportTemplate("test-db", ExportFormat(format))
			if err != nil || !found {
				t.Fatalf("export failed: found=%v err=%v", found, err)
			}

			dst := NewTemplateManager()
			tpl, err := dst.ImportTemplate(data, ImportFormat(format))
			if err != nil {
				t.Fatalf("import failed: %v", err)
			}
			if tpl.ID != "test-db" || len(tpl.ConfigFields) != 5 {
				t.Errorf("imported template lost data: %+v", tpl)
			}

			// Imported templates are full catalog members.
			result := dst.ValidateConfig("test-db", validConfig())
			if !result.Valid {
				t.Errorf("imported template validation failed: %+v", result.Errors)
			}
		})
	}
}

func TestExportUnknownTemplate(t *testing.T) {
	m := NewTemplateManager()
	_, found, err := m.ExportTemplate("nope", ExportFormatJSON)
	if found || err != nil {
		t.Errorf("found=%v err=%v, want false, nil", found, err)
	}
}

func TestImportTemplateFailures(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"malformed json", `{"id": "x"`},
		{"missing id", `{"name": "X", "server": {"id": "x"}}`},
		{"missing name", `{"id": "x", "server": {"id": "x"}}`},
		{"missing server id", `{"id": "x", "name": "X"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewTemplateManager(testTemplate())

			if _, err := m.ImportTemplate([]byte(tc.data), ImportFormatJSON); err == nil {
				t.Error("expected an error")
			}
			if got := len(m.AllTemplates()); got != 1 {
				t.Errorf("failed import changed the catalog, size = %d", got)
			}
		})
	}
}

func TestImportDuplicateID(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	data, _, _ := m.ExportTemplate("test-db", ExportFormatJSON)
	_, err := m.ImportTemplate(data, ImportFormatJSON)
	if err == nil || !strings.Contains(err.Error(), ErrDuplicateTemplate) {
		t.Errorf("duplicate import error = %v", err)
	}
	if got := len(m.AllTemplates()); got != 1 {
		t.Errorf("duplicate import changed the catalog, size = %d", got)
	}
}

func TestPutTemplateReplaces(t *testing.T) {
	m := NewTemplateManager(testTemplate())

	updated := testTemplate()
	updated.Name = "Updated Database"
	if err := m.PutTemplate(updated); err != nil {
		t.Fatalf("PutTemplate failed: %v", err)
	}

	if got := len(m.AllTemplates()); got != 1 {
		t.Errorf("replace grew the catalog to %d", got)
	}
	tpl, _ := m.Template("test-db")
	if tpl.Name != "Updated Database" {
		t.Errorf("Name = %q, want replacement", tpl.Name)
	}
}

func TestOnCatalogChange(t *testing.T) {
	m := NewTemplateManager()

	events := make(chan TemplateEvent, 4)
	unsub := m.OnCatalogChange(func(event TemplateEvent) {
		events <- event
	})
	defer unsub()

	data, _, _ := NewTemplateManager(testTemplate()).ExportTemplate("test-db", ExportFormatJSON)
	if _, err := m.ImportTemplate(data, ImportFormatJSON); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	event := <-events
	if event.Type != "imported" || event.TemplateID != "test-db" {
		t.Errorf("event = %+v", event)
	}
}
