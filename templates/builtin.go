// Package templates ships the built-in MCP server template catalog.
// This is separate from the core engine and completely optional; callers
// can seed a TemplateManager with any template set they like.
package templates

import (
	engine "github.com/asmbli/agentengine"
)

// Builtin returns the bundled template catalog. Each call returns fresh
// copies so one manager's imports never leak into another.
func Builtin() []*engine.ServerTemplate {
	return []*engine.ServerTemplate{
		filesystemTemplate(),
		githubTemplate(),
		postgresTemplate(),
		fetchTemplate(),
		memoryTemplate(),
		slackTemplate(),
		puppeteerTemplate(),
	}
}

func filesystemTemplate() *engine.ServerTemplate {
	return &engine.ServerTemplate{
		ID:          "filesystem",
		Name:        "File System",
		Description: "Read, write, and search files in allowed directories",
		Category:    "storage",
		Difficulty:  "beginner",
		Tags:        []string{"files", "local", "storage"},
		ConfigFields: []engine.ConfigField{
			{
				Name:     "rootPath",
				Label:    "Root Directory",
				Type:     engine.FieldPath,
				Required: true,
			},
			{
				Name:  "readOnly",
				Label: "Read Only",
				Type:  engine.FieldBoolean,
			},
		},
		Server: engine.ServerSkeleton{
			ID: "filesystem",
			ServerConfig: engine.ServerConfig{
				Transport: "stdio",
				Command:   "npx",
				Args:      []string{"-y", "@modelcontextprotocol/server-filesystem"},
			},
			DefaultConfig: map[string]any{
				"readOnly": false,
			},
		},
		SetupInstructions: []string{
			"Choose the directory the agent may access.",
			"Enable read-only mode to prevent modifications.",
		},
		Prerequisites: []string{"Node.js 18+"},
	}
}

func githubTemplate() *engine.ServerTemplate {
	return &engine.ServerTemplate{
		ID:          "github",
		Name:        "GitHub",
		Description: "Browse repositories, issues, and pull requests",
		Category:    "development",
		Difficulty:  "beginner",
		Tags:        []string{"git", "github", "code"},
		ConfigFields: []engine.ConfigField{
			{
				Name:     "githubToken",
				Label:    "Personal Access Token",
				Type:     engine.FieldPassword,
				Required: true,
			},
			{
				Name:  "defaultRepo",
				Label: "Default Repository",
				Type:  engine.FieldText,
				Validation: &engine.ValidationRule{
					Pattern: `^[\w.-]+/[\w.-]+$`,
					Message: "repository must be in owner/name form",
				},
			},
		},
		Server: engine.ServerSkeleton{
			ID: "github",
			ServerConfig: engine.ServerConfig{
				Transport: "stdio",
				Command:   "npx",
				Args:      []string{"-y", "@modelcontextprotocol/server-github"},
			},
			RequiredAuth: []engine.AuthField{
				{Name: "githubToken", Label: "Personal Access Token", Required: true},
			},
		},
		SetupInstructions: []string{
			"Create a token at github.com/settings/tokens with repo scope.",
		},
		Prerequisites: []string{"Node.js 18+", "GitHub account"},
		Examples:      []string{"List open PRs in my default repository"},
	}
}

func postgresTemplate() *engine.ServerTemplate {
	return &engine.ServerTemplate{
		ID:          "postgres",
		Name:        "PostgreSQL",
		Description: "Query a PostgreSQL database with schema inspection",
		Category:    "database",
		Difficulty:  "intermediate",
		Tags:        []string{"sql", "database", "postgres"},
		ConfigFields: []engine.ConfigField{
			{
				Name:     "connectionUrl",
				Label:    "Connection URL",
				Type:     engine.FieldURL,
				Required: true,
			},
			{
				Name:  "maxRows",
				Label: "Max Rows",
				Type:  engine.FieldNumber,
				Validation: &engine.ValidationRule{
					Min: ptrFloat(1),
					Max: ptrFloat(10000),
				},
			},
			{
				Name:  "sslMode",
				Label: "SSL Mode",
				Type:  engine.FieldSelect,
				Options: []engine.SelectOption{
					{Value: "disable", Label: "Disable"},
					{Value: "require", Label: "Require"},
					{Value: "verify-full", Label: "Verify Full"},
				},
			},
		},
		Server: engine.ServerSkeleton{
			ID: "postgres",
			ServerConfig: engine.ServerConfig{
				Transport: "stdio",
				Command:   "npx",
				Args:      []string{"-y", "@modelcontextprotocol/server-postgres"},
			},
			DefaultConfig: map[string]any{
				"maxRows": 1000,
				"sslMode": "require",
			},
		},
		Prerequisites: []string{"Node.js 18+", "PostgreSQL 12+"},
	}
}

func fetchTemplate() *engine.ServerTemplate {
	return &engine.ServerTemplate{
		ID:          "fetch",
		Name:        "Web Fetch",
		Description: "Fetch and convert web pages for agent consumption",
		Category:    "web",
		Difficulty:  "beginner",
		Tags:        []string{"http", "web", "scraping"},
		ConfigFields: []engine.ConfigField{
			{
				Name:  "userAgent",
				Label: "User Agent",
				Type:  engine.FieldText,
			},
			{
				Name:  "timeoutSeconds",
				Label: "Timeout (seconds)",
				Type:  engine.FieldNumber,
				Validation: &engine.ValidationRule{
					Min: ptrFloat(1),
					Max: ptrFloat(300),
				},
			},
		},
		Server: engine.ServerSkeleton{
			ID: "fetch",
			ServerConfig: engine.ServerConfig{
				Transport: "stdio",
				Command:   "uvx",
				Args:      []string{"mcp-server-fetch"},
			},
			DefaultConfig: map[string]any{
				"timeoutSeconds": 30,
			},
		},
		Prerequisites: []string{"Python 3.10+ with uv"},
	}
}

func memoryTemplate() *engine.ServerTemplate {
	return &engine.ServerTemplate{
		ID:          "memory",
		Name:        "Memory",
		Description: "Persistent knowledge graph memory across sessions",
		Category:    "storage",
		Difficulty:  "beginner",
		Tags:        []string{"memory", "knowledge-graph"},
		ConfigFields: []engine.ConfigField{
			{
				Name:  "memoryFilePath",
				Label: "Memory File",
				Type:  engine.FieldPath,
			},
		},
		Server: engine.ServerSkeleton{
			ID: "memory",
			ServerConfig: engine.ServerConfig{
				Transport: "stdio",
				Command:   "npx",
				Args:      []string{"-y", "@modelcontextprotocol/server-memory"},
			},
		},
		Prerequisites: []string{"Node.js 18+"},
	}
}

func slackTemplate() *engine.ServerTemplate {
	return &engine.ServerTemplate{
		ID:          "slack",
		Name:        "Slack",
		Description: "Read channels and post messages in a Slack workspace",
		Category:    "communication",
		Difficulty:  "intermediate",
		Tags:        []string{"slack", "chat", "messaging"},
		ConfigFields: []engine.ConfigField{
			{
				Name:     "botToken",
				Label:    "Bot Token",
				Type:     engine.FieldPassword,
				Required: true,
				Validation: &engine.ValidationRule{
					Pattern: `^xoxb-`,
					Message: "bot tokens start with xoxb-",
				},
			},
			{
				Name:     "teamId",
				Label:    "Team ID",
				Type:     engine.FieldText,
				Required: true,
			},
		},
		Server: engine.ServerSkeleton{
			ID: "slack",
			ServerConfig: engine.ServerConfig{
				Transport: "stdio",
				Command:   "npx",
				Args:      []string{"-y", "@modelcontextprotocol/server-slack"},
			},
			RequiredAuth: []engine.AuthField{
				{Name: "botToken", Label: "Bot Token", Required: true},
			},
		},
		SetupInstructions: []string{
			"Create a Slack app and install it to your workspace.",
			"Copy the bot token from OAuth & Permissions.",
		},
		Prerequisites: []string{"Node.js 18+", "Slack workspace admin access"},
	}
}

func puppeteerTemplate() *engine.ServerTemplate {
	return &engine.ServerTemplate{
		ID:          "puppeteer",
		Name:        "Browser Automation",
		Description: "Navigate pages, fill forms, and capture screenshots",
		Category:    "web",
		Difficulty:  "advanced",
		Tags:        []string{"browser", "automation", "screenshots"},
		ConfigFields: []engine.ConfigField{
			{
				Name:  "headless",
				Label: "Headless Mode",
				Type:  engine.FieldBoolean,
			},
			{
				Name:  "startUrl",
				Label: "Start URL",
				Type:  engine.FieldURL,
			},
		},
		Server: engine.ServerSkeleton{
			ID: "puppeteer",
			ServerConfig: engine.ServerConfig{
				Transport: "stdio",
				Command:   "npx",
				Args:      []string{"-y", "@modelcontextprotocol/server-puppeteer"},
			},
			DefaultConfig: map[string]any{
				"headless": true,
			},
		},
		Prerequisites: []string{"Node.js 18+", "Chromium"},
	}
}

func ptrFloat(v float64) *float64 {
	return &v
}
