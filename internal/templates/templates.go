// Package templates provides named, validated board templates: the
// built-in set plus any JSON templates loaded from a directory.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wekan-tools/github-wekan-sync/internal/oplog"
)

// List is one ordered list inside a template.
type List struct {
	Title string `json:"title"`
}

// Card is one seed card inside a template.
type Card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Template describes a board's initial lists and seed cards. The keys
// of Cards are list titles; every key must name a list present in
// Lists. Templates are immutable once loaded.
type Template struct {
	Title string            `json:"title"`
	Lists []List            `json:"lists"`
	Cards map[string][]Card `json:"cards"`
}

// builtins returns the always-present templates.
func builtins() map[string]Template {
	return map[string]Template{
		"kanban_basic": {
			Title: "Basic Kanban Board",
			Lists: []List{{Title: "Backlog"}, {Title: "To Do"}, {Title: "In Progress"}, {Title: "Done"}},
			Cards: map[string][]Card{
				"Backlog": {{Title: "Example Card 1", Description: "This is an example card"}},
			},
		},
		"scrum": {
			Title: "Scrum Board",
			Lists: []List{{Title: "Product Backlog"}, {Title: "Sprint Backlog"}, {Title: "In Progress"}, {Title: "Review"}, {Title: "Done"}},
		},
		"devops": {
			Title: "DevOps Pipeline",
			Lists: []List{{Title: "Backlog"}, {Title: "Planning"}, {Title: "Development"}, {Title: "Testing"}, {Title: "Deployment"}, {Title: "Monitoring"}},
		},
	}
}

// Manager holds the registered templates by name.
type Manager struct {
	templates map[string]Template
	log       *oplog.Log
}

// New returns a manager with the built-in templates, overlaid with any
// valid JSON templates found in dir (file base name becomes the
// template name). Invalid template files are logged and skipped;
// loading never partially registers a template. An empty dir skips
// external loading.
func New(dir string, log *oplog.Log) *Manager {
	m := &Manager{templates: builtins(), log: log}
	if dir != "" {
		m.loadDir(dir)
	}
	return m
}

func (m *Manager) loadDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.log.Appendf("WARNING: Templates directory not found: %s", dir)
		zap.L().Warn("Templates directory not readable", zap.String("dir", dir), zap.Error(err))
		return
	}

	m.log.Appendf("Loading custom templates from %s", dir)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			m.log.Appendf("ERROR: Failed to load template %s: %v", path, err)
			zap.L().Warn("Failed to read template file", zap.String("path", path), zap.Error(err))
			continue
		}

		var tpl Template
		if err := json.Unmarshal(data, &tpl); err != nil {
			m.log.Appendf("ERROR: Failed to load template %s: %v", path, err)
			zap.L().Warn("Failed to parse template file", zap.String("path", path), zap.Error(err))
			continue
		}

		if err := Validate(tpl); err != nil {
			m.log.Appendf("ERROR: Invalid template %s: %v", name, err)
			zap.L().Warn("Skipping invalid template", zap.String("name", name), zap.Error(err))
			continue
		}

		m.templates[name] = tpl
		m.log.Appendf("Loaded template: %s", name)
	}
}

// Get returns the template registered under name.
func (m *Manager) Get(name string) (Template, error) {
	tpl, ok := m.templates[name]
	if !ok {
		available := strings.Join(m.Names(), ", ")
		err := fmt.Errorf("template %q not found. Available templates: %s", name, available)
		m.log.Appendf("ERROR: %v", err)
		return Template{}, err
	}
	m.log.Appendf("Using template: %s", name)
	return tpl, nil
}

// Names returns the registered template names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate enforces the template shape: a title, a non-empty ordered
// list of titled lists, card mappings only for listed titles, and a
// title on every card.
func Validate(tpl Template) error {
	if tpl.Title == "" {
		return fmt.Errorf("template missing 'title' field")
	}
	if len(tpl.Lists) == 0 {
		return fmt.Errorf("template missing 'lists' field or 'lists' is empty")
	}
	listTitles := make(map[string]bool, len(tpl.Lists))
	for i, l := range tpl.Lists {
		if l.Title == "" {
			return fmt.Errorf("list at index %d missing 'title' field", i)
		}
		listTitles[l.Title] = true
	}
	for listTitle, cards := range tpl.Cards {
		if !listTitles[listTitle] {
			return fmt.Errorf("cards specified for non-existent list %q", listTitle)
		}
		for i, c := range cards {
			if c.Title == "" {
				return fmt.Errorf("card at index %d in list %q missing 'title' field", i, listTitle)
			}
		}
	}
	return nil
}
