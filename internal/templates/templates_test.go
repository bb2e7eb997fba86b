package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTemplatesAlwaysPresent(t *testing.T) {
	m := New("", nil)

	assert.Equal(t, []string{"devops", "kanban_basic", "scrum"}, m.Names())

	tpl, err := m.Get("kanban_basic")
	require.NoError(t, err)
	assert.Equal(t, "Basic Kanban Board", tpl.Title)

	titles := make([]string, 0, len(tpl.Lists))
	for _, l := range tpl.Lists {
		titles = append(titles, l.Title)
	}
	assert.Equal(t, []string{"Backlog", "To Do", "In Progress", "Done"}, titles)
}

func TestGetUnknownTemplate(t *testing.T) {
	m := New("", nil)

	_, err := m.Get("does_not_exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available templates")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		tpl     Template
		wantErr string
	}{
		{
			name: "valid template",
			tpl: Template{
				Title: "Review Board",
				Lists: []List{{Title: "Incoming"}, {Title: "Done"}},
				Cards: map[string][]Card{"Incoming": {{Title: "Triage"}}},
			},
		},
		{
			name:    "missing title",
			tpl:     Template{Lists: []List{{Title: "A"}}},
			wantErr: "title",
		},
		{
			name:    "empty lists",
			tpl:     Template{Title: "X"},
			wantErr: "lists",
		},
		{
			name:    "untitled list",
			tpl:     Template{Title: "X", Lists: []List{{Title: "A"}, {}}},
			wantErr: "index 1",
		},
		{
			name: "cards reference unknown list",
			tpl: Template{
				Title: "X",
				Lists: []List{{Title: "A"}},
				Cards: map[string][]Card{"B": {{Title: "c"}}},
			},
			wantErr: "non-existent list",
		},
		{
			name: "untitled card",
			tpl: Template{
				Title: "X",
				Lists: []List{{Title: "A"}},
				Cards: map[string][]Card{"A": {{Description: "no title"}}},
			},
			wantErr: "missing 'title'",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.tpl)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestLoadDirOverlaysValidTemplates(t *testing.T) {
	dir := t.TempDir()

	valid := `{"title":"Support Board","lists":[{"title":"Inbox"},{"title":"Resolved"}],"cards":{"Inbox":[{"title":"Welcome","description":"First ticket"}]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "support.json"), []byte(valid), 0o644))

	// References a list that is not declared: must be skipped, not
	// partially registered.
	invalid := `{"title":"Broken","lists":[{"title":"Only"}],"cards":{"Missing":[{"title":"x"}]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(invalid), 0o644))

	notJSON := `{"title":`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte(notJSON), 0o644))

	m := New(dir, nil)

	assert.Equal(t, []string{"devops", "kanban_basic", "scrum", "support"}, m.Names())

	tpl, err := m.Get("support")
	require.NoError(t, err)
	assert.Equal(t, "Support Board", tpl.Title)
	assert.Len(t, tpl.Cards["Inbox"], 1)

	_, err = m.Get("broken")
	assert.Error(t, err)
}

func TestLoadDirMissingDirectoryKeepsBuiltins(t *testing.T) {
	m := New("/nonexistent/templates", nil)
	assert.Equal(t, []string{"devops", "kanban_basic", "scrum"}, m.Names())
}
