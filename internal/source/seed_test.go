package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/directoryd/internal/directory"
)

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadSeed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantIDs []string
	}{
		{
			name: "yaml sequence",
			file: "members.yaml",
			content: `
- _id: m1
  role: president
- _id: m2
  role: [trainee, iot]
`,
			wantIDs: []string{"m1", "m2"},
		},
		{
			name: "yaml records key",
			file: "events.yml",
			content: `
records:
  - id: e1
    type: workshop
`,
			wantIDs: []string{"e1"},
		},
		{
			name:    "json array",
			file:    "projects.json",
			content: `[{"_id":"p1","tags":["iot"]},{"_id":"p2"}]`,
			wantIDs: []string{"p1", "p2"},
		},
		{
			name:    "json data envelope",
			file:    "projects.json",
			content: `{"data":[{"_id":"p1"}]}`,
			wantIDs: []string{"p1"},
		},
		{
			name: "toml records table",
			file: "events.toml",
			content: `
[[records]]
id = "e1"
type = "upcoming"

[[records]]
id = "e2"
type = "past"
`,
			wantIDs: []string{"e1", "e2"},
		},
		{
			name:    "empty yaml",
			file:    "empty.yaml",
			content: "",
			wantIDs: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ReadSeed(writeSeed(t, tt.file, tt.content))
			require.NoError(t, err)

			def, ok := directory.Builtin(directory.KindProjects)
			require.True(t, ok)
			def.IDFields = []string{"_id", "id"}
			entities, report := directory.NewNormalizer(def).Normalize(records)
			assert.Zero(t, report.Discarded)

			ids := make([]string, 0, len(entities))
			for _, e := range entities {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestReadSeed_YAMLCategories(t *testing.T) {
	path := writeSeed(t, "members.yaml", `
- _id: m1
  name: Ada
  role: [student mentor, trainee]
`)
	records, err := ReadSeed(path)
	require.NoError(t, err)

	def, _ := directory.Builtin(directory.KindMembers)
	entities, _ := directory.NewNormalizer(def).Normalize(records)
	require.Len(t, entities, 1)
	assert.Equal(t, []string{"student mentor", "trainee"}, entities[0].Categories)
	assert.Equal(t, "Ada", entities[0].Display["name"])
}

func TestReadSeed_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadSeed(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := ReadSeed(writeSeed(t, "seed.csv", "a,b"))
		assert.ErrorIs(t, err, ErrSeedFormat)
	})

	t.Run("scalar yaml", func(t *testing.T) {
		_, err := ReadSeed(writeSeed(t, "seed.yaml", "just a string"))
		assert.ErrorIs(t, err, ErrUnexpectedPayload)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ReadSeed(writeSeed(t, "seed.json", `[{`))
		require.Error(t, err)
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := ReadSeed(writeSeed(t, "seed.toml", `[[records]`))
		require.Error(t, err)
	})
}
