package security_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sammcj/mcp-office/internal/security"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestPolicy_DefaultDenyList(t *testing.T) {
	p := security.NewPolicy(testutils.CreateTestLogger())
	home := t.TempDir()

	err := p.Check(filepath.Join(home, ".ssh", "id_ed25519"), security.Read)
	require.Error(t, err)
	assert.True(t, errors.Is(err, security.ErrAccessDenied))

	var accessErr *security.AccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, "read", accessErr.Access)

	assert.NoError(t, p.Check(filepath.Join(home, "report.xlsx"), security.Write))
}

func TestPolicy_MissingFileFallsBackToDefaults(t *testing.T) {
	p, err := security.LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"), testutils.CreateTestLogger())
	require.NoError(t, err)
	assert.Empty(t, p.Source())
}

func TestPolicy_AllowedAndReadOnlyRoots(t *testing.T) {
	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	templates := filepath.Join(dir, "templates")
	require.NoError(t, os.MkdirAll(work, 0700))
	require.NoError(t, os.MkdirAll(templates, 0700))

	path := filepath.Join(dir, "policy.yaml")
	writePolicy(t, path, `
version: "1"
allowed_roots: ["`+work+`"]
read_only_roots: ["`+templates+`"]
deny_files: ["**/*.secret"]
deny_domains: ["*.blocked.example", "evil.test"]
`)

	p, err := security.LoadPolicy(path, testutils.CreateTestLogger())
	require.NoError(t, err)
	assert.Equal(t, path, p.Source())

	tests := []struct {
		name   string
		path   string
		access security.Access
		ok     bool
	}{
		{"write inside root", filepath.Join(work, "a.docx"), security.Write, true},
		{"write to new subdir inside root", filepath.Join(work, "new", "b.docx"), security.Write, true},
		{"write outside root", filepath.Join(dir, "elsewhere.docx"), security.Write, false},
		{"traversal out of root", filepath.Join(work, "..", "x.docx"), security.Write, false},
		{"read template", filepath.Join(templates, "t.docx"), security.Read, true},
		{"write template", filepath.Join(templates, "t.docx"), security.Write, false},
		{"denied extension", filepath.Join(work, "k.secret"), security.Read, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Check(tt.path, tt.access)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.Error(t, p.CheckDomain("smtp.blocked.example"))
	assert.Error(t, p.CheckDomain("someone@evil.test"))
	assert.NoError(t, p.CheckDomain("example.com"))
}

func TestPolicy_InvalidFileKeepsPreviousRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	writePolicy(t, path, `deny_files: ["**/*.lock"]`)

	p, err := security.LoadPolicy(path, testutils.CreateTestLogger())
	require.NoError(t, err)

	writePolicy(t, path, "deny_files: [\"[\"]")
	assert.Error(t, p.Reload(path))
	assert.Error(t, p.Check(filepath.Join(dir, "x.lock"), security.Read))
}

func TestPolicy_WatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	writePolicy(t, path, `deny_files: []`)

	p, err := security.LoadPolicy(path, testutils.CreateTestLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, p.Watch(ctx, path))

	target := filepath.Join(dir, "notes.txt")
	require.NoError(t, p.Check(target, security.Write))

	writePolicy(t, path, `deny_files: ["**/notes.txt"]`)
	assert.Eventually(t, func() bool {
		return p.Check(target, security.Write) != nil
	}, 3*time.Second, 20*time.Millisecond)
}
