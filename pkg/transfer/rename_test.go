package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyTemplate_Apply(t *testing.T) {
	tests := []struct {
		tpl  string
		key  string
		want string
	}{
		{"", "a/b/c.txt", "a/b/c.txt"},
		{"{key}", "c.txt", "c.txt"},
		{"{dir[0]}/{name}", "a/b/c.txt", "a/c.txt"},
		{"flat/{stem}-{dir[1]}{ext}", "a/b/c.txt", "flat/c-b.txt"},
		{"/{dir[0]}//{name}", "a/b/c.txt", "a/c.txt"},
		{"{stem}", "archive.tar.gz", "archive.tar"},
	}
	for _, tt := range tests {
		t.Run(tt.tpl, func(t *testing.T) {
			tpl, err := ParseKeyTemplate(tt.tpl)
			require.NoError(t, err)
			got, err := tpl.Apply(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeyTemplate_Invalid(t *testing.T) {
	for _, tpl := range []string{"{capture:.*}", "{name", "{dir[x]}", "{dir[-1]}"} {
		_, err := ParseKeyTemplate(tpl)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, tpl)
	}
}

func TestKeyTemplate_DirOutOfRange(t *testing.T) {
	tpl, err := ParseKeyTemplate("{dir[2]}/{name}")
	require.NoError(t, err)

	_, err = tpl.Apply("a/b.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no directory 2")
}

func TestRenamedCopyJob(t *testing.T) {
	tpl, err := ParseKeyTemplate("{dir[0]}-{name}")
	require.NoError(t, err)

	job, err := RenamedCopyJob("media", "photos/2024/ox.png", "2024/ox.png", "archive", "pets/", tpl)
	require.NoError(t, err)
	assert.Equal(t, Copy{SourceContainer: "media", SourceKey: "photos/2024/ox.png", TargetContainer: "archive", TargetKey: "pets/2024-ox.png"}, job)

	_, err = RenamedCopyJob("media", "ox.png", "ox.png", "", "", tpl)
	require.Error(t, err)
}
