package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	data := "id,name,rarity\n" +
		"87012,Lightning Bolt,common\n" +
		"0,Zero Card,common\n" +
		"87013,,rare\n" +
		"abc,Bad Id,rare\n" +
		"87014,\"Jace, the Mind Sculptor\",mythic\n"

	c, err := Read(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	id, ok := c.ResolveID("lightning bolt")
	require.True(t, ok)
	assert.Equal(t, uint64(87012), id)

	id, ok = c.ResolveID("JACE, THE MIND SCULPTOR")
	require.True(t, ok)
	assert.Equal(t, uint64(87014), id)

	name, ok := c.ResolveName(87012)
	require.True(t, ok)
	assert.Equal(t, "Lightning Bolt", name)

	_, ok = c.ResolveID("Zero Card")
	assert.False(t, ok)
	_, ok = c.ResolveName(87013)
	assert.False(t, ok)
}

func TestRead_MtgaIDColumn(t *testing.T) {
	c, err := Read(strings.NewReader("name,mtga_id\nCounterspell,22\n"))
	require.NoError(t, err)

	id, ok := c.ResolveID("counterspell")
	require.True(t, ok)
	assert.Equal(t, uint64(22), id)
}

func TestRead_MissingColumns(t *testing.T) {
	_, err := Read(strings.NewReader("card,title\n1,x\n"))
	require.ErrorIs(t, err, ErrMissingColumns)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name\n5,Opt\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
