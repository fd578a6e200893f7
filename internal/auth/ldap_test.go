package auth

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripDomain(t *testing.T) {
	assert.Equal(t, "jdoe", StripDomain("jdoe@Water.Example", "water.example"))
	assert.Equal(t, "jdoe", StripDomain("jdoe", "water.example"))
	assert.Equal(t, "jdoe@other.org", StripDomain("jdoe@other.org", "water.example"))
	assert.Equal(t, "jdoe@x", StripDomain("jdoe@x", ""))
}

func TestEntryFromLDAP(t *testing.T) {
	e := ldap.NewEntry("cn=Jane Doe,dc=water,dc=example", map[string][]string{
		"cn":   {"Jane Doe"},
		"mail": {"jane@water.example"},
	})
	got, err := entryFromLDAP("jdoe", e)
	require.NoError(t, err)
	assert.Equal(t, &DirectoryEntry{Username: "jdoe", Email: "jane@water.example", Name: "Jane Doe"}, got)

	_, err = entryFromLDAP("jdoe", ldap.NewEntry("cn=x", map[string][]string{"cn": {"x"}}))
	assert.ErrorIs(t, err, ErrDirectoryEntry)
}
