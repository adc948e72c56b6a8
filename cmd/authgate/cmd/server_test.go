package cmd

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim("a, b"))
	assert.Equal(t, []string{"http://localhost:3000"}, splitAndTrim(" http://localhost:3000 "))
	assert.Nil(t, splitAndTrim(" , ,"))
}

func TestParseProxyPrefixes(t *testing.T) {
	prefixes, err := parseProxyPrefixes([]string{"10.0.0.0/8", "192.0.2.1", "2001:db8::/32"})
	require.NoError(t, err)
	require.Len(t, prefixes, 3)

	assert.True(t, prefixes[0].Contains(netip.MustParseAddr("10.1.2.3")))
	assert.True(t, prefixes[1].Contains(netip.MustParseAddr("192.0.2.1")))
	assert.False(t, prefixes[1].Contains(netip.MustParseAddr("192.0.2.2")))
	assert.True(t, prefixes[2].Contains(netip.MustParseAddr("2001:db8::1")))

	_, err = parseProxyPrefixes([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = parseProxyPrefixes([]string{"10.0.0.0/999"})
	assert.Error(t, err)
}
