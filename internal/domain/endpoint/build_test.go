package endpoint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realityDraft(port string, names []string, fingerprint string) *Draft {
	return &Draft{
		Kind:    KindVLESSRealityVisionTCP,
		NodeID:  1,
		Port:    port,
		Reality: &RealityDraft{ServerNames: names, Fingerprint: fingerprint},
	}
}

func TestBuildCreateRequestReality(t *testing.T) {
	req, err := BuildCreateRequest(realityDraft("8443", []string{"b.example.com", "a.example.com"}, ""))
	require.NoError(t, err)

	assert.Equal(t, KindVLESSRealityVisionTCP, req.Kind)
	assert.Equal(t, int64(1), req.NodeID)
	assert.Equal(t, 8443, req.Port)

	require.NotNil(t, req.Reality)
	// First entry as supplied wins, not sorted order; dest always targets 443.
	assert.Equal(t, "b.example.com:443", req.Reality.Dest)
	assert.Equal(t, []string{"b.example.com", "a.example.com"}, req.Reality.ServerNames)
	assert.Equal(t, "chrome", req.Reality.Fingerprint)
}

func TestBuildCreateRequestFingerprint(t *testing.T) {
	req, err := BuildCreateRequest(realityDraft("443", []string{"example.com"}, "  firefox  "))
	require.NoError(t, err)
	assert.Equal(t, "firefox", req.Reality.Fingerprint)

	req, err = BuildCreateRequest(realityDraft("443", []string{"example.com"}, "   "))
	require.NoError(t, err)
	assert.Equal(t, "chrome", req.Reality.Fingerprint)
}

func TestBuildCreateRequestTrimsAndDropsBlankNames(t *testing.T) {
	req, err := BuildCreateRequest(realityDraft("443", []string{"  ", "", " example.com "}, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com"}, req.Reality.ServerNames)
	assert.Equal(t, "example.com:443", req.Reality.Dest)
}

func TestBuildCreateRequestMissingServerName(t *testing.T) {
	_, err := BuildCreateRequest(realityDraft("443", []string{"   ", ""}, ""))
	assert.ErrorIs(t, err, ErrMissingServerName)

	// Reality kind with no reality block at all.
	_, err = BuildCreateRequest(&Draft{Kind: KindVLESSRealityVisionTCP, NodeID: 1, Port: "443"})
	assert.ErrorIs(t, err, ErrMissingServerName)
}

func TestBuildCreateRequestRejectsMalformedServerNames(t *testing.T) {
	tests := []struct {
		name   string
		entry  string
		reason string
	}{
		{"wildcard", "*.example.com", "wildcard is not supported"},
		{"slash", "foo/bar", "must not contain a path"},
		{"port suffix", "foo:443", "must not include a port"},
		{"scheme", "ftp://foo", "must be a bare domain, not a URL"},
		{"inner whitespace", "foo bar.com", "must not contain whitespace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCreateRequest(realityDraft("443", []string{tt.entry}, ""))

			var nameErr *InvalidServerNameError
			require.ErrorAs(t, err, &nameErr)
			assert.Equal(t, tt.entry, nameErr.Name)
			assert.Equal(t, tt.reason, nameErr.Reason)
		})
	}
}

func TestBuildCreateRequestFailFastOnPort(t *testing.T) {
	// Port is rule one: it fails before any server-name inspection.
	_, err := BuildCreateRequest(realityDraft("not-a-port", []string{"*.example.com"}, ""))
	assert.ErrorIs(t, err, ErrInvalidPort)
}

func TestBuildCreateRequestInvalidPorts(t *testing.T) {
	for _, port := range []string{"", "0", "-1", "abc", "12.5"} {
		_, err := BuildCreateRequest(&Draft{Kind: KindSS2022Blake3AES128GCM, NodeID: 1, Port: port})
		assert.ErrorIs(t, err, ErrInvalidPort, "port %q", port)
	}
}

func TestBuildCreateRequestShadowsocks(t *testing.T) {
	req, err := BuildCreateRequest(&Draft{Kind: KindSS2022Blake3AES128GCM, NodeID: 3, Port: " 8388 "})
	require.NoError(t, err)

	assert.Equal(t, KindSS2022Blake3AES128GCM, req.Kind)
	assert.Equal(t, 8388, req.Port)
	assert.Nil(t, req.Reality, "shadowsocks carries no protocol sub-object")
}

func TestBuildCreateRequestUnknownKind(t *testing.T) {
	_, err := BuildCreateRequest(&Draft{Kind: "trojan_tcp", NodeID: 1, Port: "443"})
	assert.True(t, errors.Is(err, ErrUnknownKind))
}
