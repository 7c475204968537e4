package endpoint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrInvalidPort means the port field did not parse as a positive integer.
	ErrInvalidPort = errors.New("port must be a positive integer")

	// ErrMissingServerName means the Reality server-name list was empty after
	// trimming and discarding blank entries.
	ErrMissingServerName = errors.New("at least one server name is required")

	// ErrUnknownKind means the draft carried a kind no build branch handles.
	ErrUnknownKind = errors.New("unknown endpoint kind")
)

// InvalidServerNameError reports the rule a Reality server name violated.
type InvalidServerNameError struct {
	Name   string
	Reason string
}

func (e *InvalidServerNameError) Error() string {
	return fmt.Sprintf("invalid server name %q: %s", e.Name, e.Reason)
}

const (
	defaultFingerprint = "chrome"
	realityDestPort    = "443" // camouflage target is always HTTPS, independent of the listen port
)

// BuildCreateRequest validates a draft and shapes the provisioning payload
// for its kind. Rules apply in order and the first failure wins; the
// function is pure and leaves the draft untouched.
func BuildCreateRequest(d *Draft) (*CreateRequest, error) {
	port, err := parsePort(d.Port)
	if err != nil {
		return nil, err
	}

	switch d.Kind {
	case KindVLESSRealityVisionTCP:
		opts, err := buildRealityOptions(d.Reality)
		if err != nil {
			return nil, err
		}
		return &CreateRequest{Kind: d.Kind, NodeID: d.NodeID, Port: port, Reality: opts}, nil

	case KindSS2022Blake3AES128GCM:
		// Shadowsocks-2022 has no protocol sub-object; only the port matters here.
		return &CreateRequest{Kind: d.Kind, NodeID: d.NodeID, Port: port}, nil

	default:
		return nil, ErrUnknownKind
	}
}

func buildRealityOptions(r *RealityDraft) (*RealityOptions, error) {
	var names []string
	fingerprint := defaultFingerprint

	if r != nil {
		for _, raw := range r.ServerNames {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			names = append(names, name)
		}
		if fp := strings.TrimSpace(r.Fingerprint); fp != "" {
			fingerprint = fp
		}
	}

	if len(names) == 0 {
		return nil, ErrMissingServerName
	}
	for _, name := range names {
		if err := checkServerName(name); err != nil {
			return nil, err
		}
	}

	// The first name the operator supplied is the primary camouflage target.
	return &RealityOptions{
		Dest:        names[0] + ":" + realityDestPort,
		ServerNames: names,
		Fingerprint: fingerprint,
	}, nil
}

// checkServerName enforces that an entry is a bare domain. The checks run in
// a fixed order so a URL fails on its scheme before its slashes or colon.
func checkServerName(name string) error {
	fail := func(reason string) error {
		return &InvalidServerNameError{Name: name, Reason: reason}
	}

	switch {
	case strings.ContainsFunc(name, unicode.IsSpace):
		return fail("must not contain whitespace")
	case strings.Contains(name, "://"):
		return fail("must be a bare domain, not a URL")
	case strings.Contains(name, "/"):
		return fail("must not contain a path")
	case strings.Contains(name, ":"):
		return fail("must not include a port")
	case strings.Contains(name, "*"):
		return fail("wildcard is not supported")
	}
	return nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 {
		return 0, ErrInvalidPort
	}
	return port, nil
}
