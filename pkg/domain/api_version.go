package domain

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "muster/pkg/domain-errors"
)

// APIVersion represents a negotiated API microversion ("1.0", "1.14").
// This is a domain primitive that enforces validity at parse time.
type APIVersion string

// Supported microversions, oldest first.
const (
	APIVersion1_0  APIVersion = "1.0"
	APIVersion1_14 APIVersion = "1.14"
)

// capability describes what one microversion added relative to the previous
// one. Keeping this as a single ordered table (rather than conditionals
// scattered across handlers) makes the version surface auditable.
type capability struct {
	version      APIVersion
	addedFilters []string
	addedFields  []string
}

var capabilities = []capability{
	{version: APIVersion1_0},
	{version: APIVersion1_14, addedFilters: []string{"cluster_id"}, addedFields: []string{"cluster_id"}},
}

// serviceType is the expected prefix in the OpenStack-API-Version header,
// e.g. "clustering 1.14".
const serviceType = "clustering"

// ParseAPIVersion validates a version string and returns an APIVersion. Any
// "major.minor" version within the supported range negotiates, not just the
// versions that introduced capabilities; "1.7" is as valid as "1.14".
func ParseAPIVersion(s string) (APIVersion, error) {
	major, minor, ok := versionParts(APIVersion(s))
	if !ok {
		return "", dErrors.New(dErrors.CodeBadRequest,
			"unsupported API version: acceptable versions are "+string(MinVersion())+" to "+string(MaxVersion()))
	}
	v := APIVersion(fmt.Sprintf("%d.%d", major, minor))
	if !v.IsAtLeast(MinVersion()) || !MaxVersion().IsAtLeast(v) {
		return "", dErrors.New(dErrors.CodeBadRequest,
			"unsupported API version: acceptable versions are "+string(MinVersion())+" to "+string(MaxVersion()))
	}
	return v, nil
}

// versionParts splits a version into numeric major and minor components.
func versionParts(v APIVersion) (major, minor int, ok bool) {
	maj, min, found := strings.Cut(string(v), ".")
	if !found {
		return 0, 0, false
	}
	major, err := strconv.Atoi(maj)
	if err != nil || major < 0 {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(min)
	if err != nil || minor < 0 {
		return 0, 0, false
	}
	return major, minor, true
}

// ParseVersionHeader parses an OpenStack-API-Version header value. Accepts
// "clustering <version>" and the bare "<version>" form; an empty header
// negotiates the minimum supported version.
func ParseVersionHeader(header string) (APIVersion, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return MinVersion(), nil
	}
	if after, ok := strings.CutPrefix(header, serviceType); ok {
		header = strings.TrimSpace(after)
	}
	return ParseAPIVersion(header)
}

// MinVersion returns the oldest supported microversion.
func MinVersion() APIVersion { return capabilities[0].version }

// MaxVersion returns the newest supported microversion.
func MaxVersion() APIVersion { return capabilities[len(capabilities)-1].version }

func (v APIVersion) String() string { return string(v) }

// IsNil returns true if the API version is empty.
func (v APIVersion) IsNil() bool { return v == "" }

// IsAtLeast returns true if this version is >= other, comparing major then
// minor numerically ("1.7" < "1.14"). Malformed versions rank below any
// well-formed version.
func (v APIVersion) IsAtLeast(other APIVersion) bool {
	vMajor, vMinor, vOK := versionParts(v)
	oMajor, oMinor, oOK := versionParts(other)
	if !vOK {
		return false
	}
	if !oOK {
		return true
	}
	if vMajor != oMajor {
		return vMajor > oMajor
	}
	return vMinor >= oMinor
}

// SupportsFilter reports whether the given query filter is available at this
// microversion. Filters absent from every capability entry are part of the
// base version and always supported.
func (v APIVersion) SupportsFilter(name string) bool {
	return v.supports(name, func(c capability) []string { return c.addedFilters })
}

// SupportsField reports whether the given response field is exposed at this
// microversion.
func (v APIVersion) SupportsField(name string) bool {
	return v.supports(name, func(c capability) []string { return c.addedFields })
}

func (v APIVersion) supports(name string, pick func(capability) []string) bool {
	for _, c := range capabilities {
		for _, n := range pick(c) {
			if n == name {
				return v.IsAtLeast(c.version)
			}
		}
	}
	return true
}

// SupportedVersions returns all supported microversions, oldest first.
func SupportedVersions() []APIVersion {
	out := make([]APIVersion, 0, len(capabilities))
	for _, c := range capabilities {
		out = append(out, c.version)
	}
	return out
}
