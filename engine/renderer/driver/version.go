package driver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// API identifies the flavour of the native graphics API.
type API int

const (
	// APIGL is desktop OpenGL, core profile.
	APIGL API = iota

	// APIGLES is OpenGL ES.
	APIGLES
)

func (a API) String() string {
	if a == APIGLES {
		return "gles"
	}
	return "gl"
}

// Version is one of the native API versions the renderer knows how to drive.
type Version struct {
	api          API
	major, minor int
}

var (
	VersionGL33   = Version{APIGL, 3, 3}
	VersionGL41   = Version{APIGL, 4, 1}
	VersionGL42   = Version{APIGL, 4, 2}
	VersionGL43   = Version{APIGL, 4, 3}
	VersionGL44   = Version{APIGL, 4, 4}
	VersionGL45   = Version{APIGL, 4, 5}
	VersionGL46   = Version{APIGL, 4, 6}
	VersionGLES30 = Version{APIGLES, 3, 0}
	VersionGLES31 = Version{APIGLES, 3, 1}
	VersionGLES32 = Version{APIGLES, 3, 2}
)

// knownVersions is ordered oldest first within each API.
var knownVersions = []Version{
	VersionGL33, VersionGL41, VersionGL42, VersionGL43, VersionGL44, VersionGL45, VersionGL46,
	VersionGLES30, VersionGLES31, VersionGLES32,
}

// API returns the API flavour.
func (v Version) API() API { return v.api }

// Major returns the major version number.
func (v Version) Major() int { return v.major }

// Minor returns the minor version number.
func (v Version) Minor() int { return v.minor }

// IsGLES reports whether v is an OpenGL ES version.
func (v Version) IsGLES() bool { return v.api == APIGLES }

// IsAtLeast reports whether v is at least gl when v is desktop GL, or at least gles when v is GLES.
//
// Parameters:
//   - gl: the minimum desktop version
//   - gles: the minimum ES version
//
// Returns:
//   - bool: true if v meets the minimum of its own API
func (v Version) IsAtLeast(gl, gles Version) bool {
	min := gl
	if v.api == APIGLES {
		min = gles
	}
	if v.major != min.major {
		return v.major > min.major
	}
	return v.minor >= min.minor
}

// GLSLVersion returns the string that follows #version in generated shader sources.
func (v Version) GLSLVersion() string {
	if v.api == APIGLES {
		return fmt.Sprintf("%d%d0 es", v.major, v.minor)
	}
	return fmt.Sprintf("%d%d0 core", v.major, v.minor)
}

func (v Version) String() string {
	return fmt.Sprintf("%s-%d.%d", v.api, v.major, v.minor)
}

var versionNumber = regexp.MustCompile(`(\d+)\.(\d+)`)

// ParseVersion accepts either the config form ("gl-4.1", "gles-3.2") or a native
// GL_VERSION string ("4.6.0 NVIDIA 535.54", "OpenGL ES 3.2 Mesa 23.0"). The result is the
// newest known version not newer than the one reported.
//
// Parameters:
//   - s: the version string
//
// Returns:
//   - Version: the matching known version
//   - error: an error if s cannot be parsed or is older than every known version
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	api := APIGL
	if strings.HasPrefix(trimmed, "gles") || strings.Contains(trimmed, "opengl es") {
		api = APIGLES
	}

	m := versionNumber.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, fmt.Errorf("unrecognized version string %q", s)
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	reported := Version{api: api, major: major, minor: minor}

	var best Version
	found := false
	for _, k := range knownVersions {
		if k.api != api {
			continue
		}
		if reported.IsAtLeast(k, k) {
			best = k
			found = true
		}
	}
	if !found {
		return Version{}, fmt.Errorf("version %q is older than the minimum supported %s version", s, api)
	}
	return best, nil
}
