package facts

import (
	"net/url"
	"path"
	"strings"
)

// ContainerFormat is the packaging a download arrives in.
type ContainerFormat string

const (
	FormatUnknown       ContainerFormat = ""
	FormatDiskImage     ContainerFormat = "dmg"
	FormatArchiveZip    ContainerFormat = "zip"
	FormatArchiveTarGz  ContainerFormat = "tar.gz"
	FormatArchiveGzip   ContainerFormat = "gzip"
	FormatArchiveTarBz2 ContainerFormat = "tar.bz2"
	FormatInstallerPkg  ContainerFormat = "pkg"
	FormatInstallerMpkg ContainerFormat = "mpkg"
)

// Formats lists every known format in match priority order: disk images,
// then archives, then installers.
var Formats = []ContainerFormat{
	FormatDiskImage,
	FormatArchiveZip,
	FormatArchiveTarGz,
	FormatArchiveGzip,
	FormatArchiveTarBz2,
	FormatInstallerPkg,
	FormatInstallerMpkg,
}

// Suffix is the file extension without the leading dot.
func (f ContainerFormat) Suffix() string {
	return string(f)
}

func (f ContainerFormat) String() string {
	switch f {
	case FormatDiskImage:
		return "disk-image"
	case FormatArchiveZip:
		return "archive-zip"
	case FormatArchiveTarGz:
		return "archive-targz"
	case FormatArchiveGzip:
		return "archive-gzip"
	case FormatArchiveTarBz2:
		return "archive-tarbz2"
	case FormatInstallerPkg:
		return "installer-pkg"
	case FormatInstallerMpkg:
		return "installer-mpkg"
	default:
		return "unknown"
	}
}

// IsDiskImage reports whether f is a dmg.
func (f ContainerFormat) IsDiskImage() bool {
	return f == FormatDiskImage
}

// IsArchive reports whether f is one of the archive formats.
func (f ContainerFormat) IsArchive() bool {
	switch f {
	case FormatArchiveZip, FormatArchiveTarGz, FormatArchiveGzip, FormatArchiveTarBz2:
		return true
	}
	return false
}

// IsInstaller reports whether f is a flat or bundle installer package.
func (f ContainerFormat) IsInstaller() bool {
	return f == FormatInstallerPkg || f == FormatInstallerMpkg
}

// IsKnown reports whether f was detected.
func (f ContainerFormat) IsKnown() bool {
	return f != FormatUnknown
}

// FormatFromName matches the end of a file name against Formats. The match
// is case-insensitive and anchored on a dot, so "foo.tgzip" is unknown.
func FormatFromName(name string) ContainerFormat {
	lower := strings.ToLower(name)
	for _, f := range Formats {
		if strings.HasSuffix(lower, "."+f.Suffix()) {
			return f
		}
	}
	return FormatUnknown
}

// FormatFromURL matches the last path element of rawURL, ignoring any query
// string or fragment.
func FormatFromURL(rawURL string) ContainerFormat {
	u, err := url.Parse(rawURL)
	if err != nil {
		return FormatFromName(stripQuery(rawURL))
	}
	return FormatFromName(path.Base(u.Path))
}

// FormatFromRecipeBody scans a recipe's raw text for a literal reference to
// each format in priority order. Plist bodies reference the file as
// ".<suffix></string>"; YAML bodies end the scalar with ".<suffix>".
func FormatFromRecipeBody(body []byte) ContainerFormat {
	text := strings.ToLower(string(body))
	for _, f := range Formats {
		if strings.Contains(text, "."+f.Suffix()+"</string>") {
			return f
		}
	}
	lines := strings.Split(text, "\n")
	for _, f := range Formats {
		needle := "." + f.Suffix()
		for _, line := range lines {
			line = strings.TrimRight(strings.TrimSpace(line), `"'`)
			if strings.HasSuffix(line, needle) {
				return f
			}
		}
	}
	return FormatUnknown
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}
