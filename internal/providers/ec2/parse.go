package ec2

import (
	"regexp"
	"strings"
)

// ImageInfo is the result of parsing an openQA machine-image name.
type ImageInfo struct {
	Version string // e.g. "15-SP2"
	Flavor  string // e.g. "EC2-HVM"
	Type    string // "BYOS", "On-Demand" or empty
	Arch    string // e.g. "x86_64"
	Kiwi    string // kiwi builder version, e.g. "0.9.3"
	Build   string // build counter, e.g. "1.10"
}

// Key groups images which supersede each other: same version, flavor, type
// and architecture, differing only in build.
func (i ImageInfo) Key() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{i.Version, i.Flavor, i.Type, i.Arch} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "-")
}

// BuildVersion is the sortable build identity within a flavor key.
func (i ImageInfo) BuildVersion() string {
	return i.Kiwi + "-" + i.Build
}

// The upload pipeline produced three naming shapes over time; all of them
// stay parseable so old images are still cleanup candidates.
var imageNameRegexes = []*regexp.Regexp{
	// openqa-SLES12-SP5-EC2.x86_64-0.9.1-BYOS-Build1.55.raw.xz
	regexp.MustCompile(`^openqa-SLES(?P<version>\d+(-SP\d+)?)` +
		`-(?P<flavor>EC2)` +
		`\.(?P<arch>[^-]+)` +
		`-(?P<kiwi>\d+\.\d+\.\d+)` +
		`-(?P<type>(BYOS|On-Demand))` +
		`-Build(?P<build>\d+\.\d+)` +
		`\.raw\.xz$`),
	// openqa-SLES15-SP2.x86_64-0.9.3-EC2-HVM-Build1.10.raw.xz
	// openqa-SLES15-SP2-BYOS.x86_64-0.9.3-EC2-HVM-Build1.10.raw.xz
	// openqa-SLES15-SP2.aarch64-0.9.3-EC2-HVM-Build1.49.raw.xz
	regexp.MustCompile(`^openqa-SLES(?P<version>\d+(-SP\d+)?)` +
		`(-(?P<type>[^.]+))?` +
		`\.(?P<arch>[^-]+)` +
		`-(?P<kiwi>\d+\.\d+\.\d+)` +
		`-(?P<flavor>EC2[-\w]*)` +
		`-Build(?P<build>\d+\.\d+)` +
		`\.raw\.xz$`),
	// openqa-SLES12-SP4-EC2-HVM-BYOS.x86_64-0.9.2-Build2.56.raw.xz
	regexp.MustCompile(`^openqa-SLES(?P<version>\d+(-SP\d+)?)` +
		`-(?P<flavor>EC2[^.]+)` +
		`\.(?P<arch>[^-]+)` +
		`-(?P<kiwi>\d+\.\d+\.\d+)` +
		`-Build(?P<build>\d+\.\d+)` +
		`\.raw\.xz$`),
}

// ParseImageName parses an image name into its retention-relevant fields. The
// second return is false when the name matches none of the known shapes.
func ParseImageName(name string) (ImageInfo, bool) {
	for _, re := range imageNameRegexes {
		match := re.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		var info ImageInfo
		for i, groupName := range re.SubexpNames() {
			switch groupName {
			case "version":
				info.Version = match[i]
			case "flavor":
				info.Flavor = match[i]
			case "type":
				info.Type = match[i]
			case "arch":
				info.Arch = match[i]
			case "kiwi":
				info.Kiwi = match[i]
			case "build":
				info.Build = match[i]
			}
		}
		return info, true
	}
	return ImageInfo{}, false
}
