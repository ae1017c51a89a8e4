// Package providers holds the pieces shared by every cloud provider of the
// testing backend: the machine-image model, the image retention policy and the
// per-namespace provider registry.
package providers

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Image is one self-owned machine image as seen by the retention policy.
type Image struct {
	// Name is the full image name as uploaded by the build pipeline.
	Name string
	// Flavor groups images which supersede each other, e.g.
	// "15-SP2-EC2-HVM-BYOS-x86_64". Retention is applied per flavor.
	Flavor string
	// Build is the dotted build version within the flavor, e.g. "0.9.3-1.10".
	Build string
	// Date is the image creation timestamp reported by the cloud.
	Date time.Time
	// ID is the cloud-side identifier (an AMI id on EC2).
	ID string
}

// KeepImageNames decides which images survive a cleanup run.
//
// Images are grouped by flavor and each group is sorted by descending build
// version. The newest maxPerFlavor images of a group are kept, but only while
// they are younger than oldestAllowed. Everything else is a deletion
// candidate. The returned set contains the names of the kept images.
func KeepImageNames(images []Image, maxPerFlavor int, oldestAllowed time.Time) map[string]struct{} {
	byFlavor := make(map[string][]Image)
	for _, img := range images {
		byFlavor[img.Flavor] = append(byFlavor[img.Flavor], img)
	}

	keep := make(map[string]struct{})
	for _, group := range byFlavor {
		sort.SliceStable(group, func(i, j int) bool {
			return CompareBuilds(group[i].Build, group[j].Build) > 0
		})
		for i, img := range group {
			if i < maxPerFlavor && img.Date.After(oldestAllowed) {
				keep[img.Name] = struct{}{}
			}
		}
	}
	return keep
}

// CompareBuilds orders build versions segment-wise, so "1.10" sorts above
// "1.9". Segments are split on dots and dashes and compared numerically when
// both sides are numbers, lexically otherwise. Returns -1, 0 or 1.
func CompareBuilds(a, b string) int {
	splitter := func(r rune) bool { return r == '.' || r == '-' }
	as := strings.FieldsFunc(a, splitter)
	bs := strings.FieldsFunc(b, splitter)

	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		switch {
		case aerr == nil && berr == nil:
			if an != bn {
				return sign(an - bn)
			}
		default:
			if cmp := strings.Compare(as[i], bs[i]); cmp != 0 {
				return cmp
			}
		}
	}
	return sign(len(as) - len(bs))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
