package ec2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImageName(t *testing.T) {
	tests := []struct {
		name      string
		imageName string
		want      ImageInfo
		wantKey   string
		wantBuild string
	}{
		{
			name:      "flavor before arch with explicit type",
			imageName: "openqa-SLES12-SP5-EC2.x86_64-0.9.1-BYOS-Build1.55.raw.xz",
			want: ImageInfo{
				Version: "12-SP5",
				Flavor:  "EC2",
				Type:    "BYOS",
				Arch:    "x86_64",
				Kiwi:    "0.9.1",
				Build:   "1.55",
			},
			wantKey:   "12-SP5-EC2-BYOS-x86_64",
			wantBuild: "0.9.1-1.55",
		},
		{
			name:      "flavor after kiwi version",
			imageName: "openqa-SLES15-SP2.x86_64-0.9.3-EC2-HVM-Build1.10.raw.xz",
			want: ImageInfo{
				Version: "15-SP2",
				Flavor:  "EC2-HVM",
				Arch:    "x86_64",
				Kiwi:    "0.9.3",
				Build:   "1.10",
			},
			wantKey:   "15-SP2-EC2-HVM-x86_64",
			wantBuild: "0.9.3-1.10",
		},
		{
			name:      "flavor after kiwi version with type",
			imageName: "openqa-SLES15-SP2-BYOS.x86_64-0.9.3-EC2-HVM-Build1.10.raw.xz",
			want: ImageInfo{
				Version: "15-SP2",
				Flavor:  "EC2-HVM",
				Type:    "BYOS",
				Arch:    "x86_64",
				Kiwi:    "0.9.3",
				Build:   "1.10",
			},
			wantKey:   "15-SP2-EC2-HVM-BYOS-x86_64",
			wantBuild: "0.9.3-1.10",
		},
		{
			name:      "aarch64",
			imageName: "openqa-SLES15-SP2.aarch64-0.9.3-EC2-HVM-Build1.49.raw.xz",
			want: ImageInfo{
				Version: "15-SP2",
				Flavor:  "EC2-HVM",
				Arch:    "aarch64",
				Kiwi:    "0.9.3",
				Build:   "1.49",
			},
			wantKey:   "15-SP2-EC2-HVM-aarch64",
			wantBuild: "0.9.3-1.49",
		},
		{
			name:      "compound flavor before arch",
			imageName: "openqa-SLES12-SP4-EC2-HVM-BYOS.x86_64-0.9.2-Build2.56.raw.xz",
			want: ImageInfo{
				Version: "12-SP4",
				Flavor:  "EC2-HVM-BYOS",
				Arch:    "x86_64",
				Kiwi:    "0.9.2",
				Build:   "2.56",
			},
			wantKey:   "12-SP4-EC2-HVM-BYOS-x86_64",
			wantBuild: "0.9.2-2.56",
		},
		{
			name:      "no service pack",
			imageName: "openqa-SLES15.x86_64-0.9.3-EC2-HVM-Build1.1.raw.xz",
			want: ImageInfo{
				Version: "15",
				Flavor:  "EC2-HVM",
				Arch:    "x86_64",
				Kiwi:    "0.9.3",
				Build:   "1.1",
			},
			wantKey:   "15-EC2-HVM-x86_64",
			wantBuild: "0.9.3-1.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseImageName(tt.imageName)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantKey, got.Key())
			assert.Equal(t, tt.wantBuild, got.BuildVersion())
		})
	}
}

func TestParseImageNameRejectsUnknownShapes(t *testing.T) {
	for _, name := range []string{
		"",
		"some-random-image.raw.xz",
		"openqa-SLES15-SP2.x86_64-0.9.3-Azure-Build1.10.raw.xz",
		"openqa-SLES15-SP2.x86_64-0.9.3-EC2-HVM-Build1.10.raw",
		"SLES15-SP2.x86_64-0.9.3-EC2-HVM-Build1.10.raw.xz",
	} {
		_, ok := ParseImageName(name)
		assert.False(t, ok, "expected %q not to parse", name)
	}
}
