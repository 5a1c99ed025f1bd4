package descriptors

import (
	"fmt"
	"math"

	"github.com/coreos/go-semver/semver"
)

// Version is a packed descriptor version in the format h'MM_mmmm_pp:
// major in bits 31..24, minor in bits 23..8, patch in bits 7..0.
type Version uint32

// NewVersion packs major, minor and patch into a Version.
func NewVersion(major uint8, minor uint16, patch uint8) Version {
	return Version(uint32(major)<<24 | uint32(minor)<<8 | uint32(patch))
}

func (v Version) Major() uint8  { return uint8(v >> 24) }
func (v Version) Minor() uint16 { return uint16(v >> 8) }
func (v Version) Patch() uint8  { return uint8(v) }

// Semver returns v as a semantic version.
func (v Version) Semver() semver.Version {
	return semver.Version{
		Major: int64(v.Major()),
		Minor: int64(v.Minor()),
		Patch: int64(v.Patch()),
	}
}

func (v Version) String() string {
	return v.Semver().String()
}

// IsCompatible reports whether records written with v can be read by code
// built for other. Only the major number breaks compatibility.
func (v Version) IsCompatible(other Version) bool {
	return v.Major() == other.Major()
}

// VersionFromSemver packs sv, rejecting components that do not fit the
// packed layout. Pre-release and build metadata cannot be represented.
func VersionFromSemver(sv semver.Version) (Version, error) {
	if sv.PreRelease != "" || sv.Metadata != "" {
		return 0, fmt.Errorf("descriptor version %s: pre-release and metadata are not encodable", sv)
	}
	if sv.Major < 0 || sv.Major > math.MaxUint8 {
		return 0, fmt.Errorf("descriptor version %s: major %d out of range 0-%d", sv, sv.Major, math.MaxUint8)
	}
	if sv.Minor < 0 || sv.Minor > math.MaxUint16 {
		return 0, fmt.Errorf("descriptor version %s: minor %d out of range 0-%d", sv, sv.Minor, math.MaxUint16)
	}
	if sv.Patch < 0 || sv.Patch > math.MaxUint8 {
		return 0, fmt.Errorf("descriptor version %s: patch %d out of range 0-%d", sv, sv.Patch, math.MaxUint8)
	}
	return NewVersion(uint8(sv.Major), uint16(sv.Minor), uint8(sv.Patch)), nil
}

// ParseVersion parses a "major.minor.patch" string into a packed Version.
func ParseVersion(s string) (Version, error) {
	sv, err := semver.NewVersion(s)
	if err != nil {
		return 0, fmt.Errorf("invalid descriptor version %q: %w", s, err)
	}
	return VersionFromSemver(*sv)
}
