// Package appupdate manages desktop-client release metadata: published
// versions, the current latest, and the update check clients poll. Package
// binaries live on external storage; only their location and checksum are
// recorded here.
package appupdate

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"golang.org/x/mod/semver"
)

// Version is one published client release. Immutable after creation except
// for the active flag, which withdraws a bad release from the update check.
type Version struct {
	ID           uuid.UUID `json:"id" db:"id"`
	VersionName  string    `json:"versionName" db:"version_name"`
	ReleaseDate  time.Time `json:"releaseDate" db:"release_date"`
	Mandatory    bool      `json:"mandatory" db:"mandatory"`
	Active       bool      `json:"active" db:"active"`
	DownloadURL  string    `json:"downloadUrl" db:"download_url"`
	FileName     string    `json:"fileName" db:"file_name"`
	FileSize     int64     `json:"fileSize" db:"file_size"`
	Checksum     string    `json:"checksum" db:"checksum"`
	ReleaseNotes string    `json:"releaseNotes" db:"release_notes"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// CheckResult answers a client's update poll. Mandatory is set when the
// client cannot keep running its version: some release newer than the
// client's is flagged mandatory.
type CheckResult struct {
	UpdateAvailable bool     `json:"updateAvailable"`
	Mandatory       bool     `json:"mandatory"`
	Latest          *Version `json:"latest,omitempty"`
}

// canon normalizes a version string for x/mod/semver, which expects the
// leading "v". Stored version names stay as the caller wrote them.
func canon(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	return version
}

// IsValidVersion reports whether the string parses as semver, with or
// without the leading "v".
func IsValidVersion(version string) bool {
	return semver.IsValid(canon(version))
}

// CompareVersions orders two version names semver-wise: -1, 0 or +1.
func CompareVersions(a, b string) int {
	return semver.Compare(canon(a), canon(b))
}

// IsNewerThan reports whether v is a strictly newer release than the other
// version name.
func (v *Version) IsNewerThan(version string) bool {
	return CompareVersions(v.VersionName, version) > 0
}

// isSHA256Hex reports whether s is a 64-character hex string, the only
// checksum format the clients verify.
func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
