package chrome

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/entrhq/ghostchrome/pkg/config"
)

const (
	// cleanExitType is what Chrome records after an orderly shutdown
	cleanExitType = "Normal"
)

// PreferencesPath returns the preference record of the default profile.
func PreferencesPath(profileDir string) string {
	return filepath.Join(profileDir, "Default", "Preferences")
}

// RepairPreferences marks the last session as cleanly exited and clears the
// session event log so the next launch does not offer to restore pages.
// Only those two values are rewritten; every other byte of the record is
// kept as it was. A missing or unparseable record yields a
// *PreferenceRepairError and the file is left untouched.
func RepairPreferences(profileDir string) error {
	path := PreferencesPath(profileDir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &PreferenceRepairError{Path: path, Err: errors.New("file not found")}
		}
		return &PreferenceRepairError{Path: path, Err: err}
	}

	if !gjson.ValidBytes(data) {
		return &PreferenceRepairError{Path: path, Err: errors.New("malformed JSON")}
	}
	if !gjson.ParseBytes(data).IsObject() {
		return &PreferenceRepairError{Path: path, Err: errors.New("record is not an object")}
	}

	out := data
	if gjson.GetBytes(out, "profile").IsObject() {
		if out, err = sjson.SetBytes(out, "profile.exit_type", cleanExitType); err != nil {
			return &PreferenceRepairError{Path: path, Err: err}
		}
	}
	if gjson.GetBytes(out, "sessions").IsObject() {
		if out, err = sjson.SetRawBytes(out, "sessions.event_log", []byte("[]")); err != nil {
			return &PreferenceRepairError{Path: path, Err: err}
		}
	}

	info, err := os.Stat(path)
	perm := os.FileMode(0600)
	if err == nil {
		perm = info.Mode().Perm()
	}
	if err := config.WriteFileAtomic(path, out, perm); err != nil {
		return &PreferenceRepairError{Path: path, Err: err}
	}
	return nil
}
