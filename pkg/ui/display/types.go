// Package display holds the view model every renderer draws: lifecycle
// reports, fetch results, installed kegs and formula descriptions,
// flattened into plain structs.
package display

import (
	"time"
)

// HookLine is one hook of a run
type HookLine struct {
	Hook     string        `json:"hook"`
	Status   string        `json:"status"` // "ok", "failed", "skipped"
	Duration time.Duration `json:"duration"`
	Detail   string        `json:"detail,omitempty"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"code,omitempty"`
}

// RunResult is the outcome of install or test
type RunResult struct {
	Command    string     `json:"command"`
	Formula    string     `json:"formula"`
	PkgVersion string     `json:"pkgVersion"`
	Hooks      []HookLine `json:"hooks"`
	Binary     string     `json:"binary,omitempty"`
	Link       string     `json:"link,omitempty"`
	Commit     string     `json:"commit,omitempty"`
	Digest     string     `json:"digest,omitempty"`
	TestMode   string     `json:"testMode,omitempty"`
	Warnings   []string   `json:"warnings,omitempty"`
	DryRun     bool       `json:"dryRun"`
}

// Success reports whether no hook failed
func (r *RunResult) Success() bool {
	for _, h := range r.Hooks {
		if h.Status == "failed" {
			return false
		}
	}
	return true
}

// FetchResult is the outcome of fetch
type FetchResult struct {
	Formula   string `json:"formula"`
	URL       string `json:"url"`
	Ref       string `json:"ref"`
	Commit    string `json:"commit,omitempty"`
	Digest    string `json:"digest"`
	Workspace string `json:"workspace"`
}

// Keg is one installed package version
type Keg struct {
	Name        string    `json:"name"`
	PkgVersion  string    `json:"pkgVersion"`
	Binary      string    `json:"binary"`
	Checksum    string    `json:"checksum,omitempty"`
	Commit      string    `json:"commit,omitempty"`
	Head        bool      `json:"head"`
	InstalledAt time.Time `json:"installedAt"`
}

// KegList is the outcome of list and uninstall
type KegList struct {
	Command string `json:"command"`
	Kegs    []Keg  `json:"kegs"`
}

// FormulaInfo describes a formula for info
type FormulaInfo struct {
	Name         string       `json:"name"`
	Desc         string       `json:"desc,omitempty"`
	Homepage     string       `json:"homepage,omitempty"`
	Version      string       `json:"version"`
	PkgVersion   string       `json:"pkgVersion"`
	File         string       `json:"file"`
	URL          string       `json:"url"`
	Ref          string       `json:"ref"`
	Head         string       `json:"head,omitempty"`
	Dependencies []Dependency `json:"dependencies"`
	StageDir     string       `json:"stageDir,omitempty"`
	Commands     []string     `json:"commands"`
	Artifact     string       `json:"artifact"`
	BinName      string       `json:"binName"`
	Test         string       `json:"test"`
	Installed    []string     `json:"installed,omitempty"`
}

// Dependency is one declared dependency
type Dependency struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Validation is the outcome of validate for one file
type Validation struct {
	File  string `json:"file"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult is the outcome of validate
type ValidationResult struct {
	Files []Validation `json:"files"`
}
