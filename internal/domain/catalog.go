package domain

import "time"

// LargeCatalogThreshold is the default record count at which a catalog is
// flagged as large enough to slow downstream GIS processing.
const LargeCatalogThreshold = 500_000

// FileStats summarizes how one raw file contributed to a catalog.
type FileStats struct {
	Path          string `json:"path"`
	HeaderSkipped bool   `json:"header_skipped"`
	Rows          int    `json:"rows"`
	Kept          int    `json:"kept"`
	Dropped       int    `json:"dropped"`
}

// NormalizedCatalog describes a validated catalog file: the canonical header
// followed by Count kept rows in file-then-row order.
type NormalizedCatalog struct {
	Path    string      `json:"path"`
	Header  []string    `json:"-"`
	Count   int         `json:"count"`
	Dropped int         `json:"dropped"`
	Large   bool        `json:"large"`
	Files   []FileStats `json:"files,omitempty"`
}

// RunRequest asks for one acquisition run. Dir and Name are opaque to the
// pipeline; an empty Dir falls back to the configured output directory.
type RunRequest struct {
	Spec QuerySpec
	Dir  string
	Name string
}

// Progress is a status milestone emitted during a run.
type Progress struct {
	RunID   string    `json:"run_id,omitempty"`
	Percent int       `json:"percent"`
	Status  string    `json:"status"`
	Running bool      `json:"running"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}
