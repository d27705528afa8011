// Package boundary detects file operations that land outside the
// active project and decides whether to switch the active project.
//
// Detection is an ordered rule list: skip-path filtering, the
// inside-boundary check, project-root discovery, a one-shot marker
// auto-create for low-confidence candidates, then a set of veto rules
// (derivative folder, fresh related folder, cooldown, ping-pong,
// manual override). Every allow and veto decision is logged with the
// rule that made it.
package boundary

import (
	"time"
)

// Confidence grades how certain root discovery is about a candidate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Reason records which marker class justified a switch.
type Reason string

const (
	ReasonGitRoot      Reason = "git_root"
	ReasonStrongMarker Reason = "strong_marker"
)

// DetectedFrom records how the active project was selected.
type DetectedFrom string

const (
	// DetectedManual means the user picked the project explicitly.
	DetectedManual DetectedFrom = "manual"

	// DetectedBoundary means a boundary transition selected it.
	DetectedBoundary DetectedFrom = "boundary"

	// DetectedAuto means startup resolution selected it.
	DetectedAuto DetectedFrom = "auto"
)

// Markers checked during root discovery, in priority order. A .git
// directory is high confidence; manifests are medium.
var strongMarkers = []struct {
	name       string
	confidence Confidence
}{
	{".git", ConfidenceHigh},
	{"package.json", ConfidenceMedium},
	{"pyproject.toml", ConfidenceMedium},
	{"requirements.txt", ConfidenceMedium},
	{"go.mod", ConfidenceMedium},
}

// skipPathPrefixes are locations that never host projects.
var skipPathPrefixes = []string{
	"/tmp",
	"/var",
	"/private/tmp",
	"/private/var",
}

// derivativeSuffixes mark build-output folder names derived from a
// project name, e.g. myapp-dist.
var derivativeSuffixes = []string{
	"-build",
	"-dist",
	"-output",
	"-release",
	"-package",
	"_build",
	"_dist",
	"_output",
}

// autoCreateDenylist blocks marker auto-creation in folders whose name
// can never be a real project.
var autoCreateDenylist = map[string]struct{}{
	"tmp":          {},
	"temp":         {},
	"cache":        {},
	"node_modules": {},
	".git":         {},
	"__pycache__":  {},
	"venv":         {},
	"env":          {},
}

// projectLocationNames are the home subdirectories under which marker
// auto-creation is allowed.
var projectLocationNames = []string{"Desktop", "Documents", "Projects"}

const (
	// DefaultCooldown is the minimum gap between switches.
	DefaultCooldown = 5 * time.Second

	// DefaultFreshFolderAge is how recently a folder must have been
	// touched to count as created by the current session.
	DefaultFreshFolderAge = 2 * time.Minute

	// DefaultManualWindow is how long a manual selection suppresses
	// automatic switching.
	DefaultManualWindow = 10 * time.Minute
)

// Event is an approved boundary transition, ready for Apply.
type Event struct {
	OldProjectID  string     `json:"old_project_id"`
	OldWorkingDir string     `json:"old_working_dir"`
	NewProjectID  string     `json:"new_project_id"`
	NewWorkingDir string     `json:"new_working_dir"`
	FilePath      string     `json:"file_path"`
	Reason        Reason     `json:"reason"`
	Confidence    Confidence `json:"confidence"`
	Timestamp     time.Time  `json:"timestamp"`
}

// ActiveProjectState is the persisted record of the active project.
type ActiveProjectState struct {
	ActiveID     string       `json:"active_id"`
	DisplayName  string       `json:"display_name,omitempty"`
	WorkingDir   string       `json:"working_dir"`
	DetectedFrom DetectedFrom `json:"detected_from"`
	DetectedAt   time.Time    `json:"detected_at"`
}

// State is the persisted switch-tracking record.
type State struct {
	LastSwitchTimestamp time.Time `json:"last_switch_timestamp"`
	LastSwitchFrom      string    `json:"last_switch_from"`
	LastSwitchTo        string    `json:"last_switch_to"`
	CooldownSeconds     int       `json:"cooldown_seconds"`
}

// Status is a diagnostic snapshot of detection state.
type Status struct {
	ActiveProjectID  string    `json:"active_project_id"`
	ActiveWorkingDir string    `json:"active_working_dir"`
	DetectedFrom     string    `json:"detected_from"`
	LastSwitch       time.Time `json:"last_switch"`
	LastSwitchFrom   string    `json:"last_switch_from"`
	LastSwitchTo     string    `json:"last_switch_to"`
	CooldownActive   bool      `json:"cooldown_active"`
	CooldownSeconds  int       `json:"cooldown_seconds"`
}
