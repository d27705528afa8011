package boundary

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/project"
)

// ProjectResolver maps a directory to its stable project id.
type ProjectResolver interface {
	ResolveID(path string) (string, error)
}

// MemoryProvisioner makes sure a project's memory exists before a
// switch lands on it.
type MemoryProvisioner interface {
	EnsureProject(projectID, workingDir string) error
}

// Config configures the monitor.
type Config struct {
	// DataDir holds active_project.json and boundary_state.json.
	DataDir string

	// Home overrides the user home directory, used by skip-path and
	// auto-create location checks.
	Home string

	// Cooldown is the minimum gap between switches (default: 5s).
	Cooldown time.Duration

	// FreshFolderAge marks folders touched this recently as
	// session-created (default: 2m).
	FreshFolderAge time.Duration

	// ManualWindow is how long a manual selection suppresses automatic
	// switching (default: 10m).
	ManualWindow time.Duration

	// LockTimeout bounds state-file lock acquisition.
	LockTimeout time.Duration

	// SkipPaths are path prefixes that never trigger a switch. Nil
	// selects the built-in system locations.
	SkipPaths []string

	// AutoCreateMarkers enables writing a minimal manifest into
	// markerless folders under the well-known project locations.
	AutoCreateMarkers bool
}

// DefaultConfig returns the standard monitor configuration.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:           dataDir,
		Cooldown:          DefaultCooldown,
		FreshFolderAge:    DefaultFreshFolderAge,
		ManualWindow:      DefaultManualWindow,
		AutoCreateMarkers: true,
	}
}

// Monitor evaluates file-operation paths against the active project
// boundary and executes approved transitions.
type Monitor struct {
	cfg      Config
	store    *Store
	resolver ProjectResolver
	memory   MemoryProvisioner
	logger   *zap.Logger

	now func() time.Time
}

// NewMonitor creates a monitor. memory may be nil; logger may be nil.
func NewMonitor(cfg Config, resolver ProjectResolver, memory MemoryProvisioner, logger *zap.Logger) (*Monitor, error) {
	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.Home = home
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.FreshFolderAge <= 0 {
		cfg.FreshFolderAge = DefaultFreshFolderAge
	}
	if cfg.ManualWindow <= 0 {
		cfg.ManualWindow = DefaultManualWindow
	}
	if cfg.SkipPaths == nil {
		cfg.SkipPaths = skipPathPrefixes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:      cfg,
		store:    NewStore(cfg.DataDir, cfg.LockTimeout),
		resolver: resolver,
		memory:   memory,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Store exposes the monitor's state store.
func (m *Monitor) Store() *Store {
	return m.store
}

// Detect evaluates a file path against the active boundary. It returns
// an Event when a switch is approved and nil when any rule declines or
// vetoes it. Detection never errors on rule outcomes; only state-read
// failures surface.
func (m *Monitor) Detect(filePath string) (*Event, error) {
	if filePath == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	log := m.logger.With(zap.String("file_path", abs))

	if isSkipPath(abs, m.cfg.Home, m.cfg.SkipPaths) {
		log.Debug("boundary check declined", zap.String("rule", "skip_path"))
		return nil, nil
	}

	active, err := m.store.ActiveProject()
	if err != nil {
		return nil, err
	}
	if active.WorkingDir == "" {
		log.Debug("boundary check declined", zap.String("rule", "no_active_project"))
		return nil, nil
	}

	if project.Within(abs, active.WorkingDir) {
		log.Debug("boundary check declined", zap.String("rule", "inside_boundary"))
		return nil, nil
	}

	cand := findProjectRoot(abs, m.cfg.Home)
	log.Info("boundary violation detected",
		zap.String("active_working_dir", active.WorkingDir),
		zap.String("candidate_root", cand.root),
		zap.String("marker", cand.marker),
		zap.String("confidence", string(cand.confidence)))

	if cand.confidence == ConfidenceLow {
		cand = m.tryAutoCreate(abs, log)
	}
	if cand.confidence == ConfidenceLow {
		log.Info("switch vetoed", zap.String("rule", "low_confidence"))
		return nil, nil
	}

	if sameDir(cand.root, active.WorkingDir) {
		log.Debug("boundary check declined", zap.String("rule", "same_root"))
		return nil, nil
	}

	if isDerivativeFolder(cand.root, active.WorkingDir) {
		log.Info("switch vetoed", zap.String("rule", "derivative_folder"),
			zap.String("candidate_root", cand.root))
		return nil, nil
	}

	now := m.now()
	if isFreshRelatedFolder(cand.root, active.WorkingDir, m.cfg.FreshFolderAge, now) {
		log.Info("switch vetoed", zap.String("rule", "fresh_related_folder"),
			zap.String("candidate_root", cand.root))
		return nil, nil
	}

	state, err := m.store.BoundaryState()
	if err != nil {
		return nil, err
	}
	if m.cooldownActive(state, now) {
		log.Info("switch vetoed", zap.String("rule", "cooldown"),
			zap.Time("last_switch", state.LastSwitchTimestamp))
		return nil, nil
	}

	if active.DetectedFrom == DetectedManual && !active.DetectedAt.IsZero() &&
		now.Sub(active.DetectedAt) < m.cfg.ManualWindow {
		log.Info("switch vetoed", zap.String("rule", "manual_override"),
			zap.Time("selected_at", active.DetectedAt))
		return nil, nil
	}

	newID, err := m.resolver.ResolveID(cand.root)
	if err != nil {
		log.Warn("candidate resolution failed", zap.Error(err))
		return nil, nil
	}

	if state.LastSwitchFrom != "" && state.LastSwitchFrom == newID {
		log.Info("switch vetoed", zap.String("rule", "no_switch_back"),
			zap.String("candidate_id", newID))
		return nil, nil
	}

	reason := ReasonStrongMarker
	if cand.marker == ".git" {
		reason = ReasonGitRoot
	}
	event := &Event{
		OldProjectID:  active.ActiveID,
		OldWorkingDir: active.WorkingDir,
		NewProjectID:  newID,
		NewWorkingDir: cand.root,
		FilePath:      abs,
		Reason:        reason,
		Confidence:    cand.confidence,
		Timestamp:     now,
	}
	log.Info("switch approved",
		zap.String("rule", "switch_allowed"),
		zap.String("new_project_id", newID),
		zap.String("new_working_dir", cand.root),
		zap.String("reason", string(reason)))
	return event, nil
}

// tryAutoCreate attempts the one-shot manifest auto-creation for a
// markerless candidate and re-runs root discovery.
func (m *Monitor) tryAutoCreate(abs string, log *zap.Logger) rootCandidate {
	none := rootCandidate{confidence: ConfidenceLow}
	if !m.cfg.AutoCreateMarkers {
		return none
	}
	potential := potentialProjectRoot(abs, m.cfg.Home)
	if potential == "" || !isValidAutoCreateFolder(potential, m.cfg.Home) {
		return none
	}

	markerPath, err := autoCreateMarker(potential, m.now())
	if err != nil {
		log.Warn("marker auto-create failed",
			zap.String("folder", potential), zap.Error(err))
		return none
	}
	log.Info("marker auto-created", zap.String("marker", markerPath))
	return findProjectRoot(abs, m.cfg.Home)
}

// Apply executes an approved transition: ensures the target memory
// exists, overwrites the active-project record, and updates the
// switch-tracking state. Returns the new project id.
func (m *Monitor) Apply(event *Event) (string, error) {
	if m.memory != nil {
		if err := m.memory.EnsureProject(event.NewProjectID, event.NewWorkingDir); err != nil {
			return "", err
		}
	}

	if err := m.store.SetActiveProject(ActiveProjectState{
		ActiveID:     event.NewProjectID,
		DisplayName:  filepath.Base(event.NewWorkingDir),
		WorkingDir:   event.NewWorkingDir,
		DetectedFrom: DetectedBoundary,
		DetectedAt:   event.Timestamp,
	}); err != nil {
		return "", err
	}

	if err := m.store.UpdateBoundaryState(func(st *State) {
		st.LastSwitchTimestamp = event.Timestamp
		st.LastSwitchFrom = event.OldProjectID
		st.LastSwitchTo = event.NewProjectID
		st.CooldownSeconds = int(m.cfg.Cooldown / time.Second)
	}); err != nil {
		return "", err
	}

	m.logger.Info("boundary transition applied",
		zap.String("old_project_id", event.OldProjectID),
		zap.String("new_project_id", event.NewProjectID),
		zap.String("reason", string(event.Reason)))
	return event.NewProjectID, nil
}

// SelectProject records a manual project selection, which suppresses
// automatic switching for the manual window.
func (m *Monitor) SelectProject(projectID, workingDir string) error {
	if m.memory != nil {
		if err := m.memory.EnsureProject(projectID, workingDir); err != nil {
			return err
		}
	}
	err := m.store.SetActiveProject(ActiveProjectState{
		ActiveID:     projectID,
		DisplayName:  filepath.Base(workingDir),
		WorkingDir:   workingDir,
		DetectedFrom: DetectedManual,
		DetectedAt:   m.now(),
	})
	if err == nil {
		m.logger.Info("project selected manually",
			zap.String("project_id", projectID),
			zap.String("working_dir", workingDir))
	}
	return err
}

// Status returns a diagnostic snapshot.
func (m *Monitor) Status() (Status, error) {
	active, err := m.store.ActiveProject()
	if err != nil {
		return Status{}, err
	}
	state, err := m.store.BoundaryState()
	if err != nil {
		return Status{}, err
	}
	return Status{
		ActiveProjectID:  active.ActiveID,
		ActiveWorkingDir: active.WorkingDir,
		DetectedFrom:     string(active.DetectedFrom),
		LastSwitch:       state.LastSwitchTimestamp,
		LastSwitchFrom:   state.LastSwitchFrom,
		LastSwitchTo:     state.LastSwitchTo,
		CooldownActive:   m.cooldownActive(state, m.now()),
		CooldownSeconds:  state.CooldownSeconds,
	}, nil
}

func (m *Monitor) cooldownActive(state State, now time.Time) bool {
	if state.LastSwitchTimestamp.IsZero() {
		return false
	}
	cooldown := m.cfg.Cooldown
	if state.CooldownSeconds > 0 {
		cooldown = time.Duration(state.CooldownSeconds) * time.Second
	}
	return now.Before(state.LastSwitchTimestamp.Add(cooldown))
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
