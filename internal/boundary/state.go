package boundary

import (
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/recalld/internal/safefile"
)

const (
	activeProjectFile = "active_project.json"
	boundaryStateFile = "boundary_state.json"
)

// Store persists the active-project and boundary-state records under
// the data directory. Every read-modify-write runs under an exclusive
// advisory file lock.
type Store struct {
	dataDir     string
	lockTimeout time.Duration
}

// NewStore creates a store over dataDir. A non-positive lockTimeout
// falls back to the default.
func NewStore(dataDir string, lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = safefile.DefaultLockTimeout
	}
	return &Store{dataDir: dataDir, lockTimeout: lockTimeout}
}

func (s *Store) activePath() string {
	return filepath.Join(s.dataDir, activeProjectFile)
}

func (s *Store) statePath() string {
	return filepath.Join(s.dataDir, boundaryStateFile)
}

// ActiveProject returns the persisted active project. A missing or
// unrecoverable file yields the zero value.
func (s *Store) ActiveProject() (ActiveProjectState, error) {
	var st ActiveProjectState
	err := safefile.ReadJSON(s.activePath(), &st)
	return st, err
}

// SetActiveProject overwrites the active-project record.
func (s *Store) SetActiveProject(st ActiveProjectState) error {
	return safefile.WithLock(s.activePath(), s.lockTimeout, func() error {
		return safefile.WriteJSON(s.activePath(), st)
	})
}

// BoundaryState returns the persisted switch-tracking record, with the
// default cooldown filled in when unset.
func (s *Store) BoundaryState() (State, error) {
	var st State
	err := safefile.ReadJSON(s.statePath(), &st)
	if st.CooldownSeconds <= 0 {
		st.CooldownSeconds = int(DefaultCooldown / time.Second)
	}
	return st, err
}

// UpdateBoundaryState applies fn to the current record and persists
// the result, all under the lock.
func (s *Store) UpdateBoundaryState(fn func(*State)) error {
	return safefile.WithLock(s.statePath(), s.lockTimeout, func() error {
		st, err := s.BoundaryState()
		if err != nil {
			return err
		}
		fn(&st)
		return safefile.WriteJSON(s.statePath(), st)
	})
}
