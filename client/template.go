package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aryeetea/SyncSpaceScheduling/models"
)

// TemplateStore persists the most recent non-empty week per member id as a
// JSON file, so "copy from last week" survives restarts. It lives outside
// the group store on purpose: the template is a local convenience, not
// shared state, and does not sync across machines.
//
// A nil *TemplateStore is valid and does nothing.
type TemplateStore struct {
	dir string
}

// NewTemplateStore stores templates under dir, creating it on demand.
func NewTemplateStore(dir string) *TemplateStore {
	return &TemplateStore{dir: dir}
}

// DefaultTemplateStore places templates under the user config directory.
func DefaultTemplateStore() (*TemplateStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	return NewTemplateStore(filepath.Join(base, "syncspace")), nil
}

func (t *TemplateStore) path(memberID string) string {
	return filepath.Join(t.dir, "lastweek-"+memberID+".json")
}

// Load returns the retained week for memberID, or (nil, nil) when none
// has been saved yet.
func (t *TemplateStore) Load(memberID string) ([]models.DayAvailability, error) {
	if t == nil {
		return nil, nil
	}
	raw, err := os.ReadFile(t.path(memberID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var week []models.DayAvailability
	if err := json.Unmarshal(raw, &week); err != nil {
		return nil, fmt.Errorf("decoding template: %w", err)
	}
	return week, nil
}

// Save overwrites the retained week for memberID.
func (t *TemplateStore) Save(memberID string, week []models.DayAvailability) error {
	if t == nil {
		return nil
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(week)
	if err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}
	return os.WriteFile(t.path(memberID), raw, 0o644)
}
