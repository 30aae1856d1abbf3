package client

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Prefs is process-wide client configuration with a persisted toggle for
// interaction feedback (the terminal bell on cell edits). Loaded
// explicitly on first use, never an implicit singleton.
type Prefs struct {
	path  string
	Muted bool `json:"muted"`
}

// LoadPrefs reads the preference file under dir, defaulting to unmuted
// when no file exists yet.
func LoadPrefs(dir string) (*Prefs, error) {
	p := &Prefs{path: filepath.Join(dir, "prefs.json")}
	raw, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ToggleMute flips the mute state and persists it. Returns the new state.
func (p *Prefs) ToggleMute() (bool, error) {
	p.Muted = !p.Muted
	return p.Muted, p.save()
}

func (p *Prefs) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, raw, 0o644)
}
