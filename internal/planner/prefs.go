package planner

import (
	"fmt"

	appLog "taskcal/internal/log"
	"taskcal/internal/storage"
)

func (a *App) Preferences() storage.Preferences {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prefs
}

func (a *App) SetPreferences(p storage.Preferences) storage.Preferences {
	a.mu.Lock()
	defer a.mu.Unlock()
	p.Mode = storage.ParseMode(string(p.Mode))
	a.prefs = p
	a.persist()
	return a.prefs
}

// CycleMode advances the theme light -> dark -> gray -> light.
func (a *App) CycleMode() storage.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prefs.Mode = a.prefs.Mode.Next()
	a.persist()
	return a.prefs.Mode
}

// Export renders the backup document.
func (a *App) Export() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return storage.EncodeDocument(a.state())
}

// Import replaces tasks, holidays, categories and preferences with the
// contents of a backup document. Nothing changes unless confirm is set;
// a malformed document is rejected before confirmation is considered.
func (a *App) Import(data []byte, confirm bool) error {
	st, err := storage.ParseDocument(data, a.opts.DefaultCategories)
	if err != nil {
		return err
	}
	if !confirm {
		return ErrImportNotConfirmed
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.replace(st)
	a.persist()
	appLog.Info("backup imported", "definitions", a.store.Len(), "holidays", len(a.holidays))
	return nil
}

// ExportFilename is the suggested download name for a backup taken today.
func (a *App) ExportFilename() string {
	return fmt.Sprintf("calendar_backup_%s.json", a.Today())
}
