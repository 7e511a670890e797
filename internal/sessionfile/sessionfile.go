// Package sessionfile keeps a CLI user's EAMS session between invocations.
package sessionfile

import (
	"errors"
	"fmt"
	"os"

	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/cookies"
	"eamsassist-backend/lib/configutil"
)

const DefaultPath = ".eams/session.json5"

type state struct {
	StudentID     string            `json:"student_id"`
	Cookies       map[string]string `json:"cookies"`
	Authenticated bool              `json:"authenticated"`
}

func Save(path string, session eams.Session) error {
	err := configutil.WriteConfig(path, state{
		StudentID:     session.StudentID,
		Cookies:       session.Cookies,
		Authenticated: session.Authenticated,
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", path, err)
	}
	return nil
}

// Load reads a saved session. A missing file means the user never logged in
// and is reported as eams.ErrSessionExpired.
func Load(path string) (eams.Session, error) {
	saved, err := configutil.ReadConfig[state](path)
	if errors.Is(err, os.ErrNotExist) {
		return eams.Session{}, eams.ErrSessionExpired
	}
	if err != nil {
		return eams.Session{}, fmt.Errorf("load session %s: %w", path, err)
	}
	set := cookies.Set{}
	for name, value := range saved.Cookies {
		set[name] = value
	}
	return eams.Session{
		StudentID:     saved.StudentID,
		Cookies:       set,
		Authenticated: saved.Authenticated,
	}, nil
}

// Remove deletes the saved session, a missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
