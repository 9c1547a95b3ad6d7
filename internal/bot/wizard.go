package bot

import (
	"sync"
	"time"

	"volleybot/internal/domain"
)

// wizard steps for the schedule creation dialog.
type wizardStep int

const (
	stepName wizardStep = iota
	stepChat
	stepTrainingDay
	stepPollDay
	stepTime
	stepConfirm
)

// wizardState is one admin's in-progress schedule draft.
type wizardState struct {
	step    wizardStep
	draft   domain.ScheduleRule
	touched time.Time
}

const wizardTTL = 10 * time.Minute

// wizardStore keeps per-user dialog state. Abandoned dialogs expire so a
// stray /addschedule never wedges the admin's next message handling.
type wizardStore struct {
	mu     sync.Mutex
	states map[int64]*wizardState
}

func newWizardStore() *wizardStore {
	return &wizardStore{states: map[int64]*wizardState{}}
}

func (w *wizardStore) start(userID int64) *wizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := &wizardState{touched: time.Now()}
	w.states[userID] = st
	return st
}

func (w *wizardStore) get(userID int64) (*wizardState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.states[userID]
	if !ok {
		return nil, false
	}
	if time.Since(st.touched) > wizardTTL {
		delete(w.states, userID)
		return nil, false
	}
	st.touched = time.Now()
	return st, true
}

func (w *wizardStore) clear(userID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.states, userID)
}

// sweep drops expired dialogs; run periodically.
func (w *wizardStore) sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, st := range w.states {
		if time.Since(st.touched) > wizardTTL {
			delete(w.states, id)
		}
	}
}
