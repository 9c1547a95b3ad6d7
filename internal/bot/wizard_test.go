package bot

import (
	"testing"
	"time"
)

func TestWizardStore_StartGetClear(t *testing.T) {
	w := newWizardStore()

	if _, ok := w.get(1); ok {
		t.Fatal("state for unknown user")
	}

	st := w.start(1)
	st.step = stepChat

	got, ok := w.get(1)
	if !ok || got.step != stepChat {
		t.Fatalf("got %+v ok=%v", got, ok)
	}

	w.clear(1)
	if _, ok := w.get(1); ok {
		t.Fatal("state survived clear")
	}
}

func TestWizardStore_ExpiredStateDropped(t *testing.T) {
	w := newWizardStore()
	st := w.start(1)
	st.touched = time.Now().Add(-wizardTTL - time.Minute)

	if _, ok := w.get(1); ok {
		t.Fatal("expired state returned")
	}
}

func TestWizardStore_SweepRemovesOnlyStale(t *testing.T) {
	w := newWizardStore()
	stale := w.start(1)
	stale.touched = time.Now().Add(-wizardTTL - time.Minute)
	w.start(2)

	w.sweep()

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.states[1]; ok {
		t.Fatal("stale state survived sweep")
	}
	if _, ok := w.states[2]; !ok {
		t.Fatal("fresh state removed by sweep")
	}
}

func TestWizardStore_GetRefreshesTTL(t *testing.T) {
	w := newWizardStore()
	st := w.start(1)
	st.touched = time.Now().Add(-wizardTTL + time.Second)

	if _, ok := w.get(1); !ok {
		t.Fatal("near-expiry state already gone")
	}
	got, _ := w.get(1)
	if time.Since(got.touched) > time.Second {
		t.Fatal("get did not refresh the TTL")
	}
}
