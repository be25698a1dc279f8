package assist

import (
	"sync"
	"time"
)

// Labels of the trigger control
const (
	IdleLabel = "AI Write"
	BusyLabel = "Generating..."
)

// FallbackNotice is shown when offline text replaced a failed completion.
const FallbackNotice = "AI service unavailable, used offline suggestion"

// maxNotices bounds the transient notice queue.
const maxNotices = 5

// View is the presentation surface the controller drives.
type View interface {
	// Open shows the tone/keywords dialog for target.
	Open(target Target)
	// SetBusy disables or re-enables the trigger control and swaps its label.
	SetBusy(busy bool, label string)
	// Dismiss closes the tone/keywords dialog.
	Dismiss()
	// Notify shows a transient, non-blocking notice.
	Notify(message string)
}

// Notice is one transient message.
type Notice struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ViewSnapshot is the observable state of a ViewState.
type ViewSnapshot struct {
	Busy       bool     `json:"busy"`
	Label      string   `json:"label"`
	DialogOpen bool     `json:"dialog_open"`
	Target     *Target  `json:"target,omitempty"`
	Notices    []Notice `json:"notices"`
}

// ViewState is an in-memory View the HTTP layer exposes to clients.
type ViewState struct {
	mu         sync.Mutex
	busy       bool
	label      string
	dialogOpen bool
	target     *Target
	notices    []Notice
	now        func() time.Time
}

// NewViewState returns an idle view with the dialog closed.
func NewViewState() *ViewState {
	return &ViewState{label: IdleLabel, now: time.Now}
}

// Open implements View.
func (v *ViewState) Open(target Target) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dialogOpen = true
	v.target = &target
}

// SetBusy implements View.
func (v *ViewState) SetBusy(busy bool, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.busy = busy
	v.label = label
}

// Dismiss implements View.
func (v *ViewState) Dismiss() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dialogOpen = false
	v.target = nil
}

// Notify implements View. Only the newest notices are kept.
func (v *ViewState) Notify(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, Notice{Message: message, At: v.now()})
	if len(v.notices) > maxNotices {
		v.notices = v.notices[len(v.notices)-maxNotices:]
	}
}

// Snapshot returns the current view state.
func (v *ViewState) Snapshot() ViewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := ViewSnapshot{
		Busy:       v.busy,
		Label:      v.label,
		DialogOpen: v.dialogOpen,
		Notices:    append([]Notice{}, v.notices...),
	}
	if v.target != nil {
		t := *v.target
		snap.Target = &t
	}
	return snap
}

// DrainNotices returns and clears pending notices.
func (v *ViewState) DrainNotices() []Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.notices
	v.notices = nil
	return out
}

// nopView discards presentation updates.
type nopView struct{}

func (nopView) Open(Target)          {}
func (nopView) SetBusy(bool, string) {}
func (nopView) Dismiss()             {}
func (nopView) Notify(string)        {}
