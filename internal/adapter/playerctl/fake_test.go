package playerctl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"extmedia/internal/emp"
)

type fakeController struct {
	mu      sync.Mutex
	md      Metadata
	mdErr   error
	ctlErr  error
	actions []string
}

func (f *fakeController) Metadata(context.Context) (Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.md, f.mdErr
}

func (f *fakeController) act(action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return f.ctlErr
}

func (f *fakeController) Control(_ context.Context, cmd Command) error {
	return f.act(string(cmd))
}

func (f *fakeController) SetPosition(_ context.Context, pos time.Duration) error {
	return f.act(fmt.Sprintf("position %s", pos))
}

func (f *fakeController) SetShuffle(_ context.Context, on bool) error {
	return f.act(fmt.Sprintf("shuffle %t", on))
}

func (f *fakeController) SetLoop(_ context.Context, mode string) error {
	return f.act("loop " + mode)
}

func (f *fakeController) set(md Metadata, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.md, f.mdErr = md, err
}

type report struct {
	kind     string
	playerID string
	session  emp.SessionProperties
	playback emp.PlaybackProperties
	event    string
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []report
	err     error
}

func (r *fakeReporter) add(rep report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reports = append(r.reports, rep)
	return nil
}

func (r *fakeReporter) ReportSessionProperties(id string, props emp.SessionProperties) error {
	return r.add(report{kind: "session", playerID: id, session: props})
}

func (r *fakeReporter) ReportPlaybackProperties(id string, props emp.PlaybackProperties) error {
	return r.add(report{kind: "playback", playerID: id, playback: props})
}

func (r *fakeReporter) ReportPlayerEvent(id, name string) error {
	return r.add(report{kind: "event", playerID: id, event: name})
}

func (r *fakeReporter) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rep := range r.reports {
		if rep.kind == "event" {
			out = append(out, "event:"+rep.event)
			continue
		}
		out = append(out, rep.kind)
	}
	return out
}
