package emp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	mu       sync.Mutex
	calls    []string
	requests []RequestType
	err      error
}

func (f *fakeAdapter) record(call string, req RequestType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if req != RequestNone {
		f.requests = append(f.requests, req)
	}
	return f.err
}

func (f *fakeAdapter) Login(context.Context, LoginRequest) error { return f.record("login", RequestLogin) }
func (f *fakeAdapter) Logout(context.Context) error             { return f.record("logout", RequestLogout) }
func (f *fakeAdapter) Play(context.Context, PlayRequest) error  { return f.record("play", RequestPlay) }

func (f *fakeAdapter) PlayControl(_ context.Context, req RequestType) error {
	return f.record("control", req)
}

func (f *fakeAdapter) Seek(context.Context, time.Duration) error {
	return f.record("seek", RequestSeek)
}

func (f *fakeAdapter) AdjustSeek(context.Context, time.Duration) error {
	return f.record("adjust", RequestAdjustSeek)
}

func (f *fakeAdapter) Requests() []RequestType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RequestType(nil), f.requests...)
}

func (f *fakeAdapter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeFocusManager struct {
	mu       sync.Mutex
	acquired int
	released int
	err      error
}

func (f *fakeFocusManager) AcquireChannel(string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired++
	return f.err
}

func (f *fakeFocusManager) ReleaseChannel(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	return nil
}

type exception struct {
	unparsed string
	errType  ExceptionErrorType
	message  string
}

type recorder struct {
	mu         sync.Mutex
	events     []Event
	exceptions []exception
	states     map[NamespaceAndName]string
	tokens     []StateToken
}

func newRecorder() *recorder {
	return &recorder{states: make(map[NamespaceAndName]string)}
}

func (r *recorder) SendEvent(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) SendExceptionEncountered(unparsed string, errType ExceptionErrorType, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptions = append(r.exceptions, exception{unparsed, errType, msg})
	return nil
}

func (r *recorder) SetState(name NamespaceAndName, state string, token StateToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[name] = state
	r.tokens = append(r.tokens, token)
	return nil
}

func (r *recorder) Events(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) Exceptions() []exception {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]exception(nil), r.exceptions...)
}

func (r *recorder) Tokens() []StateToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StateToken(nil), r.tokens...)
}

type result struct {
	done chan string
}

func newResult() *result { return &result{done: make(chan string, 2)} }

func (r *result) SetCompleted()         { r.done <- "" }
func (r *result) SetFailed(msg string) { r.done <- msg }

func (r *result) wait(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-r.done:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("directive did not complete")
		return ""
	}
}

type harness struct {
	agent *Agent
	rec   *recorder
	fm    *fakeFocusManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rec := newRecorder()
	fm := &fakeFocusManager{}
	a := New(Config{
		AgentID:         "agent-1",
		MessageSender:   rec,
		ExceptionSender: rec,
		ContextManager:  rec,
		FocusManager:    fm,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return &harness{agent: a, rec: rec, fm: fm}
}

// flush waits until every task queued so far has run.
func flush(t *testing.T, a *Agent) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.exec.call(ctx, func() {}))
}

func directive(namespace, name string, payload any) *Directive {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return &Directive{Namespace: namespace, Name: name, MessageID: uuid.NewString(), Payload: b}
}

func (h *harness) register(t *testing.T, id string) *fakeAdapter {
	t.Helper()
	f := &fakeAdapter{}
	require.NoError(t, h.agent.RegisterAdapter(id, f))
	return f
}

type fakeStore struct {
	mu         sync.Mutex
	discovered map[string]DiscoveredPlayer
	auths      map[string]Authorization
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		discovered: make(map[string]DiscoveredPlayer),
		auths:      make(map[string]Authorization),
	}
}

func (s *fakeStore) SaveDiscovered(_ context.Context, players []DiscoveredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range players {
		s.discovered[p.LocalPlayerID] = p
	}
	return nil
}

func (s *fakeStore) SaveAuthorization(_ context.Context, auth Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auths[auth.LocalPlayerID] = auth
	return nil
}

func (s *fakeStore) RemovePlayer(_ context.Context, localPlayerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.discovered, localPlayerID)
	delete(s.auths, localPlayerID)
	return nil
}

func (s *fakeStore) Discovered() []DiscoveredPlayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DiscoveredPlayer
	for _, p := range s.discovered {
		out = append(out, p)
	}
	return out
}

func (s *fakeStore) Authorizations() []Authorization {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Authorization
	for _, a := range s.auths {
		out = append(out, a)
	}
	return out
}
