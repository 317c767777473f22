package site

import (
	"context"
	"testing"
)

type fakeSession struct {
	username string
	admin    bool
	users    []WhoEntry
	up, down int64
}

func (f *fakeSession) Username() string       { return f.username }
func (f *fakeSession) IsAdmin() bool          { return f.admin }
func (f *fakeSession) PrimaryGroup() string   { return "users" }
func (f *fakeSession) CurrentSection() string { return "/" }
func (f *fakeSession) ActiveUsers() []WhoEntry {
	return f.users
}
func (f *fakeSession) UploadedBytes() int64   { return f.up }
func (f *fakeSession) DownloadedBytes() int64 { return f.down }
func (f *fakeSession) Ratio() float64 {
	if f.down == 0 {
		return 0
	}
	return float64(f.up) / float64(f.down)
}

func TestDispatchVers(t *testing.T) {
	r := DefaultRegistry()
	res := r.Dispatch(context.Background(), &fakeSession{}, "VERS")
	if res.Code != 200 {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestDispatchUnknownVerb(t *testing.T) {
	r := DefaultRegistry()
	res := r.Dispatch(context.Background(), &fakeSession{}, "BOGUS")
	if res.Code != 500 {
		t.Fatalf("expected 500, got %d", res.Code)
	}
}

func TestDispatchAdminOnlyDenied(t *testing.T) {
	r := NewRegistry()
	r.Register(Command{Verb: "NUKE", AdminOnly: true, Handler: func(context.Context, Session, string) Result {
		return Result{Code: 200}
	}})
	res := r.Dispatch(context.Background(), &fakeSession{admin: false}, "NUKE reason")
	if res.Code != 550 {
		t.Fatalf("expected 550 for non-admin, got %d", res.Code)
	}
}

func TestDispatchWhoListsUsers(t *testing.T) {
	r := DefaultRegistry()
	sess := &fakeSession{users: []WhoEntry{{Username: "bob", Section: "/warez", Idle: "1m"}}}
	res := r.Dispatch(context.Background(), sess, "WHO")
	if res.Code != 200 || len(res.Lines) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDispatchRatio(t *testing.T) {
	r := DefaultRegistry()
	sess := &fakeSession{up: 200, down: 100}
	res := r.Dispatch(context.Background(), sess, "RATIO")
	if res.Code != 200 {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}
