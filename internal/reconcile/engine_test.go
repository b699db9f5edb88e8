package reconcile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/freestar-tools/g2persist/internal/activity"
	"github.com/freestar-tools/g2persist/internal/desired"
	"github.com/freestar-tools/g2persist/internal/gateway"
	"github.com/freestar-tools/g2persist/internal/gwconfig"
	"github.com/freestar-tools/g2persist/internal/linkstate"
	"github.com/freestar-tools/g2persist/internal/module"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeAdapter records every request and answers with scripted exit codes.
type fakeAdapter struct {
	requests []gateway.Request
	codes    map[gateway.Word]int
	err      error
}

func (f *fakeAdapter) Invoke(_ context.Context, req gateway.Request) (int, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return -1, f.err
	}
	return f.codes[req.Word], nil
}

// testGateway lays out RF_FLAGS_DIR and STATUS_FILE in a temp dir.
type testGateway struct {
	t        *testing.T
	flagsDir string
	status   string
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	dir := t.TempDir()
	g := &testGateway{
		t:        t,
		flagsDir: filepath.Join(dir, "flags"),
		status:   filepath.Join(dir, "RPT_STATUS.txt"),
	}
	if err := os.MkdirAll(g.flagsDir, 0755); err != nil {
		t.Fatal(err)
	}
	g.setStatus("")
	return g
}

func (g *testGateway) setStatus(content string) {
	g.t.Helper()
	if err := os.WriteFile(g.status, []byte(content), 0644); err != nil {
		g.t.Fatal(err)
	}
}

// touch marks a module as used locally age ago.
func (g *testGateway) touch(id module.ID, age time.Duration) {
	g.t.Helper()
	path := activity.MarkerPath(g.flagsDir, id)
	if err := os.WriteFile(path, nil, 0644); err != nil {
		g.t.Fatal(err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		g.t.Fatal(err)
	}
}

func (g *testGateway) config(links map[module.ID]string) gwconfig.Map {
	kv := map[string]string{
		KeyFlagsDir:   g.flagsDir,
		KeyStatusFile: g.status,
		KeyExternalIP: "127.0.0.1",
		KeyLinkPort:   "18997",
		KeyLoginCall:  "W1ABC",
	}
	for id, spec := range links {
		kv[desired.Key(id)] = spec
	}
	return gwconfig.FromValues(kv)
}

func newEngine(adapter gateway.Adapter, out io.Writer) *Engine {
	return &Engine{
		Modules: module.Set{"A", "B", "C"},
		Timers: Timers{
			PerModule: map[module.ID]float64{"A": 15, "B": 20, "C": 10},
			Default:   15,
		},
		Admin:   "N0HAP",
		Adapter: adapter,
		Out:     out,
	}
}

func TestRun_EstablishLink(t *testing.T) {
	g := newTestGateway(t)
	adapter := &fakeAdapter{}
	var out bytes.Buffer

	report, err := newEngine(adapter, &out).Run(context.Background(), g.config(map[module.ID]string{"B": "BXRF721C"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Action{{Kind: Link, Module: "B", Callsign: "XRF721", RemoteModule: "C", Reason: ReasonEstablish}}
	if diff := cmp.Diff(want, report.Actions()); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}

	if len(adapter.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(adapter.requests))
	}
	req := adapter.requests[0]
	wantArgs := []string{"127.0.0.1", "18997", "LINK", "W1ABC", "B", "20", "2", "N0HAP", "XRF721CL"}
	if diff := cmp.Diff(wantArgs, req.Args()); diff != "" {
		t.Errorf("request args mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(out.String(), "Module B is unlinked") {
		t.Errorf("expected status line for module B, got:\n%s", out.String())
	}
}

func TestRun_SwitchLink(t *testing.T) {
	g := newTestGateway(t)
	g.setStatus("B,REF001  ,C,204.45.107.21,020315,11:50:03\n")
	adapter := &fakeAdapter{}

	report, err := newEngine(adapter, nil).Run(context.Background(), g.config(map[module.ID]string{"B": "BXRF721C"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reason := "unlinking from REF001 and establishing to XRF721"
	want := []Action{
		{Kind: Unlink, Module: "B", Reason: reason},
		{Kind: Link, Module: "B", Callsign: "XRF721", RemoteModule: "C", Reason: reason},
	}
	if diff := cmp.Diff(want, report.Actions()); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}

	gotTokens := []string{}
	for _, r := range adapter.requests {
		gotTokens = append(gotTokens, string(r.Word)+":"+r.Token)
	}
	wantTokens := []string{"UNLINK:       U", "LINK:XRF721CL"}
	if diff := cmp.Diff(wantTokens, gotTokens); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}

	if report.Decisions[0].Current == nil || report.Decisions[0].Current.Remote != "REF001" {
		t.Errorf("expected current link REF001 in decision, got %+v", report.Decisions[0].Current)
	}
}

func TestRun_LocalActivitySkipsEverything(t *testing.T) {
	g := newTestGateway(t)
	g.setStatus("B,REF001,C,204.45.107.21,020315,11:50:03\n")
	g.touch("B", time.Minute)
	adapter := &fakeAdapter{}

	reads := 0
	e := newEngine(adapter, nil)
	e.ReadLinks = func(path string) (linkstate.Table, error) {
		reads++
		return linkstate.Read(path)
	}

	report, err := e.Run(context.Background(), g.config(map[module.ID]string{"B": "BXRF721C"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := len(report.Dispatched()); n != 0 {
		t.Errorf("expected no link/unlink actions, got %d", n)
	}
	if len(adapter.requests) != 0 {
		t.Errorf("expected no gateway requests, got %d", len(adapter.requests))
	}
	if reads != 0 {
		t.Errorf("status file must not be read for a module in local use, read %d times", reads)
	}
	want := []Action{{Kind: Noop, Module: "B", Reason: ReasonLocalUse}}
	if diff := cmp.Diff(want, report.Actions()); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ThresholdIsPerModule(t *testing.T) {
	g := newTestGateway(t)
	// 12 minutes idle: past C's 10 minute timer, short of A's 15.
	g.touch("A", 12*time.Minute)
	g.touch("C", 12*time.Minute)
	adapter := &fakeAdapter{}

	report, err := newEngine(adapter, nil).Run(context.Background(), g.config(map[module.ID]string{
		"A": "AREF001C",
		"C": "CXRF721B",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dispatched := report.Dispatched()
	if len(dispatched) != 1 || dispatched[0].Module != "C" {
		t.Errorf("expected only module C to be linked, got %+v", dispatched)
	}
}

func TestRun_Idempotent(t *testing.T) {
	g := newTestGateway(t)
	g.setStatus("A,N0HAP,C,10.0.0.1,020315,11:50:03\nB,XRF721,C,10.0.0.2,020315,11:50:03\n")
	cfg := g.config(map[module.ID]string{"A": "AN0HAPC", "B": "BXRF721C"})
	adapter := &fakeAdapter{}
	e := newEngine(adapter, nil)

	for i := 0; i < 2; i++ {
		report, err := e.Run(context.Background(), cfg)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		if n := len(report.Dispatched()); n != 0 {
			t.Errorf("run %d: expected no actions, got %d", i, n)
		}
		for _, a := range report.Actions() {
			if a.Reason != ReasonAlreadyLinked {
				t.Errorf("run %d: unexpected reason %q", i, a.Reason)
			}
		}
	}
	if len(adapter.requests) != 0 {
		t.Errorf("expected no gateway requests, got %d", len(adapter.requests))
	}
}

func TestRun_FailedUnlinkStillLinks(t *testing.T) {
	g := newTestGateway(t)
	g.setStatus("A,REF001,C,,,\n")
	adapter := &fakeAdapter{codes: map[gateway.Word]int{gateway.WordUnlink: 1}}

	report, err := newEngine(adapter, nil).Run(context.Background(), g.config(map[module.ID]string{"A": "AXRF721C"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(adapter.requests) != 2 {
		t.Fatalf("expected unlink and link to both be sent, got %d requests", len(adapter.requests))
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Action.Kind != Unlink || failed[0].ExitCode != 1 {
		t.Errorf("expected one failed unlink, got %+v", failed)
	}
}

func TestRun_StartFailureIsFatal(t *testing.T) {
	g := newTestGateway(t)
	startErr := &gateway.StartError{Path: "/missing/g2link_test", Err: os.ErrNotExist}
	adapter := &fakeAdapter{err: startErr}

	report, err := newEngine(adapter, nil).Run(context.Background(), g.config(map[module.ID]string{
		"A": "AREF001C",
		"B": "BXRF721C",
	}))

	var got *gateway.StartError
	if !errors.As(err, &got) {
		t.Fatalf("expected *gateway.StartError, got %v", err)
	}
	if len(adapter.requests) != 1 {
		t.Errorf("expected the run to stop after the first request, got %d", len(adapter.requests))
	}
	if report == nil || len(report.Decisions) != 1 {
		t.Fatalf("expected a partial report with one decision, got %+v", report)
	}
}

// cancelAdapter cancels the run on its first request, the way a signal
// arriving while g2link_test runs does.
type cancelAdapter struct {
	cancel   context.CancelFunc
	requests int
}

func (c *cancelAdapter) Invoke(ctx context.Context, _ gateway.Request) (int, error) {
	c.requests++
	c.cancel()
	return -1, ctx.Err()
}

func TestRun_CancelledStopsRun(t *testing.T) {
	g := newTestGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	adapter := &cancelAdapter{cancel: cancel}

	report, err := newEngine(adapter, nil).Run(ctx, g.config(map[module.ID]string{
		"A": "AREF001C",
		"B": "BXRF721C",
	}))

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var startErr *gateway.StartError
	if errors.As(err, &startErr) {
		t.Errorf("cancellation reported as a start failure: %v", err)
	}
	if adapter.requests != 1 {
		t.Errorf("expected the run to stop after the first request, got %d", adapter.requests)
	}
	if report == nil || len(report.Decisions) != 1 {
		t.Fatalf("expected a partial report with one decision, got %+v", report)
	}
}

func TestRun_MalformedStartupLink(t *testing.T) {
	g := newTestGateway(t)
	adapter := &fakeAdapter{}

	_, err := newEngine(adapter, nil).Run(context.Background(), g.config(map[module.ID]string{"A": "A"}))
	if !errors.Is(err, desired.ErrMalformedLink) {
		t.Fatalf("expected ErrMalformedLink, got %v", err)
	}
	if len(adapter.requests) != 0 {
		t.Errorf("expected no requests, got %d", len(adapter.requests))
	}
}

func TestRun_MissingStatusFile(t *testing.T) {
	g := newTestGateway(t)
	if err := os.Remove(g.status); err != nil {
		t.Fatal(err)
	}

	_, err := newEngine(&fakeAdapter{}, nil).Run(context.Background(), g.config(map[module.ID]string{"A": "AREF001C"}))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected status read error to propagate, got %v", err)
	}
}

func TestRun_MissingSessionKey(t *testing.T) {
	g := newTestGateway(t)
	cfg := gwconfig.FromValues(map[string]string{
		KeyFlagsDir:      g.flagsDir,
		KeyStatusFile:    g.status,
		desired.Key("A"): "AREF001C",
	})

	_, err := newEngine(&fakeAdapter{}, nil).Run(context.Background(), cfg)
	if !errors.Is(err, gwconfig.ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestRun_NoAdapter(t *testing.T) {
	e := newEngine(nil, nil)
	e.Adapter = nil
	if _, err := e.Run(context.Background(), gwconfig.Map{}); err == nil {
		t.Fatal("expected error without an adapter")
	}
}

func TestPlan_DoesNotDispatch(t *testing.T) {
	g := newTestGateway(t)
	g.setStatus("A,REF001,C,,,\n")
	adapter := &fakeAdapter{}
	var out bytes.Buffer
	e := newEngine(adapter, &out)

	report, err := e.Plan(context.Background(), g.config(map[module.ID]string{"A": "AXRF721C"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.DryRun {
		t.Error("expected report to be marked as dry run")
	}
	if n := len(report.Dispatched()); n != 2 {
		t.Errorf("expected 2 planned actions, got %d", n)
	}
	if len(adapter.requests) != 0 {
		t.Errorf("plan must not dispatch, got %d requests", len(adapter.requests))
	}
	if !strings.Contains(out.String(), "(dry run)") {
		t.Errorf("expected dry run header, got:\n%s", out.String())
	}
}

func TestRun_LogsDispatch(t *testing.T) {
	g := newTestGateway(t)
	core, logs := observer.New(zapcore.DebugLevel)
	e := newEngine(&fakeAdapter{}, nil)
	e.Logger = zap.New(core)

	if _, err := e.Run(context.Background(), g.config(map[module.ID]string{"C": "CXRF721B"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := logs.FilterMessage("gateway command sent").All()
	if len(sent) != 1 {
		t.Fatalf("expected one dispatch log entry, got %d", len(sent))
	}
	if got := sent[0].ContextMap()["token"]; got != "XRF721BL" {
		t.Errorf("expected token field XRF721BL, got %v", got)
	}
}

func TestTimersFor(t *testing.T) {
	timers := Timers{PerModule: map[module.ID]float64{"A": 15}, Default: 7}
	if got := timers.For("A"); got != 15 {
		t.Errorf("For(A) = %v, want 15", got)
	}
	if got := timers.For("Z"); got != 7 {
		t.Errorf("For(Z) = %v, want 7", got)
	}
}
