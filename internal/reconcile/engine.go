package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/freestar-tools/g2persist/internal/activity"
	"github.com/freestar-tools/g2persist/internal/desired"
	"github.com/freestar-tools/g2persist/internal/gateway"
	"github.com/freestar-tools/g2persist/internal/gwconfig"
	"github.com/freestar-tools/g2persist/internal/linkstate"
	"github.com/freestar-tools/g2persist/internal/module"
	"go.uber.org/zap"
)

// g2_link.cfg keys read by a run.
const (
	KeyFlagsDir   = "RF_FLAGS_DIR"
	KeyStatusFile = "STATUS_FILE"
	KeyExternalIP = "TO_G2_EXTERNAL_IP"
	KeyLinkPort   = "MY_G2_LINK_PORT"
	KeyLoginCall  = "LOGIN_CALL"
)

const separator = "------------------------------------------"

// Timers holds the idle time, in minutes, a module must reach before its
// persistent link is restored.
type Timers struct {
	PerModule map[module.ID]float64
	Default   float64
}

// For returns the threshold for id, falling back to Default.
func (t Timers) For(id module.ID) float64 {
	if v, ok := t.PerModule[id]; ok {
		return v
	}
	return t.Default
}

// Engine runs reconciliation passes. All fields except Adapter have usable
// zero values; Adapter is only needed by Run.
type Engine struct {
	Modules        module.Set
	Timers         Timers
	Admin          string
	TimeoutSeconds int
	Retries        int

	Monitor   activity.Monitor
	ReadLinks func(path string) (linkstate.Table, error)
	Adapter   gateway.Adapter

	// Out receives one human-readable line per processed module.
	Out    io.Writer
	Logger *zap.Logger
	Now    func() time.Time
}

// Run performs one reconciliation pass over cfg and dispatches the
// resulting commands. A gateway.StartError stops the run at once; the
// report gathered so far is returned alongside it, as it is when ctx is
// cancelled mid-run. Commands that run but exit non-zero are recorded in the
// report and the run carries on.
func (e *Engine) Run(ctx context.Context, cfg gwconfig.Map) (*Report, error) {
	if e.Adapter == nil {
		return nil, errors.New("reconcile: no gateway adapter configured")
	}
	return e.run(ctx, cfg, false)
}

// Plan works out the same decisions as Run without dispatching anything.
func (e *Engine) Plan(ctx context.Context, cfg gwconfig.Map) (*Report, error) {
	return e.run(ctx, cfg, true)
}

func (e *Engine) run(ctx context.Context, cfg gwconfig.Map, dryRun bool) (*Report, error) {
	log := e.logger()
	modules := e.Modules
	if len(modules) == 0 {
		modules, _ = module.ParseSet(module.DefaultSet)
	}

	targets, err := desired.Resolve(cfg, modules)
	if err != nil {
		return nil, fmt.Errorf("resolving persistent links: %w", err)
	}

	report := &Report{Started: e.now(), DryRun: dryRun}
	e.printf("%s\n", separator)
	if dryRun {
		e.printf("%s (dry run)\n", report.Started.Format(time.DateTime))
	} else {
		e.printf("%s\n", report.Started.Format(time.DateTime))
	}

	d := &dispatcher{engine: e, cfg: cfg, dryRun: dryRun}

	for _, id := range module.Sorted(targets) {
		decision, err := e.decide(cfg, id, targets[id])
		if err != nil {
			return report, err
		}

		log.Debug("module evaluated",
			zap.String("module", string(id)),
			zap.Float64("idle_minutes", decision.IdleMinutes),
			zap.Float64("threshold", decision.Threshold),
			zap.Int("actions", len(decision.Actions)))

		err = d.execute(ctx, &decision)
		report.Decisions = append(report.Decisions, decision)
		if err != nil {
			return report, err
		}
	}

	log.Info("reconciliation finished",
		zap.Int("modules", len(report.Decisions)),
		zap.Int("dispatched", len(report.Dispatched())),
		zap.Int("failed", len(report.Failed())),
		zap.Bool("dry_run", dryRun))
	return report, nil
}

// decide compares one module's current and desired state and prints the
// module's status line.
func (e *Engine) decide(cfg gwconfig.Map, id module.ID, target desired.Link) (Decision, error) {
	decision := Decision{
		Module:    id,
		Desired:   target,
		Threshold: e.Timers.For(id),
	}

	flagsDir, err := cfg.String(KeyFlagsDir)
	if err != nil {
		return decision, err
	}
	decision.IdleMinutes = e.Monitor.MinutesSinceModified(activity.MarkerPath(flagsDir, id))

	if decision.IdleMinutes < decision.Threshold {
		decision.Actions = []Action{{Kind: Noop, Module: id, Reason: ReasonLocalUse}}
		e.printf("Module %s is in local use (idle %s, needs %.0fm), leaving it alone\n",
			id, activity.FormatIdle(decision.IdleMinutes), decision.Threshold)
		return decision, nil
	}

	statusFile, err := cfg.String(KeyStatusFile)
	if err != nil {
		return decision, err
	}
	read := e.ReadLinks
	if read == nil {
		read = linkstate.Read
	}
	links, err := read(statusFile)
	if err != nil {
		return decision, err
	}

	link := Action{Kind: Link, Module: id, Callsign: target.Callsign, RemoteModule: target.RemoteModule}

	current, linked := links.Get(id)
	switch {
	case !linked:
		link.Reason = ReasonEstablish
		decision.Actions = []Action{link}
		e.printf("Module %s is unlinked, establishing persistent link to %s module %s\n",
			id, target.Callsign, target.RemoteModule)
	case current.Remote != target.Callsign:
		decision.Current = &current
		reason := fmt.Sprintf("unlinking from %s and establishing to %s", current.Remote, target.Callsign)
		link.Reason = reason
		decision.Actions = []Action{{Kind: Unlink, Module: id, Reason: reason}, link}
		e.printf("Module %s is linked to %s, unlinking and establishing persistent link to %s module %s\n",
			id, current.Remote, target.Callsign, target.RemoteModule)
	default:
		decision.Current = &current
		decision.Actions = []Action{{Kind: Noop, Module: id, Reason: ReasonAlreadyLinked}}
		e.printf("Module %s already holds its persistent link to %s, nothing to do\n", id, current.Remote)
	}
	return decision, nil
}

func (e *Engine) printf(format string, args ...any) {
	if e.Out == nil {
		return
	}
	fmt.Fprintf(e.Out, format, args...)
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
