package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/freestar-tools/g2persist/internal/gateway"
	"github.com/freestar-tools/g2persist/internal/gwconfig"
	"go.uber.org/zap"
)

// dispatcher turns Link and Unlink actions into gateway requests. The
// session keys are only read once something needs dispatching, so a run in
// which every module is busy or already linked does not require them.
type dispatcher struct {
	engine  *Engine
	cfg     gwconfig.Map
	dryRun  bool
	session *gateway.Session
}

// loadSession fills the session from cfg. A zero timeout or retry count on
// the engine means unset; settings validation rejects zero for both.
func (d *dispatcher) loadSession() (gateway.Session, error) {
	if d.session != nil {
		return *d.session, nil
	}
	s := gateway.Session{
		Admin:          d.engine.Admin,
		TimeoutSeconds: d.engine.TimeoutSeconds,
		Retries:        d.engine.Retries,
	}
	if s.TimeoutSeconds == 0 {
		s.TimeoutSeconds = gateway.DefaultTimeoutSeconds
	}
	if s.Retries == 0 {
		s.Retries = gateway.DefaultRetries
	}
	required := []struct {
		key string
		dst *string
	}{
		{KeyExternalIP, &s.IP},
		{KeyLinkPort, &s.Port},
		{KeyLoginCall, &s.Login},
	}
	for _, r := range required {
		v, err := d.cfg.String(r.key)
		if err != nil {
			return gateway.Session{}, err
		}
		*r.dst = v
	}
	d.session = &s
	return s, nil
}

// execute dispatches every Link and Unlink of decision in order. Each phase
// stands alone: a failed Unlink is recorded and the Link is still sent. Only
// a tool that cannot be started, or cancellation of ctx, aborts the run.
func (d *dispatcher) execute(ctx context.Context, decision *Decision) error {
	log := d.engine.logger()
	for _, action := range decision.Actions {
		if action.Kind == Noop || d.dryRun {
			continue
		}

		session, err := d.loadSession()
		if err != nil {
			return err
		}

		var req gateway.Request
		switch action.Kind {
		case Link:
			req = gateway.LinkRequest(session, action.Module, action.Callsign, action.RemoteModule)
		case Unlink:
			req = gateway.UnlinkRequest(session, action.Module)
		default:
			return fmt.Errorf("unexpected action kind %s", action.Kind)
		}

		code, err := d.engine.Adapter.Invoke(ctx, req)
		outcome := Outcome{Action: action, ExitCode: code, Err: err}
		decision.Outcomes = append(decision.Outcomes, outcome)

		fields := []zap.Field{
			zap.String("module", string(action.Module)),
			zap.Stringer("action", action.Kind),
			zap.String("token", req.Token),
			zap.Int("exit_code", code),
		}

		var startErr *gateway.StartError
		switch {
		case err != nil && ctx.Err() != nil:
			log.Info("run cancelled", append(fields, zap.Error(err))...)
			return err
		case errors.As(err, &startErr):
			log.Error("gateway command could not be started", append(fields, zap.Error(err))...)
			return err
		case err != nil:
			log.Warn("gateway command failed", append(fields, zap.Error(err))...)
		case code != 0:
			log.Warn("gateway command exited non-zero", fields...)
		default:
			log.Info("gateway command sent", fields...)
		}
	}
	return nil
}
