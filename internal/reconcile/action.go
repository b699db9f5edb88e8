package reconcile

import (
	"time"

	"github.com/freestar-tools/g2persist/internal/desired"
	"github.com/freestar-tools/g2persist/internal/linkstate"
	"github.com/freestar-tools/g2persist/internal/module"
)

// Kind is the type of an Action.
type Kind int

const (
	Noop Kind = iota
	Link
	Unlink
)

func (k Kind) String() string {
	switch k {
	case Noop:
		return "noop"
	case Link:
		return "link"
	case Unlink:
		return "unlink"
	default:
		return "unknown"
	}
}

// Reasons attached to actions.
const (
	ReasonLocalUse      = "used locally"
	ReasonEstablish     = "establish persistent link"
	ReasonAlreadyLinked = "already established"
)

// Action is one step decided for a module. Callsign and RemoteModule are
// only set for Link.
type Action struct {
	Kind         Kind
	Module       module.ID
	Callsign     string
	RemoteModule string
	Reason       string
}

// Outcome records how a dispatched Link or Unlink went.
type Outcome struct {
	Action   Action
	ExitCode int
	Err      error
}

// Failed reports whether the command did not complete successfully.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.ExitCode != 0
}

// Decision is everything a run worked out for one module.
type Decision struct {
	Module      module.ID
	Desired     desired.Link
	Current     *linkstate.Record // nil when unlinked or not inspected
	IdleMinutes float64
	Threshold   float64
	Actions     []Action
	Outcomes    []Outcome
}

// Report is the result of a run, in processing order.
type Report struct {
	Started   time.Time
	DryRun    bool
	Decisions []Decision
}

// Actions flattens every decided action in order.
func (r *Report) Actions() []Action {
	var out []Action
	for _, d := range r.Decisions {
		out = append(out, d.Actions...)
	}
	return out
}

// Dispatched returns the Link and Unlink actions only.
func (r *Report) Dispatched() []Action {
	var out []Action
	for _, a := range r.Actions() {
		if a.Kind != Noop {
			out = append(out, a)
		}
	}
	return out
}

// Failed returns every dispatched command that did not succeed.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, d := range r.Decisions {
		for _, o := range d.Outcomes {
			if o.Failed() {
				out = append(out, o)
			}
		}
	}
	return out
}
