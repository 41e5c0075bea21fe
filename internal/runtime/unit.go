package runtime

import (
	"time"

	"github.com/aretw0/playground/pkg/domain"
)

// Unit is the execution state machine of one node.
//
//	idle --inputs complete, fingerprint changed--> pending
//	pending --current token succeeds--> success
//	pending --current token fails--> error
//	any --inputs incomplete--> idle
//
// Units are owned by the Engine and guarded by its mutex.
type Unit struct {
	nodeID string
	kind   string

	status domain.RunStatus
	value  any
	err    string

	missing []string

	// token identifies the latest dispatch. Settlements carrying an older token are dropped.
	// Tokens come from a sequence shared by every unit of the engine, so a recreated
	// unit never reuses the token of a run started by its predecessor.
	token uint64
	seq   *uint64
	// fingerprint of the latest dispatch; "" when nothing was dispatched.
	fingerprint string

	runs      uint64
	updatedAt time.Time
}

func newUnit(n domain.Node, seq *uint64) *Unit {
	return &Unit{nodeID: n.ID, kind: n.Kind, status: domain.StatusIdle, seq: seq}
}

func (u *Unit) nextToken() uint64 {
	*u.seq++
	u.token = *u.seq
	return u.token
}

// gate parks the unit while a required slot is unresolved.
// Any in-flight run is invalidated so that reconnecting dispatches again.
func (u *Unit) gate(missing []string, now time.Time) {
	if u.status != domain.StatusIdle || u.fingerprint != "" {
		u.nextToken()
		u.updatedAt = now
	}
	u.status = domain.StatusIdle
	u.fingerprint = ""
	u.value = nil
	u.err = ""
	u.missing = missing
}

// dispatch moves the unit to pending and returns the token of the new run.
func (u *Unit) dispatch(fp string, now time.Time) uint64 {
	token := u.nextToken()
	u.fingerprint = fp
	u.status = domain.StatusPending
	u.missing = nil
	u.runs++
	u.updatedAt = now
	return token
}

// fail records an error outcome without dispatching.
func (u *Unit) fail(fp string, err error, now time.Time) {
	u.nextToken()
	u.fingerprint = fp
	u.status = domain.StatusError
	u.value = nil
	u.err = err.Error()
	u.missing = nil
	u.updatedAt = now
}

// settle applies the outcome of run token. It reports false if the run was superseded.
func (u *Unit) settle(token uint64, value any, err error, now time.Time) bool {
	if token != u.token || u.status != domain.StatusPending {
		return false
	}
	if err != nil {
		u.status = domain.StatusError
		u.value = nil
		u.err = err.Error()
	} else {
		u.status = domain.StatusSuccess
		u.value = value
		u.err = ""
	}
	u.updatedAt = now
	return true
}

// Result returns a copy of the unit's observable state.
func (u *Unit) Result() domain.Result {
	return domain.Result{
		NodeID:    u.nodeID,
		Status:    u.status,
		Value:     domain.CloneValue(u.value),
		Error:     u.err,
		Missing:   append([]string(nil), u.missing...),
		Runs:      u.runs,
		UpdatedAt: u.updatedAt,
	}
}
