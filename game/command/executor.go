package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
	"github.com/wricardo/mcp-training/autoreplace/game/replace"
)

var (
	ErrUnknownRequest     = errors.New("unknown request kind")
	ErrIncompatible       = errors.New("engines are not compatible")
	ErrNotBuildable       = errors.New("replacement engine is not buildable")
	ErrChainedReplacement = errors.New("replacement engine is itself being replaced")
	ErrCategoryMismatch   = errors.New("engine does not belong to the request category")
	ErrInvalidCount       = errors.New("vehicle count must be positive")
)

// MaxHistory bounds the number of history entries an executor keeps
const MaxHistory = 256

// World is the mutable game state commands are applied to
type World interface {
	Engine(id catalog.EngineID) (*catalog.EngineModel, bool)
	IsBuildable(id catalog.EngineID, cat catalog.Category, owner catalog.OwnerID) bool
	OwnedCount(owner catalog.OwnerID, group catalog.GroupID, engine catalog.EngineID) int
	ExistingReplacement(owner catalog.OwnerID, engine catalog.EngineID, group catalog.GroupID) catalog.EngineID

	SetReplacement(owner catalog.OwnerID, group catalog.GroupID, from, to catalog.EngineID) error
	ClearReplacement(owner catalog.OwnerID, group catalog.GroupID, from catalog.EngineID) error
	SetKeepLength(owner catalog.OwnerID, keep bool)
	AddVehicles(owner catalog.OwnerID, group catalog.GroupID, engine catalog.EngineID, delta int) (int, error)
	SetBuildable(id catalog.EngineID, buildable bool) (*catalog.EngineModel, error)
}

// Invalidator receives the signals telling an open dialog that one of its
// lists is out of date
type Invalidator interface {
	Invalidate(owner catalog.OwnerID, cat catalog.Category, sd replace.Side)
}

// HistoryEntry records one executed command or world event
type HistoryEntry struct {
	Number    int    `json:"number"`
	Action    string `json:"action"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Result is the outcome of one queued request
type Result struct {
	Request replace.Request
	Err     error
}

// Executor queues dialog requests and applies them to the world on the next
// tick. It is safe for concurrent use.
type Executor struct {
	mu      sync.Mutex
	world   World
	windows Invalidator

	queue    []replace.Request
	history  []HistoryEntry
	seq      int
	executed int
	rejected int
}

// NewExecutor creates an executor applying commands to w. windows may be nil
// when no dialog listens.
func NewExecutor(w World, windows Invalidator) *Executor {
	return &Executor{
		world:   w,
		windows: windows,
	}
}

// Submit enqueues a request; it takes effect on the next Flush
func (x *Executor) Submit(req replace.Request) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.queue = append(x.queue, req)
	log.Debug().Stringer("request", req).Int("pending", len(x.queue)).Msg("command queued")
}

// Pending returns the number of queued requests
func (x *Executor) Pending() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.queue)
}

// Stats returns how many requests were applied and rejected so far
func (x *Executor) Stats() (executed, rejected int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.executed, x.rejected
}

// History returns a copy of the most recent history entries, oldest first
func (x *Executor) History() []HistoryEntry {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]HistoryEntry, len(x.history))
	copy(out, x.history)
	return out
}

// Flush applies queued requests in submission order. Requests left when ctx
// is cancelled stay queued for the next flush. Rejected requests are logged
// and reported in the results; they are never retried.
func (x *Executor) Flush(ctx context.Context) ([]Result, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	var results []Result
	for len(x.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		req := x.queue[0]
		x.queue = x.queue[1:]

		err := x.apply(req)
		results = append(results, Result{Request: req, Err: err})
		x.record(req.String(), err)
		if err != nil {
			x.rejected++
			log.Warn().Err(err).Stringer("request", req).Msg("command rejected")
			continue
		}
		x.executed++
		log.Info().Stringer("request", req).Msg("command executed")
	}
	x.queue = nil
	return results, nil
}

// Validate reports why req cannot be applied to w, if it cannot
func Validate(w World, req replace.Request) error {
	switch req.Kind {
	case replace.SetReplacement:
		from, err := engineOf(w, req.From, req.Category)
		if err != nil {
			return err
		}
		to, err := engineOf(w, req.To, req.Category)
		if err != nil {
			return err
		}
		if err := catalog.CheckReplacementPair(from, to); err != nil {
			return fmt.Errorf("%w: %v", ErrIncompatible, err)
		}
		if !w.IsBuildable(to.ID, req.Category, req.Owner) {
			return fmt.Errorf("%w: %d", ErrNotBuildable, to.ID)
		}
		if w.ExistingReplacement(req.Owner, to.ID, req.Group) != catalog.InvalidEngine {
			return fmt.Errorf("%w: %d", ErrChainedReplacement, to.ID)
		}
		return nil
	case replace.ClearReplacement:
		_, err := engineOf(w, req.From, req.Category)
		return err
	case replace.SetKeepLength:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownRequest, req.Kind)
	}
}

func engineOf(w World, id catalog.EngineID, cat catalog.Category) (*catalog.EngineModel, error) {
	e, ok := w.Engine(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", catalog.ErrUnknownEngine, id)
	}
	if e.Category != cat {
		return nil, fmt.Errorf("%w: engine %d is a %s engine, not %s", ErrCategoryMismatch, id, e.Category, cat)
	}
	return e, nil
}

func (x *Executor) apply(req replace.Request) error {
	if err := Validate(x.world, req); err != nil {
		return err
	}

	switch req.Kind {
	case replace.SetReplacement:
		if err := x.world.SetReplacement(req.Owner, req.Group, req.From, req.To); err != nil {
			return err
		}
		x.invalidateSource(req.Owner, req.Category, req.Group, req.From)
	case replace.ClearReplacement:
		if err := x.world.ClearReplacement(req.Owner, req.Group, req.From); err != nil {
			return err
		}
		x.invalidateSource(req.Owner, req.Category, req.Group, req.From)
	case replace.SetKeepLength:
		x.world.SetKeepLength(req.Owner, req.KeepLength)
	}
	return nil
}

// invalidateSource signals a source list rebuild when engine has no
// vehicles left in group or in the whole company. Only then can a change
// to its count or its replacement rule change source list membership.
func (x *Executor) invalidateSource(owner catalog.OwnerID, cat catalog.Category, group catalog.GroupID, engine catalog.EngineID) {
	if x.windows == nil {
		return
	}
	if x.world.OwnedCount(owner, group, engine) == 0 || x.world.OwnedCount(owner, catalog.AllGroup, engine) == 0 {
		x.windows.Invalidate(owner, cat, replace.Source)
	}
}

func (x *Executor) invalidateTarget(owner catalog.OwnerID, cat catalog.Category) {
	if x.windows != nil {
		x.windows.Invalidate(owner, cat, replace.Target)
	}
}

func (x *Executor) record(action string, err error) {
	x.seq++
	entry := HistoryEntry{
		Number:    x.seq,
		Action:    action,
		Success:   err == nil,
		Timestamp: time.Now().Unix(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	x.history = append(x.history, entry)
	if len(x.history) > MaxHistory {
		x.history = x.history[len(x.history)-MaxHistory:]
	}
}
