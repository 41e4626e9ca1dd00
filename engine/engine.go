// Package engine implements the exploration engine: it owns the tree
// root, the priority queue of unsolved constraints, the worker pool, and
// the invocation handle, and drives the outer seed/dispatch/collect loop.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/concolic-go/concolic/constraint"
	"github.com/concolic-go/concolic/emit"
	"github.com/concolic-go/concolic/invocation"
	"github.com/concolic-go/concolic/recorder"
	"github.com/concolic-go/concolic/scheduler"
	"github.com/concolic-go/concolic/solver"
	"github.com/concolic-go/concolic/store"
	"github.com/concolic-go/concolic/symbolic"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type pendingKey struct {
	id      int
	timeout time.Duration
}

type workerSlot struct {
	busy         bool
	constraintID int
	timeout      time.Duration
	cancel       context.CancelFunc
}

// CompletionMessage is the immutable message a worker posts to the
// driver's single completion channel.
type CompletionMessage struct {
	ConstraintID int
	Timeout      time.Duration
	Outcome      solver.Outcome
	Model        solver.Model
	CPUSeconds   float64
}

// Result is the outcome of a full exploration run.
type Result struct {
	Tree            *constraint.Tree
	Iterations      int
	TotalSolveTime  float64
	DiscoveredResults []interface{}
	PolicyViolations  []interface{}
}

// Engine drives the exploration loop. All tree, queue, and worker-pool
// state is owned exclusively by the goroutine that calls Explore; workers
// only ever receive immutable snapshots (asserts, query, timeout) and
// report back on a shared completion channel.
type Engine struct {
	cfg Config
	inv *invocation.Invocation

	tree *constraint.Tree
	rec  *recorder.PathRecorder

	queue       *Queue
	workers     []workerSlot
	completions chan CompletionMessage

	solved  map[int]bool
	pending map[pendingKey]int

	rng *rand.Rand

	currentInputs map[string]interface{}
	runID         string

	totalSolveTime    float64
	iterations        int
	discoveredResults []interface{}
	policyViolations  []interface{}

	// CoverageProvider, when set, is consulted after each execution to
	// snapshot that run's coverage. Coverage measurement itself is out
	// of scope; the engine only consumes whatever this returns.
	CoverageProvider func() constraint.CoverageSet
}

// New builds an Engine for inv, seeded with initialInputs, configured by
// opts.
func New(inv *invocation.Invocation, initialInputs map[string]interface{}, opts ...Option) (*Engine, error) {
	if inv == nil || inv.Spec.Entry == nil {
		return nil, fmt.Errorf("%w: invocation has no entry point", ErrInvocationSetup)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
	}
	if len(cfg.Adapters) == 0 {
		return nil, fmt.Errorf("%w: no solver adapters registered", ErrInvalidConfiguration)
	}

	tree := constraint.NewTree()
	e := &Engine{
		cfg:           cfg,
		inv:           inv,
		tree:          tree,
		rec:           recorder.New(tree),
		queue:         NewQueue(),
		workers:       make([]workerSlot, cfg.Workers),
		completions:   make(chan CompletionMessage, cfg.Workers*2),
		solved:        map[int]bool{},
		pending:       map[pendingKey]int{},
		rng:           rand.New(rand.NewSource(cfg.seed)),
		currentInputs: initialInputs,
		runID:         uuid.NewString(),
	}
	return e, nil
}

// Explore runs the seed/dispatch/collect loop until the queue is empty
// with no workers running and no pending completions, or until the
// iteration cap or wall-clock budget is reached.
func (e *Engine) Explore(ctx context.Context) (*Result, error) {
	if e.cfg.WallClockBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.WallClockBudget)
		defer cancel()
	}

	e.seed(ctx)

loop:
	for {
		if e.cfg.MaxIterations > 0 && e.iterations >= e.cfg.MaxIterations {
			break
		}
		e.cfg.Metrics.setQueueDepth(e.queue.Len())
		e.cfg.Metrics.setBusyWorkers(len(e.workers) - e.idleWorkers())
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		select {
		case msg := <-e.completions:
			e.handleCompletion(ctx, msg)
			continue loop
		default:
		}

		if e.queue.Len() == 0 && e.idleWorkers() == len(e.workers) {
			break loop
		}

		if e.tryDispatch(ctx) {
			continue loop
		}

		select {
		case msg := <-e.completions:
			e.handleCompletion(ctx, msg)
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
			break loop
		}
	}

	e.teardown()
	e.persistTree(ctx)
	return &Result{
		Tree:              e.tree,
		Iterations:        e.iterations,
		TotalSolveTime:    e.totalSolveTime,
		DiscoveredResults: e.discoveredResults,
		PolicyViolations:  e.policyViolations,
	}, nil
}

func (e *Engine) idleWorkers() int {
	n := 0
	for _, w := range e.workers {
		if !w.busy {
			n++
		}
	}
	return n
}

func (e *Engine) slotStates() []scheduler.Slot {
	slots := make([]scheduler.Slot, len(e.workers))
	for i, w := range e.workers {
		slots[i] = scheduler.Slot{Free: !w.busy}
	}
	return slots
}

// tryDispatch pops candidates from the queue in priority order, asking
// the scheduling policy for a free slot for each; the first candidate
// that gets one is launched and the rest are put back. Candidates the
// pruner rejects are dropped outright, never re-enqueued.
func (e *Engine) tryDispatch(ctx context.Context) bool {
	var deferred []*pendingItem
	dispatched := false
	for {
		c, timeout, ok := e.queue.Pop()
		if !ok {
			break
		}
		if Pruned(c, e.cfg.PathTimeout, e.cfg.CoveragePruningWindow) {
			e.emit(c, "constraint pruned")
			continue
		}
		slotID, ok := e.cfg.Policy(e.slotStates(), e.cfg.Ladder, timeout, e.rng)
		if ok {
			e.launch(ctx, slotID, c, timeout)
			dispatched = true
			break
		}
		deferred = append(deferred, &pendingItem{c: c, nextTimeout: timeout})
	}
	for _, d := range deferred {
		e.queue.Push(d.c, d.nextTimeout)
	}
	return dispatched
}

func (e *Engine) launch(ctx context.Context, slotID int, c *constraint.Constraint, timeout time.Duration) {
	slot := &e.workers[slotID-1]
	if slot.busy {
		if preempted := e.tree.Find(slot.constraintID); preempted != nil {
			e.queue.Push(preempted, slot.timeout)
		}
		if slot.cancel != nil {
			slot.cancel()
		}
	}

	asserts, query := c.GetAssertsAndQuery()
	key := pendingKey{id: c.ID, timeout: timeout}
	e.pending[key]++

	workCtx, cancel := context.WithCancel(ctx)
	*slot = workerSlot{busy: true, constraintID: c.ID, timeout: timeout, cancel: cancel}

	e.emit(c, fmt.Sprintf("dispatching at timeout=%s", timeout))

	if e.cfg.SolverName == "multi" {
		e.launchMulti(workCtx, c.ID, timeout, asserts, query)
		return
	}
	adapter := e.cfg.Adapters[e.cfg.SolverName]
	e.launchSingle(workCtx, c.ID, timeout, asserts, query, adapter)
}

func (e *Engine) launchSingle(ctx context.Context, id int, timeout time.Duration, asserts []constraint.Predicate, query constraint.Predicate, adapter solver.Adapter) {
	go func() {
		outcome, model, cpu, err := adapter.FindCounterexample(ctx, asserts, query, timeout)
		if err != nil {
			outcome, model = solver.UNKNOWN, nil
		}
		e.post(ctx, CompletionMessage{ConstraintID: id, Timeout: timeout, Outcome: outcome, Model: model, CPUSeconds: cpu})
	}()
}

func (e *Engine) launchMulti(ctx context.Context, id int, timeout time.Duration, asserts []constraint.Predicate, query constraint.Predicate) {
	hasString := queryHasStringVar(asserts, query)
	a1, a2 := solver.PairForInputs(hasString, e.cfg.Adapters)

	go func() {
		type outcome struct {
			o   solver.Outcome
			m   solver.Model
			cpu float64
		}
		results := make(chan outcome, 2)
		g, gctx := errgroup.WithContext(ctx)
		sub1, cancel1 := context.WithCancel(gctx)
		sub2, cancel2 := context.WithCancel(gctx)
		defer cancel1()
		defer cancel2()

		g.Go(func() error {
			o, m, cpu, _ := a1.FindCounterexample(sub1, asserts, query, timeout)
			select {
			case results <- outcome{o, m, cpu}:
			case <-sub1.Done():
			}
			return nil
		})
		g.Go(func() error {
			o, m, cpu, _ := a2.FindCounterexample(sub2, asserts, query, timeout)
			select {
			case results <- outcome{o, m, cpu}:
			case <-sub2.Done():
			}
			return nil
		})

		var first outcome
		select {
		case first = <-results:
		case <-ctx.Done():
			_ = g.Wait()
			return
		}
		cancel1()
		cancel2()
		_ = g.Wait()

		e.post(ctx, CompletionMessage{ConstraintID: id, Timeout: timeout, Outcome: first.o, Model: first.m, CPUSeconds: first.cpu})
	}()
}

func (e *Engine) post(ctx context.Context, msg CompletionMessage) {
	select {
	case e.completions <- msg:
	case <-ctx.Done():
	}
}

func queryHasStringVar(asserts []constraint.Predicate, query constraint.Predicate) bool {
	check := func(p constraint.Predicate) bool {
		for _, sort := range symbolic.InferVarSorts(p.Expr) {
			if sort == "String" {
				return true
			}
		}
		return false
	}
	if check(query) {
		return true
	}
	for _, a := range asserts {
		if check(a) {
			return true
		}
	}
	return false
}

func (e *Engine) freeSlotFor(id int, timeout time.Duration) {
	for i := range e.workers {
		if e.workers[i].busy && e.workers[i].constraintID == id && e.workers[i].timeout == timeout {
			e.workers[i] = workerSlot{}
			return
		}
	}
}

func (e *Engine) pendingCountForID(id int) int {
	total := 0
	for k, n := range e.pending {
		if k.id == id {
			total += n
		}
	}
	return total
}

func (e *Engine) ladderIndex(timeout time.Duration) int {
	for i, t := range e.cfg.Ladder {
		if t == timeout {
			return i
		}
	}
	return -1
}

func (e *Engine) handleCompletion(ctx context.Context, msg CompletionMessage) {
	e.totalSolveTime += msg.CPUSeconds
	e.cfg.Metrics.recordSolve(outcomeLabel(msg.Outcome), msg.CPUSeconds)

	key := pendingKey{id: msg.ConstraintID, timeout: msg.Timeout}
	if n := e.pending[key]; n > 0 {
		if n == 1 {
			delete(e.pending, key)
		} else {
			e.pending[key] = n - 1
		}
	}
	e.freeSlotFor(msg.ConstraintID, msg.Timeout)

	if e.solved[msg.ConstraintID] {
		return
	}
	c := e.tree.Find(msg.ConstraintID)
	if c == nil {
		return
	}

	if msg.Outcome != solver.SAT {
		if e.pendingCountForID(msg.ConstraintID) > 0 {
			return // another attempt for this id is still in flight
		}
		idx := e.ladderIndex(msg.Timeout)
		if msg.Outcome != solver.UNSAT && idx >= 0 && idx < len(e.cfg.Ladder)-1 {
			e.queue.Push(c, e.cfg.Ladder[idx+1])
			e.emit(c, fmt.Sprintf("escalated to rung %s", e.cfg.Ladder[idx+1]))
			return
		}
		e.seal(c, msg.CPUSeconds)
		return
	}

	e.solved[msg.ConstraintID] = true
	newInputs := make(map[string]interface{}, len(e.currentInputs)+len(msg.Model))
	for k, v := range e.currentInputs {
		newInputs[k] = v
	}
	for k, v := range msg.Model {
		newInputs[k] = v
	}
	e.currentInputs = newInputs
	e.emit(c, "SAT, re-executing with new model")
	e.oneExecution(ctx, c, msg.CPUSeconds)
	e.iterations++
	e.persistTree(ctx)
}

// seal manufactures a sealed child under c's parent for the negated
// predicate, recording the cost spent discovering infeasibility and
// closing that branch for further exploration.
func (e *Engine) seal(c *constraint.Constraint, cost float64) {
	if c.Parent == nil || c.Predicate == nil {
		return
	}
	negated := c.Predicate.Negate()
	sibling := c.Parent.FindChild(negated)
	if sibling == nil {
		sibling = e.tree.AddChild(c.Parent, negated)
	}
	sibling.Inputs = nil
	sibling.SolvingTime = cost
	sibling.Processed = true
	e.cfg.Metrics.incSealed()
	e.emit(c, "sealed")
}

func outcomeLabel(o solver.Outcome) string {
	switch o {
	case solver.SAT:
		return "sat"
	case solver.UNSAT:
		return "unsat"
	default:
		return "unknown"
	}
}

// seed performs the first execution with the initial concrete inputs.
func (e *Engine) seed(ctx context.Context) {
	e.oneExecution(ctx, nil, 0)
}

// oneExecution records the current input snapshot, resets the recorder
// (optionally arming replay against expected), invokes the program under
// test, classifies the outcome, and drains newly discovered constraints
// into the queue at the first timeout rung.
func (e *Engine) oneExecution(ctx context.Context, expected *constraint.Constraint, lastSolvingTime float64) {
	snapshot := make(map[string]interface{}, len(e.currentInputs))
	for k, v := range e.currentInputs {
		snapshot[k] = v
	}

	e.rec.Reset(expected)
	result, err := e.inv.CallFunction(e.rec, snapshot)

	switch err.(type) {
	case nil:
		e.discoveredResults = append(e.discoveredResults, result)
		e.cfg.Metrics.incDiscovered()
	case *invocation.PolicyViolation:
		e.policyViolations = append(e.policyViolations, result)
		e.discoveredResults = append(e.discoveredResults, result)
		e.cfg.Metrics.incDiscovered()
		e.cfg.Metrics.incViolation()
	case *invocation.PreconditionFailed:
		// mirrors the source's "precondition rejected every argument"
		// outcome: logged as a discovered result of false, not skipped.
		e.discoveredResults = append(e.discoveredResults, false)
		e.cfg.Metrics.incDiscovered()
	case *invocation.ProgramPanic, *invocation.ExitAttempt:
		e.discoveredResults = append(e.discoveredResults, err)
		e.cfg.Metrics.incDiscovered()
	default:
		e.discoveredResults = append(e.discoveredResults, err)
		e.cfg.Metrics.incDiscovered()
	}

	for _, m := range e.rec.Mismatches {
		e.emitMsg(m)
	}
	e.rec.Mismatches = nil

	var cov constraint.CoverageSet
	if e.CoverageProvider != nil {
		cov = e.CoverageProvider()
	} else {
		cov = constraint.NewCoverageSet()
	}

	for _, n := range e.rec.DrainNew() {
		n.Inputs = snapshot
		n.Coverage = cov
		n.SolvingTime = lastSolvingTime
		n.BranchID = fmt.Sprintf("constraint:%d:%v", n.ID, n.Predicate.Result)
		e.queue.Push(n, e.cfg.Ladder[0])
	}
}

// persistTree snapshots the current constraint tree into the
// configured store, keyed by this run's id. Persistence failures are
// logged as events, never fatal to exploration.
func (e *Engine) persistTree(ctx context.Context) {
	if e.cfg.Store == nil {
		return
	}
	if err := e.cfg.Store.SaveTree(ctx, e.runID, store.Snapshot(e.tree)); err != nil {
		e.emitMsg(fmt.Sprintf("store: failed to persist tree: %v", err))
	}
}

func (e *Engine) teardown() {
	for i := range e.workers {
		if e.workers[i].cancel != nil {
			e.workers[i].cancel()
		}
		e.workers[i] = workerSlot{}
	}
}

func (e *Engine) emit(c *constraint.Constraint, msg string) {
	nodeID := ""
	if c != nil {
		nodeID = c.BranchID
		if nodeID == "" {
			nodeID = fmt.Sprintf("n%d", c.ID)
		}
	}
	e.cfg.Emitter.Emit(emit.Event{RunID: e.runID, Step: e.iterations, NodeID: nodeID, Msg: msg, At: time.Now()})
}

func (e *Engine) emitMsg(msg string) {
	e.cfg.Emitter.Emit(emit.Event{RunID: e.runID, Step: e.iterations, Msg: msg, At: time.Now()})
}
