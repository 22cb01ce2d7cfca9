package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/entrhq/ghostchrome/pkg/config"
	"github.com/entrhq/ghostchrome/pkg/logging"
	"github.com/entrhq/ghostchrome/pkg/timing"
)

const (
	// reapSettleDelay gives the OS time to release profile file handles
	reapSettleDelay = time.Second
	killWaitTimeout = 2 * time.Second
	killPollEvery   = 100 * time.Millisecond
)

// ProcessInfo describes one OS process.
type ProcessInfo struct {
	PID  int32
	Name string
	Args []string
}

// ProcessTable enumerates and terminates OS processes.
type ProcessTable interface {
	List(ctx context.Context) ([]ProcessInfo, error)
	// KillTree forcefully terminates pid and all of its descendants.
	KillTree(ctx context.Context, pid int32) error
}

// ReapResult summarizes one Reap call.
type ReapResult struct {
	Matched       int
	Killed        int
	PrefsRepaired bool
	// Errors holds non-fatal failures (*KillError, *PreferenceRepairError)
	Errors []error
}

// Reaper kills stale browser processes carrying the manager's marker token
// and repairs the profile's preference record afterwards.
type Reaper struct {
	marker     string
	names      []glob.Glob
	profileDir string
	procs      ProcessTable
	sleep      timing.Sleeper
	settle     time.Duration
	log        *logging.Logger
}

// NewReaper builds a reaper for cfg. procs defaults to the system process table.
func NewReaper(cfg *config.Config, procs ProcessTable, log *logging.Logger) (*Reaper, error) {
	if strings.TrimSpace(cfg.MarkerToken) == "" {
		return nil, configError("marker_token", "is required")
	}

	patterns := cfg.ProcessNames
	if len(patterns) == 0 {
		patterns = config.DefaultProcessNames
	}
	names := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, configError("process_names", fmt.Sprintf("bad pattern %q: %v", p, err))
		}
		names = append(names, g)
	}

	if procs == nil {
		procs = SystemProcesses{}
	}
	if log == nil {
		log = logging.Discard("reaper")
	}

	return &Reaper{
		marker:     cfg.MarkerToken,
		names:      names,
		profileDir: cfg.ProfileDir,
		procs:      procs,
		sleep:      timing.Sleep,
		settle:     reapSettleDelay,
		log:        log,
	}, nil
}

// Matches reports whether p is a browser process owned by this manager.
func (r *Reaper) Matches(p ProcessInfo) bool {
	if p.Name == "" || !r.nameMatches(p.Name) {
		return false
	}
	for _, arg := range p.Args {
		if arg == r.marker {
			return true
		}
	}
	return false
}

func (r *Reaper) nameMatches(name string) bool {
	name = strings.ToLower(name)
	for _, g := range r.names {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Reap terminates every matching process tree. Finding nothing is not an
// error. Kill and preference failures are logged and collected in the
// result; only a failed process listing or a cancelled context is returned.
func (r *Reaper) Reap(ctx context.Context) (ReapResult, error) {
	var result ReapResult

	procs, err := r.procs.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list processes: %w", err)
	}

	for _, p := range procs {
		if !r.Matches(p) {
			continue
		}
		result.Matched++
		r.log.Verbosef("Killing stale browser (PID: %d)", p.PID)

		if err := r.procs.KillTree(ctx, p.PID); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			kerr := &KillError{PID: p.PID, Err: err}
			r.log.Warnf("%v", kerr)
			result.Errors = append(result.Errors, kerr)
			continue
		}
		result.Killed++
	}

	if result.Killed == 0 {
		return result, nil
	}

	recordReaped(result.Killed)
	r.log.Infof("Killed %d browser process(es)", result.Killed)

	if err := r.sleep(ctx, r.settle); err != nil {
		return result, err
	}

	if err := RepairPreferences(r.profileDir); err != nil {
		r.log.Warnf("%v", err)
		result.Errors = append(result.Errors, err)
	} else {
		recordPrefsRepaired()
		result.PrefsRepaired = true
		r.log.Verbosef("Repaired preferences in %s", r.profileDir)
	}

	return result, nil
}

// SystemProcesses is the ProcessTable of the running OS.
type SystemProcesses struct{}

// List implements ProcessTable. Processes that vanish or deny access while
// being inspected are skipped.
func (SystemProcesses) List(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue
		}
		infos = append(infos, ProcessInfo{PID: p.Pid, Name: name, Args: args})
	}
	return infos, nil
}

// KillTree implements ProcessTable. The root is killed first so it cannot
// respawn children; descendants are collected beforehand.
func (SystemProcesses) KillTree(ctx context.Context, pid int32) error {
	root, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil
		}
		return err
	}

	descendants := collectDescendants(ctx, root)

	if err := root.KillWithContext(ctx); err != nil {
		if running, _ := root.IsRunningWithContext(ctx); running {
			return err
		}
	}
	for _, child := range descendants {
		// children usually exit with the root
		_ = child.KillWithContext(ctx)
	}

	deadline := time.Now().Add(killWaitTimeout)
	for time.Now().Before(deadline) {
		running, err := root.IsRunningWithContext(ctx)
		if err != nil || !running {
			return nil
		}
		if err := timing.Sleep(ctx, killPollEvery); err != nil {
			return err
		}
	}
	return fmt.Errorf("pid %d still running after %s", pid, killWaitTimeout)
}

func collectDescendants(ctx context.Context, p *process.Process) []*process.Process {
	children, err := p.ChildrenWithContext(ctx)
	if err != nil {
		return nil
	}
	var all []*process.Process
	for _, c := range children {
		all = append(all, c)
		all = append(all, collectDescendants(ctx, c)...)
	}
	return all
}
