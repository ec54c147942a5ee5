// Package progress implements the scheduler's progress-callback contract
// (spec.md §4.6 step 7): rate limiting, terminal updates never dropped,
// and the job/global ETA extrapolation formulas.
package progress

import (
	"sync"
	"time"

	"github.com/qphase-sched/qphase-sched/internal/qlog"
)

// Update is the ephemeral progress record delivered to an observer
// callback (spec.md §3 "JobProgressUpdate").
type Update struct {
	JobName   string
	JobIndex  int
	TotalJobs int
	Message   string
	Percent   *float64
	JobETA    *float64
	GlobalETA *float64
	Stage     *string
}

// Sink receives accepted (non-rate-limited) progress updates.
type Sink func(Update)

// Tracker rate-limits and derives ETAs for progress updates flowing out
// of a single engine invocation, per spec.md §4.6 step 7. One Tracker is
// used per job; the scheduler constructs a fresh one for each job it
// runs.
type Tracker struct {
	mu        sync.Mutex
	interval  time.Duration
	lastEmit  time.Time
	hasEmit   bool
	sink      Sink
	jobName   string
	jobIndex  int
	totalJobs int
}

// NewTracker builds a Tracker for one job invocation. interval is
// SystemConfig.ProgressUpdateInterval; sink receives accepted updates.
func NewTracker(jobName string, jobIndex, totalJobs int, interval time.Duration, sink Sink) *Tracker {
	return &Tracker{interval: interval, sink: sink, jobName: jobName, jobIndex: jobIndex, totalJobs: totalJobs}
}

// Report is the function passed to the engine as its progress callback
// (internal/plugin.ProgressFunc). percent, totalDurationEstimateSeconds
// and stage are nil when the engine doesn't know them.
func (t *Tracker) Report(percent *float64, totalDurationEstimateSeconds *float64, message string, stage *string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	terminal := percent != nil && *percent >= 1.0
	now := time.Now()
	if !terminal && t.hasEmit && now.Sub(t.lastEmit) < t.interval {
		return
	}
	t.lastEmit = now
	t.hasEmit = true

	update := Update{
		JobName:   t.jobName,
		JobIndex:  t.jobIndex,
		TotalJobs: t.totalJobs,
		Message:   message,
		Percent:   percent,
		Stage:     stage,
	}
	update.JobETA, update.GlobalETA = deriveETAs(percent, totalDurationEstimateSeconds, t.jobIndex, t.totalJobs)

	t.emit(update)
}

// emit invokes the sink with a panic recovery boundary: a broken observer
// must never terminate or corrupt the run it's merely watching (spec.md
// §7, §9 DESIGN NOTES).
func (t *Tracker) emit(update Update) {
	defer func() {
		if r := recover(); r != nil {
			qlog.Warn("progress sink for job %q panicked: %v", t.jobName, r)
		}
	}()
	if t.sink != nil {
		t.sink(update)
	}
}

// Terminal emits the unconditional percent=1.0 update spec.md §4.6 step
// 10 requires when a job succeeds, bypassing rate limiting entirely.
func (t *Tracker) Terminal(message string) {
	one := 1.0
	t.Report(&one, nil, message, nil)
}

// deriveETAs implements spec.md §4.6 step 7's formulas:
//
//	job_eta = total_duration_estimate * (1 - percent)            [both known]
//	global_eta = job_eta + (total_jobs - job_index) * total_duration_estimate
//
// global_eta assumes homogeneous job durations (spec.md §9 Open Question
// 3) and is only returned when job_eta itself is known.
func deriveETAs(percent, totalDurationEstimateSeconds *float64, jobIndex, totalJobs int) (jobETA, globalETA *float64) {
	if percent == nil || totalDurationEstimateSeconds == nil {
		return nil, nil
	}
	je := *totalDurationEstimateSeconds * (1 - *percent)
	jobETA = &je

	remaining := float64(totalJobs - jobIndex)
	if remaining < 0 {
		remaining = 0
	}
	ge := je + remaining*(*totalDurationEstimateSeconds)
	globalETA = &ge
	return jobETA, globalETA
}
