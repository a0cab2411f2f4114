// Package report collects the warnings and reminders a run produces and
// forwards run events to an optional Hooks implementation.
//
// Warnings describe facts that could not be discovered. Reminders describe
// things the user has to finish by hand in a generated recipe. Neither stops
// a run.
package report

import (
	"fmt"

	"github.com/deploymenttheory/macos-recipe-robot/tools/logger"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
)

// Hooks receives events from a run.
type Hooks interface {
	// OnFact is called for each fact discovered about the input.
	OnFact(name, value string)

	// OnKindResolved is called once per kind after existing/buildable
	// resolution.
	OnKindResolved(state *recipe.State)

	OnWarning(message string)
	OnReminder(message string)
}

// NoopHooks discards every event.
type NoopHooks struct{}

func (NoopHooks) OnFact(string, string) {}
func (NoopHooks) OnKindResolved(*recipe.State) {}
func (NoopHooks) OnWarning(string) {}
func (NoopHooks) OnReminder(string) {}

// LoggerHooks writes every event through the package logger.
type LoggerHooks struct{}

func (LoggerHooks) OnFact(name, value string) {
	logger.Logger(fmt.Sprintf("🔎 %s: %s", name, value), logger.LogDebug)
}

func (LoggerHooks) OnKindResolved(st *recipe.State) {
	switch {
	case st.Buildable:
		logger.Logger(fmt.Sprintf("🧩 %s recipe is buildable", st.Kind.Name), logger.LogInfo)
	case st.Existing:
		logger.Logger(fmt.Sprintf("📦 %s recipe already exists", st.Kind.Name), logger.LogInfo)
	default:
		logger.Logger(fmt.Sprintf("⏭️  %s recipe not wanted", st.Kind.Name), logger.LogDebug)
	}
}

func (LoggerHooks) OnWarning(message string) {
	logger.Logger("⚠️ "+message, logger.LogWarning)
}

func (LoggerHooks) OnReminder(message string) {
	logger.Logger("📝 "+message, logger.LogReminder)
}

// Report accumulates the recoverable diagnostics of one run.
type Report struct {
	Warnings  []string
	Reminders []string

	hooks Hooks
}

// New returns an empty report forwarding to hooks. A nil hooks is NoopHooks.
func New(hooks Hooks) *Report {
	if hooks == nil {
		hooks = NoopHooks{}
	}
	return &Report{hooks: hooks}
}

// Warn records a warning.
func (r *Report) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, msg)
	r.hooks.OnWarning(msg)
}

// Remind records a reminder.
func (r *Report) Remind(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Reminders = append(r.Reminders, msg)
	r.hooks.OnReminder(msg)
}

// Fact announces a discovered fact. Empty values are ignored.
func (r *Report) Fact(name, value string) {
	if value == "" {
		return
	}
	r.hooks.OnFact(name, value)
}

// Resolved announces the resolution of one kind.
func (r *Report) Resolved(st *recipe.State) {
	r.hooks.OnKindResolved(st)
}

// Empty reports whether nothing was recorded.
func (r *Report) Empty() bool {
	return len(r.Warnings) == 0 && len(r.Reminders) == 0
}
