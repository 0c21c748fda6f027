// Package publish decomposes the local configuration document into the
// flat, distro-suffixed rules store and pushes the screens/navigation
// portion to its own endpoint. Feature groups sync independently and
// swallow their own failures; only the screens write decides the
// user-visible result.
package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/soneri/appcanvas/internal/distro"
	"github.com/soneri/appcanvas/internal/theming"
	"github.com/soneri/appcanvas/model"
)

// Upstream is the slice of the remote client the synchronizer drives.
type Upstream interface {
	FetchRules(ctx context.Context) (map[string]string, error)
	ReplaceRules(ctx context.Context, rules map[string]string) error
	PublishDocument(ctx context.Context, distroName string, doc model.ConfigurationDocument) error
	SaveHelpContent(ctx context.Context, panelID, content string) error
}

// Metrics receives publish outcome counts.
type Metrics interface {
	PublishOutcome(distroName string, success bool)
	GroupOutcome(group string, status string)
}

type nopMetrics struct{}

func (nopMetrics) PublishOutcome(string, bool) {}
func (nopMetrics) GroupOutcome(string, string) {}

// Synchronizer orchestrates one publish: per-group encode, fetch, merge,
// replace against the rules store, then the authoritative screens write,
// then the help-content flush. Every attempt is journaled.
type Synchronizer struct {
	upstream Upstream
	journal  Journal
	metrics  Metrics
	now      func() time.Time
	newID    func() string
}

// NewSynchronizer creates a synchronizer over the upstream client and
// journal.
func NewSynchronizer(upstream Upstream, journal Journal) *Synchronizer {
	return &Synchronizer{
		upstream: upstream,
		journal:  journal,
		metrics:  nopMetrics{},
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithMetrics registers a metrics sink for publish outcomes.
func (s *Synchronizer) WithMetrics(m Metrics) *Synchronizer {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Result is the outcome of one publish attempt. Err carries the screens
// write failure when the publish failed as a whole; group results are
// informational.
type Result struct {
	RecordID string
	Groups   []GroupResult
	Err      error
}

// Publish pushes the document for one distribution variant: each touched
// feature group is flattened and merge-patched into the rules store, the
// screens/navigation document is written to its endpoint, and any bound
// help-center content is flushed. The screens write alone determines the
// returned error.
func (s *Synchronizer) Publish(ctx context.Context, target model.DistroDescriptor, doc model.ConfigurationDocument, helpPanels map[string]string) Result {
	started := s.now()
	suffix := ""
	if !target.IsMain() {
		suffix = distro.Suffix(target.Name)
	}
	accessor := theming.NewAccessor(doc.GlobalTheming, suffix)

	var groups []GroupResult
	for _, group := range theming.Groups() {
		res := s.syncGroup(ctx, accessor, suffix, group)
		s.metrics.GroupOutcome(string(group), string(res.Status))
		groups = append(groups, res)
	}

	// The authoritative screens/navigation write.
	screensErr := s.upstream.PublishDocument(ctx, target.Name, doc)
	if screensErr != nil {
		slog.Error("publish: screens write failed", "distro", target.Name, "error", screensErr)
	}

	// Help content saves are best-effort, like the group syncs.
	for panelID, content := range helpPanels {
		if err := s.upstream.SaveHelpContent(ctx, panelID, content); err != nil {
			slog.Warn("publish: help content save failed", "panel", panelID, "error", err)
		}
	}

	rec := Record{
		ID:         s.newID(),
		Distro:     target.Name,
		Groups:     groups,
		ScreensOK:  screensErr == nil,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if screensErr != nil {
		rec.Error = screensErr.Error()
	}
	if err := s.journal.Append(ctx, rec); err != nil {
		slog.Warn("publish: journal append failed", "record", rec.ID, "error", err)
	}

	s.metrics.PublishOutcome(target.Name, screensErr == nil)

	return Result{RecordID: rec.ID, Groups: groups, Err: screensErr}
}

// syncGroup flattens one feature group and merge-patches it into the rules
// store. An untouched group issues zero remote calls. Errors are logged and
// recorded, never propagated.
func (s *Synchronizer) syncGroup(ctx context.Context, accessor *theming.Accessor, suffix string, group theming.Group) GroupResult {
	res := GroupResult{Group: string(group)}

	if !accessor.GroupTouched(group) {
		res.Status = GroupSkipped
		return res
	}

	remote, err := s.upstream.FetchRules(ctx)
	if err != nil {
		slog.Warn("publish: rules fetch failed", "group", group, "error", err)
		res.Status = GroupFailed
		res.Error = err.Error()
		return res
	}

	merged := make(map[string]string, len(remote))
	for k, v := range remote {
		merged[k] = v
	}

	for _, setting := range theming.ByGroup(group) {
		key := theming.FlatKey(setting.Name, suffix)
		value, ok := accessor.Get(setting)

		switch setting.Policy {
		case theming.PolicyTombstone:
			if !ok || value == "" {
				if _, present := merged[key]; present {
					delete(merged, key)
					res.KeysDeleted++
				}
				continue
			}
			merged[key] = value
			res.KeysWritten++
		default:
			// Set policy: an unset field within a touched group writes
			// the empty string.
			merged[key] = value
			res.KeysWritten++
		}
	}

	if err := s.upstream.ReplaceRules(ctx, merged); err != nil {
		slog.Warn("publish: rules replace failed", "group", group, "error", err)
		res.Status = GroupFailed
		res.Error = err.Error()
		return res
	}

	res.Status = GroupOK
	return res
}
