package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/satchel-app/satchel/internal/envelope"
	"github.com/satchel-app/satchel/internal/remote"
)

// Strategy selects how a detected conflict is resolved.
type Strategy string

const (
	// StrategyAdoptLocal pushes the local record up, overwriting remote.
	StrategyAdoptLocal Strategy = "adopt-local"

	// StrategyAdoptRemote pulls the remote record down, discarding local
	// edits.
	StrategyAdoptRemote Strategy = "adopt-remote"

	// StrategyMerge combines both sides and writes the result everywhere.
	StrategyMerge Strategy = "merge"
)

// Meta describes one side's record for conflict reporting.
type Meta struct {
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

// ConflictReport is the outcome of DetectConflict.
type ConflictReport struct {
	HasConflict bool  `json:"has_conflict"`
	Local       *Meta `json:"local,omitempty"`
	Remote      *Meta `json:"remote,omitempty"`
}

// DetectConflict compares the local and remote records.
//
// A conflict exists only when the local copy is strictly newer than the
// remote copy AND the two payloads differ. In detail:
//
//  1. Either side missing → no conflict (the sync path adopts the other).
//  2. Local payload has no user data → no conflict.
//  3. Equal timestamps → no conflict, nothing to do.
//  4. Remote strictly newer → no conflict; another device already synced
//     and the remote copy should simply be pulled.
//  5. Local strictly newer: payloads are deep-compared ignoring envelope
//     metadata. Identical payloads mean the divergence is timestamp
//     housekeeping only, fixed by re-stamping remote with a push of the
//     local record. Differing payloads are a real conflict, surfaced to
//     the caller and never auto-resolved.
func (e *Engine) DetectConflict(ctx context.Context) (*ConflictReport, error) {
	if e.Mode() != ModeCloud {
		return nil, ErrCloudDisabled
	}

	local, remoteEnv, remoteRaw, err := e.fetchBothSides(ctx)
	if err != nil {
		return nil, err
	}

	report := &ConflictReport{}
	if local != nil {
		report.Local = metaOf(local)
	}
	if remoteEnv != nil {
		report.Remote = &Meta{
			LastModified: remoteEnv.LastModified,
			Size:         int64(len(remoteRaw)),
		}
	}

	// Rule 1: a missing side is adopted, never conflicted.
	if local == nil || remoteEnv == nil {
		return report, nil
	}

	// Rule 2: nothing locally worth protecting.
	if local.Payload.Empty() {
		return report, nil
	}

	// Rules 3 and 4: remote is current or ahead.
	if !local.LastModified.After(remoteEnv.LastModified) {
		return report, nil
	}

	// Rule 5: local is strictly ahead; compare payloads.
	localPayload, err := local.CanonicalPayload()
	if err != nil {
		return nil, err
	}
	remotePayload, err := remoteEnv.CanonicalPayload()
	if err != nil {
		return nil, err
	}

	if bytes.Equal(localPayload, remotePayload) {
		// Timestamp housekeeping, not a divergence.
		if err := e.pushRemote(ctx, local); err != nil {
			e.reportRemoteError(err)
		} else {
			e.logger.Printf("Re-stamped remote record with local timestamp")
		}
		return report, nil
	}

	report.HasConflict = true
	e.logger.Printf("Conflict detected: local %s vs remote %s",
		local.LastModified.Format(time.RFC3339), remoteEnv.LastModified.Format(time.RFC3339))
	e.listeners.emit(Event{Type: EventConflict})
	return report, nil
}

// Resolve applies the chosen strategy to a detected conflict.
//
// The operation is atomic from the consumer's point of view: either both
// sides end up consistent with the chosen outcome, or the prior conflict
// state persists. The remote side is written before the local side so a
// failed remote write changes nothing; a failed local write after a
// successful push leaves remote ≥ local, which the next load resolves by
// pulling. Only one resolution may be in flight at a time.
func (e *Engine) Resolve(ctx context.Context, strategy Strategy) error {
	if e.Mode() != ModeCloud {
		return ErrCloudDisabled
	}

	e.mu.Lock()
	if e.resolving {
		e.mu.Unlock()
		return ErrResolutionInFlight
	}
	e.resolving = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.resolving = false
		e.mu.Unlock()
	}()

	local, remoteEnv, remoteRaw, err := e.fetchBothSides(ctx)
	if err != nil {
		return err
	}
	if local == nil || remoteEnv == nil {
		return ErrNothingToResolve
	}

	switch strategy {
	case StrategyAdoptRemote:
		if err := e.local.Write(ctx, e.cfg.Key, remoteRaw); err != nil {
			return fmt.Errorf("failed to adopt remote record: %w", err)
		}
		e.listeners.emit(Event{Type: EventRemoteUpdate})

	case StrategyAdoptLocal:
		if err := e.pushRemote(ctx, local); err != nil {
			return err
		}

	case StrategyMerge:
		merged, err := envelope.Merge(local, remoteEnv)
		if err != nil {
			return fmt.Errorf("merge failed: %w", err)
		}
		data, err := merged.Marshal()
		if err != nil {
			return err
		}
		if _, err := e.remote.WriteNamedFile(ctx, e.appFolder(), remote.RecordFileName, data); err != nil {
			if errors.Is(err, remote.ErrUnauthorized) {
				e.DisableCloud()
			}
			return fmt.Errorf("failed to write merged record remotely: %w", err)
		}
		if err := e.local.Write(ctx, e.cfg.Key, data); err != nil {
			return fmt.Errorf("failed to write merged record locally: %w", err)
		}
		e.listeners.emit(Event{Type: EventRemoteUpdate})

	default:
		return fmt.Errorf("unknown resolution strategy %q", strategy)
	}

	e.logger.Printf("Conflict resolved with strategy %s", strategy)
	e.listeners.emit(Event{Type: EventSyncComplete})
	return nil
}

// fetchBothSides loads the local envelope and the remote envelope plus its
// raw bytes. A missing side comes back nil without error.
func (e *Engine) fetchBothSides(ctx context.Context) (*envelope.Envelope, *envelope.Envelope, []byte, error) {
	local, err := e.loadLocal(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	raw, err := e.remote.ReadNamedFile(ctx, e.appFolder(), remote.RecordFileName)
	if errors.Is(err, remote.ErrNotFound) {
		return local, nil, nil, nil
	}
	if err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			e.DisableCloud()
		}
		return nil, nil, nil, fmt.Errorf("failed to read remote record: %w", err)
	}

	remoteEnv, err := envelope.Unmarshal(raw)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("remote record is malformed: %w", err)
	}
	return local, remoteEnv, raw, nil
}

// metaOf summarizes an envelope for conflict reporting.
func metaOf(env *envelope.Envelope) *Meta {
	data, err := env.Marshal()
	size := int64(0)
	if err == nil {
		size = int64(len(data))
	}
	return &Meta{LastModified: env.LastModified, Size: size}
}
