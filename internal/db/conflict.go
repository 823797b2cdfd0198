package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamtamyoyo/nawras-crm-sub001/internal/store"
)

type ResolutionStrategy string

const (
	StrategyLocal  ResolutionStrategy = "local"
	StrategyRemote ResolutionStrategy = "remote"
	StrategyMerge  ResolutionStrategy = "merge"
	StrategyManual ResolutionStrategy = "manual"
)

// ErrManualResolution is returned by the manual strategy: the caller must
// show both versions to a human and apply an explicit strategy afterward.
var ErrManualResolution = errors.New("manual_resolution_required")

// metadata columns are the store's bookkeeping; local edits never override
// them during resolution.
var metadataColumns = map[string]bool{
	"id":         true,
	"version":    true,
	"created_at": true,
	"updated_at": true,
}

/*
ResolveConflict merges a writer's intended state with the stored record
under the chosen strategy:

  - local:  local field edits win, remote keeps id/version/timestamps
  - remote: local edits are discarded
  - merge:  whichever side carries the newer updated_at wins wholesale
    (a recency heuristic, not a field-level merge)
  - manual: always errors

The result is a fresh record the caller can feed into a new update cycle
with the remote's version as expectedVersion.
*/
func ResolveConflict(localData map[string]any, remoteData *store.Record, strategy ResolutionStrategy) (*store.Record, error) {
	if remoteData == nil {
		return nil, fmt.Errorf("cannot resolve conflict without remote record")
	}

	switch strategy {
	case StrategyLocal:
		resolved := remoteData.Clone()
		for col, v := range localData {
			if metadataColumns[col] {
				continue
			}
			resolved.Fields[col] = v
		}
		return resolved, nil

	case StrategyRemote:
		return remoteData.Clone(), nil

	case StrategyMerge:
		if localUpdatedAt(localData).After(remoteData.UpdatedAt) {
			return ResolveConflict(localData, remoteData, StrategyLocal)
		}
		return remoteData.Clone(), nil

	case StrategyManual:
		return nil, ErrManualResolution

	default:
		return nil, fmt.Errorf("unknown resolution strategy %q", strategy)
	}
}

// Resolve applies a strategy to this conflict and marks it handled.
func (c *Conflict) Resolve(strategy ResolutionStrategy) (*store.Record, error) {
	resolved, err := ResolveConflict(c.LocalData, c.RemoteData, strategy)
	if err != nil {
		return nil, err
	}
	c.Resolved = true
	return resolved, nil
}

func localUpdatedAt(localData map[string]any) time.Time {
	switch t := localData["updated_at"].(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
