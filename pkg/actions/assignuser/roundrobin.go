package assignuser

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

// Round-robin lock and cursor timings.
const (
	LockWait  = 5 * time.Second
	LockTTL   = 10 * time.Second
	CursorTTL = 30 * 24 * time.Hour
)

// ScopeKey identifies a rotation: the module plus the candidate set,
// independent of the order candidates were configured in.
func ScopeKey(moduleID int64, candidates []int64) string {
	sorted := slices.Sorted(slices.Values(candidates))

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}

	return fmt.Sprintf("workflow:round_robin:%d:%x", moduleID, murmur3.Sum64([]byte(strings.Join(parts, ","))))
}

// nextInRotation advances the shared cursor of the candidates' scope under
// the scope lock and returns the candidate at the new position. Candidates
// rotate in ascending id order so every configuration of the same set
// shares one cursor meaning.
func (a *Action) nextInRotation(ctx context.Context, moduleID int64, candidates []int64, logger *slog.Logger) (int64, error) {
	candidates = slices.Sorted(slices.Values(candidates))
	key := ScopeKey(moduleID, candidates)

	release, err := a.locker.Acquire(ctx, key+":lock", LockWait, LockTTL)
	if err != nil {
		return 0, fmt.Errorf("lock %s: %w", key, err)
	}

	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "failed to release round robin lock", "key", key, "error", err)
		}
	}()

	last := -1

	raw, found, err := a.cache.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("read cursor %s: %w", key, err)
	}

	if found {
		if n, err := strconv.Atoi(raw); err == nil {
			last = n
		}
	}

	next := (last + 1) % len(candidates)
	if next < 0 {
		next = 0
	}

	if err := a.cache.Put(ctx, key, strconv.Itoa(next), CursorTTL); err != nil {
		return 0, fmt.Errorf("write cursor %s: %w", key, err)
	}

	return candidates[next], nil
}
