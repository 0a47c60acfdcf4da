// Package refgen allocates human-readable booking references.
//
// A candidate is PREFIX-TTTTTTTTTSSSS: a millisecond timestamp encoded in
// base 36 (zero padded so later references sort after earlier ones) followed
// by a random suffix. The timestamp makes collisions between candidates
// generated at different instants impossible, so the store-side uniqueness
// check is a fallback for same-millisecond races, not the primary mechanism.
package refgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"voyago/shared/failure"
)

const (
	suffixCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixLength  = 4

	// timestampWidth keeps base-36 millisecond timestamps fixed width, which
	// preserves lexicographic time ordering.
	timestampWidth = 9

	minAttempts = 5
)

// ExistsFunc reports whether a candidate reference is already taken.
type ExistsFunc func(ctx context.Context, reference string) (bool, error)

type Generator interface {
	Generate(ctx context.Context, exists ExistsFunc) (string, error)
}

type generator struct {
	prefix      string
	maxAttempts int
}

func New(prefix string, maxAttempts int) Generator {
	if maxAttempts < minAttempts {
		maxAttempts = minAttempts
	}

	return &generator{
		prefix:      prefix,
		maxAttempts: maxAttempts,
	}
}

// Generate produces a reference not currently present in the store. It gives
// up after the configured number of attempts and returns a server failure,
// never a caller error: exhaustion means the service cannot allocate
// identifiers, which is not the caller's fault.
func (g *generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate, err := g.candidate()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check reference availability: %w", err)
		}

		if !taken {
			return candidate, nil
		}

		log.Warn().Str("reference", candidate).Int("attempt", attempt+1).Msg("booking reference collision, retrying")
	}

	log.Error().Int("attempts", g.maxAttempts).Msg("exhausted booking reference attempts")

	return "", failure.InternalErrorFromString("unable to allocate a unique booking reference")
}

func (g *generator) candidate() (string, error) {
	timestamp := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	if len(timestamp) < timestampWidth {
		timestamp = strings.Repeat("0", timestampWidth-len(timestamp)) + timestamp
	}

	suffix := make([]byte, suffixLength)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range suffix {
		suffix[i] = suffixCharset[int(b)%len(suffixCharset)]
	}

	return fmt.Sprintf("%s-%s%s", g.prefix, timestamp, suffix), nil
}
