package videoid

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const videoPrefix = "vid_"

var (
	entropyMu   sync.Mutex
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// NewULID returns a lower-case monotonic ULID. Safe for concurrent use.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return strings.ToLower(id.String())
}

// New returns a vid_* ULID string.
func New() string {
	return videoPrefix + NewULID()
}

// IsValid reports whether the string is a vid_* ULID.
func IsValid(value string) bool {
	if !strings.HasPrefix(value, videoPrefix) {
		return false
	}
	_, err := Parse(value)
	return err == nil
}

// Parse strips the vid_ prefix and returns the ULID.
func Parse(value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, videoPrefix)
	return ulid.ParseStrict(strings.ToUpper(value))
}
