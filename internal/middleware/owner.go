package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ociswap/registry/internal/pkg/apperrors"
	"github.com/ociswap/registry/internal/pkg/logger"
	"github.com/ociswap/registry/internal/registry"
	"github.com/ociswap/registry/internal/signer"
)

const (
	HeaderOwnerTimestamp = "X-Owner-Timestamp"
	HeaderOwnerSignature = "X-Owner-Signature"
	ContextOwnerProof    = "owner_proof"

	defaultOwnerWindow = 5 * time.Minute
)

// ReplayGuard remembers signed requests that were already accepted.
type ReplayGuard interface {
	// Consume records key for ttl and reports whether this is its first use.
	Consume(key string, ttl time.Duration) bool
}

// OwnerProofMiddleware turns the owner signature headers into a registry.Proof.
// Only oversized bodies are rejected here: a missing, stale, forged or replayed
// signature yields an empty proof and the gated operation fails on its own.
// Each signed request is accepted once; the owner signs a fresh timestamp for every call.
func OwnerProofMiddleware(window time.Duration, now func() time.Time, guard ReplayGuard) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	if window <= 0 {
		window = defaultOwnerWindow
	}
	if guard == nil {
		guard = NewInMemReplayGuard()
	}
	return func(c *gin.Context) {
		sig := c.GetHeader(HeaderOwnerSignature)
		tsRaw := c.GetHeader(HeaderOwnerTimestamp)
		if sig == "" || tsRaw == "" {
			c.Set(ContextOwnerProof, registry.Proof{})
			c.Next()
			return
		}

		body, err := readBody(c, MaxRequestBodyBytes)
		if err != nil {
			c.Error(apperrors.New(apperrors.ErrBodyTooLarge, "request body too large", err))
			c.Abort()
			return
		}

		c.Set(ContextOwnerProof, verifyOwnerProof(c.Request.Method, c.Request.URL.Path, tsRaw, sig, body, window, now(), guard))
		c.Next()
	}
}

func verifyOwnerProof(method, path, tsRaw, sig string, body []byte, window time.Duration, now time.Time, guard ReplayGuard) registry.Proof {
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		logger.Debug("Owner proof rejected", "reason", "bad timestamp", "path", path)
		return registry.Proof{}
	}
	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > window {
		logger.Debug("Owner proof rejected", "reason", "timestamp outside window", "path", path)
		return registry.Proof{}
	}
	holder, err := signer.RecoverRequestSigner(method, path, ts, body, sig)
	if err != nil {
		logger.Debug("Owner proof rejected", "reason", err.Error(), "path", path)
		return registry.Proof{}
	}

	// keyed by digest, not signature bytes: a malleated signature of the same request is still a replay
	key := holder.Hex() + ":" + signer.RequestDigest(method, path, ts, body).Hex()
	// a timestamp stays acceptable until ts+window, at most 2*window from now
	if !guard.Consume(key, 2*window) {
		logger.Warn("Owner proof rejected", "reason", "replayed signature", "path", path, "holder", holder.Hex())
		return registry.Proof{}
	}
	return registry.Proof{Holder: holder}
}

// ProofFromContext returns the proof set by OwnerProofMiddleware, or an empty one.
func ProofFromContext(c *gin.Context) registry.Proof {
	if v, ok := c.Get(ContextOwnerProof); ok {
		if proof, ok := v.(registry.Proof); ok {
			return proof
		}
	}
	return registry.Proof{}
}

// InMemReplayGuard is the single-instance ReplayGuard; use Redis when running replicas.
type InMemReplayGuard struct {
	mu     sync.Mutex
	seen   map[string]time.Time // key -> expiry
	lastGC time.Time
}

func NewInMemReplayGuard() *InMemReplayGuard {
	return &InMemReplayGuard{seen: make(map[string]time.Time), lastGC: time.Now()}
}

func (g *InMemReplayGuard) Consume(key string, ttl time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if now.Sub(g.lastGC) > time.Minute {
		for k, exp := range g.seen {
			if now.After(exp) {
				delete(g.seen, k)
			}
		}
		g.lastGC = now
	}

	if exp, ok := g.seen[key]; ok && now.Before(exp) {
		return false
	}
	g.seen[key] = now.Add(ttl)
	return true
}
