// Copyright (c) 2026 Roomkeeper. All rights reserved.

/*
Package sec provides cryptographic primitives for credential handling.

It isolates security-sensitive code (password hashing, role checks) from the
domain logic. The [Hasher] is constructed once during bootstrap from an
immutable [HasherConfig] and injected wherever credentials are produced or
checked.

# Architecture

  - Hashing: Argon2id (memory-hard, side-channel resistant) in PHC string format.
  - Pepper: A deployment-wide secret applied as an HMAC-SHA256 pre-hash, so a
    leaked hash database alone cannot be attacked offline.
  - Offloading: Derivations run through a bounded worker pool so a burst of
    login or reset traffic cannot monopolize the scheduler.
*/
package sec

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKiB    uint32 = 8 * 1024
	minTimeCost     uint32 = 1
	minParallelism  uint8  = 1
	defaultSaltLen  uint32 = 16
	defaultKeyLen   uint32 = 32
)

var (
	// ErrMalformedHash reports a stored hash string that cannot be parsed.
	// It signals corrupted storage or a config defect, never a wrong password.
	ErrMalformedHash = errors.New("sec: malformed password hash")

	// ErrInvalidHasherConfig reports rejected cost parameters at construction.
	ErrInvalidHasherConfig = errors.New("sec: invalid hasher config")
)

// # Configuration

// HasherConfig holds the immutable cost parameters and secret pepper for a [Hasher].
//
// It is constructed exactly once during application bootstrap; the zero value
// is not usable and [NewHasher] rejects out-of-range parameters.
type HasherConfig struct {
	// Pepper is the server-side secret mixed into every hash. Never stored
	// alongside the hash.
	Pepper []byte

	// Time is the Argon2id iteration count.
	Time uint32

	// MemoryKiB is the Argon2id memory cost in KiB.
	MemoryKiB uint32

	// Parallelism is the Argon2id lane count.
	Parallelism uint8

	// SaltLength is the random salt size in bytes. Defaults to 16.
	SaltLength uint32

	// KeyLength is the derived key size in bytes. Defaults to 32.
	KeyLength uint32

	// Workers bounds how many derivations may run concurrently.
	// Defaults to GOMAXPROCS.
	Workers int
}

// Hasher produces and checks Argon2id password hashes.
//
// # Concurrency
//
// A Hasher is immutable after construction and safe for unlimited concurrent
// use. Each Hash/Verify call borrows one of a fixed number of worker slots for
// the CPU-heavy derivation; callers queue (respecting their context) when all
// slots are busy, so hashing load degrades gracefully instead of starving
// unrelated request handling.
type Hasher struct {
	cfg   HasherConfig
	slots chan struct{}
}

// NewHasher validates the configuration and returns a ready-to-use [Hasher].
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	if len(cfg.Pepper) == 0 {
		return nil, fmt.Errorf("%w: pepper must not be empty", ErrInvalidHasherConfig)
	}
	if cfg.Time < minTimeCost {
		return nil, fmt.Errorf("%w: time cost must be >= %d", ErrInvalidHasherConfig, minTimeCost)
	}
	if cfg.MemoryKiB < minMemoryKiB {
		return nil, fmt.Errorf("%w: memory must be >= %d KiB", ErrInvalidHasherConfig, minMemoryKiB)
	}
	if cfg.Parallelism < minParallelism {
		return nil, fmt.Errorf("%w: parallelism must be >= %d", ErrInvalidHasherConfig, minParallelism)
	}

	if cfg.SaltLength == 0 {
		cfg.SaltLength = defaultSaltLen
	}
	if cfg.KeyLength == 0 {
		cfg.KeyLength = defaultKeyLen
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	// Defensive copy: the caller must not be able to mutate the pepper later.
	pepper := make([]byte, len(cfg.Pepper))
	copy(pepper, cfg.Pepper)
	cfg.Pepper = pepper

	return &Hasher{
		cfg:   cfg,
		slots: make(chan struct{}, cfg.Workers),
	}, nil
}

// # Hashing

/*
Hash derives an Argon2id hash of the password under a fresh random salt.

Description: The salt is never reused; two calls with the same password yield
distinct hash strings that both verify. The result is a self-describing PHC
string embedding algorithm, version, cost parameters, and salt.

Parameters:
  - ctx: context.Context (honored while waiting for a worker slot)
  - password: []byte

Returns:
  - string: PHC-encoded hash ("$argon2id$v=19$m=..,t=..,p=..$salt$digest")
  - error: Context cancellation or entropy failures
*/
func (h *Hasher) Hash(ctx context.Context, password []byte) (string, error) {
	salt := make([]byte, h.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("sec: salt generation failed: %w", err)
	}

	digest, err := h.derive(ctx, password, salt, h.cfg.Time, h.cfg.MemoryKiB, h.cfg.Parallelism, h.cfg.KeyLength)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.cfg.MemoryKiB,
		h.cfg.Time,
		h.cfg.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

/*
Verify re-derives the password under the parameters embedded in encodedHash and
compares in constant time.

Description: A well-formed but non-matching hash yields (false, nil). An error
is returned only for malformed hash strings ([ErrMalformedHash]) or context
cancellation — callers must branch on the boolean, not the error, for the
wrong-password case.

Parameters:
  - ctx: context.Context
  - password: []byte
  - encodedHash: string (PHC format)

Returns:
  - bool: Whether the password matches
  - error: ErrMalformedHash or context errors
*/
func (h *Hasher) Verify(ctx context.Context, password []byte, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed, err := h.derive(ctx, password, parsed.salt, parsed.time, parsed.memory, parsed.parallelism, parsed.keyLength)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(computed, parsed.digest) == 1, nil
}

// derive runs the peppered Argon2id derivation inside a worker slot.
func (h *Hasher) derive(ctx context.Context, password, salt []byte, time, memory uint32, parallelism uint8, keyLength uint32) ([]byte, error) {
	select {
	case h.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("sec: derivation aborted: %w", ctx.Err())
	}
	defer func() { <-h.slots }()

	// The pepper enters via an HMAC pre-hash rather than the salt or the PHC
	// string: hashes derived without the pepper never verify, and the pepper
	// itself is absent from storage.
	mac := hmac.New(sha256.New, h.cfg.Pepper)
	mac.Write(password)
	peppered := mac.Sum(nil)

	return argon2.IDKey(peppered, salt, time, memory, parallelism, keyLength), nil
}

// # PHC Parsing

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	digest      []byte
	keyLength   uint32
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: want 6 '$'-separated segments", ErrMalformedHash)
	}

	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if !strings.HasPrefix(parts[2], "v=") || err != nil {
		return nil, fmt.Errorf("%w: bad version segment", ErrMalformedHash)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	params, err := parsePHCParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("%w: bad salt encoding", ErrMalformedHash)
	}

	digest, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return nil, fmt.Errorf("%w: bad digest encoding", ErrMalformedHash)
	}

	return &parsedPHC{
		memory:      params.memory,
		time:        params.time,
		parallelism: params.parallelism,
		salt:        salt,
		digest:      digest,
		keyLength:   uint32(len(digest)),
	}, nil
}

type phcParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parsePHCParams(segment string) (*phcParams, error) {
	pairs := strings.Split(segment, ",")
	if len(pairs) != 3 {
		return nil, fmt.Errorf("%w: want m,t,p parameters", ErrMalformedHash)
	}

	var (
		params                             phcParams
		memorySet, timeSet, parallelismSet bool
	)

	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("%w: bad parameter entry %q", ErrMalformedHash, pair)
		}

		switch kv[0] {
		case "m":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v == 0 {
				return nil, fmt.Errorf("%w: bad memory parameter", ErrMalformedHash)
			}
			params.memory = uint32(v)
			memorySet = true
		case "t":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v == 0 {
				return nil, fmt.Errorf("%w: bad time parameter", ErrMalformedHash)
			}
			params.time = uint32(v)
			timeSet = true
		case "p":
			v, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil || v == 0 {
				return nil, fmt.Errorf("%w: bad parallelism parameter", ErrMalformedHash)
			}
			params.parallelism = uint8(v)
			parallelismSet = true
		default:
			return nil, fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, kv[0])
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return nil, fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}

	return &params, nil
}
