package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

var (
	// ErrMalformedHash is returned when a stored digest cannot be parsed as an argon2id PHC string.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrEmptyInput is returned when Hash is called with an empty input.
	ErrEmptyInput = errors.New("password input is empty")
)

// Config is one Argon2id cost profile.
//
// Memory is expressed in KiB. Profiles are built once from configuration and treated as
// immutable afterwards.
type Config struct {
	Memory      uint32 `yaml:"memory"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"salt_length"`
	KeyLength   uint32 `yaml:"key_length"`
}

// BaseProfile returns the profile used when a password is first set.
func BaseProfile() Config {
	return Config{Memory: 1 << 16, Time: 4, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

// StrongProfile returns the profile digests are upgraded to on login.
func StrongProfile() Config {
	return Config{Memory: 1 << 17, Time: 6, Parallelism: 4, SaltLength: 16, KeyLength: 32}
}

// Validate reports whether cfg satisfies the minimum cost floor.
func (c Config) Validate() error {
	return validateConfig(c)
}

// Argon2 encodes and verifies PHC-formatted argon2id digests for a single profile.
//
// Argon2 is safe for concurrent use.
type Argon2 struct {
	config Config
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

// NewArgon2 validates cfg and returns a hasher for it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg}, nil
}

// Config returns the profile this hasher encodes with.
func (a *Argon2) Config() Config {
	return a.config
}

// Hash derives a fresh-salted digest for input.
//
// Input is used byte-for-byte; callers pass the peppered prehash, never the raw password.
func (a *Argon2) Hash(input string) (string, error) {
	if input == "" {
		return "", ErrEmptyInput
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(input),
		salt,
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	saltEncoded := base64.StdEncoding.EncodeToString(salt)
	hashEncoded := base64.StdEncoding.EncodeToString(hash)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		saltEncoded,
		hashEncoded,
	), nil
}

// Verify recomputes input under the parameters embedded in encodedHash and compares in
// constant time. The receiver's own profile is not consulted, so digests from any profile verify.
func (a *Argon2) Verify(input string, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	return parsed.matches(input), nil
}

func (p *parsedPHC) matches(input string) bool {
	computed := argon2.IDKey(
		[]byte(input),
		p.salt,
		p.time,
		p.memory,
		p.parallelism,
		p.keyLength,
	)

	return subtle.ConstantTimeCompare(computed, p.hash) == 1
}

// NeedsRehash reports whether encodedHash was produced with parameters other than target.
// Any difference counts, including a digest that is stronger than target.
func NeedsRehash(encodedHash string, target Config) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	return parsed.memory != target.Memory ||
		parsed.time != target.Time ||
		parsed.parallelism != target.Parallelism ||
		parsed.keyLength != target.KeyLength, nil
}

// Params extracts the cost profile recorded in encodedHash. SaltLength reflects the decoded salt.
func Params(encodedHash string) (Config, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Memory:      parsed.memory,
		Time:        parsed.time,
		Parallelism: parsed.parallelism,
		SaltLength:  uint32(len(parsed.salt)),
		KeyLength:   parsed.keyLength,
	}, nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, malformed("invalid PHC format")
	}

	if parts[1] != algorithmID {
		return nil, malformed("unsupported algorithm")
	}

	versionPart := parts[2]
	if !strings.HasPrefix(versionPart, "v=") {
		return nil, malformed("missing argon2 version")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(versionPart, "v="))
	if err != nil {
		return nil, malformed("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, malformed("unsupported argon2 version")
	}

	params, err := parseParams(parts[3])
	if err != nil {
		return nil, err
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, malformed("invalid salt encoding")
	}
	if len(salt) < int(minSaltLength) {
		return nil, malformed("invalid salt length")
	}

	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, malformed("invalid hash encoding")
	}
	if len(hash) == 0 {
		return nil, malformed("invalid hash length")
	}

	return &parsedPHC{
		memory:      params.memory,
		time:        params.time,
		parallelism: params.parallelism,
		salt:        salt,
		hash:        hash,
		keyLength:   uint32(len(hash)),
	}, nil
}

type parsedParams struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func parseParams(part string) (*parsedParams, error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return nil, malformed("invalid parameter format")
	}

	var (
		memorySet, timeSet, parallelismSet bool
		params                             parsedParams
	)

	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, malformed("invalid parameter entry")
		}

		switch kv[0] {
		case "m":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return nil, malformed("invalid memory parameter")
			}
			params.memory = uint32(v)
			memorySet = true
		case "t":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return nil, malformed("invalid time parameter")
			}
			params.time = uint32(v)
			timeSet = true
		case "p":
			v, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return nil, malformed("invalid parallelism parameter")
			}
			params.parallelism = uint8(v)
			parallelismSet = true
		default:
			return nil, malformed("unsupported parameter")
		}
	}

	if !memorySet || !timeSet || !parallelismSet {
		return nil, malformed("missing parameters")
	}

	return &params, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}

	return nil
}
