package ledger

import (
	"syscall"
	"time"
	"unicode/utf8"

	. "github.com/stevegt/goadapt"
)

const DefaultGenesisHolder = "founder"

// Config holds the parameters every process opening the same chain
// must agree on.  The zero value is usable.
type Config struct {
	// Difficulty is the hex prefix a puzzle hash must start with.
	Difficulty string `json:"difficulty"`
	// MaxIterations caps each mining search; 0 means no cap.
	MaxIterations uint64 `json:"maxIterations"`
	// GenesisHolder is the payee of the genesis transaction.
	GenesisHolder string `json:"genesisHolder"`
	// AllowUnboundPayer turns off the check that the submitting key
	// is the payer's key.
	AllowUnboundPayer bool `json:"allowUnboundPayer"`
	// Now is the block clock; nil means time.Now.
	Now func() time.Time `json:"-"`
}

// WithDefaults fills in the zero fields.
func (cfg Config) WithDefaults() Config {
	if cfg.Difficulty == "" {
		cfg.Difficulty = DefaultDifficulty
	}
	if cfg.GenesisHolder == "" {
		cfg.GenesisHolder = DefaultGenesisHolder
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return cfg
}

func (cfg Config) check() (out Config, err error) {
	defer Return(&err)
	out = cfg.WithDefaults()
	ErrnoIf(!validTarget(out.Difficulty), syscall.EINVAL, "difficulty must be lowercase hex: %q", out.Difficulty)
	ErrnoIf(!utf8.ValidString(out.GenesisHolder), syscall.EINVAL, "genesis holder is not UTF-8: %q", out.GenesisHolder)
	return
}
