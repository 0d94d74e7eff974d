package ledger

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultDifficulty = "0000"

// how often Mine looks at ctx
const checkEvery = 1 << 12

// PuzzleHash is the lowercase hex MD5 of the decimal string of
// seed+solution.
func PuzzleHash(seed, solution uint64) string {
	sum := md5.Sum([]byte(strconv.FormatUint(seed+solution, 10)))
	return hex.EncodeToString(sum[:])
}

// VerifyWork reports whether solution solves the puzzle for seed.
func VerifyWork(seed, solution uint64, target string) bool {
	return solution > 0 && strings.HasPrefix(PuzzleHash(seed, solution), target)
}

// Mine searches solution = 1, 2, 3... until PuzzleHash(seed,
// solution) starts with target, and returns the first hit.  If
// maxIterations is nonzero the search gives up with ErrMiningExhausted
// after that many tries.  Cancelling ctx stops the search and returns
// ctx.Err().
func Mine(ctx context.Context, seed uint64, target string, maxIterations uint64) (solution uint64, err error) {
	for solution = 1; ; solution++ {
		if maxIterations > 0 && solution > maxIterations {
			return 0, errors.Wrapf(ErrMiningExhausted, "seed %d after %d tries", seed, maxIterations)
		}
		if solution%checkEvery == 0 {
			err = ctx.Err()
			if err != nil {
				return 0, err
			}
		}
		if strings.HasPrefix(PuzzleHash(seed, solution), target) {
			log.Debugf("mined seed %d solution %d", seed, solution)
			return solution, nil
		}
	}
}

func validTarget(target string) bool {
	if len(target) > md5.Size*2 {
		return false
	}
	for _, c := range target {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
