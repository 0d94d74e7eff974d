package db

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/stevegt/goadapt"

	"github.com/t7a/pitledger/ledger"
)

const testDbDirPrefix = "pitledger"

// test boolean condition
func tassert(t *testing.T, cond bool, txt string, args ...interface{}) {
	t.Helper() // cause file:line info to show caller
	if !cond {
		t.Fatalf(txt, args...)
	}
}

func mkbuf(s string) []byte {
	return []byte(s)
}

func pathFromBuf(db *Db, class string, algo string, buf []byte) (path *Path, err error) {
	b := append([]byte(class+"\n"), buf...)
	binhash, err := Hash(algo, b)
	if err != nil {
		return
	}
	return Path{}.New(db, filepath.Join(class, algo, bin2hex(binhash)))
}

func setup(t *testing.T, db *Db) *Db {
	var err error
	var dir string

	if db == nil {
		db = &Db{}
	}
	Assert(db.Dir == "")

	if os.Getenv("DEBUG") == "1" {
		dir, err = ioutil.TempDir("", testDbDirPrefix)
		Ck(err)
		fmt.Println(dir)
		// no cleanup
	} else {
		dir = t.TempDir()
	}
	db.Dir = dir

	_, err = db.Create()
	Ck(err)
	db, err = Open(dir)
	Ck(err)
	tassert(t, db != nil, "db is nil")
	return db
}

// mkchain mines n linked blocks at a low difficulty.
func mkchain(t *testing.T, n int) (blocks []ledger.Block) {
	t.Helper()
	ctx := context.Background()
	var prev string
	for i := 0; i < n; i++ {
		tx := ledger.GenesisTransaction("founder")
		if i > 0 {
			tx = ledger.NewTransaction(float64(i), "alice", "bob")
		}
		b, err := ledger.NewUnminedBlock(prev, tx, int64(1000+i)).Mine(ctx, "0", 0)
		tassert(t, err == nil, "mine: %v", err)
		blocks = append(blocks, b)
		prev = b.Hash()
	}
	return
}

func hashes(blocks []ledger.Block) (out []string) {
	for _, b := range blocks {
		out = append(out, b.Hash())
	}
	return
}
