package db

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"

	. "github.com/stevegt/goadapt"

	"github.com/t7a/pitledger/ledger"
	"github.com/t7a/pitledger/sig"
)

// Db is a directory of write-once files.  Depth is the number of
// subdirectory levels in the block and tree dirs.  We use
// three-character hexadecimal names for the subdirectories, giving
// at most 4096 subdirs in a parent dir.
type Db struct {
	Dir    string        `json:"-"`
	Depth  int           // number of subdir levels in block and tree dirs
	Algo   string        // hash algorithm for new files
	Scheme string        // signature scheme wallets should use
	Ledger ledger.Config // mining and admission parameters
}

// Open loads an existing db object from dir.
func Open(dir string) (db *Db, err error) {
	dir = filepath.Clean(dir)
	if !canstat(dir) {
		return nil, fmt.Errorf("cannot open: %s", dir)
	}
	buf, err := ioutil.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, &NotDbError{Dir: dir}
	}
	db = &Db{}
	err = json.Unmarshal(buf, db)
	if err != nil {
		return nil, err
	}
	db.Dir = dir
	return
}

// Create initializes a db directory and its contents.  A directory
// that already holds a config is refused; other contents, such as a
// wallet dir, are left alone.
func (db Db) Create() (out *Db, err error) {
	defer Return(&err)

	db.Dir = filepath.Clean(db.Dir)
	dir := db.Dir
	if canstat(filepath.Join(dir, "config.json")) {
		return nil, &ExistsError{Dir: dir}
	}

	if db.Depth < 1 {
		db.Depth = 2
	}
	if db.Algo == "" {
		db.Algo = "sha256"
	}
	_, err = newHash(db.Algo)
	Ck(err)
	if db.Scheme == "" {
		db.Scheme = sig.Default
	}
	_, err = sig.Lookup(db.Scheme)
	Ck(err)
	// config.json holds the effective values, not the zero ones
	db.Ledger = db.Ledger.WithDefaults()

	for _, sub := range []string{"", "block", "tree", "stream"} {
		err = mkdir(filepath.Join(dir, sub))
		Ck(err)
	}

	buf, err := json.MarshalIndent(db, "", "  ")
	Ck(err)
	err = ioutil.WriteFile(filepath.Join(dir, "config.json"), buf, 0644)
	Ck(err)

	return &db, nil
}

type ExistsError struct {
	Dir string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("already exists: %s", e.Dir)
}

type NotDbError struct {
	Dir string
}

func (e *NotDbError) Error() string {
	return fmt.Sprintf("not a database: %s", e.Dir)
}

// PutBlob stores buf as a new blob.
func (db *Db) PutBlob(algo string, buf []byte) (blob *Blob, err error) {
	defer Return(&err)
	file, err := CreateWORM(db, "block", algo)
	Ck(err)
	_, err = file.Write(buf)
	Ck(err)
	err = file.Close()
	Ck(err)
	return Blob{}.New(db, file), nil
}

// GetBlob retrieves an entire blob, after checking that its content
// still hashes to its name.
func (db *Db) GetBlob(path *Path) (buf []byte, err error) {
	file, err := OpenWORM(db, path)
	if err != nil {
		return nil, err
	}
	err = file.Verify()
	if err != nil {
		return nil, err
	}
	return file.ReadAll()
}
