package db

import (
	"fmt"
	"hash"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// file modes
const (
	READ  = 0444
	WRITE = 0644
)

// WORM is a write-once-read-many file.  A new WORM is written to a
// temp file; Close names it after the hash of its content.
type WORM struct {
	Db *Db
	*Path
	mode os.FileMode
	fh   *os.File
	hash hash.Hash
}

func CreateWORM(db *Db, class string, algo string) (file *WORM, err error) {
	defer Return(&err)
	file = &WORM{Db: db, mode: WRITE}
	// Path.New would try to parse the empty Raw field
	file.Path = &Path{Db: db, Class: class, Algo: algo}
	file.hash, err = newHash(algo)
	Ck(err)
	return
}

func OpenWORM(db *Db, path *Path) (file *WORM, err error) {
	defer Return(&err)
	ErrnoIf(len(path.Abs) == 0, syscall.EINVAL, "empty path")
	ErrnoIf(!exists(path.Abs), syscall.ENOENT, "not found: %s", path.Abs)
	file = &WORM{Db: db, Path: path, mode: READ}
	return
}

// gets called by Read() and Write()
func (file *WORM) ckopen() (err error) {
	defer Return(&err)

	if file.fh != nil {
		return
	}
	header := []byte(file.header())
	switch file.mode {
	case WRITE:
		file.fh, err = ioutil.TempFile(file.Db.Dir, "*.tmp")
		Ck(err)
		_, err = file.fh.Write(header)
		Ck(err)
		// the header is hashed too, so a blob and a tree with the
		// same content get different names
		_, err = file.hash.Write(header)
		Ck(err)
	case READ:
		file.fh, err = os.Open(file.Path.Abs)
		Ck(err)
		buf := make([]byte, len(header))
		_, err = io.ReadFull(file.fh, buf)
		if err != nil || string(buf) != string(header) {
			file.fh.Close()
			file.fh = nil
			return fmt.Errorf("malformed header: %q file: %s", buf, file.Path.Abs)
		}
	default:
		Assert(false, "bad mode %v", file.mode)
	}
	return
}

// Close finishes a write by renaming the temp file to its permanent
// hash-derived path.  On a read-only file it just closes the handle.
func (file *WORM) Close() (err error) {
	defer Return(&err)
	if file.fh == nil {
		return
	}
	if file.mode == READ {
		file.fh.Close()
		file.fh = nil
		return
	}

	tmpname := file.fh.Name()
	err = file.fh.Close()
	Ck(err)
	file.fh = nil

	Assert(file.Path.Class != "")
	Assert(file.Path.Algo != "")
	canpath := fmt.Sprintf("%s/%s/%s", file.Path.Class, file.Path.Algo, bin2hex(file.hash.Sum(nil)))
	file.Path, err = Path{}.New(file.Db, canpath)
	Ck(err)

	dir, _ := filepath.Split(file.Path.Abs)
	err = os.MkdirAll(dir, 0755)
	Ck(err)
	err = os.Chmod(tmpname, READ)
	Ck(err)
	err = os.Rename(tmpname, file.Path.Abs)
	Ck(err)
	file.mode = READ

	log.Debugf("wrote %s", file.Path.Canon)
	return
}

// Read reads file content, not including the header.  Supports the
// io.Reader interface.
func (file *WORM) Read(buf []byte) (n int, err error) {
	if file.mode != READ {
		return 0, fmt.Errorf("file not yet closed: %s", file.Path.Class)
	}
	err = file.ckopen()
	if err != nil {
		return
	}
	return file.fh.Read(buf)
}

// ReadAll returns the whole content and closes the file.
func (file *WORM) ReadAll() (buf []byte, err error) {
	defer Return(&err)
	defer file.Close()
	buf, err = ioutil.ReadAll(file)
	Ck(err)
	return
}

// Write adds data to a new file.  Large files can be written using
// multiple Write() calls.  Supports the io.Writer interface.
func (file *WORM) Write(data []byte) (n int, err error) {
	if file.mode == READ {
		err = fmt.Errorf("cannot write to existing object: %s", file.Path.Abs)
		return
	}
	err = file.ckopen()
	if err != nil {
		return
	}
	file.hash.Write(data)
	return file.fh.Write(data)
}

// Verify rehashes the file and compares the result with its name.
func (file *WORM) Verify() (err error) {
	defer Return(&err)
	buf, err := ioutil.ReadFile(file.Path.Abs)
	Ck(err)
	binhash, err := Hash(file.Path.Algo, buf)
	Ck(err)
	if bin2hex(binhash) != file.Path.Hash {
		return fmt.Errorf("hash mismatch: %s", file.Path.Canon)
	}
	return
}
