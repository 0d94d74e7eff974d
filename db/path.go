package db

import (
	"fmt"
	"path/filepath"
	"strings"
	"syscall"

	. "github.com/stevegt/goadapt"
)

type Path struct {
	Db    *Db
	Raw   string
	Abs   string // absolute
	Rel   string // relative
	Canon string // canonical
	Class string
	Algo  string
	Hash  string
	Addr  string
	Label string // stream label
}

// New parses raw, which may be an abspath, relpath, or canpath.
func (path Path) New(db *Db, raw string) (res *Path, err error) {
	defer Return(&err)
	path.Db = db
	path.Raw = raw

	clean := filepath.Clean(raw)
	clean = strings.TrimPrefix(clean, db.Dir+"/")

	parts := strings.Split(clean, "/")
	ErrnoIf(len(parts) < 2, syscall.EINVAL, "malformed path: %s", raw)
	path.Class = parts[0]
	if path.Class == "stream" {
		path.Label = filepath.Join(parts[1:]...)
		path.Rel = filepath.Join(path.Class, path.Label)
		path.Abs = filepath.Join(db.Dir, path.Rel)
		path.Canon = path.Rel
		return &path, nil
	}

	ErrnoIf(len(parts) < 3, syscall.EINVAL, "malformed path: %s", raw)
	path.Algo = parts[1]
	// the last part is always the full hash, whether we were given
	// the full or canonical path
	path.Hash = parts[len(parts)-1]
	ErrnoIf(len(path.Hash) < 3*db.Depth, syscall.EINVAL, "short hash: %s", raw)

	// nest by db.Depth three-character subdirs; keep the full hash
	// in the last component so UNIX tools still show it
	var subpath string
	for i := 0; i < db.Depth; i++ {
		subdir := path.Hash[(3 * i):((3 * i) + 3)]
		subpath = filepath.Join(subpath, subdir)
	}
	path.Rel = filepath.Join(path.Class, path.Algo, subpath, path.Hash)
	path.Abs = filepath.Join(db.Dir, path.Rel)
	path.Canon = filepath.Join(path.Class, path.Algo, path.Hash)
	path.Addr = filepath.Join(path.Algo, path.Hash)
	return &path, nil
}

func (path *Path) header() string {
	return fmt.Sprintf("%s\n", path.Class)
}
