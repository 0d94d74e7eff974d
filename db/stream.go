package db

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	. "github.com/stevegt/goadapt"
)

// Stream is a label pointing at the newest tree of an append-only
// sequence of blobs.
type Stream struct {
	Db    *Db
	Label string
	Head  *Tree
	Path  *Path
}

// New returns a stream for label; it does not touch the filesystem.
func (stream Stream) New(db *Db, label string, head *Tree) (out *Stream, err error) {
	defer Return(&err)
	ErrnoIf(!validLabel(label), syscall.EINVAL, "invalid label: %q", label)
	stream.Db = db
	stream.Label = label
	stream.Head = head
	stream.Path, err = Path{}.New(db, filepath.Join("stream", label))
	Ck(err)
	return &stream, nil
}

func validLabel(label string) bool {
	if label == "" || label == "." || label == ".." {
		return false
	}
	return !strings.ContainsAny(label, "/\x00") && !strings.HasPrefix(label, ".")
}

// OpenStream follows the symlink for label.
func (db *Db) OpenStream(label string) (stream *Stream, err error) {
	defer Return(&err)
	stream, err = Stream{}.New(db, label, nil)
	Ck(err)
	src, err := os.Readlink(stream.Path.Abs)
	Ck(err)
	path, err := Path{}.New(db, filepath.Join(db.Dir, "stream", src))
	Ck(err)
	stream.Head, err = db.GetTree(path)
	Ck(err)
	return
}

// AppendBlob adds buf to the stream and moves the label to the new
// head.  A stream with no head starts a new tree.
func (stream *Stream) AppendBlob(algo string, buf []byte) (err error) {
	defer Return(&err)
	var head *Tree
	if stream.Head == nil {
		blob, err := stream.Db.PutBlob(algo, buf)
		Ck(err)
		head, err = stream.Db.PutTree(algo, blob)
		Ck(err)
	} else {
		head, err = stream.Head.AppendBlob(algo, buf)
		Ck(err)
	}
	_, err = head.LinkStream(stream.Label)
	Ck(err)
	stream.Head = head
	return
}
