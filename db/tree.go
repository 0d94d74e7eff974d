package db

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"
)

// Tree is a vertex in a Merkle tree.  Entries point at blobs or other
// trees.
type Tree struct {
	Db *Db
	*WORM
	entries []*Path
}

func (tree Tree) New(db *Db, file *WORM) *Tree {
	tree.Db = db
	tree.WORM = file
	return &tree
}

func (tree *Tree) GetPath() *Path {
	return tree.Path
}

// Entries returns the paths listed in tree, in order.
func (tree *Tree) Entries() (entries []*Path, err error) {
	if tree.entries == nil {
		err = tree.loadEntries()
		if err != nil {
			return
		}
	}
	return tree.entries, nil
}

func (tree *Tree) loadEntries() (err error) {
	defer Return(&err)
	Assert(tree.WORM != nil)

	buf, err := tree.ReadAll()
	Ck(err)
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	var entries []*Path
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		path, err := Path{}.New(tree.Db, line)
		Ck(err)
		entries = append(entries, path)
	}
	Ck(scanner.Err())
	tree.entries = entries
	return
}

// AppendBlob puts a blob in the database and returns a new tree
// listing tree followed by the blob.
func (tree *Tree) AppendBlob(algo string, buf []byte) (newtree *Tree, err error) {
	defer Return(&err)
	blob, err := tree.Db.PutBlob(algo, buf)
	Ck(err)
	newtree, err = tree.Db.PutTree(algo, tree, blob)
	Ck(err)
	return
}

// LinkStream points the symlink named label at tree, and returns the
// resulting stream.
func (tree *Tree) LinkStream(label string) (stream *Stream, err error) {
	defer Return(&err)
	stream, err = Stream{}.New(tree.Db, label, tree)
	Ck(err)
	src := filepath.Join("..", tree.Path.Rel)
	log.Debugf("link %s -> %s", stream.Path.Abs, src)
	err = renameio.Symlink(src, stream.Path.Abs)
	Ck(err)
	return
}

// PutTree writes a tree listing children, in order.
func (db *Db) PutTree(algo string, children ...Object) (tree *Tree, err error) {
	defer Return(&err)
	file, err := CreateWORM(db, "tree", algo)
	Ck(err)
	for _, child := range children {
		_, err = fmt.Fprintf(file, "%s\n", child.GetPath().Canon)
		Ck(err)
	}
	err = file.Close()
	Ck(err)
	return Tree{}.New(db, file), nil
}

// GetTree opens the tree at path.
func (db *Db) GetTree(path *Path) (tree *Tree, err error) {
	defer Return(&err)
	if path.Class != "tree" {
		return nil, fmt.Errorf("not a tree: %s", path.Canon)
	}
	file, err := OpenWORM(db, path)
	Ck(err)
	return Tree{}.New(db, file), nil
}
