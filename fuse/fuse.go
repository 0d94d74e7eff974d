// Package fuse mounts a read-only view of a ledger chain:
//
//	head            hash of the newest block, newline-terminated
//	blocks/<height> canonical bytes of each block
package fuse

import (
	"context"
	"strconv"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	log "github.com/sirupsen/logrus"
	. "github.com/stevegt/goadapt"

	"github.com/t7a/pitledger/ledger"
)

// Source supplies the chain; *ledger.Ledger is one.
type Source interface {
	AllBlocks() []ledger.Block
}

type DirNode struct {
	fs.Inode
}

func (r *DirNode) Readdir(ctx context.Context) (stream fs.DirStream, errno syscall.Errno) {
	entries := []fuse.DirEntry{
		{Mode: syscall.S_IFDIR, Name: "."},
		{Mode: syscall.S_IFDIR, Name: ".."},
	}
	for name, child := range r.Children() {
		entry := fuse.DirEntry{Mode: child.Mode(), Name: name}
		entries = append(entries, entry)
	}
	return fs.NewListDirStream(entries), 0
}

func (r *DirNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0555
	return 0
}

// root

type fsRoot struct {
	DirNode
	src Source
}

var _ = (fs.NodeOnAdder)((*fsRoot)(nil))

func (root *fsRoot) OnAdd(ctx context.Context) {
	head := root.NewPersistentInode(ctx,
		&fileNode{content: func() []byte { return headContent(root.src) }},
		fs.StableAttr{Mode: fuse.S_IFREG},
	)
	root.AddChild("head", head, false)
	blocks := root.NewPersistentInode(ctx,
		&blocksNode{src: root.src},
		fs.StableAttr{Mode: fuse.S_IFDIR},
	)
	root.AddChild("blocks", blocks, false)
}

func headContent(src Source) []byte {
	blocks := src.AllBlocks()
	if len(blocks) == 0 {
		return nil
	}
	return []byte(blocks[len(blocks)-1].Hash() + "\n")
}

// blocks

type blocksNode struct {
	DirNode
	src Source
}

var _ = (fs.NodeReaddirer)((*blocksNode)(nil))
var _ = (fs.NodeLookuper)((*blocksNode)(nil))

func (n *blocksNode) Readdir(ctx context.Context) (stream fs.DirStream, errno syscall.Errno) {
	entries := []fuse.DirEntry{
		{Mode: syscall.S_IFDIR, Name: "."},
		{Mode: syscall.S_IFDIR, Name: ".."},
	}
	for _, name := range blockNames(len(n.src.AllBlocks())) {
		entries = append(entries, fuse.DirEntry{Mode: fuse.S_IFREG, Name: name})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *blocksNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (child *fs.Inode, errno syscall.Errno) {
	defer Unpanic(&errno, msglog)
	blocks := n.src.AllBlocks()
	height, ok := parseHeight(name, len(blocks))
	if !ok {
		return nil, syscall.ENOENT
	}
	// blocks never change once appended
	buf := blocks[height].CanonicalBytes()
	node := &fileNode{content: func() []byte { return buf }, keepCache: true}
	out.Size = uint64(len(buf))
	out.Mode = fuse.S_IFREG | 0444
	child = n.NewInode(ctx, node, fs.StableAttr{Mode: fuse.S_IFREG})
	return child, 0
}

func blockNames(n int) (names []string) {
	for i := 0; i < n; i++ {
		names = append(names, strconv.Itoa(i))
	}
	return
}

// parseHeight accepts only the names blockNames makes.
func parseHeight(name string, n int) (height int, ok bool) {
	height, err := strconv.Atoi(name)
	if err != nil || height < 0 || height >= n || strconv.Itoa(height) != name {
		return 0, false
	}
	return height, true
}

// files

type fileNode struct {
	fs.Inode
	content   func() []byte
	keepCache bool
}

var _ = (fs.NodeOpener)((*fileNode)(nil))
var _ = (fs.NodeGetattrer)((*fileNode)(nil))
var _ = (fs.NodeSetattrer)((*fileNode)(nil))

func (n *fileNode) Open(ctx context.Context, flags uint32) (fh fs.FileHandle, outflags uint32, errno syscall.Errno) {
	defer Unpanic(&errno, msglog)
	// disallow writes
	if flags&(syscall.O_RDWR|syscall.O_WRONLY|syscall.O_TRUNC) != 0 {
		return nil, 0, syscall.EROFS
	}
	fh = &fileHandle{data: n.content()}
	if n.keepCache {
		outflags = fuse.FOPEN_KEEP_CACHE
	} else {
		outflags = fuse.FOPEN_DIRECT_IO
	}
	return fh, outflags, fs.OK
}

func (n *fileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) (errno syscall.Errno) {
	defer Unpanic(&errno, msglog)
	out.Mode = 0444
	out.Size = uint64(len(n.content()))
	return 0
}

func (n *fileNode) Setattr(ctx context.Context, fh fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

// fileHandle holds the content as of Open.
type fileHandle struct {
	data []byte
}

var _ = (fs.FileReader)((*fileHandle)(nil))

func (fh *fileHandle) Read(ctx context.Context, buf []byte, offset int64) (res fuse.ReadResult, errno syscall.Errno) {
	if offset >= int64(len(fh.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := offset + int64(len(buf))
	if end > int64(len(fh.data)) {
		end = int64(len(fh.data))
	}
	return fuse.ReadResultData(fh.data[offset:end]), 0
}

// server

// Mount serves src at mnt until the returned server is unmounted.
func Mount(src Source, mnt string) (server *fuse.Server, err error) {
	defer Return(&err)
	opts := &fs.Options{}
	opts.Debug = log.IsLevelEnabled(log.DebugLevel)
	// start inode numbers at 2^16
	opts.FirstAutomaticIno = 1 << 16
	server, err = fs.Mount(mnt, &fsRoot{src: src}, opts)
	Ck(err)
	err = server.WaitMount()
	Ck(err)
	return
}

func msglog(msg string) {
	log.Errorf("unpanic: %v", msg)
}
