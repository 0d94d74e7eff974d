/*

Package db stores a ledger chain as write-once, content-addressed
files.

Vocabulary:

- abspath: absolute path on hard disk, including subdirs
- relpath: path relative to db.Dir, including subdirs
- canpath: canonical path; relpath without subdirs
- hash: cryptographic hash of a file's header and content
- algo: name (string) describing hash algorithm
- subdir: three-character hexadecimal segment of hash
- subdirs: one or more subdir segments inserted in abspath or relpath
	in order to keep directory sizes small; the number of subdirs is fixed
	at database creation
- blob: file of class "block" holding the canonical bytes of one
	ledger block
- tree: file of class "tree" listing child canpaths, one per line
- stream: symlink under stream/ pointing at the newest tree
- label: the name of a stream symlink

A chain of n blocks is n trees: tree 0 lists blob 0, and tree i lists
tree i-1 followed by blob i.  Appending a block writes one blob and
one tree and then atomically repoints the "chain" label, so a reader
always sees a whole chain.

Note that a file's hash covers its "class\n" header, so the hash in a
blob's path is not the ledger block hash.

*/

package db
