package db

// Object is anything stored under a hash-derived path.
type Object interface {
	GetPath() *Path
}

// Blob holds the canonical bytes of one ledger block.
type Blob struct {
	Db *Db
	*WORM
}

func (blob Blob) New(db *Db, file *WORM) *Blob {
	blob.Db = db
	blob.WORM = file
	return &blob
}

func (blob *Blob) GetPath() *Path {
	return blob.Path
}
