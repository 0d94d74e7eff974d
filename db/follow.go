package db

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/t7a/pitledger/ledger"
)

// Follow calls fn for every stored block at height from or above, in
// order, then keeps watching the stream dir and calls fn again as new
// blocks are appended, possibly by another process.  It returns when
// ctx is done or fn returns an error.
func (c *Chain) Follow(ctx context.Context, from int, fn func(height int, b ledger.Block) error) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	defer watcher.Close()
	// watch before the first load so no append slips between them
	err = watcher.Add(filepath.Join(c.Db.Dir, "stream"))
	if err != nil {
		return
	}

	next := from
	if next < 0 {
		next = 0
	}
	emit := func() error {
		blocks, err := c.Load()
		if err != nil {
			return err
		}
		for ; next < len(blocks); next++ {
			err = fn(next, blocks[next])
			if err != nil {
				return err
			}
		}
		return nil
	}

	err = emit()
	if err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != c.Label {
				continue
			}
			log.Debugf("follow: %v", event)
			err = emit()
			if err != nil {
				return
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("follow: %v", werr)
		}
	}
}
