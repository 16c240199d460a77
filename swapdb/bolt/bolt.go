// Package bolt implements the legacy swapdb.Store backend on go.etcd.io/bbolt,
// the maintained successor to the boltdb/bolt fork channeldb.Open is built
// on. Bucket layout, big-endian key ordering, and the dbVersions/migration
// walk follow channeldb/db.go directly; the bucket set is new (swap records
// and three index buckets rather than channel/graph state).
package bolt

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/athanorlabs/btcxmrswap/swapdb"
	"github.com/athanorlabs/btcxmrswap/swaplog"
)

var log = swaplog.SubLogger("SDBB")

const dbFileName = "swaps.db"
const dbFilePermission = 0600

var (
	swapBucket      = []byte("swap-records")
	moneroAddrIndex = []byte("swap-monero-addr")
	peerIDIndex     = []byte("swap-peer-id")
	peerAddrsIndex  = []byte("peer-addrs")
)

// migration mutates the bucket layout of an older schema version into the
// current one, matching channeldb's migration type exactly.
type migration func(tx *bbolt.Tx) error

type version struct {
	number    uint32
	migration migration
}

// dbVersions lists every schema version in order; only version 0 (no
// migration) exists so far.
var dbVersions = []version{
	{number: 0, migration: nil},
}

var dbVersionKey = []byte("swapdb-version")
var metaBucket = []byte("meta")

// DB is the bbolt-backed swapdb.Store implementation.
type DB struct {
	*bbolt.DB
	path string
}

// Open opens (creating if necessary) the swap database at dir/swaps.db and
// applies any pending schema migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, dbFileName)

	bdb, err := bbolt.Open(path, dbFilePermission, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("swapdb/bolt: open %s: %w", path, err)
	}

	db := &DB{DB: bdb, path: path}
	if err := db.createBuckets(); err != nil {
		bdb.Close()
		return nil, err
	}
	if err := db.syncVersions(dbVersions); err != nil {
		bdb.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) createBuckets() error {
	return d.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{swapBucket, moneroAddrIndex, peerIDIndex, peerAddrsIndex, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
}

// syncVersions applies every migration between the database's stored
// version and the latest one in versions, exactly as channeldb.DB does.
func (d *DB) syncVersions(versions []version) error {
	curVersion, err := d.getVersion()
	if err != nil {
		return err
	}

	latest := versions[len(versions)-1].number
	if curVersion >= latest {
		return nil
	}

	log.Infof("migrating swap database from version %d to %d", curVersion, latest)

	return d.Update(func(tx *bbolt.Tx) error {
		for _, v := range versions {
			if v.number <= curVersion || v.migration == nil {
				continue
			}
			if err := v.migration(tx); err != nil {
				return err
			}
		}
		return d.putVersion(tx, latest)
	})
}

func (d *DB) getVersion() (uint32, error) {
	var v uint32
	err := d.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(metaBucket)
		if b == nil {
			return nil
		}
		raw := b.Get(dbVersionKey)
		if raw == nil {
			return nil
		}
		v = binary.BigEndian.Uint32(raw)
		return nil
	})
	return v, err
}

func (d *DB) putVersion(tx *bbolt.Tx, v uint32) error {
	b, err := tx.CreateBucketIfNotExists(metaBucket)
	if err != nil {
		return err
	}
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], v)
	return b.Put(dbVersionKey, raw[:])
}

func (d *DB) PutSwapState(rec swapdb.SwapRecord) error {
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(swapBucket)
		buf, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		return b.Put(rec.ID[:], buf)
	})
}

func (d *DB) GetSwapState(id swapdb.SwapID) (swapdb.SwapRecord, error) {
	var rec swapdb.SwapRecord
	err := d.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(swapBucket)
		raw := b.Get(id[:])
		if raw == nil {
			return swapdb.ErrNotFound
		}
		var err error
		rec, err = decodeRecord(raw)
		return err
	})
	return rec, err
}

func (d *DB) GetAllSwaps() ([]swapdb.SwapRecord, error) {
	var recs []swapdb.SwapRecord
	err := d.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(swapBucket)
		return b.ForEach(func(_, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}

func (d *DB) PutMoneroAddress(id swapdb.SwapID, addr string) error {
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(moneroAddrIndex).Put(id[:], []byte(addr))
	})
}

func (d *DB) GetMoneroAddress(id swapdb.SwapID) (string, error) {
	var addr string
	err := d.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(moneroAddrIndex).Get(id[:])
		if raw == nil {
			return swapdb.ErrNotFound
		}
		addr = string(raw)
		return nil
	})
	return addr, err
}

func (d *DB) PutPeerID(id swapdb.SwapID, peer swapdb.PeerID) error {
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(peerIDIndex).Put(id[:], []byte(peer))
	})
}

func (d *DB) GetPeerID(id swapdb.SwapID) (swapdb.PeerID, error) {
	var peer swapdb.PeerID
	err := d.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(peerIDIndex).Get(id[:])
		if raw == nil {
			return swapdb.ErrNotFound
		}
		peer = swapdb.PeerID(raw)
		return nil
	})
	return peer, err
}

func (d *DB) PutPeerAddrs(peer swapdb.PeerID, addrs []swapdb.Multiaddr) error {
	return d.Update(func(tx *bbolt.Tx) error {
		buf, err := encodeAddrs(addrs)
		if err != nil {
			return err
		}
		return tx.Bucket(peerAddrsIndex).Put([]byte(peer), buf)
	})
}

func (d *DB) GetPeerAddrs(peer swapdb.PeerID) ([]swapdb.Multiaddr, error) {
	var addrs []swapdb.Multiaddr
	err := d.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(peerAddrsIndex).Get([]byte(peer))
		if raw == nil {
			return swapdb.ErrNotFound
		}
		var err error
		addrs, err = decodeAddrs(raw)
		return err
	})
	return addrs, err
}

func (d *DB) Close() error {
	return d.DB.Close()
}

// AllRecords is used by swapdb.Migrate to enumerate every row this backend
// holds, across all four buckets, without requiring the generic Store
// interface to expose raw iteration.
func (d *DB) AllRecords() (recs []swapdb.SwapRecord, moneroAddrs map[swapdb.SwapID]string,
	peerIDs map[swapdb.SwapID]swapdb.PeerID, peerAddrs map[swapdb.PeerID][]swapdb.Multiaddr, err error) {

	moneroAddrs = make(map[swapdb.SwapID]string)
	peerIDs = make(map[swapdb.SwapID]swapdb.PeerID)
	peerAddrs = make(map[swapdb.PeerID][]swapdb.Multiaddr)

	err = d.View(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(swapBucket).ForEach(func(_, v []byte) error {
			rec, err := decodeRecord(v)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		}); err != nil {
			return err
		}

		if err := tx.Bucket(moneroAddrIndex).ForEach(func(k, v []byte) error {
			var id swapdb.SwapID
			copy(id[:], k)
			moneroAddrs[id] = string(v)
			return nil
		}); err != nil {
			return err
		}

		if err := tx.Bucket(peerIDIndex).ForEach(func(k, v []byte) error {
			var id swapdb.SwapID
			copy(id[:], k)
			peerIDs[id] = swapdb.PeerID(v)
			return nil
		}); err != nil {
			return err
		}

		return tx.Bucket(peerAddrsIndex).ForEach(func(k, v []byte) error {
			addrs, err := decodeAddrs(v)
			if err != nil {
				return err
			}
			peerAddrs[swapdb.PeerID(k)] = addrs
			return nil
		})
	})
	return
}
