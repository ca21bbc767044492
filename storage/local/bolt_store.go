// Package local is a storage backend in a single bbolt file: one bucket per mailbox,
// with the message bodies compressed.
package local

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	bolt "go.etcd.io/bbolt"
)

const (
	metadataBucket  = "metadata"
	mailboxBucket   = "mailbox"
	infoKey         = "info"
	statusKey       = "status"
	bodyPrefix      = "body-"
	msgPrefix       = "msg-"
	versionKey      = "version"
	boltFileVersion = 3
	delimiter       = "."
)

type msgProps struct {
	Flags []string
	Date  time.Time
	Size  uint32
	Hash  []byte
}

type BoltStore struct {
	dbFile   string
	db       *bolt.DB
	log      lib.Logger
	selected string
}

func NewBoltStore(filename string) (*BoltStore, error) {
	return NewBoltStoreWithLogger(filename, nil)
}

func NewBoltStoreWithLogger(filename string, logger lib.Logger) (*BoltStore, error) {
	options := *bolt.DefaultOptions
	options.Timeout = 10 * time.Second

	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", filename, err)
	}

	db, err := bolt.Open(filename, 0600, &options)
	if err != nil {
		return nil, err
	}

	return &BoltStore{
		dbFile: filename,
		db:     db,
		log:    lib.OrNoLog(logger),
	}, nil
}

func (s *BoltStore) DebugLogger(logger lib.Logger) {
	s.log = lib.OrNoLog(logger)
}

func (s *BoltStore) Delimiter() string {
	return delimiter
}

func (s *BoltStore) SupportMessageID() bool {
	return true
}

func (s *BoltStore) Exists() bool {
	_, err := os.Stat(s.dbFile)
	return err == nil
}

// Init writes the file version
func (s *BoltStore) Init() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		version := boltFileVersion
		data, err := encode(&version)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(versionKey), data)
	})
}

// Version returns the file version written by Init, or zero
func (s *BoltStore) Version() (int, error) {
	version := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(metadataBucket))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(versionKey))
		if data == nil {
			return nil
		}
		decoded, err := decode[int](data)
		if err != nil {
			return err
		}
		version = *decoded
		return nil
	})
	return version, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CreateMailbox doesn't return an error if the mailbox already exists
func (s *BoltStore) CreateMailbox(info mailbox.Info) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(mailboxBucket))
		if err != nil {
			return err
		}

		info = mailbox.ChangeDelimiter(info, s.Delimiter())

		bucket, err := root.CreateBucket([]byte(info.Name))
		if err != nil {
			if errors.Is(err, bolt.ErrBucketExists) {
				return nil
			}
			return err
		}

		err = setMailboxInfo(bucket, info)
		if err != nil {
			return err
		}

		// default status on empty mailbox
		return setMailboxStatus(bucket, mailbox.Status{
			Name:        info.Name,
			UidValidity: lib.NewUID(),
		})
	})
}

func (s *BoltStore) ListMailbox() ([]mailbox.Info, error) {
	list := make([]mailbox.Info, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(mailboxBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			// if there's a value it's not a bucket
			if v != nil {
				return nil
			}
			entry := bucket.Bucket(k)
			if entry == nil {
				return nil
			}
			info, err := getMailboxInfo(entry)
			if err != nil {
				return err
			}
			list = append(list, *info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *BoltStore) DeleteMailbox(info mailbox.Info) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(mailboxBucket))
		if bucket == nil {
			return lib.ErrMailboxNotFound
		}
		name := lib.VerifyDelimiter(info.Name, info.Delimiter, s.Delimiter())

		err := bucket.DeleteBucket([]byte(name))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("%w: %s", lib.ErrMailboxNotFound, name)
		}
		return err
	})
}

func (s *BoltStore) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	var status *mailbox.Status
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, s.Delimiter())

	err := s.db.View(func(tx *bolt.Tx) error {
		mbox, err := getMailboxBucket(tx, name)
		if err != nil {
			return err
		}
		status, err = getMailboxStatus(mbox)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.selected = name
	return status, nil
}

func (s *BoltStore) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	var messageID mailbox.MessageID
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, s.Delimiter())

	// compress outside of the transaction
	hasher := sha256.New()
	buffer := &bytes.Buffer{}
	writer := zlib.NewWriter(buffer)
	read, err := io.Copy(writer, io.TeeReader(body, hasher))
	if err != nil {
		return messageID, fmt.Errorf("cannot read message body: %w", err)
	}
	err = writer.Close()
	if err != nil {
		return messageID, fmt.Errorf("error closing zlib writer: %w", err)
	}
	if props.Size > 0 && read != int64(props.Size) {
		return messageID, fmt.Errorf("%w: advertised as %d bytes but read %d bytes from buffer", lib.ErrSizeMismatch, props.Size, read)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		mbox, err := getMailboxBucket(tx, name)
		if err != nil {
			return err
		}
		status, err := getMailboxStatus(mbox)
		if err != nil {
			return err
		}
		uid, err := mbox.NextSequence()
		if err != nil {
			return fmt.Errorf("cannot get next message ID: %w", err)
		}
		err = mbox.Put(uidKey(bodyPrefix, uid), buffer.Bytes())
		if err != nil {
			return fmt.Errorf("cannot save message body: %w", err)
		}
		s.log.Printf("Message saved: mailbox=%q uid=%d size=%d flags=%+v", name, uid, read, props.Flags)

		err = storeUID(mbox, msgPrefix, uid, &msgProps{
			Flags: lib.StripRecentFlag(props.Flags),
			Date:  props.InternalDate,
			Size:  uint32(read),
			Hash:  hasher.Sum(nil),
		})
		if err != nil {
			return err
		}

		status.Messages++
		if !lib.HasFlag(props.Flags, `\Seen`) {
			status.Unseen++
		}
		status.UidNext = uid + 1
		messageID = mailbox.NewMessageIDFromUint(uid)
		return setMailboxStatus(mbox, *status)
	})
	return messageID, err
}

// FetchMessages sends the messages in UID order. The bodies are uncompressed while the
// transaction is open: bolt values are only valid inside it.
func (s *BoltStore) FetchMessages(ctx context.Context, messages chan *mailbox.Message) error {
	defer close(messages)

	if s.selected == "" {
		return lib.ErrNotSelected
	}
	name := s.selected

	return s.db.View(func(tx *bolt.Tx) error {
		mbox, err := getMailboxBucket(tx, name)
		if err != nil {
			return err
		}

		cursor := mbox.Cursor()
		prefix := []byte(bodyPrefix)
		for key, value := cursor.Seek(prefix); key != nil && bytes.HasPrefix(key, prefix); key, value = cursor.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			uid, ok := keyUID(bodyPrefix, key)
			if !ok {
				continue
			}
			properties := &msgProps{}
			if propsData := mbox.Get(uidKey(msgPrefix, uid)); propsData != nil {
				properties, err = decode[msgProps](propsData)
				if err != nil {
					return err
				}
			}
			content, err := uncompress(value)
			if err != nil {
				return fmt.Errorf("cannot read message %d: %w", uid, err)
			}
			messages <- &mailbox.Message{
				MessageProperties: mailbox.MessageProperties{
					Flags:        properties.Flags,
					Size:         properties.Size,
					Hash:         properties.Hash,
					InternalDate: properties.Date,
				},
				Uid:  mailbox.NewMessageIDFromUint(uid),
				Body: io.NopCloser(bytes.NewReader(content)),
			}
		}
		return nil
	})
}

func (s *BoltStore) UnselectMailbox() error {
	s.selected = ""
	return nil
}

// Backup writes a consistent copy of the database
func (s *BoltStore) Backup(filename string) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(filename, 0600)
	})
}

func uncompress(value []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(value))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func getMailboxBucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(mailboxBucket))
	if bucket == nil {
		return nil, lib.ErrMailboxNotFound
	}
	mbox := bucket.Bucket([]byte(name))
	if mbox == nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrMailboxNotFound, name)
	}
	return mbox, nil
}

func setMailboxInfo(bucket *bolt.Bucket, info mailbox.Info) error {
	data, err := encode(&info)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(infoKey), data)
}

func getMailboxInfo(bucket *bolt.Bucket) (*mailbox.Info, error) {
	data := bucket.Get([]byte(infoKey))
	if data == nil {
		return nil, lib.ErrInfoNotFound
	}
	return decode[mailbox.Info](data)
}

func setMailboxStatus(bucket *bolt.Bucket, status mailbox.Status) error {
	data, err := encode(&status)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(statusKey), data)
}

func getMailboxStatus(bucket *bolt.Bucket) (*mailbox.Status, error) {
	data := bucket.Get([]byte(statusKey))
	if data == nil {
		return nil, lib.ErrStatusNotFound
	}
	return decode[mailbox.Status](data)
}

func storeUID[T any](bucket *bolt.Bucket, prefix string, uid uint64, data *T) error {
	serialized, err := encode(data)
	if err != nil {
		return err
	}
	return bucket.Put(uidKey(prefix, uid), serialized)
}
