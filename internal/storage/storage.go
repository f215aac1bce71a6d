package storage

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/keshon/datastore"
)

const commandHistoryLimit int = 20

// GlobalScope is the record key used for global application commands.
const GlobalScope = "global"

type Storage struct {
	ds     *datastore.DataStore
	cancel context.CancelFunc
}

// CommandHistoryRecord is one command invocation.
type CommandHistoryRecord struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	GuildName   string    `json:"guild_name"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Command     string    `json:"command"`
	Kind        string    `json:"kind"`
	Plugin      string    `json:"plugin"`
	Datetime    time.Time `json:"datetime"`
}

// Record is everything stored for one guild, or for GlobalScope.
type Record struct {
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
	// CommandHashes maps command names to the hash of the definition last
	// synced to Discord.
	CommandHashes map[string]string `json:"cmd_hashes"`
}

// New opens the store at filePath. The datastore saves in the background
// until ctx is done or Close is called.
func New(ctx context.Context, filePath string) (*Storage, error) {
	ctx, cancel := context.WithCancel(ctx)
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Storage{ds: ds, cancel: cancel}, nil
}

// Close stops the background saver and writes the final snapshot.
func (s *Storage) Close() error {
	s.cancel()
	return s.ds.Close()
}

// getOrCreateRecord returns the record for key, or an empty one.
func (s *Storage) getOrCreateRecord(key string) (*Record, error) {
	var rec Record
	if _, err := s.ds.Get(key, &rec); err != nil {
		return nil, fmt.Errorf("read record %q: %w", key, err)
	}
	if rec.CommandsHistoryList == nil {
		rec.CommandsHistoryList = []CommandHistoryRecord{}
	}
	if rec.CommandHashes == nil {
		rec.CommandHashes = map[string]string{}
	}
	if len(rec.CommandsHistoryList) > commandHistoryLimit {
		rec.CommandsHistoryList = rec.CommandsHistoryList[len(rec.CommandsHistoryList)-commandHistoryLimit:]
	}
	return &rec, nil
}

func (s *Storage) putRecord(key string, rec *Record) error {
	if err := s.ds.Set(key, rec); err != nil {
		return fmt.Errorf("write record %q: %w", key, err)
	}
	return nil
}

// AppendCommandToHistory records an invocation, keeping the latest entries.
func (s *Storage) AppendCommandToHistory(guildID string, rec CommandHistoryRecord) error {
	record, err := s.getOrCreateRecord(guildID)
	if err != nil {
		return err
	}
	record.CommandsHistoryList = append(record.CommandsHistoryList, rec)
	if n := len(record.CommandsHistoryList); n > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[n-commandHistoryLimit:]
	}
	return s.putRecord(guildID, record)
}

func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	record, err := s.getOrCreateRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistoryList, nil
}

// CommandHashes returns the definition hashes last synced for scope.
func (s *Storage) CommandHashes(scope string) (map[string]string, error) {
	record, err := s.getOrCreateRecord(scope)
	if err != nil {
		return nil, err
	}
	return maps.Clone(record.CommandHashes), nil
}

// SetCommandHashes replaces the hashes of scope.
func (s *Storage) SetCommandHashes(scope string, hashes map[string]string) error {
	record, err := s.getOrCreateRecord(scope)
	if err != nil {
		return err
	}
	record.CommandHashes = maps.Clone(hashes)
	if record.CommandHashes == nil {
		record.CommandHashes = map[string]string{}
	}
	return s.putRecord(scope, record)
}
