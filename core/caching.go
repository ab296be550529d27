package core

import (
	"encoding/json"

	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
	"go.uber.org/zap"
)

// readRecord loads the cache record of identity.
// Read errors, version mismatches and undecodable payloads all count as no record.
func (s *StatsCache) readRecord(identity string) (schema.CacheRecord, bool) {
	if s.store == nil {
		return schema.CacheRecord{}, false
	}

	data, version, _, err := s.store.Get(contract.CacheKey(identity))
	if err != nil {
		return schema.CacheRecord{}, false // Cache miss
	}
	if version != contract.CacheRecordSchemaVersion {
		s.logger.Debug("Ignoring cache record with old schema",
			zap.String("identity", identity), zap.Int("version", version))
		return schema.CacheRecord{}, false
	}

	var record schema.CacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Debug("Ignoring corrupt cache record", zap.String("identity", identity), zap.Error(err))
		return schema.CacheRecord{}, false
	}
	return record, true
}

// writeRecord overwrites the cache record of identity.
// Persistence is best effort: failures are logged and swallowed.
func (s *StatsCache) writeRecord(identity string, snapshot schema.ProfileSnapshot) {
	if s.store == nil {
		return
	}

	record := schema.CacheRecord{Timestamp: snapshot.FetchedAt.UnixMilli(), Data: snapshot}
	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Debug("Skipping cache write", zap.String("identity", identity), zap.Error(err))
		return
	}

	key := contract.CacheKey(identity)
	if err := s.store.Set(key, data, contract.CacheRecordSchemaVersion, snapshot.FetchedAt.Unix()); err != nil {
		s.logger.Debug("Cache write failed", zap.String("identity", identity), zap.Error(err))
	}
}
