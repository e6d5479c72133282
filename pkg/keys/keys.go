// Package keys computes record identity hashes and duplicate statistics.
package keys

import (
	"encoding/hex"
	"strings"

	"github.com/TFMV/vantage/pkg/core"
	"github.com/TFMV/vantage/pkg/record"
	"github.com/zeebo/xxh3"
)

const (
	separator = ":"

	// missing stands in for an absent key value. Escaped real values never
	// contain a backslash followed by '0'.
	missing = `\0`
)

var escaper = strings.NewReplacer(`\`, `\\`, separator, `\`+separator)

// Hash returns the identity hash of rec under keyFields.
//
// With key fields, the hash is the separator-joined string form of each key
// value in key order. Without key fields, it is a digest of the record's
// canonical content, so only records with identical content collide.
func Hash(rec record.Value, keyFields []core.FieldDescriptor) string {
	if len(keyFields) == 0 {
		return ContentHash(rec)
	}

	var sb strings.Builder
	for i, f := range keyFields {
		if i > 0 {
			sb.WriteString(separator)
		}
		v, ok := rec.Get(f.Path)
		if !ok {
			sb.WriteString(missing)
			continue
		}
		escaper.WriteString(&sb, v.String())
	}
	return sb.String()
}

// ContentHash digests the canonical JSON form of rec.
func ContentHash(rec record.Value) string {
	sum := xxh3.HashString128(rec.Canonical()).Bytes()
	return hex.EncodeToString(sum[:])
}

// HashAll hashes every record, preserving order.
func HashAll(records []record.Value, keyFields []core.FieldDescriptor) []string {
	hashes := make([]string, len(records))
	for i, rec := range records {
		hashes[i] = Hash(rec, keyFields)
	}
	return hashes
}

// Stats summarizes identity uniqueness for one record sequence.
type Stats struct {
	KeyCount       int
	UniqueKeyCount int
}

// DuplicateCount is KeyCount minus UniqueKeyCount.
func (s Stats) DuplicateCount() int {
	return s.KeyCount - s.UniqueKeyCount
}

// Count hashes records under keyFields and counts distinct identities.
func Count(records []record.Value, keyFields []core.FieldDescriptor) Stats {
	unique := make(map[string]struct{}, len(records))
	for _, rec := range records {
		unique[Hash(rec, keyFields)] = struct{}{}
	}
	return Stats{KeyCount: len(records), UniqueKeyCount: len(unique)}
}

// Duplicates returns, for every hash shared by more than one record, the
// indices of the records carrying it, in record order.
func Duplicates(records []record.Value, keyFields []core.FieldDescriptor) map[string][]int {
	byHash := make(map[string][]int)
	for i, rec := range records {
		h := Hash(rec, keyFields)
		byHash[h] = append(byHash[h], i)
	}
	for h, idx := range byHash {
		if len(idx) < 2 {
			delete(byHash, h)
		}
	}
	return byHash
}

// Apply refreshes the key statistics of ds in place.
func Apply(ds *core.Dataset, keyFields []core.FieldDescriptor) {
	stats := Count(ds.Records, keyFields)
	ds.KeyCount = stats.KeyCount
	ds.UniqueKeyCount = stats.UniqueKeyCount
}
