// Package ilcache is the one shared, read-mostly structure spec.md §5
// allows across methods: a hash-keyed LRU holding built CFGs and analyzer
// verdicts so a method body that recurs within one process (the same body
// in several assemblies of one cmd/ilopt invocation, or analyzed under a
// second optimization's mode) skips redundant work. The cache lives in
// memory only; nothing carries over between CLI runs. Grounded on the teacher's
// MIRCache/OpCodeCache (core/opcodeCompiler/compiler/mirCache.go,
// opCodeCache.go) — hash-keyed LRU, write-once-per-hash, safe for
// concurrent readers because entries are immutable once inserted.
package ilcache

import (
	"crypto/sha256"
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru"

	"github.com/Hengle/ilopt/internal/ilcfg"
	"github.com/Hengle/ilopt/internal/ildefassign"
	"github.com/Hengle/ilopt/internal/ilmodel"
)

// Hash identifies a method body's raw instruction stream for caching
// purposes. It is not a commitment over operand values, only opcodes and
// offsets — enough to recognize "this is the same body I already built a
// CFG for" within one process's cache lifetime.
type Hash [32]byte

// HashBody computes body's cache key from its linked instruction stream.
func HashBody(body *ilmodel.MethodBody) Hash {
	h := sha256.New()
	for _, in := range body.Instructions {
		var buf [10]byte
		binary.LittleEndian.PutUint16(buf[0:2], uint16(in.Opcode))
		binary.LittleEndian.PutUint64(buf[2:10], uint64(in.Offset))
		h.Write(buf[:])
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// defaultCapacity mirrors the teacher's mirCFGCacheCap: smaller than a
// per-instruction cache would need, since a CFG's memory footprint per entry
// is larger than a single bitvec.
const defaultCapacity = 1024

type verdictKey struct {
	hash Hash
	mode ildefassign.Mode
}

// Cache holds two independent LRUs: built CFGs, and per-mode analyzer
// verdicts. Both are write-once-per-key; callers that find a miss are
// expected to build the value and call the matching Add.
type Cache struct {
	cfgs     *lru.Cache
	verdicts *lru.Cache
}

// New builds a Cache with capacity entries per LRU (CFGs and verdicts each
// get their own budget).
func New(capacity int) (*Cache, error) {
	cfgs, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	verdicts, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{cfgs: cfgs, verdicts: verdicts}, nil
}

// NewDefault builds a Cache at the teacher-sized default capacity.
func NewDefault() *Cache {
	c, _ := New(defaultCapacity)
	return c
}

// GetCFG returns the cached CFG for hash, if present.
func (c *Cache) GetCFG(hash Hash) (*ilcfg.CFG, bool) {
	v, ok := c.cfgs.Get(hash)
	if !ok {
		return nil, false
	}
	return v.(*ilcfg.CFG), true
}

// AddCFG inserts cfg under hash, evicting the LRU's oldest entry if full.
func (c *Cache) AddCFG(hash Hash, cfg *ilcfg.CFG) {
	c.cfgs.Add(hash, cfg)
}

// GetVerdict returns the cached verdict for (hash, mode), if present.
func (c *Cache) GetVerdict(hash Hash, mode ildefassign.Mode) (ildefassign.Verdict, bool) {
	v, ok := c.verdicts.Get(verdictKey{hash: hash, mode: mode})
	if !ok {
		return 0, false
	}
	return v.(ildefassign.Verdict), true
}

// AddVerdict inserts verdict under (hash, mode).
func (c *Cache) AddVerdict(hash Hash, mode ildefassign.Mode, verdict ildefassign.Verdict) {
	c.verdicts.Add(verdictKey{hash: hash, mode: mode}, verdict)
}

// Len reports the number of cached CFGs, mirroring MIRCache.Len.
func (c *Cache) Len() int {
	return c.cfgs.Len()
}
