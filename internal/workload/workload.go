// Package workload generates the key/value sequences driven by a benchmark run.
package workload

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"kvbench/internal/protocol"
)

// KeyPrefix is the tag in front of every generated key.
const KeyPrefix = "bench_key_"

// keyWidth is the zero-padded width of the key's index.
const keyWidth = 10

// DefaultReadRatio and DefaultMixedValueSize shape the mixed workload.
const (
	DefaultReadRatio      = 0.8
	DefaultMixedValueSize = 100
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Item is one operation to issue. Value is empty unless Op is a PUT.
type Item struct {
	Op    protocol.Opcode
	Key   string
	Value string
}

// Generator yields a finite sequence of items. A generator is consumed once;
// build a new one for every run.
type Generator interface {
	Next() (Item, bool)
	Label() string
}

// Key returns the key for sequence index i.
func Key(i int) string {
	return fmt.Sprintf("%s%0*d", KeyPrefix, keyWidth, i)
}

// NewSource returns a random source for value generation. A zero seed draws
// one from the clock, so values differ from run to run.
func NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// RandomString returns n alphanumeric characters drawn from r.
func RandomString(r *rand.Rand, n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[r.Intn(len(alphanumeric))]
	}
	return string(b)
}

// PutSweep writes Key(start) .. Key(start+n-1), each with a fresh random value.
type PutSweep struct {
	end       int
	next      int
	valueSize int
	rnd       *rand.Rand
}

// NewPutSweep returns a generator of n PUTs with values of valueSize bytes.
func NewPutSweep(n, valueSize int, rnd *rand.Rand) *PutSweep {
	return NewPutRange(0, n, valueSize, rnd)
}

// NewPutRange is NewPutSweep over the n keys starting at index start.
// Parallel runs give each connection its own range.
func NewPutRange(start, n, valueSize int, rnd *rand.Rand) *PutSweep {
	if rnd == nil {
		rnd = NewSource(0)
	}
	return &PutSweep{next: start, end: start + max(n, 0), valueSize: valueSize, rnd: rnd}
}

func (g *PutSweep) Label() string { return "PUT" }

func (g *PutSweep) Next() (Item, bool) {
	if g.next >= g.end {
		return Item{}, false
	}
	item := Item{
		Op:    protocol.OpPut,
		Key:   Key(g.next),
		Value: RandomString(g.rnd, g.valueSize),
	}
	g.next++
	return item, true
}

// GetSweep reads the keys a PutSweep over the same range wrote.
type GetSweep struct {
	end  int
	next int
}

// NewGetSweep returns a generator of n GETs over Key(0) .. Key(n-1).
func NewGetSweep(n int) *GetSweep {
	return NewGetRange(0, n)
}

// NewGetRange returns a generator of n GETs starting at index start.
func NewGetRange(start, n int) *GetSweep {
	return &GetSweep{next: start, end: start + max(n, 0)}
}

func (g *GetSweep) Label() string { return "GET" }

func (g *GetSweep) Next() (Item, bool) {
	if g.next >= g.end {
		return Item{}, false
	}
	item := Item{Op: protocol.OpGet, Key: Key(g.next)}
	g.next++
	return item, true
}

// MixedConfig shapes a mixed read/write workload.
type MixedConfig struct {
	// ReadRatio is the probability that an item is a GET.
	ReadRatio float64
	// ValueSize is the size of values written by PUT items.
	ValueSize int
	// KeyRange bounds the uniformly drawn key index to [0, KeyRange).
	// Zero means n+1, which reaches one index past the PUT sweep so a share
	// of reads always miss.
	KeyRange int
}

// DefaultMixedConfig returns the 80% read, 100-byte value shape.
func DefaultMixedConfig() MixedConfig {
	return MixedConfig{
		ReadRatio: DefaultReadRatio,
		ValueSize: DefaultMixedValueSize,
	}
}

// Mixed draws each item independently: a GET with probability ReadRatio,
// otherwise a PUT with a fresh value.
type Mixed struct {
	n      int
	issued int
	config MixedConfig
	rnd    *rand.Rand
}

// NewMixed returns a generator of n mixed items.
func NewMixed(n int, config MixedConfig, rnd *rand.Rand) *Mixed {
	if rnd == nil {
		rnd = NewSource(0)
	}
	if config.KeyRange <= 0 {
		config.KeyRange = n + 1
	}
	return &Mixed{n: n, config: config, rnd: rnd}
}

func (g *Mixed) Label() string {
	return fmt.Sprintf("MIXED (%d%% reads)", int(math.Round(g.config.ReadRatio*100)))
}

func (g *Mixed) Next() (Item, bool) {
	if g.issued >= g.n {
		return Item{}, false
	}
	g.issued++

	key := Key(g.rnd.Intn(g.config.KeyRange))
	if g.rnd.Float64() < g.config.ReadRatio {
		return Item{Op: protocol.OpGet, Key: key}, true
	}
	return Item{
		Op:    protocol.OpPut,
		Key:   key,
		Value: RandomString(g.rnd, g.config.ValueSize),
	}, true
}
