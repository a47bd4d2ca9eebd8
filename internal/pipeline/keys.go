package pipeline

import (
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"
)

// keyBuilder hashes cell inputs. Fields are length-delimited so adjacent
// strings cannot collide by concatenation.
type keyBuilder struct {
	d   *xxhash.Digest
	buf []byte
}

func newKey(cell CellName) *keyBuilder {
	k := &keyBuilder{d: xxhash.New(), buf: make([]byte, 0, 16)}
	return k.str(string(cell))
}

func (k *keyBuilder) str(s string) *keyBuilder {
	k.u64(uint64(len(s)))
	_, _ = k.d.WriteString(s)
	return k
}

func (k *keyBuilder) u64(n uint64) *keyBuilder {
	k.buf = binary.BigEndian.AppendUint64(k.buf[:0], n)
	_, _ = k.d.Write(k.buf)
	return k
}

func (k *keyBuilder) int(n int) *keyBuilder {
	return k.u64(uint64(int64(n)))
}

func (k *keyBuilder) date(t time.Time) *keyBuilder {
	return k.str(t.UTC().Format(time.RFC3339Nano))
}

func (k *keyBuilder) sum() uint64 {
	return k.d.Sum64()
}

func fetchKey(sel Selection) uint64 {
	return newKey(CellFetched).str(sel.SourceID).str(sel.PeriodID).date(sel.Start).date(sel.End).sum()
}

func forecastKey(fetched uint64, method string, horizon int) uint64 {
	return newKey(CellForecast).u64(fetched).str(method).int(horizon).sum()
}

func futureKey(sel Selection) uint64 {
	return newKey(CellFuture).date(sel.End).str(sel.PeriodID).int(sel.Horizon).sum()
}

func mergedKey(fetched, forecast, future uint64) uint64 {
	return newKey(CellMerged).u64(fetched).u64(forecast).u64(future).sum()
}
