package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the types persisted by the storage layer.
// Written against the mus-go primitive serializers directly; field order
// is part of the storage format and must not change.
var (
	IDMUS       = idSer{}
	DocumentMUS = documentSer{}
)

var (
	float32SliceSer = ord.NewSliceSer[float32](varint.Float32)
	stringSliceSer  = ord.NewSliceSer[string](ord.String)
	timeMUS         = timeSer{}
)

type idSer struct{}

func (idSer) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSer) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idSer) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// timeSer encodes a time.Time as a presence flag plus Unix microseconds,
// so the zero time survives a round trip.
type timeSer struct{}

func (timeSer) Marshal(t time.Time, bs []byte) int {
	n := ord.Bool.Marshal(!t.IsZero(), bs)
	if t.IsZero() {
		return n
	}
	return n + varint.Int64.Marshal(t.UnixMicro(), bs[n:])
}

func (timeSer) Unmarshal(bs []byte) (time.Time, int, error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return time.Time{}, n, err
	}
	micro, n1, err := varint.Int64.Unmarshal(bs[n:])
	if err != nil {
		return time.Time{}, n + n1, err
	}
	return time.UnixMicro(micro).UTC(), n + n1, nil
}

func (timeSer) Size(t time.Time) int {
	size := ord.Bool.Size(!t.IsZero())
	if t.IsZero() {
		return size
	}
	return size + varint.Int64.Size(t.UnixMicro())
}

type documentSer struct{}

func (documentSer) Marshal(doc Document, bs []byte) int {
	n := IDMUS.Marshal(doc.Id, bs)
	n += ord.String.Marshal(doc.OcrText, bs[n:])
	n += ord.String.Marshal(doc.Vendor, bs[n:])
	n += ord.String.Marshal(doc.DocumentType, bs[n:])
	n += timeMUS.Marshal(doc.Date, bs[n:])
	n += varint.Float64.Marshal(doc.TotalAmount, bs[n:])
	n += ord.Bool.Marshal(doc.HasAmount, bs[n:])
	n += ord.String.Marshal(doc.Currency, bs[n:])
	n += stringSliceSer.Marshal(doc.Keywords, bs[n:])
	n += float32SliceSer.Marshal(doc.SearchVector, bs[n:])
	n += timeMUS.Marshal(doc.InsertedAt, bs[n:])
	n += timeMUS.Marshal(doc.UpdatedAt, bs[n:])
	return n
}

func (documentSer) Unmarshal(bs []byte) (Document, int, error) {
	var (
		doc Document
		n   int
		err error
	)
	unmarshal := func(fn func([]byte) (int, error)) {
		if err != nil {
			return
		}
		var n1 int
		n1, err = fn(bs[n:])
		n += n1
	}

	unmarshal(func(b []byte) (int, error) {
		id, n1, err := IDMUS.Unmarshal(b)
		doc.Id = id
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		s, n1, err := ord.String.Unmarshal(b)
		doc.OcrText = s
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		s, n1, err := ord.String.Unmarshal(b)
		doc.Vendor = s
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		s, n1, err := ord.String.Unmarshal(b)
		doc.DocumentType = s
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		t, n1, err := timeMUS.Unmarshal(b)
		doc.Date = t
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		f, n1, err := varint.Float64.Unmarshal(b)
		doc.TotalAmount = f
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		v, n1, err := ord.Bool.Unmarshal(b)
		doc.HasAmount = v
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		s, n1, err := ord.String.Unmarshal(b)
		doc.Currency = s
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		ks, n1, err := stringSliceSer.Unmarshal(b)
		doc.Keywords = ks
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		vec, n1, err := float32SliceSer.Unmarshal(b)
		doc.SearchVector = vec
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		t, n1, err := timeMUS.Unmarshal(b)
		doc.InsertedAt = t
		return n1, err
	})
	unmarshal(func(b []byte) (int, error) {
		t, n1, err := timeMUS.Unmarshal(b)
		doc.UpdatedAt = t
		return n1, err
	})

	return doc, n, err
}

func (documentSer) Size(doc Document) int {
	size := IDMUS.Size(doc.Id)
	size += ord.String.Size(doc.OcrText)
	size += ord.String.Size(doc.Vendor)
	size += ord.String.Size(doc.DocumentType)
	size += timeMUS.Size(doc.Date)
	size += varint.Float64.Size(doc.TotalAmount)
	size += ord.Bool.Size(doc.HasAmount)
	size += ord.String.Size(doc.Currency)
	size += stringSliceSer.Size(doc.Keywords)
	size += float32SliceSer.Size(doc.SearchVector)
	size += timeMUS.Size(doc.InsertedAt)
	size += timeMUS.Size(doc.UpdatedAt)
	return size
}
