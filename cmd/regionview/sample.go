package main

import "fmt"

// Meta is optional routing information attached to an Entry.
type Meta struct {
	Region string
	Weight float64
}

// Entry is the sample record written by demo. Kind selects which of Error
// and Bytes is meaningful.
type Entry struct {
	Host    string
	Status  int32
	Secure  bool
	Tags    []string
	Meta    *Meta
	Latency [3]uint16
	Kind    uint8  `region:"tag=0"`
	Error   string `region:"case=1"`
	Bytes   uint64 `region:"case=2"`
	Scratch []byte `region:"-"`
}

const (
	kindPlain    = 0
	kindFailure  = 1
	kindTransfer = 2
)

var (
	hosts   = []string{"example.com", "api.example.com", "cdn.example.net", "localhost"}
	regions = []string{"eu-west", "us-east", "ap-south"}
)

func sampleEntry(i int) Entry {
	e := Entry{
		Host:    hosts[i%len(hosts)],
		Status:  200,
		Secure:  i%3 != 0,
		Latency: [3]uint16{uint16(10 + i%7), uint16(20 + i%11), uint16(40 + i%13)},
		Kind:    uint8(i % 3),
	}
	if i%4 != 3 {
		e.Tags = []string{"svc", fmt.Sprintf("shard-%d", i%5)}
	}
	if i%2 == 0 {
		e.Meta = &Meta{Region: regions[i%len(regions)], Weight: float64(i%10) / 10}
	}
	switch e.Kind {
	case kindFailure:
		e.Status = 503
		e.Error = "upstream timeout"
	case kindTransfer:
		e.Bytes = uint64(1024 * (i + 1))
	}
	return e
}

func sampleEntries(n int) []Entry {
	out := make([]Entry, n)
	for i := range out {
		out[i] = sampleEntry(i)
	}
	return out
}
