package models

import "strconv"

// OptionalInt is an integer cell that may be empty
type OptionalInt struct {
	Value int
	Valid bool
}

// Some returns a present OptionalInt
func Some(v int) OptionalInt {
	return OptionalInt{Value: v, Valid: true}
}

// ParseOptionalInt treats an empty cell as missing and anything else as an integer.
func ParseOptionalInt(s string) (OptionalInt, error) {
	if s == "" {
		return OptionalInt{}, nil
	}
	v, err := ParseInt(s)
	if err != nil {
		return OptionalInt{}, err
	}
	return Some(v), nil
}

func (o OptionalInt) String() string {
	if !o.Valid {
		return ""
	}
	return strconv.Itoa(o.Value)
}

// NormalizedRow is a results row after type coercion. Fields holds every
// raw value in header order; the coerced columns are read from the typed fields.
type NormalizedRow struct {
	Year           int
	CountyFIPS     string
	CandidateVotes int
	TotalVotes     int
	Version        int
	Fields         []string
}

// AggregatedRecord is one output row of the aggregator
type AggregatedRecord struct {
	Key            GroupKey
	CandidateVotes int
	TotalVotes     OptionalInt
	Version        OptionalInt
	Mode           string
}

// Strings returns the record in output column order.
func (r AggregatedRecord) Strings() []string {
	return append(r.Key.Strings(),
		strconv.Itoa(r.CandidateVotes),
		r.TotalVotes.String(),
		r.Version.String(),
		r.Mode,
	)
}

// Inconsistency reports a group whose rows disagree on a value
// that is expected to be constant within the group.
type Inconsistency struct {
	Key    GroupKey
	Column string
	First  int
	Other  int
}
