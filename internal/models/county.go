package models

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Column names used by the election results files
const (
	ColumnYear           = "year"
	ColumnState          = "state"
	ColumnStatePO        = "state_po"
	ColumnCountyName     = "county_name"
	ColumnCountyFIPS     = "county_fips"
	ColumnOffice         = "office"
	ColumnCandidate      = "candidate"
	ColumnParty          = "party"
	ColumnCandidateVotes = "candidatevotes"
	ColumnTotalVotes     = "totalvotes"
	ColumnVersion        = "version"
	ColumnMode           = "mode"
)

// ModeTotal replaces every per-channel vote-counting mode after aggregation.
const ModeTotal = "TOTAL"

// KeyColumns identifies logically equivalent vote records, in output order.
var KeyColumns = []string{
	ColumnYear,
	ColumnState,
	ColumnStatePO,
	ColumnCountyName,
	ColumnCountyFIPS,
	ColumnOffice,
	ColumnCandidate,
	ColumnParty,
}

// MeasureColumns follow the key columns in aggregated output.
var MeasureColumns = []string{
	ColumnCandidateVotes,
	ColumnTotalVotes,
	ColumnVersion,
	ColumnMode,
}

// ParseInt converts a CSV field to an int, ignoring surrounding whitespace.
func ParseInt(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

// CanonicalFIPS returns the county code as the decimal string of its integer value,
// so "12034.0" becomes "12034" and "01001" becomes "1001".
func CanonicalFIPS(s string) (string, error) {
	f, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid county code %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("invalid county code %q", s)
	}
	if f > -1<<63 && f < 1<<63 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	// beyond int64 range, keep the exact integer value of the float
	i, _ := big.NewFloat(f).Int(nil)
	return i.String(), nil
}

// PadFIPS left-pads a canonical county code to the five digits used by map data.
func PadFIPS(fips string) string {
	if len(fips) >= 5 || fips == "" {
		return fips
	}
	return strings.Repeat("0", 5-len(fips)) + fips
}

// GroupKey is the composite key that aggregation collapses on
type GroupKey struct {
	Year       int
	State      string
	StatePO    string
	CountyName string
	CountyFIPS string
	Office     string
	Candidate  string
	Party      string
}

// Strings returns the key fields in KeyColumns order.
func (k GroupKey) Strings() []string {
	return []string{
		strconv.Itoa(k.Year),
		k.State,
		k.StatePO,
		k.CountyName,
		k.CountyFIPS,
		k.Office,
		k.Candidate,
		k.Party,
	}
}

func (k GroupKey) String() string {
	return strings.Join(k.Strings(), "|")
}

// Less orders keys by year, then by the string fields in column order.
// County codes compare numerically when both are integers.
func (k GroupKey) Less(o GroupKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.State != o.State {
		return k.State < o.State
	}
	if k.StatePO != o.StatePO {
		return k.StatePO < o.StatePO
	}
	if k.CountyName != o.CountyName {
		return k.CountyName < o.CountyName
	}
	if k.CountyFIPS != o.CountyFIPS {
		return lessFIPS(k.CountyFIPS, o.CountyFIPS)
	}
	if k.Office != o.Office {
		return k.Office < o.Office
	}
	if k.Candidate != o.Candidate {
		return k.Candidate < o.Candidate
	}
	return k.Party < o.Party
}

func lessFIPS(a, b string) bool {
	ai, aOK := new(big.Int).SetString(a, 10)
	bi, bOK := new(big.Int).SetString(b, 10)
	switch {
	case aOK && bOK:
		if c := ai.Cmp(bi); c != 0 {
			return c < 0
		}
		return a < b
	case aOK:
		return true
	case bOK:
		return false
	default:
		return a < b
	}
}

// ElectionRecord is one input row of the aggregator
type ElectionRecord struct {
	Key            GroupKey
	CandidateVotes OptionalInt
	TotalVotes     OptionalInt
	Version        OptionalInt
	Mode           string
}

// Validate ensures every key field is present
func (r *ElectionRecord) Validate() error {
	for i, v := range r.Key.Strings() {
		if v == "" {
			return fmt.Errorf("%s is required", KeyColumns[i])
		}
	}
	return nil
}
