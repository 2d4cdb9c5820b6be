package aggregate

import (
	"context"
	"fmt"
	"sort"

	"eradata/internal/csvio"
	"eradata/internal/models"
)

// Grouping is the outcome of the group stage
type Grouping struct {
	Records         []models.AggregatedRecord
	InputRows       int
	Dropped         int // rows with an empty key field
	Inconsistencies []models.Inconsistency
}

// Group collapses the table on the key columns: candidatevotes are summed,
// totalvotes and version keep the first present value and mode becomes TOTAL.
// Records come back ordered by key.
func Group(ctx context.Context, table *csvio.Table) (*Grouping, error) {
	columns := append(append([]string{}, models.KeyColumns...), models.MeasureColumns...)
	idx, err := table.Require(columns...)
	if err != nil {
		return nil, err
	}

	res := &Grouping{InputRows: len(table.Rows)}
	groups := make(map[models.GroupKey]*models.AggregatedRecord)
	var keys []models.GroupKey

	for i, fields := range table.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, ok, err := parseRecord(idx, fields)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if !ok {
			res.Dropped++
			continue
		}

		g, exists := groups[rec.Key]
		if !exists {
			g = &models.AggregatedRecord{Key: rec.Key, Mode: models.ModeTotal}
			groups[rec.Key] = g
			keys = append(keys, rec.Key)
		}
		if rec.CandidateVotes.Valid {
			g.CandidateVotes += rec.CandidateVotes.Value
		}
		if inc, ok := keepFirst(&g.TotalVotes, rec.TotalVotes); ok {
			res.Inconsistencies = append(res.Inconsistencies, models.Inconsistency{
				Key: rec.Key, Column: models.ColumnTotalVotes, First: inc[0], Other: inc[1],
			})
		}
		if inc, ok := keepFirst(&g.Version, rec.Version); ok {
			res.Inconsistencies = append(res.Inconsistencies, models.Inconsistency{
				Key: rec.Key, Column: models.ColumnVersion, First: inc[0], Other: inc[1],
			})
		}
	}

	sort.SliceStable(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
	res.Records = make([]models.AggregatedRecord, len(keys))
	for i, k := range keys {
		res.Records[i] = *groups[k]
	}
	return res, nil
}

// keepFirst stores v in dst when dst is still empty. It reports the pair
// (kept, seen) when both are present and differ.
func keepFirst(dst *models.OptionalInt, v models.OptionalInt) ([2]int, bool) {
	if !v.Valid {
		return [2]int{}, false
	}
	if !dst.Valid {
		*dst = v
		return [2]int{}, false
	}
	if dst.Value != v.Value {
		return [2]int{dst.Value, v.Value}, true
	}
	return [2]int{}, false
}

// parseRecord returns ok=false for rows that have an empty key field.
func parseRecord(idx map[string]int, fields []string) (*models.ElectionRecord, bool, error) {
	get := func(col string) string {
		return fields[idx[col]]
	}

	rec := &models.ElectionRecord{
		Key: models.GroupKey{
			State:      get(models.ColumnState),
			StatePO:    get(models.ColumnStatePO),
			CountyName: get(models.ColumnCountyName),
			CountyFIPS: get(models.ColumnCountyFIPS),
			Office:     get(models.ColumnOffice),
			Candidate:  get(models.ColumnCandidate),
			Party:      get(models.ColumnParty),
		},
		Mode: get(models.ColumnMode),
	}

	year := get(models.ColumnYear)
	if year == "" {
		return nil, false, nil
	}
	var err error
	if rec.Key.Year, err = models.ParseInt(year); err != nil {
		return nil, false, fmt.Errorf("column %q: %w", models.ColumnYear, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, false, nil
	}
	if fips, err := models.CanonicalFIPS(rec.Key.CountyFIPS); err == nil {
		rec.Key.CountyFIPS = fips
	}

	measures := []struct {
		column string
		dst    *models.OptionalInt
	}{
		{models.ColumnCandidateVotes, &rec.CandidateVotes},
		{models.ColumnTotalVotes, &rec.TotalVotes},
		{models.ColumnVersion, &rec.Version},
	}
	for _, m := range measures {
		v, err := models.ParseOptionalInt(get(m.column))
		if err != nil {
			return nil, false, fmt.Errorf("column %q: %w", m.column, err)
		}
		*m.dst = v
	}
	return rec, true, nil
}
