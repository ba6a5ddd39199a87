package ir

// Snapshot converts the intermediate to plain maps and slices suitable for
// MarshalCanonical, YAML output and golden comparison. Tables appear sorted
// by name, rows in insertion order. Source lines are included only when
// withLines is set, so snapshots of the same authoring stay stable when
// unrelated lines move.
func (i *Intermediate) Snapshot(withLines bool) map[string]any {
	sections := make([]any, len(i.Sections))
	for si, s := range i.Sections {
		tables := make([]any, 0)
		for _, t := range s.Tables() {
			rows := make([]any, len(t.Rows))
			for ri, r := range t.Rows {
				fields := make([]any, len(r.Fields))
				for fi, f := range r.Fields {
					fields[fi] = plainValue(f)
				}
				row := map[string]any{"fields": fields}
				if withLines && !r.SourceLine.IsZero() {
					row["source_line"] = r.SourceLine.String()
				}
				rows[ri] = row
			}
			tables = append(tables, map[string]any{
				"name": t.Name(),
				"rows": rows,
			})
		}
		sections[si] = map[string]any{
			"id":       s.ID,
			"kind":     s.Kind.String(),
			"codepage": s.Codepage,
			"tables":   tables,
		}
	}

	out := map[string]any{
		"version":  FormatVersion,
		"sections": sections,
	}
	if i.SourcePath != "" {
		out["source_path"] = i.SourcePath
	}
	return out
}

// plainValue unwraps a field value into nil, string or int64.
func plainValue(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	default:
		return nil
	}
}
