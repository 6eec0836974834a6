package wbs_match

// Package wbs_match documents the WBS rewrite contract.
//
// Inputs:
//   - slot 4 (`artifact.SummaryBook`) A4 holds the overview; D7 holds the
//     target workload in person-days, 19 when blank or zero.
//   - the function taxonomy, loaded first from the sheet of slot 2 whose name
//     contains `taxonomy.embedded_sheet` and otherwise from the standalone
//     catalog workbook in the data directory.
//
// Output: the active sheet of slot 2 (`artifact.WBSBook`). Every merged range
// is removed, columns A-F below the header are cleared, and one row per
// grouped taxonomy triple is written as `=ROW()-1`, level 1, level 2,
// level 3, numbered descriptions and summed workload. A total row follows
// with `合计` merged across B:E and the target in F.
//
// The target is only a hint to the service. The grouped sum is not forced
// to match it; the difference is logged.
