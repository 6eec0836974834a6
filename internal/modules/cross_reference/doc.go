package cross_reference

// Package cross_reference documents the E3 to B7 copy. Slot 3 carries
// `COUNTA(COSMIC功能点拆分表!K:K)-1` in E3 of its second sheet. Workbooks
// saved by tools that do not recalculate leave that cell without a cached
// value, in which case the count is rebuilt from column K of the
// `COSMIC功能点拆分表` sheet starting at row 4. The result lands in slot 4
// B7, as a number when it parses as one.
