package summarize

// Package summarize documents the overview step. It reads the work-item
// export (slot 5, `artifact.WorkItemsBook`, .xls or .xlsx) columns H and I
// from row 2, drops blanks and repeats, and sends the numbered list to the
// generation service. The reply is written verbatim into slot 4
// (`artifact.SummaryBook`) cell A4, which wbs-match and project-docs read
// later in the same run.
//
// A failed generation call is returned as an error wrapping llm.ErrService
// and halts the run. An export with no H/I content skips the step without a
// call.
