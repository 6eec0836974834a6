package project_docs

// Package project_docs documents the proposal-section step. The overview in
// slot 4 A4 and an optional user-manual summary are sent in one call that
// returns the four proposal sections. The summary is cached next to the manual
// as `<manual>.summary.txt` and reused while it is newer than the manual.
//
// Every run writes the section text to the side artifact first
// (`docs.side_artifact`, default 项目文档内容.txt). It then rewrites the
// proposal (slot 1, `artifact.ProposalDoc`) through anchor.Mutator.
// Paragraphs inserted by earlier runs are removed before the new text is
// placed after each marker, so reruns converge on the same document.
// Sections without a marker are flagged in the side artifact instead of being
// appended.
