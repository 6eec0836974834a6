package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/workflow/engine"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestStagesJournalOneLineEach(t *testing.T) {
	fixed := time.Date(2025, 3, 7, 9, 30, 0, 0, time.UTC)
	book, err := New(filepath.Join(t.TempDir(), "nested", FileName), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.StageStarted(1, 2, "第九步：生成需求概述")
	book.StageFinished(1, 2, engine.ModuleRun{ID: "overview", Status: module.StatusCompleted, Message: "概述：\n1. 派单"})
	book.StageFinished(2, 2, engine.ModuleRun{ID: "wbs", Status: module.StatusSkipped, Message: "未匹配"})
	book.StageFinished(2, 2, engine.ModuleRun{ID: "wbs", Status: module.StatusFailed, Error: "boom"})

	lines, total := book.Tail(10)
	if total != 4 {
		t.Fatalf("total = %d, want 4: %q", total, lines)
	}
	want := []string{
		"2025-03-07T09:30:00Z INFO  [1/2] 第九步：生成需求概述",
		"2025-03-07T09:30:00Z INFO  [1/2] overview completed: 概述： 1. 派单",
		"2025-03-07T09:30:00Z WARN  [2/2] wbs skipped: 未匹配",
		"2025-03-07T09:30:00Z ERROR [2/2] wbs failed: boom",
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestNilLogbookIsInert(t *testing.T) {
	var book *Logbook
	if err := book.Append(LevelInfo, "x"); err != nil {
		t.Fatalf("nil append: %v", err)
	}
	if lines, total := book.Tail(1); lines != nil || total != 0 {
		t.Fatalf("nil tail = %v, %d", lines, total)
	}
	if book.Path() != "" {
		t.Fatalf("nil path should be empty")
	}
}
