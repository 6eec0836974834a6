package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/attachment"
)

type stubModule struct {
	*Base
}

func (s *stubModule) Run(*ModuleContext) (Result, error) {
	return Completed("ok"), nil
}

func newStub(info Info) *stubModule {
	base := NewBase(info)
	base.SetInputs(artifact.WorkItemsBook)
	base.SetOutputs(artifact.SummaryBook, artifact.WorkItemsBook)
	return &stubModule{Base: &base}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("stub", func(Config) (Module, error) {
		return newStub(Info{ID: "stub", Name: "Stub", Version: "1.0.0"}), nil
	}))
	require.Error(t, reg.Register("stub", func(Config) (Module, error) { return nil, nil }))
	require.NoError(t, reg.Register("broken", func(Config) (Module, error) {
		return newStub(Info{ID: "broken"}), nil
	}))

	m, err := reg.Resolve("stub", nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", m.Info().ID)

	_, err = reg.Resolve("broken", nil)
	assert.Error(t, err, "info without name/version must be rejected")
	_, err = reg.Resolve("absent", nil)
	assert.Error(t, err)
	assert.Equal(t, []string{"broken", "stub"}, reg.IDs())
}

func TestDecodeConfig(t *testing.T) {
	var typed struct {
		Slot  int      `yaml:"slot"`
		Cells []string `yaml:"cells"`
		Sheet string   `yaml:"sheet"`
	}
	typed.Sheet = "active"
	err := DecodeConfig(Config{"slot": 3, "cells": []any{"A3", "B3"}}, &typed)
	require.NoError(t, err)
	assert.Equal(t, 3, typed.Slot)
	assert.Equal(t, []string{"A3", "B3"}, typed.Cells)
	assert.Equal(t, "active", typed.Sheet, "absent keys keep defaults")

	assert.Error(t, DecodeConfig(Config{"slot": "three"}, &typed))
}

func TestValuesDefaults(t *testing.T) {
	v := NewValues()
	assert.Equal(t, 19.0, v.Float("workload_total", 19.0))
	v.SetFloat("workload_total", 3.5)
	v.Set("label", "x")
	assert.Equal(t, 3.5, v.Float("workload_total", 0))
	assert.Equal(t, 0.0, v.Float("label", 0))
	assert.Equal(t, []string{"label", "workload_total"}, v.Keys())
	assert.Equal(t, "3.5", v.Snapshot()["workload_total"])
}

func TestCheckAttachments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"附件5-a@工作项.xls", "附件5-b@工作项.xlsx"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	reg := attachment.NewRegistry(dir, "附件")
	checks := CheckAttachments(reg, newStub(Info{ID: "stub", Name: "Stub", Version: "1"}))
	require.Len(t, checks, 2)
	assert.Equal(t, artifact.WorkItemsBook.ID, checks[0].Ref.ID)
	assert.Equal(t, AttachmentAmbiguous, checks[0].Status)
	assert.Equal(t, AttachmentMissing, checks[1].Status)
}
