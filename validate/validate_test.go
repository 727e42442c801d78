package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/autoreplace/game/catalog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeDefault(t *testing.T, dir string) string {
	t.Helper()
	data, err := json.Marshal(catalog.DefaultScenario())
	require.NoError(t, err)
	return writeFile(t, dir, "default.json", string(data))
}

const harbourScenario = `name: Harbour
description: More ferries than fit in the dialog
engines:
  - {id: 1, name: Ferry A, category: ship, cargo: passengers, capacity: 100, list_position: 1, buildable: true}
  - {id: 2, name: Ferry B, category: ship, cargo: passengers, capacity: 110, list_position: 2, buildable: true}
  - {id: 3, name: Ferry C, category: ship, cargo: passengers, capacity: 120, list_position: 3, buildable: true}
  - {id: 4, name: Ferry D, category: ship, cargo: passengers, capacity: 130, list_position: 4, buildable: true}
  - {id: 5, name: Ferry E, category: ship, cargo: passengers, capacity: 140, list_position: 5, buildable: true}
  - {id: 6, name: Ferry F, category: ship, cargo: passengers, capacity: 150, list_position: 6, buildable: true}
  - {id: 7, name: Oil Tanker, category: ship, cargo: oil, capacity: 200, list_position: 7, buildable: true}
fleet:
  - {group: 65534, engine: 1, count: 1}
  - {group: 65534, engine: 2, count: 1}
  - {group: 65534, engine: 3, count: 1}
  - {group: 65534, engine: 4, count: 1}
  - {group: 65534, engine: 5, count: 1}
  - {group: 65534, engine: 6, count: 1}
  - {group: 65534, engine: 7, count: 2}
`

func TestValidateScenario_Default(t *testing.T) {
	path := writeDefault(t, t.TempDir())

	result := validateScenario(path, false)
	assert.True(t, result.Valid, result.Errors)
	assert.Equal(t, "default.json", result.File)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{`Passenger Carriage (4) in group "Ungrouped" has no replacement candidate`}, result.Warnings)
	assert.Contains(t, result.Info, "✓ Engines: 15")
	assert.Contains(t, result.Info, "✓ Vehicles: 17")
	assert.Contains(t, result.Info, "✓ Replacement rules: 1")
	assert.NotContains(t, result.Info, "✓ Coverage: every owned engine has a replacement candidate")
}

func TestValidateScenario_Strict(t *testing.T) {
	path := writeDefault(t, t.TempDir())

	result := validateScenario(path, true)
	assert.False(t, result.Valid)
	assert.Empty(t, result.Warnings)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Passenger Carriage (4)")
}

func TestValidateScenario_CoverageScrollsPastVisibleRows(t *testing.T) {
	path := writeFile(t, t.TempDir(), "harbour.yaml", harbourScenario)

	result := validateScenario(path, false)
	require.True(t, result.Valid, result.Errors)
	assert.Equal(t, []string{`Oil Tanker (7) in group "Ungrouped" has no replacement candidate`}, result.Warnings)
	assert.Contains(t, result.Info, "✓ Vehicles: 8")
}

func TestValidateScenario_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"invalid json", "broken.json", `{"name": `, "Invalid JSON"},
		{"invalid yaml", "broken.yaml", "engines: [", "Invalid YAML"},
		{"missing description", "nodesc.json", `{"name": "x", "engines": [{"id": 1, "name": "a", "category": "ship"}]}`, "description is required"},
		{"unknown engine in fleet", "fleet.json", `{"name": "x", "description": "d", "engines": [{"id": 1, "name": "a", "category": "ship"}], "fleet": [{"group": 65534, "engine": 9, "count": 1}]}`, "unknown engine 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateScenario(writeFile(t, dir, tt.file, tt.content), false)
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.want)
			assert.Empty(t, result.Info)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		result := validateScenario(filepath.Join(dir, "nope.json"), false)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "Failed to read file")
	})
}

func TestDialogModes(t *testing.T) {
	assert.Equal(t, []dialogMode{{railType: catalog.Rail}}, dialogModes(catalog.Ship, []catalog.RailType{catalog.Rail, catalog.Electric}))

	modes := dialogModes(catalog.Train, []catalog.RailType{catalog.Rail, catalog.Electric})
	assert.Equal(t, []dialogMode{
		{railType: catalog.Rail},
		{railType: catalog.Rail, wagons: true},
		{railType: catalog.Electric},
		{railType: catalog.Electric, wagons: true},
	}, modes)
}

func TestValidateDir(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		dir := t.TempDir()
		writeDefault(t, dir)
		writeFile(t, dir, "harbour.yml", harbourScenario)
		writeFile(t, dir, "notes.txt", "ignored")

		var out bytes.Buffer
		ok, err := validateDir(&out, dir, false)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Contains(t, out.String(), "==================== default.json\n✅ VALID")
		assert.Contains(t, out.String(), "==================== harbour.yml\n✅ VALID")
		assert.Contains(t, out.String(), "⚠ Oil Tanker (7)")
		assert.Contains(t, out.String(), "✅ All scenarios are valid!")
		assert.NotContains(t, out.String(), "notes.txt")
	})

	t.Run("one invalid", func(t *testing.T) {
		dir := t.TempDir()
		writeDefault(t, dir)
		writeFile(t, dir, "broken.json", "{")

		var out bytes.Buffer
		ok, err := validateDir(&out, dir, false)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Contains(t, out.String(), "❌ INVALID")
		assert.Contains(t, out.String(), "❌ Some scenarios have errors")
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := validateDir(&bytes.Buffer{}, t.TempDir(), false)
		assert.ErrorContains(t, err, "no scenario files")
	})
}

func TestRepositoryScenarios(t *testing.T) {
	var out bytes.Buffer
	ok, err := validateDir(&out, filepath.Join("..", "scenarios"), false)
	require.NoError(t, err)
	assert.True(t, ok, out.String())
}
