package buildset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/picbridge/internal/ir"
)

func TestSelectEntry(t *testing.T) {
	units := []ir.TranspiledUnit{
		{OutputPath: "/p/generated_c/helpers.c", Role: ir.RoleDependency},
		{OutputPath: "/p/generated_c/main.c", Role: ir.RoleEntry},
	}
	e, err := SelectEntry(units)
	require.NoError(t, err)
	assert.Equal(t, "/p/generated_c/main.c", e.OutputPath)
}

func TestSelectEntryNone(t *testing.T) {
	_, err := SelectEntry([]ir.TranspiledUnit{{OutputPath: "/p/g/helpers.c", Role: ir.RoleDependency}})
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.ErrNoEntryUnit))

	_, err = SelectEntry(nil)
	assert.True(t, ir.IsKind(err, ir.ErrNoEntryUnit))
}

func TestSelectEntryAmbiguous(t *testing.T) {
	_, err := SelectEntry([]ir.TranspiledUnit{
		{OutputPath: "/p/g/main.c", Role: ir.RoleEntry},
		{OutputPath: "/p/g/MAIN.c", Role: ir.RoleEntry},
	})
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.ErrAmbiguousEntrySet))
	assert.Contains(t, err.Error(), "internal error")
}

func TestAssembleKeepsOnlyEntryAndOriginalCUnits(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "generated_c")

	units := []ir.TranspiledUnit{
		{OutputPath: filepath.Join(out, "main.c"), Role: ir.RoleEntry},
		{OutputPath: filepath.Join(out, "helpers.c"), Role: ir.RoleDependency},
	}
	entry, err := SelectEntry(units)
	require.NoError(t, err)

	cUnits := []ir.SourceFile{
		{Path: filepath.Join(root, "uart.c"), Kind: ir.KindCUnit},
		{Path: filepath.Join(out, "helpers.c"), Kind: ir.KindCUnit},
		{Path: filepath.Join(out, "main.c"), Kind: ir.KindCUnit},
		{Path: filepath.Join(root, "uart.c"), Kind: ir.KindCUnit},
	}

	bs, err := Assemble(&entry, cUnits, out)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(out, "main.c"),
		filepath.Join(root, "uart.c"),
	}, bs.Units)
	assert.NotContains(t, bs.Units, filepath.Join(out, "helpers.c"))
	assert.Equal(t, []string{filepath.Join(out, "helpers.c")}, bs.Excluded)
	assert.Equal(t, 2, bs.Len())
}

func TestAssembleRerunDoesNotExcludeEntry(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "generated_c")
	entry := ir.TranspiledUnit{OutputPath: filepath.Join(out, "main.c"), Role: ir.RoleEntry}

	// A previous run left its generated C next to the sources.
	cUnits := []ir.SourceFile{
		{Path: filepath.Join(out, "helpers.c"), Kind: ir.KindCUnit},
		{Path: filepath.Join(out, "main.c"), Kind: ir.KindCUnit},
		{Path: filepath.Join(out, "helpers.c"), Kind: ir.KindCUnit},
	}

	bs, err := Assemble(&entry, cUnits, out)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "main.c")}, bs.Units)
	assert.Equal(t, []string{filepath.Join(out, "helpers.c")}, bs.Excluded)
	for _, p := range bs.Excluded {
		assert.NotContains(t, bs.Units, p)
	}
}

func TestAssembleSiblingDirectoryIsNotInside(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "generated_c")
	sibling := filepath.Join(root, "generated_c_old", "legacy.c")

	bs, err := Assemble(nil, []ir.SourceFile{{Path: sibling, Kind: ir.KindCUnit}}, out)
	require.NoError(t, err)
	assert.Equal(t, []string{sibling}, bs.Units)
	assert.Nil(t, bs.Entry)
}

func TestAssembleMultipleGeneratedDirs(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "generated_c")
	fallbackOut := filepath.Join(root, "cpp-multi", "generated_c")

	cUnits := []ir.SourceFile{
		{Path: filepath.Join(fallbackOut, "main.c"), Kind: ir.KindCUnit},
		{Path: filepath.Join(root, "adc.c"), Kind: ir.KindCUnit},
	}
	bs, err := Assemble(nil, cUnits, out, "", fallbackOut)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "adc.c")}, bs.Units)
}

func TestBuildSetLenNil(t *testing.T) {
	var bs *BuildSet
	assert.Equal(t, 0, bs.Len())
}
