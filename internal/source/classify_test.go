package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/picbridge/internal/ir"
)

func paths(files []ir.SourceFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestClassifyPartitionsBySuffix(t *testing.T) {
	input := []string{
		"/p/src/main.cpp",
		"/p/src/led.hpp",
		"/p/src/uart.c",
		"/p/src/timer.cxx",
		"/p/src/pins.h",
		"/p/src/button.cc",
		"/p/src/regs.hxx",
		"/p/src/README.md",
		"/p/src/startup.asm",
	}

	c := Classify(input)

	assert.Equal(t, []string{"/p/src/main.cpp", "/p/src/timer.cxx", "/p/src/button.cc"}, paths(c.CppUnits))
	assert.Equal(t, []string{"/p/src/uart.c"}, paths(c.CUnits))
	assert.Equal(t, []string{"/p/src/led.hpp", "/p/src/pins.h", "/p/src/regs.hxx"}, paths(c.Headers))
	assert.Equal(t, 7, c.Len())

	kinds := map[string]ir.Kind{}
	for _, h := range c.Headers {
		kinds[h.Path] = h.Kind
	}
	assert.Equal(t, ir.KindHeaderCpp, kinds["/p/src/led.hpp"])
	assert.Equal(t, ir.KindHeaderC, kinds["/p/src/pins.h"])
	assert.Equal(t, ir.KindHeaderCpp, kinds["/p/src/regs.hxx"])
}

func TestClassifyDisjointAndExhaustive(t *testing.T) {
	inputs := [][]string{
		{},
		{"a.c", "b.c", "c.h"},
		{"x.cpp", "x.hpp", "x.c", "x.h", "x.txt", "x"},
		{"deep/dir/one.cc", "deep/dir/two.hxx", "three.cxx", ".hidden.c"},
	}

	for _, input := range inputs {
		c := Classify(input)

		seen := map[string]int{}
		for _, p := range paths(c.CppUnits) {
			seen[p]++
		}
		for _, p := range paths(c.CUnits) {
			seen[p]++
		}
		for _, p := range paths(c.Headers) {
			seen[p]++
		}

		var recognized []string
		for _, p := range input {
			if _, ok := KindOf(p); ok {
				recognized = append(recognized, p)
			}
		}

		assert.Len(t, seen, len(recognized), "input %v", input)
		for _, p := range recognized {
			assert.Equal(t, 1, seen[p], "%s must appear in exactly one sequence", p)
		}
	}
}

func TestClassifySuffixIsCaseSensitive(t *testing.T) {
	c := Classify([]string{"MAIN.CPP", "main.C"})
	assert.Zero(t, c.Len())
}

func TestEnumerateSkipsTempAndHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
	write("main.cpp")
	write("lib/led.hpp")
	write("lib/notes.txt")
	write("generated_c/temp_0193_main.cpp")
	write(".git/objects/stale.c")

	files, err := Enumerate(dir, "temp_")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "lib", "led.hpp"),
		filepath.Join(dir, "main.cpp"),
	}, files)
}

func TestEnumerateSkipsListedDirs(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"main.cpp", "cpp-multi/main.cpp", "cpp-multi/generated_c/main.c", "generated_c/main.c"} {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}

	files, err := Enumerate(dir, "temp_", filepath.Join(dir, "cpp-multi"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "generated_c", "main.c"),
		filepath.Join(dir, "main.cpp"),
	}, files)
}

func TestEnumerateMissingDirectory(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "absent"), "")
	require.Error(t, err)
}
