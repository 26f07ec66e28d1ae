package benchmarks

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// makeTree creates depth levels of directories, each holding files entries.
func makeTree(b *testing.B, dir string, depth, files int) {
	b.Helper()
	for i := range files {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%d.txt", i)), []byte("x"), 0o644); err != nil {
			b.Fatal(err)
		}
	}
	if depth == 0 {
		return
	}
	sub := filepath.Join(dir, fmt.Sprintf("d%d", depth))
	if err := os.Mkdir(sub, 0o755); err != nil {
		b.Fatal(err)
	}
	makeTree(b, sub, depth-1, files)
}
