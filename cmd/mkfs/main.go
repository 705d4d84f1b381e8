// Command mkfs builds a bootable filesystem image: format a disk file
// with the standard layout and populate the root directory from a host
// directory of user executables.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcore-go/kernel/internal/ufs"
	"github.com/rcore-go/kernel/internal/ustr"
)

func main() {
	var out string
	var src string
	var nblocks int
	var imapblocks int
	flag.StringVar(&out, "o", "fs.img", "output image path")
	flag.StringVar(&src, "src", "", "directory of files to install")
	flag.IntVar(&nblocks, "blocks", 16384, "total disk blocks")
	flag.IntVar(&imapblocks, "imap", 1, "inode bitmap blocks")
	flag.Parse()

	u := ufs.MkfsFS(out, nblocks, imapblocks)

	if src != "" {
		ents, err := os.ReadDir(src)
		if err != nil {
			fmt.Printf("read %q: %v\n", src, err)
			os.Exit(1)
		}
		for _, e := range ents {
			if e.IsDir() {
				fmt.Printf("skipping directory %v\n", e.Name())
				continue
			}
			data, err := os.ReadFile(filepath.Join(src, e.Name()))
			if err != nil {
				fmt.Printf("read %v: %v\n", e.Name(), err)
				os.Exit(1)
			}
			if u.MkFile(ustr.Ustr(e.Name()), data) != 0 {
				fmt.Printf("install %v failed\n", e.Name())
				os.Exit(1)
			}
			fmt.Printf("installed %v (%v bytes)\n", e.Name(), len(data))
		}
	}

	u.Shutdown()
}
