// Command kernel is the boot shim: open the disk image, read the init
// executable out of it, and enter the kernel proper. On real hardware
// the bootstrap assembly performs this step before Kmain; this binary
// stands in for it when the kernel runs hosted.
package main

import (
	"flag"
	"os"

	"github.com/rcore-go/kernel/internal/kernel"
	"github.com/rcore-go/kernel/internal/ufs"
)

func main() {
	var img string
	var init string
	flag.StringVar(&img, "disk", "fs.img", "filesystem image")
	flag.StringVar(&init, "init", "initproc", "init executable inside the image")
	flag.Parse()

	// pull init out with a throwaway mount, then let the kernel mount
	// the disk for itself
	u := ufs.BootFS(img)
	data, err := u.Read([]uint8(init))
	if err != 0 {
		os.Exit(1)
	}
	u.Shutdown()
	kernel.Kmain(ufs.OpenDisk(img), data)
}
