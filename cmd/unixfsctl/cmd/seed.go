package cmd

import (
	"fmt"
	"os"

	"github.com/blockkit/unixfs/backend/file"
	"github.com/blockkit/unixfs/process"
	"github.com/blockkit/unixfs/seed"
	"github.com/blockkit/unixfs/ufs"
	"github.com/blockkit/unixfs/vfs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var seedCmd = &cobra.Command{
	Use:   "seed [host-dir]",
	Short: "Copy a host directory tree into a mounted image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath := viper.GetString("image")
		if imagePath == "" {
			return fmt.Errorf("--image is required")
		}
		storage, err := file.OpenFromPath(imagePath, false)
		if err != nil {
			return err
		}
		defer func() { _ = storage.Close() }()

		mounted, err := ufs.Mount(storage, log)
		if err != nil {
			return err
		}
		v, err := vfs.New(log)
		if err != nil {
			return err
		}
		if err := v.Mount("/", mounted); err != nil {
			return err
		}
		p := process.New(v.Syscalls(), log)

		return seed.CopyTree(p, os.DirFS(args[0]), "/")
	},
}
