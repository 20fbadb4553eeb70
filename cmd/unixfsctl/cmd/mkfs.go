package cmd

import (
	"fmt"

	"github.com/blockkit/unixfs/backend/file"
	"github.com/blockkit/unixfs/blockdev"
	"github.com/blockkit/unixfs/ufs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var mkfsCmd = &cobra.Command{
	Use:   "mkfs",
	Short: "Format a new disk image",
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath := viper.GetString("image")
		if imagePath == "" {
			return fmt.Errorf("--image is required")
		}
		numBlocks := viper.GetUint32("blocks")
		numInodes := viper.GetUint32("inodes")

		storage, err := file.CreateFromPath(imagePath, int64(numBlocks)*blockdev.BlockSize)
		if err != nil {
			return err
		}
		defer func() { _ = storage.Close() }()

		fs, err := ufs.Mkfs(storage, numBlocks, numInodes, log)
		if err != nil {
			return err
		}
		fmt.Printf("formatted %s: %d blocks, %d inodes, volume %s\n", imagePath, numBlocks, numInodes, fs.VolumeID)
		return nil
	},
}
