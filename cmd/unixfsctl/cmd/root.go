package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logrus.StandardLogger()

var rootCmd = &cobra.Command{
	Use:          "unixfsctl",
	Short:        "Format, seed and explore unixfs disk images",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("image", "", "path to the disk image")
	rootCmd.PersistentFlags().Uint32("blocks", 64, "number of blocks in the image (mkfs only)")
	rootCmd.PersistentFlags().Uint32("inodes", 80, "number of inode slots in the image (mkfs only)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	_ = viper.BindPFlag("image", rootCmd.PersistentFlags().Lookup("image"))
	_ = viper.BindPFlag("blocks", rootCmd.PersistentFlags().Lookup("blocks"))
	_ = viper.BindPFlag("inodes", rootCmd.PersistentFlags().Lookup("inodes"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.SetEnvPrefix("UNIXFSCTL")
	viper.AutomaticEnv()

	cobra.OnInitialize(func() {
		if viper.GetBool("verbose") {
			log.SetLevel(logrus.DebugLevel)
		}
	})

	rootCmd.AddCommand(mkfsCmd, shellCmd, seedCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
