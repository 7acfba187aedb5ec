package cmd

import (
	"github.com/spf13/cobra"
)

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Face database commands",
	Long: `Commands for inspecting the face database: a directory with a
metadata.json describing each person and one folder of reference photos per
person.`,
}

func init() {
	rootCmd.AddCommand(galleryCmd)
	galleryCmd.PersistentFlags().String("gallery", "", "Face database directory (default $GALLERY_DIR)")
}

// galleryDir returns --gallery or the configured directory.
func galleryDir(cmd *cobra.Command, configured string) string {
	if dir := mustGetString(cmd, "gallery"); dir != "" {
		return dir
	}
	return configured
}
