package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

var galleryListCmd = &cobra.Command{
	Use:   "list [NAME...]",
	Short: "List enrolled people and their reference photos",
	Long: `List enrolled people and their reference photos. Names select single
people and match regardless of case, diacritics and apostrophes.`,
	RunE: runGalleryList,
}

func init() {
	galleryCmd.AddCommand(galleryListCmd)
	galleryListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runGalleryList(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	g, err := gallery.Load(galleryDir(cmd, cfg.Gallery.Dir))
	if err != nil {
		return err
	}

	people := g.People
	if len(args) > 0 {
		people = make([]attendance.PersonRecord, 0, len(args))
		for _, name := range args {
			p, ok := g.Find(name)
			if !ok {
				return fmt.Errorf("%s is not in the gallery", name)
			}
			people = append(people, p)
		}
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(people)
	}

	missing := 0
	for _, p := range people {
		fmt.Printf("%-30s %-12s %-20s %3d photos\n", p.FullName(), p.Group, p.Faculty, len(p.References))
		if len(p.References) == 0 {
			missing++
		}
	}
	fmt.Printf("\n%d people, %d reference photos", g.Len(), len(g.References()))
	if missing > 0 {
		fmt.Printf(", %d without photos (never recognized)", missing)
	}
	fmt.Println()
	return nil
}
