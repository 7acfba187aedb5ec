// Package gallery loads the enrolled people of a face database directory.
//
// The directory holds metadata.json (or metadata.yaml) mapping each person's
// name to their attributes and image folder:
//
//	{
//	    "Ali": {
//	        "surname": "Valiyev",
//	        "father_name": "Karimovich",
//	        "faculty": "...",
//	        "direction": "...",
//	        "group": "...",
//	        "image_folder": "/data/face_database/Ali_Valiyev"
//	    }
//	}
//
// People keep the order of the file; that order is the comparison order of a
// recognition pass.
package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"gopkg.in/yaml.v3"
)

// metadata file names, in lookup order
var metadataFiles = []string{"metadata.json", "metadata.yaml", "metadata.yml"}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

type personMetadata struct {
	Surname     string `yaml:"surname"`
	FatherName  string `yaml:"father_name"`
	Faculty     string `yaml:"faculty"`
	Direction   string `yaml:"direction"`
	Group       string `yaml:"group"`
	ImageFolder string `yaml:"image_folder"`
}

// Gallery is the set of people enrolled in one face database.
type Gallery struct {
	Dir    string
	People []attendance.PersonRecord

	index map[string]int // normalized name -> position in People
}

// Load reads the metadata file of dir and lists each person's reference images.
// A person whose folder is missing is kept with no references.
func Load(dir string) (*Gallery, error) {
	path, data, err := readMetadata(dir)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperror.Wrap(apperror.KindPersistence, err, "parse "+path)
	}
	if len(doc.Content) == 0 {
		return nil, apperror.Newf(apperror.KindPersistence, "%s is empty", path)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, apperror.Newf(apperror.KindPersistence, "%s: expected an object of people", path)
	}

	g := &Gallery{Dir: dir, index: make(map[string]int)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := strings.TrimSpace(root.Content[i].Value)
		if name == "" {
			return nil, apperror.Newf(apperror.KindPersistence, "%s: empty person name at line %d", path, root.Content[i].Line)
		}

		var meta personMetadata
		if err := root.Content[i+1].Decode(&meta); err != nil {
			return nil, apperror.Wrap(apperror.KindPersistence, err, fmt.Sprintf("%s: person %q", path, name))
		}

		key := facematch.NormalizePersonName(name)
		if _, dup := g.index[key]; dup {
			return nil, apperror.Newf(apperror.KindPersistence, "%s: duplicate person %q", path, name)
		}

		person := attendance.PersonRecord{
			Name:       name,
			Surname:    meta.Surname,
			FatherName: meta.FatherName,
			Faculty:    meta.Faculty,
			Direction:  meta.Direction,
			Group:      meta.Group,
			ImageDir:   resolveFolder(dir, name, meta),
		}
		person.References, err = listImages(person.ImageDir)
		if err != nil {
			log.Printf("Warning: %s has no readable image folder: %v", name, err)
		}

		g.index[key] = len(g.People)
		g.People = append(g.People, person)
	}

	return g, nil
}

func readMetadata(dir string) (string, []byte, error) {
	for _, name := range metadataFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return path, nil, apperror.Wrap(apperror.KindPersistence, err, "read gallery metadata")
		}
		return path, data, nil
	}
	return "", nil, apperror.Newf(apperror.KindPersistence, "no %s in %s", metadataFiles[0], dir)
}

// resolveFolder picks the image folder of a person. Relative folders are
// relative to the gallery. An absolute folder that no longer exists falls
// back to a folder of the same name inside the gallery, so a gallery can be
// moved. Without a folder the enrollment layout <dir>/<name>_<surname> is used.
func resolveFolder(dir, name string, meta personMetadata) string {
	folder := meta.ImageFolder
	if folder == "" {
		return filepath.Join(dir, name+"_"+meta.Surname)
	}
	if !filepath.IsAbs(folder) {
		return filepath.Join(dir, folder)
	}
	if _, err := os.Stat(folder); err != nil {
		moved := filepath.Join(dir, filepath.Base(folder))
		if _, err := os.Stat(moved); err == nil {
			return moved
		}
	}
	return folder
}

// listImages returns the image files of folder in name order.
func listImages(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		images = append(images, filepath.Join(folder, e.Name()))
	}
	sort.Strings(images)
	return images, nil
}

// Find returns the person whose name matches, ignoring case, diacritics and separators.
func (g *Gallery) Find(name string) (attendance.PersonRecord, bool) {
	i, ok := g.index[facematch.NormalizePersonName(name)]
	if !ok {
		return attendance.PersonRecord{}, false
	}
	return g.People[i], true
}

// Len returns the number of people.
func (g *Gallery) Len() int {
	return len(g.People)
}

// References returns every reference image path in comparison order.
func (g *Gallery) References() []string {
	var refs []string
	for _, p := range g.People {
		refs = append(refs, p.References...)
	}
	return refs
}
