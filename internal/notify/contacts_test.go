package notify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/apperror"
)

func TestLoadContacts_MissingFile(t *testing.T) {
	c, err := LoadContacts(filepath.Join(t.TempDir(), "contacts.yaml"))
	if err != nil {
		t.Fatalf("LoadContacts() error = %v", err)
	}
	if got := c.List(); len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestLoadContacts_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.json")
	doc := `{"dean": {"email": "dean@example.edu"}, "admin": {"email": "admin@example.edu"}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadContacts(path)
	if err != nil {
		t.Fatalf("LoadContacts() error = %v", err)
	}
	list := c.List()
	if len(list) != 2 || list[0].Name != "admin" || list[1].Name != "dean" {
		t.Fatalf("List() = %+v, want admin, dean", list)
	}
	if list[1].Email != "dean@example.edu" {
		t.Errorf("dean email = %q", list[1].Email)
	}
}

func TestLoadContacts_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	if err := os.WriteFile(path, []byte("dean: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadContacts(path); !apperror.IsKind(err, apperror.KindConfiguration) {
		t.Errorf("LoadContacts() error = %v, want configuration error", err)
	}
}

func TestContacts_Add(t *testing.T) {
	tests := []struct {
		name    string
		contact string
		email   string
		wantErr bool
	}{
		{name: "valid", contact: "dean", email: "dean@example.edu"},
		{name: "trimmed", contact: " dean ", email: " dean@example.edu "},
		{name: "missing name", contact: "", email: "dean@example.edu", wantErr: true},
		{name: "missing email", contact: "dean", email: "", wantErr: true},
		{name: "invalid email", contact: "dean", email: "not-an-address", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadContacts(filepath.Join(t.TempDir(), "contacts.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			got, err := c.Add(tt.contact, tt.email)
			if tt.wantErr {
				if !apperror.IsKind(err, apperror.KindConfiguration) {
					t.Errorf("Add() error = %v, want configuration error", err)
				}
				if len(c.List()) != 0 {
					t.Errorf("invalid contact was stored")
				}
				return
			}
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if got.Name != "dean" || got.Email != "dean@example.edu" {
				t.Errorf("Add() = %+v", got)
			}
		})
	}
}

func TestContacts_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "contacts.yaml")
	c, err := LoadContacts(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add("dean", "dean@example.edu"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add("admin", "admin@example.edu"); err != nil {
		t.Fatal(err)
	}
	if err := c.Remove("admin"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reloaded, err := LoadContacts(path)
	if err != nil {
		t.Fatalf("LoadContacts() error = %v", err)
	}
	got, err := reloaded.Get("dean")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Email != "dean@example.edu" || got.Name != "dean" {
		t.Errorf("Get() = %+v", got)
	}
	if _, err := reloaded.Get("admin"); !errors.Is(err, ErrContactNotFound) {
		t.Errorf("Get(admin) error = %v, want ErrContactNotFound", err)
	}
}

func TestContacts_RemoveUnknown(t *testing.T) {
	c, _ := LoadContacts(filepath.Join(t.TempDir(), "contacts.yaml"))
	if err := c.Remove("nobody"); !errors.Is(err, ErrContactNotFound) {
		t.Errorf("Remove() error = %v, want ErrContactNotFound", err)
	}
}
