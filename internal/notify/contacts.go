// Package notify mails finished attendance reports to saved contacts.
package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-attendance/internal/apperror"
)

// ErrContactNotFound is returned when a contact name is not in the book.
var ErrContactNotFound = errors.New("contact not found")

// Contact is a named mail recipient.
type Contact struct {
	Name  string `yaml:"-" json:"name" validate:"required"`
	Email string `yaml:"email" json:"email" validate:"required,email"`
}

// Contacts is a file-backed address book. The file maps contact names to
// {email: ...} objects; JSON files are accepted too.
type Contacts struct {
	path     string
	validate *validator.Validate

	mu       sync.RWMutex
	contacts map[string]Contact
}

// LoadContacts reads the address book at path. A missing file is an empty book.
func LoadContacts(path string) (*Contacts, error) {
	c := &Contacts{
		path:     path,
		validate: validator.New(),
		contacts: make(map[string]Contact),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, err, "read contacts")
	}

	var raw map[string]Contact
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, err, "parse contacts "+path)
	}
	for name, contact := range raw {
		contact.Name = name
		c.contacts[name] = contact
	}
	return c, nil
}

// Add validates and stores a contact, replacing one with the same name.
func (c *Contacts) Add(name, email string) (Contact, error) {
	contact := Contact{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	if err := c.validate.Struct(contact); err != nil {
		return Contact{}, apperror.Wrap(apperror.KindConfiguration, describeValidation(err), "invalid contact")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.contacts[contact.Name] = contact
	return contact, nil
}

// Remove deletes a contact.
func (c *Contacts) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.contacts[name]; !ok {
		return fmt.Errorf("%w: %s", ErrContactNotFound, name)
	}
	delete(c.contacts, name)
	return nil
}

// Get returns the named contact.
func (c *Contacts) Get(name string) (Contact, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	contact, ok := c.contacts[name]
	if !ok {
		return Contact{}, fmt.Errorf("%w: %s", ErrContactNotFound, name)
	}
	return contact, nil
}

// List returns every contact sorted by name.
func (c *Contacts) List() []Contact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Contact, 0, len(c.contacts))
	for _, contact := range c.contacts {
		out = append(out, contact)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save writes the book back to its file.
func (c *Contacts) Save() error {
	c.mu.RLock()
	data, err := yaml.Marshal(c.contacts)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding contacts: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return apperror.Wrap(apperror.KindPersistence, err, "create contacts directory")
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return apperror.Wrap(apperror.KindPersistence, err, "write contacts")
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return apperror.Wrap(apperror.KindPersistence, err, "write contacts")
	}
	return nil
}

// describeValidation turns validator field errors into one readable error.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "email":
			msgs = append(msgs, fmt.Sprintf("%q is not a valid email address", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, ", "))
}
