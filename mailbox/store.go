package mailbox

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"path/filepath"

	"github.com/go-pluto/maildir"
)

// Structs

// Store provides access to the filesystem-backed mailboxes
// of all users below one configured root directory. Folder
// names use the configured hierarchy separator on the wire
// and are translated to path separators on disk.
type Store struct {
	Root      string
	Separator string
}

// Mailbox represents the mailbox tree of a single user,
// rooted at <Store.Root>/<user name>.
type Mailbox struct {
	root string
	sep  string
}

// Folder describes one folder of a user's mailbox as
// reported in LIST and LSUB responses.
type Folder struct {
	Name       string
	Attributes []string
}

// Functions

// NewStore initializes a store below the supplied root
// directory, creating the root if it does not exist yet.
func NewStore(root string, separator string) (*Store, error) {

	err := os.MkdirAll(root, 0700)
	if err != nil {
		return nil, fmt.Errorf("[mailbox.NewStore] Could not create mailbox root directory: %v", err)
	}

	return &Store{
		Root:      root,
		Separator: separator,
	}, nil
}

// ForUser returns the mailbox of the supplied user. No
// filesystem state is touched until EnsureRoot is called.
func (s *Store) ForUser(email string) *Mailbox {

	return &Mailbox{
		root: filepath.Join(s.Root, email),
		sep:  s.Separator,
	}
}

// EnsureRoot creates the user's mailbox directory and the
// INBOX maildir if they are missing. It is called on every
// successful authentication so that a user deleted from
// disk simply gets a fresh empty mailbox.
func (m *Mailbox) EnsureRoot() error {

	err := os.MkdirAll(m.root, 0700)
	if err != nil {
		return fmt.Errorf("failed to create user mailbox directory: %v", err)
	}

	inbox := maildir.Dir(filepath.Join(m.root, "INBOX"))

	// An intact INBOX stays untouched, Create is not
	// tolerant of already existing subdirectories.
	if inbox.Check() == nil {
		return nil
	}

	err = inbox.Create()
	if err != nil {
		return fmt.Errorf("failed to create INBOX maildir: %v", err)
	}

	return nil
}

// folderPath translates a folder name from wire form into
// the on-disk path, rejecting names that would escape the
// user's mailbox directory.
func (m *Mailbox) folderPath(name string) (string, error) {

	rel := strings.ReplaceAll(name, m.sep, string(os.PathSeparator))

	path := filepath.Join(m.root, rel)

	if !strings.HasPrefix(path, (m.root + string(os.PathSeparator))) {
		return "", fmt.Errorf("folder name '%s' escapes the mailbox directory", name)
	}

	return path, nil
}

// CreateFolder creates the named folder as a maildir,
// including missing intermediate hierarchy levels. Creating
// a folder that already exists is not an error.
func (m *Mailbox) CreateFolder(name string) error {

	if name == "" {
		return fmt.Errorf("folder name must not be empty")
	}

	path, err := m.folderPath(name)
	if err != nil {
		return err
	}

	dir := maildir.Dir(path)

	if dir.Check() == nil {
		return nil
	}

	err = os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		return fmt.Errorf("failed to create parent directories of folder '%s': %v", name, err)
	}

	err = dir.Create()
	if err != nil {
		return fmt.Errorf("failed to create maildir for folder '%s': %v", name, err)
	}

	return nil
}

// Exists reports whether the named folder is present as
// an intact maildir.
func (m *Mailbox) Exists(name string) bool {

	path, err := m.folderPath(name)
	if err != nil {
		return false
	}

	return maildir.Dir(path).Check() == nil
}

// List returns the user's folders matching the supplied
// pattern, the asterisk matching every folder and any other
// pattern matching by exact name. A missing mailbox
// directory yields an empty result.
func (m *Mailbox) List(pattern string) ([]Folder, error) {
	return m.list(pattern, "\\HasNoChildren")
}

// Lsub behaves like List but marks the returned folders as
// subscribed. Every existing folder counts as subscribed.
func (m *Mailbox) Lsub(pattern string) ([]Folder, error) {
	return m.list(pattern, "\\Subscribed")
}

func (m *Mailbox) list(pattern string, attribute string) ([]Folder, error) {

	entries, err := os.ReadDir(m.root)
	if err != nil {

		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read user mailbox directory: %v", err)
	}

	folders := make([]Folder, 0, len(entries))

	for _, entry := range entries {

		if !entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Only intact maildirs count as folders, stray
		// directories below the user root are skipped.
		if maildir.Dir(filepath.Join(m.root, name)).Check() != nil {
			continue
		}

		if (pattern != "*") && (pattern != name) {
			continue
		}

		folders = append(folders, Folder{
			Name:       name,
			Attributes: []string{attribute},
		})
	}

	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})

	return folders, nil
}

// Status reports the message count and the next UID of the
// named folder. Counts come from the maildir's cur and new
// directories, a missing folder reports zero messages.
func (m *Mailbox) Status(name string) (int, int, error) {

	path, err := m.folderPath(name)
	if err != nil {
		return 0, 0, err
	}

	dir := maildir.Dir(path)

	if dir.Check() != nil {
		return 0, 1, nil
	}

	keys, err := dir.Keys()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list messages of folder '%s': %v", name, err)
	}

	// Undelivered messages in new are counted directly,
	// Unseen() would move them to cur as a side effect.
	fresh, err := os.ReadDir(filepath.Join(path, "new"))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list new messages of folder '%s': %v", name, err)
	}

	num := len(keys) + len(fresh)

	return num, (num + 1), nil
}
